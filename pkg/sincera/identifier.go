package sincera

import (
	"fmt"
	"strconv"
	"strings"
)

// Kind classifies which lookup key an Identifier carries.
type Kind string

const (
	// KindID is a numeric publisher ID lookup.
	KindID Kind = "id"

	// KindDomain is a domain string lookup.
	KindDomain Kind = "domain"

	// KindInvalid marks an identifier that was present but unparseable
	// (e.g. a non-numeric publisher ID). It short-circuits to an
	// all-null record without a network call.
	KindInvalid Kind = "invalid"

	// KindNone marks a row with no identifier at all.
	KindNone Kind = "none"
)

// Identifier is the publisher key used to query the API, decided once at
// row-ingestion time rather than re-parsed on every retry.
type Identifier struct {
	Kind   Kind
	ID     int64
	Domain string

	raw string
}

// FromRow builds the effective identifier for one input row. A non-empty
// domain takes priority over the publisher ID; a present but non-integer
// publisher ID yields KindInvalid; two empty values yield KindNone.
func FromRow(rawID, rawDomain string) Identifier {
	if d := strings.TrimSpace(rawDomain); d != "" {
		return Identifier{Kind: KindDomain, Domain: d, raw: d}
	}

	if s := strings.TrimSpace(rawID); s != "" {
		n, err := strconv.ParseInt(s, 10, 64)
		if err != nil {
			return Identifier{Kind: KindInvalid, raw: s}
		}
		return Identifier{Kind: KindID, ID: n, raw: s}
	}

	return Identifier{Kind: KindNone}
}

// Raw returns the original input value the identifier was built from.
func (id Identifier) Raw() string {
	return id.raw
}

// String renders the identifier for log context, e.g. "publisher_id 42"
// or "domain example.com".
func (id Identifier) String() string {
	switch id.Kind {
	case KindID:
		return fmt.Sprintf("publisher_id %d", id.ID)
	case KindDomain:
		return "domain " + id.Domain
	case KindInvalid:
		return "invalid identifier " + id.raw
	default:
		return "no identifier"
	}
}
