package cache

// Key identifies one cached publisher lookup.
type Key struct {
	// Kind is the lookup dimension: "id" or "domain".
	Kind string

	// Value is the identifier value as queried.
	Value string
}

// String generates the deterministic Redis key.
// Format: sincera:publisher:<kind>:<value>
//
// Example:
//
//	sincera:publisher:domain:example.com
func (k Key) String() string {
	return "sincera:publisher:" + k.Kind + ":" + k.Value
}
