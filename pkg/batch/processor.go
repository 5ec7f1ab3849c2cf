// Package batch drives the rate limiter and the metadata fetcher over an
// ordered sequence of input rows, one row at a time.
package batch

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/adverif/sincera-enrich/pkg/sincera"
)

// Row is one input row as read from the source sheet. Values are the raw
// cell contents; empty string means the cell was blank or the column
// absent.
type Row struct {
	PublisherID string
	Domain      string
}

// Result pairs a lookup record with the row's original identifier
// values, copied through unchanged regardless of which one was used for
// the lookup or whether it succeeded.
type Result struct {
	sincera.Record

	InputPublisherID string
	InputDomain      string
}

// Fetcher resolves one identifier to a record. Implementations must not
// fail: all error paths resolve to the all-null record.
type Fetcher interface {
	Fetch(ctx context.Context, id sincera.Identifier) sincera.Record
}

// Limiter paces requests against the trailing-window cap.
type Limiter interface {
	WaitIfNeeded(ctx context.Context) error
	RecordRequest()
}

// Processor orchestrates a batch run: identifier selection, pacing,
// fetching, and passthrough merging, strictly in input order.
type Processor struct {
	limiter Limiter
	fetcher Fetcher
	logger  zerolog.Logger
}

// NewProcessor creates a batch processor.
func NewProcessor(limiter Limiter, fetcher Fetcher, logger zerolog.Logger) *Processor {
	return &Processor{
		limiter: limiter,
		fetcher: fetcher,
		logger:  logger,
	}
}

// Process resolves every row in order and returns one result per row. A
// row's total failure never aborts the batch; the only early return is
// context cancellation, which yields the results accumulated so far
// together with the context error.
//
// Every row pays the pacing check, but only rows that actually issue a
// request reserve window capacity. Rows whose identifier is present but
// invalid still reserve capacity before the fetcher short-circuits them,
// mirroring how the sheet is paced by row rather than by successful
// parse.
func (p *Processor) Process(ctx context.Context, rows []Row) ([]Result, error) {
	start := time.Now()
	results := make([]Result, 0, len(rows))
	total := len(rows)

	p.logger.Info().Int("total", total).Msg("Starting batch run")

	for i, row := range rows {
		if err := p.limiter.WaitIfNeeded(ctx); err != nil {
			p.logger.Warn().
				Err(err).
				Int("row", i+1).
				Int("total", total).
				Msg("Batch cancelled")
			return results, err
		}

		id := sincera.FromRow(row.PublisherID, row.Domain)

		var rec sincera.Record
		if id.Kind == sincera.KindNone {
			p.logger.Warn().
				Int("row", i+1).
				Int("total", total).
				Msg("Skipping row: no valid publisher_id or domain")
		} else {
			p.logger.Info().
				Int("row", i+1).
				Int("total", total).
				Str("kind", string(id.Kind)).
				Str("identifier", id.Raw()).
				Msg("Processing row")

			p.limiter.RecordRequest()
			rec = p.fetcher.Fetch(ctx, id)
		}

		results = append(results, Result{
			Record:           rec,
			InputPublisherID: row.PublisherID,
			InputDomain:      row.Domain,
		})
	}

	p.logger.Info().
		Int("total", total).
		Dur("duration", time.Since(start)).
		Msg("Batch run complete")

	return results, nil
}
