package pagination

import (
	"context"
	"fmt"
	"time"

	"github.com/Sternrassler/order-report/pkg/order"
	"github.com/rs/zerolog/log"
)

// StopReason describes which condition ended a collection.
type StopReason string

const (
	StopEmptyPage    StopReason = "empty_page"
	StopTotalReached StopReason = "total_reached"
	StopShortPage    StopReason = "short_page"
)

// Page is one chunk of a search result.
type Page struct {
	Records order.ResultSet

	// TotalCount is the server-reported total; only meaningful when HasTotal is set.
	TotalCount int
	HasTotal   bool
}

// PageFetcher is the interface the order client implements for single-page fetching.
type PageFetcher interface {
	// FetchPage fetches the page at the given zero-based index.
	FetchPage(ctx context.Context, page int) (*Page, error)
}

// Result is the outcome of a complete collection.
type Result struct {
	Records order.ResultSet
	Pages   int
	Reason  StopReason
}

// Collect fetches pages sequentially from index 0 until a termination condition holds.
// Any fetch error aborts the collection and no partial records are returned.
func Collect(ctx context.Context, fetcher PageFetcher, pageSize int) (*Result, error) {
	if fetcher == nil {
		return nil, fmt.Errorf("page fetcher is required")
	}
	if pageSize <= 0 {
		return nil, fmt.Errorf("page size must be positive, got %d", pageSize)
	}

	start := time.Now()
	var records order.ResultSet

	for page := 0; ; page++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		p, err := fetcher.FetchPage(ctx, page)
		if err != nil {
			log.Warn().
				Err(err).
				Int("page", page).
				Int("records_discarded", len(records)).
				Msg("Page fetch failed")
			return nil, fmt.Errorf("fetch page %d: %w", page, err)
		}

		reason, done := StopEmptyPage, true
		if p != nil && len(p.Records) > 0 {
			records = append(records, p.Records...)
			reason, done = stopAfter(p, len(records), pageSize)
		}

		pageRecords := 0
		if p != nil {
			pageRecords = len(p.Records)
		}
		log.Debug().
			Int("page", page).
			Int("page_records", pageRecords).
			Int("total_records", len(records)).
			Msg("Page fetched")

		if done {
			log.Info().
				Int("pages", page+1).
				Int("records", len(records)).
				Str("stop_reason", string(reason)).
				Dur("duration", time.Since(start)).
				Msg("Fetch complete")

			return &Result{Records: records, Pages: page + 1, Reason: reason}, nil
		}
	}
}

// stopAfter evaluates the count and short-page conditions once a non-empty
// page has been appended. Either one ends the collection.
func stopAfter(p *Page, accumulated, pageSize int) (StopReason, bool) {
	total := 0
	if p.HasTotal {
		total = p.TotalCount
	}
	if accumulated >= total {
		return StopTotalReached, true
	}
	if len(p.Records) < pageSize {
		return StopShortPage, true
	}
	return "", false
}
