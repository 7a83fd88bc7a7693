// Package pagination collects every page of an order search into one result set.
//
// The order API pages by index, starting at 0. Pages are fetched strictly one
// after another; the collector stops as soon as any termination condition holds:
//   - the page is empty (no more data)
//   - the accumulated record count reached the server-reported total
//   - the page held fewer records than the requested page size
//
// A response without a total counts as total 0, so the count condition holds
// after the first non-empty page.
//
// Example usage:
//
//	result, err := pagination.Collect(ctx, fetcher, 100)
//	if err != nil {
//		return err // no partial data
//	}
//	records := result.Records
package pagination
