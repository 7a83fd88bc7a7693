// Package metrics documents the Prometheus metrics exported by order-report and
// writes them for a node_exporter textfile collector.
//
// Metrics are defined with promauto in the packages that own them (auth, client,
// credential, ratelimit, report) so this package imports none of them.
package metrics

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/prometheus/client_golang/prometheus"
)

// Registry is the registerer all order-report metrics are attached to.
var Registry = prometheus.DefaultRegisterer

// Gatherer is read by WriteTextfile.
var Gatherer prometheus.Gatherer = prometheus.DefaultGatherer

// WriteTextfile writes the current value of every registered metric to path
// in the text exposition format. The runner is a one-shot process with no
// scrape endpoint, so this is how its counters leave the process.
func WriteTextfile(path string) error {
	if path == "" {
		return nil
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create metrics directory: %w", err)
	}
	if err := prometheus.WriteToTextfile(path, Gatherer); err != nil {
		return fmt.Errorf("write metrics textfile: %w", err)
	}
	return nil
}

// Metrics Documentation
//
// Token Metrics (pkg/auth):
//   - order_token_requests_total{source} (Counter): GetToken calls served from "cache" or "refresh"
//   - order_token_refreshes_total{result} (Counter): Credential exchanges by result (success, failure)
//
// Credential Store Metrics (pkg/credential):
//   - order_credential_store_hits_total{backend} (Counter): Stored credential found
//   - order_credential_store_misses_total{backend} (Counter): No stored credential
//   - order_credential_store_errors_total{backend, operation} (Counter): Store read/write failures
//
// Request Metrics (pkg/client):
//   - order_api_requests_total{endpoint, status} (Counter): Search requests by HTTP status
//   - order_api_request_duration_seconds{endpoint} (Histogram): Search request latency
//   - order_api_errors_total{class} (Counter): Errors by class (client, server, rate_limit, network, decode)
//   - order_api_pages_fetched_total (Counter): Result pages received
//   - order_api_records_fetched_total (Counter): Records received
//
// Pacing Metrics (pkg/ratelimit):
//   - order_api_throttle_wait_seconds (Histogram): Time spent waiting for the limiter
//   - order_api_throttled_requests_total (Counter): Requests that had to wait
//
// Report Metrics (pkg/report):
//   - order_report_renders_total{result} (Counter): Documents rendered by result
//   - order_report_field_errors_total{operation} (Counter): Summary fields skipped
//
// Example Prometheus Queries:
//
//   # Token cache hit rate
//   sum(rate(order_token_requests_total{source="cache"}[1h])) /
//   sum(rate(order_token_requests_total[1h]))
//
//   # Pages per report run
//   increase(order_api_pages_fetched_total[1d]) / increase(order_report_renders_total[1d])
//
//   # P95 search latency
//   histogram_quantile(0.95, rate(order_api_request_duration_seconds_bucket[5m]))
