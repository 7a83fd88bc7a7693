package credential

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// StoreHits tracks credential reads that found a stored token.
	StoreHits = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "order_credential_store_hits_total",
			Help: "Total number of credential store reads that found a token",
		},
		[]string{"backend"}, // "redis", "badger", "memory"
	)

	// StoreMisses tracks credential reads that found nothing.
	StoreMisses = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "order_credential_store_misses_total",
			Help: "Total number of credential store reads that found no token",
		},
		[]string{"backend"},
	)

	// StoreErrors tracks credential store operation errors.
	StoreErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "order_credential_store_errors_total",
			Help: "Total number of credential store operation errors",
		},
		[]string{"backend", "operation"}, // operation: "get", "set"
	)
)
