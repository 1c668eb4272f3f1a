package usecase

import "time"

const (
	// DefaultTransactionTimeout is the maximum duration for a database transaction
	// This prevents long-running transactions from blocking tables
	DefaultTransactionTimeout = 10 * time.Second

	// RatesCacheKey is the cache key of the current rate snapshot.
	RatesCacheKey = "lendlog-exchange-rates"

	// DefaultRatesTTL is how long a fetched rate snapshot stays fresh.
	DefaultRatesTTL = 24 * time.Hour

	// MaxImportBatch caps the number of entries in one bulk import.
	MaxImportBatch = 5000
)
