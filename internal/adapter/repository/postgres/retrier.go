package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/rs/zerolog"

	"github.com/iho/lendlog/internal/infrastructure/metrics"
)

// SQLSTATE codes a concurrent entry or ledger write can hit.
const (
	pgErrDeadlock             = "40P01"
	pgErrSerializationFailure = "40001"
	pgErrLockNotAvailable     = "55P03"
)

var retryableCodes = map[string]string{
	pgErrDeadlock:             "deadlock",
	pgErrSerializationFailure: "serialization_failure",
	pgErrLockNotAvailable:     "lock_not_available",
}

// RetryPolicy bounds how long a write transaction is retried.
type RetryPolicy struct {
	MaxRetries      uint64
	InitialInterval time.Duration
	MaxInterval     time.Duration
	MaxElapsedTime  time.Duration
}

// DefaultRetryPolicy suits short ledger transactions.
var DefaultRetryPolicy = RetryPolicy{
	MaxRetries:      3,
	InitialInterval: 50 * time.Millisecond,
	MaxInterval:     time.Second,
	MaxElapsedTime:  10 * time.Second,
}

// Retrier implements usecase.Retrier. Only conflicts and connection
// failures that pgx marks safe to retry are re-run.
type Retrier struct {
	policy  RetryPolicy
	metrics *metrics.Metrics
	logger  zerolog.Logger
}

// NewRetrier creates a Retrier with DefaultRetryPolicy. m may be nil.
func NewRetrier(logger zerolog.Logger, m *metrics.Metrics) *Retrier {
	return &Retrier{policy: DefaultRetryPolicy, metrics: m, logger: logger}
}

// WithPolicy returns a copy of r using p.
func (r *Retrier) WithPolicy(p RetryPolicy) *Retrier {
	cp := *r
	cp.policy = p
	return &cp
}

// Retry runs operation, re-running it with exponential backoff while it
// fails with a retryable error.
func (r *Retrier) Retry(ctx context.Context, operation func() error) error {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = r.policy.InitialInterval
	b.MaxInterval = r.policy.MaxInterval
	b.MaxElapsedTime = r.policy.MaxElapsedTime

	attempt := 0
	return backoff.Retry(func() error {
		attempt++
		err := operation()
		if err == nil {
			return nil
		}

		reason, ok := retryReason(err)
		if r.metrics != nil {
			r.metrics.DBErrors.WithLabelValues(reason).Inc()
		}
		if !ok {
			return backoff.Permanent(err)
		}

		r.logger.Warn().
			Err(err).
			Str("reason", reason).
			Int("attempt", attempt).
			Msg("transient database error")
		return err
	}, backoff.WithContext(backoff.WithMaxRetries(b, r.policy.MaxRetries), ctx))
}

// retryReason classifies err for logging and metrics and reports whether
// it is worth another attempt.
func retryReason(err error) (string, bool) {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		if reason, ok := retryableCodes[pgErr.Code]; ok {
			return reason, true
		}
		return "sqlstate_" + pgErr.Code, false
	}
	if pgconn.SafeToRetry(err) {
		return "connection", true
	}
	return "other", false
}
