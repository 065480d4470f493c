package sqlstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/avast/retry-go"
	"github.com/shaibs3/geoadmin/internal/query"
	"github.com/shaibs3/geoadmin/internal/store"
	"github.com/sony/gobreaker"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.uber.org/zap"
)

// Store implements store.Provider over database/sql. The same statements
// serve Postgres and SQLite; only the placeholder format differs.
type Store struct {
	db     *sql.DB
	format query.PlaceholderFormat
	logger *zap.Logger
	cb     *gobreaker.CircuitBreaker

	ops    metric.Int64Counter
	errs   metric.Int64Counter
	timing metric.Float64Histogram
}

var _ store.Provider = (*Store)(nil)

func newStore(db *sql.DB, format query.PlaceholderFormat, name string, logger *zap.Logger, meter metric.Meter) (*Store, error) {
	ops, err := meter.Int64Counter("store_operations_total",
		metric.WithDescription("Number of store operations"))
	if err != nil {
		return nil, fmt.Errorf("failed to create store operations counter: %w", err)
	}
	errs, err := meter.Int64Counter("store_operation_errors_total",
		metric.WithDescription("Number of failed store operations"))
	if err != nil {
		return nil, fmt.Errorf("failed to create store errors counter: %w", err)
	}
	timing, err := meter.Float64Histogram("store_operation_duration_seconds",
		metric.WithDescription("Duration of store operations"),
		metric.WithUnit("s"))
	if err != nil {
		return nil, fmt.Errorf("failed to create store duration histogram: %w", err)
	}

	cb := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        name,
		MaxRequests: 5,
		Interval:    60 * time.Second,
		Timeout:     10 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures > 3
		},
		IsSuccessful: func(err error) bool {
			return err == nil || store.IsDomain(err) || errors.Is(err, context.Canceled)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn("circuit breaker state changed",
				zap.String("breaker", name),
				zap.String("from", from.String()),
				zap.String("to", to.String()))
		},
	})

	return &Store{
		db:     db,
		format: format,
		logger: logger,
		cb:     cb,
		ops:    ops,
		errs:   errs,
		timing: timing,
	}, nil
}

// Ping verifies the connection
func (s *Store) Ping(ctx context.Context) error {
	return s.read(ctx, "ping", func() error {
		return s.db.PingContext(ctx)
	})
}

// Close closes the connection pool
func (s *Store) Close() error {
	return s.db.Close()
}

// read runs a read-only operation through the breaker, retrying transient
// failures with backoff
func (s *Store) read(ctx context.Context, op string, fn func() error) error {
	return s.observe(ctx, op, func() error {
		return retry.Do(
			func() error { return s.guard(fn) },
			retry.Context(ctx),
			retry.Attempts(3),
			retry.Delay(50*time.Millisecond),
			retry.DelayType(retry.BackOffDelay),
			retry.LastErrorOnly(true),
			retry.RetryIf(isTransient),
			retry.OnRetry(func(n uint, err error) {
				s.logger.Warn("retrying store read", zap.String("op", op), zap.Uint("attempt", n+1), zap.Error(err))
			}),
		)
	})
}

// write runs a mutating operation through the breaker exactly once
func (s *Store) write(ctx context.Context, op string, fn func() error) error {
	return s.observe(ctx, op, func() error {
		return s.guard(fn)
	})
}

func (s *Store) guard(fn func() error) error {
	_, err := s.cb.Execute(func() (interface{}, error) {
		return nil, classify(fn())
	})
	return err
}

func (s *Store) observe(ctx context.Context, op string, fn func() error) error {
	start := time.Now()
	err := fn()
	attrs := metric.WithAttributes(attribute.String("operation", op))
	s.ops.Add(ctx, 1, attrs)
	s.timing.Record(ctx, time.Since(start).Seconds(), attrs)

	if err == nil || store.IsDomain(err) {
		return err
	}
	s.errs.Add(ctx, 1, attrs)
	s.logger.Error("store operation failed", zap.String("op", op), zap.Error(err))
	return &store.QueryError{Op: op, Err: err}
}

// tx runs fn inside a transaction, rolling back on any error
func (s *Store) tx(ctx context.Context, fn func(tx *sql.Tx) error) (err error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		if err != nil {
			if rbErr := tx.Rollback(); rbErr != nil && !errors.Is(rbErr, sql.ErrTxDone) {
				s.logger.Error("rollback failed", zap.Error(rbErr))
			}
		}
	}()

	if err = fn(tx); err != nil {
		return err
	}
	if err = tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// rebind adapts a fixed statement written with ? to the store's format
func (s *Store) rebind(sqlText string) string {
	return query.Rebind(s.format, sqlText)
}

func isTransient(err error) bool {
	return !store.IsDomain(err) &&
		!errors.Is(err, context.Canceled) &&
		!errors.Is(err, context.DeadlineExceeded) &&
		!errors.Is(err, gobreaker.ErrOpenState) &&
		!errors.Is(err, gobreaker.ErrTooManyRequests)
}

func scanStrings(rows *sql.Rows) ([]string, error) {
	defer rows.Close()
	out := []string{}
	for rows.Next() {
		var s string
		if err := rows.Scan(&s); err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}
