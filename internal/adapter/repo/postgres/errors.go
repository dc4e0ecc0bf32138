package postgres

import (
	"context"
	"errors"
	"fmt"
	"net"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/fairyhunter13/pgdeveloper/internal/domain"
)

// classify wraps err with the domain sentinel matching its cause. The driver
// error stays in the chain so callers can still reach *pgconn.PgError.
func classify(op string, err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("op=%s: %w: %w", op, sentinelFor(err), err)
}

func sentinelFor(err error) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return domain.ErrTimeout
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch {
		case pgErr.Code == pgerrcode.QueryCanceled:
			return domain.ErrTimeout
		case pgerrcode.IsIntegrityConstraintViolation(pgErr.Code):
			return domain.ErrConflict
		case pgerrcode.IsConnectionException(pgErr.Code),
			pgerrcode.IsInvalidAuthorizationSpecification(pgErr.Code),
			pgerrcode.IsOperatorIntervention(pgErr.Code),
			pgerrcode.IsInvalidCatalogName(pgErr.Code):
			return domain.ErrConnection
		default:
			return domain.ErrQuery
		}
	}
	var connErr *pgconn.ConnectError
	if errors.As(err, &connErr) {
		return domain.ErrConnection
	}
	var netErr net.Error
	if errors.As(err, &netErr) {
		if netErr.Timeout() {
			return domain.ErrTimeout
		}
		return domain.ErrConnection
	}
	if errors.Is(err, context.Canceled) {
		return domain.ErrTimeout
	}
	return domain.ErrQuery
}

// isConnFailure reports whether err should count against a profile's breaker.
func isConnFailure(err error) bool {
	return err != nil && errors.Is(err, domain.ErrConnection)
}
