package postgres

import (
	"context"
	"database/sql/driver"
	"encoding/hex"
	"fmt"
	"log/slog"
	"math"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/fairyhunter13/pgdeveloper/internal/adapter/observability"
	"github.com/fairyhunter13/pgdeveloper/internal/domain"
	obsctx "github.com/fairyhunter13/pgdeveloper/internal/observability"
)

const (
	msgQueryOK    = "Query executed successfully."
	msgStatementN = "Statement executed. Rows affected: %d"
)

// Executor runs console SQL against a profile's pool.
type Executor struct {
	ds      *Manager
	maxRows int
	timeout time.Duration
}

// NewExecutor constructs an Executor. maxRows <= 0 disables the row cap and
// timeout <= 0 disables the per-call deadline.
func NewExecutor(ds *Manager, maxRows int, timeout time.Duration) *Executor {
	return &Executor{ds: ds, maxRows: maxRows, timeout: timeout}
}

// Execute runs text on the named profile ("" for active). The text goes to
// the server as one simple query so scripts with several statements and DDL
// run as typed. The shape of the result follows the first statement.
func (e *Executor) Execute(ctx context.Context, profile, text string) (domain.QueryResult, error) {
	if strings.TrimSpace(text) == "" {
		return domain.QueryResult{}, fmt.Errorf("op=query.execute: %w: empty sql", domain.ErrInvalidArgument)
	}
	tracer := otel.Tracer("repo.executor")
	ctx, span := tracer.Start(ctx, "executor.Execute")
	defer span.End()

	if e.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.timeout)
		defer cancel()
	}

	start := time.Now()
	var res domain.QueryResult
	err := e.ds.Do(ctx, profile, func(ctx context.Context, pool PgxPool) error {
		var runErr error
		res, runErr = e.run(ctx, pool, text)
		return runErr
	})
	dur := time.Since(start)
	kind := "update"
	if res.IsResultSet {
		kind = "query"
	}
	observability.ObserveQuery(kind, err == nil, dur)
	span.SetAttributes(attribute.String("db.result_kind", kind), attribute.Bool("db.truncated", res.Truncated))
	if err != nil {
		span.RecordError(err)
		obsctx.LoggerFromContext(ctx).Debug("statement failed", slog.Any("error", err), slog.Duration("duration", dur))
		return domain.QueryResult{}, err
	}
	res.Duration = dur
	return res, nil
}

// connAcquirer is implemented by *pgxpool.Pool.
type connAcquirer interface {
	Acquire(ctx context.Context) (*pgxpool.Conn, error)
}

// run sends text as one simple query on the wire connection. pgx's
// simple-protocol path would scan the text for $N placeholders, which
// rejects dollar-quoted bodies and PREPARE statements, so it is bypassed.
// Every statement runs; later results are read only for their errors.
func (e *Executor) run(ctx context.Context, pool PgxPool, text string) (domain.QueryResult, error) {
	acq, ok := pool.(connAcquirer)
	if !ok {
		return domain.QueryResult{}, fmt.Errorf("op=query.execute: %w: pool cannot run scripts", domain.ErrInternal)
	}
	conn, err := acq.Acquire(ctx)
	if err != nil {
		return domain.QueryResult{}, classify("query.execute", err)
	}
	defer conn.Release()

	typeMap := conn.Conn().TypeMap()
	mrr := conn.Conn().PgConn().Exec(ctx, text)
	var (
		res   domain.QueryResult
		first = true
	)
	for mrr.NextResult() {
		rr := mrr.ResultReader()
		if !first {
			_, _ = rr.Close()
			continue
		}
		first = false
		if res, err = e.readResult(rr, typeMap); err != nil {
			_ = mrr.Close()
			return domain.QueryResult{}, classify("query.execute", err)
		}
	}
	if err := mrr.Close(); err != nil {
		return domain.QueryResult{}, classify("query.execute", err)
	}
	if first {
		// comments or blank statements only
		return domain.QueryResult{Message: fmt.Sprintf(msgStatementN, 0)}, nil
	}
	return res, nil
}

func (e *Executor) readResult(rr *pgconn.ResultReader, typeMap *pgtype.Map) (domain.QueryResult, error) {
	fields := rr.FieldDescriptions()
	if len(fields) == 0 {
		tag, err := rr.Close()
		if err != nil {
			return domain.QueryResult{}, err
		}
		n := tag.RowsAffected()
		return domain.QueryResult{UpdateCount: n, Message: fmt.Sprintf(msgStatementN, n)}, nil
	}

	res := domain.QueryResult{IsResultSet: true, Message: msgQueryOK}
	res.Columns = make([]string, len(fields))
	for i, f := range fields {
		res.Columns[i] = f.Name
	}
	res.Rows = [][]any{}
	for rr.NextRow() {
		if e.maxRows > 0 && len(res.Rows) >= e.maxRows {
			// the rest of the result is discarded by Close
			res.Truncated = true
			break
		}
		row, err := decodeRow(typeMap, fields, rr.Values())
		if err != nil {
			_, _ = rr.Close()
			return domain.QueryResult{}, err
		}
		res.Rows = append(res.Rows, row)
	}
	if _, err := rr.Close(); err != nil {
		return domain.QueryResult{}, err
	}
	return res, nil
}

// decodeRow decodes one row of a simple query. Types without a registered
// codec keep their text form.
func decodeRow(typeMap *pgtype.Map, fields []pgconn.FieldDescription, raw [][]byte) ([]any, error) {
	out := make([]any, len(fields))
	for i, fd := range fields {
		if raw[i] == nil {
			continue
		}
		dt, ok := typeMap.TypeForOID(fd.DataTypeOID)
		if !ok {
			if fd.Format == pgtype.TextFormatCode {
				out[i] = string(raw[i])
			} else {
				out[i] = `\x` + hex.EncodeToString(raw[i])
			}
			continue
		}
		v, err := dt.Codec.DecodeValue(typeMap, fd.DataTypeOID, fd.Format, raw[i])
		if err != nil {
			return nil, fmt.Errorf("column %s: %w", fd.Name, err)
		}
		out[i] = displayValue(v)
	}
	return out, nil
}

// displayValue turns driver values without a readable JSON form into text.
// Non-finite floats become "NaN", "Infinity" or "-Infinity" as Postgres
// prints them. Arrays and composite values are converted element-wise.
func displayValue(v any) any {
	switch x := v.(type) {
	case nil, string, bool, int16, int32, int64, time.Time:
		return v
	case float32:
		return floatValue(float64(x), v)
	case float64:
		return floatValue(x, v)
	case [16]byte:
		return uuid.UUID(x).String()
	case []byte:
		return `\x` + hex.EncodeToString(x)
	case []any:
		out := make([]any, len(x))
		for i, el := range x {
			out[i] = displayValue(el)
		}
		return out
	case map[string]any:
		out := make(map[string]any, len(x))
		for k, el := range x {
			out[k] = displayValue(el)
		}
		return out
	case driver.Valuer:
		dv, err := x.Value()
		if err != nil {
			return fmt.Sprint(v)
		}
		return displayValue(dv)
	case fmt.Stringer:
		return x.String()
	default:
		return v
	}
}

func floatValue(f float64, orig any) any {
	switch {
	case math.IsNaN(f):
		return "NaN"
	case math.IsInf(f, 1):
		return "Infinity"
	case math.IsInf(f, -1):
		return "-Infinity"
	default:
		return orig
	}
}
