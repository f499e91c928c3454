package obs

import (
	"context"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// PGXTracer is a pgx.QueryTracer opening one client span per statement.
// Statements slower than SlowQuery are also logged on the request logger.
type PGXTracer struct {
	SlowQuery time.Duration
}

type queryStart struct {
	at  time.Time
	sql string
}

type queryStartKey struct{}

func (t PGXTracer) TraceQueryStart(ctx context.Context, _ *pgx.Conn, data pgx.TraceQueryStartData) context.Context {
	sql := strings.TrimSpace(data.SQL)
	verb, _, _ := strings.Cut(sql, " ")
	verb = strings.ToUpper(verb)
	if verb == "" {
		verb = "QUERY"
	}
	ctx, _ = otel.Tracer("github.com/noah-isme/toko-billing/store/postgres").Start(ctx, "pg "+verb,
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(
			attribute.String("db.system", "postgresql"),
			attribute.String("db.operation", verb),
			attribute.String("db.statement", clip(sql, 300)),
		))
	return context.WithValue(ctx, queryStartKey{}, queryStart{at: time.Now(), sql: sql})
}

func (t PGXTracer) TraceQueryEnd(ctx context.Context, _ *pgx.Conn, data pgx.TraceQueryEndData) {
	span := trace.SpanFromContext(ctx)
	defer span.End()
	if data.Err != nil {
		span.RecordError(data.Err)
		span.SetStatus(codes.Error, data.Err.Error())
	} else {
		span.SetAttributes(attribute.Int64("db.rows_affected", data.CommandTag.RowsAffected()))
	}

	start, ok := ctx.Value(queryStartKey{}).(queryStart)
	if !ok || t.SlowQuery <= 0 {
		return
	}
	if took := time.Since(start.at); took >= t.SlowQuery {
		zerolog.Ctx(ctx).Warn().Dur("took", took).Str("sql", clip(start.sql, 120)).Msg("slow_query")
	}
}

func clip(s string, n int) string {
	if len(s) > n {
		return s[:n] + "..."
	}
	return s
}
