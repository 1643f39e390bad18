package postgres

import (
	"context"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/rafaelspotto/helthgo/internal/adapter/metrics"
)

// MetricsTracer implements pgx.QueryTracer, recording duration and errors
// per SQL verb.
type MetricsTracer struct {
	metrics *metrics.StorageMetrics
}

var _ pgx.QueryTracer = (*MetricsTracer)(nil)

func NewMetricsTracer(m *metrics.StorageMetrics) *MetricsTracer {
	return &MetricsTracer{metrics: m}
}

type queryStartKey struct{}

type queryStart struct {
	at   time.Time
	verb string
}

func (t *MetricsTracer) TraceQueryStart(ctx context.Context, _ *pgx.Conn, data pgx.TraceQueryStartData) context.Context {
	return context.WithValue(ctx, queryStartKey{}, queryStart{at: time.Now(), verb: queryVerb(data.SQL)})
}

func (t *MetricsTracer) TraceQueryEnd(ctx context.Context, _ *pgx.Conn, data pgx.TraceQueryEndData) {
	qs, ok := ctx.Value(queryStartKey{}).(queryStart)
	if !ok {
		return
	}

	t.metrics.OperationDuration.WithLabelValues(qs.verb).Observe(time.Since(qs.at).Seconds())
	if data.Err != nil {
		t.metrics.OperationErrors.WithLabelValues(qs.verb).Inc()
	}
}

// queryVerb keeps metric label cardinality to a handful of values.
func queryVerb(sql string) string {
	fields := strings.Fields(sql)
	if len(fields) == 0 {
		return "unknown"
	}
	switch verb := strings.ToUpper(fields[0]); verb {
	case "SELECT", "INSERT", "UPDATE", "DELETE":
		return strings.ToLower(verb)
	default:
		return "other"
	}
}
