package postgres

import (
	"context"
	"errors"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/rafaelspotto/helthgo/internal/adapter/metrics"
	"github.com/stretchr/testify/assert"
)

func TestQueryVerb(t *testing.T) {
	tests := map[string]string{
		"SELECT 1":                          "select",
		"\n\tinsert into vital_signs ...":   "insert",
		"DELETE FROM vital_signs":           "delete",
		"SELECT pg_advisory_lock($1)":       "select",
		"WITH x AS (SELECT 1) SELECT * ...": "other",
		"":                                  "unknown",
	}
	for sql, want := range tests {
		assert.Equal(t, want, queryVerb(sql), sql)
	}
}

func TestMetricsTracer_RecordsErrors(t *testing.T) {
	m := metrics.NewStorageMetrics(prometheus.NewRegistry())
	tracer := NewMetricsTracer(m)

	ctx := tracer.TraceQueryStart(context.Background(), nil, pgx.TraceQueryStartData{SQL: "INSERT INTO vital_signs"})
	tracer.TraceQueryEnd(ctx, nil, pgx.TraceQueryEndData{Err: errors.New("boom")})

	ctx = tracer.TraceQueryStart(context.Background(), nil, pgx.TraceQueryStartData{SQL: "SELECT 1"})
	tracer.TraceQueryEnd(ctx, nil, pgx.TraceQueryEndData{})

	assert.Equal(t, 1.0, testutil.ToFloat64(m.OperationErrors.WithLabelValues("insert")))
	assert.Equal(t, 0.0, testutil.ToFloat64(m.OperationErrors.WithLabelValues("select")))
	assert.Equal(t, 2, testutil.CollectAndCount(m.OperationDuration))
}
