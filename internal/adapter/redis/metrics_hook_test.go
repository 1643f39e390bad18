package redis

import (
	"context"
	"errors"
	"net"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/rafaelspotto/helthgo/internal/adapter/metrics"
	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
)

func TestMetricsHook_Process(t *testing.T) {
	m := metrics.NewRelayMetrics(prometheus.NewRegistry())
	hook := NewMetricsHook(m)

	ok := hook.ProcessHook(func(context.Context, goredis.Cmder) error { return nil })
	miss := hook.ProcessHook(func(context.Context, goredis.Cmder) error { return goredis.Nil })
	fail := hook.ProcessHook(func(context.Context, goredis.Cmder) error { return errors.New("READONLY") })

	ctx := context.Background()
	_ = ok(ctx, goredis.NewIntCmd(ctx, "publish", "healthgo:vitals", "{}"))
	_ = miss(ctx, goredis.NewStringCmd(ctx, "get", "missing"))
	_ = fail(ctx, goredis.NewIntCmd(ctx, "publish", "healthgo:vitals", "{}"))

	assert.InDelta(t, 1, testutil.ToFloat64(m.Commands.WithLabelValues("publish", "success")), 0)
	assert.InDelta(t, 1, testutil.ToFloat64(m.Commands.WithLabelValues("get", "success")), 0)
	assert.InDelta(t, 1, testutil.ToFloat64(m.Commands.WithLabelValues("publish", "error")), 0)
}

func TestMetricsHook_Dial(t *testing.T) {
	m := metrics.NewRelayMetrics(prometheus.NewRegistry())
	dial := NewMetricsHook(m).DialHook(func(context.Context, string, string) (net.Conn, error) {
		return nil, errors.New("connection refused")
	})

	_, err := dial(context.Background(), "tcp", "127.0.0.1:6379")
	assert.Error(t, err)
	assert.InDelta(t, 1, testutil.ToFloat64(m.DialErrors), 0)
}
