package redis

import (
	"context"
	"encoding/json"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/rafaelspotto/helthgo/internal/adapter/metrics"
	"github.com/rafaelspotto/helthgo/internal/broadcast"
	"github.com/rafaelspotto/helthgo/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type captureBroadcaster struct {
	mu       sync.Mutex
	payloads [][]byte
}

func (c *captureBroadcaster) BroadcastRaw(_ context.Context, payload []byte) broadcast.Result {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.payloads = append(c.payloads, payload)
	return broadcast.Result{Recipients: 1, Delivered: 1}
}

func (c *captureBroadcaster) received() [][]byte {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([][]byte(nil), c.payloads...)
}

func TestRelay_HandleSkipsOwnAndMalformed(t *testing.T) {
	local := &captureBroadcaster{}
	m := metrics.NewRelayMetrics(prometheus.NewRegistry())
	r := NewRelay(nil, "instance-a", local, m)

	r.handle(context.Background(), `{"origin":"instance-a","record":{"id":1}}`)
	r.handle(context.Background(), `not json`)
	r.handle(context.Background(), `{"origin":"instance-b"}`)
	r.handle(context.Background(), `{"origin":"instance-b","record":{"id":2}}`)

	got := local.received()
	require.Len(t, got, 1)
	assert.JSONEq(t, `{"id":2}`, string(got[0]))

	assert.Equal(t, 1.0, testutil.ToFloat64(m.Received.WithLabelValues("own")))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.Received.WithLabelValues("malformed")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Received.WithLabelValues("relayed")))
}

func TestRelay_DeliversAcrossInstances(t *testing.T) {
	client := setupTestClient(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	localA := &captureBroadcaster{}
	localB := &captureBroadcaster{}
	relayA := NewRelay(client, "instance-a", localA, nil)
	relayB := NewRelay(client, "instance-b", localB, nil)

	go relayA.Run(ctx)
	go relayB.Run(ctx)

	require.Eventually(t, func() bool {
		counts, err := client.PubSubNumSub(ctx, DefaultChannel).Result()
		return err == nil && counts[DefaultChannel] == 2
	}, 5*time.Second, 10*time.Millisecond)

	rec := domain.VitalSignRecord{
		ID:               7,
		PatientID:        "PAC003",
		Status:           domain.StatusAlert,
		ServerReceivedAt: time.Date(2025, 3, 14, 10, 0, 0, 0, time.UTC),
	}
	require.NoError(t, relayA.Publish(ctx, rec))

	require.Eventually(t, func() bool { return len(localB.received()) == 1 }, 5*time.Second, 10*time.Millisecond)

	var got domain.VitalSignRecord
	require.NoError(t, json.Unmarshal(localB.received()[0], &got))
	assert.Equal(t, rec, got)

	time.Sleep(50 * time.Millisecond)
	assert.Empty(t, localA.received(), "origin instance must not rebroadcast its own record")
}
