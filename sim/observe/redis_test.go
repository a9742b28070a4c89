package observe

import (
	"context"
	"testing"

	"github.com/alicebob/miniredis/v2"
	redis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fleetsim/fleetsim/sim"
)

func newTestRedisBroker(t *testing.T) (*RedisBroker, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	b := NewRedisBroker(redis.NewClient(&redis.Options{Addr: mr.Addr()}))
	t.Cleanup(func() { _ = b.Close() })
	return b, mr
}

func TestRedisBroker_StreamsUntilTerminalReport(t *testing.T) {
	// GIVEN a subscriber on one simulation channel
	b, _ := newTestRedisBroker(t)
	ch := b.Subscribe("abc")

	// WHEN a step and a terminal report are published
	b.Publish("abc", sim.Progress{Kind: sim.ProgressStep, Step: 3, OpenOrders: 2})
	b.Publish("abc", sim.Progress{Kind: sim.ProgressFinished, Step: 4})

	// THEN both arrive in order and the stream ends
	first, ok := receive(t, ch)
	require.True(t, ok)
	assert.Equal(t, 3, first.Step)
	assert.Equal(t, 2, first.OpenOrders)
	last, ok := receive(t, ch)
	require.True(t, ok)
	assert.Equal(t, sim.ProgressFinished, last.Kind)
	_, ok = receive(t, ch)
	assert.False(t, ok)
}

func TestRedisBroker_Unsubscribe_ClosesChannel(t *testing.T) {
	b, _ := newTestRedisBroker(t)
	ch := b.Subscribe("abc")

	b.Unsubscribe("abc", ch)

	_, ok := receive(t, ch)
	assert.False(t, ok)
}

func TestRedisBroker_PublishesOnSimulationChannel(t *testing.T) {
	b, mr := newTestRedisBroker(t)
	ch := b.Subscribe("xyz")
	defer b.Unsubscribe("xyz", ch)

	assert.Contains(t, mr.PubSubChannels(""), "simulation:xyz")
}

func TestNewRedisBrokerFromURL(t *testing.T) {
	mr := miniredis.RunT(t)

	b, err := NewRedisBrokerFromURL("redis://" + mr.Addr())
	require.NoError(t, err)
	defer func() { _ = b.Close() }()

	assert.NoError(t, b.Ping(context.Background()))

	_, err = NewRedisBrokerFromURL("://bad")
	assert.Error(t, err)
}
