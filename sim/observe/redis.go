package observe

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	redis "github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"github.com/fleetsim/fleetsim/sim"
)

// RedisBroker implements Broker over Redis Pub/Sub, so progress can be
// followed from other processes. Reports are JSON on channel "simulation:<id>".
type RedisBroker struct {
	rdb *redis.Client

	mu   sync.Mutex
	subs map[chan sim.Progress]*redis.PubSub
}

func NewRedisBroker(rdb *redis.Client) *RedisBroker {
	return &RedisBroker{rdb: rdb, subs: map[chan sim.Progress]*redis.PubSub{}}
}

// NewRedisBrokerFromURL connects using a redis:// URL.
func NewRedisBrokerFromURL(url string) (*RedisBroker, error) {
	opt, err := redis.ParseURL(url)
	if err != nil {
		return nil, err
	}
	return NewRedisBroker(redis.NewClient(opt)), nil
}

// Ping checks the connection.
func (b *RedisBroker) Ping(ctx context.Context) error {
	return b.rdb.Ping(ctx).Err()
}

// Subscribe returns a channel fed from Redis. The channel is closed after a
// terminal report or once Unsubscribe tears the subscription down.
func (b *RedisBroker) Subscribe(simulationID string) chan sim.Progress {
	ch := make(chan sim.Progress, subscriberBuffer)
	ctx := context.Background()
	ps := b.rdb.Subscribe(ctx, b.chanName(simulationID))
	// initial consume to ensure subscription
	if _, err := ps.Receive(ctx); err != nil {
		logrus.Warnf("redis subscribe %s: %v", simulationID, err)
	}
	b.mu.Lock()
	b.subs[ch] = ps
	b.mu.Unlock()

	go func() {
		defer close(ch)
		defer b.forget(ch)
		for msg := range ps.Channel() {
			var p sim.Progress
			if err := json.Unmarshal([]byte(msg.Payload), &p); err != nil {
				logrus.Debugf("redis progress %s: %v", simulationID, err)
				continue
			}
			select {
			case ch <- p:
			default:
			}
			if p.Kind.Terminal() {
				return
			}
		}
	}()
	return ch
}

func (b *RedisBroker) forget(ch chan sim.Progress) {
	b.mu.Lock()
	ps := b.subs[ch]
	delete(b.subs, ch)
	b.mu.Unlock()
	if ps != nil {
		_ = ps.Close()
	}
}

// Unsubscribe closes the Redis subscription; the forwarding goroutine then closes ch.
func (b *RedisBroker) Unsubscribe(_ string, ch chan sim.Progress) {
	b.mu.Lock()
	ps := b.subs[ch]
	b.mu.Unlock()
	if ps != nil {
		_ = ps.Close()
	}
}

func (b *RedisBroker) Publish(simulationID string, p sim.Progress) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	data, err := json.Marshal(p)
	if err != nil {
		logrus.Warnf("redis progress %s: %v", simulationID, err)
		return
	}
	if err := b.rdb.Publish(ctx, b.chanName(simulationID), data).Err(); err != nil {
		logrus.Warnf("redis publish %s: %v", simulationID, err)
	}
}

func (b *RedisBroker) Close() error { return b.rdb.Close() }

func (b *RedisBroker) chanName(simulationID string) string { return "simulation:" + simulationID }
