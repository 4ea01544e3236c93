package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"solarb/internal/application/port"
	"solarb/internal/domain/model"

	"github.com/redis/go-redis/v9"
)

// Repo mirrors latest quotes into a hash and fans reported
// opportunities out through a stream plus pubsub, so outside monitors
// can tail them without touching the process.
type Repo struct {
	rdb       *redis.Client
	prefix    string
	ttl       time.Duration
	keyLatest string // prefix + ":latest"
	oppStream string
	oppChan   string
}

func New(rdb *redis.Client, prefix string, ttl time.Duration) *Repo {
	return &Repo{
		rdb:       rdb,
		prefix:    prefix,
		ttl:       ttl,
		keyLatest: prefix + ":latest",
		oppStream: prefix + ":opps",
		oppChan:   prefix + ":opps:pub",
	}
}

func (r *Repo) UpsertLatestQuote(ctx context.Context, q *model.Quote) error {
	if q == nil || q.Price <= 0 {
		return nil
	}
	b, _ := json.Marshal(q)

	// Hash: field = "raydium|<base>/<quote>" -> json
	field := fmt.Sprintf("%s|%s", q.Source, q.Pair.Key())
	pipe := r.rdb.Pipeline()
	pipe.HSet(ctx, r.keyLatest, field, string(b))
	if r.ttl > 0 {
		pipe.Expire(ctx, r.keyLatest, r.ttl)
	}
	_, err := pipe.Exec(ctx)
	return err
}

func (r *Repo) SaveOpportunity(ctx context.Context, o *model.Opportunity) error {
	if o == nil {
		return nil
	}
	// 1) Stream: XADD <stream> * id pair buy sell net confidence
	_, err := r.rdb.XAdd(ctx, &redis.XAddArgs{
		Stream: r.oppStream,
		Values: map[string]any{
			"id":         o.ID,
			"pair":       o.Pair.Key(),
			"buy":        o.BuySource,
			"sell":       o.SellSource,
			"net":        o.NetProfit,
			"net_pct":    o.NetProfitPercent,
			"confidence": o.Confidence,
			"ts_ms":      o.Ts,
		},
	}).Result()
	if err != nil {
		return err
	}

	// 2) PubSub: PUBLISH <channel> json
	b, _ := json.Marshal(o)
	return r.rdb.Publish(ctx, r.oppChan, string(b)).Err()
}

func (r *Repo) RecentOpportunities(ctx context.Context, limit int) ([]*model.Opportunity, error) {
	// consumers tail the stream; no read-back here
	return nil, nil
}

func (r *Repo) Close() error { return r.rdb.Close() }

var _ port.Repository = (*Repo)(nil)
