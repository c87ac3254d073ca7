package exposure

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"

	"github.com/masmi9/FourTenMarkets/internal/domain"
)

// incrIfExists só aplica o delta quando a chave já foi populada a partir do
// banco; caso contrário retorna nil e o chamador trata como cache miss.
var incrIfExists = redis.NewScript(`
if redis.call("EXISTS", KEYS[1]) == 1 then
	local v = redis.call("INCRBY", KEYS[1], ARGV[1])
	redis.call("PEXPIRE", KEYS[1], ARGV[2])
	return v
end
return false
`)

// RedisStore mantém valores monetários em centavos (INCRBY inteiro)
type RedisStore struct {
	Client       *redis.Client
	ConsensusTTL time.Duration // ~120s
	ExposureTTL  time.Duration // limita o drift em relação ao banco
	Now          func() time.Time
}

func NewRedisStore(c *redis.Client, consensusTTL, exposureTTL time.Duration) *RedisStore {
	return &RedisStore{
		Client:       c,
		ConsensusTTL: consensusTTL,
		ExposureTTL:  exposureTTL,
		Now:          time.Now,
	}
}

func consensusKey(selectionID string) string { return "consensus:" + selectionID }
func exposureKey(selectionID string) string  { return "exposure:" + selectionID }
func dailyKey(userID string, day time.Time) string {
	return "daily_stake:" + userID + ":" + dayKey(day)
}

// ConsensusOdds lê o JSON da odd de consenso; miss retorna ErrCacheMiss
func (r *RedisStore) ConsensusOdds(ctx context.Context, selectionID string) (domain.ConsensusOdds, bool, error) {
	var co domain.ConsensusOdds
	b, err := r.Client.Get(ctx, consensusKey(selectionID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return co, false, ErrCacheMiss
	}
	if err != nil {
		return co, false, err
	}
	if err := json.Unmarshal(b, &co); err != nil {
		return co, false, fmt.Errorf("decode consensus odds: %w", err)
	}
	return co, true, nil
}

// SetConsensusOdds grava a odd de consenso com o TTL configurado
func (r *RedisStore) SetConsensusOdds(ctx context.Context, co domain.ConsensusOdds) error {
	b, err := json.Marshal(co)
	if err != nil {
		return err
	}
	return r.Client.Set(ctx, consensusKey(co.SelectionID), b, r.ConsensusTTL).Err()
}

func (r *RedisStore) Exposure(ctx context.Context, selectionID string) (decimal.Decimal, error) {
	return r.getCents(ctx, exposureKey(selectionID))
}

func (r *RedisStore) DailyStake(ctx context.Context, userID string, day time.Time) (decimal.Decimal, error) {
	return r.getCents(ctx, dailyKey(userID, day))
}

// AddExposure incrementa atomicamente; ErrCacheMiss se a chave não existe
func (r *RedisStore) AddExposure(ctx context.Context, selectionID string, delta decimal.Decimal) (decimal.Decimal, error) {
	return r.incr(ctx, exposureKey(selectionID), delta, r.ExposureTTL)
}

func (r *RedisStore) AddDailyStake(ctx context.Context, userID string, day time.Time, amount decimal.Decimal) (decimal.Decimal, error) {
	return r.incr(ctx, dailyKey(userID, day), amount, untilDayRollover(r.Now()))
}

// SeedExposure popula a chave só se ela ainda não existir (SET NX)
func (r *RedisStore) SeedExposure(ctx context.Context, selectionID string, total decimal.Decimal) error {
	return r.Client.SetNX(ctx, exposureKey(selectionID), toCents(total), r.ExposureTTL).Err()
}

func (r *RedisStore) SeedDailyStake(ctx context.Context, userID string, day time.Time, total decimal.Decimal) error {
	return r.Client.SetNX(ctx, dailyKey(userID, day), toCents(total), untilDayRollover(r.Now())).Err()
}

// ResetExposure remove a chave; a próxima leitura repopula a partir do banco
func (r *RedisStore) ResetExposure(ctx context.Context, selectionID string) error {
	return r.Client.Del(ctx, exposureKey(selectionID)).Err()
}

func (r *RedisStore) DropDailyStake(ctx context.Context, userID string, day time.Time) error {
	return r.Client.Del(ctx, dailyKey(userID, day)).Err()
}

func (r *RedisStore) getCents(ctx context.Context, key string) (decimal.Decimal, error) {
	s, err := r.Client.Get(ctx, key).Result()
	if errors.Is(err, redis.Nil) {
		return decimal.Zero, ErrCacheMiss
	}
	if err != nil {
		return decimal.Zero, err
	}
	c, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return decimal.Zero, fmt.Errorf("parse cents %s: %w", key, err)
	}
	return fromCents(c), nil
}

func (r *RedisStore) incr(ctx context.Context, key string, delta decimal.Decimal, ttl time.Duration) (decimal.Decimal, error) {
	v, err := incrIfExists.Run(ctx, r.Client, []string{key}, toCents(delta), ttl.Milliseconds()).Int64()
	if errors.Is(err, redis.Nil) {
		return decimal.Zero, ErrCacheMiss
	}
	if err != nil {
		return decimal.Zero, err
	}
	return fromCents(v), nil
}
