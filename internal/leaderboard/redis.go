package leaderboard

import (
	"context"
	stderrors "errors"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/victornm/trivia/internal/domain"
)

// RedisStore keeps the leaderboard in a sorted set, member = user id, score = points.
type RedisStore struct {
	redis  redis.UniversalClient
	prefix string
}

func NewRedisStore(r redis.UniversalClient, prefix string) *RedisStore {
	return &RedisStore{
		redis:  r,
		prefix: prefix,
	}
}

func (s *RedisStore) GetRecord(ctx context.Context, userID string) (*domain.ScoreRecord, error) {
	sc, err := s.redis.ZScore(ctx, s.key(), userID).Result()
	if stderrors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get record: %w", err)
	}

	return &domain.ScoreRecord{UserID: userID, Score: int(sc)}, nil
}

// UpsertIncrement runs every ZINCRBY in one MULTI/EXEC block.
func (s *RedisStore) UpsertIncrement(ctx context.Context, users domain.UserSet) error {
	if len(users) == 0 {
		return nil
	}

	_, err := s.redis.TxPipelined(ctx, func(p redis.Pipeliner) error {
		for _, u := range users.Sorted() {
			p.ZIncrBy(ctx, s.key(), 1, u)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("upsert scores: %w", err)
	}

	return nil
}

func (s *RedisStore) ListAll(ctx context.Context) ([]domain.ScoreRecord, error) {
	res, err := s.redis.ZRevRangeWithScores(ctx, s.key(), 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("list records: %w", err)
	}

	records := make([]domain.ScoreRecord, 0, len(res))
	for _, z := range res {
		records = append(records, domain.ScoreRecord{
			UserID: z.Member.(string),
			Score:  int(z.Score),
		})
	}

	return records, nil
}

func (s *RedisStore) key() string {
	return fmt.Sprintf("%s:trivia:leaderboard", s.prefix)
}
