package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"scam-quiz-bot/internal/models"

	"github.com/redis/go-redis/v9"
)

const redisOpTimeout = 3 * time.Second

// RedisStorage is the production backend. Scores are mutated with INCRBY;
// the clamp re-writes zero when the result goes negative, which leaves a
// narrow race between the two commands (acceptable for a quiz scoreboard,
// same window the original deployment had).
type RedisStorage struct {
	client *redis.Client
}

type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

func NewRedisStorage(cfg RedisConfig) (*RedisStorage, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), redisOpTimeout)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	return &RedisStorage{client: client}, nil
}

// NewRedisStorageWithClient is test-only wiring.
func NewRedisStorageWithClient(client *redis.Client) *RedisStorage {
	return &RedisStorage{client: client}
}

func (s *RedisStorage) GetConversation(ctx context.Context, key models.ConversationKey) (*models.ConversationRecord, error) {
	ctx, cancel := context.WithTimeout(ctx, redisOpTimeout)
	defer cancel()

	raw, err := s.client.Get(ctx, chatKeyPrefix+string(key)).Result()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read conversation: %w", err)
	}

	var rec models.ConversationRecord
	if err := json.Unmarshal([]byte(raw), &rec); err != nil {
		return nil, fmt.Errorf("failed to decode conversation record: %w", err)
	}
	return &rec, nil
}

func (s *RedisStorage) PutConversation(ctx context.Context, key models.ConversationKey, rec *models.ConversationRecord) error {
	ctx, cancel := context.WithTimeout(ctx, redisOpTimeout)
	defer cancel()

	raw, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("failed to encode conversation record: %w", err)
	}
	if err := s.client.Set(ctx, chatKeyPrefix+string(key), raw, 0).Err(); err != nil {
		return fmt.Errorf("failed to write conversation: %w", err)
	}
	return nil
}

func (s *RedisStorage) GetScore(ctx context.Context, userID string) (int, error) {
	ctx, cancel := context.WithTimeout(ctx, redisOpTimeout)
	defer cancel()

	raw, err := s.client.Get(ctx, scoreKeyPrefix+userID).Result()
	if errors.Is(err, redis.Nil) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("failed to read score: %w", err)
	}

	score, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("failed to parse score %q: %w", raw, err)
	}
	return score, nil
}

func (s *RedisStorage) AddScore(ctx context.Context, userID string, delta int) (int, error) {
	ctx, cancel := context.WithTimeout(ctx, redisOpTimeout)
	defer cancel()

	key := scoreKeyPrefix + userID
	score, err := s.client.IncrBy(ctx, key, int64(delta)).Result()
	if err != nil {
		return 0, fmt.Errorf("failed to update score: %w", err)
	}
	if score < 0 {
		if err := s.client.Set(ctx, key, 0, 0).Err(); err != nil {
			return 0, fmt.Errorf("failed to clamp score: %w", err)
		}
		return 0, nil
	}
	return int(score), nil
}

func (s *RedisStorage) ListScores(ctx context.Context) ([]models.ScoreRecord, error) {
	ctx, cancel := context.WithTimeout(ctx, redisOpTimeout)
	defer cancel()

	var records []models.ScoreRecord
	iter := s.client.Scan(ctx, 0, scoreKeyPrefix+"*", 0).Iterator()
	for iter.Next(ctx) {
		key := iter.Val()
		raw, err := s.client.Get(ctx, key).Result()
		if errors.Is(err, redis.Nil) {
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read score %s: %w", key, err)
		}
		score, err := strconv.Atoi(raw)
		if err != nil {
			continue
		}
		records = append(records, models.ScoreRecord{
			UserID: key[len(scoreKeyPrefix):],
			Score:  score,
		})
	}
	if err := iter.Err(); err != nil {
		return nil, fmt.Errorf("failed to scan scores: %w", err)
	}
	return records, nil
}

func (s *RedisStorage) Close() error {
	return s.client.Close()
}
