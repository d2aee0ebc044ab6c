package storage

import (
	"context"
	"sync"

	"scam-quiz-bot/internal/models"
)

// MemoryStorage keeps all records in process. Used for tests and local runs
// without a Redis or Postgres backend.
type MemoryStorage struct {
	mu            sync.RWMutex
	conversations map[models.ConversationKey]models.ConversationRecord
	scores        map[string]int
}

func NewMemoryStorage() *MemoryStorage {
	return &MemoryStorage{
		conversations: make(map[models.ConversationKey]models.ConversationRecord),
		scores:        make(map[string]int),
	}
}

func (s *MemoryStorage) GetConversation(_ context.Context, key models.ConversationKey) (*models.ConversationRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if rec, exists := s.conversations[key]; exists {
		copy := rec
		return &copy, nil
	}
	return nil, nil
}

func (s *MemoryStorage) PutConversation(_ context.Context, key models.ConversationKey, rec *models.ConversationRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.conversations[key] = *rec
	return nil
}

func (s *MemoryStorage) GetScore(_ context.Context, userID string) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.scores[userID], nil
}

func (s *MemoryStorage) AddScore(_ context.Context, userID string, delta int) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	score := clampScore(s.scores[userID] + delta)
	s.scores[userID] = score
	return score, nil
}

func (s *MemoryStorage) ListScores(_ context.Context) ([]models.ScoreRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	records := make([]models.ScoreRecord, 0, len(s.scores))
	for userID, score := range s.scores {
		records = append(records, models.ScoreRecord{UserID: userID, Score: score})
	}
	return records, nil
}

func (s *MemoryStorage) Close() error {
	// Nothing to close for in-memory storage
	return nil
}
