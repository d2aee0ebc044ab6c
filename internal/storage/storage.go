package storage

import (
	"context"

	"scam-quiz-bot/internal/models"
)

// Storage is the key-value contract the quiz depends on. Conversation
// records live under chat/{conversationKey}, scores under scores/{userId};
// ListScores is the prefix scan over the latter.
//
// GetConversation returns (nil, nil) when no record exists. AddScore is the
// atomic clamped score mutation: it applies delta, floors the result at
// zero, and returns the new value. Backends apply it as atomically as they
// can (see each implementation).
type Storage interface {
	GetConversation(ctx context.Context, key models.ConversationKey) (*models.ConversationRecord, error)
	PutConversation(ctx context.Context, key models.ConversationKey, rec *models.ConversationRecord) error
	GetScore(ctx context.Context, userID string) (int, error)
	AddScore(ctx context.Context, userID string, delta int) (int, error)
	ListScores(ctx context.Context) ([]models.ScoreRecord, error)
	Close() error
}

const (
	chatKeyPrefix  = "chat/"
	scoreKeyPrefix = "scores/"
)

func clampScore(score int) int {
	if score < 0 {
		return 0
	}
	return score
}
