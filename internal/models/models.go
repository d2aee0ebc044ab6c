package models

import "time"

// ConversationKey identifies one quiz thread: a single user ID for
// one-on-one chats, or the group ID for group chats (group members share
// the thread).
type ConversationKey string

// GroundTruth records whether a presented example is the fabricated scam
// variant or the genuine one. Unknown is only produced by the legacy
// unlabeled quiz mode, which presents examples without tracking origin.
type GroundTruth string

const (
	TruthGenuine GroundTruth = "genuine"
	TruthScam    GroundTruth = "scam"
	TruthUnknown GroundTruth = "unknown"
)

// RoleBot is the only writer of conversation records.
const RoleBot = "bot"

// ConversationRecord holds the last presented example for a thread. It is
// fully replaced on every new question; fields from a previous turn never
// survive into the next one.
type ConversationRecord struct {
	Role          string      `json:"role"`
	QuestionID    string      `json:"question_id"`
	PresentedText string      `json:"presented_text"`
	GroundTruth   GroundTruth `json:"ground_truth"`
	Answered      bool        `json:"answered"`
	AskedAt       time.Time   `json:"asked_at"`
}

// ScoreRecord maps a user to their accumulated quiz score.
type ScoreRecord struct {
	UserID string `json:"user_id"`
	Score  int    `json:"score"`
}

// State is the quiz position of a thread. It is never stored: the record's
// shape is the single source of truth and StateOf derives it on demand.
type State string

const (
	// StateNoQuestion means nothing has been presented yet.
	StateNoQuestion State = "no_question"
	// StateAwaitingJudgment means a labeled question is pending a 是/否 answer.
	StateAwaitingJudgment State = "awaiting_judgment"
	// StatePresentedUnlabeled means an unlabeled example was shown; it is
	// informational only and judgment commands do not score it.
	StatePresentedUnlabeled State = "presented_unlabeled"
	// StateAnswered means the pending question was judged; an explanation
	// may still be requested.
	StateAnswered State = "answered"
)

// StateOf derives the thread state from the record shape.
func StateOf(rec *ConversationRecord) State {
	switch {
	case rec == nil || rec.PresentedText == "":
		return StateNoQuestion
	case rec.Answered:
		return StateAnswered
	case rec.GroundTruth == TruthUnknown:
		return StatePresentedUnlabeled
	default:
		return StateAwaitingJudgment
	}
}
