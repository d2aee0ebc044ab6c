package quiz

import (
	"context"
	"fmt"
	"strings"
	"time"

	"scam-quiz-bot/internal/analyzer"
	"scam-quiz-bot/internal/generator"
	"scam-quiz-bot/internal/leaderboard"
	"scam-quiz-bot/internal/models"
	"scam-quiz-bot/internal/storage"

	"go.uber.org/zap"
)

// Recognized commands. Matching is exact and case-sensitive after trimming
// surrounding whitespace.
const (
	CmdNewQuestion = "出題"
	CmdScore       = "分數"
	CmdJudgeReal   = "是"
	CmdJudgeScam   = "否"
	CmdExplain     = "解析"
	CmdLeaderboard = "排行榜"
)

// Points awarded for a correct judgment and deducted for a wrong one.
const Points = 50

const (
	judgmentPrompt     = "這則訊息是真實的嗎？請輸入「是」或「否」。"
	unlabeledNote      = "這是一則示範訊息，不列入計分。輸入「解析」查看辨識重點。"
	noPendingNotice    = "目前沒有待判斷的題目，請先輸入「出題」。"
	unlabeledJudgeHint = "這一題僅供參考，不列入計分。輸入「解析」查看辨識重點，或輸入「出題」再出一題。"
	noExplainNotice    = "目前沒有可供解析的訊息，請先出題。"
	degradedNotice     = "服務暫時無法使用，請稍後再試一次。"
	usageHint          = "未能識別的指令，請輸入「出題」、「是」、「否」、「分數」、「解析」或「排行榜」。"
	correctFeedback    = "答對了！獲得 %d 分，目前累積 %d 分。"
	wrongScamFeedback  = "答錯了，這其實是詐騙訊息！扣除 %d 分，目前累積 %d 分。"
	wrongRealFeedback  = "答錯了，這其實是正常訊息。扣除 %d 分，目前累積 %d 分。"
	scoreFeedback      = "目前累積分數：%d 分。"
	explainReplyFormat = "上次的訊息是: %s\n\n辨別建議:\n%s"
)

// Request is the narrowed inbound shape: one text command from one
// conversation. The transport adapter performs the narrowing.
type Request struct {
	Key    models.ConversationKey
	UserID string
	Text   string
}

// ConfirmPrompt asks the transport to render its two-button confirm UI.
type ConfirmPrompt struct {
	Text     string
	YesLabel string
	NoLabel  string
}

// Reply is one outbound message: plain text, or a confirm prompt when
// Confirm is set.
type Reply struct {
	Text    string
	Confirm *ConfirmPrompt
}

// WriteOp is a desired storage mutation. The engine never writes to the
// store itself; it emits ops and the transport adapter applies them, so
// persistence can be synchronous or deferred without touching quiz logic.
type WriteOp interface {
	isWriteOp()
}

// PutConversation replaces the thread's conversation record.
type PutConversation struct {
	Key    models.ConversationKey
	Record *models.ConversationRecord
}

func (PutConversation) isWriteOp() {}

// AddScore applies a clamped score delta to a user.
type AddScore struct {
	UserID string
	Delta  int
}

func (AddScore) isWriteOp() {}

// Result is the outcome of one handled command.
type Result struct {
	Replies []Reply
	Writes  []WriteOp
}

// ExampleSource produces quiz questions.
type ExampleSource interface {
	Next(ctx context.Context) (*generator.Example, error)
}

// Engine is the quiz state machine. It reads conversation and score state,
// decides the reply for each command, and emits the writes to apply. All
// collaborators are injected; the engine holds no mutable state of its own.
type Engine struct {
	store    storage.Storage
	examples ExampleSource
	analyzer analyzer.Analyzer
	board    *leaderboard.Board
	logger   *zap.Logger
	now      func() time.Time
}

func NewEngine(store storage.Storage, examples ExampleSource, a analyzer.Analyzer, board *leaderboard.Board, logger *zap.Logger) *Engine {
	return &Engine{
		store:    store,
		examples: examples,
		analyzer: a,
		board:    board,
		logger:   logger,
		now:      time.Now,
	}
}

// Handle processes one inbound command. It never fails the caller: every
// branch, including upstream failures, resolves to a user-facing reply.
func (e *Engine) Handle(ctx context.Context, req Request) Result {
	switch strings.TrimSpace(req.Text) {
	case CmdNewQuestion:
		return e.newQuestion(ctx, req)
	case CmdScore:
		return e.showScore(ctx, req)
	case CmdJudgeReal:
		return e.judge(ctx, req, false)
	case CmdJudgeScam:
		return e.judge(ctx, req, true)
	case CmdExplain:
		return e.explain(ctx, req)
	case CmdLeaderboard:
		return e.showLeaderboard(ctx, req)
	default:
		return Result{Replies: []Reply{{Text: usageHint}}}
	}
}

func (e *Engine) newQuestion(ctx context.Context, req Request) Result {
	ex, err := e.examples.Next(ctx)
	if err != nil {
		// No record is written for failed content: a poisoned record would
		// break every judgment turn after it.
		e.logger.Error("Failed to generate example",
			zap.Error(err),
			zap.String("conversation", string(req.Key)))
		return Result{Replies: []Reply{{Text: degradedNotice}}}
	}

	rec := &models.ConversationRecord{
		Role:          models.RoleBot,
		QuestionID:    ex.QuestionID,
		PresentedText: ex.Text,
		GroundTruth:   ex.Truth,
		AskedAt:       e.now(),
	}

	replies := []Reply{{Text: ex.Text}}
	if ex.Labeled {
		replies = append(replies, Reply{Confirm: &ConfirmPrompt{
			Text:     judgmentPrompt,
			YesLabel: CmdJudgeReal,
			NoLabel:  CmdJudgeScam,
		}})
	} else {
		replies = append(replies, Reply{Text: unlabeledNote})
	}

	return Result{
		Replies: replies,
		Writes:  []WriteOp{PutConversation{Key: req.Key, Record: rec}},
	}
}

func (e *Engine) showScore(ctx context.Context, req Request) Result {
	score := e.currentScore(ctx, req.UserID)
	return Result{Replies: []Reply{{Text: fmt.Sprintf(scoreFeedback, score)}}}
}

func (e *Engine) judge(ctx context.Context, req Request, claimScam bool) Result {
	rec := e.currentConversation(ctx, req.Key)

	switch models.StateOf(rec) {
	case models.StateAwaitingJudgment:
		// handled below
	case models.StatePresentedUnlabeled:
		return Result{Replies: []Reply{{Text: unlabeledJudgeHint}}}
	default:
		return Result{Replies: []Reply{{Text: noPendingNotice}}}
	}

	isScam := rec.GroundTruth == models.TruthScam
	correct := claimScam == isScam

	delta := Points
	if !correct {
		delta = -Points
	}
	score := clamp(e.currentScore(ctx, req.UserID) + delta)

	answered := *rec
	answered.Answered = true
	writes := []WriteOp{
		PutConversation{Key: req.Key, Record: &answered},
		AddScore{UserID: req.UserID, Delta: delta},
	}

	var replies []Reply
	switch {
	case correct:
		replies = append(replies, Reply{Text: fmt.Sprintf(correctFeedback, Points, score)})
	case isScam:
		replies = append(replies, Reply{Text: fmt.Sprintf(wrongScamFeedback, Points, score)})
		replies = append(replies, Reply{Text: e.explanation(ctx, rec)})
	default:
		replies = append(replies, Reply{Text: fmt.Sprintf(wrongRealFeedback, Points, score)})
	}

	return Result{Replies: replies, Writes: writes}
}

func (e *Engine) explain(ctx context.Context, req Request) Result {
	rec := e.currentConversation(ctx, req.Key)
	if models.StateOf(rec) == models.StateNoQuestion {
		return Result{Replies: []Reply{{Text: noExplainNotice}}}
	}

	text := fmt.Sprintf(explainReplyFormat, rec.PresentedText, e.explanation(ctx, rec))
	return Result{Replies: []Reply{{Text: text}}}
}

func (e *Engine) showLeaderboard(ctx context.Context, req Request) Result {
	records, err := e.store.ListScores(ctx)
	if err != nil {
		e.logger.Error("Failed to list scores", zap.Error(err))
		return Result{Replies: []Reply{{Text: degradedNotice}}}
	}
	return Result{Replies: []Reply{{Text: e.board.Render(records, req.UserID)}}}
}

// explanation asks the analyzer about the recorded example. Unknown ground
// truth is analyzed as suspect: the unlabeled pool exists to teach scam
// recognition, and the advisory tone is the useful default there.
func (e *Engine) explanation(ctx context.Context, rec *models.ConversationRecord) string {
	isScam := rec.GroundTruth != models.TruthGenuine
	text, err := e.analyzer.Explain(ctx, rec.PresentedText, isScam)
	if err != nil {
		e.logger.Error("Failed to analyze message",
			zap.Error(err),
			zap.String("question_id", rec.QuestionID))
		return degradedNotice
	}
	return text
}

// currentConversation reads the thread record, degrading a store failure to
// "no question asked" so a broken read cannot crash the turn.
func (e *Engine) currentConversation(ctx context.Context, key models.ConversationKey) *models.ConversationRecord {
	rec, err := e.store.GetConversation(ctx, key)
	if err != nil {
		e.logger.Error("Failed to read conversation, treating as empty",
			zap.Error(err),
			zap.String("conversation", string(key)))
		return nil
	}
	return rec
}

func (e *Engine) currentScore(ctx context.Context, userID string) int {
	score, err := e.store.GetScore(ctx, userID)
	if err != nil {
		e.logger.Error("Failed to read score, assuming zero",
			zap.Error(err),
			zap.String("user_id", userID))
		return 0
	}
	return score
}

func clamp(score int) int {
	if score < 0 {
		return 0
	}
	return score
}

// Apply runs the engine's desired writes against the store. Failures are
// returned for logging but each op is still attempted: a missed score write
// should not also discard the conversation replacement.
func Apply(ctx context.Context, st storage.Storage, ops []WriteOp) error {
	var firstErr error
	for _, op := range ops {
		var err error
		switch o := op.(type) {
		case PutConversation:
			err = st.PutConversation(ctx, o.Key, o.Record)
		case AddScore:
			_, err = st.AddScore(ctx, o.UserID, o.Delta)
		}
		if err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}
