package quiz

import (
	"context"
	"errors"
	"testing"

	"scam-quiz-bot/internal/generator"
	"scam-quiz-bot/internal/leaderboard"
	"scam-quiz-bot/internal/models"
	"scam-quiz-bot/internal/storage"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fakeExamples struct {
	next *generator.Example
	err  error
}

func (f *fakeExamples) Next(_ context.Context) (*generator.Example, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.next, nil
}

type fakeAnalyzer struct {
	explanation string
	err         error
	calls       int
	lastIsScam  bool
}

func (f *fakeAnalyzer) Explain(_ context.Context, _ string, isScam bool) (string, error) {
	f.calls++
	f.lastIsScam = isScam
	if f.err != nil {
		return "", f.err
	}
	return f.explanation, nil
}

type failingStore struct {
	*storage.MemoryStorage
	failReads bool
}

func (s *failingStore) GetConversation(ctx context.Context, key models.ConversationKey) (*models.ConversationRecord, error) {
	if s.failReads {
		return nil, errors.New("store unavailable")
	}
	return s.MemoryStorage.GetConversation(ctx, key)
}

func (s *failingStore) GetScore(ctx context.Context, userID string) (int, error) {
	if s.failReads {
		return 0, errors.New("store unavailable")
	}
	return s.MemoryStorage.GetScore(ctx, userID)
}

func scamExample() *generator.Example {
	return &generator.Example{
		QuestionID: "q-1",
		Text:       "您的賬戶顯示異常，請立即登入 http://bad.icu",
		Truth:      models.TruthScam,
		Labeled:    true,
	}
}

func genuineExample() *generator.Example {
	return &generator.Example{
		QuestionID: "q-2",
		Text:       "本期電費帳單已寄出，繳費期限為本月 25 日",
		Truth:      models.TruthGenuine,
		Labeled:    true,
	}
}

func newTestEngine(store storage.Storage, ex *fakeExamples, an *fakeAnalyzer) *Engine {
	return NewEngine(store, ex, an, leaderboard.New(leaderboard.StyleMarker, 12), zap.NewNop())
}

func handleAndApply(t *testing.T, e *Engine, store storage.Storage, req Request) Result {
	t.Helper()
	res := e.Handle(context.Background(), req)
	require.NoError(t, Apply(context.Background(), store, res.Writes))
	return res
}

func TestNewQuestionTransitionsToAwaitingJudgment(t *testing.T) {
	store := storage.NewMemoryStorage()
	e := newTestEngine(store, &fakeExamples{next: scamExample()}, &fakeAnalyzer{})

	res := handleAndApply(t, e, store, Request{Key: "U1", UserID: "U1", Text: CmdNewQuestion})

	require.Len(t, res.Replies, 2)
	require.Equal(t, scamExample().Text, res.Replies[0].Text)
	require.NotNil(t, res.Replies[1].Confirm)
	require.Equal(t, CmdJudgeReal, res.Replies[1].Confirm.YesLabel)
	require.Equal(t, CmdJudgeScam, res.Replies[1].Confirm.NoLabel)

	rec, err := store.GetConversation(context.Background(), "U1")
	require.NoError(t, err)
	require.Equal(t, models.StateAwaitingJudgment, models.StateOf(rec))
	// Stored ground truth matches the text that was actually returned.
	require.Equal(t, scamExample().Text, rec.PresentedText)
	require.Equal(t, models.TruthScam, rec.GroundTruth)
	require.Equal(t, models.RoleBot, rec.Role)
}

func TestNewQuestionReplacesPreviousRecord(t *testing.T) {
	store := storage.NewMemoryStorage()
	ex := &fakeExamples{next: scamExample()}
	e := newTestEngine(store, ex, &fakeAnalyzer{})

	handleAndApply(t, e, store, Request{Key: "U1", UserID: "U1", Text: CmdNewQuestion})
	handleAndApply(t, e, store, Request{Key: "U1", UserID: "U1", Text: CmdJudgeScam})

	ex.next = genuineExample()
	handleAndApply(t, e, store, Request{Key: "U1", UserID: "U1", Text: CmdNewQuestion})

	rec, err := store.GetConversation(context.Background(), "U1")
	require.NoError(t, err)
	require.False(t, rec.Answered, "Answered flag from the previous turn must not leak")
	require.Equal(t, genuineExample().Text, rec.PresentedText)
	require.Equal(t, models.TruthGenuine, rec.GroundTruth)
}

func TestGenerationFailureWritesNothing(t *testing.T) {
	store := storage.NewMemoryStorage()
	e := newTestEngine(store, &fakeExamples{err: errors.New("completion down")}, &fakeAnalyzer{})

	res := e.Handle(context.Background(), Request{Key: "U1", UserID: "U1", Text: CmdNewQuestion})

	require.Empty(t, res.Writes)
	require.Len(t, res.Replies, 1)
	require.Contains(t, res.Replies[0].Text, "稍後再試")

	rec, err := store.GetConversation(context.Background(), "U1")
	require.NoError(t, err)
	require.Nil(t, rec)
}

func TestWrongJudgmentOnScamExplainsAndClampsAtZero(t *testing.T) {
	store := storage.NewMemoryStorage()
	an := &fakeAnalyzer{explanation: "這是詐騙，因為包含可疑連結。"}
	e := newTestEngine(store, &fakeExamples{next: scamExample()}, an)

	handleAndApply(t, e, store, Request{Key: "U1", UserID: "U1", Text: CmdNewQuestion})
	// Fresh user claims the scam is real.
	res := handleAndApply(t, e, store, Request{Key: "U1", UserID: "U1", Text: CmdJudgeReal})

	require.Len(t, res.Replies, 2)
	require.Contains(t, res.Replies[0].Text, "答錯了")
	require.Contains(t, res.Replies[0].Text, "目前累積 0 分")
	require.Equal(t, "這是詐騙，因為包含可疑連結。", res.Replies[1].Text)
	require.Equal(t, 1, an.calls)
	require.True(t, an.lastIsScam)

	score, err := store.GetScore(context.Background(), "U1")
	require.NoError(t, err)
	require.Zero(t, score)

	rec, err := store.GetConversation(context.Background(), "U1")
	require.NoError(t, err)
	require.Equal(t, models.StateAnswered, models.StateOf(rec))
}

func TestWrongJudgmentOnGenuineSkipsExplanation(t *testing.T) {
	store := storage.NewMemoryStorage()
	an := &fakeAnalyzer{explanation: "should not appear"}
	e := newTestEngine(store, &fakeExamples{next: genuineExample()}, an)

	handleAndApply(t, e, store, Request{Key: "U1", UserID: "U1", Text: CmdNewQuestion})
	res := handleAndApply(t, e, store, Request{Key: "U1", UserID: "U1", Text: CmdJudgeScam})

	require.Len(t, res.Replies, 1)
	require.Contains(t, res.Replies[0].Text, "答錯了")
	require.Zero(t, an.calls)
}

func TestCorrectJudgmentAwardsPoints(t *testing.T) {
	store := storage.NewMemoryStorage()
	_, err := store.AddScore(context.Background(), "U1", 80)
	require.NoError(t, err)

	e := newTestEngine(store, &fakeExamples{next: scamExample()}, &fakeAnalyzer{})

	handleAndApply(t, e, store, Request{Key: "U1", UserID: "U1", Text: CmdNewQuestion})
	res := handleAndApply(t, e, store, Request{Key: "U1", UserID: "U1", Text: CmdJudgeScam})

	require.Contains(t, res.Replies[0].Text, "答對了")
	require.Contains(t, res.Replies[0].Text, "130 分")

	score, err := store.GetScore(context.Background(), "U1")
	require.NoError(t, err)
	require.Equal(t, 130, score)
}

func TestLabeledRoundTrip(t *testing.T) {
	// A question presented as real: 是 awards +50, 否 deducts with floor 0.
	for _, tt := range []struct {
		judgment  string
		wantScore int
	}{
		{CmdJudgeReal, 50},
		{CmdJudgeScam, 0},
	} {
		store := storage.NewMemoryStorage()
		e := newTestEngine(store, &fakeExamples{next: genuineExample()}, &fakeAnalyzer{})

		handleAndApply(t, e, store, Request{Key: "U1", UserID: "U1", Text: CmdNewQuestion})
		handleAndApply(t, e, store, Request{Key: "U1", UserID: "U1", Text: tt.judgment})

		score, err := store.GetScore(context.Background(), "U1")
		require.NoError(t, err)
		require.Equal(t, tt.wantScore, score)
	}
}

func TestJudgmentWithoutPendingQuestion(t *testing.T) {
	store := storage.NewMemoryStorage()
	e := newTestEngine(store, &fakeExamples{next: scamExample()}, &fakeAnalyzer{})

	for _, cmd := range []string{CmdJudgeReal, CmdJudgeScam} {
		res := e.Handle(context.Background(), Request{Key: "U1", UserID: "U1", Text: cmd})
		require.Empty(t, res.Writes)
		require.Equal(t, noPendingNotice, res.Replies[0].Text)
	}
}

func TestRepeatedJudgmentScoresOnlyOnce(t *testing.T) {
	store := storage.NewMemoryStorage()
	e := newTestEngine(store, &fakeExamples{next: scamExample()}, &fakeAnalyzer{})

	handleAndApply(t, e, store, Request{Key: "U1", UserID: "U1", Text: CmdNewQuestion})
	handleAndApply(t, e, store, Request{Key: "U1", UserID: "U1", Text: CmdJudgeScam})
	res := handleAndApply(t, e, store, Request{Key: "U1", UserID: "U1", Text: CmdJudgeScam})

	require.Equal(t, noPendingNotice, res.Replies[0].Text)

	score, err := store.GetScore(context.Background(), "U1")
	require.NoError(t, err)
	require.Equal(t, 50, score)
}

func TestUnlabeledTurnDisablesJudgment(t *testing.T) {
	store := storage.NewMemoryStorage()
	unlabeled := &generator.Example{
		QuestionID: "q-3",
		Text:       "幫我收個認證簡訊",
		Truth:      models.TruthUnknown,
		Labeled:    false,
	}
	e := newTestEngine(store, &fakeExamples{next: unlabeled}, &fakeAnalyzer{explanation: "可疑"})

	res := handleAndApply(t, e, store, Request{Key: "U1", UserID: "U1", Text: CmdNewQuestion})
	require.Len(t, res.Replies, 2)
	require.Nil(t, res.Replies[1].Confirm)

	res = handleAndApply(t, e, store, Request{Key: "U1", UserID: "U1", Text: CmdJudgeReal})
	require.Empty(t, res.Writes)
	require.Equal(t, unlabeledJudgeHint, res.Replies[0].Text)

	score, err := store.GetScore(context.Background(), "U1")
	require.NoError(t, err)
	require.Zero(t, score)

	// 解析 still works for an unlabeled turn.
	res = handleAndApply(t, e, store, Request{Key: "U1", UserID: "U1", Text: CmdExplain})
	require.Contains(t, res.Replies[0].Text, "可疑")
}

func TestScoreCommandIsIdempotent(t *testing.T) {
	store := storage.NewMemoryStorage()
	_, err := store.AddScore(context.Background(), "U1", 80)
	require.NoError(t, err)

	e := newTestEngine(store, &fakeExamples{next: scamExample()}, &fakeAnalyzer{})

	for i := 0; i < 3; i++ {
		res := handleAndApply(t, e, store, Request{Key: "U1", UserID: "U1", Text: CmdScore})
		require.Empty(t, res.Writes)
		require.Contains(t, res.Replies[0].Text, "80 分")
	}

	score, err := store.GetScore(context.Background(), "U1")
	require.NoError(t, err)
	require.Equal(t, 80, score)
}

func TestExplainWithoutQuestion(t *testing.T) {
	store := storage.NewMemoryStorage()
	e := newTestEngine(store, &fakeExamples{next: scamExample()}, &fakeAnalyzer{})

	res := e.Handle(context.Background(), Request{Key: "U1", UserID: "U1", Text: CmdExplain})
	require.Empty(t, res.Writes)
	require.Equal(t, noExplainNotice, res.Replies[0].Text)
}

func TestExplainAfterAnswerUsesGroundTruth(t *testing.T) {
	store := storage.NewMemoryStorage()
	an := &fakeAnalyzer{explanation: "沒有可疑連結。"}
	e := newTestEngine(store, &fakeExamples{next: genuineExample()}, an)

	handleAndApply(t, e, store, Request{Key: "U1", UserID: "U1", Text: CmdNewQuestion})
	handleAndApply(t, e, store, Request{Key: "U1", UserID: "U1", Text: CmdJudgeReal})
	res := handleAndApply(t, e, store, Request{Key: "U1", UserID: "U1", Text: CmdExplain})

	require.Contains(t, res.Replies[0].Text, genuineExample().Text)
	require.Contains(t, res.Replies[0].Text, "沒有可疑連結。")
	require.False(t, an.lastIsScam)
}

func TestLeaderboardCommand(t *testing.T) {
	store := storage.NewMemoryStorage()
	ctx := context.Background()
	_, err := store.AddScore(ctx, "U1", 150)
	require.NoError(t, err)
	_, err = store.AddScore(ctx, "U2", 50)
	require.NoError(t, err)

	e := newTestEngine(store, &fakeExamples{next: scamExample()}, &fakeAnalyzer{})

	res := handleAndApply(t, e, store, Request{Key: "U2", UserID: "U2", Text: CmdLeaderboard})
	require.Empty(t, res.Writes)
	require.Contains(t, res.Replies[0].Text, "U1")
	require.Contains(t, res.Replies[0].Text, "*U2*")
}

func TestEmptyLeaderboard(t *testing.T) {
	store := storage.NewMemoryStorage()
	e := newTestEngine(store, &fakeExamples{next: scamExample()}, &fakeAnalyzer{})

	res := e.Handle(context.Background(), Request{Key: "U1", UserID: "U1", Text: CmdLeaderboard})
	require.Contains(t, res.Replies[0].Text, "目前還沒有人上榜")
	require.Contains(t, res.Replies[0].Text, "┌")
	require.Contains(t, res.Replies[0].Text, "┘")
}

func TestUnrecognizedCommand(t *testing.T) {
	store := storage.NewMemoryStorage()
	e := newTestEngine(store, &fakeExamples{next: scamExample()}, &fakeAnalyzer{})

	for _, text := range []string{"hello", "出題了", "是的", ""} {
		res := e.Handle(context.Background(), Request{Key: "U1", UserID: "U1", Text: text})
		require.Empty(t, res.Writes)
		require.Equal(t, usageHint, res.Replies[0].Text)
	}
}

func TestCommandTrimsWhitespace(t *testing.T) {
	store := storage.NewMemoryStorage()
	e := newTestEngine(store, &fakeExamples{next: scamExample()}, &fakeAnalyzer{})

	res := handleAndApply(t, e, store, Request{Key: "U1", UserID: "U1", Text: "  出題 \n"})
	require.Len(t, res.Writes, 1)
	require.Equal(t, scamExample().Text, res.Replies[0].Text)
}

func TestStoreReadFailureDegradesToNoQuestion(t *testing.T) {
	store := &failingStore{MemoryStorage: storage.NewMemoryStorage(), failReads: true}
	e := newTestEngine(store, &fakeExamples{next: scamExample()}, &fakeAnalyzer{})

	res := e.Handle(context.Background(), Request{Key: "U1", UserID: "U1", Text: CmdJudgeReal})
	require.Equal(t, noPendingNotice, res.Replies[0].Text)

	res = e.Handle(context.Background(), Request{Key: "U1", UserID: "U1", Text: CmdScore})
	require.Contains(t, res.Replies[0].Text, "0 分")
}

func TestScoreNeverNegativeAcrossJudgmentSequences(t *testing.T) {
	store := storage.NewMemoryStorage()
	e := newTestEngine(store, &fakeExamples{next: scamExample()}, &fakeAnalyzer{})

	for i := 0; i < 5; i++ {
		handleAndApply(t, e, store, Request{Key: "U1", UserID: "U1", Text: CmdNewQuestion})
		handleAndApply(t, e, store, Request{Key: "U1", UserID: "U1", Text: CmdJudgeReal}) // always wrong

		score, err := store.GetScore(context.Background(), "U1")
		require.NoError(t, err)
		require.GreaterOrEqual(t, score, 0)
	}
}
