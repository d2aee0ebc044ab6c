package generator

import (
	"context"
	"errors"
	"math/rand"
	"testing"
	"time"

	"scam-quiz-bot/internal/models"
	"scam-quiz-bot/internal/templates"
	"scam-quiz-bot/internal/textgen"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func testBank() *templates.Bank {
	return &templates.Bank{
		Genuine: []string{"本期電費帳單已寄出，繳費期限為本月 25 日"},
		Scam:    []string{"您的電費已逾期，詳情繳費：{url}"},
	}
}

func testPool() *templates.URLPool {
	// No server behind it: picks degrade to the fixed placeholder.
	return templates.NewURLPool("http://127.0.0.1:0/feed", time.Minute, zap.NewNop())
}

func fixedGen(text string) textgen.Generator {
	return textgen.GeneratorFunc(func(_ context.Context, _ string) (string, error) {
		return text, nil
	})
}

func failingGen() textgen.Generator {
	return textgen.GeneratorFunc(func(_ context.Context, _ string) (string, error) {
		return "", errors.New("completion service down")
	})
}

func TestUnlabeledModeSkipsParaphrase(t *testing.T) {
	calls := 0
	gen := textgen.GeneratorFunc(func(_ context.Context, _ string) (string, error) {
		calls++
		return "should not be used", nil
	})

	g := NewWithRand(testBank(), testPool(), gen, ModeUnlabeled, rand.New(rand.NewSource(1)), zap.NewNop())
	ex, err := g.Next(context.Background())
	require.NoError(t, err)
	require.Equal(t, models.TruthUnknown, ex.Truth)
	require.False(t, ex.Labeled)
	require.NotEmpty(t, ex.Text)
	require.NotContains(t, ex.Text, "{url}")
	require.Zero(t, calls)
}

func TestScamOnlyModeParaphrases(t *testing.T) {
	g := NewWithRand(testBank(), testPool(), fixedGen("改寫後的詐騙訊息 http://bad.icu"), ModeScamOnly, rand.New(rand.NewSource(1)), zap.NewNop())

	ex, err := g.Next(context.Background())
	require.NoError(t, err)
	require.Equal(t, models.TruthScam, ex.Truth)
	require.True(t, ex.Labeled)
	require.Equal(t, "改寫後的詐騙訊息 http://bad.icu", ex.Text)
	require.NotEmpty(t, ex.QuestionID)
}

func TestRealOnlyModeParaphrases(t *testing.T) {
	g := NewWithRand(testBank(), testPool(), fixedGen("改寫後的正常訊息"), ModeRealOnly, rand.New(rand.NewSource(1)), zap.NewNop())

	ex, err := g.Next(context.Background())
	require.NoError(t, err)
	require.Equal(t, models.TruthGenuine, ex.Truth)
	require.True(t, ex.Labeled)
	require.Equal(t, "改寫後的正常訊息", ex.Text)
}

func TestEitherModeShowsBothSides(t *testing.T) {
	g := NewWithRand(testBank(), testPool(), fixedGen("改寫"), ModeEither, rand.New(rand.NewSource(42)), zap.NewNop())

	truths := map[models.GroundTruth]bool{}
	for i := 0; i < 50; i++ {
		ex, err := g.Next(context.Background())
		require.NoError(t, err)
		require.True(t, ex.Labeled)
		truths[ex.Truth] = true
	}
	require.True(t, truths[models.TruthScam])
	require.True(t, truths[models.TruthGenuine])
}

func TestParaphraseFailureFallsBackToRawTemplate(t *testing.T) {
	t.Run("genuine side", func(t *testing.T) {
		g := NewWithRand(testBank(), testPool(), failingGen(), ModeRealOnly, rand.New(rand.NewSource(1)), zap.NewNop())
		ex, err := g.Next(context.Background())
		require.NoError(t, err)
		require.Equal(t, models.TruthGenuine, ex.Truth)
		require.Equal(t, "本期電費帳單已寄出，繳費期限為本月 25 日", ex.Text)
	})

	t.Run("scam side keeps truth tag and fills url", func(t *testing.T) {
		g := NewWithRand(testBank(), testPool(), failingGen(), ModeScamOnly, rand.New(rand.NewSource(1)), zap.NewNop())
		ex, err := g.Next(context.Background())
		require.NoError(t, err)
		require.Equal(t, models.TruthScam, ex.Truth)
		require.NotContains(t, ex.Text, "{url}")
		require.Contains(t, ex.Text, "您的電費已逾期")
	})
}

func TestEmptyBankErrors(t *testing.T) {
	g := NewWithRand(&templates.Bank{}, testPool(), fixedGen("x"), ModeEither, rand.New(rand.NewSource(1)), zap.NewNop())
	_, err := g.Next(context.Background())
	require.ErrorIs(t, err, ErrEmptyBank)
}

func TestParseMode(t *testing.T) {
	require.Equal(t, ModeUnlabeled, ParseMode("unlabeled"))
	require.Equal(t, ModeScamOnly, ParseMode("scam_only"))
	require.Equal(t, ModeEither, ParseMode(""))
	require.Equal(t, ModeEither, ParseMode("bogus"))
}
