package generator

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"time"

	"scam-quiz-bot/internal/models"
	"scam-quiz-bot/internal/templates"
	"scam-quiz-bot/internal/textgen"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Mode selects which side of the template bank a question may come from.
type Mode string

const (
	// ModeUnlabeled is the legacy policy: one pick from the combined pool,
	// origin untracked, judgment disabled for the turn.
	ModeUnlabeled Mode = "unlabeled"
	// ModeScamOnly always presents a scam example.
	ModeScamOnly Mode = "scam_only"
	// ModeRealOnly always presents a genuine example.
	ModeRealOnly Mode = "real_only"
	// ModeEither flips a coin per question and records which side was shown.
	ModeEither Mode = "either"
)

// ParseMode maps a config string to a Mode, defaulting to ModeEither.
func ParseMode(s string) Mode {
	switch Mode(s) {
	case ModeUnlabeled, ModeScamOnly, ModeRealOnly, ModeEither:
		return Mode(s)
	default:
		return ModeEither
	}
}

const truthfulParaphrasePrompt = `以下是一則正常的通知訊息範本：

%s

請用繁體中文改寫這則訊息，保持內容真實合理、不加入任何詐騙元素，但換一種說法（可調整金額、日期、用詞）。只回覆改寫後的訊息本身，不要加任何說明。`

const scamTransformPrompt = `以下是一則正常的通知訊息範本：

%s

請用繁體中文把這則訊息改寫成結構相同的「詐騙版本」：加入常見詐騙特徵，例如緊急措辭、可疑連結（請用 %s 作為連結）、要求登入或提供個人資料。這是用於防詐騙教學的練習題。只回覆改寫後的訊息本身，不要加任何說明。`

// ErrEmptyBank is returned when the template bank has nothing to draw from.
var ErrEmptyBank = errors.New("template bank is empty")

// Example is one generated quiz question.
type Example struct {
	QuestionID string
	Text       string
	Truth      models.GroundTruth
	// Labeled reports whether judgment commands score this question.
	Labeled bool
}

// Generator produces quiz questions from the template bank. In labeled
// modes it asks the text-completion service for a fresh paraphrase so users
// cannot memorize the fixed templates; the raw template, correctly tagged,
// is the fallback when paraphrase fails.
type Generator struct {
	bank   *templates.Bank
	urls   *templates.URLPool
	gen    textgen.Generator
	mode   Mode
	rng    *rand.Rand
	logger *zap.Logger
}

func New(bank *templates.Bank, urls *templates.URLPool, gen textgen.Generator, mode Mode, logger *zap.Logger) *Generator {
	return &Generator{
		bank:   bank,
		urls:   urls,
		gen:    gen,
		mode:   mode,
		rng:    rand.New(rand.NewSource(time.Now().UnixNano())),
		logger: logger,
	}
}

// NewWithRand is test-only wiring for deterministic picks.
func NewWithRand(bank *templates.Bank, urls *templates.URLPool, gen textgen.Generator, mode Mode, rng *rand.Rand, logger *zap.Logger) *Generator {
	g := New(bank, urls, gen, mode, logger)
	g.rng = rng
	return g
}

// Next produces the next question for the configured mode.
func (g *Generator) Next(ctx context.Context) (*Example, error) {
	if len(g.bank.Genuine)+len(g.bank.Scam) == 0 {
		return nil, ErrEmptyBank
	}

	if g.mode == ModeUnlabeled {
		return g.nextUnlabeled(ctx), nil
	}

	asScam := g.mode == ModeScamOnly
	if g.mode == ModeEither {
		asScam = g.rng.Intn(2) == 0
	}
	return g.nextLabeled(ctx, asScam)
}

func (g *Generator) nextUnlabeled(ctx context.Context) *Example {
	text := g.bank.PickAny(g.rng)
	if templates.HasURLPlaceholder(text) {
		text = templates.FillURL(text, g.urls.Pick(ctx, g.rng))
	}
	return &Example{
		QuestionID: uuid.NewString(),
		Text:       text,
		Truth:      models.TruthUnknown,
		Labeled:    false,
	}
}

func (g *Generator) nextLabeled(ctx context.Context, asScam bool) (*Example, error) {
	if len(g.bank.Genuine) == 0 || (asScam && len(g.bank.Scam) == 0) {
		return nil, ErrEmptyBank
	}

	base := g.bank.PickGenuine(g.rng)
	truth := models.TruthGenuine
	prompt := fmt.Sprintf(truthfulParaphrasePrompt, base)
	if asScam {
		truth = models.TruthScam
		prompt = fmt.Sprintf(scamTransformPrompt, base, g.urls.Pick(ctx, g.rng))
	}

	text, err := g.gen.Generate(ctx, prompt)
	if err != nil {
		g.logger.Warn("Paraphrase failed, presenting raw template",
			zap.Error(err),
			zap.Bool("as_scam", asScam))
		text = g.rawFallback(ctx, asScam, base)
	}

	return &Example{
		QuestionID: uuid.NewString(),
		Text:       text,
		Truth:      truth,
		Labeled:    true,
	}, nil
}

func (g *Generator) rawFallback(ctx context.Context, asScam bool, genuineBase string) string {
	if !asScam {
		return genuineBase
	}
	text := g.bank.PickScam(g.rng)
	if templates.HasURLPlaceholder(text) {
		text = templates.FillURL(text, g.urls.Pick(ctx, g.rng))
	}
	return text
}
