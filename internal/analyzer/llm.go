package analyzer

import (
	"context"
	"fmt"

	"scam-quiz-bot/internal/textgen"

	"go.uber.org/zap"
)

const scamExplainPrompt = `以下是一則詐騙訊息：

%s

請用繁體中文說明為什麼這是詐騙訊息，指出其中的可疑特徵（例如可疑連結、緊急措辭、要求提供個人資料等），並給出辨識建議。請直接回覆說明內容，不要加任何開場白。`

const genuineExplainPrompt = `以下是一則正常的通知訊息：

%s

請用繁體中文說明為什麼這則訊息看起來是正當的（例如沒有可疑連結、沒有索取帳戶資料、提供官方查證管道等），並提醒讀者遇到類似訊息時仍可如何查證。請直接回覆說明內容，不要加任何開場白。`

// LLMAnalyzer asks the text-completion service for an explanation and
// degrades to the deterministic rule analyzer when the upstream fails.
type LLMAnalyzer struct {
	gen      textgen.Generator
	fallback *RuleAnalyzer
	logger   *zap.Logger
}

func NewLLMAnalyzer(gen textgen.Generator, logger *zap.Logger) *LLMAnalyzer {
	return &LLMAnalyzer{
		gen:      gen,
		fallback: NewRuleAnalyzer(),
		logger:   logger,
	}
}

func (a *LLMAnalyzer) Explain(ctx context.Context, message string, isScam bool) (string, error) {
	prompt := genuineExplainPrompt
	if isScam {
		prompt = scamExplainPrompt
	}

	text, err := a.gen.Generate(ctx, fmt.Sprintf(prompt, message))
	if err != nil {
		a.logger.Warn("Falling back to rule analyzer",
			zap.Error(err),
			zap.Bool("is_scam", isScam))
		return a.fallback.Explain(ctx, message, isScam)
	}
	return text, nil
}
