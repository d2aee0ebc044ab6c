package analyzer

import "context"

// Analyzer produces a natural-language explanation of why a message is or
// is not a likely scam. The tone follows the ground truth of the message,
// never the user's answer: the explanation is about the message itself.
type Analyzer interface {
	Explain(ctx context.Context, message string, isScam bool) (string, error)
}
