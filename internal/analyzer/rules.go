package analyzer

import (
	"context"
	"regexp"
	"strings"
)

// Indicator classes scanned by the rule analyzer. CJK alternations carry no
// \b anchors: RE2 word boundaries are ASCII-only and never match between
// Chinese characters.
var indicators = []struct {
	pattern *regexp.Regexp
	advice  string
}{
	{
		regexp.MustCompile(`\bwww\.[a-zA-Z0-9-]+\.[a-z]{2,}\b`),
		"這條訊息包含可疑的網址，請勿點擊。",
	},
	{
		regexp.MustCompile(`逾期|凍結|註銷|終止供水|停止收費|登入|認證|綁定用戶資料|立即|緊急`),
		"訊息中包含緊急措辭，這是常見的詐騙手段。",
	},
	{
		regexp.MustCompile(`點擊此處|請立即|詳情繳費|免費|下載|活動|投票`),
		"訊息中包含誘導性語句，這可能是詐騙。",
	},
	{
		regexp.MustCompile(`幫忙|要求|收個認證|麻煩幫忙|確認是本人幫忙認證|幫忙認證`),
		"訊息中包含不明請求，這可能是詐騙手段之一。",
	},
	{
		regexp.MustCompile(`\.(icu|info|bit|pgp|shop)\b`),
		"訊息中包含不常見的域名擴展，請小心。",
	},
	{
		regexp.MustCompile(`登入|用戶資料|帳戶|賬戶|安全認證`),
		"訊息中要求提供帳戶或個人資料，這可能是網絡釣魚詐騙。",
	},
}

const (
	genericCaution = "這條訊息看起來很可疑，請小心處理。"
	genuineAdvice  = "這則訊息沒有要求點擊不明連結或提供帳戶資料，格式與正規通知一致。仍建議透過官方管道（官網或客服專線）主動查證，而不是回覆訊息中的聯絡方式。"
)

// RuleAnalyzer is the deterministic strategy: it scans the message for
// fixed indicator classes and returns one advisory line per matched class.
type RuleAnalyzer struct{}

func NewRuleAnalyzer() *RuleAnalyzer {
	return &RuleAnalyzer{}
}

func (a *RuleAnalyzer) Explain(_ context.Context, message string, isScam bool) (string, error) {
	if !isScam {
		return genuineAdvice, nil
	}

	var advice []string
	for _, ind := range indicators {
		if ind.pattern.MatchString(message) {
			advice = append(advice, ind.advice)
		}
	}
	if len(advice) == 0 {
		advice = append(advice, genericCaution)
	}
	return strings.Join(advice, "\n"), nil
}
