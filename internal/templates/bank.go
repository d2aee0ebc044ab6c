package templates

import (
	"math/rand"
	"strings"
)

// urlPlaceholder marks where a link should be substituted into a template.
const urlPlaceholder = "{url}"

// Bank holds the curated message exemplars the quiz draws from, partitioned
// into genuine-looking notices and known scam patterns.
type Bank struct {
	Genuine []string
	Scam    []string
}

// DefaultBank returns the built-in exemplar lists.
func DefaultBank() *Bank {
	return &Bank{
		Genuine: []string{
			"【國泰世華】您於 06/12 15:42 消費 NT$1,250，如非本人交易請致電客服專線 0800-818-001 查證",
			"【台灣電力公司】貴戶本期電費帳單已於今日寄出，繳費期限為本月 25 日，可至四大超商或以台灣Pay繳納",
			"【台灣自來水公司】本月抄表作業已完成，帳單金額 312 元，將於例行扣款日自您的約定帳戶扣繳",
			"您的包裹已送達指定門市，請於七日內攜帶證件取件，逾期將退回原寄件人",
			"【中華電信】提醒您，本期電信費 499 元已出帳，若已完成繳費請忽略此訊息",
			"門診提醒：您預約的回診時間為 6/20（四）上午 10:30，請提前報到並攜帶健保卡",
		},
		Scam: []string{
			"【國泰世華】您的銀行賬戶顯示異常，請立即登入綁定用戶資料，否則賬戶將凍結使用 {url}",
			"我朋友參加攝影比賽麻煩幫忙投票 {url}",
			"登入FB就投票成功了我手機當機 line用不了 想請你幫忙安全認證 幫我收個認證簡訊 謝謝 你LINE的登陸認證密碼記得嗎 認證要用到 確認是本人幫忙認證",
			"您的LINE已違規使用，將在24小時內註銷，請使用谷歌瀏覽器登入電腦網站並掃碼驗證解除違規 {url}",
			"【台灣自來水公司】貴戶本期水費已逾期，總計新台幣395元整，務請於6月16日前處理繳費，詳情繳費：{url} 若再超過上述日期，將終止供水",
			"萬聖節快樂🎃 活動免費貼圖無限量下載 {url}",
			"【台灣電力股份有限公司】貴戶本期電費已逾期，總計新台幣1058元整，務請於6月14日前處理繳費，詳情繳費：{url}，若再超過上述日期，將停止收費",
		},
	}
}

// PickGenuine returns one genuine exemplar uniformly at random.
func (b *Bank) PickGenuine(rng *rand.Rand) string {
	return b.Genuine[rng.Intn(len(b.Genuine))]
}

// PickScam returns one scam exemplar uniformly at random.
func (b *Bank) PickScam(rng *rand.Rand) string {
	return b.Scam[rng.Intn(len(b.Scam))]
}

// PickAny returns one exemplar uniformly at random from the combined pool,
// without tracking which side it came from. This backs the legacy unlabeled
// quiz mode.
func (b *Bank) PickAny(rng *rand.Rand) string {
	n := rng.Intn(len(b.Genuine) + len(b.Scam))
	if n < len(b.Genuine) {
		return b.Genuine[n]
	}
	return b.Scam[n-len(b.Genuine)]
}

// FillURL substitutes url into the template's placeholder, if present.
func FillURL(template, url string) string {
	return strings.ReplaceAll(template, urlPlaceholder, url)
}

// HasURLPlaceholder reports whether the template needs a link filled in.
func HasURLPlaceholder(template string) bool {
	return strings.Contains(template, urlPlaceholder)
}
