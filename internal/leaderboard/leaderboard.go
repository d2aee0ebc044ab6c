package leaderboard

import (
	"fmt"
	"sort"
	"strings"

	"scam-quiz-bot/internal/models"
)

// Style selects how the requesting user's own row is marked.
type Style string

const (
	// StyleMarker surrounds the requester's ID with asterisks.
	StyleMarker Style = "marker"
	// StyleMe replaces the requester's ID with a literal "Me".
	StyleMe Style = "me"
)

// ParseStyle maps a config string to a Style, defaulting to StyleMarker.
func ParseStyle(s string) Style {
	if Style(s) == StyleMe {
		return StyleMe
	}
	return StyleMarker
}

const (
	defaultNameWidth = 12
	rankWidth        = 4
	scoreWidth       = 5
	emptyRow         = "目前還沒有人上榜"
)

// Board renders the ranked score table.
type Board struct {
	style     Style
	nameWidth int
}

func New(style Style, nameWidth int) *Board {
	if nameWidth <= 0 {
		nameWidth = defaultNameWidth
	}
	return &Board{style: style, nameWidth: nameWidth}
}

// Render sorts records by score descending (ties broken by user ID
// ascending, keeping output stable) and draws the box table. The requesting
// user's row is marked per the configured style.
func (b *Board) Render(records []models.ScoreRecord, requester string) string {
	sorted := make([]models.ScoreRecord, len(records))
	copy(sorted, records)
	sort.Slice(sorted, func(i, j int) bool {
		if sorted[i].Score != sorted[j].Score {
			return sorted[i].Score > sorted[j].Score
		}
		return sorted[i].UserID < sorted[j].UserID
	})

	// Marked names may grow by two characters.
	nameCol := b.nameWidth + 2

	var sb strings.Builder
	sb.WriteString(b.border("┌", "┬", "┐", nameCol))
	sb.WriteString(fmt.Sprintf("│ %*s │ %-*s │ %*s │\n", rankWidth, "Rank", nameCol, "User", scoreWidth, "Score"))
	sb.WriteString(b.border("├", "┼", "┤", nameCol))

	if len(sorted) == 0 {
		sb.WriteString(fmt.Sprintf("│ %*s │ %-*s │ %*s │\n", rankWidth, "-", nameCol, emptyRow, scoreWidth, "-"))
	}
	for i, rec := range sorted {
		name := truncate(rec.UserID, b.nameWidth)
		if rec.UserID == requester {
			if b.style == StyleMe {
				name = "Me"
			} else {
				name = "*" + name + "*"
			}
		}
		sb.WriteString(fmt.Sprintf("│ %*d │ %-*s │ %*d │\n", rankWidth, i+1, nameCol, name, scoreWidth, rec.Score))
	}

	sb.WriteString(b.border("└", "┴", "┘", nameCol))
	return strings.TrimRight(sb.String(), "\n")
}

func (b *Board) border(left, mid, right string, nameCol int) string {
	cols := []int{rankWidth, nameCol, scoreWidth}
	parts := make([]string, len(cols))
	for i, w := range cols {
		parts[i] = strings.Repeat("─", w+2)
	}
	return left + strings.Join(parts, mid) + right + "\n"
}

func truncate(s string, width int) string {
	runes := []rune(s)
	if len(runes) <= width {
		return s
	}
	if width <= 3 {
		return string(runes[:width])
	}
	return string(runes[:width-3]) + "..."
}
