package leaderboard

import (
	"strconv"
	"strings"
	"testing"

	"scam-quiz-bot/internal/models"

	"github.com/stretchr/testify/require"
)

func TestRenderOrdering(t *testing.T) {
	b := New(StyleMarker, 12)
	records := []models.ScoreRecord{
		{UserID: "U3", Score: 50},
		{UserID: "U1", Score: 150},
		{UserID: "U2", Score: 150},
		{UserID: "U4", Score: 0},
	}

	out := b.Render(records, "")
	lines := strings.Split(out, "\n")

	// Header + border rows surround exactly four data rows.
	require.Len(t, lines, 8)

	// Ties broken by user ID ascending, scores non-increasing top to bottom.
	require.Contains(t, lines[3], "U1")
	require.Contains(t, lines[4], "U2")
	require.Contains(t, lines[5], "U3")
	require.Contains(t, lines[6], "U4")

	last := int(^uint(0) >> 1)
	for _, line := range lines[3:7] {
		fields := strings.Split(line, "│")
		score, err := strconv.Atoi(strings.TrimSpace(fields[3]))
		require.NoError(t, err)
		require.LessOrEqual(t, score, last)
		last = score
	}
}

func TestRenderMarksRequester(t *testing.T) {
	records := []models.ScoreRecord{
		{UserID: "U1", Score: 100},
		{UserID: "U2", Score: 50},
	}

	out := New(StyleMarker, 12).Render(records, "U2")
	require.Contains(t, out, "*U2*")

	out = New(StyleMe, 12).Render(records, "U2")
	require.Contains(t, out, "Me")
	require.NotContains(t, out, "*U2*")
}

func TestRenderTruncatesLongIDs(t *testing.T) {
	records := []models.ScoreRecord{
		{UserID: "U0123456789abcdef0123456789abcdef", Score: 10},
	}

	out := New(StyleMarker, 12).Render(records, "")
	require.Contains(t, out, "U01234567...")
	require.NotContains(t, out, "abcdef")
}

func TestRenderEmptyBoard(t *testing.T) {
	out := New(StyleMarker, 12).Render(nil, "U1")
	lines := strings.Split(out, "\n")

	require.Len(t, lines, 5)
	require.True(t, strings.HasPrefix(lines[0], "┌"))
	require.True(t, strings.HasSuffix(lines[len(lines)-1], "┘"))
	require.Contains(t, lines[3], "目前還沒有人上榜")
}

func TestRenderDoesNotMutateInput(t *testing.T) {
	records := []models.ScoreRecord{
		{UserID: "U2", Score: 50},
		{UserID: "U1", Score: 100},
	}
	New(StyleMarker, 12).Render(records, "")
	require.Equal(t, "U2", records[0].UserID)
}

func TestParseStyle(t *testing.T) {
	require.Equal(t, StyleMe, ParseStyle("me"))
	require.Equal(t, StyleMarker, ParseStyle("marker"))
	require.Equal(t, StyleMarker, ParseStyle(""))
}
