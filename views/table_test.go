package views

import (
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	m "github.com/SanAntonik/MRS/models"
)

func TestTextCell(t *testing.T) {
	t.Run("Empty renders dim placeholder", func(t *testing.T) {
		cell := TextCell("", ShortTextLimit)
		assert.Equal(t, "N/A", cell.Text)
		assert.True(t, cell.Dim)
	})

	t.Run("At threshold renders verbatim", func(t *testing.T) {
		value := strings.Repeat("a", ShortTextLimit)
		cell := TextCell(value, ShortTextLimit)
		assert.Equal(t, value, cell.Text)
		assert.False(t, cell.Dim)
	})

	t.Run("Over threshold truncates with marker", func(t *testing.T) {
		value := strings.Repeat("a", ShortTextLimit+5)
		cell := TextCell(value, ShortTextLimit)
		assert.Equal(t, strings.Repeat("a", ShortTextLimit)+"...", cell.Text)
		// Displayed length = threshold + marker length.
		assert.Equal(t, ShortTextLimit+len(Ellipsis), utf8.RuneCountInString(cell.Text))
	})

	t.Run("Zero limit disables truncation", func(t *testing.T) {
		value := strings.Repeat("x", 100)
		cell := TextCell(value, 0)
		assert.Equal(t, value, cell.Text)
	})
}

func TestNumericCells(t *testing.T) {
	assert.Equal(t, Cell{Text: "N/A", Dim: true}, FloatCell(0))
	assert.Equal(t, Cell{Text: "8.8"}, FloatCell(8.8))
	assert.Equal(t, Cell{Text: "N/A", Dim: true}, IntCell(0))
	assert.Equal(t, Cell{Text: "2000000"}, IntCell(2000000))
}

func TestListRow(t *testing.T) {
	item := m.Item{
		ID:          1,
		OwnerID:     7,
		Title:       "Inception",
		ReleaseYear: "2010",
		VoteAverage: 8.8,
		VoteCount:   2000000,
		TopActors:   "Leonardo DiCaprio, Joseph Gordon-Levitt, Elliot Page",
	}

	row := ListRow(item)
	require.Len(t, row.Cells, len(ListColumns))
	assert.Equal(t, 1, row.ID)

	assert.Equal(t, "1", row.Cells[0].Text)
	assert.Equal(t, "Inception", row.Cells[1].Text, "title under threshold renders untruncated")
	assert.Equal(t, "2010", row.Cells[2].Text)
	assert.Equal(t, "N/A", row.Cells[3].Text, "missing genres render the placeholder")
	assert.True(t, row.Cells[3].Dim)
	assert.Equal(t, "8.8", row.Cells[4].Text)
	assert.Equal(t, "2000000", row.Cells[5].Text)
	assert.Equal(t, "Leonardo DiCaprio, Joseph Gordon-Levitt,...", row.Cells[7].Text)
	assert.Equal(t, LongTextLimit+len(Ellipsis), utf8.RuneCountInString(row.Cells[7].Text))
}

func TestTitleThresholdsDifferPerView(t *testing.T) {
	// 23 runes: over the list limit (20) but under the recommender limit (25).
	item := m.Item{ID: 2, Title: "The Grand Budapest Hote"}
	require.Equal(t, 23, utf8.RuneCountInString(item.Title))

	listCell := ListRow(item).Cells[1]
	recCell := RecommenderRow(item).Cells[0]

	assert.Equal(t, "The Grand Budapest H...", listCell.Text)
	assert.Equal(t, "The Grand Budapest Hote", recCell.Text)
}

func TestRecommenderRowShowsFranchise(t *testing.T) {
	item := m.Item{ID: 3, Title: "Iron Man", Franchise: "Marvel Cinematic Universe collection"}

	row := RecommenderRow(item)
	require.Len(t, row.Cells, len(RecommenderColumns))
	assert.Equal(t, "Marvel Cinematic Uni...", row.Cells[1].Text)
}

func TestRowsRenderWholeCollection(t *testing.T) {
	items := []m.Item{{ID: 1, Title: "A"}, {ID: 2, Title: "B"}}

	assert.Len(t, ListRows(items), 2)
	assert.Len(t, RecommenderRows(items), 2)
	assert.Empty(t, ListRows(nil))
}
