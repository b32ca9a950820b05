// Package views turns items into display rows. Rendering is deterministic:
// empty or zero optional fields become a de-emphasized placeholder, and
// text over its per-column threshold is truncated with an ellipsis marker.
package views

import (
	"strconv"

	m "github.com/SanAntonik/MRS/models"
)

const (
	// Placeholder renders for empty/zero optional fields.
	Placeholder = "N/A"
	// Ellipsis marks truncated text.
	Ellipsis = "..."
)

// Per-column truncation thresholds. Thresholds are per-column, not global:
// the title column is tighter in the main list than in the recommender.
const (
	ListTitleLimit        = 20
	RecommenderTitleLimit = 25
	ShortTextLimit        = 20
	LongTextLimit         = 40
)

// Cell is one rendered table cell. Dim marks placeholder cells so the UI
// can de-emphasize them.
type Cell struct {
	Text string `json:"text"`
	Dim  bool   `json:"dim,omitempty"`
}

// Column describes a table column header.
type Column struct {
	Name string `json:"name"`
}

// ListColumns matches the main items table.
var ListColumns = []Column{
	{"ID"}, {"Title"}, {"Year"}, {"Genres"},
	{"Vote Avg"}, {"Vote Count"}, {"Director"}, {"Top Actors"},
}

// RecommenderColumns matches the closest-match and recommendations tables.
var RecommenderColumns = []Column{
	{"Title"}, {"Franchise"}, {"Year"}, {"Genres"},
	{"Vote Avg"}, {"Vote Count"}, {"Director"}, {"Top Actors"},
}

// TextCell renders an optional text field. A limit of 0 disables
// truncation. Truncated text is exactly limit runes plus the marker.
func TextCell(value string, limit int) Cell {
	if value == "" {
		return Cell{Text: Placeholder, Dim: true}
	}
	return Cell{Text: truncate(value, limit)}
}

// TitleCell renders the required title field: never a placeholder.
func TitleCell(value string, limit int) Cell {
	return Cell{Text: truncate(value, limit)}
}

// FloatCell renders an optional numeric field; zero is a placeholder.
func FloatCell(value float64) Cell {
	if value == 0 {
		return Cell{Text: Placeholder, Dim: true}
	}
	return Cell{Text: strconv.FormatFloat(value, 'f', -1, 64)}
}

// IntCell renders an optional integer field; zero is a placeholder.
func IntCell(value int) Cell {
	if value == 0 {
		return Cell{Text: Placeholder, Dim: true}
	}
	return Cell{Text: strconv.Itoa(value)}
}

func truncate(value string, limit int) string {
	if limit <= 0 {
		return value
	}
	runes := []rune(value)
	if len(runes) <= limit {
		return value
	}
	return string(runes[:limit]) + Ellipsis
}

// Row is one rendered item with the id kept for row actions.
type Row struct {
	ID    int    `json:"id"`
	Cells []Cell `json:"cells"`
}

// ListRow renders an item for the main items table.
func ListRow(item m.Item) Row {
	return Row{
		ID: item.ID,
		Cells: []Cell{
			{Text: strconv.Itoa(item.ID)},
			TitleCell(item.Title, ListTitleLimit),
			TextCell(item.ReleaseYear, 0),
			TextCell(item.Genres, ShortTextLimit),
			FloatCell(item.VoteAverage),
			IntCell(item.VoteCount),
			TextCell(item.Director, 0),
			TextCell(item.TopActors, LongTextLimit),
		},
	}
}

// RecommenderRow renders an item for the recommender tables, where the
// title column is wider and the franchise column is shown.
func RecommenderRow(item m.Item) Row {
	return Row{
		ID: item.ID,
		Cells: []Cell{
			TitleCell(item.Title, RecommenderTitleLimit),
			TextCell(item.Franchise, ShortTextLimit),
			TextCell(item.ReleaseYear, 0),
			TextCell(item.Genres, ShortTextLimit),
			FloatCell(item.VoteAverage),
			IntCell(item.VoteCount),
			TextCell(item.Director, 0),
			TextCell(item.TopActors, LongTextLimit),
		},
	}
}

// ListRows renders a whole collection for the main table.
func ListRows(items []m.Item) []Row {
	rows := make([]Row, 0, len(items))
	for _, item := range items {
		rows = append(rows, ListRow(item))
	}
	return rows
}

// RecommenderRows renders a whole collection for the recommendations table.
func RecommenderRows(items []m.Item) []Row {
	rows := make([]Row, 0, len(items))
	for _, item := range items {
		rows = append(rows, RecommenderRow(item))
	}
	return rows
}
