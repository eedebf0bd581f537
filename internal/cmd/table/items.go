// Package table converts catalog data into rows for the CLI table output.
package table

import (
	"strconv"
	"strings"
	"time"
	"unicode"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/agentstation/hubmap/internal/sources"
	"github.com/agentstation/hubmap/pkg/catalog"
	"github.com/agentstation/hubmap/pkg/normalize"
	"github.com/agentstation/hubmap/pkg/query"
)

// Align represents column alignment in tables.
type Align int

const (
	// AlignDefault uses the default alignment (skip).
	AlignDefault Align = iota
	// AlignLeft aligns content to the left.
	AlignLeft
	// AlignCenter centers content.
	AlignCenter
	// AlignRight aligns content to the right.
	AlignRight
)

// Data represents table formatting data.
type Data struct {
	Headers         []string
	Rows            [][]string
	ColumnAlignment []Align // Optional: column alignment
}

const maxDescription = 60

// CategoryTitle renders a category for humans: "forkedCode" becomes
// "Forked Code".
func CategoryTitle(c catalog.Category) string {
	var b strings.Builder
	for i, r := range string(c) {
		if i > 0 && unicode.IsUpper(r) {
			b.WriteByte(' ')
		}
		b.WriteRune(r)
	}
	return cases.Title(language.English).String(b.String())
}

// ItemsToTableData converts items to table format. Wide output adds the
// timestamps, URL and description.
func ItemsToTableData(items []catalog.Item, wide bool) Data {
	headers := []string{"Category", "Name", "ID", "New", "Popularity", "Tags"}
	align := []Align{AlignLeft, AlignLeft, AlignLeft, AlignCenter, AlignRight, AlignLeft}
	if wide {
		headers = append(headers, "Detail", "Created", "Modified", "URL", "Description")
		align = append(align, AlignLeft, AlignLeft, AlignLeft, AlignLeft, AlignLeft)
	}

	rows := make([][]string, 0, len(items))
	for _, item := range items {
		row := []string{
			CategoryTitle(item.Category),
			item.DisplayName,
			item.ID,
			FormatBool(item.New),
			strconv.Itoa(item.Popularity),
			orDash(strings.Join(item.Tags, ", ")),
		}
		if wide {
			row = append(row,
				orDash(Detail(item)),
				FormatDate(item.CreatedAt),
				FormatDate(item.LastModified),
				item.URL,
				Truncate(item.Description, maxDescription),
			)
		}
		rows = append(rows, row)
	}

	return Data{Headers: headers, Rows: rows, ColumnAlignment: align}
}

// Detail summarizes the category-specific pass-through fields of an item.
func Detail(item catalog.Item) string {
	switch item.Category {
	case catalog.CategoryCode:
		return item.ExtraString(normalize.ExtraLanguage)
	case catalog.CategoryModel:
		return item.ExtraString(normalize.ExtraLibrary)
	case catalog.CategorySpace:
		return item.ExtraString(normalize.ExtraSDK)
	}
	return ""
}

// TagsToTableData lists tag choices one per row.
func TagsToTableData(tags []string) Data {
	rows := make([][]string, 0, len(tags))
	for _, tag := range tags {
		rows = append(rows, []string{tag})
	}
	return Data{Headers: []string{"Tag"}, Rows: rows}
}

// FacetsToTableData lists each facet with its choices.
func FacetsToTableData(f query.Facets) Data {
	rows := [][]string{
		{"Library", orDash(strings.Join(f.Libraries, ", "))},
		{"SDK", orDash(strings.Join(f.SDKs, ", "))},
		{"Dataset", orDash(strings.Join(f.Datasets, ", "))},
		{"Model", orDash(strings.Join(f.Models, ", "))},
		{"Task", orDash(strings.Join(f.Tasks, ", "))},
		{"Modality", orDash(strings.Join(f.Modalities, ", "))},
	}
	return Data{Headers: []string{"Facet", "Choices"}, Rows: rows}
}

// StatsToTableData renders the repository badge as a key/value table.
func StatsToTableData(s sources.RepositoryStats) Data {
	return Data{
		Headers: []string{"Property", "Value"},
		Rows: [][]string{
			{"Repository", s.Repository},
			{"Stars", strconv.Itoa(s.Stars)},
			{"Forks", strconv.Itoa(s.Forks)},
			{"Latest Release", orDash(s.LatestRelease)},
			{"URL", orDash(s.URL)},
		},
		ColumnAlignment: []Align{AlignLeft, AlignLeft},
	}
}

// StateToTableData renders a query and its encoding.
func StateToTableData(p query.Params, state string) Data {
	return Data{
		Headers: []string{"Key", "Value"},
		Rows: [][]string{
			{query.KeyCategory, string(p.Category)},
			{query.KeySearch, orDash(p.Search)},
			{query.KeyTag, orDash(p.Tag)},
			{query.KeySort, string(p.Sort)},
			{query.KeyLibrary, orDash(p.Library)},
			{query.KeySDK, orDash(p.SDK)},
			{query.KeyDataset, orDash(p.Dataset)},
			{query.KeyModel, orDash(p.Model)},
			{query.KeyTask, orDash(p.Task)},
			{query.KeyModality, orDash(p.Modality)},
			{"state", orDash(state)},
		},
	}
}

// FormatDate formats a timestamp as a date, or "-" when unset.
func FormatDate(t time.Time) string {
	if t.IsZero() {
		return "-"
	}
	return t.Format(time.DateOnly)
}

// FormatBool renders true as a check mark and false as empty.
func FormatBool(b bool) string {
	if b {
		return "✓"
	}
	return ""
}

// Truncate shortens s to at most n runes, marking the cut with "...".
func Truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	if n <= 3 {
		return string(r[:n])
	}
	return string(r[:n-3]) + "..."
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
