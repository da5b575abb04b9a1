package tui

import (
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
)

// columnDef describes a single table column. Numeric columns sort
// descending when first selected, text columns ascending.
type columnDef struct {
	Title   string
	Numeric bool
}

// tableModel is the generic base for sortable, paginated, searchable tables.
type tableModel struct {
	columns   []columnDef
	sortCol   int // -1 = unsorted
	sortDesc  bool
	page      int // 0-indexed
	pageSize  int
	search    string
	searching bool
	input     textinput.Model
}

const defaultPageSize = 20

func newTableModel(cols []columnDef) tableModel {
	ti := textinput.New()
	ti.Placeholder = "filter..."
	ti.CharLimit = 80
	return tableModel{
		columns:  cols,
		sortCol:  -1,
		pageSize: defaultPageSize,
		input:    ti,
	}
}

// Update handles keyboard input for sorting, pagination and search.
func (t tableModel) Update(msg tea.Msg) (tableModel, tea.Cmd) {
	km, ok := msg.(tea.KeyMsg)
	if !ok {
		return t, nil
	}

	if t.searching {
		switch {
		case key.Matches(km, keys.Escape):
			t.searching = false
			t.input.Blur()
			if t.input.Value() == "" {
				t.search = ""
			}
			return t, nil
		case km.String() == "enter":
			t.search = t.input.Value()
			t.searching = false
			t.input.Blur()
			t.page = 0
			return t, nil
		default:
			var cmd tea.Cmd
			t.input, cmd = t.input.Update(km)
			return t, cmd
		}
	}

	switch {
	case key.Matches(km, keys.Search):
		t.searching = true
		t.input.SetValue(t.search)
		t.input.Focus()
		return t, textinput.Blink
	case key.Matches(km, keys.Escape):
		t.search = ""
		t.input.SetValue("")
		t.page = 0
	case key.Matches(km, keys.PrevPage):
		if t.page > 0 {
			t.page--
		}
	case key.Matches(km, keys.NextPage):
		t.page++
	default:
		col := digitToCol(km.String())
		if col < 0 || col >= len(t.columns) {
			return t, nil
		}
		if col == t.sortCol {
			t.sortDesc = !t.sortDesc
		} else {
			t.sortCol = col
			t.sortDesc = t.columns[col].Numeric
		}
		t.page = 0
	}
	return t, nil
}

// digitToCol converts a "1"–"9" key string to a 0-indexed column number.
// Returns -1 for any other string.
func digitToCol(s string) int {
	if len(s) == 1 && s[0] >= '1' && s[0] <= '9' {
		return int(s[0] - '1')
	}
	return -1
}

// pageCount is always at least 1.
func pageCount(totalRows, pageSize int) int {
	if totalRows == 0 || pageSize <= 0 {
		return 1
	}
	return (totalRows + pageSize - 1) / pageSize
}

// pageBounds returns the half-open range of rows visible on page.
func pageBounds(totalRows, page, pageSize int) (int, int) {
	if pageSize <= 0 {
		return 0, totalRows
	}
	start := page * pageSize
	if start >= totalRows {
		start = 0
	}
	return start, min(start+pageSize, totalRows)
}

// clampPage keeps the page index within bounds for totalRows.
func (t *tableModel) clampPage(totalRows int) {
	pc := pageCount(totalRows, t.pageSize)
	if t.page >= pc {
		t.page = pc - 1
	}
	if t.page < 0 {
		t.page = 0
	}
}
