package chat

import (
	"github.com/charmbracelet/bubbles/list"
	"github.com/muesli/reflow/truncate"

	"kitlab/cmd/kitlab/ui"
	"kitlab/internal/sidebar"
)

// historyItem adapts a sidebar entry to the list component.
type historyItem struct {
	entry sidebar.Entry
	label string
}

func (i historyItem) Title() string       { return i.label }
func (i historyItem) Description() string { return "" }
func (i historyItem) FilterValue() string { return i.entry.Label }

func newHistoryList(styles ui.Styles, width, height int) list.Model {
	delegate := list.NewDefaultDelegate()
	delegate.ShowDescription = false
	delegate.SetSpacing(0)
	delegate.Styles.SelectedTitle = delegate.Styles.SelectedTitle.
		Foreground(styles.Theme.Primary).
		BorderForeground(styles.Theme.Primary)

	l := list.New(nil, delegate, width, height)
	l.Title = "History"
	l.Styles.Title = styles.Title
	l.SetShowHelp(false)
	l.SetShowStatusBar(false)
	l.SetFilteringEnabled(false)
	l.SetStatusBarItemName("kit", "kits")
	return l
}

// historyItems labels entries for a sidebar of the given width.
func historyItems(entries []sidebar.Entry, width int) []list.Item {
	limit := width - 4
	if limit < 4 {
		limit = 4
	}
	items := make([]list.Item, 0, len(entries))
	for _, e := range entries {
		items = append(items, historyItem{
			entry: e,
			label: truncate.StringWithTail(e.Label, uint(limit), "…"),
		})
	}
	return items
}
