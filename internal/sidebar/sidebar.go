// Package sidebar keeps the list of persisted kits and replays one into the
// transcript when selected.
package sidebar

import (
	"context"
	"strings"
	"sync"

	"kitlab/internal/kit"
	"kitlab/internal/logging"
)

// UntitledLabel labels a kit saved without a name.
const UntitledLabel = "Untitled Project"

// HistorySource lists and loads persisted kits. *backend.Client satisfies it.
type HistorySource interface {
	ListHistory(ctx context.Context) ([]kit.HistoryEntry, error)
	GetKit(ctx context.Context, id string) (kit.FinalKit, error)
}

// KitRenderer is the part of the transcript a selection touches.
type KitRenderer interface {
	Clear()
	RenderKit(k kit.FinalKit)
}

// Entry is one selectable sidebar row.
type Entry struct {
	ID    string
	Label string
}

// Options configures a Sidebar.
type Options struct {
	// OnViewReset runs before a selected kit replaces the transcript.
	OnViewReset func()
	// OnChange runs after the entry list was replaced.
	OnChange func([]Entry)
}

// Sidebar is safe for concurrent use.
type Sidebar struct {
	source HistorySource
	view   KitRenderer
	opts   Options

	mu       sync.Mutex
	entries  []Entry
	selected string
}

// New creates an empty sidebar. Call Refresh to populate it.
func New(source HistorySource, view KitRenderer, opts Options) *Sidebar {
	return &Sidebar{source: source, view: view, opts: opts}
}

// Refresh reloads the entries in the order the backend returns them. On
// failure the previous entries stay and the error is returned.
func (s *Sidebar) Refresh(ctx context.Context) error {
	list, err := s.source.ListHistory(ctx)
	if err != nil {
		logging.SidebarWarn("history refresh failed: %v", err)
		return err
	}

	entries := make([]Entry, 0, len(list))
	for _, h := range list {
		entries = append(entries, Entry{ID: h.ID, Label: Label(h)})
	}

	s.mu.Lock()
	s.entries = entries
	s.mu.Unlock()

	logging.Sidebar("history refreshed: %d entries", len(entries))
	if s.opts.OnChange != nil {
		s.opts.OnChange(s.Entries())
	}
	return nil
}

// Label is kit_name, or UntitledLabel when absent or blank.
func Label(h kit.HistoryEntry) string {
	if !h.HasName || strings.TrimSpace(h.KitName) == "" {
		return UntitledLabel
	}
	return h.KitName
}

// Select loads a kit and replaces the transcript with it. On failure the
// transcript is left untouched.
func (s *Sidebar) Select(ctx context.Context, id string) error {
	k, err := s.source.GetKit(ctx, id)
	if err != nil {
		logging.SidebarWarn("loading kit %q failed: %v", id, err)
		return err
	}

	if s.opts.OnViewReset != nil {
		s.opts.OnViewReset()
	}
	s.view.Clear()
	s.view.RenderKit(k)

	s.mu.Lock()
	s.selected = id
	s.mu.Unlock()

	logging.Sidebar("kit %q shown (%d sections)", id, len(k.Sections))
	return nil
}

// Entries returns a copy of the current entries.
func (s *Sidebar) Entries() []Entry {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Entry, len(s.entries))
	copy(out, s.entries)
	return out
}

// Empty reports whether there are no entries to show.
func (s *Sidebar) Empty() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries) == 0
}

// Selected returns the id of the last kit shown, if any.
func (s *Sidebar) Selected() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.selected
}
