package ui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/reflow/truncate"
	"github.com/muesli/reflow/wordwrap"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"

	"kitlab/internal/kit"
	"kitlab/internal/render"
)

const (
	minWidth  = 20
	tileWidth = 26
)

// TerminalFormatter renders transcript artifacts for a terminal of Width
// columns.
type TerminalFormatter struct {
	Styles Styles
	Width  int

	renderer *glamour.TermRenderer
}

// NewTerminalFormatter builds a formatter. Markdown in ai messages is
// rendered through glamour when a renderer can be created.
func NewTerminalFormatter(styles Styles, width int) *TerminalFormatter {
	if width < minWidth {
		width = minWidth
	}
	style := "light"
	if styles.Theme.IsDark {
		style = "dark"
	}
	renderer, _ := glamour.NewTermRenderer(
		glamour.WithStandardStyle(style),
		glamour.WithWordWrap(width-4),
	)
	return &TerminalFormatter{Styles: styles, Width: width, renderer: renderer}
}

var _ render.Formatter = (*TerminalFormatter)(nil)

// Message renders a chat bubble. User text is right-aligned.
func (f *TerminalFormatter) Message(role kit.Role, markup string) string {
	text := MarkupText(markup)
	if role == kit.RoleUser {
		body := f.Styles.UserMessage.Render(wordwrap.String(text, f.Width*3/4))
		label := f.Styles.RoleLabel.Render("You")
		return lipgloss.PlaceHorizontal(f.Width, lipgloss.Right,
			lipgloss.JoinVertical(lipgloss.Right, label, body))
	}
	label := f.Styles.RoleLabel.Render("Lab")
	return lipgloss.JoinVertical(lipgloss.Left, label, f.Styles.AIMessage.Render(f.markdown(text)))
}

// Clarification renders the intro line and a numbered question list.
func (f *TerminalFormatter) Clarification(questions []string) string {
	var sb strings.Builder
	sb.WriteString(render.ClarificationIntro)
	for i, q := range questions {
		sb.WriteString(fmt.Sprintf("\n%d. %s", i+1, wordwrap.String(q, f.Width-8)))
	}
	label := f.Styles.RoleLabel.Render("Lab")
	return lipgloss.JoinVertical(lipgloss.Left, label, f.Styles.AIMessage.Render(sb.String()))
}

// Kit renders each section header followed by a grid of item tiles.
func (f *TerminalFormatter) Kit(k kit.FinalKit) string {
	perRow := f.Width / (tileWidth + 2)
	if perRow < 1 {
		perRow = 1
	}

	var blocks []string
	for _, s := range k.Sections {
		blocks = append(blocks, f.Styles.Section.Render(strings.ToUpper(s.Name)))
		var row []string
		for _, raw := range s.Items {
			row = append(row, f.tile(kit.NormalizeItem(raw)))
			if len(row) == perRow {
				blocks = append(blocks, lipgloss.JoinHorizontal(lipgloss.Top, row...))
				row = nil
			}
		}
		if len(row) > 0 {
			blocks = append(blocks, lipgloss.JoinHorizontal(lipgloss.Top, row...))
		}
	}
	return lipgloss.JoinVertical(lipgloss.Left, blocks...)
}

func (f *TerminalFormatter) tile(it kit.Item) string {
	inner := tileWidth - 4
	lines := []string{
		f.Styles.Title.Render(truncate.StringWithTail(it.Name, uint(inner), "…")),
	}
	if it.Description != "" {
		desc := wordwrap.String(it.Description, inner)
		if parts := strings.Split(desc, "\n"); len(parts) > 2 {
			desc = parts[0] + "\n" + truncate.StringWithTail(parts[1], uint(inner-1), "") + "…"
		}
		lines = append(lines, f.Styles.Muted.Render(desc))
	}
	lines = append(lines, f.Styles.Price.Render(it.Price))
	if it.BuyURL != kit.InertLink {
		lines = append(lines, f.Styles.Link.Render(truncate.StringWithTail(it.BuyURL, uint(inner), "…")))
	}
	return f.Styles.Tile.Width(tileWidth).Render(strings.Join(lines, "\n"))
}

// Comparison renders a single card with side-by-side pros and cons.
func (f *TerminalFormatter) Comparison(c kit.Comparison) string {
	header := lipgloss.JoinHorizontal(lipgloss.Center,
		f.Styles.Title.Render(c.Name), " ", f.Styles.Badge.Render(kit.NormalizePrice(c.Price)))

	col := (f.Width - 6) / 2
	if col < 10 {
		col = 10
	}
	pros := f.list("Pros", "+ ", c.Pros, f.Styles.Pro, col)
	cons := f.list("Cons", "- ", c.Cons, f.Styles.Con, col)

	parts := []string{header}
	if c.Description != "" {
		parts = append(parts, f.Styles.Muted.Render(wordwrap.String(c.Description, f.Width-6)))
	}
	parts = append(parts, lipgloss.JoinHorizontal(lipgloss.Top, pros, "  ", cons))
	parts = append(parts, f.Styles.Link.Render("Buy: "+kit.LinkURL(kit.RawItem{BuyURL: c.BuyURL})))
	return f.Styles.Tile.Render(lipgloss.JoinVertical(lipgloss.Left, parts...))
}

func (f *TerminalFormatter) list(title, bullet string, entries []string, style lipgloss.Style, width int) string {
	lines := []string{style.Bold(true).Render(title)}
	for _, e := range entries {
		lines = append(lines, style.Render(bullet+wordwrap.String(e, width-len(bullet))))
	}
	return lipgloss.NewStyle().Width(width).Render(strings.Join(lines, "\n"))
}

// markdown renders with panic recovery.
func (f *TerminalFormatter) markdown(content string) (result string) {
	defer func() {
		if r := recover(); r != nil {
			result = wordwrap.String(content, f.Width-4)
		}
	}()

	if f.renderer != nil && content != "" {
		if rendered, err := f.renderer.Render(content); err == nil {
			return strings.Trim(rendered, "\n")
		}
	}
	return wordwrap.String(content, f.Width-4)
}

// MarkupText flattens trusted message markup to plain text. Entities are
// decoded, <br> and block elements become line breaks, and list items get
// a bullet.
func MarkupText(markup string) string {
	nodes, err := html.ParseFragment(strings.NewReader(markup), &html.Node{
		Type:     html.ElementNode,
		Data:     "div",
		DataAtom: atom.Div,
	})
	if err != nil {
		return markup
	}

	var sb strings.Builder
	var walk func(n *html.Node)
	walk = func(n *html.Node) {
		switch n.Type {
		case html.TextNode:
			sb.WriteString(n.Data)
			return
		case html.ElementNode:
			switch n.DataAtom {
			case atom.Br:
				sb.WriteString("\n")
				return
			case atom.Li:
				newline(&sb)
				sb.WriteString("• ")
			case atom.P, atom.Div, atom.Ul, atom.Ol, atom.H1, atom.H2, atom.H3, atom.H4, atom.H5, atom.H6:
				newline(&sb)
			case atom.Script, atom.Style:
				return
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	for _, n := range nodes {
		walk(n)
	}
	return strings.TrimSpace(sb.String())
}

func newline(sb *strings.Builder) {
	if s := sb.String(); s != "" && !strings.HasSuffix(s, "\n") {
		sb.WriteString("\n")
	}
}
