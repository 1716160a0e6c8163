package main

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/ruminaider/anki-crossprofile/internal/collection"
)

const pickerPageSize = 15

// pickerItem is one note in the picker.
type pickerItem struct {
	id    int64
	label string
	tags  []string
}

func pickerItems(notes []collection.NotePreview) []pickerItem {
	items := make([]pickerItem, len(notes))
	for i, n := range notes {
		label := strings.Join(strings.Fields(n.Text), " ")
		if label == "" {
			label = fmt.Sprintf("(note %d)", n.ID)
		}
		items[i] = pickerItem{id: n.ID, label: label, tags: n.Tags}
	}
	return items
}

// picker is a multi-select TUI where Enter toggles items and confirms at the
// bottom. "/" filters the list by text or tag.
type picker struct {
	title     string
	items     []pickerItem
	visible   []int // indexes into items that pass the filter
	selected  map[int]bool
	cursor    int // index into visible; len(visible) is the confirm button
	filter    textinput.Model
	filtering bool
	done      bool
}

func newPicker(title string, items []pickerItem) picker {
	ti := textinput.New()
	ti.Placeholder = "type to filter"
	ti.Prompt = "/ "
	ti.CharLimit = 64
	ti.Width = 30

	p := picker{
		title:    title,
		items:    items,
		selected: make(map[int]bool),
		filter:   ti,
	}
	p.applyFilter()
	return p
}

func (p picker) Init() tea.Cmd { return nil }

func (p picker) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	key, ok := msg.(tea.KeyMsg)
	if !ok {
		return p, nil
	}
	if key.String() == "ctrl+c" {
		return p.cancel()
	}
	if p.filtering {
		return p.updateFilter(key)
	}

	switch key.String() {
	case "q", "esc":
		return p.cancel()
	case "up", "k":
		if p.cursor > 0 {
			p.cursor--
		}
	case "down", "j":
		if p.cursor < len(p.visible) {
			p.cursor++
		}
	case "/":
		p.filtering = true
		cmd := p.filter.Focus()
		return p, cmd
	case "enter", " ":
		if p.cursor == len(p.visible) {
			if key.String() == "enter" {
				p.done = true
				return p, tea.Quit
			}
			return p, nil
		}
		i := p.visible[p.cursor]
		p.selected[i] = !p.selected[i]
	case "a":
		for _, i := range p.visible {
			p.selected[i] = true
		}
	case "n":
		for _, i := range p.visible {
			p.selected[i] = false
		}
	}
	return p, nil
}

func (p picker) updateFilter(key tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch key.String() {
	case "esc":
		p.filter.SetValue("")
		p.filter.Blur()
		p.filtering = false
		p.applyFilter()
		return p, nil
	case "enter":
		p.filter.Blur()
		p.filtering = false
		return p, nil
	}

	var cmd tea.Cmd
	p.filter, cmd = p.filter.Update(key)
	p.applyFilter()
	return p, cmd
}

func (p picker) cancel() (tea.Model, tea.Cmd) {
	p.selected = nil
	p.done = true
	return p, tea.Quit
}

// applyFilter recomputes the visible items and resets the cursor.
func (p *picker) applyFilter() {
	needle := strings.ToLower(strings.TrimSpace(p.filter.Value()))
	p.visible = make([]int, 0, len(p.items))
	for i, item := range p.items {
		if needle == "" || itemMatches(item, needle) {
			p.visible = append(p.visible, i)
		}
	}
	p.cursor = 0
}

func itemMatches(item pickerItem, needle string) bool {
	if strings.Contains(strings.ToLower(item.label), needle) {
		return true
	}
	for _, t := range item.tags {
		if strings.Contains(strings.ToLower(t), needle) {
			return true
		}
	}
	return false
}

func (p picker) View() string {
	var b strings.Builder

	b.WriteString("  " + titleStyle.Render(p.title) + "\n")
	b.WriteString("  " + helpStyle.Render("space/enter: toggle · a: all · n: none · /: filter · esc: cancel") + "\n")
	if p.filtering || p.filter.Value() != "" {
		b.WriteString("  " + filterStyle.Render(p.filter.View()) + "\n")
	}
	b.WriteString("\n")

	start, end := p.window()
	if start > 0 {
		b.WriteString(helpStyle.Render(fmt.Sprintf("    ↑ %d more", start)) + "\n")
	}
	for pos := start; pos < end; pos++ {
		i := p.visible[pos]
		item := p.items[i]

		cursor := "  "
		if p.cursor == pos {
			cursor = cursorStyle.Render("> ")
		}
		check := "[ ]"
		style := unselectedStyle
		if p.selected[i] {
			check = "[x]"
			style = selectedStyle
		}
		line := style.Render(check + " " + truncate(item.label, 70))
		if len(item.tags) > 0 {
			line += " " + tagStyle.Render(strings.Join(item.tags, " "))
		}
		b.WriteString("  " + cursor + line + "\n")
	}
	if end < len(p.visible) {
		b.WriteString(helpStyle.Render(fmt.Sprintf("    ↓ %d more", len(p.visible)-end)) + "\n")
	}
	if len(p.visible) == 0 {
		b.WriteString("  " + helpStyle.Render("no matching notes") + "\n")
	}

	// Confirm button
	b.WriteString("\n")
	label := fmt.Sprintf("[ Import %d ]", p.count())
	if p.cursor == len(p.visible) {
		b.WriteString("  " + cursorStyle.Render("> "+label) + "\n")
	} else {
		b.WriteString("    " + label + "\n")
	}

	return b.String()
}

// window returns the range of visible positions to draw so the cursor stays
// on screen.
func (p picker) window() (int, int) {
	n := len(p.visible)
	if n <= pickerPageSize {
		return 0, n
	}
	start := p.cursor - pickerPageSize/2
	if start < 0 {
		start = 0
	}
	if start > n-pickerPageSize {
		start = n - pickerPageSize
	}
	return start, start + pickerPageSize
}

func (p picker) count() int {
	n := 0
	for _, on := range p.selected {
		if on {
			n++
		}
	}
	return n
}

// Selected returns the ids of the selected notes in list order, or nil if
// cancelled.
func (p picker) Selected() []int64 {
	if p.selected == nil {
		return nil
	}
	result := []int64{}
	for i, item := range p.items {
		if p.selected[i] {
			result = append(result, item.id)
		}
	}
	return result
}

func truncate(s string, max int) string {
	r := []rune(s)
	if len(r) <= max {
		return s
	}
	return string(r[:max-1]) + "…"
}

// runPicker runs the multi-select picker and returns the selected note ids.
func runPicker(title string, notes []collection.NotePreview) ([]int64, error) {
	p := newPicker(title, pickerItems(notes))
	model, err := tea.NewProgram(p).Run()
	if err != nil {
		return nil, err
	}
	return model.(picker).Selected(), nil
}
