package ui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/lipgloss"

	"github.com/five82/anchor/internal/presenter"
)

const eventLines = 8

// View implements tea.Model.
func (m Model) View() string {
	styles := m.theme.Styles()

	if m.showHelp {
		return m.renderHelp(styles)
	}

	sections := []string{
		m.renderHeader(styles),
		m.renderCounter(styles),
		m.renderStatus(styles),
	}
	if m.events != nil {
		sections = append(sections, m.renderEvents(styles))
	}
	sections = append(sections, m.renderFooter(styles))
	return lipgloss.JoinVertical(lipgloss.Left, sections...)
}

func (m Model) renderHeader(styles Styles) string {
	title := styles.AccentText.Render("anchor")
	sub := styles.MutedText.Render(fmt.Sprintf("presenter lifecycle demo · %s · delivery %s", m.theme.Name, m.policy))
	line := title + "  " + sub
	if m.width > 0 {
		return styles.Header.Width(m.width).Render(line)
	}
	return styles.Header.Render(line)
}

func (m Model) renderCounter(styles Styles) string {
	s := m.screen
	count := styles.FaintText.Render("–")
	if s.hasShown {
		count = styles.Count.Render(fmt.Sprintf("%d", s.shown))
	}
	title := s.String()
	if p := s.counter(); p != nil {
		title += " · " + stateLabel(p.State())
	}
	body := lipgloss.JoinVertical(lipgloss.Left,
		styles.MutedText.Render(title),
		count,
		styles.FaintText.Render(fmt.Sprintf("%d view updates on this instance", s.updates)),
	)
	panel := styles.FocusPanel
	if m.stopped {
		panel = styles.Panel
	}
	return panel.Render(body)
}

func (m Model) renderStatus(styles Styles) string {
	s := m.screen
	d := s.delegate

	rows := []string{
		m.row(styles, "container", d.State()),
	}

	if p := s.counter(); p != nil {
		state := p.State()
		rows = append(rows,
			m.row(styles, "presenter", p.String()),
			m.row(styles, "state", styles.StateStyle(state).Render(state.String())),
			m.row(styles, "gate", fmt.Sprintf("%d delivered, %d waiting", p.Received(), p.Pending())),
			m.row(styles, "queued", fmt.Sprintf("%d view actions", p.QueuedViewActions())),
		)
	} else {
		rows = append(rows, m.row(styles, "presenter", styles.DangerText.Render("none")))
	}

	id := d.PresenterID()
	if id == "" {
		id = styles.FaintText.Render("not saved")
	}
	rows = append(rows,
		m.row(styles, "savior id", id),
		m.row(styles, "savior", fmt.Sprintf("%d presenters in %d scopes, %d hosts tracked",
			m.savior.Len(), m.savior.Scopes(), m.savior.TrackedHosts())),
		m.row(styles, "retain", m.retainLabel(styles)),
	)
	if m.notice != "" {
		rows = append(rows, styles.InfoText.Render(m.notice))
	}
	return styles.Panel.Render(lipgloss.JoinVertical(lipgloss.Left, rows...))
}

func (m Model) retainLabel(styles Styles) string {
	cfg := m.cfg.Presenter
	parts := []string{
		flag("retain", cfg.RetainPresenter),
		flag("savior", cfg.UseSaviorToRetain),
		flag("main-thread", cfg.CallOnMainThread),
		flag("distinct", cfg.DistinctUntilChanged),
	}
	label := strings.Join(parts, " ")
	if m.retainDisabled {
		label += " " + styles.WarningText.Render("(don't keep screens)")
	}
	return label
}

func flag(name string, on bool) string {
	if on {
		return "+" + name
	}
	return "-" + name
}

func (m Model) row(styles Styles, label, value string) string {
	return styles.MutedText.Render(fmt.Sprintf("%-10s", label)) + " " + styles.Text.Render(value)
}

func (m Model) renderEvents(styles Styles) string {
	entries := m.events.Entries()
	if len(entries) > eventLines {
		entries = entries[len(entries)-eventLines:]
	}
	lines := make([]string, 0, len(entries)+1)
	lines = append(lines, styles.AccentText.Render("events"))
	for _, e := range entries {
		lines = append(lines, styles.FaintText.Render(fmt.Sprintf("%-7s %s", e.Level, e.Tag))+" "+
			styles.Text.Render(e.Msg))
	}
	return styles.Panel.Render(lipgloss.JoinVertical(lipgloss.Left, lines...))
}

func (m Model) renderFooter(styles Styles) string {
	parts := make([]string, 0, len(m.keys.ShortHelp()))
	for _, b := range m.keys.ShortHelp() {
		parts = append(parts, helpEntry(styles, b))
	}
	line := strings.Join(parts, styles.FaintText.Render(" · "))
	if m.width > 0 {
		return styles.Footer.Width(m.width).Render(line)
	}
	return styles.Footer.Render(line)
}

func (m Model) renderHelp(styles Styles) string {
	var cols []string
	for _, group := range m.keys.FullHelp() {
		lines := make([]string, 0, len(group))
		for _, b := range group {
			lines = append(lines, helpEntry(styles, b))
		}
		cols = append(cols, styles.Panel.Render(lipgloss.JoinVertical(lipgloss.Left, lines...)))
	}
	return lipgloss.JoinVertical(lipgloss.Left,
		styles.AccentText.Render("keys"),
		lipgloss.JoinHorizontal(lipgloss.Top, cols...),
		styles.MutedText.Render("press any key to close"),
	)
}

func helpEntry(styles Styles, b key.Binding) string {
	h := b.Help()
	return styles.AccentText.Render(h.Key) + " " + styles.MutedText.Render(h.Desc)
}

func stateLabel(st presenter.State) string {
	switch st {
	case presenter.ViewAttachedAndAwake:
		return "attached"
	case presenter.CreatedWithDetachedView:
		return "detached"
	case presenter.Destroyed:
		return "destroyed"
	default:
		return "initialized"
	}
}
