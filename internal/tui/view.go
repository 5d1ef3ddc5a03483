package tui

import "strings"

// View implements tea.Model interface
func (m Model) View() string {
	var b strings.Builder

	b.WriteString(titleStyle.Render("Daily Fact"))
	b.WriteString("\n")

	switch {
	case m.record == nil && m.loading:
		b.WriteString(m.spinner.View() + " Fetching the latest paper...")
		b.WriteString("\n")
	case m.record == nil:
		b.WriteString(infoStyle.Render("No paper loaded."))
		b.WriteString("\n")
	default:
		b.WriteString(m.card())
		b.WriteString("\n")
		if m.loading {
			b.WriteString(m.spinner.View() + " Refreshing...")
			b.WriteString("\n")
		}
	}

	if m.lastErr != "" {
		b.WriteString("\n")
		b.WriteString(errorStyle.Render(m.lastErr))
		b.WriteString("\n")
	}

	b.WriteString("\n")
	b.WriteString(infoStyle.Render(m.help()))
	return b.String()
}

func (m Model) card() string {
	rec := m.record
	var b strings.Builder

	b.WriteString(recordTitleStyle.Render(rec.Title))
	b.WriteString("\n")
	meta := strings.Join(rec.Authors, ", ")
	if !rec.Published.IsZero() {
		meta += " | " + rec.Published.Format("2006-01-02")
	}
	if rec.Category != "" {
		meta += " | " + rec.Category
	}
	b.WriteString(infoStyle.Render(meta))
	b.WriteString("\n\n")

	switch text, ok := rec.Fact.Text(); {
	case ok:
		b.WriteString(factStyle.Render(text))
	case m.failed:
		b.WriteString(pendingStyle.Render("No fact yet."))
	default:
		b.WriteString(m.spinner.View() + pendingStyle.Render(" generating…"))
	}
	b.WriteString("\n\n")
	b.WriteString(infoStyle.Render(rec.Link))

	style := boxStyle
	if m.width > 4 {
		style = style.Width(m.width - 4)
	}
	return style.Render(b.String())
}

func (m Model) help() string {
	keys := []string{"r: refresh"}
	if _, ok := m.refresher.(enricher); ok && m.failed {
		keys = append(keys, "g: retry fact")
	}
	keys = append(keys, "q: quit")
	return strings.Join(keys, " • ")
}
