package tui

import (
	"fmt"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/ryosukesatoh/daily-fact/internal/publisher"
)

// Update implements tea.Model interface
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKeyPress(msg)
	case tea.WindowSizeMsg:
		m.width = msg.Width
		return m, nil
	case eventMsg:
		m.applyEvent(msg.Event)
		return m, waitForEvent(m.events, m.dropped)
	case resyncMsg:
		m.resync()
		return m, waitForEvent(m.events, m.dropped)
	case refreshDoneMsg:
		m.loading = false
		if msg.Err != nil {
			m.lastErr = fmt.Sprintf("Refresh failed: %v", msg.Err)
		}
		m.resync()
		return m, nil
	case eventsClosedMsg:
		return m, nil
	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}
	return m, nil
}

func (m Model) handleKeyPress(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "ctrl+c", "q":
		return m, tea.Quit
	case "r":
		if m.loading {
			return m, nil
		}
		m.lastErr = ""
		return m, m.startRefresh()
	case "g":
		e, ok := m.refresher.(enricher)
		if !ok || m.record == nil || !m.failed {
			return m, nil
		}
		if e.Enrich(m.record.ID) {
			m.failed = false
			m.lastErr = ""
		}
	}
	return m, nil
}

func (m *Model) applyEvent(ev publisher.Event) {
	switch ev.Kind {
	case publisher.EventRecordLoaded, publisher.EventFactReady:
		rec := ev.Record
		m.record = &rec
		m.failed = false
		m.lastErr = ""
	case publisher.EventGenerationFailed:
		if m.record != nil && m.record.ID == ev.Record.ID {
			m.failed = true
		}
		m.lastErr = fmt.Sprintf("Fact generation failed: %v", ev.Err)
	case publisher.EventFetchFailed:
		m.lastErr = fmt.Sprintf("Refresh failed: %v", ev.Err)
	case publisher.EventNoRecord:
		m.lastErr = "The feed returned no entries."
	}
}
