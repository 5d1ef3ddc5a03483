package tui

import (
	"context"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/ryosukesatoh/daily-fact/internal/publisher"
)

// waitForEvent blocks until the next controller event arrives. Buffered
// events are drained before a drop signal is reported, so the resync that
// follows is never overwritten by older events.
func waitForEvent(events <-chan publisher.Event, dropped <-chan struct{}) tea.Cmd {
	return func() tea.Msg {
		select {
		case ev, ok := <-events:
			return eventOrClosed(ev, ok)
		default:
		}
		select {
		case ev, ok := <-events:
			return eventOrClosed(ev, ok)
		case <-dropped:
			return resyncMsg{}
		}
	}
}

func eventOrClosed(ev publisher.Event, ok bool) tea.Msg {
	if !ok {
		return eventsClosedMsg{}
	}
	return eventMsg{Event: ev}
}

func refresh(r publisher.Refresher) tea.Cmd {
	return func() tea.Msg {
		return refreshDoneMsg{Err: r.Refresh(context.Background())}
	}
}
