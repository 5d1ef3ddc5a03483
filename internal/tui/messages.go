package tui

import "github.com/ryosukesatoh/daily-fact/internal/publisher"

// eventMsg carries a controller transition into the program.
type eventMsg struct {
	Event publisher.Event
}

// refreshDoneMsg is sent when a Refresh call returns.
type refreshDoneMsg struct {
	Err error
}

// resyncMsg is sent after the publisher dropped an event; the model re-reads
// the active record instead.
type resyncMsg struct{}

// eventsClosedMsg is sent once the event channel is closed.
type eventsClosedMsg struct{}
