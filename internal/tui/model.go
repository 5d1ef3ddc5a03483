// Package tui is the terminal consumer: a bubbletea program that shows the
// active record and its fact, and lets the user refresh.
package tui

import (
	"context"
	"errors"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/ryosukesatoh/daily-fact/internal/fetcher"
	"github.com/ryosukesatoh/daily-fact/internal/publisher"
)

// ErrEventBufferFull is returned by Publish when the program is not keeping up.
var ErrEventBufferFull = errors.New("tui: event buffer full")

// Publisher forwards controller events to the program.
type Publisher struct {
	ch      chan publisher.Event
	dropped chan struct{}
}

func NewPublisher(buffer int) *Publisher {
	return &Publisher{
		ch:      make(chan publisher.Event, buffer),
		dropped: make(chan struct{}, 1),
	}
}

// Publish never blocks. When the buffer is full the event is dropped and the
// program is told to re-read the active record.
func (p *Publisher) Publish(_ context.Context, ev publisher.Event) error {
	select {
	case p.ch <- ev:
		return nil
	default:
	}
	select {
	case p.dropped <- struct{}{}:
	default:
	}
	return ErrEventBufferFull
}

func (p *Publisher) Events() <-chan publisher.Event {
	return p.ch
}

// enricher is implemented by the controller; the retry key is only offered
// when the refresher supports it.
type enricher interface {
	Enrich(id string) bool
}

type Model struct {
	refresher publisher.Refresher
	events    <-chan publisher.Event
	dropped   <-chan struct{}
	spinner   spinner.Model

	record  *fetcher.Record
	loading bool
	failed  bool
	lastErr string
	width   int
}

func NewModel(r publisher.Refresher, events <-chan publisher.Event) Model {
	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = pendingStyle

	m := Model{
		refresher: r,
		events:    events,
		spinner:   s,
	}
	if rec, ok := r.CurrentRecord(); ok {
		m.record = &rec
	} else {
		m.loading = true
	}
	return m
}

// Init starts listening for events and loads a record if none is active.
func (m Model) Init() tea.Cmd {
	cmds := []tea.Cmd{m.spinner.Tick, waitForEvent(m.events, m.dropped)}
	if m.loading {
		cmds = append(cmds, refresh(m.refresher))
	}
	return tea.Batch(cmds...)
}

// resync replaces the shown record with the controller's current one.
func (m *Model) resync() {
	rec, ok := m.refresher.CurrentRecord()
	if !ok {
		return
	}
	if m.record == nil || m.record.ID != rec.ID || rec.Fact.IsReady() {
		m.failed = false
	}
	m.record = &rec
}

func (m *Model) startRefresh() tea.Cmd {
	m.loading = true
	return refresh(m.refresher)
}

// Run starts the program on the terminal and blocks until the user quits.
func Run(r publisher.Refresher, p *Publisher) error {
	m := NewModel(r, p.Events())
	m.dropped = p.dropped
	_, err := tea.NewProgram(m, tea.WithAltScreen()).Run()
	return err
}
