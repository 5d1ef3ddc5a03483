package tui

import (
	"context"
	"errors"
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/ryosukesatoh/daily-fact/internal/fetcher"
	"github.com/ryosukesatoh/daily-fact/internal/publisher"
)

type mockRefresher struct {
	refreshErr error
	refreshes  int
	record     fetcher.Record
	loaded     bool
	enriched   []string
}

func (m *mockRefresher) Refresh(context.Context) error {
	m.refreshes++
	return m.refreshErr
}

func (m *mockRefresher) CurrentRecord() (fetcher.Record, bool) {
	return m.record, m.loaded
}

func (m *mockRefresher) Enrich(id string) bool {
	m.enriched = append(m.enriched, id)
	return true
}

func testRecord(fact fetcher.FactState) fetcher.Record {
	return fetcher.Record{
		ID:      "abs/1",
		Title:   "Foo Bar",
		Authors: []string{"A. One", "B. Two"},
		Link:    "http://arxiv.org/abs/1",
		Fact:    fact,
	}
}

func key(s string) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

func update(t *testing.T, m Model, msg tea.Msg) (Model, tea.Cmd) {
	t.Helper()
	next, cmd := m.Update(msg)
	model, ok := next.(Model)
	if !ok {
		t.Fatalf("Update returned %T", next)
	}
	return model, cmd
}

func TestModelInitRefreshesWhenIdle(t *testing.T) {
	ref := &mockRefresher{}
	m := NewModel(ref, make(chan publisher.Event))

	if !m.loading {
		t.Error("Expected loading state with no active record")
	}
	if m.Init() == nil {
		t.Fatal("Init should return a command")
	}
	if !strings.Contains(m.View(), "Fetching the latest paper") {
		t.Errorf("Expected loading view, got %q", m.View())
	}
}

func TestModelStartsWithActiveRecord(t *testing.T) {
	ref := &mockRefresher{record: testRecord(fetcher.Ready("X equals Y.")), loaded: true}
	m := NewModel(ref, make(chan publisher.Event))

	if m.loading {
		t.Error("Expected no refresh when a record is already active")
	}
	if !strings.Contains(m.View(), "X equals Y.") {
		t.Error("Expected fact in view")
	}
}

func TestModelAppliesEvents(t *testing.T) {
	m := NewModel(&mockRefresher{}, make(chan publisher.Event))

	m, cmd := update(t, m, eventMsg{Event: publisher.Event{Kind: publisher.EventRecordLoaded, Record: testRecord(fetcher.Pending())}})
	if cmd == nil {
		t.Error("Expected to keep listening for events")
	}
	view := m.View()
	if !strings.Contains(view, "Foo Bar") || !strings.Contains(view, "generating") {
		t.Errorf("Expected pending card, got %q", view)
	}

	m, _ = update(t, m, eventMsg{Event: publisher.Event{Kind: publisher.EventFactReady, Record: testRecord(fetcher.Ready("X equals Y."))}})
	view = m.View()
	if !strings.Contains(view, "X equals Y.") {
		t.Errorf("Expected fact in view, got %q", view)
	}
	if strings.Contains(view, "generating") {
		t.Error("Expected pending marker to be gone")
	}
}

func TestModelGenerationFailureAndRetry(t *testing.T) {
	ref := &mockRefresher{}
	m := NewModel(ref, make(chan publisher.Event))
	m, _ = update(t, m, eventMsg{Event: publisher.Event{Kind: publisher.EventRecordLoaded, Record: testRecord(fetcher.Pending())}})
	m, _ = update(t, m, eventMsg{Event: publisher.Event{
		Kind:   publisher.EventGenerationFailed,
		Record: testRecord(fetcher.Pending()),
		Err:    errors.New("quota exceeded"),
	}})

	view := m.View()
	if !strings.Contains(view, "quota exceeded") {
		t.Errorf("Expected error line, got %q", view)
	}
	if !strings.Contains(view, "g: retry fact") {
		t.Errorf("Expected retry hint, got %q", view)
	}

	m, _ = update(t, m, key("g"))
	if len(ref.enriched) != 1 || ref.enriched[0] != "abs/1" {
		t.Errorf("Expected Enrich(abs/1), got %v", ref.enriched)
	}
	if m.failed || m.lastErr != "" {
		t.Error("Expected failure to be cleared after retry")
	}
}

func TestModelRefreshKey(t *testing.T) {
	ref := &mockRefresher{record: testRecord(fetcher.Pending()), loaded: true}
	m := NewModel(ref, make(chan publisher.Event))

	m, cmd := update(t, m, key("r"))
	if cmd == nil {
		t.Fatal("Expected refresh command")
	}
	if !m.loading {
		t.Error("Expected loading state")
	}

	// A second press while loading is ignored.
	if _, cmd := update(t, m, key("r")); cmd != nil {
		t.Error("Expected no command while already loading")
	}

	msg := cmd()
	if _, ok := msg.(refreshDoneMsg); !ok {
		t.Fatalf("Expected refreshDoneMsg, got %T", msg)
	}
	if ref.refreshes != 1 {
		t.Errorf("Expected 1 refresh, got %d", ref.refreshes)
	}

	m, _ = update(t, m, msg)
	if m.loading {
		t.Error("Expected loading to end")
	}
}

func TestModelRefreshFailure(t *testing.T) {
	m := NewModel(&mockRefresher{}, make(chan publisher.Event))
	m, _ = update(t, m, refreshDoneMsg{Err: errors.New("network down")})

	if m.loading {
		t.Error("Expected loading to end")
	}
	if !strings.Contains(m.View(), "network down") {
		t.Errorf("Expected error line, got %q", m.View())
	}
}

func TestModelQuit(t *testing.T) {
	m := NewModel(&mockRefresher{}, make(chan publisher.Event))
	_, cmd := update(t, m, key("q"))
	if cmd == nil {
		t.Fatal("Expected quit command")
	}
	if _, ok := cmd().(tea.QuitMsg); !ok {
		t.Error("Expected tea.QuitMsg")
	}
}

func TestWaitForEvent(t *testing.T) {
	ch := make(chan publisher.Event, 1)
	ch <- publisher.Event{Kind: publisher.EventNoRecord}

	msg := waitForEvent(ch, nil)()
	ev, ok := msg.(eventMsg)
	if !ok || ev.Event.Kind != publisher.EventNoRecord {
		t.Errorf("Expected eventMsg, got %#v", msg)
	}

	close(ch)
	if _, ok := waitForEvent(ch, nil)().(eventsClosedMsg); !ok {
		t.Error("Expected eventsClosedMsg after close")
	}
}

func TestPublisherDoesNotBlock(t *testing.T) {
	p := NewPublisher(1)
	if err := p.Publish(context.Background(), publisher.Event{Kind: publisher.EventNoRecord}); err != nil {
		t.Fatalf("Publish returned error: %v", err)
	}
	if err := p.Publish(context.Background(), publisher.Event{Kind: publisher.EventNoRecord}); !errors.Is(err, ErrEventBufferFull) {
		t.Errorf("Expected ErrEventBufferFull, got %v", err)
	}
	if ev := <-p.Events(); ev.Kind != publisher.EventNoRecord {
		t.Errorf("Unexpected event %v", ev.Kind)
	}

	// The dropped event is reported once the buffer has been drained.
	if _, ok := waitForEvent(p.Events(), p.dropped)().(resyncMsg); !ok {
		t.Error("Expected resyncMsg after a dropped event")
	}
}

func TestWaitForEventDrainsBeforeResync(t *testing.T) {
	ch := make(chan publisher.Event, 1)
	dropped := make(chan struct{}, 1)
	ch <- publisher.Event{Kind: publisher.EventRecordLoaded}
	dropped <- struct{}{}

	if _, ok := waitForEvent(ch, dropped)().(eventMsg); !ok {
		t.Fatal("Expected the buffered event before the resync")
	}
	if _, ok := waitForEvent(ch, dropped)().(resyncMsg); !ok {
		t.Error("Expected resyncMsg once the buffer is empty")
	}
}

func TestModelResyncAfterDroppedFactReady(t *testing.T) {
	ref := &mockRefresher{}
	m := NewModel(ref, make(chan publisher.Event))
	m, _ = update(t, m, eventMsg{Event: publisher.Event{Kind: publisher.EventRecordLoaded, Record: testRecord(fetcher.Pending())}})

	// fact_ready was dropped; the controller already holds the fact.
	ref.record, ref.loaded = testRecord(fetcher.Ready("X equals Y.")), true
	m, cmd := update(t, m, resyncMsg{})
	if cmd == nil {
		t.Error("Expected to keep listening for events")
	}
	view := m.View()
	if !strings.Contains(view, "X equals Y.") || strings.Contains(view, "generating") {
		t.Errorf("Expected the ready fact after resync, got %q", view)
	}
}

func TestModelRefreshDoneResyncs(t *testing.T) {
	ref := &mockRefresher{}
	m := NewModel(ref, make(chan publisher.Event))

	ref.record, ref.loaded = testRecord(fetcher.Pending()), true
	m, _ = update(t, m, refreshDoneMsg{})
	if m.record == nil || m.record.ID != "abs/1" {
		t.Fatalf("Expected the active record after refresh, got %+v", m.record)
	}
	if !strings.Contains(m.View(), "Foo Bar") {
		t.Errorf("Expected record card, got %q", m.View())
	}
}
