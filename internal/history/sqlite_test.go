package history

import (
	"context"
	"testing"
	"time"

	"balatro-bridge/bridge"
	"balatro-bridge/game"
	"balatro-bridge/protocol"
)

func newMemoryService(t *testing.T) *SQLiteService {
	t.Helper()
	s, err := NewSQLiteService(":memory:")
	if err != nil {
		t.Fatalf("open :memory: sqlite: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func sampleEvent(outcome bridge.Outcome, at time.Time) bridge.Event {
	return bridge.Event{
		At:          at,
		Phase:       game.PhaseSelectingHand,
		Fingerprint: "SELECTING_HAND|1|1|4|4|3|8|0|noshop",
		Outcome:     outcome,
		ActionType:  protocol.ActionDiscard,
		Latency:     35 * time.Millisecond,
		Request:     `{"ante":1}`,
		Response:    `{"action_type":"discard"}`,
	}
}

func TestSQLiteService_RecordAndList(t *testing.T) {
	s := newMemoryService(t)

	base := time.Date(2026, 8, 25, 10, 0, 0, 0, time.UTC)
	s.RecordExchange(sampleEvent(bridge.OutcomeOK, base))
	s.RecordExchange(sampleEvent(bridge.OutcomeExchangeError, base.Add(time.Second)))

	records, err := s.ListRecent(context.Background(), 10)
	if err != nil {
		t.Fatalf("ListRecent err: %v", err)
	}
	if len(records) != 2 {
		t.Fatalf("want 2 records, got %d", len(records))
	}
	// Newest first.
	if records[0].Outcome != string(bridge.OutcomeExchangeError) {
		t.Fatalf("order wrong: %+v", records)
	}
	rec := records[1]
	if rec.Phase != string(game.PhaseSelectingHand) || rec.ActionType != "discard" {
		t.Fatalf("record = %+v", rec)
	}
	if rec.LatencyMs != 35 {
		t.Fatalf("latency = %d", rec.LatencyMs)
	}
	if rec.Request != `{"ante":1}` || rec.Response != `{"action_type":"discard"}` {
		t.Fatalf("wire text not persisted: %+v", rec)
	}
	if !rec.At.Equal(base) {
		t.Fatalf("at = %v", rec.At)
	}
}

func TestSQLiteService_SkipsEventsWithoutFingerprint(t *testing.T) {
	s := newMemoryService(t)
	ev := sampleEvent(bridge.OutcomeOK, time.Now())
	ev.Fingerprint = ""
	s.RecordExchange(ev)

	records, err := s.ListRecent(context.Background(), 10)
	if err != nil {
		t.Fatalf("ListRecent err: %v", err)
	}
	if len(records) != 0 {
		t.Fatalf("fingerprint-less event persisted: %+v", records)
	}
}

func TestSQLiteService_TrimsToRecentLimit(t *testing.T) {
	s := newMemoryService(t)
	s.recentLimit = 3

	base := time.Date(2026, 8, 25, 10, 0, 0, 0, time.UTC)
	for i := 0; i < 5; i++ {
		s.RecordExchange(sampleEvent(bridge.OutcomeOK, base.Add(time.Duration(i)*time.Second)))
	}

	records, err := s.ListRecent(context.Background(), 50)
	if err != nil {
		t.Fatalf("ListRecent err: %v", err)
	}
	if len(records) != 3 {
		t.Fatalf("want 3 retained records, got %d", len(records))
	}
	// The newest three survive the trim.
	if !records[0].At.Equal(base.Add(4 * time.Second)) {
		t.Fatalf("newest = %v", records[0].At)
	}
	if !records[2].At.Equal(base.Add(2 * time.Second)) {
		t.Fatalf("oldest retained = %v", records[2].At)
	}
}

func TestSQLiteService_CountByOutcome(t *testing.T) {
	s := newMemoryService(t)
	now := time.Now()
	s.RecordExchange(sampleEvent(bridge.OutcomeOK, now))
	s.RecordExchange(sampleEvent(bridge.OutcomeOK, now))
	s.RecordExchange(sampleEvent(bridge.OutcomeConnectError, now))

	counts, err := s.CountByOutcome(context.Background())
	if err != nil {
		t.Fatalf("CountByOutcome err: %v", err)
	}
	if counts["ok"] != 2 || counts["connect_error"] != 1 {
		t.Fatalf("counts = %v", counts)
	}
}

func TestAsSink(t *testing.T) {
	s := newMemoryService(t)
	sink := AsSink(s)
	sink.Publish(sampleEvent(bridge.OutcomeOK, time.Now()))

	records, err := s.ListRecent(context.Background(), 10)
	if err != nil {
		t.Fatalf("ListRecent err: %v", err)
	}
	if len(records) != 1 {
		t.Fatalf("sink did not persist, got %d records", len(records))
	}
}

func TestNoopService(t *testing.T) {
	t.Setenv("HISTORY_MODE", "")
	s, backend, err := NewServiceFromEnv()
	if err != nil {
		t.Fatalf("NewServiceFromEnv err: %v", err)
	}
	defer s.Close()
	if backend != "off" {
		t.Fatalf("backend = %q", backend)
	}
	s.RecordExchange(sampleEvent(bridge.OutcomeOK, time.Now()))
	records, err := s.ListRecent(context.Background(), 10)
	if err != nil || len(records) != 0 {
		t.Fatalf("noop service should store nothing: %v, %v", records, err)
	}
}

func TestNewServiceFromEnv_SQLite(t *testing.T) {
	t.Setenv("HISTORY_MODE", "sqlite")
	t.Setenv("HISTORY_LOCAL_DATABASE_PATH", ":memory:")
	s, backend, err := NewServiceFromEnv()
	if err != nil {
		t.Fatalf("NewServiceFromEnv err: %v", err)
	}
	defer s.Close()
	if backend != "sqlite" {
		t.Fatalf("backend = %q", backend)
	}
}
