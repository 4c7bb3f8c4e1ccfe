package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/benbeisheim/chess-backend/internal/model"
	"github.com/benbeisheim/chess-backend/internal/store"
	"github.com/google/go-cmp/cmp"
)

type memStore struct {
	mu      sync.Mutex
	records map[string]store.Record
	deleted []string
}

func newMemStore() *memStore {
	return &memStore{records: make(map[string]store.Record)}
}

func (m *memStore) Save(_ context.Context, rec store.Record) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.records[rec.ID] = rec
	return nil
}

func (m *memStore) Delete(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.records, id)
	m.deleted = append(m.deleted, id)
	return nil
}

func (m *memStore) LoadAll(context.Context) ([]store.Record, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]store.Record, 0, len(m.records))
	for _, rec := range m.records {
		out = append(out, rec)
	}
	return out, nil
}

func (m *memStore) get(id string) (store.Record, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	rec, ok := m.records[id]
	return rec, ok
}

func TestGameManager_CreateAndGet(t *testing.T) {
	gm := newTestManager(t, ManagerOptions{Strategy: &firstMove{}})

	s, err := gm.CreateGame("p1", "", "")
	if err != nil {
		t.Fatalf("CreateGame: %v", err)
	}
	if s.HumanSide != model.White || s.Owner != "p1" {
		t.Errorf("session = side %s owner %s, want white p1", s.HumanSide, s.Owner)
	}
	got, err := gm.GetGame(s.ID)
	if err != nil || got != s {
		t.Errorf("GetGame(%s) = %p, %v", s.ID, got, err)
	}
	if _, err := gm.GetGame("missing"); !errors.Is(err, ErrGameNotFound) {
		t.Errorf("GetGame(missing) error = %v, want ErrGameNotFound", err)
	}
	if n := gm.Count(); n != 1 {
		t.Errorf("Count = %d, want 1", n)
	}
}

func TestGameManager_CreateRejectsBadInput(t *testing.T) {
	gm := newTestManager(t, ManagerOptions{Strategy: &firstMove{}})
	if _, err := gm.CreateGame("p1", "purple", ""); !errors.Is(err, model.ErrInvalidPosition) {
		t.Errorf("bad side error = %v, want ErrInvalidPosition", err)
	}
	if _, err := gm.CreateGame("p1", model.White, "8/8/8/8/8/8/8/8 w - - 0 1"); !errors.Is(err, model.ErrInvalidPosition) {
		t.Errorf("kingless FEN error = %v, want ErrInvalidPosition", err)
	}
	if n := gm.Count(); n != 0 {
		t.Errorf("Count = %d after failed creates, want 0", n)
	}
}

func TestGameManager_PersistsAndRestores(t *testing.T) {
	st := newMemStore()
	gm := NewGameManager(ManagerOptions{Strategy: &firstMove{}, Store: st})
	s, err := gm.CreateGame("p1", model.White, "")
	if err != nil {
		t.Fatalf("CreateGame: %v", err)
	}
	if _, err := s.Move("p1", mustMove(t, "e2e4")); err != nil {
		t.Fatalf("Move: %v", err)
	}
	s.opponentWG.Wait()
	want := s.View()
	gm.Close()

	rec, ok := st.get(s.ID)
	if !ok {
		t.Fatal("session was not saved")
	}
	if len(rec.Moves) != 2 || rec.Moves[0] != "e2e4" || rec.StartFEN != model.StartingFEN {
		t.Errorf("record = %+v", rec)
	}

	restored := newTestManager(t, ManagerOptions{Strategy: &firstMove{}, Store: st})
	n, err := restored.Restore(context.Background())
	if err != nil || n != 1 {
		t.Fatalf("Restore = %d, %v, want 1 session", n, err)
	}
	again, err := restored.GetGame(s.ID)
	if err != nil {
		t.Fatalf("GetGame after restore: %v", err)
	}
	if diff := cmp.Diff(want, again.View()); diff != "" {
		t.Errorf("restored view mismatch (-want +got):\n%s", diff)
	}
	if again.Owner != "p1" {
		t.Errorf("restored owner = %q", again.Owner)
	}
}

func TestGameManager_RestoreResumesComputerTurn(t *testing.T) {
	st := newMemStore()
	st.records["g1"] = store.Record{ID: "g1", Owner: "p1", HumanSide: "white", StartFEN: model.StartingFEN, Moves: []string{"e2e4"}}

	gm := newTestManager(t, ManagerOptions{Strategy: &firstMove{}, Store: st})
	if _, err := gm.Restore(context.Background()); err != nil {
		t.Fatalf("Restore: %v", err)
	}
	s, err := gm.GetGame("g1")
	if err != nil {
		t.Fatalf("GetGame: %v", err)
	}
	s.opponentWG.Wait()
	if n := len(s.View().State.MoveHistory); n != 2 {
		t.Errorf("history has %d plies, want the computer reply too", n)
	}
}

func TestGameManager_RestoreDropsBrokenRecords(t *testing.T) {
	st := newMemStore()
	st.records["bad-move"] = store.Record{ID: "bad-move", Owner: "p1", HumanSide: "white", Moves: []string{"e2e5"}}
	st.records["bad-side"] = store.Record{ID: "bad-side", Owner: "p1", HumanSide: "green"}
	st.records["ok"] = store.Record{ID: "ok", Owner: "p1", HumanSide: "black", StartFEN: "4k3/8/8/8/8/8/8/4K2R b - - 0 1"}

	gm := newTestManager(t, ManagerOptions{Strategy: &firstMove{}, Store: st})
	n, err := gm.Restore(context.Background())
	if err != nil || n != 1 {
		t.Fatalf("Restore = %d, %v, want 1", n, err)
	}
	if _, err := gm.GetGame("ok"); err != nil {
		t.Errorf("GetGame(ok): %v", err)
	}
	for _, id := range []string{"bad-move", "bad-side"} {
		if _, ok := st.get(id); ok {
			t.Errorf("broken record %s left in store", id)
		}
	}
}

func TestGameManager_ExpiresIdleSessions(t *testing.T) {
	st := newMemStore()
	gm := newTestManager(t, ManagerOptions{
		Strategy:      &firstMove{},
		Store:         st,
		IdleTimeout:   time.Minute,
		SweepInterval: time.Hour,
	})
	idle, err := gm.CreateGame("p1", model.White, "")
	if err != nil {
		t.Fatalf("CreateGame: %v", err)
	}
	watched, err := gm.CreateGame("p2", model.White, "")
	if err != nil {
		t.Fatalf("CreateGame: %v", err)
	}
	if err := watched.Attach(&recordingConn{}, "p2"); err != nil {
		t.Fatalf("Attach: %v", err)
	}

	gm.expire(time.Now().Add(30 * time.Second))
	if gm.Count() != 2 {
		t.Fatalf("sessions expired early")
	}

	gm.expire(time.Now().Add(2 * time.Minute))
	if _, err := gm.GetGame(idle.ID); !errors.Is(err, ErrGameNotFound) {
		t.Errorf("idle session still present: %v", err)
	}
	if _, err := gm.GetGame(watched.ID); err != nil {
		t.Errorf("session with a live connection expired: %v", err)
	}
	if _, ok := st.get(idle.ID); ok {
		t.Error("expired session left in store")
	}
}

func TestGameService(t *testing.T) {
	gs := NewGameService(newTestManager(t, ManagerOptions{Strategy: &firstMove{}}))

	view, err := gs.CreateGame("p1", model.White, "")
	if err != nil {
		t.Fatalf("CreateGame: %v", err)
	}
	dests, err := gs.LegalMoves(view.GameID, model.Position{Row: 7, Col: 6})
	if err != nil {
		t.Fatalf("LegalMoves: %v", err)
	}
	want := []model.Position{{Row: 5, Col: 5}, {Row: 5, Col: 7}}
	if diff := cmp.Diff(want, dests); diff != "" {
		t.Errorf("LegalMoves(g1) mismatch (-want +got):\n%s", diff)
	}
	if _, err := gs.HandleMove("nope", "p1", mustMove(t, "e2e4")); !errors.Is(err, ErrGameNotFound) {
		t.Errorf("HandleMove(unknown) error = %v", err)
	}
	if _, err := gs.Reset(view.GameID, "p1"); err != nil {
		t.Errorf("Reset: %v", err)
	}
	if _, err := gs.GetGame(view.GameID); err != nil {
		t.Errorf("GetGame: %v", err)
	}
}
