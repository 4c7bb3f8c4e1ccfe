package service

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/benbeisheim/chess-backend/internal/model"
	"github.com/benbeisheim/chess-backend/internal/ws"
)

// firstMove plays the first legal move in board order.
type firstMove struct {
	calls atomic.Int32
}

func (f *firstMove) Name() string { return "first" }

func (f *firstMove) BestMove(ctx context.Context, state model.GameState) (model.Move, error) {
	f.calls.Add(1)
	moves := state.Board.LegalMoves(state.ToMove)
	if len(moves) == 0 {
		return model.Move{}, errors.New("no moves")
	}
	return moves[0], nil
}

// gated ignores cancellation and answers only once release is closed.
type gated struct {
	firstMove
	release chan struct{}
}

func (g *gated) BestMove(ctx context.Context, state model.GameState) (model.Move, error) {
	<-g.release
	return g.firstMove.BestMove(ctx, state)
}

type recordingConn struct {
	mu   sync.Mutex
	msgs []ws.Message
	fail bool
}

func (c *recordingConn) WriteJSON(v interface{}) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.fail {
		return errors.New("connection reset")
	}
	c.msgs = append(c.msgs, v.(ws.Message))
	return nil
}

func (c *recordingConn) views(t *testing.T) []View {
	t.Helper()
	c.mu.Lock()
	defer c.mu.Unlock()
	var views []View
	for _, m := range c.msgs {
		if m.Type != ws.MessageTypeGameState {
			t.Fatalf("unexpected message type %q", m.Type)
		}
		var v View
		if err := json.Unmarshal(m.Payload, &v); err != nil {
			t.Fatalf("decode view: %v", err)
		}
		views = append(views, v)
	}
	return views
}

func newTestManager(t *testing.T, opts ManagerOptions) *GameManager {
	t.Helper()
	gm := NewGameManager(opts)
	t.Cleanup(gm.Close)
	return gm
}

func mustMove(t *testing.T, uci string) model.Move {
	t.Helper()
	m, err := model.ParseUCIMove(uci)
	if err != nil {
		t.Fatalf("ParseUCIMove(%q): %v", uci, err)
	}
	return m
}

func TestSession_HumanMoveThenComputerReply(t *testing.T) {
	strategy := &firstMove{}
	gm := newTestManager(t, ManagerOptions{Strategy: strategy})
	s, err := gm.CreateGame("p1", model.White, "")
	if err != nil {
		t.Fatalf("CreateGame: %v", err)
	}
	if got := s.View().StatusText; got != "Your move (White)." {
		t.Errorf("initial status = %q", got)
	}

	view, err := s.Move("p1", mustMove(t, "e2e4"))
	if err != nil {
		t.Fatalf("Move: %v", err)
	}
	if !view.Thinking || view.StatusText != "Computer is thinking..." {
		t.Errorf("after human move: thinking=%v status=%q", view.Thinking, view.StatusText)
	}
	if view.State.ToMove != model.Black {
		t.Errorf("ToMove = %s, want black", view.State.ToMove)
	}

	s.opponentWG.Wait()
	view = s.View()
	if len(view.State.MoveHistory) != 2 {
		t.Fatalf("history has %d plies, want 2", len(view.State.MoveHistory))
	}
	if view.Thinking || view.State.ToMove != model.White || view.StatusText != "Your move (White)." {
		t.Errorf("after reply: thinking=%v toMove=%s status=%q", view.Thinking, view.State.ToMove, view.StatusText)
	}
	if n := strategy.calls.Load(); n != 1 {
		t.Errorf("strategy called %d times, want 1", n)
	}
}

func TestSession_RejectsOutOfTurnAndForeignMoves(t *testing.T) {
	strategy := &gated{release: make(chan struct{})}
	gm := newTestManager(t, ManagerOptions{Strategy: strategy})
	s, err := gm.CreateGame("p1", model.White, "")
	if err != nil {
		t.Fatalf("CreateGame: %v", err)
	}
	defer close(strategy.release)

	if _, err := s.Move("intruder", mustMove(t, "e2e4")); !errors.Is(err, ErrNotOwner) {
		t.Errorf("foreign move error = %v, want ErrNotOwner", err)
	}
	if _, err := s.Move("p1", mustMove(t, "e2e5")); !errors.Is(err, model.ErrIllegalMove) {
		t.Errorf("illegal move error = %v, want ErrIllegalMove", err)
	}
	if _, err := s.Move("p1", mustMove(t, "e2e4")); err != nil {
		t.Fatalf("Move: %v", err)
	}
	if _, err := s.Move("p1", mustMove(t, "d2d4")); !errors.Is(err, ErrNotYourTurn) {
		t.Errorf("move while computer thinks error = %v, want ErrNotYourTurn", err)
	}
}

func TestSession_ResetDiscardsStaleReply(t *testing.T) {
	strategy := &gated{release: make(chan struct{})}
	gm := newTestManager(t, ManagerOptions{Strategy: strategy})
	s, err := gm.CreateGame("p1", model.White, "")
	if err != nil {
		t.Fatalf("CreateGame: %v", err)
	}

	if _, err := s.Move("p1", mustMove(t, "e2e4")); err != nil {
		t.Fatalf("Move: %v", err)
	}
	view, err := s.Reset("p1")
	if err != nil {
		t.Fatalf("Reset: %v", err)
	}
	if view.Thinking || len(view.State.MoveHistory) != 0 {
		t.Errorf("after reset: thinking=%v history=%d", view.Thinking, len(view.State.MoveHistory))
	}

	close(strategy.release)
	s.opponentWG.Wait()

	view = s.View()
	if len(view.State.MoveHistory) != 0 || view.FEN != model.StartingFEN {
		t.Errorf("stale reply was applied: history=%d fen=%q", len(view.State.MoveHistory), view.FEN)
	}
	if _, err := s.Reset("intruder"); !errors.Is(err, ErrNotOwner) {
		t.Errorf("foreign reset error = %v, want ErrNotOwner", err)
	}
}

func TestSession_ComputerOpensWhenHumanPlaysBlack(t *testing.T) {
	gm := newTestManager(t, ManagerOptions{Strategy: &firstMove{}})
	s, err := gm.CreateGame("p1", model.Black, "")
	if err != nil {
		t.Fatalf("CreateGame: %v", err)
	}
	s.opponentWG.Wait()

	view := s.View()
	if len(view.State.MoveHistory) != 1 || view.State.ToMove != model.Black {
		t.Fatalf("history=%d toMove=%s, want one computer move and black to move",
			len(view.State.MoveHistory), view.State.ToMove)
	}
	if view.StatusText != "Your move (Black)." {
		t.Errorf("status = %q", view.StatusText)
	}

	// Reset hands the first move back to the computer.
	if _, err := s.Reset("p1"); err != nil {
		t.Fatalf("Reset: %v", err)
	}
	s.opponentWG.Wait()
	if n := len(s.View().State.MoveHistory); n != 1 {
		t.Errorf("after reset history has %d plies, want 1", n)
	}
}

func TestSession_HumanMatesComputer(t *testing.T) {
	strategy := &firstMove{}
	gm := newTestManager(t, ManagerOptions{Strategy: strategy})
	s, err := gm.CreateGame("p1", model.White, "6k1/5ppp/8/8/8/8/8/R5K1 w - - 0 1")
	if err != nil {
		t.Fatalf("CreateGame: %v", err)
	}

	view, err := s.Move("p1", mustMove(t, "a1a8"))
	if err != nil {
		t.Fatalf("Move: %v", err)
	}
	s.opponentWG.Wait()
	if view.State.Outcome != (model.Outcome{Status: model.StatusCheckmate, Winner: model.White}) {
		t.Errorf("outcome = %+v", view.State.Outcome)
	}
	if view.StatusText != "Checkmate. You win." || view.Thinking {
		t.Errorf("status = %q thinking=%v", view.StatusText, view.Thinking)
	}
	if n := strategy.calls.Load(); n != 0 {
		t.Errorf("strategy called %d times after mate", n)
	}
	if _, err := s.Move("p1", mustMove(t, "g1g2")); !errors.Is(err, model.ErrGameOver) {
		t.Errorf("move after mate error = %v, want ErrGameOver", err)
	}
	if dests := s.LegalDestinations(model.Position{Row: 7, Col: 6}); len(dests) != 0 {
		t.Errorf("destinations after mate = %v, want none", dests)
	}
}

func TestSession_BroadcastsToAttachedConnections(t *testing.T) {
	gm := newTestManager(t, ManagerOptions{Strategy: &firstMove{}})
	s, err := gm.CreateGame("p1", model.White, "")
	if err != nil {
		t.Fatalf("CreateGame: %v", err)
	}

	player := &recordingConn{}
	broken := &recordingConn{}
	if err := s.Attach(player, "p1"); err != nil {
		t.Fatalf("Attach: %v", err)
	}
	if err := s.Attach(broken, "spectator"); err != nil {
		t.Fatalf("Attach: %v", err)
	}
	broken.mu.Lock()
	broken.fail = true
	broken.mu.Unlock()

	if _, err := s.Move("p1", mustMove(t, "g1f3")); err != nil {
		t.Fatalf("Move: %v", err)
	}
	s.opponentWG.Wait()

	views := player.views(t)
	if len(views) != 3 {
		t.Fatalf("player got %d states, want 3 (attach, human move, reply)", len(views))
	}
	for i, want := range []int{0, 1, 2} {
		if got := len(views[i].State.MoveHistory); got != want {
			t.Errorf("state %d has %d plies, want %d", i, got, want)
		}
	}
	if !views[1].Thinking || views[2].Thinking {
		t.Errorf("thinking flags = %v, %v, want true, false", views[1].Thinking, views[2].Thinking)
	}

	s.mu.Lock()
	_, stillThere := s.conns[broken]
	s.mu.Unlock()
	if stillThere {
		t.Error("failing connection was not dropped")
	}

	s.Detach(player)
	if _, err := s.Reset("p1"); err != nil {
		t.Fatalf("Reset: %v", err)
	}
	if n := len(player.views(t)); n != 3 {
		t.Errorf("detached connection received %d states, want 3", n)
	}
}

func TestStatusText(t *testing.T) {
	tests := []struct {
		name     string
		state    model.GameState
		human    model.Side
		thinking bool
		want     string
	}{
		{"white to move", model.GameState{ToMove: model.White}, model.White, false, "Your move (White)."},
		{"black to move", model.GameState{ToMove: model.Black}, model.White, false, "Computer to move (Black)."},
		{"human black", model.GameState{ToMove: model.White}, model.Black, false, "Computer to move (White)."},
		{"thinking", model.GameState{ToMove: model.Black}, model.White, true, "Computer is thinking..."},
		{"human mates", model.GameState{Outcome: model.Outcome{Status: model.StatusCheckmate, Winner: model.White}}, model.White, false, "Checkmate. You win."},
		{"computer mates", model.GameState{Outcome: model.Outcome{Status: model.StatusCheckmate, Winner: model.Black}}, model.White, false, "Checkmate. Computer wins."},
		{"stalemate", model.GameState{Outcome: model.Outcome{Status: model.StatusStalemate}}, model.White, false, "Draw. Start a new game to play again."},
		{"draw", model.GameState{Outcome: model.Outcome{Status: model.StatusDraw}}, model.Black, false, "Draw. Start a new game to play again."},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := statusText(tt.state, tt.human, tt.thinking); got != tt.want {
				t.Errorf("statusText = %q, want %q", got, tt.want)
			}
		})
	}
}
