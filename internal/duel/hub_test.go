package duel

import (
	"strings"
	"sync"
	"testing"

	"github.com/robalobadob/wordle/apps/duel-server/internal/game"
)

// fakeConn records every message pushed to it.
type fakeConn struct {
	mu   sync.Mutex
	msgs []any
}

func (f *fakeConn) Send(v any) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.msgs = append(f.msgs, v)
	return nil
}

func (f *fakeConn) all() []any {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]any(nil), f.msgs...)
}

func (f *fakeConn) lastSnapshot(t *testing.T) Snapshot {
	t.Helper()
	msgs := f.all()
	for i := len(msgs) - 1; i >= 0; i-- {
		if s, ok := msgs[i].(Snapshot); ok {
			return s
		}
	}
	t.Fatal("no snapshot received")
	return Snapshot{}
}

func (f *fakeConn) gameOvers() []GameOverMsg {
	var out []GameOverMsg
	for _, m := range f.all() {
		if g, ok := m.(GameOverMsg); ok {
			out = append(out, g)
		}
	}
	return out
}

func (f *fakeConn) penaltyRows() int {
	n := 0
	for _, m := range f.all() {
		if g, ok := m.(GuessReply); ok && g.GuessResult != nil && g.GuessResult.Word == "" {
			n++
		}
	}
	return n
}

func (f *fakeConn) lastLobby(t *testing.T) LobbyMsg {
	t.Helper()
	msgs := f.all()
	for i := len(msgs) - 1; i >= 0; i-- {
		if l, ok := msgs[i].(LobbyMsg); ok {
			return l
		}
	}
	t.Fatal("no lobby message received")
	return LobbyMsg{}
}

// scriptedWords deals answers in order and allows a fixed guess set.
type scriptedWords struct {
	mu      sync.Mutex
	answers []string
	next    int
	allowed []string
}

func (w *scriptedWords) RandomAnswer() string {
	w.mu.Lock()
	defer w.mu.Unlock()
	a := w.answers[w.next%len(w.answers)]
	w.next++
	return a
}

func (w *scriptedWords) IsAllowed(s string) bool {
	if len(w.allowed) == 0 {
		return true
	}
	for _, a := range w.allowed {
		if a == s {
			return true
		}
	}
	return false
}

func defaultSettings() Settings {
	return Settings{WordsToRemove: 2, GuessLimit: 6}
}

func newTestHub(words Words) *Hub {
	return NewHub(Config{Words: words})
}

// pair registers two connections and matches them into a game.
func pair(t *testing.T, h *Hub, a, b *fakeConn) (Snapshot, Snapshot) {
	t.Helper()
	h.Register(a)
	h.Register(b)
	if r := h.Join(a, defaultSettings()); r == nil {
		t.Fatal("first join should queue, not match")
	}
	if r := h.Join(b, defaultSettings()); r != nil {
		t.Fatalf("second join should match, got %v", r)
	}
	return a.lastSnapshot(t), b.lastSnapshot(t)
}

func TestJoinQueuesThenPairs(t *testing.T) {
	h := newTestHub(&scriptedWords{answers: []string{"apple"}})
	a, b, c := &fakeConn{}, &fakeConn{}, &fakeConn{}
	h.Register(a)
	h.Register(b)
	h.Register(c)

	r := h.Join(a, defaultSettings())
	wait, ok := r.(WaitMsg)
	if !ok {
		t.Fatalf("expected WaitMsg, got %v", r)
	}
	if wait.Wait != defaultSettings() {
		t.Fatalf("wait echoes wrong settings: %+v", wait.Wait)
	}

	// The other idle clients see the entry; the host does not see their own.
	if got := b.lastLobby(t).Lobby; len(got) != 1 || got[0] != defaultSettings() {
		t.Fatalf("b lobby = %v, want one entry", got)
	}
	if got := a.lastLobby(t).Lobby; len(got) != 0 {
		t.Fatalf("a sees own entry in lobby: %v", got)
	}

	if r := h.Join(b, defaultSettings()); r != nil {
		t.Fatalf("matching join should return nil (snapshots pushed), got %v", r)
	}

	sa, sb := a.lastSnapshot(t), b.lastSnapshot(t)
	if sa.GameID == "" || sa.GameID != sb.GameID {
		t.Fatalf("players not in the same game: %q vs %q", sa.GameID, sb.GameID)
	}
	if sa.PlayerID == sb.PlayerID {
		t.Fatal("players share a player id")
	}
	if h.WaitingCount() != 0 {
		t.Fatalf("waiting entries left after match: %d", h.WaitingCount())
	}
	if h.SessionCount() != 1 {
		t.Fatalf("session count = %d, want 1", h.SessionCount())
	}

	// A third client with different settings queues alone.
	other := Settings{WordsToRemove: 1, GuessLimit: 8}
	if _, ok := h.Join(c, other).(WaitMsg); !ok {
		t.Fatal("mismatched settings must queue")
	}
	if h.WaitingCount() != 1 {
		t.Fatalf("waiting = %d, want 1", h.WaitingCount())
	}
}

func TestJoinRejectsInvalidSettings(t *testing.T) {
	h := newTestHub(&scriptedWords{answers: []string{"apple"}})
	a := &fakeConn{}
	h.Register(a)

	bad := []Settings{
		{WordsToRemove: 0, GuessLimit: 6},
		{WordsToRemove: 4, GuessLimit: 6},
		{WordsToRemove: 1, GuessLimit: 5},
		{WordsToRemove: 1, GuessLimit: 6, TurnTimeLimitSeconds: -1},
	}
	for _, s := range bad {
		if _, ok := h.Join(a, s).(ErrorMsg); !ok {
			t.Fatalf("settings %+v should be rejected", s)
		}
	}
	if h.WaitingCount() != 0 {
		t.Fatal("rejected joins must not queue")
	}
}

func TestJoinRejectedWhileInGame(t *testing.T) {
	h := newTestHub(&scriptedWords{answers: []string{"apple"}})
	a, b := &fakeConn{}, &fakeConn{}
	pair(t, h, a, b)

	if _, ok := h.Join(a, defaultSettings()).(ErrorMsg); !ok {
		t.Fatal("join while in game must be rejected")
	}
}

func TestNoSelfMatch(t *testing.T) {
	h := newTestHub(&scriptedWords{answers: []string{"apple"}})
	a, b := &fakeConn{}, &fakeConn{}
	h.Register(a)
	h.Register(b)

	if _, ok := h.Join(a, defaultSettings()).(WaitMsg); !ok {
		t.Fatal("first join should queue")
	}
	// A second join from the same host replaces the entry instead of
	// matching it.
	if _, ok := h.Join(a, defaultSettings()).(WaitMsg); !ok {
		t.Fatal("rejoining the queue should re-queue, not self-match")
	}
	if h.WaitingCount() != 1 {
		t.Fatalf("waiting = %d, want 1", h.WaitingCount())
	}

	if r := h.Join(b, defaultSettings()); r != nil {
		t.Fatalf("expected match, got %v", r)
	}
	if h.SessionCount() != 1 {
		t.Fatal("expected one running session")
	}
}

func TestGuessBeforeGameRejected(t *testing.T) {
	h := newTestHub(&scriptedWords{answers: []string{"apple"}})
	a := &fakeConn{}
	h.Register(a)
	if _, ok := h.Guess(a, "crane").(ErrorMsg); !ok {
		t.Fatal("guessing with no session must be rejected")
	}
}

func TestWinTrimsHistoryAndRotatesSolution(t *testing.T) {
	words := &scriptedWords{
		answers: []string{"apple", "apple", "mango"},
		allowed: []string{"apple", "mango", "crane", "trace", "stone"},
	}
	h := newTestHub(words)
	a, b := &fakeConn{}, &fakeConn{}
	pair(t, h, a, b)

	for _, g := range []string{"crane", "trace", "stone"} {
		r := h.Guess(a, g)
		reply, ok := r.(GuessReply)
		if !ok || reply.GuessResult == nil {
			t.Fatalf("miss reply for %q = %v", g, r)
		}
	}

	r := h.Guess(a, "apple")
	reply, ok := r.(GuessReply)
	if !ok || reply.Success == "" {
		t.Fatalf("winning reply = %v", r)
	}
	if reply.WordsToRemove != 2 {
		t.Fatalf("wordsToRemove = %d, want 2", reply.WordsToRemove)
	}
	if len(reply.Guesses) != 2 || reply.Guesses[0] != "stone" || reply.Guesses[1] != "apple" {
		t.Fatalf("trimmed history = %v, want [stone apple]", reply.Guesses)
	}
	if len(reply.GuessColors) != 2 {
		t.Fatalf("feedback rows = %d, want 2", len(reply.GuessColors))
	}
	// History was rescored against the new solution: the winning word no
	// longer scores all hits.
	for _, m := range reply.GuessColors[1] {
		if m == game.MarkHit {
			t.Fatalf("apple vs mango should have no hits, got %v", reply.GuessColors[1])
		}
	}

	// The opponent took a penalty row and a full-history update.
	if b.penaltyRows() != 1 {
		t.Fatalf("opponent penalty rows = %d, want 1", b.penaltyRows())
	}
	sawHistory := false
	for _, m := range b.all() {
		if hm, ok := m.(OpponentHistoryMsg); ok {
			sawHistory = true
			if len(hm.OpponentGuessColors) != 2 {
				t.Fatalf("opponent history rows = %d, want 2", len(hm.OpponentGuessColors))
			}
		}
	}
	if !sawHistory {
		t.Fatal("opponent never received the rewritten history")
	}

	// The new solution is live: guessing it wins again.
	r = h.Guess(a, "mango")
	if reply, ok := r.(GuessReply); !ok || reply.Success == "" {
		t.Fatalf("mango should win the next round, got %v", r)
	}
}

func TestEliminationDeclaresWinnerAndDiscardsSession(t *testing.T) {
	words := &scriptedWords{
		answers: []string{"apple"},
		allowed: []string{"crane", "trace", "stone", "slate", "bread", "frost"},
	}
	var (
		recMu   sync.Mutex
		results []Result
		done    = make(chan struct{})
	)
	h := NewHub(Config{Words: words, Record: func(r Result) {
		recMu.Lock()
		results = append(results, r)
		recMu.Unlock()
		close(done)
	}})
	a, b := &fakeConn{}, &fakeConn{}
	sa, sb := pair(t, h, a, b)

	for _, g := range []string{"crane", "trace", "stone", "slate", "bread", "frost"} {
		if _, ok := h.Guess(a, g).(GuessReply); !ok {
			t.Fatalf("guess %q rejected", g)
		}
	}

	aOvers := a.gameOvers()
	if len(aOvers) != 1 || !strings.Contains(aOvers[0].Message, "apple") {
		t.Fatalf("loser game-over = %v, want loss naming the solution", aOvers)
	}
	bOvers := b.gameOvers()
	if len(bOvers) != 1 || bOvers[0].Message != "You won!" {
		t.Fatalf("winner game-over = %v", bOvers)
	}
	if h.SessionCount() != 0 {
		t.Fatal("finished session still in the live table")
	}

	// Eliminated players' ids are now terminal for rejoin.
	c := &fakeConn{}
	h.Register(c)
	r := h.Rejoin(c, sa.GameID, sa.PlayerID)
	if e, ok := r.(ErrorMsg); !ok || !e.GameOver {
		t.Fatalf("rejoin after game end = %v, want terminal error", r)
	}

	// Both players are idle again and can queue a rematch.
	if _, ok := h.Join(a, defaultSettings()).(WaitMsg); !ok {
		t.Fatal("loser cannot rejoin the queue")
	}
	if r := h.Join(b, defaultSettings()); r != nil {
		t.Fatalf("winner cannot be matched again: %v", r)
	}

	<-done
	recMu.Lock()
	defer recMu.Unlock()
	if len(results) != 1 || results[0].WinnerID != sb.PlayerID || results[0].LoserID != sa.PlayerID {
		t.Fatalf("recorded results = %+v", results)
	}
}

func TestHardModeEnforced(t *testing.T) {
	words := &scriptedWords{
		answers: []string{"apple"},
		allowed: []string{"crane", "trace", "eagle"},
	}
	h := newTestHub(words)
	a, b := &fakeConn{}, &fakeConn{}
	h.Register(a)
	h.Register(b)
	settings := Settings{WordsToRemove: 2, GuessLimit: 6, HardMode: true}
	h.Join(a, settings)
	h.Join(b, settings)

	// crane vs apple: a is present (pos 2), e is a hit (pos 4).
	if _, ok := h.Guess(a, "crane").(GuessReply); !ok {
		t.Fatal("opening guess rejected")
	}
	// trace keeps a at its rejected position.
	if e, ok := h.Guess(a, "trace").(ErrorMsg); !ok || !strings.Contains(e.Error, "hard mode") {
		t.Fatal("hard-mode violation not rejected")
	}
	// eagle moves the a and keeps the final e.
	if _, ok := h.Guess(a, "eagle").(GuessReply); !ok {
		t.Fatal("compliant guess rejected")
	}
}

func TestRejoinRestoresState(t *testing.T) {
	words := &scriptedWords{
		answers: []string{"apple"},
		allowed: []string{"crane"},
	}
	h := newTestHub(words)
	a, b := &fakeConn{}, &fakeConn{}
	sa, _ := pair(t, h, a, b)

	if _, ok := h.Guess(a, "crane").(GuessReply); !ok {
		t.Fatal("guess rejected")
	}

	// Connection drops; session state must survive untouched.
	h.Unregister(a)

	a2 := &fakeConn{}
	h.Register(a2)
	r := h.Rejoin(a2, sa.GameID, sa.PlayerID)
	snap, ok := r.(Snapshot)
	if !ok {
		t.Fatalf("rejoin = %v, want snapshot", r)
	}
	if len(snap.Guesses) != 1 || snap.Guesses[0] != "crane" {
		t.Fatalf("restored guesses = %v", snap.Guesses)
	}
	if len(snap.GuessColors) != 1 {
		t.Fatalf("restored feedback rows = %d, want 1", len(snap.GuessColors))
	}
	if snap.PlayerID != sa.PlayerID || snap.GameID != sa.GameID {
		t.Fatal("snapshot ids changed across rejoin")
	}

	// The new connection now drives the old slot.
	if _, ok := h.Guess(a2, "crane").(GuessReply); !ok {
		t.Fatal("guess through rebound connection rejected")
	}
}

func TestRejoinRejections(t *testing.T) {
	words := &scriptedWords{answers: []string{"apple"}}
	h := newTestHub(words)
	a, b := &fakeConn{}, &fakeConn{}
	sa, _ := pair(t, h, a, b)

	c := &fakeConn{}
	h.Register(c)

	if e, ok := h.Rejoin(c, "", "").(ErrorMsg); !ok || e.GameOver {
		t.Fatal("missing ids should be a plain error")
	}
	if e, ok := h.Rejoin(c, "nope", sa.PlayerID).(ErrorMsg); !ok || !e.GameOver {
		t.Fatal("unknown game should be terminal")
	}
	if e, ok := h.Rejoin(c, sa.GameID, "nope").(ErrorMsg); !ok || !e.GameOver {
		t.Fatal("unknown player should be terminal")
	}
	// A player already in a game cannot rejoin anything.
	if e, ok := h.Rejoin(a, sa.GameID, sa.PlayerID).(ErrorMsg); !ok || e.GameOver {
		t.Fatal("rejoin while in game should be a plain error")
	}
}

func TestDisconnectDropsWaitingEntry(t *testing.T) {
	h := newTestHub(&scriptedWords{answers: []string{"apple"}})
	a, b := &fakeConn{}, &fakeConn{}
	h.Register(a)
	h.Register(b)
	h.Join(a, defaultSettings())
	if h.WaitingCount() != 1 {
		t.Fatal("expected one waiting entry")
	}

	h.Unregister(a)
	if h.WaitingCount() != 0 {
		t.Fatal("disconnect must drop the waiting entry")
	}
	if got := b.lastLobby(t).Lobby; len(got) != 0 {
		t.Fatalf("b still sees the abandoned entry: %v", got)
	}
}

func TestLeaveIsIdempotent(t *testing.T) {
	h := newTestHub(&scriptedWords{answers: []string{"apple"}})
	a := &fakeConn{}
	h.Register(a)
	h.Join(a, defaultSettings())
	h.Leave(a)
	h.Leave(a)
	if h.WaitingCount() != 0 {
		t.Fatal("leave must clear the waiting entry")
	}
}
