// apps/duel-server/internal/duel/session.go
//
// A Session orchestrates two Players through the duel guess protocol:
// validation, scoring, hard mode, penalty rows, round wins with board
// trimming, elimination and teardown.
//
// Locking: s.mu serializes guess submissions from both players and timer
// fires. Hub callbacks (Hooks) are invoked with s.mu held and may take the
// hub lock; the hub only locks a session it has not yet published, so the
// two orders never form a cycle.
package duel

import (
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/samber/lo"

	"github.com/robalobadob/wordle/apps/duel-server/internal/game"
)

// Words is the word oracle the session consults. Backed by the words
// package in production, scripted in tests.
type Words interface {
	IsAllowed(word string) bool
	RandomAnswer() string
}

// Hooks are the session's callbacks into the connection registry. All are
// optional.
type Hooks struct {
	// PlayerReleased returns a connection to the idle pool after its player
	// leaves the session. conn may be nil if the player was disconnected.
	PlayerReleased func(conn Conn)
	// SessionEnded removes the session from the live table once it is empty
	// and reports the final result.
	SessionEnded func(s *Session, r Result)
	// IssueToken mints a resume token embedded in start/rejoin snapshots.
	// May return "" to omit the token.
	IssueToken func(gameID, playerID string) string
}

// Result describes a finished duel.
type Result struct {
	GameID     string
	WinnerID   string
	LoserID    string
	Settings   Settings
	StartedAt  time.Time
	FinishedAt time.Time
}

// Session is a duel between exactly two players once started. Before the
// match it holds only its host and has no ID.
type Session struct {
	mu       sync.Mutex
	ID       string
	Settings Settings

	players   map[string]*Player
	words     Words
	hooks     Hooks
	startedAt time.Time
	ended     bool
}

// NewSession creates an unmatched session containing the host's player slot.
// Returns the session and the host's player id.
func NewSession(settings Settings, words Words, hooks Hooks, host Conn) (*Session, string) {
	s := &Session{
		Settings: settings,
		players:  make(map[string]*Player, 2),
		words:    words,
		hooks:    hooks,
	}
	id := s.addPlayer(host)
	return s, id
}

// AddPlayer attaches the second player and returns their id.
func (s *Session) AddPlayer(conn Conn) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.addPlayer(conn)
}

func (s *Session) addPlayer(conn Conn) string {
	id := uuid.NewString()
	s.players[id] = &Player{ID: id, Conn: conn}
	return id
}

// Start assigns the game id, deals each player a solution, starts the
// penalty clocks and pushes a full snapshot to both players.
func (s *Session) Start(gameID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ID = gameID
	s.startedAt = time.Now()
	for id, p := range s.players {
		p.Solution = s.words.RandomAnswer()
		s.startPlayerTimer(p)
		p.send(s.snapshotLocked(id))
	}
}

// HandleGuess applies the guess protocol for one player and returns the
// message to deliver back to them.
func (s *Session) HandleGuess(playerID, raw string) any {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, ok := s.players[playerID]
	if !ok {
		return ErrorMsg{Error: "no such player in game"}
	}
	if p.Solution == "" {
		return ErrorMsg{Error: "game not started"}
	}
	guess := strings.ToLower(strings.TrimSpace(raw))
	if len(guess) != game.WordLength {
		return ErrorMsg{Error: "invalid word length"}
	}
	if len(p.Guesses) >= s.Settings.GuessLimit {
		return ErrorMsg{Error: "no guesses left"}
	}
	if s.Settings.HardMode && !game.SatisfiesHardMode(guess, p.Guesses, p.Feedback) {
		return ErrorMsg{Error: "hard mode failed"}
	}
	if !s.words.IsAllowed(guess) {
		return ErrorMsg{Error: "invalid word"}
	}

	// A timely guess restarts the penalty clock; any fire already scheduled
	// for the old cycle is dropped by the generation check.
	if s.Settings.TurnTimeLimitSeconds > 0 {
		s.startPlayerTimer(p)
	}

	if guess == p.Solution {
		return s.applyWinLocked(p, guess)
	}
	return s.applyMissLocked(p, guess)
}

// applyWinLocked handles a correct guess: penalty rows for everyone else,
// solution rotation, oldest-row trim, and a full rescore of the remaining
// board against the new solution.
func (s *Session) applyWinLocked(p *Player, guess string) any {
	remove := min(s.Settings.WordsToRemove, len(p.Guesses))

	s.penalizeOthersLocked(p.ID)

	p.Solution = s.words.RandomAnswer()
	trimmed := append([]string(nil), p.Guesses[remove:]...)
	p.Guesses = append(trimmed, guess)
	p.Feedback = lo.Map(p.Guesses, func(w string, _ int) []game.Mark {
		return game.Score(w, p.Solution)
	})

	s.notifyOthersLocked(p.ID, OpponentHistoryMsg{OpponentGuessColors: p.Feedback})

	return GuessReply{
		Success:       "Correct!",
		WordsToRemove: remove,
		Guesses:       append([]string(nil), p.Guesses...),
		GuessColors:   append([][]game.Mark(nil), p.Feedback...),
	}
}

// applyMissLocked appends a wrong guess, checks elimination and shows the
// new row to the opponent.
func (s *Session) applyMissLocked(p *Player, guess string) any {
	colors := game.Score(guess, p.Solution)
	p.Guesses = append(p.Guesses, guess)
	p.Feedback = append(p.Feedback, colors)

	s.checkEliminatedLocked(p)
	s.notifyOthersLocked(p.ID, OpponentRowMsg{OpponentColors: colors})

	return GuessReply{GuessResult: &GuessResult{Word: guess, Colors: colors}}
}

// penaltyFire is the timer callback. Stale fires (player gone, or the timer
// was restarted under a newer generation) are dropped.
func (s *Session) penaltyFire(playerID string, gen int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.players[playerID]
	if !ok || p.timerGen != gen {
		return
	}
	// The ticker keeps running; shift the clock origin one cycle forward so
	// read-time elapsed stays accurate.
	p.timerStartedAt = p.timerStartedAt.Add(time.Duration(p.timeLimit) * time.Second)
	s.applyPenaltyLocked(p)
	p.send(TimeMsg{TimePassed: 0})
}

// applyPenaltyLocked inserts an empty penalty row for p.
func (s *Session) applyPenaltyLocked(p *Player) {
	colors := game.Score("", p.Solution)
	p.Guesses = append(p.Guesses, "")
	p.Feedback = append(p.Feedback, colors)

	s.notifyOthersLocked(p.ID, OpponentRowMsg{OpponentColors: colors})
	s.checkEliminatedLocked(p)
	p.send(GuessReply{GuessResult: &GuessResult{Word: "", Colors: colors}})
}

// penalizeOthersLocked sends a penalty row to every player except from.
func (s *Session) penalizeOthersLocked(from string) {
	for id, p := range s.players {
		if id != from {
			s.applyPenaltyLocked(p)
		}
	}
}

// notifyOthersLocked fans a message out to every player except from.
func (s *Session) notifyOthersLocked(from string, v any) {
	for id, p := range s.players {
		if id != from {
			p.send(v)
		}
	}
}

// checkEliminatedLocked removes p if their board is full and tells them the
// word they were chasing.
func (s *Session) checkEliminatedLocked(p *Player) {
	if len(p.Guesses) != s.Settings.GuessLimit {
		return
	}
	final := p.Solution
	s.removePlayerLocked(p.ID)
	p.send(GameOverMsg{GameOver: true, Message: "You lost, last word was " + final})
}

// removePlayerLocked takes a player out of the session: releases their
// connection back to the registry, cancels their timer, and if exactly one
// player remains, declares them the winner and discards the session.
func (s *Session) removePlayerLocked(playerID string) {
	p, ok := s.players[playerID]
	if !ok {
		return
	}
	if s.hooks.PlayerReleased != nil {
		s.hooks.PlayerReleased(p.Conn)
	}
	delete(s.players, playerID)
	p.stopTimer()

	if len(s.players) != 1 {
		return
	}
	for winnerID, winner := range s.players {
		winner.send(GameOverMsg{GameOver: true, Message: "You won!"})
		r := Result{
			GameID:     s.ID,
			WinnerID:   winnerID,
			LoserID:    playerID,
			Settings:   s.Settings,
			StartedAt:  s.startedAt,
			FinishedAt: time.Now(),
		}
		s.removePlayerLocked(winnerID)
		s.ended = true
		if s.hooks.SessionEnded != nil {
			s.hooks.SessionEnded(s, r)
		}
	}
}

// DropConn detaches conn from the player if it is still the bound one.
// Session state is untouched; the slot waits for a rejoin.
func (s *Session) DropConn(playerID string, conn Conn) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if p, ok := s.players[playerID]; ok && p.Conn == conn {
		p.Conn = nil
	}
}

// Rebind swaps the player's connection to conn and returns a fresh snapshot.
// Returns false if the session already ended or the player is unknown.
func (s *Session) Rebind(playerID string, conn Conn) (Snapshot, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.players[playerID]
	if s.ended || !ok {
		return Snapshot{}, false
	}
	p.Conn = conn
	return s.snapshotLocked(playerID), true
}

// Ended reports whether the session has been discarded.
func (s *Session) Ended() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.ended
}

func (s *Session) startPlayerTimer(p *Player) {
	pid := p.ID
	p.startTimer(s.Settings.TurnTimeLimitSeconds, func(gen int) {
		s.penaltyFire(pid, gen)
	})
}

// snapshotLocked builds the full game state for one player: own history
// unfiltered, opponent feedback only.
func (s *Session) snapshotLocked(playerID string) Snapshot {
	p := s.players[playerID]

	opponentColors := [][]game.Mark{}
	for id, o := range s.players {
		if id != playerID {
			opponentColors = append([][]game.Mark{}, o.Feedback...)
			break
		}
	}

	// Report the limit one second short so a laggy client's local countdown
	// cannot outlive the server's.
	limit := s.Settings.TurnTimeLimitSeconds
	if limit > 0 {
		limit--
	}

	token := ""
	if s.hooks.IssueToken != nil && s.ID != "" {
		token = s.hooks.IssueToken(s.ID, playerID)
	}

	return Snapshot{
		Guesses:              append([]string{}, p.Guesses...),
		GuessColors:          append([][]game.Mark{}, p.Feedback...),
		OpponentGuessColors:  opponentColors,
		WordsToRemove:        s.Settings.WordsToRemove,
		GuessLimit:           s.Settings.GuessLimit,
		HardMode:             s.Settings.HardMode,
		TurnTimeLimitSeconds: limit,
		GameID:               s.ID,
		PlayerID:             playerID,
		ResumeToken:          token,
		TimePassed:           p.timePassed(),
	}
}
