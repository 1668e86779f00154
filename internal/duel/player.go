// apps/duel-server/internal/duel/player.go
//
// Per-player mutable state inside a session. All fields are guarded by the
// owning Session's mutex; the penalty timer goroutine never touches them
// directly, it calls back into the session which re-acquires that lock.
package duel

import (
	"time"

	"github.com/robalobadob/wordle/apps/duel-server/internal/game"
)

// Conn is the outbound half of a client connection. Implementations must be
// safe for concurrent Send calls. A nil Conn means the player is currently
// disconnected; sends to it are silently skipped.
type Conn interface {
	Send(v any) error
}

// Player is one side of a duel. It survives disconnects: Conn is nulled and
// later swapped by a rejoin, everything else stays.
type Player struct {
	ID       string
	Conn     Conn
	Solution string
	Guesses  []string      // "" entries are auto-inserted penalty rows
	Feedback [][]game.Mark // index-aligned with Guesses

	// Penalty timer. timerGen invalidates in-flight fires after a restart or
	// cancel: a fire scheduled under an old generation is dropped, so a guess
	// that restarted the clock always wins the race.
	timerGen       int
	timerStop      chan struct{}
	timerStartedAt time.Time
	timeLimit      int // seconds; 0 means no timer
}

// send delivers a message to the player's connection if one is attached.
// Transport failures are fire-and-forget; game logic never sees them.
func (p *Player) send(v any) {
	if p.Conn != nil {
		_ = p.Conn.Send(v)
	}
}

// startTimer (re)starts the recurring penalty clock. Any previous timer is
// cancelled first, so timers never stack. fire is invoked with the timer
// generation on every interval tick. Call with the session lock held.
func (p *Player) startTimer(limit int, fire func(gen int)) {
	p.stopTimer()
	p.timeLimit = limit
	if limit <= 0 {
		return
	}
	p.timerGen++
	gen := p.timerGen
	stop := make(chan struct{})
	p.timerStop = stop
	p.timerStartedAt = time.Now()

	go func() {
		t := time.NewTicker(time.Duration(limit) * time.Second)
		defer t.Stop()
		for {
			select {
			case <-stop:
				return
			case <-t.C:
				fire(gen)
			}
		}
	}()

	p.send(TimeMsg{TimePassed: 0})
}

// stopTimer cancels the penalty clock. Idempotent; called on every removal
// path. Call with the session lock held.
func (p *Player) stopTimer() {
	if p.timerStop != nil {
		close(p.timerStop)
		p.timerStop = nil
	}
}

// timePassed reports seconds elapsed since the clock last (re)started,
// computed at read time. Zero when no timer is running.
func (p *Player) timePassed() float64 {
	if p.timerStop == nil {
		return 0
	}
	return time.Since(p.timerStartedAt).Seconds()
}
