// apps/duel-server/internal/duel/settings.go
//
// Game settings carried by a matchmaking request and fixed for the lifetime
// of a session. The struct is comparable; matchmaking pairs waiters whose
// settings are exactly equal.
package duel

import "errors"

// Settings is the tuple a host proposes when joining the queue.
type Settings struct {
	// WordsToRemove is how many of the opponent's oldest rows are cleared
	// when they win a round. Valid range 1..3.
	WordsToRemove int `json:"wordsToRemove"`
	// GuessLimit is the number of board rows. Reaching it eliminates the
	// player. Minimum 6.
	GuessLimit int `json:"guessLimit"`
	// TurnTimeLimitSeconds is the penalty clock; 0 disables it.
	TurnTimeLimitSeconds int `json:"turnTimeLimitSeconds"`
	HardMode             bool `json:"hardMode"`
}

var errBadSettings = errors.New("settings not provided for join")

// Validate range-checks the tuple. Invalid settings reject the join with no
// state change.
func (s Settings) Validate() error {
	if s.WordsToRemove < 1 || s.WordsToRemove > 3 {
		return errBadSettings
	}
	if s.GuessLimit < 6 {
		return errBadSettings
	}
	if s.TurnTimeLimitSeconds < 0 {
		return errBadSettings
	}
	return nil
}
