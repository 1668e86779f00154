// apps/duel-server/internal/duel/messages.go
//
// Outbound message shapes. Every frame on the wire is one of these structs;
// the client switches on which fields are present. Field names follow the
// protocol the web client already speaks.
package duel

import "github.com/robalobadob/wordle/apps/duel-server/internal/game"

// ErrorMsg reports a non-fatal client error. GameOver is set for terminal
// rejoin failures so the client clears its persisted session identifiers.
type ErrorMsg struct {
	Error    string `json:"error"`
	GameOver bool   `json:"gameover,omitempty"`
}

// GameOverMsg ends the game for one player, win or lose.
type GameOverMsg struct {
	GameOver bool   `json:"gameover"`
	Message  string `json:"gameoverMessage"`
}

// TimeMsg resynchronizes the client's turn countdown.
type TimeMsg struct {
	TimePassed float64 `json:"timePassed"`
}

// WaitMsg acknowledges a queued join with the settings the host is waiting on.
type WaitMsg struct {
	Wait Settings `json:"wait"`
}

// LobbyMsg lists the open waiting entries visible to an idle client.
// Always sent with a non-nil list so an emptied lobby clears client state.
type LobbyMsg struct {
	Lobby []Settings `json:"lobby"`
}

// GuessResult is one scored row: the word and its per-letter marks.
type GuessResult struct {
	Word   string      `json:"word"`
	Colors []game.Mark `json:"colors"`
}

// GuessReply answers a guess submission.
//
// A miss carries only GuessResult. A winning guess carries Success,
// WordsToRemove and the full trimmed history (the board was rewritten, so
// the client replaces it wholesale).
type GuessReply struct {
	Success       string        `json:"success,omitempty"`
	WordsToRemove int           `json:"wordsToRemove,omitempty"`
	Guesses       []string      `json:"guesses,omitempty"`
	GuessColors   [][]game.Mark `json:"guessColors,omitempty"`
	GuessResult   *GuessResult  `json:"guessResult,omitempty"`
}

// OpponentRowMsg pushes one new feedback row of the opponent's board.
type OpponentRowMsg struct {
	OpponentColors []game.Mark `json:"opponentColors"`
}

// OpponentHistoryMsg replaces the opponent's whole board (after their round
// win trims and rescores it).
type OpponentHistoryMsg struct {
	OpponentGuessColors [][]game.Mark `json:"opponentGuessColors"`
}

// Snapshot is the full per-player game state, sent on game start and rejoin.
// Opponent state is feedback-only; their words are never revealed.
type Snapshot struct {
	Guesses              []string      `json:"guesses"`
	GuessColors          [][]game.Mark `json:"guessColors"`
	OpponentGuessColors  [][]game.Mark `json:"opponentGuessColors"`
	WordsToRemove        int           `json:"wordsToRemove"`
	GuessLimit           int           `json:"guessLimit"`
	HardMode             bool          `json:"hardMode"`
	TurnTimeLimitSeconds int           `json:"turnTimeLimitSeconds"`
	GameID               string        `json:"gameId"`
	PlayerID             string        `json:"playerId"`
	ResumeToken          string        `json:"resumeToken,omitempty"`
	TimePassed           float64       `json:"timePassed"`
}
