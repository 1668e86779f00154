// apps/duel-server/internal/game/types.go
//
// Core type definitions for the duel scoring engine.
// Defines:
//   - Mark: per-letter result of a guess (hit/present/miss/penalty).

package game

// Mark represents the evaluation result for a single letter in a guess.
// Possible values:
//   - "hit":     letter is correct and in the correct position.
//   - "present": letter exists in the answer but in a different position.
//   - "miss":    letter does not exist in the answer at all.
//   - "penalty": placeholder for a skipped turn; a penalty row is scored
//     entirely with this mark so clients can tell it apart from a real miss.
type Mark string

const (
	MarkHit     Mark = "hit"
	MarkPresent Mark = "present"
	MarkMiss    Mark = "miss"
	MarkPenalty Mark = "penalty"
)

// WordLength is the fixed word size for duel games.
const WordLength = 5
