// apps/duel-server/internal/game/feedback.go
//
// Guess scoring for duel games.
// Responsibilities:
//   - Score guesses using the classic two-pass Wordle algorithm.
//   - Handle the empty "penalty" guess inserted when a turn clock expires
//     or an opponent wins a round.
//
// Output is a fresh slice on every call; callers may retain it freely.
package game

// Score classifies each letter of guess against answer.
//
// Pass 1:
//   - Mark exact matches as Hit.
//   - Count remaining (non-hit) answer letters by letter index.
//
// Pass 2:
//   - For each non-hit guess letter: if there is remaining count for that
//     letter, mark Present and decrement the count; otherwise mark Miss.
//
// This ensures correct behavior with repeated letters in both answer and
// guess. An empty guess is a penalty row: it scores as a full-width row of
// MarkPenalty so the board still advances by one line.
func Score(guess, answer string) []Mark {
	if guess == "" {
		res := make([]Mark, len(answer))
		for i := range res {
			res[i] = MarkPenalty
		}
		return res
	}

	n := len(guess)
	res := make([]Mark, n)
	answerRunes := []rune(answer)
	guessRunes := []rune(guess)

	// Letter frequency for the non-hit positions (a-z).
	var counts [26]int

	for i := 0; i < n; i++ {
		if guessRunes[i] == answerRunes[i] {
			res[i] = MarkHit
		} else {
			counts[idx(answerRunes[i])]++
		}
	}

	for i := 0; i < n; i++ {
		if res[i] == MarkHit {
			continue
		}
		j := idx(guessRunes[i])
		if j >= 0 && j < 26 && counts[j] > 0 {
			res[i] = MarkPresent
			counts[j]--
		} else {
			res[i] = MarkMiss
		}
	}
	return res
}

// idx maps a lowercase ASCII letter rune to 0..25.
// Assumes inputs are validated to a-z elsewhere.
func idx(r rune) int { return int(r - 'a') }

// IsAlpha checks that a string consists only of lowercase a-z.
func IsAlpha(s string) bool {
	for _, r := range s {
		if r < 'a' || r > 'z' {
			return false
		}
	}
	return true
}
