// apps/duel-server/internal/game/hardmode.go
//
// Hard-mode constraint checking: each new guess must reuse every clue the
// player has already been shown.
package game

import "strings"

// SatisfiesHardMode reports whether candidate respects all revealed clues in
// the player's own history.
//
// For every previous row and position i:
//   - Hit: candidate[i] must equal the historical letter at i.
//   - Present: candidate[i] must differ from the historical letter at i, and
//     candidate must contain that letter somewhere.
//
// Miss and penalty marks impose no constraint. Vacuously true with no
// history. Rows produced by penalty guesses have empty words and are skipped.
func SatisfiesHardMode(candidate string, guesses []string, feedback [][]Mark) bool {
	for j, row := range feedback {
		word := guesses[j]
		if word == "" {
			continue
		}
		for i, mark := range row {
			switch mark {
			case MarkHit:
				if candidate[i] != word[i] {
					return false
				}
			case MarkPresent:
				if candidate[i] == word[i] || !strings.ContainsRune(candidate, rune(word[i])) {
					return false
				}
			}
		}
	}
	return true
}
