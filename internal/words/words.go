// apps/duel-server/internal/words/words.go
//
// Word list management for the duel server.
//
// Responsibilities:
//   - Load answer and allowed guess lists from environment-provided files or
//     fall back to embedded defaults.
//   - Supply RandomAnswer, IsAllowed and Stats for the session layer, which
//     consumes them through the duel.Words interface.
//
// Environment variables:
//   WORDS_ANSWERS_FILE=/path/to/answers.txt
//   WORDS_ALLOWED_FILE=/path/to/allowed.txt
//
// Constraints:
//   - Words must be 5 alphabetic letters (a-z); lists normalize to lowercase.
//   - Initialization runs once (sync.Once).
package words

import (
	"bufio"
	"crypto/rand"
	_ "embed"
	"errors"
	"math/big"
	"os"
	"strings"
	"sync"

	"github.com/robalobadob/wordle/apps/duel-server/internal/game"
)

//go:embed default_answers.txt
var embeddedAnswers string

//go:embed default_allowed.txt
var embeddedAllowed string

var (
	initOnce   sync.Once
	answers    []string
	allowedSet map[string]struct{} // answers ∪ guesses
	initialErr error
)

// Init loads word lists exactly once.
// Returns an error if the answers list ends up empty.
func Init() error {
	initOnce.Do(func() {
		var ansList, allowList []string

		answersPath := os.Getenv("WORDS_ANSWERS_FILE")
		allowedPath := os.Getenv("WORDS_ALLOWED_FILE")

		switch {
		case answersPath != "" && allowedPath != "":
			var err error
			if ansList, err = readWordFile(answersPath); err != nil {
				initialErr = err
				return
			}
			if allowList, err = readWordFile(allowedPath); err != nil {
				initialErr = err
				return
			}
		case answersPath == "" && allowedPath != "":
			var err error
			if allowList, err = readWordFile(allowedPath); err != nil {
				initialErr = err
				return
			}
			ansList = allowList
		default:
			ansList = normalizeLines(embeddedAnswers)
			allowList = normalizeLines(embeddedAllowed)
		}

		answers = ansList

		// Answers are always guessable.
		allowedSet = make(map[string]struct{}, len(ansList)+len(allowList))
		for _, w := range ansList {
			allowedSet[w] = struct{}{}
		}
		for _, w := range allowList {
			allowedSet[w] = struct{}{}
		}

		if len(answers) == 0 {
			initialErr = errors.New("words: answers list is empty")
		}
	})
	return initialErr
}

// readWordFile loads one word per line, lowercased and trimmed, keeping only
// valid 5-letter alphabetic words.
func readWordFile(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	var out []string
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		if w := normalizeWord(sc.Text()); w != "" {
			out = append(out, w)
		}
	}
	return out, sc.Err()
}

func normalizeLines(s string) []string {
	var out []string
	for _, line := range strings.Split(s, "\n") {
		if w := normalizeWord(line); w != "" {
			out = append(out, w)
		}
	}
	return out
}

func normalizeWord(s string) string {
	w := strings.TrimSpace(strings.ToLower(s))
	if len(w) == game.WordLength && game.IsAlpha(w) {
		return w
	}
	return ""
}

// RandomAnswer returns a cryptographically random answer.
// Falls back to "crane" if lists were never loaded.
func RandomAnswer() string {
	if len(answers) == 0 {
		return "crane"
	}
	nBig, _ := rand.Int(rand.Reader, big.NewInt(int64(len(answers))))
	return answers[nBig.Int64()]
}

// IsAllowed reports whether w is a valid guess (answers ∪ guesses).
func IsAllowed(w string) bool {
	_, ok := allowedSet[strings.ToLower(w)]
	return ok
}

// Stats returns counts of loaded words: (answers, allowed).
func Stats() (answersCount, allowedCount int) {
	return len(answers), len(allowedSet)
}
