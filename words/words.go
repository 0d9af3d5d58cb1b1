// Package words holds the curated wordle answer list. Every entry is a
// common 5-letter English word suitable as a hidden target.
package words

import (
	"crypto/rand"
	_ "embed"
	"math/big"
	"strings"
	"sync"
)

//go:embed answers.txt
var embeddedAnswers string

var (
	loadOnce sync.Once
	answers  []string
)

func load() {
	loadOnce.Do(func() {
		for _, line := range strings.Split(embeddedAnswers, "\n") {
			w := strings.TrimSpace(strings.ToLower(line))
			if len(w) == 5 && isAlpha(w) {
				answers = append(answers, w)
			}
		}
	})
}

func isAlpha(s string) bool {
	for _, r := range s {
		if r < 'a' || r > 'z' {
			return false
		}
	}
	return true
}

// RandomAnswer picks a uniformly random answer word. Falls back to "crane"
// if the embedded list fails to load.
func RandomAnswer() string {
	load()
	if len(answers) == 0 {
		return "crane"
	}
	n, err := rand.Int(rand.Reader, big.NewInt(int64(len(answers))))
	if err != nil {
		return "crane"
	}
	return answers[n.Int64()]
}

// IsAnswer reports whether w appears in the curated answer list.
func IsAnswer(w string) bool {
	load()
	w = strings.ToLower(w)
	for _, a := range answers {
		if a == w {
			return true
		}
	}
	return false
}

// Count returns the size of the loaded answer list.
func Count() int {
	load()
	return len(answers)
}
