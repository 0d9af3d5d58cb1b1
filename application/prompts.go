package application

import (
	"fmt"
	"strings"

	"wordrace/domain/entities"
)

// PreviousGuessesToken is the placeholder a custom wordle template may use
// to position the guess history. When absent, history is appended.
const PreviousGuessesToken = "{{PREVIOUS_GUESSES}}"

// crosswordJSONTemplate is the json-mode clue prompt. The wording is fixed
// for reproducibility; scores are only comparable across runs when every
// model saw the identical prompt.
const crosswordJSONTemplate = `You are playing Crossword Sprint. Return ONLY valid JSON matching this schema:
{"answer": "<single word, lowercase, no spaces or punctuation>"}

Rules:
- Answer must be exactly %d letters.
- Use lowercase only.
- Do not include spaces, hyphens, periods, quotes, or extra text.
- If multiple candidates, choose the most common crossword answer.
- If unsure, guess the most likely, but still output valid JSON.

Clue: "%s"
Length: %d

Return only: {"answer":"<word>"}`

// crosswordPlainTemplate is the plain-mode clue prompt.
const crosswordPlainTemplate = `Return only the answer word, lowercase, no punctuation, no extra text.

Clue: "%s"
Length: %d`

// CrosswordPrompt renders the prompt for one clue under the round's output
// rule.
func CrosswordPrompt(clue entities.Clue, outputRule entities.OutputRule) string {
	if outputRule == entities.OutputPlain {
		return fmt.Sprintf(crosswordPlainTemplate, clue.Prompt, clue.Length)
	}
	return fmt.Sprintf(crosswordJSONTemplate, clue.Length, clue.Prompt, clue.Length)
}

// wordleRules is the fixed preamble of the default wordle prompt. The
// target word never appears anywhere in a prompt.
const wordleRules = `You are playing Wordle. Guess the secret 5-letter English word.

Rules:
- You have 6 guesses total.
- After each guess you receive feedback per letter:
  🟩 = correct letter in the correct position
  🟨 = letter is in the word but in a different position
  ⬜ = letter is not in the word
- Use the feedback from previous guesses to narrow down the word.
- Do not repeat a previous guess.`

// WordlePrompt renders the next-guess prompt for a model given its own game
// history. A custom template replaces the default rules; its
// {{PREVIOUS_GUESSES}} token positions the history, and when the token is
// missing the history is appended after the template.
func WordlePrompt(state *entities.WordleGameState, customTemplate string) string {
	history := formatGuessHistory(state)

	if customTemplate != "" {
		if strings.Contains(customTemplate, PreviousGuessesToken) {
			return strings.ReplaceAll(customTemplate, PreviousGuessesToken, history)
		}
		if history == "" {
			return customTemplate
		}
		return customTemplate + "\n\n" + history
	}

	var b strings.Builder
	b.WriteString(wordleRules)
	if history != "" {
		b.WriteString("\n\n")
		b.WriteString(history)
	}
	b.WriteString("\n\nRespond with ONLY your next guess: a single 5-letter lowercase word, no punctuation, no extra text.")
	return b.String()
}

// formatGuessHistory renders prior guesses as "Guess k: WORD" lines, each
// followed by its feedback glyph string.
func formatGuessHistory(state *entities.WordleGameState) string {
	if state == nil || len(state.Guesses) == 0 {
		return ""
	}
	var b strings.Builder
	b.WriteString("Previous guesses:")
	for i, g := range state.Guesses {
		b.WriteString(fmt.Sprintf("\nGuess %d: %s\n%s", i+1, strings.ToUpper(g.Word), entities.FeedbackGlyphs(g.Feedback)))
	}
	return b.String()
}

// fallbackLetter pads short wordle outputs so the game keeps moving.
const fallbackLetter = 'a'

// ParseGuessWord extracts a playable 5-letter word from raw model output:
// lowercase, drop every non-letter, take the first five letters that
// remain. With fewer than five clean letters the word is padded with the
// fallback letter so the game keeps moving. The returned word is always
// exactly 5 lowercase letters.
func ParseGuessWord(raw string) string {
	lowered := strings.ToLower(strings.TrimSpace(raw))

	letters := make([]byte, 0, entities.WordleWordLength)
	for i := 0; i < len(lowered) && len(letters) < entities.WordleWordLength; i++ {
		if lowered[i] >= 'a' && lowered[i] <= 'z' {
			letters = append(letters, lowered[i])
		}
	}
	for len(letters) < entities.WordleWordLength {
		letters = append(letters, fallbackLetter)
	}
	return string(letters)
}
