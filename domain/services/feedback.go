package services

import (
	"wordrace/domain/entities"
)

// Feedback scores a wordle guess against the target with the classic
// two-pass algorithm. A single pass misranks duplicate letters, so greens
// are resolved first and consume their target letters before any yellow is
// awarded.
//
// Pass 1: exact position matches become correct; the unmatched target
// letters are counted per letter. Pass 2: each remaining guess letter takes
// a present mark only while its letter count holds out, left to right.
// Everything else is absent.
func Feedback(guess, target string) []entities.FeedbackMark {
	n := len(target)
	marks := make([]entities.FeedbackMark, n)

	var counts [26]int
	for i := 0; i < n; i++ {
		if guess[i] == target[i] {
			marks[i] = entities.MarkCorrect
		} else if j := letterIndex(target[i]); j >= 0 {
			counts[j]++
		}
	}

	for i := 0; i < n; i++ {
		if marks[i] == entities.MarkCorrect {
			continue
		}
		j := letterIndex(guess[i])
		if j >= 0 && counts[j] > 0 {
			marks[i] = entities.MarkPresent
			counts[j]--
		} else {
			marks[i] = entities.MarkAbsent
		}
	}
	return marks
}

// letterIndex maps a lowercase ASCII letter to 0..25, or -1 for anything
// else.
func letterIndex(c byte) int {
	if c < 'a' || c > 'z' {
		return -1
	}
	return int(c - 'a')
}

// CountMarks tallies correct and present marks in a feedback vector.
func CountMarks(feedback []entities.FeedbackMark) (correct, present int) {
	for _, m := range feedback {
		switch m {
		case entities.MarkCorrect:
			correct++
		case entities.MarkPresent:
			present++
		}
	}
	return correct, present
}

// Closeness is the ranking heuristic for failed games: three points per
// correct letter plus one per present letter, 15 at most.
func Closeness(feedback []entities.FeedbackMark) int {
	correct, present := CountMarks(feedback)
	return 3*correct + present
}
