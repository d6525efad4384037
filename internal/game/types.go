// internal/game/types.go
//
// Core type definitions for the guess evaluator.
// Defines:
//   - Verdict: outcome of a single coordinate guess.

package game

// Verdict is the user-visible outcome of one guess.
// Possible values:
//   - "Correct guess":   first correct hit on a character, map not complete.
//   - "Incorrect guess": point outside the character's hit rectangle.
//   - "Already guessed": character was found earlier in this session.
//   - "Game over":       this hit was the last character; session finished.
type Verdict string

const (
	VerdictCorrect   Verdict = "Correct guess"
	VerdictIncorrect Verdict = "Incorrect guess"
	VerdictDuplicate Verdict = "Already guessed"
	VerdictGameOver  Verdict = "Game over"
)
