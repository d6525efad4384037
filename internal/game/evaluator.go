// internal/game/evaluator.go
//
// Guess evaluation for a single session.
// Responsibilities:
//   - Idempotent already-found short-circuit.
//   - Inclusive point-in-rectangle hit test.
//   - Delegating the durable state change to the session store's atomic
//     find-and-maybe-complete step, and mapping its outcome to a Verdict.
//
// The caller has already validated that the session is active and that the
// character belongs to the session's map.

package game

import (
	"context"

	"github.com/waldohunt/go-server/internal/catalog"
	"github.com/waldohunt/go-server/internal/session"
)

// Recorder is the slice of the session store the evaluator needs.
type Recorder interface {
	Found(ctx context.Context, sessionID, characterID string) (bool, error)
	RecordFind(ctx context.Context, sessionID, characterID string, total int) (session.FindOutcome, error)
}

// Evaluator turns (session, character, point) into a Verdict.
type Evaluator struct {
	rec Recorder
}

func NewEvaluator(rec Recorder) *Evaluator { return &Evaluator{rec: rec} }

// Evaluate decides one guess. total is the map's full character count, used
// for completion detection.
//
// Order matters: a character already in the found-set answers
// "Already guessed" regardless of where the new point landed, so resubmitting
// an old hit can never mutate state or leak rectangle bounds. The initial
// Found check is only a fast path; RecordFind re-reads both the found-set
// and the session's completion state inside its transaction, so two racing
// first-time hits produce exactly one VerdictCorrect/VerdictGameOver, and a
// hit that raced a completing guess lands as VerdictDuplicate rather than
// reopening the finished session.
func (e *Evaluator) Evaluate(ctx context.Context, sess *session.Session, ch *catalog.Character, pt catalog.Point, total int) (Verdict, error) {
	found, err := e.rec.Found(ctx, sess.ID, ch.ID)
	if err != nil {
		return VerdictIncorrect, err
	}
	if found {
		return VerdictDuplicate, nil
	}

	if !hit(ch, pt) {
		return VerdictIncorrect, nil
	}

	outcome, err := e.rec.RecordFind(ctx, sess.ID, ch.ID, total)
	if err != nil {
		return VerdictIncorrect, err
	}
	switch outcome {
	case session.FindDuplicate:
		return VerdictDuplicate, nil
	case session.FindCompleted:
		return VerdictGameOver, nil
	default:
		return VerdictCorrect, nil
	}
}

// hit reports whether pt lies within the character's rectangle, inclusive on
// both edges of both axes.
func hit(ch *catalog.Character, pt catalog.Point) bool {
	return pt.X >= ch.Start.X && pt.X <= ch.End.X &&
		pt.Y >= ch.Start.Y && pt.Y <= ch.End.Y
}
