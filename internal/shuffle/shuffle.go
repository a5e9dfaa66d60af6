// Package shuffle builds the per-attempt ordering of questions and options.
package shuffle

import (
	crand "crypto/rand"
	"encoding/binary"
	"math"
	"math/rand"

	"github.com/stemsi/exstem-proctor/internal/model"
)

// NewSource returns a generator seeded with the given value. Tests use it
// to reproduce an ordering.
func NewSource(seed int64) *rand.Rand {
	return rand.New(rand.NewSource(seed))
}

// NewAttemptSource returns a generator seeded from crypto/rand, one per attempt.
func NewAttemptSource() *rand.Rand {
	var b [8]byte
	if _, err := crand.Read(b[:]); err != nil {
		panic("shuffle: crypto/rand unavailable: " + err.Error())
	}
	return NewSource(int64(binary.LittleEndian.Uint64(b[:])))
}

// Questions returns a new slice with the question order permuted and each
// question's options permuted independently. Correct is rewritten to the
// label that now holds the originally-correct option. The input is not modified.
//
// Options are permuted by position, so duplicate option texts are handled
// like any other.
func Questions(rng *rand.Rand, qs []model.Question) []model.Question {
	out := make([]model.Question, len(qs))
	copy(out, qs)

	rng.Shuffle(len(out), func(i, j int) { out[i], out[j] = out[j], out[i] })

	for i := range out {
		out[i] = Options(rng, out[i])
	}
	return out
}

// Options permutes the four options of q and remaps Correct.
// A question whose Correct label is invalid keeps an invalid label.
func Options(rng *rand.Rand, q model.Question) model.Question {
	perm := rng.Perm(model.OptionCount)

	shuffled := q
	correct := q.Correct.Index()
	shuffled.Correct = model.LabelNone
	for newPos, oldPos := range perm {
		shuffled.Options[newPos] = q.Options[oldPos]
		if oldPos == correct {
			shuffled.Correct = model.Labels[newPos]
		}
	}
	return shuffled
}

// Score counts slots whose answer equals the question's correct label and
// returns the rounded percentage. Unset answers never score.
func Score(qs []model.Question, answers model.Answers) (score, percentage int) {
	for i, q := range qs {
		if i >= len(answers) {
			break
		}
		if answers[i] != model.LabelNone && answers[i] == q.Correct {
			score++
		}
	}
	if len(qs) == 0 {
		return score, 0
	}
	percentage = int(math.Round(100 * float64(score) / float64(len(qs))))
	return score, percentage
}

// Grade maps a percentage to the letter band shown on the result screen.
func Grade(percentage int) string {
	switch {
	case percentage >= 90:
		return "A+"
	case percentage >= 80:
		return "A"
	case percentage >= 70:
		return "B"
	case percentage >= 60:
		return "C"
	case percentage >= 50:
		return "D"
	default:
		return "F"
	}
}
