package shuffle

import (
	"fmt"
	"sort"
	"testing"

	"github.com/stemsi/exstem-proctor/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleQuestions(n int) []model.Question {
	qs := make([]model.Question, n)
	for i := range qs {
		qs[i] = model.Question{
			ID:      fmt.Sprintf("q%02d", i),
			Text:    fmt.Sprintf("question %d", i),
			Options: model.Options{fmt.Sprintf("%d-a", i), fmt.Sprintf("%d-b", i), fmt.Sprintf("%d-c", i), fmt.Sprintf("%d-d", i)},
			Correct: model.Labels[i%model.OptionCount],
		}
	}
	return qs
}

func sortedTexts(o model.Options) []string {
	s := []string{o[0], o[1], o[2], o[3]}
	sort.Strings(s)
	return s
}

func TestQuestionsPreservesOptionSetAndCorrectText(t *testing.T) {
	orig := sampleQuestions(25)
	byID := make(map[string]model.Question, len(orig))
	for _, q := range orig {
		byID[q.ID] = q
	}

	for seed := int64(0); seed < 50; seed++ {
		shuffled := Questions(NewSource(seed), orig)
		require.Len(t, shuffled, len(orig))

		seen := make(map[string]bool)
		for _, q := range shuffled {
			o, ok := byID[q.ID]
			require.True(t, ok)
			assert.False(t, seen[q.ID], "question %s appears twice", q.ID)
			seen[q.ID] = true

			assert.Equal(t, sortedTexts(o.Options), sortedTexts(q.Options))
			require.True(t, q.Correct.Valid())
			assert.Equal(t, o.Options.Text(o.Correct), q.Options.Text(q.Correct))

			matches := 0
			for _, l := range model.Labels {
				if q.Options.Text(l) == o.Options.Text(o.Correct) {
					matches++
				}
			}
			assert.Equal(t, 1, matches)
		}
	}
}

func TestQuestionsDoesNotMutateInput(t *testing.T) {
	orig := sampleQuestions(8)
	before := make([]model.Question, len(orig))
	copy(before, orig)

	_ = Questions(NewSource(7), orig)
	assert.Equal(t, before, orig)
}

func TestQuestionsIsReproducibleForSeed(t *testing.T) {
	orig := sampleQuestions(12)
	assert.Equal(t, Questions(NewSource(42), orig), Questions(NewSource(42), orig))
}

func TestOptionsWithDuplicateTexts(t *testing.T) {
	q := model.Question{
		ID:      "dup",
		Options: model.Options{"same", "same", "right", "same"},
		Correct: model.LabelC,
	}

	for seed := int64(0); seed < 40; seed++ {
		s := Options(NewSource(seed), q)
		assert.Equal(t, sortedTexts(q.Options), sortedTexts(s.Options))
		assert.Equal(t, "right", s.Options.Text(s.Correct))
	}

	q.Correct = model.LabelA
	for seed := int64(0); seed < 40; seed++ {
		s := Options(NewSource(seed), q)
		require.True(t, s.Correct.Valid())
		assert.Equal(t, "same", s.Options.Text(s.Correct))
	}
}

// Answering every question with the originally-correct text must score the
// same against the shuffled ordering as against the original one.
func TestScoreInvariantUnderShuffle(t *testing.T) {
	orig := sampleQuestions(10)
	byID := make(map[string]model.Question, len(orig))
	for _, q := range orig {
		byID[q.ID] = q
	}

	// Original-order answer sheet: correct on even questions, wrong on odd.
	origAnswers := model.NewAnswers(len(orig))
	for i, q := range orig {
		if i%2 == 0 {
			origAnswers[i] = q.Correct
		} else {
			origAnswers[i] = model.Labels[(q.Correct.Index()+1)%model.OptionCount]
		}
	}
	origIndex := make(map[string]int, len(orig))
	for i, q := range orig {
		origIndex[q.ID] = i
	}
	wantScore, wantPct := Score(orig, origAnswers)

	shuffled := Questions(NewSource(99), orig)
	mapped := model.NewAnswers(len(shuffled))
	for i, q := range shuffled {
		o := byID[q.ID]
		chosenText := o.Options.Text(origAnswers[origIndex[q.ID]])
		for _, l := range model.Labels {
			if q.Options.Text(l) == chosenText {
				mapped[i] = l
			}
		}
	}

	gotScore, gotPct := Score(shuffled, mapped)
	assert.Equal(t, wantScore, gotScore)
	assert.Equal(t, wantPct, gotPct)
	assert.Equal(t, 5, gotScore)
}

func TestScore(t *testing.T) {
	qs := sampleQuestions(10)

	all := model.NewAnswers(10)
	for i, q := range qs {
		all[i] = q.Correct
	}
	score, pct := Score(qs, all)
	assert.Equal(t, 10, score)
	assert.Equal(t, 100, pct)

	partial := model.NewAnswers(10)
	for i := 0; i < 3; i++ {
		partial[i] = qs[i].Correct
	}
	score, pct = Score(qs, partial)
	assert.Equal(t, 3, score)
	assert.Equal(t, 30, pct)

	score, pct = Score(sampleQuestions(3), model.Answers{model.LabelA, model.LabelNone, model.LabelNone})
	assert.Equal(t, 1, score)
	assert.Equal(t, 33, pct)

	score, pct = Score(nil, nil)
	assert.Zero(t, score)
	assert.Zero(t, pct)
}

func TestGrade(t *testing.T) {
	cases := map[int]string{100: "A+", 90: "A+", 89: "A", 70: "B", 65: "C", 50: "D", 49: "F", 0: "F"}
	for pct, want := range cases {
		assert.Equal(t, want, Grade(pct), "pct=%d", pct)
	}
}
