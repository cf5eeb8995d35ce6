package semantic

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

type fakeEvaluator struct {
	preds map[[2]int]bool
	precs map[int]bool
}

func (f fakeEvaluator) EvalPredicate(ruleIndex, predIndex int) bool {
	return f.preds[[2]int{ruleIndex, predIndex}]
}

func (f fakeEvaluator) EvalPrecedence(level int) bool {
	return f.precs[level]
}

func Test_And_dropsNoneAndDedupes(t *testing.T) {
	// setup
	assert := assert.New(t)
	p1 := Predicate{RuleIndex: 0, PredIndex: 1}

	// execute
	result := And(None(), p1, p1)

	// assert
	assert.True(Equal(p1, result))
}

func Test_And_allNoneCollapses(t *testing.T) {
	// setup
	assert := assert.New(t)

	// execute
	result := And(None(), None())

	// assert
	assert.True(result.IsNone())
}

func Test_Or_anyNoneMakesWholeNone(t *testing.T) {
	// setup
	assert := assert.New(t)
	p1 := Predicate{RuleIndex: 0, PredIndex: 1}

	// execute
	result := Or(p1, None())

	// assert
	assert.True(result.IsNone())
}

func Test_Eval(t *testing.T) {
	testCases := []struct {
		name string
		ctx  Context
		ev   fakeEvaluator
		want bool
	}{
		{
			name: "NONE is always true",
			ctx:  None(),
			ev:   fakeEvaluator{},
			want: true,
		},
		{
			name: "single predicate false",
			ctx:  Predicate{RuleIndex: 1, PredIndex: 2},
			ev:   fakeEvaluator{preds: map[[2]int]bool{{1, 2}: false}},
			want: false,
		},
		{
			name: "AND short-circuits on first false",
			ctx:  And(Predicate{RuleIndex: 1, PredIndex: 0}, Predicate{RuleIndex: 1, PredIndex: 1}),
			ev:   fakeEvaluator{preds: map[[2]int]bool{{1, 0}: true, {1, 1}: false}},
			want: false,
		},
		{
			name: "OR succeeds if any true",
			ctx:  Or(Predicate{RuleIndex: 1, PredIndex: 0}, Predicate{RuleIndex: 1, PredIndex: 1}),
			ev:   fakeEvaluator{preds: map[[2]int]bool{{1, 0}: false, {1, 1}: true}},
			want: true,
		},
		{
			name: "precedence predicate",
			ctx:  PrecedencePredicate{Level: 4},
			ev:   fakeEvaluator{precs: map[int]bool{4: true}},
			want: true,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			// setup
			assert := assert.New(t)

			// execute
			got := tc.ctx.Eval(tc.ev)

			// assert
			assert.Equal(tc.want, got)
		})
	}
}
