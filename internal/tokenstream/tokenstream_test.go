package tokenstream

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func toks(types ...int) []Token {
	out := make([]Token, len(types))
	for i, tt := range types {
		out[i] = BasicToken{TokType: tt, Lexeme: "x"}
	}
	return out
}

func Test_Slice_LA_LT(t *testing.T) {
	// setup
	assert := assert.New(t)
	s := NewSlice(toks(1, 2, 3))

	// execute & assert
	assert.Equal(1, s.LA(1))
	assert.Equal(2, s.LA(2))
	assert.Equal(EOF, s.LA(4))
	assert.Equal(3, s.LT(3).Type())
}

func Test_Slice_ConsumeAdvances(t *testing.T) {
	// setup
	assert := assert.New(t)
	s := NewSlice(toks(1, 2, 3))

	// execute
	s.Consume()

	// assert
	assert.Equal(1, s.Index())
	assert.Equal(2, s.LA(1))
}

func Test_Slice_ConsumeAtEOFIsNoOp(t *testing.T) {
	// setup
	assert := assert.New(t)
	s := NewSlice(toks(1))
	s.Consume()

	// execute
	s.Consume()

	// assert
	assert.Equal(1, s.Index())
}

func Test_Slice_MarkSeekReleaseRoundTrip(t *testing.T) {
	// setup
	assert := assert.New(t)
	s := NewSlice(toks(1, 2, 3))
	s.Consume()
	start := s.Index()

	// execute
	h := s.Mark()
	s.Seek(0)
	s.Seek(start)
	s.Release(h)

	// assert
	assert.Equal(start, s.Index())
	assert.NotPanics(func() { s.Mark() })
}

func Test_Slice_ReleaseUnknownHandlePanics(t *testing.T) {
	// setup
	assert := assert.New(t)
	s := NewSlice(toks(1))

	// execute & assert
	assert.Panics(func() { s.Release(99) })
}

func Test_Slice_GetAbsolute(t *testing.T) {
	// setup
	assert := assert.New(t)
	s := NewSlice(toks(1, 2, 3))

	// execute & assert
	assert.Equal(2, s.Get(1).Type())
	assert.Equal(EOF, s.Get(5).Type())
}
