package dfacache

import (
	"testing"

	"github.com/dekarrin/allstar/internal/pcontext"
	"github.com/dekarrin/allstar/internal/predconfig"
	"github.com/stretchr/testify/assert"
)

func newConfigs(fullCtx bool, cs ...predconfig.Config) *predconfig.Set {
	cache := pcontext.NewCache()
	mc := pcontext.NewMergeCache()
	s := predconfig.NewSet(fullCtx)
	for _, c := range cs {
		s.Add(c, cache, mc)
	}
	return s
}

func Test_Cache_SetStart_internsOnce(t *testing.T) {
	// setup
	assert := assert.New(t)
	cache := NewCache(10)
	configs := newConfigs(false, predconfig.New(1, 1, pcontext.Empty))

	// execute
	first := cache.SetStart(0, &State{Configs: configs})
	second := cache.SetStart(0, &State{Configs: newConfigs(false, predconfig.New(1, 1, pcontext.Empty))})

	// assert
	assert.Same(first, second)
	assert.Equal(0, first.Number)
}

func Test_Cache_AddState_dedupesBySignature(t *testing.T) {
	// setup
	assert := assert.New(t)
	cache := NewCache(10)
	c1 := newConfigs(false, predconfig.New(1, 1, pcontext.Empty))
	c2 := newConfigs(false, predconfig.New(1, 1, pcontext.Empty))

	// execute
	s1 := cache.AddState(0, &State{Configs: c1})
	s2 := cache.AddState(0, &State{Configs: c2})
	s3 := cache.AddState(0, &State{Configs: newConfigs(false, predconfig.New(2, 1, pcontext.Empty))})

	// assert
	assert.Same(s1, s2)
	assert.NotSame(s1, s3)
	assert.True(c1.IsReadonly())
}

func Test_Cache_AddEdge_wiresFromToAndInterns(t *testing.T) {
	// setup
	assert := assert.New(t)
	cache := NewCache(10)
	from := cache.SetStart(0, &State{Configs: newConfigs(false, predconfig.New(1, 1, pcontext.Empty))})
	toConfigs := newConfigs(false, predconfig.New(2, 1, pcontext.Empty))

	// execute
	to := cache.AddEdge(0, from, 5, &State{Configs: toConfigs})

	// assert
	assert.Same(to, from.Edge(5))
	assert.Nil(from.Edge(6))
}

func Test_Cache_AddEdge_errorNeverInterned(t *testing.T) {
	// setup
	assert := assert.New(t)
	cache := NewCache(10)
	from := cache.SetStart(0, &State{Configs: newConfigs(false, predconfig.New(1, 1, pcontext.Empty))})

	// execute
	to := cache.AddEdge(0, from, 3, Error)

	// assert
	assert.Same(Error, to)
	assert.Same(Error, from.Edge(3))
	// the error edge itself is recorded, but Error never joins the state
	// table.
	assert.Equal(Stats{States: 1, Edges: 1}, cache.Stats(0))
}

func Test_Cache_Clear_forcesRebuild(t *testing.T) {
	// setup
	assert := assert.New(t)
	cache := NewCache(10)
	cache.SetStart(0, &State{Configs: newConfigs(false, predconfig.New(1, 1, pcontext.Empty))})

	// execute
	cache.Clear(0)

	// assert
	assert.Equal(Stats{}, cache.Stats(0))
	assert.Nil(cache.DFAFor(0).Start)
}

func Test_Cache_Stats_countsEdges(t *testing.T) {
	// setup
	assert := assert.New(t)
	cache := NewCache(10)
	s0 := cache.SetStart(0, &State{Configs: newConfigs(false, predconfig.New(1, 1, pcontext.Empty))})
	cache.AddEdge(0, s0, 1, &State{Configs: newConfigs(false, predconfig.New(2, 1, pcontext.Empty))})
	cache.AddEdge(0, s0, 2, &State{Configs: newConfigs(false, predconfig.New(3, 1, pcontext.Empty))})

	// execute
	stats := cache.Stats(0)

	// assert
	assert.Equal(3, stats.States)
	assert.Equal(2, stats.Edges)
}
