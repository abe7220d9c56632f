package generic

import (
	"sort"
	"testing"

	assert_ "github.com/stretchr/testify/assert"
)

func TestSet(t *testing.T) {
	assert := assert_.New(t)

	s := NewSet[int]()
	assert.Equal(0, s.Count())
	assert.False(s.Contains(1))
	assert.True(s.Add(1))
	assert.Equal(1, s.Count())
	assert.True(s.Contains(1))
	assert.False(s.Add(1))
	assert.True(s.Remove(1))
	assert.False(s.Remove(1))
	assert.Equal(0, s.Count())

	s2 := NewSet("http", "https")
	assert.True(s2.Contains("http", "https"))
	assert.False(s2.Contains("ftp"))
	items := s2.ToSlice()
	sort.Strings(items)
	assert.Equal([]string{"http", "https"}, items)
}

func TestUnwrap(t *testing.T) {
	assert := assert_.New(t)
	assert.Equal(1, Unwrap(1, nil))
	assert.NotPanics(func() { Unwrap_(nil) })
	assert.Panics(func() { Unwrap_(assert_.AnError) })
	assert.Panics(func() { Unwrap(0, assert_.AnError) })
}
