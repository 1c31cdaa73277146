package storage

import (
	"bytes"
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestProgressTracker_ThrottlesAndFinishes(t *testing.T) {
	var seen []float64
	tr := newProgressTracker(1000, func(f float64) { seen = append(seen, f) })

	for i := 0; i < 1000; i++ {
		tr.add(1)
	}
	require.NotEmpty(t, seen)
	assert.LessOrEqual(t, len(seen), 101)
	assert.Equal(t, 1.0, seen[len(seen)-1])
	for i := 1; i < len(seen); i++ {
		assert.Greater(t, seen[i], seen[i-1])
	}
}

func TestProgressTracker_SilentAfterStop(t *testing.T) {
	var calls int
	tr := newProgressTracker(10, func(float64) { calls++ })
	tr.add(5)
	tr.stop()
	tr.add(5)
	assert.Equal(t, 1, calls)
	assert.Equal(t, int64(10), tr.bytes())
}

func TestProgressTracker_UnknownTotal(t *testing.T) {
	var calls int
	tr := newProgressTracker(0, func(float64) { calls++ })
	tr.add(100)
	assert.Zero(t, calls)
}

func TestCountingBody_KeepsSeekability(t *testing.T) {
	tr := newProgressTracker(5, nil)

	seekable := countingBody(bytes.NewReader([]byte("hello")), tr)
	s, ok := seekable.(io.Seeker)
	require.True(t, ok)
	_, _ = io.ReadAll(seekable)
	assert.Equal(t, int64(5), tr.bytes())

	_, err := s.Seek(0, io.SeekStart)
	require.NoError(t, err)
	assert.Equal(t, int64(0), tr.bytes())

	plain := countingBody(io.MultiReader(strings.NewReader("x")), tr)
	_, ok = plain.(io.Seeker)
	assert.False(t, ok)
}

func TestProgressTracker_AsMinioProgress(t *testing.T) {
	var last float64
	tr := newProgressTracker(100, func(f float64) { last = f })
	n, err := tr.Read(make([]byte, 50))
	require.NoError(t, err)
	assert.Equal(t, 50, n)
	assert.Equal(t, 0.5, last)
}
