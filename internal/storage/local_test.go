package storage

import (
	"bytes"
	"context"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Sarbeswarpanda04/Drive-Nest/internal/domain"
)

func putReq(key, body string) domain.PutRequest {
	return domain.PutRequest{Key: key, Name: filepath.Base(key), Size: int64(len(body)), Body: strings.NewReader(body)}
}

func TestLocal_PutAndOpen(t *testing.T) {
	s, err := NewLocal(t.TempDir())
	require.NoError(t, err)

	var seen []float64
	res, err := s.Put(context.Background(), putReq("docs/a.txt", "hello world"), func(f float64) { seen = append(seen, f) })
	require.NoError(t, err)
	assert.Equal(t, "docs/a.txt", res.Reference)
	assert.Equal(t, int64(11), res.FinalSize)
	require.NotEmpty(t, seen)
	assert.Equal(t, 1.0, seen[len(seen)-1])

	data, err := os.ReadFile(filepath.Join(s.Root(), "docs", "a.txt"))
	require.NoError(t, err)
	assert.Equal(t, "hello world", string(data))

	rc, err := s.Open(context.Background(), res.Reference)
	require.NoError(t, err)
	defer rc.Close()
	got, _ := io.ReadAll(rc)
	assert.Equal(t, "hello world", string(got))
}

func TestLocal_DeduplicatesBlobs(t *testing.T) {
	s, err := NewLocal(t.TempDir())
	require.NoError(t, err)

	_, err = s.Put(context.Background(), putReq("a/one.bin", "same bytes"), nil)
	require.NoError(t, err)
	_, err = s.Put(context.Background(), putReq("b/two.bin", "same bytes"), nil)
	require.NoError(t, err)

	entries, err := os.ReadDir(filepath.Join(s.Root(), ".blobs"))
	require.NoError(t, err)
	var blobs int
	for _, e := range entries {
		if !strings.HasPrefix(e.Name(), ".") {
			blobs++
		}
	}
	assert.Equal(t, 1, blobs)
}

func TestLocal_RejectsReservedKeys(t *testing.T) {
	s, err := NewLocal(t.TempDir())
	require.NoError(t, err)

	for _, key := range []string{"", ".blobs", ".blobs/evil"} {
		_, err := s.Put(context.Background(), putReq(key, "x"), nil)
		assert.ErrorIs(t, err, domain.ErrPathEscape, "key %q", key)
	}

	// ".." is resolved against the root and cannot climb out.
	res, err := s.Put(context.Background(), putReq("../../outside.txt", "x"), nil)
	require.NoError(t, err)
	assert.Equal(t, "outside.txt", res.Reference)
}

func TestLocal_OpenMissing(t *testing.T) {
	s, err := NewLocal(t.TempDir())
	require.NoError(t, err)

	_, err = s.Open(context.Background(), "nope.txt")
	assert.ErrorIs(t, err, domain.ErrObjectNotFound)
}

func TestLocal_CancelledContext(t *testing.T) {
	s, err := NewLocal(t.TempDir())
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = s.Put(ctx, domain.PutRequest{Key: "big.bin", Size: 3 << 20, Body: bytes.NewReader(make([]byte, 3<<20))}, nil)
	assert.ErrorIs(t, err, context.Canceled)

	_, statErr := os.Stat(filepath.Join(s.Root(), "big.bin"))
	assert.True(t, os.IsNotExist(statErr))
}

func TestLocal_Ping(t *testing.T) {
	s, err := NewLocal(t.TempDir())
	require.NoError(t, err)
	assert.NoError(t, s.Ping(context.Background()))

	require.NoError(t, os.RemoveAll(s.Root()))
	assert.Error(t, s.Ping(context.Background()))
}
