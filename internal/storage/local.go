package storage

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/Sarbeswarpanda04/Drive-Nest/internal/domain"
	"github.com/Sarbeswarpanda04/Drive-Nest/internal/fsutil"
)

// Local stores files under a root directory. Content is written once into
// a content-addressed blob store at <root>/.blobs and linked (or copied)
// into <root>/<key>, so identical uploads share disk space.
type Local struct {
	root  string
	blobs string
}

// NewLocal creates the root and blob directories.
func NewLocal(root string) (*Local, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("resolve storage root: %w", err)
	}
	blobs := filepath.Join(abs, ".blobs")
	if err := os.MkdirAll(blobs, 0o755); err != nil {
		return nil, fmt.Errorf("create blob dir: %w", err)
	}
	return &Local{root: abs, blobs: blobs}, nil
}

// Root returns the absolute storage root.
func (s *Local) Root() string { return s.root }

// Put streams req.Body into a temp file while hashing it, moves it into the
// blob store and links it to its destination. The reference is the key.
func (s *Local) Put(ctx context.Context, req domain.PutRequest, onProgress func(float64)) (domain.PutResult, error) {
	key := fsutil.CleanRelPath(req.Key)
	if key == "" || key == ".blobs" || strings.HasPrefix(key, ".blobs/") {
		return domain.PutResult{}, fmt.Errorf("key %q: %w", req.Key, domain.ErrPathEscape)
	}
	dst, err := fsutil.JoinWithinRoot(s.root, key)
	if err != nil {
		return domain.PutResult{}, err
	}

	tracker := newProgressTracker(req.Size, onProgress)
	defer tracker.stop()

	tmp, err := os.CreateTemp(s.blobs, ".incoming-*")
	if err != nil {
		return domain.PutResult{}, err
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	sum, n, err := copyHashed(ctx, tmp, countingBody(req.Body, tracker))
	if cerr := tmp.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		return domain.PutResult{}, err
	}

	blob := filepath.Join(s.blobs, sum)
	if st, err := os.Stat(blob); err != nil || !st.Mode().IsRegular() {
		if err := os.Rename(tmpName, blob); err != nil {
			return domain.PutResult{}, fmt.Errorf("store blob: %w", err)
		}
	}
	if err := linkOrCopy(blob, dst); err != nil {
		return domain.PutResult{}, fmt.Errorf("place %s: %w", req.Key, err)
	}
	return domain.PutResult{Reference: key, FinalSize: n}, nil
}

// copyHashed copies src to dst in 1 MiB chunks, checking ctx between reads.
func copyHashed(ctx context.Context, dst io.Writer, src io.Reader) (string, int64, error) {
	h := sha256.New()
	w := io.MultiWriter(dst, h)
	buf := make([]byte, 1<<20)
	var n int64
	for {
		if err := ctx.Err(); err != nil {
			return "", n, err
		}
		rn, rerr := src.Read(buf)
		if rn > 0 {
			if _, err := w.Write(buf[:rn]); err != nil {
				return "", n, err
			}
			n += int64(rn)
		}
		if errors.Is(rerr, io.EOF) {
			break
		}
		if rerr != nil {
			return "", n, rerr
		}
	}
	return hex.EncodeToString(h.Sum(nil)), n, nil
}

// linkOrCopy hardlinks blob to dst, copying when linking is not possible.
func linkOrCopy(blob, dst string) error {
	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return err
	}
	_ = os.Remove(dst)
	if err := os.Link(blob, dst); err == nil {
		return nil
	}
	return copyFile(blob, dst)
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()
	out, err := os.OpenFile(dst, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return err
	}
	defer func() { _ = out.Close() }()
	if _, err := io.Copy(out, in); err != nil {
		return err
	}
	if err := out.Sync(); err != nil {
		return err
	}
	return out.Close()
}

// Open reads back a stored file by reference.
func (s *Local) Open(_ context.Context, ref string) (io.ReadCloser, error) {
	p, err := fsutil.JoinWithinRoot(s.root, ref)
	if err != nil {
		return nil, err
	}
	f, err := os.Open(p)
	if errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("%s: %w", ref, domain.ErrObjectNotFound)
	}
	return f, err
}

// Ping checks that the root is still a writable directory.
func (s *Local) Ping(context.Context) error {
	st, err := os.Stat(s.root)
	if err != nil {
		return err
	}
	if !st.IsDir() {
		return fmt.Errorf("%s is not a directory", s.root)
	}
	f, err := os.CreateTemp(s.blobs, ".ping-*")
	if err != nil {
		return fmt.Errorf("storage root not writable: %w", err)
	}
	name := f.Name()
	f.Close()
	return os.Remove(name)
}
