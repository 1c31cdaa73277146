package preview

import (
	"context"
	"fmt"
	"io"
	"sync"

	"github.com/Sarbeswarpanda04/Drive-Nest/internal/domain"
)

// View is what a strategy produced for one file.
type View struct {
	Name      string `json:"name"`
	Tag       Tag    `json:"tag"`
	MIME      string `json:"mime"`
	Kind      string `json:"kind"` // thumbnail | text | media | download
	Width     int    `json:"width,omitempty"`
	Height    int    `json:"height,omitempty"`
	Thumbnail []byte `json:"thumbnail,omitempty"` // JPEG
	Text      string `json:"text,omitempty"`
	Truncated bool   `json:"truncated,omitempty"`
}

// Strategy renders one kind of content.
type Strategy interface {
	Render(ctx context.Context, src domain.Source) (View, error)
}

// StrategyFunc adapts a function to a Strategy.
type StrategyFunc func(ctx context.Context, src domain.Source) (View, error)

func (f StrategyFunc) Render(ctx context.Context, src domain.Source) (View, error) {
	return f(ctx, src)
}

// Router maps tags to strategies. Tags with no strategy use the fallback.
type Router struct {
	mu         sync.RWMutex
	strategies map[Tag]Strategy
	fallback   Strategy
}

// NewRouter returns a router with the built-in strategies registered.
func NewRouter() *Router {
	r := &Router{strategies: make(map[Tag]Strategy), fallback: Download{}}
	r.Register(TagImage, Thumbnail{MaxDim: 256})
	r.Register(TagText, Text{Limit: 4096})
	r.Register(TagVideo, Media{})
	r.Register(TagAudio, Media{})
	return r
}

// Register sets the strategy for tag, replacing any previous one.
func (r *Router) Register(tag Tag, s Strategy) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.strategies[tag] = s
}

// StrategyFor returns the strategy used for tag.
func (r *Router) StrategyFor(tag Tag) Strategy {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if s, ok := r.strategies[tag]; ok {
		return s
	}
	return r.fallback
}

// Preview classifies src and renders it with the matching strategy.
func (r *Router) Preview(ctx context.Context, name string, src domain.Source) (View, error) {
	head, err := readHead(src)
	if err != nil {
		return View{}, fmt.Errorf("preview %s: %w", name, err)
	}
	tag, mime := Classify(name, head)

	v, err := r.StrategyFor(tag).Render(ctx, src)
	if err != nil {
		return View{}, fmt.Errorf("preview %s as %s: %w", name, tag, err)
	}
	v.Name, v.Tag, v.MIME = name, tag, mime
	return v, nil
}

func readHead(src domain.Source) ([]byte, error) {
	rc, err := src.Open()
	if err != nil {
		return nil, err
	}
	defer rc.Close()
	buf := make([]byte, sniffLen)
	n, err := io.ReadFull(rc, buf)
	if err != nil && err != io.ErrUnexpectedEOF && err != io.EOF {
		return nil, err
	}
	return buf[:n], nil
}

// OpenerSource makes a stored object re-openable as a Source.
func OpenerSource(ctx context.Context, o domain.Opener, ref string) domain.Source {
	return openerSource{ctx: ctx, o: o, ref: ref}
}

type openerSource struct {
	ctx context.Context
	o   domain.Opener
	ref string
}

func (s openerSource) Open() (io.ReadCloser, error) { return s.o.Open(s.ctx, s.ref) }
