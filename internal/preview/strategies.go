package preview

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/jpeg"
	"io"
	"unicode/utf8"

	_ "image/gif"
	_ "image/png"

	"golang.org/x/image/draw"
	_ "golang.org/x/image/webp"

	"github.com/Sarbeswarpanda04/Drive-Nest/internal/domain"
)

// DefaultMaxPixels caps the images Thumbnail will decode.
const DefaultMaxPixels = 50_000_000

// Thumbnail decodes an image and scales it to fit MaxDim on its long side.
// Images over MaxPixels are not decoded and render as a download.
type Thumbnail struct {
	MaxDim    int
	MaxPixels int
}

func (s Thumbnail) Render(_ context.Context, src domain.Source) (View, error) {
	cfg, err := decodeConfig(src)
	if err != nil {
		return View{}, err
	}
	maxPixels := s.MaxPixels
	if maxPixels <= 0 {
		maxPixels = DefaultMaxPixels
	}
	if cfg.Width <= 0 || cfg.Height <= 0 {
		return View{}, errors.New("empty image")
	}
	if int64(cfg.Width)*int64(cfg.Height) > int64(maxPixels) {
		return View{Kind: "download", Width: cfg.Width, Height: cfg.Height}, nil
	}

	rc, err := src.Open()
	if err != nil {
		return View{}, err
	}
	defer rc.Close()

	img, _, err := image.Decode(rc)
	if err != nil {
		return View{}, err
	}
	b := img.Bounds()
	w, h := b.Dx(), b.Dy()
	if w <= 0 || h <= 0 {
		return View{}, errors.New("empty image")
	}

	limit := s.MaxDim
	if limit <= 0 {
		limit = 256
	}
	nw, nh := w, h
	if w > h {
		if w > limit {
			nw = limit
			nh = int(float64(h) * (float64(limit) / float64(w)))
		}
	} else if h > limit {
		nh = limit
		nw = int(float64(w) * (float64(limit) / float64(h)))
	}
	nw, nh = atLeastOne(nw), atLeastOne(nh)

	dst := image.NewRGBA(image.Rect(0, 0, nw, nh))
	draw.CatmullRom.Scale(dst, dst.Bounds(), img, b, draw.Over, nil)

	var out bytes.Buffer
	if err := jpeg.Encode(&out, dst, &jpeg.Options{Quality: 82}); err != nil {
		return View{}, err
	}
	return View{Kind: "thumbnail", Width: w, Height: h, Thumbnail: out.Bytes()}, nil
}

// decodeConfig reads only the image header.
func decodeConfig(src domain.Source) (image.Config, error) {
	rc, err := src.Open()
	if err != nil {
		return image.Config{}, err
	}
	defer rc.Close()
	cfg, _, err := image.DecodeConfig(rc)
	return cfg, err
}

func atLeastOne(n int) int {
	if n < 1 {
		return 1
	}
	return n
}

// Text returns the first Limit bytes, trimmed to a rune boundary.
type Text struct {
	Limit int
}

func (s Text) Render(_ context.Context, src domain.Source) (View, error) {
	rc, err := src.Open()
	if err != nil {
		return View{}, err
	}
	defer rc.Close()

	buf, err := io.ReadAll(io.LimitReader(rc, int64(s.Limit)+1))
	if err != nil {
		return View{}, err
	}
	truncated := len(buf) > s.Limit
	if truncated {
		buf = buf[:s.Limit]
		// drop a rune cut in half by the limit
		for i := 0; i < utf8.UTFMax-1 && len(buf) > 0; i++ {
			r, size := utf8.DecodeLastRune(buf)
			if r != utf8.RuneError || size != 1 {
				break
			}
			buf = buf[:len(buf)-1]
		}
	}
	return View{Kind: "text", Text: string(buf), Truncated: truncated}, nil
}

// Media marks audio and video for an inline player.
type Media struct{}

func (Media) Render(context.Context, domain.Source) (View, error) {
	return View{Kind: "media"}, nil
}

// Download is the fallback: no inline preview.
type Download struct{}

func (Download) Render(context.Context, domain.Source) (View, error) {
	return View{Kind: "download"}, nil
}
