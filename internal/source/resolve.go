package source

import (
	"bytes"
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"image"
	"image/png"
	"io"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/image/draw"

	"github.com/ivlev/tactiboard/internal/analyzer"
)

var ErrUnsupportedHref = errors.New("unsupported image reference")

const (
	DefaultDPI = 150
	// MaxEdge bounds the longer side of an embedded background.
	MaxEdge = 1600
	// maxFetchSize bounds downloads and data URIs.
	maxFetchSize = 32 << 20
)

// Resolver turns background references into images. It understands
// data: URIs, http(s) URLs, file:// URLs and plain file paths.
type Resolver struct {
	Client *http.Client
	DPI    int
	// Trim crops PDF pages to their drawing when set.
	Trim   analyzer.Detector
	Logger *zap.Logger
}

func NewResolver(logger *zap.Logger) *Resolver {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Resolver{
		Client: &http.Client{Timeout: 30 * time.Second},
		DPI:    DefaultDPI,
		Logger: logger,
	}
}

// Fetch returns the raw bytes behind href.
func (r *Resolver) Fetch(ctx context.Context, href string) ([]byte, error) {
	switch {
	case href == "":
		return nil, fmt.Errorf("%w: empty", ErrUnsupportedHref)
	case strings.HasPrefix(href, "data:"):
		data, _, err := DecodeDataURI(href)
		return data, err
	case strings.HasPrefix(href, "http://"), strings.HasPrefix(href, "https://"):
		return r.get(ctx, href)
	case strings.HasPrefix(href, "file://"):
		u, err := url.Parse(href)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrUnsupportedHref, err)
		}
		return os.ReadFile(u.Path)
	case strings.Contains(href, "://"):
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedHref, scheme(href))
	default:
		return os.ReadFile(href)
	}
}

func scheme(href string) string {
	if i := strings.Index(href, "://"); i >= 0 {
		return href[:i]
	}
	return href
}

func (r *Resolver) get(ctx context.Context, href string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, href, nil)
	if err != nil {
		return nil, err
	}
	client := r.Client
	if client == nil {
		client = http.DefaultClient
	}

	start := time.Now()
	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch %s: %w", href, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fetch %s: unexpected status %s", href, resp.Status)
	}
	data, err := io.ReadAll(io.LimitReader(resp.Body, maxFetchSize+1))
	if err != nil {
		return nil, fmt.Errorf("fetch %s: %w", href, err)
	}
	if len(data) > maxFetchSize {
		return nil, fmt.Errorf("fetch %s: larger than %d bytes", href, maxFetchSize)
	}

	r.Logger.Debug("background fetched",
		zap.String("url", href),
		zap.Int("bytes", len(data)),
		zap.Duration("took", time.Since(start)))
	return data, nil
}

// Load resolves href to an image. PDFs yield their first page.
func (r *Resolver) Load(ctx context.Context, href string) (image.Image, error) {
	data, err := r.Fetch(ctx, href)
	if err != nil {
		return nil, err
	}

	src, err := Open(data)
	if err != nil {
		return nil, err
	}
	defer src.Close()

	if src.PageCount() == 0 {
		return nil, errors.New("document has no pages")
	}
	dpi := r.DPI
	if dpi <= 0 {
		dpi = DefaultDPI
	}
	img, err := src.RenderPage(0, dpi)
	if err != nil {
		return nil, err
	}
	if r.Trim != nil && isPDF(data) {
		before := img.Bounds()
		img = analyzer.Trim(img, r.Trim)
		r.Logger.Debug("pdf page trimmed", zap.Stringer("page", before), zap.Stringer("content", img.Bounds()))
	}
	return img, nil
}

// Embed returns href as a self-contained data URI. PNG and JPEG data URIs
// are passed through; everything else is loaded, bounded to MaxEdge and
// re-encoded as PNG.
func (r *Resolver) Embed(ctx context.Context, href string) (string, error) {
	if strings.HasPrefix(href, "data:image/png;") || strings.HasPrefix(href, "data:image/jpeg;") {
		return href, nil
	}

	img, err := r.Load(ctx, href)
	if err != nil {
		return "", err
	}
	return EncodeDataURI(Fit(img, MaxEdge))
}

// Fit scales img down so that its longer side is at most maxEdge.
func Fit(img image.Image, maxEdge int) image.Image {
	b := img.Bounds()
	w, h := b.Dx(), b.Dy()
	if w <= maxEdge && h <= maxEdge {
		return img
	}
	if w >= h {
		h = h * maxEdge / w
		w = maxEdge
	} else {
		w = w * maxEdge / h
		h = maxEdge
	}
	dst := image.NewRGBA(image.Rect(0, 0, max(w, 1), max(h, 1)))
	draw.CatmullRom.Scale(dst, dst.Bounds(), img, b, draw.Src, nil)
	return dst
}

// EncodeDataURI encodes img as a PNG data URI.
func EncodeDataURI(img image.Image) (string, error) {
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return "", err
	}
	return DataURI("image/png", buf.Bytes()), nil
}

func DataURI(mime string, data []byte) string {
	return "data:" + mime + ";base64," + base64.StdEncoding.EncodeToString(data)
}

// DecodeDataURI returns the payload and media type of a data URI.
func DecodeDataURI(href string) ([]byte, string, error) {
	rest, ok := strings.CutPrefix(href, "data:")
	if !ok {
		return nil, "", fmt.Errorf("%w: not a data uri", ErrUnsupportedHref)
	}
	meta, payload, ok := strings.Cut(rest, ",")
	if !ok {
		return nil, "", fmt.Errorf("%w: malformed data uri", ErrUnsupportedHref)
	}
	if len(payload) > maxFetchSize*4/3+4 {
		return nil, "", fmt.Errorf("%w: data uri too large", ErrUnsupportedHref)
	}

	mime, params, _ := strings.Cut(meta, ";")
	if !strings.Contains(";"+params+";", ";base64;") {
		data, err := url.PathUnescape(payload)
		if err != nil {
			return nil, "", fmt.Errorf("%w: %v", ErrUnsupportedHref, err)
		}
		return []byte(data), mime, nil
	}
	data, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return nil, "", fmt.Errorf("%w: %v", ErrUnsupportedHref, err)
	}
	return data, mime, nil
}
