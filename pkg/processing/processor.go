package processing

import (
	"bytes"
	"encoding/base64"
	"errors"
	"fmt"
	"image"
	_ "image/gif"
	"image/jpeg"
	_ "image/png"
	"io"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/chai2010/webp"
	"github.com/disintegration/imaging"
	_ "golang.org/x/image/webp"
)

// ErrInvalidImage is returned when an uploaded payload is not valid base64
var ErrInvalidImage = errors.New("invalid image encoding")

// ErrEmptyImage is returned when an uploaded payload carries no data
var ErrEmptyImage = errors.New("no image data provided")

// Processor prepares captured frames for the vision model
type Processor struct {
	maxDim  int
	quality int
}

// NewProcessor creates a processor that bounds the longer side to maxDim
// pixels and re-encodes at the given JPEG quality. maxDim <= 0 keeps the
// original size.
func NewProcessor(maxDim, quality int) *Processor {
	if quality < 1 || quality > 100 {
		quality = 80
	}
	return &Processor{maxDim: maxDim, quality: quality}
}

// StripDataURL removes a "data:image/...;base64," header if present
func StripDataURL(payload string) string {
	if strings.HasPrefix(strings.TrimSpace(payload), "data:") {
		if i := strings.Index(payload, ","); i >= 0 {
			return payload[i+1:]
		}
	}
	return payload
}

// DecodePayload turns a base64 upload, optionally data-URL prefixed, into raw bytes
func DecodePayload(payload string) ([]byte, error) {
	raw := strings.TrimSpace(StripDataURL(payload))
	if raw == "" {
		return nil, ErrEmptyImage
	}
	data, err := base64.StdEncoding.DecodeString(raw)
	if err != nil {
		// canvas encoders occasionally drop padding
		if data, err = base64.RawStdEncoding.DecodeString(strings.TrimRight(raw, "=")); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidImage, err)
		}
	}
	if len(data) == 0 {
		return nil, ErrEmptyImage
	}
	return data, nil
}

// Prepare downsizes and re-encodes an image. It is best effort: when the
// bytes cannot be decoded they are returned unchanged.
func (p *Processor) Prepare(data []byte) []byte {
	img, err := p.decodeImageFromBytes(data)
	if err != nil {
		return data
	}

	img = p.resize(img)

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: p.quality}); err != nil {
		return data
	}
	return buf.Bytes()
}

func (p *Processor) resize(img image.Image) image.Image {
	if p.maxDim <= 0 {
		return img
	}
	b := img.Bounds()
	w, h := b.Dx(), b.Dy()
	if w <= p.maxDim && h <= p.maxDim {
		return img
	}
	if w >= h {
		return imaging.Resize(img, p.maxDim, 0, imaging.Lanczos)
	}
	return imaging.Resize(img, 0, p.maxDim, imaging.Lanczos)
}

// decodeImageFromBytes decodes an image from byte data with WebP support
func (p *Processor) decodeImageFromBytes(data []byte) (image.Image, error) {
	if img, _, err := image.Decode(bytes.NewReader(data)); err == nil {
		return img, nil
	}

	if img, err := webp.Decode(bytes.NewReader(data)); err == nil {
		return img, nil
	}

	return nil, fmt.Errorf("image: unknown or unsupported format")
}

// LoadSource reads image bytes from a file path or an http(s) URL
func (p *Processor) LoadSource(source string) ([]byte, error) {
	if strings.HasPrefix(source, "http://") || strings.HasPrefix(source, "https://") {
		return p.loadFromURL(source)
	}
	data, err := os.ReadFile(source)
	if err != nil {
		return nil, fmt.Errorf("failed to read image file: %w", err)
	}
	return data, nil
}

func (p *Processor) loadFromURL(imageURL string) ([]byte, error) {
	if _, err := url.Parse(imageURL); err != nil {
		return nil, fmt.Errorf("invalid URL: %w", err)
	}

	client := &http.Client{Timeout: 30 * time.Second}

	req, err := http.NewRequest(http.MethodGet, imageURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("User-Agent", "TrackMate/1.0")

	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to download image: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("failed to download image: HTTP %d", resp.StatusCode)
	}

	contentType := resp.Header.Get("Content-Type")
	if !strings.HasPrefix(contentType, "image/") {
		return nil, fmt.Errorf("URL does not point to an image (Content-Type: %s)", contentType)
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read image data: %w", err)
	}
	return data, nil
}

// Dimensions returns the pixel size of encoded image bytes
func Dimensions(data []byte) (int, int, error) {
	cfg, _, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return 0, 0, err
	}
	return cfg.Width, cfg.Height, nil
}
