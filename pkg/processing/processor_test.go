package processing

import (
	"bytes"
	"encoding/base64"
	"image"
	"image/color"
	"image/png"
	"net/http"
	"os"
	"path/filepath"
	"testing"

	"github.com/jarcoal/httpmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// createTestPNG creates a gradient PNG of the given size
func createTestPNG(t *testing.T, width, height int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, width, height))
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			img.Set(x, y, color.RGBA{uint8((x * 255) / width), uint8((y * 255) / height), 128, 255})
		}
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func decodedFormat(t *testing.T, data []byte) (int, int, string) {
	t.Helper()
	cfg, format, err := image.DecodeConfig(bytes.NewReader(data))
	require.NoError(t, err)
	return cfg.Width, cfg.Height, format
}

func TestPrepareDownsizesLandscape(t *testing.T) {
	p := NewProcessor(320, 80)
	out := p.Prepare(createTestPNG(t, 640, 480))

	w, h, format := decodedFormat(t, out)
	assert.Equal(t, 320, w)
	assert.Equal(t, 240, h)
	assert.Equal(t, "jpeg", format)
}

func TestPrepareDownsizesPortrait(t *testing.T) {
	p := NewProcessor(320, 80)
	out := p.Prepare(createTestPNG(t, 300, 600))

	w, h, _ := decodedFormat(t, out)
	assert.Equal(t, 160, w)
	assert.Equal(t, 320, h)
}

func TestPrepareReencodesSmallImage(t *testing.T) {
	p := NewProcessor(320, 80)
	out := p.Prepare(createTestPNG(t, 100, 50))

	w, h, format := decodedFormat(t, out)
	assert.Equal(t, 100, w)
	assert.Equal(t, 50, h)
	assert.Equal(t, "jpeg", format)
}

func TestPrepareWithoutLimitKeepsSize(t *testing.T) {
	p := NewProcessor(0, 80)
	out := p.Prepare(createTestPNG(t, 500, 400))

	w, h, _ := decodedFormat(t, out)
	assert.Equal(t, 500, w)
	assert.Equal(t, 400, h)
}

func TestPrepareReturnsUndecodableBytesUnchanged(t *testing.T) {
	p := NewProcessor(320, 80)
	garbage := []byte("definitely not an image")
	assert.Equal(t, garbage, p.Prepare(garbage))
}

func TestNewProcessorClampsQuality(t *testing.T) {
	assert.Equal(t, 80, NewProcessor(320, 0).quality)
	assert.Equal(t, 80, NewProcessor(320, 101).quality)
	assert.Equal(t, 55, NewProcessor(320, 55).quality)
}

func TestStripDataURL(t *testing.T) {
	assert.Equal(t, "QUJD", StripDataURL("data:image/jpeg;base64,QUJD"))
	assert.Equal(t, "QUJD", StripDataURL("QUJD"))
}

func TestDecodePayload(t *testing.T) {
	raw := createTestPNG(t, 10, 10)
	encoded := base64.StdEncoding.EncodeToString(raw)

	data, err := DecodePayload("data:image/png;base64," + encoded)
	require.NoError(t, err)
	assert.Equal(t, raw, data)

	data, err = DecodePayload(encoded)
	require.NoError(t, err)
	assert.Equal(t, raw, data)

	data, err = DecodePayload(base64.RawStdEncoding.EncodeToString(raw))
	require.NoError(t, err)
	assert.Equal(t, raw, data)
}

func TestDecodePayloadErrors(t *testing.T) {
	_, err := DecodePayload("")
	assert.ErrorIs(t, err, ErrEmptyImage)

	_, err = DecodePayload("data:image/jpeg;base64,")
	assert.ErrorIs(t, err, ErrEmptyImage)

	_, err = DecodePayload("!!!not base64!!!")
	assert.ErrorIs(t, err, ErrInvalidImage)
}

func TestLoadSourceFromFile(t *testing.T) {
	raw := createTestPNG(t, 20, 20)
	path := filepath.Join(t.TempDir(), "frame.png")
	require.NoError(t, os.WriteFile(path, raw, 0o644))

	data, err := NewProcessor(320, 80).LoadSource(path)
	require.NoError(t, err)
	assert.Equal(t, raw, data)

	_, err = NewProcessor(320, 80).LoadSource(filepath.Join(t.TempDir(), "missing.png"))
	assert.Error(t, err)
}

func TestLoadSourceFromURL(t *testing.T) {
	httpmock.Activate()
	t.Cleanup(httpmock.DeactivateAndReset)

	raw := createTestPNG(t, 20, 20)
	httpmock.RegisterResponder(http.MethodGet, "http://camera.local/frame.png",
		func(req *http.Request) (*http.Response, error) {
			resp := httpmock.NewBytesResponse(http.StatusOK, raw)
			resp.Header.Set("Content-Type", "image/png")
			return resp, nil
		})
	httpmock.RegisterResponder(http.MethodGet, "http://camera.local/index.html",
		httpmock.NewStringResponder(http.StatusOK, "<html></html>"))

	p := NewProcessor(320, 80)

	data, err := p.LoadSource("http://camera.local/frame.png")
	require.NoError(t, err)
	assert.Equal(t, raw, data)

	_, err = p.LoadSource("http://camera.local/index.html")
	assert.Error(t, err)
}

func TestDimensions(t *testing.T) {
	w, h, err := Dimensions(createTestPNG(t, 64, 32))
	require.NoError(t, err)
	assert.Equal(t, 64, w)
	assert.Equal(t, 32, h)

	_, _, err = Dimensions([]byte("nope"))
	assert.Error(t, err)
}
