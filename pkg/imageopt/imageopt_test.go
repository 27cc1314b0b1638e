package imageopt

import (
	"bytes"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func pngOf(t *testing.T, w, h int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for x := 0; x < w; x++ {
		for y := 0; y < h; y++ {
			img.Set(x, y, color.RGBA{R: uint8(x), G: uint8(y), B: 80, A: 255})
		}
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func TestOptimize_FitsLongestSide(t *testing.T) {
	out, err := Optimize(pngOf(t, 400, 200), Options{MaxDim: 100})
	require.NoError(t, err)

	cfg, err := jpeg.DecodeConfig(bytes.NewReader(out))
	require.NoError(t, err)
	assert.Equal(t, 100, cfg.Width)
	assert.Equal(t, 50, cfg.Height)
}

func TestOptimize_SmallImageKeepsSize(t *testing.T) {
	out, err := Optimize(pngOf(t, 40, 30), Options{})
	require.NoError(t, err)

	cfg, err := jpeg.DecodeConfig(bytes.NewReader(out))
	require.NoError(t, err)
	assert.Equal(t, 40, cfg.Width)
	assert.Equal(t, 30, cfg.Height)
}

func TestOptimize_NotAnImage(t *testing.T) {
	_, err := Optimize([]byte("plain text"), Options{})
	assert.Error(t, err)
}

func TestJPEGName(t *testing.T) {
	assert.Equal(t, "bike.jpg", JPEGName("bike.png"))
	assert.Equal(t, "bike.JPEG", JPEGName("bike.JPEG"))
	assert.Equal(t, "bike.jpg", JPEGName("bike"))
}
