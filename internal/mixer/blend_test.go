package mixer

import (
	"image"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSmoothstep(t *testing.T) {
	assert.Equal(t, 0.0, smoothstep(0))
	assert.Equal(t, 0.5, smoothstep(0.5))
	assert.Equal(t, 1.0, smoothstep(1))

	// Clamped outside [0, 1].
	assert.Equal(t, 0.0, smoothstep(-3))
	assert.Equal(t, 1.0, smoothstep(2))

	// Symmetric around the midpoint.
	for _, v := range []float64{0.1, 0.25, 0.4} {
		assert.InDelta(t, 1.0, smoothstep(v)+smoothstep(1-v), 1e-12)
	}

	// Slower than linear near the endpoints.
	assert.Less(t, smoothstep(0.1), 0.1)
	assert.Greater(t, smoothstep(0.9), 0.9)
}

func solidRGBA(w, h int, r, g, b uint8) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for i := 0; i < len(img.Pix); i += 4 {
		img.Pix[i] = r
		img.Pix[i+1] = g
		img.Pix[i+2] = b
		img.Pix[i+3] = 0xFF
	}
	return img
}

func TestBlendRGBAEndpoints(t *testing.T) {
	a := solidRGBA(4, 4, 200, 0, 0)
	b := solidRGBA(4, 4, 0, 0, 100)

	assert.Same(t, a, blendRGBA(a, b, 0))
	assert.Same(t, a, blendRGBA(a, b, -0.5))
	assert.Same(t, b, blendRGBA(a, b, 1))
	assert.Same(t, b, blendRGBA(a, b, 1.5))
}

func TestBlendRGBAMidpoint(t *testing.T) {
	a := solidRGBA(4, 4, 200, 0, 0)
	b := solidRGBA(4, 4, 100, 0, 0)

	out := blendRGBA(a, b, 0.5)
	require.NotSame(t, a, out)
	assert.Equal(t, uint8(150), out.Pix[0])
	assert.Equal(t, uint8(0xFF), out.Pix[3], "alpha channel stays opaque")
}

func TestBlendRGBAWeightsSumToOne(t *testing.T) {
	// Blending an image with itself must be the identity at any alpha,
	// otherwise repeated crossfades would darken the output.
	a := solidRGBA(2, 2, 255, 255, 255)
	for _, alpha := range []float64{0.1, 0.3, 0.5, 0.7, 0.9} {
		out := blendRGBA(a, a, alpha)
		assert.Equal(t, uint8(255), out.Pix[0], "alpha %v", alpha)
	}
}

func TestResizeRGBA(t *testing.T) {
	img := solidRGBA(64, 48, 10, 20, 30)

	assert.Same(t, img, resizeRGBA(img, 64, 48), "no-op resize returns the input")

	out := resizeRGBA(img, 32, 24)
	assert.Equal(t, 32, out.Bounds().Dx())
	assert.Equal(t, 24, out.Bounds().Dy())
	// A solid image stays solid through any scaling kernel.
	assert.Equal(t, uint8(10), out.Pix[0])
	assert.Equal(t, uint8(20), out.Pix[1])
	assert.Equal(t, uint8(30), out.Pix[2])
}

func TestBlackFrame(t *testing.T) {
	img := blackFrame(8, 6)
	assert.Equal(t, 8, img.Bounds().Dx())
	assert.Equal(t, 6, img.Bounds().Dy())
	for i := 0; i < len(img.Pix); i += 4 {
		assert.Equal(t, uint8(0), img.Pix[i])
		assert.Equal(t, uint8(0), img.Pix[i+1])
		assert.Equal(t, uint8(0), img.Pix[i+2])
		assert.Equal(t, uint8(0xFF), img.Pix[i+3])
	}
}

func TestDecodeFrameRejectsGarbage(t *testing.T) {
	_, err := decodeFrame([]byte{0xFF, 0xD8, 0x00, 0xFF, 0xD9})
	assert.Error(t, err)
}
