package mixer

import (
	"bytes"
	"image"
	"image/jpeg"

	xdraw "golang.org/x/image/draw"
)

// jpegQuality matches the source encoder setting of the upstream cameras.
const jpegQuality = 85

// smoothstep is the cubic easing curve t*t*(3-2t). It maps linear transition
// progress onto a crossfade alpha with zero slope at both ends.
func smoothstep(t float64) float64 {
	if t < 0 {
		t = 0
	}
	if t > 1 {
		t = 1
	}
	return t * t * (3 - 2*t)
}

// decodeFrame decodes JPEG bytes into an RGBA image.
func decodeFrame(data []byte) (*image.RGBA, error) {
	img, err := jpeg.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, err
	}
	return toRGBA(img), nil
}

func toRGBA(img image.Image) *image.RGBA {
	if rgba, ok := img.(*image.RGBA); ok {
		return rgba
	}
	bounds := img.Bounds()
	rgba := image.NewRGBA(image.Rect(0, 0, bounds.Dx(), bounds.Dy()))
	xdraw.Draw(rgba, rgba.Bounds(), img, bounds.Min, xdraw.Src)
	return rgba
}

// resizeRGBA scales img to w×h with an approximate bilinear kernel, fast
// enough to run inside the mix tick.
func resizeRGBA(img *image.RGBA, w, h int) *image.RGBA {
	if img.Bounds().Dx() == w && img.Bounds().Dy() == h {
		return img
	}
	dst := image.NewRGBA(image.Rect(0, 0, w, h))
	xdraw.ApproxBiLinear.Scale(dst, dst.Bounds(), img, img.Bounds(), xdraw.Src, nil)
	return dst
}

// blackFrame returns an opaque black w×h image, used when a source has
// never produced a frame during a transition.
func blackFrame(w, h int) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for i := 3; i < len(img.Pix); i += 4 {
		img.Pix[i] = 0xFF
	}
	return img
}

// blendRGBA computes (1-alpha)*a + alpha*b per pixel. Both images must
// share dimensions; alpha is the weight of b.
func blendRGBA(a, b *image.RGBA, alpha float64) *image.RGBA {
	if alpha <= 0 {
		return a
	}
	if alpha >= 1 {
		return b
	}
	out := image.NewRGBA(a.Bounds())
	wb := uint32(alpha*256 + 0.5)
	wa := 256 - wb
	for i := range out.Pix {
		out.Pix[i] = uint8((uint32(a.Pix[i])*wa + uint32(b.Pix[i])*wb) >> 8)
	}
	return out
}

// encodeJPEG encodes img at the reference quality.
func encodeJPEG(img image.Image) ([]byte, error) {
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: jpegQuality}); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
