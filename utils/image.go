package utils

import (
	"bytes"
	"errors"
	"image"
	_ "image/gif"
	"image/jpeg"
	_ "image/png"
	"io"

	_ "golang.org/x/image/bmp"
	"golang.org/x/image/draw"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"
)

// ImageDimensions Read width and height from the image header without
// decoding the pixels. Formats: jpeg, png, gif, bmp, tiff, webp.
func ImageDimensions(r io.Reader) (width, height int, format string, err error) {
	config, format, err := image.DecodeConfig(r)
	if err != nil {
		return 0, 0, "", err
	}
	return config.Width, config.Height, format, nil
}

// Placeholder Scale img down so its longest edge is maxEdge pixels. Images
// that are already small enough are returned as they are.
func Placeholder(img image.Image, maxEdge int) image.Image {
	b := img.Bounds()
	w, h := b.Dx(), b.Dy()
	if maxEdge <= 0 || (w <= maxEdge && h <= maxEdge) {
		return img
	}
	if w >= h {
		h = max(1, h*maxEdge/w)
		w = maxEdge
	} else {
		w = max(1, w*maxEdge/h)
		h = maxEdge
	}
	dst := image.NewRGBA(image.Rect(0, 0, w, h))
	draw.ApproxBiLinear.Scale(dst, dst.Bounds(), img, b, draw.Over, nil)
	return dst
}

// ImageToJpgBuffer Convert an image to jpg bytes
func ImageToJpgBuffer(img image.Image, options *jpeg.Options) ([]byte, error) {
	buf := new(bytes.Buffer)
	if err := jpeg.Encode(buf, img, options); err != nil {
		return nil, errors.New("jpeg encode error")
	}
	return buf.Bytes(), nil
}
