// Package images - Encoded raster inputs such as page scans and mask images.
package images

import (
	"bytes"
	"image"
	"image/jpeg"
	"image/png"
	"os"
	"path/filepath"
	"strings"

	"github.com/chai2010/webp"
	"github.com/pkg/errors"
)

// Image represents an image with a format, data, width, and height.
type Image struct {
	// The format of the image.
	Format ImageFormat `json:"format" yaml:"format"`
	// The data of the image.
	Data []byte `json:"data" yaml:"data"`
	// The width of the image.
	Width int `json:"width" yaml:"width"`
	// The height of the image.
	Height int `json:"height" yaml:"height"`
}

// ImageFormat represents supported image formats
type ImageFormat string

// ImageFormat constants
const (
	// FormatJPEG is the JPEG image format.
	FormatJPEG ImageFormat = "jpeg"
	// FormatWebP is the WebP image format.
	FormatWebP ImageFormat = "webp"
	// FormatPNG is the PNG image format.
	FormatPNG ImageFormat = "png"
)

// FormatFromPath derives the image format from a file extension.
func FormatFromPath(path string) (ImageFormat, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".png":
		return FormatPNG, nil
	case ".jpg", ".jpeg":
		return FormatJPEG, nil
	case ".webp":
		return FormatWebP, nil
	default:
		return "", errors.Errorf("unsupported image extension %q", filepath.Ext(path))
	}
}

// ReadImage loads an encoded image from disk.
func ReadImage(path string) (*Image, error) {
	format, err := FormatFromPath(path)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "reading %s", path)
	}
	return &Image{Format: format, Data: data}, nil
}

// Decode decodes the image data and records its dimensions.
func (img *Image) Decode() (image.Image, error) {
	if len(img.Data) == 0 {
		return nil, errors.New("empty image data")
	}

	var (
		decoded image.Image
		err     error
	)
	r := bytes.NewReader(img.Data)
	switch img.Format {
	case FormatPNG:
		decoded, err = png.Decode(r)
	case FormatJPEG:
		decoded, err = jpeg.Decode(r)
	case FormatWebP:
		decoded, err = webp.Decode(r)
	default:
		return nil, errors.Errorf("unsupported image format: %q", img.Format)
	}
	if err != nil {
		return nil, errors.Wrapf(err, "decoding %s image", img.Format)
	}

	b := decoded.Bounds()
	img.Width, img.Height = b.Dx(), b.Dy()
	return decoded, nil
}

// LoadMask reads a mask image (PNG, JPEG or WebP) and thresholds it at
// mid-gray, bright pixels being foreground.
func LoadMask(path string) (*Mask, error) {
	img, err := ReadImage(path)
	if err != nil {
		return nil, err
	}
	decoded, err := img.Decode()
	if err != nil {
		return nil, errors.Wrap(err, path)
	}
	return MaskFromImage(decoded), nil
}
