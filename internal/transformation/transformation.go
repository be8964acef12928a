package transformation

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"image/gif"
	"image/png"

	// We must import the image formats we want to support,
	// even if we don't use them directly. This "registers"
	// their decoders with the standard 'image' package.
	_ "image/jpeg"

	"github.com/disintegration/imaging"
	"github.com/mahirjain10/image-handlers/internal/types"
)

// Compression schemes, named the way ImageMagick reports them.
const (
	CompressionJPEG = "JPEG"
	CompressionZip  = "Zip"
	CompressionLZW  = "LZW"
)

var (
	ErrUnsupportedFormat      = errors.New("unsupported image format")
	ErrUnsupportedCompression = errors.New("unsupported compression")
)

// Codec identifies, re-encodes and resizes JPEG, PNG and GIF images held in
// memory.
type Codec struct{}

func NewCodec() *Codec {
	return &Codec{}
}

// getFormat maps the string format from image.Decode to the imaging.Format enum
func getFormat(format string) (imaging.Format, error) {
	switch format {
	case "jpeg":
		return imaging.JPEG, nil
	case "png":
		return imaging.PNG, nil
	case "gif":
		return imaging.GIF, nil
	default:
		return -1, fmt.Errorf("%w: %s", ErrUnsupportedFormat, format)
	}
}

func compressionFor(format string) string {
	switch format {
	case "jpeg":
		return CompressionJPEG
	case "png":
		return CompressionZip
	case "gif":
		return CompressionLZW
	default:
		return ""
	}
}

// decode returns the image with its EXIF orientation applied, plus the
// name of the format it was stored in.
func decode(buffer []byte) (image.Image, string, error) {
	_, format, err := image.DecodeConfig(bytes.NewReader(buffer))
	if err != nil {
		return nil, "", fmt.Errorf("failed to decode image: %w", err)
	}
	img, err := imaging.Decode(bytes.NewReader(buffer), imaging.AutoOrientation(true))
	if err != nil {
		return nil, "", fmt.Errorf("failed to decode image: %w", err)
	}
	return img, format, nil
}

// Identify reports dimensions, format, quality, compression and size.
// Quality is only known for JPEG and is 0 otherwise.
func (c *Codec) Identify(buffer []byte) (types.ImageInfo, error) {
	img, format, err := decode(buffer)
	if err != nil {
		return types.ImageInfo{}, err
	}
	info := types.ImageInfo{
		Width:       img.Bounds().Dx(),
		Height:      img.Bounds().Dy(),
		Format:      format,
		Compression: compressionFor(format),
		Filesize:    int64(len(buffer)),
	}
	if format == "jpeg" {
		info.Quality = EstimateJPEGQuality(buffer)
	}
	return info, nil
}

// Encode re-encodes the image with the given quality and compression.
func (c *Codec) Encode(buffer []byte, opts types.EncodeOptions) ([]byte, error) {
	buf := new(bytes.Buffer)
	switch opts.Compression {
	case CompressionJPEG:
		img, _, err := decode(buffer)
		if err != nil {
			return nil, err
		}
		if err := imaging.Encode(buf, img, imaging.JPEG, imaging.JPEGQuality(opts.Quality)); err != nil {
			return nil, fmt.Errorf("error while encoding jpeg: %w", err)
		}

	case CompressionZip:
		img, _, err := decode(buffer)
		if err != nil {
			return nil, err
		}
		level := pngCompressionLevel(opts.Quality)
		if err := imaging.Encode(buf, img, imaging.PNG, imaging.PNGCompressionLevel(level)); err != nil {
			return nil, fmt.Errorf("error while encoding png: %w", err)
		}

	case CompressionLZW:
		// imaging keeps only the first frame, so animated GIFs go through image/gif.
		g, err := gif.DecodeAll(bytes.NewReader(buffer))
		if err != nil {
			return nil, fmt.Errorf("failed to decode gif: %w", err)
		}
		if err := gif.EncodeAll(buf, g); err != nil {
			return nil, fmt.Errorf("error while encoding gif: %w", err)
		}

	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedCompression, opts.Compression)
	}
	return buf.Bytes(), nil
}

// Resize scales the image to exactly width x height and re-encodes it in
// its source format.
func (c *Codec) Resize(buffer []byte, width int, height int) ([]byte, error) {
	if width < 1 || height < 1 {
		return nil, fmt.Errorf("invalid target size %dx%d", width, height)
	}
	if _, formatStr, err := image.DecodeConfig(bytes.NewReader(buffer)); err == nil && formatStr == "gif" {
		return resizeGIF(buffer, width, height)
	}
	img, formatStr, err := decode(buffer)
	if err != nil {
		return nil, err
	}

	format, err := getFormat(formatStr)
	if err != nil {
		return nil, err
	}

	newImage := imaging.Resize(img, width, height, imaging.Lanczos)

	buf := new(bytes.Buffer)
	if err = imaging.Encode(buf, newImage, format); err != nil {
		return nil, fmt.Errorf("error while resizing: %w", err)
	}
	return buf.Bytes(), nil
}

// pngCompressionLevel reads the zlib level from the tens digit of the
// quality, as ImageMagick does for PNG output.
func pngCompressionLevel(quality int) png.CompressionLevel {
	switch level := quality / 10; {
	case level <= 0:
		return png.NoCompression
	case level <= 3:
		return png.BestSpeed
	case level >= 9:
		return png.BestCompression
	default:
		return png.DefaultCompression
	}
}
