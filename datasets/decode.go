package datasets

import (
	"image"
	"io"
	"os"

	// Decoders available to DecodeImage.
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"

	"github.com/Noofbiz/imagenet/transforms"
	"github.com/pkg/errors"
)

// ErrDecode is returned when a file can't be decoded as an image.
var ErrDecode = errors.New("failed to decode image")

// decodeError is ErrDecode with the decoder's error as its cause.
type decodeError struct {
	err error
}

func (e *decodeError) Error() string {
	return ErrDecode.Error() + ": " + e.err.Error()
}

func (e *decodeError) Unwrap() error { return e.err }

func (e *decodeError) Is(target error) bool { return target == ErrDecode }

// DecodeImage decodes an image in any of the registered formats (JPEG, PNG, GIF, BMP, TIFF
// and WebP) and converts it with transforms.Canonical. It returns the format name.
//
// Failures match ErrDecode and unwrap to the decoder's error.
func DecodeImage(r io.Reader) (image.Image, string, error) {
	img, format, err := image.Decode(r)
	if err != nil {
		return nil, "", &decodeError{err}
	}
	return transforms.Canonical(img), format, nil
}

// DecodeFile opens and decodes the image at path.
func DecodeFile(path string) (image.Image, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to open image %s", path)
	}
	defer f.Close()
	img, _, err := DecodeImage(f)
	if err != nil {
		return nil, errors.WithMessagef(err, "file %s", path)
	}
	return img, nil
}
