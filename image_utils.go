package detprep

import (
	"fmt"
	"image"
	_ "image/jpeg" // Register decoders for the accepted extensions.
	_ "image/png"
	"os"

	"github.com/disintegration/imaging"
)

// decodeImageConfig opens the file at path and returns the results of image.DecodeConfig.
func decodeImageConfig(path string) (config image.Config, format string, err error) {
	file, err := os.Open(path)
	if err != nil {
		return image.Config{}, "", err
	}
	defer file.Close()

	return image.DecodeConfig(file)
}

// verifyImage fully decodes the image at path and checks that it has a non-empty size.
func verifyImage(path string) error {
	img, err := imaging.Open(path)
	if err != nil {
		return err
	}
	if b := img.Bounds(); b.Dx() <= 0 || b.Dy() <= 0 {
		return fmt.Errorf("image %q has no pixels", path)
	}
	return nil
}
