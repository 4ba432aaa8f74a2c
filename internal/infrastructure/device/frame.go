package device

import (
	"bytes"
	"image"
	"image/color"
	"image/jpeg"
	"sync"
	"time"
)

// Frame is one JPEG image from the camera. Placeholder frames stand in while the camera is
// unreachable.
type Frame struct {
	JPEG        []byte
	At          time.Time
	Placeholder bool
}

const (
	placeholderWidth  = 320
	placeholderHeight = 240
)

var (
	placeholderOnce sync.Once
	placeholderJPEG []byte
)

// placeholder returns a dark frame with a red status bar.
func placeholder() []byte {
	placeholderOnce.Do(func() {
		img := image.NewRGBA(image.Rect(0, 0, placeholderWidth, placeholderHeight))
		bg := color.RGBA{R: 32, G: 32, B: 32, A: 255}
		bar := color.RGBA{R: 200, G: 40, B: 40, A: 255}
		for y := 0; y < placeholderHeight; y++ {
			for x := 0; x < placeholderWidth; x++ {
				c := bg
				if y >= placeholderHeight-24 {
					c = bar
				}
				img.SetRGBA(x, y, c)
			}
		}

		var buf bytes.Buffer
		_ = jpeg.Encode(&buf, img, &jpeg.Options{Quality: 70})
		placeholderJPEG = buf.Bytes()
	})
	return placeholderJPEG
}

func placeholderFrame(at time.Time) Frame {
	return Frame{JPEG: placeholder(), At: at, Placeholder: true}
}

// validJPEG checks the header without decoding the whole image.
func validJPEG(b []byte) bool {
	if len(b) < 2 || b[0] != 0xFF || b[1] != 0xD8 {
		return false
	}
	_, err := jpeg.DecodeConfig(bytes.NewReader(b))
	return err == nil
}
