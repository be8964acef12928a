package transformation

import (
	"bytes"
	"fmt"
	"image"
	"image/draw"
	"image/gif"

	"github.com/disintegration/imaging"
)

// resizeGIF scales every frame of a possibly animated GIF. Frames are
// composed onto the full canvas first, so each output frame is complete
// and is written with no disposal.
func resizeGIF(buffer []byte, width int, height int) ([]byte, error) {
	g, err := gif.DecodeAll(bytes.NewReader(buffer))
	if err != nil {
		return nil, fmt.Errorf("failed to decode gif: %w", err)
	}

	canvas := image.NewNRGBA(image.Rect(0, 0, g.Config.Width, g.Config.Height))
	out := &gif.GIF{
		LoopCount:       g.LoopCount,
		BackgroundIndex: g.BackgroundIndex,
		Config: image.Config{
			ColorModel: g.Config.ColorModel,
			Width:      width,
			Height:     height,
		},
	}

	for i, frame := range g.Image {
		var disposal byte
		if i < len(g.Disposal) {
			disposal = g.Disposal[i]
		}
		var previous *image.NRGBA
		if disposal == gif.DisposalPrevious {
			previous = imaging.Clone(canvas)
		}

		draw.Draw(canvas, frame.Bounds(), frame, frame.Bounds().Min, draw.Over)
		scaled := imaging.Resize(canvas, width, height, imaging.Lanczos)
		paletted := image.NewPaletted(image.Rect(0, 0, width, height), frame.Palette)
		draw.FloydSteinberg.Draw(paletted, paletted.Bounds(), scaled, image.Point{})

		out.Image = append(out.Image, paletted)
		out.Disposal = append(out.Disposal, gif.DisposalNone)
		if i < len(g.Delay) {
			out.Delay = append(out.Delay, g.Delay[i])
		} else {
			out.Delay = append(out.Delay, 0)
		}

		switch disposal {
		case gif.DisposalBackground:
			draw.Draw(canvas, frame.Bounds(), image.Transparent, image.Point{}, draw.Src)
		case gif.DisposalPrevious:
			canvas = previous
		}
	}

	buf := new(bytes.Buffer)
	if err := gif.EncodeAll(buf, out); err != nil {
		return nil, fmt.Errorf("error while encoding gif: %w", err)
	}
	return buf.Bytes(), nil
}
