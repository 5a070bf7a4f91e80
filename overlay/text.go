package overlay

import (
	"fmt"
	"image"
	"image/draw"
	"os"

	"golang.org/x/image/font"
	"golang.org/x/image/font/opentype"
	"golang.org/x/image/math/fixed"
)

// FontAtlasSize is the edge length of the rasterized glyph atlas.
const FontAtlasSize = 512

// Glyph is one rasterized character in the atlas: texture window,
// pixel size, bearing offset and advance.
type Glyph struct {
	UVMin [2]float32
	UVMax [2]float32
	Size  [2]float32
	Off   [2]float32
	Adv   float32
}

// FontAtlas packs the printable ASCII range of one face into an alpha
// texture and keeps per-glyph metrics for layout.
type FontAtlas struct {
	Image  *image.Alpha
	Glyphs map[rune]Glyph

	ascent     float32
	lineHeight float32
}

// LoadFontAtlas reads and rasterizes a TTF/OTF font file.
func LoadFontAtlas(path string, size float64) (*FontAtlas, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read font %s: %w", path, err)
	}
	return NewFontAtlas(data, size)
}

// NewFontAtlas rasterizes a font from raw TTF/OTF bytes at the given
// point size.
func NewFontAtlas(fontBytes []byte, size float64) (*FontAtlas, error) {
	f, err := opentype.Parse(fontBytes)
	if err != nil {
		return nil, fmt.Errorf("parse font: %w", err)
	}
	face, err := opentype.NewFace(f, &opentype.FaceOptions{
		Size:    size,
		DPI:     72,
		Hinting: font.HintingFull,
	})
	if err != nil {
		return nil, fmt.Errorf("create face: %w", err)
	}
	defer face.Close()

	atlas := image.NewAlpha(image.Rect(0, 0, FontAtlasSize, FontAtlasSize))
	glyphs := make(map[rune]Glyph)

	x, y := 2, 2
	rowHeight := 0
	for r := rune(32); r < 127; r++ {
		bounds, mask, _, adv, ok := face.Glyph(fixed.Point26_6{}, r)
		if !ok {
			continue
		}

		w := mask.Bounds().Dx()
		h := mask.Bounds().Dy()
		if x+w >= FontAtlasSize {
			x = 2
			y += rowHeight + 4
			rowHeight = 0
		}
		if y+h >= FontAtlasSize {
			break
		}

		draw.Draw(atlas, image.Rect(x, y, x+w, y+h), mask, mask.Bounds().Min, draw.Src)

		glyphs[r] = Glyph{
			UVMin: [2]float32{float32(x) / FontAtlasSize, float32(y) / FontAtlasSize},
			UVMax: [2]float32{float32(x+w) / FontAtlasSize, float32(y+h) / FontAtlasSize},
			Size:  [2]float32{float32(w), float32(h)},
			Off:   [2]float32{float32(bounds.Min.X), float32(bounds.Min.Y)},
			Adv:   float32(adv) / 64.0, // fixed 26.6 to float
		}

		x += w + 4
		if h > rowHeight {
			rowHeight = h
		}
	}

	metrics := face.Metrics()
	return &FontAtlas{
		Image:      atlas,
		Glyphs:     glyphs,
		ascent:     float32(metrics.Ascent.Ceil()),
		lineHeight: float32(metrics.Height.Ceil()),
	}, nil
}

// LineHeight returns the scaled baseline-to-baseline distance.
func (fa *FontAtlas) LineHeight(scale float32) float32 {
	return fa.lineHeight * scale
}

// Measure returns the pixel width and height of a text block at the
// given scale, honoring newlines.
func (fa *FontAtlas) Measure(text string, scale float32) (float32, float32) {
	maxW := float32(0)
	lineW := float32(0)
	lines := 1

	for _, r := range text {
		if r == '\n' {
			if lineW > maxW {
				maxW = lineW
			}
			lineW = 0
			lines++
			continue
		}
		g, ok := fa.Glyphs[r]
		if !ok {
			continue
		}
		lineW += g.Adv * scale
	}
	if lineW > maxW {
		maxW = lineW
	}
	return maxW, fa.lineHeight * scale * float32(lines)
}

// Layout tessellates a text block into overlay geometry at a top-left
// pixel position. The returned paint references the font texture the
// atlas was registered under.
func (fa *FontAtlas) Layout(texture TextureId, text string, x, y, scale float32, color [4]float32) PaintData {
	paint := PaintData{Texture: texture}

	posX := x
	posY := y + fa.ascent*scale
	for _, r := range text {
		if r == '\n' {
			posX = x
			posY += fa.lineHeight * scale
			continue
		}
		g, ok := fa.Glyphs[r]
		if !ok {
			continue
		}

		x0 := posX + g.Off[0]*scale
		y0 := posY + g.Off[1]*scale
		x1 := x0 + g.Size[0]*scale
		y1 := y0 + g.Size[1]*scale

		base := uint32(len(paint.Vertices))
		paint.Vertices = append(paint.Vertices,
			Vertex{Position: [2]float32{x0, y0}, UV: [2]float32{g.UVMin[0], g.UVMin[1]}, Color: color},
			Vertex{Position: [2]float32{x1, y0}, UV: [2]float32{g.UVMax[0], g.UVMin[1]}, Color: color},
			Vertex{Position: [2]float32{x1, y1}, UV: [2]float32{g.UVMax[0], g.UVMax[1]}, Color: color},
			Vertex{Position: [2]float32{x0, y1}, UV: [2]float32{g.UVMin[0], g.UVMax[1]}, Color: color},
		)
		paint.Indices = append(paint.Indices,
			base, base+1, base+2,
			base, base+2, base+3,
		)

		posX += g.Adv * scale
	}

	return paint
}
