package main

import (
	"fmt"
	"image"
	"image/color"
	"image/jpeg"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"
	"golang.org/x/image/draw"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/font/gofont/gobold"
	"golang.org/x/image/font/gofont/goregular"
	"golang.org/x/image/font/opentype"
	"golang.org/x/image/math/fixed"
)

const (
	ImageWidth  = 1200
	ImageHeight = 630

	titleFontSize  = 48
	footerFontSize = 18
	wrapWidth      = 28
	titleTop       = 120
	lineSpacing    = 8
	footerOffset   = 80
	jpegQuality    = 85
)

var (
	backgroundColor = color.RGBA{245, 245, 250, 255}
	titleColor      = color.RGBA{20, 20, 60, 255}
	footerColor     = color.RGBA{100, 100, 120, 255}
)

// fontDirs are searched when font_path is a bare file name
var fontDirs = []string{
	"/usr/share/fonts/truetype/dejavu",
	"/usr/share/fonts/dejavu",
	"/usr/share/fonts/TTF",
	"/Library/Fonts",
}

// HeaderRenderer draws header images with a title and a footer label
type HeaderRenderer struct {
	titleFace  font.Face
	footerFace font.Face
	footer     string
}

// NewHeaderRenderer loads the preferred font from fontPath. A missing or
// unreadable font is not an error: the embedded Go fonts are used instead,
// and basicfont as a last resort.
func NewHeaderRenderer(fontPath, footer string, logger *zap.Logger) *HeaderRenderer {
	titleFace, err := loadFace(fontPath, titleFontSize)
	if err != nil {
		logger.Debug("Preferred font unavailable, using built-in font", zap.String("font", fontPath), zap.Error(err))
		titleFace = builtinFace(gobold.TTF, titleFontSize)
	}

	footerFace, err := loadFace(regularVariant(fontPath), footerFontSize)
	if err != nil {
		footerFace = builtinFace(goregular.TTF, footerFontSize)
	}

	return &HeaderRenderer{
		titleFace:  titleFace,
		footerFace: footerFace,
		footer:     footer,
	}
}

// Render draws title onto a fixed-size canvas and writes it to outPath as JPEG
func (r *HeaderRenderer) Render(title, outPath string) error {
	if err := os.MkdirAll(filepath.Dir(outPath), 0755); err != nil {
		return fmt.Errorf("creating image directory: %w", err)
	}

	img := image.NewRGBA(image.Rect(0, 0, ImageWidth, ImageHeight))
	draw.Draw(img, img.Bounds(), &image.Uniform{C: backgroundColor}, image.Point{}, draw.Src)

	footerY := ImageHeight - footerOffset
	lineHeight := r.titleFace.Metrics().Height.Ceil()
	ascent := r.titleFace.Metrics().Ascent.Ceil()

	y := titleTop
	for _, line := range WrapText(title, wrapWidth) {
		if y+lineHeight > footerY {
			break
		}
		drawCentered(img, r.titleFace, titleColor, line, y+ascent)
		y += lineHeight + lineSpacing
	}

	if r.footer != "" {
		drawCentered(img, r.footerFace, footerColor, r.footer, footerY+r.footerFace.Metrics().Ascent.Ceil())
	}

	f, err := os.Create(outPath)
	if err != nil {
		return fmt.Errorf("creating image file: %w", err)
	}
	defer f.Close()

	if err := jpeg.Encode(f, img, &jpeg.Options{Quality: jpegQuality}); err != nil {
		return fmt.Errorf("encode JPEG: %w", err)
	}
	return f.Close()
}

func drawCentered(dst draw.Image, face font.Face, c color.Color, s string, baseline int) {
	d := &font.Drawer{
		Dst:  dst,
		Src:  image.NewUniform(c),
		Face: face,
	}
	width := d.MeasureString(s).Ceil()
	x := (ImageWidth - width) / 2
	if x < 0 {
		x = 0
	}
	d.Dot = fixed.P(x, baseline)
	d.DrawString(s)
}

// WrapText splits s into lines of at most width runes, breaking on spaces
// and splitting words longer than width
func WrapText(s string, width int) []string {
	var lines []string
	var current []rune

	for _, word := range strings.Fields(s) {
		w := []rune(word)
		for len(w) > width {
			if len(current) > 0 {
				lines = append(lines, string(current))
				current = nil
			}
			lines = append(lines, string(w[:width]))
			w = w[width:]
		}
		if len(w) == 0 {
			continue
		}
		switch {
		case len(current) == 0:
			current = w
		case len(current)+1+len(w) <= width:
			current = append(append(current, ' '), w...)
		default:
			lines = append(lines, string(current))
			current = w
		}
	}
	if len(current) > 0 {
		lines = append(lines, string(current))
	}
	return lines
}

func loadFace(path string, size float64) (font.Face, error) {
	data, err := readFont(path)
	if err != nil {
		return nil, err
	}
	return parseFace(data, size)
}

func readFont(path string) ([]byte, error) {
	if path == "" {
		return nil, fmt.Errorf("no font configured")
	}
	if data, err := os.ReadFile(path); err == nil || filepath.IsAbs(path) || strings.ContainsRune(path, os.PathSeparator) {
		return data, err
	}
	for _, dir := range fontDirs {
		if data, err := os.ReadFile(filepath.Join(dir, path)); err == nil {
			return data, nil
		}
	}
	return nil, fmt.Errorf("font %s not found", path)
}

func parseFace(data []byte, size float64) (font.Face, error) {
	f, err := opentype.Parse(data)
	if err != nil {
		return nil, fmt.Errorf("parsing font: %w", err)
	}
	face, err := opentype.NewFace(f, &opentype.FaceOptions{
		Size:    size,
		DPI:     72,
		Hinting: font.HintingFull,
	})
	if err != nil {
		return nil, fmt.Errorf("creating font face: %w", err)
	}
	return face, nil
}

func builtinFace(ttf []byte, size float64) font.Face {
	face, err := parseFace(ttf, size)
	if err != nil {
		return basicfont.Face7x13
	}
	return face
}

// regularVariant maps "DejaVuSans-Bold.ttf" to "DejaVuSans.ttf" for the footer
func regularVariant(path string) string {
	return strings.Replace(path, "-Bold", "", 1)
}
