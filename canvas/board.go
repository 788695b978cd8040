// Package canvas is a headless drawing surface: pen and eraser strokes are
// rasterized into an 800x600 RGBA image which can be saved as a PNG data URL.
package canvas

import (
	"bytes"
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"image/png"
	"math"
	"strconv"
	"sync"

	"github.com/sirupsen/logrus"
	"github.com/srwiley/rasterx"
	"golang.org/x/image/math/fixed"
)

type Tool string

const (
	ToolPen    Tool = "pen"
	ToolEraser Tool = "eraser"
)

const (
	Width  = 800
	Height = 600

	MinBrushSize     = 1
	MaxBrushSize     = 50
	DefaultBrushSize = 5
	DefaultColor     = "#000000"

	DataURLPrefix = "data:image/png;base64,"
)

// Palette is the fixed colour set offered next to the canvas.
var Palette = []string{
	"#000000", "#FF0000", "#00FF00", "#0000FF",
	"#FFFF00", "#FF00FF", "#00FFFF", "#FFA500",
	"#800080", "#008000", "#FFC0CB", "#A52A2A",
}

var (
	ErrNoSaver      = errors.New("canvas: no saver configured")
	ErrInvalidColor = errors.New("canvas: invalid colour")
	ErrInvalidTool  = errors.New("canvas: invalid tool")
)

// Saver persists an encoded image and returns the new record id.
type Saver interface {
	Insert(ctx context.Context, imageData string) (string, error)
}

type Option func(*Board)

func WithSaver(s Saver) Option {
	return func(b *Board) { b.saver = s }
}

// WithSaveComplete registers the callback run after a successful save.
func WithSaveComplete(fn func(id string)) Option {
	return func(b *Board) { b.onSaved = fn }
}

func WithBackground(c color.RGBA) Option {
	return func(b *Board) { b.background = c }
}

// Board is safe for concurrent use.
type Board struct {
	mu sync.Mutex

	img     *image.RGBA
	stroker *rasterx.Stroker

	tool       Tool
	color      color.RGBA
	colorHex   string
	brushSize  int
	background color.RGBA

	drawing bool
	last    fixed.Point26_6
	saving  bool

	saver   Saver
	onSaved func(id string)
}

func New(opts ...Option) *Board {
	b := &Board{
		tool:       ToolPen,
		color:      color.RGBA{A: 0xff},
		colorHex:   DefaultColor,
		brushSize:  DefaultBrushSize,
		background: color.RGBA{R: 0xff, G: 0xff, B: 0xff, A: 0xff},
	}
	for _, opt := range opts {
		opt(b)
	}

	b.img = image.NewRGBA(image.Rect(0, 0, Width, Height))
	scanner := rasterx.NewScannerGV(Width, Height, b.img, b.img.Bounds())
	b.stroker = rasterx.NewStroker(Width, Height, scanner)
	b.fill()
	return b
}

func (b *Board) fill() {
	draw.Draw(b.img, b.img.Bounds(), &image.Uniform{C: b.background}, image.Point{}, draw.Src)
}

func (b *Board) SetTool(t Tool) error {
	if t != ToolPen && t != ToolEraser {
		return fmt.Errorf("%w: %q", ErrInvalidTool, t)
	}
	b.mu.Lock()
	b.tool = t
	b.mu.Unlock()
	return nil
}

func (b *Board) Tool() Tool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.tool
}

// SetColor accepts a #RRGGBB string.
func (b *Board) SetColor(hex string) error {
	c, err := ParseColor(hex)
	if err != nil {
		return err
	}
	b.mu.Lock()
	b.color = c
	b.colorHex = hex
	b.mu.Unlock()
	return nil
}

func (b *Board) Color() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.colorHex
}

// SetBrushSize clamps size to [MinBrushSize, MaxBrushSize] and returns the
// value actually applied.
func (b *Board) SetBrushSize(size int) int {
	size = max(MinBrushSize, min(MaxBrushSize, size))
	b.mu.Lock()
	b.brushSize = size
	b.mu.Unlock()
	return size
}

func (b *Board) BrushSize() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.brushSize
}

// Drawing reports whether a stroke is in progress.
func (b *Board) Drawing() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.drawing
}

// Saving reports whether a save is in flight.
func (b *Board) Saving() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.saving
}

// PointerDown starts a stroke. Non-finite coordinates are ignored.
func (b *Board) PointerDown(x, y float64) {
	p, ok := toFixed(x, y)
	if !ok {
		return
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	b.drawing = true
	b.last = p
}

// PointerMove paints the segment from the previous pointer position while a
// stroke is active; otherwise it does nothing. Non-finite coordinates are
// ignored.
func (b *Board) PointerMove(x, y float64) {
	next, ok := toFixed(x, y)
	if !ok {
		return
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	if !b.drawing {
		return
	}

	paint := b.color
	if b.tool == ToolEraser {
		paint = b.background
	}

	b.stroker.Clear()
	b.stroker.SetStroke(fixed.Int26_6(b.brushSize<<6), 0, rasterx.RoundCap, rasterx.RoundCap, rasterx.RoundGap, rasterx.Round)
	b.stroker.Start(b.last)
	b.stroker.Line(next)
	b.stroker.Stop(false)
	b.stroker.SetColor(paint)
	b.stroker.Draw()
	b.stroker.Clear()

	b.last = next
}

func (b *Board) PointerUp() {
	b.mu.Lock()
	b.drawing = false
	b.mu.Unlock()
}

func (b *Board) PointerLeave() {
	b.PointerUp()
}

// Clear repaints the whole surface with the background colour.
func (b *Board) Clear() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.fill()
}

// Image returns a copy of the current surface.
func (b *Board) Image() *image.RGBA {
	b.mu.Lock()
	defer b.mu.Unlock()
	return cloneRGBA(b.img)
}

// DataURL encodes the current surface as a PNG data URL.
func (b *Board) DataURL() (string, error) {
	return EncodeDataURL(b.Image())
}

// Save sends the encoded surface to the configured Saver. On success the
// surface is cleared and the save-complete callback receives the new id; on
// failure the surface is left as it was.
func (b *Board) Save(ctx context.Context) (string, error) {
	if b.saver == nil {
		return "", ErrNoSaver
	}

	b.mu.Lock()
	b.saving = true
	snapshot := cloneRGBA(b.img)
	b.mu.Unlock()

	defer func() {
		b.mu.Lock()
		b.saving = false
		b.mu.Unlock()
	}()

	imageData, err := EncodeDataURL(snapshot)
	if err != nil {
		return "", err
	}

	id, err := b.saver.Insert(ctx, imageData)
	if err != nil {
		logrus.WithError(err).Warn("Failed to save drawing")
		return "", err
	}

	logrus.WithField("id", id).Info("Drawing saved")
	b.Clear()
	if b.onSaved != nil {
		b.onSaved(id)
	}
	return id, nil
}

func EncodeDataURL(img image.Image) (string, error) {
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return "", fmt.Errorf("failed to encode png: %w", err)
	}
	return DataURLPrefix + base64.StdEncoding.EncodeToString(buf.Bytes()), nil
}

// DecodeDataURL is the inverse of EncodeDataURL.
func DecodeDataURL(dataURL string) (image.Image, error) {
	if len(dataURL) < len(DataURLPrefix) || dataURL[:len(DataURLPrefix)] != DataURLPrefix {
		return nil, fmt.Errorf("not a png data url")
	}
	raw, err := base64.StdEncoding.DecodeString(dataURL[len(DataURLPrefix):])
	if err != nil {
		return nil, fmt.Errorf("failed to decode base64: %w", err)
	}
	img, err := png.Decode(bytes.NewReader(raw))
	if err != nil {
		return nil, fmt.Errorf("failed to decode png: %w", err)
	}
	return img, nil
}

func ParseColor(hex string) (color.RGBA, error) {
	if len(hex) != 7 || hex[0] != '#' {
		return color.RGBA{}, fmt.Errorf("%w: %q", ErrInvalidColor, hex)
	}
	v, err := strconv.ParseUint(hex[1:], 16, 32)
	if err != nil {
		return color.RGBA{}, fmt.Errorf("%w: %q", ErrInvalidColor, hex)
	}
	return color.RGBA{R: uint8(v >> 16), G: uint8(v >> 8), B: uint8(v), A: 0xff}, nil
}

// Points further off the surface than this are pulled in; 26.6 fixed point
// overflows long before float64 does.
const offCanvasMargin = 4

func toFixed(x, y float64) (fixed.Point26_6, bool) {
	if math.IsNaN(x) || math.IsNaN(y) || math.IsInf(x, 0) || math.IsInf(y, 0) {
		return fixed.Point26_6{}, false
	}
	x = max(-Width*offCanvasMargin, min(Width*offCanvasMargin, x))
	y = max(-Height*offCanvasMargin, min(Height*offCanvasMargin, y))
	return fixed.Point26_6{X: fixed.Int26_6(x * 64), Y: fixed.Int26_6(y * 64)}, true
}

func cloneRGBA(src *image.RGBA) *image.RGBA {
	dst := image.NewRGBA(src.Bounds())
	copy(dst.Pix, src.Pix)
	return dst
}
