package canvas

import "fmt"

type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Stroke is one recorded pointer gesture. Empty fields keep the board's
// current setting.
type Stroke struct {
	Tool   Tool    `json:"tool,omitempty"`
	Color  string  `json:"color,omitempty"`
	Width  int     `json:"width,omitempty"`
	Points []Point `json:"points"`
}

// Replay draws strokes in order as if they were pointer gestures.
func (b *Board) Replay(strokes []Stroke) error {
	for i, s := range strokes {
		if s.Tool != "" {
			if err := b.SetTool(s.Tool); err != nil {
				return fmt.Errorf("stroke %d: %w", i, err)
			}
		}
		if s.Color != "" {
			if err := b.SetColor(s.Color); err != nil {
				return fmt.Errorf("stroke %d: %w", i, err)
			}
		}
		if s.Width != 0 {
			b.SetBrushSize(s.Width)
		}
		if len(s.Points) == 0 {
			continue
		}

		b.PointerDown(s.Points[0].X, s.Points[0].Y)
		for _, p := range s.Points[1:] {
			b.PointerMove(p.X, p.Y)
		}
		b.PointerUp()
	}
	return nil
}
