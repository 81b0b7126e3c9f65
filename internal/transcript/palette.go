package transcript

import "sync"

// DefaultColors is the display palette, assigned to speakers in order
// of first appearance. Wraps around when a conversation has more
// speakers than colors.
var DefaultColors = []string{
	"#4F8EF7", // blue
	"#F7734F", // orange
	"#42B883", // green
	"#B067E8", // purple
	"#E8C547", // yellow
	"#E85D75", // pink
	"#47C2E8", // cyan
	"#9BA84A", // olive
}

// Palette hands out stable colors per speaker. Thread-safe.
type Palette struct {
	mu          sync.Mutex
	colors      []string
	assigned    map[string]string
	allocations int
}

// NewPalette creates a palette with the default colors.
func NewPalette() *Palette {
	return NewPaletteWithColors(nil)
}

// NewPaletteWithColors creates a palette with a custom color cycle.
// Empty falls back to DefaultColors.
func NewPaletteWithColors(colors []string) *Palette {
	if len(colors) == 0 {
		colors = DefaultColors
	}
	return &Palette{
		colors:   colors,
		assigned: make(map[string]string),
	}
}

// ColorFor returns the color for a speaker, allocating the next color
// in the cycle on first sight. Idempotent per speaker.
func (p *Palette) ColorFor(speaker string) string {
	p.mu.Lock()
	defer p.mu.Unlock()

	if c, ok := p.assigned[speaker]; ok {
		return c
	}
	c := p.colors[p.allocations%len(p.colors)]
	p.assigned[speaker] = c
	p.allocations++
	return c
}

// Allocations returns how many speakers have been assigned a color.
func (p *Palette) Allocations() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.allocations
}

// Size returns the number of colors in the cycle.
func (p *Palette) Size() int {
	return len(p.colors)
}

// Reset forgets all assignments. The next speaker starts the cycle over.
func (p *Palette) Reset() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.assigned = make(map[string]string)
	p.allocations = 0
}
