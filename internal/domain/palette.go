package domain

import "sync"

var DefaultPalette = []string{
	"#3b82f6",
	"#10b981",
	"#8b5cf6",
	"#f97316",
	"#a16207",
	"#ec4899",
	"#14b8a6",
}

// Palette hands out trip colors in rotation. Safe for concurrent use.
type Palette struct {
	mu     sync.Mutex
	colors []string
	next   int
}

func NewPalette(colors []string) *Palette {
	if len(colors) == 0 {
		colors = DefaultPalette
	}
	return &Palette{colors: append([]string(nil), colors...)}
}

func (p *Palette) Next() string {
	p.mu.Lock()
	defer p.mu.Unlock()

	c := p.colors[p.next%len(p.colors)]
	p.next = (p.next + 1) % len(p.colors)
	return c
}
