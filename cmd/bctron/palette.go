package main

import (
	"github.com/gdamore/tcell/v2"
)

// the d3 category10 scheme the web renderer used
var category10 = []int32{
	0x1f77b4, 0xff7f0e, 0x2ca02c, 0xd62728, 0x9467bd,
	0x8c564b, 0xe377c2, 0x7f7f7f, 0xbcbd22, 0x17becf,
}

// ordinalPalette hands out colours to occupants in order of first sight,
// wrapping round the scheme.
type ordinalPalette struct {
	seen map[string]int
}

func newOrdinalPalette() *ordinalPalette {
	return &ordinalPalette{seen: map[string]int{}}
}

func (p *ordinalPalette) index(id string) int {
	i, ok := p.seen[id]
	if !ok {
		i = len(p.seen)
		p.seen[id] = i
	}
	return i % len(category10)
}

// Color is white for empty cells.
func (p *ordinalPalette) Color(id string) tcell.Color {
	if id == "" {
		return tcell.ColorWhite
	}
	return tcell.NewHexColor(category10[p.index(id)])
}
