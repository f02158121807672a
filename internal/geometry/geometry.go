// Package geometry turns a symbolic maze grid into a queryable geometry:
// run-length-encoded boundary ranges per terrain symbol plus the containment
// tests every peer runs locally against the shared map.
package geometry

import (
	"errors"
	"math"
)

// Terrain symbols understood by the processor.
const (
	SymbolWall  byte = '-'
	SymbolStart byte = 'I'
	SymbolGoal  byte = 'W'
	SymbolFloor byte = ' '
)

var (
	ErrEmptyGrid     = errors.New("grid has no rows or no columns")
	ErrRaggedGrid    = errors.New("grid rows have inconsistent lengths")
	ErrInvalidRadius = errors.New("radius must be positive on both axes")
)

// Position is a normalized coordinate pair in [0,1]x[0,1].
type Position struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Radius holds the normalized half-extents of a player's footprint. The
// caller pre-divides X by the surface aspect ratio so the footprint stays
// visually circular on non-square cells.
type Radius struct {
	X float64
	Y float64
}

// Range encodes a maximal horizontal run of same-symbol cells.
type Range struct {
	Row    int `json:"row"`
	Col    int `json:"col"`
	Length int `json:"length"`
}

// Sampler picks the points to test for a radius-based containment query.
// Swapping it changes the collision policy without touching the protocol.
type Sampler func(p Position, r Radius) []Position

// CornerSampler tests the four corners of the axis-aligned rectangle of
// half-extents r centered at p. Coarse on purpose: it can miss obstacles
// thinner than the rectangle and report false hits near corners.
func CornerSampler(p Position, r Radius) []Position {
	return []Position{
		{X: p.X - r.X, Y: p.Y - r.Y},
		{X: p.X - r.X, Y: p.Y + r.Y},
		{X: p.X + r.X, Y: p.Y - r.Y},
		{X: p.X + r.X, Y: p.Y + r.Y},
	}
}

// Geometry is the derived, immutable representation of one map.
type Geometry struct {
	nRows   int
	nCols   int
	grid    [][]byte
	radius  Radius
	sampler Sampler

	walls []Range
	start []Range
	goal  []Range
}

// Option tweaks geometry construction.
type Option func(*Geometry)

// WithSampler replaces the default corner sampler.
func WithSampler(s Sampler) Option {
	return func(g *Geometry) {
		g.sampler = s
	}
}

// Process derives a Geometry from a raw grid and collision radius.
// Re-deriving from the same input yields a structurally identical result.
func Process(grid [][]byte, radius Radius, opts ...Option) (*Geometry, error) {
	if len(grid) == 0 || len(grid[0]) == 0 {
		return nil, ErrEmptyGrid
	}
	nCols := len(grid[0])
	for _, row := range grid[1:] {
		if len(row) != nCols {
			return nil, ErrRaggedGrid
		}
	}
	if radius.X <= 0 || radius.Y <= 0 {
		return nil, ErrInvalidRadius
	}

	g := &Geometry{
		nRows:   len(grid),
		nCols:   nCols,
		grid:    grid,
		radius:  radius,
		sampler: CornerSampler,
		walls:   ParseRanges(grid, SymbolWall),
		start:   ParseRanges(grid, SymbolStart),
		goal:    ParseRanges(grid, SymbolGoal),
	}
	for _, opt := range opts {
		opt(g)
	}
	return g, nil
}

// ParseRanges scans rows top to bottom and columns left to right, merging
// column-adjacent matches on the same row into one range. The result is the
// minimal run-length encoding of the cells equal to symbol.
func ParseRanges(grid [][]byte, symbol byte) []Range {
	var ranges []Range
	for i, row := range grid {
		for j, cell := range row {
			if cell != symbol {
				continue
			}
			if n := len(ranges); n > 0 {
				last := &ranges[n-1]
				if last.Row == i && last.Col+last.Length == j {
					last.Length++
					continue
				}
			}
			ranges = append(ranges, Range{Row: i, Col: j, Length: 1})
		}
	}
	return ranges
}

func (g *Geometry) NRows() int { return g.nRows }
func (g *Geometry) NCols() int { return g.nCols }

// Walls returns the wall boundary ranges, for the rendering layer.
func (g *Geometry) Walls() []Range { return g.walls }

// StartZone returns the start-zone boundary ranges.
func (g *Geometry) StartZone() []Range { return g.start }

// GoalZone returns the goal-zone boundary ranges.
func (g *Geometry) GoalZone() []Range { return g.goal }

// symbolAt quantizes a normalized position to a cell, clamping to grid
// bounds so out-of-range positions never index outside the grid.
func (g *Geometry) symbolAt(p Position) byte {
	row := clamp(int(math.Floor(p.Y*float64(g.nRows))), 0, g.nRows-1)
	col := clamp(int(math.Floor(p.X*float64(g.nCols))), 0, g.nCols-1)
	return g.grid[row][col]
}

func (g *Geometry) hits(p Position, symbol byte) bool {
	for _, q := range g.sampler(p, g.radius) {
		if g.symbolAt(q) == symbol {
			return true
		}
	}
	return false
}

// HitsWall reports whether a player footprint centered at p touches a wall
// cell under the configured sampling policy.
func (g *Geometry) HitsWall(p Position) bool {
	return g.hits(p, SymbolWall)
}

// HitsGoal reports whether a player footprint centered at p touches the
// goal zone under the configured sampling policy.
func (g *Geometry) HitsGoal(p Position) bool {
	return g.hits(p, SymbolGoal)
}

// IsStart is an exact single-point containment test against the start zone.
// No radius sampling here: only the center cell counts.
func (g *Geometry) IsStart(p Position) bool {
	return g.symbolAt(p) == SymbolStart
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
