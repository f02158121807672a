package geometry

import (
	"reflect"
	"testing"
)

func gridOf(rows ...string) [][]byte {
	g := make([][]byte, len(rows))
	for i, r := range rows {
		g[i] = []byte(r)
	}
	return g
}

func TestParseRangesMergesHorizontalRuns(t *testing.T) {
	t.Parallel()

	grid := gridOf(
		"---",
		"- -",
		"---",
	)

	got := ParseRanges(grid, SymbolWall)
	want := []Range{
		{Row: 0, Col: 0, Length: 3},
		{Row: 1, Col: 0, Length: 1},
		{Row: 1, Col: 2, Length: 1},
		{Row: 2, Col: 0, Length: 3},
	}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("ranges = %v, want %v", got, want)
	}
}

func TestParseRangesReconstructsInput(t *testing.T) {
	t.Parallel()

	grid := gridOf(
		"--- W-",
		"I  WW-",
		"-- - -",
	)

	for _, symbol := range []byte{SymbolWall, SymbolStart, SymbolGoal} {
		expanded := make(map[[2]int]bool)
		prev := Range{Row: -1, Col: -1}
		for _, r := range ParseRanges(grid, symbol) {
			if r.Row < prev.Row || (r.Row == prev.Row && r.Col <= prev.Col+prev.Length-1) {
				t.Fatalf("symbol %q: range %v out of order or overlapping %v", symbol, r, prev)
			}
			prev = r
			for k := 0; k < r.Length; k++ {
				cell := [2]int{r.Row, r.Col + k}
				if expanded[cell] {
					t.Fatalf("symbol %q: cell %v covered twice", symbol, cell)
				}
				expanded[cell] = true
			}
		}

		for i, row := range grid {
			for j, cell := range row {
				if (cell == symbol) != expanded[[2]int{i, j}] {
					t.Fatalf("symbol %q: cell (%d,%d) coverage mismatch", symbol, i, j)
				}
			}
		}
	}
}

func TestProcessIsDeterministic(t *testing.T) {
	t.Parallel()

	grid := gridOf(
		"----",
		"I  W",
		"----",
	)
	r := Radius{X: 0.01, Y: 0.01}

	a, err := Process(grid, r)
	if err != nil {
		t.Fatalf("first Process: %v", err)
	}
	b, err := Process(grid, r)
	if err != nil {
		t.Fatalf("second Process: %v", err)
	}

	if !reflect.DeepEqual(a.Walls(), b.Walls()) ||
		!reflect.DeepEqual(a.StartZone(), b.StartZone()) ||
		!reflect.DeepEqual(a.GoalZone(), b.GoalZone()) {
		t.Fatal("two derivations from the same grid differ")
	}
}

func TestProcessRejectsBadInput(t *testing.T) {
	t.Parallel()

	if _, err := Process(nil, Radius{X: 0.1, Y: 0.1}); err != ErrEmptyGrid {
		t.Fatalf("empty grid: err = %v, want ErrEmptyGrid", err)
	}
	ragged := [][]byte{[]byte("--"), []byte("-")}
	if _, err := Process(ragged, Radius{X: 0.1, Y: 0.1}); err != ErrRaggedGrid {
		t.Fatalf("ragged grid: err = %v, want ErrRaggedGrid", err)
	}
	ok := gridOf("-W")
	if _, err := Process(ok, Radius{X: 0, Y: 0.1}); err != ErrInvalidRadius {
		t.Fatalf("zero radius: err = %v, want ErrInvalidRadius", err)
	}
}

func TestHitsGoalOnSingleCellGrid(t *testing.T) {
	t.Parallel()

	g, err := Process(gridOf("W"), Radius{X: 0.1, Y: 0.1})
	if err != nil {
		t.Fatalf("Process: %v", err)
	}

	if !g.HitsGoal(Position{X: 0.5, Y: 0.5}) {
		t.Fatal("center of a 1x1 goal grid should hit the goal")
	}
	// Out-of-range positions clamp into the grid instead of panicking.
	if !g.HitsGoal(Position{X: 2, Y: 2}) {
		t.Fatal("out-of-range position should clamp onto the goal cell")
	}
}

func TestHitTestsAgainstCorridor(t *testing.T) {
	t.Parallel()

	// One row: wall, start, floor, goal. Each cell spans 0.25 on x.
	g, err := Process(gridOf("-I W"), Radius{X: 0.05, Y: 0.05})
	if err != nil {
		t.Fatalf("Process: %v", err)
	}

	if !g.HitsWall(Position{X: 0.26, Y: 0.5}) {
		t.Fatal("footprint overlapping the wall cell should hit")
	}
	if g.HitsWall(Position{X: 0.6, Y: 0.5}) {
		t.Fatal("footprint over floor should not hit a wall")
	}
	if !g.HitsGoal(Position{X: 0.9, Y: 0.5}) {
		t.Fatal("footprint inside the goal cell should hit the goal")
	}
	if !g.IsStart(Position{X: 0.3, Y: 0.5}) {
		t.Fatal("center inside the start cell should test as start")
	}
	// IsStart samples a single point: a center just outside the start cell
	// is rejected even when the radius would overlap it.
	if g.IsStart(Position{X: 0.51, Y: 0.5}) {
		t.Fatal("center outside the start cell should not test as start")
	}
}

func TestWithSamplerOverridesPolicy(t *testing.T) {
	t.Parallel()

	center := func(p Position, _ Radius) []Position { return []Position{p} }
	g, err := Process(gridOf("-I W"), Radius{X: 0.3, Y: 0.3}, WithSampler(center))
	if err != nil {
		t.Fatalf("Process: %v", err)
	}

	// With a center-only sampler the wide radius no longer reaches the wall.
	if g.HitsWall(Position{X: 0.3, Y: 0.5}) {
		t.Fatal("center-only sampler should ignore the radius")
	}
}
