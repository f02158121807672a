package maze

import (
	"testing"

	"github.com/mauro7x/maze-runner/internal/geometry"
)

func TestCatalogMapsAreProcessable(t *testing.T) {
	t.Parallel()

	for i := 0; i < Count(); i++ {
		m := At(i)
		g, err := geometry.Process(m.Grid(), geometry.Radius{X: m.Radius, Y: m.Radius})
		if err != nil {
			t.Fatalf("map %d does not process: %v", i, err)
		}
		if len(g.StartZone()) == 0 {
			t.Fatalf("map %d has no start zone", i)
		}
		if len(g.GoalZone()) == 0 {
			t.Fatalf("map %d has no goal zone", i)
		}
		if len(g.Walls()) == 0 {
			t.Fatalf("map %d has no walls", i)
		}
	}
}

func TestAtWrapsCyclically(t *testing.T) {
	t.Parallel()

	if Normalize(Count()) != 0 {
		t.Fatalf("index past the end should wrap to 0, got %d", Normalize(Count()))
	}
	if Normalize(-1) != Count()-1 {
		t.Fatalf("index -1 should wrap to the last map, got %d", Normalize(-1))
	}
	if At(Count()).Radius != At(0).Radius {
		t.Fatal("At should wrap the same way Normalize does")
	}
}
