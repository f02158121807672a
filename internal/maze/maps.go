// Package maze holds the built-in map catalog shared by every participant.
// All clients of a room must agree on this catalog: the authority only
// distributes an index into it.
package maze

// Map pairs a symbolic grid with the collision radius tuned for it. Denser
// mazes carry a smaller radius so corridors stay passable.
type Map struct {
	rows   []string
	Radius float64
}

// Grid expands the map into the byte grid the geometry processor consumes.
func (m Map) Grid() [][]byte {
	grid := make([][]byte, len(m.rows))
	for i, row := range m.rows {
		grid[i] = []byte(row)
	}
	return grid
}

var catalog = []Map{
	{
		Radius: 0.01,
		rows: []string{
			"---------------WW-",
			"-                -",
			"- - - ---- -- - --",
			"- - - -     - - --",
			"-       --       -",
			"--- -- -  - -- ---",
			"-                -",
			"- -- - ---- -- - -",
			"-                -",
			"-II---------------",
		},
	},
	{
		Radius: 0.015,
		rows: []string{
			"-------------------",
			"I    -  -         -",
			"- -  - -  ---- -  -",
			"-      - -        -",
			"- --- --   --- -- -",
			"-        -        -",
			"-  - -      -     -",
			"-  - - - -   -  - -",
			"-        - -      -",
			"- - ---- - --- -  -",
			"- -      -        -",
			"-----------------W-",
		},
	},
	{
		Radius: 0.02,
		rows: []string{
			"------------------",
			"-        -       -",
			"- ------ - ----- -",
			"-   -  -   -     -",
			"---    -----  -- -",
			"- ----   -   --  -",
			"-        -    - --",
			"- -------- -------",
			"I        - -  -  W",
			"---    ---       -",
			"- ---- - -  -- ---",
			"-    - -         -",
			"---- - ---- ------",
			"-      -         -",
			"------------------",
		},
	},
	{
		Radius: 0.025,
		rows: []string{
			"-II----------------",
			"-  -  -  -        -",
			"-  -     - - -- - -",
			"-  - - --- -  - - -",
			"-- - -  -  -  - - -",
			"-             - - -",
			"- --  -----  -- - -",
			"-       -     -   -",
			"- - --- -------   -",
			"- -  -     -    ---",
			"- -  -   -----    -",
			"- -               W",
			"-----------------WW",
		},
	},
}

// Count returns the number of built-in maps.
func Count() int { return len(catalog) }

// At returns the map for index, wrapping modulo the catalog size so cyclic
// navigation never goes out of range.
func At(index int) Map {
	n := len(catalog)
	i := ((index % n) + n) % n
	return catalog[i]
}

// Normalize maps an arbitrary index onto the valid catalog range.
func Normalize(index int) int {
	n := len(catalog)
	return ((index % n) + n) % n
}
