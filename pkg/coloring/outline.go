package coloring

import "math"

// NoRegion marks a cell without data in a region grid.
const NoRegion = math.MinInt64

// OutlineRegions rewrites a row-major grid of colored cells so that only
// the boundary cells of each region keep a color. A colored cell is on a
// boundary when one of its four neighbors lies outside the grid or belongs
// to a different region. Interior cells become fully transparent. When
// color is not nil boundary cells are painted with it.
func OutlineRegions(rgba []uint8, regions []int64, rows, cols int, color *[4]uint8) {
	if rows*cols != len(regions) || len(rgba) != len(regions)*4 {
		panic("coloring: outline grid shape does not match buffers")
	}

	// decide every cell before writing so the test reads the original grid
	boundary := make([]bool, len(regions))
	for r := 0; r < rows; r++ {
		for c := 0; c < cols; c++ {
			idx := r*cols + c
			if regions[idx] == NoRegion || rgba[idx*4+3] == 0 {
				continue
			}
			boundary[idx] = differs(regions, rows, cols, r, c, regions[idx])
		}
	}

	for idx := range regions {
		if regions[idx] == NoRegion || rgba[idx*4+3] == 0 {
			continue
		}
		p := rgba[idx*4 : idx*4+4]
		switch {
		case !boundary[idx]:
			p[0], p[1], p[2], p[3] = 0, 0, 0, 0
		case color != nil:
			copy(p, color[:])
		}
	}
}

func differs(regions []int64, rows, cols, r, c int, region int64) bool {
	neighbors := [4][2]int{{r - 1, c}, {r + 1, c}, {r, c - 1}, {r, c + 1}}
	for _, n := range neighbors {
		if n[0] < 0 || n[0] >= rows || n[1] < 0 || n[1] >= cols {
			return true
		}
		if regions[n[0]*cols+n[1]] != region {
			return true
		}
	}
	return false
}
