// Package pareto computes the non-dominated frontier of region candidates
// over two objectives.
package pareto

import (
	"sort"

	"github.com/cass-sched/cass/pkg/scoring"
)

// Point is a candidate projected onto two objectives.
type Point struct {
	Region     string  `json:"region"`
	Objective1 float64 `json:"objective1"`
	Objective2 float64 `json:"objective2"`
}

// Named is a candidate that can be projected onto objectives.
type Named interface {
	scoring.Values
	RegionCode() string
}

// Dominates reports whether a dominates b: no worse on both objectives and
// strictly better on at least one. Identical points do not dominate each
// other.
func Dominates(a, b Point) bool {
	if a.Objective1 > b.Objective1 || a.Objective2 > b.Objective2 {
		return false
	}
	return a.Objective1 < b.Objective1 || a.Objective2 < b.Objective2
}

// Frontier returns the non-dominated candidates on (o1, o2), sorted
// ascending by o1. Ties on o1 keep input order.
//
// Pairwise comparison is quadratic; region catalogs are small.
func Frontier[T Named](candidates []T, o1, o2 scoring.Objective) []Point {
	points := make([]Point, len(candidates))
	for i, c := range candidates {
		points[i] = Point{Region: c.RegionCode(), Objective1: o1.Value(c), Objective2: o2.Value(c)}
	}
	return FrontierOf(points)
}

// FrontierOf is Frontier over already-projected points.
func FrontierOf(points []Point) []Point {
	frontier := make([]Point, 0, len(points))
	for i, p := range points {
		dominated := false
		for j, q := range points {
			if i != j && Dominates(q, p) {
				dominated = true
				break
			}
		}
		if !dominated {
			frontier = append(frontier, p)
		}
	}
	sort.SliceStable(frontier, func(i, j int) bool {
		return frontier[i].Objective1 < frontier[j].Objective1
	})
	return frontier
}
