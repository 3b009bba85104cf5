package gene

import "math"

// Gene is the capability every genome element must provide: deep copy and
// value equality. The engine never looks inside a gene beyond these two
// operations.
type Gene[E any] interface {
	Clone() E
	Equal(E) bool
}

// Int is an integer-valued gene.
type Int int

func (g Int) Clone() Int { return g }

func (g Int) Equal(other Int) bool { return g == other }

// Point is a 2-D coordinate gene.
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

func (p Point) Clone() Point { return p }

func (p Point) Equal(other Point) bool { return p.X == other.X && p.Y == other.Y }

// Distance returns the euclidean distance to other.
func (p Point) Distance(other Point) float64 {
	return math.Hypot(p.X-other.X, p.Y-other.Y)
}

// CloneSlice deep-copies a gene sequence via each gene's Clone.
func CloneSlice[E Gene[E]](genome []E) []E {
	out := make([]E, len(genome))
	for i, g := range genome {
		out[i] = g.Clone()
	}
	return out
}

// Contains reports whether genome holds a gene equal to g.
func Contains[E Gene[E]](genome []E, g E) bool {
	for _, existing := range genome {
		if existing.Equal(g) {
			return true
		}
	}
	return false
}
