package numeric

import (
	"math"

	"gonum.org/v1/gonum/floats"
)

// Vector is a point in R^n. It doubles as the value f(x) of a vector function.
type Vector []float64

func (v Vector) Dim() int { return len(v) }

func (v Vector) Clone() Vector {
	c := make(Vector, len(v))
	copy(c, v)
	return c
}

func (v Vector) IsValid() bool {
	for _, x := range v {
		if math.IsNaN(x) || math.IsInf(x, 0) {
			return false
		}
	}
	return true
}

// Norm is the Euclidean norm. For a 1-vector it is the absolute value.
func (v Vector) Norm() float64 {
	return floats.Norm(v, 2)
}

// Add, Sub and Scale panic on mismatched lengths, like the gonum helpers they wrap.
func (v Vector) Add(other Vector) Vector {
	return floats.AddTo(make(Vector, len(v)), v, other)
}

func (v Vector) Sub(other Vector) Vector {
	return floats.SubTo(make(Vector, len(v)), v, other)
}

func (v Vector) Scale(factor float64) Vector {
	return floats.ScaleTo(make(Vector, len(v)), factor, v)
}
