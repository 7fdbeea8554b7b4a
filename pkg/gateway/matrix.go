package gateway

// Matrix is a 4x4 row-major placement. The rotation block occupies the
// upper-left 3x3 and the translation sits in the last column.
type Matrix [16]float64

// Identity returns the identity placement.
func Identity() Matrix {
	return Matrix{
		1, 0, 0, 0,
		0, 1, 0, 0,
		0, 0, 1, 0,
		0, 0, 0, 1,
	}
}

// Translation returns a pure translation.
func Translation(x, y, z float64) Matrix {
	m := Identity()
	m[3], m[7], m[11] = x, y, z
	return m
}

// Origin returns the translation component.
func (m Matrix) Origin() (x, y, z float64) {
	return m[3], m[7], m[11]
}

// IsZero reports whether the matrix was never set.
func (m Matrix) IsZero() bool {
	return m == Matrix{}
}

// Mul returns m * n, the placement n expressed in m's parent frame.
func (m Matrix) Mul(n Matrix) Matrix {
	var out Matrix
	for r := 0; r < 4; r++ {
		for c := 0; c < 4; c++ {
			var s float64
			for k := 0; k < 4; k++ {
				s += m[r*4+k] * n[k*4+c]
			}
			out[r*4+c] = s
		}
	}
	return out
}
