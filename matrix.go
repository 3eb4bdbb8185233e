package mesh3mf

// Point3D defines a node of a mesh.
type Point3D [3]float32

// X returns the x coordinate.
func (p Point3D) X() float32 { return p[0] }

// Y returns the y coordinate.
func (p Point3D) Y() float32 { return p[1] }

// Z returns the z coordinate.
func (p Point3D) Z() float32 { return p[2] }

// Point2D defines a node of a slice polygon.
type Point2D [2]float32

// X returns the x coordinate.
func (p Point2D) X() float32 { return p[0] }

// Y returns the y coordinate.
func (p Point2D) Y() float32 { return p[1] }

// Matrix is a 4x4 affine transform stored column-major. The 3MF wire
// form carries only 12 numbers; the fourth row of every column is
// fixed at (0,0,0,1) and never serialized.
type Matrix [16]float32

// Identity returns the identity matrix.
func Identity() Matrix {
	return Matrix{
		1, 0, 0, 0,
		0, 1, 0, 0,
		0, 0, 1, 0,
		0, 0, 0, 1,
	}
}

// NewMatrix builds a matrix from the 12 wire values in document order.
func NewMatrix(v [12]float32) Matrix {
	return Matrix{
		v[0], v[1], v[2], 0,
		v[3], v[4], v[5], 0,
		v[6], v[7], v[8], 0,
		v[9], v[10], v[11], 1,
	}
}

// Values returns the 12 wire values in document order.
func (m Matrix) Values() [12]float32 {
	return [12]float32{
		m[0], m[1], m[2],
		m[4], m[5], m[6],
		m[8], m[9], m[10],
		m[12], m[13], m[14],
	}
}

// Mul returns m * other, composing other before m.
func (m Matrix) Mul(other Matrix) Matrix {
	var r Matrix
	for col := 0; col < 4; col++ {
		for row := 0; row < 4; row++ {
			var sum float32
			for k := 0; k < 4; k++ {
				sum += m[k*4+row] * other[col*4+k]
			}
			r[col*4+row] = sum
		}
	}
	return r
}

// MulPoint applies the affine transform to a point.
func (m Matrix) MulPoint(p Point3D) Point3D {
	return Point3D{
		m[0]*p[0] + m[4]*p[1] + m[8]*p[2] + m[12],
		m[1]*p[0] + m[5]*p[1] + m[9]*p[2] + m[13],
		m[2]*p[0] + m[6]*p[1] + m[10]*p[2] + m[14],
	}
}

// Determinant returns the determinant of the linear 3x3 part. With
// the fixed affine fourth row it equals the full 4x4 determinant.
func (m Matrix) Determinant() float64 {
	a, b, c := float64(m[0]), float64(m[4]), float64(m[8])
	d, e, f := float64(m[1]), float64(m[5]), float64(m[9])
	g, h, i := float64(m[2]), float64(m[6]), float64(m[10])
	return a*(e*i-f*h) - b*(d*i-f*g) + c*(d*h-e*g)
}
