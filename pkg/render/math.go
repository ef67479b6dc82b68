package render

import (
	"fmt"
	"math"
)

// Vec3 is a point or direction in world space.
type Vec3 struct {
	X, Y, Z float64
}

// Add returns v + o.
func (v Vec3) Add(o Vec3) Vec3 {
	return Vec3{v.X + o.X, v.Y + o.Y, v.Z + o.Z}
}

// Sub returns v - o.
func (v Vec3) Sub(o Vec3) Vec3 {
	return Vec3{v.X - o.X, v.Y - o.Y, v.Z - o.Z}
}

// Dot returns the dot product.
func (v Vec3) Dot(o Vec3) float64 {
	return v.X*o.X + v.Y*o.Y + v.Z*o.Z
}

// Cross returns the cross product.
func (v Vec3) Cross(o Vec3) Vec3 {
	return Vec3{
		v.Y*o.Z - v.Z*o.Y,
		v.Z*o.X - v.X*o.Z,
		v.X*o.Y - v.Y*o.X,
	}
}

// Length returns the Euclidean length.
func (v Vec3) Length() float64 {
	return math.Sqrt(v.Dot(v))
}

// Normalize returns v scaled to unit length, or the zero vector.
func (v Vec3) Normalize() Vec3 {
	l := v.Length()
	if l == 0 {
		return Vec3{}
	}
	return Vec3{v.X / l, v.Y / l, v.Z / l}
}

/*
row vectors, translation in the last row
+-          -+
| 0  1  2  3 |
| 4  5  6  7 |
| 8  9 10 11 |
|12 13 14 15 |
+-          -+
*/
type Matrix [16]float64

// Identity returns the identity matrix.
func Identity() Matrix {
	return Matrix{
		1, 0, 0, 0,
		0, 1, 0, 0,
		0, 0, 1, 0,
		0, 0, 0, 1,
	}
}

func (m Matrix) String() string {
	s := ""
	for i, n := range m {
		if i > 0 && i%4 == 0 {
			s += "\n"
		}
		s += fmt.Sprintf("%6.3f ", n)
	}
	return s
}

// Mul returns m * o.
func (m Matrix) Mul(o Matrix) Matrix {
	var r Matrix
	for row := 0; row < 4; row++ {
		for col := 0; col < 4; col++ {
			var sum float64
			for k := 0; k < 4; k++ {
				sum += m[row*4+k] * o[k*4+col]
			}
			r[row*4+col] = sum
		}
	}
	return r
}

// TransformPoint applies m to p with w = 1 and divides by the resulting w.
func (m Matrix) TransformPoint(p Vec3) Vec3 {
	x := p.X*m[0] + p.Y*m[4] + p.Z*m[8] + m[12]
	y := p.X*m[1] + p.Y*m[5] + p.Z*m[9] + m[13]
	z := p.X*m[2] + p.Y*m[6] + p.Z*m[10] + m[14]
	w := p.X*m[3] + p.Y*m[7] + p.Z*m[11] + m[15]
	if w != 0 && w != 1 {
		return Vec3{x / w, y / w, z / w}
	}
	return Vec3{x, y, z}
}

// Equals compares element-wise to the given number of decimal places.
func (m Matrix) Equals(o Matrix, precision int) bool {
	eps := math.Pow(10, float64(-precision))
	for i := range m {
		if math.Abs(m[i]-o[i]) > eps {
			return false
		}
	}
	return true
}

// PerspectiveFovLH builds a left-handed perspective projection. fovy is
// the vertical field of view in radians.
func PerspectiveFovLH(fovy, aspect, near, far float64) Matrix {
	h := 1 / math.Tan(fovy/2)
	w := h / aspect
	return Matrix{
		w, 0, 0, 0,
		0, h, 0, 0,
		0, 0, far / (far - near), 1,
		0, 0, -near * far / (far - near), 0,
	}
}

// OrthoLH builds a left-handed orthographic projection of a view volume
// width by height units wide.
func OrthoLH(width, height, near, far float64) Matrix {
	return Matrix{
		2 / width, 0, 0, 0,
		0, 2 / height, 0, 0,
		0, 0, 1 / (far - near), 0,
		0, 0, near / (near - far), 1,
	}
}

// LookAtLH builds a left-handed view matrix for a camera at eye facing
// target.
func LookAtLH(eye, target, up Vec3) Matrix {
	z := target.Sub(eye).Normalize()
	if z.Length() == 0 {
		z.Z = 1
	}
	x := up.Cross(z).Normalize()
	if x.Length() == 0 {
		z.X += 0.0001
		x = up.Cross(z).Normalize()
	}
	y := z.Cross(x)

	return Matrix{
		x.X, y.X, z.X, 0,
		x.Y, y.Y, z.Y, 0,
		x.Z, y.Z, z.Z, 0,
		-x.Dot(eye), -y.Dot(eye), -z.Dot(eye), 1,
	}
}

// orthoZoom converts a field of view in radians into the divisor the
// orthographic view volume is scaled by.
func orthoZoom(fov float64) float64 {
	return fov * 180 / math.Pi / 5
}

// Projection returns the projection for a camera on a viewport of the
// given size.
func Projection(info CameraInfo, width, height int) Matrix {
	if height <= 0 {
		height = 1
	}
	if info.Orthographic {
		z := orthoZoom(info.FOV)
		if z == 0 {
			z = 1
		}
		return OrthoLH(float64(width)/z, float64(height)/z, info.Near, info.Far)
	}
	return PerspectiveFovLH(info.FOV, float64(width)/float64(height), info.Near, info.Far)
}
