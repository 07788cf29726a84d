package document

import "math"

// Vec3 is a point or direction in model space.
type Vec3 [3]float64

// Add returns v+o.
func (v Vec3) Add(o Vec3) Vec3 {
	return Vec3{v[0] + o[0], v[1] + o[1], v[2] + o[2]}
}

// Sub returns v-o.
func (v Vec3) Sub(o Vec3) Vec3 {
	return Vec3{v[0] - o[0], v[1] - o[1], v[2] - o[2]}
}

// Scale returns v*s.
func (v Vec3) Scale(s float64) Vec3 {
	return Vec3{v[0] * s, v[1] * s, v[2] * s}
}

// Len returns the Euclidean length of v.
func (v Vec3) Len() float64 {
	return math.Sqrt(v[0]*v[0] + v[1]*v[1] + v[2]*v[2])
}

// Mat4 is a row-major 4x4 affine transform.
type Mat4 [16]float64

// Identity returns the identity transform.
func Identity() Mat4 {
	return Mat4{
		1, 0, 0, 0,
		0, 1, 0, 0,
		0, 0, 1, 0,
		0, 0, 0, 1,
	}
}

// Translation returns a transform that moves points by t.
func Translation(t Vec3) Mat4 {
	m := Identity()
	m[3], m[7], m[11] = t[0], t[1], t[2]
	return m
}

// Scaling returns a uniform scale about the origin.
func Scaling(s float64) Mat4 {
	m := Identity()
	m[0], m[5], m[10] = s, s, s
	return m
}

// Mul returns m*o.
func (m Mat4) Mul(o Mat4) Mat4 {
	var r Mat4
	for i := 0; i < 4; i++ {
		for j := 0; j < 4; j++ {
			var s float64
			for k := 0; k < 4; k++ {
				s += m[i*4+k] * o[k*4+j]
			}
			r[i*4+j] = s
		}
	}
	return r
}

// Apply transforms point p.
func (m Mat4) Apply(p Vec3) Vec3 {
	return Vec3{
		m[0]*p[0] + m[1]*p[1] + m[2]*p[2] + m[3],
		m[4]*p[0] + m[5]*p[1] + m[6]*p[2] + m[7],
		m[8]*p[0] + m[9]*p[1] + m[10]*p[2] + m[11],
	}
}

// Bounds is an axis-aligned bounding box.
type Bounds struct {
	Min, Max Vec3
	Valid    bool
}

// Center returns the midpoint of the box.
func (b Bounds) Center() Vec3 {
	return b.Min.Add(b.Max).Scale(0.5)
}

// Diagonal returns the length of the box diagonal.
func (b Bounds) Diagonal() float64 {
	if !b.Valid {
		return 0
	}
	return b.Max.Sub(b.Min).Len()
}

// BoundsOf returns the bounds of pts after applying m.
func BoundsOf(pts []Vec3, m Mat4) Bounds {
	if len(pts) == 0 {
		return Bounds{}
	}
	first := m.Apply(pts[0])
	b := Bounds{Min: first, Max: first, Valid: true}
	for _, p := range pts[1:] {
		q := m.Apply(p)
		for i := 0; i < 3; i++ {
			b.Min[i] = math.Min(b.Min[i], q[i])
			b.Max[i] = math.Max(b.Max[i], q[i])
		}
	}
	return b
}

// Face is a triangle given as three vertex indices.
type Face [3]int

// Connectivity is the polygonal structure of a mesh.
type Connectivity struct {
	Faces []Face
	// Manifolds holds the manifold id of each face.
	Manifolds []int
}

// Clone returns a deep copy.
func (c Connectivity) Clone() Connectivity {
	return Connectivity{
		Faces:     append([]Face(nil), c.Faces...),
		Manifolds: append([]int(nil), c.Manifolds...),
	}
}

// ManifoldCount returns the number of distinct manifolds.
func (c Connectivity) ManifoldCount() int {
	seen := make(map[int]struct{}, 1)
	for _, m := range c.Manifolds {
		seen[m] = struct{}{}
	}
	return len(seen)
}

// Camera holds one view's camera parameters.
type Camera struct {
	Position Vec3
	Focus    Vec3
	ViewUp   Vec3
	FOV      float64
}
