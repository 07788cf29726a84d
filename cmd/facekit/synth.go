package main

import (
	"context"
	"math"
	"path/filepath"
	"strings"

	"github.com/dshills/facekit/internal/document"
)

// Model file formats are outside facekit, so the demo builds its models.

const (
	sphereStacks = 8
	sphereSlices = 12
)

// sphereLoader builds an ellipsoidal head for any path. The model sits off
// the origin so centring it is visible.
type sphereLoader struct{}

func (sphereLoader) Load(ctx context.Context, path string) (*document.Document, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	vertices, faces := uvSphere(sphereStacks, sphereSlices)
	offset := document.Vec3{0, 0, 5}
	for i, v := range vertices {
		vertices[i] = document.Vec3{v[0] * 0.8, v[1], v[2] * 0.9}.Add(offset)
	}
	doc := document.NewMesh(strings.TrimSuffix(filepath.Base(path), filepath.Ext(path)), vertices, faces)
	doc.Path = path
	return doc, nil
}

// uvSphere returns a unit sphere with a vertex at each pole.
func uvSphere(stacks, slices int) ([]document.Vec3, []document.Face) {
	vertices := []document.Vec3{{0, 1, 0}}
	for i := 1; i < stacks; i++ {
		phi := math.Pi * float64(i) / float64(stacks)
		for j := 0; j < slices; j++ {
			theta := 2 * math.Pi * float64(j) / float64(slices)
			vertices = append(vertices, document.Vec3{
				math.Sin(phi) * math.Cos(theta),
				math.Cos(phi),
				math.Sin(phi) * math.Sin(theta),
			})
		}
	}
	vertices = append(vertices, document.Vec3{0, -1, 0})
	bottom := len(vertices) - 1

	ring := func(i, j int) int { return 1 + (i-1)*slices + j%slices }
	var faces []document.Face
	for j := 0; j < slices; j++ {
		faces = append(faces, document.Face{0, ring(1, j+1), ring(1, j)})
	}
	for i := 1; i < stacks-1; i++ {
		for j := 0; j < slices; j++ {
			a, b := ring(i, j), ring(i, j+1)
			c, d := ring(i+1, j), ring(i+1, j+1)
			faces = append(faces, document.Face{a, b, d}, document.Face{a, d, c})
		}
	}
	for j := 0; j < slices; j++ {
		faces = append(faces, document.Face{bottom, ring(stacks-1, j), ring(stacks-1, j+1)})
	}
	return vertices, faces
}

// extremaDetector places landmarks on the extreme vertices of the mesh.
type extremaDetector struct{}

func (extremaDetector) Detect(ctx context.Context, vertices []document.Vec3, _ []document.Face) (map[string]document.Vec3, error) {
	if len(vertices) == 0 {
		return nil, nil
	}
	nose, top, chin := vertices[0], vertices[0], vertices[0]
	for i, v := range vertices {
		if i%64 == 0 {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
		}
		if v[2] > nose[2] {
			nose = v
		}
		if v[1] > top[1] {
			top = v
		}
		if v[1] < chin[1] {
			chin = v
		}
	}
	return map[string]document.Vec3{
		"nose":     nose,
		"vertex":   top,
		"gnathion": chin,
	}, nil
}

// midpointRemesher splits every triangle into four.
type midpointRemesher struct{}

func (midpointRemesher) Remesh(ctx context.Context, vertices []document.Vec3, faces []document.Face) ([]document.Vec3, []document.Face, error) {
	out := append([]document.Vec3(nil), vertices...)
	mids := make(map[[2]int]int)
	mid := func(a, b int) int {
		if a > b {
			a, b = b, a
		}
		if i, ok := mids[[2]int{a, b}]; ok {
			return i
		}
		out = append(out, out[a].Add(out[b]).Scale(0.5))
		mids[[2]int{a, b}] = len(out) - 1
		return len(out) - 1
	}

	split := make([]document.Face, 0, 4*len(faces))
	for i, f := range faces {
		if i%64 == 0 {
			if err := ctx.Err(); err != nil {
				return nil, nil, err
			}
		}
		ab, bc, ca := mid(f[0], f[1]), mid(f[1], f[2]), mid(f[2], f[0])
		split = append(split,
			document.Face{f[0], ab, ca},
			document.Face{ab, f[1], bc},
			document.Face{ca, bc, f[2]},
			document.Face{ab, bc, ca},
		)
	}
	return out, split, nil
}
