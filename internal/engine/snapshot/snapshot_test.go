package snapshot

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/dshills/facekit/internal/document"
	"github.com/dshills/facekit/internal/event"
)

func testDoc() *document.Document {
	d := document.NewMesh("face",
		[]document.Vec3{{0, 0, 0}, {1, 0, 0}, {0, 1, 0}, {0, 0, 1}},
		[]document.Face{{0, 1, 2}, {0, 2, 3}})
	d.Landmarks["pn"] = document.Vec3{0, 0, 1}
	d.Paths["alar"] = []document.Vec3{{0, 0, 0}, {1, 0, 0}}
	d.Cameras[0] = document.Camera{Position: document.Vec3{0, 0, 10}, FOV: 30}
	d.Metadata["subject"] = "S01"
	return d
}

func TestFieldsFor(t *testing.T) {
	tests := []struct {
		name string
		g    event.Group
		want Field
	}{
		{"camera only", event.Of(event.CameraChange), FieldCameras},
		{"geometry", event.Of(event.GeometryChange), FieldGeometry | FieldBounds},
		{"mesh", event.MeshChange, FieldGeometry | FieldConnectivity | FieldBounds},
		{"affine", event.Of(event.AffineChange), FieldTransform | FieldBounds},
		{"landmarks", event.Of(event.LandmarksChange), FieldLandmarks},
		{"metadata", event.Of(event.MetadataChange), FieldMetadata},
		{"select captures nothing", event.Of(event.ModelSelect), FieldNone},
		{"all data", event.ModelData, FieldAll},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, FieldsFor(tt.g), "got %s", FieldsFor(tt.g))
		})
	}
}

func TestCapture_CameraOnlyIsSelective(t *testing.T) {
	d := testDoc()
	s := Capture(d, event.Of(event.CameraChange))

	assert.Equal(t, FieldCameras, s.Fields())
	assert.Nil(t, s.geometry)
	assert.Nil(t, s.landmarks)
	assert.Nil(t, s.metadata)
	assert.Len(t, s.cameras, 1)
}

func TestRestore_RoundTripLeavesOtherFieldsAlone(t *testing.T) {
	d := testDoc()
	s := Capture(d, event.Of(event.GeometryChange))

	d.Lock()
	d.Geometry[0] = document.Vec3{5, 5, 5}
	d.RecomputeBounds()
	d.Metadata["subject"] = "S02" // not implied by the group
	d.Unlock()

	d.Lock()
	s.Restore(d)
	d.Unlock()

	assert.Equal(t, document.Vec3{0, 0, 0}, d.Geometry[0])
	assert.Equal(t, document.Vec3{0, 0, 0}, d.Bounds.Min)
	assert.Equal(t, document.Vec3{1, 1, 1}, d.Bounds.Max)
	assert.Equal(t, "S02", d.Metadata["subject"], "metadata was not captured")
}

func TestRestore_SnapshotUnchangedAndReusable(t *testing.T) {
	d := testDoc()
	s := Capture(d, event.Of(event.LandmarksChange))

	d.Landmarks["pn"] = document.Vec3{9, 9, 9}
	s.Restore(d)
	d.Landmarks["pn"] = document.Vec3{8, 8, 8}
	s.Restore(d)

	assert.Equal(t, document.Vec3{0, 0, 1}, d.Landmarks["pn"])
}

func TestCapture_DeepCopies(t *testing.T) {
	d := testDoc()
	s := Capture(d, event.ModelData)

	d.Geometry[1] = document.Vec3{7, 7, 7}
	d.Connectivity.Faces[0] = document.Face{3, 2, 1}
	d.Paths["alar"][0] = document.Vec3{4, 4, 4}

	assert.Equal(t, document.Vec3{1, 0, 0}, s.geometry[1])
	assert.Equal(t, document.Face{0, 1, 2}, s.connectivity.Faces[0])
	assert.Equal(t, document.Vec3{0, 0, 0}, s.paths["alar"][0])
}

func TestField_String(t *testing.T) {
	assert.Equal(t, "none", FieldNone.String())
	assert.Equal(t, "geometry|bounds", (FieldGeometry | FieldBounds).String())
}
