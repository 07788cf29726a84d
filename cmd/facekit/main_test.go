package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCmd()
	var out, errOut bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)
	cmd.SetArgs(append([]string{"--log-level", "error", "--log-format", "json"}, args...))
	err := cmd.ExecuteContext(context.Background())
	return out.String(), err
}

func TestVersion(t *testing.T) {
	out, err := execute(t, "version")
	require.NoError(t, err)
	assert.Contains(t, out, "facekit dev")
}

func TestActions_ListsCatalogue(t *testing.T) {
	out, err := execute(t, "actions")
	require.NoError(t, err)
	for _, name := range []string{"model.load", "model.undo", "edit.transform", "analysis.remesh", "view.wireframe"} {
		assert.Contains(t, out, name)
	}
	assert.Contains(t, out, "async")

	out, err = execute(t, "actions", "-n", "edit")
	require.NoError(t, err)
	assert.Contains(t, out, "edit.metadata")
	assert.NotContains(t, out, "model.load")
}

func TestDemo_DefaultSession(t *testing.T) {
	out, err := execute(t, "demo")
	require.NoError(t, err)

	assert.Contains(t, out, "Opened face")
	assert.Contains(t, out, "Documents")
	assert.Contains(t, out, "pronasale")
	assert.NotContains(t, out, "not run")

	vertices, faces := uvSphere(sphereStacks, sphereSlices)
	assert.Contains(t, out, "face")
	assert.Contains(t, out, strconv.Itoa(len(vertices)))
	assert.Contains(t, out, strconv.Itoa(len(faces)))
}

func TestDemo_ScriptedAction(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tag.lua")
	require.NoError(t, os.WriteFile(path, []byte(`
action {
    name = "script.tag",
    undo = { "metadata" },
    run  = function(doc)
        doc:set_meta("tagged", "yes")
        status("tagged " .. doc:name())
    end,
}
`), 0o600))

	out, err := execute(t, "--script", path, "demo", "--answer", "Open model=s01.obj", "model.load", "script.tag", "model.undo")
	require.NoError(t, err)
	assert.Contains(t, out, "tagged s01")
	assert.Contains(t, out, "script.tag")
	assert.NotContains(t, out, "not run")
}

func TestDemo_CancelledPromptIsNotRun(t *testing.T) {
	out, err := execute(t, "demo", "--answer", "subject=x", "model.load")
	require.NoError(t, err)
	assert.Contains(t, out, "not run")
}

func TestDemo_Errors(t *testing.T) {
	_, err := execute(t, "demo", "--answer", "no-equals")
	assert.ErrorContains(t, err, "label=value")

	_, err = execute(t, "demo", "model.teleport")
	assert.ErrorContains(t, err, "model.teleport")

	_, err = execute(t, "--script", filepath.Join(t.TempDir(), "missing.lua"), "actions")
	assert.Error(t, err)
}

func TestSynth(t *testing.T) {
	doc, err := sphereLoader{}.Load(context.Background(), "/scans/s01.obj")
	require.NoError(t, err)
	assert.Equal(t, "s01", doc.Name)
	assert.True(t, doc.HasMesh())

	found, err := extremaDetector{}.Detect(context.Background(), doc.Geometry, doc.Connectivity.Faces)
	require.NoError(t, err)
	assert.Len(t, found, 3)
	assert.Greater(t, found["nose"][2], 5.0)

	v, f, err := midpointRemesher{}.Remesh(context.Background(), doc.Geometry, doc.Connectivity.Faces)
	require.NoError(t, err)
	assert.Len(t, f, 4*len(doc.Connectivity.Faces))
	// Each edge is shared by two faces, so V' = V + E = V + 3F/2.
	assert.Len(t, v, len(doc.Geometry)+3*len(doc.Connectivity.Faces)/2)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, _, err = midpointRemesher{}.Remesh(ctx, doc.Geometry, doc.Connectivity.Faces)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestAnswerBook(t *testing.T) {
	b, err := parseAnswers([]string{"Landmark=nose", "Landmark = chin", "New name=tip=top"})
	require.NoError(t, err)

	v, ok := b.Prompt("Landmark", "")
	assert.True(t, ok)
	assert.Equal(t, "nose", v)
	v, _ = b.Prompt("Landmark", "")
	assert.Equal(t, " chin", v)
	_, ok = b.Prompt("Landmark", "")
	assert.False(t, ok)

	v, _ = b.Prompt("New name", "")
	assert.Equal(t, "tip=top", v)
}
