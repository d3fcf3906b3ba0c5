package rocrate

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/klauspost/compress/zip"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/require"
)

const testWorkflow = `configfile: "config.yaml"

rule all:
    input:
        "results/done"
`

func workflowFs(t *testing.T) afero.Fs {
	t.Helper()
	fs := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(fs, "wf/crcc.smk", []byte(testWorkflow), 0o644))
	require.NoError(t, afero.WriteFile(fs, "wf/config.yaml", []byte("threads: 4\n"), 0o644))
	require.NoError(t, afero.WriteFile(fs, "wf/README.md", []byte("# crcc\n"), 0o644))
	return fs
}

func graphByID(t *testing.T, metadata []byte) map[string]map[string]any {
	t.Helper()
	var doc struct {
		Context string           `json:"@context"`
		Graph   []map[string]any `json:"@graph"`
	}
	require.NoError(t, json.Unmarshal(metadata, &doc))
	require.Equal(t, crateContext, doc.Context)
	out := make(map[string]map[string]any, len(doc.Graph))
	for _, e := range doc.Graph {
		out[e["@id"].(string)] = e
	}
	return out
}

func TestBuild(t *testing.T) {
	c, err := Build(workflowFs(t), "wf")
	require.NoError(t, err)
	require.Equal(t, "crcc.smk", c.Workflow())
	require.Equal(t, []string{"config.yaml"}, c.Configs())
}

func TestBuildNoWorkflow(t *testing.T) {
	fs := afero.NewMemMapFs()
	require.NoError(t, fs.MkdirAll("empty", 0o755))
	_, err := Build(fs, "empty")
	require.Error(t, err)
	require.Contains(t, err.Error(), ".smk workflow file not found")
}

func TestBuildMissingConfigSkipped(t *testing.T) {
	fs := afero.NewMemMapFs()
	wf := "configfile: \"nope.yaml\"\n"
	require.NoError(t, afero.WriteFile(fs, "wf/crcc.smk", []byte(wf), 0o644))
	c, err := Build(fs, "wf")
	require.NoError(t, err)
	require.Empty(t, c.Configs())
}

func TestMetadata(t *testing.T) {
	c, err := Build(workflowFs(t), "wf")
	require.NoError(t, err)
	metadata, err := c.Metadata()
	require.NoError(t, err)
	graph := graphByID(t, metadata)

	descriptor := graph[MetadataName]
	require.NotNil(t, descriptor)
	conformsTo, _ := json.Marshal(descriptor["conformsTo"])
	require.Contains(t, string(conformsTo), crateProfile)
	require.Contains(t, string(conformsTo), workflowProfile)

	root := graph["./"]
	require.NotNil(t, root)
	require.Equal(t, "crcc", root["name"])
	require.Equal(t, RepoURL, root["isBasedOn"])
	require.Len(t, root["hasPart"], 3)

	wf := graph["crcc.smk"]
	require.NotNil(t, wf)
	types, _ := json.Marshal(wf["@type"])
	require.Contains(t, string(types), "ComputationalWorkflow")
	require.Equal(t, RepoURL, wf["url"])

	require.NotNil(t, graph[snakemakeID])
	require.Equal(t, "workflow configuration file", graph["config.yaml"]["description"])
	require.NotNil(t, graph["README.md"])
}

func TestWriteDir(t *testing.T) {
	fs := workflowFs(t)
	c, err := Build(fs, "wf")
	require.NoError(t, err)
	require.NoError(t, c.Write(fs, "out-crate"))

	for _, name := range []string{
		"out-crate/" + MetadataName,
		"out-crate/crcc.smk",
		"out-crate/config.yaml",
		"out-crate/README.md",
	} {
		exists, err := afero.Exists(fs, name)
		require.NoError(t, err)
		require.True(t, exists, "missing %s", name)
	}

	data, err := afero.ReadFile(fs, "out-crate/crcc.smk")
	require.NoError(t, err)
	require.Equal(t, testWorkflow, string(data))
}

func TestWriteZip(t *testing.T) {
	c, err := Build(workflowFs(t), "wf")
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, c.WriteZip(&buf))

	zr, err := zip.NewReader(bytes.NewReader(buf.Bytes()), int64(buf.Len()))
	require.NoError(t, err)
	names := make(map[string]bool, len(zr.File))
	for _, f := range zr.File {
		names[f.Name] = true
	}
	require.True(t, names[MetadataName])
	require.True(t, names["crcc.smk"])
	require.True(t, names["config.yaml"])
	require.True(t, names["README.md"])
}
