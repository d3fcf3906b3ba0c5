// Package rocrate packages a Snakemake workflow directory into an RO-Crate
// metadata bundle (Workflow RO-Crate profile): the workflow file, its
// declared configuration files, and the README, described in a JSON-LD graph
// and written out as a directory or a zip.
package rocrate

import (
	"encoding/json"
	"os"
	"path"
	"regexp"
	"sort"
	"strings"

	"github.com/pkg/errors"
	"github.com/samber/lo"
	"github.com/spf13/afero"
)

const (
	// RepoURL identifies the workflow's home repository in the crate.
	RepoURL = "https://github.com/crs4/fair-crcc"

	// MetadataName is the fixed name of the crate metadata document.
	MetadataName = "ro-crate-metadata.json"

	crateContext    = "https://w3id.org/ro/crate/1.1/context"
	crateProfile    = "https://w3id.org/ro/crate/1.1"
	workflowProfile = "https://w3id.org/workflowhub/workflow-ro-crate/1.0"
	snakemakeID     = "https://w3id.org/workflowhub/workflow-ro-crate#snakemake"
	snakemakeURL    = "https://snakemake.readthedocs.io"
)

// Entity is one node of the crate's JSON-LD graph.
type Entity map[string]any

func ref(id string) Entity { return Entity{"@id": id} }

// Crate describes a workflow directory ready to be written as an RO-Crate.
type Crate struct {
	fs       afero.Fs
	root     string
	workflow string   // workflow file name, relative to root
	configs  []string // declared config files, relative to root
	readme   bool
}

var configfileRe = regexp.MustCompile(`(?m)^\s*configfile:\s*["']([^"']+)["']`)

// Build inspects the workflow directory at root: it locates the single
// *.smk workflow file (an error if there is none), collects the config files
// the workflow declares with configfile directives, and notes README.md when
// present.
func Build(fs afero.Fs, root string) (*Crate, error) {
	infos, err := afero.ReadDir(fs, root)
	if err != nil {
		return nil, errors.Wrapf(err, "read workflow dir %q", root)
	}
	smk := lo.FilterMap(infos, func(fi os.FileInfo, _ int) (string, bool) {
		return fi.Name(), !fi.IsDir() && strings.HasSuffix(fi.Name(), ".smk")
	})
	if len(smk) == 0 {
		return nil, errors.Errorf(".smk workflow file not found in %q", root)
	}
	sort.Strings(smk)

	c := &Crate{fs: fs, root: root, workflow: smk[0]}

	content, err := afero.ReadFile(fs, path.Join(root, c.workflow))
	if err != nil {
		return nil, errors.Wrapf(err, "read workflow file %q", c.workflow)
	}
	for _, m := range configfileRe.FindAllStringSubmatch(string(content), -1) {
		rel := m[1]
		if exists, _ := afero.Exists(fs, path.Join(root, rel)); exists {
			c.configs = append(c.configs, rel)
		}
	}

	c.readme, _ = afero.Exists(fs, path.Join(root, "README.md"))
	return c, nil
}

// Workflow returns the workflow file name relative to the crate root.
func (c *Crate) Workflow() string { return c.workflow }

// Configs returns the declared config files relative to the crate root.
func (c *Crate) Configs() []string { return c.configs }

// name is the crate and workflow display name: the workflow file stem.
func (c *Crate) name() string {
	return strings.TrimSuffix(c.workflow, path.Ext(c.workflow))
}

// files lists every payload file of the crate, relative to root.
func (c *Crate) files() []string {
	out := append([]string{c.workflow}, c.configs...)
	if c.readme {
		out = append(out, "README.md")
	}
	return out
}

// Metadata renders ro-crate-metadata.json.
func (c *Crate) Metadata() ([]byte, error) {
	hasPart := lo.Map(c.files(), func(rel string, _ int) Entity { return ref(rel) })

	graph := []Entity{
		{
			"@id":        MetadataName,
			"@type":      "CreativeWork",
			"conformsTo": []Entity{ref(crateProfile), ref(workflowProfile)},
			"about":      ref("./"),
		},
		{
			"@id":        "./",
			"@type":      "Dataset",
			"name":       c.name(),
			"isBasedOn":  RepoURL,
			"mainEntity": ref(c.workflow),
			"hasPart":    hasPart,
		},
		{
			"@id":                 c.workflow,
			"@type":               []string{"File", "SoftwareSourceCode", "ComputationalWorkflow"},
			"name":                c.name(),
			"url":                 RepoURL,
			"programmingLanguage": ref(snakemakeID),
		},
		{
			"@id":        snakemakeID,
			"@type":      "ComputerLanguage",
			"name":       "Snakemake",
			"identifier": ref(snakemakeURL),
			"url":        ref(snakemakeURL),
		},
	}
	for _, rel := range c.configs {
		graph = append(graph, Entity{
			"@id":         rel,
			"@type":       "File",
			"description": "workflow configuration file",
		})
	}
	if c.readme {
		graph = append(graph, Entity{"@id": "README.md", "@type": "File"})
	}

	doc := Entity{
		"@context": crateContext,
		"@graph":   graph,
	}
	return json.MarshalIndent(doc, "", "    ")
}
