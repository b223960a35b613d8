package scene

import (
	"encoding/json"
	"fmt"
	"path"
	"strings"

	"github.com/hack-pad/hackpadfs"

	"umap-export/internal/outfs"
)

// JSONDir is the directory, relative to the output root, that holds scene documents.
const JSONDir = "jsons"

// RootFile is the top-level file naming the root document.
const RootFile = "processed.json"

// Serializer writes scene documents to an output filesystem.
type Serializer struct {
	fs     hackpadfs.FS
	indent bool
}

// NewSerializer returns a Serializer writing under fsys. indent pretty-prints the documents.
func NewSerializer(fsys hackpadfs.FS, indent bool) *Serializer {
	return &Serializer{fs: fsys, indent: indent}
}

// DocumentPaths returns the node and light file names of the document for a
// compact package path.
func DocumentPaths(pkg string) (nodes, lights string) {
	base := path.Join(JSONDir, strings.TrimPrefix(pkg, "/"))
	return base + ".processed.json", base + ".lights.processed.json"
}

// Write writes the node list and the light list of doc. It returns the node file name.
func (s *Serializer) Write(doc *Document) (string, error) {
	nodesFile, lightsFile := DocumentPaths(doc.Package)
	if err := s.writeJSON(nodesFile, doc.Nodes); err != nil {
		return "", err
	}
	records := doc.Lights.Records()
	if records == nil {
		records = []LightRecord{}
	}
	if err := s.writeJSON(lightsFile, records); err != nil {
		return "", err
	}
	return nodesFile, nil
}

// WriteRoot writes the top-level file naming the root document's compact path.
func (s *Serializer) WriteRoot(pkg string) error {
	return s.writeJSON(RootFile, pkg)
}

func (s *Serializer) writeJSON(name string, v any) error {
	var (
		data []byte
		err  error
	)
	if s.indent {
		data, err = json.MarshalIndent(v, "", "  ")
	} else {
		data, err = json.Marshal(v)
	}
	if err != nil {
		return fmt.Errorf("scene: encode %s: %w", name, err)
	}
	if err := outfs.WriteFile(s.fs, name, data); err != nil {
		return fmt.Errorf("scene: write %s: %w", name, err)
	}
	return nil
}
