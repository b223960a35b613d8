// Package scene holds the scene document model the exporter produces: positional
// node records, material bindings and the per-document light list.
package scene

import (
	"encoding/json"
	"strings"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/google/uuid"
)

// DefaultShaderName is used when no base material in the chain names a shader.
const DefaultShaderName = "None"

// TextureSlot is one texture-data override bundle: parameter name -> texture path.
type TextureSlot = Ordered[string]

// Node is one record of a scene document.
//
// LightIndex: 0 means no light; a negative value marks a node that is itself a
// light with no parent; a positive value references the light bundle attached
// to the node. The bundle position is abs(LightIndex)-1 in the light list.
type Node struct {
	ID               string // empty encodes as null
	Name             string
	Mesh             string // empty encodes as null
	Materials        *Ordered[*MaterialBinding]
	TextureOverrides []*TextureSlot
	Location         mgl32.Vec3
	Rotation         []float32 // [pitch, yaw, roll] or [x, y, z, w]
	Scale            mgl32.Vec3
	Children         []*string // nil encodes as null, nil entries as null children
	LightIndex       int
}

// NewID returns a fresh identifier in the dash-less lower-case hex form.
func NewID() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")
}

// Euler returns a rotation record from [pitch, yaw, roll].
func Euler(r mgl32.Vec3) []float32 {
	return []float32{r[0], r[1], r[2]}
}

// Quat returns a rotation record [x, y, z, w] from a quaternion.
func Quat(q mgl32.Quat) []float32 {
	return []float32{q.V[0], q.V[1], q.V[2], q.W}
}

// Child returns a child document reference; an empty path is a failed child.
func Child(path string) *string {
	if path == "" {
		return nil
	}
	return &path
}

// MarshalJSON encodes the node as the positional array the importer reads:
// [id, name, mesh, materials, textureOverrides, location, rotation, scale, children, lightIndex].
func (n *Node) MarshalJSON() ([]byte, error) {
	rec := []any{
		nullable(n.ID),
		n.Name,
		nullable(n.Mesh),
		n.Materials,
		n.TextureOverrides,
		n.Location,
		n.Rotation,
		n.Scale,
		n.Children,
		n.LightIndex,
	}
	return json.Marshal(rec)
}

func nullable(s string) any {
	if s == "" {
		return nil
	}
	return s
}

// MaterialBinding is the resolved parameter set of one material, keyed in a
// node's material map by its path.
type MaterialBinding struct {
	Path       string
	ShaderName string
	Textures   *Ordered[string]
	Scalars    *Ordered[float64]
	Vectors    *Ordered[string]
}

// NewMaterialBinding returns an empty binding for the material at path.
func NewMaterialBinding(path string) *MaterialBinding {
	return &MaterialBinding{
		Path:       path,
		ShaderName: DefaultShaderName,
		Textures:   NewOrdered[string](),
		Scalars:    NewOrdered[float64](),
		Vectors:    NewOrdered[string](),
	}
}

// MarshalJSON encodes the binding body; the path is the key it is stored under.
func (b *MaterialBinding) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		ShaderName    string
		TextureParams *Ordered[string]
		ScalerParams  *Ordered[float64]
		VectorParams  *Ordered[string]
	}{b.ShaderName, b.Textures, b.Scalars, b.Vectors})
}

// Document is the scene description of one world package.
type Document struct {
	// Package is the world's canonical compact package path, e.g. /Game/Maps/Foo.
	Package string
	Nodes   []*Node
	Lights  *Lights

	bindings map[string]*MaterialBinding
}

// NewDocument returns an empty document for the package at pkg.
func NewDocument(pkg string) *Document {
	return &Document{
		Package:  pkg,
		Nodes:    make([]*Node, 0),
		Lights:   &Lights{},
		bindings: make(map[string]*MaterialBinding),
	}
}

// Add appends a node. Nil nodes are ignored.
func (d *Document) Add(n *Node) {
	if n != nil {
		d.Nodes = append(d.Nodes, n)
	}
}

// Binding returns the binding first recorded in this document for a material path.
func (d *Document) Binding(path string) (*MaterialBinding, bool) {
	b, ok := d.bindings[path]
	return b, ok
}

// Bind records b for its path unless one is already recorded, and returns the
// binding that is in effect for the document. Later bindings for the same path
// are dropped even if their texture overrides differ.
func (d *Document) Bind(b *MaterialBinding) *MaterialBinding {
	if prev, ok := d.bindings[b.Path]; ok {
		return prev
	}
	d.bindings[b.Path] = b
	return b
}
