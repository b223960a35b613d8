package asset

import (
	"encoding/json"
	"errors"
	"fmt"
	"image"
	"sort"
	"strings"
)

var (
	// ErrNotFound is returned when a path or reference does not resolve to an object.
	ErrNotFound = errors.New("not found")
	// ErrWrongType is returned when an object resolves but is not of the expected kind.
	ErrWrongType = errors.New("wrong type")
)

// Provider is the asset-container access contract the exporter consumes.
// Implementations own package loading and lazy reference resolution.
type Provider interface {
	// LoadPackage loads the package at path (internal or compact form).
	LoadPackage(path string) (*Package, error)
	// LoadObject loads the object at "<package>.<name>".
	LoadObject(path string) (*Object, error)
	// Resolve loads the object a lazy reference points at. A null reference
	// resolves to ErrNotFound.
	Resolve(ref Ref) (*Object, error)
	// Canonicalize converts an internal path to its compact, mount-relative form.
	Canonicalize(path string) string
}

// Converter decodes binary payloads carried by mesh and texture objects.
type Converter interface {
	// MeshLODs returns the exported file payload of each level of detail, best first.
	MeshLODs(mesh *Object) ([][]byte, error)
	// DecodeTexture decodes the first mip level of a texture.
	DecodeTexture(tex *Object) (image.Image, error)
}

// Ref is a lazy reference to an object inside a package. The zero Ref is null.
type Ref struct {
	Package string
	Name    string
}

// IsNull reports whether the reference points nowhere.
func (r Ref) IsNull() bool {
	return r.Name == ""
}

// Path returns "<package>.<name>", or "" for a null reference.
func (r Ref) Path() string {
	if r.IsNull() {
		return ""
	}
	return r.Package + "." + r.Name
}

func (r Ref) String() string {
	if r.IsNull() {
		return "null"
	}
	return r.Path()
}

// MarshalJSON encodes the reference the way property dumps spell it.
func (r Ref) MarshalJSON() ([]byte, error) {
	if r.IsNull() {
		return []byte("null"), nil
	}
	return json.Marshal(map[string]string{"ObjectName": r.Name, "ObjectPath": r.Path()})
}

// ParseRef parses "<package>.<name>". Paths without a name separator after the
// last slash name an object with the same name as its package.
func ParseRef(path string) Ref {
	if path == "" {
		return Ref{}
	}
	pkg, name := SplitObjectPath(path)
	return Ref{Package: pkg, Name: name}
}

// SoftPath is a by-name reference to an asset that may live in another package.
type SoftPath struct {
	AssetPath string // e.g. /Game/Maps/Foo.Foo
	SubPath   string
}

// IsNull reports whether the soft path is empty.
func (s SoftPath) IsNull() bool {
	return s.AssetPath == "" || s.AssetPath == "None"
}

// AssetName returns the part of the asset path after the last slash.
func (s SoftPath) AssetName() string {
	return s.AssetPath[strings.LastIndex(s.AssetPath, "/")+1:]
}

func (s SoftPath) String() string {
	if s.SubPath == "" {
		return s.AssetPath
	}
	return s.AssetPath + ":" + s.SubPath
}

// MarshalJSON encodes the soft path the way property dumps spell it.
func (s SoftPath) MarshalJSON() ([]byte, error) {
	return json.Marshal(map[string]string{"AssetPathName": s.AssetPath, "SubPathString": s.SubPath})
}

// Package is a loaded container of exports.
type Package struct {
	Name    string
	Exports []*Object
}

// Export returns the export with the given name, or nil.
func (p *Package) Export(name string) *Object {
	for _, o := range p.Exports {
		if o.Name == name {
			return o
		}
	}
	return nil
}

// ExportOfKind returns the last export of the given kind, or nil.
func (p *Package) ExportOfKind(kind string) *Object {
	var found *Object
	for _, o := range p.Exports {
		if o.Kind == kind {
			found = o
		}
	}
	return found
}

// Object is one export: its kind (class name), owning package, class reference and properties.
type Object struct {
	Name    string
	Kind    string
	Package *Package
	Class   Ref
	Props   Properties
	// PropOrder lists property names in stored order. It may be nil or partial.
	PropOrder []string
}

// PropertyNames returns the names of the object's properties: those in
// PropOrder first, in that order, then any others in lexical order.
func (o *Object) PropertyNames() []string {
	names := make([]string, 0, len(o.Props))
	listed := make(map[string]bool, len(o.PropOrder))
	for _, n := range o.PropOrder {
		if _, ok := o.Props[n]; ok && !listed[n] {
			listed[n] = true
			names = append(names, n)
		}
	}
	var rest []string
	for n := range o.Props {
		if !listed[n] {
			rest = append(rest, n)
		}
	}
	sort.Strings(rest)
	return append(names, rest...)
}

// PathName returns "<package>.<name>".
func (o *Object) PathName() string {
	if o.Package == nil {
		return o.Name
	}
	return o.Package.Name + "." + o.Name
}

// Ref returns a reference pointing at o.
func (o *Object) Ref() Ref {
	if o.Package == nil {
		return Ref{Name: o.Name}
	}
	return Ref{Package: o.Package.Name, Name: o.Name}
}

// Is reports whether the object's kind is one of kinds.
func (o *Object) Is(kinds ...string) bool {
	for _, k := range kinds {
		if o.Kind == k {
			return true
		}
	}
	return false
}

// LoadAs loads the object at path and checks its kind.
func LoadAs(p Provider, path string, kinds ...string) (*Object, error) {
	obj, err := p.LoadObject(path)
	if err != nil {
		return nil, err
	}
	if !obj.Is(kinds...) {
		return nil, fmt.Errorf("asset: %s is %s: %w", path, obj.Kind, ErrWrongType)
	}
	return obj, nil
}

// ResolveAs resolves ref and checks the kind of the result.
func ResolveAs(p Provider, ref Ref, kinds ...string) (*Object, error) {
	obj, err := p.Resolve(ref)
	if err != nil {
		return nil, err
	}
	if !obj.Is(kinds...) {
		return nil, fmt.Errorf("asset: %s is %s: %w", ref, obj.Kind, ErrWrongType)
	}
	return obj, nil
}
