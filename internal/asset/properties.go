package asset

import (
	"fmt"
	"strings"

	"github.com/go-gl/mathgl/mgl32"
)

// Properties is a tagged-property bag. Values are nil, bool, float64, string,
// []any, Properties, Ref or SoftPath.
type Properties map[string]any

// Transform is a translation / rotation / scale triple.
type Transform struct {
	Translation mgl32.Vec3
	Rotation    mgl32.Quat
	Scale3D     mgl32.Vec3
}

// IdentityTransform has no translation, no rotation and unit scale.
var IdentityTransform = Transform{
	Rotation: mgl32.QuatIdent(),
	Scale3D:  mgl32.Vec3{1, 1, 1},
}

// LinearColor is a color in linear space, components nominally in [0,1].
type LinearColor struct {
	R, G, B, A float32
}

// Value returns the raw value stored under name.
func (p Properties) Value(name string) (any, bool) {
	if p == nil {
		return nil, false
	}
	v, ok := p[name]
	return v, ok && v != nil
}

// Ref returns the reference stored under name, or a null Ref.
func (p Properties) Ref(name string) Ref {
	v, _ := p.Value(name)
	r, _ := v.(Ref)
	return r
}

// Refs returns the references stored in the list under name. Null or
// non-reference entries come back as null refs so positions are preserved.
func (p Properties) Refs(name string) []Ref {
	v, _ := p.Value(name)
	list, _ := v.([]any)
	out := make([]Ref, len(list))
	for i, e := range list {
		out[i], _ = e.(Ref)
	}
	return out
}

// Soft returns the soft path stored under name.
func (p Properties) Soft(name string) SoftPath {
	v, _ := p.Value(name)
	switch s := v.(type) {
	case SoftPath:
		return s
	case string:
		return SoftPath{AssetPath: s}
	}
	return SoftPath{}
}

// Softs returns the soft paths stored in the list under name.
func (p Properties) Softs(name string) []SoftPath {
	v, _ := p.Value(name)
	list, _ := v.([]any)
	out := make([]SoftPath, 0, len(list))
	for _, e := range list {
		switch s := e.(type) {
		case SoftPath:
			out = append(out, s)
		case string:
			out = append(out, SoftPath{AssetPath: s})
		}
	}
	return out
}

// Struct returns the nested struct stored under name.
func (p Properties) Struct(name string) (Properties, bool) {
	v, _ := p.Value(name)
	return asStruct(v)
}

// Structs returns the nested structs stored in the list under name.
func (p Properties) Structs(name string) []Properties {
	v, _ := p.Value(name)
	list, _ := v.([]any)
	out := make([]Properties, 0, len(list))
	for _, e := range list {
		if s, ok := asStruct(e); ok {
			out = append(out, s)
		}
	}
	return out
}

func asStruct(v any) (Properties, bool) {
	switch s := v.(type) {
	case Properties:
		return s, true
	case map[string]any:
		return Properties(s), true
	}
	return nil, false
}

// Float returns the number stored under name, or def.
func (p Properties) Float(name string, def float64) float64 {
	v, _ := p.Value(name)
	if f, ok := toFloat(v); ok {
		return f
	}
	return def
}

// Bool returns the boolean stored under name.
func (p Properties) Bool(name string) (value, ok bool) {
	v, _ := p.Value(name)
	value, ok = v.(bool)
	return value, ok
}

// Text returns the string stored under name.
func (p Properties) Text(name string) (string, bool) {
	v, _ := p.Value(name)
	s, ok := v.(string)
	return s, ok
}

// FName returns the name stored under name, treating "None" as empty.
func (p Properties) FName(name string) string {
	s, _ := p.Text(name)
	if s == "None" {
		return ""
	}
	return s
}

// ParameterName returns the name of a material parameter value struct: the
// ParameterInfo.Name when present, else a plain Name.
func (p Properties) ParameterName() string {
	if info, ok := p.Struct("ParameterInfo"); ok {
		if n := info.FName("Name"); n != "" {
			return n
		}
	}
	return p.FName("Name")
}

// Vector returns the {X,Y,Z} struct stored under name, or def.
func (p Properties) Vector(name string, def mgl32.Vec3) mgl32.Vec3 {
	s, ok := p.Struct(name)
	if !ok {
		return def
	}
	return mgl32.Vec3{
		float32(s.Float("X", 0)),
		float32(s.Float("Y", 0)),
		float32(s.Float("Z", 0)),
	}
}

// Rotator returns the {Pitch,Yaw,Roll} struct under name as [pitch, yaw, roll], or def.
func (p Properties) Rotator(name string, def mgl32.Vec3) mgl32.Vec3 {
	s, ok := p.Struct(name)
	if !ok {
		return def
	}
	return mgl32.Vec3{
		float32(s.Float("Pitch", 0)),
		float32(s.Float("Yaw", 0)),
		float32(s.Float("Roll", 0)),
	}
}

// Quat returns the {X,Y,Z,W} struct under name, or def.
func (p Properties) Quat(name string, def mgl32.Quat) mgl32.Quat {
	s, ok := p.Struct(name)
	if !ok {
		return def
	}
	return mgl32.Quat{
		W: float32(s.Float("W", 1)),
		V: mgl32.Vec3{float32(s.Float("X", 0)), float32(s.Float("Y", 0)), float32(s.Float("Z", 0))},
	}
}

// Transform returns the {Translation,Rotation,Scale3D} struct under name, or identity.
func (p Properties) Transform(name string) Transform {
	s, ok := p.Struct(name)
	if !ok {
		return IdentityTransform
	}
	return Transform{
		Translation: s.Vector("Translation", mgl32.Vec3{}),
		Rotation:    s.Quat("Rotation", mgl32.QuatIdent()),
		Scale3D:     s.Vector("Scale3D", mgl32.Vec3{1, 1, 1}),
	}
}

// LinearColor returns the {R,G,B,A} struct under name.
func (p Properties) LinearColor(name string) (LinearColor, bool) {
	s, ok := p.Struct(name)
	if !ok {
		return LinearColor{}, false
	}
	return LinearColor{
		R: float32(s.Float("R", 0)),
		G: float32(s.Float("G", 0)),
		B: float32(s.Float("B", 0)),
		A: float32(s.Float("A", 1)),
	}, true
}

// GUID returns the GUID under name in digits form: 32 lower-case hex characters
// without dashes or braces. Both the string form and the {A,B,C,D} struct are read.
func (p Properties) GUID(name string) (string, bool) {
	v, ok := p.Value(name)
	if !ok {
		return "", false
	}
	switch g := v.(type) {
	case string:
		g = strings.NewReplacer("-", "", "{", "", "}", "").Replace(g)
		if g == "" {
			return "", false
		}
		return strings.ToLower(g), true
	case Properties, map[string]any:
		s, _ := asStruct(g)
		var parts [4]uint32
		for i, k := range []string{"A", "B", "C", "D"} {
			f, ok := toFloat(s[k])
			if !ok {
				return "", false
			}
			parts[i] = uint32(int64(f))
		}
		return fmt.Sprintf("%08x%08x%08x%08x", parts[0], parts[1], parts[2], parts[3]), true
	}
	return "", false
}

func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	}
	return 0, false
}
