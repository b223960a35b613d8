// Package material resolves the parameter set of a material by walking its
// parameter sources and its instance/parent chain.
package material

import (
	"fmt"
	"log/slog"

	"umap-export/internal/asset"
	"umap-export/internal/scene"
)

// Material kinds.
const (
	KindMaterial                 = "Material"
	KindMaterialInstanceConstant = "MaterialInstanceConstant"
	KindMaterialInstanceDynamic  = "MaterialInstanceDynamic"
)

var instanceKinds = []string{KindMaterialInstanceConstant, KindMaterialInstanceDynamic, "MaterialInstance"}

// Expression kinds mapped to parameter maps.
var (
	textureExpressions = []string{"MaterialExpressionTextureObjectParameter", "MaterialExpressionTextureSampleParameter2D"}
	vectorExpressions  = []string{"MaterialExpressionVectorParameter"}
	boolExpressions    = []string{"MaterialExpressionStaticBoolParameter"}
	scalarExpressions  = []string{"MaterialExpressionScalarParameter"}
)

// Material is the merged parameter set of one material and its ancestors.
// Textures hold references; they become paths when bound to a node.
type Material struct {
	Ref        asset.Ref
	ShaderName string
	Textures   *scene.Ordered[asset.Ref]
	Scalars    *scene.Ordered[float64]
	Vectors    *scene.Ordered[string]
}

func newMaterial(ref asset.Ref) *Material {
	return &Material{
		Ref:        ref,
		ShaderName: scene.DefaultShaderName,
		Textures:   scene.NewOrdered[asset.Ref](),
		Scalars:    scene.NewOrdered[float64](),
		Vectors:    scene.NewOrdered[string](),
	}
}

// IsMaterial reports whether obj is a material or a material instance.
func IsMaterial(obj *asset.Object) bool {
	return obj.Is(KindMaterial) || obj.Is(instanceKinds...)
}

// Resolver resolves materials against a provider.
type Resolver struct {
	provider asset.Provider
	log      *slog.Logger
}

// NewResolver returns a Resolver loading objects from p.
func NewResolver(p asset.Provider, log *slog.Logger) *Resolver {
	return &Resolver{provider: p, log: log}
}

// Resolve walks the material ref points at and its parent chain. Values set by a
// more-derived material are never replaced by an ancestor's. A null reference
// fails with asset.ErrNotFound; any other failure along the chain is logged and
// the parameters collected so far are returned.
func (r *Resolver) Resolve(ref asset.Ref) (*Material, error) {
	if ref.IsNull() {
		return nil, fmt.Errorf("material: null reference: %w", asset.ErrNotFound)
	}
	m := newMaterial(ref)
	visited := make(map[string]bool)
	cur := ref
	for !cur.IsNull() {
		if visited[cur.Path()] {
			r.log.Warn("material parent chain loops", "material", ref.Path(), "at", cur.Path())
			break
		}
		visited[cur.Path()] = true

		obj, err := r.provider.Resolve(cur)
		if err != nil {
			r.log.Warn("failed to load material", "material", cur.Path(), "err", err)
			break
		}
		if !IsMaterial(obj) {
			break
		}
		if obj.Is(KindMaterial) {
			m.ShaderName = obj.Name
		}
		r.scanExpressionInputs(m, obj)
		r.scanExpressions(m, obj)
		scanParameterValues(m, obj)
		if !obj.Is(instanceKinds...) {
			break
		}
		scanStaticSwitches(m, obj)
		cur = obj.Props.Ref("Parent")
	}
	return m, nil
}

// scanExpressionInputs handles the older layout where material inputs point at
// expressions stored in the same package by name.
func (r *Resolver) scanExpressionInputs(m *Material, obj *asset.Object) {
	if obj.Package == nil {
		return
	}
	for _, name := range obj.PropertyNames() {
		input, ok := obj.Props.Struct(name)
		if !ok {
			continue
		}
		exprName := input.FName("ExpressionName")
		if exprName == "" {
			exprName = input.Ref("Expression").Name
		}
		if exprName == "" {
			continue
		}
		expr := obj.Package.Export(exprName)
		if expr == nil {
			continue
		}
		if tex := expr.Props.Ref("Texture"); !tex.IsNull() {
			m.Textures.SetIfAbsent(name, tex)
		}
	}
}

func (r *Resolver) scanExpressions(m *Material, obj *asset.Object) {
	for _, ref := range obj.Props.Refs("Expressions") {
		if ref.IsNull() {
			continue
		}
		expr, err := r.provider.Resolve(ref)
		if err != nil {
			r.log.Debug("failed to load material expression", "expression", ref.Path(), "err", err)
			continue
		}
		name := expr.Props.FName("ParameterName")
		if name == "" {
			continue
		}
		switch {
		case expr.Is(textureExpressions...):
			if tex := expr.Props.Ref("Texture"); !tex.IsNull() {
				m.Textures.SetIfAbsent(name, tex)
			}
		case expr.Is(vectorExpressions...):
			if c, ok := expr.Props.LinearColor("DefaultValue"); ok {
				m.Vectors.SetIfAbsent(name, SRGBHex(c))
			}
		case expr.Is(boolExpressions...):
			if b, ok := expr.Props.Bool("DefaultValue"); ok {
				m.Scalars.SetIfAbsent(name, boolScalar(b))
			}
		case expr.Is(scalarExpressions...):
			if _, ok := expr.Props.Value("DefaultValue"); ok {
				m.Scalars.SetIfAbsent(name, expr.Props.Float("DefaultValue", 0))
			}
		}
	}
}

func scanParameterValues(m *Material, obj *asset.Object) {
	for _, v := range obj.Props.Structs("TextureParameterValues") {
		if name := v.ParameterName(); name != "" {
			m.Textures.SetIfAbsent(name, v.Ref("ParameterValue"))
		}
	}
	for _, v := range obj.Props.Structs("ScalarParameterValues") {
		if name := v.ParameterName(); name != "" {
			m.Scalars.SetIfAbsent(name, v.Float("ParameterValue", 0))
		}
	}
	for _, v := range obj.Props.Structs("VectorParameterValues") {
		name := v.ParameterName()
		if name == "" {
			continue
		}
		if c, ok := v.LinearColor("ParameterValue"); ok {
			m.Vectors.SetIfAbsent(name, SRGBHex(c))
		}
	}
}

func scanStaticSwitches(m *Material, obj *asset.Object) {
	static, ok := obj.Props.Struct("StaticParameters")
	if !ok {
		return
	}
	for _, sw := range static.Structs("StaticSwitchParameters") {
		name := sw.ParameterName()
		if name == "" {
			continue
		}
		b, _ := sw.Bool("Value")
		m.Scalars.SetIfAbsent(name, boolScalar(b))
	}
}

func boolScalar(b bool) float64 {
	if b {
		return 1
	}
	return 0
}
