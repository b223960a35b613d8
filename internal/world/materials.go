package world

import (
	"fmt"

	"umap-export/internal/asset"
	"umap-export/internal/scene"
)

// maxTextureData is the number of texture-data slots a building actor can carry.
const maxTextureData = 4

// textureDataParams maps texture-data properties to their parameter names in slot k.
var textureDataParams = []struct {
	prop  string
	param func(k int) string
}{
	{"Diffuse", func(k int) string { return slotName(k, "Diffuse", "Diffuse_Texture_%d") }},
	{"Normal", func(k int) string { return slotName(k, "Normals", "Normals_Texture_%d") }},
	{"Specular", func(k int) string { return slotName(k, "SpecularMasks", "SpecularMasks_%d") }},
}

func slotName(k int, base, indexed string) string {
	if k == 0 {
		return base
	}
	return fmt.Sprintf(indexed, k+1)
}

// bindMaterials fills node's material map and texture overrides from the
// actor's texture data, the component's override materials and the mesh slots.
func (e *Exporter) bindMaterials(node *scene.Node, doc *scene.Document, actor, comp *asset.Object, slots []asset.Ref) {
	base := actor.Props.Ref("BaseMaterial")

	textureData := actor.Props.Refs("TextureData")
	if len(textureData) > maxTextureData {
		textureData = textureData[:maxTextureData]
	}
	for k, ref := range textureData {
		slot := scene.NewOrdered[string]()
		node.TextureOverrides = append(node.TextureOverrides, slot)
		if ref.IsNull() {
			continue
		}
		td, err := e.provider.Resolve(ref)
		if err != nil {
			e.log.Debug("texture data not found", "actor", actor.Name, "ref", ref.String(), "err", err)
			continue
		}
		for _, p := range textureDataParams {
			e.addTexture(slot, td.Props.Ref(p.prop), p.param(k))
		}
		if override := td.Props.Ref("OverrideMaterial"); !override.IsNull() {
			base = override
		}
	}
	overrides := mergeOverrides(node.TextureOverrides)

	componentOverrides := comp.Props.Refs("OverrideMaterials")
	for i, ref := range slots {
		switch {
		case i < len(componentOverrides) && !componentOverrides[i].IsNull():
			ref = componentOverrides[i]
		case ref.IsNull():
			ref = base
		}
		e.bindMaterial(node, doc, ref, overrides)
	}
}

// mergeOverrides flattens the texture-data slots; a later slot wins on a shared key.
func mergeOverrides(slots []*scene.TextureSlot) *scene.Ordered[string] {
	merged := scene.NewOrdered[string]()
	for _, slot := range slots {
		for _, k := range slot.Keys() {
			v, _ := slot.Get(k)
			merged.Set(k, v)
		}
	}
	return merged
}

func (e *Exporter) addTexture(slot *scene.TextureSlot, ref asset.Ref, param string) {
	if ref.IsNull() {
		return
	}
	e.exportTexture(ref, param)
	slot.Set(param, asset.DirPath(e.provider, ref))
}

func (e *Exporter) exportTexture(ref asset.Ref, param string) {
	tex, err := e.provider.Resolve(ref)
	if err != nil {
		e.log.Debug("texture not found", "texture", ref.String(), "err", err)
		return
	}
	e.assets.ExportTexture(tex, param)
}

// bindMaterial resolves the material at ref and stores it in node's map under
// its path. A document keeps the first binding made for a path: later nodes
// using the same material get that binding, whatever their own overrides are.
func (e *Exporter) bindMaterial(node *scene.Node, doc *scene.Document, ref asset.Ref, overrides *scene.Ordered[string]) {
	if ref.IsNull() {
		node.Materials.Set(scene.NewID()[:8], nil)
		return
	}
	key := asset.DirPath(e.provider, ref)
	if b, ok := doc.Binding(key); ok {
		node.Materials.SetIfAbsent(key, b)
		return
	}
	m, err := e.resolver.Resolve(ref)
	if err != nil {
		e.log.Warn("failed to resolve material", "material", key, "err", err)
		return
	}

	b := scene.NewMaterialBinding(key)
	b.ShaderName = m.ShaderName
	for _, name := range m.Textures.Keys() {
		if v, ok := overrides.Get(name); ok {
			b.Textures.Set(name, v)
			continue
		}
		tex, _ := m.Textures.Get(name)
		if tex.IsNull() {
			continue
		}
		e.exportTexture(tex, name)
		b.Textures.Set(name, asset.DirPath(e.provider, tex))
	}
	for _, name := range overrides.Keys() {
		v, _ := overrides.Get(name)
		b.Textures.SetIfAbsent(name, v)
	}
	for _, name := range m.Scalars.Keys() {
		v, _ := m.Scalars.Get(name)
		b.Scalars.Set(name, v)
	}
	for _, name := range m.Vectors.Keys() {
		v, _ := m.Vectors.Get(name)
		b.Vectors.Set(name, v)
	}
	node.Materials.SetIfAbsent(key, doc.Bind(b))
}
