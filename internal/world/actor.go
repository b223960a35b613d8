package world

import (
	"slices"
	"strings"

	"github.com/go-gl/mathgl/mgl32"

	"umap-export/internal/asset"
	"umap-export/internal/scene"
)

var lightActorKinds = []string{"PointLight", "SpotLight", "RectLight", "DirectionalLight", "SkyLight"}

var lightComponentKinds = []string{
	"LightComponent",
	"PointLightComponent",
	"SpotLightComponent",
	"RectLightComponent",
	"DirectionalLightComponent",
	"SkyLightComponent",
}

var (
	zero3             = mgl32.Vec3{}
	one3              = mgl32.Vec3{1, 1, 1}
	defaultLightPitch = mgl32.Vec3{-90, 0, 0}
)

// maxLightClassDepth bounds the super-class walk that recognises blueprint lights.
const maxLightClassDepth = 8

// hlodPrefix marks proxy grids and cells that are never exported.
const hlodPrefix = "HLOD"

// ProcessActor converts one actor into at most one node of doc. Lights found on
// the way are appended to doc's light list and meshes and textures are queued
// for export. Referenced worlds are exported recursively.
func (e *Exporter) ProcessActor(actor *asset.Object, doc *scene.Document, visited *Visited) *scene.Node {
	if e.isLight(actor) {
		return e.lightNode(actor, doc)
	}
	if grid, ok := e.streamingGrid(actor); ok {
		return e.partitionNode(actor, grid, visited)
	}
	return e.meshNode(actor, doc, visited)
}

// isLight reports whether actor is a light: an engine light kind, a blueprint
// class deriving from one, or an actor with a light component and no mesh component.
func (e *Exporter) isLight(actor *asset.Object) bool {
	if actor.Is(lightActorKinds...) {
		return true
	}
	if !actor.Props.Ref("LightComponent").IsNull() && actor.Props.Ref("StaticMeshComponent").IsNull() {
		return true
	}
	seen := make(map[asset.Ref]bool)
	cur := actor.Class
	for depth := 0; depth < maxLightClassDepth && !cur.IsNull() && !seen[cur]; depth++ {
		seen[cur] = true
		if slices.Contains(lightActorKinds, cur.Name) {
			return true
		}
		class, err := asset.ResolveAs(e.provider, cur, KindBlueprintClass)
		if err != nil {
			return false
		}
		cur = class.Props.Ref("SuperStruct")
	}
	return false
}

func (e *Exporter) lightNode(actor *asset.Object, doc *scene.Document) *scene.Node {
	ref := actor.Props.Ref("LightComponent")
	if ref.IsNull() {
		return nil
	}
	comp, err := e.provider.Resolve(ref)
	if err != nil {
		e.log.Debug("light component not found", "actor", actor.Name, "err", err)
		return nil
	}
	rec, err := scene.NewLightRecord(comp)
	if err != nil {
		e.log.Warn("failed to record light", "actor", actor.Name, "err", err)
		return nil
	}
	// A negative index marks a light without a parent; the record sits at abs(index)-1.
	index := doc.Lights.Add(rec)
	return &scene.Node{
		Name:       actor.Name,
		Location:   comp.Props.Vector("RelativeLocation", zero3),
		Rotation:   scene.Euler(comp.Props.Rotator("RelativeRotation", defaultLightPitch)),
		Scale:      comp.Props.Vector("RelativeScale3D", one3),
		LightIndex: -index,
	}
}

// streamingGrid returns the first non-HLOD streaming grid of a world-partition
// actor. ok is false when the actor carries no partition at all; an actor with
// a partition but no usable grid returns ok with a nil grid.
func (e *Exporter) streamingGrid(actor *asset.Object) (asset.Properties, bool) {
	ref := actor.Props.Ref("WorldPartition")
	if ref.IsNull() {
		return nil, false
	}
	partition, err := e.provider.Resolve(ref)
	if err != nil {
		return nil, false
	}
	hash, err := e.provider.Resolve(partition.Props.Ref("RuntimeHash"))
	if err != nil {
		return nil, false
	}
	if _, ok := hash.Props.Value("StreamingGrids"); !ok {
		return nil, false
	}
	for _, grid := range hash.Props.Structs("StreamingGrids") {
		if !strings.HasPrefix(grid.FName("GridName"), hlodPrefix) {
			return grid, true
		}
	}
	return nil, true
}

func (e *Exporter) partitionNode(actor *asset.Object, grid asset.Properties, visited *Visited) *scene.Node {
	if grid == nil {
		return nil
	}
	var children []*string
	for _, target := range e.gridCells(grid) {
		children = append(children, e.exportChild(target, visited))
	}
	if len(children) == 0 {
		return nil
	}
	return &scene.Node{
		ID:       scene.NewID(),
		Name:     actor.Name,
		Location: grid.Vector("Origin", zero3),
		Rotation: scene.Euler(zero3),
		Scale:    one3,
		Children: children,
	}
}

// gridCells returns the world asset paths of a grid's non-HLOD cells in stored order.
func (e *Exporter) gridCells(grid asset.Properties) []string {
	var out []string
	for _, level := range grid.Structs("GridLevels") {
		for _, layer := range level.Structs("LayerCells") {
			for _, ref := range layer.Refs("GridCells") {
				if ref.IsNull() {
					continue
				}
				cell, err := e.provider.Resolve(ref)
				if err != nil {
					continue
				}
				streaming, err := e.provider.Resolve(cell.Props.Ref("LevelStreaming"))
				if err != nil {
					continue
				}
				target := streaming.Props.Soft("WorldAsset")
				if target.IsNull() || strings.HasPrefix(target.AssetName(), hlodPrefix) {
					continue
				}
				out = append(out, target.AssetPath)
			}
		}
	}
	return out
}

func (e *Exporter) meshNode(actor *asset.Object, doc *scene.Document, visited *Visited) *scene.Node {
	compRef := actor.Props.Ref("StaticMeshComponent")
	if compRef.IsNull() {
		return nil
	}
	comp, err := e.provider.Resolve(compRef)
	if err != nil {
		e.log.Debug("static mesh component not found", "actor", actor.Name, "err", err)
		return nil
	}

	id, ok := actor.Props.GUID("MyGuid")
	if !ok {
		id = scene.NewID()
	}
	node := &scene.Node{
		ID:               id,
		Name:             actor.Name,
		Materials:        scene.NewOrdered[*scene.MaterialBinding](),
		TextureOverrides: []*scene.TextureSlot{},
		Location:         comp.Props.Vector("RelativeLocation", zero3),
		Rotation:         scene.Euler(comp.Props.Rotator("RelativeRotation", zero3)),
		Scale:            comp.Props.Vector("RelativeScale3D", one3),
		Children:         []*string{},
	}

	meshRef := comp.Props.Ref("StaticMesh")
	if meshRef.IsNull() {
		meshRef = e.classMesh(actor)
	}
	node.Mesh = asset.DirPath(e.provider, meshRef)

	var slots []asset.Ref
	if !meshRef.IsNull() {
		mesh, err := asset.ResolveAs(e.provider, meshRef, "StaticMesh")
		if err != nil {
			e.log.Debug("mesh not loadable", "actor", actor.Name, "mesh", meshRef.String(), "err", err)
		} else {
			e.assets.ExportMesh(mesh)
			slots = meshMaterials(mesh)
		}
	}

	if e.opts.ReadMaterials {
		e.bindMaterials(node, doc, actor, comp, slots)
	}

	if e.opts.ExportBuildingFoundations {
		for _, world := range actor.Props.Softs("AdditionalWorlds") {
			node.Children = append(node.Children, e.exportChild(world.AssetPath, visited))
		}
	}

	node.LightIndex = e.classLights(actor, doc)
	return node
}

// meshMaterials returns the material slots of a mesh, null slots included.
func meshMaterials(mesh *asset.Object) []asset.Ref {
	if static := mesh.Props.Structs("StaticMaterials"); len(static) > 0 {
		out := make([]asset.Ref, len(static))
		for i, s := range static {
			out[i] = s.Ref("MaterialInterface")
		}
		return out
	}
	return mesh.Props.Refs("Materials")
}

// classLights records the light components that live next to the actor's
// class and returns the 1-based index of the new record, or 0.
func (e *Exporter) classLights(actor *asset.Object, doc *scene.Document) int {
	if actor.Class.IsNull() {
		return 0
	}
	pkg, err := e.provider.LoadPackage(actor.Class.Package)
	if err != nil {
		return 0
	}
	var comps []*asset.Object
	for _, exp := range pkg.Exports {
		if exp.Is(lightComponentKinds...) {
			comps = append(comps, exp)
		}
	}
	if len(comps) == 0 {
		return 0
	}
	rec, err := scene.NewLightRecord(comps...)
	if err != nil {
		e.log.Warn("failed to record class lights", "actor", actor.Name, "err", err)
		return 0
	}
	return doc.Lights.Add(rec)
}
