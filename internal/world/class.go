package world

import "umap-export/internal/asset"

// KindBlueprintClass is the kind of classes whose packages carry the
// blueprint's component templates.
const KindBlueprintClass = "BlueprintGeneratedClass"

// maxClassDepth limits the mesh lookup to the class and its direct super.
const maxClassDepth = 2

// meshlessKinds are templates whose StaticMesh property is not the actor's mesh.
var meshlessKinds = []string{"FortKillVolume_C"}

// classDescriptor is a read-only view of a blueprint class: the exports of the
// package that defines it and a reference to its super class.
type classDescriptor struct {
	ref     asset.Ref
	exports []*asset.Object
	super   asset.Ref
}

func (e *Exporter) describeClass(ref asset.Ref) (*classDescriptor, bool) {
	class, err := asset.ResolveAs(e.provider, ref, KindBlueprintClass)
	if err != nil || class.Package == nil {
		return nil, false
	}
	return &classDescriptor{
		ref:     ref,
		exports: class.Package.Exports,
		super:   class.Props.Ref("SuperStruct"),
	}, true
}

// staticMesh returns the first StaticMesh reference among the descriptor's exports.
func (d *classDescriptor) staticMesh() asset.Ref {
	for _, exp := range d.exports {
		if exp.Is(meshlessKinds...) {
			continue
		}
		if mesh := exp.Props.Ref("StaticMesh"); !mesh.IsNull() {
			return mesh
		}
	}
	return asset.Ref{}
}

// classMesh finds the mesh of an actor whose component leaves it unset by
// scanning the actor's class and then its super class.
func (e *Exporter) classMesh(actor *asset.Object) asset.Ref {
	seen := make(map[asset.Ref]bool)
	cur := actor.Class
	for depth := 0; depth < maxClassDepth && !cur.IsNull() && !seen[cur]; depth++ {
		seen[cur] = true
		d, ok := e.describeClass(cur)
		if !ok {
			break
		}
		if mesh := d.staticMesh(); !mesh.IsNull() {
			return mesh
		}
		cur = d.super
	}
	return asset.Ref{}
}
