// Package world walks world packages and turns their actors into scene documents.
//
// Traversal is single threaded and depth first: a world's persistent level is
// processed actor by actor, and sublevels, partition cells and additional
// worlds are exported recursively as they are met. Each world produces one
// document, written as soon as its own traversal ends. Mesh and texture
// binaries are handed to an AssetExporter and may still be in flight when the
// documents are written.
package world

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"umap-export/internal/asset"
	"umap-export/internal/debug"
	"umap-export/internal/material"
	"umap-export/internal/scene"
)

// KindWorld is the export kind of a world.
const KindWorld = "World"

// checkpointEvery is the number of processed actors between memory checkpoints.
const checkpointEvery = 100

// AssetExporter accepts background mesh and texture export requests.
type AssetExporter interface {
	ExportMesh(mesh *asset.Object)
	ExportTexture(tex *asset.Object, slot string)
}

// DocumentWriter persists a finished document.
type DocumentWriter interface {
	Write(doc *scene.Document) (string, error)
}

// Options toggles optional parts of the traversal.
type Options struct {
	ReadMaterials             bool
	ExportBuildingFoundations bool
}

// Exporter converts worlds into scene documents.
type Exporter struct {
	provider   asset.Provider
	assets     AssetExporter
	resolver   *material.Resolver
	writer     DocumentWriter
	checkpoint debug.Checkpointer
	log        *slog.Logger
	opts       Options
}

// New returns an Exporter. checkpoint may be nil.
func New(p asset.Provider, assets AssetExporter, writer DocumentWriter, checkpoint debug.Checkpointer, log *slog.Logger, opts Options) *Exporter {
	if checkpoint == nil {
		checkpoint = debug.Nop{}
	}
	return &Exporter{
		provider:   p,
		assets:     assets,
		resolver:   material.NewResolver(p, log),
		writer:     writer,
		checkpoint: checkpoint,
		log:        log,
		opts:       opts,
	}
}

// Visited records the worlds entered during one export run, in entry order.
// A world is recorded before its children are walked, so a world that is still
// loading counts as visited.
type Visited struct {
	order []string
	docs  map[string]string
}

// NewVisited returns an empty set.
func NewVisited() *Visited {
	return &Visited{docs: make(map[string]string)}
}

func (v *Visited) add(p asset.Provider, world *asset.Object, doc string) {
	key := p.Canonicalize(world.PathName())
	v.order = append(v.order, key)
	v.docs[key] = doc
	v.docs[doc] = doc
}

// Document returns the document path of the visited world named by path, which
// may be an object path or a package path.
func (v *Visited) Document(p asset.Provider, path string) (string, bool) {
	doc, ok := v.docs[p.Canonicalize(path)]
	if !ok {
		doc, ok = v.docs[asset.StripExt(p.Canonicalize(path))]
	}
	return doc, ok
}

// Has reports whether the world named by path was visited.
func (v *Visited) Has(p asset.Provider, path string) bool {
	_, ok := v.Document(p, path)
	return ok
}

// Paths returns the compact world paths in the order they were entered.
func (v *Visited) Paths() []string {
	return v.order
}

// ExportWorld exports the world at path and, recursively, the worlds it
// references. path may name a package, a .umap file or a world object. It fails
// with asset.ErrNotFound if nothing resolves and asset.ErrWrongType if the
// target is not a world.
func (e *Exporter) ExportWorld(path string, visited *Visited) (*scene.Document, error) {
	world, err := e.loadWorld(path)
	if err != nil {
		return nil, err
	}
	doc := scene.NewDocument(asset.StripExt(e.provider.Canonicalize(world.Package.Name)))
	visited.add(e.provider, world, doc.Package)

	actors := e.actors(world)
	processed := 0
	for i, ref := range actors {
		if ref.IsNull() {
			continue
		}
		actor, err := e.provider.Resolve(ref)
		if err != nil {
			e.log.Debug("skipping unresolvable actor", "world", world.Name, "actor", ref.String(), "err", err)
			continue
		}
		if actor.Is("LODActor") {
			continue
		}
		e.log.Info("loading actor", "world", world.Name, "index", i, "total", len(actors), "actor", actor.Name)
		doc.Add(e.ProcessActor(actor, doc, visited))

		processed++
		if processed%checkpointEvery == 0 {
			e.checkpoint.Checkpoint()
		}
	}

	if e.opts.ExportBuildingFoundations {
		e.streamingLevels(world, doc, visited)
	}

	name, err := e.writer.Write(doc)
	if err != nil {
		return nil, fmt.Errorf("world: %w", err)
	}
	e.log.Info("wrote scene document", "file", name, "nodes", len(doc.Nodes), "lights", doc.Lights.Len())
	return doc, nil
}

func (e *Exporter) loadWorld(path string) (*asset.Object, error) {
	if strings.HasSuffix(strings.ToLower(path), ".replay") {
		return nil, fmt.Errorf("world: %s: replays are not supported: %w", path, asset.ErrWrongType)
	}

	var world *asset.Object
	if pkg, err := e.provider.LoadPackage(path); err == nil {
		world = pkg.ExportOfKind(KindWorld)
	}
	if world == nil {
		if strings.HasSuffix(strings.ToLower(path), ".umap") {
			path = umapObjectPath(path)
		}
		obj, err := e.provider.LoadObject(path)
		if err != nil {
			return nil, fmt.Errorf("world: %s: %w", path, err)
		}
		world = obj
	}
	if !world.Is(KindWorld) {
		e.log.Info("not a world, won't try to export", "object", world.PathName(), "kind", world.Kind)
		return nil, fmt.Errorf("world: %s is %s: %w", world.PathName(), world.Kind, asset.ErrWrongType)
	}
	return world, nil
}

// umapObjectPath turns "/Game/Maps/Foo.umap" into "/Game/Maps/Foo.Foo".
func umapObjectPath(path string) string {
	pkg := path[:strings.LastIndex(path, ".")]
	return pkg + "." + pkg[strings.LastIndex(pkg, "/")+1:]
}

func (e *Exporter) actors(world *asset.Object) []asset.Ref {
	level, err := e.provider.Resolve(world.Props.Ref("PersistentLevel"))
	if err != nil {
		e.log.Warn("world has no persistent level", "world", world.PathName(), "err", err)
		return nil
	}
	return level.Props.Refs("Actors")
}

func (e *Exporter) streamingLevels(world *asset.Object, doc *scene.Document, visited *Visited) {
	for _, ref := range world.Props.Refs("StreamingLevels") {
		if ref.IsNull() {
			continue
		}
		level, err := e.provider.Resolve(ref)
		if err != nil {
			e.log.Debug("skipping unresolvable streaming level", "level", ref.String(), "err", err)
			continue
		}
		target := level.Props.Soft("WorldAsset").AssetPath
		if visited.Has(e.provider, target) {
			continue
		}
		pkg, _ := asset.SplitObjectPath(target)
		children := []*string{nil}
		if child, err := e.ExportWorld(pkg, visited); err == nil {
			children[0] = scene.Child(child.Package)
		} else {
			e.log.Warn("failed to export streaming level", "level", level.Name, "world", target, "err", err)
		}

		t := level.Props.Transform("LevelTransform")
		doc.Add(&scene.Node{
			Name:     level.Name,
			Location: t.Translation,
			Rotation: scene.Quat(t.Rotation),
			Scale:    t.Scale3D,
			Children: children,
		})
	}
}

// exportChild exports a referenced world and returns its document path, or nil
// if it failed. A world that was already visited is not exported again.
func (e *Exporter) exportChild(path string, visited *Visited) *string {
	if doc, ok := visited.Document(e.provider, path); ok {
		return scene.Child(doc)
	}
	doc, err := e.ExportWorld(path, visited)
	if err != nil {
		level := slog.LevelWarn
		if errors.Is(err, asset.ErrNotFound) || errors.Is(err, asset.ErrWrongType) {
			level = slog.LevelInfo
		}
		e.log.Log(context.Background(), level, "failed to export child world", "world", path, "err", err)
		return nil
	}
	return scene.Child(doc.Package)
}
