// Package assetexport writes mesh and texture binaries in the background.
// Jobs are deduplicated by the existence of their output file, not by an
// in-memory registry: two submissions racing on the same missing file may both
// run, and the one that loses the exclusive create is dropped silently.
package assetexport

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"path"
	"runtime"
	"sync"
	"sync/atomic"

	"github.com/hack-pad/hackpadfs"
	"golang.org/x/sync/semaphore"

	"umap-export/internal/asset"
	"umap-export/internal/outfs"
)

// ErrUnsupportedFormat is returned by jobs whose requested output has no encoder.
var ErrUnsupportedFormat = errors.New("unsupported format")

// MeshExt is the extension of exported mesh LOD payloads.
const MeshExt = ".pskx"

// Kinds accepted by the exporters.
const (
	KindStaticMesh = "StaticMesh"
	KindTexture2D  = "Texture2D"
)

// Options configures a Scheduler.
type Options struct {
	// Workers bounds the number of jobs running at once; 0 means GOMAXPROCS.
	Workers int
	// ImageFormat is the texture output format: png, jpg, bmp or tiff.
	ImageFormat string
	// PreferBlockCompressed requests .dds output for block-compressed textures.
	// No encoder exists for it, so such jobs fail with ErrUnsupportedFormat.
	PreferBlockCompressed bool
}

// Stats counts job outcomes.
type Stats struct {
	Submitted int64
	Written   int64
	Skipped   int64 // output existed at submission time
	Contended int64 // lost the exclusive create to another writer
	Failed    int64
}

// Scheduler runs export jobs on a bounded pool of goroutines.
type Scheduler struct {
	fs        hackpadfs.FS
	provider  asset.Provider
	converter asset.Converter
	log       *slog.Logger
	opts      Options
	encoder   encoder

	sem     *semaphore.Weighted
	wg      sync.WaitGroup
	pending atomic.Int64

	submitted, written, skipped, contended, failed atomic.Int64
}

// New returns a Scheduler writing under fsys. It fails if the image format is unknown.
func New(fsys hackpadfs.FS, p asset.Provider, conv asset.Converter, log *slog.Logger, opts Options) (*Scheduler, error) {
	if opts.Workers <= 0 {
		opts.Workers = runtime.GOMAXPROCS(0)
	}
	enc, err := encoderFor(opts.ImageFormat)
	if err != nil {
		return nil, err
	}
	return &Scheduler{
		fs:        fsys,
		provider:  p,
		converter: conv,
		log:       log,
		opts:      opts,
		encoder:   enc,
		sem:       semaphore.NewWeighted(int64(opts.Workers)),
	}, nil
}

// MeshPath returns the output file of a mesh.
func (s *Scheduler) MeshPath(mesh *asset.Object) string {
	return path.Join(asset.ExportDir(s.provider, mesh), outfs.SanitizeName(mesh.Name)+MeshExt)
}

// TexturePath returns the output file of a texture and whether that output is block compressed.
func (s *Scheduler) TexturePath(tex *asset.Object) (string, bool) {
	ext := s.encoder.ext
	dds := false
	if s.opts.PreferBlockCompressed {
		if format, _ := tex.Props.Text("Format"); FourCC(format) != "" {
			ext, dds = ".dds", true
		}
	}
	return path.Join(asset.ExportDir(s.provider, tex), outfs.SanitizeName(tex.Name)+ext), dds
}

// ExportMesh schedules writing the first LOD of mesh. It returns immediately.
func (s *Scheduler) ExportMesh(mesh *asset.Object) {
	if mesh == nil || !mesh.Is(KindStaticMesh) {
		return
	}
	out := s.MeshPath(mesh)
	if outfs.Exists(s.fs, out) {
		s.skipped.Add(1)
		return
	}
	s.submit(out, func() error {
		if outfs.Exists(s.fs, out) {
			return errExists
		}
		lods, err := s.converter.MeshLODs(mesh)
		if err != nil {
			return err
		}
		if len(lods) == 0 {
			s.log.Warn("mesh has no LODs", "mesh", mesh.Name)
			return errAbandoned
		}
		s.log.Info("saving mesh", "file", out)
		return outfs.CreateExclusive(s.fs, out, func(w io.Writer) error {
			_, err := w.Write(lods[0])
			return err
		})
	})
}

// ExportTexture schedules writing the first mip of tex. slot names the
// parameter the texture was found under and is used for logging.
func (s *Scheduler) ExportTexture(tex *asset.Object, slot string) {
	if tex == nil || !tex.Is(KindTexture2D) {
		return
	}
	out, dds := s.TexturePath(tex)
	if outfs.Exists(s.fs, out) {
		s.log.Debug("texture already exists, skipping", "file", out)
		s.skipped.Add(1)
		return
	}
	s.submit(out, func() error {
		if dds {
			return fmt.Errorf("assetexport: dds output for %s: %w", tex.Name, ErrUnsupportedFormat)
		}
		img, err := s.converter.DecodeTexture(tex)
		if err != nil {
			return err
		}
		s.log.Info("saving texture", "file", out, "slot", slot)
		return outfs.CreateExclusive(s.fs, out, func(w io.Writer) error {
			return s.encoder.encode(w, img)
		})
	})
}

var (
	errExists    = errors.New("output exists")
	errAbandoned = errors.New("abandoned")
)

func (s *Scheduler) submit(out string, job func() error) {
	s.submitted.Add(1)
	s.pending.Add(1)
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		defer s.pending.Add(-1)
		_ = s.sem.Acquire(context.Background(), 1)
		defer s.sem.Release(1)
		s.finish(out, job())
	}()
}

func (s *Scheduler) finish(out string, err error) {
	switch {
	case err == nil:
		s.written.Add(1)
	case errors.Is(err, errExists):
		s.skipped.Add(1)
	case outfs.IsContention(err):
		s.contended.Add(1)
	case errors.Is(err, errAbandoned):
		s.failed.Add(1)
	default:
		s.failed.Add(1)
		s.log.Warn("failed to save asset", "file", out, "err", err)
	}
}

// Pending returns the number of submitted jobs that have not finished.
func (s *Scheduler) Pending() int64 {
	return s.pending.Load()
}

// Wait blocks until every submitted job has finished and returns the totals.
func (s *Scheduler) Wait() Stats {
	s.wg.Wait()
	return s.Stats()
}

// Stats returns the current totals.
func (s *Scheduler) Stats() Stats {
	return Stats{
		Submitted: s.submitted.Load(),
		Written:   s.written.Load(),
		Skipped:   s.skipped.Load(),
		Contended: s.contended.Load(),
		Failed:    s.failed.Load(),
	}
}

// FourCC returns the DDS four-character code of a block-compressed pixel format, or "".
func FourCC(format string) string {
	switch format {
	case "PF_DXT1":
		return "DXT1"
	case "PF_DXT3":
		return "DXT3"
	case "PF_DXT5":
		return "DXT5"
	case "PF_BC4":
		return "ATI1"
	case "PF_BC5":
		return "ATI2"
	}
	return ""
}
