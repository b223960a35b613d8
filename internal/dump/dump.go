// Package dump provides assets from JSON property dumps: one file per package,
// "<package path>.json" under a dump root, with binary payloads either inlined
// as base64 or stored as sidecar files next to the dumps.
package dump

import (
	"bytes"
	"encoding/base64"
	"errors"
	"fmt"
	"image"
	_ "image/jpeg"
	_ "image/png"
	"io/fs"
	"path"
	"strings"

	"github.com/anthonynsimon/bild/clone"
	"github.com/h2non/filetype"
	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"

	"umap-export/internal/asset"
)

// Ext is the extension of package dump files.
const Ext = ".json"

// ErrUnsupportedPixelFormat is returned for raw mips in a pixel format that cannot be decoded.
var ErrUnsupportedPixelFormat = errors.New("unsupported pixel format")

// Provider is an asset.Provider and asset.Converter over a dump root.
// Packages are parsed on first use and cached.
type Provider struct {
	*asset.Memory
	fsys fs.FS
}

// New returns a Provider reading dumps from fsys.
func New(fsys fs.FS) *Provider {
	p := &Provider{fsys: fsys}
	p.Memory = asset.NewMemory(p.load)
	return p
}

// DumpFile returns the dump file name of a canonical package path.
func DumpFile(pkg string) string {
	return strings.TrimPrefix(pkg, "/") + Ext
}

func (p *Provider) load(pkg string) (*asset.Package, error) {
	data, err := fs.ReadFile(p.fsys, DumpFile(pkg))
	if errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("dump: package %s: %w", pkg, asset.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("dump: %w", err)
	}
	return decodePackage(pkg, data)
}

// MeshLODs implements asset.Converter. Each entry of the mesh's LODs list
// carries its payload as base64 Data or as a File relative to the dump root.
func (p *Provider) MeshLODs(mesh *asset.Object) ([][]byte, error) {
	lods := mesh.Props.Structs("LODs")
	out := make([][]byte, 0, len(lods))
	for i, lod := range lods {
		data, err := p.payload(lod)
		if err != nil {
			return nil, fmt.Errorf("dump: %s LOD %d: %w", mesh.Name, i, err)
		}
		if data != nil {
			out = append(out, data)
		}
	}
	return out, nil
}

// DecodeTexture implements asset.Converter. The first mip is either an encoded
// image File or raw SizeX*SizeY pixels in the texture's Format.
func (p *Provider) DecodeTexture(tex *asset.Object) (image.Image, error) {
	mips := tex.Props.Structs("Mips")
	if len(mips) == 0 {
		return nil, fmt.Errorf("dump: %s has no mips: %w", tex.Name, asset.ErrNotFound)
	}
	mip := mips[0]
	if file, ok := mip.Text("File"); ok && file != "" {
		data, err := p.readFile(file)
		if err != nil {
			return nil, fmt.Errorf("dump: %s: %w", tex.Name, err)
		}
		if !filetype.IsImage(data) {
			return nil, fmt.Errorf("dump: %s: %s is not an image: %w", tex.Name, file, ErrUnsupportedPixelFormat)
		}
		img, _, err := image.Decode(bytes.NewReader(data))
		if err != nil {
			return nil, fmt.Errorf("dump: %s: %w", tex.Name, err)
		}
		return clone.AsRGBA(img), nil
	}

	data, err := p.payload(mip)
	if err != nil {
		return nil, fmt.Errorf("dump: %s: %w", tex.Name, err)
	}
	format, _ := tex.Props.Text("Format")
	w := int(mip.Float("SizeX", 0))
	h := int(mip.Float("SizeY", 0))
	img, err := rawImage(format, w, h, data)
	if err != nil {
		return nil, fmt.Errorf("dump: %s: %w", tex.Name, err)
	}
	return img, nil
}

// payload returns the bytes of a {Data|File} struct, or nil if it has neither.
func (p *Provider) payload(s asset.Properties) ([]byte, error) {
	if data, ok := s.Text("Data"); ok && data != "" {
		return base64.StdEncoding.DecodeString(data)
	}
	if file, ok := s.Text("File"); ok && file != "" {
		return p.readFile(file)
	}
	return nil, nil
}

func (p *Provider) readFile(name string) ([]byte, error) {
	name = path.Clean(strings.TrimPrefix(strings.ReplaceAll(name, "\\", "/"), "/"))
	if !fs.ValidPath(name) {
		return nil, fmt.Errorf("invalid sidecar path %q", name)
	}
	return fs.ReadFile(p.fsys, name)
}

func rawImage(format string, w, h int, data []byte) (image.Image, error) {
	if w <= 0 || h <= 0 {
		return nil, fmt.Errorf("invalid mip size %dx%d", w, h)
	}
	switch format {
	case "PF_G8":
		if len(data) != w*h {
			return nil, fmt.Errorf("%s mip: %d bytes for %dx%d", format, len(data), w, h)
		}
		img := image.NewGray(image.Rect(0, 0, w, h))
		copy(img.Pix, data)
		return img, nil
	case "PF_B8G8R8A8", "PF_R8G8B8A8", "":
		if len(data) != w*h*4 {
			return nil, fmt.Errorf("%s mip: %d bytes for %dx%d", format, len(data), w, h)
		}
		img := image.NewRGBA(image.Rect(0, 0, w, h))
		copy(img.Pix, data)
		if format == "PF_B8G8R8A8" {
			for i := 0; i < len(img.Pix); i += 4 {
				img.Pix[i], img.Pix[i+2] = img.Pix[i+2], img.Pix[i]
			}
		}
		return img, nil
	}
	return nil, fmt.Errorf("%s: %w", format, ErrUnsupportedPixelFormat)
}

// Worlds returns the canonical paths of the dumped packages that contain a
// world, in lexical order. match filters package paths; nil accepts all.
func (p *Provider) Worlds(match func(pkg string) bool) ([]string, error) {
	var out []string
	err := fs.WalkDir(p.fsys, ".", func(name string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || !strings.HasSuffix(name, Ext) {
			return nil
		}
		pkg := "/" + strings.TrimSuffix(name, Ext)
		if match != nil && !match(pkg) {
			return nil
		}
		loaded, err := p.LoadPackage(pkg)
		if err != nil {
			return nil
		}
		if loaded.ExportOfKind("World") != nil {
			out = append(out, loaded.Name)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("dump: %w", err)
	}
	return out, nil
}
