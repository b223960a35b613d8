package asset

import (
	"fmt"
	"sync"
)

// PackageLoader fetches a package by its canonical path (no extension). It
// returns ErrNotFound when the package does not exist.
type PackageLoader func(path string) (*Package, error)

// Memory is a Provider over an in-memory package table. Packages are added
// directly or fetched on first use through an optional loader and cached.
type Memory struct {
	mu       sync.Mutex
	packages map[string]*Package
	loader   PackageLoader
}

// NewMemory returns an empty provider. loader may be nil.
func NewMemory(loader PackageLoader) *Memory {
	return &Memory{packages: make(map[string]*Package), loader: loader}
}

// Add registers pkg under its canonical name and links every export back to it.
func (m *Memory) Add(pkg *Package) *Package {
	pkg.Name = StripExt(Canonicalize(pkg.Name))
	for _, o := range pkg.Exports {
		o.Package = pkg
	}
	m.mu.Lock()
	m.packages[pkg.Name] = pkg
	m.mu.Unlock()
	return pkg
}

// Canonicalize implements Provider.
func (m *Memory) Canonicalize(path string) string {
	return Canonicalize(path)
}

// LoadPackage implements Provider.
func (m *Memory) LoadPackage(path string) (*Package, error) {
	key := StripExt(Canonicalize(path))
	m.mu.Lock()
	pkg, ok := m.packages[key]
	m.mu.Unlock()
	if ok {
		return pkg, nil
	}
	if m.loader == nil {
		return nil, fmt.Errorf("asset: package %s: %w", key, ErrNotFound)
	}
	pkg, err := m.loader(key)
	if err != nil {
		return nil, err
	}
	pkg.Name = key
	return m.Add(pkg), nil
}

// LoadObject implements Provider.
func (m *Memory) LoadObject(path string) (*Object, error) {
	return m.Resolve(ParseRef(path))
}

// Resolve implements Provider.
func (m *Memory) Resolve(ref Ref) (*Object, error) {
	if ref.IsNull() {
		return nil, fmt.Errorf("asset: null reference: %w", ErrNotFound)
	}
	pkg, err := m.LoadPackage(ref.Package)
	if err != nil {
		return nil, err
	}
	obj := pkg.Export(ref.Name)
	if obj == nil {
		return nil, fmt.Errorf("asset: object %s: %w", ref.Path(), ErrNotFound)
	}
	return obj, nil
}
