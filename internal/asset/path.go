package asset

import (
	"strings"

	"golang.org/x/text/unicode/norm"
)

// packageExts are the container extensions stripped from package paths.
var packageExts = []string{".umap", ".uasset", ".uexp", ".json"}

// Canonicalize converts an internal asset path to its compact, mount-relative form:
// "FortniteGame/Content/Maps/Foo.umap" becomes "/Game/Maps/Foo.umap",
// "Engine/Content/X" becomes "/Engine/X" and
// "Game/Plugins/GameFeatures/Feat/Content/X" becomes "/Feat/X".
// Paths that already start with a slash only get their separators normalised,
// so canonicalizing twice is a no-op.
func Canonicalize(path string) string {
	if path == "" {
		return ""
	}
	path = norm.NFC.String(path)
	path = strings.ReplaceAll(path, "\\", "/")
	if !strings.HasPrefix(path, "/") {
		path = mountRelative(path)
	}
	parts := strings.Split(path, "/")
	kept := parts[:0]
	for _, p := range parts {
		if p != "" {
			kept = append(kept, p)
		}
	}
	return "/" + strings.Join(kept, "/")
}

func mountRelative(path string) string {
	parts := strings.Split(path, "/")
	for i, p := range parts {
		if i == 0 || !strings.EqualFold(p, "Content") {
			continue
		}
		mount := parts[i-1]
		if i == 1 && !strings.EqualFold(mount, "Engine") {
			mount = "Game"
		}
		return "/" + mount + "/" + strings.Join(parts[i+1:], "/")
	}
	return "/" + path
}

// SplitObjectPath splits "<package>.<name>" at the last dot after the last slash.
// A path without such a dot names the object that shares the package's name.
func SplitObjectPath(path string) (pkg, name string) {
	slash := strings.LastIndex(path, "/")
	dot := strings.LastIndex(path, ".")
	if dot <= slash {
		return path, path[slash+1:]
	}
	return path[:dot], path[dot+1:]
}

// StripExt removes a known container extension from a package path.
func StripExt(path string) string {
	lower := strings.ToLower(path)
	for _, ext := range packageExts {
		if strings.HasSuffix(lower, ext) {
			return path[:len(path)-len(ext)]
		}
	}
	return path
}

// DirPath returns the compact reference path the importer uses for an object:
// the package path when the object shares the package's name, else
// "<package>/<name>".
func DirPath(p Provider, ref Ref) string {
	if ref.IsNull() {
		return ""
	}
	pkg := StripExt(p.Canonicalize(ref.Package))
	if strings.EqualFold(pkg[strings.LastIndex(pkg, "/")+1:], ref.Name) {
		return pkg
	}
	return pkg + "/" + ref.Name
}

// ExportDir returns the slash-separated output directory, relative to the output
// root, mirroring the directory of the package that owns obj.
func ExportDir(p Provider, obj *Object) string {
	if obj.Package == nil {
		return "."
	}
	pkg := StripExt(p.Canonicalize(obj.Package.Name))
	pkg = strings.TrimPrefix(pkg, "/")
	i := strings.LastIndex(pkg, "/")
	if i < 0 {
		return "."
	}
	return pkg[:i]
}
