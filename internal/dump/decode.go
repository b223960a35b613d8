package dump

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	"umap-export/internal/asset"
)

// rawExport is one export as written by the dumper.
type rawExport struct {
	Type       string
	Name       string
	Class      json.RawMessage
	Properties map[string]any
	order      []string // Properties keys in stored order
	extra      map[string]any
}

// headerKeys are the export keys that are not properties.
var headerKeys = map[string]bool{"Type": true, "Name": true, "Class": true, "Properties": true, "Outer": true, "Flags": true}

// decodePackage parses a package dump: either a bare array of exports or an
// object with Name and Exports.
func decodePackage(path string, data []byte) (*asset.Package, error) {
	data = bytes.TrimSpace(data)
	var rawList []json.RawMessage
	if len(data) > 0 && data[0] == '{' {
		var wrapped struct {
			Name    string
			Exports []json.RawMessage
		}
		if err := json.Unmarshal(data, &wrapped); err != nil {
			return nil, fmt.Errorf("dump: %s: %w", path, err)
		}
		rawList = wrapped.Exports
	} else if err := json.Unmarshal(data, &rawList); err != nil {
		return nil, fmt.Errorf("dump: %s: %w", path, err)
	}

	pkg := &asset.Package{Name: path, Exports: make([]*asset.Object, 0, len(rawList))}
	d := decoder{pkg: path}
	for i, msg := range rawList {
		raw, err := parseExport(msg)
		if err != nil {
			return nil, fmt.Errorf("dump: %s: export %d: %w", path, i, err)
		}
		props := d.properties(raw.Properties)
		for k, v := range raw.extra {
			if _, ok := props[k]; !ok {
				props[k] = d.value(v)
			}
		}
		pkg.Exports = append(pkg.Exports, &asset.Object{
			Name:  raw.Name,
			Kind:  raw.Type,
			Class:     d.class(raw.Class),
			Props:     props,
			PropOrder: raw.order,
		})
	}
	return pkg, nil
}

func parseExport(msg json.RawMessage) (rawExport, error) {
	var all map[string]json.RawMessage
	if err := json.Unmarshal(msg, &all); err != nil {
		return rawExport{}, err
	}
	var raw rawExport
	if err := json.Unmarshal(msg, &raw); err != nil {
		return rawExport{}, err
	}
	if props, ok := all["Properties"]; ok {
		order, err := keyOrder(props)
		if err != nil {
			return rawExport{}, err
		}
		raw.order = order
	}
	for k, v := range all {
		if headerKeys[k] {
			continue
		}
		var val any
		if err := json.Unmarshal(v, &val); err != nil {
			return rawExport{}, err
		}
		if raw.extra == nil {
			raw.extra = make(map[string]any)
		}
		raw.extra[k] = val
	}
	return raw, nil
}

// keyOrder returns the keys of a JSON object in the order they appear. A
// value that is not an object has no keys.
func keyOrder(msg json.RawMessage) ([]string, error) {
	dec := json.NewDecoder(bytes.NewReader(msg))
	tok, err := dec.Token()
	if err != nil {
		return nil, err
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return nil, nil
	}
	var keys []string
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return nil, err
		}
		key, _ := tok.(string)
		keys = append(keys, key)
		var skip json.RawMessage
		if err := dec.Decode(&skip); err != nil {
			return nil, err
		}
	}
	return keys, nil
}

// decoder converts generic JSON values into property values. pkg is the
// package being decoded and is the target of package-local references.
type decoder struct {
	pkg string
}

func (d decoder) properties(m map[string]any) asset.Properties {
	props := make(asset.Properties, len(m))
	for k, v := range m {
		props[k] = d.value(v)
	}
	return props
}

func (d decoder) value(v any) any {
	switch t := v.(type) {
	case []any:
		out := make([]any, len(t))
		for i, e := range t {
			out[i] = d.value(e)
		}
		return out
	case map[string]any:
		if ref, ok := d.ref(t); ok {
			return ref
		}
		if soft, ok := t["AssetPathName"].(string); ok {
			sub, _ := t["SubPathString"].(string)
			return asset.SoftPath{AssetPath: soft, SubPath: sub}
		}
		return d.properties(t)
	}
	return v
}

// ref reads {"ObjectName", "ObjectPath"}. A path ending in an export index, or
// no path at all, is a reference into the package being decoded.
func (d decoder) ref(m map[string]any) (asset.Ref, bool) {
	objPath, hasPath := m["ObjectPath"].(string)
	objName, hasName := m["ObjectName"].(string)
	if !hasPath && !hasName {
		return asset.Ref{}, false
	}
	for k := range m {
		if k != "ObjectPath" && k != "ObjectName" {
			return asset.Ref{}, false
		}
	}
	name := innerName(objName)
	if objPath == "" {
		return asset.Ref{Package: d.pkg, Name: name}, true
	}
	pkg, pathName := asset.SplitObjectPath(objPath)
	if pathName == "" || isIndex(pathName) {
		return asset.Ref{Package: asset.StripExt(pkg), Name: name}, true
	}
	return asset.Ref{Package: asset.StripExt(pkg), Name: pathName}, true
}

// class reads the Class field, either a reference object or "Kind'/Path.Name'".
func (d decoder) class(raw json.RawMessage) asset.Ref {
	if len(raw) == 0 {
		return asset.Ref{}
	}
	var v any
	if err := json.Unmarshal(raw, &v); err != nil {
		return asset.Ref{}
	}
	switch t := v.(type) {
	case string:
		inner := quoted(t)
		if !strings.Contains(inner, "/") {
			return asset.Ref{}
		}
		return asset.ParseRef(inner)
	case map[string]any:
		ref, _ := d.ref(t)
		return ref
	}
	return asset.Ref{}
}

// innerName turns "StaticMesh'SM_Wall'" or "Level'Main:PersistentLevel'" into
// the object's own name.
func innerName(s string) string {
	s = quoted(s)
	if i := strings.LastIndexAny(s, ":."); i >= 0 {
		s = s[i+1:]
	}
	return s
}

// quoted returns the text between the first and last single quote, or s.
func quoted(s string) string {
	i := strings.IndexByte(s, '\'')
	j := strings.LastIndexByte(s, '\'')
	if i < 0 || j <= i {
		return s
	}
	return s[i+1 : j]
}

func isIndex(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
