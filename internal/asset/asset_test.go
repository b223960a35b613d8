package asset

import (
	"testing"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCanonicalize(t *testing.T) {
	cases := map[string]string{
		"FortniteGame/Content/Athena/Maps/Foo.umap":                  "/Game/Athena/Maps/Foo.umap",
		"Engine/Content/BasicShapes/Cube":                             "/Engine/BasicShapes/Cube",
		"FortniteGame/Plugins/GameFeatures/BRCosmetics/Content/A/B":   "/BRCosmetics/A/B",
		`FortniteGame\Content\Maps\Bar`:                               "/Game/Maps/Bar",
		"/Game//Maps/Baz/":                                            "/Game/Maps/Baz",
		"/Game/Maps/Foo.Foo":                                          "/Game/Maps/Foo.Foo",
		"":                                                            "",
	}
	for in, want := range cases {
		assert.Equal(t, want, Canonicalize(in), in)
	}
}

func TestCanonicalizeIdempotent(t *testing.T) {
	paths := []string{
		"FortniteGame/Content/Athena/Maps/Foo.umap",
		"Engine/Content/X",
		"Game/Plugins/P/Content/Y.Y",
		`a\b\Content\c`,
		"/Game/Maps/Foo",
		"//weird//path//",
		"Content/Top",
		"/",
		"café/Content/x",
	}
	for _, p := range paths {
		once := Canonicalize(p)
		assert.Equal(t, once, Canonicalize(once), p)
	}
}

func TestSplitObjectPath(t *testing.T) {
	pkg, name := SplitObjectPath("/Game/Maps/Foo.Foo")
	assert.Equal(t, "/Game/Maps/Foo", pkg)
	assert.Equal(t, "Foo", name)

	pkg, name = SplitObjectPath("/Game/My.Dir/Foo")
	assert.Equal(t, "/Game/My.Dir/Foo", pkg)
	assert.Equal(t, "Foo", name)
}

func TestDirPathAndExportDir(t *testing.T) {
	m := NewMemory(nil)
	pkg := m.Add(&Package{Name: "FortniteGame/Content/Meshes/SM_Rock.uasset", Exports: []*Object{
		{Name: "SM_Rock", Kind: "StaticMesh"},
		{Name: "Other", Kind: "StaticMesh"},
	}})
	assert.Equal(t, "/Game/Meshes/SM_Rock", pkg.Name)
	assert.Equal(t, "/Game/Meshes/SM_Rock", DirPath(m, pkg.Exports[0].Ref()))
	assert.Equal(t, "/Game/Meshes/SM_Rock/Other", DirPath(m, pkg.Exports[1].Ref()))
	assert.Equal(t, "/Game/Meshes/SM_Rock", DirPath(m, Ref{Package: pkg.Name, Name: "sm_rock"}))
	assert.Equal(t, "", DirPath(m, Ref{}))
	assert.Equal(t, "Game/Meshes", ExportDir(m, pkg.Exports[0]))
}

func TestMemoryResolve(t *testing.T) {
	m := NewMemory(nil)
	m.Add(&Package{Name: "/Game/Maps/Foo", Exports: []*Object{{Name: "Foo", Kind: "World"}}})

	obj, err := m.LoadObject("/Game/Maps/Foo.Foo")
	require.NoError(t, err)
	assert.Equal(t, "World", obj.Kind)
	assert.Equal(t, "/Game/Maps/Foo.Foo", obj.PathName())

	_, err = m.LoadObject("/Game/Maps/Foo.Missing")
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = m.Resolve(Ref{})
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = LoadAs(m, "/Game/Maps/Foo.Foo", "Level")
	assert.ErrorIs(t, err, ErrWrongType)
}

func TestMemoryLoader(t *testing.T) {
	calls := 0
	m := NewMemory(func(path string) (*Package, error) {
		calls++
		return &Package{Exports: []*Object{{Name: "Bar", Kind: "Texture2D"}}}, nil
	})
	obj, err := m.LoadObject("/Game/T/Bar.Bar")
	require.NoError(t, err)
	assert.Equal(t, "/Game/T/Bar", obj.Package.Name)
	_, err = m.LoadPackage("/Game/T/Bar")
	require.NoError(t, err)
	assert.Equal(t, 1, calls)
}

func TestPropertiesAccessors(t *testing.T) {
	p := Properties{
		"MyGuid":           "123E4567-E89B-12D3-A456-426614174000",
		"StructGuid":       Properties{"A": float64(0x123e4567), "B": float64(0xe89b12d3), "C": float64(0xa4564266), "D": float64(0x14174000)},
		"RelativeLocation": map[string]any{"X": 1.0, "Y": 2.0, "Z": 3.0},
		"RelativeRotation": Properties{"Pitch": -90.0},
		"LevelTransform":   Properties{"Translation": Properties{"X": 5.0}, "Rotation": Properties{"X": 0.0, "Y": 0.0, "Z": 0.0, "W": 1.0}},
		"Materials":        []any{Ref{Package: "/Game/M", Name: "M"}, nil},
		"AdditionalWorlds": []any{SoftPath{AssetPath: "/Game/W.W"}, "/Game/V.V"},
		"ParameterInfo":    Properties{"Name": "Color"},
	}

	g, ok := p.GUID("MyGuid")
	require.True(t, ok)
	assert.Equal(t, "123e4567e89b12d3a456426614174000", g)
	g, ok = p.GUID("StructGuid")
	require.True(t, ok)
	assert.Equal(t, "123e4567e89b12d3a456426614174000", g)

	assert.Equal(t, mgl32.Vec3{1, 2, 3}, p.Vector("RelativeLocation", mgl32.Vec3{}))
	assert.Equal(t, mgl32.Vec3{1, 1, 1}, p.Vector("RelativeScale3D", mgl32.Vec3{1, 1, 1}))
	assert.Equal(t, mgl32.Vec3{-90, 0, 0}, p.Rotator("RelativeRotation", mgl32.Vec3{}))

	tr := p.Transform("LevelTransform")
	assert.Equal(t, mgl32.Vec3{5, 0, 0}, tr.Translation)
	assert.Equal(t, mgl32.Vec3{1, 1, 1}, tr.Scale3D)
	assert.Equal(t, float32(1), tr.Rotation.W)

	refs := p.Refs("Materials")
	require.Len(t, refs, 2)
	assert.False(t, refs[0].IsNull())
	assert.True(t, refs[1].IsNull())

	softs := p.Softs("AdditionalWorlds")
	require.Len(t, softs, 2)
	assert.Equal(t, "W.W", softs[0].AssetName())
	assert.Equal(t, "Color", p.ParameterName())
}

func TestPropertyNames(t *testing.T) {
	props := Properties{"Normal": 1, "BaseColor": 2, "Emissive": 3, "Alpha": 4}

	o := &Object{Props: props, PropOrder: []string{"Normal", "Missing", "BaseColor", "Normal"}}
	assert.Equal(t, []string{"Normal", "BaseColor", "Alpha", "Emissive"}, o.PropertyNames())

	o = &Object{Props: props}
	assert.Equal(t, []string{"Alpha", "BaseColor", "Emissive", "Normal"}, o.PropertyNames())

	assert.Empty(t, (&Object{}).PropertyNames())
}
