package scene

import (
	"encoding/json"
	"io/fs"
	"testing"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/hack-pad/hackpadfs/mem"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"umap-export/internal/asset"
)

func TestNodeMarshalMesh(t *testing.T) {
	mats := NewOrdered[*MaterialBinding]()
	b := NewMaterialBinding("/Game/M/MI_Wall")
	b.Textures.Set("Diffuse", "/Game/T/T_Wall_D")
	b.Scalars.Set("Roughness", 0.5)
	b.Vectors.Set("Tint", "FF8000FF")
	mats.Set(b.Path, b)

	slot := NewOrdered[string]()
	slot.Set("Diffuse", "/Game/T/T_Override")

	n := &Node{
		ID:               "abc",
		Name:             "Wall_1",
		Mesh:             "/Game/Meshes/SM_Wall",
		Materials:        mats,
		TextureOverrides: []*TextureSlot{slot},
		Location:         mgl32.Vec3{1, 2, 3},
		Rotation:         Euler(mgl32.Vec3{0, 90, 0}),
		Scale:            mgl32.Vec3{1, 1, 1},
		Children:         []*string{Child("/Game/Maps/Sub"), nil},
		LightIndex:       2,
	}
	data, err := json.Marshal(n)
	require.NoError(t, err)
	assert.JSONEq(t, `["abc","Wall_1","/Game/Meshes/SM_Wall",
		{"/Game/M/MI_Wall":{"ShaderName":"None","TextureParams":{"Diffuse":"/Game/T/T_Wall_D"},"ScalerParams":{"Roughness":0.5},"VectorParams":{"Tint":"FF8000FF"}}},
		[{"Diffuse":"/Game/T/T_Override"}],
		[1,2,3],[0,90,0],[1,1,1],["/Game/Maps/Sub",null],2]`, string(data))
}

func TestNodeMarshalLight(t *testing.T) {
	n := &Node{
		Name:       "PointLight_3",
		Location:   mgl32.Vec3{0, 0, 100},
		Rotation:   Euler(mgl32.Vec3{-90, 0, 0}),
		Scale:      mgl32.Vec3{1, 1, 1},
		LightIndex: -1,
	}
	data, err := json.Marshal(n)
	require.NoError(t, err)
	assert.JSONEq(t, `[null,"PointLight_3",null,null,null,[0,0,100],[-90,0,0],[1,1,1],null,-1]`, string(data))
}

func TestQuatRecord(t *testing.T) {
	q := mgl32.Quat{W: 0.5, V: mgl32.Vec3{0.1, 0.2, 0.3}}
	assert.Equal(t, []float32{0.1, 0.2, 0.3, 0.5}, Quat(q))
}

func TestNewID(t *testing.T) {
	id := NewID()
	assert.Len(t, id, 32)
	assert.Regexp(t, `^[0-9a-f]{32}$`, id)
	assert.NotEqual(t, id, NewID())
}

func TestOrderedKeepsInsertionOrder(t *testing.T) {
	m := NewOrdered[int]()
	m.Set("z", 1)
	m.Set("a", 2)
	assert.False(t, m.SetIfAbsent("z", 3))
	assert.True(t, m.SetIfAbsent("m", 4))
	m.Set("a", 5)

	assert.Equal(t, []string{"z", "a", "m"}, m.Keys())
	data, err := json.Marshal(m)
	require.NoError(t, err)
	assert.Equal(t, `{"z":1,"a":5,"m":4}`, string(data))
}

func TestOrderedNilReads(t *testing.T) {
	var m *Ordered[string]
	assert.Zero(t, m.Len())
	assert.False(t, m.Has("a"))
	_, ok := m.Get("a")
	assert.False(t, ok)
	assert.Nil(t, m.Keys())
	data, err := json.Marshal(m)
	require.NoError(t, err)
	assert.Equal(t, "null", string(data))

	keys := NewOrdered[string]()
	keys.Set("a", "1")
	got := keys.Keys()
	got[0] = "changed"
	assert.Equal(t, []string{"a"}, keys.Keys())
}

func TestDocumentBindFirstWins(t *testing.T) {
	doc := NewDocument("/Game/Maps/Foo")
	first := NewMaterialBinding("/Game/M/M")
	first.Textures.Set("Diffuse", "/Game/T/A")
	second := NewMaterialBinding("/Game/M/M")
	second.Textures.Set("Diffuse", "/Game/T/B")

	assert.Same(t, first, doc.Bind(first))
	assert.Same(t, first, doc.Bind(second))
	got, ok := doc.Binding("/Game/M/M")
	require.True(t, ok)
	v, _ := got.Textures.Get("Diffuse")
	assert.Equal(t, "/Game/T/A", v)
}

func TestLights(t *testing.T) {
	comp := &asset.Object{Name: "LightComponent0", Kind: "PointLightComponent", Props: asset.Properties{
		"Intensity": 5000.0,
	}}
	rec, err := NewLightRecord(comp)
	require.NoError(t, err)

	l := &Lights{}
	assert.Equal(t, 1, l.Add(rec))
	assert.Equal(t, 2, l.Add(LightRecord{}))
	assert.Equal(t, 2, l.Len())

	comp.Props["Intensity"] = 1.0
	assert.Equal(t, 5000.0, l.Records()[0].Props[0].Properties["Intensity"])
}

func TestSerializerWrite(t *testing.T) {
	fsys, err := mem.NewFS()
	require.NoError(t, err)
	s := NewSerializer(fsys, false)

	doc := NewDocument("/Game/Maps/Foo")
	doc.Add(&Node{Name: "A", Rotation: Euler(mgl32.Vec3{}), Children: []*string{}})
	doc.Add(nil)

	name, err := s.Write(doc)
	require.NoError(t, err)
	assert.Equal(t, "jsons/Game/Maps/Foo.processed.json", name)

	nodes, err := fs.ReadFile(fsys, name)
	require.NoError(t, err)
	assert.JSONEq(t, `[[null,"A",null,null,null,[0,0,0],[0,0,0],[0,0,0],[],0]]`, string(nodes))

	lights, err := fs.ReadFile(fsys, "jsons/Game/Maps/Foo.lights.processed.json")
	require.NoError(t, err)
	assert.JSONEq(t, `[]`, string(lights))

	require.NoError(t, s.WriteRoot("/Game/Maps/Foo"))
	root, err := fs.ReadFile(fsys, RootFile)
	require.NoError(t, err)
	assert.Equal(t, `"/Game/Maps/Foo"`, string(root))
}
