package importer

import (
	"testing"
)

func meshWithMaterial(m uint32) SceneMesh {
	return SceneMesh{MaterialIndex: m}
}

func TestFlattenPreOrder(t *testing.T) {
	//        root(0)
	//       /       \
	//     a(1)      b(3)
	//      |
	//     c(2)
	s := NewScene("root")
	s.AddMesh(RootNode, meshWithMaterial(0))
	a := s.AddNode(RootNode, "a")
	s.AddMesh(a, meshWithMaterial(1))
	b := s.AddNode(RootNode, "b")
	c := s.AddNode(a, "c")
	s.AddMesh(c, meshWithMaterial(2))
	s.AddMesh(b, meshWithMaterial(3))
	s.AddMesh(b, meshWithMaterial(4))

	flat := s.Flatten()
	want := []uint32{0, 1, 2, 3, 4}
	if len(flat) != len(want) {
		t.Fatalf("got %d meshes, want %d", len(flat), len(want))
	}
	for i, m := range flat {
		if m.MaterialIndex != want[i] {
			t.Errorf("mesh %d: got material %d, want %d", i, m.MaterialIndex, want[i])
		}
	}
}

func TestFlattenDeepChain(t *testing.T) {
	const depth = 100000
	s := NewScene("root")
	node := RootNode
	for i := 0; i < depth; i++ {
		node = s.AddNode(node, "")
		s.AddMesh(node, meshWithMaterial(uint32(i)))
	}

	flat := s.Flatten()
	if len(flat) != depth {
		t.Fatalf("got %d meshes, want %d", len(flat), depth)
	}
	for i, m := range flat {
		if m.MaterialIndex != uint32(i) {
			t.Fatalf("mesh %d: got material %d", i, m.MaterialIndex)
		}
	}
}

func TestFlattenEmpty(t *testing.T) {
	if got := (&Scene{}).Flatten(); got != nil {
		t.Fatalf("expected nil, got %v", got)
	}
	if got := NewScene("x").Flatten(); len(got) != 0 {
		t.Fatalf("expected no meshes, got %d", len(got))
	}
}

func TestBaseTextureName(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"brick.png", "brick.png"},
		{`C:\textures\brick.png`, "brick.png"},
		{"textures/wood/oak.jpg", "oak.jpg"},
		{`mixed/dir\stone.png`, "stone.png"},
		{"", ""},
		{"dir/", ""},
	}
	for _, tt := range tests {
		if got := BaseTextureName(tt.in); got != tt.want {
			t.Errorf("BaseTextureName(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestToMeshFile(t *testing.T) {
	s := NewScene("root")
	s.Materials = []Material{{Name: "a", DiffuseTexture: `x\y\a.png`}, {Name: "b"}}
	n := s.AddNode(RootNode, "child")
	s.AddMesh(n, SceneMesh{Indices: []uint32{0, 1, 2}, MaterialIndex: 1})

	f := s.ToMeshFile()
	if len(f.Materials) != 2 || f.Materials[0] != "a.png" || f.Materials[1] != "" {
		t.Fatalf("unexpected materials %q", f.Materials)
	}
	if len(f.Meshes) != 1 || f.Meshes[0].MaterialIndex != 1 || len(f.Meshes[0].Indices) != 3 {
		t.Fatalf("unexpected meshes %+v", f.Meshes)
	}
}
