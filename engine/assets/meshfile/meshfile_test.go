package meshfile

import (
	"bytes"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/cockroachdb/errors"
	"github.com/go-gl/mathgl/mgl32"
	"github.com/spaghettifunk/leap/engine/core"
	"github.com/spaghettifunk/leap/engine/renderer/metadata"
)

func sampleFile() *File {
	return &File{
		Materials: []string{"brick.png"},
		Meshes: []Mesh{
			{
				Vertices: []metadata.Vertex{
					{Position: mgl32.Vec3{-0.5, -0.5, 0}, Color: mgl32.Vec3{1, 0, 0}, TexCoord: mgl32.Vec2{0, 0}},
					{Position: mgl32.Vec3{0.5, -0.5, 0}, Color: mgl32.Vec3{0, 1, 0}, TexCoord: mgl32.Vec2{1, 0}},
					{Position: mgl32.Vec3{0, 0.5, 0}, Color: mgl32.Vec3{0, 0, 1}, TexCoord: mgl32.Vec2{0.5, 1}},
				},
				Indices:       []uint32{0, 1, 2},
				MaterialIndex: 5,
			},
			{
				MaterialIndex: 0,
			},
		},
	}
}

func assertSameFile(t *testing.T, got, want *File) {
	t.Helper()
	if len(got.Materials) != len(want.Materials) {
		t.Fatalf("materials = %v, want %v", got.Materials, want.Materials)
	}
	for i := range want.Materials {
		if got.Materials[i] != want.Materials[i] {
			t.Errorf("material %d = %q, want %q", i, got.Materials[i], want.Materials[i])
		}
	}
	if len(got.Meshes) != len(want.Meshes) {
		t.Fatalf("mesh count = %d, want %d", len(got.Meshes), len(want.Meshes))
	}
	for i := range want.Meshes {
		g, w := got.Meshes[i], want.Meshes[i]
		if !bytes.Equal(metadata.VerticesAsBytes(g.Vertices), metadata.VerticesAsBytes(w.Vertices)) {
			t.Errorf("mesh %d: vertex bytes differ", i)
		}
		if !bytes.Equal(metadata.IndicesAsBytes(g.Indices), metadata.IndicesAsBytes(w.Indices)) {
			t.Errorf("mesh %d: indices = %v, want %v", i, g.Indices, w.Indices)
		}
		if g.MaterialIndex != w.MaterialIndex {
			t.Errorf("mesh %d: material index = %d, want %d", i, g.MaterialIndex, w.MaterialIndex)
		}
	}
}

func TestRoundTrip(t *testing.T) {
	want := sampleFile()

	var buf bytes.Buffer
	if err := Write(&buf, want); err != nil {
		t.Fatalf("Write: %v", err)
	}

	// 8 material count + 10 name + 8 mesh count
	// + mesh 0: 8 + 3*32 + 8 + 3*4 + 4
	// + mesh 1: 8 + 8 + 4
	wantLen := 8 + 10 + 8 + (8 + 96 + 8 + 12 + 4) + (8 + 8 + 4)
	if buf.Len() != wantLen {
		t.Fatalf("encoded length = %d, want %d", buf.Len(), wantLen)
	}

	got, err := Read(&buf)
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	assertSameFile(t, got, want)
	if len(got.Meshes[1].Vertices) != 0 || len(got.Meshes[1].Indices) != 0 {
		t.Fatalf("empty mesh came back with data: %+v", got.Meshes[1])
	}
}

func TestRoundTripFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "model.bin")
	want := sampleFile()
	want.Materials = append(want.Materials, "", "metal.jpg")

	if err := WriteFile(path, want); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	got, err := ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	assertSameFile(t, got, want)
}

func TestReadTruncated(t *testing.T) {
	var buf bytes.Buffer
	if err := Write(&buf, sampleFile()); err != nil {
		t.Fatalf("Write: %v", err)
	}
	data := buf.Bytes()

	for _, cut := range []int{0, 4, 12, 40, len(data) - 1} {
		_, err := Read(bytes.NewReader(data[:cut]))
		if !errors.Is(err, core.ErrMalformedMesh) {
			t.Errorf("cut at %d: error = %v, want ErrMalformedMesh", cut, err)
		}
	}
}

func TestReadRejectsHugeCount(t *testing.T) {
	data := make([]byte, 8)
	byteOrder.PutUint64(data, maxElements+1)
	if _, err := Read(bytes.NewReader(data)); !errors.Is(err, core.ErrMalformedMesh) {
		t.Fatalf("error = %v, want ErrMalformedMesh", err)
	}
}

func TestReadShortFileWithLargeCounts(t *testing.T) {
	header := func(counts ...uint64) []byte {
		data := make([]byte, 8*len(counts))
		for i, n := range counts {
			byteOrder.PutUint64(data[8*i:], n)
		}
		return data
	}
	tests := []struct {
		name string
		data []byte
	}{
		{"vertices", header(0, 1, maxElements)},
		{"indices", header(0, 1, 0, maxElements)},
		{"meshes", header(0, maxElements)},
		{"materials", header(maxElements)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var before, after runtime.MemStats
			runtime.ReadMemStats(&before)
			_, err := Read(bytes.NewReader(tt.data))
			runtime.ReadMemStats(&after)

			if !errors.Is(err, core.ErrMalformedMesh) {
				t.Fatalf("error = %v, want ErrMalformedMesh", err)
			}
			if allocated := after.TotalAlloc - before.TotalAlloc; allocated > 1<<20 {
				t.Errorf("allocated %d bytes for a %d byte input", allocated, len(tt.data))
			}
		})
	}
}

func TestReadMissingFile(t *testing.T) {
	_, err := ReadFile(filepath.Join(t.TempDir(), "missing.bin"))
	if !errors.Is(err, core.ErrAssetNotFound) {
		t.Fatalf("error = %v, want ErrAssetNotFound", err)
	}
}
