package vulkan

import (
	"path/filepath"
	"reflect"
	"testing"

	"github.com/cockroachdb/errors"

	"github.com/spaghettifunk/leap/engine/assets/meshfile"
	"github.com/spaghettifunk/leap/engine/core"
	"github.com/spaghettifunk/leap/engine/renderer/metadata"
)

func TestMaterialTextureIDs(t *testing.T) {
	file := &meshfile.File{Materials: []string{"", "wood.png", "", "metal.png", "wood.png"}}
	next := 1
	seen := map[string]int{}
	ids, err := materialTextureIDs(file, func(name string) (int, error) {
		if id, ok := seen[name]; ok {
			return id, nil
		}
		seen[name] = next
		next++
		return seen[name], nil
	})
	if err != nil {
		t.Fatalf("materialTextureIDs() error = %v", err)
	}
	if want := []int{0, 1, 0, 2, 1}; !reflect.DeepEqual(ids, want) {
		t.Errorf("ids = %v, want %v", ids, want)
	}
}

func TestMaterialTextureIDsError(t *testing.T) {
	file := &meshfile.File{Materials: []string{"missing.png"}}
	_, err := materialTextureIDs(file, func(string) (int, error) {
		return 0, errors.Mark(errors.New("not found"), core.ErrAssetNotFound)
	})
	if !errors.Is(err, core.ErrAssetNotFound) {
		t.Fatalf("error = %v, want ErrAssetNotFound", err)
	}
}

func TestMeshTextureID(t *testing.T) {
	ids := []int{0, 3, 5}
	for i, want := range ids {
		got, err := meshTextureID(uint32(i), ids)
		if err != nil || got != want {
			t.Errorf("meshTextureID(%d) = %d, %v; want %d", i, got, err, want)
		}
	}
	if _, err := meshTextureID(3, ids); !errors.Is(err, core.ErrInvalidMaterialIndex) {
		t.Errorf("out of range error = %v, want ErrInvalidMaterialIndex", err)
	}
	if _, err := meshTextureID(0, nil); !errors.Is(err, core.ErrInvalidMaterialIndex) {
		t.Errorf("no materials error = %v, want ErrInvalidMaterialIndex", err)
	}
}

func TestMeshEmpty(t *testing.T) {
	if !(&Mesh{}).Empty() {
		t.Error("zero mesh is not empty")
	}
	if drawableMesh(3, 0).Empty() {
		t.Error("mesh with indices reported empty")
	}
}

type stubAssets struct {
	resources map[string]*metadata.Resource
	unloaded  int
}

func (s *stubAssets) Load(assetType metadata.ResourceType, name string, params interface{}) (*metadata.Resource, error) {
	if res, ok := s.resources[name]; ok && res.Type == assetType {
		return res, nil
	}
	return nil, errors.Mark(errors.Newf("%s asset not found: %s", assetType, name), core.ErrAssetNotFound)
}

func (s *stubAssets) Unload(*metadata.Resource) error {
	s.unloaded++
	return nil
}

func TestLoadMeshFileFromIndex(t *testing.T) {
	indexed := &meshfile.File{Materials: []string{""}}
	assets := &stubAssets{resources: map[string]*metadata.Resource{
		"room.bin": {Name: "room.bin", Type: metadata.ResourceTypeMesh, Data: indexed},
	}}
	vr := &VulkanRenderer{assets: assets}

	got, err := vr.loadMeshFile(filepath.Join("models", "room.bin"))
	if err != nil {
		t.Fatalf("loadMeshFile() error = %v", err)
	}
	if got != indexed {
		t.Errorf("loadMeshFile() did not return the indexed mesh")
	}
	if assets.unloaded != 1 {
		t.Errorf("unloaded = %d, want 1", assets.unloaded)
	}
}

func TestLoadMeshFileFallsBackToPath(t *testing.T) {
	path := filepath.Join(t.TempDir(), "outside.bin")
	want := &meshfile.File{
		Materials: []string{"", "wood.png"},
		Meshes:    []meshfile.Mesh{{Indices: []uint32{0, 1, 2}, MaterialIndex: 1}},
	}
	if err := meshfile.WriteFile(path, want); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}
	vr := &VulkanRenderer{assets: &stubAssets{}}

	got, err := vr.loadMeshFile(path)
	if err != nil {
		t.Fatalf("loadMeshFile() error = %v", err)
	}
	if !reflect.DeepEqual(got.Materials, want.Materials) || len(got.Meshes) != 1 {
		t.Errorf("loadMeshFile() = %+v, want %+v", got, want)
	}
}

func TestLoadMeshFileWrongData(t *testing.T) {
	vr := &VulkanRenderer{assets: &stubAssets{resources: map[string]*metadata.Resource{
		"room.bin": {Name: "room.bin", Type: metadata.ResourceTypeMesh, Data: []byte{1}},
	}}}
	if _, err := vr.loadMeshFile("room.bin"); !errors.Is(err, core.ErrMalformedMesh) {
		t.Errorf("loadMeshFile() error = %v, want ErrMalformedMesh", err)
	}
}
