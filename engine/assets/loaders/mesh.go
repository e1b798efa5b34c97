package loaders

import (
	"path/filepath"

	"github.com/spaghettifunk/leap/engine/assets/meshfile"
	"github.com/spaghettifunk/leap/engine/renderer/metadata"
)

// MeshLoader reads binary mesh files.
type MeshLoader struct{}

func (ml *MeshLoader) Load(path string, params interface{}) (*metadata.Resource, error) {
	f, err := meshfile.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var size uint64
	for _, m := range f.Meshes {
		size += uint64(len(m.Vertices))*uint64(metadata.VertexSize) + uint64(len(m.Indices))*4
	}
	return &metadata.Resource{
		Name:     filepath.Base(path),
		FullPath: path,
		Type:     metadata.ResourceTypeMesh,
		DataSize: size,
		Data:     f,
	}, nil
}

func (ml *MeshLoader) Unload(*metadata.Resource) error {
	return nil
}
