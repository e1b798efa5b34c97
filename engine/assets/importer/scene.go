// Package importer turns source models into the flat mesh lists stored in
// binary mesh files.
package importer

import (
	"strings"

	"github.com/spaghettifunk/leap/engine/assets/meshfile"
	"github.com/spaghettifunk/leap/engine/renderer/metadata"
)

// NodeID indexes Scene.Nodes.
type NodeID int

const RootNode NodeID = 0

// Node is one entry of the scene arena. Children are stored by index so a
// scene of any depth can be walked without recursion.
type Node struct {
	Name     string
	Meshes   []int
	Children []NodeID
}

type Material struct {
	Name           string
	DiffuseTexture string
}

type SceneMesh struct {
	Vertices      []metadata.Vertex
	Indices       []uint32
	MaterialIndex uint32
}

// Scene is an imported model: a node arena rooted at RootNode, the meshes
// referenced by the nodes and the materials referenced by the meshes.
type Scene struct {
	Nodes     []Node
	Meshes    []SceneMesh
	Materials []Material
}

func NewScene(rootName string) *Scene {
	return &Scene{Nodes: []Node{{Name: rootName}}}
}

// AddNode appends a node below parent and returns its id.
func (s *Scene) AddNode(parent NodeID, name string) NodeID {
	id := NodeID(len(s.Nodes))
	s.Nodes = append(s.Nodes, Node{Name: name})
	s.Nodes[parent].Children = append(s.Nodes[parent].Children, id)
	return id
}

// AddMesh stores a mesh and attaches it to node.
func (s *Scene) AddMesh(node NodeID, mesh SceneMesh) int {
	idx := len(s.Meshes)
	s.Meshes = append(s.Meshes, mesh)
	s.Nodes[node].Meshes = append(s.Nodes[node].Meshes, idx)
	return idx
}

// Flatten lists the meshes in depth-first pre-order: a node's own meshes
// first, then the meshes of each child subtree in child order. It uses an
// explicit stack over the arena.
func (s *Scene) Flatten() []SceneMesh {
	if len(s.Nodes) == 0 {
		return nil
	}
	out := make([]SceneMesh, 0, len(s.Meshes))
	stack := []NodeID{RootNode}
	for len(stack) > 0 {
		id := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		node := &s.Nodes[id]
		for _, m := range node.Meshes {
			out = append(out, s.Meshes[m])
		}
		// Push in reverse so the first child is visited next.
		for i := len(node.Children) - 1; i >= 0; i-- {
			stack = append(stack, node.Children[i])
		}
	}
	return out
}

// TextureNames returns one diffuse texture file name per material with any
// directory part removed. Materials without a diffuse map map to "".
func (s *Scene) TextureNames() []string {
	names := make([]string, len(s.Materials))
	for i, m := range s.Materials {
		names[i] = BaseTextureName(m.DiffuseTexture)
	}
	return names
}

// BaseTextureName cuts everything up to the last path separator. Exporters
// write either Windows or POSIX separators, so both are handled.
func BaseTextureName(path string) string {
	if idx := strings.LastIndexAny(path, `\/`); idx >= 0 {
		return path[idx+1:]
	}
	return path
}

// ToMeshFile converts the scene into the binary mesh file representation.
func (s *Scene) ToMeshFile() *meshfile.File {
	flat := s.Flatten()
	f := &meshfile.File{
		Materials: s.TextureNames(),
		Meshes:    make([]meshfile.Mesh, len(flat)),
	}
	for i, m := range flat {
		f.Meshes[i] = meshfile.Mesh{
			Vertices:      m.Vertices,
			Indices:       m.Indices,
			MaterialIndex: m.MaterialIndex,
		}
	}
	return f
}
