package importer

import (
	"bufio"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/go-gl/mathgl/mgl32"

	"github.com/spaghettifunk/leap/engine/assets/meshfile"
	"github.com/spaghettifunk/leap/engine/core"
	"github.com/spaghettifunk/leap/engine/renderer/metadata"
)

// OpenFunc opens a file referenced from inside a model, such as a material
// library.
type OpenFunc func(name string) (io.ReadCloser, error)

// ImportOBJ reads a Wavefront OBJ file and the material libraries it
// references from the same directory.
func ImportOBJ(path string) (*Scene, error) {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			err = errors.Mark(err, core.ErrAssetNotFound)
		}
		err = errors.Wrapf(err, "failed to open model %s", path)
		core.LogError(err.Error())
		return nil, err
	}
	defer f.Close()

	dir := filepath.Dir(path)
	open := func(name string) (io.ReadCloser, error) {
		return os.Open(filepath.Join(dir, name))
	}
	return ReadOBJ(f, filepath.Base(path), open)
}

// ConvertOBJ imports src and writes it as a binary mesh file to dst.
func ConvertOBJ(src, dst string) (*meshfile.File, error) {
	scene, err := ImportOBJ(src)
	if err != nil {
		return nil, err
	}
	file := scene.ToMeshFile()
	if err := meshfile.WriteFile(dst, file); err != nil {
		return nil, err
	}
	return file, nil
}

type vertexKey struct {
	position int
	texcoord int
}

type objMesh struct {
	vertices []metadata.Vertex
	indices  []uint32
	lookup   map[vertexKey]uint32
	material uint32
}

func newObjMesh(material uint32) *objMesh {
	return &objMesh{lookup: make(map[vertexKey]uint32), material: material}
}

type objReader struct {
	scene     *Scene
	open      OpenFunc
	positions []mgl32.Vec3
	texcoords []mgl32.Vec2
	materials map[string]uint32
	node      NodeID
	mesh      *objMesh
}

// ReadOBJ parses OBJ data. Every "o" or "g" statement opens a new node under
// the root; faces are grouped into one mesh per node and material. Polygons
// are fan-triangulated and texture coordinates are flipped vertically. open
// may be nil, in which case material libraries are ignored.
func ReadOBJ(r io.Reader, name string, open OpenFunc) (*Scene, error) {
	or := &objReader{
		scene:     NewScene(name),
		open:      open,
		materials: make(map[string]uint32),
		node:      RootNode,
	}
	// material 0 has no texture and renders with the default one
	or.scene.Materials = append(or.scene.Materials, Material{Name: ""})
	or.materials[""] = 0
	or.mesh = newObjMesh(0)

	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	line := 0
	for scanner.Scan() {
		line++
		text := strings.TrimSpace(scanner.Text())
		if text == "" || strings.HasPrefix(text, "#") {
			continue
		}
		fields := strings.Fields(text)
		if err := or.statement(fields); err != nil {
			err = errors.Mark(errors.Wrapf(err, "%s:%d", name, line), core.ErrMalformedMesh)
			core.LogError(err.Error())
			return nil, err
		}
	}
	if err := scanner.Err(); err != nil {
		err = errors.Wrapf(err, "failed to read %s", name)
		core.LogError(err.Error())
		return nil, err
	}
	or.flush()
	return or.scene, nil
}

func (or *objReader) statement(fields []string) error {
	switch fields[0] {
	case "v":
		v, err := parseFloats(fields[1:], 3)
		if err != nil {
			return err
		}
		or.positions = append(or.positions, mgl32.Vec3{v[0], v[1], v[2]})
	case "vt":
		v, err := parseFloats(fields[1:], 2)
		if err != nil {
			return err
		}
		or.texcoords = append(or.texcoords, mgl32.Vec2{v[0], v[1]})
	case "f":
		return or.face(fields[1:])
	case "o", "g":
		or.flush()
		name := strings.Join(fields[1:], " ")
		or.node = or.scene.AddNode(RootNode, name)
		or.mesh = newObjMesh(or.mesh.material)
	case "usemtl":
		or.flush()
		or.mesh = newObjMesh(or.material(strings.Join(fields[1:], " ")))
	case "mtllib":
		for _, lib := range fields[1:] {
			or.loadLibrary(lib)
		}
	}
	// vn, s, l and friends carry nothing the renderer consumes
	return nil
}

func (or *objReader) face(refs []string) error {
	if len(refs) < 3 {
		return errors.Newf("face needs at least 3 vertices, got %d", len(refs))
	}
	idx := make([]uint32, len(refs))
	for i, ref := range refs {
		key, err := or.parseRef(ref)
		if err != nil {
			return err
		}
		idx[i] = or.vertex(key)
	}
	for i := 1; i+1 < len(idx); i++ {
		or.mesh.indices = append(or.mesh.indices, idx[0], idx[i], idx[i+1])
	}
	return nil
}

func (or *objReader) vertex(key vertexKey) uint32 {
	if i, ok := or.mesh.lookup[key]; ok {
		return i
	}
	v := metadata.Vertex{
		Position: or.positions[key.position],
		Color:    mgl32.Vec3{1, 1, 1},
	}
	if key.texcoord >= 0 {
		tc := or.texcoords[key.texcoord]
		v.TexCoord = mgl32.Vec2{tc[0], 1 - tc[1]}
	}
	i := uint32(len(or.mesh.vertices))
	or.mesh.vertices = append(or.mesh.vertices, v)
	or.mesh.lookup[key] = i
	return i
}

// parseRef decodes "v", "v/vt", "v//vn" or "v/vt/vn".
func (or *objReader) parseRef(ref string) (vertexKey, error) {
	parts := strings.Split(ref, "/")
	pos, err := resolveIndex(parts[0], len(or.positions))
	if err != nil {
		return vertexKey{}, errors.Wrapf(err, "position in %q", ref)
	}
	key := vertexKey{position: pos, texcoord: -1}
	if len(parts) > 1 && parts[1] != "" {
		tc, err := resolveIndex(parts[1], len(or.texcoords))
		if err != nil {
			return vertexKey{}, errors.Wrapf(err, "texcoord in %q", ref)
		}
		key.texcoord = tc
	}
	return key, nil
}

// resolveIndex turns a 1-based or negative (relative) OBJ index into a
// 0-based one.
func resolveIndex(s string, count int) (int, error) {
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0, err
	}
	switch {
	case n > 0 && n <= count:
		return n - 1, nil
	case n < 0 && -n <= count:
		return count + n, nil
	}
	return 0, errors.Newf("index %d out of range (%d elements)", n, count)
}

func (or *objReader) material(name string) uint32 {
	if i, ok := or.materials[name]; ok {
		return i
	}
	i := uint32(len(or.scene.Materials))
	or.scene.Materials = append(or.scene.Materials, Material{Name: name})
	or.materials[name] = i
	return i
}

func (or *objReader) loadLibrary(name string) {
	if or.open == nil {
		return
	}
	rc, err := or.open(name)
	if err != nil {
		core.LogWarn("material library %s unavailable: %s", name, err)
		return
	}
	defer rc.Close()

	mats, err := ReadMTL(rc)
	if err != nil {
		core.LogWarn("material library %s unreadable: %s", name, err)
		return
	}
	for _, m := range mats {
		i := or.material(m.Name)
		or.scene.Materials[i].DiffuseTexture = m.DiffuseTexture
	}
}

func (or *objReader) flush() {
	if len(or.mesh.indices) == 0 {
		return
	}
	or.scene.AddMesh(or.node, SceneMesh{
		Vertices:      or.mesh.vertices,
		Indices:       or.mesh.indices,
		MaterialIndex: or.mesh.material,
	})
	or.mesh = newObjMesh(or.mesh.material)
}

// ReadMTL parses the materials of a material library. Only the name and the
// diffuse map are kept.
func ReadMTL(r io.Reader) ([]Material, error) {
	var mats []Material
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		fields := strings.Fields(scanner.Text())
		if len(fields) < 2 {
			continue
		}
		switch fields[0] {
		case "newmtl":
			mats = append(mats, Material{Name: strings.Join(fields[1:], " ")})
		case "map_Kd":
			if len(mats) == 0 {
				return nil, errors.New("map_Kd before newmtl")
			}
			// options such as -s or -o precede the file name
			mats[len(mats)-1].DiffuseTexture = fields[len(fields)-1]
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return mats, nil
}

func parseFloats(fields []string, n int) ([]float32, error) {
	if len(fields) < n {
		return nil, errors.Newf("expected %d values, got %d", n, len(fields))
	}
	out := make([]float32, n)
	for i := 0; i < n; i++ {
		f, err := strconv.ParseFloat(fields[i], 32)
		if err != nil {
			return nil, err
		}
		out[i] = float32(f)
	}
	return out, nil
}
