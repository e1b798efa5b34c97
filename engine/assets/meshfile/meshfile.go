// Package meshfile reads and writes the binary mesh files produced by meshc
// and consumed by the renderer.
//
// Layout, host byte order, size_t stored as 64 bits:
//
//	u64 material count, then that many NUL-terminated texture names
//	u64 mesh count, then per mesh:
//	  u64 vertex count, raw Vertex array (8 x float32 each)
//	  u64 index count, raw uint32 array
//	  u32 material index
package meshfile

import (
	"bufio"
	"encoding/binary"
	"io"
	"os"

	"github.com/cockroachdb/errors"
	"github.com/spaghettifunk/leap/engine/core"
	"github.com/spaghettifunk/leap/engine/renderer/metadata"
)

// Upper bound for any count read from a file, to reject garbage before
// allocating for it.
const maxElements = 1 << 28

// Elements read per step. Slices grow only as data arrives, so a short file
// claiming a huge count fails before allocating for it.
const readChunk = 1 << 12

var byteOrder = binary.NativeEndian

type Mesh struct {
	Vertices      []metadata.Vertex
	Indices       []uint32
	MaterialIndex uint32
}

type File struct {
	// Diffuse texture file name per material. Empty means no texture.
	Materials []string
	Meshes    []Mesh
}

// WriteFile serializes f to path.
func WriteFile(path string, f *File) error {
	out, err := os.Create(path)
	if err != nil {
		return errors.Wrapf(err, "could not open file %s for writing", path)
	}
	w := bufio.NewWriter(out)
	if err := Write(w, f); err != nil {
		out.Close()
		return err
	}
	if err := w.Flush(); err != nil {
		out.Close()
		return errors.Wrapf(err, "failed to flush %s", path)
	}
	return out.Close()
}

// ReadFile parses the mesh file at path.
func ReadFile(path string) (*File, error) {
	in, err := os.Open(path)
	if err != nil {
		err = errors.Wrapf(errors.Mark(err, core.ErrAssetNotFound), "could not open file %s for reading", path)
		core.LogError(err.Error())
		return nil, err
	}
	defer in.Close()

	f, err := Read(bufio.NewReader(in))
	if err != nil {
		err = errors.Wrapf(err, "failed to read mesh file %s", path)
		core.LogError(err.Error())
		return nil, err
	}
	return f, nil
}

func Write(w io.Writer, f *File) error {
	if err := writeCount(w, len(f.Materials)); err != nil {
		return err
	}
	for _, name := range f.Materials {
		if _, err := io.WriteString(w, name); err != nil {
			return errors.Wrap(err, "failed to write material name")
		}
		if _, err := w.Write([]byte{0}); err != nil {
			return errors.Wrap(err, "failed to write material name")
		}
	}

	if err := writeCount(w, len(f.Meshes)); err != nil {
		return err
	}
	for i := range f.Meshes {
		m := &f.Meshes[i]
		if err := writeCount(w, len(m.Vertices)); err != nil {
			return err
		}
		if _, err := w.Write(metadata.VerticesAsBytes(m.Vertices)); err != nil {
			return errors.Wrapf(err, "failed to write vertices of mesh %d", i)
		}
		if err := writeCount(w, len(m.Indices)); err != nil {
			return err
		}
		if _, err := w.Write(metadata.IndicesAsBytes(m.Indices)); err != nil {
			return errors.Wrapf(err, "failed to write indices of mesh %d", i)
		}
		if err := binary.Write(w, byteOrder, m.MaterialIndex); err != nil {
			return errors.Wrapf(err, "failed to write material index of mesh %d", i)
		}
	}
	return nil
}

func Read(r io.Reader) (*File, error) {
	br, ok := r.(io.ByteReader)
	if !ok {
		buffered := bufio.NewReader(r)
		r, br = buffered, buffered
	}

	materialCount, err := readCount(r, "material")
	if err != nil {
		return nil, err
	}
	f := &File{Materials: make([]string, 0, min(materialCount, readChunk))}
	for i := uint64(0); i < materialCount; i++ {
		name, err := readCString(br)
		if err != nil {
			return nil, errors.Wrapf(err, "material %d", i)
		}
		f.Materials = append(f.Materials, name)
	}

	meshCount, err := readCount(r, "mesh")
	if err != nil {
		return nil, err
	}
	f.Meshes = make([]Mesh, 0, min(meshCount, readChunk))
	for i := uint64(0); i < meshCount; i++ {
		var m Mesh

		vertexCount, err := readCount(r, "vertex")
		if err != nil {
			return nil, errors.Wrapf(err, "mesh %d", i)
		}
		if m.Vertices, err = readChunked(r, vertexCount, metadata.VerticesAsBytes); err != nil {
			return nil, errors.Wrapf(errors.Mark(err, core.ErrMalformedMesh), "mesh %d vertices", i)
		}

		indexCount, err := readCount(r, "index")
		if err != nil {
			return nil, errors.Wrapf(err, "mesh %d", i)
		}
		if m.Indices, err = readChunked(r, indexCount, metadata.IndicesAsBytes); err != nil {
			return nil, errors.Wrapf(errors.Mark(err, core.ErrMalformedMesh), "mesh %d indices", i)
		}

		if err := binary.Read(r, byteOrder, &m.MaterialIndex); err != nil {
			return nil, errors.Wrapf(errors.Mark(err, core.ErrMalformedMesh), "mesh %d material index", i)
		}
		f.Meshes = append(f.Meshes, m)
	}
	return f, nil
}

// readChunked reads n fixed-size elements, growing the slice one chunk at a
// time.
func readChunked[T any](r io.Reader, n uint64, asBytes func([]T) []byte) ([]T, error) {
	out := make([]T, 0, min(n, readChunk))
	for remaining := n; remaining > 0; {
		step := min(remaining, readChunk)
		start := len(out)
		out = append(out, make([]T, step)...)
		if _, err := io.ReadFull(r, asBytes(out[start:])); err != nil {
			return nil, err
		}
		remaining -= step
	}
	return out, nil
}

func writeCount(w io.Writer, n int) error {
	if err := binary.Write(w, byteOrder, uint64(n)); err != nil {
		return errors.Wrap(err, "failed to write element count")
	}
	return nil
}

func readCount(r io.Reader, what string) (uint64, error) {
	var n uint64
	if err := binary.Read(r, byteOrder, &n); err != nil {
		return 0, errors.Wrapf(errors.Mark(err, core.ErrMalformedMesh), "failed to read %s count", what)
	}
	if n > maxElements {
		return 0, errors.Wrapf(core.ErrMalformedMesh, "%s count %d exceeds limit", what, n)
	}
	return n, nil
}

func readCString(r io.ByteReader) (string, error) {
	var buf []byte
	for {
		b, err := r.ReadByte()
		if err != nil {
			return "", errors.Wrap(errors.Mark(err, core.ErrMalformedMesh), "unterminated string")
		}
		if b == 0 {
			return string(buf), nil
		}
		buf = append(buf, b)
	}
}
