// Command meshc converts Wavefront OBJ models into the binary mesh files the
// renderer loads.
package main

import (
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"sync"

	"github.com/cockroachdb/errors"

	"github.com/spaghettifunk/leap/engine/assets/importer"
	"github.com/spaghettifunk/leap/engine/assets/meshfile"
	"github.com/spaghettifunk/leap/engine/core"
	"github.com/spaghettifunk/leap/engine/jobs"
)

const meshExtension = ".bin"

func main() {
	if err := run(os.Args[1:], os.Stdout); err != nil {
		core.LogError(err.Error())
		os.Exit(1)
	}
}

func run(args []string, stdout io.Writer) error {
	fs := flag.NewFlagSet("meshc", flag.ContinueOnError)
	out := fs.String("o", "", "output file, single input only (default: input with "+meshExtension+" extension)")
	workers := fs.Int("j", runtime.NumCPU(), "number of models converted in parallel")
	logLevel := fs.String("log-level", "info", "log level")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() == 0 {
		return errors.New("usage: meshc [-o output] [-j workers] model.obj...")
	}
	if *out != "" && fs.NArg() > 1 {
		return errors.New("-o needs exactly one input")
	}
	if err := core.SetLogLevel(*logLevel); err != nil {
		return err
	}

	js, err := jobs.NewJobSystem(*workers, fs.NArg())
	if err != nil {
		return err
	}

	var mu sync.Mutex
	var result error
	for _, src := range fs.Args() {
		src := src
		dst := *out
		if dst == "" {
			dst = outputPath(src)
		}
		js.Submit(jobs.Task{
			Name: src,
			Run: func() error {
				summary, err := convert(src, dst)
				if err != nil {
					return err
				}
				mu.Lock()
				fmt.Fprintln(stdout, summary)
				mu.Unlock()
				return nil
			},
			OnFailure: func(err error) {
				mu.Lock()
				result = errors.CombineErrors(result, err)
				mu.Unlock()
			},
		})
	}
	if err := js.Shutdown(); err != nil {
		return err
	}
	return result
}

// convert writes src as a binary mesh file and checks it reads back intact.
func convert(src, dst string) (string, error) {
	written, err := importer.ConvertOBJ(src, dst)
	if err != nil {
		return "", err
	}
	if err := verify(dst, written); err != nil {
		return "", err
	}
	return fmt.Sprintf("%s -> %s: %d materials, %d meshes", src, dst, len(written.Materials), len(written.Meshes)), nil
}

func outputPath(src string) string {
	return strings.TrimSuffix(src, filepath.Ext(src)) + meshExtension
}

// verify reads dst back and compares it with what was written.
func verify(dst string, written *meshfile.File) error {
	read, err := meshfile.ReadFile(dst)
	if err != nil {
		return errors.Wrapf(err, "failed to read back %s", dst)
	}
	if len(read.Materials) != len(written.Materials) || len(read.Meshes) != len(written.Meshes) {
		return errors.Mark(errors.Newf("%s: read back %d materials/%d meshes, wrote %d/%d",
			dst, len(read.Materials), len(read.Meshes), len(written.Materials), len(written.Meshes)), core.ErrMalformedMesh)
	}
	for i := range written.Meshes {
		w, r := written.Meshes[i], read.Meshes[i]
		if len(w.Vertices) != len(r.Vertices) || len(w.Indices) != len(r.Indices) || w.MaterialIndex != r.MaterialIndex {
			return errors.Mark(errors.Newf("%s: mesh %d differs after read back", dst, i), core.ErrMalformedMesh)
		}
		core.LogDebug("mesh %d: %d vertices, %d indices, material %d", i, len(r.Vertices), len(r.Indices), r.MaterialIndex)
	}
	return nil
}
