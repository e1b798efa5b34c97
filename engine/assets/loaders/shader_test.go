package loaders

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/cockroachdb/errors"

	"github.com/spaghettifunk/leap/engine/core"
)

func TestBytesToBytecode(t *testing.T) {
	got := bytesToBytecode([]byte{0x03, 0x02, 0x23, 0x07, 0x00, 0x00, 0x01, 0x00, 0xff})
	want := []uint32{0x07230203, 0x00010000}
	if len(got) != len(want) {
		t.Fatalf("got %d words, want %d", len(got), len(want))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("word %d: got %#08x, want %#08x", i, got[i], want[i])
		}
	}
}

func TestLoadSPIRV(t *testing.T) {
	dir := t.TempDir()
	good := filepath.Join(dir, "vert.spv")
	if err := os.WriteFile(good, []byte{0x03, 0x02, 0x23, 0x07}, 0o644); err != nil {
		t.Fatal(err)
	}
	code, err := LoadSPIRV(good)
	if err != nil {
		t.Fatalf("LoadSPIRV: %v", err)
	}
	if len(code) != 1 || code[0] != 0x07230203 {
		t.Fatalf("unexpected code %#x", code)
	}

	odd := filepath.Join(dir, "odd.spv")
	if err := os.WriteFile(odd, []byte{1, 2, 3}, 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := LoadSPIRV(odd); err == nil {
		t.Fatal("expected error for truncated module")
	}

	if _, err := LoadSPIRV(filepath.Join(dir, "missing.spv")); !errors.Is(err, core.ErrAssetNotFound) {
		t.Fatalf("expected ErrAssetNotFound, got %v", err)
	}
}

func TestShaderLoader(t *testing.T) {
	path := filepath.Join(t.TempDir(), "frag.spv")
	if err := os.WriteFile(path, make([]byte, 16), 0o644); err != nil {
		t.Fatal(err)
	}
	res, err := (&ShaderLoader{}).Load(path, nil)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if res.Name != "frag.spv" || res.DataSize != 16 {
		t.Fatalf("unexpected resource %+v", res)
	}
}
