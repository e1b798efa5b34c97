package assets

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/fsnotify/fsnotify"

	"github.com/spaghettifunk/leap/engine/core"
	"github.com/spaghettifunk/leap/engine/renderer/metadata"
)

func writeFile(t *testing.T, path string, data []byte) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatal(err)
	}
}

func newManager(t *testing.T, root string) *AssetManager {
	t.Helper()
	am, err := NewAssetManager()
	if err != nil {
		t.Fatalf("NewAssetManager: %v", err)
	}
	if err := am.Initialize(root); err != nil {
		t.Fatalf("Initialize: %v", err)
	}
	t.Cleanup(func() { am.Shutdown() })
	return am
}

func TestDetermineAssetType(t *testing.T) {
	tests := map[string]metadata.ResourceType{
		"shaders/vert.spv":  metadata.ResourceTypeShader,
		"textures/a.png":    metadata.ResourceTypeTexture,
		"textures/a.jpeg":   metadata.ResourceTypeTexture,
		"textures/a.webp":   metadata.ResourceTypeTexture,
		"models/viking.bin": metadata.ResourceTypeMesh,
		"models/viking.obj": metadata.ResourceTypeModelSource,
		"README.md":         metadata.ResourceTypeNone,
	}
	for path, want := range tests {
		if got := determineAssetType(path); got != want {
			t.Errorf("determineAssetType(%q) = %s, want %s", path, got, want)
		}
	}
}

func TestResolve(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "shaders", "vert.spv"), []byte{0x03, 0x02, 0x23, 0x07})
	writeFile(t, filepath.Join(root, "textures", "plain.png"), []byte{})
	writeFile(t, filepath.Join(root, "notes.txt"), []byte("x"))

	am := newManager(t, root)

	path, err := am.Resolve(metadata.ResourceTypeShader, "vert.spv")
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if path != filepath.Join(root, "shaders", "vert.spv") {
		t.Errorf("resolved to %s", path)
	}
	if _, err := am.Resolve(metadata.ResourceTypeTexture, "plain.png"); err != nil {
		t.Errorf("Resolve texture: %v", err)
	}
	if _, err := am.Resolve(metadata.ResourceTypeTexture, "brick.png"); !errors.Is(err, core.ErrAssetNotFound) {
		t.Errorf("expected ErrAssetNotFound, got %v", err)
	}
	// a shader name does not resolve as a texture
	if _, err := am.Resolve(metadata.ResourceTypeTexture, "vert.spv"); !errors.Is(err, core.ErrAssetNotFound) {
		t.Errorf("expected ErrAssetNotFound, got %v", err)
	}
}

func TestLoadShader(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "vert.spv"), []byte{0x03, 0x02, 0x23, 0x07})
	am := newManager(t, root)

	res, err := am.Load(metadata.ResourceTypeShader, "vert.spv", nil)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	code := res.Data.(*metadata.ShaderResourceData).Code
	if len(code) != 1 || code[0] != 0x07230203 {
		t.Fatalf("unexpected code %#x", code)
	}
}

func TestWatcherReportsNewFiles(t *testing.T) {
	root := t.TempDir()
	am := newManager(t, root)

	path := filepath.Join(root, "frag.spv")
	writeFile(t, path, []byte{0, 0, 0, 0})

	deadline := time.After(5 * time.Second)
	for {
		select {
		case e := <-am.Events():
			if e.Path != path {
				continue
			}
			if e.Type != metadata.ResourceTypeShader {
				t.Fatalf("event type %s", e.Type)
			}
			if _, err := am.Resolve(metadata.ResourceTypeShader, "frag.spv"); err != nil {
				t.Fatalf("Resolve after event: %v", err)
			}
			return
		case <-deadline:
			t.Fatal("no event for new shader")
		}
	}
}

func TestShutdownIsIdempotent(t *testing.T) {
	am := newManager(t, t.TempDir())
	if err := am.Shutdown(); err != nil {
		t.Fatal(err)
	}
	if err := am.Shutdown(); err != nil {
		t.Fatal(err)
	}
	if _, ok := <-am.Events(); ok {
		t.Fatal("events channel still open")
	}
}

func TestShutdownWithoutInitialize(t *testing.T) {
	am, err := NewAssetManager()
	if err != nil {
		t.Fatalf("NewAssetManager() error = %v", err)
	}
	if err := am.Shutdown(); err != nil {
		t.Fatalf("Shutdown() error = %v", err)
	}
	if _, ok := <-am.Events(); ok {
		t.Fatal("events channel still open")
	}
	if err := am.fsnotify.Add(t.TempDir()); !errors.Is(err, fsnotify.ErrClosed) {
		t.Errorf("watcher Add() error = %v, want ErrClosed", err)
	}
	if err := am.Initialize(t.TempDir()); err == nil {
		t.Error("Initialize() after Shutdown succeeded")
	}
}
