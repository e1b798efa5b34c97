package assets

import (
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/fsnotify/fsnotify"

	"github.com/spaghettifunk/leap/engine/assets/loaders"
	"github.com/spaghettifunk/leap/engine/core"
	"github.com/spaghettifunk/leap/engine/renderer/metadata"
)

const eventBufferSize = 64

type AssetInfo struct {
	Path       string
	Type       metadata.ResourceType
	LastLoaded time.Time
}

// AssetEvent reports a change of an indexed file.
type AssetEvent struct {
	Path    string
	Type    metadata.ResourceType
	Removed bool
}

// AssetManager indexes every known asset below a root directory, keyed by
// type and file name, and keeps the index current with fsnotify.
type AssetManager struct {
	root    string
	assets  map[metadata.ResourceType]map[string]AssetInfo
	loaders map[metadata.ResourceType]Loader

	mutex sync.RWMutex

	done     chan struct{}
	wg       sync.WaitGroup
	fsnotify *fsnotify.Watcher
	watching bool
	isClosed bool
	events   chan AssetEvent
}

func NewAssetManager() (*AssetManager, error) {
	fsWatch, err := fsnotify.NewWatcher()
	if err != nil {
		err = errors.Wrap(err, "failed to create file watcher")
		core.LogError(err.Error())
		return nil, err
	}

	am := &AssetManager{
		assets:   make(map[metadata.ResourceType]map[string]AssetInfo),
		loaders:  make(map[metadata.ResourceType]Loader),
		fsnotify: fsWatch,
		events:   make(chan AssetEvent, eventBufferSize),
		done:     make(chan struct{}),
	}
	am.registerLoader(metadata.ResourceTypeShader, &loaders.ShaderLoader{})
	am.registerLoader(metadata.ResourceTypeTexture, &loaders.TextureLoader{})
	am.registerLoader(metadata.ResourceTypeMesh, &loaders.MeshLoader{})
	return am, nil
}

// Initialize indexes assetsDir recursively and starts watching it.
func (am *AssetManager) Initialize(assetsDir string) error {
	root, err := filepath.Abs(assetsDir)
	if err != nil {
		return errors.Wrapf(err, "invalid assets directory %s", assetsDir)
	}
	am.root = root

	if err := am.watchRecursive(root, false); err != nil {
		err = errors.Wrapf(err, "failed to index assets in %s", root)
		core.LogError(err.Error())
		return err
	}

	am.mutex.Lock()
	if am.isClosed {
		am.mutex.Unlock()
		return errors.New("asset manager already shut down")
	}
	am.watching = true
	am.wg.Add(1)
	am.mutex.Unlock()
	go am.start()

	core.LogInfo("indexed assets in %s", root)
	return nil
}

// Shutdown stops the watcher and closes the event channel.
func (am *AssetManager) Shutdown() error {
	am.mutex.Lock()
	if am.isClosed {
		am.mutex.Unlock()
		return nil
	}
	am.isClosed = true
	watching := am.watching
	am.mutex.Unlock()

	if !watching {
		// No watcher goroutine owns the channels.
		close(am.events)
		if err := am.fsnotify.Close(); err != nil {
			return errors.Wrap(err, "failed to close file watcher")
		}
		return nil
	}
	close(am.done)
	am.wg.Wait()
	return nil
}

// Events delivers changes of indexed files. Events are dropped when nobody
// drains the channel.
func (am *AssetManager) Events() <-chan AssetEvent {
	return am.events
}

// Register loaders for each asset type
func (am *AssetManager) registerLoader(assetType metadata.ResourceType, loader Loader) {
	am.loaders[assetType] = loader
}

// Resolve returns the path of the asset with the given file name.
func (am *AssetManager) Resolve(assetType metadata.ResourceType, name string) (string, error) {
	am.mutex.RLock()
	defer am.mutex.RUnlock()

	if info, ok := am.assets[assetType][name]; ok {
		return info.Path, nil
	}
	return "", errors.Mark(errors.Newf("%s asset not found: %s", assetType, name), core.ErrAssetNotFound)
}

// Load resolves name and reads it with the loader registered for assetType.
func (am *AssetManager) Load(assetType metadata.ResourceType, name string, params interface{}) (*metadata.Resource, error) {
	path, err := am.Resolve(assetType, name)
	if err != nil {
		core.LogError(err.Error())
		return nil, err
	}

	loader, ok := am.loaders[assetType]
	if !ok {
		err := errors.Newf("no loader registered for asset type %s", assetType)
		core.LogError(err.Error())
		return nil, err
	}

	res, err := loader.Load(path, params)
	if err != nil {
		return nil, err
	}

	am.mutex.Lock()
	if info, ok := am.assets[assetType][name]; ok {
		info.LastLoaded = time.Now()
		am.assets[assetType][name] = info
	}
	am.mutex.Unlock()
	return res, nil
}

func (am *AssetManager) Unload(res *metadata.Resource) error {
	if res == nil {
		return nil
	}
	loader, ok := am.loaders[res.Type]
	if !ok {
		return nil
	}
	return loader.Unload(res)
}

func (am *AssetManager) start() {
	defer am.wg.Done()
	for {
		select {
		case e, ok := <-am.fsnotify.Events:
			if !ok {
				return
			}
			s, err := os.Stat(e.Name)
			if err == nil && s.IsDir() {
				if e.Op&fsnotify.Create != 0 {
					if err := am.watchRecursive(e.Name, false); err != nil {
						core.LogWarn("failed to watch %s: %s", e.Name, err)
					}
				}
				continue
			}
			if e.Op&(fsnotify.Create|fsnotify.Write) != 0 {
				if t := am.handleFileEvent(e.Name); t != metadata.ResourceTypeNone {
					am.notify(AssetEvent{Path: e.Name, Type: t})
				}
			}
			// Can't stat a deleted path, so treat it as a possible directory too.
			if e.Op&(fsnotify.Remove|fsnotify.Rename) != 0 {
				if t := am.removeAsset(e.Name); t != metadata.ResourceTypeNone {
					am.notify(AssetEvent{Path: e.Name, Type: t, Removed: true})
				}
				_ = am.fsnotify.Remove(e.Name)
			}

		case err, ok := <-am.fsnotify.Errors:
			if !ok {
				return
			}
			core.LogError("asset watcher: %s", err)

		case <-am.done:
			am.fsnotify.Close()
			close(am.events)
			return
		}
	}
}

func (am *AssetManager) notify(e AssetEvent) {
	select {
	case am.events <- e:
	default:
		core.LogWarn("asset event for %s dropped", e.Path)
	}
}

// watchRecursive adds (or removes) every directory under path to the watch
// list and indexes the files it finds.
func (am *AssetManager) watchRecursive(path string, unWatch bool) error {
	return filepath.Walk(path, func(walkPath string, fi os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if fi.IsDir() {
			if unWatch {
				return am.fsnotify.Remove(walkPath)
			}
			return am.fsnotify.Add(walkPath)
		}
		am.handleFileEvent(walkPath)
		return nil
	})
}

// Handle the creation or modification of a file
func (am *AssetManager) handleFileEvent(path string) metadata.ResourceType {
	assetType := determineAssetType(path)
	if assetType == metadata.ResourceTypeNone {
		return assetType
	}

	am.mutex.Lock()
	defer am.mutex.Unlock()

	byName, ok := am.assets[assetType]
	if !ok {
		byName = make(map[string]AssetInfo)
		am.assets[assetType] = byName
	}
	byName[filepath.Base(path)] = AssetInfo{Path: path, Type: assetType}
	return assetType
}

// Remove the asset from the index if it was deleted
func (am *AssetManager) removeAsset(path string) metadata.ResourceType {
	assetType := determineAssetType(path)
	if assetType == metadata.ResourceTypeNone {
		return assetType
	}

	am.mutex.Lock()
	defer am.mutex.Unlock()

	name := filepath.Base(path)
	if info, ok := am.assets[assetType][name]; ok && info.Path == path {
		delete(am.assets[assetType], name)
		return assetType
	}
	return metadata.ResourceTypeNone
}

func determineAssetType(path string) metadata.ResourceType {
	switch filepath.Ext(path) {
	case ".spv":
		return metadata.ResourceTypeShader
	case ".png", ".jpg", ".jpeg", ".bmp", ".tif", ".tiff", ".webp":
		return metadata.ResourceTypeTexture
	case ".bin":
		return metadata.ResourceTypeMesh
	case ".obj", ".mtl":
		return metadata.ResourceTypeModelSource
	default:
		return metadata.ResourceTypeNone
	}
}
