package assets

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spaghettifunk/anima/engine/containers"
	"github.com/spaghettifunk/anima/engine/core"
)

type AssetType int

const (
	AssetTypeNone AssetType = iota
	AssetTypeRenderConfig
	AssetTypeImage
)

func (t AssetType) String() string {
	switch t {
	case AssetTypeRenderConfig:
		return "render config"
	case AssetTypeImage:
		return "image"
	default:
		return "none"
	}
}

type AssetInfo struct {
	Path     string
	Type     AssetType
	Modified time.Time
}

// Change is a file event the main loop has not handled yet.
type Change struct {
	Path    string
	Type    AssetType
	Removed bool
}

// pending changes kept between two polls
const changeQueueSize = 64

// AssetManager indexes the files of an asset directory and records changes to
// them. Watching happens on its own goroutine, changes are handed to the main
// loop through Poll so that reloads run on the render thread.
type AssetManager struct {
	assets  map[string]AssetInfo
	loaders map[AssetType]Loader

	mutex   sync.RWMutex
	changes *containers.RingQueue[Change]

	done     chan struct{}
	stopped  chan struct{}
	fsnotify *fsnotify.Watcher
	started  bool
	isClosed bool
}

func NewAssetManager() (*AssetManager, error) {
	fsWatch, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	return &AssetManager{
		assets:   make(map[string]AssetInfo),
		loaders:  make(map[AssetType]Loader),
		changes:  containers.NewRingQueue[Change](changeQueueSize),
		fsnotify: fsWatch,
		done:     make(chan struct{}),
		stopped:  make(chan struct{}),
	}, nil
}

func (am *AssetManager) Initialize(assetsDir string) error {
	if err := am.addRecursive(assetsDir); err != nil {
		return err
	}

	// Register loaders
	am.registerLoader(AssetTypeRenderConfig, &RenderConfigLoader{})
	am.registerLoader(AssetTypeImage, &ImageLoader{})

	am.started = true
	go am.start()
	return nil
}

// AddRecursive starts watching the named directory and all sub-directories.
func (am *AssetManager) addRecursive(name string) error {
	if am.isClosed {
		return errors.New("asset watcher already closed")
	}
	return am.watchRecursive(name, false)
}

// Register loaders for each asset type
func (am *AssetManager) registerLoader(assetType AssetType, loader Loader) {
	am.loaders[assetType] = loader
}

// Asset returns the index entry of path.
func (am *AssetManager) Asset(path string) (AssetInfo, bool) {
	am.mutex.RLock()
	defer am.mutex.RUnlock()
	info, ok := am.assets[filepath.Clean(path)]
	return info, ok
}

// LoadAsset loads an indexed asset with the loader of its type.
func (am *AssetManager) LoadAsset(path string) (any, error) {
	asset, exists := am.Asset(path)
	if !exists {
		return nil, fmt.Errorf("%w: asset not found: %s", core.ErrResolution, path)
	}
	loader, loaderExists := am.loaders[asset.Type]
	if !loaderExists {
		return nil, fmt.Errorf("no loader registered for asset type: %s", asset.Type)
	}
	return loader.Load(asset.Path)
}

// Poll drains the changes recorded since the previous call.
func (am *AssetManager) Poll() []Change {
	am.mutex.Lock()
	defer am.mutex.Unlock()

	var changes []Change
	for !am.changes.IsEmpty() {
		c, err := am.changes.Dequeue()
		if err != nil {
			break
		}
		changes = append(changes, c)
	}
	return changes
}

func (am *AssetManager) Shutdown() error {
	if am.isClosed {
		return nil
	}
	am.isClosed = true
	if !am.started {
		return am.fsnotify.Close()
	}
	close(am.done)
	<-am.stopped
	return nil
}

func (am *AssetManager) start() {
	defer close(am.stopped)
	for {
		select {

		case e, ok := <-am.fsnotify.Events:
			if !ok {
				return
			}
			s, err := os.Stat(e.Name)
			if err == nil && s != nil && s.IsDir() {
				if e.Op&fsnotify.Create != 0 {
					if err := am.watchRecursive(e.Name, false); err != nil {
						core.LogWarn("asset watcher: %s", err)
					}
				}
				continue
			}
			// Handle create or modify events
			if e.Op&(fsnotify.Create|fsnotify.Write) != 0 {
				if t := am.handleFileEvent(e.Name); t != AssetTypeNone {
					am.recordChange(Change{Path: filepath.Clean(e.Name), Type: t})
				}
			}
			// editors often replace files, so a rename counts as a removal
			if e.Op&(fsnotify.Remove|fsnotify.Rename) != 0 {
				if t := am.removeAsset(e.Name); t != AssetTypeNone {
					am.recordChange(Change{Path: filepath.Clean(e.Name), Type: t, Removed: true})
				}
			}

		case err, ok := <-am.fsnotify.Errors:
			if !ok {
				return
			}
			core.LogError("asset watcher: %s", err)

		case <-am.done:
			am.fsnotify.Close()
			return
		}
	}
}

func (am *AssetManager) recordChange(c Change) {
	am.mutex.Lock()
	defer am.mutex.Unlock()

	if am.changes.IsFull() {
		core.LogWarn("asset watcher: change queue is full, dropping change of '%s'", c.Path)
		return
	}
	if err := am.changes.Enqueue(c); err != nil {
		core.LogWarn("asset watcher: %s", err)
	}
}

// watchRecursive adds all directories under the given one to the watch list.
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
func (am *AssetManager) handleFileEvent(path string) AssetType {
	assetType := determineAssetType(path)
	if assetType == AssetTypeNone {
		return assetType
	}
	path = filepath.Clean(path)

	am.mutex.Lock()
	defer am.mutex.Unlock()
	am.assets[path] = AssetInfo{
		Path:     path,
		Type:     assetType,
		Modified: time.Now(),
	}
	return assetType
}

// Remove the asset from the index if it was deleted
func (am *AssetManager) removeAsset(path string) AssetType {
	path = filepath.Clean(path)

	am.mutex.Lock()
	defer am.mutex.Unlock()
	info, ok := am.assets[path]
	if !ok {
		return AssetTypeNone
	}
	delete(am.assets, path)
	return info.Type
}

func determineAssetType(path string) AssetType {
	switch filepath.Ext(path) {
	case ".json":
		return AssetTypeRenderConfig
	case ".png", ".bmp":
		return AssetTypeImage
	default:
		return AssetTypeNone
	}
}
