package systems

import (
	"errors"
	"fmt"

	"github.com/spaghettifunk/anima/engine/core"
	"github.com/spaghettifunk/anima/engine/graphics"
)

type LayerSystemConfig struct {
	MaxLayerCount uint32
}

type LayerSystem struct {
	Config *LayerSystemConfig

	layers map[string]*graphics.Layer
	order  []string
}

func NewLayerSystem(config *LayerSystemConfig) (*LayerSystem, error) {
	if config.MaxLayerCount == 0 {
		err := fmt.Errorf("func NewLayerSystem - config.MaxLayerCount must be > 0")
		core.LogError(err.Error())
		return nil, err
	}
	return &LayerSystem{
		Config: config,
		layers: make(map[string]*graphics.Layer),
	}, nil
}

func (ls *LayerSystem) Register(l *graphics.Layer) error {
	key := l.Key()
	if key == "" {
		return fmt.Errorf("%w: render layer must be configured before registering", core.ErrPrecondition)
	}
	if _, ok := ls.layers[key]; ok {
		return fmt.Errorf("%w: render layer '%s' is already registered", core.ErrConfig, key)
	}
	if uint32(len(ls.layers)) >= ls.Config.MaxLayerCount {
		return fmt.Errorf("%w: layer system cannot hold more than %d layers", core.ErrConfig, ls.Config.MaxLayerCount)
	}
	ls.layers[key] = l
	ls.order = append(ls.order, key)
	return nil
}

// Unregister destroys the layer framebuffer and removes the layer.
func (ls *LayerSystem) Unregister(key string) bool {
	l, ok := ls.layers[key]
	if !ok {
		return false
	}
	l.Destroy()
	delete(ls.layers, key)
	for i, k := range ls.order {
		if k == key {
			ls.order = append(ls.order[:i], ls.order[i+1:]...)
			break
		}
	}
	return true
}

func (ls *LayerSystem) Get(name string) (*graphics.Layer, bool) {
	l, ok := ls.layers[name]
	return l, ok
}

func (ls *LayerSystem) All() []*graphics.Layer {
	all := make([]*graphics.Layer, 0, len(ls.order))
	for _, key := range ls.order {
		all = append(all, ls.layers[key])
	}
	return all
}

func (ls *LayerSystem) Count() int {
	return len(ls.order)
}

func (ls *LayerSystem) Start(props graphics.SystemProperties) error {
	var errs []error
	for _, l := range ls.All() {
		if err := l.SystemStart(props); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (ls *LayerSystem) Reset(props graphics.SystemProperties) error {
	var errs []error
	for _, l := range ls.All() {
		if err := l.SystemReset(props); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (ls *LayerSystem) Shutdown() error {
	for _, l := range ls.All() {
		l.Destroy()
	}
	ls.layers = make(map[string]*graphics.Layer)
	ls.order = nil
	return nil
}
