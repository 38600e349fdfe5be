package systems

import (
	"errors"
	"fmt"

	"github.com/spaghettifunk/anima/engine/core"
	"github.com/spaghettifunk/anima/engine/graphics"
)

type AttachmentSystemConfig struct {
	MaxAttachmentCount uint32
}

// AttachmentSystem owns every attachment and is the registry layers resolve
// their attachment names against.
type AttachmentSystem struct {
	Config *AttachmentSystemConfig

	attachments map[string]*graphics.Attachment
	// registration order, attachments are generated in this order
	order []string
}

func NewAttachmentSystem(config *AttachmentSystemConfig) (*AttachmentSystem, error) {
	if config.MaxAttachmentCount == 0 {
		err := fmt.Errorf("func NewAttachmentSystem - config.MaxAttachmentCount must be > 0")
		core.LogError(err.Error())
		return nil, err
	}
	return &AttachmentSystem{
		Config:      config,
		attachments: make(map[string]*graphics.Attachment),
	}, nil
}

func (as *AttachmentSystem) Register(a *graphics.Attachment) error {
	key := a.Key()
	if key == "" {
		return fmt.Errorf("%w: attachment must be configured before registering", core.ErrPrecondition)
	}
	if _, ok := as.attachments[key]; ok {
		return fmt.Errorf("%w: attachment '%s' is already registered", core.ErrConfig, key)
	}
	if uint32(len(as.attachments)) >= as.Config.MaxAttachmentCount {
		return fmt.Errorf("%w: attachment system cannot hold more than %d attachments", core.ErrConfig, as.Config.MaxAttachmentCount)
	}
	as.attachments[key] = a
	as.order = append(as.order, key)
	return nil
}

// Unregister destroys the attachment and removes it. Layers still holding it
// skip it until they resolve again.
func (as *AttachmentSystem) Unregister(key string) bool {
	a, ok := as.attachments[key]
	if !ok {
		return false
	}
	a.Destroy()
	delete(as.attachments, key)
	for i, k := range as.order {
		if k == key {
			as.order = append(as.order[:i], as.order[i+1:]...)
			break
		}
	}
	return true
}

func (as *AttachmentSystem) Lookup(name string) (*graphics.Attachment, bool) {
	a, ok := as.attachments[name]
	return a, ok
}

func (as *AttachmentSystem) All() []*graphics.Attachment {
	all := make([]*graphics.Attachment, 0, len(as.order))
	for _, key := range as.order {
		all = append(all, as.attachments[key])
	}
	return all
}

func (as *AttachmentSystem) Count() int {
	return len(as.order)
}

// Start generates every attachment. Failures are collected and the remaining
// attachments are still generated.
func (as *AttachmentSystem) Start(props graphics.SystemProperties) error {
	var errs []error
	for _, a := range as.All() {
		if err := a.SystemStart(props); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (as *AttachmentSystem) Reset(props graphics.SystemProperties) error {
	var errs []error
	for _, a := range as.All() {
		if err := a.SystemReset(props); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (as *AttachmentSystem) Shutdown() error {
	for _, a := range as.All() {
		a.Destroy()
	}
	as.attachments = make(map[string]*graphics.Attachment)
	as.order = nil
	return nil
}
