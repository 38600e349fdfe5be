package core

import "fmt"

// IdentifierPool hands out small integer ids and recycles released ones.
// Id 0 is never returned so it can keep meaning "no object", the same way
// graphics APIs reserve name 0.
type IdentifierPool struct {
	owners []interface{}
}

func NewIdentifierPool(capacity int) *IdentifierPool {
	return &IdentifierPool{
		// slot 0 is permanently taken
		owners: append(make([]interface{}, 0, capacity+1), struct{}{}),
	}
}

func (p *IdentifierPool) Acquire(owner interface{}) uint32 {
	if owner == nil {
		owner = struct{}{}
	}
	length := uint32(len(p.owners))
	for i := uint32(1); i < length; i++ {
		// Existing free spot. Take it.
		if p.owners[i] == nil {
			p.owners[i] = owner
			return i
		}
	}

	// If here, no existing free slots. Need a new id, so push one.
	p.owners = append(p.owners, owner)
	return uint32(len(p.owners)) - 1
}

func (p *IdentifierPool) Release(id uint32) error {
	if id == 0 || id >= uint32(len(p.owners)) {
		return fmt.Errorf("identifier release: id '%d' out of range (max=%d). Nothing was done", id, len(p.owners)-1)
	}
	if p.owners[id] == nil {
		return fmt.Errorf("identifier release: id '%d' is not in use", id)
	}
	// Just zero out the entry, making it available for use.
	p.owners[id] = nil
	return nil
}

// InUse returns how many ids are currently handed out.
func (p *IdentifierPool) InUse() int {
	n := 0
	for i := 1; i < len(p.owners); i++ {
		if p.owners[i] != nil {
			n++
		}
	}
	return n
}
