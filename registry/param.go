package registry

import "github.com/orange-lo/iotsoftbox-go/value"

// Validator is invoked once per parameter in an inbound update, with the
// tentative new value; it returns true to accept the update (the codec then
// writes it through the parameter's Set) or false to reject it.
type Validator func(name string, tentative value.Value) bool

// PendingUpdate records an in-flight parameter-update reply: the
// correlation id from the inbound directive and the names actually
// accepted, so the next controller iteration can publish the response.
type PendingUpdate struct {
	CID      int
	Accepted []string
	Active   bool
}

// ParamSet is the device's single configuration parameter collection.
type ParamSet struct {
	Collection *value.Collection
	Validator  Validator
	Dirty      bool
	Pending    PendingUpdate
}

// MarkDirty flags the parameter set for a full dump on the next iteration
// (used for the first-connect publish).
func (p *ParamSet) MarkDirty() { p.Dirty = true }

// ApplyUpdate runs the validator over each {name: tentative} pair, writing
// accepted values through the parameter's Set and recording them in
// Pending. It returns the list of names accepted.
func (p *ParamSet) ApplyUpdate(cid int, updates map[string]value.Value) []string {
	var accepted []string
	for name, tentative := range updates {
		nv, ok := p.Collection.Lookup(name)
		if !ok || nv.Tag != tentative.Tag || nv.Set == nil {
			continue
		}
		if p.Validator != nil && !p.Validator(name, tentative) {
			continue
		}
		if err := nv.Set([]value.Value{tentative}); err != nil {
			continue
		}
		accepted = append(accepted, name)
	}
	p.Pending = PendingUpdate{CID: cid, Accepted: accepted, Active: true}
	return accepted
}
