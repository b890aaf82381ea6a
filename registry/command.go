package registry

import "github.com/orange-lo/iotsoftbox-go/value"

// CommandCallback handles an inbound command directive. A positive return
// value is published inline as the command result (safe because the codec
// calls this from the session thread's yield); zero or negative means the
// application will call CommandResponse later, out of band.
type CommandCallback func(cid int, args map[string]value.Value) int

// CommandDescriptor is one registered command.
type CommandDescriptor struct {
	Name       string
	Callback   CommandCallback
	EnableFlag EnableFlag
}

// CommandTable is the fixed-capacity registry of attached commands.
type CommandTable struct {
	slots slots[CommandDescriptor]
}

// NewCommandTable returns a table with room for capacity commands.
func NewCommandTable(capacity int) *CommandTable {
	return &CommandTable{slots: newSlots[CommandDescriptor](capacity)}
}

// Attach registers a new command, returning its handle.
func (t *CommandTable) Attach(name string, cb CommandCallback) (int, error) {
	return t.slots.attach(&CommandDescriptor{Name: name, Callback: cb})
}

// Remove detaches the command at handle.
func (t *CommandTable) Remove(handle int) error { return t.slots.remove(handle) }

// Get returns the command descriptor at handle.
func (t *CommandTable) Get(handle int) (*CommandDescriptor, error) { return t.slots.get(handle) }

// Each walks attached commands in handle order.
func (t *CommandTable) Each(fn func(handle int, d *CommandDescriptor)) { t.slots.each(fn) }

// Find looks up a command descriptor by name.
func (t *CommandTable) Find(name string) (*CommandDescriptor, bool) {
	var found *CommandDescriptor
	t.slots.each(func(_ int, d *CommandDescriptor) {
		if found == nil && d.Name == name {
			found = d
		}
	})
	return found, found != nil
}
