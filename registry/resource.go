package registry

// ResourceNotify reports the terminal outcome of a resource update: 1 for
// success, 2 for an MD5 mismatch or an exhausted retry budget. It is called
// once per update attempt,
// after the retry budget is exhausted or the transfer completes.
type ResourceNotify func(result int, newVersion string)

// ResourceDataChunk asks the application for up to len(buf) bytes of resource
// payload starting at offset, returning the number of bytes written. A
// return of 0 means "not ready yet, retry"; a negative return means a
// transport error, also retry-eligible up to the engine's retry cap.
type ResourceDataChunk func(offset int64, buf []byte) int

// ResourceDescriptor is one registered updatable resource.
type ResourceDescriptor struct {
	Name       string
	Version    string
	Notify     ResourceNotify
	GetChunk   ResourceDataChunk
	EnableFlag EnableFlag
}

// ResourceTable is the fixed-capacity registry of attached resources.
type ResourceTable struct {
	slots slots[ResourceDescriptor]
}

// NewResourceTable returns a table with room for capacity resources.
func NewResourceTable(capacity int) *ResourceTable {
	return &ResourceTable{slots: newSlots[ResourceDescriptor](capacity)}
}

// Attach registers a new resource, returning its handle.
func (t *ResourceTable) Attach(name, version string, notify ResourceNotify, getChunk ResourceDataChunk) (int, error) {
	return t.slots.attach(&ResourceDescriptor{
		Name:     name,
		Version:  version,
		Notify:   notify,
		GetChunk: getChunk,
	})
}

// Remove detaches the resource at handle.
func (t *ResourceTable) Remove(handle int) error { return t.slots.remove(handle) }

// Get returns the resource descriptor at handle.
func (t *ResourceTable) Get(handle int) (*ResourceDescriptor, error) { return t.slots.get(handle) }

// Each walks attached resources in handle order.
func (t *ResourceTable) Each(fn func(handle int, d *ResourceDescriptor)) { t.slots.each(fn) }

// Find looks up a resource descriptor by name.
func (t *ResourceTable) Find(name string) (*ResourceDescriptor, bool) {
	_, d, ok := t.FindHandle(name)
	return d, ok
}

// FindHandle looks up a resource descriptor by name, also returning its
// handle, needed by the update engine's in-progress record.
func (t *ResourceTable) FindHandle(name string) (int, *ResourceDescriptor, bool) {
	var found *ResourceDescriptor
	handle := -1
	t.slots.each(func(h int, d *ResourceDescriptor) {
		if found == nil && d.Name == name {
			found, handle = d, h
		}
	})
	return handle, found, found != nil
}
