package registry

import (
	"fmt"

	"github.com/orange-lo/iotsoftbox-go/value"
)

// StreamIDMode selects how SetStreamID composes the final stream identifier,
// ported from the three LOCC_setStreamId modes.
type StreamIDMode int

const (
	// StreamIDLiteral uses id unprefixed.
	StreamIDLiteral StreamIDMode = iota
	// StreamIDURN renders "urn:lo:nsid:<namespace>:<device>!<id>".
	StreamIDURN
	// StreamIDNamespaced renders "<namespace>:<device>!<id>".
	StreamIDNamespaced
)

// maxStreamIDLen bounds the composed identifier, matching the original's
// fixed on-stack buffer; composition truncates rather than failing.
const maxStreamIDLen = 128

// GeoFix is an optional geographic position attached to a data stream.
type GeoFix struct {
	Lat, Lon, Alt float64
	Time          string // ISO-8601; empty means unset
}

// DataStream is a named collection of sample values plus the stream
// metadata carried on dev/data.
type DataStream struct {
	Name       string
	Collection *value.Collection
	StreamID   string
	Model      string
	Tags       string
	Geo        *GeoFix
	Dirty      bool
}

// MarkDirty flags the stream for publication on the next controller
// iteration.
func (d *DataStream) MarkDirty() { d.Dirty = true }

// SetStreamID composes and stores the stream identifier for mode, bounding
// the result to maxStreamIDLen bytes.
func (d *DataStream) SetStreamID(mode StreamIDMode, namespace, device, id string) {
	var composed string
	switch mode {
	case StreamIDURN:
		composed = fmt.Sprintf("urn:lo:nsid:%s:%s!%s", namespace, device, id)
	case StreamIDNamespaced:
		composed = fmt.Sprintf("%s:%s!%s", namespace, device, id)
	default:
		composed = id
	}
	if len(composed) > maxStreamIDLen {
		composed = composed[:maxStreamIDLen]
	}
	d.StreamID = composed
}

// DataTable is the fixed-capacity registry of attached data streams.
type DataTable struct {
	slots slots[DataStream]
}

// NewDataTable returns a table with room for capacity data streams.
func NewDataTable(capacity int) *DataTable {
	return &DataTable{slots: newSlots[DataStream](capacity)}
}

// Attach registers a new data stream, returning its handle.
func (t *DataTable) Attach(name string, c *value.Collection) (int, error) {
	return t.slots.attach(&DataStream{Name: name, Collection: c})
}

// Remove detaches the data stream at handle.
func (t *DataTable) Remove(handle int) error { return t.slots.remove(handle) }

// Get returns the data stream at handle.
func (t *DataTable) Get(handle int) (*DataStream, error) { return t.slots.get(handle) }

// Each walks attached data streams in handle order.
func (t *DataTable) Each(fn func(handle int, d *DataStream)) { t.slots.each(fn) }
