// Package registry holds the device's attachment tables: the fixed-capacity
// tables of status sets, data streams, parameters, commands and resources
// that the application attaches at startup, plus the enable-flag discipline
// shared by the subscribable feature groups (config updates, commands,
// resources).
package registry

// Default table capacities, matching the original's compile-time limits.
// The application can override them with NewRegistry.
const (
	DefaultStatusCapacity   = 8
	DefaultDataCapacity     = 8
	DefaultCommandCapacity  = 16
	DefaultResourceCapacity = 4
)

// Capacities configures the fixed sizes of a Registry's attachment tables.
type Capacities struct {
	Status   int
	Data     int
	Command  int
	Resource int
}

// DefaultCapacities returns the original's compile-time limits.
func DefaultCapacities() Capacities {
	return Capacities{
		Status:   DefaultStatusCapacity,
		Data:     DefaultDataCapacity,
		Command:  DefaultCommandCapacity,
		Resource: DefaultResourceCapacity,
	}
}

// Registry aggregates every attachment table plus the single device-wide
// parameter set. It owns no network state; the session controller reads and
// writes it directly.
type Registry struct {
	Status    *StatusTable
	Data      *DataTable
	Params    *ParamSet
	Commands  *CommandTable
	Resources *ResourceTable

	// CommandsEnable and ResourcesEnable gate the dev/cmd and dev/rsc/upd
	// subscriptions. Data streams are publish-only on dev/data and carry no
	// enable flag.
	CommandsEnable  EnableFlag
	ResourcesEnable EnableFlag

	// ConfigUpdateEnable gates the dev/cfg/upd subscription. Unlike the
	// other two, the application never toggles it directly: the session
	// controller requests it once the first full parameter dump publish
	// succeeds.
	ConfigUpdateEnable EnableFlag
}

// NewRegistry builds an empty registry sized by caps.
func NewRegistry(caps Capacities) *Registry {
	return &Registry{
		Status:    NewStatusTable(caps.Status),
		Data:      NewDataTable(caps.Data),
		Params:    &ParamSet{},
		Commands:  NewCommandTable(caps.Command),
		Resources: NewResourceTable(caps.Resource),
	}
}

// MarkAllDirty flags every status set, data stream and the parameter set for
// a full publish, used on the first successful connect of a session.
func (r *Registry) MarkAllDirty() {
	r.Status.Each(func(_ int, s *StatusSet) { s.MarkDirty() })
	r.Data.Each(func(_ int, d *DataStream) { d.MarkDirty() })
	r.Params.MarkDirty()
}
