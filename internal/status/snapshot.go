// internal/status/snapshot.go
package status

// Snapshot is a copy of the device state at one instant.
// It contains no logic and no memory of the past beyond current state.
type Snapshot struct {
	Status   Code
	Attempts uint64
	Accepted uint64
	Rejected uint64
	LocalIP  string
	PublicIP string
}

// Field is one named telemetry value.
type Field struct {
	Name  string
	Value string
}

// Batch is the set of fields emitted by one publish.
// Source is the snapshot the fields were rendered from, for sinks that
// need typed values.
type Batch struct {
	Fields []Field
	Source Snapshot
}

// Get returns the value of the named field.
func (b Batch) Get(name string) (string, bool) {
	for _, f := range b.Fields {
		if f.Name == name {
			return f.Value, true
		}
	}
	return "", false
}
