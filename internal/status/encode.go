// internal/status/encode.go
package status

import "strconv"

// fieldSpec pairs a telemetry name with its accessor.
type fieldSpec struct {
	name  string
	value func(s Snapshot) string
}

// fields is the publish table. Order is part of the contract.
var fields = [...]fieldSpec{
	{NameStatus, func(s Snapshot) string { return strconv.FormatUint(uint64(s.Status), 10) }},
	{NameAttempts, func(s Snapshot) string { return strconv.FormatUint(s.Attempts, 10) }},
	{NameAccepted, func(s Snapshot) string { return strconv.FormatUint(s.Accepted, 10) }},
	{NameRejected, func(s Snapshot) string { return strconv.FormatUint(s.Rejected, 10) }},
	{NameLocalIP, func(s Snapshot) string { return ipOrUnset(s.LocalIP) }},
	{NamePublicIP, func(s Snapshot) string { return ipOrUnset(s.PublicIP) }},
}

// FieldNames returns the telemetry names in publish order.
func FieldNames() []string {
	out := make([]string, len(fields))
	for i, f := range fields {
		out[i] = f.name
	}
	return out
}

// Encode converts a Snapshot into a telemetry batch.
// No IO. No side effects.
func Encode(s Snapshot) Batch {
	out := make([]Field, len(fields))
	for i, f := range fields {
		out[i] = Field{Name: f.name, Value: f.value(s)}
	}
	return Batch{Fields: out, Source: s}
}

func ipOrUnset(ip string) string {
	if ip == "" {
		return UnsetIP
	}
	return ip
}
