// internal/status/encode_test.go
package status

import "testing"

func TestEncode_FixedFieldNames(t *testing.T) {
	want := []string{"status", "attempts", "accepted", "rejected", "local_ip", "public_ip"}

	snaps := []Snapshot{
		{},
		{Status: SSHSession, Attempts: 9, Accepted: 4, Rejected: 5, LocalIP: "10.0.0.5", PublicIP: "8.8.8.8"},
		{Status: Code(99), LocalIP: "garbage"},
	}

	for _, s := range snaps {
		b := Encode(s)
		if len(b.Fields) != len(want) {
			t.Fatalf("expected %d fields, got %d", len(want), len(b.Fields))
		}
		for i, f := range b.Fields {
			if f.Name != want[i] {
				t.Fatalf("field %d: got=%q want=%q", i, f.Name, want[i])
			}
		}
	}
}

func TestEncode_Values(t *testing.T) {
	b := Encode(Snapshot{
		Status:   Connected,
		Attempts: 12,
		Accepted: 10,
		Rejected: 2,
		LocalIP:  "192.168.1.20",
	})

	cases := map[string]string{
		NameStatus:   "2",
		NameAttempts: "12",
		NameAccepted: "10",
		NameRejected: "2",
		NameLocalIP:  "192.168.1.20",
		NamePublicIP: UnsetIP,
	}

	for name, want := range cases {
		got, ok := b.Get(name)
		if !ok {
			t.Fatalf("missing field %q", name)
		}
		if got != want {
			t.Fatalf("%s: got=%q want=%q", name, got, want)
		}
	}
}

func TestFieldNamesMatchEncode(t *testing.T) {
	names := FieldNames()
	b := Encode(Snapshot{})
	for i := range names {
		if names[i] != b.Fields[i].Name {
			t.Fatalf("order mismatch at %d: %q vs %q", i, names[i], b.Fields[i].Name)
		}
	}
}
