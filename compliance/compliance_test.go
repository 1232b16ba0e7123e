package compliance

import "testing"

func TestParse(t *testing.T) {
	cases := map[string]ComplianceMode{"": Permissive, "permissive": Permissive, "strict": Strict}
	for in, want := range cases {
		got, err := Parse(in)
		if err != nil || got != want {
			t.Fatalf("Parse(%q): got %v, %v want %v", in, got, err, want)
		}
	}
	if _, err := Parse("lenient"); err == nil {
		t.Fatalf("expected error for unknown mode")
	}
}

func TestUnmarshalText(t *testing.T) {
	var m ComplianceMode
	if err := m.UnmarshalText([]byte("strict")); err != nil || m != Strict {
		t.Fatalf("UnmarshalText: got %v, %v", m, err)
	}
	b, _ := m.MarshalText()
	if string(b) != "strict" {
		t.Fatalf("MarshalText: got %q", b)
	}
}
