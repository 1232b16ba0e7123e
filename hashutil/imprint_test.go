package hashutil

import (
	"encoding/json"
	"testing"
)

func TestSum_AlgorithmsAreSelfDescribing(t *testing.T) {
	for _, alg := range []string{SHA256, SHA512, SHA3256} {
		h, err := Sum(alg, []byte("state"))
		if err != nil {
			t.Fatalf("Sum(%s): %v", alg, err)
		}
		if got := h.Algorithm(); got != alg {
			t.Fatalf("Algorithm: got %q want %q", got, alg)
		}
		parsed, err := ParseImprint(h)
		if err != nil {
			t.Fatalf("ParseImprint(%s): %v", alg, err)
		}
		if !parsed.Equal(h) {
			t.Fatalf("parsed imprint differs for %s", alg)
		}
	}
}

func TestSum_DifferentAlgorithmsDiffer(t *testing.T) {
	a := MustSum(SHA256, []byte("x"))
	b := MustSum(SHA3256, []byte("x"))
	if a.Equal(b) {
		t.Fatalf("expected sha256 and sha3-256 imprints to differ")
	}
	if len(a.Digest()) != 32 || len(b.Digest()) != 32 {
		t.Fatalf("unexpected digest sizes: %d %d", len(a.Digest()), len(b.Digest()))
	}
}

func TestSum_UnsupportedAlgorithm(t *testing.T) {
	if _, err := Sum("md5", []byte("x")); err == nil {
		t.Fatalf("expected error for md5")
	}
}

func TestParseImprint_RejectsGarbage(t *testing.T) {
	if _, err := ParseImprint(nil); err == nil {
		t.Fatalf("expected error for empty imprint")
	}
	if _, err := ParseImprint([]byte{0x12, 0x05, 0x01}); err == nil {
		t.Fatalf("expected error for truncated multihash")
	}
}

func TestImprint_JSONHex(t *testing.T) {
	type wrapper struct {
		H Imprint `json:"h,omitempty"`
	}
	in := wrapper{H: SumSHA256([]byte("tx"))}
	b, err := json.Marshal(in)
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	var out wrapper
	if err := json.Unmarshal(b, &out); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	if !out.H.Equal(in.H) {
		t.Fatalf("imprint changed across JSON")
	}

	var empty wrapper
	b, _ = json.Marshal(empty)
	if string(b) != "{}" {
		t.Fatalf("absent imprint should be omitted, got %s", b)
	}
}

func TestSnapshotCID_Deterministic(t *testing.T) {
	a, err := SnapshotCID([]byte("record"))
	if err != nil {
		t.Fatalf("SnapshotCID: %v", err)
	}
	b := SnapshotCIDString([]byte("record"))
	if a.String() != b {
		t.Fatalf("CID mismatch: %s vs %s", a, b)
	}
}
