package model

import (
	"encoding/json"
	"errors"
	"fmt"
	"testing"

	"xdao.co/tokenrec/codec"
	"xdao.co/tokenrec/ledger"
	"xdao.co/tokenrec/ownership"
	"xdao.co/tokenrec/predicate"
	"xdao.co/tokenrec/proof"
	"xdao.co/tokenrec/resolver"
	"xdao.co/tokenrec/storage"
	"xdao.co/tokenrec/token"
)

func TestSnapshot_StatusReport_JSONShape(t *testing.T) {
	st := &ownership.Status{
		Scenario:         ownership.Error,
		Code:             ownership.CodeLedgerUnavailable,
		CurrentOwner:     ownership.Unknown,
		LatestKnownOwner: "DIRECT://aa",
		BestGuessOwner:   "DIRECT://aa",
		Scheme:           predicate.SchemeUnmasked,
		PublicKey:        []byte{0x01, 0x02},
		Signals:          ownership.Signals{Pending: true},
		Rationale:        []string{"ledger: spent query failed"},
		Failure:          fmt.Errorf("%w: connection refused", ledger.ErrUnavailable),
	}

	b, err := json.MarshalIndent(FromStatus(st), "", "  ")
	if err != nil {
		t.Fatalf("MarshalIndent failed: %v", err)
	}

	const want = "{\n" +
		"  \"scenario\": \"Error\",\n" +
		"  \"code\": \"LEDGER_UNAVAILABLE\",\n" +
		"  \"spent\": null,\n" +
		"  \"currentOwner\": \"UNKNOWN\",\n" +
		"  \"latestKnownOwner\": \"DIRECT://aa\",\n" +
		"  \"bestGuessOwner\": \"DIRECT://aa\",\n" +
		"  \"inconsistent\": false,\n" +
		"  \"scheme\": \"unmasked\",\n" +
		"  \"publicKey\": \"0102\",\n" +
		"  \"stateHash\": \"\",\n" +
		"  \"signals\": {\n" +
		"    \"spent\": false,\n" +
		"    \"pending\": true,\n" +
		"    \"hasTransactions\": false,\n" +
		"    \"inTransit\": false,\n" +
		"    \"lastTransactionProved\": false\n" +
		"  },\n" +
		"  \"rationale\": [\n" +
		"    \"ledger: spent query failed\"\n" +
		"  ],\n" +
		"  \"failure\": {\n" +
		"    \"code\": \"LEDGER_UNAVAILABLE\",\n" +
		"    \"message\": \"ledger: unavailable: connection refused\"\n" +
		"  }\n" +
		"}"

	if string(b) != want {
		t.Fatalf("snapshot mismatch:\n%s", string(b))
	}
}

func TestSnapshot_ResolveReport_JSONShape(t *testing.T) {
	err := &resolver.ResolutionError{Index: 1, Kind: resolver.KindNotFound, Cause: ledger.ErrNotFound}
	rep := FromResolve(
		resolver.Summary{Resolved: []int{resolver.GenesisIndex, 0}, Skipped: 0},
		resolver.Scenario{Kind: resolver.NeedsResolution, Reason: "1 of 3 proofs lack an authenticator or transaction hash", Incomplete: []int{1}},
		err,
	)
	b, mErr := json.MarshalIndent(rep, "", "  ")
	if mErr != nil {
		t.Fatalf("MarshalIndent failed: %v", mErr)
	}

	const want = "{\n" +
		"  \"scenario\": {\n" +
		"    \"scenario\": \"NeedsResolution\",\n" +
		"    \"reason\": \"1 of 3 proofs lack an authenticator or transaction hash\",\n" +
		"    \"incomplete\": [\n" +
		"      \"transaction[1]\"\n" +
		"    ]\n" +
		"  },\n" +
		"  \"resolved\": [\n" +
		"    \"genesis\",\n" +
		"    \"transaction[0]\"\n" +
		"  ],\n" +
		"  \"skipped\": 0,\n" +
		"  \"warnings\": [],\n" +
		"  \"error\": {\n" +
		"    \"code\": \"NOT_FOUND\",\n" +
		"    \"message\": \"resolve transaction[1]: NotFound: ledger: inclusion proof not found\",\n" +
		"    \"index\": 1\n" +
		"  }\n" +
		"}"

	if string(b) != want {
		t.Fatalf("snapshot mismatch:\n%s", string(b))
	}
}

func TestMapError_Codes(t *testing.T) {
	certErr := proof.VerifyCertificate(&proof.Certificate{}, nil, &proof.TrustBase{
		Quorum:     1,
		Validators: []proof.Validator{{NodeID: "n", PublicKey: []byte{1}}},
	})
	if !proof.IsCertificateMismatch(certErr) {
		t.Fatalf("fixture: expected certificate mismatch, got %v", certErr)
	}

	cases := []struct {
		name string
		err  error
		want ErrorCode
	}{
		{"decode", &predicate.DecodeError{Field: "scheme"}, ErrDecode},
		{"codec", fmt.Errorf("%w: eof", codec.ErrDecode), ErrDecode},
		{"invalid record", fmt.Errorf("%w: x", token.ErrInvalidRecord), ErrInvalidRecord},
		{"ledger not found", ledger.ErrNotFound, ErrNotFound},
		{"ledger unavailable", ledger.ErrUnavailable, ErrLedgerUnavailable},
		{"certificate", certErr, ErrCertificateMismatch},
		{"missing evidence", &resolver.ResolutionError{Kind: resolver.KindMissingEvidence}, ErrMissingEvidence},
		{"resolver network", &resolver.ResolutionError{Kind: resolver.KindNetwork, Cause: ledger.ErrUnavailable}, ErrLedgerUnavailable},
		{"resolver certificate", &resolver.ResolutionError{Kind: resolver.KindValidation, Cause: certErr}, ErrCertificateMismatch},
		{"snapshot missing", storage.ErrNotFound, ErrNotFound},
		{"snapshot edited", storage.ErrCIDMismatch, ErrSnapshotCorrupt},
		{"snapshot not a record", fmt.Errorf("%w: x", storage.ErrNotRecord), ErrSnapshotCorrupt},
		{"coded", NewError(ErrInvalidRequest, "x"), ErrInvalidRequest},
		{"other", errors.New("boom"), ErrInternal},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := MapError(tc.err); got == nil || got.Code != tc.want {
				t.Fatalf("got %v want %s", got, tc.want)
			}
		})
	}
	if MapError(nil) != nil {
		t.Fatalf("nil error must map to nil")
	}
	if got := MapError(certErr); got.RuleID != "PRF-CERT-002" {
		t.Fatalf("rule id: got %q", got.RuleID)
	}
}

func TestParseCompliance(t *testing.T) {
	if _, err := ParseCompliance("lenient"); err == nil {
		t.Fatalf("expected error for unknown mode")
	}
	m, err := ParseCompliance(ComplianceStrict)
	if err != nil || m.String() != "strict" {
		t.Fatalf("strict: %v %v", m, err)
	}
}
