package proofverifier

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/ethereum/go-ethereum/common"

	"single-sign/concat"
	"single-sign/engine"
	"single-sign/prover"
	"single-sign/shared"
	"single-sign/typeddata"
)

type provenFixture struct {
	att    *shared.Attestation
	signer common.Address
	digest common.Hash
}

func buildProvenFixture(t *testing.T) *provenFixture {
	t.Helper()

	kp, err := shared.GenerateSigningKeyPair()
	if err != nil {
		t.Fatalf("GenerateSigningKeyPair failed: %v", err)
	}

	doc, err := typeddata.Parse([]byte(`{
	  "types": {
	    "EIP712Domain": [{"name": "name", "type": "string"}, {"name": "chainId", "type": "uint256"}],
	    "Transfer": [{"name": "amount", "type": "uint256"}, {"name": "to", "type": "address"}]
	  },
	  "primaryType": "Transfer",
	  "domain": {"name": "Demo", "chainId": 1},
	  "message": {"amount": 10, "to": "0xbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbb"}
	}`))
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}

	agg, err := concat.Build([]*typeddata.Document{doc})
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	sig, err := kp.SignBuffer(agg.Buffer)
	if err != nil {
		t.Fatalf("SignBuffer failed: %v", err)
	}

	att, err := prover.NewLocalProver(nil).Prove(context.Background(), shared.AttestationInput{
		Signer:          kp.Address(),
		Signature:       sig,
		TypedDataConcat: agg.Buffer,
		DigestRange:     agg.Ranges[0],
	})
	if err != nil {
		t.Fatalf("Prove failed: %v", err)
	}

	digest, err := doc.Digest()
	if err != nil {
		t.Fatalf("Digest failed: %v", err)
	}
	return &provenFixture{att: att, signer: kp.Address(), digest: digest}
}

func TestVerifyAcceptsValidAttestation(t *testing.T) {
	f := buildProvenFixture(t)
	if !Verify(f.att, engine.ProgramID, f.signer, f.digest) {
		t.Error("valid attestation rejected")
	}
	// Verification is repeatable.
	if !Verify(f.att, engine.ProgramID, f.signer, f.digest) {
		t.Error("second verification of the same attestation rejected")
	}
}

func TestVerifyRejectsMismatches(t *testing.T) {
	f := buildProvenFixture(t)

	t.Run("nil_attestation", func(t *testing.T) {
		if Verify(nil, engine.ProgramID, f.signer, f.digest) {
			t.Error("nil attestation accepted")
		}
	})
	t.Run("wrong_program", func(t *testing.T) {
		if Verify(f.att, common.Hash{0x01}, f.signer, f.digest) {
			t.Error("attestation accepted against wrong program identifier")
		}
	})
	t.Run("wrong_signer", func(t *testing.T) {
		if Verify(f.att, engine.ProgramID, common.Address{0x01}, f.digest) {
			t.Error("attestation accepted for wrong signer")
		}
	})
	t.Run("wrong_digest", func(t *testing.T) {
		if Verify(f.att, engine.ProgramID, f.signer, common.Hash{0x01}) {
			t.Error("attestation accepted for wrong digest")
		}
	})
	t.Run("tampered_journal", func(t *testing.T) {
		mutated := *f.att
		mutated.Journal = append([]byte(nil), f.att.Journal...)
		mutated.Journal[0] ^= 0x01
		if Verify(&mutated, engine.ProgramID, f.signer, f.digest) {
			t.Error("attestation with tampered journal accepted")
		}
	})
	t.Run("tampered_seal", func(t *testing.T) {
		mutated := *f.att
		mutated.Seal = append([]byte(nil), f.att.Seal...)
		mutated.Seal[0] ^= 0x01
		if Verify(&mutated, engine.ProgramID, f.signer, f.digest) {
			t.Error("attestation with tampered seal accepted")
		}
	})
	t.Run("forged_program_with_original_seal", func(t *testing.T) {
		// Re-labelling the program without re-sealing must fail the seal
		// check even though journal bytes still match.
		mutated := *f.att
		mutated.ProgramID = common.Hash{0x02}
		if Verify(&mutated, common.Hash{0x02}, f.signer, f.digest) {
			t.Error("re-labelled attestation accepted")
		}
	})
}

func TestVerifyWithCheckerNilChecker(t *testing.T) {
	f := buildProvenFixture(t)
	if VerifyWithChecker(f.att, engine.ProgramID, f.signer, f.digest, nil) {
		t.Error("nil checker accepted")
	}
}

func writeBundle(t *testing.T, bundle AttestationBundle) string {
	t.Helper()
	data, err := json.Marshal(bundle)
	if err != nil {
		t.Fatalf("Marshal failed: %v", err)
	}
	path := filepath.Join(t.TempDir(), "bundle.json")
	if err := os.WriteFile(path, data, 0o600); err != nil {
		t.Fatalf("WriteFile failed: %v", err)
	}
	return path
}

func TestValidateBundle(t *testing.T) {
	f := buildProvenFixture(t)

	good := AttestationBundle{
		Attestation: *f.att,
		ProgramID:   engine.ProgramID,
		Signer:      f.signer,
		Digest:      f.digest,
	}
	if err := ValidateBundle(writeBundle(t, good)); err != nil {
		t.Errorf("valid bundle rejected: %v", err)
	}

	tests := []struct {
		name   string
		mutate func(b *AttestationBundle)
	}{
		{
			name:   "program_mismatch",
			mutate: func(b *AttestationBundle) { b.ProgramID = common.Hash{0x01} },
		},
		{
			name:   "signer_mismatch",
			mutate: func(b *AttestationBundle) { b.Signer = common.Address{0x01} },
		},
		{
			name:   "digest_mismatch",
			mutate: func(b *AttestationBundle) { b.Digest = common.Hash{0x01} },
		},
		{
			name:   "truncated_journal",
			mutate: func(b *AttestationBundle) { b.Attestation.Journal = b.Attestation.Journal[:10] },
		},
		{
			name: "tampered_seal",
			mutate: func(b *AttestationBundle) {
				b.Attestation.Seal = append([]byte(nil), b.Attestation.Seal...)
				b.Attestation.Seal[0] ^= 0x01
			},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			bundle := good
			tt.mutate(&bundle)
			if err := ValidateBundle(writeBundle(t, bundle)); err == nil {
				t.Error("expected validation error, got nil")
			}
		})
	}
}

func TestValidateBundleFileErrors(t *testing.T) {
	if err := ValidateBundle(filepath.Join(t.TempDir(), "missing.json")); err == nil {
		t.Error("expected error for missing bundle file")
	}

	path := filepath.Join(t.TempDir(), "garbage.json")
	if err := os.WriteFile(path, []byte("not json"), 0o600); err != nil {
		t.Fatalf("WriteFile failed: %v", err)
	}
	if err := ValidateBundle(path); err == nil {
		t.Error("expected error for malformed bundle JSON")
	}
}
