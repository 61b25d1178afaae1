package prover

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"testing"

	"single-sign/concat"
	"single-sign/engine"
	"single-sign/shared"
	"single-sign/typeddata"
)

type signedAggregate struct {
	keyPair   *shared.SigningKeyPair
	signature []byte
	agg       *concat.Aggregate
}

func buildSignedAggregate(t *testing.T, amounts ...int) *signedAggregate {
	t.Helper()

	kp, err := shared.GenerateSigningKeyPair()
	if err != nil {
		t.Fatalf("GenerateSigningKeyPair failed: %v", err)
	}

	var docs []*typeddata.Document
	for _, amount := range amounts {
		raw := fmt.Sprintf(`{
		  "types": {
		    "EIP712Domain": [{"name": "name", "type": "string"}, {"name": "chainId", "type": "uint256"}],
		    "Transfer": [{"name": "amount", "type": "uint256"}, {"name": "to", "type": "address"}]
		  },
		  "primaryType": "Transfer",
		  "domain": {"name": "Demo", "chainId": 1},
		  "message": {"amount": %d, "to": "0xbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbb"}
		}`, amount)
		doc, err := typeddata.Parse([]byte(raw))
		if err != nil {
			t.Fatalf("Parse failed: %v", err)
		}
		docs = append(docs, doc)
	}

	agg, err := concat.Build(docs)
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	sig, err := kp.SignBuffer(agg.Buffer)
	if err != nil {
		t.Fatalf("SignBuffer failed: %v", err)
	}
	return &signedAggregate{keyPair: kp, signature: sig, agg: agg}
}

func (s *signedAggregate) input(r shared.DigestRange) shared.AttestationInput {
	return shared.AttestationInput{
		Signer:          s.keyPair.Address(),
		Signature:       s.signature,
		TypedDataConcat: s.agg.Buffer,
		DigestRange:     r,
	}
}

func TestLocalProverDeterministic(t *testing.T) {
	s := buildSignedAggregate(t, 1, 2)
	p := NewLocalProver(nil)
	in := s.input(s.agg.Ranges[0])

	first, err := p.Prove(context.Background(), in)
	if err != nil {
		t.Fatalf("Prove failed: %v", err)
	}
	second, err := p.Prove(context.Background(), in)
	if err != nil {
		t.Fatalf("Prove failed: %v", err)
	}

	if first.ProgramID != engine.ProgramID {
		t.Errorf("attestation carries program %s, want %s", first.ProgramID.Hex(), engine.ProgramID.Hex())
	}
	if !bytes.Equal(first.Journal, second.Journal) || !bytes.Equal(first.Seal, second.Seal) {
		t.Error("identical requests produced different attestations")
	}

	out, err := engine.DecodeJournal(first.Journal)
	if err != nil {
		t.Fatalf("DecodeJournal failed: %v", err)
	}
	if out.Signer != s.keyPair.Address() {
		t.Errorf("journal signer %s, want %s", out.Signer.Hex(), s.keyPair.Address().Hex())
	}
	if !bytes.Equal(first.Seal, shared.DevModeSeal(first.ProgramID, first.Journal)) {
		t.Error("seal does not bind journal to program identifier")
	}
}

func TestLocalProverPassesEngineErrorsThrough(t *testing.T) {
	s := buildSignedAggregate(t, 1)
	p := NewLocalProver(nil)

	in := s.input(shared.DigestRange{Start: 0, End: len(s.agg.Buffer) + 1})
	if _, err := p.Prove(context.Background(), in); !errors.Is(err, engine.ErrRangeOutOfBounds) {
		t.Errorf("expected ErrRangeOutOfBounds, got %v", err)
	}
	if _, err := p.Prove(context.Background(), in); errors.Is(err, ErrProofGeneration) {
		t.Error("engine rejection must not be reported as a proving failure")
	}
}

func TestLocalProverHonorsCancelledContext(t *testing.T) {
	s := buildSignedAggregate(t, 1)
	p := NewLocalProver(nil)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := p.Prove(ctx, s.input(s.agg.Ranges[0])); !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}
}

func TestProveAll(t *testing.T) {
	s := buildSignedAggregate(t, 1, 22, 333)
	p := NewLocalProver(nil)

	atts, err := ProveAll(context.Background(), p, s.keyPair.Address(), s.signature, s.agg.Buffer, s.agg.Ranges)
	if err != nil {
		t.Fatalf("ProveAll failed: %v", err)
	}
	if len(atts) != len(s.agg.Ranges) {
		t.Fatalf("got %d attestations, want %d", len(atts), len(s.agg.Ranges))
	}

	// Results come back in range order: journal i covers slice i.
	for i, att := range atts {
		out, err := engine.DecodeJournal(att.Journal)
		if err != nil {
			t.Fatalf("DecodeJournal failed: %v", err)
		}
		doc, err := typeddata.Parse(s.agg.Buffer[s.agg.Ranges[i].Start:s.agg.Ranges[i].End])
		if err != nil {
			t.Fatalf("Parse failed: %v", err)
		}
		want, err := doc.Digest()
		if err != nil {
			t.Fatalf("Digest failed: %v", err)
		}
		if out.Digest != want {
			t.Errorf("attestation %d commits digest %s, want %s", i, out.Digest.Hex(), want.Hex())
		}
	}
}

func TestProveAllFailsOnBadRange(t *testing.T) {
	s := buildSignedAggregate(t, 1, 2)
	p := NewLocalProver(nil)

	ranges := append([]shared.DigestRange(nil), s.agg.Ranges...)
	ranges[1] = shared.DigestRange{Start: 0, End: len(s.agg.Buffer) + 1}

	if _, err := ProveAll(context.Background(), p, s.keyPair.Address(), s.signature, s.agg.Buffer, ranges); err == nil {
		t.Fatal("expected ProveAll to fail when one range is invalid")
	}
}

// lyingProver returns a well-formed attestation whose journal commits a
// different digest than the requested slice.
type lyingProver struct {
	inner Prover
}

func (p *lyingProver) Prove(ctx context.Context, in shared.AttestationInput) (*shared.Attestation, error) {
	att, err := p.inner.Prove(ctx, in)
	if err != nil {
		return nil, err
	}
	out, err := engine.DecodeJournal(att.Journal)
	if err != nil {
		return nil, err
	}
	out.Digest[0] ^= 0x01
	journal := engine.EncodeJournal(out)
	return &shared.Attestation{
		ProgramID: att.ProgramID,
		Journal:   journal,
		Seal:      shared.DevModeSeal(att.ProgramID, journal),
	}, nil
}

func TestProveAllRejectsMismatchedJournal(t *testing.T) {
	s := buildSignedAggregate(t, 1)
	p := &lyingProver{inner: NewLocalProver(nil)}

	if _, err := ProveAll(context.Background(), p, s.keyPair.Address(), s.signature, s.agg.Buffer, s.agg.Ranges); err == nil {
		t.Fatal("expected ProveAll to reject an attestation with a mismatched digest")
	}
}
