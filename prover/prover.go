// Package prover wraps the attestation engine in proving harnesses: an
// in-process prover for development and tests, and a client adapter for a
// remote proving backend. The engine stays pure; everything here is
// request-in, attestation-or-error-out.
package prover

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/ethereum/go-ethereum/common"

	"single-sign/engine"
	"single-sign/shared"
	"single-sign/typeddata"
)

// ErrProofGeneration: the proving backend itself failed (transport error,
// resource exhaustion). All inputs are deterministic, so retrying is safe;
// identical requests produce identical attestations.
var ErrProofGeneration = errors.New("proof generation failed")

// Prover turns one attestation input into a proven attestation. Each call is
// independent and side-effect-free; implementations must be safe for
// concurrent use. A cancelled context abandons the request cleanly.
type Prover interface {
	Prove(ctx context.Context, in shared.AttestationInput) (*shared.Attestation, error)
}

// ProveAll attests every range of a signed concatenation buffer, one proving
// request per range, all in flight concurrently. Requests share no mutable
// state (each gets its own copy of the buffer and signature) and completion
// order is not guaranteed; results come back in range order regardless. The
// first failure cancels the remaining requests.
//
// Each returned attestation is cross-checked against the locally computed
// digest of its slice before being accepted.
func ProveAll(ctx context.Context, p Prover, signer common.Address, signature, buffer []byte, ranges []shared.DigestRange) ([]*shared.Attestation, error) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	results := make([]*shared.Attestation, len(ranges))
	errs := make([]error, len(ranges))

	var wg sync.WaitGroup
	for i, r := range ranges {
		wg.Add(1)
		go func(i int, r shared.DigestRange) {
			defer wg.Done()
			in := shared.AttestationInput{
				Signer:          signer,
				Signature:       append([]byte(nil), signature...),
				TypedDataConcat: append([]byte(nil), buffer...),
				DigestRange:     r,
			}
			att, err := p.Prove(ctx, in)
			if err != nil {
				errs[i] = fmt.Errorf("range %s: %w", r, err)
				cancel()
				return
			}
			if err := checkJournal(att, signer, buffer, r); err != nil {
				errs[i] = fmt.Errorf("range %s: %w", r, err)
				cancel()
				return
			}
			results[i] = att
		}(i, r)
	}
	wg.Wait()

	for _, err := range errs {
		if err != nil {
			return nil, err
		}
	}
	return results, nil
}

// checkJournal confirms the committed output matches what the caller expects
// for this slice: same signer, and a digest equal to the one computed from
// the slice bytes on this side.
func checkJournal(att *shared.Attestation, signer common.Address, buffer []byte, r shared.DigestRange) error {
	out, err := engine.DecodeJournal(att.Journal)
	if err != nil {
		return err
	}
	if out.Signer != signer {
		return fmt.Errorf("journal signer %s does not match %s", out.Signer.Hex(), signer.Hex())
	}

	if r.Start < 0 || r.End < r.Start || r.End > len(buffer) {
		return fmt.Errorf("range %s out of bounds for %d-byte buffer", r, len(buffer))
	}
	doc, err := typeddata.Parse(buffer[r.Start:r.End])
	if err != nil {
		return fmt.Errorf("cannot recompute slice digest: %v", err)
	}
	digest, err := doc.Digest()
	if err != nil {
		return fmt.Errorf("cannot recompute slice digest: %v", err)
	}
	if out.Digest != digest {
		return fmt.Errorf("journal digest %s does not match locally computed %s", out.Digest.Hex(), digest.Hex())
	}
	return nil
}
