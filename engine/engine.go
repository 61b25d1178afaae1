// Package engine implements the attestation computation: verify one
// signature over a whole concatenation buffer, recompute the EIP-712 digest
// of one slice of it, and commit the (signer, digest) pair.
//
// Attest is pure and stateless. It is the exact body a verifiable-computation
// harness executes; everything proof-related lives in the surrounding
// adapters so this logic stays unit-testable on its own.
package engine

import (
	"bytes"
	"errors"
	"fmt"

	"github.com/ethereum/go-ethereum/crypto"

	"single-sign/shared"
	"single-sign/typeddata"
)

// ProgramID identifies this exact attestation logic. Attestations are only
// meaningful when checked against it; it must change whenever the semantics
// of Attest change.
var ProgramID = crypto.Keccak256Hash([]byte("single-sign/attest/v1"))

var (
	// ErrSignatureInvalid: the signature does not recover to the claimed
	// signer over the full buffer under the fixed signing mode.
	ErrSignatureInvalid = errors.New("signature invalid")
	// ErrRangeOutOfBounds: the digest range does not fit the buffer.
	ErrRangeOutOfBounds = errors.New("digest range out of bounds")
	// ErrSliceNotCanonical: the bytes in the range are not the canonical
	// serialization of any valid typed-data message. Never auto-corrected.
	ErrSliceNotCanonical = errors.New("slice is not canonical typed data")
)

// Attest runs the attestation computation for a single request. All failures
// are fatal for this request only; no partial output is ever produced.
func Attest(in shared.AttestationInput) (*shared.AttestationOutput, error) {
	// 1. The signature must cover exactly the full buffer. Verifying before
	// touching the range means nothing gets committed for a buffer the
	// claimed signer never signed.
	if err := shared.VerifyEthSignature(in.TypedDataConcat, in.Signature, in.Signer); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSignatureInvalid, err)
	}

	// 2. Bounds.
	r := in.DigestRange
	if r.Start < 0 || r.End < r.Start || r.End > len(in.TypedDataConcat) {
		return nil, fmt.Errorf("%w: %s against %d-byte buffer", ErrRangeOutOfBounds, r, len(in.TypedDataConcat))
	}

	// 3. The slice must parse as typed data and re-canonicalize to exactly
	// its own bytes, using the same canonicalization the producer ran.
	slice := in.TypedDataConcat[r.Start:r.End]
	doc, err := typeddata.Parse(slice)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSliceNotCanonical, err)
	}
	if !bytes.Equal(doc.Canonicalize(), slice) {
		return nil, fmt.Errorf("%w: slice bytes differ from their canonical form", ErrSliceNotCanonical)
	}

	digest, err := doc.Digest()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSliceNotCanonical, err)
	}

	// 4. Committed output.
	return &shared.AttestationOutput{
		Signer: in.Signer,
		Digest: digest,
	}, nil
}
