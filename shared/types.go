package shared

import (
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
)

// DigestRange is a half-open [Start, End) byte range into a concatenation
// buffer. Ranges produced by the builder partition the buffer exactly.
type DigestRange struct {
	Start int `json:"start"`
	End   int `json:"end"`
}

// Len returns the number of bytes the range covers.
func (r DigestRange) Len() int {
	return r.End - r.Start
}

func (r DigestRange) String() string {
	return fmt.Sprintf("[%d,%d)", r.Start, r.End)
}

// AttestationInput is the private input to one attestation run: the claimed
// signer, the signature over the whole concatenation buffer, the buffer
// itself, and the single range to digest. Consumed once per run; the engine
// keeps no state between runs.
type AttestationInput struct {
	Signer          common.Address `json:"signer"`
	Signature       []byte         `json:"signature"`
	TypedDataConcat []byte         `json:"typed_data_concat"`
	DigestRange     DigestRange    `json:"digest_range"`
}

// AttestationOutput is the committed public output of an attestation run.
type AttestationOutput struct {
	Signer common.Address `json:"signer"`
	Digest common.Hash    `json:"digest"`
}

// Attestation is the independently verifiable artefact: the identifier of the
// exact program logic that ran, the committed journal bytes, and an opaque
// seal binding the two. Immutable; safe to verify any number of times.
type Attestation struct {
	ProgramID common.Hash `json:"program_id"`
	Journal   []byte      `json:"journal"`
	Seal      []byte      `json:"seal"`
}

// DevModeSeal computes the deterministic integrity tag used as the seal by
// the in-process prover: keccak256(programID || journal). It binds the journal
// to the program identifier but is not a soundness proof; a production
// deployment substitutes a seal from a real proving backend.
func DevModeSeal(programID common.Hash, journal []byte) []byte {
	return crypto.Keccak256(programID.Bytes(), journal)
}
