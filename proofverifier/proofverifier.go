// Package proofverifier checks attestations: right program, right committed
// output, intact seal. Verification is a pure predicate over the attestation
// bytes; it needs neither the concatenation buffer nor the signature, and any
// party can run it any number of times.
package proofverifier

import (
	"bytes"
	"fmt"

	"github.com/ethereum/go-ethereum/common"

	"single-sign/engine"
	"single-sign/shared"
)

// SealChecker validates a seal against the claim it covers. Deployments
// backed by a real proving system plug in their receipt verification here.
type SealChecker interface {
	CheckSeal(programID common.Hash, journal, seal []byte) error
}

// DevModeSealChecker recomputes the deterministic dev-mode seal the local
// prover emits. It guarantees integrity of (programID, journal) only; it is
// not evidence that the program actually ran.
type DevModeSealChecker struct{}

func (DevModeSealChecker) CheckSeal(programID common.Hash, journal, seal []byte) error {
	if !bytes.Equal(seal, shared.DevModeSeal(programID, journal)) {
		return fmt.Errorf("seal does not match dev-mode integrity tag")
	}
	return nil
}

// Verify reports whether an attestation was produced by the expected program
// and commits exactly the expected (signer, digest) pair, with a valid
// dev-mode seal. Any mismatch returns false; mismatches are normal negative
// results, not errors.
func Verify(att *shared.Attestation, expectedProgram common.Hash, expectedSigner common.Address, expectedDigest common.Hash) bool {
	return VerifyWithChecker(att, expectedProgram, expectedSigner, expectedDigest, DevModeSealChecker{})
}

// VerifyWithChecker is Verify with a caller-supplied seal scheme.
func VerifyWithChecker(att *shared.Attestation, expectedProgram common.Hash, expectedSigner common.Address, expectedDigest common.Hash, checker SealChecker) bool {
	if att == nil || checker == nil {
		return false
	}
	if att.ProgramID != expectedProgram {
		return false
	}

	expectedJournal := engine.EncodeJournal(&shared.AttestationOutput{
		Signer: expectedSigner,
		Digest: expectedDigest,
	})
	if !bytes.Equal(att.Journal, expectedJournal) {
		return false
	}

	return checker.CheckSeal(att.ProgramID, att.Journal, att.Seal) == nil
}
