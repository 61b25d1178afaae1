package proofverifier

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/ethereum/go-ethereum/common"

	"single-sign/engine"
	"single-sign/shared"
)

// AttestationBundle is the single JSON artefact an attestation producer hands
// to an offline verifier: the attestation plus the claim it is expected to
// commit to.
type AttestationBundle struct {
	Attestation shared.Attestation `json:"attestation"`
	ProgramID   common.Hash        `json:"program_id"`
	Signer      common.Address     `json:"signer"`
	Digest      common.Hash        `json:"digest"`
}

// ValidateBundle loads a bundle from the given file path and runs the full
// set of checks, reporting which one failed. Unlike Verify, which is a bare
// predicate, this surfaces staged errors for operator-facing tooling.
func ValidateBundle(bundlePath string) error {
	data, err := os.ReadFile(bundlePath)
	if err != nil {
		return fmt.Errorf("cannot open bundle: %v", err)
	}

	var bundle AttestationBundle
	if err := json.Unmarshal(data, &bundle); err != nil {
		return fmt.Errorf("failed to decode bundle JSON: %v", err)
	}

	att := &bundle.Attestation
	if att.ProgramID != bundle.ProgramID {
		return fmt.Errorf("program identifier mismatch: attestation has %s, bundle expects %s",
			att.ProgramID.Hex(), bundle.ProgramID.Hex())
	}

	out, err := engine.DecodeJournal(att.Journal)
	if err != nil {
		return fmt.Errorf("malformed journal: %v", err)
	}
	if out.Signer != bundle.Signer {
		return fmt.Errorf("journal signer %s does not match expected %s",
			out.Signer.Hex(), bundle.Signer.Hex())
	}
	if out.Digest != bundle.Digest {
		return fmt.Errorf("journal digest %s does not match expected %s",
			out.Digest.Hex(), bundle.Digest.Hex())
	}

	if err := (DevModeSealChecker{}).CheckSeal(att.ProgramID, att.Journal, att.Seal); err != nil {
		return fmt.Errorf("seal check failed: %v", err)
	}

	return nil
}
