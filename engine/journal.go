package engine

import (
	"fmt"

	"github.com/ethereum/go-ethereum/common"

	"single-sign/shared"
)

// Journal wire format: signer (20 bytes) || digest (32 bytes), fixed-width
// concatenation with no delimiters or padding. This is the exact encoding the
// on-chain consumer re-builds from (owner, hash) before delegating to the
// proof verifier.
const JournalLen = common.AddressLength + common.HashLength

// EncodeJournal serializes a committed output pair.
func EncodeJournal(out *shared.AttestationOutput) []byte {
	journal := make([]byte, 0, JournalLen)
	journal = append(journal, out.Signer.Bytes()...)
	journal = append(journal, out.Digest.Bytes()...)
	return journal
}

// DecodeJournal parses journal bytes back into the committed pair. Errors
// only on malformed encoding; content checks belong to the verifier.
func DecodeJournal(journal []byte) (*shared.AttestationOutput, error) {
	if len(journal) != JournalLen {
		return nil, fmt.Errorf("malformed journal: expected %d bytes, got %d", JournalLen, len(journal))
	}
	return &shared.AttestationOutput{
		Signer: common.BytesToAddress(journal[:common.AddressLength]),
		Digest: common.BytesToHash(journal[common.AddressLength:]),
	}, nil
}
