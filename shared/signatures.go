package shared

import (
	"crypto/ecdsa"
	"fmt"

	"github.com/ethereum/go-ethereum/accounts"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
)

// The protocol pins one signing mode for the aggregated buffer: EIP-191
// personal messages (prefix-then-keccak). The other modes exist for host-side
// tooling that works with prehashed or raw-keccak payloads; the attestation
// engine itself only ever accepts ModePersonal.

// MessageMode selects how message bytes are turned into the 32-byte prehash
// that the ECDSA signature is recovered against.
type MessageMode int

const (
	// ModePersonal hashes with the EIP-191 prefix:
	// keccak256("\x19Ethereum Signed Message:\n" + len(msg) + msg).
	ModePersonal MessageMode = iota
	// ModeKeccak hashes arbitrary bytes with plain keccak256.
	ModeKeccak
	// ModeRaw32 treats the message as an already-computed 32-byte prehash.
	ModeRaw32
)

// SigningKeyPair is a secp256k1 key pair producing Ethereum-style signatures.
type SigningKeyPair struct {
	PrivateKey *ecdsa.PrivateKey
	PublicKey  *ecdsa.PublicKey
}

// GenerateSigningKeyPair generates a fresh secp256k1 key pair.
func GenerateSigningKeyPair() (*SigningKeyPair, error) {
	privateKey, err := crypto.GenerateKey()
	if err != nil {
		return nil, fmt.Errorf("failed to generate ECDSA key pair: %v", err)
	}

	return &SigningKeyPair{
		PrivateKey: privateKey,
		PublicKey:  &privateKey.PublicKey,
	}, nil
}

// SigningKeyPairFromHex loads a key pair from a hex-encoded private key
// (with or without 0x prefix).
func SigningKeyPairFromHex(hexKey string) (*SigningKeyPair, error) {
	if len(hexKey) >= 2 && hexKey[0:2] == "0x" {
		hexKey = hexKey[2:]
	}
	privateKey, err := crypto.HexToECDSA(hexKey)
	if err != nil {
		return nil, fmt.Errorf("invalid private key hex: %v", err)
	}
	return &SigningKeyPair{
		PrivateKey: privateKey,
		PublicKey:  &privateKey.PublicKey,
	}, nil
}

// SignBuffer signs the given buffer in the protocol's fixed signing mode
// (EIP-191 personal). Returns a 65-byte r||s||v signature with v in {0,1}.
// The buffer is signed as-is; range bookkeeping is the caller's concern.
func (kp *SigningKeyPair) SignBuffer(data []byte) ([]byte, error) {
	hash := accounts.TextHash(data)

	signature, err := crypto.Sign(hash, kp.PrivateKey)
	if err != nil {
		return nil, fmt.Errorf("failed to sign buffer: %v", err)
	}

	return signature, nil
}

// Address returns the Ethereum address acting as the signer identity.
func (kp *SigningKeyPair) Address() common.Address {
	return crypto.PubkeyToAddress(*kp.PublicKey)
}

// prehashFor builds the 32-byte prehash for the given mode.
func prehashFor(data []byte, mode MessageMode) ([]byte, error) {
	switch mode {
	case ModePersonal:
		return accounts.TextHash(data), nil
	case ModeKeccak:
		return crypto.Keccak256(data), nil
	case ModeRaw32:
		if len(data) != 32 {
			return nil, fmt.Errorf("raw32 mode requires a 32-byte prehash, got %d bytes", len(data))
		}
		return data, nil
	default:
		return nil, fmt.Errorf("unknown message mode %d", mode)
	}
}

// VerifyWithMode recovers the signer of a 65-byte signature over data
// interpreted per mode and compares it against the expected address.
// Accepts recovery ids in {0,1} as well as the wallet convention {27,28}.
func VerifyWithMode(data []byte, signature []byte, expected common.Address, mode MessageMode) error {
	if len(signature) != 65 {
		return fmt.Errorf("invalid signature length: expected 65 bytes, got %d", len(signature))
	}

	hash, err := prehashFor(data, mode)
	if err != nil {
		return err
	}

	sig := make([]byte, 65)
	copy(sig, signature)
	if sig[64] >= 27 {
		sig[64] -= 27
	}

	recoveredPubKey, err := crypto.SigToPub(hash, sig)
	if err != nil {
		return fmt.Errorf("failed to recover public key from signature: %v", err)
	}

	recoveredAddress := crypto.PubkeyToAddress(*recoveredPubKey)
	if recoveredAddress != expected {
		return fmt.Errorf("signature verification failed: expected address %s, got %s",
			expected.Hex(), recoveredAddress.Hex())
	}

	return nil
}

// VerifyEthSignature verifies a signature in the protocol's fixed signing
// mode. A signature produced under any other mode fails recovery here; there
// is no in-band mode negotiation.
func VerifyEthSignature(data []byte, signature []byte, expected common.Address) error {
	return VerifyWithMode(data, signature, expected, ModePersonal)
}
