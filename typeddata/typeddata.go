// Package typeddata canonicalizes and digests EIP-712 typed-data messages.
//
// A Document is parsed once, validated against its own type schema, and from
// then on exposes exactly two derived artefacts: its canonical compact byte
// form (what gets concatenated and signed) and its EIP-712 signing hash (what
// attestations commit to). Both are pure functions of the document's logical
// content, independent of input formatting.
package typeddata

import (
	"bytes"
	"encoding/json"
	"fmt"

	gojson "github.com/coreos/go-json"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/signer/core/apitypes"
)

// Document is a validated typed-data message: a type schema, a primary type,
// a signing domain, and a field-value mapping. Immutable once constructed.
type Document struct {
	types       apitypes.Types
	primaryType string
	domain      apitypes.TypedDataDomain
	message     map[string]interface{}
	canonical   []byte
}

// envelope mirrors the wire shape of a typed-data JSON document.
type envelope struct {
	Types       apitypes.Types           `json:"types"`
	PrimaryType string                   `json:"primaryType"`
	Domain      apitypes.TypedDataDomain `json:"domain"`
	Message     map[string]interface{}   `json:"message"`
}

// Parse validates and canonicalizes a typed-data JSON document. The decoder
// preserves number literals (coreos/go-json with UseNumber) so 256-bit
// integers survive the round trip. Envelope and type-graph problems surface
// as *SchemaError, value-level problems as *CanonicalizationError.
func Parse(raw []byte) (*Document, error) {
	if err := validateEnvelope(raw); err != nil {
		return nil, err
	}

	dec := gojson.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var env envelope
	if err := dec.Decode(&env); err != nil {
		return nil, canonErr("", "invalid JSON: %v", err)
	}
	if dec.More() {
		return nil, canonErr("", "trailing data after document")
	}

	return newDocument(env.Types, env.PrimaryType, env.Domain, env.Message)
}

// FromTypedData builds a Document from an already-assembled go-ethereum
// TypedData value, applying the same validation as Parse.
func FromTypedData(td apitypes.TypedData) (*Document, error) {
	return newDocument(td.Types, td.PrimaryType, td.Domain, map[string]interface{}(td.Message))
}

func newDocument(types apitypes.Types, primaryType string, domain apitypes.TypedDataDomain, message map[string]interface{}) (*Document, error) {
	if err := validateTypes(types, primaryType); err != nil {
		return nil, err
	}
	if message == nil {
		return nil, canonErr("message", "missing message object")
	}

	d := &Document{
		types:       types,
		primaryType: primaryType,
		domain:      domain,
		message:     message,
	}

	// Canonicalizing up front both validates every value against the schema
	// and fixes the byte form for the document's lifetime.
	w := &canonicalWriter{types: types}
	if err := w.writeDocument(d); err != nil {
		return nil, err
	}
	d.canonical = w.buf.Bytes()
	return d, nil
}

// PrimaryType returns the name of the top-level struct type.
func (d *Document) PrimaryType() string {
	return d.primaryType
}

// Domain returns the signing domain descriptor.
func (d *Document) Domain() apitypes.TypedDataDomain {
	return d.domain
}

// Canonicalize returns the deterministic compact serialization of the
// document. Two independently parsed representations of the same logical
// content return identical bytes.
func (d *Document) Canonicalize() []byte {
	out := make([]byte, len(d.canonical))
	copy(out, d.canonical)
	return out
}

// Digest computes the EIP-712 signing hash:
// keccak256("\x19\x01" || domainSeparator || hashStruct(primaryType, message)).
func (d *Document) Digest() (common.Hash, error) {
	td := apitypes.TypedData{
		Types:       d.types,
		PrimaryType: d.primaryType,
		Domain:      d.domain,
		Message:     normalizeForHash(d.message).(map[string]interface{}),
	}
	sighash, _, err := apitypes.TypedDataAndHash(td)
	if err != nil {
		return common.Hash{}, fmt.Errorf("failed to compute EIP-712 digest: %v", err)
	}
	return common.BytesToHash(sighash), nil
}

// normalizeForHash rewrites json.Number leaves to their literal strings,
// which the go-ethereum field encoder accepts for any integer width.
func normalizeForHash(v interface{}) interface{} {
	switch t := v.(type) {
	case gojson.Number:
		return string(t)
	case json.Number:
		return t.String()
	case map[string]interface{}:
		out := make(map[string]interface{}, len(t))
		for k, e := range t {
			out[k] = normalizeForHash(e)
		}
		return out
	case []interface{}:
		out := make([]interface{}, len(t))
		for i, e := range t {
			out[i] = normalizeForHash(e)
		}
		return out
	default:
		return v
	}
}
