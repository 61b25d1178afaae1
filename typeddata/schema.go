package typeddata

import (
	"regexp"
	"strconv"
	"strings"
	"sync"

	"github.com/ethereum/go-ethereum/signer/core/apitypes"
	"github.com/xeipuuv/gojsonschema"
)

// JSON Schema for the typed-data envelope: types / primaryType / domain /
// message. Value-level checking happens later against the declared types;
// this only pins the outer shape.
const envelopeSchemaJSON = `{
  "type": "object",
  "required": ["types", "primaryType", "domain", "message"],
  "additionalProperties": false,
  "properties": {
    "types": {
      "type": "object",
      "minProperties": 1,
      "additionalProperties": {
        "type": "array",
        "items": {
          "type": "object",
          "required": ["name", "type"],
          "additionalProperties": false,
          "properties": {
            "name": {"type": "string", "minLength": 1},
            "type": {"type": "string", "format": "solidity-type"}
          }
        }
      }
    },
    "primaryType": {"type": "string", "minLength": 1},
    "domain": {
      "type": "object",
      "additionalProperties": false,
      "properties": {
        "name": {"type": "string"},
        "version": {"type": "string"},
        "chainId": {"type": ["integer", "string"]},
        "verifyingContract": {"type": "string"},
        "salt": {"type": "string"}
      }
    },
    "message": {"type": "object"}
  }
}`

var (
	envelopeSchema     *gojsonschema.Schema
	envelopeSchemaOnce sync.Once
	envelopeSchemaErr  error

	typeNameRe     = regexp.MustCompile(`^[A-Za-z_$][A-Za-z0-9_$]*$`)
	solidityTypeRe = regexp.MustCompile(`^[A-Za-z_$][A-Za-z0-9_$]*(\[[0-9]*\])*$`)
)

func init() {
	gojsonschema.FormatCheckers.Add("solidity-type", solidityTypeFormatChecker{})
}

// solidityTypeFormatChecker accepts identifiers with optional array suffixes,
// e.g. "uint256", "address[]", "Person[4]".
type solidityTypeFormatChecker struct{}

func (solidityTypeFormatChecker) IsFormat(input interface{}) bool {
	str, ok := input.(string)
	if !ok {
		return false
	}
	return solidityTypeRe.MatchString(str)
}

func compiledEnvelopeSchema() (*gojsonschema.Schema, error) {
	envelopeSchemaOnce.Do(func() {
		envelopeSchema, envelopeSchemaErr = gojsonschema.NewSchema(
			gojsonschema.NewStringLoader(envelopeSchemaJSON))
	})
	return envelopeSchema, envelopeSchemaErr
}

// validateEnvelope checks the raw document against the envelope schema.
// Malformed JSON surfaces as a CanonicalizationError; a well-formed document
// with the wrong shape surfaces as a SchemaError.
func validateEnvelope(raw []byte) error {
	schema, err := compiledEnvelopeSchema()
	if err != nil {
		return schemaErr("", "failed to compile envelope schema: %v", err)
	}

	result, err := schema.Validate(gojsonschema.NewBytesLoader(raw))
	if err != nil {
		return canonErr("", "invalid JSON: %v", err)
	}
	if !result.Valid() {
		var b strings.Builder
		for _, e := range result.Errors() {
			if b.Len() > 0 {
				b.WriteString("; ")
			}
			b.WriteString(e.String())
		}
		return schemaErr("", "envelope does not match typed-data shape: %s", b.String())
	}
	return nil
}

// atomicKind is the closed set of leaf value types the canonicalizer and the
// digester dispatch on. Struct references and arrays are handled separately.
type atomicKind int

const (
	kindInvalid atomicKind = iota
	kindAddress
	kindBool
	kindString
	kindDynamicBytes
	kindFixedBytes // bytes1..bytes32, size in bytes
	kindUint       // uint8..uint256, size in bits
	kindInt        // int8..int256, size in bits
)

// atomicType classifies a non-array, non-struct type string. The size is the
// byte width for fixed bytes and the bit width for integers.
func atomicType(encType string) (atomicKind, int) {
	switch encType {
	case "address":
		return kindAddress, 0
	case "bool":
		return kindBool, 0
	case "string":
		return kindString, 0
	case "bytes":
		return kindDynamicBytes, 0
	}
	if strings.HasPrefix(encType, "bytes") {
		n, err := strconv.Atoi(encType[len("bytes"):])
		if err != nil || n < 1 || n > 32 {
			return kindInvalid, 0
		}
		return kindFixedBytes, n
	}
	if strings.HasPrefix(encType, "uint") {
		bits, err := strconv.Atoi(encType[len("uint"):])
		if err != nil || bits < 8 || bits > 256 || bits%8 != 0 {
			return kindInvalid, 0
		}
		return kindUint, bits
	}
	if strings.HasPrefix(encType, "int") {
		bits, err := strconv.Atoi(encType[len("int"):])
		if err != nil || bits < 8 || bits > 256 || bits%8 != 0 {
			return kindInvalid, 0
		}
		return kindInt, bits
	}
	return kindInvalid, 0
}

// splitArraySuffix splits "T[]" into ("T", -1, true) and "T[n]" into
// ("T", n, true). Non-array types return ok=false.
func splitArraySuffix(encType string) (elem string, size int, ok bool) {
	if !strings.HasSuffix(encType, "]") {
		return "", 0, false
	}
	open := strings.LastIndex(encType, "[")
	if open <= 0 {
		return "", 0, false
	}
	inner := encType[open+1 : len(encType)-1]
	if inner == "" {
		return encType[:open], -1, true
	}
	n, err := strconv.Atoi(inner)
	if err != nil || n < 0 {
		return "", 0, false
	}
	return encType[:open], n, true
}

// Domain fields EIP-712 defines, with the types they must be declared as.
var domainFieldTypes = map[string]string{
	"name":              "string",
	"version":           "string",
	"chainId":           "uint256",
	"verifyingContract": "address",
	"salt":              "bytes32",
}

// validateTypes checks the type graph: every declared field type must resolve
// to an atomic type, a declared struct type, or a single-level array of
// either; the primary type must be a declared struct; EIP712Domain must be
// declared and restricted to the standard domain fields.
func validateTypes(types apitypes.Types, primaryType string) error {
	for name, fields := range types {
		if !typeNameRe.MatchString(name) {
			return schemaErr(name, "invalid type name")
		}
		if kind, _ := atomicType(name); kind != kindInvalid {
			return schemaErr(name, "type name collides with atomic type")
		}
		seen := make(map[string]bool, len(fields))
		for _, f := range fields {
			if f.Name == "" {
				return schemaErr(name, "field with empty name")
			}
			if seen[f.Name] {
				return schemaErr(name, "duplicate field %q", f.Name)
			}
			seen[f.Name] = true

			encType := f.Type
			if elem, _, isArr := splitArraySuffix(encType); isArr {
				if _, _, nested := splitArraySuffix(elem); nested {
					return schemaErr(name, "field %q: nested array type %q not supported", f.Name, f.Type)
				}
				encType = elem
			}
			if _, isStruct := types[encType]; isStruct {
				continue
			}
			if kind, _ := atomicType(encType); kind == kindInvalid {
				return schemaErr(name, "field %q has unknown type %q", f.Name, f.Type)
			}
		}
	}

	domainFields, ok := types["EIP712Domain"]
	if !ok {
		return schemaErr("", "missing EIP712Domain type")
	}
	for _, f := range domainFields {
		want, known := domainFieldTypes[f.Name]
		if !known {
			return schemaErr("EIP712Domain", "unknown domain field %q", f.Name)
		}
		if f.Type != want {
			return schemaErr("EIP712Domain", "domain field %q must be %q, got %q", f.Name, want, f.Type)
		}
	}

	if primaryType == "EIP712Domain" {
		return schemaErr("", "primaryType must not be EIP712Domain")
	}
	if _, ok := types[primaryType]; !ok {
		return schemaErr("", "primaryType %q not declared in types", primaryType)
	}
	return nil
}
