package typeddata

import (
	"bytes"
	"encoding/json"
	"math"
	"math/big"
	"sort"
	"strconv"
	"strings"

	gojson "github.com/coreos/go-json"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/signer/core/apitypes"
)

// The canonical form is the unique compact serialization both signing and
// slice verification depend on: two independent passes over the same logical
// document must emit byte-identical output. Layout is fixed as
// {"types":...,"primaryType":...,"domain":...,"message":...} with type names
// sorted, per-type field lists and message fields in declared order, integers
// as decimal literals, and hex strings lowercased.

type canonicalWriter struct {
	buf   bytes.Buffer
	types apitypes.Types
}

func (w *canonicalWriter) writeDocument(d *Document) error {
	w.buf.WriteString(`{"types":`)
	if err := w.writeTypes(); err != nil {
		return err
	}
	w.buf.WriteString(`,"primaryType":`)
	if err := w.writeJSONString(d.primaryType); err != nil {
		return err
	}
	w.buf.WriteString(`,"domain":`)
	if err := w.writeDomain(d.domain); err != nil {
		return err
	}
	w.buf.WriteString(`,"message":`)
	if err := w.writeStruct(d.primaryType, d.message, "message"); err != nil {
		return err
	}
	w.buf.WriteByte('}')
	return nil
}

func (w *canonicalWriter) writeTypes() error {
	names := make([]string, 0, len(w.types))
	for name := range w.types {
		names = append(names, name)
	}
	sort.Strings(names)

	w.buf.WriteByte('{')
	for i, name := range names {
		if i > 0 {
			w.buf.WriteByte(',')
		}
		if err := w.writeJSONString(name); err != nil {
			return err
		}
		w.buf.WriteString(`:[`)
		for j, f := range w.types[name] {
			if j > 0 {
				w.buf.WriteByte(',')
			}
			w.buf.WriteString(`{"name":`)
			if err := w.writeJSONString(f.Name); err != nil {
				return err
			}
			w.buf.WriteString(`,"type":`)
			if err := w.writeJSONString(f.Type); err != nil {
				return err
			}
			w.buf.WriteByte('}')
		}
		w.buf.WriteByte(']')
	}
	w.buf.WriteByte('}')
	return nil
}

// writeDomain emits the domain fields in the order EIP712Domain declares
// them. A declared field with no value, or a populated field that is not
// declared, makes the domain separator ambiguous and is rejected.
func (w *canonicalWriter) writeDomain(domain apitypes.TypedDataDomain) error {
	declared := make(map[string]bool)
	w.buf.WriteByte('{')
	for i, f := range w.types["EIP712Domain"] {
		declared[f.Name] = true
		if i > 0 {
			w.buf.WriteByte(',')
		}
		if err := w.writeJSONString(f.Name); err != nil {
			return err
		}
		w.buf.WriteByte(':')
		path := "domain." + f.Name
		switch f.Name {
		case "name":
			if domain.Name == "" {
				return canonErr(path, "declared but not set")
			}
			if err := w.writeJSONString(domain.Name); err != nil {
				return err
			}
		case "version":
			if domain.Version == "" {
				return canonErr(path, "declared but not set")
			}
			if err := w.writeJSONString(domain.Version); err != nil {
				return err
			}
		case "chainId":
			if domain.ChainId == nil {
				return canonErr(path, "declared but not set")
			}
			w.buf.WriteString((*big.Int)(domain.ChainId).String())
		case "verifyingContract":
			if domain.VerifyingContract == "" {
				return canonErr(path, "declared but not set")
			}
			if err := w.writeAddress(domain.VerifyingContract, path); err != nil {
				return err
			}
		case "salt":
			if domain.Salt == "" {
				return canonErr(path, "declared but not set")
			}
			if err := w.writeBytes(domain.Salt, 32, path); err != nil {
				return err
			}
		}
	}
	w.buf.WriteByte('}')

	if domain.Name != "" && !declared["name"] {
		return canonErr("domain.name", "set but not declared in EIP712Domain")
	}
	if domain.Version != "" && !declared["version"] {
		return canonErr("domain.version", "set but not declared in EIP712Domain")
	}
	if domain.ChainId != nil && !declared["chainId"] {
		return canonErr("domain.chainId", "set but not declared in EIP712Domain")
	}
	if domain.VerifyingContract != "" && !declared["verifyingContract"] {
		return canonErr("domain.verifyingContract", "set but not declared in EIP712Domain")
	}
	if domain.Salt != "" && !declared["salt"] {
		return canonErr("domain.salt", "set but not declared in EIP712Domain")
	}
	return nil
}

func (w *canonicalWriter) writeStruct(typeName string, obj map[string]interface{}, path string) error {
	fields := w.types[typeName]
	w.buf.WriteByte('{')
	for i, f := range fields {
		if i > 0 {
			w.buf.WriteByte(',')
		}
		v, ok := obj[f.Name]
		if !ok {
			return canonErr(path+"."+f.Name, "missing field of type %s", f.Type)
		}
		if err := w.writeJSONString(f.Name); err != nil {
			return err
		}
		w.buf.WriteByte(':')
		if err := w.writeValue(f.Type, v, path+"."+f.Name); err != nil {
			return err
		}
	}
	w.buf.WriteByte('}')

	if len(obj) != len(fields) {
		names := make(map[string]bool, len(fields))
		for _, f := range fields {
			names[f.Name] = true
		}
		for k := range obj {
			if !names[k] {
				return canonErr(path+"."+k, "field not declared in type %s", typeName)
			}
		}
	}
	return nil
}

func (w *canonicalWriter) writeValue(encType string, v interface{}, path string) error {
	if elem, size, isArr := splitArraySuffix(encType); isArr {
		arr, ok := v.([]interface{})
		if !ok {
			return canonErr(path, "expected array for type %s, got %T", encType, v)
		}
		if size >= 0 && len(arr) != size {
			return canonErr(path, "fixed-size array %s needs %d elements, got %d", encType, size, len(arr))
		}
		w.buf.WriteByte('[')
		for i, e := range arr {
			if i > 0 {
				w.buf.WriteByte(',')
			}
			if err := w.writeValue(elem, e, path+"["+strconv.Itoa(i)+"]"); err != nil {
				return err
			}
		}
		w.buf.WriteByte(']')
		return nil
	}

	if _, isStruct := w.types[encType]; isStruct {
		obj, ok := v.(map[string]interface{})
		if !ok {
			return canonErr(path, "expected object for type %s, got %T", encType, v)
		}
		return w.writeStruct(encType, obj, path)
	}

	kind, size := atomicType(encType)
	switch kind {
	case kindString:
		s, ok := v.(string)
		if !ok {
			return canonErr(path, "expected string, got %T", v)
		}
		return w.writeJSONString(s)
	case kindBool:
		b, ok := v.(bool)
		if !ok {
			return canonErr(path, "expected bool, got %T", v)
		}
		w.buf.WriteString(strconv.FormatBool(b))
		return nil
	case kindAddress:
		s, ok := v.(string)
		if !ok {
			return canonErr(path, "expected address string, got %T", v)
		}
		return w.writeAddress(s, path)
	case kindDynamicBytes:
		s, ok := v.(string)
		if !ok {
			return canonErr(path, "expected hex string for bytes, got %T", v)
		}
		return w.writeBytes(s, -1, path)
	case kindFixedBytes:
		s, ok := v.(string)
		if !ok {
			return canonErr(path, "expected hex string for %s, got %T", encType, v)
		}
		return w.writeBytes(s, size, path)
	case kindUint:
		return w.writeInteger(v, size, false, path)
	case kindInt:
		return w.writeInteger(v, size, true, path)
	}
	return canonErr(path, "unknown type %s", encType)
}

// writeJSONString emits a JSON string with HTML escaping disabled, the one
// escaping convention canonical bytes use.
func (w *canonicalWriter) writeJSONString(s string) error {
	enc := json.NewEncoder(&w.buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(s); err != nil {
		return canonErr("", "failed to encode string: %v", err)
	}
	// Encode appends a newline; canonical form has none.
	w.buf.Truncate(w.buf.Len() - 1)
	return nil
}

func (w *canonicalWriter) writeAddress(s string, path string) error {
	if !common.IsHexAddress(s) {
		return canonErr(path, "invalid address %q", s)
	}
	addr := common.HexToAddress(s)
	w.buf.WriteByte('"')
	w.buf.WriteString("0x" + common.Bytes2Hex(addr.Bytes()))
	w.buf.WriteByte('"')
	return nil
}

// writeBytes emits lowercase 0x-prefixed hex. size < 0 means dynamic bytes.
func (w *canonicalWriter) writeBytes(s string, size int, path string) error {
	if !strings.HasPrefix(s, "0x") && !strings.HasPrefix(s, "0X") {
		return canonErr(path, "bytes value must be 0x-prefixed hex")
	}
	hexPart := s[2:]
	if len(hexPart)%2 != 0 {
		return canonErr(path, "odd-length hex in bytes value")
	}
	b := common.FromHex(s)
	if len(hexPart) > 0 && len(b) == 0 {
		return canonErr(path, "invalid hex in bytes value %q", s)
	}
	if len(b)*2 != len(hexPart) {
		return canonErr(path, "invalid hex in bytes value %q", s)
	}
	if size >= 0 && len(b) != size {
		return canonErr(path, "expected %d bytes, got %d", size, len(b))
	}
	w.buf.WriteByte('"')
	w.buf.WriteString("0x" + common.Bytes2Hex(b))
	w.buf.WriteByte('"')
	return nil
}

// writeInteger normalizes any accepted integer form (JSON number, decimal
// string, 0x-hex string) to a bare decimal literal and range-checks it
// against the declared bit width.
func (w *canonicalWriter) writeInteger(v interface{}, bits int, signed bool, path string) error {
	var (
		bi *big.Int
		ok bool
	)
	switch n := v.(type) {
	case gojson.Number:
		bi, ok = parseBigLiteral(string(n))
	case json.Number:
		bi, ok = parseBigLiteral(n.String())
	case string:
		bi, ok = parseBigLiteral(n)
	case *big.Int:
		bi, ok = n, true
	case int:
		bi, ok = big.NewInt(int64(n)), true
	case int64:
		bi, ok = big.NewInt(n), true
	case uint64:
		bi, ok = new(big.Int).SetUint64(n), true
	case float64:
		// Only integral values; callers with large numbers use strings.
		if n >= math.MinInt64 && n <= math.MaxInt64 && n == float64(int64(n)) {
			bi, ok = big.NewInt(int64(n)), true
		}
	default:
		return canonErr(path, "expected integer, got %T", v)
	}
	if !ok || bi == nil {
		return canonErr(path, "invalid integer value %v", v)
	}

	if signed {
		// [-2^(bits-1), 2^(bits-1))
		bound := new(big.Int).Lsh(big.NewInt(1), uint(bits-1))
		if bi.Cmp(new(big.Int).Neg(bound)) < 0 || bi.Cmp(bound) >= 0 {
			return canonErr(path, "value %s out of range for int%d", bi, bits)
		}
	} else {
		if bi.Sign() < 0 {
			return canonErr(path, "negative value %s for uint%d", bi, bits)
		}
		bound := new(big.Int).Lsh(big.NewInt(1), uint(bits))
		if bi.Cmp(bound) >= 0 {
			return canonErr(path, "value %s out of range for uint%d", bi, bits)
		}
	}

	w.buf.WriteString(bi.String())
	return nil
}

// parseBigLiteral accepts decimal (optionally signed) or unsigned 0x-hex
// integer literals. Exponent and fraction forms are rejected: canonical
// integers are plain decimal.
func parseBigLiteral(lit string) (*big.Int, bool) {
	if strings.HasPrefix(lit, "0x") || strings.HasPrefix(lit, "0X") {
		return new(big.Int).SetString(lit[2:], 16)
	}
	return new(big.Int).SetString(lit, 10)
}
