package typeddata

import "fmt"

// SchemaError reports a problem in the type section of a typed-data document:
// an envelope that does not match the expected shape, an unknown or malformed
// field type, or an inconsistent type graph. Raised at construction time,
// before any canonical bytes are produced.
type SchemaError struct {
	Type   string // type name the problem was found in, if any
	Reason string
}

func (e *SchemaError) Error() string {
	if e.Type != "" {
		return fmt.Sprintf("schema error in type %q: %s", e.Type, e.Reason)
	}
	return fmt.Sprintf("schema error: %s", e.Reason)
}

func schemaErr(typeName, format string, args ...interface{}) *SchemaError {
	return &SchemaError{Type: typeName, Reason: fmt.Sprintf(format, args...)}
}

// CanonicalizationError reports a document that cannot be canonicalized under
// its own schema: missing or extra fields, values of the wrong kind, or
// malformed JSON. Never produces partial output.
type CanonicalizationError struct {
	Field  string // dotted path into the document, e.g. "message.permitted.token"
	Reason string
}

func (e *CanonicalizationError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("cannot canonicalize %s: %s", e.Field, e.Reason)
	}
	return fmt.Sprintf("cannot canonicalize document: %s", e.Reason)
}

func canonErr(field, format string, args ...interface{}) *CanonicalizationError {
	return &CanonicalizationError{Field: field, Reason: fmt.Sprintf(format, args...)}
}
