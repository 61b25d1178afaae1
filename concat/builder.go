// Package concat joins canonicalized typed-data messages into a single
// signable buffer and keeps the byte-range bookkeeping for it.
package concat

import (
	"fmt"

	"single-sign/shared"
	"single-sign/typeddata"
)

// Aggregate is an ordered concatenation of canonical typed-data byte strings
// with no separator, plus the [start,end) range of each message inside the
// buffer. The ranges partition the buffer exactly: contiguous, in order,
// first starts at 0, last ends at len(Buffer).
type Aggregate struct {
	Buffer []byte
	Ranges []shared.DigestRange
}

// Build canonicalizes each document in the given order and concatenates the
// results. Order is caller-controlled and part of what gets signed; there is
// no deduplication or reordering. Building twice from the same documents
// yields byte-identical output.
func Build(docs []*typeddata.Document) (*Aggregate, error) {
	if len(docs) == 0 {
		return nil, fmt.Errorf("no documents to aggregate")
	}

	agg := &Aggregate{
		Ranges: make([]shared.DigestRange, 0, len(docs)),
	}
	for _, doc := range docs {
		canonical := doc.Canonicalize()
		start := len(agg.Buffer)
		agg.Buffer = append(agg.Buffer, canonical...)
		agg.Ranges = append(agg.Ranges, shared.DigestRange{Start: start, End: len(agg.Buffer)})
	}
	return agg, nil
}

// Slice returns the buffer bytes a range covers.
func (a *Aggregate) Slice(r shared.DigestRange) ([]byte, error) {
	if r.Start < 0 || r.End < r.Start || r.End > len(a.Buffer) {
		return nil, fmt.Errorf("range %s out of bounds for %d-byte buffer", r, len(a.Buffer))
	}
	return a.Buffer[r.Start:r.End], nil
}
