package slack

import (
	"bytes"
	"encoding/json"
)

// assembler reassembles stream fragments into complete frames. Fragments
// are concatenated until the buffer forms a syntactically complete JSON
// document; most frames arrive whole, so the common case is a single Push
// returning immediately.
type assembler struct {
	buf bytes.Buffer
}

// Push appends a fragment and returns the assembled frame once the buffer
// is a well-formed document. The returned slice is the caller's to keep.
func (a *assembler) Push(fragment []byte) ([]byte, bool) {
	a.buf.Write(fragment)
	if !json.Valid(a.buf.Bytes()) {
		return nil, false
	}
	frame := make([]byte, a.buf.Len())
	copy(frame, a.buf.Bytes())
	a.buf.Reset()
	return frame, true
}

// Pending reports whether a partial frame is buffered.
func (a *assembler) Pending() bool {
	return a.buf.Len() > 0
}
