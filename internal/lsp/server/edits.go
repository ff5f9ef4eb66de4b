package server

import (
	"bytes"

	protocol "github.com/tliron/glsp/protocol_3_16"
)

// contentChange accepts both the ranged and the whole-document form of
// TextDocumentContentChangeEvent.
type contentChange struct {
	Range *protocol.Range `json:"range,omitempty"`
	Text  string          `json:"text"`
}

type didChangeParams struct {
	TextDocument   protocol.VersionedTextDocumentIdentifier `json:"textDocument"`
	ContentChanges []contentChange                          `json:"contentChanges"`
}

// applyChanges folds the changes, in order, onto content.
func applyChanges(content []byte, changes []contentChange) []byte {
	out := content
	for _, change := range changes {
		if change.Range == nil {
			out = []byte(change.Text)
			continue
		}
		start := positionOffset(out, change.Range.Start)
		end := positionOffset(out, change.Range.End)
		if end < start {
			start, end = end, start
		}
		next := make([]byte, 0, len(out)-(end-start)+len(change.Text))
		next = append(next, out[:start]...)
		next = append(next, change.Text...)
		next = append(next, out[end:]...)
		out = next
	}
	return out
}

func positionOffset(content []byte, pos protocol.Position) int {
	start := 0
	for i := uint32(0); i < pos.Line; i++ {
		idx := bytes.IndexByte(content[start:], '\n')
		if idx < 0 {
			return len(content)
		}
		start += idx + 1
	}
	lineEnd := len(content)
	if idx := bytes.IndexByte(content[start:], '\n'); idx >= 0 {
		lineEnd = start + idx
	}
	return start + byteOffset(content[start:lineEnd], pos.Character)
}
