package store

import (
	"bytes"
	"encoding/json"
	"strings"

	"github.com/pkg/errors"
)

// Empty returns the document served for collections with no stored data.
func Empty() json.RawMessage {
	return json.RawMessage("[]")
}

// Encode formats doc the way it is persisted: two-space indentation, key
// order and string contents exactly as received, non-ASCII left unescaped.
// A nil document encodes as an empty array.
func Encode(doc json.RawMessage) ([]byte, error) {
	if len(doc) == 0 {
		doc = Empty()
	}
	var buf bytes.Buffer
	if err := json.Indent(&buf, doc, "", "  "); err != nil {
		return nil, errors.Wrap(err, "encode document")
	}
	return bytes.TrimSpace(buf.Bytes()), nil
}

func checkName(collection string) error {
	if collection == "" || strings.ContainsAny(collection, `/\`) || strings.HasPrefix(collection, ".") {
		return errors.Errorf("invalid collection name %q", collection)
	}
	return nil
}
