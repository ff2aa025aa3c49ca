package notion

import (
	"bytes"
	"encoding/json"
)

// maxSearchDepth bounds the recursion over nested payloads. Notion documents
// are shallow in practice; the limit only guards against pathological input.
const maxSearchDepth = 64

// findKey performs a depth-first search over a JSON document for the first
// occurrence of key, returning its raw value. At each object, keys at the
// current level are checked before descending into values, and both keys and
// array elements are visited in document order.
func findKey(raw json.RawMessage, key string) (json.RawMessage, bool) {
	return findKeyAtDepth(raw, key, 0)
}

func findKeyAtDepth(raw json.RawMessage, key string, depth int) (json.RawMessage, bool) {
	if depth > maxSearchDepth || len(raw) == 0 {
		return nil, false
	}

	switch firstByte(raw) {
	case '{':
		pairs, err := decodeOrdered(raw)
		if err != nil {
			return nil, false
		}

		for _, p := range pairs {
			if p.key == key {
				return p.value, true
			}
		}

		for _, p := range pairs {
			if v, found := findKeyAtDepth(p.value, key, depth+1); found {
				return v, true
			}
		}
	case '[':
		var elems []json.RawMessage
		if err := json.Unmarshal(raw, &elems); err != nil {
			return nil, false
		}

		for _, elem := range elems {
			if v, found := findKeyAtDepth(elem, key, depth+1); found {
				return v, true
			}
		}
	}

	return nil, false
}

type pair struct {
	key   string
	value json.RawMessage
}

// decodeOrdered parses an object into key/value pairs preserving document
// order, which map-based decoding would lose.
func decodeOrdered(raw json.RawMessage) ([]pair, error) {
	dec := json.NewDecoder(bytes.NewReader(raw))

	if _, err := dec.Token(); err != nil { // consume '{'
		return nil, err
	}

	var pairs []pair

	for dec.More() {
		keyTok, err := dec.Token()
		if err != nil {
			return nil, err
		}

		k, _ := keyTok.(string)

		var value json.RawMessage
		if err := dec.Decode(&value); err != nil {
			return nil, err
		}

		pairs = append(pairs, pair{key: k, value: value})
	}

	return pairs, nil
}

func firstByte(raw json.RawMessage) byte {
	trimmed := bytes.TrimLeft(raw, " \t\r\n")
	if len(trimmed) == 0 {
		return 0
	}

	return trimmed[0]
}
