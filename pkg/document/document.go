// Package document handles the key/value records policies evaluate
// against: JSON decoding on the ingestion path and nested path lookup.
//
// Documents are plain map[string]any trees. The engine never mutates
// them.
package document

import (
	"fmt"

	"github.com/valyala/fastjson"
)

// Document is an associative record under evaluation.
type Document = map[string]any

// FromJSON decodes a JSON object into a Document.
func FromJSON(data []byte) (Document, error) {
	var p fastjson.Parser
	v, err := p.ParseBytes(data)
	if err != nil {
		return nil, fmt.Errorf("invalid document JSON: %w", err)
	}
	obj, err := v.Object()
	if err != nil {
		return nil, fmt.Errorf("document must be a JSON object: %w", err)
	}
	doc, err := decodeObject(obj)
	if err != nil {
		return nil, err
	}
	return doc, nil
}

func decodeObject(obj *fastjson.Object) (map[string]any, error) {
	out := make(map[string]any, obj.Len())
	var visitErr error
	obj.Visit(func(key []byte, v *fastjson.Value) {
		if visitErr != nil {
			return
		}
		decoded, err := decodeValue(v)
		if err != nil {
			visitErr = err
			return
		}
		out[string(key)] = decoded
	})
	return out, visitErr
}

func decodeValue(v *fastjson.Value) (any, error) {
	switch v.Type() {
	case fastjson.TypeObject:
		obj, err := v.Object()
		if err != nil {
			return nil, err
		}
		return decodeObject(obj)
	case fastjson.TypeArray:
		items, err := v.Array()
		if err != nil {
			return nil, err
		}
		out := make([]any, len(items))
		for i, item := range items {
			decoded, err := decodeValue(item)
			if err != nil {
				return nil, err
			}
			out[i] = decoded
		}
		return out, nil
	case fastjson.TypeString:
		sb, err := v.StringBytes()
		if err != nil {
			return nil, err
		}
		return string(sb), nil
	case fastjson.TypeNumber:
		return v.Float64()
	case fastjson.TypeTrue:
		return true, nil
	case fastjson.TypeFalse:
		return false, nil
	case fastjson.TypeNull:
		return nil, nil
	default:
		return nil, fmt.Errorf("unsupported JSON value type %v", v.Type())
	}
}

// Lookup resolves a path through nested maps. It returns false when
// any segment is absent or a non-map value is traversed into.
func Lookup(doc map[string]any, path []string) (any, bool) {
	var current any = doc
	for _, seg := range path {
		m, ok := current.(map[string]any)
		if !ok {
			return nil, false
		}
		current, ok = m[seg]
		if !ok {
			return nil, false
		}
	}
	return current, true
}
