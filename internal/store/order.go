package store

import (
	"bytes"
	"encoding/json"
	"fmt"
	"slices"
	"sort"
	"strconv"
	"strings"
)

// keyOrder records the key order of every object in a decoded document,
// keyed by JSON pointer ("" for the root).
type keyOrder map[string][]string

var pointerEscaper = strings.NewReplacer("~", "~0", "/", "~1")

func childPath(path, key string) string {
	return path + "/" + pointerEscaper.Replace(key)
}

// scanKeyOrder reads the key order of data, which must already be known to
// be valid JSON.
func scanKeyOrder(data []byte) (keyOrder, error) {
	order := keyOrder{}
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	if err := scanValue(dec, "", order); err != nil {
		return nil, err
	}
	return order, nil
}

func scanValue(dec *json.Decoder, path string, order keyOrder) error {
	tok, err := dec.Token()
	if err != nil {
		return err
	}
	switch tok {
	case json.Delim('{'):
		var keys []string
		for dec.More() {
			kt, err := dec.Token()
			if err != nil {
				return err
			}
			key, ok := kt.(string)
			if !ok {
				return fmt.Errorf("unexpected object key %v", kt)
			}
			if !slices.Contains(keys, key) {
				keys = append(keys, key)
			}
			if err := scanValue(dec, childPath(path, key), order); err != nil {
				return err
			}
		}
		order[path] = keys
		_, err = dec.Token()
		return err
	case json.Delim('['):
		for i := 0; dec.More(); i++ {
			if err := scanValue(dec, childPath(path, strconv.Itoa(i)), order); err != nil {
				return err
			}
		}
		_, err = dec.Token()
		return err
	}
	return nil
}

// orderedObject marshals its keys in the order given.
type orderedObject struct {
	keys   []string
	values []any
}

func (o orderedObject) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, k := range o.keys {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := marshalValue(k)
		if err != nil {
			return nil, err
		}
		val, err := marshalValue(o.values[i])
		if err != nil {
			return nil, err
		}
		buf.Write(key)
		buf.WriteByte(':')
		buf.Write(val)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

func marshalValue(v any) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return nil, err
	}
	return bytes.TrimRight(buf.Bytes(), "\n"), nil
}

// arrange rebuilds v so that every object lists the keys it was read with
// first, in their original order, followed by new keys sorted by name.
func arrange(v any, path string, order keyOrder) any {
	switch v := v.(type) {
	case map[string]any:
		keys := make([]string, 0, len(v))
		for _, k := range order[path] {
			if _, ok := v[k]; ok {
				keys = append(keys, k)
			}
		}
		var added []string
		for k := range v {
			if !slices.Contains(keys, k) {
				added = append(added, k)
			}
		}
		sort.Strings(added)
		keys = append(keys, added...)

		obj := orderedObject{keys: keys, values: make([]any, len(keys))}
		for i, k := range keys {
			obj.values[i] = arrange(v[k], childPath(path, k), order)
		}
		return obj
	case []any:
		out := make([]any, len(v))
		for i, item := range v {
			out[i] = arrange(item, childPath(path, strconv.Itoa(i)), order)
		}
		return out
	}
	return v
}
