package otlp

import (
	"encoding/base64"
	"fmt"

	jsoniter "github.com/json-iterator/go"
	"go.opentelemetry.io/collector/pdata/pcommon"
)

// valueTag pairs the snake_case and camelCase spelling of one AnyValue variant.
type valueTag struct {
	snake, camel string
}

var (
	tagString = valueTag{"string_value", "stringValue"}
	tagInt    = valueTag{"int_value", "intValue"}
	tagDouble = valueTag{"double_value", "doubleValue"}
	tagBool   = valueTag{"bool_value", "boolValue"}
	tagArray  = valueTag{"array_value", "arrayValue"}
	tagKVList = valueTag{"kvlist_value", "kvlistValue"}
	tagBytes  = valueTag{"bytes_value", "bytesValue"}
)

// FlattenAttributes converts an OTLP attribute list into a map. Entries
// without a usable key or with a non-object value are dropped, and a later
// duplicate key replaces the earlier value. An error is returned only when a
// value cannot be converted to the type its tag announces.
func FlattenAttributes(raw []byte) (pcommon.Map, error) {
	doc, err := readDocument(raw)
	if err != nil {
		return pcommon.NewMap(), nil
	}
	return flattenAttributes(doc)
}

func flattenAttributes(list jsoniter.Any) (pcommon.Map, error) {
	m := pcommon.NewMap()
	entries, ok := elements(list)
	if !ok {
		return m, nil
	}
	for _, kv := range entries {
		if !isObject(kv) {
			continue
		}
		keyVal, ok := has(kv, "key")
		if !ok {
			continue
		}
		key, err := toString(keyVal)
		if err != nil || key == "" {
			continue
		}

		v := pcommon.NewValueEmpty()
		if value, present := has(kv, "value"); present {
			if !isObject(value) {
				continue
			}
			if err := decodeValue(v, value); err != nil {
				return m, fmt.Errorf("attribute %q: %w", key, err)
			}
		}
		v.CopyTo(m.PutEmpty(key))
	}
	return m, nil
}

// decodeValue fills v from one OTLP AnyValue object. The first tag present
// wins; an object without a known tag leaves v empty.
func decodeValue(v pcommon.Value, obj jsoniter.Any) error {
	if raw, ok := has(obj, tagString.snake, tagString.camel); ok {
		if isNull(raw) {
			return nil
		}
		s, err := toString(raw)
		if err != nil {
			return err
		}
		v.SetStr(s)
		return nil
	}
	if raw, ok := has(obj, tagInt.snake, tagInt.camel); ok {
		if isNull(raw) {
			return nil
		}
		n, err := toInt64(raw)
		if err != nil {
			return err
		}
		v.SetInt(n)
		return nil
	}
	if raw, ok := has(obj, tagDouble.snake, tagDouble.camel); ok {
		if isNull(raw) {
			return nil
		}
		f, err := toFloat64(raw)
		if err != nil {
			return err
		}
		v.SetDouble(f)
		return nil
	}
	if raw, ok := has(obj, tagBool.snake, tagBool.camel); ok {
		if isNull(raw) {
			return nil
		}
		b, err := toBool(raw)
		if err != nil {
			return err
		}
		v.SetBool(b)
		return nil
	}
	if raw, ok := has(obj, tagArray.snake, tagArray.camel); ok {
		return decodeArrayValue(v.SetEmptySlice(), raw)
	}
	if raw, ok := has(obj, tagKVList.snake, tagKVList.camel); ok {
		return decodeKVList(v.SetEmptyMap(), raw)
	}
	if raw, ok := has(obj, tagBytes.snake, tagBytes.camel); ok {
		if isNull(raw) {
			return nil
		}
		s, err := toString(raw)
		if err != nil {
			return err
		}
		b, err := base64.StdEncoding.DecodeString(s)
		if err != nil {
			// Not base64: keep the text as written.
			v.SetStr(s)
			return nil
		}
		v.SetEmptyBytes().FromRaw(b)
		return nil
	}
	return nil
}

func decodeArrayValue(s pcommon.Slice, container jsoniter.Any) error {
	values, ok := elements(containerValues(container))
	if !ok {
		return nil
	}
	s.EnsureCapacity(len(values))
	for _, item := range values {
		elem := s.AppendEmpty()
		if !isObject(item) {
			continue
		}
		if err := decodeValue(elem, item); err != nil {
			return err
		}
	}
	return nil
}

func decodeKVList(m pcommon.Map, container jsoniter.Any) error {
	values, ok := elements(containerValues(container))
	if !ok {
		return nil
	}
	for _, kv := range values {
		if !isObject(kv) {
			continue
		}
		var key string
		if keyVal, ok := field(kv, "key"); ok {
			k, err := toString(keyVal)
			if err != nil {
				continue
			}
			key = k
		}
		v := pcommon.NewValueEmpty()
		if value, ok := field(kv, "value"); ok && isObject(value) {
			if err := decodeValue(v, value); err != nil {
				return fmt.Errorf("kvlist %q: %w", key, err)
			}
		}
		v.CopyTo(m.PutEmpty(key))
	}
	return nil
}

func containerValues(container jsoniter.Any) jsoniter.Any {
	values, _ := has(container, "values")
	return values
}
