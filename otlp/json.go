package otlp

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"

	jsoniter "github.com/json-iterator/go"
)

// api keeps numbers exact when a value is passed through untouched.
var api = jsoniter.Config{UseNumber: true}.Froze()

// readDocument reads one complete JSON value. Members stay lazy, so one bad
// member only affects the value it belongs to.
func readDocument(data []byte) (jsoniter.Any, error) {
	iter := api.BorrowIterator(data)
	defer api.ReturnIterator(iter)

	doc := iter.ReadAny()
	if iter.Error != nil {
		return nil, iter.Error
	}
	if doc.ValueType() == jsoniter.InvalidValue {
		return nil, errors.New("empty input")
	}
	if iter.WhatIsNext() != jsoniter.InvalidValue {
		return nil, errors.New("unexpected data after top-level value")
	}
	return doc, nil
}

func isNull(a jsoniter.Any) bool {
	if a == nil {
		return true
	}
	t := a.ValueType()
	return t == jsoniter.InvalidValue || t == jsoniter.NilValue
}

func isObject(a jsoniter.Any) bool {
	return a != nil && a.ValueType() == jsoniter.ObjectValue
}

// has returns the first of names present in obj, null included.
func has(obj jsoniter.Any, names ...string) (jsoniter.Any, bool) {
	if !isObject(obj) {
		return nil, false
	}
	for _, n := range names {
		if v := obj.Get(n); v.ValueType() != jsoniter.InvalidValue {
			return v, true
		}
	}
	return nil, false
}

// field returns the first of names present in obj with a non-null value.
func field(obj jsoniter.Any, names ...string) (jsoniter.Any, bool) {
	if !isObject(obj) {
		return nil, false
	}
	for _, n := range names {
		if v := obj.Get(n); !isNull(v) {
			return v, true
		}
	}
	return nil, false
}

// firstSet returns the first of names whose value is not empty: null, false,
// zero, "" and empty containers are skipped.
func firstSet(obj jsoniter.Any, names ...string) (jsoniter.Any, bool) {
	if !isObject(obj) {
		return nil, false
	}
	for _, n := range names {
		if v := obj.Get(n); isSet(v) {
			return v, true
		}
	}
	return nil, false
}

func isSet(a jsoniter.Any) bool {
	switch a.ValueType() {
	case jsoniter.ArrayValue, jsoniter.ObjectValue:
		return a.Size() > 0
	case jsoniter.StringValue:
		return a.ToString() != ""
	case jsoniter.NumberValue:
		return a.ToFloat64() != 0
	case jsoniter.BoolValue:
		return a.ToBool()
	}
	return false
}

// elements returns the items of a JSON array.
func elements(a jsoniter.Any) ([]jsoniter.Any, bool) {
	if a == nil || a.ValueType() != jsoniter.ArrayValue {
		return nil, false
	}
	items := []jsoniter.Any{}
	a.ToVal(&items)
	return items, true
}

func toString(a jsoniter.Any) (string, error) {
	if a.ValueType() != jsoniter.StringValue {
		return "", fmt.Errorf("expected string, got %s", describe(a))
	}
	return a.ToString(), nil
}

func toBool(a jsoniter.Any) (bool, error) {
	if a.ValueType() != jsoniter.BoolValue {
		return false, fmt.Errorf("expected boolean, got %s", describe(a))
	}
	return a.ToBool(), nil
}

// numericText returns the literal of a number, or the content of a string
// that is expected to hold one.
func numericText(a jsoniter.Any) (string, bool) {
	switch a.ValueType() {
	case jsoniter.NumberValue, jsoniter.StringValue:
		return strings.TrimSpace(a.ToString()), true
	}
	return "", false
}

func toInt64(a jsoniter.Any) (int64, error) {
	text, ok := numericText(a)
	if !ok {
		return 0, fmt.Errorf("expected integer, got %s", describe(a))
	}
	if n, err := strconv.ParseInt(text, 10, 64); err == nil {
		return n, nil
	}
	f, err := strconv.ParseFloat(text, 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, fmt.Errorf("expected integer, got %s", describe(a))
	}
	if f >= math.MaxInt64 || f < math.MinInt64 {
		return 0, fmt.Errorf("integer out of range: %s", describe(a))
	}
	return int64(f), nil
}

func toFloat64(a jsoniter.Any) (float64, error) {
	text, ok := numericText(a)
	if !ok {
		return 0, fmt.Errorf("expected number, got %s", describe(a))
	}
	f, err := strconv.ParseFloat(text, 64)
	if err != nil {
		return 0, fmt.Errorf("expected number, got %s", describe(a))
	}
	return f, nil
}

// stringField returns the first non-empty string among names. A present
// value that is not a string is an error.
func stringField(obj jsoniter.Any, names ...string) (string, error) {
	if !isObject(obj) {
		return "", nil
	}
	for _, n := range names {
		v := obj.Get(n)
		if isNull(v) {
			continue
		}
		s, err := toString(v)
		if err != nil {
			return "", fmt.Errorf("%s: %w", n, err)
		}
		if s != "" {
			return s, nil
		}
	}
	return "", nil
}

// int64Field reads an integer given either as a JSON number or as a string.
func int64Field(obj jsoniter.Any, names ...string) (int64, error) {
	v, ok := field(obj, names...)
	if !ok {
		return 0, nil
	}
	n, err := toInt64(v)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", names[0], err)
	}
	return n, nil
}

var valueTypeNames = map[jsoniter.ValueType]string{
	jsoniter.InvalidValue: "nothing",
	jsoniter.StringValue:  "string",
	jsoniter.NumberValue:  "number",
	jsoniter.NilValue:     "null",
	jsoniter.BoolValue:    "boolean",
	jsoniter.ArrayValue:   "array",
	jsoniter.ObjectValue:  "object",
}

func describe(a jsoniter.Any) string {
	const limit = 64
	text := a.ToString()
	if len(text) > limit {
		text = text[:limit] + ".."
	}
	return fmt.Sprintf("%s %q", valueTypeNames[a.ValueType()], text)
}
