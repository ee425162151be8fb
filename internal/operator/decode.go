package operator

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
)

// The API answers with positional arrays mixing numbers and strings, so
// values are decoded lazily from raw JSON.

type array []json.RawMessage

func decodeArray(raw json.RawMessage) (array, error) {
	var a array
	if err := json.Unmarshal(raw, &a); err != nil {
		return nil, fmt.Errorf("expected array: %w", err)
	}
	return a, nil
}

func (a array) at(index int) (json.RawMessage, error) {
	if index < 0 || index >= len(a) {
		return nil, fmt.Errorf("index %d out of range (len %d)", index, len(a))
	}
	return a[index], nil
}

func (a array) arrayAt(index int) (array, error) {
	raw, err := a.at(index)
	if err != nil {
		return nil, err
	}
	return decodeArray(raw)
}

func (a array) intAt(index int) (int64, error) {
	raw, err := a.at(index)
	if err != nil {
		return 0, err
	}
	return asInt64(raw)
}

func (a array) floatAt(index int) (float64, error) {
	raw, err := a.at(index)
	if err != nil {
		return 0, err
	}
	return asFloat(raw)
}

func (a array) stringAt(index int) (string, error) {
	raw, err := a.at(index)
	if err != nil {
		return "", err
	}
	return asString(raw)
}

// asString accepts a JSON string or number and returns its text.
func asString(raw json.RawMessage) (string, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) > 0 && raw[0] == '"' {
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return "", err
		}
		return s, nil
	}
	var n json.Number
	if err := json.Unmarshal(raw, &n); err != nil {
		return "", fmt.Errorf("expected string or number, got %s", raw)
	}
	return n.String(), nil
}

func asInt64(raw json.RawMessage) (int64, error) {
	s, err := asString(raw)
	if err != nil {
		return 0, err
	}
	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("expected integer: %w", err)
	}
	return n, nil
}

func asFloat(raw json.RawMessage) (float64, error) {
	s, err := asString(raw)
	if err != nil {
		return 0, err
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, fmt.Errorf("expected number: %w", err)
	}
	return f, nil
}
