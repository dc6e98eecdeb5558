package polymarket

import (
	"encoding/json"
	"fmt"
)

// DecodeError reports a response body, or one element of it, that does not
// match the expected shape. The same request yields the same bytes, so it is
// never retried.
type DecodeError struct {
	What string
	Err  error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("decode %s: %v", e.What, e.Err)
}

func (e *DecodeError) Unwrap() error {
	return e.Err
}

func (e *DecodeError) Permanent() bool {
	return true
}

// Element is one entry of a JSON array response. Err is set when the entry
// could not be decoded into Value.
type Element[T any] struct {
	Value T
	Raw   json.RawMessage
	Err   error
}

// DecodeArray splits body into its elements and decodes each one on its own,
// so a malformed record does not take the rest of the page with it. Only a
// body that is not a JSON array fails as a whole.
func DecodeArray[T any](body []byte, what string) ([]Element[T], error) {
	var raws []json.RawMessage
	if err := json.Unmarshal(body, &raws); err != nil {
		return nil, &DecodeError{What: what, Err: err}
	}
	out := make([]Element[T], len(raws))
	for i, raw := range raws {
		out[i].Raw = raw
		var v T
		if err := json.Unmarshal(raw, &v); err != nil {
			out[i].Err = &DecodeError{What: fmt.Sprintf("%s[%d]", what, i), Err: err}
			continue
		}
		out[i].Value = v
	}
	return out, nil
}

// LookupString returns the named top-level field of a JSON object as text,
// accepting strings and numbers. It is used to label records that failed to
// decode.
func LookupString(raw json.RawMessage, field string) string {
	var obj map[string]json.RawMessage
	if err := json.Unmarshal(raw, &obj); err != nil {
		return ""
	}
	val, ok := obj[field]
	if !ok {
		return ""
	}
	var id ID
	if err := json.Unmarshal(val, &id); err != nil {
		return ""
	}
	return string(id)
}
