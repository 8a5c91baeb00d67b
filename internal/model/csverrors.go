package model

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// CSVRowErrors holds the error codes reported for one CSV row.
type CSVRowErrors struct {
	Row   string
	Codes []string
}

// CSVErrors is the row-indexed result of a rejected import. It keeps the
// rows in the order the server listed them, which is not necessarily
// numeric row order.
type CSVErrors []CSVRowErrors

// UnmarshalJSON decodes a JSON object of row -> codes, keeping key order.
func (e *CSVErrors) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	tok, err := dec.Token()
	if err != nil {
		return err
	}
	if tok == nil {
		*e = nil
		return nil
	}
	if d, ok := tok.(json.Delim); !ok || d != '{' {
		return fmt.Errorf("csv errors: expected object, got %v", tok)
	}

	var out CSVErrors
	for dec.More() {
		keyTok, err := dec.Token()
		if err != nil {
			return err
		}
		row, ok := keyTok.(string)
		if !ok {
			return fmt.Errorf("csv errors: unexpected key %v", keyTok)
		}
		var codes []string
		if err := dec.Decode(&codes); err != nil {
			return fmt.Errorf("csv errors for row %s: %w", row, err)
		}
		out = append(out, CSVRowErrors{Row: row, Codes: codes})
	}
	if _, err := dec.Token(); err != nil {
		return err
	}
	*e = out
	return nil
}

// MarshalJSON encodes the rows as a JSON object in their current order.
func (e CSVErrors) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, r := range e {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(r.Row)
		if err != nil {
			return nil, err
		}
		codes := r.Codes
		if codes == nil {
			codes = []string{}
		}
		val, err := json.Marshal(codes)
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
