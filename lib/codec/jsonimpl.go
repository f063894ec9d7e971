package codec

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"strconv"
	"strings"
)

// maxExactFloat is the largest integer every smaller integer of which a float64 represents exactly
const maxExactFloat = 1 << 53

// NewJSONCodec creates a new codec using json encoding
func NewJSONCodec() ICodec {
	return &jsonCodecImpl{}
}

// jsonCodecImpl implements the ICodec interface using json encoding
type jsonCodecImpl struct {
}

// --------------------------------------------------------------------------
// Interface Methods (docu see codec.ICodec)
// --------------------------------------------------------------------------

func (j jsonCodecImpl) Serialize(v any, indent int) ([]byte, error) {
	return encodeJSON(v, indent)
}

func (j jsonCodecImpl) Deserialize(b []byte) (any, error) {
	return decodeJSON(b)
}

func (j jsonCodecImpl) Name() string {
	return "json"
}

// encodeJSON marshals v without html escaping and without the trailing newline
// json.Encoder appends.
func encodeJSON(v any, indent int) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if width := clampIndent(indent); width > 0 {
		enc.SetIndent("", strings.Repeat(" ", width))
	}
	if err := enc.Encode(v); err != nil {
		return nil, err
	}
	return bytes.TrimSuffix(buf.Bytes(), []byte("\n")), nil
}

// decodeJSON unmarshals a single json value. Numbers become float64, except
// integers outside of +-2^53 which become int64 (or uint64) so they survive a
// round trip unchanged.
func decodeJSON(b []byte) (any, error) {
	dec := json.NewDecoder(bytes.NewReader(b))
	dec.UseNumber()

	var v any
	if err := dec.Decode(&v); err != nil {
		return nil, err
	}
	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		return nil, errors.New("invalid character after top-level value")
	}
	return convertNumbers(v)
}

// convertNumbers replaces the json.Number values of a decoded tree in place
func convertNumbers(v any) (any, error) {
	switch t := v.(type) {
	case json.Number:
		return convertNumber(t)
	case map[string]any:
		for k, e := range t {
			c, err := convertNumbers(e)
			if err != nil {
				return nil, err
			}
			t[k] = c
		}
	case []any:
		for i, e := range t {
			c, err := convertNumbers(e)
			if err != nil {
				return nil, err
			}
			t[i] = c
		}
	}
	return v, nil
}

func convertNumber(n json.Number) (any, error) {
	if i, err := strconv.ParseInt(n.String(), 10, 64); err == nil {
		if i > maxExactFloat || i < -maxExactFloat {
			return i, nil
		}
		return float64(i), nil
	}
	if u, err := strconv.ParseUint(n.String(), 10, 64); err == nil {
		return u, nil
	}
	return n.Float64()
}
