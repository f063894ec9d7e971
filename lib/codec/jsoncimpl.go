package codec

import (
	"fmt"
	"github.com/tailscale/hujson"
)

// NewJSONCCodec creates a codec that writes plain json but also reads JSONC
// (json with comments and trailing commas). This allows the backing file to be
// annotated by hand. Comments are not preserved when the store writes the file.
func NewJSONCCodec() ICodec {
	return &jsoncCodecImpl{}
}

// jsoncCodecImpl implements the ICodec interface using hujson for decoding
type jsoncCodecImpl struct {
}

// --------------------------------------------------------------------------
// Interface Methods (docu see codec.ICodec)
// --------------------------------------------------------------------------

func (j jsoncCodecImpl) Serialize(v any, indent int) ([]byte, error) {
	return encodeJSON(v, indent)
}

func (j jsoncCodecImpl) Deserialize(b []byte) (any, error) {
	standardized, err := hujson.Standardize(b)
	if err != nil {
		return nil, fmt.Errorf("invalid JSONC: %w", err)
	}
	v, err := decodeJSON(standardized)
	if err != nil {
		return nil, fmt.Errorf("invalid JSON: %w", err)
	}
	return v, nil
}

func (j jsoncCodecImpl) Name() string {
	return "jsonc"
}
