package codec

// MaxIndent is the largest indent width a codec will use. Larger values are clamped.
const MaxIndent = 10

// ICodec is the interface for all document codecs.
// A codec turns a document tree into the bytes stored in the backing file and back.
type ICodec interface {
	// Serialize encodes a document tree.
	// indent is the number of spaces used per nesting level, indent <= 0 produces compact output.
	// It returns the encoded bytes and an error if the value cannot be represented.
	Serialize(v any, indent int) ([]byte, error)
	// Deserialize decodes bytes produced by Serialize into a document tree.
	// Objects are decoded as map[string]any, arrays as []any and numbers as float64.
	Deserialize(b []byte) (any, error)
	// Name returns a short human-readable name of the codec.
	Name() string
}

// clampIndent limits indent to [0, MaxIndent]
func clampIndent(indent int) int {
	if indent < 0 {
		return 0
	}
	if indent > MaxIndent {
		return MaxIndent
	}
	return indent
}
