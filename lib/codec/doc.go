// Package codec provides the document codecs used by jsondb to store the mapping
// of a store in its backing file. It defines a common interface and multiple
// implementations for serializing and deserializing document trees.
//
// Key Components:
//
//   - ICodec: Core interface that all codec implementations must satisfy.
//
//   - jsonCodecImpl: Plain json. Output is indented with the requested width,
//     never html-escaped and carries no trailing newline. This is the default.
//
//   - jsoncCodecImpl: Writes plain json but reads JSONC (comments and trailing
//     commas) through hujson, which is useful for hand-edited seed files.
//
//   - encryptedCodecImpl: Wraps another codec and seals its output with
//     ChaCha20-Poly1305 using a key derived from a passphrase via scrypt. The
//     file on disk is a json envelope holding the KDF parameters and ciphertext.
//
// Document Model:
//
//	Deserialize always produces the generic tree of encoding/json: map[string]any
//	for objects, []any for arrays, float64 for numbers, string, bool and nil.
//	Serialize accepts anything encoding/json can encode and fails for values it
//	cannot represent (functions, channels, NaN, cyclic maps).
//
// Thread Safety:
//
//	All codec implementations are stateless and safe for concurrent use
//	across multiple goroutines without additional synchronization.
//
// Usage:
//
//	c := codec.NewEncryptedCodec(codec.NewJSONCodec(), passphrase, codec.DefaultScryptParams())
//	data, err := c.Serialize(doc, 4)
//	// ... write data ...
//	tree, err := c.Deserialize(data)
package codec
