package codec

import (
	"crypto/rand"
	"encoding/json"
	"errors"
	"fmt"
	"github.com/ValentinKolb/jsondb/lib/common"
	"github.com/lni/dragonboat/v4/logger"
	"golang.org/x/crypto/chacha20poly1305"
	"golang.org/x/crypto/scrypt"
)

const (
	// The current supported version of the encrypted envelope stored on disk.
	envelopeFormatVersion = 1
	saltSize              = 16
)

var (
	log = logger.GetLogger(common.LoggerCodec)

	// ErrWrongPassphrase is returned when the passphrase is incorrect or the ciphertext was modified.
	ErrWrongPassphrase = errors.New("wrong passphrase or corrupted document")
)

// ScryptParams are the cost parameters of the scrypt key derivation.
type ScryptParams struct {
	N int
	R int
	P int
}

// DefaultScryptParams returns the recommended interactive scrypt parameters.
func DefaultScryptParams() ScryptParams {
	return ScryptParams{N: 1 << 15, R: 8, P: 1}
}

// envelope is the on-disk JSON structure holding the ciphertext and KDF parameters.
type envelope struct {
	V      int    `json:"v"`
	Salt   []byte `json:"salt"`
	N      int    `json:"scrypt_N"`
	R      int    `json:"scrypt_r"`
	P      int    `json:"scrypt_p"`
	Nonce  []byte `json:"nonce"`
	Cipher []byte `json:"cipher"`
}

// NewEncryptedCodec creates a codec that seals the output of inner with a key derived
// from passphrase. The backing file is still a json document (the envelope), but the
// stored mapping is only readable with the passphrase. Every Serialize call derives a
// fresh key from a new random salt, so its cost is dominated by params.
func NewEncryptedCodec(inner ICodec, passphrase string, params ScryptParams) ICodec {
	return &encryptedCodecImpl{
		inner:      inner,
		passphrase: []byte(passphrase),
		params:     params,
	}
}

// encryptedCodecImpl implements the ICodec interface by wrapping another codec
type encryptedCodecImpl struct {
	inner      ICodec
	passphrase []byte
	params     ScryptParams
}

// --------------------------------------------------------------------------
// Interface Methods (docu see codec.ICodec)
// --------------------------------------------------------------------------

func (e encryptedCodecImpl) Serialize(v any, indent int) ([]byte, error) {
	raw, err := e.inner.Serialize(v, 0)
	if err != nil {
		return nil, err
	}

	salt := make([]byte, saltSize)
	if _, err := rand.Read(salt); err != nil {
		return nil, err
	}
	key, err := scrypt.Key(e.passphrase, salt, e.params.N, e.params.R, e.params.P, chacha20poly1305.KeySize)
	if err != nil {
		return nil, err
	}
	aead, err := chacha20poly1305.New(key)
	if err != nil {
		return nil, err
	}
	nonce := make([]byte, aead.NonceSize())
	if _, err := rand.Read(nonce); err != nil {
		return nil, err
	}

	return encodeJSON(envelope{
		V:      envelopeFormatVersion,
		Salt:   salt,
		N:      e.params.N,
		R:      e.params.R,
		P:      e.params.P,
		Nonce:  nonce,
		Cipher: aead.Seal(nil, nonce, raw, salt),
	}, indent)
}

func (e encryptedCodecImpl) Deserialize(b []byte) (any, error) {
	var env envelope
	if err := json.Unmarshal(b, &env); err != nil {
		return nil, err
	}
	if env.V < 1 || env.V > envelopeFormatVersion {
		return nil, fmt.Errorf("unsupported envelope version %d", env.V)
	}

	key, err := scrypt.Key(e.passphrase, env.Salt, env.N, env.R, env.P, chacha20poly1305.KeySize)
	if err != nil {
		return nil, err
	}
	aead, err := chacha20poly1305.New(key)
	if err != nil {
		return nil, err
	}
	if len(env.Nonce) != aead.NonceSize() {
		return nil, fmt.Errorf("invalid nonce size %d", len(env.Nonce))
	}
	raw, err := aead.Open(nil, env.Nonce, env.Cipher, env.Salt)
	if err != nil {
		log.Debugf("decrypting document failed: %v", err)
		return nil, ErrWrongPassphrase
	}
	return e.inner.Deserialize(raw)
}

func (e encryptedCodecImpl) Name() string {
	return fmt.Sprintf("encrypted(%s)", e.inner.Name())
}
