package cryptocore

import (
	"bytes"
	"crypto/aes"
	"crypto/cipher"
	"crypto/sha256"
	"encoding/base64"
	"encoding/binary"
	"encoding/hex"
	"encoding/json"
	"fmt"
)

// EncryptionType selects how the envelope's AES key is obtained.
type EncryptionType int

const (
	// EncryptTypeDirectKey uses the caller-supplied key as-is (type 0).
	EncryptTypeDirectKey EncryptionType = 0
	// EncryptTypeScryptKey derives the AES key via scrypt(key, embedded SNRP) (type 1).
	EncryptTypeScryptKey EncryptionType = 1
)

const (
	aesKeyLength = 32
	aesIVLength  = 16
	shaTagLength = sha256.Size
)

// Envelope is the wire shape of the Encrypted-JSON format (§4.1, §6):
//
//	{ "encryptionType": 0|1, "iv_hex": "...", "data_base64": "...", "SNRP"?: {...} }
type Envelope struct {
	EncryptionType int    `json:"encryptionType"`
	IVHex          string `json:"iv_hex"`
	DataBase64     string `json:"data_base64"`
	SNRP           *SNRP  `json:"SNRP,omitempty"`
}

// Encrypt seals plaintext under key using the Encrypted-JSON envelope
// (§4.1) and returns its JSON encoding. typ selects type 0 (direct key)
// or type 1 (scrypt-derived key, embedding a fresh random-salt SNRP).
func Encrypt(plaintext, key []byte, typ EncryptionType) ([]byte, error) {
	env, err := encryptToEnvelope(plaintext, key, typ)
	if err != nil {
		return nil, err
	}
	out, err := json.Marshal(env)
	if err != nil {
		return nil, fmt.Errorf("%w: marshaling envelope: %w", ErrEncrypt, err)
	}
	return out, nil
}

// EncryptDirect is a convenience wrapper for the common case of type-0
// encryption (caller already holds the 32-byte AES key).
func EncryptDirect(plaintext, key []byte) ([]byte, error) {
	return Encrypt(plaintext, key, EncryptTypeDirectKey)
}

func encryptToEnvelope(plaintext, key []byte, typ EncryptionType) (*Envelope, error) {
	if len(plaintext) > 0xFFFFFFFF {
		return nil, ErrPlaintextTooBig
	}

	aesKey := fitKey(key)
	var snrp *SNRP
	if typ == EncryptTypeScryptKey {
		var err error
		snrp, err = NewClientSNRP()
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrEncrypt, err)
		}
		derived, err := Scrypt(key, snrp)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrEncrypt, err)
		}
		aesKey = derived
	}

	ivBytes, err := RandomBytes(aesIVLength)
	if err != nil {
		return nil, fmt.Errorf("%w: generating IV: %w", ErrEncrypt, err)
	}

	preimage, err := buildPreimage(plaintext)
	if err != nil {
		return nil, err
	}

	ciphertext, err := aesCBCEncrypt(aesKey, ivBytes, preimage)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrEncrypt, err)
	}

	env := &Envelope{
		EncryptionType: int(typ),
		IVHex:          hex.EncodeToString(ivBytes),
		DataBase64:     base64.StdEncoding.EncodeToString(ciphertext),
	}
	if typ == EncryptTypeScryptKey {
		env.SNRP = snrp
	}
	return env, nil
}

// buildPreimage assembles the pre-AES pre-image described in §4.1 step 3:
//
//	[1 byte h][h header bytes][4-byte BE len(P)][P][1 byte f][f footer bytes][32-byte SHA-256 of the above]
func buildPreimage(plaintext []byte) ([]byte, error) {
	h, err := RandomByte()
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrEncrypt, err)
	}
	f, err := RandomByte()
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrEncrypt, err)
	}

	header := PaddingBytes(int(h))
	footer := PaddingBytes(int(f))

	var buf bytes.Buffer
	buf.WriteByte(h)
	buf.Write(header)

	var lenBuf [4]byte
	binary.BigEndian.PutUint32(lenBuf[:], uint32(len(plaintext)))
	buf.Write(lenBuf[:])
	buf.Write(plaintext)

	buf.WriteByte(f)
	buf.Write(footer)

	sum := sha256.Sum256(buf.Bytes())
	buf.Write(sum[:])

	return buf.Bytes(), nil
}

// Decrypt parses and opens an Encrypted-JSON envelope. If the envelope's
// encryptionType is EncryptTypeScryptKey the SNRP embedded in the envelope
// is used to rederive the AES key from key; for EncryptTypeDirectKey key is
// used directly.
// Returns ErrDecryptChecksum (distinct from other decrypt failures) when
// the trailing SHA-256 tag does not match, which callers map to "wrong
// key" (§7).
func Decrypt(envelopeJSON, key []byte) ([]byte, error) {
	var env Envelope
	if err := json.Unmarshal(envelopeJSON, &env); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrJSON, err)
	}
	return DecryptEnvelope(&env, key)
}

// DecryptEnvelope opens an already-parsed Envelope.
func DecryptEnvelope(env *Envelope, key []byte) ([]byte, error) {
	aesKey := fitKey(key)

	switch EncryptionType(env.EncryptionType) {
	case EncryptTypeDirectKey:
		// use key as-is
	case EncryptTypeScryptKey:
		if env.SNRP == nil {
			return nil, ErrMissingSNRP
		}
		derived, err := Scrypt(key, env.SNRP)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrDecrypt, err)
		}
		aesKey = derived
	default:
		return nil, ErrUnknownEncType
	}

	ivBytes, err := hex.DecodeString(env.IVHex)
	if err != nil {
		return nil, fmt.Errorf("%w: decoding iv_hex: %w", ErrDecrypt, err)
	}
	ciphertext, err := base64.StdEncoding.DecodeString(env.DataBase64)
	if err != nil {
		return nil, fmt.Errorf("%w: decoding data_base64: %w", ErrDecrypt, err)
	}
	if len(ciphertext) < aes.BlockSize {
		return nil, ErrCiphertextShort
	}
	if len(ciphertext)%aes.BlockSize != 0 {
		return nil, ErrCiphertextBlock
	}

	preimage, err := aesCBCDecrypt(aesKey, ivBytes, ciphertext)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrDecrypt, err)
	}

	return unpackPreimage(preimage)
}

// unpackPreimage reverses buildPreimage and validates the trailing
// SHA-256 tag (§4.1 step 3, §8 "Envelope tamper detection").
func unpackPreimage(preimage []byte) ([]byte, error) {
	if len(preimage) < 1+4+1+shaTagLength {
		return nil, ErrPreimageTooShort
	}

	tagStart := len(preimage) - shaTagLength
	body := preimage[:tagStart]
	tag := preimage[tagStart:]

	sum := sha256.Sum256(body)
	if !bytes.Equal(sum[:], tag) {
		return nil, ErrDecryptChecksum
	}

	off := 0
	h := int(body[off])
	off++
	off += h
	if off+4 > len(body) {
		return nil, ErrPreimageTooShort
	}

	plen := binary.BigEndian.Uint32(body[off : off+4])
	off += 4

	if off+int(plen) > len(body) {
		return nil, ErrPreimageTooShort
	}
	plaintext := make([]byte, plen)
	copy(plaintext, body[off:off+int(plen)])

	return plaintext, nil
}

// fitKey returns exactly aesKeyLength bytes: key truncated if longer,
// zero-padded if shorter (§4.1 step 4).
func fitKey(key []byte) []byte {
	out := make([]byte, aesKeyLength)
	copy(out, key)
	return out
}

// fitIV returns exactly aesIVLength bytes, zero-padded if shorter.
func fitIV(iv []byte) []byte {
	out := make([]byte, aesIVLength)
	copy(out, iv)
	return out
}

func aesCBCEncrypt(key, iv, plaintext []byte) ([]byte, error) {
	block, err := aes.NewCipher(fitKey(key))
	if err != nil {
		return nil, err
	}

	padded := pkcs7Pad(plaintext, aes.BlockSize)
	ciphertext := make([]byte, len(padded))

	mode := cipher.NewCBCEncrypter(block, fitIV(iv))
	mode.CryptBlocks(ciphertext, padded)

	return ciphertext, nil
}

func aesCBCDecrypt(key, iv, ciphertext []byte) ([]byte, error) {
	block, err := aes.NewCipher(fitKey(key))
	if err != nil {
		return nil, err
	}

	plaintext := make([]byte, len(ciphertext))
	mode := cipher.NewCBCDecrypter(block, fitIV(iv))
	mode.CryptBlocks(plaintext, ciphertext)

	return pkcs7Unpad(plaintext)
}

func pkcs7Pad(data []byte, blockSize int) []byte {
	padLen := blockSize - len(data)%blockSize
	padding := bytes.Repeat([]byte{byte(padLen)}, padLen)
	return append(append([]byte{}, data...), padding...)
}

func pkcs7Unpad(data []byte) ([]byte, error) {
	if len(data) == 0 {
		return nil, ErrCiphertextShort
	}
	padLen := int(data[len(data)-1])
	if padLen == 0 || padLen > len(data) || padLen > aes.BlockSize {
		return nil, ErrPreimageTooShort
	}
	return data[:len(data)-padLen], nil
}
