package crypt

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"io"
	"os"
	"time"

	"github.com/cockroachdb/errors"
	"golang.org/x/crypto/pbkdf2"
)

// Parameters of the encrypted artifact format. The key is derived with
// PBKDF2-SHA256 from the password and a per-file random salt; salt and IV
// are stored in the header so decryption needs nothing but the password.
const (
	// SaltSize is the length of the random key-derivation salt.
	SaltSize = 16
	// IVSize is the AES-CBC initialization vector length.
	IVSize = aes.BlockSize
	// KeySize is the AES-256 key length.
	KeySize = 32
	// Iterations is the PBKDF2 iteration count.
	Iterations = 100_000
)

// chunkSize is the unit of streaming I/O. It is a multiple of the AES
// block size so every non-final chunk encrypts without carry.
const chunkSize = 64 * 1024

// Sentinel errors for decryption failures.
var (
	// ErrInvalidPassword indicates the padding check failed after
	// decryption, which is how a wrong password manifests in CBC.
	ErrInvalidPassword = errors.New("invalid password")

	// ErrCorruptedArtifact indicates the encrypted file is truncated or
	// structurally malformed.
	ErrCorruptedArtifact = errors.New("corrupted encrypted artifact")
)

// Result summarizes an encryption or decryption.
type Result struct {
	InputFile  string
	OutputFile string
	InputSize  int64
	OutputSize int64
	Elapsed    time.Duration
}

// DeriveKey derives the AES-256 key from a password and salt.
func DeriveKey(password string, salt []byte) []byte {
	return pbkdf2.Key([]byte(password), salt, Iterations, KeySize, sha256.New)
}

// EncryptFile encrypts inPath into outPath with a password-derived key.
// The output layout is [salt:16][iv:16][ciphertext]; the input is
// streamed in fixed-size chunks and never loaded whole.
func EncryptFile(inPath, outPath, password string) (*Result, error) {
	start := time.Now()

	in, err := os.Open(inPath)
	if err != nil {
		return nil, errors.Wrapf(err, "opening %s", inPath)
	}
	defer in.Close()

	inInfo, err := in.Stat()
	if err != nil {
		return nil, errors.Wrapf(err, "stat %s", inPath)
	}

	salt := make([]byte, SaltSize)
	if _, err := rand.Read(salt); err != nil {
		return nil, errors.Wrap(err, "generating salt")
	}
	iv := make([]byte, IVSize)
	if _, err := rand.Read(iv); err != nil {
		return nil, errors.Wrap(err, "generating IV")
	}

	block, err := aes.NewCipher(DeriveKey(password, salt))
	if err != nil {
		return nil, errors.Wrap(err, "initializing cipher")
	}
	enc := cipher.NewCBCEncrypter(block, iv)

	out, err := os.Create(outPath)
	if err != nil {
		return nil, errors.Wrapf(err, "creating %s", outPath)
	}
	defer out.Close()

	if _, err := out.Write(salt); err != nil {
		return nil, errors.Wrap(err, "writing header")
	}
	if _, err := out.Write(iv); err != nil {
		return nil, errors.Wrap(err, "writing header")
	}

	if err := encryptStream(in, out, enc); err != nil {
		os.Remove(outPath)
		return nil, err
	}

	if err := out.Close(); err != nil {
		os.Remove(outPath)
		return nil, errors.Wrapf(err, "closing %s", outPath)
	}

	outSize, err := fileSize(outPath)
	if err != nil {
		return nil, err
	}

	return &Result{
		InputFile:  inPath,
		OutputFile: outPath,
		InputSize:  inInfo.Size(),
		OutputSize: outSize,
		Elapsed:    time.Since(start),
	}, nil
}

// encryptStream reads plaintext chunks, CBC-encrypts them in place, and
// appends PKCS7 padding to the final chunk. PKCS7 always pads, so even a
// 0-byte input produces one full padding block.
func encryptStream(in io.Reader, out io.Writer, enc cipher.BlockMode) error {
	buf := make([]byte, chunkSize)
	for {
		n, err := io.ReadFull(in, buf)
		switch {
		case err == nil:
			enc.CryptBlocks(buf[:n], buf[:n])
			if _, werr := out.Write(buf[:n]); werr != nil {
				return errors.Wrap(werr, "writing ciphertext")
			}
		case errors.Is(err, io.EOF), errors.Is(err, io.ErrUnexpectedEOF):
			final := pkcs7Pad(buf[:n])
			enc.CryptBlocks(final, final)
			if _, werr := out.Write(final); werr != nil {
				return errors.Wrap(werr, "writing ciphertext")
			}
			return nil
		default:
			return errors.Wrap(err, "reading plaintext")
		}
	}
}

// DecryptFile decrypts inPath into outPath using the password and the
// salt/IV stored in the artifact header. A padding failure after the
// final block reports ErrInvalidPassword; structural problems report
// ErrCorruptedArtifact.
func DecryptFile(inPath, outPath, password string) (*Result, error) {
	start := time.Now()

	in, err := os.Open(inPath)
	if err != nil {
		return nil, errors.Wrapf(err, "opening %s", inPath)
	}
	defer in.Close()

	inInfo, err := in.Stat()
	if err != nil {
		return nil, errors.Wrapf(err, "stat %s", inPath)
	}

	salt := make([]byte, SaltSize)
	iv := make([]byte, IVSize)
	if _, err := io.ReadFull(in, salt); err != nil {
		return nil, errors.Wrap(ErrCorruptedArtifact, "truncated header")
	}
	if _, err := io.ReadFull(in, iv); err != nil {
		return nil, errors.Wrap(ErrCorruptedArtifact, "truncated header")
	}

	block, err := aes.NewCipher(DeriveKey(password, salt))
	if err != nil {
		return nil, errors.Wrap(err, "initializing cipher")
	}
	dec := cipher.NewCBCDecrypter(block, iv)

	out, err := os.Create(outPath)
	if err != nil {
		return nil, errors.Wrapf(err, "creating %s", outPath)
	}
	defer out.Close()

	if err := decryptStream(in, out, dec); err != nil {
		out.Close()
		os.Remove(outPath)
		return nil, err
	}

	if err := out.Close(); err != nil {
		os.Remove(outPath)
		return nil, errors.Wrapf(err, "closing %s", outPath)
	}

	outSize, err := fileSize(outPath)
	if err != nil {
		return nil, err
	}

	return &Result{
		InputFile:  inPath,
		OutputFile: outPath,
		InputSize:  inInfo.Size(),
		OutputSize: outSize,
		Elapsed:    time.Since(start),
	}, nil
}

// decryptStream streams ciphertext chunks, holding back the most recent
// chunk so the final block's padding can be stripped once EOF is seen.
func decryptStream(in io.Reader, out io.Writer, dec cipher.BlockMode) error {
	buf := make([]byte, chunkSize)
	var held []byte

	for {
		n, err := io.ReadFull(in, buf)
		if n > 0 {
			if n%aes.BlockSize != 0 {
				return errors.Wrap(ErrCorruptedArtifact, "ciphertext not block-aligned")
			}
			if held != nil {
				if _, werr := out.Write(held); werr != nil {
					return errors.Wrap(werr, "writing plaintext")
				}
			}
			dec.CryptBlocks(buf[:n], buf[:n])
			held = append(held[:0], buf[:n]...)
		}

		switch {
		case err == nil:
			continue
		case errors.Is(err, io.EOF), errors.Is(err, io.ErrUnexpectedEOF):
			if held == nil {
				return errors.Wrap(ErrCorruptedArtifact, "empty ciphertext")
			}
			final, perr := pkcs7Unpad(held)
			if perr != nil {
				return perr
			}
			if _, werr := out.Write(final); werr != nil {
				return errors.Wrap(werr, "writing plaintext")
			}
			return nil
		default:
			return errors.Wrap(err, "reading ciphertext")
		}
	}
}

// pkcs7Pad appends PKCS7 padding, always adding at least one byte.
func pkcs7Pad(data []byte) []byte {
	padLen := aes.BlockSize - len(data)%aes.BlockSize
	padded := make([]byte, len(data)+padLen)
	copy(padded, data)
	for i := len(data); i < len(padded); i++ {
		padded[i] = byte(padLen)
	}
	return padded
}

// pkcs7Unpad strips and validates PKCS7 padding. Any inconsistency is
// reported as ErrInvalidPassword: with CBC a wrong key almost always
// surfaces here.
func pkcs7Unpad(data []byte) ([]byte, error) {
	if len(data) == 0 || len(data)%aes.BlockSize != 0 {
		return nil, errors.Wrap(ErrCorruptedArtifact, "bad final block")
	}
	padLen := int(data[len(data)-1])
	if padLen < 1 || padLen > aes.BlockSize {
		return nil, errors.Wrap(ErrInvalidPassword, "padding check failed")
	}
	for _, b := range data[len(data)-padLen:] {
		if int(b) != padLen {
			return nil, errors.Wrap(ErrInvalidPassword, "padding check failed")
		}
	}
	return data[:len(data)-padLen], nil
}

func fileSize(path string) (int64, error) {
	info, err := os.Stat(path)
	if err != nil {
		return 0, errors.Wrapf(err, "stat %s", path)
	}
	return info.Size(), nil
}
