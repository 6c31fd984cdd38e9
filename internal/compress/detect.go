package compress

import (
	"bytes"
	"io"
	"os"
	"strings"

	"github.com/cockroachdb/errors"
)

// EncryptedExtension marks an artifact wrapped by the encryptor.
const EncryptedExtension = ".encrypted"

// IsEncrypted reports whether the artifact name carries the encrypted
// extension.
func IsEncrypted(path string) bool {
	return strings.HasSuffix(strings.ToLower(path), EncryptedExtension)
}

// TrimEncrypted strips a trailing encrypted extension, if present.
func TrimEncrypted(path string) string {
	if IsEncrypted(path) {
		return path[:len(path)-len(EncryptedExtension)]
	}
	return path
}

// Magic numbers for the supported container formats.
var (
	zipMagic   = []byte{'P', 'K', 0x03, 0x04}
	gzipMagic  = []byte{0x1f, 0x8b}
	bzip2Magic = []byte{'B', 'Z', 'h'}
)

// DetectFormat determines the compression algorithm of an artifact,
// first by file extension and then by magic-byte sniffing. A trailing
// .encrypted extension is ignored.
func DetectFormat(path string) (Algorithm, error) {
	name := strings.ToLower(TrimEncrypted(path))

	switch {
	case strings.HasSuffix(name, ".zip"):
		return Zip, nil
	case strings.HasSuffix(name, ".tar.gz"), strings.HasSuffix(name, ".tgz"):
		return Gzip, nil
	case strings.HasSuffix(name, ".tar.bz2"), strings.HasSuffix(name, ".tbz2"):
		return Bzip2, nil
	}

	return sniffFormat(path)
}

// sniffFormat inspects the first bytes of the file.
func sniffFormat(path string) (Algorithm, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", errors.Wrapf(err, "opening %s", path)
	}
	defer f.Close()

	header := make([]byte, 4)
	n, err := io.ReadFull(f, header)
	if err != nil && !errors.Is(err, io.ErrUnexpectedEOF) {
		return "", errors.Wrapf(ErrUnknownFormat, "%s: too short to identify", path)
	}
	header = header[:n]

	switch {
	case bytes.HasPrefix(header, zipMagic):
		return Zip, nil
	case bytes.HasPrefix(header, gzipMagic):
		return Gzip, nil
	case bytes.HasPrefix(header, bzip2Magic):
		return Bzip2, nil
	}

	return "", errors.Wrapf(ErrUnknownFormat, "%s", path)
}
