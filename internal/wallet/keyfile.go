package wallet

import (
	"bufio"
	"encoding/hex"
	"fmt"
	"os"

	"github.com/pkg/errors"

	"github.com/minibit/minibit/internal/crypto"
)

// keyFile is the line-oriented private key file: one hex-encoded 32-byte key
// per line, append-only. The wallet opens it once at startup and keeps the
// handle for the occasional append.
type keyFile struct {
	path string
	f    *os.File
}

func openKeyFile(path string) (*keyFile, error) {
	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE|os.O_APPEND, 0o600)
	if err != nil {
		return nil, fmt.Errorf("failed to open key file %s: %w", path, err)
	}
	return &keyFile{path: path, f: f}, nil
}

func (k *keyFile) close() error {
	return k.f.Close()
}

// load reads every key line from the start of the file.
func (k *keyFile) load() ([][]byte, error) {
	if _, err := k.f.Seek(0, 0); err != nil {
		return nil, fmt.Errorf("failed to rewind key file: %w", err)
	}

	var keys [][]byte
	scanner := bufio.NewScanner(k.f)
	for scanner.Scan() {
		line := scanner.Text()
		if line == "" {
			continue
		}

		raw, err := hex.DecodeString(line)
		if err != nil {
			return nil, errors.WithMessagef(err, "invalid key line in %s", k.path)
		}
		if len(raw) != crypto.PrivateKeySize {
			return nil, errors.WithMessagef(crypto.ErrInvalidPrivateKey, "key line in %s is %d bytes", k.path, len(raw))
		}
		keys = append(keys, raw)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read key file %s: %w", k.path, err)
	}

	return keys, nil
}

// append writes one key as a hex line at the end of the file.
func (k *keyFile) append(raw []byte) error {
	if _, err := fmt.Fprintln(k.f, hex.EncodeToString(raw)); err != nil {
		return fmt.Errorf("failed to append key to %s: %w", k.path, err)
	}
	return nil
}
