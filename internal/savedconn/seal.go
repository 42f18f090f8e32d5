package savedconn

import (
	"bytes"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"pkt.systems/kryptograf"
	"pkt.systems/kryptograf/keymgmt"
)

const (
	// KeyStoreFile is the key store created next to the database.
	KeyStoreFile     = "saved.keys"
	sealedPrefix     = "kg1:"
	uriDescriptorKey = "mongoui:saved-uri"
)

// ErrSealedURI is returned when a stored URI is encrypted but the store was
// opened without its key store.
var ErrSealedURI = errors.New("saved connection uri is encrypted and no key store is configured")

// sealer encrypts connection strings with a data key derived from the root
// key in a local key store.
type sealer struct {
	root     keymgmt.RootKey
	material keymgmt.Material
}

func openSealer(path string) (*sealer, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return nil, fmt.Errorf("create key store dir: %w", err)
	}
	store, err := keymgmt.LoadProto(path)
	if err != nil {
		return nil, fmt.Errorf("load key store: %w", err)
	}
	root, err := store.EnsureRootKey()
	if err != nil {
		return nil, fmt.Errorf("ensure root key: %w", err)
	}
	material, err := store.EnsureDescriptor(uriDescriptorKey, root, []byte(uriDescriptorKey))
	if err != nil {
		return nil, fmt.Errorf("ensure uri key: %w", err)
	}
	if err := store.Commit(); err != nil {
		return nil, fmt.Errorf("commit key store: %w", err)
	}
	return &sealer{root: root, material: material}, nil
}

func (s *sealer) seal(uri string) (string, error) {
	if s == nil {
		return uri, nil
	}
	var buf bytes.Buffer
	writer, err := kryptograf.New(s.root).EncryptWriter(&buf, s.material)
	if err != nil {
		return "", err
	}
	if _, err := io.WriteString(writer, uri); err != nil {
		_ = writer.Close()
		return "", err
	}
	if err := writer.Close(); err != nil {
		return "", err
	}
	return sealedPrefix + base64.StdEncoding.EncodeToString(buf.Bytes()), nil
}

// unseal returns stored unchanged when it was written in the clear.
func (s *sealer) unseal(stored string) (string, error) {
	encoded, ok := strings.CutPrefix(stored, sealedPrefix)
	if !ok {
		return stored, nil
	}
	if s == nil {
		return "", ErrSealedURI
	}
	raw, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return "", fmt.Errorf("decode sealed uri: %w", err)
	}
	reader, err := kryptograf.New(s.root).DecryptReader(bytes.NewReader(raw), s.material)
	if err != nil {
		return "", fmt.Errorf("decrypt uri: %w", err)
	}
	defer func() { _ = reader.Close() }()
	plain, err := io.ReadAll(reader)
	if err != nil {
		return "", fmt.Errorf("decrypt uri: %w", err)
	}
	return string(plain), nil
}
