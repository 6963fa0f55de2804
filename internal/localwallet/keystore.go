package localwallet

import (
	"crypto/ecdsa"
	"os"
	"strings"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/crypto"

	"github.com/quantumauth-io/quantum-credential-client/internal/constants"
	"github.com/quantumauth-io/quantum-credential-client/internal/securefile"
)

// Key is the persisted account. It only ever lives on disk encrypted.
type Key struct {
	Version    int    `json:"version"`
	AddressHex string `json:"address"`
	PrivKeyHex string `json:"priv_key_hex"`
	CreatedAt  string `json:"created_at,omitempty"` // RFC3339
	Imported   bool   `json:"imported,omitempty"`
}

func (k *Key) Address() common.Address {
	return common.HexToAddress(k.AddressHex)
}

func (k *Key) PrivateKey() (*ecdsa.PrivateKey, error) {
	return parsePrivateKey(k.PrivKeyHex)
}

type KeyStore struct {
	Path string
	Opt  securefile.Options
}

// NewKeyStore returns a store for the key file at path.
func NewKeyStore(path string) *KeyStore {
	return &KeyStore{
		Path: path,
		Opt:  securefile.Options{AAD: []byte(constants.AADConstant)},
	}
}

// Load opens an existing key file.
func (s *KeyStore) Load(password []byte) (*Key, error) {
	k, err := securefile.Read[Key](s.Path, password, s.Opt)
	if err != nil {
		return nil, errors.Wrapf(err, "load key %s", s.Path)
	}
	if _, err := k.PrivateKey(); err != nil {
		return nil, errors.Wrapf(err, "key %s", s.Path)
	}
	return &k, nil
}

// Ensure loads the key file or creates a fresh random key when it is
// missing.
func (s *KeyStore) Ensure(password []byte) (*Key, error) {
	k, err := securefile.Read[Key](s.Path, password, s.Opt)
	if err == nil {
		return &k, nil
	}
	if !errors.Is(err, os.ErrNotExist) {
		return nil, errors.Wrapf(err, "load key %s", s.Path)
	}

	nk, err := NewRandomKey()
	if err != nil {
		return nil, err
	}
	if err := securefile.Write(s.Path, *nk, password, s.Opt); err != nil {
		return nil, err
	}
	return nk, nil
}

// Import replaces the key file with privHex. Used for a backend signer
// whose key is provisioned out of band.
func (s *KeyStore) Import(password []byte, privHex string) (*Key, error) {
	priv, err := parsePrivateKey(privHex)
	if err != nil {
		return nil, err
	}
	k := newKey(priv)
	k.Imported = true
	if err := securefile.Write(s.Path, *k, password, s.Opt); err != nil {
		return nil, err
	}
	return k, nil
}

func NewRandomKey() (*Key, error) {
	priv, err := crypto.GenerateKey()
	if err != nil {
		return nil, errors.Wrap(err, "generate key")
	}
	return newKey(priv), nil
}

func newKey(priv *ecdsa.PrivateKey) *Key {
	return &Key{
		Version:    1,
		AddressHex: crypto.PubkeyToAddress(priv.PublicKey).Hex(),
		PrivKeyHex: hexutil.Encode(crypto.FromECDSA(priv))[2:],
		CreatedAt:  time.Now().UTC().Format(time.RFC3339),
	}
}

func parsePrivateKey(s string) (*ecdsa.PrivateKey, error) {
	s = strings.TrimPrefix(strings.TrimPrefix(strings.TrimSpace(s), "0x"), "0X")
	if len(s) != 64 {
		return nil, errors.Newf("invalid private key length: got %d hex chars, want 64", len(s))
	}
	priv, err := crypto.HexToECDSA(s)
	if err != nil {
		return nil, errors.Wrap(err, "parse private key")
	}
	return priv, nil
}
