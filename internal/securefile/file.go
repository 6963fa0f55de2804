// Package securefile stores JSON documents encrypted at rest (Argon2id key
// derivation, XChaCha20-Poly1305 sealing) and writes them atomically.
package securefile

import (
	"crypto/rand"
	"encoding/base64"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"

	"github.com/cockroachdb/errors"
	"golang.org/x/crypto/argon2"
	"golang.org/x/crypto/chacha20poly1305"

	"github.com/quantumauth-io/quantum-credential-client/internal/constants"
)

// ErrInvalidPasswordOrCorrupt is returned when the envelope does not open.
var ErrInvalidPasswordOrCorrupt = errors.New("invalid password or corrupted file")

// Envelope is the on-disk form.
type Envelope struct {
	Version int `json:"version"`

	ArgonTime    uint32 `json:"argon_time"`
	ArgonMemory  uint32 `json:"argon_memory_kib"`
	ArgonThreads uint8  `json:"argon_threads"`
	ArgonKeyLen  uint32 `json:"argon_key_len"`

	SaltB64  string `json:"salt_b64"`
	NonceB64 string `json:"nonce_b64"`
	CTB64    string `json:"ct_b64"`
}

var DefaultKDF = Envelope{
	Version:      1,
	ArgonTime:    2,
	ArgonMemory:  64 * 1024, // KiB
	ArgonThreads: 1,
	ArgonKeyLen:  32,
}

type Options struct {
	KDF Envelope

	FilePerm      os.FileMode
	DirectoryPerm os.FileMode

	// AAD binds the ciphertext to a context string. It must match on read
	// and write.
	AAD []byte
}

func (o Options) withDefaults() Options {
	if o.KDF.Version == 0 {
		o.KDF = DefaultKDF
	}
	if o.FilePerm == 0 {
		o.FilePerm = constants.FilePerm
	}
	if o.DirectoryPerm == 0 {
		o.DirectoryPerm = constants.DirectoryPerm
	}
	return o
}

// Write encrypts v and replaces path with it.
func Write[T any](path string, v T, password []byte, opt Options) error {
	o := opt.withDefaults()
	if o.KDF.Version != 1 {
		return errors.Newf("unsupported kdf version: %d", o.KDF.Version)
	}

	plain, err := json.Marshal(v)
	if err != nil {
		return errors.Wrap(err, "marshal json")
	}

	salt := make([]byte, 16)
	if _, err := rand.Read(salt); err != nil {
		return errors.Wrap(err, "rand salt")
	}
	aead, err := chacha20poly1305.NewX(deriveKey(password, salt, o.KDF))
	if err != nil {
		return errors.Wrap(err, "aead")
	}
	nonce := make([]byte, chacha20poly1305.NonceSizeX)
	if _, err := rand.Read(nonce); err != nil {
		return errors.Wrap(err, "rand nonce")
	}

	env := o.KDF
	env.SaltB64 = base64.StdEncoding.EncodeToString(salt)
	env.NonceB64 = base64.StdEncoding.EncodeToString(nonce)
	env.CTB64 = base64.StdEncoding.EncodeToString(aead.Seal(nil, nonce, plain, o.AAD))

	b, err := json.MarshalIndent(env, "", "  ")
	if err != nil {
		return errors.Wrap(err, "marshal envelope")
	}
	return WriteFileAtomic(path, b, o.FilePerm, o.DirectoryPerm)
}

// Read opens path with password into a T. A missing file keeps
// os.ErrNotExist in the chain.
func Read[T any](path string, password []byte, opt Options) (T, error) {
	var zero T
	o := opt.withDefaults()

	b, err := os.ReadFile(path)
	if err != nil {
		return zero, errors.Wrap(err, "read file")
	}

	var env Envelope
	if err := json.Unmarshal(b, &env); err != nil {
		return zero, errors.Wrap(err, "unmarshal envelope")
	}
	if env.Version != 1 {
		return zero, errors.Newf("unsupported file version: %d", env.Version)
	}

	salt, err := base64.StdEncoding.DecodeString(env.SaltB64)
	if err != nil {
		return zero, errors.Wrap(err, "decode salt")
	}
	nonce, err := base64.StdEncoding.DecodeString(env.NonceB64)
	if err != nil {
		return zero, errors.Wrap(err, "decode nonce")
	}
	ct, err := base64.StdEncoding.DecodeString(env.CTB64)
	if err != nil {
		return zero, errors.Wrap(err, "decode ciphertext")
	}

	aead, err := chacha20poly1305.NewX(deriveKey(password, salt, env))
	if err != nil {
		return zero, errors.Wrap(err, "aead")
	}
	if len(nonce) != aead.NonceSize() {
		return zero, ErrInvalidPasswordOrCorrupt
	}
	plain, err := aead.Open(nil, nonce, ct, o.AAD)
	if err != nil {
		return zero, ErrInvalidPasswordOrCorrupt
	}

	var out T
	if err := json.Unmarshal(plain, &out); err != nil {
		return zero, errors.Wrap(err, "unmarshal json")
	}
	return out, nil
}

func deriveKey(password, salt []byte, kdf Envelope) []byte {
	return argon2.IDKey(password, salt, kdf.ArgonTime, kdf.ArgonMemory, kdf.ArgonThreads, kdf.ArgonKeyLen)
}

// WriteFileAtomic writes data next to path and renames it into place.
func WriteFileAtomic(path string, data []byte, perm, dirPerm os.FileMode) error {
	if err := os.MkdirAll(filepath.Dir(path), dirPerm); err != nil {
		return errors.Wrapf(err, "mkdir %s", filepath.Dir(path))
	}

	tmp := path + ".tmp"
	_ = os.Remove(tmp)

	if err := os.WriteFile(tmp, data, perm); err != nil {
		return errors.Wrap(err, "write tmp")
	}
	if err := os.Rename(tmp, path); err != nil {
		_ = os.Remove(tmp)
		return errors.Wrap(err, "rename")
	}
	return nil
}

// DataDir returns the directory for the app's state files, honoring
// QCC_ENV (local, develop) as a subfolder.
func DataDir(app string) (string, error) {
	if app == "" {
		return "", errors.New("app must not be empty")
	}
	envFolder, err := EnvFolder()
	if err != nil {
		return "", err
	}

	var base string
	switch {
	case os.Getenv("SNAP_REAL_HOME") != "":
		base = filepath.Join(os.Getenv("SNAP_REAL_HOME"), ".config", app)
	case os.Getenv("HOME") != "":
		base = filepath.Join(os.Getenv("HOME"), ".config", app)
	default:
		dir, err := os.UserConfigDir()
		if err != nil {
			return "", errors.Wrap(err, "user config dir")
		}
		base = filepath.Join(dir, app)
	}
	if envFolder != "" {
		base = filepath.Join(base, envFolder)
	}
	return base, nil
}

func EnvFolder() (string, error) {
	raw := strings.TrimSpace(os.Getenv("QCC_ENV"))
	switch strings.ToLower(raw) {
	case "", "prod", "production":
		return "", nil
	case "local":
		return "local", nil
	case "dev", "develop", "development":
		return "develop", nil
	}
	return "", errors.Newf("invalid QCC_ENV %q (allowed: local, develop, empty)", raw)
}
