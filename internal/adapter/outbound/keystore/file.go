package keystore

import (
	"crypto/ed25519"
	"crypto/rand"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/alexedwards/argon2id"
	"github.com/mr-tron/base58"
	"golang.org/x/crypto/argon2"
	"golang.org/x/crypto/nacl/secretbox"

	"github.com/Respawn-Gate/Respawngate/internal/domain/chain"
)

const (
	// FileVersion is written into new keystore files. Readers reject
	// versions they do not know.
	FileVersion = 1

	pubPrefix = "PUB_ED_"
	sigPrefix = "SIG_ED_"

	saltLen = 16
	sealLen = 32 // secretbox key length

	// Argon2id parameters for the sealing key. Recorded in the file so
	// they can change without breaking existing keystores.
	kdfTime      = 3
	kdfMemoryKiB = 64 * 1024
	kdfThreads   = 4
)

// kdfParams records how the sealing key is derived from the passphrase.
type kdfParams struct {
	Salt    string `json:"salt"`
	Time    uint32 `json:"time"`
	Memory  uint32 `json:"memory"`
	Threads uint8  `json:"threads"`
}

// fileFormat is the on-disk keystore layout. The ed25519 seed lives in
// Ciphertext, sealed with a key derived from the passphrase; the
// separate argon2id hash lets a wrong passphrase be told apart from a
// corrupt file.
type fileFormat struct {
	Version        int                  `json:"version"`
	Account        chain.AccountName    `json:"account"`
	Permission     chain.PermissionName `json:"permission"`
	PublicKey      string               `json:"public_key"`
	PassphraseHash string               `json:"passphrase_hash"`
	KDF            kdfParams            `json:"kdf"`
	Nonce          string               `json:"nonce"`
	Ciphertext     string               `json:"ciphertext"`
}

// Create generates a fresh ed25519 key for account and writes the
// sealed keystore file at path. Returns the public key in PUB_ED_ form.
// Refuses to overwrite an existing file.
func Create(path string, account chain.AccountName, permission chain.PermissionName, passphrase string) (string, error) {
	if !account.Valid() {
		return "", fmt.Errorf("keystore: invalid account name %q", account)
	}
	if passphrase == "" {
		return "", errors.New("keystore: passphrase must not be empty")
	}
	if permission == "" {
		permission = "active"
	}

	pub, priv, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		return "", fmt.Errorf("keystore: generate key: %w", err)
	}

	phc, err := argon2id.CreateHash(passphrase, argon2id.DefaultParams)
	if err != nil {
		return "", fmt.Errorf("keystore: hash passphrase: %w", err)
	}

	salt := make([]byte, saltLen)
	if _, err := rand.Read(salt); err != nil {
		return "", fmt.Errorf("keystore: generate salt: %w", err)
	}
	var sealKey [sealLen]byte
	copy(sealKey[:], argon2.IDKey([]byte(passphrase), salt, kdfTime, kdfMemoryKiB, kdfThreads, sealLen))

	var nonce [24]byte
	if _, err := rand.Read(nonce[:]); err != nil {
		return "", fmt.Errorf("keystore: generate nonce: %w", err)
	}
	sealed := secretbox.Seal(nil, priv.Seed(), &nonce, &sealKey)

	f := fileFormat{
		Version:        FileVersion,
		Account:        account,
		Permission:     permission,
		PublicKey:      pubPrefix + base58.Encode(pub),
		PassphraseHash: phc,
		KDF: kdfParams{
			Salt:    base64.StdEncoding.EncodeToString(salt),
			Time:    kdfTime,
			Memory:  kdfMemoryKiB,
			Threads: kdfThreads,
		},
		Nonce:      base64.StdEncoding.EncodeToString(nonce[:]),
		Ciphertext: base64.StdEncoding.EncodeToString(sealed),
	}

	data, err := json.MarshalIndent(f, "", "  ")
	if err != nil {
		return "", fmt.Errorf("keystore: encode file: %w", err)
	}

	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0700); err != nil {
			return "", fmt.Errorf("keystore: create directory: %w", err)
		}
	}

	// O_EXCL so two concurrent inits cannot clobber each other
	out, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0600)
	if err != nil {
		if os.IsExist(err) {
			return "", fmt.Errorf("keystore: %s already exists, refusing to overwrite", path)
		}
		return "", fmt.Errorf("keystore: create file: %w", err)
	}
	if _, err := out.Write(data); err != nil {
		_ = out.Close()
		return "", fmt.Errorf("keystore: write file: %w", err)
	}
	if err := out.Close(); err != nil {
		return "", fmt.Errorf("keystore: close file: %w", err)
	}
	return f.PublicKey, nil
}

// loadFile reads and validates the keystore file structure. The key
// stays sealed; unlocking is a separate step.
func loadFile(path string) (*fileFormat, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var f fileFormat
	if err := json.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("keystore: parse %s: %w", path, err)
	}
	if f.Version != FileVersion {
		return nil, fmt.Errorf("keystore: %s has unsupported version %d", path, f.Version)
	}
	if f.Account == "" || f.PassphraseHash == "" || f.Ciphertext == "" {
		return nil, fmt.Errorf("keystore: %s is incomplete", path)
	}
	return &f, nil
}

// openSeed verifies the passphrase and unseals the ed25519 seed.
func (f *fileFormat) openSeed(passphrase string) (ed25519.PrivateKey, error) {
	match, err := argon2id.ComparePasswordAndHash(passphrase, f.PassphraseHash)
	if err != nil {
		return nil, fmt.Errorf("keystore: verify passphrase: %w", err)
	}
	if !match {
		return nil, errWrongPassphrase
	}

	salt, err := base64.StdEncoding.DecodeString(f.KDF.Salt)
	if err != nil {
		return nil, fmt.Errorf("keystore: decode salt: %w", err)
	}
	nonceBytes, err := base64.StdEncoding.DecodeString(f.Nonce)
	if err != nil || len(nonceBytes) != 24 {
		return nil, errors.New("keystore: malformed nonce")
	}
	box, err := base64.StdEncoding.DecodeString(f.Ciphertext)
	if err != nil {
		return nil, fmt.Errorf("keystore: decode ciphertext: %w", err)
	}

	var sealKey [sealLen]byte
	copy(sealKey[:], argon2.IDKey([]byte(passphrase), salt, f.KDF.Time, f.KDF.Memory, f.KDF.Threads, sealLen))
	var nonce [24]byte
	copy(nonce[:], nonceBytes)

	// The passphrase already matched its hash, so a failure here means
	// the file was tampered with or truncated.
	seed, ok := secretbox.Open(nil, box, &nonce, &sealKey)
	if !ok {
		return nil, errors.New("keystore: cannot unseal key, file is corrupt")
	}
	if len(seed) != ed25519.SeedSize {
		return nil, errors.New("keystore: unsealed seed has wrong length")
	}
	return ed25519.NewKeyFromSeed(seed), nil
}
