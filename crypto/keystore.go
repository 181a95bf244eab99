package crypto

import (
	"crypto/rand"
	"crypto/rsa"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"

	"golang.org/x/crypto/chacha20poly1305"
	"golang.org/x/crypto/scrypt"
)

// Keystore file format: the PKCS#8 private key sealed with
// ChaCha20-Poly1305 under a scrypt-derived key-encryption key.
const (
	keystoreVersion = "2PKSv1"
	keystoreKDF     = "scrypt"

	scryptN = 1 << 15
	scryptR = 8
	scryptP = 1
)

type keystoreFile struct {
	Version      string `json:"version"`
	KDF          string `json:"kdf"`
	ScryptN      int    `json:"scrypt_n"`
	ScryptR      int    `json:"scrypt_r"`
	ScryptP      int    `json:"scrypt_p"`
	SaltHex      string `json:"salt_hex"`
	NonceHex     string `json:"nonce_hex"`
	SealedSKHex  string `json:"sealed_sk_hex"`
	PublicKeyPEM string `json:"public_key_pem"`
}

// SaveKeystore writes priv to path, encrypted under passphrase. The public
// key is stored alongside in the clear so a node can advertise it without
// unlocking the keystore.
func SaveKeystore(path string, priv *rsa.PrivateKey, passphrase []byte) error {
	keyPEM, err := EncodePrivateKey(priv)
	if err != nil {
		return err
	}
	pubPEM, err := EncodePublicKey(&priv.PublicKey)
	if err != nil {
		return err
	}

	salt := make([]byte, 16)
	if _, err := rand.Read(salt); err != nil {
		return fmt.Errorf("keystore salt: %w", err)
	}
	kek, err := scrypt.Key(passphrase, salt, scryptN, scryptR, scryptP, chacha20poly1305.KeySize)
	if err != nil {
		return fmt.Errorf("keystore kdf: %w", err)
	}
	aead, err := chacha20poly1305.New(kek)
	if err != nil {
		return fmt.Errorf("keystore seal: %w", err)
	}
	nonce := make([]byte, aead.NonceSize())
	if _, err := rand.Read(nonce); err != nil {
		return fmt.Errorf("keystore nonce: %w", err)
	}
	sealed := aead.Seal(nil, nonce, keyPEM, nil)

	ks := keystoreFile{
		Version:      keystoreVersion,
		KDF:          keystoreKDF,
		ScryptN:      scryptN,
		ScryptR:      scryptR,
		ScryptP:      scryptP,
		SaltHex:      hex.EncodeToString(salt),
		NonceHex:     hex.EncodeToString(nonce),
		SealedSKHex:  hex.EncodeToString(sealed),
		PublicKeyPEM: string(pubPEM),
	}
	raw, err := json.MarshalIndent(ks, "", "  ")
	if err != nil {
		return fmt.Errorf("keystore encode: %w", err)
	}
	raw = append(raw, '\n')
	return os.WriteFile(path, raw, 0o600)
}

// LoadKeystore reads and unlocks the keystore at path.
func LoadKeystore(path string, passphrase []byte) (*rsa.PrivateKey, error) {
	raw, err := os.ReadFile(path) // #nosec G304 -- operator-provided
	if err != nil {
		return nil, err
	}
	var ks keystoreFile
	if err := json.Unmarshal(raw, &ks); err != nil {
		return nil, fmt.Errorf("keystore decode: %w", err)
	}
	if ks.Version != keystoreVersion {
		return nil, fmt.Errorf("unsupported keystore version: %q", ks.Version)
	}
	if ks.KDF != keystoreKDF {
		return nil, fmt.Errorf("unsupported keystore kdf: %q", ks.KDF)
	}

	salt, err := hex.DecodeString(ks.SaltHex)
	if err != nil {
		return nil, fmt.Errorf("keystore salt_hex: %w", err)
	}
	if len(salt) == 0 {
		return nil, fmt.Errorf("keystore salt_hex: empty")
	}
	nonce, err := hex.DecodeString(ks.NonceHex)
	if err != nil {
		return nil, fmt.Errorf("keystore nonce_hex: %w", err)
	}
	if len(nonce) != chacha20poly1305.NonceSize {
		return nil, fmt.Errorf("keystore nonce_hex: %d bytes, want %d", len(nonce), chacha20poly1305.NonceSize)
	}
	sealed, err := hex.DecodeString(ks.SealedSKHex)
	if err != nil {
		return nil, fmt.Errorf("keystore sealed_sk_hex: %w", err)
	}

	kek, err := scrypt.Key(passphrase, salt, ks.ScryptN, ks.ScryptR, ks.ScryptP, chacha20poly1305.KeySize)
	if err != nil {
		return nil, fmt.Errorf("keystore kdf: %w", err)
	}
	aead, err := chacha20poly1305.New(kek)
	if err != nil {
		return nil, fmt.Errorf("keystore open: %w", err)
	}
	keyPEM, err := aead.Open(nil, nonce, sealed, nil)
	if err != nil {
		return nil, fmt.Errorf("keystore unlock failed: %w", err)
	}
	return DecodePrivateKey(keyPEM)
}
