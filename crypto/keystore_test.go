package crypto

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestKeystoreRoundTrip(t *testing.T) {
	priv := testKeyPair(t)
	path := filepath.Join(t.TempDir(), "node.ks")

	require.NoError(t, SaveKeystore(path, priv, []byte("correct horse")))

	loaded, err := LoadKeystore(path, []byte("correct horse"))
	require.NoError(t, err)
	require.True(t, priv.Equal(loaded))

	info, err := os.Stat(path)
	require.NoError(t, err)
	require.Equal(t, os.FileMode(0o600), info.Mode().Perm())
}

func TestKeystoreWrongPassphrase(t *testing.T) {
	priv := testKeyPair(t)
	path := filepath.Join(t.TempDir(), "node.ks")

	require.NoError(t, SaveKeystore(path, priv, []byte("right")))

	_, err := LoadKeystore(path, []byte("wrong"))
	require.ErrorContains(t, err, "unlock failed")
}

func TestKeystorePublicKeyReadableWithoutPassphrase(t *testing.T) {
	priv := testKeyPair(t)
	path := filepath.Join(t.TempDir(), "node.ks")

	require.NoError(t, SaveKeystore(path, priv, []byte("secret")))

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	var ks struct {
		Version      string `json:"version"`
		PublicKeyPEM string `json:"public_key_pem"`
	}
	require.NoError(t, json.Unmarshal(raw, &ks))
	require.Equal(t, "2PKSv1", ks.Version)

	pub, err := DecodePublicKey([]byte(ks.PublicKeyPEM))
	require.NoError(t, err)
	require.True(t, priv.PublicKey.Equal(pub))
}

func TestKeystoreRejectsUnknownVersion(t *testing.T) {
	priv := testKeyPair(t)
	path := filepath.Join(t.TempDir(), "node.ks")

	require.NoError(t, SaveKeystore(path, priv, []byte("secret")))

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	var ks map[string]any
	require.NoError(t, json.Unmarshal(raw, &ks))
	ks["version"] = "bogus"
	raw, err = json.Marshal(ks)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(path, raw, 0o600))

	_, err = LoadKeystore(path, []byte("secret"))
	require.ErrorContains(t, err, "unsupported keystore version")
}

func TestKeystoreRejectsCorruptFields(t *testing.T) {
	priv := testKeyPair(t)
	dir := t.TempDir()

	rewrite := func(t *testing.T, field, value string) string {
		t.Helper()
		path := filepath.Join(dir, field+".ks")
		require.NoError(t, SaveKeystore(path, priv, []byte("secret")))

		raw, err := os.ReadFile(path)
		require.NoError(t, err)
		var ks map[string]any
		require.NoError(t, json.Unmarshal(raw, &ks))
		ks[field] = value
		raw, err = json.Marshal(ks)
		require.NoError(t, err)
		require.NoError(t, os.WriteFile(path, raw, 0o600))
		return path
	}

	// A truncated nonce must come back as an error, not a panic out of the
	// AEAD open.
	_, err := LoadKeystore(rewrite(t, "nonce_hex", "abcd"), []byte("secret"))
	require.ErrorContains(t, err, "nonce_hex")

	_, err = LoadKeystore(rewrite(t, "nonce_hex", "zz"), []byte("secret"))
	require.ErrorContains(t, err, "nonce_hex")

	_, err = LoadKeystore(rewrite(t, "salt_hex", ""), []byte("secret"))
	require.ErrorContains(t, err, "salt_hex")

	_, err = LoadKeystore(rewrite(t, "sealed_sk_hex", "zz"), []byte("secret"))
	require.ErrorContains(t, err, "sealed_sk_hex")

	_, err = LoadKeystore(rewrite(t, "kdf", "pbkdf2"), []byte("secret"))
	require.ErrorContains(t, err, "unsupported keystore kdf")
}

func TestLoadKeystoreMissingFile(t *testing.T) {
	_, err := LoadKeystore(filepath.Join(t.TempDir(), "absent.ks"), []byte("x"))
	require.Error(t, err)
}
