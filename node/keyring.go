package node

// KeyDirectory resolves sender IDs to their registered public keys (PKIX
// PEM), as supplied by the key-management collaborator. A transaction whose
// embedded key disagrees with the directory entry is rejected; senders
// without an entry are accepted on their embedded key alone.
type KeyDirectory interface {
	PublicKeyPEM(senderID string) ([]byte, bool)
}

// StaticKeyDirectory is an in-memory KeyDirectory.
type StaticKeyDirectory map[string][]byte

func (d StaticKeyDirectory) PublicKeyPEM(senderID string) ([]byte, bool) {
	pem, ok := d[senderID]
	return pem, ok
}
