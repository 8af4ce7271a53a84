package artifacts

import "context"

// Repository port (interface untuk persistence)
type Repository interface {
	Save(ctx context.Context, a *AudioArtifact) error
	Get(ctx context.Context, id ArtifactID) (*AudioArtifact, error)
	Latest(ctx context.Context, owner string, limit int) ([]*AudioArtifact, error)
}

// BlobStore port (interface untuk penyimpanan blob terenkripsi)
// The store only ever sees ciphertext; encrypt/decrypt happens at the caller.
type BlobStore interface {
	Put(ctx context.Context, key string, ciphertext []byte, contentType string) error
	Get(ctx context.Context, key string) ([]byte, error)
	Delete(ctx context.Context, key string) error
}

// Cipher is the storage encryption boundary. Key management lives outside
// the core.
type Cipher interface {
	Encrypt(plaintext []byte) ([]byte, error)
	Decrypt(ciphertext []byte) ([]byte, error)
}
