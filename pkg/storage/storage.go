// Package storage provides persistence for enrolled feature galleries.
// Galleries are stored per identity; the file backend encrypts them at rest
// using NaCl secretbox with a machine-bound key.
package storage

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"golang.org/x/crypto/nacl/secretbox"

	"github.com/veriface/veriface/pkg/logging"
	"github.com/veriface/veriface/pkg/matching"
)

const (
	// NonceSize is the size of the nonce used for encryption
	NonceSize = 24
	// KeySize is the size of the encryption key
	KeySize = 32
)

// IdentityGallery contains all enrolled samples for one identity.
type IdentityGallery struct {
	Identity   string            `json:"identity"`
	Samples    matching.Gallery  `json:"samples"`
	EnrolledAt time.Time         `json:"enrolled_at"`
	UpdatedAt  time.Time         `json:"updated_at"`
	Metadata   map[string]string `json:"metadata"`
}

// ErrIdentityNotFound is returned when the identity is not enrolled.
var ErrIdentityNotFound = errors.New("identity not found")

// ErrIdentityExists is returned when enrolling an already enrolled identity.
var ErrIdentityExists = errors.New("identity already enrolled")

// ErrStorageAccess is returned when the storage backend cannot be reached.
var ErrStorageAccess = errors.New("failed to access storage")

// ErrEncryption is returned when encryption/decryption fails.
var ErrEncryption = errors.New("encryption error")

// ErrInvalidIdentity is returned for identity names that cannot name a
// gallery, such as empty strings or names containing path separators.
var ErrInvalidIdentity = errors.New("invalid identity")

// GalleryStore is the persistence boundary for enrolled galleries. The
// engine never touches a persistence medium directly; it only exchanges
// gallery values through this interface.
type GalleryStore interface {
	// CreateGallery enrolls a new identity. It fails with
	// ErrIdentityExists if the identity already has a gallery.
	CreateGallery(ctx context.Context, identity string, samples matching.Gallery, metadata map[string]string) error
	// SaveGallery writes the gallery, replacing any existing one.
	SaveGallery(ctx context.Context, gallery IdentityGallery) error
	// LoadGallery reads the gallery for an identity, or
	// ErrIdentityNotFound.
	LoadGallery(ctx context.Context, identity string) (*IdentityGallery, error)
	// DeleteGallery removes the gallery for an identity, or
	// ErrIdentityNotFound.
	DeleteGallery(ctx context.Context, identity string) error
	// ListIdentities returns all enrolled identity names.
	ListIdentities(ctx context.Context) ([]string, error)
	// Exists reports whether the identity has a gallery.
	Exists(ctx context.Context, identity string) (bool, error)
	// AddSample appends one sample to an existing gallery.
	AddSample(ctx context.Context, identity string, sample matching.EnrolledSample) error
	// Close releases backend resources.
	Close() error
}

// validateIdentity rejects names that would escape the gallery namespace.
func validateIdentity(identity string) error {
	if identity == "" {
		return fmt.Errorf("%w: empty name", ErrInvalidIdentity)
	}
	if strings.ContainsAny(identity, "/\\") || strings.Contains(identity, "..") {
		return fmt.Errorf("%w: %q", ErrInvalidIdentity, identity)
	}
	return nil
}

// FileStore implements GalleryStore using one file per identity.
type FileStore struct {
	dataDir           string
	encryptionEnabled bool
	encryptionKey     [KeySize]byte
}

// NewFileStore creates a new FileStore rooted at dataDir.
func NewFileStore(dataDir string, encryptionEnabled bool) (*FileStore, error) {
	fs := &FileStore{
		dataDir:           dataDir,
		encryptionEnabled: encryptionEnabled,
	}

	// Derive encryption key from machine-specific information
	if encryptionEnabled {
		key, err := deriveKey()
		if err != nil {
			return nil, fmt.Errorf("failed to derive encryption key: %w", err)
		}
		fs.encryptionKey = key
	}

	galleriesDir := filepath.Join(dataDir, "galleries")
	if err := os.MkdirAll(galleriesDir, 0700); err != nil {
		return nil, fmt.Errorf("failed to create galleries directory: %w", err)
	}

	return fs, nil
}

// deriveKey derives an encryption key from machine-specific information.
// This ties the encrypted galleries to this specific machine.
func deriveKey() ([KeySize]byte, error) {
	var key [KeySize]byte

	// Combine multiple sources of machine identity
	var identity strings.Builder

	// Machine ID (Linux specific)
	if machineID, err := os.ReadFile("/etc/machine-id"); err == nil {
		identity.Write(machineID)
	}

	// Hostname
	if hostname, err := os.Hostname(); err == nil {
		identity.WriteString(hostname)
	}

	// User ID
	identity.WriteString(fmt.Sprintf("%d", os.Getuid()))

	// Add a constant salt for additional security
	identity.WriteString("veriface-v1-salt")

	// Hash to derive key
	hash := sha256.Sum256([]byte(identity.String()))
	copy(key[:], hash[:])

	return key, nil
}

// galleryPath returns the file path for an identity's gallery.
func (fs *FileStore) galleryPath(identity string) string {
	filename := identity + ".json"
	if fs.encryptionEnabled {
		filename = identity + ".enc"
	}
	return filepath.Join(fs.dataDir, "galleries", filename)
}

// CreateGallery enrolls a new identity with its initial samples.
func (fs *FileStore) CreateGallery(ctx context.Context, identity string, samples matching.Gallery, metadata map[string]string) error {
	if err := validateIdentity(identity); err != nil {
		return err
	}

	exists, err := fs.Exists(ctx, identity)
	if err != nil {
		return err
	}
	if exists {
		return ErrIdentityExists
	}

	if metadata == nil {
		metadata = make(map[string]string)
	}

	now := time.Now()
	return fs.SaveGallery(ctx, IdentityGallery{
		Identity:   identity,
		Samples:    samples,
		EnrolledAt: now,
		UpdatedAt:  now,
		Metadata:   metadata,
	})
}

// SaveGallery writes a gallery to disk, replacing any existing file.
func (fs *FileStore) SaveGallery(ctx context.Context, gallery IdentityGallery) error {
	if err := validateIdentity(gallery.Identity); err != nil {
		return err
	}

	gallery.UpdatedAt = time.Now()
	if gallery.EnrolledAt.IsZero() {
		gallery.EnrolledAt = gallery.UpdatedAt
	}

	data, err := json.MarshalIndent(gallery, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal gallery: %w", err)
	}

	if fs.encryptionEnabled {
		data, err = fs.encrypt(data)
		if err != nil {
			return fmt.Errorf("failed to encrypt gallery: %w", err)
		}
	}

	if err := os.WriteFile(fs.galleryPath(gallery.Identity), data, 0600); err != nil {
		return fmt.Errorf("failed to write gallery: %w", err)
	}

	logging.Debugf("Saved gallery for identity: %s (%d samples)", gallery.Identity, len(gallery.Samples))
	return nil
}

// LoadGallery reads an identity's gallery from disk.
func (fs *FileStore) LoadGallery(ctx context.Context, identity string) (*IdentityGallery, error) {
	if err := validateIdentity(identity); err != nil {
		return nil, err
	}

	data, err := os.ReadFile(fs.galleryPath(identity))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrIdentityNotFound
		}
		return nil, fmt.Errorf("failed to read gallery: %w", err)
	}

	if fs.encryptionEnabled {
		data, err = fs.decrypt(data)
		if err != nil {
			return nil, fmt.Errorf("failed to decrypt gallery: %w", err)
		}
	}

	var gallery IdentityGallery
	if err := json.Unmarshal(data, &gallery); err != nil {
		return nil, fmt.Errorf("failed to unmarshal gallery: %w", err)
	}

	// Samples inherit the gallery's identity.
	for i := range gallery.Samples {
		gallery.Samples[i].Identity = gallery.Identity
	}

	logging.Debugf("Loaded gallery for identity: %s", identity)
	return &gallery, nil
}

// DeleteGallery removes an identity's gallery from disk.
func (fs *FileStore) DeleteGallery(ctx context.Context, identity string) error {
	if err := validateIdentity(identity); err != nil {
		return err
	}

	if err := os.Remove(fs.galleryPath(identity)); err != nil {
		if os.IsNotExist(err) {
			return ErrIdentityNotFound
		}
		return fmt.Errorf("failed to delete gallery: %w", err)
	}

	logging.Infof("Deleted gallery for identity: %s", identity)
	return nil
}

// ListIdentities returns all enrolled identity names.
func (fs *FileStore) ListIdentities(ctx context.Context) ([]string, error) {
	galleriesDir := filepath.Join(fs.dataDir, "galleries")

	entries, err := os.ReadDir(galleriesDir)
	if err != nil {
		if os.IsNotExist(err) {
			return []string{}, nil
		}
		return nil, fmt.Errorf("failed to list galleries: %w", err)
	}

	var identities []string
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}

		name := entry.Name()

		// Handle both encrypted and unencrypted files
		if strings.HasSuffix(name, ".json") {
			identities = append(identities, strings.TrimSuffix(name, ".json"))
		} else if strings.HasSuffix(name, ".enc") {
			identities = append(identities, strings.TrimSuffix(name, ".enc"))
		}
	}

	return identities, nil
}

// Exists reports whether an identity has a gallery on disk.
func (fs *FileStore) Exists(ctx context.Context, identity string) (bool, error) {
	if err := validateIdentity(identity); err != nil {
		return false, err
	}

	_, err := os.Stat(fs.galleryPath(identity))
	if err == nil {
		return true, nil
	}
	if os.IsNotExist(err) {
		return false, nil
	}
	return false, fmt.Errorf("failed to stat gallery: %w", err)
}

// AddSample appends one sample to an existing identity's gallery.
func (fs *FileStore) AddSample(ctx context.Context, identity string, sample matching.EnrolledSample) error {
	gallery, err := fs.LoadGallery(ctx, identity)
	if err != nil {
		return err
	}

	sample.Identity = gallery.Identity
	gallery.Samples = append(gallery.Samples, sample)

	return fs.SaveGallery(ctx, *gallery)
}

// Close releases no resources for the file backend.
func (fs *FileStore) Close() error {
	return nil
}

// encrypt encrypts data using NaCl secretbox.
func (fs *FileStore) encrypt(plaintext []byte) ([]byte, error) {
	// Generate random nonce
	var nonce [NonceSize]byte
	if _, err := io.ReadFull(rand.Reader, nonce[:]); err != nil {
		return nil, err
	}

	// Encrypt
	encrypted := secretbox.Seal(nonce[:], plaintext, &nonce, &fs.encryptionKey)
	return encrypted, nil
}

// decrypt decrypts data using NaCl secretbox.
func (fs *FileStore) decrypt(ciphertext []byte) ([]byte, error) {
	if len(ciphertext) < NonceSize {
		return nil, ErrEncryption
	}

	// Extract nonce
	var nonce [NonceSize]byte
	copy(nonce[:], ciphertext[:NonceSize])

	// Decrypt
	plaintext, ok := secretbox.Open(nil, ciphertext[NonceSize:], &nonce, &fs.encryptionKey)
	if !ok {
		return nil, ErrEncryption
	}

	return plaintext, nil
}
