package contentstore

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"slipstream/internal/fileutil"
)

// HashBytes computes the content hash for data: lowercase hex SHA-256.
func HashBytes(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}

// Attachment describes a stored blob.
type Attachment struct {
	Hash      string
	Extension string
	Size      int64
	Path      string
	CreatedAt time.Time
}

// PutResult reports the outcome of a Put call.
type PutResult struct {
	Attachment
	// New is false when the hash already existed and no bytes were written.
	New bool
}

// Store is a content-addressed blob store rooted at a single directory.
type Store struct {
	root string
}

// New opens (creating if necessary) a store rooted at root.
func New(root string) (*Store, error) {
	root = strings.TrimSpace(root)
	if root == "" {
		return nil, errors.New("contentstore root required")
	}
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("create store root: %w", err)
	}
	return &Store{root: root}, nil
}

// Root returns the store's base directory.
func (s *Store) Root() string {
	return s.root
}

// PathFor returns the deterministic blob path for a hash and extension.
// Layout: <root>/<hash[0:2]>/<hash[2:4]>/<hash>.<ext>
func (s *Store) PathFor(hash, extension string) string {
	name := hash
	if ext := normalizeExtension(extension); ext != "" {
		name = hash + "." + ext
	}
	return filepath.Join(s.root, hash[:2], hash[2:4], name)
}

// Exists reports whether a blob with the given hash is already stored,
// regardless of the extension it was stored with.
func (s *Store) Exists(hash string) bool {
	_, ok := s.find(hash)
	return ok
}

// Find returns the stored attachment for hash, if present.
func (s *Store) Find(hash string) (Attachment, bool) {
	path, ok := s.find(hash)
	if !ok {
		return Attachment{}, false
	}
	info, err := os.Stat(path)
	if err != nil {
		return Attachment{}, false
	}
	return Attachment{
		Hash:      hash,
		Extension: strings.TrimPrefix(filepath.Ext(path), "."),
		Size:      info.Size(),
		Path:      path,
		CreatedAt: info.ModTime().UTC(),
	}, true
}

// Put stores data under its content hash. Hashing and the existence check
// happen before any bytes touch disk; when the hash is already present the
// call is a no-op and the existing attachment is returned. Concurrent Put
// calls for identical content are safe: the write goes through a temp file
// and rename, and a losing racer simply renames identical bytes over
// identical bytes.
func (s *Store) Put(data []byte, extension string) (PutResult, error) {
	if len(data) == 0 {
		return PutResult{}, errors.New("refusing to store empty blob")
	}
	hash := HashBytes(data)

	if existing, ok := s.Find(hash); ok {
		return PutResult{Attachment: existing, New: false}, nil
	}

	dest := s.PathFor(hash, extension)
	if err := os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
		return PutResult{}, fmt.Errorf("create shard directory: %w", err)
	}
	if err := fileutil.WriteFileAtomic(dest, data, 0o444); err != nil {
		return PutResult{}, fmt.Errorf("store blob %s: %w", hash[:12], err)
	}

	return PutResult{
		Attachment: Attachment{
			Hash:      hash,
			Extension: normalizeExtension(extension),
			Size:      int64(len(data)),
			Path:      dest,
			CreatedAt: time.Now().UTC(),
		},
		New: true,
	}, nil
}

func (s *Store) find(hash string) (string, bool) {
	if len(hash) != 64 {
		return "", false
	}
	shard := filepath.Join(s.root, hash[:2], hash[2:4])
	matches, err := filepath.Glob(filepath.Join(shard, hash+"*"))
	if err != nil || len(matches) == 0 {
		return "", false
	}
	return matches[0], true
}

func normalizeExtension(extension string) string {
	extension = strings.ToLower(strings.TrimSpace(extension))
	extension = strings.TrimPrefix(extension, ".")
	return extension
}
