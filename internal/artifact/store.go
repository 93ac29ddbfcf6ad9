// Package artifact manages the on-disk lifecycle of result files:
// collision-resistant naming, durable writes, and idempotent removal.
// Expiry scheduling lives in internal/expiry; this package only owns
// the bytes.
package artifact

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/zeebo/blake3"
)

// nameTokenBytes is the random suffix length. 6 bytes gives 48 bits,
// enough to make concurrent collisions on the same original name
// negligible.
const nameTokenBytes = 6

// Record describes one persisted artifact. The Name is what clients
// combine with the download base URL; the Path never leaves the server.
type Record struct {
	ID        string
	Name      string
	Path      string
	Size      int64
	Checksum  string
	CreatedAt time.Time
}

// Store writes result files under a single root directory. Each file
// has exactly one writer and is never mutated after creation, so no
// locking is needed beyond collision-resistant names.
type Store struct {
	root   string
	logger *slog.Logger
	now    func() time.Time
}

// NewStore creates (if needed) the storage root and returns a Store.
func NewStore(root string, logger *slog.Logger) (*Store, error) {
	trimmed := strings.TrimSpace(root)
	if trimmed == "" {
		return nil, fmt.Errorf("artifact root is empty")
	}
	if err := os.MkdirAll(trimmed, 0o755); err != nil {
		return nil, fmt.Errorf("create artifact root: %w", err)
	}
	return &Store{
		root:   filepath.Clean(trimmed),
		logger: logger,
		now:    time.Now,
	}, nil
}

// Root returns the storage root directory.
func (s *Store) Root() string {
	return s.root
}

// ReserveName derives a unique result filename from the client's
// original name: base name minus its extension, a random hex token,
// and exactly one extension matching the operation's output format.
func (s *Store) ReserveName(originalName, ext string) (string, error) {
	base := filepath.Base(strings.TrimSpace(originalName))
	base = strings.TrimSuffix(base, filepath.Ext(base))
	base = sanitize(base)
	if base == "" {
		base = "document"
	}

	token := make([]byte, nameTokenBytes)
	if _, err := rand.Read(token); err != nil {
		return "", fmt.Errorf("generate name token: %w", err)
	}

	return fmt.Sprintf("%s-%s.%s", base, hex.EncodeToString(token), ext), nil
}

// Persist streams r to the reserved name, hashing while writing, and
// returns only after the bytes are synced to disk. Handing out the
// record before the write is durable would let a fast client download
// a truncated file.
func (s *Store) Persist(name string, r io.Reader) (Record, error) {
	path, err := s.resolve(name)
	if err != nil {
		return Record{}, err
	}

	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		return Record{}, fmt.Errorf("create artifact %q: %w", name, err)
	}

	hasher := blake3.New()
	size, err := io.Copy(io.MultiWriter(f, hasher), r)
	if err != nil {
		_ = f.Close()
		_ = os.Remove(path)
		return Record{}, fmt.Errorf("write artifact %q: %w", name, err)
	}
	if err := f.Sync(); err != nil {
		_ = f.Close()
		_ = os.Remove(path)
		return Record{}, fmt.Errorf("sync artifact %q: %w", name, err)
	}
	if err := f.Close(); err != nil {
		_ = os.Remove(path)
		return Record{}, fmt.Errorf("close artifact %q: %w", name, err)
	}

	return Record{
		ID:        uuid.NewString(),
		Name:      name,
		Path:      path,
		Size:      size,
		Checksum:  "blake3:" + hex.EncodeToString(hasher.Sum(nil)),
		CreatedAt: s.now().UTC(),
	}, nil
}

// Remove deletes the named artifact. It tolerates the file already
// being gone: expiry and manual cleanup may race, and losing that race
// is not an error.
func (s *Store) Remove(name string) {
	path, err := s.resolve(name)
	if err != nil {
		s.logger.Warn("refusing to remove artifact", "name", name, "error", err)
		return
	}
	if err := os.Remove(path); err != nil {
		if !os.IsNotExist(err) {
			s.logger.Warn("failed to remove artifact", "name", name, "error", err)
		}
		return
	}
	s.logger.Info("artifact removed", "name", name)
}

// Open returns a read handle and size for the named artifact, or an
// error satisfying os.IsNotExist if it is absent or already expired.
func (s *Store) Open(name string) (*os.File, int64, error) {
	path, err := s.resolve(name)
	if err != nil {
		return nil, 0, err
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, 0, err
	}
	info, err := f.Stat()
	if err != nil {
		_ = f.Close()
		return nil, 0, err
	}
	return f, info.Size(), nil
}

// Count reports how many artifacts are currently live.
func (s *Store) Count() (int, error) {
	entries, err := os.ReadDir(s.root)
	if err != nil {
		return 0, fmt.Errorf("read artifact root: %w", err)
	}
	n := 0
	for _, e := range entries {
		if e.Type().IsRegular() {
			n++
		}
	}
	return n, nil
}

// resolve maps an artifact name to its absolute path, rejecting names
// that would escape the storage root.
func (s *Store) resolve(name string) (string, error) {
	if name == "" || name != filepath.Base(name) || strings.HasPrefix(name, ".") {
		return "", fmt.Errorf("invalid artifact name %q", name)
	}
	return filepath.Join(s.root, name), nil
}

// sanitize strips characters that are hostile in filenames or URLs.
func sanitize(name string) string {
	var b strings.Builder
	for _, r := range name {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
			b.WriteRune(r)
		case r == '-' || r == '_' || r == '.':
			b.WriteRune(r)
		default:
			b.WriteRune('_')
		}
	}
	return strings.Trim(b.String(), "._")
}
