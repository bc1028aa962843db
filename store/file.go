package store

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/google/uuid"

	"github.com/alimasry/boxesnlines/annotation"
)

// DefaultDir is the storage directory relative to the workspace root.
const DefaultDir = ".boxesnlines/annotations"

// FileStore keeps one JSON file per document inside a single directory.
// File names are derived with Token, so the document's own directory
// structure is never recreated.
type FileStore struct {
	fs     FileSystem
	dir    string
	logger *slog.Logger
}

// FileOption configures a FileStore.
type FileOption func(*FileStore)

// WithFileSystem replaces the local file system.
func WithFileSystem(fsys FileSystem) FileOption {
	return func(s *FileStore) {
		if fsys != nil {
			s.fs = fsys
		}
	}
}

// WithLogger sets the logger used to report damaged storage.
func WithLogger(l *slog.Logger) FileOption {
	return func(s *FileStore) {
		if l != nil {
			s.logger = l
		}
	}
}

// NewFileStore creates a FileStore rooted at dir. The directory is created
// lazily on the first write.
func NewFileStore(dir string, opts ...FileOption) *FileStore {
	s := &FileStore{
		fs:     LocalFS{},
		dir:    dir,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.logger = s.logger.With("component", "store")
	return s
}

// Dir returns the storage directory.
func (s *FileStore) Dir() string { return s.dir }

// Path returns the storage file for a document.
func (s *FileStore) Path(fileKey string) string {
	return filepath.Join(s.dir, Token(fileKey))
}

// Get loads a document's annotations. Missing, unreadable or undecodable
// files all yield an empty map; only a cancelled context is an error.
func (s *FileStore) Get(ctx context.Context, fileKey string) (annotation.Map, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	path := s.Path(fileKey)
	data, err := s.fs.ReadFile(path)
	if err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			s.logger.WarnContext(ctx, "read annotations failed", "path", path, "error", err)
		}
		return annotation.Map{}, nil
	}
	m, err := annotation.Decode(data)
	if err != nil {
		s.logger.WarnContext(ctx, "discarding undecodable annotations", "path", path, "error", err)
		return annotation.Map{}, nil
	}
	return m, nil
}

// Set replaces a document's annotations on disk.
func (s *FileStore) Set(ctx context.Context, fileKey string, m annotation.Map) error {
	_, err := s.setStamped(ctx, fileKey, m)
	return err
}

// setStamped is Set that also returns the stamp of the file it wrote.
func (s *FileStore) setStamped(ctx context.Context, fileKey string, m annotation.Map) (stamp, error) {
	if err := ctx.Err(); err != nil {
		return stamp{}, err
	}
	data, err := annotation.Encode(m)
	if err != nil {
		return stamp{}, fmt.Errorf("encode annotations: %w", err)
	}
	info, err := s.writeFile(Token(fileKey), data)
	if err != nil {
		return stamp{}, err
	}
	s.logger.DebugContext(ctx, "annotations saved", "path", s.Path(fileKey), "count", m.Count())
	return stamp{info: info}, nil
}

// stamp returns the current stamp of a document's storage file.
func (s *FileStore) stamp(fileKey string) (stamp, error) {
	info, err := s.fs.Stat(s.Path(fileKey))
	if errors.Is(err, fs.ErrNotExist) {
		return stamp{}, nil
	}
	if err != nil {
		return stamp{}, err
	}
	return stamp{info: info}, nil
}

// writeFile writes name inside the storage directory through a temp file
// and a rename, so readers never see a partial file. It returns the info of
// the written file, taken before the rename.
func (s *FileStore) writeFile(name string, data []byte) (os.FileInfo, error) {
	if err := s.fs.MkdirAll(s.dir, 0o755); err != nil {
		return nil, fmt.Errorf("create storage dir %q: %w", s.dir, err)
	}
	path := filepath.Join(s.dir, name)
	tmp := path + ".tmp-" + uuid.NewString()

	f, err := s.fs.OpenFile(tmp, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		return nil, fmt.Errorf("create temp file: %w", err)
	}
	if _, err := f.Write(data); err != nil {
		f.Close()
		s.fs.Remove(tmp)
		return nil, fmt.Errorf("write %q: %w", tmp, err)
	}
	if err := f.Sync(); err != nil {
		f.Close()
		s.fs.Remove(tmp)
		return nil, fmt.Errorf("sync %q: %w", tmp, err)
	}
	if err := f.Close(); err != nil {
		s.fs.Remove(tmp)
		return nil, fmt.Errorf("close %q: %w", tmp, err)
	}
	info, err := s.fs.Stat(tmp)
	if err != nil {
		s.fs.Remove(tmp)
		return nil, fmt.Errorf("stat %q: %w", tmp, err)
	}
	if err := s.fs.Rename(tmp, path); err != nil {
		s.fs.Remove(tmp)
		return nil, fmt.Errorf("rename %q: %w", path, err)
	}
	return info, nil
}

// files lists the storage files currently in the directory.
func (s *FileStore) files() ([]string, error) {
	entries, err := s.fs.ReadDir(s.dir)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var names []string
	for _, e := range entries {
		if e.Type().IsRegular() && isToken(e.Name()) {
			names = append(names, e.Name())
		}
	}
	return names, nil
}
