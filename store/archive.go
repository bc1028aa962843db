package store

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"path/filepath"
	"sort"

	"github.com/klauspost/compress/zstd"
)

const archiveVersion = 1

// archive is the decompressed body of an export: storage file name to raw
// file content. Content is base64 in the JSON body, so damaged files
// (invalid UTF-8 included) round-trip byte for byte.
type archive struct {
	Version int               `json:"version"`
	Files   map[string][]byte `json:"files"`
}

// Export writes every storage file as a zstd-compressed archive and returns
// the number of files written.
func (s *FileStore) Export(ctx context.Context, w io.Writer) (int, error) {
	names, err := s.files()
	if err != nil {
		return 0, fmt.Errorf("list storage dir: %w", err)
	}
	sort.Strings(names)

	a := archive{Version: archiveVersion, Files: make(map[string][]byte, len(names))}
	for _, name := range names {
		if err := ctx.Err(); err != nil {
			return 0, err
		}
		data, err := s.fs.ReadFile(filepath.Join(s.dir, name))
		if err != nil {
			return 0, fmt.Errorf("read %q: %w", name, err)
		}
		a.Files[name] = data
	}

	enc, err := zstd.NewWriter(w, zstd.WithEncoderLevel(zstd.SpeedDefault))
	if err != nil {
		return 0, err
	}
	if err := json.NewEncoder(enc).Encode(&a); err != nil {
		enc.Close()
		return 0, fmt.Errorf("encode archive: %w", err)
	}
	if err := enc.Close(); err != nil {
		return 0, err
	}
	s.logger.InfoContext(ctx, "annotations exported", "files", len(names))
	return len(names), nil
}

// Import restores storage files from an archive made by Export, replacing
// files with the same name. It returns the number of files written.
func (s *FileStore) Import(ctx context.Context, r io.Reader) (int, error) {
	dec, err := zstd.NewReader(r)
	if err != nil {
		return 0, err
	}
	defer dec.Close()

	var a archive
	if err := json.NewDecoder(dec).Decode(&a); err != nil {
		return 0, fmt.Errorf("decode archive: %w", err)
	}
	if a.Version != archiveVersion {
		return 0, fmt.Errorf("unsupported archive version: %d (expected %d)", a.Version, archiveVersion)
	}

	names := make([]string, 0, len(a.Files))
	for name := range a.Files {
		if !isToken(name) {
			return 0, fmt.Errorf("invalid file name %q in archive", name)
		}
		names = append(names, name)
	}
	sort.Strings(names)

	for i, name := range names {
		if err := ctx.Err(); err != nil {
			return i, err
		}
		if _, err := s.writeFile(name, a.Files[name]); err != nil {
			return i, err
		}
	}
	s.logger.InfoContext(ctx, "annotations imported", "files", len(names))
	return len(names), nil
}
