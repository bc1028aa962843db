package store

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"os"

	"github.com/alimasry/boxesnlines/annotation"
)

const (
	tokenLength = 16
	fileExt     = ".json"
)

// Repository persists the annotation map of each document, addressed by a
// stable document identifier (its absolute path).
// Implementations: FileStore, MemoryStore, CachedStore.
//
// Get never fails because storage is missing or damaged; that state is an
// empty map. Set always replaces the whole map. Callers own read-modify-write
// ordering: implementations do not lock across a Get/Set pair.
type Repository interface {
	Get(ctx context.Context, fileKey string) (annotation.Map, error)
	Set(ctx context.Context, fileKey string, m annotation.Map) error
}

// Token maps a document identifier to its storage file name: the first 16
// hex characters of the SHA-256 of the identifier, plus ".json".
func Token(fileKey string) string {
	sum := sha256.Sum256([]byte(fileKey))
	return hex.EncodeToString(sum[:])[:tokenLength] + fileExt
}

// isToken reports whether name looks like a file produced by Token.
func isToken(name string) bool {
	if len(name) != tokenLength+len(fileExt) || name[tokenLength:] != fileExt {
		return false
	}
	for i := 0; i < tokenLength; i++ {
		c := name[i]
		if (c < '0' || c > '9') && (c < 'a' || c > 'f') {
			return false
		}
	}
	return true
}

// stamp identifies one version of a storage file; a zero stamp means the
// file does not exist. Every write renames a fresh file into place, so a
// rewritten file never keeps the identity of the one it replaced.
type stamp struct {
	info os.FileInfo
}

func (s stamp) same(o stamp) bool {
	if s.info == nil || o.info == nil {
		return s.info == nil && o.info == nil
	}
	return os.SameFile(s.info, o.info) &&
		s.info.Size() == o.info.Size() &&
		s.info.ModTime().Equal(o.info.ModTime())
}

// stamper is implemented by repositories whose storage can be changed by
// other processes, such as FileStore.
type stamper interface {
	stamp(fileKey string) (stamp, error)
	setStamped(ctx context.Context, fileKey string, m annotation.Map) (stamp, error)
}
