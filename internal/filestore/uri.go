package filestore

import (
	"path"
	"strings"

	"github.com/KaramelBytes/edaprompt-cli/internal/errs"
)

// Scheme prefixes object references accepted wherever a local path is.
const Scheme = "s3://"

// IsURI reports whether s names an object rather than a local path.
func IsURI(s string) bool {
	return strings.HasPrefix(strings.ToLower(s), Scheme)
}

// ParseURI splits s3://bucket/key into its parts.
func ParseURI(s string) (bucket, key string, err error) {
	if !IsURI(s) {
		return "", "", errs.Newf(errs.ErrKindInvalidInput, "not an object URI: %q", s)
	}
	rest := s[len(Scheme):]
	bucket, key, _ = strings.Cut(rest, "/")
	key = strings.TrimLeft(key, "/")
	if bucket == "" || key == "" || strings.HasSuffix(key, "/") {
		return "", "", errs.Newf(errs.ErrKindInvalidInput, "object URI %q must be s3://bucket/key", s)
	}
	return bucket, key, nil
}

// URI formats bucket and key as an s3:// reference.
func URI(bucket, key string) string {
	return Scheme + bucket + "/" + strings.TrimLeft(key, "/")
}

// BaseName returns the last element of key.
func BaseName(key string) string {
	return path.Base(key)
}
