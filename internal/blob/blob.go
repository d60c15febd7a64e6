// Package blob stores uploaded files under bucket-scoped paths on the local
// filesystem and serves them back under /files/.
package blob

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"strings"
)

const (
	BucketInspiration = "inspiration"
	BucketDocuments   = "documents"
)

var (
	ErrNotFound      = errors.New("file not found")
	ErrInvalidPath   = errors.New("invalid file path")
	ErrUnknownBucket = errors.New("unknown bucket")
)

var buckets = map[string]bool{BucketInspiration: true, BucketDocuments: true}

// Store is the file storage the planner writes uploads to.
type Store interface {
	Put(ctx context.Context, bucket, name string, r io.Reader) error
	Open(ctx context.Context, bucket, name string) (io.ReadCloser, error)
	Delete(ctx context.Context, bucket, name string) error
}

// URL is the public path a stored file is served from.
func URL(bucket, name string) string {
	return "/files/" + bucket + "/" + name
}

// ParseURL splits a /files/ URL back into bucket and name.
func ParseURL(u string) (bucket, name string, ok bool) {
	rest, found := strings.CutPrefix(u, "/files/")
	if !found {
		return "", "", false
	}
	bucket, name, found = strings.Cut(rest, "/")
	if !found || name == "" {
		return "", "", false
	}
	return bucket, name, true
}

// FSStore keeps files in <root>/<bucket>/<name>.
type FSStore struct {
	root string
}

func NewFSStore(root string) (*FSStore, error) {
	for b := range buckets {
		if err := os.MkdirAll(filepath.Join(root, b), 0o755); err != nil {
			return nil, fmt.Errorf("create bucket %s: %w", b, err)
		}
	}
	return &FSStore{root: root}, nil
}

// resolve maps bucket/name to a path inside root, rejecting traversal.
func (s *FSStore) resolve(bucket, name string) (string, error) {
	if !buckets[bucket] {
		return "", ErrUnknownBucket
	}
	if name == "" || strings.Contains(name, `\`) || path.IsAbs(name) {
		return "", ErrInvalidPath
	}
	clean := path.Clean(name)
	if clean != name || clean == "." || strings.HasPrefix(clean, "../") || clean == ".." {
		return "", ErrInvalidPath
	}
	return filepath.Join(s.root, bucket, filepath.FromSlash(clean)), nil
}

// Put writes r to bucket/name, creating parent directories. The file is
// written to a temporary name and renamed into place.
func (s *FSStore) Put(ctx context.Context, bucket, name string, r io.Reader) error {
	dst, err := s.resolve(bucket, name)
	if err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return fmt.Errorf("create directory: %w", err)
	}
	tmp, err := os.CreateTemp(filepath.Dir(dst), ".upload-*")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	if _, err := io.Copy(tmp, r); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return fmt.Errorf("write file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("close file: %w", err)
	}
	if err := os.Rename(tmp.Name(), dst); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("move file: %w", err)
	}
	return nil
}

func (s *FSStore) Open(_ context.Context, bucket, name string) (io.ReadCloser, error) {
	p, err := s.resolve(bucket, name)
	if err != nil {
		return nil, err
	}
	f, err := os.Open(p)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, ErrNotFound
	}
	return f, err
}

// Delete removes bucket/name. Missing files are not an error.
func (s *FSStore) Delete(_ context.Context, bucket, name string) error {
	p, err := s.resolve(bucket, name)
	if err != nil {
		return err
	}
	if err := os.Remove(p); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("remove file: %w", err)
	}
	return nil
}
