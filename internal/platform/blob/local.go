package blob

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/yungbote/labelforge-backend/internal/logger"
)

type localStore struct {
	log  *logger.Logger
	root string
}

type localMeta struct {
	ContentType string            `json:"contentType"`
	Metadata    map[string]string `json:"metadata,omitempty"`
}

// NewLocalStore stores objects as files under root, with a .meta sidecar
// per object. Development backend; not meant for shared deployments.
func NewLocalStore(root string, log *logger.Logger) (BlobStore, error) {
	if root == "" {
		root = "blobdata"
	}
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create blob root %q: %w", root, err)
	}
	return &localStore{
		log:  log.With("service", "LocalBlobStore"),
		root: root,
	}, nil
}

func (s *localStore) path(key string) (string, error) {
	clean := filepath.Clean(key)
	if clean == "." || strings.Contains(clean, "..") || filepath.IsAbs(clean) {
		return "", fmt.Errorf("invalid blob key %q", key)
	}
	// The .meta sidecars are not objects; without this a crafted key could
	// read another object's metadata through the public file route.
	if strings.HasSuffix(clean, ".meta") {
		return "", fmt.Errorf("invalid blob key %q", key)
	}
	return filepath.Join(s.root, clean), nil
}

func (s *localStore) Put(ctx context.Context, key string, r io.Reader, opts PutOptions) error {
	p, err := s.path(key)
	if err != nil {
		return err
	}
	f, err := os.OpenFile(p, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return fmt.Errorf("failed to create blob file: %w", err)
	}
	if _, err := io.Copy(f, r); err != nil {
		_ = f.Close()
		return fmt.Errorf("failed to write blob file: %w", err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("failed to close blob file: %w", err)
	}

	meta, err := json.Marshal(localMeta{ContentType: opts.ContentType, Metadata: opts.Metadata})
	if err != nil {
		return err
	}
	if err := os.WriteFile(p+".meta", meta, 0o644); err != nil {
		return fmt.Errorf("failed to write blob metadata: %w", err)
	}
	return nil
}

func (s *localStore) Get(ctx context.Context, key string) (Info, io.ReadCloser, error) {
	p, err := s.path(key)
	if err != nil {
		return Info{}, nil, err
	}
	st, err := os.Stat(p)
	if err != nil {
		if os.IsNotExist(err) {
			return Info{}, nil, ErrNotFound
		}
		return Info{}, nil, err
	}

	var meta localMeta
	if raw, err := os.ReadFile(p + ".meta"); err == nil {
		_ = json.Unmarshal(raw, &meta)
	}

	f, err := os.Open(p)
	if err != nil {
		return Info{}, nil, err
	}
	return Info{
		Key:         key,
		Size:        st.Size(),
		ContentType: meta.ContentType,
		Metadata:    meta.Metadata,
		Updated:     st.ModTime().UTC(),
	}, f, nil
}

func (s *localStore) Exists(ctx context.Context, key string) (bool, error) {
	p, err := s.path(key)
	if err != nil {
		return false, err
	}
	if _, err := os.Stat(p); err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}
