package storage

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
)

// LocalURLPrefix はローカル保存ファイルを配信するURLパス。
const LocalURLPrefix = "/uploads"

// LocalStore はローカルファイルシステムにファイルを保存する。
// 保存したファイルは LocalURLPrefix 配下で静的配信される前提。
type LocalStore struct {
	root string
}

// NewLocalStore はrootディレクトリを作成してLocalStoreを返す。
func NewLocalStore(root string) (*LocalStore, error) {
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create upload dir: %w", err)
	}
	return &LocalStore{root: root}, nil
}

// Root は保存先のルートディレクトリを返す。
func (s *LocalStore) Root() string {
	return s.root
}

// Store はroot/dir配下にファイルを書き込み、/uploads/... 形式のURLを返す。
func (s *LocalStore) Store(ctx context.Context, dir, filename string, data []byte) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	key := objectKey(dir, filename)
	fullPath := filepath.Join(s.root, filepath.FromSlash(key))
	if err := os.MkdirAll(filepath.Dir(fullPath), 0o755); err != nil {
		return "", fmt.Errorf("failed to create directory: %w", err)
	}
	if err := os.WriteFile(fullPath, data, 0o644); err != nil {
		return "", fmt.Errorf("failed to write file: %w", err)
	}
	return LocalURLPrefix + "/" + key, nil
}

// compile-time interface check
var _ BlobStore = (*LocalStore)(nil)
