// Package storage はアップロードされたファイルの保存先を提供する。
// ローカルファイルシステムとS3互換オブジェクトストレージの2種類を実装する。
package storage

import (
	"context"
	"path"
	"strings"

	"github.com/google/uuid"
)

// BlobStore はアップロードファイルを保存し、公開URLを返す。
type BlobStore interface {
	// Store はdir配下にdataを保存し、クライアントへ返す公開URLを返す。
	// 保存名は一意になるようUUIDを前置する。
	Store(ctx context.Context, dir, filename string, data []byte) (string, error)
}

// objectKey はdirと元ファイル名から衝突しない保存キーを生成する。
func objectKey(dir, filename string) string {
	return path.Join(cleanDir(dir), uuid.NewString()+"_"+safeName(filename))
}

// cleanDir はディレクトリ指定から先頭のスラッシュと親ディレクトリ参照を取り除く。
func cleanDir(dir string) string {
	cleaned := path.Clean("/" + dir)
	return strings.TrimPrefix(cleaned, "/")
}

// safeName はファイル名を英数字・ドット・ハイフン・アンダースコアのみに制限する。
func safeName(filename string) string {
	base := path.Base(strings.ReplaceAll(filename, "\\", "/"))
	if base == "." || base == "/" || base == "" {
		return "upload"
	}
	var b strings.Builder
	for _, r := range base {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '.', r == '-', r == '_':
			b.WriteRune(r)
		default:
			b.WriteRune('_')
		}
	}
	return b.String()
}
