package storage

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/aws/aws-sdk-go-v2/service/s3"
)

func TestSafeName(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"avatar.png", "avatar.png"},
		{"../../etc/passwd", "passwd"},
		{`C:\Users\me\photo 1.jpg`, "photo_1.jpg"},
		{"", "upload"},
		{"日本.png", "__.png"},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			if got := safeName(tt.in); got != tt.want {
				t.Errorf("safeName(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestCleanDir_StripsTraversal(t *testing.T) {
	if got := cleanDir("../../resources/covers"); got != "resources/covers" {
		t.Errorf("cleanDir = %q, want %q", got, "resources/covers")
	}
}

func TestLocalStore_Store_WritesFileAndReturnsURL(t *testing.T) {
	root := t.TempDir()
	store, err := NewLocalStore(root)
	if err != nil {
		t.Fatalf("NewLocalStore: %v", err)
	}

	url, err := store.Store(context.Background(), "avatars", "me.png", []byte("png-bytes"))
	if err != nil {
		t.Fatalf("Store: %v", err)
	}
	if !strings.HasPrefix(url, "/uploads/avatars/") || !strings.HasSuffix(url, "_me.png") {
		t.Errorf("url = %q", url)
	}

	rel := strings.TrimPrefix(url, LocalURLPrefix+"/")
	data, err := os.ReadFile(filepath.Join(root, filepath.FromSlash(rel)))
	if err != nil {
		t.Fatalf("stored file not found: %v", err)
	}
	if string(data) != "png-bytes" {
		t.Errorf("content = %q", data)
	}
}

func TestLocalStore_Store_UniqueNames(t *testing.T) {
	store, err := NewLocalStore(t.TempDir())
	if err != nil {
		t.Fatalf("NewLocalStore: %v", err)
	}
	a, _ := store.Store(context.Background(), "avatars", "same.png", []byte("a"))
	b, _ := store.Store(context.Background(), "avatars", "same.png", []byte("b"))
	if a == b {
		t.Errorf("expected unique URLs, got %q twice", a)
	}
}

func TestLocalStore_Store_CanceledContext(t *testing.T) {
	store, err := NewLocalStore(t.TempDir())
	if err != nil {
		t.Fatalf("NewLocalStore: %v", err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := store.Store(ctx, "avatars", "x.png", []byte("x")); err == nil {
		t.Fatal("expected error for canceled context")
	}
}

// mockPutter はobjectPutterのテスト用モック。
type mockPutter struct {
	putObjectFn func(ctx context.Context, params *s3.PutObjectInput) (*s3.PutObjectOutput, error)
}

func (m *mockPutter) PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	return m.putObjectFn(ctx, params)
}

func TestS3Store_Store_PutsObject(t *testing.T) {
	var gotKey, gotBucket, gotBody string
	putter := &mockPutter{putObjectFn: func(ctx context.Context, in *s3.PutObjectInput) (*s3.PutObjectOutput, error) {
		gotKey = *in.Key
		gotBucket = *in.Bucket
		b, _ := io.ReadAll(in.Body)
		gotBody = string(b)
		return &s3.PutObjectOutput{}, nil
	}}
	store := newS3Store(putter, S3Config{Bucket: "club", Region: "af-south-1"})

	url, err := store.Store(context.Background(), "resources/covers", "cover.jpg", []byte("jpeg"))
	if err != nil {
		t.Fatalf("Store: %v", err)
	}
	if gotBucket != "club" {
		t.Errorf("bucket = %q", gotBucket)
	}
	if !strings.HasPrefix(gotKey, "resources/covers/") || !strings.HasSuffix(gotKey, "_cover.jpg") {
		t.Errorf("key = %q", gotKey)
	}
	if gotBody != "jpeg" {
		t.Errorf("body = %q", gotBody)
	}
	if url != "https://club.s3.af-south-1.amazonaws.com/"+gotKey {
		t.Errorf("url = %q", url)
	}
}

func TestS3Store_Store_Error(t *testing.T) {
	putter := &mockPutter{putObjectFn: func(ctx context.Context, in *s3.PutObjectInput) (*s3.PutObjectOutput, error) {
		return nil, errors.New("access denied")
	}}
	store := newS3Store(putter, S3Config{Bucket: "club"})

	if _, err := store.Store(context.Background(), "avatars", "a.png", []byte("a")); err == nil {
		t.Fatal("expected error")
	}
}

func TestPublicBaseURL(t *testing.T) {
	tests := []struct {
		name string
		cfg  S3Config
		want string
	}{
		{"public url wins", S3Config{Bucket: "b", PublicURL: "https://cdn.example.com/"}, "https://cdn.example.com"},
		{"custom endpoint", S3Config{Bucket: "b", Endpoint: "http://minio:9000"}, "http://minio:9000/b"},
		{"aws default", S3Config{Bucket: "b", Region: "us-east-1"}, "https://b.s3.us-east-1.amazonaws.com"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := publicBaseURL(tt.cfg); got != tt.want {
				t.Errorf("publicBaseURL = %q, want %q", got, tt.want)
			}
		})
	}
}
