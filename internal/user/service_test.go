package user

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/lib/pq"
	"golang.org/x/crypto/bcrypt"

	"github.com/hitoshi/aiclub/internal/auth"
	"github.com/hitoshi/aiclub/internal/model"
	"github.com/hitoshi/aiclub/internal/repository"
)

// --- モック ---

type mockUserRepo struct {
	repository.UserRepository

	findByIDFn           func(ctx context.Context, id string) (*model.User, error)
	updateProfileFn      func(ctx context.Context, userID string, update model.ProfileUpdate) (*model.User, error)
	updateImageFn        func(ctx context.Context, userID, imageURL string) error
	updatePasswordHashFn func(ctx context.Context, userID, hash string) error
	emailTakenByOtherFn  func(ctx context.Context, email, userID string) (bool, error)
	topByPointsFn        func(ctx context.Context, limit int) ([]model.LeaderboardEntry, error)
}

func (m *mockUserRepo) FindByID(ctx context.Context, id string) (*model.User, error) {
	if m.findByIDFn != nil {
		return m.findByIDFn(ctx, id)
	}
	return nil, nil
}

func (m *mockUserRepo) UpdateProfile(ctx context.Context, userID string, update model.ProfileUpdate) (*model.User, error) {
	return m.updateProfileFn(ctx, userID, update)
}

func (m *mockUserRepo) UpdateImage(ctx context.Context, userID, imageURL string) error {
	if m.updateImageFn != nil {
		return m.updateImageFn(ctx, userID, imageURL)
	}
	return nil
}

func (m *mockUserRepo) UpdatePasswordHash(ctx context.Context, userID, hash string) error {
	if m.updatePasswordHashFn != nil {
		return m.updatePasswordHashFn(ctx, userID, hash)
	}
	return nil
}

func (m *mockUserRepo) EmailTakenByOther(ctx context.Context, email, userID string) (bool, error) {
	if m.emailTakenByOtherFn != nil {
		return m.emailTakenByOtherFn(ctx, email, userID)
	}
	return false, nil
}

func (m *mockUserRepo) TopByPoints(ctx context.Context, limit int) ([]model.LeaderboardEntry, error) {
	return m.topByPointsFn(ctx, limit)
}

type mockStatsRepo struct {
	findByUserIDFn func(ctx context.Context, userID string) (*model.UserStats, error)
}

func (m *mockStatsRepo) FindByUserID(ctx context.Context, userID string) (*model.UserStats, error) {
	if m.findByUserIDFn != nil {
		return m.findByUserIDFn(ctx, userID)
	}
	return nil, nil
}

type mockBlobStore struct {
	storeFn func(ctx context.Context, dir, filename string, data []byte) (string, error)
}

func (m *mockBlobStore) Store(ctx context.Context, dir, filename string, data []byte) (string, error) {
	return m.storeFn(ctx, dir, filename, data)
}

type mockUploadObserver struct {
	total int64
}

func (m *mockUploadObserver) RecordUploadBytes(n int64) { m.total += n }

func assertKind(t *testing.T, err error, want model.ErrorKind) {
	t.Helper()
	apiErr, ok := model.AsAPIError(err)
	if !ok {
		t.Fatalf("expected APIError, got %v", err)
	}
	if apiErr.Kind != want {
		t.Errorf("Kind = %v, want %v", apiErr.Kind, want)
	}
}

func strPtr(s string) *string { return &s }

// --- テスト ---

func TestService_Profile(t *testing.T) {
	userRepo := &mockUserRepo{findByIDFn: func(ctx context.Context, id string) (*model.User, error) {
		return &model.User{ID: id, FullName: "Thabo", Points: 120, Rank: 3}, nil
	}}
	statsRepo := &mockStatsRepo{findByUserIDFn: func(ctx context.Context, userID string) (*model.UserStats, error) {
		return &model.UserStats{UserID: userID, BestSubject: "NLP", ChallengesTaken: 4}, nil
	}}
	svc := NewService(userRepo, statsRepo, nil, nil, bcrypt.MinCost)

	p, err := svc.Profile(context.Background(), "u-1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if p.User.Rank != 3 || p.Stats.BestSubject != "NLP" {
		t.Errorf("profile = %+v / %+v", p.User, p.Stats)
	}
}

func TestService_Profile_NotFound(t *testing.T) {
	t.Run("no user", func(t *testing.T) {
		svc := NewService(&mockUserRepo{}, &mockStatsRepo{}, nil, nil, bcrypt.MinCost)
		_, err := svc.Profile(context.Background(), "u-1")
		assertKind(t, err, model.KindNotFound)
	})

	t.Run("no stats row", func(t *testing.T) {
		userRepo := &mockUserRepo{findByIDFn: func(ctx context.Context, id string) (*model.User, error) {
			return &model.User{ID: id}, nil
		}}
		svc := NewService(userRepo, &mockStatsRepo{}, nil, nil, bcrypt.MinCost)
		_, err := svc.Profile(context.Background(), "u-1")
		assertKind(t, err, model.KindNotFound)
	})
}

func TestService_UpdateProfile_PartialUpdate(t *testing.T) {
	var got model.ProfileUpdate
	userRepo := &mockUserRepo{
		updateProfileFn: func(ctx context.Context, userID string, update model.ProfileUpdate) (*model.User, error) {
			got = update
			return &model.User{ID: userID, FullName: *update.FullName, Email: "same@example.com"}, nil
		},
		emailTakenByOtherFn: func(ctx context.Context, email, userID string) (bool, error) {
			t.Error("email check must not run when email is not changed")
			return false, nil
		},
	}
	svc := NewService(userRepo, &mockStatsRepo{}, nil, nil, bcrypt.MinCost)

	u, err := svc.UpdateProfile(context.Background(), "u-1", ProfileInput{FullName: strPtr(" New Name ")})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if u.FullName != "New Name" {
		t.Errorf("FullName = %q", u.FullName)
	}
	if got.Email != nil || got.Image != nil {
		t.Errorf("unset fields must stay nil: %+v", got)
	}
}

func TestService_UpdateProfile_EmailTaken(t *testing.T) {
	userRepo := &mockUserRepo{
		emailTakenByOtherFn: func(ctx context.Context, email, userID string) (bool, error) {
			return email == "taken@example.com", nil
		},
		updateProfileFn: func(ctx context.Context, userID string, update model.ProfileUpdate) (*model.User, error) {
			t.Error("update must not run when the email is taken")
			return nil, nil
		},
	}
	svc := NewService(userRepo, &mockStatsRepo{}, nil, nil, bcrypt.MinCost)

	_, err := svc.UpdateProfile(context.Background(), "u-1", ProfileInput{Email: strPtr("taken@example.com")})
	assertKind(t, err, model.KindUserExists)
}

func TestService_UpdateProfile_Errors(t *testing.T) {
	tests := []struct {
		name     string
		in       ProfileInput
		updateFn func(ctx context.Context, userID string, update model.ProfileUpdate) (*model.User, error)
		wantKind model.ErrorKind
	}{
		{
			name:     "invalid email",
			in:       ProfileInput{Email: strPtr("nope")},
			wantKind: model.KindValidation,
		},
		{
			name:     "blank name",
			in:       ProfileInput{FullName: strPtr("  ")},
			wantKind: model.KindValidation,
		},
		{
			name: "user missing",
			in:   ProfileInput{Image: strPtr("/uploads/a.png")},
			updateFn: func(ctx context.Context, userID string, update model.ProfileUpdate) (*model.User, error) {
				return nil, nil
			},
			wantKind: model.KindNotFound,
		},
		{
			name: "unique violation race",
			in:   ProfileInput{Email: strPtr("race@example.com")},
			updateFn: func(ctx context.Context, userID string, update model.ProfileUpdate) (*model.User, error) {
				return nil, wrapUnique()
			},
			wantKind: model.KindUserExists,
		},
		{
			name: "database failure",
			in:   ProfileInput{Image: strPtr("/uploads/a.png")},
			updateFn: func(ctx context.Context, userID string, update model.ProfileUpdate) (*model.User, error) {
				return nil, errors.New("connection reset")
			},
			wantKind: model.KindInternal,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := NewService(&mockUserRepo{updateProfileFn: tt.updateFn}, &mockStatsRepo{}, nil, nil, bcrypt.MinCost)
			_, err := svc.UpdateProfile(context.Background(), "u-1", tt.in)
			assertKind(t, err, tt.wantKind)
		})
	}
}

func TestService_UploadAvatar(t *testing.T) {
	var storedDir, storedName, savedURL string
	blobs := &mockBlobStore{storeFn: func(ctx context.Context, dir, filename string, data []byte) (string, error) {
		storedDir, storedName = dir, filename
		return "/uploads/avatars/abc_" + filename, nil
	}}
	userRepo := &mockUserRepo{updateImageFn: func(ctx context.Context, userID, imageURL string) error {
		savedURL = imageURL
		return nil
	}}
	obs := &mockUploadObserver{}
	svc := NewService(userRepo, &mockStatsRepo{}, blobs, obs, bcrypt.MinCost)

	url, err := svc.UploadAvatar(context.Background(), "u-1", "me.png", []byte("png-bytes"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if storedDir != AvatarDir || storedName != "me.png" {
		t.Errorf("stored %q/%q", storedDir, storedName)
	}
	if url != savedURL || url != "/uploads/avatars/abc_me.png" {
		t.Errorf("url = %q, saved = %q", url, savedURL)
	}
	if obs.total != int64(len("png-bytes")) {
		t.Errorf("recorded bytes = %d", obs.total)
	}
}

func TestService_UploadAvatar_DefaultFilename(t *testing.T) {
	var storedName string
	blobs := &mockBlobStore{storeFn: func(ctx context.Context, dir, filename string, data []byte) (string, error) {
		storedName = filename
		return "/uploads/avatars/" + filename, nil
	}}
	svc := NewService(&mockUserRepo{}, &mockStatsRepo{}, blobs, nil, bcrypt.MinCost)

	if _, err := svc.UploadAvatar(context.Background(), "u-1", "", []byte("x")); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.HasSuffix(storedName, ".jpg") || len(storedName) != len("00000000-0000-0000-0000-000000000000.jpg") {
		t.Errorf("filename = %q, want <uuid>.jpg", storedName)
	}
}

func TestService_UploadAvatar_Errors(t *testing.T) {
	t.Run("empty file", func(t *testing.T) {
		svc := NewService(&mockUserRepo{}, &mockStatsRepo{}, nil, nil, bcrypt.MinCost)
		_, err := svc.UploadAvatar(context.Background(), "u-1", "a.png", nil)
		assertKind(t, err, model.KindBadRequest)
	})

	t.Run("store fails", func(t *testing.T) {
		blobs := &mockBlobStore{storeFn: func(ctx context.Context, dir, filename string, data []byte) (string, error) {
			return "", errors.New("disk full")
		}}
		userRepo := &mockUserRepo{updateImageFn: func(ctx context.Context, userID, imageURL string) error {
			t.Error("image must not be updated when storing fails")
			return nil
		}}
		svc := NewService(userRepo, &mockStatsRepo{}, blobs, nil, bcrypt.MinCost)
		_, err := svc.UploadAvatar(context.Background(), "u-1", "a.png", []byte("x"))
		assertKind(t, err, model.KindInternal)
	})
}

func TestService_ChangePassword(t *testing.T) {
	hash, err := auth.HashPassword("old-password", bcrypt.MinCost)
	if err != nil {
		t.Fatalf("HashPassword: %v", err)
	}
	users := map[string]*model.User{
		"pw": {ID: "pw", PasswordHash: hash},
		"g":  {ID: "g", GoogleID: "g-1"},
	}

	tests := []struct {
		name     string
		userID   string
		current  string
		next     string
		wantKind *model.ErrorKind
	}{
		{"success", "pw", "old-password", "new-password", nil},
		{"wrong current", "pw", "bad-password", "new-password", kindPtr(model.KindAuth)},
		{"short new password", "pw", "old-password", "short", kindPtr(model.KindValidation)},
		{"google only", "g", "anything", "new-password", kindPtr(model.KindBadRequest)},
		{"missing user", "ghost", "old-password", "new-password", kindPtr(model.KindNotFound)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var storedHash string
			userRepo := &mockUserRepo{
				findByIDFn: func(ctx context.Context, id string) (*model.User, error) {
					return users[id], nil
				},
				updatePasswordHashFn: func(ctx context.Context, userID, hash string) error {
					storedHash = hash
					return nil
				},
			}
			svc := NewService(userRepo, &mockStatsRepo{}, nil, nil, bcrypt.MinCost)

			err := svc.ChangePassword(context.Background(), tt.userID, tt.current, tt.next)
			if tt.wantKind != nil {
				assertKind(t, err, *tt.wantKind)
				if storedHash != "" {
					t.Error("password must not be stored on failure")
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if ok, _ := auth.ComparePassword(storedHash, tt.next); !ok {
				t.Error("stored hash does not match the new password")
			}
		})
	}
}

func TestService_Leaderboard(t *testing.T) {
	userRepo := &mockUserRepo{topByPointsFn: func(ctx context.Context, limit int) ([]model.LeaderboardEntry, error) {
		if limit != LeaderboardSize {
			t.Errorf("limit = %d, want %d", limit, LeaderboardSize)
		}
		return []model.LeaderboardEntry{{UserID: "a", Name: "A", Points: 50}}, nil
	}}
	svc := NewService(userRepo, &mockStatsRepo{}, nil, nil, bcrypt.MinCost)

	entries, err := svc.Leaderboard(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(entries) != 1 || entries[0].Points != 50 {
		t.Errorf("entries = %+v", entries)
	}
}

func wrapUnique() error {
	return fmt.Errorf("failed to update profile: %w",
		&pq.Error{Code: "23505", Constraint: repository.ConstraintUsersEmail})
}

func kindPtr(k model.ErrorKind) *model.ErrorKind { return &k }
