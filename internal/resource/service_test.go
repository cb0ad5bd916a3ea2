package resource

import (
	"context"
	"errors"
	"testing"

	"github.com/hitoshi/aiclub/internal/model"
)

// --- モック ---

type mockResourceRepo struct {
	listFn          func(ctx context.Context, includeHidden bool) ([]*model.Resource, error)
	findByIDFn      func(ctx context.Context, id int, visibleOnly bool) (*model.Resource, error)
	createFn        func(ctx context.Context, res *model.Resource) error
	updateFn        func(ctx context.Context, res *model.Resource) (bool, error)
	deleteFn        func(ctx context.Context, id int) (bool, error)
	setVisibilityFn func(ctx context.Context, id int, visible bool) (*model.Resource, error)
}

func (m *mockResourceRepo) List(ctx context.Context, includeHidden bool) ([]*model.Resource, error) {
	return m.listFn(ctx, includeHidden)
}

func (m *mockResourceRepo) FindByID(ctx context.Context, id int, visibleOnly bool) (*model.Resource, error) {
	if m.findByIDFn != nil {
		return m.findByIDFn(ctx, id, visibleOnly)
	}
	return nil, nil
}

func (m *mockResourceRepo) Create(ctx context.Context, res *model.Resource) error {
	if m.createFn != nil {
		return m.createFn(ctx, res)
	}
	return nil
}

func (m *mockResourceRepo) Update(ctx context.Context, res *model.Resource) (bool, error) {
	if m.updateFn != nil {
		return m.updateFn(ctx, res)
	}
	return true, nil
}

func (m *mockResourceRepo) Delete(ctx context.Context, id int) (bool, error) {
	return m.deleteFn(ctx, id)
}

func (m *mockResourceRepo) SetVisibility(ctx context.Context, id int, visible bool) (*model.Resource, error) {
	return m.setVisibilityFn(ctx, id, visible)
}

type mockQuoteRepo struct {
	quote *model.Quote
	err   error
}

func (m *mockQuoteRepo) RandomVisible(ctx context.Context) (*model.Quote, error) {
	return m.quote, m.err
}

type storedBlob struct {
	dir, filename string
}

type mockBlobStore struct {
	stored []storedBlob
	err    error
}

func (m *mockBlobStore) Store(ctx context.Context, dir, filename string, data []byte) (string, error) {
	if m.err != nil {
		return "", m.err
	}
	m.stored = append(m.stored, storedBlob{dir: dir, filename: filename})
	return "/uploads/" + dir + "/id_" + filename, nil
}

type mockUploadObserver struct {
	total int64
}

func (m *mockUploadObserver) RecordUploadBytes(n int64) { m.total += n }

func strPtr(s string) *string { return &s }
func boolPtr(b bool) *bool    { return &b }

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

// --- 公開API ---

func TestService_List_VisibleOnly(t *testing.T) {
	repo := &mockResourceRepo{listFn: func(ctx context.Context, includeHidden bool) ([]*model.Resource, error) {
		if includeHidden {
			t.Error("public list must not include hidden resources")
		}
		return []*model.Resource{{ID: 1, Title: "Intro to ML"}}, nil
	}}
	svc := NewService(repo, &mockQuoteRepo{}, nil, nil)

	list, err := svc.List(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(list) != 1 || list[0].Title != "Intro to ML" {
		t.Errorf("list = %+v", list)
	}
}

func TestService_Detail(t *testing.T) {
	repo := &mockResourceRepo{findByIDFn: func(ctx context.Context, id int, visibleOnly bool) (*model.Resource, error) {
		if !visibleOnly {
			t.Error("public detail must be restricted to visible resources")
		}
		if id != 7 {
			return nil, nil
		}
		return &model.Resource{ID: 7, Title: "Deep Learning"}, nil
	}}
	quotes := &mockQuoteRepo{quote: &model.Quote{Text: "Stay curious", Author: "Unknown"}}
	svc := NewService(repo, quotes, nil, nil)

	d, err := svc.Detail(context.Background(), 7)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if d.Resource.ID != 7 || d.Quote == nil || d.Quote.Text != "Stay curious" {
		t.Errorf("detail = %+v", d)
	}

	_, err = svc.Detail(context.Background(), 8)
	assertKind(t, err, model.KindNotFound)
}

func TestService_Detail_NoQuote(t *testing.T) {
	repo := &mockResourceRepo{findByIDFn: func(ctx context.Context, id int, visibleOnly bool) (*model.Resource, error) {
		return &model.Resource{ID: id}, nil
	}}
	svc := NewService(repo, &mockQuoteRepo{}, nil, nil)

	d, err := svc.Detail(context.Background(), 1)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if d.Quote != nil {
		t.Errorf("quote = %+v, want nil", d.Quote)
	}
}

// --- 管理API ---

func TestService_Create_StoresUploadsAndDefaults(t *testing.T) {
	var created *model.Resource
	repo := &mockResourceRepo{createFn: func(ctx context.Context, res *model.Resource) error {
		res.ID = 42
		created = res
		return nil
	}}
	blobs := &mockBlobStore{}
	obs := &mockUploadObserver{}
	svc := NewService(repo, &mockQuoteRepo{}, blobs, obs)

	res, err := svc.Create(context.Background(), Input{
		Title:           strPtr("Intro to ML"),
		Provider:        strPtr("Coursera"),
		NotionURL:       strPtr("https://www.notion.so/aiclub/ml"),
		InstructorName:  strPtr("Andrew Ng"),
		CoverImage:      &Upload{Filename: "cover.png", Data: []byte("1234")},
		InstructorImage: &Upload{Filename: "andrew.jpg", Data: []byte("56")},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.ID != 42 || created != res {
		t.Errorf("res = %+v", res)
	}
	if !res.Visible {
		t.Error("visible must default to true")
	}
	if res.CoverImage != "/uploads/resources/covers/id_cover.png" {
		t.Errorf("CoverImage = %q", res.CoverImage)
	}
	if res.InstructorImage != "/uploads/resources/instructors/id_andrew.jpg" {
		t.Errorf("InstructorImage = %q", res.InstructorImage)
	}
	if len(blobs.stored) != 2 || blobs.stored[0].dir != CoverDir || blobs.stored[1].dir != InstructorDir {
		t.Errorf("stored = %+v", blobs.stored)
	}
	if obs.total != 6 {
		t.Errorf("recorded bytes = %d, want 6", obs.total)
	}
}

func TestService_Create_MissingFields(t *testing.T) {
	tests := []struct {
		name    string
		in      Input
		wantMsg string
	}{
		{"no title", Input{Provider: strPtr("Coursera")}, "Missing required field: title"},
		{"no provider", Input{Title: strPtr("ML")}, "Missing required field: provider"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := NewService(&mockResourceRepo{}, &mockQuoteRepo{}, &mockBlobStore{}, nil)
			_, err := svc.Create(context.Background(), tt.in)
			assertKind(t, err, model.KindBadRequest)
			if apiErr, _ := model.AsAPIError(err); apiErr.Message != tt.wantMsg {
				t.Errorf("message = %q, want %q", apiErr.Message, tt.wantMsg)
			}
		})
	}
}

func TestService_Create_InvalidNotionURL(t *testing.T) {
	blobs := &mockBlobStore{}
	svc := NewService(&mockResourceRepo{}, &mockQuoteRepo{}, blobs, nil)

	_, err := svc.Create(context.Background(), Input{
		Title:      strPtr("ML"),
		Provider:   strPtr("Coursera"),
		NotionURL:  strPtr("javascript:alert(1)"),
		CoverImage: &Upload{Filename: "c.png", Data: []byte("x")},
	})
	assertKind(t, err, model.KindValidation)
	if len(blobs.stored) != 0 {
		t.Error("files must not be stored when validation fails")
	}
}

func TestService_Update_MergesFields(t *testing.T) {
	existing := &model.Resource{
		ID: 3, Title: "Old", Provider: "edX", NotionURL: "https://notion.so/old",
		InstructorName: "Ada", CoverImage: "/uploads/resources/covers/old.png", Visible: true,
	}
	var saved *model.Resource
	repo := &mockResourceRepo{
		findByIDFn: func(ctx context.Context, id int, visibleOnly bool) (*model.Resource, error) {
			if visibleOnly {
				t.Error("admin update must see hidden resources")
			}
			cp := *existing
			return &cp, nil
		},
		updateFn: func(ctx context.Context, res *model.Resource) (bool, error) {
			saved = res
			return true, nil
		},
	}
	svc := NewService(repo, &mockQuoteRepo{}, &mockBlobStore{}, nil)

	res, err := svc.Update(context.Background(), 3, Input{
		Title:          strPtr("New"),
		NotionURL:      strPtr(""),
		InstructorName: strPtr(""),
		Visible:        boolPtr(false),
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if saved != res {
		t.Error("returned resource must be the saved one")
	}
	if res.Title != "New" || res.Provider != "edX" {
		t.Errorf("title/provider = %q/%q", res.Title, res.Provider)
	}
	if res.NotionURL != "" {
		t.Errorf("empty notionUrl must clear the link, got %q", res.NotionURL)
	}
	if res.InstructorName != "Ada" {
		t.Errorf("empty instructorName must keep the old value, got %q", res.InstructorName)
	}
	if res.CoverImage != existing.CoverImage {
		t.Errorf("cover must be kept without a new upload, got %q", res.CoverImage)
	}
	if res.Visible {
		t.Error("visible must be updated to false")
	}
}

func TestService_Update_NotFound(t *testing.T) {
	svc := NewService(&mockResourceRepo{}, &mockQuoteRepo{}, &mockBlobStore{}, nil)
	_, err := svc.Update(context.Background(), 99, Input{Title: strPtr("x")})
	assertKind(t, err, model.KindNotFound)
}

func TestService_Update_StoreFailure(t *testing.T) {
	repo := &mockResourceRepo{
		findByIDFn: func(ctx context.Context, id int, visibleOnly bool) (*model.Resource, error) {
			return &model.Resource{ID: id, Title: "t", Provider: "p"}, nil
		},
		updateFn: func(ctx context.Context, res *model.Resource) (bool, error) {
			t.Error("update must not run when storing fails")
			return true, nil
		},
	}
	svc := NewService(repo, &mockQuoteRepo{}, &mockBlobStore{err: errors.New("s3 down")}, nil)

	_, err := svc.Update(context.Background(), 1, Input{CoverImage: &Upload{Filename: "c.png", Data: []byte("x")}})
	assertKind(t, err, model.KindInternal)
}

func TestService_DeleteAndVisibility(t *testing.T) {
	repo := &mockResourceRepo{
		deleteFn: func(ctx context.Context, id int) (bool, error) {
			return id == 1, nil
		},
		setVisibilityFn: func(ctx context.Context, id int, visible bool) (*model.Resource, error) {
			if id != 1 {
				return nil, nil
			}
			return &model.Resource{ID: id, Visible: visible}, nil
		},
	}
	svc := NewService(repo, &mockQuoteRepo{}, nil, nil)

	if err := svc.Delete(context.Background(), 1); err != nil {
		t.Errorf("Delete(1) error = %v", err)
	}
	assertKind(t, svc.Delete(context.Background(), 2), model.KindNotFound)

	res, err := svc.SetVisibility(context.Background(), 1, false)
	if err != nil {
		t.Fatalf("SetVisibility error = %v", err)
	}
	if res.Visible {
		t.Error("visible = true, want false")
	}
	_, err = svc.SetVisibility(context.Background(), 2, true)
	assertKind(t, err, model.KindNotFound)
}
