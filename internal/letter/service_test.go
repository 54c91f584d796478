package letter

import (
	"context"
	"errors"
	"testing"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/hitoshi/letterbox/internal/model"
)

// mockLetterRepo はLetterRepositoryのモック。
type mockLetterRepo struct {
	listFunc     func(ctx context.Context) ([]*model.Letter, error)
	findByIDFunc func(ctx context.Context, id string) (*model.Letter, error)
	createFunc   func(ctx context.Context, title, content string) (*model.Letter, error)
	updateFunc   func(ctx context.Context, id, title, content string) (*model.Letter, error)
	deleteFunc   func(ctx context.Context, id string) error
}

func (m *mockLetterRepo) List(ctx context.Context) ([]*model.Letter, error) {
	return m.listFunc(ctx)
}

func (m *mockLetterRepo) FindByID(ctx context.Context, id string) (*model.Letter, error) {
	return m.findByIDFunc(ctx, id)
}

func (m *mockLetterRepo) Create(ctx context.Context, title, content string) (*model.Letter, error) {
	return m.createFunc(ctx, title, content)
}

func (m *mockLetterRepo) Update(ctx context.Context, id, title, content string) (*model.Letter, error) {
	return m.updateFunc(ctx, id, title, content)
}

func (m *mockLetterRepo) Delete(ctx context.Context, id string) error {
	return m.deleteFunc(ctx, id)
}

// mockDriveClient はDriveClientのモック。
type mockDriveClient struct {
	uploadFunc func(ctx context.Context, title, content string) (*model.DriveFile, error)
	listFunc   func(ctx context.Context) ([]*model.DriveFile, error)
	deleteFunc func(ctx context.Context, fileID string) error
}

func (m *mockDriveClient) Upload(ctx context.Context, title, content string) (*model.DriveFile, error) {
	return m.uploadFunc(ctx, title, content)
}

func (m *mockDriveClient) List(ctx context.Context) ([]*model.DriveFile, error) {
	return m.listFunc(ctx)
}

func (m *mockDriveClient) Delete(ctx context.Context, fileID string) error {
	return m.deleteFunc(ctx, fileID)
}

// passthroughSanitizer はサニタイズをマーカー付与に置き換えるテスト用実装。
type passthroughSanitizer struct {
	called bool
}

func (s *passthroughSanitizer) Sanitize(rawHTML string) string {
	s.called = true
	return rawHTML
}

// mockMetrics はMetricsRecorderのモック。
type mockMetrics struct {
	ops       []string
	successes []bool
}

func (m *mockMetrics) RecordDriveOp(op string, success bool) {
	m.ops = append(m.ops, op)
	m.successes = append(m.successes, success)
}

func (m *mockMetrics) RecordDriveLatency(op string, duration time.Duration) {}

func TestService_Create_SavesSanitizedContent(t *testing.T) {
	sanitizer := &passthroughSanitizer{}
	var savedTitle, savedContent string
	repo := &mockLetterRepo{
		createFunc: func(ctx context.Context, title, content string) (*model.Letter, error) {
			savedTitle = title
			savedContent = content
			return &model.Letter{
				ID:        primitive.NewObjectID(),
				Title:     title,
				Content:   content,
				CreatedAt: time.Now(),
			}, nil
		},
	}

	svc := NewService(repo, sanitizer, &mockDriveClient{}, nil)

	letter, err := svc.Create(context.Background(), "タイトル", "<p>本文</p>")
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	if letter == nil {
		t.Fatal("expected non-nil letter")
	}
	if !sanitizer.called {
		t.Error("expected content to pass through sanitizer")
	}
	if savedTitle != "タイトル" {
		t.Errorf("saved title = %q, want %q", savedTitle, "タイトル")
	}
	if savedContent != "<p>本文</p>" {
		t.Errorf("saved content = %q", savedContent)
	}
}

func TestService_Create_EmptyTitle_ReturnsInvalidRequest(t *testing.T) {
	tests := []struct {
		name  string
		title string
	}{
		{"empty title", ""},
		{"whitespace only title", "   "},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := NewService(&mockLetterRepo{}, &passthroughSanitizer{}, &mockDriveClient{}, nil)

			_, err := svc.Create(context.Background(), tt.title, "content")

			var apiErr *model.APIError
			if !errors.As(err, &apiErr) {
				t.Fatalf("expected APIError, got %v", err)
			}
			if apiErr.Code != model.ErrCodeInvalidRequest {
				t.Errorf("Code = %q, want %q", apiErr.Code, model.ErrCodeInvalidRequest)
			}
		})
	}
}

func TestService_Update_EmptyTitle_ReturnsInvalidRequest(t *testing.T) {
	svc := NewService(&mockLetterRepo{}, &passthroughSanitizer{}, &mockDriveClient{}, nil)

	_, err := svc.Update(context.Background(), "some-id", " ", "content")

	var apiErr *model.APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("expected APIError, got %v", err)
	}
	if apiErr.Code != model.ErrCodeInvalidRequest {
		t.Errorf("Code = %q, want %q", apiErr.Code, model.ErrCodeInvalidRequest)
	}
}

func TestService_Update_NotFound_ReturnsNil(t *testing.T) {
	repo := &mockLetterRepo{
		updateFunc: func(ctx context.Context, id, title, content string) (*model.Letter, error) {
			return nil, nil
		},
	}
	svc := NewService(repo, &passthroughSanitizer{}, &mockDriveClient{}, nil)

	letter, err := svc.Update(context.Background(), "000000000000000000000000", "title", "content")
	if err != nil {
		t.Fatalf("Update() error = %v", err)
	}
	if letter != nil {
		t.Error("expected nil letter for missing ID")
	}
}

func TestService_Delete_MissingID_Succeeds(t *testing.T) {
	repo := &mockLetterRepo{
		deleteFunc: func(ctx context.Context, id string) error {
			// ストアは存在しないIDの削除も成功として扱う
			return nil
		},
	}
	svc := NewService(repo, &passthroughSanitizer{}, &mockDriveClient{}, nil)

	if err := svc.Delete(context.Background(), "no-such-id"); err != nil {
		t.Errorf("Delete() error = %v, want nil", err)
	}
}

func TestService_UploadToDrive_SendsStoredTitleAndContent(t *testing.T) {
	stored := &model.Letter{
		ID:      primitive.NewObjectID(),
		Title:   "保存済みタイトル",
		Content: "<p>保存済み本文</p>",
	}
	repo := &mockLetterRepo{
		findByIDFunc: func(ctx context.Context, id string) (*model.Letter, error) {
			return stored, nil
		},
	}

	var uploadedTitle, uploadedContent string
	drive := &mockDriveClient{
		uploadFunc: func(ctx context.Context, title, content string) (*model.DriveFile, error) {
			uploadedTitle = title
			uploadedContent = content
			return &model.DriveFile{ID: "drive-file-1", Name: title}, nil
		},
	}
	metrics := &mockMetrics{}

	svc := NewService(repo, &passthroughSanitizer{}, drive, metrics)

	file, err := svc.UploadToDrive(context.Background(), stored.ID.Hex())
	if err != nil {
		t.Fatalf("UploadToDrive() error = %v", err)
	}

	// ストアに保存された内容がそのまま送信されること
	if uploadedTitle != stored.Title {
		t.Errorf("uploaded title = %q, want %q", uploadedTitle, stored.Title)
	}
	if uploadedContent != stored.Content {
		t.Errorf("uploaded content = %q, want %q", uploadedContent, stored.Content)
	}

	// Drive側のIDはローカルIDとは独立
	if file.ID == stored.ID.Hex() {
		t.Error("drive file ID should be independent of local letter ID")
	}

	if len(metrics.ops) != 1 || metrics.ops[0] != "upload" || !metrics.successes[0] {
		t.Errorf("metrics = %v / %v, want single successful upload", metrics.ops, metrics.successes)
	}
}

func TestService_UploadToDrive_LetterNotFound(t *testing.T) {
	repo := &mockLetterRepo{
		findByIDFunc: func(ctx context.Context, id string) (*model.Letter, error) {
			return nil, nil
		},
	}
	svc := NewService(repo, &passthroughSanitizer{}, &mockDriveClient{}, nil)

	_, err := svc.UploadToDrive(context.Background(), "000000000000000000000000")

	var apiErr *model.APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("expected APIError, got %v", err)
	}
	if apiErr.Code != model.ErrCodeLetterNotFound {
		t.Errorf("Code = %q, want %q", apiErr.Code, model.ErrCodeLetterNotFound)
	}
}

func TestService_UploadToDrive_DriveError(t *testing.T) {
	repo := &mockLetterRepo{
		findByIDFunc: func(ctx context.Context, id string) (*model.Letter, error) {
			return &model.Letter{ID: primitive.NewObjectID(), Title: "t", Content: "c"}, nil
		},
	}
	drive := &mockDriveClient{
		uploadFunc: func(ctx context.Context, title, content string) (*model.DriveFile, error) {
			return nil, errors.New("quota exceeded")
		},
	}
	metrics := &mockMetrics{}

	svc := NewService(repo, &passthroughSanitizer{}, drive, metrics)

	_, err := svc.UploadToDrive(context.Background(), "000000000000000000000000")

	var apiErr *model.APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("expected APIError, got %v", err)
	}
	if apiErr.Code != model.ErrCodeDriveUploadFailed {
		t.Errorf("Code = %q, want %q", apiErr.Code, model.ErrCodeDriveUploadFailed)
	}

	if len(metrics.successes) != 1 || metrics.successes[0] {
		t.Errorf("metrics should record failed upload, got %v", metrics.successes)
	}
}

func TestService_ListDriveLetters_Success(t *testing.T) {
	drive := &mockDriveClient{
		listFunc: func(ctx context.Context) ([]*model.DriveFile, error) {
			return []*model.DriveFile{
				{ID: "f1", Name: "letter one"},
				{ID: "f2", Name: "letter two"},
			}, nil
		},
	}
	svc := NewService(&mockLetterRepo{}, &passthroughSanitizer{}, drive, nil)

	files, err := svc.ListDriveLetters(context.Background())
	if err != nil {
		t.Fatalf("ListDriveLetters() error = %v", err)
	}
	if len(files) != 2 {
		t.Errorf("len(files) = %d, want 2", len(files))
	}
}

func TestService_ListDriveLetters_DriveError(t *testing.T) {
	drive := &mockDriveClient{
		listFunc: func(ctx context.Context) ([]*model.DriveFile, error) {
			return nil, errors.New("unauthorized")
		},
	}
	svc := NewService(&mockLetterRepo{}, &passthroughSanitizer{}, drive, nil)

	_, err := svc.ListDriveLetters(context.Background())

	var apiErr *model.APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("expected APIError, got %v", err)
	}
	if apiErr.Code != model.ErrCodeDriveListFailed {
		t.Errorf("Code = %q, want %q", apiErr.Code, model.ErrCodeDriveListFailed)
	}
}

func TestService_DeleteDriveLetter_Success(t *testing.T) {
	var deletedID string
	drive := &mockDriveClient{
		deleteFunc: func(ctx context.Context, fileID string) error {
			deletedID = fileID
			return nil
		},
	}
	svc := NewService(&mockLetterRepo{}, &passthroughSanitizer{}, drive, nil)

	if err := svc.DeleteDriveLetter(context.Background(), "drive-file-1"); err != nil {
		t.Fatalf("DeleteDriveLetter() error = %v", err)
	}
	if deletedID != "drive-file-1" {
		t.Errorf("deleted fileID = %q, want %q", deletedID, "drive-file-1")
	}
}

func TestService_DeleteDriveLetter_DriveError(t *testing.T) {
	drive := &mockDriveClient{
		deleteFunc: func(ctx context.Context, fileID string) error {
			return errors.New("not found")
		},
	}
	svc := NewService(&mockLetterRepo{}, &passthroughSanitizer{}, drive, nil)

	err := svc.DeleteDriveLetter(context.Background(), "no-such-file")

	var apiErr *model.APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("expected APIError, got %v", err)
	}
	if apiErr.Code != model.ErrCodeDriveDeleteFailed {
		t.Errorf("Code = %q, want %q", apiErr.Code, model.ErrCodeDriveDeleteFailed)
	}
}

// memLetterRepo はインメモリのLetterRepository実装。
// 挿入順を保持し、ストアの契約（冪等削除、不在はnil）を再現する。
type memLetterRepo struct {
	letters []*model.Letter
}

func (m *memLetterRepo) List(ctx context.Context) ([]*model.Letter, error) {
	return m.letters, nil
}

func (m *memLetterRepo) FindByID(ctx context.Context, id string) (*model.Letter, error) {
	for _, l := range m.letters {
		if l.ID.Hex() == id {
			return l, nil
		}
	}
	return nil, nil
}

func (m *memLetterRepo) Create(ctx context.Context, title, content string) (*model.Letter, error) {
	l := &model.Letter{
		ID:        primitive.NewObjectID(),
		Title:     title,
		Content:   content,
		CreatedAt: time.Now(),
	}
	m.letters = append(m.letters, l)
	return l, nil
}

func (m *memLetterRepo) Update(ctx context.Context, id, title, content string) (*model.Letter, error) {
	for _, l := range m.letters {
		if l.ID.Hex() == id {
			l.Title = title
			l.Content = content
			return l, nil
		}
	}
	return nil, nil
}

func (m *memLetterRepo) Delete(ctx context.Context, id string) error {
	for i, l := range m.letters {
		if l.ID.Hex() == id {
			m.letters = append(m.letters[:i], m.letters[i+1:]...)
			return nil
		}
	}
	return nil
}

func TestService_CreateThenList_IncludesNewLetter(t *testing.T) {
	repo := &memLetterRepo{}
	svc := NewService(repo, &passthroughSanitizer{}, &mockDriveClient{}, nil)
	ctx := context.Background()

	created, err := svc.Create(ctx, "Draft A", "<p>hi</p>")
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	if created.ID.IsZero() {
		t.Fatal("expected server-assigned ID")
	}

	letters, err := svc.List(ctx)
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}

	found := 0
	for _, l := range letters {
		if l.ID == created.ID {
			found++
			if l.Title != "Draft A" || l.Content != "<p>hi</p>" {
				t.Errorf("listed letter = {%q, %q}, want {Draft A, <p>hi</p>}", l.Title, l.Content)
			}
		}
	}
	if found != 1 {
		t.Errorf("new letter appears %d times in list, want 1", found)
	}
}

func TestService_Update_Idempotent(t *testing.T) {
	repo := &memLetterRepo{}
	svc := NewService(repo, &passthroughSanitizer{}, &mockDriveClient{}, nil)
	ctx := context.Background()

	created, err := svc.Create(ctx, "original", "<p>original</p>")
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	first, err := svc.Update(ctx, created.ID.Hex(), "updated", "<p>updated</p>")
	if err != nil {
		t.Fatalf("first Update() error = %v", err)
	}

	// 同一入力の再適用は同一の最終状態になる
	second, err := svc.Update(ctx, created.ID.Hex(), "updated", "<p>updated</p>")
	if err != nil {
		t.Fatalf("second Update() error = %v", err)
	}

	if first.Title != second.Title || first.Content != second.Content || first.ID != second.ID {
		t.Errorf("update is not idempotent: first = %+v, second = %+v", first, second)
	}
}

func TestService_DeleteLocal_DoesNotTouchDrive(t *testing.T) {
	repo := &memLetterRepo{}
	driveDeleteCalled := false
	drive := &mockDriveClient{
		uploadFunc: func(ctx context.Context, title, content string) (*model.DriveFile, error) {
			return &model.DriveFile{ID: "drive-copy-1", Name: title}, nil
		},
		deleteFunc: func(ctx context.Context, fileID string) error {
			driveDeleteCalled = true
			return nil
		},
	}
	svc := NewService(repo, &passthroughSanitizer{}, drive, nil)
	ctx := context.Background()

	created, err := svc.Create(ctx, "Draft A", "<p>hi</p>")
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	if _, err := svc.UploadToDrive(ctx, created.ID.Hex()); err != nil {
		t.Fatalf("UploadToDrive() error = %v", err)
	}

	// ローカル削除はDrive上の複製を削除しない
	if err := svc.Delete(ctx, created.ID.Hex()); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}
	if driveDeleteCalled {
		t.Error("local delete must not delete the drive copy")
	}
}
