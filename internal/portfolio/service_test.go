package portfolio

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// recordingStore captures uploads for assertions.
type recordingStore struct {
	keys         []string
	contentTypes []string
	bodies       [][]byte
	uploadErr    error
}

func (s *recordingStore) Upload(_ context.Context, key, contentType string, body io.Reader) (string, error) {
	if s.uploadErr != nil {
		return "", s.uploadErr
	}
	data, err := io.ReadAll(body)
	if err != nil {
		return "", err
	}
	s.keys = append(s.keys, key)
	s.contentTypes = append(s.contentTypes, contentType)
	s.bodies = append(s.bodies, data)
	return "https://cdn.test/" + key, nil
}

func (s *recordingStore) Download(_ context.Context, _ string) (io.ReadCloser, error) {
	return nil, errors.New("not implemented")
}

func (s *recordingStore) SignedURL(_ context.Context, key string, _ time.Duration) (string, error) {
	return "https://signed.test/" + key, nil
}

func newTestService(store *recordingStore) (*Service, *MemoryRepository) {
	repo := NewMemoryRepository()
	svc := NewService(repo, store, slog.New(slog.DiscardHandler))
	return svc, repo
}

func TestService_CreateWithoutDocument(t *testing.T) {
	store := &recordingStore{}
	svc, repo := newTestService(store)

	p, err := svc.Create(context.Background(), "user-1", CreateInput{
		Title:   "My Resume",
		RawData: json.RawMessage(`{"skills":["go"]}`),
	})

	require.NoError(t, err)
	assert.NotEmpty(t, p.ID)
	assert.Equal(t, "user-1", p.UserID)
	assert.Equal(t, "My Resume", p.Title)
	assert.Empty(t, p.DocumentPath)
	assert.JSONEq(t, `{"skills":["go"]}`, string(p.RawData))
	assert.Empty(t, store.keys)

	stored, err := repo.FindByIDForUser(context.Background(), p.ID, "user-1")
	require.NoError(t, err)
	assert.Equal(t, p.ID, stored.ID)
}

func TestService_CreateUploadsDocumentFirst(t *testing.T) {
	store := &recordingStore{}
	svc, _ := newTestService(store)

	p, err := svc.Create(context.Background(), "user-1", CreateInput{
		Title: "My Resume",
		Document: &Document{
			Filename:    "résumé 2026.pdf",
			ContentType: "application/pdf",
			Body:        strings.NewReader("%PDF-1.7"),
		},
	})

	require.NoError(t, err)
	require.Len(t, store.keys, 1)
	assert.True(t, strings.HasPrefix(store.keys[0], "portfolios/user-1/"))
	// Unsafe filename characters are escaped in the object key.
	assert.NotContains(t, store.keys[0], " ")
	assert.Equal(t, "application/pdf", store.contentTypes[0])
	assert.Equal(t, []byte("%PDF-1.7"), store.bodies[0])
	assert.Equal(t, store.keys[0], p.DocumentPath)
}

func TestService_CreateDefaultsContentType(t *testing.T) {
	store := &recordingStore{}
	svc, _ := newTestService(store)

	_, err := svc.Create(context.Background(), "user-1", CreateInput{
		Title:    "R",
		Document: &Document{Filename: "r.pdf", Body: strings.NewReader("x")},
	})

	require.NoError(t, err)
	require.Len(t, store.contentTypes, 1)
	assert.Equal(t, "application/pdf", store.contentTypes[0])
}

func TestService_CreateRequiresTitle(t *testing.T) {
	svc, _ := newTestService(&recordingStore{})

	_, err := svc.Create(context.Background(), "user-1", CreateInput{})
	assert.ErrorIs(t, err, ErrTitleRequired)
}

func TestService_CreateFailsWhenUploadFails(t *testing.T) {
	store := &recordingStore{uploadErr: errors.New("bucket unavailable")}
	svc, repo := newTestService(store)

	_, err := svc.Create(context.Background(), "user-1", CreateInput{
		Title:    "R",
		Document: &Document{Filename: "r.pdf", Body: strings.NewReader("x")},
	})

	require.Error(t, err)
	// Upload happens before insert: a failed upload leaves no record.
	list, listErr := repo.ListByUser(context.Background(), "user-1")
	require.NoError(t, listErr)
	assert.Empty(t, list)
}

func TestService_ListNewestFirst(t *testing.T) {
	svc, repo := newTestService(&recordingStore{})

	base := time.Now()
	for i, title := range []string{"oldest", "middle", "newest"} {
		require.NoError(t, repo.Save(context.Background(), Portfolio{
			ID:        title,
			UserID:    "user-1",
			Title:     title,
			CreatedAt: base.Add(time.Duration(i) * time.Minute),
		}))
	}

	list, err := svc.List(context.Background(), "user-1")
	require.NoError(t, err)
	require.Len(t, list, 3)
	assert.Equal(t, "newest", list[0].Title)
	assert.Equal(t, "oldest", list[2].Title)
}

func TestService_OwnershipScoping(t *testing.T) {
	svc, _ := newTestService(&recordingStore{})

	p, err := svc.Create(context.Background(), "user-1", CreateInput{Title: "Mine"})
	require.NoError(t, err)

	_, err = svc.Get(context.Background(), p.ID, "intruder")
	assert.ErrorIs(t, err, ErrNotFound)

	err = svc.Delete(context.Background(), p.ID, "intruder")
	assert.ErrorIs(t, err, ErrNotFound)

	// Still retrievable by the owner after the failed foreign delete.
	_, err = svc.Get(context.Background(), p.ID, "user-1")
	require.NoError(t, err)

	require.NoError(t, svc.Delete(context.Background(), p.ID, "user-1"))
	_, err = svc.Get(context.Background(), p.ID, "user-1")
	assert.ErrorIs(t, err, ErrNotFound)
}
