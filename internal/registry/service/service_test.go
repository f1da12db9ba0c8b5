package service

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/lk2023060901/filestore-backend/internal/auth"
	"github.com/lk2023060901/filestore-backend/internal/auth/middleware"
	apperrors "github.com/lk2023060901/filestore-backend/internal/pkg/errors"
	"github.com/lk2023060901/filestore-backend/internal/pkg/logger"
	"github.com/lk2023060901/filestore-backend/internal/registry/biz"
	"github.com/lk2023060901/filestore-backend/internal/registry/data/memstore"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	alice int64 = 1001
	bob   int64 = 1002
	admin int64 = 9000
)

func init() {
	gin.SetMode(gin.TestMode)
}

type fakeBlobs struct {
	objects map[string]string
	removed []string
	putErr  error
}

func (f *fakeBlobs) Put(_ context.Context, fileName string, r io.Reader, _ int64, _ string) (string, error) {
	if f.putErr != nil {
		return "", f.putErr
	}
	b, err := io.ReadAll(r)
	if err != nil {
		return "", err
	}
	handle := "attachments/test/" + fileName
	f.objects[handle] = string(b)
	return handle, nil
}

func (f *fakeBlobs) Remove(_ context.Context, handles []string) error {
	f.removed = append(f.removed, handles...)
	return nil
}

func (f *fakeBlobs) PresignGet(_ context.Context, handle, fileName string) (string, error) {
	return "https://blob.test/" + handle + "?name=" + fileName, nil
}

type testServer struct {
	router *gin.Engine
	tokens *auth.TokenManager
	blobs  *fakeBlobs
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()

	cfg := biz.DefaultConfig()
	cfg.AdminIDs = []int64{admin}
	cfg.TransientBackoff = time.Millisecond

	log := logger.NewNop()
	store := memstore.New()
	reg := biz.NewRegistry(store.Repos(), cfg, log, nil)

	groups := biz.NewGroupUseCase(reg, nil, nil)
	files := biz.NewFileUseCase(reg, nil, nil)
	uploads := biz.NewUploadUseCase(reg, memstore.NewSessionStore(), groups, biz.NewSerialAllocator(reg))
	links := biz.NewLinkUseCase(reg)

	blobs := &fakeBlobs{objects: map[string]string{}}
	opts := Options{ShareBaseURL: "https://files.test/s/", MaxUploadSize: 1 << 20}
	tokens := auth.NewTokenManager("test-secret", "filestore", time.Hour)

	router := gin.New()
	api := router.Group("/api/v1")

	linkService := NewLinkService(links, blobs, opts, log)
	linkService.RegisterPublicRoutes(api, middleware.OptionalJWTAuth(tokens))

	authed := api.Group("", middleware.JWTAuth(tokens, log))
	NewUserService(biz.NewUserUseCase(reg), log).RegisterRoutes(authed)
	NewGroupService(groups, files).RegisterRoutes(authed)
	NewUploadService(uploads, blobs, opts, log).RegisterRoutes(authed)
	NewFileService(files, blobs, log).RegisterRoutes(authed)
	linkService.RegisterRoutes(authed)

	return &testServer{router: router, tokens: tokens, blobs: blobs}
}

type envelope struct {
	Code    int             `json:"code"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

type listData[T any] struct {
	Items []T `json:"items"`
	Count int `json:"count"`
}

func (s *testServer) token(t *testing.T, actorID int64) string {
	t.Helper()
	tok, err := s.tokens.Issue(actorID)
	require.NoError(t, err)
	return tok
}

func (s *testServer) send(t *testing.T, req *http.Request, actorID int64) (*httptest.ResponseRecorder, envelope) {
	t.Helper()
	if actorID != 0 {
		req.Header.Set("Authorization", "Bearer "+s.token(t, actorID))
	}

	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)

	var env envelope
	if w.Header().Get("Content-Type") == "image/png" {
		return w, env
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env), w.Body.String())
	return w, env
}

func (s *testServer) do(t *testing.T, method, path string, actorID int64, body interface{}) (*httptest.ResponseRecorder, envelope) {
	t.Helper()
	var reader io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(b)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	return s.send(t, req, actorID)
}

func decodeData[T any](t *testing.T, env envelope) T {
	t.Helper()
	var out T
	require.NoError(t, json.Unmarshal(env.Data, &out))
	return out
}

func (s *testServer) createGroup(t *testing.T, owner int64, name string) *GroupResponse {
	t.Helper()
	w, env := s.do(t, http.MethodPost, "/api/v1/groups", owner, gin.H{"name": name})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	return decodeData[*GroupResponse](t, env)
}

func (s *testServer) ingest(t *testing.T, owner int64, name string) *FileResponse {
	t.Helper()
	w, env := s.do(t, http.MethodPost, "/api/v1/uploads/files", owner, gin.H{
		"kind":           "document",
		"file_name":      name,
		"file_size":      100,
		"storage_handle": "tg/" + name,
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	return decodeData[*IngestResponse](t, env).File
}

func TestAuthRequired(t *testing.T) {
	s := newTestServer(t)

	w, env := s.do(t, http.MethodGet, "/api/v1/groups", 0, nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, apperrors.ErrUnauthorized, env.Code)
}

func TestRegisterUserAndStats(t *testing.T) {
	s := newTestServer(t)

	w, env := s.do(t, http.MethodPost, "/api/v1/users", alice, gin.H{"display_name": "Alice", "username": "@alice"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	user := decodeData[*UserResponse](t, env)
	assert.Equal(t, alice, user.UserID)
	assert.Equal(t, "alice", user.Username)
	assert.True(t, user.IsActive)

	w, env = s.do(t, http.MethodGet, "/api/v1/users/me/stats", alice, nil)
	require.Equal(t, http.StatusOK, w.Code)
	stats := decodeData[*biz.Stats](t, env)
	assert.Equal(t, alice, stats.UserID)

	w, env = s.do(t, http.MethodGet, "/api/v1/leaderboard?limit=5", alice, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 1, decodeData[listData[*biz.Stats]](t, env).Count)
}

func TestAdminRoutes(t *testing.T) {
	s := newTestServer(t)
	s.do(t, http.MethodPost, "/api/v1/users", bob, gin.H{"display_name": "Bob"})

	w, env := s.do(t, http.MethodGet, "/api/v1/admin/stats", alice, nil)
	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.Equal(t, apperrors.ErrForbidden, env.Code)

	w, _ = s.do(t, http.MethodPost, "/api/v1/admin/users/1002/deactivate", admin, nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w, env = s.do(t, http.MethodPost, "/api/v1/uploads", bob, gin.H{"group_name": "Docs", "mode": "bulk"})
	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.Equal(t, apperrors.ErrUserInactive, env.Code)

	w, env = s.do(t, http.MethodGet, "/api/v1/admin/stats", admin, nil)
	require.Equal(t, http.StatusOK, w.Code)
	stats := decodeData[*biz.AdminStats](t, env)
	assert.Equal(t, int64(1), stats.Users)
}

func TestGroupRoutes(t *testing.T) {
	s := newTestServer(t)

	g := s.createGroup(t, alice, "Movies")
	assert.Equal(t, "Movies", g.Name)

	w, env := s.do(t, http.MethodPost, "/api/v1/groups", alice, gin.H{"name": "Movies"})
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Equal(t, apperrors.ErrDuplicateGroupName, env.Code)

	// bob may reuse the name
	s.createGroup(t, bob, "Movies")

	w, env = s.do(t, http.MethodGet, "/api/v1/groups", alice, nil)
	require.Equal(t, http.StatusOK, w.Code)
	groups := decodeData[listData[*GroupResponse]](t, env)
	require.Equal(t, 1, groups.Count)
	assert.Equal(t, g.ID, groups.Items[0].ID)

	path := "/api/v1/groups/" + itoa(g.ID)
	w, env = s.do(t, http.MethodPatch, path, alice, gin.H{"name": "Films"})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "Films", decodeData[*GroupResponse](t, env).Name)

	w, env = s.do(t, http.MethodGet, path+"/files", bob, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, apperrors.ErrGroupNotFound, env.Code)

	w, env = s.do(t, http.MethodDelete, path, bob, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, apperrors.ErrGroupNotFound, env.Code)

	w, _ = s.do(t, http.MethodDelete, path, alice, nil)
	assert.Equal(t, http.StatusOK, w.Code)

	w, env = s.do(t, http.MethodGet, "/api/v1/groups/abc/files", alice, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, apperrors.ErrInvalidParams, env.Code)
}

func TestUploadFlow(t *testing.T) {
	s := newTestServer(t)

	w, env := s.do(t, http.MethodPost, "/api/v1/uploads/files", alice, gin.H{
		"kind": "document", "file_name": "a.pdf", "storage_handle": "tg/a",
	})
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Equal(t, apperrors.ErrNoActiveSession, env.Code)

	w, env = s.do(t, http.MethodPost, "/api/v1/uploads", alice, gin.H{"group_name": "Movies", "mode": "bulk"})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	session := decodeData[*SessionResponse](t, env)
	assert.Equal(t, string(biz.StateActive), session.State)
	assert.Equal(t, "Movies", session.GroupName)

	first := s.ingest(t, alice, "a.mkv")
	second := s.ingest(t, alice, "b.mkv")
	assert.Equal(t, int64(1), first.Serial)
	assert.Equal(t, "#001", first.SerialLabel)
	assert.Equal(t, int64(2), second.Serial)

	w, env = s.do(t, http.MethodGet, "/api/v1/uploads", alice, nil)
	require.Equal(t, http.StatusOK, w.Code)
	current := decodeData[*CurrentSessionResponse](t, env)
	require.NotNil(t, current.Session)
	assert.Equal(t, 2, current.Session.FileCount)

	w, env = s.do(t, http.MethodPost, "/api/v1/uploads/finish", alice, nil)
	require.Equal(t, http.StatusOK, w.Code)
	summary := decodeData[*biz.UploadSummary](t, env)
	assert.Equal(t, 2, summary.FileCount)

	w, env = s.do(t, http.MethodGet, "/api/v1/uploads", alice, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Nil(t, decodeData[*CurrentSessionResponse](t, env).Session)

	w, env = s.do(t, http.MethodDelete, "/api/v1/uploads", alice, nil)
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Equal(t, apperrors.ErrNoActiveSession, env.Code)

	path := "/api/v1/groups/" + itoa(session.GroupID) + "/files"
	w, env = s.do(t, http.MethodGet, path, alice, nil)
	require.Equal(t, http.StatusOK, w.Code)
	files := decodeData[listData[*FileResponse]](t, env)
	require.Equal(t, 2, files.Count)
	assert.Equal(t, int64(2), files.Items[0].Serial)

	w, env = s.do(t, http.MethodGet, path+"/1", alice, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, first.ID, decodeData[*FileResponse](t, env).ID)
}

func TestBeginAndChooseGroup(t *testing.T) {
	s := newTestServer(t)

	w, env := s.do(t, http.MethodPost, "/api/v1/uploads/begin", alice, gin.H{"mode": "single"})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	assert.Equal(t, string(biz.StateAwaitingGroup), decodeData[*SessionResponse](t, env).State)

	w, env = s.do(t, http.MethodPost, "/api/v1/uploads/choose", alice, gin.H{})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, apperrors.ErrInvalidParams, env.Code)

	w, env = s.do(t, http.MethodPost, "/api/v1/uploads/choose", alice, gin.H{"group_name": "Docs", "create": true})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, string(biz.StateActive), decodeData[*SessionResponse](t, env).State)

	s.ingest(t, alice, "only.pdf")

	// single mode ends the session after one file
	w, env = s.do(t, http.MethodGet, "/api/v1/uploads", alice, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Nil(t, decodeData[*CurrentSessionResponse](t, env).Session)
}

func TestMultipartUpload(t *testing.T) {
	s := newTestServer(t)

	w, _ := s.do(t, http.MethodPost, "/api/v1/uploads", alice, gin.H{"group_name": "Docs", "mode": "bulk"})
	require.Equal(t, http.StatusCreated, w.Code)

	newRequest := func(t *testing.T, kind string) *http.Request {
		var body bytes.Buffer
		mw := multipart.NewWriter(&body)
		require.NoError(t, mw.WriteField("kind", kind))
		part, err := mw.CreateFormFile("file", "notes.txt")
		require.NoError(t, err)
		_, err = part.Write([]byte("hello"))
		require.NoError(t, err)
		require.NoError(t, mw.Close())

		req := httptest.NewRequest(http.MethodPost, "/api/v1/uploads/files", &body)
		req.Header.Set("Content-Type", mw.FormDataContentType())
		return req
	}

	w, env := s.send(t, newRequest(t, "document"), alice)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	file := decodeData[*IngestResponse](t, env).File
	assert.Equal(t, "notes.txt", file.FileName)
	assert.Equal(t, int64(5), file.FileSize)
	assert.Equal(t, "hello", s.blobs.objects["attachments/test/notes.txt"])

	w, env = s.send(t, newRequest(t, "sticker"), alice)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, apperrors.ErrUnsupportedFileType, env.Code)

	s.blobs.putErr = apperrors.NewStoreUnavailableError(errors.New("connection refused"))
	w, env = s.send(t, newRequest(t, "document"), alice)
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.Equal(t, apperrors.ErrStoreUnavailable, env.Code)
}

func TestFileRoutes(t *testing.T) {
	s := newTestServer(t)
	s.do(t, http.MethodPost, "/api/v1/uploads", alice, gin.H{"group_name": "Docs", "mode": "bulk"})
	f := s.ingest(t, alice, "report_2024.pdf")
	s.ingest(t, alice, "notes.txt")

	path := "/api/v1/files/" + itoa(f.ID)

	w, env := s.do(t, http.MethodGet, path, alice, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, int64(1), decodeData[*FileResponse](t, env).ViewCount)

	w, env = s.do(t, http.MethodGet, path, bob, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, apperrors.ErrFileNotFound, env.Code)

	w, env = s.do(t, http.MethodPatch, path, alice, gin.H{"file_name": "report.pdf", "tags": []string{"Work", "work", "q1"}})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	updated := decodeData[*FileResponse](t, env)
	assert.Equal(t, "report.pdf", updated.FileName)
	assert.Len(t, updated.Tags, 2)

	w, env = s.do(t, http.MethodPatch, path, alice, gin.H{})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, apperrors.ErrInvalidParams, env.Code)

	w, env = s.do(t, http.MethodGet, "/api/v1/files/search?q=report", alice, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 1, decodeData[listData[*FileResponse]](t, env).Count)

	w, env = s.do(t, http.MethodGet, "/api/v1/files/search?q=report", bob, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 0, decodeData[listData[*FileResponse]](t, env).Count)

	w, env = s.do(t, http.MethodGet, "/api/v1/files/recent", alice, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 2, decodeData[listData[*FileResponse]](t, env).Count)

	w, env = s.do(t, http.MethodPut, path+"/content", alice, gin.H{
		"kind": "document", "file_name": "report-v2.pdf", "file_size": 250, "storage_handle": "tg/v2",
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, int64(250), decodeData[*FileResponse](t, env).FileSize)

	w, env = s.do(t, http.MethodPost, path+"/download", alice, nil)
	require.Equal(t, http.StatusOK, w.Code)
	dl := decodeData[*DownloadResponse](t, env)
	assert.Equal(t, "tg/v2", dl.StorageHandle)
	assert.Equal(t, int64(1), dl.File.DownloadCount)

	w, _ = s.do(t, http.MethodDelete, path, alice, nil)
	require.Equal(t, http.StatusOK, w.Code)

	w, env = s.do(t, http.MethodDelete, path, alice, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, apperrors.ErrFileNotFound, env.Code)
}

func TestForeignFileLooksMissing(t *testing.T) {
	s := newTestServer(t)
	s.do(t, http.MethodPost, "/api/v1/uploads", alice, gin.H{"group_name": "Docs", "mode": "bulk"})
	f := s.ingest(t, alice, "doc.pdf")

	foreign := "/api/v1/files/" + itoa(f.ID)
	missing := "/api/v1/files/999999"

	tests := []struct {
		name   string
		method string
		suffix string
		body   interface{}
	}{
		{name: "get", method: http.MethodGet},
		{name: "update", method: http.MethodPatch, body: gin.H{"caption": "mine now"}},
		{name: "replace", method: http.MethodPut, suffix: "/content", body: gin.H{
			"kind": "document", "file_name": "x.pdf", "file_size": 1, "storage_handle": "tg/x",
		}},
		{name: "download", method: http.MethodPost, suffix: "/download"},
		{name: "share", method: http.MethodPost, suffix: "/links", body: gin.H{}},
		{name: "delete", method: http.MethodDelete},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, env := s.do(t, tt.method, foreign+tt.suffix, bob, tt.body)
			want, _ := s.do(t, tt.method, missing+tt.suffix, bob, tt.body)

			assert.Equal(t, http.StatusNotFound, got.Code)
			assert.Equal(t, apperrors.ErrFileNotFound, env.Code)
			assert.Equal(t, want.Code, got.Code)
			assert.Equal(t, want.Body.Bytes(), got.Body.Bytes())
		})
	}

	w, env := s.do(t, http.MethodGet, foreign, alice, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Empty(t, decodeData[*FileResponse](t, env).Caption)
}

func TestLinkLifecycle(t *testing.T) {
	s := newTestServer(t)
	s.do(t, http.MethodPost, "/api/v1/uploads", alice, gin.H{"group_name": "Movies", "mode": "bulk"})
	f := s.ingest(t, alice, "movie.mkv")
	issuePath := "/api/v1/files/" + itoa(f.ID) + "/links"

	w, env := s.do(t, http.MethodPost, issuePath, bob, gin.H{"ttl": "1h"})
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, apperrors.ErrFileNotFound, env.Code)

	w, env = s.do(t, http.MethodPost, issuePath, alice, gin.H{"ttl": "soon"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, apperrors.ErrInvalidTTL, env.Code)

	w, env = s.do(t, http.MethodPost, issuePath, alice, gin.H{"ttl": "1h", "max_uses": 0})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, apperrors.ErrInvalidMaxUses, env.Code)

	w, env = s.do(t, http.MethodPost, issuePath, alice, gin.H{"ttl": "1d", "max_uses": 1})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	link := decodeData[*LinkResponse](t, env)
	assert.Len(t, link.Code, 18)
	assert.Equal(t, "https://files.test/s/"+link.Code, link.ShareURL)
	require.NotNil(t, link.ExpiresAt)
	require.NotNil(t, link.MaxUses)

	redeemPath := "/api/v1/links/" + link.Code + "/redeem"
	w, env = s.do(t, http.MethodPost, redeemPath, 0, nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	res := decodeData[*RedeemResponse](t, env)
	assert.Equal(t, "tg/movie.mkv", res.StorageHandle)
	assert.Equal(t, "https://blob.test/tg/movie.mkv?name=movie.mkv", res.DownloadURL)
	assert.False(t, res.Link.Active)
	assert.Equal(t, string(biz.ReasonExhausted), res.Link.DeactivationReason)

	w, env = s.do(t, http.MethodPost, redeemPath, bob, nil)
	assert.Equal(t, http.StatusGone, w.Code)
	assert.Equal(t, apperrors.ErrLinkExhausted, env.Code)

	w, env = s.do(t, http.MethodPost, "/api/v1/links/doesnotexist000000/redeem", 0, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, apperrors.ErrLinkNotFound, env.Code)

	w, env = s.do(t, http.MethodGet, "/api/v1/links", alice, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 1, decodeData[listData[*LinkResponse]](t, env).Count)
}

func TestRevokeAndExtendLink(t *testing.T) {
	s := newTestServer(t)
	s.do(t, http.MethodPost, "/api/v1/uploads", alice, gin.H{"group_name": "Docs", "mode": "bulk"})
	f := s.ingest(t, alice, "doc.pdf")

	w, env := s.do(t, http.MethodPost, "/api/v1/files/"+itoa(f.ID)+"/links", alice, gin.H{"ttl": "5m"})
	require.Equal(t, http.StatusCreated, w.Code)
	code := decodeData[*LinkResponse](t, env).Code
	path := "/api/v1/links/" + code

	w, env = s.do(t, http.MethodPatch, path, alice, gin.H{"ttl": "never"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Nil(t, decodeData[*LinkResponse](t, env).ExpiresAt)

	w, env = s.do(t, http.MethodGet, path, bob, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, apperrors.ErrLinkNotFound, env.Code)

	w, env = s.do(t, http.MethodDelete, path, bob, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, apperrors.ErrLinkNotFound, env.Code)

	for i := 0; i < 2; i++ {
		w, _ = s.do(t, http.MethodDelete, path, alice, nil)
		assert.Equal(t, http.StatusOK, w.Code)
	}

	w, env = s.do(t, http.MethodPost, path+"/redeem", 0, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, apperrors.ErrLinkNotFound, env.Code)
}

func TestRedeemRevokedLinkLooksUnknown(t *testing.T) {
	s := newTestServer(t)
	s.do(t, http.MethodPost, "/api/v1/uploads", alice, gin.H{"group_name": "Docs", "mode": "bulk"})
	f := s.ingest(t, alice, "doc.pdf")

	w, env := s.do(t, http.MethodPost, "/api/v1/files/"+itoa(f.ID)+"/links", alice, gin.H{})
	require.Equal(t, http.StatusCreated, w.Code)
	code := decodeData[*LinkResponse](t, env).Code

	w, _ = s.do(t, http.MethodDelete, "/api/v1/links/"+code, alice, nil)
	require.Equal(t, http.StatusOK, w.Code)

	tests := []struct {
		name  string
		actor int64
	}{
		{name: "anonymous", actor: 0},
		{name: "authenticated", actor: bob},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			revoked, _ := s.do(t, http.MethodPost, "/api/v1/links/"+code+"/redeem", tt.actor, nil)
			unknown, env := s.do(t, http.MethodPost, "/api/v1/links/doesnotexist000000/redeem", tt.actor, nil)

			assert.Equal(t, apperrors.ErrLinkNotFound, env.Code)
			assert.Equal(t, unknown.Code, revoked.Code)
			assert.Equal(t, unknown.Body.Bytes(), revoked.Body.Bytes())
		})
	}
}

func TestLinkQRCodeAndPresets(t *testing.T) {
	s := newTestServer(t)
	s.do(t, http.MethodPost, "/api/v1/uploads", alice, gin.H{"group_name": "Docs", "mode": "bulk"})
	f := s.ingest(t, alice, "doc.pdf")

	w, env := s.do(t, http.MethodPost, "/api/v1/files/"+itoa(f.ID)+"/links", alice, gin.H{})
	require.Equal(t, http.StatusCreated, w.Code)
	code := decodeData[*LinkResponse](t, env).Code

	w, _ = s.do(t, http.MethodGet, "/api/v1/links/"+code+"/qr?size=200", alice, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "image/png", w.Header().Get("Content-Type"))
	assert.True(t, bytes.HasPrefix(w.Body.Bytes(), []byte("\x89PNG")))

	w, env = s.do(t, http.MethodGet, "/api/v1/links/"+code+"/qr?size=10", alice, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, apperrors.ErrInvalidParams, env.Code)

	w, env = s.do(t, http.MethodGet, "/api/v1/links/presets", alice, nil)
	require.Equal(t, http.StatusOK, w.Code)
	presets := decodeData[listData[*PresetResponse]](t, env)
	require.Equal(t, 6, presets.Count)
	assert.Equal(t, "5m", presets.Items[0].Label)
	require.NotNil(t, presets.Items[0].Seconds)
	assert.Equal(t, int64(300), *presets.Items[0].Seconds)
	assert.Nil(t, presets.Items[5].Seconds)
}

func TestParseTTL(t *testing.T) {
	tests := []struct {
		raw     string
		want    *time.Duration
		wantErr bool
	}{
		{raw: "", want: nil},
		{raw: "never", want: nil},
		{raw: "1d", want: durationOf(24 * time.Hour)},
		{raw: "10M", want: durationOf(10 * time.Minute)},
		{raw: "90s", want: durationOf(90 * time.Second)},
		{raw: "tomorrow", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			got, err := parseTTL(tt.raw)
			if tt.wantErr {
				assert.True(t, apperrors.Is(err, apperrors.ErrInvalidTTL))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func durationOf(d time.Duration) *time.Duration { return &d }

func itoa(n int64) string { return strconv.FormatInt(n, 10) }
