package http

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AlibekovAA/defis-users/internal/common/clock"
	"github.com/AlibekovAA/defis-users/internal/common/db"
	"github.com/AlibekovAA/defis-users/internal/common/dto"
	commonhttp "github.com/AlibekovAA/defis-users/internal/common/http"
	"github.com/AlibekovAA/defis-users/internal/common/logger"
	userrepo "github.com/AlibekovAA/defis-users/internal/user/repository"
	"github.com/AlibekovAA/defis-users/internal/user/service"
)

const testSecret = "0123456789abcdef0123456789abcdef"

type testServer struct {
	handler http.Handler
	token   string
}

func newTestServer(t *testing.T, unique bool) *testServer {
	t.Helper()
	ctx := context.Background()
	log := logger.NewWithWriter(&bytes.Buffer{}, "test", "error")

	sqlDB, err := db.OpenSQLite(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = sqlDB.Close() })
	require.NoError(t, db.Migrate(ctx, log, db.StoreSQLite, sqlDB))
	require.NoError(t, db.ApplyUsernameConstraint(ctx, db.StoreSQLite, sqlDB, unique))

	repo := userrepo.NewSQLiteRepository(sqlDB, userrepo.Options{
		Clock: clock.NewMockClock(time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)),
	})
	svc := service.NewUserService(repo, service.Config{}, log)

	handler := NewHandler(svc, Config{
		JWTSecret:      testSecret,
		RequestTimeout: 5 * time.Second,
	}, log)

	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub": "test-admin",
		"exp": time.Now().Add(time.Hour).Unix(),
	}).SignedString([]byte(testSecret))
	require.NoError(t, err)

	return &testServer{handler: commonhttp.BuildBaseHandler("users_test", log, handler), token: token}
}

func (s *testServer) do(t *testing.T, method, path, body string, auth bool) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	if auth {
		req.Header.Set("Authorization", "Bearer "+s.token)
	}
	rec := httptest.NewRecorder()
	s.handler.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v), "body: %s", rec.Body.String())
	return v
}

func TestHandler_CreateAndGet(t *testing.T) {
	s := newTestServer(t, false)

	rec := s.do(t, http.MethodPost, "/api/users", `{"username":"alice","email":"alice@example.com"}`, true)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	created := decode[dto.User](t, rec)
	assert.NotZero(t, created.ID)
	assert.Equal(t, "alice", created.Username)

	rec = s.do(t, http.MethodGet, "/api/users/"+itoa(created.ID), "", false)
	require.Equal(t, http.StatusOK, rec.Code)
	got := decode[dto.User](t, rec)
	assert.Equal(t, created, got)
}

func TestHandler_FindByUsername(t *testing.T) {
	s := newTestServer(t, false)

	for _, name := range []string{"alice", "bob", "alice"} {
		rec := s.do(t, http.MethodPost, "/api/users", `{"username":"`+name+`"}`, true)
		require.Equal(t, http.StatusCreated, rec.Code)
	}

	rec := s.do(t, http.MethodGet, "/api/users?username=alice", "", false)
	require.Equal(t, http.StatusOK, rec.Code)
	list := decode[dto.UserList](t, rec)
	assert.Equal(t, 2, list.Count)
	for _, u := range list.Users {
		assert.Equal(t, "alice", u.Username)
	}

	rec = s.do(t, http.MethodGet, "/api/users?username=carol", "", false)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"users":[],"count":0}`, rec.Body.String())

	rec = s.do(t, http.MethodGet, "/api/users?username=", "", false)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHandler_ListCountExists(t *testing.T) {
	s := newTestServer(t, false)

	rec := s.do(t, http.MethodPost, "/api/users/batch", `{"users":[{"username":"alice"},{"username":"bob"},{"username":"carol"}]}`, true)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	batch := decode[dto.UserList](t, rec)
	require.Len(t, batch.Users, 3)

	rec = s.do(t, http.MethodGet, "/api/users", "", false)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 3, decode[dto.UserList](t, rec).Count)

	rec = s.do(t, http.MethodGet, "/api/users?id="+itoa(batch.Users[0].ID)+","+itoa(batch.Users[2].ID), "", false)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 2, decode[dto.UserList](t, rec).Count)

	rec = s.do(t, http.MethodGet, "/api/users/count", "", false)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, int64(3), decode[dto.Count](t, rec).Count)

	rec = s.do(t, http.MethodGet, "/api/users/"+itoa(batch.Users[1].ID)+"/exists", "", false)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, decode[dto.Exists](t, rec).Exists)

	rec = s.do(t, http.MethodGet, "/api/users/999/exists", "", false)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.False(t, decode[dto.Exists](t, rec).Exists)
}

func TestHandler_ListPage(t *testing.T) {
	s := newTestServer(t, false)

	rec := s.do(t, http.MethodPost, "/api/users/batch", `{"users":[{"username":"alice"},{"username":"bob"},{"username":"carol"},{"username":"dave"}]}`, true)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	batch := decode[dto.UserList](t, rec)
	require.Len(t, batch.Users, 4)

	rec = s.do(t, http.MethodGet, "/api/users?limit=2&offset=1", "", false)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	page := decode[dto.UserList](t, rec)
	assert.Equal(t, 2, page.Count)
	assert.Equal(t, batch.Users[1:3], page.Users)

	rec = s.do(t, http.MethodGet, "/api/users?offset=3", "", false)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, batch.Users[3:], decode[dto.UserList](t, rec).Users)

	for _, query := range []string{"limit=-1", "offset=-2", "limit=abc", "limit=501"} {
		rec = s.do(t, http.MethodGet, "/api/users?"+query, "", false)
		assert.Equal(t, http.StatusBadRequest, rec.Code, query)
	}
}

func TestHandler_UpdateAndDelete(t *testing.T) {
	s := newTestServer(t, false)

	rec := s.do(t, http.MethodPost, "/api/users", `{"username":"alice"}`, true)
	require.Equal(t, http.StatusCreated, rec.Code)
	created := decode[dto.User](t, rec)
	path := "/api/users/" + itoa(created.ID)

	rec = s.do(t, http.MethodPut, path, `{"username":"alice2","email":"a2@example.com"}`, true)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	updated := decode[dto.User](t, rec)
	assert.Equal(t, created.ID, updated.ID)
	assert.Equal(t, "alice2", updated.Username)
	assert.Equal(t, created.CreatedAt, updated.CreatedAt)

	rec = s.do(t, http.MethodPut, "/api/users/999", `{"username":"ghost"}`, true)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = s.do(t, http.MethodDelete, path, "", true)
	assert.Equal(t, http.StatusNoContent, rec.Code)
	rec = s.do(t, http.MethodDelete, path, "", true)
	assert.Equal(t, http.StatusNoContent, rec.Code)

	rec = s.do(t, http.MethodGet, path, "", false)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	env := decode[commonhttp.ErrorEnvelope](t, rec)
	assert.Equal(t, "USER_NOT_FOUND", env.Code)
	assert.NotEmpty(t, env.TraceID)
}

func TestHandler_Errors(t *testing.T) {
	s := newTestServer(t, true)

	rec := s.do(t, http.MethodPost, "/api/users", `{"username":"alice"}`, false)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = s.do(t, http.MethodPost, "/api/users", `{"username":"a"}`, true)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "VALIDATION_FAILED", decode[commonhttp.ErrorEnvelope](t, rec).Code)

	rec = s.do(t, http.MethodPost, "/api/users", `{"username":`, true)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, commonhttp.CodeInvalidJSON, decode[commonhttp.ErrorEnvelope](t, rec).Code)

	rec = s.do(t, http.MethodPost, "/api/users", `{"username":"alice"}`, true)
	require.Equal(t, http.StatusCreated, rec.Code)
	rec = s.do(t, http.MethodPost, "/api/users", `{"username":"alice"}`, true)
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = s.do(t, http.MethodGet, "/api/users/abc", "", false)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = s.do(t, http.MethodPatch, "/api/users/1", `{}`, true)
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}

func TestHandler_WriteRateLimit(t *testing.T) {
	ctx := context.Background()
	log := logger.NewWithWriter(&bytes.Buffer{}, "test", "error")

	sqlDB, err := db.OpenSQLite(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = sqlDB.Close() })
	require.NoError(t, db.Migrate(ctx, log, db.StoreSQLite, sqlDB))

	limiters := &commonhttp.RouteLimiters{
		Read:  commonhttp.NewRateLimiter(100, 100),
		Write: commonhttp.NewRateLimiter(0.001, 1),
	}
	t.Cleanup(limiters.Stop)

	svc := service.NewUserService(userrepo.NewSQLiteRepository(sqlDB, userrepo.Options{}), service.Config{}, log)
	s := &testServer{handler: NewHandler(svc, Config{JWTSecret: testSecret, Limiters: limiters}, log)}
	s.token, err = jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{"sub": "writer"}).SignedString([]byte(testSecret))
	require.NoError(t, err)

	rec := s.do(t, http.MethodPost, "/api/users", `{"username":"alice"}`, true)
	assert.Equal(t, http.StatusCreated, rec.Code)
	rec = s.do(t, http.MethodPost, "/api/users", `{"username":"bob"}`, true)
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)

	rec = s.do(t, http.MethodGet, "/api/users", "", false)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func itoa(id int64) string {
	return strconv.FormatInt(id, 10)
}
