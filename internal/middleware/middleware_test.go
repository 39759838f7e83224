package middleware

import (
	"context"
	"docportal/internal/backend"
	"docportal/internal/models"
	"docportal/internal/reqctx"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gorilla/mux"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeIdentity struct {
	user  *models.AuthUser
	err   error
	calls int
}

func (f *fakeIdentity) GetUser(_ context.Context, _ string) (*models.AuthUser, error) {
	f.calls++
	return f.user, f.err
}

type fakeRoles map[string]string

func (f fakeRoles) Role(_ context.Context, userID string) string {
	if r, ok := f[userID]; ok {
		return r
	}
	return models.RoleViewer
}

func authed(identity IdentityLookup, roles RoleResolver, next http.Handler) http.Handler {
	return Auth(identity, roles, "")(next)
}

func TestAuth_MissingToken(t *testing.T) {
	id := &fakeIdentity{user: &models.AuthUser{ID: "u1"}}
	h := authed(id, fakeRoles{}, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("handler must not run")
	}))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/documents", nil))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Zero(t, id.calls)
}

func TestAuth_UnknownUserIsUnauthorized(t *testing.T) {
	h := authed(&fakeIdentity{}, fakeRoles{}, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("handler must not run")
	}))

	r := httptest.NewRequest(http.MethodGet, "/api/documents", nil)
	r.Header.Set("Authorization", "Bearer tok")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, r)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestAuth_BackendErrors(t *testing.T) {
	cases := []struct {
		err  error
		want int
	}{
		{&backend.APIError{Status: http.StatusUnauthorized}, http.StatusUnauthorized},
		{backend.ErrUnauthorized, http.StatusUnauthorized},
		{errors.New("dial tcp: timeout"), http.StatusServiceUnavailable},
	}
	for _, c := range cases {
		h := authed(&fakeIdentity{err: c.err}, fakeRoles{}, http.NotFoundHandler())
		r := httptest.NewRequest(http.MethodGet, "/", nil)
		r.Header.Set("Authorization", "Bearer tok")
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, r)
		assert.Equal(t, c.want, rec.Code, c.err.Error())
	}
}

func TestAuth_PutsIdentityIntoContext(t *testing.T) {
	id := &fakeIdentity{user: &models.AuthUser{ID: "u1"}}
	var gotUser, gotRole, gotToken string
	h := authed(id, fakeRoles{"u1": models.RoleEditor}, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotUser, _ = reqctx.GetUserID(r.Context())
		gotRole, _ = reqctx.GetRole(r.Context())
		gotToken, _ = reqctx.GetAccessToken(r.Context())
		w.WriteHeader(http.StatusOK)
	}))

	r := httptest.NewRequest(http.MethodGet, "/", nil)
	r.Header.Set("Authorization", "Bearer tok")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, r)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "u1", gotUser)
	assert.Equal(t, models.RoleEditor, gotRole)
	assert.Equal(t, "tok", gotToken)
}

func TestAuth_LocalVerificationRejectsForgedToken(t *testing.T) {
	id := &fakeIdentity{user: &models.AuthUser{ID: "u1"}}
	h := Auth(id, fakeRoles{}, "secret")(http.NotFoundHandler())

	r := httptest.NewRequest(http.MethodGet, "/", nil)
	r.Header.Set("Authorization", "Bearer not-a-jwt")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, r)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Zero(t, id.calls)
}

func withRole(role string, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		next.ServeHTTP(w, r.WithContext(reqctx.WithRole(r.Context(), role)))
	})
}

func TestRoles(t *testing.T) {
	ok := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusOK) })
	cases := []struct {
		role string
		mw   func(http.Handler) http.Handler
		want int
	}{
		{models.RoleViewer, AnyRole(models.RoleEditor), http.StatusForbidden},
		{models.RoleEditor, AnyRole(models.RoleEditor), http.StatusOK},
		{models.RoleEditor, OnlyRole(models.RoleAdmin), http.StatusForbidden},
		// админ проходит через фастлейн
		{models.RoleAdmin, AnyRole(models.RoleEditor), http.StatusOK},
	}
	for _, c := range cases {
		h := withRole(c.role, AdminFastLane(c.mw(ok)))
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
		assert.Equal(t, c.want, rec.Code, c.role)
	}
}

func TestRequestID(t *testing.T) {
	var got string
	h := RequestID(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got, _ = reqctx.GetRequestID(r.Context())
	}))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.NotEmpty(t, got)
	assert.Equal(t, got, rec.Header().Get(HeaderRequestID))

	r := httptest.NewRequest(http.MethodGet, "/", nil)
	r.Header.Set(HeaderRequestID, "0b7e1c2d-3e4f-4a5b-8c6d-7e8f9a0b1c2d")
	h.ServeHTTP(httptest.NewRecorder(), r)
	assert.Equal(t, "0b7e1c2d-3e4f-4a5b-8c6d-7e8f9a0b1c2d", got)
}

func TestRecovererAndLogging(t *testing.T) {
	router := mux.NewRouter()
	router.Use(Logging, Recoverer)
	router.HandleFunc("/boom/{id}", func(w http.ResponseWriter, r *http.Request) {
		panic("boom")
	})

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/boom/1", nil))
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}
