package cvclient

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/khoahotran/talentsin/internal/domain/cv"
	"github.com/khoahotran/talentsin/pkg/apperror"
)

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func TestLoginStoresToken(t *testing.T) {
	userID := uuid.New()
	var gotAuth string

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/api/auth/login":
			var body map[string]string
			require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
			assert.Equal(t, "owner@example.com", body["email"])
			writeJSON(w, http.StatusOK, map[string]any{
				"access_token": "tok-123",
				"user":         map[string]any{"id": userID, "email": "owner@example.com", "role": "jobseeker"},
			})
		case "/api/cvs":
			gotAuth = r.Header.Get("Authorization")
			writeJSON(w, http.StatusOK, map[string]any{"data": []any{}})
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	c := New(srv.URL + "/")
	res, err := c.Login(context.Background(), "owner@example.com", "secret")
	require.NoError(t, err)
	assert.Equal(t, userID, res.Identity.UserID)
	assert.Equal(t, "jobseeker", res.Role)

	cvs, err := c.ListCVs(context.Background())
	require.NoError(t, err)
	assert.Empty(t, cvs)
	assert.Equal(t, "Bearer tok-123", gotAuth)
}

func TestStatusMapping(t *testing.T) {
	cases := []struct {
		status int
		want   error
	}{
		{http.StatusUnauthorized, apperror.ErrUnauthorized},
		{http.StatusNotFound, apperror.ErrNotFound},
		{http.StatusBadRequest, apperror.ErrInvalidInput},
		{http.StatusServiceUnavailable, apperror.ErrStorageUnavailable},
		{http.StatusInternalServerError, apperror.ErrStorageUnavailable},
	}
	for _, tc := range cases {
		t.Run(http.StatusText(tc.status), func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				writeJSON(w, tc.status, map[string]string{"error": "x", "message": "nope"})
			}))
			defer srv.Close()

			_, err := New(srv.URL, WithToken("t")).SetPrimary(context.Background(), uuid.New())
			assert.ErrorIs(t, err, tc.want)
		})
	}
}

func TestUnreachableIsStorageUnavailable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))
	url := srv.URL
	srv.Close()

	_, err := New(url).ListCVs(context.Background())
	assert.ErrorIs(t, err, apperror.ErrStorageUnavailable)
}

func TestUpdateSendsOnlyPatchedFields(t *testing.T) {
	id := uuid.New()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPatch, r.Method)
		assert.Equal(t, "/api/cvs/"+id.String(), r.URL.Path)
		var body map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, map[string]any{"title": "Renamed"}, body)
		writeJSON(w, http.StatusOK, map[string]any{"id": id, "title": "Renamed", "is_primary": true})
	}))
	defer srv.Close()

	title := "Renamed"
	out, err := New(srv.URL).UpdateCV(context.Background(), id, cv.Patch{Title: &title})
	require.NoError(t, err)
	assert.Equal(t, "Renamed", out.Title)
	assert.True(t, out.IsPrimary)
}

func TestUploadSendsMultipart(t *testing.T) {
	fileID := uuid.New()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.True(t, strings.HasPrefix(r.Header.Get("Content-Type"), "multipart/form-data"))
		f, hdr, err := r.FormFile("file")
		require.NoError(t, err)
		defer f.Close()
		raw, _ := io.ReadAll(f)
		assert.Equal(t, "resume.pdf", hdr.Filename)
		assert.Equal(t, "%PDF-1.4", string(raw))
		writeJSON(w, http.StatusAccepted, map[string]any{"id": fileID, "file_url": "https://cdn/x.pdf"})
	}))
	defer srv.Close()

	id, url, err := New(srv.URL).UploadCV(context.Background(), "resume.pdf", strings.NewReader("%PDF-1.4"))
	require.NoError(t, err)
	assert.Equal(t, fileID, id)
	assert.Equal(t, "https://cdn/x.pdf", url)
}

func TestDeleteAcceptsNoContent(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodDelete, r.Method)
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	assert.NoError(t, New(srv.URL).DeleteCV(context.Background(), uuid.New()))
}
