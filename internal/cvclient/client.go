// Package cvclient is a Go client for the TalentsIn CV API plus a session-scoped mirror of the
// caller's CVs.
package cvclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/khoahotran/talentsin/internal/domain/cv"
	"github.com/khoahotran/talentsin/pkg/apperror"
	"github.com/khoahotran/talentsin/pkg/auth"
)

type Client struct {
	baseURL    string
	httpClient *http.Client

	mu    sync.RWMutex
	token string
}

type Option func(*Client)

func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

func WithToken(token string) Option {
	return func(c *Client) { c.token = token }
}

func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL:    strings.TrimRight(strings.TrimSpace(baseURL), "/"),
		httpClient: &http.Client{Timeout: 30 * time.Second},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *Client) SetToken(token string) {
	c.mu.Lock()
	c.token = token
	c.mu.Unlock()
}

func (c *Client) bearer() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.token
}

type LoginResult struct {
	AccessToken string
	Identity    auth.Identity
	Role        string
}

type cvFileUpload struct {
	ID      uuid.UUID `json:"id"`
	FileURL string    `json:"file_url"`
}

type apiError struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

// statusErr maps an API error response onto the matching apperror kind.
func statusErr(status int, body []byte) error {
	var e apiError
	_ = json.Unmarshal(body, &e)
	msg := e.Message
	if msg == "" {
		msg = e.Error
	}
	if msg == "" {
		msg = http.StatusText(status)
	}

	switch status {
	case http.StatusUnauthorized:
		return apperror.NewUnauthorized(msg, nil)
	case http.StatusNotFound:
		return apperror.NewAppError(apperror.ErrNotFound, msg, "", nil)
	case http.StatusBadRequest:
		return apperror.NewInvalidInput(msg, nil)
	default:
		return apperror.NewStorageUnavailable(fmt.Sprintf("api returned %d: %s", status, msg), nil)
	}
}

func (c *Client) do(ctx context.Context, method, path string, body io.Reader, contentType string, out any) error {
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return apperror.NewInternal("failed to build request", err)
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	req.Header.Set("Accept", "application/json")
	if tok := c.bearer(); tok != "" {
		req.Header.Set("Authorization", "Bearer "+tok)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return apperror.NewStorageUnavailable("cv api unreachable", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return apperror.NewStorageUnavailable("failed to read cv api response", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return statusErr(resp.StatusCode, raw)
	}
	if out == nil || len(raw) == 0 {
		return nil
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return apperror.NewStorageUnavailable("malformed cv api response", err)
	}
	return nil
}

func (c *Client) doJSON(ctx context.Context, method, path string, in, out any) error {
	var body io.Reader
	contentType := ""
	if in != nil {
		raw, err := json.Marshal(in)
		if err != nil {
			return apperror.NewInternal("failed to encode request", err)
		}
		body = bytes.NewReader(raw)
		contentType = "application/json"
	}
	return c.do(ctx, method, path, body, contentType, out)
}

// Login exchanges credentials for a token and keeps it for later calls.
func (c *Client) Login(ctx context.Context, email, password string) (*LoginResult, error) {
	var resp struct {
		AccessToken string `json:"access_token"`
		User        struct {
			ID    uuid.UUID `json:"id"`
			Email string    `json:"email"`
			Role  string    `json:"role"`
		} `json:"user"`
	}
	err := c.doJSON(ctx, http.MethodPost, "/api/auth/login", map[string]string{"email": email, "password": password}, &resp)
	if err != nil {
		return nil, err
	}
	c.SetToken(resp.AccessToken)
	return &LoginResult{
		AccessToken: resp.AccessToken,
		Identity:    auth.Identity{UserID: resp.User.ID, Email: resp.User.Email},
		Role:        resp.User.Role,
	}, nil
}

func (c *Client) ListCVs(ctx context.Context) ([]cv.CV, error) {
	var resp struct {
		Data []cv.CV `json:"data"`
	}
	if err := c.doJSON(ctx, http.MethodGet, "/api/cvs", nil, &resp); err != nil {
		return nil, err
	}
	if resp.Data == nil {
		resp.Data = []cv.CV{}
	}
	return resp.Data, nil
}

func (c *Client) CreateCV(ctx context.Context, title string, body *cv.CVData, isPrimary bool) (*cv.CV, error) {
	in := map[string]any{"title": title, "is_primary": isPrimary}
	if body != nil {
		in["cv_data"] = body
	}
	var out cv.CV
	if err := c.doJSON(ctx, http.MethodPost, "/api/cvs", in, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) UpdateCV(ctx context.Context, id uuid.UUID, patch cv.Patch) (*cv.CV, error) {
	in := map[string]any{}
	if patch.Title != nil {
		in["title"] = *patch.Title
	}
	if patch.Body != nil {
		in["cv_data"] = patch.Body
	}
	if patch.IsPrimary != nil {
		in["is_primary"] = *patch.IsPrimary
	}
	var out cv.CV
	if err := c.doJSON(ctx, http.MethodPatch, "/api/cvs/"+url.PathEscape(id.String()), in, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) SetPrimary(ctx context.Context, id uuid.UUID) (*cv.CV, error) {
	var out cv.CV
	if err := c.doJSON(ctx, http.MethodPut, "/api/cvs/"+url.PathEscape(id.String())+"/primary", nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) DeleteCV(ctx context.Context, id uuid.UUID) error {
	return c.doJSON(ctx, http.MethodDelete, "/api/cvs/"+url.PathEscape(id.String()), nil, nil)
}

// UploadCV sends a file for analysis. The returned record has no score yet; poll GetCVFile.
func (c *Client) UploadCV(ctx context.Context, filename string, file io.Reader) (uuid.UUID, string, error) {
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	fw, err := mw.CreateFormFile("file", filename)
	if err != nil {
		return uuid.Nil, "", apperror.NewInternal("failed to build upload form", err)
	}
	if _, err := io.Copy(fw, file); err != nil {
		return uuid.Nil, "", apperror.NewInternal("failed to read upload", err)
	}
	if err := mw.Close(); err != nil {
		return uuid.Nil, "", apperror.NewInternal("failed to build upload form", err)
	}

	var out cvFileUpload
	if err := c.do(ctx, http.MethodPost, "/api/cv-files", &buf, mw.FormDataContentType(), &out); err != nil {
		return uuid.Nil, "", err
	}
	return out.ID, out.FileURL, nil
}

func (c *Client) ListCVFiles(ctx context.Context) ([]cv.File, error) {
	var resp struct {
		Data []cv.File `json:"data"`
	}
	if err := c.doJSON(ctx, http.MethodGet, "/api/cv-files", nil, &resp); err != nil {
		return nil, err
	}
	return resp.Data, nil
}

func (c *Client) GetCVFile(ctx context.Context, id uuid.UUID) (*cv.File, error) {
	var out cv.File
	if err := c.doJSON(ctx, http.MethodGet, "/api/cv-files/"+url.PathEscape(id.String()), nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) RemoveCVFile(ctx context.Context, id uuid.UUID) error {
	return c.doJSON(ctx, http.MethodDelete, "/api/cv-files/"+url.PathEscape(id.String()), nil, nil)
}
