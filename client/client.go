// Package client is a Go SDK for the scribe HTTP API.
package client

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
	"time"

	"scribe/models"
)

// Client talks to one server. Register and Login store the returned token;
// Logout clears it. A Client is not safe for concurrent token changes.
type Client struct {
	BaseURL string
	HTTP    *http.Client
	Token   string
}

func New(baseURL string) *Client {
	return &Client{
		BaseURL: strings.TrimRight(baseURL, "/"),
		HTTP:    &http.Client{Timeout: 30 * time.Second},
	}
}

type authResponse struct {
	Token string          `json:"token"`
	User  *models.Session `json:"user"`
}

type meResponse struct {
	User    *models.Session `json:"user"`
	Profile *models.Profile `json:"profile"`
}

func (c *Client) ListPosts(ctx context.Context) ([]*models.Post, error) {
	var posts []*models.Post
	if err := c.doJSON(ctx, http.MethodGet, "/api/blogs", nil, &posts); err != nil {
		return nil, err
	}
	if posts == nil {
		posts = []*models.Post{}
	}
	return posts, nil
}

func (c *Client) GetPost(ctx context.Context, id string) (*models.Post, error) {
	var post models.Post
	if err := c.doJSON(ctx, http.MethodGet, "/api/blogs/"+url.PathEscape(id), nil, &post); err != nil {
		return nil, err
	}
	return &post, nil
}

// CreatePost sends JSON, or multipart when image is non-nil.
func (c *Client) CreatePost(ctx context.Context, title, content string, image io.Reader, imageName string) (*models.Post, error) {
	var post models.Post
	if image == nil {
		err := c.doJSON(ctx, http.MethodPost, "/api/blogs", map[string]string{"title": title, "content": content}, &post)
		if err != nil {
			return nil, err
		}
		return &post, nil
	}

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	_ = mw.WriteField("title", title)
	_ = mw.WriteField("content", content)
	if imageName == "" {
		imageName = "image"
	}
	fw, err := mw.CreateFormFile("image", imageName)
	if err != nil {
		return nil, err
	}
	if _, err := io.Copy(fw, image); err != nil {
		return nil, models.NewValidationError("Could not read image: " + err.Error())
	}
	if err := mw.Close(); err != nil {
		return nil, err
	}

	if err := c.do(ctx, http.MethodPost, "/api/blogs", &buf, mw.FormDataContentType(), &post); err != nil {
		return nil, err
	}
	return &post, nil
}

func (c *Client) UpdatePost(ctx context.Context, id, title, content string) (*models.Post, error) {
	var post models.Post
	body := map[string]string{"title": title, "content": content}
	if err := c.doJSON(ctx, http.MethodPut, "/api/blogs/"+url.PathEscape(id), body, &post); err != nil {
		return nil, err
	}
	return &post, nil
}

func (c *Client) DeletePost(ctx context.Context, id string) error {
	return c.doJSON(ctx, http.MethodDelete, "/api/blogs/"+url.PathEscape(id), nil, nil)
}

func (c *Client) LikePost(ctx context.Context, id string) error {
	return c.doJSON(ctx, http.MethodPost, "/api/blogs/"+url.PathEscape(id)+"/like", nil, nil)
}

func (c *Client) AddComment(ctx context.Context, id, text, createdAt string) (*models.Comment, error) {
	var comment models.Comment
	body := map[string]string{"text": text, "createdAt": createdAt}
	if err := c.doJSON(ctx, http.MethodPost, "/api/blogs/"+url.PathEscape(id)+"/comments", body, &comment); err != nil {
		return nil, err
	}
	return &comment, nil
}

func (c *Client) Register(ctx context.Context, email, password string) (*models.Session, error) {
	return c.signIn(ctx, "/api/register", email, password)
}

func (c *Client) Login(ctx context.Context, email, password string) (*models.Session, error) {
	return c.signIn(ctx, "/api/login", email, password)
}

func (c *Client) signIn(ctx context.Context, path, email, password string) (*models.Session, error) {
	var resp authResponse
	if err := c.doJSON(ctx, http.MethodPost, path, map[string]string{"email": email, "password": password}, &resp); err != nil {
		return nil, err
	}
	c.Token = resp.Token
	return resp.User, nil
}

// Logout revokes the token server-side and forgets it locally, even when the
// server call fails.
func (c *Client) Logout(ctx context.Context) error {
	err := c.doJSON(ctx, http.MethodPost, "/api/logout", nil, nil)
	c.Token = ""
	return err
}

func (c *Client) RequestPasswordReset(ctx context.Context, email string) error {
	return c.doJSON(ctx, http.MethodPost, "/api/password-reset", map[string]string{"email": email}, nil)
}

func (c *Client) ConfirmPasswordReset(ctx context.Context, token, password string) error {
	return c.doJSON(ctx, http.MethodPost, "/api/password-reset/confirm", map[string]string{"token": token, "password": password}, nil)
}

func (c *Client) Me(ctx context.Context) (*models.Session, *models.Profile, error) {
	var resp meResponse
	if err := c.doJSON(ctx, http.MethodGet, "/api/me", nil, &resp); err != nil {
		return nil, nil, err
	}
	return resp.User, resp.Profile, nil
}

func (c *Client) doJSON(ctx context.Context, method, path string, in, out interface{}) error {
	var body io.Reader
	contentType := ""
	if in != nil {
		b, err := json.Marshal(in)
		if err != nil {
			return err
		}
		body = bytes.NewReader(b)
		contentType = "application/json"
	}
	return c.do(ctx, method, path, body, contentType, out)
}

func (c *Client) do(ctx context.Context, method, path string, body io.Reader, contentType string, out interface{}) error {
	req, err := http.NewRequestWithContext(ctx, method, c.BaseURL+path, body)
	if err != nil {
		return err
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	req.Header.Set("Accept", "application/json")
	if c.Token != "" {
		req.Header.Set("Authorization", "Bearer "+c.Token)
	}

	httpClient := c.HTTP
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	resp, err := httpClient.Do(req)
	if err != nil {
		return &models.AppError{Code: models.CodeUnavailable, Message: "Server unreachable", Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return decodeError(resp)
	}
	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode %s %s: %w", method, path, err)
	}
	return nil
}

// decodeError rebuilds the server's AppError from an error body.
func decodeError(resp *http.Response) error {
	data, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	var body models.ErrorResponse
	if err := json.Unmarshal(data, &body); err == nil && body.Code != "" {
		return &models.AppError{Code: body.Code, Message: body.Error}
	}

	msg := strings.TrimSpace(string(data))
	if msg == "" {
		msg = http.StatusText(resp.StatusCode)
	}
	return &models.AppError{Code: codeForStatus(resp.StatusCode), Message: msg}
}

func codeForStatus(status int) string {
	switch status {
	case http.StatusBadRequest:
		return models.CodeValidation
	case http.StatusUnauthorized:
		return models.CodeUnauthenticated
	case http.StatusForbidden:
		return models.CodeUnauthorized
	case http.StatusNotFound:
		return models.CodeNotFound
	case http.StatusConflict:
		return models.CodeConflict
	case http.StatusTooManyRequests:
		return models.CodeRateLimited
	case http.StatusBadGateway:
		return models.CodeUploadFailed
	case http.StatusServiceUnavailable:
		return models.CodeUnavailable
	}
	return models.CodeInternal
}
