// Package client talks to the tagframe REST API on behalf of the editor.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	log "github.com/sirupsen/logrus"

	"tagframe/coco"
	"tagframe/models"
)

var ErrNoSession = errors.New("not signed in")

// Session is the signed-in state: the bearer token and whose it is.
type Session struct {
	Token string `json:"token"`
	Email string `json:"email"`
}

// APIError is a non-2xx answer from the server.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("api error %d: %s", e.StatusCode, e.Message)
}

// IsUnauthorized reports whether err is a 401 from the server.
func IsUnauthorized(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusUnauthorized
}

type Client struct {
	BaseURL string
	HTTP    *http.Client
	// OnExpired runs after the server rejected the session token; the
	// session is already cleared at that point.
	OnExpired func()

	mu      sync.RWMutex
	session *Session
}

// New returns a client for the API rooted at baseURL, e.g.
// http://localhost:8080/api/v1.
func New(baseURL string) *Client {
	return &Client{
		BaseURL: strings.TrimRight(baseURL, "/"),
		HTTP:    &http.Client{Timeout: 30 * time.Second},
	}
}

func (c *Client) Session() *Session {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.session == nil {
		return nil
	}
	s := *c.session
	return &s
}

// SetSession resumes a session stored elsewhere.
func (c *Client) SetSession(s *Session) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.session = s
}

func (c *Client) clearSession() {
	c.mu.Lock()
	c.session = nil
	c.mu.Unlock()
}

type envelope struct {
	Data  json.RawMessage `json:"data"`
	Error string          `json:"error"`
}

// do sends a request and decodes the data envelope into out. Requests that
// need a session fail with ErrNoSession without one.
func (c *Client) do(ctx context.Context, method, path string, body, out interface{}, authenticated bool) error {
	raw, err := c.send(ctx, method, path, body, authenticated)
	if err != nil {
		return err
	}
	if out == nil {
		return nil
	}
	var env envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return fmt.Errorf("decode %s %s: %w", method, path, err)
	}
	if err := json.Unmarshal(env.Data, out); err != nil {
		return fmt.Errorf("decode %s %s data: %w", method, path, err)
	}
	return nil
}

func (c *Client) send(ctx context.Context, method, path string, body interface{}, authenticated bool) ([]byte, error) {
	var reader io.Reader
	if body != nil {
		buf, err := json.Marshal(body)
		if err != nil {
			return nil, err
		}
		reader = bytes.NewReader(buf)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.BaseURL+path, reader)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if authenticated {
		session := c.Session()
		if session == nil {
			return nil, ErrNoSession
		}
		req.Header.Set("Authorization", "Bearer "+session.Token)
	}

	resp, err := c.HTTP.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}

	if resp.StatusCode >= 300 {
		apiErr := &APIError{StatusCode: resp.StatusCode, Message: http.StatusText(resp.StatusCode)}
		var env envelope
		if json.Unmarshal(raw, &env) == nil && env.Error != "" {
			apiErr.Message = env.Error
		}
		if resp.StatusCode == http.StatusUnauthorized && authenticated {
			log.Info("Session rejected by the server, signing out")
			c.clearSession()
			if c.OnExpired != nil {
				c.OnExpired()
			}
		}
		return nil, apiErr
	}
	return raw, nil
}

type credentials struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type tokenResponse struct {
	Token string       `json:"token"`
	User  *models.User `json:"user"`
}

// Login signs in and keeps the new session on the client.
func (c *Client) Login(ctx context.Context, email, password string) (*Session, error) {
	var out tokenResponse
	if err := c.do(ctx, http.MethodPost, "/auth/login", credentials{email, password}, &out, false); err != nil {
		return nil, err
	}
	session := &Session{Token: out.Token, Email: email}
	if out.User != nil {
		session.Email = out.User.Email
	}
	c.SetSession(session)
	return c.Session(), nil
}

// Logout revokes the session on the server. The local session is cleared
// even when the server call fails.
func (c *Client) Logout(ctx context.Context) error {
	if c.Session() == nil {
		return nil
	}
	_, err := c.send(ctx, http.MethodPost, "/auth/logout", nil, true)
	c.clearSession()
	if IsUnauthorized(err) {
		return nil
	}
	return err
}

func (c *Client) ListAnnotations(ctx context.Context, imageID uint) ([]models.Annotation, error) {
	var list []models.Annotation
	if err := c.do(ctx, http.MethodGet, fmt.Sprintf("/images/%d/annotations", imageID), nil, &list, true); err != nil {
		return nil, err
	}
	return list, nil
}

type saveRequest struct {
	Annotations []models.Annotation `json:"annotations"`
}

// SaveAnnotations creates or updates items and returns the image's full list.
func (c *Client) SaveAnnotations(ctx context.Context, imageID uint, items []models.Annotation) ([]models.Annotation, error) {
	var list []models.Annotation
	path := fmt.Sprintf("/images/%d/annotations", imageID)
	if err := c.do(ctx, http.MethodPost, path, saveRequest{items}, &list, true); err != nil {
		return nil, err
	}
	return list, nil
}

type labelRequest struct {
	LabelID *uint `json:"label_id"`
}

func (c *Client) UpdateAnnotationLabel(ctx context.Context, id uint, labelID *uint) (*models.Annotation, error) {
	var annotation models.Annotation
	path := fmt.Sprintf("/annotations/%d/label", id)
	if err := c.do(ctx, http.MethodPatch, path, labelRequest{labelID}, &annotation, true); err != nil {
		return nil, err
	}
	return &annotation, nil
}

func (c *Client) DeleteAnnotation(ctx context.Context, id uint) error {
	_, err := c.send(ctx, http.MethodDelete, fmt.Sprintf("/annotations/%d", id), nil, true)
	return err
}

// ExportCOCO downloads a project's dataset.
func (c *Client) ExportCOCO(ctx context.Context, projectID uint) (*coco.Dataset, error) {
	raw, err := c.send(ctx, http.MethodGet, fmt.Sprintf("/projects/%d/export/coco", projectID), nil, true)
	if err != nil {
		return nil, err
	}
	var dataset coco.Dataset
	if err := json.Unmarshal(raw, &dataset); err != nil {
		return nil, fmt.Errorf("decode export of project %d: %w", projectID, err)
	}
	return &dataset, nil
}
