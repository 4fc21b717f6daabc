// Package remote talks to a folio server: it is the client side of the
// shared document store and of owner sign-in.
package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/kalambet/folio/internal/auth"
	"github.com/kalambet/folio/internal/profile"
)

// ErrUnauthorized is returned when the server rejects or was not sent a token.
var ErrUnauthorized = fmt.Errorf("remote: %w", auth.ErrUnauthorized)

// OwnerHeader carries the owner a document write is addressed to.
const OwnerHeader = "X-Folio-Owner"

// APIError is a non-2xx response carrying the server's error envelope.
type APIError struct {
	Status  int
	Type    string
	Message string
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("server returned %d", e.Status)
	}
	return fmt.Sprintf("server returned %d: %s", e.Status, e.Message)
}

// TokenSource supplies the bearer token for owner requests. Implemented by auth.Gate.
type TokenSource interface {
	Token() (string, bool)
}

type noTokens struct{}

func (noTokens) Token() (string, bool) { return "", false }

// Asset describes an uploaded file.
type Asset struct {
	ID          string `json:"id"`
	URL         string `json:"url"`
	Name        string `json:"name,omitempty"`
	ContentType string `json:"content_type"`
	Size        int64  `json:"size"`
}

// Client is an HTTP client for the folio API.
type Client struct {
	baseURL    string
	tokens     TokenSource
	httpClient *http.Client
}

// New creates a Client. A nil tokens makes every request anonymous.
func New(baseURL string, timeout time.Duration, tokens TokenSource) *Client {
	if tokens == nil {
		tokens = noTokens{}
	}
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		tokens:     tokens,
		httpClient: &http.Client{Timeout: timeout},
	}
}

// SetTokenSource replaces the token source, for wiring a Gate that itself
// authenticates through this client.
func (c *Client) SetTokenSource(tokens TokenSource) {
	if tokens == nil {
		tokens = noTokens{}
	}
	c.tokens = tokens
}

func (c *Client) BaseURL() string { return c.baseURL }

func (c *Client) do(ctx context.Context, method, path string, body io.Reader, contentType, token string, header http.Header) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return nil, err
	}
	for k, vs := range header {
		for _, v := range vs {
			req.Header.Add(k, v)
		}
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("server not reachable at %s: %w", c.baseURL, err)
	}
	return resp, nil
}

func (c *Client) doJSON(ctx context.Context, method, path string, in any, token string) (*http.Response, error) {
	var body io.Reader
	var ct string
	if in != nil {
		data, err := json.Marshal(in)
		if err != nil {
			return nil, fmt.Errorf("marshalling request: %w", err)
		}
		body, ct = bytes.NewReader(data), "application/json"
	}
	return c.do(ctx, method, path, body, ct, token, nil)
}

func (c *Client) ownerToken() (string, error) {
	tok, ok := c.tokens.Token()
	if !ok {
		return "", ErrUnauthorized
	}
	return tok, nil
}

// decodeJSON reads a response into v, turning error statuses into
// *APIError. A nil v discards the body.
func decodeJSON(resp *http.Response, v any) error {
	defer resp.Body.Close()
	if resp.StatusCode >= 400 {
		return readError(resp)
	}
	if v == nil {
		_, err := io.Copy(io.Discard, resp.Body)
		return err
	}
	return json.NewDecoder(resp.Body).Decode(v)
}

func readError(resp *http.Response) error {
	body, err := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	if err != nil {
		return fmt.Errorf("server returned %d (failed to read body: %w)", resp.StatusCode, err)
	}
	apiErr := &APIError{Status: resp.StatusCode}
	var envelope struct {
		Error struct {
			Message string `json:"message"`
			Type    string `json:"type"`
		} `json:"error"`
	}
	if json.Unmarshal(body, &envelope) == nil && envelope.Error.Message != "" {
		apiErr.Message, apiErr.Type = envelope.Error.Message, envelope.Error.Type
	} else {
		apiErr.Message = strings.TrimSpace(string(body))
	}
	if resp.StatusCode == http.StatusUnauthorized {
		return fmt.Errorf("%w: %s", ErrUnauthorized, apiErr.Message)
	}
	return apiErr
}

// IsNotFound reports whether err is a 404 from the server.
func IsNotFound(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.Status == http.StatusNotFound
}

// Health checks that the server is up.
func (c *Client) Health(ctx context.Context) error {
	resp, err := c.do(ctx, http.MethodGet, "/health", nil, "", "", nil)
	if err != nil {
		return err
	}
	return decodeJSON(resp, nil)
}

// FetchOwnerDocument reads the single shared document. It needs no token
// and reports false when the owner has not saved one yet.
func (c *Client) FetchOwnerDocument(ctx context.Context) (profile.Document, bool, error) {
	resp, err := c.do(ctx, http.MethodGet, "/document", nil, "", "", nil)
	if err != nil {
		return profile.Document{}, false, err
	}
	defer resp.Body.Close()
	if resp.StatusCode == http.StatusNotFound {
		return profile.Document{}, false, nil
	}
	if resp.StatusCode >= 400 {
		return profile.Document{}, false, readError(resp)
	}
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return profile.Document{}, false, fmt.Errorf("reading document: %w", err)
	}
	doc, err := profile.ParseDocument(data)
	if err != nil {
		return profile.Document{}, false, err
	}
	return doc, true, nil
}

// UpsertOwnerDocument replaces the owner's stored document. The server
// only accepts it from a session belonging to ownerID.
func (c *Client) UpsertOwnerDocument(ctx context.Context, ownerID string, doc profile.Document) error {
	tok, err := c.ownerToken()
	if err != nil {
		return err
	}
	data, err := doc.MarshalJSON()
	if err != nil {
		return fmt.Errorf("marshalling document: %w", err)
	}
	resp, err := c.do(ctx, http.MethodPut, "/document", bytes.NewReader(data), "application/json", tok,
		http.Header{OwnerHeader: []string{ownerID}})
	if err != nil {
		return err
	}
	return decodeJSON(resp, nil)
}

// Project fetches one pet project by list position.
func (c *Client) Project(ctx context.Context, index int) (profile.PetProject, error) {
	resp, err := c.do(ctx, http.MethodGet, "/projects/"+strconv.Itoa(index), nil, "", "", nil)
	if err != nil {
		return profile.PetProject{}, err
	}
	var p profile.PetProject
	if err := decodeJSON(resp, &p); err != nil {
		if IsNotFound(err) {
			return profile.PetProject{}, fmt.Errorf("project %d: %w", index, profile.ErrIndexOutOfRange)
		}
		return profile.PetProject{}, err
	}
	return p, nil
}

type sessionResponse struct {
	Token     string    `json:"token,omitempty"`
	OwnerID   string    `json:"owner_id"`
	Email     string    `json:"email"`
	ExpiresAt time.Time `json:"expires_at"`
}

func (r sessionResponse) identity() auth.Identity {
	return auth.Identity{OwnerID: r.OwnerID, Email: r.Email, ExpiresAt: r.ExpiresAt}
}

// SignIn exchanges owner credentials for a session token.
func (c *Client) SignIn(ctx context.Context, email, password string) (auth.Token, error) {
	resp, err := c.doJSON(ctx, http.MethodPost, "/session", map[string]string{"email": email, "password": password}, "")
	if err != nil {
		return auth.Token{}, err
	}
	var out sessionResponse
	if err := decodeJSON(resp, &out); err != nil {
		if errors.Is(err, auth.ErrUnauthorized) {
			return auth.Token{}, auth.ErrInvalidCredentials
		}
		return auth.Token{}, err
	}
	return auth.Token{Value: out.Token, Identity: out.identity()}, nil
}

// SignOut revokes the session behind token.
func (c *Client) SignOut(ctx context.Context, token string) error {
	resp, err := c.do(ctx, http.MethodDelete, "/session", nil, "", token, nil)
	if err != nil {
		return err
	}
	return decodeJSON(resp, nil)
}

// Whoami asks the server which owner the current token belongs to.
func (c *Client) Whoami(ctx context.Context) (auth.Identity, error) {
	tok, err := c.ownerToken()
	if err != nil {
		return auth.Identity{}, err
	}
	resp, err := c.do(ctx, http.MethodGet, "/session", nil, "", tok, nil)
	if err != nil {
		return auth.Identity{}, err
	}
	var out sessionResponse
	if err := decodeJSON(resp, &out); err != nil {
		return auth.Identity{}, err
	}
	return out.identity(), nil
}

// Upload sends a file to the server's asset store and returns where it
// can be fetched.
func (c *Client) Upload(ctx context.Context, name string, r io.Reader) (Asset, error) {
	tok, err := c.ownerToken()
	if err != nil {
		return Asset{}, err
	}

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	part, err := mw.CreateFormFile("file", name)
	if err != nil {
		return Asset{}, err
	}
	if _, err := io.Copy(part, r); err != nil {
		return Asset{}, fmt.Errorf("reading %s: %w", name, err)
	}
	if err := mw.Close(); err != nil {
		return Asset{}, err
	}

	resp, err := c.do(ctx, http.MethodPost, "/assets", &buf, mw.FormDataContentType(), tok, nil)
	if err != nil {
		return Asset{}, err
	}
	var out Asset
	if err := decodeJSON(resp, &out); err != nil {
		return Asset{}, err
	}
	if strings.HasPrefix(out.URL, "/") {
		out.URL = c.baseURL + out.URL
	}
	return out, nil
}

// Assets lists the owner's uploads, newest first.
func (c *Client) Assets(ctx context.Context) ([]Asset, error) {
	tok, err := c.ownerToken()
	if err != nil {
		return nil, err
	}
	resp, err := c.do(ctx, http.MethodGet, "/assets", nil, "", tok, nil)
	if err != nil {
		return nil, err
	}
	var out []Asset
	if err := decodeJSON(resp, &out); err != nil {
		return nil, err
	}
	for i := range out {
		if strings.HasPrefix(out[i].URL, "/") {
			out[i].URL = c.baseURL + out[i].URL
		}
	}
	return out, nil
}

// DeleteAsset removes an upload.
func (c *Client) DeleteAsset(ctx context.Context, id string) error {
	tok, err := c.ownerToken()
	if err != nil {
		return err
	}
	resp, err := c.do(ctx, http.MethodDelete, "/assets/"+id, nil, "", tok, nil)
	if err != nil {
		return err
	}
	return decodeJSON(resp, nil)
}
