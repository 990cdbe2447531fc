package gradesdk

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// Client talks to the gradebook service. It performs unauthenticated
// calls and creates Sessions.
type Client struct {
	BaseURL    string
	HTTPClient *http.Client
}

// NewClient creates a client for the service at baseURL.
func NewClient(baseURL string) *Client {
	return &Client{
		BaseURL: strings.TrimSuffix(baseURL, "/"),
		HTTPClient: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
}

// url builds a complete URL by appending the path to the base URL.
func (c *Client) url(path string) string {
	return c.BaseURL + path
}

// doRequest performs a request. A non-nil body is encoded as JSON.
func (c *Client) doRequest(ctx context.Context, method, path, token string, body any) (*http.Response, error) {
	var reader io.Reader
	if body != nil {
		buf, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("failed to encode request: %w", err)
		}
		reader = bytes.NewReader(buf)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.url(path), reader)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to send request: %w", err)
	}
	return resp, nil
}

// decodeJSON decodes a JSON response into target, or returns an *APIError
// when the status differs from expectedStatus.
func decodeJSON(resp *http.Response, target any, expectedStatus int) error {
	defer resp.Body.Close()

	bodyBytes, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response body: %w", err)
	}

	if resp.StatusCode != expectedStatus {
		if apiErr := parseErrorResponse(resp, bodyBytes); apiErr != nil {
			return apiErr
		}
		return fmt.Errorf("unexpected status %d", resp.StatusCode)
	}

	if target == nil {
		return nil
	}
	if err := json.Unmarshal(bodyBytes, target); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}

// GetLiveness checks if the service is alive.
func (c *Client) GetLiveness(ctx context.Context) (*HealthResponse, error) {
	return c.health(ctx, "/livez")
}

// GetReadiness checks if the service and its dependencies are ready.
func (c *Client) GetReadiness(ctx context.Context) (*HealthResponse, error) {
	return c.health(ctx, "/readyz")
}

func (c *Client) health(ctx context.Context, path string) (*HealthResponse, error) {
	resp, err := c.doRequest(ctx, http.MethodGet, path, "", nil)
	if err != nil {
		return nil, err
	}

	var health HealthResponse
	if err := decodeJSON(resp, &health, http.StatusOK); err != nil {
		return nil, err
	}
	return &health, nil
}

// Register creates an account anonymously. It only succeeds when the
// server allows open registration; admins use Session.Register.
func (c *Client) Register(ctx context.Context, req RegisterRequest) (*PublicUser, error) {
	return c.register(ctx, "", req)
}

func (c *Client) register(ctx context.Context, token string, req RegisterRequest) (*PublicUser, error) {
	resp, err := c.doRequest(ctx, http.MethodPost, "/api/auth/register", token, req)
	if err != nil {
		return nil, err
	}

	var user PublicUser
	if err := decodeJSON(resp, &user, http.StatusCreated); err != nil {
		return nil, err
	}
	return &user, nil
}

// Login authenticates with email and password and returns a session.
// otp is required for accounts with MFA enabled; IsMFARequired reports
// when it is missing. The server must return tokens in the body.
func (c *Client) Login(ctx context.Context, email, password, otp string) (*Session, error) {
	resp, err := c.doRequest(ctx, http.MethodPost, "/api/auth/login", "", LoginRequest{
		Email:    email,
		Password: password,
		OTP:      otp,
	})
	if err != nil {
		return nil, err
	}

	var login LoginResponse
	if err := decodeJSON(resp, &login, http.StatusOK); err != nil {
		return nil, err
	}
	if login.AccessToken == "" {
		return nil, fmt.Errorf("server did not return a token; bearer transport is disabled")
	}

	return newSession(c, login.User, login.AccessToken, login.ExpiresIn), nil
}

// NewSessionFromToken wraps an existing access token.
func (c *Client) NewSessionFromToken(user PublicUser, token string, expiresIn int) *Session {
	return newSession(c, user, token, expiresIn)
}
