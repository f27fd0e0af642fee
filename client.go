package session

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"
	"time"
)

const (
	authenticatePath = "/api/usuarios/auth"
	registerPath     = "/api/usuarios/registrar"
)

// ClientConfig holds remote identity service configuration.
type ClientConfig struct {
	BaseURL string

	AuthenticateURL string
	RegisterURL     string

	HTTPClient *http.Client
	Logger     Logger
}

// Client implements IdentityClient against the dashboard backend. The
// backend's wire contract uses Portuguese field names; payload structs in
// models.go carry the mapping.
type Client struct {
	config     ClientConfig
	httpClient *http.Client
	logger     Logger
}

var _ IdentityClient = (*Client)(nil)

// NewClient creates a new identity service client.
func NewClient(cfg ClientConfig) *Client {
	base := strings.TrimRight(cfg.BaseURL, "/")
	if cfg.AuthenticateURL == "" {
		cfg.AuthenticateURL = base + authenticatePath
	}
	if cfg.RegisterURL == "" {
		cfg.RegisterURL = base + registerPath
	}

	client := cfg.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: 10 * time.Second}
	}

	logger := cfg.Logger
	if logger == nil {
		logger = defLogger{}
	}

	return &Client{
		config:     cfg,
		httpClient: client,
		logger:     logger,
	}
}

// authenticateResponse is the success envelope of the auth endpoint. The
// user record rides under "usuario"; "mensagem" is informational only.
type authenticateResponse struct {
	Message string `json:"mensagem"`
	User    *User  `json:"usuario"`
}

// Authenticate posts credentials to the auth endpoint. A non-2xx status is
// mapped to a failure carrying the payload's message when readable, falling
// back to the generic connectivity message.
func (c *Client) Authenticate(ctx context.Context, creds Credentials) (*User, error) {
	body, status, err := c.post(ctx, c.config.AuthenticateURL, creds)
	if err != nil {
		c.logger.Error("Authenticate request failed: %v", err)
		return nil, NewConnectionError(err)
	}

	if status != http.StatusOK {
		msg := apiErrorMessage(body)
		c.logger.Info("Authenticate rejected with status %d: %s", status, msg)
		return nil, NewAuthError(msg)
	}

	var resp authenticateResponse
	if err := json.Unmarshal(body, &resp); err != nil || resp.User == nil {
		c.logger.Error("Authenticate could not decode response: %v", err)
		if err == nil {
			err = errors.New("auth response is missing the user record")
		}
		return nil, NewConnectionError(err)
	}

	return resp.User, nil
}

// Register posts the registration payload. The endpoint returns the created
// user record directly; registration does not establish a session.
func (c *Client) Register(ctx context.Context, reg Registration) (*User, error) {
	body, status, err := c.post(ctx, c.config.RegisterURL, reg)
	if err != nil {
		c.logger.Error("Register request failed: %v", err)
		return nil, NewConnectionError(err)
	}

	if status != http.StatusOK && status != http.StatusCreated {
		msg := apiErrorMessage(body)
		c.logger.Info("Register rejected with status %d: %s", status, msg)
		return nil, NewAuthError(msg)
	}

	user := &User{}
	if err := json.Unmarshal(body, user); err != nil || user.ID == 0 {
		c.logger.Error("Register could not decode response: %v", err)
		if err == nil {
			err = errors.New("register response is missing the user record")
		}
		return nil, NewConnectionError(err)
	}

	return user, nil
}

func (c *Client) post(ctx context.Context, url string, payload any) ([]byte, int, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, 0, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(data))
	if err != nil {
		return nil, 0, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, 0, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, 0, err
	}

	return body, resp.StatusCode, nil
}

type apiError struct {
	Message string `json:"erro"`
}

func apiErrorMessage(body []byte) string {
	var apiErr apiError
	if err := json.Unmarshal(body, &apiErr); err == nil && apiErr.Message != "" {
		return apiErr.Message
	}
	return ""
}
