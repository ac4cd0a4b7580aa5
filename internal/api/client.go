// Client for the restoration backend's REST API
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/charmbracelet/log"
	"github.com/restora-app/restora/internal/models"
	"github.com/restora-app/restora/internal/session"
	"github.com/restora-app/restora/internal/shared"
	"golang.org/x/oauth2"
	"golang.org/x/time/rate"
)

// Client is the single shared request layer for the restoration backend.
// Every outbound call goes through [Client.do], which stamps the bearer token
// from the token source, tags the request with a correlation ID, and maps an
// authorization rejection to exactly one invocation of the registered hook.
// Components never re-implement any of that per call-site.
type Client struct {
	baseURL      string
	httpClient   *http.Client
	tokens       oauth2.TokenSource
	limiter      *rate.Limiter
	logger       *log.Logger
	onAuthReject func()
}

var _ session.AuthAPI = (*Client)(nil)

// ClientOpts contains configuration options for creating a Client.
type ClientOpts struct {
	BaseURL    string
	HTTPClient *http.Client
	Tokens     oauth2.TokenSource
	Limiter    *rate.Limiter
	Logger     *log.Logger
}

// NewClient creates a backend API client.
func NewClient(opts ClientOpts) *Client {
	if opts.BaseURL == "" {
		opts.BaseURL = "http://localhost:3000"
	}
	if opts.HTTPClient == nil {
		opts.HTTPClient = http.DefaultClient
	}
	if opts.Logger == nil {
		opts.Logger = shared.NewLogger(nil)
	}

	return &Client{
		baseURL:    opts.BaseURL,
		httpClient: opts.HTTPClient,
		tokens:     opts.Tokens,
		limiter:    opts.Limiter,
		logger:     opts.Logger,
	}
}

// SetUnauthorizedHook registers the function invoked when any call receives
// an authorization rejection. Wired once at startup to the session guard.
func (c *Client) SetUnauthorizedHook(fn func()) {
	c.onAuthReject = fn
}

// errorBody is the backend's error envelope.
type errorBody struct {
	Message string `json:"message"`
}

// do performs one backend request. A 401 response triggers the unauthorized
// hook and surfaces as [shared.ErrUnauthorized]; any other non-2xx surfaces
// the backend-provided message when present.
func (c *Client) do(ctx context.Context, method, path string, body any, result any) error {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return fmt.Errorf("%w: %v", shared.ErrAPIRequest, err)
		}
	}

	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to marshal request body: %w", err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Request-ID", shared.GenerateID())

	if c.tokens != nil {
		if token, err := c.tokens.Token(); err == nil {
			token.SetAuthHeader(req)
		}
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", shared.ErrAPIRequest, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode == http.StatusUnauthorized {
		c.logger.Warnf("%s %s rejected: 401", method, path)
		if c.onAuthReject != nil {
			c.onAuthReject()
		}
		return fmt.Errorf("%w: %s", shared.ErrUnauthorized, backendMessage(raw, "credentials missing, invalid, or expired"))
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("%w: %s", shared.ErrAPIRequest, backendMessage(raw, fmt.Sprintf("status %d", resp.StatusCode)))
	}

	if result != nil {
		if err := json.Unmarshal(raw, result); err != nil {
			return fmt.Errorf("failed to decode response: %w", err)
		}
	}

	return nil
}

// backendMessage extracts the backend's error message, falling back to a
// generic description when the body carries none.
func backendMessage(raw []byte, fallback string) string {
	var body errorBody
	if err := json.Unmarshal(raw, &body); err == nil && body.Message != "" {
		return body.Message
	}
	return fallback
}

// tokenResponse is the auth endpoints' success envelope.
type tokenResponse struct {
	AccessToken string `json:"access_token"`
}

// Login exchanges credentials for a signed access token.
func (c *Client) Login(ctx context.Context, creds session.Credentials) (string, error) {
	var resp tokenResponse
	if err := c.do(ctx, http.MethodPost, "/auth/login", creds, &resp); err != nil {
		return "", err
	}
	if resp.AccessToken == "" {
		return "", fmt.Errorf("%w: backend returned no access token", shared.ErrAuthFailed)
	}
	return resp.AccessToken, nil
}

// Register creates an account and returns the signed access token.
func (c *Client) Register(ctx context.Context, creds session.Credentials) (string, error) {
	var resp tokenResponse
	if err := c.do(ctx, http.MethodPost, "/auth/register", creds, &resp); err != nil {
		return "", err
	}
	if resp.AccessToken == "" {
		return "", fmt.Errorf("%w: backend returned no access token", shared.ErrAuthFailed)
	}
	return resp.AccessToken, nil
}

// createJobRequest registers an uploaded blob with the job queue.
type createJobRequest struct {
	Key      string `json:"key"`
	FileName string `json:"fileName"`
}

// CreateJob submits a storage key and file name to the job-creation endpoint.
// The backend acknowledges with success or failure only.
func (c *Client) CreateJob(ctx context.Context, storageKey, fileName string) error {
	return c.do(ctx, http.MethodPost, "/images", createJobRequest{Key: storageKey, FileName: fileName}, nil)
}

// jobEnvelope is the paginated job-listing response.
type jobEnvelope struct {
	Data     []models.Job `json:"data"`
	Total    int          `json:"total"`
	Page     int          `json:"page"`
	LastPage int          `json:"lastPage"`
}

// ListJobs fetches one page of the caller's jobs. The backend answers with
// either the envelope directly or an array whose first element is the
// envelope; both are normalized here. The inconsistency is a known backend
// contract defect, flagged upstream, tolerated until fixed.
func (c *Client) ListJobs(ctx context.Context, page, limit int) (*models.JobPage, error) {
	var raw json.RawMessage
	path := fmt.Sprintf("/jobs?page=%d&limit=%d", page, limit)
	if err := c.do(ctx, http.MethodGet, path, nil, &raw); err != nil {
		return nil, err
	}
	return decodeJobPage(raw)
}

// decodeJobPage normalizes the two tolerated response shapes into a JobPage.
func decodeJobPage(raw json.RawMessage) (*models.JobPage, error) {
	trimmed := bytes.TrimSpace(raw)

	var envelope jobEnvelope
	if len(trimmed) > 0 && trimmed[0] == '[' {
		var wrapped []jobEnvelope
		if err := json.Unmarshal(trimmed, &wrapped); err != nil {
			return nil, fmt.Errorf("failed to decode job listing: %w", err)
		}
		if len(wrapped) == 0 {
			return nil, fmt.Errorf("%w: empty job listing array", shared.ErrAPIRequest)
		}
		envelope = wrapped[0]
	} else {
		if err := json.Unmarshal(trimmed, &envelope); err != nil {
			return nil, fmt.Errorf("failed to decode job listing: %w", err)
		}
	}

	lastPage := envelope.LastPage
	if lastPage < 1 {
		lastPage = 1
	}

	return &models.JobPage{
		Jobs:     envelope.Data,
		Total:    envelope.Total,
		Page:     envelope.Page,
		LastPage: lastPage,
	}, nil
}
