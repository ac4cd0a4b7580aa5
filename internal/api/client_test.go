package api

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/restora-app/restora/internal/session"
	"github.com/restora-app/restora/internal/shared"
	"golang.org/x/oauth2"
)

type staticTokens string

func (s staticTokens) Token() (*oauth2.Token, error) {
	if s == "" {
		return nil, shared.ErrNotAuthenticated
	}
	return &oauth2.Token{AccessToken: string(s), TokenType: "Bearer"}, nil
}

func newTestClient(t *testing.T, handler http.HandlerFunc, tokens oauth2.TokenSource) *Client {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)
	return NewClient(ClientOpts{BaseURL: server.URL, Tokens: tokens})
}

func TestClient(t *testing.T) {
	ctx := context.Background()

	t.Run("request stamping", func(t *testing.T) {
		var gotAuth, gotRequestID, gotContentType string
		client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			gotAuth = r.Header.Get("Authorization")
			gotRequestID = r.Header.Get("X-Request-ID")
			gotContentType = r.Header.Get("Content-Type")
			w.Write([]byte(`{}`))
		}, staticTokens("tok-123"))

		if err := client.do(ctx, http.MethodGet, "/jobs", nil, nil); err != nil {
			t.Fatalf("expected success, got %v", err)
		}
		if gotAuth != "Bearer tok-123" {
			t.Errorf("expected bearer header, got %q", gotAuth)
		}
		if gotRequestID == "" {
			t.Error("expected a correlation ID on every request")
		}
		if gotContentType != "application/json" {
			t.Errorf("expected JSON content type, got %q", gotContentType)
		}
	})

	t.Run("no token source sends unauthenticated", func(t *testing.T) {
		var gotAuth string
		client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			gotAuth = r.Header.Get("Authorization")
			w.Write([]byte(`{}`))
		}, staticTokens(""))

		if err := client.do(ctx, http.MethodGet, "/", nil, nil); err != nil {
			t.Fatalf("expected success, got %v", err)
		}
		if gotAuth != "" {
			t.Errorf("expected no auth header, got %q", gotAuth)
		}
	})

	t.Run("401 invokes the hook exactly once per response", func(t *testing.T) {
		client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusUnauthorized)
			w.Write([]byte(`{"message":"token expired"}`))
		}, staticTokens("stale"))

		rejections := 0
		client.SetUnauthorizedHook(func() { rejections++ })

		err := client.do(ctx, http.MethodGet, "/jobs", nil, nil)
		if !errors.Is(err, shared.ErrUnauthorized) {
			t.Fatalf("expected ErrUnauthorized, got %v", err)
		}
		if rejections != 1 {
			t.Errorf("expected one hook invocation, got %d", rejections)
		}
		if !strings.Contains(err.Error(), "token expired") {
			t.Errorf("expected backend message surfaced, got %v", err)
		}
	})

	t.Run("non-2xx surfaces the backend message", func(t *testing.T) {
		client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusUnprocessableEntity)
			w.Write([]byte(`{"message":"unsupported file type"}`))
		}, nil)

		err := client.do(ctx, http.MethodPost, "/images", nil, nil)
		if !errors.Is(err, shared.ErrAPIRequest) {
			t.Fatalf("expected ErrAPIRequest, got %v", err)
		}
		if !strings.Contains(err.Error(), "unsupported file type") {
			t.Errorf("expected backend message, got %v", err)
		}
	})

	t.Run("non-2xx without an envelope falls back to the status", func(t *testing.T) {
		client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusBadGateway)
			w.Write([]byte("upstream burped"))
		}, nil)

		err := client.do(ctx, http.MethodGet, "/jobs", nil, nil)
		if err == nil || !strings.Contains(err.Error(), "status 502") {
			t.Errorf("expected the status fallback, got %v", err)
		}
	})

	t.Run("Login", func(t *testing.T) {
		t.Run("returns the issued token", func(t *testing.T) {
			var gotBody session.Credentials
			client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				if r.URL.Path != "/auth/login" || r.Method != http.MethodPost {
					t.Errorf("unexpected request: %s %s", r.Method, r.URL.Path)
				}
				body, _ := io.ReadAll(r.Body)
				json.Unmarshal(body, &gotBody)
				w.Write([]byte(`{"access_token":"issued-token"}`))
			}, nil)

			token, err := client.Login(ctx, session.Credentials{Email: "a@b.c", Password: "pw"})
			if err != nil {
				t.Fatalf("expected success, got %v", err)
			}
			if token != "issued-token" {
				t.Errorf("expected issued token, got %q", token)
			}
			if gotBody.Email != "a@b.c" || gotBody.Password != "pw" {
				t.Errorf("expected credentials forwarded, got %+v", gotBody)
			}
		})

		t.Run("empty token is a failure", func(t *testing.T) {
			client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				w.Write([]byte(`{}`))
			}, nil)

			_, err := client.Login(ctx, session.Credentials{Email: "a@b.c", Password: "pw"})
			if !errors.Is(err, shared.ErrAuthFailed) {
				t.Errorf("expected ErrAuthFailed, got %v", err)
			}
		})
	})

	t.Run("Register forwards the user name", func(t *testing.T) {
		var rawBody string
		client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			body, _ := io.ReadAll(r.Body)
			rawBody = string(body)
			w.Write([]byte(`{"access_token":"t"}`))
		}, nil)

		_, err := client.Register(ctx, session.Credentials{UserName: "Ada", Email: "a@b.c", Password: "pw"})
		if err != nil {
			t.Fatalf("expected success, got %v", err)
		}
		if !strings.Contains(rawBody, `"userName":"Ada"`) {
			t.Errorf("expected userName in register payload, got %s", rawBody)
		}
	})

	t.Run("CreateJob", func(t *testing.T) {
		var rawBody string
		client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			if r.URL.Path != "/images" || r.Method != http.MethodPost {
				t.Errorf("unexpected request: %s %s", r.Method, r.URL.Path)
			}
			body, _ := io.ReadAll(r.Body)
			rawBody = string(body)
			w.WriteHeader(http.StatusCreated)
		}, staticTokens("tok"))

		if err := client.CreateJob(ctx, "store-key", "photo.png"); err != nil {
			t.Fatalf("expected success, got %v", err)
		}
		if !strings.Contains(rawBody, `"key":"store-key"`) || !strings.Contains(rawBody, `"fileName":"photo.png"`) {
			t.Errorf("unexpected payload: %s", rawBody)
		}
	})

	t.Run("ListJobs", func(t *testing.T) {
		const envelope = `{
			"data": [
				{"id": 1, "imageName": "a.png", "key": "k1", "createdAt": "2026-08-30T10:00:00Z", "status": "COMPLETED", "userId": 7},
				{"id": 2, "imageName": "b.png", "key": "k2", "createdAt": "2026-08-30T11:00:00Z", "status": "PENDING", "userId": 7}
			],
			"total": 12, "page": 2, "lastPage": 3
		}`

		t.Run("plain envelope", func(t *testing.T) {
			var gotQuery string
			client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				gotQuery = r.URL.RawQuery
				w.Write([]byte(envelope))
			}, staticTokens("tok"))

			page, err := client.ListJobs(ctx, 2, 5)
			if err != nil {
				t.Fatalf("expected success, got %v", err)
			}
			if gotQuery != "page=2&limit=5" {
				t.Errorf("unexpected query: %s", gotQuery)
			}
			if len(page.Jobs) != 2 || page.Total != 12 || page.Page != 2 || page.LastPage != 3 {
				t.Errorf("unexpected page: %+v", page)
			}
			if page.Jobs[0].ImageName != "a.png" || page.Jobs[0].StorageKey != "k1" {
				t.Errorf("unexpected first job: %+v", page.Jobs[0])
			}
		})

		t.Run("array-wrapped envelope", func(t *testing.T) {
			client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				w.Write([]byte("[" + envelope + "]"))
			}, staticTokens("tok"))

			page, err := client.ListJobs(ctx, 2, 5)
			if err != nil {
				t.Fatalf("expected success, got %v", err)
			}
			if len(page.Jobs) != 2 || page.Total != 12 {
				t.Errorf("expected first array element used, got %+v", page)
			}
		})
	})
}

func TestDecodeJobPage(t *testing.T) {
	t.Run("empty array is an error", func(t *testing.T) {
		if _, err := decodeJobPage(json.RawMessage(`[]`)); !errors.Is(err, shared.ErrAPIRequest) {
			t.Errorf("expected ErrAPIRequest, got %v", err)
		}
	})

	t.Run("lastPage is clamped to one", func(t *testing.T) {
		page, err := decodeJobPage(json.RawMessage(`{"data":[],"total":0,"page":1,"lastPage":0}`))
		if err != nil {
			t.Fatalf("expected success, got %v", err)
		}
		if page.LastPage != 1 {
			t.Errorf("expected lastPage 1, got %d", page.LastPage)
		}
	})

	t.Run("malformed body is an error", func(t *testing.T) {
		if _, err := decodeJobPage(json.RawMessage(`"nope"`)); err == nil {
			t.Error("expected decode error")
		}
	})
}
