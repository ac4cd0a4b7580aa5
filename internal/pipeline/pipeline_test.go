package pipeline

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/restora-app/restora/internal/models"
	"github.com/restora-app/restora/internal/shared"
)

type stubBlobs struct {
	mu    sync.Mutex
	key   string
	err   error
	calls int
	gate  chan struct{}

	gotContent []byte
	gotExt     string
}

func (s *stubBlobs) Upload(ctx context.Context, content []byte, ext string) (string, error) {
	s.mu.Lock()
	s.calls++
	s.gotContent = content
	s.gotExt = ext
	gate := s.gate
	s.mu.Unlock()

	if gate != nil {
		<-gate
	}
	return s.key, s.err
}

func (s *stubBlobs) callCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls
}

type stubRegistrar struct {
	mu      sync.Mutex
	err     error
	calls   int
	gotKey  string
	gotName string
}

func (s *stubRegistrar) CreateJob(ctx context.Context, storageKey, fileName string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls++
	s.gotKey = storageKey
	s.gotName = fileName
	return s.err
}

func (s *stubRegistrar) callCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls
}

func tempFile(t *testing.T, name, content string) models.FileRef {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0600); err != nil {
		t.Fatalf("failed to write temp file: %v", err)
	}
	return models.FileRef{Name: name, Path: path, Size: int64(len(content))}
}

func TestPipeline(t *testing.T) {
	ctx := context.Background()

	t.Run("Select", func(t *testing.T) {
		t.Run("keeps only the first file", func(t *testing.T) {
			p := New(&stubBlobs{}, &stubRegistrar{}, nil)
			p.Select(
				models.FileRef{Name: "first.png"},
				models.FileRef{Name: "second.png"},
			)

			state := p.State()
			if state.Stage != Selected {
				t.Errorf("expected Selected, got %s", state.Stage)
			}
			if state.File == nil || state.File.Name != "first.png" {
				t.Errorf("expected first file to be kept, got %+v", state.File)
			}
		})

		t.Run("empty selection changes nothing", func(t *testing.T) {
			p := New(&stubBlobs{}, &stubRegistrar{}, nil)
			p.Select()

			if state := p.State(); state.Stage != Idle {
				t.Errorf("expected Idle, got %s", state.Stage)
			}
		})

		t.Run("re-selecting discards the prior attempt", func(t *testing.T) {
			blobs := &stubBlobs{key: "key-1"}
			jobs := &stubRegistrar{}
			p := New(blobs, jobs, nil)

			p.Select(tempFile(t, "a.png", "aaa"))
			if err := p.Run(ctx); err != nil {
				t.Fatalf("expected run to succeed: %v", err)
			}

			before := p.State().Attempt
			p.Select(tempFile(t, "b.png", "bbb"))
			state := p.State()
			if state.Attempt <= before {
				t.Error("expected attempt identifier to advance")
			}
			if state.RemoteKey != "" {
				t.Errorf("expected prior storage key discarded, got %q", state.RemoteKey)
			}
			if state.Stage != Selected {
				t.Errorf("expected Selected, got %s", state.Stage)
			}
		})
	})

	t.Run("Run", func(t *testing.T) {
		t.Run("happy path reaches Accepted", func(t *testing.T) {
			blobs := &stubBlobs{key: "store-key"}
			jobs := &stubRegistrar{}
			p := New(blobs, jobs, nil)

			p.Select(tempFile(t, "photo.png", "pixels"))
			if err := p.Run(ctx); err != nil {
				t.Fatalf("expected no error, got %v", err)
			}

			state := p.State()
			if state.Stage != Accepted {
				t.Errorf("expected Accepted, got %s", state.Stage)
			}
			if state.RemoteKey != "store-key" {
				t.Errorf("expected storage key recorded, got %q", state.RemoteKey)
			}
			if blobs.gotExt != "png" {
				t.Errorf("expected ext png, got %q", blobs.gotExt)
			}
			if string(blobs.gotContent) != "pixels" {
				t.Errorf("expected file content passed through, got %q", blobs.gotContent)
			}
			if jobs.gotKey != "store-key" || jobs.gotName != "photo.png" {
				t.Errorf("expected registration with key and name, got %q %q", jobs.gotKey, jobs.gotName)
			}
		})

		t.Run("missing extension fails without a network call", func(t *testing.T) {
			blobs := &stubBlobs{key: "unused"}
			jobs := &stubRegistrar{}
			p := New(blobs, jobs, nil)

			p.Select(tempFile(t, "photo", "pixels"))
			err := p.Run(ctx)
			if err == nil {
				t.Fatal("expected validation error")
			}
			if blobs.callCount() != 0 {
				t.Errorf("expected no blob call, got %d", blobs.callCount())
			}
			if jobs.callCount() != 0 {
				t.Errorf("expected no registration call, got %d", jobs.callCount())
			}

			state := p.State()
			if state.Stage != Error {
				t.Errorf("expected Error, got %s", state.Stage)
			}
			if !strings.Contains(state.ErrorMessage, "extension") {
				t.Errorf("expected extension message, got %q", state.ErrorMessage)
			}
		})

		t.Run("blob failure leaves no storage key behind", func(t *testing.T) {
			blobs := &stubBlobs{err: errors.New("network timeout")}
			jobs := &stubRegistrar{}
			p := New(blobs, jobs, nil)

			p.Select(tempFile(t, "photo.png", "pixels"))
			if err := p.Run(ctx); err == nil {
				t.Fatal("expected error")
			}

			state := p.State()
			if state.Stage != Error {
				t.Errorf("expected Error, got %s", state.Stage)
			}
			if state.ErrorMessage != "network timeout" {
				t.Errorf("expected blob error message, got %q", state.ErrorMessage)
			}
			if state.RemoteKey != "" {
				t.Errorf("expected no storage key after stage-3 failure, got %q", state.RemoteKey)
			}
			if jobs.callCount() != 0 {
				t.Error("stage 4 must not run after a stage-3 failure")
			}
		})

		t.Run("registration failure keeps the blob write", func(t *testing.T) {
			blobs := &stubBlobs{key: "orphaned-key"}
			jobs := &stubRegistrar{err: errors.New("backend unavailable")}
			p := New(blobs, jobs, nil)

			p.Select(tempFile(t, "photo.png", "pixels"))
			if err := p.Run(ctx); err == nil {
				t.Fatal("expected error")
			}

			state := p.State()
			if state.Stage != Error {
				t.Errorf("expected Error, got %s", state.Stage)
			}
			// No rollback: the blob store still holds the object.
			if state.RemoteKey != "orphaned-key" {
				t.Errorf("expected key retained after stage-4 failure, got %q", state.RemoteKey)
			}
		})

		t.Run("without a selection", func(t *testing.T) {
			p := New(&stubBlobs{}, &stubRegistrar{}, nil)
			if err := p.Run(ctx); !errors.Is(err, shared.ErrNoFileSelected) {
				t.Errorf("expected ErrNoFileSelected, got %v", err)
			}
		})
	})

	t.Run("TryAgain", func(t *testing.T) {
		t.Run("returns to Idle with nothing selected", func(t *testing.T) {
			blobs := &stubBlobs{err: errors.New("network timeout")}
			p := New(blobs, &stubRegistrar{}, nil)

			p.Select(tempFile(t, "photo.png", "pixels"))
			p.Run(ctx)
			p.TryAgain()

			state := p.State()
			if state.Stage != Idle {
				t.Errorf("expected Idle, got %s", state.Stage)
			}
			if state.File != nil {
				t.Error("expected file cleared")
			}
			if state.ErrorMessage != "" {
				t.Error("expected error message cleared")
			}
		})

		t.Run("is a no-op outside Error", func(t *testing.T) {
			p := New(&stubBlobs{}, &stubRegistrar{}, nil)
			p.Select(models.FileRef{Name: "photo.png"})
			p.TryAgain()

			if state := p.State(); state.Stage != Selected {
				t.Errorf("expected Selected untouched, got %s", state.Stage)
			}
		})

		t.Run("next attempt reflects only its own storage key", func(t *testing.T) {
			blobs := &stubBlobs{err: errors.New("network timeout")}
			jobs := &stubRegistrar{}
			p := New(blobs, jobs, nil)

			p.Select(tempFile(t, "first.png", "one"))
			p.Run(ctx)
			p.TryAgain()

			blobs.mu.Lock()
			blobs.err = nil
			blobs.key = "fresh-key"
			blobs.mu.Unlock()

			p.Select(tempFile(t, "second.png", "two"))
			if err := p.Run(ctx); err != nil {
				t.Fatalf("expected second attempt to succeed: %v", err)
			}

			state := p.State()
			if state.Stage != Accepted {
				t.Errorf("expected Accepted, got %s", state.Stage)
			}
			if state.RemoteKey != "fresh-key" {
				t.Errorf("expected fresh key, got %q", state.RemoteKey)
			}
			if jobs.gotName != "second.png" {
				t.Errorf("expected second file registered, got %q", jobs.gotName)
			}
		})
	})

	t.Run("Dismiss", func(t *testing.T) {
		blobs := &stubBlobs{key: "k"}
		p := New(blobs, &stubRegistrar{}, nil)

		p.Select(tempFile(t, "photo.png", "pixels"))
		p.Run(ctx)
		p.Dismiss()

		state := p.State()
		if state.Stage != Idle {
			t.Errorf("expected Idle, got %s", state.Stage)
		}
		if state.File != nil || state.RemoteKey != "" {
			t.Error("expected attempt discarded")
		}
	})

	t.Run("stale results never resurrect a reset pipeline", func(t *testing.T) {
		gate := make(chan struct{})
		blobs := &stubBlobs{key: "stale-key", gate: gate}
		jobs := &stubRegistrar{}
		p := New(blobs, jobs, nil)

		p.Select(tempFile(t, "old.png", "old"))

		done := make(chan error, 1)
		go func() { done <- p.Run(ctx) }()

		// Wait for the upload to be in flight, then abandon the attempt by
		// selecting a new file.
		for blobs.callCount() == 0 {
			time.Sleep(time.Millisecond)
		}
		p.Select(tempFile(t, "new.png", "new"))

		close(gate)
		if err := <-done; err != nil {
			t.Fatalf("stale attempt should conclude silently, got %v", err)
		}

		state := p.State()
		if state.Stage != Selected {
			t.Errorf("expected new attempt's Selected, got %s", state.Stage)
		}
		if state.RemoteKey != "" {
			t.Errorf("stale key must be discarded, got %q", state.RemoteKey)
		}
		if state.File == nil || state.File.Name != "new.png" {
			t.Errorf("expected new selection intact, got %+v", state.File)
		}
		if jobs.callCount() != 0 {
			t.Error("stale attempt must never reach stage 4")
		}
	})
}

func TestFileExtension(t *testing.T) {
	cases := []struct {
		name string
		in   string
		want string
		ok   bool
	}{
		{"lowercase", "photo.png", "png", true},
		{"uppercase normalized", "SCAN.JPG", "jpg", true},
		{"multiple dots", "archive.tar.gz", "gz", true},
		{"no dot", "photo", "", false},
		{"trailing dot", "photo.", "", false},
		{"empty", "", "", false},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := fileExtension(tc.in)
			if tc.ok && err != nil {
				t.Fatalf("expected success, got %v", err)
			}
			if !tc.ok && err == nil {
				t.Fatal("expected error")
			}
			if got != tc.want {
				t.Errorf("expected %q, got %q", tc.want, got)
			}
		})
	}
}
