// package pipeline implements the upload orchestration state machine.
//
// One Pipeline drives one UploadAttempt at a time through a fixed stage
// sequence: Idle → Selected → UploadingToStore → RegisteringJob → Accepted,
// with Error reachable from either network stage. Stage 4 never starts before
// stage 3 has produced a storage key, and a failed stage 4 never rolls the
// blob write back; orphaned blob objects are an accepted trade-off.
//
// Attempts carry a monotonically incrementing identifier. Every state
// transition re-checks the identifier, so a call that resolves after the user
// has abandoned the attempt (by re-selecting a file or pressing Try Again)
// can never resurrect the pipeline. In-flight calls are not aborted, only
// ignored.
package pipeline

import (
	"context"
	"fmt"
	"os"
	"strings"
	"sync"

	"github.com/charmbracelet/log"
	"github.com/restora-app/restora/internal/models"
	"github.com/restora-app/restora/internal/shared"
)

// Stage is one discrete state in the pipeline's fixed sequence.
type Stage int

const (
	Idle Stage = iota
	Selected
	UploadingToStore
	RegisteringJob
	Accepted
	Error
)

func (s Stage) String() string {
	switch s {
	case Idle:
		return "idle"
	case Selected:
		return "selected"
	case UploadingToStore:
		return "uploading"
	case RegisteringJob:
		return "registering"
	case Accepted:
		return "accepted"
	case Error:
		return "error"
	default:
		return "unknown"
	}
}

// BlobStore writes encoded file content and returns an opaque storage key.
type BlobStore interface {
	Upload(ctx context.Context, content []byte, ext string) (string, error)
}

// JobRegistrar registers a stored blob with the backend job queue.
type JobRegistrar interface {
	CreateJob(ctx context.Context, storageKey, fileName string) error
}

// State is a point-in-time snapshot of the live UploadAttempt, safe to render
// from any goroutine.
type State struct {
	Stage        Stage
	File         *models.FileRef
	RemoteKey    string
	ErrorMessage string
	Attempt      uint64
}

// Pipeline owns the single live UploadAttempt. All mutation happens under one
// mutex; Run executes the network stages and applies results only while its
// attempt identifier is still current.
type Pipeline struct {
	blobs    BlobStore
	jobs     JobRegistrar
	logger   *log.Logger
	readFile func(string) ([]byte, error)

	mu        sync.Mutex
	stage     Stage
	file      *models.FileRef
	remoteKey string
	errMsg    string
	attempt   uint64
}

// New creates a pipeline in the Idle state.
func New(blobs BlobStore, jobs JobRegistrar, logger *log.Logger) *Pipeline {
	if logger == nil {
		logger = shared.NewLogger(nil)
	}
	return &Pipeline{
		blobs:    blobs,
		jobs:     jobs,
		logger:   logger,
		readFile: os.ReadFile,
	}
}

// Select accepts a file selection and enters the Selected state. Only the
// first file of a multi-file selection is kept; an empty selection changes
// nothing. Selecting from any later state abandons the prior attempt and
// silently discards its remote artifacts: no cleanup call is made to the blob
// store for a key that was already assigned.
func (p *Pipeline) Select(files ...models.FileRef) {
	if len(files) == 0 {
		return
	}
	file := files[0]

	p.mu.Lock()
	defer p.mu.Unlock()
	p.attempt++
	p.file = &file
	p.remoteKey = ""
	p.errMsg = ""
	p.stage = Selected
	p.logger.Debugf("attempt %d: selected %s", p.attempt, file.Name)
}

// Run executes stages 3 and 4 for the currently selected file. It blocks
// until the attempt concludes; callers wanting asynchrony run it in a
// goroutine and observe progress through State. The returned error mirrors
// what State carries; a stale attempt returns nil because its outcome is
// discarded, not reported.
func (p *Pipeline) Run(ctx context.Context) error {
	p.mu.Lock()
	if p.stage != Selected {
		p.mu.Unlock()
		return fmt.Errorf("%w: select a file before uploading", shared.ErrNoFileSelected)
	}
	id := p.attempt
	file := *p.file
	p.stage = UploadingToStore
	p.mu.Unlock()

	// Validation precedes any network call.
	ext, err := fileExtension(file.Name)
	if err != nil {
		return p.fail(id, UploadingToStore, err.Error())
	}

	content, err := p.readFile(file.Path)
	if err != nil {
		return p.fail(id, UploadingToStore, fmt.Sprintf("could not read %s: %v", file.Name, err))
	}

	key, err := p.blobs.Upload(ctx, content, ext)
	if err != nil {
		return p.fail(id, UploadingToStore, err.Error())
	}

	if !p.advance(id, key) {
		return nil
	}

	if err := p.jobs.CreateJob(ctx, key, file.Name); err != nil {
		return p.fail(id, RegisteringJob, err.Error())
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	if p.attempt != id {
		return nil
	}
	p.stage = Accepted
	p.logger.Infof("attempt %d: job accepted for %s", id, file.Name)
	return nil
}

// advance moves a still-current attempt from UploadingToStore to
// RegisteringJob, recording the storage key. It reports false when the
// attempt has been abandoned, in which case the key is dropped on the floor.
func (p *Pipeline) advance(id uint64, key string) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.attempt != id {
		p.logger.Debugf("attempt %d: stale storage key discarded", id)
		return false
	}
	p.remoteKey = key
	p.stage = RegisteringJob
	return true
}

// fail transitions a still-current attempt into Error. A failure in stage 3
// clears the storage key so a concluded-in-error attempt never leaks partial
// state into the next one; a stage 4 failure keeps the key, which the blob
// store already holds.
func (p *Pipeline) fail(id uint64, at Stage, message string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.attempt != id {
		return nil
	}
	if at == UploadingToStore {
		p.remoteKey = ""
	}
	p.stage = Error
	p.errMsg = message
	p.logger.Warnf("attempt %d failed at %s: %s", id, at, message)
	return fmt.Errorf("%w: %s", shared.ErrAPIRequest, message)
}

// TryAgain is the sole recovery action from Error: it clears the selected
// file and the message and returns to Idle. The user starts over from file
// selection; there is no resume that reuses an abandoned storage key.
func (p *Pipeline) TryAgain() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.stage != Error {
		return
	}
	p.attempt++
	p.file = nil
	p.remoteKey = ""
	p.errMsg = ""
	p.stage = Idle
}

// Dismiss acknowledges a successful attempt, discarding it and returning to
// Idle.
func (p *Pipeline) Dismiss() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.stage != Accepted {
		return
	}
	p.attempt++
	p.file = nil
	p.remoteKey = ""
	p.stage = Idle
}

// State returns a snapshot of the live attempt.
func (p *Pipeline) State() State {
	p.mu.Lock()
	defer p.mu.Unlock()
	var file *models.FileRef
	if p.file != nil {
		f := *p.file
		file = &f
	}
	return State{
		Stage:        p.stage,
		File:         file,
		RemoteKey:    p.remoteKey,
		ErrorMessage: p.errMsg,
		Attempt:      p.attempt,
	}
}

// fileExtension returns the lowercased extension of name, failing when no
// extension is present.
func fileExtension(name string) (string, error) {
	idx := strings.LastIndex(name, ".")
	if idx < 0 || idx == len(name)-1 {
		return "", shared.ErrMissingExtension
	}
	return strings.ToLower(name[idx+1:]), nil
}
