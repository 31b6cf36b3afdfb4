package upload

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"sync"
	"time"

	goerrors "github.com/goliatone/go-errors"
	"github.com/goliatone/go-flowx/model"
	"golang.org/x/sync/errgroup"
)

// FileAPI is the slice of the file service the uploader needs.
type FileAPI interface {
	PresignedUpload(ctx context.Context, req model.PresignedUploadRequest) (model.PresignedUpload, error)
	PresignedDownload(ctx context.Context, fileID int64) (model.PresignedDownload, error)
}

// Option configures an Uploader.
type Option func(*Uploader)

// WithHTTPClient sets the client used for object storage requests. It must
// not add the backend's Authorization header: presigned URLs carry their own
// credentials.
func WithHTTPClient(hc *http.Client) Option {
	return func(u *Uploader) {
		if hc != nil {
			u.http = hc
		}
	}
}

// WithLogger sets the uploader logger.
func WithLogger(logger *slog.Logger) Option {
	return func(u *Uploader) {
		if logger != nil {
			u.logger = logger
		}
	}
}

// Uploader runs presigned uploads and tracks per-file progress.
type Uploader struct {
	files  FileAPI
	http   *http.Client
	logger *slog.Logger

	mu        sync.RWMutex
	states    map[string]State
	progress  map[string]int
	observers []func(Event)
}

// New returns an Uploader that asks files for presigned URLs.
func New(files FileAPI, opts ...Option) *Uploader {
	u := &Uploader{
		files:    files,
		http:     &http.Client{Timeout: 5 * time.Minute},
		logger:   slog.New(slog.NewTextHandler(io.Discard, nil)),
		states:   map[string]State{},
		progress: map[string]int{},
	}
	for _, opt := range opts {
		opt(u)
	}
	return u
}

// Observe registers fn for every state and progress event.
func (u *Uploader) Observe(fn func(Event)) {
	u.mu.Lock()
	defer u.mu.Unlock()
	u.observers = append(u.observers, fn)
}

// Progress returns the percent complete of every file still tracked. Failed
// files are not tracked.
func (u *Uploader) Progress() map[string]int {
	u.mu.RLock()
	defer u.mu.RUnlock()
	out := make(map[string]int, len(u.progress))
	for k, v := range u.progress {
		out[k] = v
	}
	return out
}

// State returns the state of the named file, or "" when it is unknown.
func (u *Uploader) State(name string) State {
	u.mu.RLock()
	defer u.mu.RUnlock()
	return u.states[name]
}

// Upload sends every file to object storage concurrently. It returns the
// files that completed, in input order, and the first failure if any file
// failed. Completed files stay uploaded when a sibling fails. File names must
// be unique within a batch; State and Progress describe the latest batch.
func (u *Uploader) Upload(ctx context.Context, target Target, files []Source) ([]model.File, error) {
	if err := target.Validate(); err != nil {
		return nil, goerrors.Wrap(err, goerrors.CategoryValidation, "invalid upload target")
	}
	seen := make(map[string]struct{}, len(files))
	for _, f := range files {
		if err := f.Validate(); err != nil {
			return nil, goerrors.Wrap(err, goerrors.CategoryValidation, fmt.Sprintf("invalid file %q", f.Name))
		}
		if _, dup := seen[f.Name]; dup {
			return nil, goerrors.New(fmt.Sprintf("file %q appears twice in one upload", f.Name), goerrors.CategoryValidation)
		}
		seen[f.Name] = struct{}{}
	}

	u.mu.Lock()
	u.states = make(map[string]State, len(files))
	u.progress = make(map[string]int, len(files))
	u.mu.Unlock()
	for _, f := range files {
		u.transition(f.Name, StatePending, 0, nil)
	}

	results := make([]*model.File, len(files))
	var g errgroup.Group
	for i, f := range files {
		g.Go(func() error {
			file, err := u.uploadOne(ctx, target, f)
			if err != nil {
				u.fail(f.Name, err)
				return fmt.Errorf("upload %s: %w", f.Name, err)
			}
			results[i] = &file
			return nil
		})
	}
	err := g.Wait()

	done := make([]model.File, 0, len(files))
	for _, r := range results {
		if r != nil {
			done = append(done, *r)
		}
	}
	return done, err
}

func (u *Uploader) uploadOne(ctx context.Context, target Target, src Source) (model.File, error) {
	u.transition(src.Name, StateRequestingURL, 0, nil)
	presigned, err := u.files.PresignedUpload(ctx, target.request(src))
	if err != nil {
		return model.File{}, err
	}

	u.transition(src.Name, StateUploading, 0, nil)
	body := &countingReader{
		r:     src.Body,
		total: src.Size,
		report: func(pct int) {
			u.report(src.Name, pct)
		},
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPut, presigned.URL, body)
	if err != nil {
		return model.File{}, err
	}
	req.ContentLength = src.Size
	req.Header.Set("Content-Type", src.ContentType)

	resp, err := u.http.Do(req)
	if err != nil {
		return model.File{}, goerrors.Wrap(err, goerrors.CategoryExternal, "object storage unreachable")
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return model.File{}, goerrors.New(
			fmt.Sprintf("object storage rejected %s: %s", src.Name, http.StatusText(resp.StatusCode)),
			goerrors.CategoryExternal,
		).WithCode(resp.StatusCode)
	}

	u.transition(src.Name, StateDone, 100, nil)
	u.logger.Debug("file uploaded", "name", src.Name, "file_id", presigned.FileID, "bytes", src.Size)
	return model.File{
		ID:          presigned.FileID,
		Name:        src.Name,
		ContentType: src.ContentType,
		Size:        src.Size,
		EntityType:  target.EntityType,
		EntityID:    target.EntityID,
		ObjectKey:   presigned.ObjectKey,
	}, nil
}

func (u *Uploader) transition(name string, state State, pct int, err error) {
	u.mu.Lock()
	u.states[name] = state
	u.progress[name] = pct
	observers := append([]func(Event){}, u.observers...)
	u.mu.Unlock()
	u.emit(observers, Event{Name: name, State: state, Percent: pct, Err: err})
}

func (u *Uploader) report(name string, pct int) {
	u.mu.Lock()
	u.progress[name] = pct
	observers := append([]func(Event){}, u.observers...)
	u.mu.Unlock()
	u.emit(observers, Event{Name: name, State: StateUploading, Percent: pct})
}

func (u *Uploader) fail(name string, err error) {
	u.mu.Lock()
	u.states[name] = StateFailed
	delete(u.progress, name)
	observers := append([]func(Event){}, u.observers...)
	u.mu.Unlock()
	u.logger.Warn("file upload failed", "name", name, "error", err)
	u.emit(observers, Event{Name: name, State: StateFailed, Err: err})
}

func (u *Uploader) emit(observers []func(Event), ev Event) {
	for _, fn := range observers {
		fn(ev)
	}
}

// Download streams a stored file into w through its presigned URL.
func (u *Uploader) Download(ctx context.Context, fileID int64, w io.Writer) (int64, error) {
	presigned, err := u.files.PresignedDownload(ctx, fileID)
	if err != nil {
		return 0, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, presigned.URL, nil)
	if err != nil {
		return 0, err
	}
	resp, err := u.http.Do(req)
	if err != nil {
		return 0, goerrors.Wrap(err, goerrors.CategoryExternal, "object storage unreachable")
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return 0, goerrors.New(
			fmt.Sprintf("download of file %d failed: %s", fileID, http.StatusText(resp.StatusCode)),
			goerrors.CategoryExternal,
		).WithCode(resp.StatusCode)
	}
	return io.Copy(w, resp.Body)
}
