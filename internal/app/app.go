// Package app wires the loader, summarizer, prompt composer, completion
// runtime and session store into the user-level actions shared by the CLI
// and the HTTP API.
package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"time"

	"github.com/KaramelBytes/edaprompt-cli/internal/ai"
	"github.com/KaramelBytes/edaprompt-cli/internal/analysis"
	"github.com/KaramelBytes/edaprompt-cli/internal/errs"
	"github.com/KaramelBytes/edaprompt-cli/internal/filestore"
	"github.com/KaramelBytes/edaprompt-cli/internal/logger"
	"github.com/KaramelBytes/edaprompt-cli/internal/prompt"
	"github.com/KaramelBytes/edaprompt-cli/internal/session"
)

// App is the explicit application state handed to every command and handler.
// Runtime may be nil for actions that never call the completion service.
type App struct {
	Store   session.Store
	Runtime ai.Runtime
	Model   string
	Log     *logger.Logger
	// Files resolves s3:// dataset sources and receives published exports.
	Files filestore.Store
	Now   func() time.Time
}

// New returns an App with a no-op logger and the wall clock.
func New(store session.Store, rt ai.Runtime, model string) *App {
	return &App{Store: store, Runtime: rt, Model: model, Log: logger.Nop(), Now: time.Now}
}

func (a *App) log() *logger.Logger {
	if a.Log == nil {
		return logger.Nop()
	}
	return a.Log
}

func (a *App) now() time.Time {
	if a.Now == nil {
		return time.Now().UTC()
	}
	return a.Now().UTC()
}

// CreateSession registers a new, empty session.
func (a *App) CreateSession(ctx context.Context, name string) (*session.Session, error) {
	s, err := a.Store.Create(ctx, strings.TrimSpace(name))
	if err != nil {
		return nil, err
	}
	a.log().With().Str("session", s.Name).Logger().Info("session created")
	return s, nil
}

// UploadOptions tunes dataset loading.
type UploadOptions struct {
	ParseDates []string
	MaxRows    int
	// Filename overrides the name derived from the source.
	Filename string
}

// UploadResult carries the stored dataset and the parsed table for previews.
type UploadResult struct {
	Session *session.Session
	Dataset session.Dataset
	Table   *analysis.Table
}

// UploadDataset loads a CSV from a local path or an s3://bucket/key object,
// summarizes it and records the digests in the session. Re-uploading a
// filename replaces the earlier dataset.
func (a *App) UploadDataset(ctx context.Context, sessionName, source string, opt UploadOptions) (*UploadResult, error) {
	if strings.TrimSpace(source) == "" {
		return nil, errs.New(errs.ErrKindInvalidInput, "dataset path cannot be empty")
	}
	if filestore.IsURI(source) {
		if a.Files == nil {
			return nil, errs.Newf(errs.ErrKindInvalidInput, "object storage not configured; cannot read %s", source)
		}
		bucket, key, err := filestore.ParseURI(source)
		if err != nil {
			return nil, err
		}
		obj, err := a.Files.GetObject(ctx, bucket, key)
		if err != nil {
			return nil, err
		}
		defer obj.Close()
		if opt.Filename == "" {
			opt.Filename = filestore.BaseName(key)
		}
		return a.ingest(ctx, sessionName, source, obj, opt)
	}
	if _, err := a.Store.Get(ctx, sessionName); err != nil {
		return nil, err
	}
	t, err := analysis.LoadCSVFile(source, analysis.LoadOptions{ParseDates: opt.ParseDates, MaxRows: opt.MaxRows})
	if err != nil {
		return nil, err
	}
	if opt.Filename != "" {
		t.Name = opt.Filename
	}
	abs, err := filepath.Abs(source)
	if err != nil {
		abs = source
	}
	return a.record(ctx, sessionName, abs, t)
}

// UploadReader is UploadDataset for an already open stream, such as an HTTP
// multipart part. opt.Filename is required.
func (a *App) UploadReader(ctx context.Context, sessionName string, r io.Reader, opt UploadOptions) (*UploadResult, error) {
	if strings.TrimSpace(opt.Filename) == "" {
		return nil, errs.New(errs.ErrKindInvalidInput, "dataset filename cannot be empty")
	}
	return a.ingest(ctx, sessionName, "upload:"+opt.Filename, r, opt)
}

func (a *App) ingest(ctx context.Context, sessionName, source string, r io.Reader, opt UploadOptions) (*UploadResult, error) {
	// fail before parsing a large file into a missing session
	if _, err := a.Store.Get(ctx, sessionName); err != nil {
		return nil, err
	}
	t, err := analysis.LoadCSV(r, opt.Filename, analysis.LoadOptions{ParseDates: opt.ParseDates, MaxRows: opt.MaxRows})
	if err != nil {
		return nil, err
	}
	return a.record(ctx, sessionName, source, t)
}

func (a *App) record(ctx context.Context, sessionName, source string, t *analysis.Table) (*UploadResult, error) {
	ds := session.Dataset{
		Filename:   t.Name,
		Source:     source,
		Rows:       t.Rows,
		Columns:    len(t.Columns),
		Digests:    analysis.Summarize(t),
		UploadedAt: a.now(),
	}
	s, err := a.Store.PutDataset(ctx, sessionName, ds)
	if err != nil {
		return nil, err
	}
	kinds := make(map[string]int, 3)
	for _, d := range ds.Digests {
		kinds[string(d.Kind)]++
	}
	a.log().With().Str("session", sessionName).Str("dataset", ds.Filename).
		Int("rows", ds.Rows).Int("columns", ds.Columns).Any("kinds", kinds).
		Logger().Info("dataset uploaded")
	return &UploadResult{Session: s, Dataset: ds, Table: t}, nil
}

// GenerateOptions selects the dataset and the optional prompt inputs.
// An empty Dataset means the most recently uploaded one.
type GenerateOptions struct {
	Dataset   string
	Objective string
	Focus     []string
}

// datasetFor resolves opt.Dataset within the session.
func datasetFor(s *session.Session, name string) (*session.Dataset, error) {
	if name == "" {
		ds, ok := s.LatestDataset()
		if !ok {
			return nil, errs.Newf(errs.ErrKindNotFound, "session %q has no datasets; upload one first", s.Name)
		}
		return ds, nil
	}
	ds, ok := s.Datasets[name]
	if !ok {
		return nil, errs.Newf(errs.ErrKindNotFound, "dataset %q not found in session %q", name, s.Name)
	}
	return ds, nil
}

// Prompt composes the request for task without calling the runtime.
func (a *App) Prompt(ctx context.Context, sessionName string, task prompt.Task, opt GenerateOptions, extra prompt.Input) (prompt.Request, *session.Dataset, error) {
	s, err := a.Store.Get(ctx, sessionName)
	if err != nil {
		return prompt.Request{}, nil, err
	}
	ds, err := datasetFor(s, opt.Dataset)
	if err != nil {
		return prompt.Request{}, nil, err
	}
	in := prompt.Input{
		Digests:      ds.Digests,
		Objective:    opt.Objective,
		FocusColumns: opt.Focus,
		Column:       extra.Column,
		Question:     extra.Question,
	}
	req, err := prompt.Build(task, in)
	if err != nil {
		return prompt.Request{}, nil, err
	}
	return req, ds, nil
}

// complete sends req and converts failures to CompletionService errors.
func (a *App) complete(ctx context.Context, req prompt.Request) (ai.Completion, error) {
	if a.Runtime == nil {
		return ai.Completion{}, errs.New(errs.ErrKindInvalidInput, "no completion runtime configured")
	}
	log := a.log().With().Str("task", string(req.Task)).Str("model", a.Model).Logger()
	start := time.Now()
	c, err := ai.Complete(ctx, a.Runtime, ai.ChatRequest(a.Model, req))
	if err != nil {
		if errs.IsMissingCredential(err) {
			return ai.Completion{}, err
		}
		log.ErrorWith("completion failed", err, map[string]interface{}{"kind": string(ai.Classify(err))})
		var ce *ai.CompletionError
		if errors.As(err, &ce) {
			return ai.Completion{}, errs.Wrap(errs.ErrKindCompletionService, fmt.Sprintf("completion failed (%s)", ce.Kind), err)
		}
		return ai.Completion{}, errs.Wrap(errs.ErrKindCompletionService, "completion failed", err)
	}
	log.InfoWith("completion ok", map[string]interface{}{
		"duration_ms":       time.Since(start).Milliseconds(),
		"prompt_tokens":     c.Usage.PromptTokens,
		"completion_tokens": c.Usage.CompletionTokens,
	})
	return c, nil
}
