package session

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/KaramelBytes/edaprompt-cli/internal/errs"
)

const maxNameLen = 200

// Store persists sessions. Get, Delete and the Put/Append methods return a
// NotFound error for unknown names; Create returns DuplicateName when the
// name is taken. Appends never deduplicate.
type Store interface {
	Create(ctx context.Context, name string) (*Session, error)
	Get(ctx context.Context, name string) (*Session, error)
	List(ctx context.Context) ([]Summary, error)
	Delete(ctx context.Context, name string) error
	PutDataset(ctx context.Context, name string, ds Dataset) (*Session, error)
	AppendQuestion(ctx context.Context, name string, e QuestionEntry) (*Session, error)
	AppendFollowUp(ctx context.Context, name, question string, e FollowUpEntry) (*Session, error)
	AppendReport(ctx context.Context, name string, e ReportEntry) (*Session, error)
	Close() error
}

// backend is the persistence primitive each driver implements. Sessions are
// exchanged as whole JSON documents; update must be atomic per name.
type backend interface {
	insert(ctx context.Context, name string, doc []byte) error
	load(ctx context.Context, name string) ([]byte, error)
	list(ctx context.Context) ([][]byte, error)
	remove(ctx context.Context, name string) error
	update(ctx context.Context, name string, fn func(doc []byte) ([]byte, error)) ([]byte, error)
	close() error
}

// Option configures a store.
type Option func(*docStore)

// WithClock replaces time.Now, mainly for tests.
func WithClock(now func() time.Time) Option {
	return func(s *docStore) { s.now = now }
}

// docStore implements Store over any backend.
type docStore struct {
	b   backend
	now func() time.Time
}

func newDocStore(b backend, opts ...Option) *docStore {
	s := &docStore{b: b, now: time.Now}
	for _, o := range opts {
		o(s)
	}
	return s
}

func notFound(name string) error {
	return errs.Newf(errs.ErrKindNotFound, "session %q not found", name)
}

func duplicate(name string) error {
	return errs.Newf(errs.ErrKindDuplicateName, "session %q already exists", name)
}

// ValidateName rejects names that are empty or unreasonably long.
func ValidateName(name string) error {
	if strings.TrimSpace(name) == "" {
		return errs.New(errs.ErrKindInvalidInput, "session name cannot be empty")
	}
	if len(name) > maxNameLen {
		return errs.Newf(errs.ErrKindInvalidInput, "session name longer than %d bytes", maxNameLen)
	}
	return nil
}

func decode(doc []byte) (*Session, error) {
	var s Session
	if err := json.Unmarshal(doc, &s); err != nil {
		return nil, errs.Wrap(errs.ErrKindStorage, "decode session", err)
	}
	s.normalize()
	return &s, nil
}

func encode(s *Session) ([]byte, error) {
	b, err := json.Marshal(s)
	if err != nil {
		return nil, errs.Wrap(errs.ErrKindStorage, "encode session", err)
	}
	return b, nil
}

func (s *docStore) Create(ctx context.Context, name string) (*Session, error) {
	if err := ValidateName(name); err != nil {
		return nil, err
	}
	sess := newSession(name, s.now().UTC())
	doc, err := encode(sess)
	if err != nil {
		return nil, err
	}
	if err := s.b.insert(ctx, name, doc); err != nil {
		return nil, err
	}
	return sess, nil
}

func (s *docStore) Get(ctx context.Context, name string) (*Session, error) {
	doc, err := s.b.load(ctx, name)
	if err != nil {
		return nil, err
	}
	return decode(doc)
}

func (s *docStore) List(ctx context.Context) ([]Summary, error) {
	docs, err := s.b.list(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]Summary, 0, len(docs))
	for _, d := range docs {
		sess, err := decode(d)
		if err != nil {
			return nil, err
		}
		out = append(out, sess.Summary())
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (s *docStore) Delete(ctx context.Context, name string) error {
	return s.b.remove(ctx, name)
}

// mutate applies fn to the stored session and bumps UpdatedAt.
func (s *docStore) mutate(ctx context.Context, name string, fn func(sess *Session, now time.Time)) (*Session, error) {
	var result *Session
	_, err := s.b.update(ctx, name, func(doc []byte) ([]byte, error) {
		sess, err := decode(doc)
		if err != nil {
			return nil, err
		}
		now := s.now().UTC()
		fn(sess, now)
		sess.UpdatedAt = now
		result = sess
		return encode(sess)
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

func (s *docStore) PutDataset(ctx context.Context, name string, ds Dataset) (*Session, error) {
	if strings.TrimSpace(ds.Filename) == "" {
		return nil, errs.New(errs.ErrKindInvalidInput, "dataset filename cannot be empty")
	}
	return s.mutate(ctx, name, func(sess *Session, now time.Time) {
		if ds.UploadedAt.IsZero() {
			ds.UploadedAt = now
		}
		d := ds
		sess.Datasets[ds.Filename] = &d
	})
}

func (s *docStore) AppendQuestion(ctx context.Context, name string, e QuestionEntry) (*Session, error) {
	return s.mutate(ctx, name, func(sess *Session, now time.Time) {
		if e.ID == "" {
			e.ID = uuid.NewString()
		}
		if e.CreatedAt.IsZero() {
			e.CreatedAt = now
		}
		sess.Questions = append(sess.Questions, e)
	})
}

func (s *docStore) AppendFollowUp(ctx context.Context, name, question string, e FollowUpEntry) (*Session, error) {
	if strings.TrimSpace(question) == "" {
		return nil, errs.New(errs.ErrKindInvalidInput, "question cannot be empty")
	}
	return s.mutate(ctx, name, func(sess *Session, now time.Time) {
		if e.ID == "" {
			e.ID = uuid.NewString()
		}
		if e.CreatedAt.IsZero() {
			e.CreatedAt = now
		}
		sess.FollowUps[question] = append(sess.FollowUps[question], e)
	})
}

func (s *docStore) AppendReport(ctx context.Context, name string, e ReportEntry) (*Session, error) {
	return s.mutate(ctx, name, func(sess *Session, now time.Time) {
		if e.ID == "" {
			e.ID = uuid.NewString()
		}
		if e.CreatedAt.IsZero() {
			e.CreatedAt = now
		}
		sess.Reports = append(sess.Reports, e)
	})
}

func (s *docStore) Close() error { return s.b.close() }

// Backend names accepted by Open.
const (
	BackendMemory   = "memory"
	BackendFile     = "file"
	BackendPostgres = "postgres"
	BackendMySQL    = "mysql"
)

// Open builds the store named by backend. dir is used by the file backend,
// dsn by the SQL backends.
func Open(ctx context.Context, backendName, dir, dsn string, opts ...Option) (Store, error) {
	switch backendName {
	case BackendMemory:
		return NewMemoryStore(opts...), nil
	case BackendFile, "":
		return NewFileStore(dir, opts...)
	case BackendPostgres:
		return NewPostgresStore(ctx, dsn, opts...)
	case BackendMySQL:
		return NewMySQLStore(ctx, dsn, opts...)
	}
	return nil, errs.Newf(errs.ErrKindInvalidInput, "unknown store backend %q", backendName)
}

func requireDSN(kind, dsn string) error {
	if strings.TrimSpace(dsn) == "" {
		return errs.New(errs.ErrKindInvalidInput, fmt.Sprintf("%s store requires store_dsn", kind))
	}
	return nil
}
