// Package session keeps named analysis sessions: uploaded dataset digests
// and the generated questions, follow-ups and reports, in append order.
package session

import (
	"sort"
	"time"

	"github.com/KaramelBytes/edaprompt-cli/internal/analysis"
)

// Session is one named workspace.
type Session struct {
	Name      string                     `json:"name"`
	CreatedAt time.Time                  `json:"created_at"`
	UpdatedAt time.Time                  `json:"updated_at"`
	Datasets  map[string]*Dataset        `json:"datasets"`
	Questions []QuestionEntry            `json:"questions"`
	FollowUps map[string][]FollowUpEntry `json:"followups"`
	Reports   []ReportEntry              `json:"reports"`
}

// Dataset records an uploaded file by its digests; the raw rows are not kept.
type Dataset struct {
	Filename   string                  `json:"filename"`
	Source     string                  `json:"source"`
	Rows       int                     `json:"rows"`
	Columns    int                     `json:"columns"`
	Digests    []analysis.ColumnDigest `json:"digests"`
	UploadedAt time.Time               `json:"uploaded_at"`
}

type QuestionEntry struct {
	ID        string    `json:"id"`
	CreatedAt time.Time `json:"created_at"`
	Dataset   string    `json:"dataset"`
	Questions string    `json:"questions"`
	Objective string    `json:"objective,omitempty"`
	Focus     []string  `json:"focus,omitempty"`
	Model     string    `json:"model,omitempty"`
}

// FollowUpEntry is keyed in Session.FollowUps by the literal question text.
type FollowUpEntry struct {
	ID        string    `json:"id"`
	CreatedAt time.Time `json:"created_at"`
	Text      string    `json:"text"`
	Model     string    `json:"model,omitempty"`
}

type ReportEntry struct {
	ID        string    `json:"id"`
	CreatedAt time.Time `json:"created_at"`
	Dataset   string    `json:"dataset"`
	Text      string    `json:"text"`
	Objective string    `json:"objective,omitempty"`
	Focus     []string  `json:"focus,omitempty"`
	Model     string    `json:"model,omitempty"`
}

// Summary is the listing view of a session.
type Summary struct {
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
	Datasets  int       `json:"datasets"`
	Questions int       `json:"questions"`
	FollowUps int       `json:"followups"`
	Reports   int       `json:"reports"`
}

func newSession(name string, now time.Time) *Session {
	return &Session{
		Name:      name,
		CreatedAt: now,
		UpdatedAt: now,
		Datasets:  map[string]*Dataset{},
		Questions: []QuestionEntry{},
		FollowUps: map[string][]FollowUpEntry{},
		Reports:   []ReportEntry{},
	}
}

// normalize fills nil collections after decoding older or hand-edited documents.
func (s *Session) normalize() {
	if s.Datasets == nil {
		s.Datasets = map[string]*Dataset{}
	}
	if s.FollowUps == nil {
		s.FollowUps = map[string][]FollowUpEntry{}
	}
	if s.Questions == nil {
		s.Questions = []QuestionEntry{}
	}
	if s.Reports == nil {
		s.Reports = []ReportEntry{}
	}
}

// Summary condenses the session for listings.
func (s *Session) Summary() Summary {
	n := 0
	for _, f := range s.FollowUps {
		n += len(f)
	}
	return Summary{
		Name:      s.Name,
		CreatedAt: s.CreatedAt,
		UpdatedAt: s.UpdatedAt,
		Datasets:  len(s.Datasets),
		Questions: len(s.Questions),
		FollowUps: n,
		Reports:   len(s.Reports),
	}
}

// DatasetNames returns dataset filenames sorted by upload time, oldest first.
func (s *Session) DatasetNames() []string {
	names := make([]string, 0, len(s.Datasets))
	for n := range s.Datasets {
		names = append(names, n)
	}
	sort.SliceStable(names, func(i, j int) bool {
		a, b := s.Datasets[names[i]], s.Datasets[names[j]]
		if a.UploadedAt.Equal(b.UploadedAt) {
			return names[i] < names[j]
		}
		return a.UploadedAt.Before(b.UploadedAt)
	})
	return names
}

// LatestDataset returns the most recently uploaded dataset.
func (s *Session) LatestDataset() (*Dataset, bool) {
	names := s.DatasetNames()
	if len(names) == 0 {
		return nil, false
	}
	return s.Datasets[names[len(names)-1]], true
}

// LatestQuestions returns the newest question entry, restricted to dataset
// when it is non-empty.
func (s *Session) LatestQuestions(dataset string) (*QuestionEntry, bool) {
	for i := len(s.Questions) - 1; i >= 0; i-- {
		if dataset == "" || s.Questions[i].Dataset == dataset {
			return &s.Questions[i], true
		}
	}
	return nil, false
}

// LatestReport returns the newest report, restricted to dataset when non-empty.
func (s *Session) LatestReport(dataset string) (*ReportEntry, bool) {
	for i := len(s.Reports) - 1; i >= 0; i-- {
		if dataset == "" || s.Reports[i].Dataset == dataset {
			return &s.Reports[i], true
		}
	}
	return nil, false
}
