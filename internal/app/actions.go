package app

import (
	"context"
	"strings"

	"github.com/KaramelBytes/edaprompt-cli/internal/ai"
	"github.com/KaramelBytes/edaprompt-cli/internal/errs"
	"github.com/KaramelBytes/edaprompt-cli/internal/prompt"
	"github.com/KaramelBytes/edaprompt-cli/internal/session"
)

// GenerateQuestions asks for EDA questions and appends them to the session.
// Nothing is stored when the completion fails.
func (a *App) GenerateQuestions(ctx context.Context, sessionName string, opt GenerateOptions) (*session.QuestionEntry, error) {
	req, ds, err := a.Prompt(ctx, sessionName, prompt.TaskQuestions, opt, prompt.Input{})
	if err != nil {
		return nil, err
	}
	c, err := a.complete(ctx, req)
	if err != nil {
		return nil, err
	}
	entry := session.QuestionEntry{
		CreatedAt: a.now(),
		Dataset:   ds.Filename,
		Questions: c.Text,
		Objective: strings.TrimSpace(opt.Objective),
		Focus:     opt.Focus,
		Model:     c.Model,
	}
	s, err := a.Store.AppendQuestion(ctx, sessionName, entry)
	if err != nil {
		return nil, err
	}
	return &s.Questions[len(s.Questions)-1], nil
}

// ExplainColumn returns a short explanation of one column. The result is
// shown to the user and not stored.
func (a *App) ExplainColumn(ctx context.Context, sessionName, dataset, column string) (ai.Completion, error) {
	req, _, err := a.Prompt(ctx, sessionName, prompt.TaskExplain, GenerateOptions{Dataset: dataset}, prompt.Input{Column: column})
	if err != nil {
		return ai.Completion{}, err
	}
	return a.complete(ctx, req)
}

// FollowUpOptions names the originating question either by its literal text
// or by its 1-based position in the latest question block of the dataset.
type FollowUpOptions struct {
	Dataset  string
	Question string
	Pick     int
}

// ResolveQuestion returns the question text a follow-up is keyed by.
func (a *App) ResolveQuestion(ctx context.Context, sessionName string, opt FollowUpOptions) (string, error) {
	q := strings.TrimSpace(opt.Question)
	if q != "" && opt.Pick > 0 {
		return "", errs.New(errs.ErrKindInvalidInput, "use either a question or a pick index, not both")
	}
	if q == "" && opt.Pick <= 0 {
		return "", errs.New(errs.ErrKindInvalidInput, "a question or a pick index is required")
	}
	s, err := a.Store.Get(ctx, sessionName)
	if err != nil {
		return "", err
	}
	if q != "" {
		return generatedQuestion(s, opt.Dataset, q)
	}
	dataset := opt.Dataset
	if dataset == "" {
		if ds, ok := s.LatestDataset(); ok {
			dataset = ds.Filename
		}
	}
	entry, ok := s.LatestQuestions(dataset)
	if !ok {
		return "", errs.Newf(errs.ErrKindNotFound, "no questions generated for %q yet", dataset)
	}
	items := session.SplitQuestions(entry.Questions)
	if opt.Pick > len(items) {
		return "", errs.Newf(errs.ErrKindInvalidInput, "pick %d out of range (1-%d)", opt.Pick, len(items))
	}
	return items[opt.Pick-1], nil
}

// generatedQuestion accepts q only when it is one of the questions already
// generated in s, for dataset when set.
func generatedQuestion(s *session.Session, dataset, q string) (string, error) {
	found := false
	for _, e := range s.Questions {
		if dataset != "" && e.Dataset != dataset {
			continue
		}
		found = true
		if session.HasQuestion(e.Questions, q) {
			return q, nil
		}
	}
	if !found {
		return "", errs.Newf(errs.ErrKindNotFound, "no questions generated in session %q yet", s.Name)
	}
	return "", errs.Newf(errs.ErrKindInvalidInput, "%q is not one of the generated questions; use --pick or copy a question verbatim", q)
}

// GenerateFollowUps asks for follow-up questions and appends them under the
// originating question text, which is returned alongside the entry.
func (a *App) GenerateFollowUps(ctx context.Context, sessionName string, opt FollowUpOptions) (string, *session.FollowUpEntry, error) {
	q, err := a.ResolveQuestion(ctx, sessionName, opt)
	if err != nil {
		return "", nil, err
	}
	req, _, err := a.Prompt(ctx, sessionName, prompt.TaskFollowUps, GenerateOptions{Dataset: opt.Dataset}, prompt.Input{Question: q})
	if err != nil {
		return "", nil, err
	}
	c, err := a.complete(ctx, req)
	if err != nil {
		return "", nil, err
	}
	s, err := a.Store.AppendFollowUp(ctx, sessionName, q, session.FollowUpEntry{
		CreatedAt: a.now(),
		Text:      c.Text,
		Model:     c.Model,
	})
	if err != nil {
		return "", nil, err
	}
	list := s.FollowUps[q]
	return q, &list[len(list)-1], nil
}

// GenerateReport asks for a narrative Markdown report and stores it.
func (a *App) GenerateReport(ctx context.Context, sessionName string, opt GenerateOptions) (*session.ReportEntry, error) {
	req, ds, err := a.Prompt(ctx, sessionName, prompt.TaskReport, opt, prompt.Input{})
	if err != nil {
		return nil, err
	}
	c, err := a.complete(ctx, req)
	if err != nil {
		return nil, err
	}
	s, err := a.Store.AppendReport(ctx, sessionName, session.ReportEntry{
		CreatedAt: a.now(),
		Dataset:   ds.Filename,
		Text:      c.Text,
		Objective: strings.TrimSpace(opt.Objective),
		Focus:     opt.Focus,
		Model:     c.Model,
	})
	if err != nil {
		return nil, err
	}
	return &s.Reports[len(s.Reports)-1], nil
}
