package app

import (
	"bytes"
	"context"
	"path"

	"github.com/KaramelBytes/edaprompt-cli/internal/errs"
	"github.com/KaramelBytes/edaprompt-cli/internal/export"
	"github.com/KaramelBytes/edaprompt-cli/internal/filestore"
	"github.com/KaramelBytes/edaprompt-cli/internal/utils"
)

// Document is a rendered export ready to be written or served.
type Document struct {
	Name     string
	Title    string
	Markdown string
}

// HTML renders the document as a standalone page.
func (d Document) HTML() (string, error) {
	return export.HTML(d.Title, d.Markdown)
}

// Export renders the latest questions or report for dataset (empty means
// any dataset), or the whole session for export.KindSession.
func (a *App) Export(ctx context.Context, sessionName, kind, dataset string) (Document, error) {
	s, err := a.Store.Get(ctx, sessionName)
	if err != nil {
		return Document{}, err
	}
	switch kind {
	case export.KindQuestions:
		e, ok := s.LatestQuestions(dataset)
		if !ok {
			return Document{}, errs.Newf(errs.ErrKindNotFound, "no questions generated in session %q", s.Name)
		}
		return Document{
			Name:     export.FileName(s.Name, e.Dataset, kind),
			Title:    "AI-Generated EDA Questions",
			Markdown: export.Questions(s, *e),
		}, nil
	case export.KindReport:
		r, ok := s.LatestReport(dataset)
		if !ok {
			return Document{}, errs.Newf(errs.ErrKindNotFound, "no report generated in session %q", s.Name)
		}
		return Document{
			Name:     export.FileName(s.Name, r.Dataset, kind),
			Title:    "EDA Report",
			Markdown: export.Report(s, *r),
		}, nil
	case export.KindSession:
		return Document{
			Name:     export.FileName(s.Name, "", kind),
			Title:    "EDA Session: " + s.Name,
			Markdown: export.Session(s),
		}, nil
	}
	return Document{}, errs.Newf(errs.ErrKindInvalidInput, "unknown export kind %q (questions, report, session)", kind)
}

// Publish uploads data to bucket under "<session>/<name>" and returns its URI.
func (a *App) Publish(ctx context.Context, bucket, sessionName, name string, data []byte, contentType string) (string, error) {
	if a.Files == nil {
		return "", errs.New(errs.ErrKindInvalidInput, "object storage not configured")
	}
	if bucket == "" {
		return "", errs.New(errs.ErrKindInvalidInput, "export bucket not set")
	}
	key := path.Join(utils.SafeName(sessionName), name)
	if _, err := a.Files.PutObject(ctx, bucket, key, bytes.NewReader(data), int64(len(data)), contentType); err != nil {
		return "", err
	}
	uri := filestore.URI(bucket, key)
	a.log().With().Str("uri", uri).Logger().Info("export published")
	return uri, nil
}
