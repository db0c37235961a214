package media

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/dmitrijs2005/adminconsole/internal/common"
	"github.com/dmitrijs2005/adminconsole/internal/docstore"
	"github.com/dmitrijs2005/adminconsole/internal/session"
)

var readFile = os.ReadFile

// OpenUpload opens the upload form; its only field is the local file path.
func (m *Manager) OpenUpload() error {
	return m.session.OpenCreate([]string{FieldFile})
}

// OpenRename opens the rename form prefilled with r's name.
func (m *Manager) OpenRename(r docstore.Record) error {
	return m.session.OpenEdit(r.ID, []string{FieldName}, map[string]string{FieldName: r.Fields.String(FieldName)})
}

func (m *Manager) SetDraft(field, value string) error {
	return m.session.Set(field, value)
}

func (m *Manager) Cancel() {
	m.session.Close()
}

// Save submits the open form: an upload of the file at the draft path, or a
// rename.
func (m *Manager) Save(ctx context.Context) error {
	st := m.session.State()

	switch st.Mode {
	case session.Creating:
		path := strings.TrimSpace(st.Draft[FieldFile])
		if path == "" {
			err := &PhaseError{Op: "upload", Phase: Validating, Err: fmt.Errorf("%w: no file selected", common.ErrValidation)}
			m.notifier.Failure(ctx, m.messages.NoFile, err)
			return err
		}

		data, err := m.readFile(path)
		if err != nil {
			perr := &PhaseError{Op: "upload", Phase: Validating, Err: fmt.Errorf("%w: %w", common.ErrValidation, err)}
			m.notifier.Failure(ctx, m.messages.UploadFailed, perr)
			return perr
		}

		_, err = m.Upload(ctx, data, path)
		return err
	case session.Editing:
		return m.Rename(ctx, st.TargetID, st.Draft[FieldName])
	default:
		m.notifier.Failure(ctx, "Nothing to save", session.ErrSessionClosed)
		return session.ErrSessionClosed
	}
}
