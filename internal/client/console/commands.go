package console

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/dmitrijs2005/adminconsole/internal/collections"
	"github.com/dmitrijs2005/adminconsole/internal/session"
)

var errNoScreen = errors.New("no screen open")

func (a *App) requireScreen() (screen, error) {
	s := a.current()
	if s == nil {
		fmt.Fprintln(a.out, "No screen open. Use: open <screen>")
		return nil, errNoScreen
	}
	return s, nil
}

func (a *App) listScreens() {
	for _, name := range collections.Names() {
		fmt.Fprintln(a.out, " ", name)
	}
}

func (a *App) list() {
	s, err := a.requireScreen()
	if err != nil {
		return
	}
	if !s.Ready() {
		fmt.Fprintln(a.out, "Loading...")
		return
	}
	renderTable(a.out, s.Columns(), s.Records())
}

func (a *App) add(ctx context.Context) error {
	s, err := a.requireScreen()
	if err != nil {
		return err
	}
	if err := s.OpenCreate(); err != nil {
		a.formBusy(err)
		return err
	}
	return a.fillAndSave(ctx, s)
}

func (a *App) edit(ctx context.Context, ref string) error {
	s, err := a.requireScreen()
	if err != nil {
		return err
	}
	r, ok := resolve(s, ref)
	if !ok {
		fmt.Fprintf(a.out, "No record %s\n", ref)
		return fmt.Errorf("record %s not found", ref)
	}
	if err := s.OpenEdit(r); err != nil {
		a.formBusy(err)
		return err
	}
	return a.fillAndSave(ctx, s)
}

func (a *App) formBusy(err error) {
	if errors.Is(err, session.ErrSessionOpen) {
		fmt.Fprintln(a.out, "A form is already open: use set, save or cancel")
		return
	}
	fmt.Fprintln(a.out, err)
}

// fillAndSave prompts for every form field, keeping the current value on
// empty input, then submits. A failed submit leaves the form open.
func (a *App) fillAndSave(ctx context.Context, s screen) error {
	for _, f := range s.FormFields() {
		current := s.Session().Draft()[f.Name]

		var (
			value string
			err   error
		)
		if f.Secret {
			value, err = a.readSecret(f.Label + ": ")
		} else if current != "" {
			value, err = a.readLine(fmt.Sprintf("%s [%s]: ", f.Label, current))
		} else {
			value, err = a.readLine(f.Label + ": ")
		}
		if err != nil {
			s.Cancel()
			return err
		}

		if value == "" {
			continue
		}
		if err := s.SetDraft(f.Name, value); err != nil {
			fmt.Fprintln(a.out, err)
			return err
		}
	}

	return a.save(ctx)
}

func (a *App) set(field, value string) error {
	s, err := a.requireScreen()
	if err != nil {
		return err
	}
	if err := s.SetDraft(field, value); err != nil {
		fmt.Fprintln(a.out, err)
		return err
	}
	return nil
}

func (a *App) draft() {
	s, err := a.requireScreen()
	if err != nil {
		return
	}
	st := s.Session().State()
	if st.Mode == session.Closed {
		fmt.Fprintln(a.out, "No form open")
		return
	}

	values := maskDraft(s.FormFields(), st.Draft)
	keys := make([]string, 0, len(values))
	for k := range values {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var b strings.Builder
	fmt.Fprintf(&b, "%s", st.Mode)
	if st.TargetID != "" {
		fmt.Fprintf(&b, " %s", st.TargetID)
	}
	b.WriteString("\n")
	for _, k := range keys {
		fmt.Fprintf(&b, "  %s: %s\n", k, values[k])
	}
	fmt.Fprint(a.out, b.String())
}

func (a *App) save(ctx context.Context) error {
	s, err := a.requireScreen()
	if err != nil {
		return err
	}
	if err := s.Save(ctx); err != nil {
		if s.Session().Mode() != session.Closed {
			fmt.Fprintln(a.out, "Form kept open: use set, save or cancel")
		}
		return err
	}
	return nil
}

func (a *App) cancel() {
	if s := a.current(); s != nil {
		s.Cancel()
	}
}

func (a *App) delete(ctx context.Context, ref string) error {
	s, err := a.requireScreen()
	if err != nil {
		return err
	}
	r, ok := resolve(s, ref)
	if !ok {
		fmt.Fprintf(a.out, "No record %s\n", ref)
		return fmt.Errorf("record %s not found", ref)
	}
	return s.Delete(ctx, r)
}

func (a *App) refresh(ctx context.Context) error {
	s, err := a.requireScreen()
	if err != nil {
		return err
	}
	return s.Refresh(ctx)
}
