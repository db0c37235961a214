package console

import (
	"io"

	"github.com/dmitrijs2005/adminconsole/internal/crud"
	"github.com/dmitrijs2005/adminconsole/internal/docstore"
	"github.com/jedib0t/go-pretty/v6/table"
)

// renderTable prints records as a table numbered by display sequence.
// Secret fields are never shown.
func renderTable(w io.Writer, columns []crud.Field, records []docstore.Record) {
	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetStyle(table.StyleLight)

	header := table.Row{"No."}
	for _, c := range columns {
		if c.Secret {
			continue
		}
		header = append(header, c.Label)
	}
	header = append(header, "ID")
	t.AppendHeader(header)

	for _, r := range records {
		row := table.Row{r.Seq}
		for _, c := range columns {
			if c.Secret {
				continue
			}
			row = append(row, r.Fields.String(c.Name))
		}
		row = append(row, r.ID)
		t.AppendRow(row)
	}

	t.Render()
}

// maskDraft returns the draft with secret values replaced.
func maskDraft(fields []crud.Field, draft map[string]string) map[string]string {
	out := make(map[string]string, len(draft))
	for k, v := range draft {
		out[k] = v
	}
	for _, f := range fields {
		if f.Secret && out[f.Name] != "" {
			out[f.Name] = "********"
		}
	}
	return out
}
