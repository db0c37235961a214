package console

import (
	"context"
	"fmt"
	"strings"
)

const helpText = `Available commands:
  screens               list the screens
  open <screen>         switch to a screen
  (l)ist                show the records of the open screen
  add                   fill in and save a new record (photos: upload a file)
  edit <no|id>          fill in and save changes to a record (photos: rename)
  set <field> <value>   change a field of the open form
  draft                 show the open form
  save                  submit the open form
  cancel                discard the open form
  delete <no|id>        delete a record
  refresh               reload the open screen
  exit | quit           leave the console`

func (a *App) prompt() string {
	name := "-"
	if s := a.current(); s != nil {
		name = s.Name()
	}
	return fmt.Sprintf("ac [%s] (%s)> ", name, a.Mode())
}

// runREPL reads commands until exit, EOF or ctx cancellation. Command
// errors have already been reported to the operator and are not fatal.
func (a *App) runREPL(ctx context.Context) {
	for {
		if ctx.Err() != nil {
			return
		}

		line, err := a.readLine(a.prompt())
		if err != nil {
			fmt.Fprintln(a.out)
			return
		}

		parts := strings.Fields(line)
		if len(parts) == 0 {
			continue
		}
		cmd, args := parts[0], parts[1:]

		switch cmd {
		case "help":
			fmt.Fprintln(a.out, helpText)
		case "screens":
			a.listScreens()
		case "open":
			if len(args) != 1 {
				fmt.Fprintln(a.out, "Usage: open <screen>")
				continue
			}
			if err := a.open(ctx, args[0]); err != nil {
				a.logger.Debug(ctx, "open failed", "screen", args[0], "error", err)
				fmt.Fprintln(a.out, err)
			}
		case "l", "list":
			a.list()
		case "add":
			_ = a.add(ctx)
		case "edit":
			if len(args) != 1 {
				fmt.Fprintln(a.out, "Usage: edit <no|id>")
				continue
			}
			_ = a.edit(ctx, args[0])
		case "set":
			if len(args) < 1 {
				fmt.Fprintln(a.out, "Usage: set <field> <value>")
				continue
			}
			_ = a.set(args[0], strings.Join(args[1:], " "))
		case "draft":
			a.draft()
		case "save":
			_ = a.save(ctx)
		case "cancel":
			a.cancel()
		case "delete":
			if len(args) != 1 {
				fmt.Fprintln(a.out, "Usage: delete <no|id>")
				continue
			}
			_ = a.delete(ctx, args[0])
		case "refresh":
			_ = a.refresh(ctx)
		case "exit", "quit":
			fmt.Fprintln(a.out, "Bye!")
			return
		default:
			fmt.Fprintln(a.out, "Unknown command:", cmd)
		}
	}
}
