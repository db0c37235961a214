// Package flagx lets several independent flag sets share one command line.
// Each config layer extracts only the flags it owns before parsing, so
// unknown flags of other layers never trip flag.ContinueOnError.
package flagx

import (
	"flag"
	"os"
	"strings"
)

// Known lists the flags a parser owns. The value reports whether the flag
// consumes the following argument ("-a :50051") or stands alone ("-m").
type Known map[string]bool

// Filter returns the subset of args that belongs to known flags, keeping
// their values and the original order. Both "-f value" and "-f=value" forms
// are recognized; a following argument that starts with "-" is never taken
// as a value.
func Filter(args []string, known Known) []string {
	out := make([]string, 0, len(args))

	for i := 0; i < len(args); i++ {
		arg := args[i]
		if !strings.HasPrefix(arg, "-") {
			continue
		}

		name, _, hasValue := strings.Cut(arg, "=")
		takesValue, ok := known[name]
		if !ok {
			continue
		}
		out = append(out, arg)

		if hasValue || !takesValue {
			continue
		}
		if i+1 < len(args) && !strings.HasPrefix(args[i+1], "-") {
			out = append(out, args[i+1])
			i++
		}
	}

	return out
}

// FilterArgs is Filter for flags that all take a value.
func FilterArgs(args []string, allowed []string) []string {
	known := make(Known, len(allowed))
	for _, f := range allowed {
		known[f] = true
	}
	return Filter(args, known)
}

// ConfigPath returns the JSON config file given with -c or -config, or ""
// when neither is present.
func ConfigPath() string {
	var path string

	fs := flag.NewFlagSet("json", flag.ContinueOnError)
	fs.StringVar(&path, "config", "", "path to config file")
	fs.StringVar(&path, "c", "", "path to config file (short)")
	_ = fs.Parse(FilterArgs(os.Args[1:], []string{"-c", "-config"}))

	return path
}
