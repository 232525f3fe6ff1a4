package command

import (
	"fmt"
	"io"
	"strings"
)

// WriteUsage prints the usage text. A non-empty errMsg is printed first
// as "Error: <errMsg>".
func WriteUsage(w io.Writer, program, errMsg string) {
	if errMsg != "" {
		fmt.Fprintf(w, "Error: %s\n", errMsg)
	}

	for group, title := range groupTitles {
		var verbs []Verb
		for _, v := range verbOrder {
			if specs[v].group == group {
				verbs = append(verbs, v)
			}
		}
		fmt.Fprintln(w, title)
		fmt.Fprintf(w, "\t%s %s\n", program, synopsis(verbs))
		for _, v := range verbs {
			fmt.Fprintf(w, "\t%-12s - %s\n", v, specs[v].help)
		}
	}
}

// synopsis renders "<a|b|c>" or, for a single verb with arguments,
// "<verb> args".
func synopsis(verbs []Verb) string {
	if len(verbs) == 1 {
		s := "<" + string(verbs[0]) + ">"
		if args := specs[verbs[0]].synopsis; args != "" {
			s += " " + args
		}
		return s
	}
	names := make([]string, len(verbs))
	for i, v := range verbs {
		names[i] = string(v)
	}
	return "<" + strings.Join(names, "|") + ">"
}
