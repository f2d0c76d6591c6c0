package commands

import (
	"fmt"
	"io"
	"strings"

	"github.com/xraph/graft"
	"github.com/xraph/graft/errors"
)

// printScopes lists every scope with its services and exports.
func printScopes(w io.Writer, a *graft.Assembly) {
	for _, g := range a.Scopes() {
		depth := 0
		for p := g.Parent(); p != nil; p = p.Parent() {
			depth++
		}
		indent := strings.Repeat("  ", depth)

		fmt.Fprintf(w, "%s%s %s\n", indent, bold(g.Name()), gray(fmt.Sprintf("(%d services)", g.Len())))
		for _, name := range sortedNames(g.Keys()) {
			fmt.Fprintf(w, "%s  %s %s\n", indent, gray("-"), name)
		}
		if ex := g.Exported(); ex != nil && ex.Len() > 0 {
			fmt.Fprintf(w, "%s  %s %s\n", indent, cyan("exports:"), strings.Join(sortedNames(ex.Keys()), ", "))
		}
	}
}

// printRequirements lists unresolved dependencies. Optional ones are shown
// as warnings.
func printRequirements(w io.Writer, reqs []graft.Requirement) {
	if len(reqs) == 0 {
		return
	}
	fmt.Fprintln(w, bold("unresolved:"))
	for _, r := range reqs {
		mark := red("required")
		if r.Optional {
			mark = yellow("optional")
		}
		fmt.Fprintf(w, "  %s %s\n", displayName(r.Key), mark)
		for _, s := range r.Sites {
			fmt.Fprintf(w, "    %s %s\n", gray("-"), s)
		}
	}
}

// printError renders a build error, one coded failure per block.
func printError(w io.Writer, err error) {
	if joined, ok := err.(interface{ Unwrap() []error }); ok {
		for _, e := range joined.Unwrap() {
			printError(w, e)
		}
		return
	}
	code := errors.Code(err)
	if code == "" {
		code = "ERROR"
	}
	fmt.Fprintf(w, "%s %s\n", boldRed(code), err)
}
