package main

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/fatih/color"
	"github.com/poiesic/ragtime/core"
	"github.com/poiesic/ragtime/search"
)

var (
	labelColor   = color.New(color.FgCyan, color.Bold)
	warnColor    = color.New(color.FgYellow)
	errorColor   = color.New(color.FgRed)
	sourceColor  = color.New(color.FgGreen)
	dimColor     = color.New(color.Faint)
	markColor    = color.New(color.FgGreen, color.Bold)
)

func printAnswer(w io.Writer, a *core.Answer) {
	if a.LowConfidence {
		warnColor.Fprintln(w, "[low confidence: no passage closely matched the question]")
	}
	fmt.Fprintln(w, a.Answer)

	if len(a.Sources) > 0 {
		fmt.Fprintln(w)
		labelColor.Fprintln(w, "Sources:")
		for i, s := range a.Sources {
			title := s.Title
			if title == "" {
				title = s.SourceID
			}
			sourceColor.Fprintf(w, "  %d. %s", i+1, title)
			dimColor.Fprintf(w, " [%.3f]\n", s.Score)
		}
	}
	if a.TranslationDegraded {
		warnColor.Fprintln(w, "[translation unavailable: answer may not be in your language]")
	}
}

func printSearch(w io.Writer, result *search.Result) {
	labelColor.Fprintln(w, "Queries:")
	for i, q := range result.Queries {
		fmt.Fprintf(w, "  %d. %s\n", i+1, q)
	}

	selected := make(map[core.ID]bool, len(result.Candidates))
	for _, c := range result.Candidates {
		selected[c.Fragment.ID] = true
	}

	fmt.Fprintln(w)
	labelColor.Fprintf(w, "Candidates (%s):\n", result.Outcome)
	for _, c := range result.Fused {
		mark := " "
		if selected[c.Fragment.ID] {
			mark = markColor.Sprint("*")
		}
		fmt.Fprintf(w, "%s %.3f  q%d  %s\n", mark, c.Score, c.QueryIndex, core.Excerpt(c.Fragment.Text, 100))
	}
	if result.LowConfidence && result.Outcome != search.OutcomeEmpty {
		warnColor.Fprintln(w, "[low confidence: best candidate is below the threshold]")
	}
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// printError shows pipeline failures by their user message and anything
// else verbatim.
func printError(w io.Writer, err error) {
	errorColor.Fprint(w, "Error: ")
	if core.KindOf(err) == core.KindUnknown {
		fmt.Fprintln(w, err)
		return
	}
	fmt.Fprintln(w, core.UserMessage(err))
}
