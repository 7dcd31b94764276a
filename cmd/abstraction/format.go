package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/fatih/color"

	"github.com/Jaeyong-Cho/abstraction"
)

// CLIResult is the top-level JSON envelope for all commands.
type CLIResult struct {
	Command string `json:"command"`
	Results any    `json:"results"`
	Error   string `json:"error,omitempty"`
}

// validateFormat checks that the --format flag value is recognized.
func validateFormat(format string) error {
	switch format {
	case "json", "text":
		return nil
	}
	return fmt.Errorf("invalid format %q: must be json or text", format)
}

// outputResult marshals a CLIResult to stdout as indented JSON.
func outputResult(result CLIResult) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(result)
}

// outputError writes an error in the selected format and returns it so RunE
// can propagate it to Cobra. In JSON mode the error is written to stdout as
// a CLIResult envelope. In text mode it goes to stderr.
func outputError(command string, err error) error {
	errorHandled = true
	if flagFormat == "text" {
		fmt.Fprintf(os.Stderr, "Error: %s\n", err)
		return err
	}
	result := CLIResult{
		Command: command,
		Error:   err.Error(),
	}
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	_ = enc.Encode(result)
	return err
}

var (
	freshColor    = color.New(color.FgGreen)
	staleColor    = color.New(color.FgYellow)
	orphanedColor = color.New(color.FgRed)
	mutedColor    = color.New(color.Faint)
)

// statusLabel colors a classification for terminal output.
func statusLabel(status abstraction.Classification) string {
	switch status {
	case abstraction.ClassFresh:
		return freshColor.Sprint(status)
	case abstraction.ClassStale:
		return staleColor.Sprint(status)
	case abstraction.ClassOrphaned:
		return orphanedColor.Sprint(status)
	}
	return mutedColor.Sprint(status)
}

// formatFunctionsText renders a function listing as aligned columns.
func formatFunctionsText(w io.Writer, fns []abstraction.FunctionSummary) {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "TOKEN\tLANG\tLINES\tLEVEL\tSTATUS")
	for _, fn := range fns {
		level := string(fn.Level)
		if level == "" {
			level = "-"
		}
		fmt.Fprintf(tw, "%s\t%s\t%d-%d\t%s\t%s\n",
			fn.Token, fn.Language, fn.StartLine, fn.EndLine, level, statusLabel(fn.Status))
	}
	tw.Flush()
}

// formatFunctionTreeText renders a listing grouped by directory and file,
// functions indented under their file with line range and status.
func formatFunctionTreeText(w io.Writer, root *abstraction.DirNode) {
	renderListingDir(w, root, "")
}

func renderListingDir(w io.Writer, dir *abstraction.DirNode, indent string) {
	if dir.Name != "" {
		fmt.Fprintf(w, "%s%s/\n", indent, dir.Name)
		indent += "  "
	}
	for _, sub := range dir.Dirs {
		renderListingDir(w, sub, indent)
	}
	for _, file := range dir.Files {
		fmt.Fprintf(w, "%s%s\n", indent, file.Name)
		for _, fn := range file.Functions {
			fmt.Fprintf(w, "%s  %s  %s  %s\n",
				indent, fn.Identity.QualifiedName,
				mutedColor.Sprintf("%d-%d", fn.StartLine, fn.EndLine),
				statusLabel(fn.Status))
		}
	}
}

// formatTreeText renders a call tree with box-drawing branches.
func formatTreeText(w io.Writer, node *abstraction.TreeNode) {
	fmt.Fprintln(w, node.Identity.Token())
	renderChildren(w, node, "")
}

func renderChildren(w io.Writer, node *abstraction.TreeNode, prefix string) {
	for i, child := range node.Children {
		branch, childPrefix := "├── ", prefix+"│   "
		if i == len(node.Children)-1 {
			branch, childPrefix = "└── ", prefix+"    "
		}
		fmt.Fprintf(w, "%s%s%s\n", prefix, branch, renderNode(child))
		renderChildren(w, child, childPrefix)
	}
}

func renderNode(node *abstraction.TreeNode) string {
	label := node.Name
	switch {
	case node.BackRef:
		label = mutedColor.Sprintf("%s (cycle)", label)
	case node.Kind == abstraction.ResolutionExternal:
		label = mutedColor.Sprintf("%s (external)", label)
	case node.Kind == abstraction.ResolutionAmbiguous:
		label = staleColor.Sprintf("%s (ambiguous -> %s)", label, node.Identity.Path)
	default:
		label = fmt.Sprintf("%s (%s)", label, node.Identity.Path)
	}
	return label
}

// formatStatsText renders graph statistics as readable text.
func formatStatsText(w io.Writer, stats *abstraction.GraphStats) {
	fmt.Fprintln(w, "Call Graph")
	fmt.Fprintln(w, "==========")
	fmt.Fprintf(w, "Files:        %d\n", stats.Files)
	fmt.Fprintf(w, "Functions:    %d\n", stats.Functions)
	fmt.Fprintf(w, "Edges:        %d (resolved %d, external %d, ambiguous %d)\n",
		stats.Edges, stats.Resolved, stats.External, stats.Ambiguous)
	fmt.Fprintf(w, "Entry points: %d\n", stats.EntryPoints)

	if len(stats.MostCalled) > 0 {
		fmt.Fprintln(w)
		fmt.Fprintln(w, "Most called:")
		for _, mc := range stats.MostCalled {
			fmt.Fprintf(w, "  %3d  %s\n", mc.Callers, mc.Identity.Token())
		}
	}
}

// formatContractText renders one contract as readable text.
func formatContractText(w io.Writer, c *abstraction.Contract) {
	fmt.Fprintf(w, "Function: %s\n", c.Identity.Token())
	fmt.Fprintf(w, "Level:    %s\n", c.Level)
	fmt.Fprintf(w, "Recorded: %s\n", c.RecordedAt.Format("2006-01-02 15:04:05"))
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Expected behavior:")
	for _, line := range strings.Split(c.ExpectedBehavior, "\n") {
		fmt.Fprintf(w, "  %s\n", line)
	}
	if len(c.Preconditions) > 0 {
		fmt.Fprintln(w, "Preconditions:")
		for _, p := range c.Preconditions {
			fmt.Fprintf(w, "  - %s\n", p)
		}
	}
	if len(c.Postconditions) > 0 {
		fmt.Fprintln(w, "Postconditions:")
		for _, p := range c.Postconditions {
			fmt.Fprintf(w, "  - %s\n", p)
		}
	}
}

// formatChangeReportText renders a change report as readable text.
func formatChangeReportText(w io.Writer, report *abstraction.ChangeReport) {
	if len(report.Added)+len(report.Modified)+len(report.Deleted) == 0 {
		fmt.Fprintln(w, "No function changes since last index.")
	}
	printIdentityGroup(w, "Added", report.Added, freshColor)
	printIdentityGroup(w, "Modified", report.Modified, staleColor)
	printIdentityGroup(w, "Deleted", report.Deleted, orphanedColor)

	if len(report.Contracts) > 0 {
		fmt.Fprintln(w)
		fmt.Fprintln(w, "Contracts:")
		tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
		for _, impact := range report.Contracts {
			fmt.Fprintf(tw, "  %s\t%s\t%s\n",
				impact.Contract.Identity.Token(), impact.Contract.Level, statusLabel(impact.Status))
		}
		tw.Flush()
	}
}

func printIdentityGroup(w io.Writer, title string, ids []abstraction.Identity, c *color.Color) {
	if len(ids) == 0 {
		return
	}
	fmt.Fprintf(w, "%s (%d):\n", title, len(ids))
	for _, id := range ids {
		fmt.Fprintf(w, "  %s\n", c.Sprint(id.Token()))
	}
}
