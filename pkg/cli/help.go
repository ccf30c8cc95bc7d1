package cli

import (
	"fmt"
	"io"
	"os"
	"sort"
	"strings"

	"golang.org/x/term"
)

type App struct {
	Name        string
	Synopsis    string
	Description string
	Authors     []string
	Repository  string
	FlagSet     *FlagSet
	Action      func(args []string) error
}

func NewApp(name string) *App {
	return &App{Name: name, FlagSet: NewFlagSet(name)}
}

// Run parses arguments and hands the positional ones to Action. A parse
// error prints the short usage page to stderr.
func (a *App) Run(arguments []string) error {
	help := false
	a.FlagSet.Bool(&help, "help", "h", false, "Display this information")

	if err := a.FlagSet.Parse(arguments); err != nil {
		fmt.Fprintln(os.Stderr, err)
		a.writeUsage(os.Stderr)
		return err
	}
	if help {
		a.writeHelp(os.Stdout, terminalWidth())
		return nil
	}
	if a.Action != nil {
		return a.Action(a.FlagSet.Args())
	}
	return nil
}

func (a *App) writeUsage(w io.Writer) {
	fmt.Fprintf(w, "Usage: %s %s\n", a.Name, a.Synopsis)
	fmt.Fprintf(w, "Run '%s --help' for all available options.\n", a.Name)
}

// row is one line of the help page: a left column, a wrapped usage text
// and an optional right-hand marker.
type row struct{ left, usage, right string }

func (a *App) writeHelp(w io.Writer, width int) {
	var sb strings.Builder
	const indent = "    "

	if len(a.Authors) > 0 {
		fmt.Fprintf(&sb, "\n%sCopyright (c): %s and contributors\n", indent, strings.Join(a.Authors, ", "))
	}
	if a.Repository != "" {
		fmt.Fprintf(&sb, "%sFor more details refer to %s\n", indent, a.Repository)
	}
	if a.Synopsis != "" {
		fmt.Fprintf(&sb, "\n%sSynopsis\n%s%s%s %s\n", indent, indent, indent, a.Name, a.Synopsis)
	}
	if a.Description != "" {
		fmt.Fprintf(&sb, "\n%sDescription\n", indent)
		for _, line := range wrapText(a.Description, width-2*len(indent)) {
			fmt.Fprintf(&sb, "%s%s%s\n", indent, indent, line)
		}
	}

	options := a.optionRows()
	sections := []struct {
		title string
		rows  []row
	}{{"Options", options}}
	for _, g := range a.FlagSet.groups {
		sections = append(sections, struct {
			title string
			rows  []row
		}{g.Name, groupRows(g)})
	}

	leftWidth := 0
	for _, s := range sections {
		for _, r := range s.rows {
			leftWidth = max(leftWidth, len(r.left))
		}
	}

	for _, s := range sections {
		if len(s.rows) == 0 {
			continue
		}
		fmt.Fprintf(&sb, "\n%s%s\n", indent, s.title)
		for _, r := range s.rows {
			writeRow(&sb, indent+indent, r, leftWidth, width)
		}
	}
	fmt.Fprint(w, sb.String())
}

func (a *App) optionRows() []row {
	grouped := make(map[string]bool)
	for _, g := range a.FlagSet.groups {
		for _, e := range g.Entries {
			grouped[e.Prefix+e.Name] = true
			grouped[e.Prefix+"no-"+e.Name] = true
		}
	}

	var rows []row
	for _, flag := range a.FlagSet.flags {
		if grouped[flag.Name] {
			continue
		}
		r := row{left: flagString(flag), usage: flag.Usage}
		if !flag.isBool() && flag.DefValue != "" {
			r.right = "|" + flag.DefValue + "|"
		}
		rows = append(rows, r)
	}
	sort.Slice(rows, func(i, j int) bool { return rows[i].left < rows[j].left })
	return rows
}

func groupRows(g FlagGroup) []row {
	prefix := g.Entries[0].Prefix
	rows := []row{
		{left: fmt.Sprintf("-%s<%s>", prefix, g.GroupType), usage: "Enable a specific " + g.GroupType},
		{left: fmt.Sprintf("-%sno-<%s>", prefix, g.GroupType), usage: "Disable a specific " + g.GroupType},
	}
	entries := append([]FlagGroupEntry(nil), g.Entries...)
	sort.Slice(entries, func(i, j int) bool { return entries[i].Name < entries[j].Name })
	for _, e := range entries {
		mark := "|-|"
		if *e.Enabled && !*e.Disabled {
			mark = "|x|"
		}
		rows = append(rows, row{left: e.Name, usage: e.Usage, right: mark})
	}
	return rows
}

func flagString(flag *Flag) string {
	var sb strings.Builder
	if flag.Shorthand != "" {
		fmt.Fprintf(&sb, "-%s, ", flag.Shorthand)
	}
	fmt.Fprintf(&sb, "--%s", flag.Name)
	if !flag.isBool() && flag.ArgName != "" {
		fmt.Fprintf(&sb, " <%s>", flag.ArgName)
	}
	return sb.String()
}

func writeRow(sb *strings.Builder, indent string, r row, leftWidth, width int) {
	usageWidth := width - len(indent) - leftWidth - 1
	if r.right != "" {
		usageWidth -= len(r.right) + 2
	}
	lines := wrapText(r.usage, max(usageWidth, 10))
	if len(lines) == 0 {
		lines = []string{""}
	}

	if r.right != "" {
		fmt.Fprintf(sb, "%s%-*s %-*s  %s\n", indent, leftWidth, r.left, max(usageWidth, 10), lines[0], r.right)
	} else {
		fmt.Fprintf(sb, "%s%-*s %s\n", indent, leftWidth, r.left, lines[0])
	}
	pad := strings.Repeat(" ", leftWidth+1)
	for _, line := range lines[1:] {
		fmt.Fprintf(sb, "%s%s%s\n", indent, pad, line)
	}
}

func terminalWidth() int {
	width, _, err := term.GetSize(int(os.Stdout.Fd()))
	if err != nil {
		return 80
	}
	return max(width, 20)
}

func wrapText(text string, maxWidth int) []string {
	words := strings.Fields(text)
	if len(words) == 0 {
		return nil
	}
	if maxWidth <= 0 {
		return []string{strings.Join(words, " ")}
	}

	var lines []string
	line := words[0]
	for _, word := range words[1:] {
		if len(line)+1+len(word) > maxWidth {
			lines = append(lines, line)
			line = word
			continue
		}
		line += " " + word
	}
	return append(lines, line)
}
