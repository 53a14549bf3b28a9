// Package console renders the human-facing run narrative: banner, section
// headings, status-tagged lines, and the closing summary. Structured
// diagnostics go to slog on stderr; this package is what a person watches.
package console

import (
	"fmt"
	"io"
	"sort"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
)

const lineWidth = 63

var (
	infoTag    = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("39")).Render("[INFO]")
	successTag = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("42")).Render("[SUCCESS]")
	warningTag = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("214")).Render("[WARNING]")
	errorTag   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("196")).Render("[ERROR]")

	titleStyle = lipgloss.NewStyle().Bold(true)
	dimStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("245"))
	passMark   = lipgloss.NewStyle().Foreground(lipgloss.Color("42")).Render("✓")
	failMark   = lipgloss.NewStyle().Foreground(lipgloss.Color("196")).Render("✗")
)

// Printer writes the styled run narrative to one destination.
type Printer struct {
	w io.Writer
}

// New creates a Printer writing to w.
func New(w io.Writer) *Printer {
	return &Printer{w: w}
}

// Banner prints the opening header for a run.
func (p *Printer) Banner(title string) {
	border := strings.Repeat("═", lineWidth)
	fmt.Fprintln(p.w, border)
	fmt.Fprintln(p.w, titleStyle.Render(center(title, lineWidth)))
	fmt.Fprintln(p.w, border)
}

// Section prints a heading for the next workflow stage.
func (p *Printer) Section(title string) {
	fmt.Fprintf(p.w, "\n%s %s\n", dimStyle.Render("═══"), titleStyle.Render(title))
}

// Info prints one informational line.
func (p *Printer) Info(format string, args ...any) {
	p.tagged(infoTag, format, args...)
}

// Success prints one success line.
func (p *Printer) Success(format string, args ...any) {
	p.tagged(successTag, format, args...)
}

// Warning prints one warning line.
func (p *Printer) Warning(format string, args ...any) {
	p.tagged(warningTag, format, args...)
}

// Error prints one error line.
func (p *Printer) Error(format string, args ...any) {
	p.tagged(errorTag, format, args...)
}

func (p *Printer) tagged(tag, format string, args ...any) {
	fmt.Fprintf(p.w, "%s %s\n", tag, fmt.Sprintf(format, args...))
}

// Detail prints an indented secondary line under the previous one.
func (p *Printer) Detail(format string, args ...any) {
	fmt.Fprintf(p.w, "    %s\n", dimStyle.Render(fmt.Sprintf(format, args...)))
}

// Stage prints one line of the closing stage summary.
func (p *Printer) Stage(ok bool, name string, d time.Duration, errMsg string) {
	mark := passMark
	if !ok {
		mark = failMark
	}
	fmt.Fprintf(p.w, "  %s %s (%dms)\n", mark, name, d.Milliseconds())
	if errMsg != "" {
		fmt.Fprintf(p.w, "      Error: %s\n", errMsg)
	}
}

// Counts prints a sorted per-key tally with a total line, used for the
// post-run message summary.
func (p *Printer) Counts(title string, counts map[string]int) {
	fmt.Fprintf(p.w, "%s\n", titleStyle.Render(title))
	if len(counts) == 0 {
		fmt.Fprintf(p.w, "  %s\n", dimStyle.Render("(none)"))
		return
	}

	keys := make([]string, 0, len(counts))
	width := 0
	for k := range counts {
		keys = append(keys, k)
		if len(k) > width {
			width = len(k)
		}
	}
	sort.Strings(keys)

	total := 0
	for _, k := range keys {
		fmt.Fprintf(p.w, "  %-*s %d\n", width+2, k, counts[k])
		total += counts[k]
	}
	fmt.Fprintln(p.w, dimStyle.Render(strings.Repeat("─", lineWidth)))
	fmt.Fprintf(p.w, "  %-*s %d\n", width+2, "total", total)
}

// Rule prints a horizontal separator.
func (p *Printer) Rule() {
	fmt.Fprintln(p.w, dimStyle.Render(strings.Repeat("─", lineWidth)))
}

// Blank prints an empty line.
func (p *Printer) Blank() {
	fmt.Fprintln(p.w)
}

func center(s string, width int) string {
	if len(s) >= width {
		return s
	}
	pad := (width - len(s)) / 2
	return strings.Repeat(" ", pad) + s
}
