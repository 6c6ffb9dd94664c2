package diag

import (
	"fmt"
	"io"
	"os"
	"sort"
	"strings"
)

// Formatter prints diagnostics with source snippets, Rust style.
type Formatter struct {
	out         io.Writer
	sourceCache map[string]string
}

// NewFormatter creates a formatter writing to stderr.
func NewFormatter() *Formatter {
	return NewFormatterTo(os.Stderr)
}

// NewFormatterTo creates a formatter writing to out.
func NewFormatterTo(out io.Writer) *Formatter {
	return &Formatter{
		out:         out,
		sourceCache: make(map[string]string),
	}
}

// AddSource registers in-memory source text for a filename, so snippets can
// be shown for input that never touched the disk (REPL lines, editor buffers).
func (f *Formatter) AddSource(filename, src string) {
	f.sourceCache[filename] = src
}

// LoadSource loads source code for a file (cached).
func (f *Formatter) LoadSource(filename string) (string, error) {
	if filename == "" {
		return "", nil
	}
	if src, ok := f.sourceCache[filename]; ok {
		return src, nil
	}
	data, err := os.ReadFile(filename)
	if err != nil {
		return "", err
	}
	src := string(data)
	f.sourceCache[filename] = src
	return src, nil
}

// FormatAll formats every diagnostic in order.
func (f *Formatter) FormatAll(list []Diagnostic) {
	for i, d := range list {
		if i > 0 {
			fmt.Fprintln(f.out)
		}
		f.Format(d)
	}
}

// Format prints one diagnostic.
func (f *Formatter) Format(d Diagnostic) {
	spans := f.collectSpans(d)
	if len(spans) == 0 {
		f.formatSimple(d)
		return
	}

	spansByFile := make(map[string][]LabeledSpan)
	var files []string
	for _, span := range spans {
		filename := span.Span.Filename
		if filename == "" {
			filename = "<unknown>"
		}
		if _, seen := spansByFile[filename]; !seen {
			files = append(files, filename)
		}
		spansByFile[filename] = append(spansByFile[filename], span)
	}

	f.printHeader(d)
	for _, filename := range files {
		src, err := f.LoadSource(filename)
		if err != nil || src == "" {
			fmt.Fprintf(f.out, "  --> %s\n", spansByFile[filename][0].Span)
			continue
		}
		f.printFileSpans(filename, src, spansByFile[filename])
	}
	f.printHelp(d)
}

func (f *Formatter) collectSpans(d Diagnostic) []LabeledSpan {
	if len(d.LabeledSpans) > 0 {
		return d.LabeledSpans
	}
	if d.Span.IsValid() {
		return []LabeledSpan{{Span: d.Span, Style: "primary"}}
	}
	return nil
}

func (f *Formatter) printHeader(d Diagnostic) {
	if d.Code != "" {
		fmt.Fprintf(f.out, "%s[%s]: %s\n", d.severity(), d.Code, d.Message)
	} else {
		fmt.Fprintf(f.out, "%s: %s\n", d.severity(), d.Message)
	}
}

func (f *Formatter) printFileSpans(filename string, src string, spans []LabeledSpan) {
	sort.Slice(spans, func(i, j int) bool {
		if spans[i].Span.Line != spans[j].Span.Line {
			return spans[i].Span.Line < spans[j].Span.Line
		}
		return spans[i].Span.Column < spans[j].Span.Column
	})

	lines := strings.Split(src, "\n")
	spansByLine := make(map[int][]LabeledSpan)
	for _, span := range spans {
		if line := span.Span.Line; line > 0 && line <= len(lines) {
			spansByLine[line] = append(spansByLine[line], span)
		}
	}
	if len(spansByLine) == 0 {
		return
	}

	first := spans[0].Span.Line
	last := spans[len(spans)-1].Span.Line
	contextStart := max(1, first-1)
	contextEnd := min(len(lines), last+1)
	width := len(fmt.Sprintf("%d", contextEnd))
	gutter := strings.Repeat(" ", width)

	fmt.Fprintf(f.out, "  --> %s:%d:%d\n", filename, spans[0].Span.Line, spans[0].Span.Column)
	fmt.Fprintf(f.out, " %s |\n", gutter)
	for lineNum := contextStart; lineNum <= contextEnd; lineNum++ {
		content := lines[lineNum-1]
		fmt.Fprintf(f.out, " %*d | %s\n", width, lineNum, content)
		if lineSpans := spansByLine[lineNum]; len(lineSpans) > 0 {
			f.printUnderlines(gutter, content, lineSpans)
		}
	}
	fmt.Fprintf(f.out, " %s |\n", gutter)
}

func (f *Formatter) printUnderlines(gutter string, content string, spans []LabeledSpan) {
	width := len([]rune(content))
	underline := []rune(strings.Repeat(" ", width+1))
	mark := func(span Span, r rune) {
		start := max(0, span.Column-1)
		end := min(len(underline), start+max(1, span.End-span.Start))
		for i := start; i < end; i++ {
			if underline[i] == ' ' {
				underline[i] = r
			}
		}
	}
	var labels []string
	for _, span := range spans {
		if span.Style == "primary" {
			mark(span.Span, '^')
		}
	}
	for _, span := range spans {
		if span.Style == "secondary" {
			mark(span.Span, '~')
		}
		if span.Label != "" {
			labels = append(labels, span.Label)
		}
	}

	line := strings.TrimRight(string(underline), " ")
	if line == "" {
		return
	}
	fmt.Fprintf(f.out, " %s | %s", gutter, line)
	if len(labels) > 0 {
		fmt.Fprintf(f.out, " %s", labels[0])
	}
	fmt.Fprintln(f.out)
	for _, label := range labels[min(1, len(labels)):] {
		fmt.Fprintf(f.out, " %s | %s%s\n", gutter, strings.Repeat(" ", len(line)+1), label)
	}
}

func (f *Formatter) printHelp(d Diagnostic) {
	for _, note := range d.Notes {
		fmt.Fprintf(f.out, "  = note: %s\n", note)
	}
	if d.Help != "" {
		fmt.Fprintf(f.out, "help: %s\n", d.Help)
	}
}

func (f *Formatter) formatSimple(d Diagnostic) {
	f.printHeader(d)
	if d.Span.Filename != "" || d.Span.IsValid() {
		fmt.Fprintf(f.out, "  --> %s\n", d.Span)
	}
	f.printHelp(d)
}
