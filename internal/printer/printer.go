// Package printer writes styled, human facing command output.
package printer

import (
	"context"
	"fmt"
	"io"
	"os"
	"sync"

	"github.com/charmbracelet/lipgloss"

	"github.com/colonyops/dmctl/internal/core/logstream"
	"github.com/colonyops/dmctl/internal/core/styles"
)

type ctxKey struct{}

// Printer writes to an output and an error stream. Safe for concurrent use.
type Printer struct {
	mu  sync.Mutex
	out io.Writer
	err io.Writer
}

// New creates a printer.
func New(out, err io.Writer) *Printer {
	return &Printer{out: out, err: err}
}

// NewContext returns a copy of ctx carrying p.
func NewContext(ctx context.Context, p *Printer) context.Context {
	return context.WithValue(ctx, ctxKey{}, p)
}

// Ctx returns the printer stored in ctx, or one bound to stdout and stderr.
func Ctx(ctx context.Context) *Printer {
	if p, ok := ctx.Value(ctxKey{}).(*Printer); ok && p != nil {
		return p
	}
	return New(os.Stdout, os.Stderr)
}

// Out returns the output stream.
func (p *Printer) Out() io.Writer { return p.out }

func (p *Printer) line(w io.Writer, style lipgloss.Style, icon, msg string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if icon != "" {
		_, _ = fmt.Fprintln(w, style.Render(icon)+" "+msg)
		return
	}
	_, _ = fmt.Fprintln(w, style.Render(msg))
}

func (p *Printer) Printf(format string, args ...any) {
	p.line(p.out, styles.TextStyle, "", fmt.Sprintf(format, args...))
}

func (p *Printer) Infof(format string, args ...any) {
	p.line(p.out, styles.InfoStyle, "•", fmt.Sprintf(format, args...))
}

func (p *Printer) Success(msg string) {
	p.line(p.out, styles.SuccessStyle, "✓", msg)
}

func (p *Printer) Successf(format string, args ...any) {
	p.Success(fmt.Sprintf(format, args...))
}

func (p *Printer) Warnf(format string, args ...any) {
	p.line(p.err, styles.WarningStyle, "!", fmt.Sprintf(format, args...))
}

func (p *Printer) Errorf(format string, args ...any) {
	p.line(p.err, styles.ErrorStyle, "✗", fmt.Sprintf(format, args...))
}

// Muted prints a dimmed line, for placeholders such as an empty result.
func (p *Printer) Muted(msg string) {
	p.line(p.out, styles.EmptyStyle, "", msg)
}

// Section prints a header followed by a divider.
func (p *Printer) Section(title string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	_, _ = fmt.Fprintln(p.out, styles.CommandHeaderStyle.Render(title))
	_, _ = fmt.Fprintln(p.out, styles.DividerStyle.Render("────────────────────────────────"))
}

// Status prints a status line. Errors go to the error stream.
func (p *Printer) Status(msg string, isError bool) {
	if msg == "" {
		return
	}
	if isError {
		p.Errorf("%s", msg)
		return
	}
	p.Infof("%s", msg)
}

// Log prints one backend log line colored by its severity.
func (p *Printer) Log(ev logstream.Event) {
	style := styles.TextStyle
	switch logstream.Classify(ev.Text) {
	case logstream.SeverityError:
		style = styles.ErrorStyle
	case logstream.SeverityWarning:
		style = styles.WarningStyle
	case logstream.SeverityInfo:
		style = styles.InfoStyle
	}
	p.line(p.out, style, "", ev.Text)
}
