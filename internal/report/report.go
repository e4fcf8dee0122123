// Package report prints patch progress for humans and forwards progress
// events to an optional sink (the terminal UI).
//
// A Reporter travels through a run in the context:
//
//	ctx = report.WithReporter(ctx, r)
//	report.FromContext(ctx).Pending("Patching file: %s ...", path)
//
// FromContext never returns nil; without a reporter it returns one that
// discards everything.
package report

import (
	"context"
	"fmt"
	"io"

	"github.com/fatih/color"
)

const (
	markPending = "⌛"
	markSuccess = "✅"
	markFailure = "❌"
)

var (
	pendingColor = color.New(color.FgCyan)
	successColor = color.New(color.FgGreen)
	failureColor = color.New(color.FgRed, color.Bold)
)

// Options configures a Reporter.
type Options struct {
	// Out receives status lines. Nil discards them.
	Out io.Writer
	// Err receives failure details. Nil discards them.
	Err io.Writer
	// Quiet drops pending and success lines; failures are always printed.
	Quiet bool
	Sink  ProgressSink
}

// Reporter writes emoji-prefixed status lines.
type Reporter struct {
	out   io.Writer
	err   io.Writer
	quiet bool
	sink  ProgressSink
}

// New builds a Reporter from opts.
func New(opts Options) *Reporter {
	r := &Reporter{out: opts.Out, err: opts.Err, quiet: opts.Quiet, sink: opts.Sink}
	if r.out == nil {
		r.out = io.Discard
	}
	if r.err == nil {
		r.err = io.Discard
	}
	return r
}

// Discard returns a Reporter that prints nothing and has no sink.
func Discard() *Reporter { return New(Options{}) }

type reporterKey struct{}

// WithReporter attaches r to ctx.
func WithReporter(ctx context.Context, r *Reporter) context.Context {
	return context.WithValue(ctx, reporterKey{}, r)
}

// FromContext returns the Reporter attached to ctx, or a discarding one.
func FromContext(ctx context.Context) *Reporter {
	if ctx != nil {
		if r, ok := ctx.Value(reporterKey{}).(*Reporter); ok && r != nil {
			return r
		}
	}
	return Discard()
}

// Pending prints an in-progress line.
func (r *Reporter) Pending(format string, args ...any) {
	if r.quiet {
		return
	}
	_, _ = pendingColor.Fprintf(r.out, "%s %s\n", markPending, fmt.Sprintf(format, args...))
}

// Success prints a completion line.
func (r *Reporter) Success(format string, args ...any) {
	if r.quiet {
		return
	}
	_, _ = successColor.Fprintf(r.out, "%s %s\n", markSuccess, fmt.Sprintf(format, args...))
}

// Failure prints a failure line and, when err is non-nil, its text on the
// error stream.
func (r *Reporter) Failure(err error, format string, args ...any) {
	_, _ = failureColor.Fprintf(r.out, "%s %s\n", markFailure, fmt.Sprintf(format, args...))
	if err != nil {
		_, _ = fmt.Fprintln(r.err, err)
	}
}

// Print writes raw text, such as a diff, unless quiet.
func (r *Reporter) Print(text string) {
	if r.quiet || text == "" {
		return
	}
	_, _ = io.WriteString(r.out, text)
}

// Emit forwards evt to the sink, if any.
func (r *Reporter) Emit(evt Event) {
	if r.sink == nil {
		return
	}
	r.sink.OnEvent(evt)
}
