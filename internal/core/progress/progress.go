// Package progress streams line-oriented pack status to the terminal.
package progress

import (
	"fmt"
	"io"
	"sync"

	"github.com/charmbracelet/log"
	"github.com/dustin/go-humanize"
	"github.com/fatih/color"
)

// Options configures a Reporter.
type Options struct {
	Out     io.Writer
	Err     io.Writer
	Verbose bool
	NoColor bool
}

// Reporter writes progress lines. It is safe for concurrent use; each call
// writes exactly one line.
type Reporter struct {
	mu  sync.Mutex
	out io.Writer
	err io.Writer
	log *log.Logger

	stage   func(a ...interface{}) string
	id      func(a ...interface{}) string
	ok      func(a ...interface{}) string
	file    func(a ...interface{}) string
	skip    func(a ...interface{}) string
	failed  func(a ...interface{}) string
	summary func(a ...interface{}) string
}

// New builds a Reporter. Nil writers discard output.
func New(opts Options) *Reporter {
	if opts.Out == nil {
		opts.Out = io.Discard
	}
	if opts.Err == nil {
		opts.Err = io.Discard
	}
	level := log.WarnLevel
	if opts.Verbose {
		level = log.DebugLevel
	}
	logger := log.NewWithOptions(opts.Err, log.Options{
		Level:  level,
		Prefix: "xlo",
	})

	mk := func(attrs ...color.Attribute) func(a ...interface{}) string {
		c := color.New(attrs...)
		if opts.NoColor {
			c.DisableColor()
		}
		return c.SprintFunc()
	}

	return &Reporter{
		out:     opts.Out,
		err:     opts.Err,
		log:     logger,
		stage:   mk(color.FgMagenta),
		id:      mk(color.FgMagenta, color.Bold),
		ok:      mk(color.FgGreen),
		file:    mk(color.FgBlue),
		skip:    mk(color.FgCyan),
		failed:  mk(color.FgRed),
		summary: mk(color.FgYellow),
	}
}

// Discard returns a Reporter that writes nowhere.
func Discard() *Reporter {
	return New(Options{NoColor: true})
}

// Logger exposes the diagnostics logger.
func (r *Reporter) Logger() *log.Logger {
	return r.log
}

func (r *Reporter) println(w io.Writer, line string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, _ = fmt.Fprintln(w, line)
}

// Stage announces the start of a pipeline stage.
func (r *Reporter) Stage(msg string) {
	r.println(r.out, r.stage(msg+" ..."))
}

// Object announces an object and the number of remote files it lists.
func (r *Reporter) Object(id string, files int) {
	r.println(r.out, fmt.Sprintf("Object #id: %s with #%s files", r.id(id), r.id(files)))
}

// Saved reports a completed download.
func (r *Reporter) Saved(name string, size int64) {
	r.println(r.out, fmt.Sprintf("%s %s saved (%s)", r.ok("OK"), r.file(name), humanize.Bytes(uint64(max(size, 0)))))
}

// Skipped reports an output left untouched because it already exists.
func (r *Reporter) Skipped(what, name string) {
	r.println(r.out, fmt.Sprintf("Skipping %s: %s", what, r.skip(name)))
}

// Done reports a completed build step for an object.
func (r *Reporter) Done(what, name string) {
	r.println(r.out, fmt.Sprintf("%s %s: %s", r.ok("OK"), what, r.file(name)))
}

// Failed reports a failed unit of work on the error stream.
func (r *Reporter) Failed(err error) {
	r.println(r.err, r.failed(err.Error()))
}

// Summary prints the closing line of a run.
func (r *Reporter) Summary(objects, failures int) {
	line := fmt.Sprintf("Packed %d object(s)", objects)
	if failures > 0 {
		line += fmt.Sprintf(", %d failure(s)", failures)
	}
	r.println(r.out, r.summary(line))
}

// Debugf logs a diagnostic line, shown with --verbose.
func (r *Reporter) Debugf(format string, args ...interface{}) {
	r.log.Debugf(format, args...)
}

// Warnf logs a recoverable problem.
func (r *Reporter) Warnf(format string, args ...interface{}) {
	r.log.Warnf(format, args...)
}
