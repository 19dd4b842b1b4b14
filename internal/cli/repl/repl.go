// Package repl runs an interactive command loop over one open
// connection, in the manner of redis-cli.
package repl

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/yndnr/kvwire-go/internal/core/domain"
	"github.com/yndnr/kvwire-go/internal/telemetry/logger"
	"github.com/yndnr/kvwire-go/pkg/resp"
)

// Prompt is printed before every line.
const Prompt = "kvwire> "

// Executor sends one command. *client.Client satisfies it.
type Executor interface {
	Do(ctx context.Context, args ...string) (resp.Reply, error)
}

// REPL is the read-eval-print loop.
type REPL struct {
	exec      Executor
	input     io.Reader
	output    io.Writer
	prompt    string
	completer *Completer
	history   *History
}

// Option configures a REPL.
type Option func(*REPL)

// WithIO sets input and output.
func WithIO(in io.Reader, out io.Writer) Option {
	return func(r *REPL) {
		r.input = in
		r.output = out
	}
}

// WithHistory sets the history store.
func WithHistory(h *History) Option {
	return func(r *REPL) {
		if h != nil {
			r.history = h
		}
	}
}

// WithPrompt replaces the prompt, e.g. with the endpoint.
func WithPrompt(p string) Option {
	return func(r *REPL) {
		r.prompt = p
	}
}

// New creates a REPL sending commands through exec.
func New(exec Executor, opts ...Option) *REPL {
	r := &REPL{
		exec:      exec,
		input:     strings.NewReader(""),
		output:    io.Discard,
		prompt:    Prompt,
		completer: NewCompleter(),
		history:   NewHistory(""),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// errQuit ends the loop.
var errQuit = errors.New("quit")

// Run reads lines until EOF, quit or ctx is done. Server error replies
// and malformed lines are printed and the loop goes on. Any other error,
// such as a broken connection, ends it.
func (r *REPL) Run(ctx context.Context) error {
	scanner := bufio.NewScanner(r.input)
	scanner.Buffer(make([]byte, 0, 4096), resp.MaxBulkLen)

	for {
		if ctx.Err() != nil {
			return nil
		}
		fmt.Fprint(r.output, r.prompt)
		if !scanner.Scan() {
			fmt.Fprintln(r.output)
			return scanner.Err()
		}

		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		r.history.Add(logger.RedactCommandLine(line))

		err := r.execute(ctx, line)
		var le *lineError
		switch {
		case err == nil:
		case errors.Is(err, errQuit):
			return nil
		case errors.As(err, &le):
			fmt.Fprintf(r.output, "(error) %s\n", le.msg)
		default:
			return err
		}
	}
}

func (r *REPL) execute(ctx context.Context, line string) error {
	args, err := SplitArgs(line)
	if err != nil {
		return err
	}

	switch strings.ToLower(args[0]) {
	case "exit", "quit":
		return errQuit
	case "help":
		prefix := ""
		if len(args) > 1 {
			prefix = args[1]
		}
		usage := r.completer.Usage(prefix)
		if len(usage) == 0 {
			return &lineError{msg: "no command matches " + strings.ToUpper(prefix)}
		}
		for _, u := range usage {
			fmt.Fprintln(r.output, u)
		}
		return nil
	case "history":
		for i := r.history.Len() - 1; i >= 0; i-- {
			fmt.Fprintf(r.output, "%4d  %s\n", r.history.Len()-i, r.history.Get(i))
		}
		return nil
	}

	reply, err := r.exec.Do(ctx, args...)
	if err != nil && !errors.Is(err, domain.ErrServerReply) {
		return err
	}
	fmt.Fprintln(r.output, reply.Text())
	return nil
}

// lineError is a problem with the typed line itself; the loop goes on.
type lineError struct{ msg string }

func (e *lineError) Error() string { return e.msg }

// SplitArgs splits a command line into arguments. Double quotes allow
// \n, \t, \" and \\ escapes; single quotes are literal.
func SplitArgs(line string) ([]string, error) {
	var (
		args    []string
		cur     strings.Builder
		inArg   bool
		quote   rune
		escaped bool
	)

	for _, c := range line {
		switch {
		case escaped:
			switch c {
			case 'n':
				cur.WriteRune('\n')
			case 't':
				cur.WriteRune('\t')
			default:
				cur.WriteRune(c)
			}
			escaped = false
		case quote == '"' && c == '\\':
			escaped = true
		case quote != 0 && c == quote:
			quote = 0
		case quote != 0:
			cur.WriteRune(c)
		case c == '"' || c == '\'':
			quote = c
			inArg = true
		case c == ' ' || c == '\t':
			if inArg {
				args = append(args, cur.String())
				cur.Reset()
				inArg = false
			}
		default:
			cur.WriteRune(c)
			inArg = true
		}
	}

	if quote != 0 || escaped {
		return nil, &lineError{msg: "unbalanced quotes"}
	}
	if inArg {
		args = append(args, cur.String())
	}
	if len(args) == 0 {
		return nil, &lineError{msg: "empty command"}
	}
	return args, nil
}
