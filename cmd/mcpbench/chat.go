package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/effective-security/mcpbench/assistants"
	"github.com/effective-security/mcpbench/chatmodel"
	"github.com/effective-security/mcpbench/store"
	"github.com/effective-security/xlog"
	"github.com/redis/go-redis/v9"
	"golang.org/x/term"
)

const (
	replPrompt = ">>> "
	replBanner = "Entering interactive REPL (type quit or exit to stop)"
)

// ChatCmd runs the interactive REPL.
type ChatCmd struct {
	History  bool   `name:"history" help:"Keep the conversation history across turns"`
	RedisURL string `name:"redis-url" env:"REDIS_URL" help:"Keep the history in Redis, e.g. redis://localhost:6379/0"`
	Verbose  bool   `name:"verbose" help:"Print model and tool calls to stderr"`
}

func (c *ChatCmd) Run(g *Globals) error {
	ctx := g.context()
	agent, client, err := g.Agent(ctx)
	if err != nil {
		return err
	}
	defer client.Close()

	var opts []assistants.Option
	if c.Verbose {
		opts = append(opts, assistants.WithCallback(assistants.NewPrinterCallback(os.Stderr)))
	}
	if c.History || c.RedisURL != "" {
		st, closer, err := c.store()
		if err != nil {
			return err
		}
		defer closer()
		ctx = chatmodel.WithChatID(ctx, chatmodel.NewChatID())
		opts = append(opts, assistants.WithStore(st))
	}

	lr, restore, err := newLineReader(os.Stdin, os.Stdout)
	if err != nil {
		return err
	}
	defer restore()

	return repl(ctx, lr, lr, agent, opts...)
}

func (c *ChatCmd) store() (store.MessageStore, func(), error) {
	if c.RedisURL == "" {
		return store.NewMemoryStore(), func() {}, nil
	}
	ropts, err := redis.ParseURL(c.RedisURL)
	if err != nil {
		return nil, nil, errors.Wrap(err, "invalid Redis URL")
	}
	rc := redis.NewClient(ropts)
	return store.NewRedisStore(rc, "mcpbench"), func() { _ = rc.Close() }, nil
}

// lineReader reads the user input of the REPL and writes the answers.
type lineReader interface {
	io.Writer
	ReadLine() (string, error)
}

// newLineReader returns a line editor when in is a terminal,
// or a plain prompting reader otherwise.
func newLineReader(in *os.File, out io.Writer) (lineReader, func(), error) {
	fd := int(in.Fd())
	if !term.IsTerminal(fd) {
		return newPromptReader(in, out), func() {}, nil
	}

	state, err := term.MakeRaw(fd)
	if err != nil {
		return nil, nil, errors.Wrap(err, "failed to set raw terminal mode")
	}
	t := term.NewTerminal(struct {
		io.Reader
		io.Writer
	}{in, out}, replPrompt)
	if w, h, err := term.GetSize(fd); err == nil {
		_ = t.SetSize(w, h)
	}
	return t, func() { _ = term.Restore(fd, state) }, nil
}

// promptReader prints the prompt and reads lines from a non-terminal input.
type promptReader struct {
	io.Writer
	scanner *bufio.Scanner
}

func newPromptReader(in io.Reader, out io.Writer) *promptReader {
	return &promptReader{Writer: out, scanner: bufio.NewScanner(in)}
}

func (r *promptReader) ReadLine() (string, error) {
	_, _ = io.WriteString(r.Writer, replPrompt)
	if !r.scanner.Scan() {
		if err := r.scanner.Err(); err != nil {
			return "", errors.WithStack(err)
		}
		return "", io.EOF
	}
	return r.scanner.Text(), nil
}

// repl answers user lines until quit, exit or the end of input.
// Agent failures are printed and the loop continues.
func repl(ctx context.Context, lr lineReader, out io.Writer, agent assistants.IAssistant, opts ...assistants.Option) error {
	fmt.Fprintln(out, replBanner)
	fmt.Fprintln(out, strings.Repeat("-", 50))

	for {
		line, err := lr.ReadLine()
		if err != nil {
			if errors.Is(err, io.EOF) {
				fmt.Fprintln(out, "\nGoodbye!")
				return nil
			}
			return err
		}

		q := strings.TrimSpace(line)
		switch strings.ToLower(q) {
		case "":
			continue
		case "quit", "exit":
			fmt.Fprintln(out, "Goodbye!")
			return nil
		}

		res, err := agent.Run(ctx, q, opts...)
		if err != nil {
			if ctx.Err() != nil {
				return errors.WithStack(ctx.Err())
			}
			logger.ContextKV(ctx, xlog.ERROR, "reason", "run", "err", err.Error())
			fmt.Fprintf(out, "Error: %s\n", err.Error())
			continue
		}

		content := res.Content()
		if content == "" {
			content = "[no content returned]"
		}
		fmt.Fprintln(out, content)
	}
}
