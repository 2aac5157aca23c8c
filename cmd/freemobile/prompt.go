package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"
	"sync"
)

// stdinPrompter asks for the SMS code on the terminal.
//
// One goroutine owns the reader for the prompter's lifetime and hands lines
// over a channel, so a cancelled Code call never leaves a second reader on
// the buffer. A line typed after a cancelled call goes to the next call.
type stdinPrompter struct {
	in    io.Reader
	out   io.Writer
	once  sync.Once
	lines chan readResult
	mu    sync.Mutex
}

func newStdinPrompter(in io.Reader, out io.Writer) *stdinPrompter {
	return &stdinPrompter{in: in, out: out, lines: make(chan readResult)}
}

type readResult struct {
	line string
	err  error
}

// readLines runs until the input fails or ends. The channel is closed after
// the last result.
func (p *stdinPrompter) readLines() {
	defer close(p.lines)
	br := bufio.NewReader(p.in)
	for {
		line, err := br.ReadString('\n')
		p.lines <- readResult{line: line, err: err}
		if err != nil {
			return
		}
	}
}

// Code prints a prompt and waits for one line, or for ctx to be done.
func (p *stdinPrompter) Code(ctx context.Context) (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.once.Do(func() { go p.readLines() })

	fmt.Fprint(p.out, "Free Mobile sent a code by SMS. Enter it: ")

	select {
	case <-ctx.Done():
		return "", ctx.Err()
	case r, ok := <-p.lines:
		if !ok {
			return "", fmt.Errorf("failed to read SMS code: %w", io.EOF)
		}
		line := strings.TrimSpace(r.line)
		if r.err != nil && (r.err != io.EOF || line == "") {
			return "", fmt.Errorf("failed to read SMS code: %w", r.err)
		}
		return line, nil
	}
}
