package main

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/mattn/go-isatty"
)

func runShell(ctx context.Context, e *env, _ []string) error {
	if e.cfg.Watch {
		if err := e.db.Watch(ctx); err != nil {
			return fmt.Errorf("failed to watch %s: %w", e.db.FileStore().Path(), err)
		}
	}
	interactive := false
	if f, ok := e.in.(*os.File); ok {
		interactive = isatty.IsTerminal(f.Fd())
	}
	lines := make(chan string)
	readErr := make(chan error, 1)
	go func() {
		defer close(lines)
		s := bufio.NewScanner(e.in)
		for s.Scan() {
			select {
			case lines <- s.Text():
			case <-ctx.Done():
				return
			}
		}
		readErr <- s.Err()
	}()
	for {
		if interactive {
			e.printf("> ")
		}
		var line string
		select {
		case <-ctx.Done():
			return ctx.Err()
		case l, ok := <-lines:
			if !ok {
				select {
				case err := <-readErr:
					return err
				default:
					return nil
				}
			}
			line = l
		}
		if done := e.shellLine(ctx, line); done {
			return nil
		}
	}
}

// shellLine runs one line of input. It returns true when the shell must exit.
func (e *env) shellLine(ctx context.Context, line string) bool {
	line = strings.TrimSpace(line)
	if line == "" || strings.HasPrefix(line, "#") {
		return false
	}
	name, rest, _ := strings.Cut(line, " ")
	switch name {
	case "exit", "quit":
		return true
	case "help":
		for _, c := range commands {
			if c.name != "shell" && c.name != "serve" {
				e.printf("  %-10s %s\n", c.name, c.usage)
			}
		}
		e.printf("  %-10s %s\n", "exit", "leave the shell")
		return false
	case "shell", "serve":
		e.printf("error: %s is not available in the shell\n", name)
		return false
	}
	c, ok := lookup(name)
	if !ok {
		e.printf("error: unknown command %q; try help\n", name)
		return false
	}
	var args []string
	if c.rest {
		args = splitLine(rest, c.args)
	} else {
		args = strings.Fields(rest)
	}
	if err := e.exec(ctx, c, args); err != nil {
		e.printf("error: %v\n", err)
	}
	return false
}
