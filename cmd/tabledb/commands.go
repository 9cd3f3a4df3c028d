package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/maruel/tabledb/internal/catalog"
	"github.com/maruel/tabledb/internal/config"
	"github.com/maruel/tabledb/internal/jsonldb"
	"github.com/maruel/tabledb/internal/storage"
	"github.com/maruel/tabledb/internal/table"
)

// env is what a command runs against.
type env struct {
	db  *storage.DatabaseService
	out io.Writer
	in  io.Reader
	cfg config.Config
}

type command struct {
	name  string
	usage string
	// args is the number of leading arguments. When rest is set, anything after
	// them is joined into one final argument, which may be empty.
	args    int
	rest    bool
	mutates bool
	run     func(ctx context.Context, e *env, args []string) error
}

var commands []command

func init() {
	commands = []command{
		{name: "create", usage: "<table>  create an empty table", args: 1, mutates: true, run: runCreate},
		{name: "tables", usage: "list tables with their row count", run: runTables},
		{name: "push", usage: "<table> <json object>  insert a record", args: 1, rest: true, mutates: true, run: runPush},
		{name: "pull", usage: "<table> [condition]  print matching records as JSON Lines", args: 1, rest: true, run: runPull},
		{name: "count", usage: "<table> [condition]  count matching records", args: 1, rest: true, run: runCount},
		{name: "set", usage: "<table> <field> <value> [condition]  assign a field of matching records", args: 3, rest: true, mutates: true, run: runSet},
		{name: "delete", usage: "<table> [condition]  delete matching records", args: 1, rest: true, mutates: true, run: runDelete},
		{name: "drop", usage: "<table>  remove a table", args: 1, mutates: true, run: runDrop},
		{name: "import", usage: "<table> <file.jsonl>  append records, creating the table if needed", args: 2, mutates: true, run: runImport},
		{name: "export", usage: "<table> <file.jsonl|-> [condition]  write matching records as JSON Lines", args: 2, rest: true, run: runExport},
		{name: "history", usage: "[n]  list the last n commits of the database file", rest: true, run: runHistory},
		{name: "schema", usage: "print the JSON Schema of the database file", run: runSchema},
		{name: "shell", usage: "interactive prompt; one command per line", run: runShell},
		{name: "serve", usage: "serve the HTTP API", run: runServe},
	}
}

func lookup(name string) (command, bool) {
	i := slices.IndexFunc(commands, func(c command) bool { return c.name == name })
	if i < 0 {
		return command{}, false
	}
	return commands[i], true
}

// exec validates the argument count, runs the command and saves after a
// successful mutation.
func (e *env) exec(ctx context.Context, c command, args []string) error {
	if len(args) < c.args || (!c.rest && len(args) > c.args) {
		return fmt.Errorf("usage: %s %s", c.name, c.usage)
	}
	if c.rest {
		args = append(args[:c.args:c.args], strings.Join(args[c.args:], " "))
	}
	if err := c.run(ctx, e, args); err != nil {
		return err
	}
	if c.mutates {
		return e.db.Save(strings.TrimSpace(c.name + " " + strings.Join(args, " ")))
	}
	return nil
}

// splitLine splits a shell line into n words followed by the remainder.
func splitLine(line string, n int) []string {
	var out []string
	s := strings.TrimSpace(line)
	for range n {
		if s == "" {
			break
		}
		i := strings.IndexAny(s, " \t")
		if i < 0 {
			out = append(out, s)
			s = ""
			break
		}
		out = append(out, s[:i])
		s = strings.TrimSpace(s[i:])
	}
	if s != "" {
		out = append(out, s)
	}
	return out
}

// parseValue decodes s as JSON, falling back to the raw string.
func parseValue(s string) any {
	d := json.NewDecoder(strings.NewReader(s))
	d.UseNumber()
	var v any
	if err := d.Decode(&v); err != nil || d.More() {
		return s
	}
	return v
}

func (e *env) printf(format string, args ...any) {
	_, _ = fmt.Fprintf(e.out, format, args...)
}

func runCreate(_ context.Context, e *env, args []string) error {
	t, err := e.db.Catalog().CreateTable(args[0])
	if err != nil {
		return err
	}
	e.printf("created %s\n", t.Name())
	return nil
}

func runTables(_ context.Context, e *env, _ []string) error {
	cat := e.db.Catalog()
	for _, name := range cat.Tables() {
		err := cat.View(name, func(t *table.Table) error {
			fields := make([]string, 0, len(t.Fields()))
			for _, f := range t.Fields() {
				fields = append(fields, f.Name+":"+f.Kind.String())
			}
			e.printf("%s\t%d\t%s\n", t.Name(), t.Len(), strings.Join(fields, ","))
			return nil
		})
		if err != nil {
			return err
		}
	}
	return nil
}

func runPush(_ context.Context, e *env, args []string) error {
	d := json.NewDecoder(strings.NewReader(args[1]))
	d.UseNumber()
	var rec map[string]any
	if err := d.Decode(&rec); err != nil || rec == nil {
		return fmt.Errorf("expected a JSON object, got %q", args[1])
	}
	id, err := e.db.Catalog().Push(args[0], rec)
	if err != nil {
		return err
	}
	e.printf("%d\n", id)
	return nil
}

func runPull(_ context.Context, e *env, args []string) error {
	recs, err := e.db.Catalog().Pull(args[0], args[1])
	if err != nil {
		return err
	}
	_, err = jsonldb.Encode(e.out, slices.Values(recs))
	return err
}

func runCount(_ context.Context, e *env, args []string) error {
	n, err := e.db.Catalog().Count(args[0], args[1])
	if err != nil {
		return err
	}
	e.printf("%d\n", n)
	return nil
}

func runSet(_ context.Context, e *env, args []string) error {
	n, err := e.db.Catalog().Set(args[0], args[3], args[1], parseValue(args[2]))
	if err != nil {
		return err
	}
	e.printf("%d\n", n)
	return nil
}

func runDelete(_ context.Context, e *env, args []string) error {
	n, err := e.db.Catalog().Delete(args[0], args[1])
	if err != nil {
		return err
	}
	e.printf("%d\n", n)
	return nil
}

func runDrop(_ context.Context, e *env, args []string) error {
	n, err := e.db.Catalog().DropTable(args[0])
	if err != nil {
		return err
	}
	e.printf("dropped %s (%d rows)\n", args[0], n)
	return nil
}

func runImport(_ context.Context, e *env, args []string) error {
	// Read everything first so a malformed file leaves the table untouched.
	recs, err := jsonldb.ReadFile(args[1])
	if err != nil {
		return err
	}
	cat := e.db.Catalog()
	name := args[0]
	if _, err := cat.Resolve(name); errors.Is(err, catalog.ErrTableNotFound) {
		if _, err := cat.CreateTable(name); err != nil {
			return err
		}
	}
	for i, rec := range recs {
		if _, err := cat.Push(name, rec); err != nil {
			return fmt.Errorf("%s: record %d: %w", args[1], i+1, err)
		}
	}
	e.printf("imported %d records\n", len(recs))
	return nil
}

func runHistory(_ context.Context, e *env, args []string) error {
	h := e.db.FileStore().History()
	if h == nil {
		return errors.New("history is disabled; use -history or set history: true")
	}
	n := 0
	if args[0] != "" {
		var err error
		if n, err = strconv.Atoi(args[0]); err != nil || n < 0 {
			return fmt.Errorf("expected a count, got %q", args[0])
		}
	}
	commits, err := h.Log(n)
	if err != nil {
		return err
	}
	for _, c := range commits {
		e.printf("%s %s %s\n", c.Hash[:12], c.When.Format(time.RFC3339), c.Message)
	}
	return nil
}

func runExport(_ context.Context, e *env, args []string) error {
	recs, err := e.db.Catalog().Pull(args[0], args[2])
	if err != nil {
		return err
	}
	if args[1] == "-" {
		_, err = jsonldb.Encode(e.out, slices.Values(recs))
		return err
	}
	n, err := jsonldb.WriteFile(args[1], slices.Values(recs))
	if err != nil {
		return err
	}
	e.printf("exported %d records\n", n)
	return nil
}

func runSchema(_ context.Context, e *env, _ []string) error {
	data, err := storage.Schema()
	if err != nil {
		return err
	}
	_, err = io.Copy(e.out, bytes.NewReader(append(data, '\n')))
	return err
}
