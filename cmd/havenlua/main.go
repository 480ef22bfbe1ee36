// Command havenlua is the stand-alone driver: it owns none of the
// execution semantics (all of that lives in package vm/values/haven),
// only argument parsing, chunk loading and the interactive prompt.
//
// Since the lexer/parser/code generator are out of scope for this
// module, a "chunk" here is always a YAML bytecode dump understood by
// values.Undump (see haven.State.Load) rather than Lua source text —
// -e's argument and every script/library path are read and handed to
// Load verbatim.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"strings"

	"github.com/chzyer/readline"
	"github.com/mattn/go-isatty"
	"github.com/urfave/cli/v3"

	"github.com/wudi/havenlua/haven"
	"github.com/wudi/havenlua/values"
)

const (
	version = "0.1.0"

	defaultPrompt  = "> "
	defaultPrompt2 = ">> "
)

// chunkAction records one -e/-l occurrence in the order it appeared on
// the command line; real Lua interleaves them, so a single ordered
// slice rather than two separate ones is needed to replay them.
type chunkAction struct {
	kind  byte // 'e' = execute string, 'l' = load library file
	value string
}

func main() {
	var (
		actions     []chunkAction
		interactive bool
		showVersion bool
	)

	cmd := &cli.Command{
		Name:    "havenlua",
		Usage:   "an embeddable Lua-like bytecode VM",
		Version: version,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "e",
				Aliases: []string{"execute"},
				Local:   true,
				Usage:   "execute chunk `STAT`",
				Action: func(ctx context.Context, cmd *cli.Command, s string) error {
					actions = append(actions, chunkAction{kind: 'e', value: s})
					return nil
				},
			},
			&cli.StringFlag{
				Name:    "l",
				Aliases: []string{"library"},
				Local:   true,
				Usage:   "load and run the library chunk at `PATH` before the main script",
				Action: func(ctx context.Context, cmd *cli.Command, s string) error {
					actions = append(actions, chunkAction{kind: 'l', value: s})
					return nil
				},
			},
			&cli.BoolFlag{
				Name:    "i",
				Aliases: []string{"interactive"},
				Local:   true,
				Usage:   "enter interactive mode after running the script",
				Action: func(ctx context.Context, cmd *cli.Command, b bool) error {
					interactive = b
					return nil
				},
			},
			&cli.BoolFlag{
				Name:    "v",
				Aliases: []string{"version"},
				Local:   true,
				Usage:   "print version information (exits unless a script, -e or -l is also given)",
				Action: func(ctx context.Context, cmd *cli.Command, b bool) error {
					showVersion = b
					return nil
				},
			},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			s := haven.New()

			if showVersion {
				fmt.Printf("havenlua %s (state %s)\n", version, s.ID())
				if cmd.NArg() == 0 && len(actions) == 0 {
					return nil
				}
			}

			log.Printf("havenlua %s: state %s starting", version, s.ID())
			defer log.Printf("havenlua: state %s done", s.ID())

			setupArgTable(s, cmd.Args().Slice())

			if init, ok := os.LookupEnv("LUA_INIT"); ok {
				if err := runInit(s, init); err != nil {
					return fmt.Errorf("LUA_INIT: %w", err)
				}
			}

			for _, a := range actions {
				var err error
				switch a.kind {
				case 'e':
					err = runChunk(s, []byte(a.value), "=(command line)")
				case 'l':
					err = runFile(s, a.value)
				}
				if err != nil {
					return err
				}
			}

			scriptArgs := cmd.Args().Slice()
			ranScript := false
			if len(scriptArgs) > 0 {
				script := scriptArgs[0]
				var err error
				if script == "-" {
					err = runReader(s, os.Stdin, "=stdin")
				} else {
					err = runFile(s, script)
				}
				ranScript = true
				if err != nil {
					return err
				}
			}

			wantRepl := interactive || (!ranScript && len(actions) == 0 && isatty.IsTerminal(os.Stdin.Fd()))
			if wantRepl {
				return runREPL(s)
			}
			return nil
		},
	}

	if err := cmd.Run(context.Background(), os.Args); err != nil {
		fmt.Fprintln(os.Stderr, "havenlua:", err)
		os.Exit(1)
	}
}

// setupArgTable populates the global `arg` table the way lua.c does:
// arg[0] is the script name (if any), arg[1..] are the remaining
// command-line arguments.
func setupArgTable(s *haven.State, rest []string) {
	t := s.NewTable()
	tbl := t.AsTable()
	for i, a := range rest {
		_ = tbl.Set(values.Number(float64(i)), s.NewString(a))
	}
	s.Globals().Set(s.NewString("arg"), t)
}

func runInit(s *haven.State, init string) error {
	if strings.HasPrefix(init, "@") {
		return runFile(s, init[1:])
	}
	return runChunk(s, []byte(init), "=LUA_INIT")
}

func runFile(s *haven.State, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("cannot open %s: %w", path, err)
	}
	return runChunk(s, data, path)
}

func runReader(s *haven.State, r io.Reader, chunkName string) error {
	data, err := io.ReadAll(r)
	if err != nil {
		return fmt.Errorf("reading %s: %w", chunkName, err)
	}
	return runChunk(s, data, chunkName)
}

func runChunk(s *haven.State, data []byte, chunkName string) error {
	fn, err := s.Load(data, chunkName)
	if err != nil {
		return err
	}
	_, err = s.Call(fn)
	return err
}

// runREPL drives the interactive prompt: lines are buffered (a YAML
// chunk fragment, per this package's doc comment) while needsMoreInput
// judges the buffer unterminated, prompting for a continuation line;
// otherwise the buffer is handed to Load and any load error is
// reported at once.
func runREPL(s *haven.State) error {
	prompt := globalStringOr(s, "_PROMPT", defaultPrompt)

	rl, err := readline.New(prompt)
	if err != nil {
		return fmt.Errorf("havenlua: readline: %w", err)
	}
	defer rl.Close()

	log.Printf("havenlua: state %s entering interactive mode", s.ID())

	var buf strings.Builder
	for {
		p := globalStringOr(s, "_PROMPT", defaultPrompt)
		if buf.Len() > 0 {
			p = globalStringOr(s, "_PROMPT2", defaultPrompt2)
		}
		rl.SetPrompt(p)

		line, err := rl.Readline()
		if errors.Is(err, readline.ErrInterrupt) {
			buf.Reset()
			continue
		}
		if errors.Is(err, io.EOF) {
			fmt.Println()
			return nil
		}
		if err != nil {
			return err
		}

		if buf.Len() > 0 {
			buf.WriteByte('\n')
		}
		buf.WriteString(line)

		if needsMoreInput(buf.String()) {
			continue
		}

		chunk := buf.String()
		buf.Reset()
		if strings.TrimSpace(chunk) == "" {
			continue
		}
		executeREPLLine(s, chunk)
	}
}

func globalStringOr(s *haven.State, name, fallback string) string {
	v := s.Globals().Get(s.NewString(name))
	if v.IsString() {
		return v.AsString().Bytes()
	}
	return fallback
}

// executeREPLLine loads and runs one buffered line, printing its
// first result (if any) the way an interactive top-level echoes an
// expression's value, and reporting any error without killing the
// session.
func executeREPLLine(s *haven.State, chunk string) {
	fn, err := s.Load([]byte(chunk), "=stdin")
	if err != nil {
		fmt.Fprintf(os.Stderr, "havenlua: %v\n", err)
		return
	}
	results, err := s.Call(fn)
	if err != nil {
		fmt.Fprintf(os.Stderr, "havenlua: %v\n", err)
		return
	}
	for _, r := range results {
		fmt.Println(formatResult(r))
	}
}

func formatResult(v values.Value) string {
	switch {
	case v.IsNil():
		return "nil"
	case v.IsBoolean():
		if v.AsBool() {
			return "true"
		}
		return "false"
	case v.IsNumber():
		return values.NumberToString(v.AsNumber())
	case v.IsString():
		return v.AsString().Bytes()
	default:
		return fmt.Sprintf("%s: %p", values.TypeName(v), values.HeapObject(v))
	}
}

// needsMoreInput heuristically decides whether chunk looks like an
// unterminated block: an odd number of unescaped quotes, or more
// opening than closing brace/paren/bracket, asks for a continuation
// line rather than attempting (and failing) to load it as-is.
func needsMoreInput(chunk string) bool {
	depth := 0
	inSingle, inDouble := false, false
	escaped := false

	for _, r := range chunk {
		if escaped {
			escaped = false
			continue
		}
		switch {
		case inSingle:
			if r == '\\' {
				escaped = true
			} else if r == '\'' {
				inSingle = false
			}
		case inDouble:
			if r == '\\' {
				escaped = true
			} else if r == '"' {
				inDouble = false
			}
		case r == '\'':
			inSingle = true
		case r == '"':
			inDouble = true
		case r == '{' || r == '(' || r == '[':
			depth++
		case r == '}' || r == ')' || r == ']':
			depth--
		}
	}
	return depth > 0 || inSingle || inDouble
}
