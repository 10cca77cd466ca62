// Package cli is the command surface: run a script, start the REPL,
// install a package, print the version.
package cli

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/mattn/go-isatty"

	"github.com/HAYASAKA-Ryosuke/sag-sub000/internal/config"
	"github.com/HAYASAKA-Ryosuke/sag-sub000/internal/diagnostics"
	"github.com/HAYASAKA-Ryosuke/sag-sub000/internal/evaluator"
	"github.com/HAYASAKA-Ryosuke/sag-sub000/internal/lexer"
	"github.com/HAYASAKA-Ryosuke/sag-sub000/internal/modules"
	"github.com/HAYASAKA-Ryosuke/sag-sub000/internal/parser"
	"github.com/HAYASAKA-Ryosuke/sag-sub000/internal/pipeline"
	"github.com/HAYASAKA-Ryosuke/sag-sub000/internal/registry"
)

const Version = "0.3.0"

const usage = `usage: sagara [command]

commands:
  run <file.sag>    execute a script (also: sagara <file.sag>)
  repl              start an interactive session
  install <dir>     install a package directory
  version           print the version
`

// Entry dispatches the command line. Returns a process exit code.
func Entry(args []string, stdout, stderr io.Writer) int {
	if len(args) == 0 {
		if isatty.IsTerminal(os.Stdin.Fd()) {
			return runREPL(os.Stdin, stdout, stderr)
		}
		fmt.Fprint(stderr, usage)
		return 2
	}

	switch args[0] {
	case "run":
		if len(args) < 2 {
			fmt.Fprintln(stderr, "run requires a file argument")
			return 2
		}
		return runFile(args[1], stdout, stderr)
	case "repl":
		return runREPL(os.Stdin, stdout, stderr)
	case "install":
		if len(args) < 2 {
			fmt.Fprintln(stderr, "install requires a directory argument")
			return 2
		}
		return runInstall(args[1], stdout, stderr)
	case "version":
		fmt.Fprintf(stdout, "sagara %s\n", Version)
		return 0
	case "help", "-h", "--help":
		fmt.Fprint(stdout, usage)
		return 0
	}

	if strings.HasSuffix(args[0], config.SourceFileExt) {
		return runFile(args[0], stdout, stderr)
	}
	fmt.Fprintf(stderr, "unknown command %q\n", args[0])
	fmt.Fprint(stderr, usage)
	return 2
}

func runFile(path string, stdout, stderr io.Writer) int {
	source, err := os.ReadFile(path)
	if err != nil {
		fmt.Fprintf(stderr, "cannot read %s: %v\n", path, err)
		return 1
	}
	baseDir := filepath.Dir(path)
	cfg, err := config.Load(baseDir)
	if err != nil {
		fmt.Fprintf(stderr, "invalid %s: %v\n", config.ConfigFileName, err)
		return 1
	}

	eval := evaluator.New(stdout)
	eval.Modules = modules.NewLoader(baseDir, cfg, stdout)

	ctx := &pipeline.Context{Source: string(source), Evaluator: eval}
	if err := pipeline.Default().Run(ctx); err != nil {
		reportError(stderr, string(source), err)
		return 1
	}
	return 0
}

// reportError renders parse and runtime failures with the offending
// source line and a caret.
func reportError(stderr io.Writer, source string, err error) {
	switch e := err.(type) {
	case *diagnostics.ParseError:
		fmt.Fprintln(stderr, diagnostics.Render(source, e.Error(), e.Line, e.Column))
	case *diagnostics.RuntimeError:
		fmt.Fprintln(stderr, diagnostics.Render(source, e.Error(), e.Line, e.Column))
		for _, frame := range e.Frames {
			fmt.Fprintf(stderr, "  in %s\n", frame)
		}
	default:
		fmt.Fprintln(stderr, err)
	}
}

// runREPL evaluates one line at a time against a shared environment and
// prints each line's value.
func runREPL(stdin io.Reader, stdout, stderr io.Writer) int {
	cwd, _ := os.Getwd()
	cfg, err := config.Load(cwd)
	if err != nil {
		fmt.Fprintf(stderr, "invalid %s: %v\n", config.ConfigFileName, err)
		return 1
	}

	eval := evaluator.New(stdout)
	eval.Modules = modules.NewLoader(cwd, cfg, stdout)

	interactive := false
	if f, ok := stdin.(*os.File); ok {
		interactive = isatty.IsTerminal(f.Fd())
	}
	if interactive {
		fmt.Fprintf(stdout, "sagara %s\n", Version)
	}

	scanner := bufio.NewScanner(stdin)
	for {
		if interactive {
			fmt.Fprint(stdout, ">> ")
		}
		if !scanner.Scan() {
			break
		}
		line := scanner.Text()
		if strings.TrimSpace(line) == "" {
			continue
		}

		program, err := parser.New(lexer.New(line).Tokenize()).Parse()
		if err != nil {
			reportError(stderr, line, err)
			continue
		}
		result, err := eval.EvalProgram(program)
		if err != nil {
			reportError(stderr, line, err)
			continue
		}
		if result != nil && result.Type() != evaluator.VOID_OBJ {
			fmt.Fprintln(stdout, result.Inspect())
		}
	}
	return 0
}

func runInstall(dir string, stdout, stderr io.Writer) int {
	cwd, _ := os.Getwd()
	cfg, err := config.Load(cwd)
	if err != nil {
		fmt.Fprintf(stderr, "invalid %s: %v\n", config.ConfigFileName, err)
		return 1
	}
	reg, err := registry.Open(cfg.PackagesRoot)
	if err != nil {
		fmt.Fprintf(stderr, "cannot open package registry: %v\n", err)
		return 1
	}
	defer reg.Close()

	rec, err := reg.Install(dir)
	if err != nil {
		fmt.Fprintf(stderr, "install failed: %v\n", err)
		return 1
	}
	fmt.Fprintf(stdout, "installed %s (%s)\n", rec.Name, rec.ID)
	return 0
}
