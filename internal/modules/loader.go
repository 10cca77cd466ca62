// Package modules resolves `import ... from Mod` against the filesystem:
// the importing script's directory first, then configured module paths,
// then the installed packages root. Loaded modules are cached per path.
package modules

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/google/uuid"

	"github.com/HAYASAKA-Ryosuke/sag-sub000/internal/config"
	"github.com/HAYASAKA-Ryosuke/sag-sub000/internal/evaluator"
	"github.com/HAYASAKA-Ryosuke/sag-sub000/internal/lexer"
	"github.com/HAYASAKA-Ryosuke/sag-sub000/internal/parser"
)

type cachedModule struct {
	ID  string // instance id, for tracing
	Env *evaluator.Environment
}

type Loader struct {
	BaseDir     string
	SearchPaths []string
	Out         io.Writer

	cache   map[string]*cachedModule
	loading map[string]bool
}

func NewLoader(baseDir string, cfg *config.Config, out io.Writer) *Loader {
	l := &Loader{
		BaseDir: baseDir,
		Out:     out,
		cache:   make(map[string]*cachedModule),
		loading: make(map[string]bool),
	}
	if cfg != nil {
		l.SearchPaths = append(l.SearchPaths, cfg.ModulePaths...)
		if cfg.PackagesRoot != "" {
			l.SearchPaths = append(l.SearchPaths, cfg.PackagesRoot)
		}
	}
	return l
}

// Load implements evaluator.ModuleResolver.
func (l *Loader) Load(name string) (*evaluator.Environment, error) {
	path, err := l.resolve(name)
	if err != nil {
		return nil, err
	}
	if cached, ok := l.cache[path]; ok {
		return cached.Env, nil
	}
	if l.loading[path] {
		return nil, fmt.Errorf("import cycle detected for module %s", name)
	}
	l.loading[path] = true
	defer delete(l.loading, path)

	source, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("cannot read module %s: %w", name, err)
	}

	program, err := parser.New(lexer.New(string(source)).Tokenize()).Parse()
	if err != nil {
		return nil, fmt.Errorf("module %s: %w", name, err)
	}

	eval := evaluator.New(l.Out)
	eval.Modules = l
	if _, err := eval.EvalProgram(program); err != nil {
		return nil, fmt.Errorf("module %s: %w", name, err)
	}

	l.cache[path] = &cachedModule{ID: uuid.NewString(), Env: eval.Env()}
	return eval.Env(), nil
}

func (l *Loader) resolve(name string) (string, error) {
	file := name + config.SourceFileExt
	candidates := []string{filepath.Join(l.BaseDir, file)}
	for _, dir := range l.SearchPaths {
		candidates = append(candidates, filepath.Join(dir, file), filepath.Join(dir, name, file))
	}
	for _, candidate := range candidates {
		if info, err := os.Stat(candidate); err == nil && !info.IsDir() {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("module %s not found", name)
}
