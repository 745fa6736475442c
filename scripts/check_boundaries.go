package main

import (
	"flag"
	"fmt"
	"go/parser"
	"go/token"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

const moduleRoot = "societyhub"

type violation struct {
	File   string
	Line   int
	Import string
	Rule   string
}

// layerRule constrains what a single layer of a service may import.
type layerRule struct {
	name string
	// allowed lists service-relative package prefixes, e.g. "domain".
	allowed []string
	// shared lists module-wide prefixes, e.g. "contracts".
	shared []string
	// stdlibDenied lists standard library packages the layer must not use.
	stdlibDenied []string
	// thirdParty allows imports outside the standard library.
	thirdParty bool
}

var layerRules = map[string]layerRule{
	"domain": {
		name:         "domain",
		allowed:      []string{"domain"},
		stdlibDenied: []string{"log", "log/slog", "net/http", "database/sql", "os"},
	},
	"ports": {
		name:         "ports",
		allowed:      []string{"domain"},
		stdlibDenied: []string{"net/http", "database/sql"},
	},
	"application": {
		name:         "application",
		allowed:      []string{"application", "domain", "ports"},
		shared:       []string{"contracts"},
		stdlibDenied: []string{"net/http", "database/sql", "os"},
	},
	"transport": {
		name:         "transport",
		allowed:      []string{"transport"},
		stdlibDenied: []string{"database/sql"},
	},
	"adapters": {
		name:       "adapters",
		allowed:    []string{"adapters", "application", "domain", "ports", "transport"},
		shared:     []string{"contracts"},
		thirdParty: true,
	},
}

func main() {
	root := flag.String("root", "contexts", "directory holding <context>/<service> trees")
	flag.Parse()

	violations := collectViolations(*root)
	if len(violations) == 0 {
		fmt.Println("boundary checks passed")
		return
	}

	sort.Slice(violations, func(i, j int) bool {
		if violations[i].File == violations[j].File {
			if violations[i].Line == violations[j].Line {
				return violations[i].Import < violations[j].Import
			}
			return violations[i].Line < violations[j].Line
		}
		return violations[i].File < violations[j].File
	})

	fmt.Println("boundary violations found:")
	for _, v := range violations {
		if v.Import == "" {
			fmt.Printf("- %s:%d (%s)\n", v.File, v.Line, v.Rule)
			continue
		}
		fmt.Printf("- %s:%d imports %q (%s)\n", v.File, v.Line, v.Import, v.Rule)
	}
	os.Exit(1)
}

func collectViolations(root string) []violation {
	var violations []violation

	_ = filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil || d.IsDir() || !strings.HasSuffix(path, ".go") || strings.HasSuffix(path, "_test.go") {
			return nil
		}

		rel, relErr := filepath.Rel(root, path)
		if relErr != nil {
			return nil
		}
		parts := strings.Split(filepath.ToSlash(rel), "/")
		if len(parts) < 3 {
			return nil
		}
		servicePrefix := fmt.Sprintf("%s/contexts/%s/%s", moduleRoot, parts[0], parts[1])
		layer := ""
		if len(parts) > 3 {
			layer = parts[2]
		}

		violations = append(violations, validateFile(path, layer, servicePrefix)...)
		return nil
	})

	return violations
}

func validateFile(path string, layer string, servicePrefix string) []violation {
	normalized := filepath.ToSlash(path)

	fset := token.NewFileSet()
	file, err := parser.ParseFile(fset, path, nil, parser.ImportsOnly)
	if err != nil {
		return []violation{{File: normalized, Line: 1, Rule: "file must parse"}}
	}

	rule, scoped := layerRules[layer]
	var violations []violation
	for _, imp := range file.Imports {
		importPath := strings.Trim(imp.Path.Value, "\"")
		line := fset.Position(imp.Pos()).Line
		report := func(reason string) {
			violations = append(violations, violation{File: normalized, Line: line, Import: importPath, Rule: reason})
		}

		if hasPrefix(importPath, moduleRoot+"/contexts") && !hasPrefix(importPath, servicePrefix) {
			report("cross-service imports are forbidden")
			continue
		}
		if !scoped {
			continue
		}
		for _, reason := range rule.check(importPath, servicePrefix) {
			report(reason)
		}
	}
	return violations
}

func (r layerRule) check(importPath string, servicePrefix string) []string {
	if isStdlib(importPath) {
		for _, denied := range r.stdlibDenied {
			if importPath == denied {
				return []string{r.name + " must not depend on " + denied}
			}
		}
		return nil
	}

	if !hasPrefix(importPath, moduleRoot) {
		if r.thirdParty {
			return nil
		}
		return []string{r.name + " must not import third-party packages"}
	}

	if hasPrefix(importPath, moduleRoot+"/internal") {
		return []string{r.name + " must not import runtime infrastructure"}
	}

	for _, allowed := range r.allowed {
		if hasPrefix(importPath, servicePrefix+"/"+allowed) {
			return nil
		}
	}
	for _, shared := range r.shared {
		if hasPrefix(importPath, moduleRoot+"/"+shared) {
			return nil
		}
	}
	return []string{r.name + " import is outside explicit allowlist"}
}

func hasPrefix(path string, prefix string) bool {
	return path == prefix || strings.HasPrefix(path, prefix+"/")
}

func isStdlib(importPath string) bool {
	if hasPrefix(importPath, moduleRoot) {
		return false
	}
	first := importPath
	if idx := strings.Index(first, "/"); idx != -1 {
		first = first[:idx]
	}
	return !strings.Contains(first, ".")
}
