package main

import (
	"fmt"
	"go/parser"
	"go/token"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"golang.org/x/mod/modfile"
)

type violation struct {
	File   string
	Line   int
	Import string
	Rule   string
}

// layerRule lists the module-local packages a layer may import on top of the
// standard library.
type layerRule struct {
	name    string
	allowed []string
}

var layerRules = map[string]layerRule{
	"domain":      {name: "domain", allowed: []string{"domain"}},
	"ports":       {name: "ports", allowed: []string{"domain", "ports"}},
	"application": {name: "application", allowed: []string{"application", "domain", "ports"}},
}

type checker struct {
	modulePath string
}

func main() {
	modulePath, err := readModulePath("go.mod")
	if err != nil {
		fmt.Fprintf(os.Stderr, "read module path: %v\n", err)
		os.Exit(2)
	}

	c := checker{modulePath: modulePath}
	violations := c.collectViolations("contexts")
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
		fmt.Printf("- %s:%d imports %q (%s)\n", v.File, v.Line, v.Import, v.Rule)
	}
	os.Exit(1)
}

func readModulePath(goModPath string) (string, error) {
	data, err := os.ReadFile(goModPath)
	if err != nil {
		return "", err
	}
	path := modfile.ModulePath(data)
	if path == "" {
		return "", fmt.Errorf("%s has no module directive", goModPath)
	}
	return path, nil
}

func (c checker) collectViolations(root string) []violation {
	var violations []violation

	_ = filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil || d.IsDir() || !strings.HasSuffix(path, ".go") || strings.HasSuffix(path, "_test.go") {
			return nil
		}

		normalized := filepath.ToSlash(path)
		parts := strings.Split(normalized, "/")
		if len(parts) < 4 || parts[0] != "contexts" {
			return nil
		}

		modulePrefix := fmt.Sprintf("%s/contexts/%s/%s", c.modulePath, parts[1], parts[2])
		violations = append(violations, c.validateFile(path, normalized, parts[3], modulePrefix)...)
		return nil
	})

	return violations
}

func (c checker) validateFile(path string, normalizedPath string, layer string, modulePrefix string) []violation {
	fset := token.NewFileSet()
	file, err := parser.ParseFile(fset, path, nil, parser.ImportsOnly)
	if err != nil {
		return []violation{{File: normalizedPath, Line: 1, Rule: "file must parse"}}
	}

	var violations []violation
	for _, imp := range file.Imports {
		importPath := strings.Trim(imp.Path.Value, "\"")
		line := fset.Position(imp.Pos()).Line
		report := func(rule string) {
			violations = append(violations, violation{File: normalizedPath, Line: line, Import: importPath, Rule: rule})
		}

		if hasPrefix(importPath, c.modulePath+"/contexts") && !hasPrefix(importPath, modulePrefix) {
			report("cross-module imports are forbidden")
		}

		rule, ok := layerRules[layer]
		if !ok {
			continue
		}
		if strings.Contains(importPath, "/adapters/") {
			report(rule.name + " must not import adapters")
		}
		if hasPrefix(importPath, c.modulePath+"/internal") {
			report(rule.name + " must not import runtime infrastructure")
		}
		if !c.isStdlib(importPath) && !isAllowed(importPath, modulePrefix, rule.allowed) {
			report(rule.name + " import is outside explicit allowlist")
		}
	}
	return violations
}

func hasPrefix(path string, prefix string) bool {
	return path == prefix || strings.HasPrefix(path, prefix+"/")
}

func isAllowed(importPath string, modulePrefix string, layers []string) bool {
	for _, layer := range layers {
		if hasPrefix(importPath, modulePrefix+"/"+layer) {
			return true
		}
	}
	return false
}

func (c checker) isStdlib(importPath string) bool {
	if hasPrefix(importPath, c.modulePath) {
		return false
	}
	first := importPath
	if idx := strings.Index(first, "/"); idx != -1 {
		first = first[:idx]
	}
	return !strings.Contains(first, ".")
}
