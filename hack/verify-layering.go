//go:build ignore

/*
Copyright 2025 The Kubernetes Authors.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

// verify-layering checks that every package under pkg/sorter only imports
// sorter packages from strictly lower layers. Shared packages under pkg/common
// are allowed everywhere.
package main

import (
	"fmt"
	"go/parser"
	"go/token"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/spf13/pflag"
)

const (
	sorterPath = "pkg/sorter"
	repoModule = "github.com/cchristou3/ChristmasConcurrencyConundrumSimulation"
)

// layers maps each sorter package to its layer. A package may import packages of a lower layer only.
var layers = map[string]int{
	"types":    0,
	"queue":    1,
	"config":   1,
	"metrics":  1,
	"conveyor": 2,
	"bin":      3,
	"feeder":   3,
	"router":   4,
	"machine":  5,
	"topology": 6,
	"report":   6,
}

var (
	root     string
	withTest bool
)

func init() {
	pflag.StringVar(&root, "root", ".", "Repository root")
	pflag.BoolVar(&withTest, "tests", true, "Also check _test.go files")
}

func main() {
	pflag.Parse()

	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

type violation struct {
	filePath   string
	importPath string
	reason     string
}

func (v violation) String() string {
	return fmt.Sprintf("%s: imports %s (%s)", v.filePath, v.importPath, v.reason)
}

func run() error {
	var violations []violation
	base := filepath.Join(root, sorterPath)

	fmt.Printf("Validating layering in %s\n\n", base)
	err := filepath.Walk(base, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if info.IsDir() || !strings.HasSuffix(path, ".go") {
			return nil
		}
		if !withTest && strings.HasSuffix(path, "_test.go") {
			return nil
		}

		rel, err := filepath.Rel(base, path)
		if err != nil {
			return err
		}
		pkg := strings.Split(filepath.ToSlash(rel), "/")[0]
		own, known := layers[pkg]
		if !known {
			violations = append(violations, violation{filePath: path, reason: "package has no layer"})
			return nil
		}

		node, err := parser.ParseFile(token.NewFileSet(), path, nil, parser.ImportsOnly)
		if err != nil {
			return fmt.Errorf("failed to parse %s: %w", path, err)
		}
		for _, imp := range node.Imports {
			importPath := strings.Trim(imp.Path.Value, `"`)
			prefix := repoModule + "/" + sorterPath + "/"
			if !strings.HasPrefix(importPath, prefix) {
				continue
			}
			dep := strings.Split(strings.TrimPrefix(importPath, prefix), "/")[0]
			if dep == pkg {
				continue
			}
			if layer, ok := layers[dep]; !ok || layer >= own {
				violations = append(violations, violation{
					filePath:   path,
					importPath: importPath,
					reason:     fmt.Sprintf("%s is layer %d, %s is layer %d", pkg, own, dep, layer),
				})
			}
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to walk directory: %w", err)
	}

	if len(violations) > 0 {
		slices.SortFunc(violations, func(a, b violation) int { return strings.Compare(a.String(), b.String()) })
		fmt.Printf("[ERROR] Found %d layering violations:\n", len(violations))
		for _, v := range violations {
			fmt.Println("  " + v.String())
		}
		return fmt.Errorf("layering validation failed: %d violations found", len(violations))
	}
	fmt.Printf("[PASS] All imports in %s respect the layering.\n", base)
	return nil
}
