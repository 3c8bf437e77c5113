//go:build mage

// Package main provides build targets for the sqlschema project using Mage.
//
// Usage:
//
//	mage build          Compile sqlschema binary to bin/
//	mage buildCgo       Compile sqlschema against the cgo SQLite driver
//	mage test           Run unit tests, then integration tests
//	mage testUnit       Run only unit tests (exclude integration)
//	mage testCgo        Run unit tests against the cgo SQLite driver
//	mage testIntegration Run only integration tests (builds first)
//	mage lint           Run golangci-lint
//	mage clean          Remove build artifacts
//	mage install        Install sqlschema to GOPATH/bin
//	mage stats          Print Go lines per package and design doc word counts
package main

import (
	"bufio"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"text/tabwriter"

	"github.com/magefile/mage/mg"
	"github.com/magefile/mage/sh"
)

const (
	binaryName = "sqlschema"
	binaryDir  = "bin"
	cmdDir     = "./cmd/sqlschema"

	// cgoTag selects the mattn/go-sqlite3 driver instead of modernc.org/sqlite.
	cgoTag = "cgo_sqlite"
)

// driverEnv returns the build environment and tags for a SQLite driver.
// The cgo driver needs CGO_ENABLED and the cgo_sqlite tag.
func driverEnv(cgo bool) (map[string]string, []string) {
	if !cgo {
		return nil, nil
	}
	return map[string]string{"CGO_ENABLED": "1"}, []string{"-tags", cgoTag}
}

func buildBinary(cgo bool) error {
	if err := os.MkdirAll(binaryDir, 0o755); err != nil {
		return err
	}
	env, tags := driverEnv(cgo)
	args := append([]string{"build", "-v"}, tags...)
	args = append(args, "-o", filepath.Join(binaryDir, binaryName), cmdDir)
	return sh.RunWithV(env, "go", args...)
}

// unitPackages lists the module packages outside tests/, which holds the
// CLI integration suite that needs a built binary.
func unitPackages() ([]string, error) {
	out, err := sh.Output("go", "list", "./...")
	if err != nil {
		return nil, err
	}
	var pkgs []string
	for _, pkg := range strings.Fields(out) {
		if !strings.Contains(pkg+"/", "/tests/") {
			pkgs = append(pkgs, pkg)
		}
	}
	return pkgs, nil
}

func testUnit(cgo bool) error {
	pkgs, err := unitPackages()
	if err != nil {
		return err
	}
	if len(pkgs) == 0 {
		fmt.Println("No unit test packages found.")
		return nil
	}
	env, tags := driverEnv(cgo)
	args := append(append([]string{"test"}, tags...), pkgs...)
	return sh.RunWithV(env, "go", args...)
}

// Build compiles bin/sqlschema against modernc.org/sqlite.
func Build() error {
	return buildBinary(false)
}

// BuildCgo compiles bin/sqlschema against mattn/go-sqlite3.
func BuildCgo() error {
	return buildBinary(true)
}

// Test runs the unit tests, then the CLI integration tests.
func Test() error {
	mg.SerialDeps(TestUnit, TestIntegration)
	return nil
}

// TestUnit runs every package's tests except tests/integration.
func TestUnit() error {
	return testUnit(false)
}

// TestCgo runs the unit tests with the cgo driver. Driver behaviour
// differences (error codes, pragmas) show up here.
func TestCgo() error {
	return testUnit(true)
}

// TestIntegration builds the binary and runs the CLI suite in tests/.
func TestIntegration() error {
	mg.Deps(Build)
	return sh.RunV("go", "test", "./tests/...")
}

// Lint runs golangci-lint over the module.
func Lint() error {
	return sh.RunV("golangci-lint", "run", "./...")
}

// Clean removes bin/ and the go build cache entries for the module.
func Clean() error {
	if err := os.RemoveAll(binaryDir); err != nil {
		return err
	}
	return sh.RunV("go", "clean")
}

// Install copies the built sqlschema binary into GOPATH/bin.
func Install() error {
	mg.Deps(Build)
	gopath, err := sh.Output("go", "env", "GOPATH")
	if err != nil {
		return err
	}
	return sh.Copy(filepath.Join(gopath, "bin", binaryName), filepath.Join(binaryDir, binaryName))
}

// Stats prints Go lines per package, split into production and test code,
// plus word counts for the design documents.
func Stats() error {
	prod := map[string]int{}
	tests := map[string]int{}

	err := filepath.WalkDir(".", func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if d.IsDir() {
			name := d.Name()
			if path != "." && (strings.HasPrefix(name, ".") || strings.HasPrefix(name, "_") ||
				name == "vendor" || name == binaryDir || name == "magefiles") {
				return filepath.SkipDir
			}
			return nil
		}
		if !strings.HasSuffix(path, ".go") {
			return nil
		}
		count, err := countLines(path)
		if err != nil {
			return err
		}
		pkg := filepath.Dir(path)
		if strings.HasSuffix(path, "_test.go") {
			tests[pkg] += count
		} else {
			prod[pkg] += count
		}
		return nil
	})
	if err != nil {
		return err
	}

	pkgs := make([]string, 0, len(prod)+len(tests))
	for pkg := range prod {
		pkgs = append(pkgs, pkg)
	}
	for pkg := range tests {
		if _, ok := prod[pkg]; !ok {
			pkgs = append(pkgs, pkg)
		}
	}
	sort.Strings(pkgs)

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "PACKAGE\tPROD\tTEST")
	var prodTotal, testTotal int
	for _, pkg := range pkgs {
		fmt.Fprintf(w, "%s\t%d\t%d\n", pkg, prod[pkg], tests[pkg])
		prodTotal += prod[pkg]
		testTotal += tests[pkg]
	}
	fmt.Fprintf(w, "total\t%d\t%d\n", prodTotal, testTotal)
	if err := w.Flush(); err != nil {
		return err
	}

	for _, doc := range []string{"README.md", "DESIGN.md", "SPEC_FULL.md"} {
		words, err := countWords(doc)
		if errors.Is(err, fs.ErrNotExist) {
			continue
		}
		if err != nil {
			return err
		}
		fmt.Printf("Words (%s): %d\n", doc, words)
	}
	return nil
}

func countLines(path string) (int, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, err
	}
	defer f.Close()

	count := 0
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		count++
	}
	return count, scanner.Err()
}

func countWords(path string) (int, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return 0, err
	}
	return len(strings.Fields(string(data))), nil
}
