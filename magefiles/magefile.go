//go:build mage

// Package main contains Mage build targets for advice-engine developer tooling.
package main

import (
	"bytes"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/magefile/mage/mg"
	"github.com/magefile/mage/sh"
)

// projectDirs lists the working directories the pipeline expects.
var projectDirs = []string{
	"transcripts",
	"data",
	"knowledge/index",
}

// Init creates the project directory structure for the pipeline.
func Init() error {
	for _, dir := range projectDirs {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("creating %s: %w", dir, err)
		}
		fmt.Println("  ", dir)
	}
	fmt.Println("Project directories initialized.")
	return nil
}

const (
	binDir  = "bin"
	binName = "advice-engine"
	cmdPkg  = "./cmd/advice-engine"
)

// binPath is where Build leaves the CLI.
var binPath = filepath.Join(binDir, binName)

// Build compiles the CLI binary into bin/.
func Build() error {
	if err := os.MkdirAll(binDir, 0o755); err != nil {
		return fmt.Errorf("creating %s: %w", binDir, err)
	}
	if err := sh.RunV("go", "build", "-o", binPath, cmdPkg); err != nil {
		return fmt.Errorf("go build: %w", err)
	}
	fmt.Printf("Built %s\n", binPath)
	return nil
}

// Test runs the unit tests with the race detector.
func Test() error {
	return sh.RunV("go", "test", "-race", "./...")
}

// Lint runs go vet over every package.
func Lint() error {
	return sh.RunV("go", "vet", "./...")
}

// Ingest builds the CLI and processes every transcript in transcripts/.
func Ingest() error {
	mg.Deps(Init, Build)
	return sh.RunV(binPath, "ingest")
}

// IngestSample builds the CLI and processes the three sample transcripts.
func IngestSample() error {
	mg.Deps(Init, Build)
	return sh.RunV(binPath, "ingest", "--sample")
}

// Mirror copies the advice index into the SQLite mirror.
func Mirror() error {
	mg.Deps(Build)
	return sh.RunV(binPath, "knowledge", "store")
}

// Topics prints the per-topic record counts of the current index.
func Topics() error {
	mg.Deps(Build)
	return sh.RunV(binPath, "topics")
}

// Stats prints Go production and test line counts plus the size of the
// transcript corpus and the advice index.
func Stats() error {
	prodLines, testLines, err := countGoLines(".")
	if err != nil {
		return err
	}
	transcripts, err := filepath.Glob(filepath.Join("transcripts", "*.txt"))
	if err != nil {
		return err
	}

	fmt.Printf("Lines of code (Go, production): %d\n", prodLines)
	fmt.Printf("Lines of code (Go, tests):      %d\n", testLines)
	fmt.Printf("Transcripts:                    %d\n", len(transcripts))
	if info, err := os.Stat(filepath.Join("data", "advice-index.json")); err == nil {
		fmt.Printf("Advice index:                   %d bytes\n", info.Size())
	}
	return nil
}

// countGoLines counts non-blank lines in Go files below root, split into
// production and test code. Directories starting with "_" or "." are skipped,
// matching the go tool.
func countGoLines(root string) (prod, test int, err error) {
	err = filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			name := d.Name()
			if path != root && (strings.HasPrefix(name, "_") || strings.HasPrefix(name, ".")) {
				return filepath.SkipDir
			}
			return nil
		}
		if filepath.Ext(path) != ".go" {
			return nil
		}
		data, err := os.ReadFile(path)
		if err != nil {
			return fmt.Errorf("reading %s: %w", path, err)
		}
		n := 0
		for _, line := range bytes.Split(data, []byte("\n")) {
			if len(bytes.TrimSpace(line)) > 0 {
				n++
			}
		}
		if strings.HasSuffix(path, "_test.go") {
			test += n
		} else {
			prod += n
		}
		return nil
	})
	return prod, test, err
}
