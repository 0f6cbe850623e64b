package cmd

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/abdul-hamid-achik/postspec/packages/catalog"
	"github.com/abdul-hamid-achik/postspec/packages/core/runner"
)

func collectFiles(args []string) ([]string, error) {
	var files []string

	for _, arg := range args {
		info, err := os.Stat(arg)
		if err != nil {
			return nil, fmt.Errorf("cannot access %s: %w", arg, err)
		}

		if info.IsDir() {
			err := filepath.Walk(arg, func(path string, info os.FileInfo, err error) error {
				if err != nil {
					return err
				}
				if !info.IsDir() && isCatalogFile(path) {
					files = append(files, path)
				}
				return nil
			})
			if err != nil {
				return nil, err
			}
		} else if isCatalogFile(arg) {
			files = append(files, arg)
		}
	}

	return files, nil
}

func isCatalogFile(path string) bool {
	ext := filepath.Ext(path)
	return ext == ".yaml" || ext == ".yml"
}

// loadSuites returns the built-in suite when no paths are given, otherwise
// one suite per catalog file. A non-empty baseURI rebases catalog suites.
func loadSuites(args []string, baseURI string) ([]*runner.Suite, error) {
	if len(args) == 0 {
		return []*runner.Suite{catalog.Posts(baseURI)}, nil
	}

	files, err := collectFiles(args)
	if err != nil {
		return nil, withExitCode(ExitUsageError, err)
	}
	if len(files) == 0 {
		return nil, withExitCode(ExitUsageError, fmt.Errorf("no .yaml or .yml catalogs found"))
	}

	suites := make([]*runner.Suite, 0, len(files))
	var errs []error
	for _, file := range files {
		suite, err := catalog.Load(file)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		if baseURI != "" {
			suite = suite.Rebase(baseURI)
		}
		suites = append(suites, suite)
	}
	if len(errs) > 0 {
		return nil, withExitCode(ExitParseError, errors.Join(errs...))
	}
	return suites, nil
}
