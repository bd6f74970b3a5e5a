// Command staticlint bundles the analyzers run over the party planner sources:
// standard passes from the Go toolchain, third-party analyzers, the project
// analyzers and a configurable subset of staticcheck, all under one
// multichecker.Main invocation.
//
// The staticcheck subset is read from config.json next to the binary:
//
//	{"Staticcheck": ["SA1000", "SA4006"]}
//
// Without the file every SA check is enabled.
package main

import (
	// Standard analyzers from the Go toolchain.
	"golang.org/x/tools/go/analysis/passes/copylock"
	"golang.org/x/tools/go/analysis/passes/errorsas"
	"golang.org/x/tools/go/analysis/passes/httpresponse"
	"golang.org/x/tools/go/analysis/passes/loopclosure"
	"golang.org/x/tools/go/analysis/passes/lostcancel"
	"golang.org/x/tools/go/analysis/passes/printf"
	"golang.org/x/tools/go/analysis/passes/structtag"
	"golang.org/x/tools/go/analysis/passes/unmarshal"
	"golang.org/x/tools/go/analysis/passes/unreachable"

	// Third-party analyzers.
	"github.com/gordonklaus/ineffassign/pkg/ineffassign"
	"github.com/gostaticanalysis/nilerr"

	// Project analyzers.
	"github.com/patric-chuzhbe/partyplanner/cmd/staticlint/noosexit"
	"github.com/patric-chuzhbe/partyplanner/cmd/staticlint/sqlsprintf"

	"golang.org/x/tools/go/analysis"
	"golang.org/x/tools/go/analysis/multichecker"
	"honnef.co/go/tools/staticcheck"

	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
)

// Config is the name of the JSON configuration file that lists enabled staticcheck analyzers.
const Config = `config.json`

// ConfigData describes the structure of the configuration file.
// The Staticcheck field contains the names of enabled staticcheck analyzers, e.g., "SA1000", "SA4010".
type ConfigData struct {
	Staticcheck []string
}

func loadConfig() (*ConfigData, error) {
	appfile, err := os.Executable()
	if err != nil {
		return nil, err
	}

	data, err := os.ReadFile(filepath.Join(filepath.Dir(appfile), Config))
	if errors.Is(err, os.ErrNotExist) {
		return &ConfigData{}, nil
	}
	if err != nil {
		return nil, err
	}

	var cfg ConfigData
	if err = json.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func staticcheckAnalyzers(enabled []string) []*analysis.Analyzer {
	checks := make(map[string]bool)
	for _, v := range enabled {
		checks[v] = true
	}

	var result []*analysis.Analyzer
	for _, v := range staticcheck.Analyzers {
		name := v.Analyzer.Name
		if checks[name] || (len(checks) == 0 && strings.HasPrefix(name, "SA")) {
			result = append(result, v.Analyzer)
		}
	}

	return result
}

func main() {
	cfg, err := loadConfig()
	if err != nil {
		panic(err)
	}

	myChecks := []*analysis.Analyzer{
		copylock.Analyzer,      // Checks for copying of locks by value.
		httpresponse.Analyzer,  // Response bodies used before the error check.
		loopclosure.Analyzer,   // Detects references to loop variables inside closures.
		lostcancel.Analyzer,    // Finds contexts that are not canceled.
		printf.Analyzer,        // Verifies format strings.
		errorsas.Analyzer,      // errors.As with a non-pointer target.
		structtag.Analyzer,     // Checks for incorrect struct field tags.
		unmarshal.Analyzer,     // Detects non-pointer unmarshal targets.
		unreachable.Analyzer,   // Detects unreachable code.

		ineffassign.Analyzer, // Detects ineffective assignments.
		nilerr.Analyzer,      // Flags returning nil after an error was created.

		noosexit.Analyzer,   // Forbids os.Exit in main.main.
		sqlsprintf.Analyzer, // Forbids SQL built with fmt.Sprintf.
	}

	myChecks = append(myChecks, staticcheckAnalyzers(cfg.Staticcheck)...)

	multichecker.Main(myChecks...)
}
