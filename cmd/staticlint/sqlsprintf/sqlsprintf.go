// Package sqlsprintf defines an analyzer that reports SQL statements built
// with fmt.Sprintf and passed straight to database/sql. Party IDs, menu items
// and claimant names come from users and must travel as query arguments.
package sqlsprintf

import (
	"go/ast"
	"go/types"
	"strings"

	"golang.org/x/tools/go/analysis"
	"golang.org/x/tools/go/types/typeutil"
)

var Analyzer = &analysis.Analyzer{
	Name: "sqlsprintf",
	Doc:  "reports database/sql queries built with fmt.Sprintf",
	Run:  run,
}

var queryMethods = map[string]bool{
	"Exec":            true,
	"ExecContext":     true,
	"Query":           true,
	"QueryContext":    true,
	"QueryRow":        true,
	"QueryRowContext": true,
	"Prepare":         true,
	"PrepareContext":  true,
}

func run(pass *analysis.Pass) (interface{}, error) {
	for _, file := range pass.Files {
		ast.Inspect(file, func(n ast.Node) bool {
			call, ok := n.(*ast.CallExpr)
			if !ok {
				return true
			}

			method, ok := typeutil.Callee(pass.TypesInfo, call).(*types.Func)
			if !ok || method.Pkg() == nil || method.Pkg().Path() != "database/sql" || !queryMethods[method.Name()] {
				return true
			}

			queryIndex := 0
			if strings.HasSuffix(method.Name(), "Context") {
				queryIndex = 1
			}
			if len(call.Args) <= queryIndex {
				return true
			}

			query, ok := ast.Unparen(call.Args[queryIndex]).(*ast.CallExpr)
			if ok && isSprintf(pass, query) {
				pass.Reportf(query.Pos(), "SQL query built with fmt.Sprintf, pass the values as query arguments")
			}

			return true
		})
	}

	return nil, nil
}

func isSprintf(pass *analysis.Pass, call *ast.CallExpr) bool {
	fn, ok := typeutil.Callee(pass.TypesInfo, call).(*types.Func)

	return ok && fn.Pkg() != nil && fn.Pkg().Path() == "fmt" && fn.Name() == "Sprintf"
}
