// Package main provides the sqlschema CLI.
package main

import "github.com/mesh-intelligence/sqlschema/internal/cli"

func main() {
	cli.Execute()
}
