package main

import (
	"github.com/trezcool/goose"

	appfs "github.com/trezcool/darasa/fs"
)

// gooseRunFunc is swapped out in tests.
var gooseRunFunc = goose.RunFS

// migrate hands the subcommand and its arguments straight to goose, running
// against the embedded migrations.
func (cli *commandLine) migrate(args []string) error {
	command, rest := args[0], args[1:]
	return gooseRunFunc(command, cli.db.DB, appfs.FS, "migrations", rest...)
}
