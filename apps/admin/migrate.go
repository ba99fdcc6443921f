package main

import (
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
)

var errNoDatabase = errors.New("no database configured: set DATABASE_URL or the DB_* variables")

func (cli *commandLine) migrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate COMMAND [ARGS...]",
		Short: "Run a goose migration command (up, down, status, ...)",
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 0 {
				_ = cmd.Help()
				return errHelp
			}
			return cli.migrate(args)
		},
	}
}

func (cli *commandLine) migrate(args []string) error {
	if cli.db == nil {
		return errNoDatabase
	}
	return gooseRunFunc(args[0], cli.db, args[1:]...)
}
