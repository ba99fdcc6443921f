package main

import (
	"context"
	"database/sql"
	"io"
	"os"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/gablilli/selfhosted-classeviva/core/grade"
	"github.com/gablilli/selfhosted-classeviva/core/session"
	"github.com/gablilli/selfhosted-classeviva/storage/database"
)

var (
	readPasswordFunc = term.ReadPassword // mockable
	gooseRunFunc     = database.Run      // mockable

	errHelp = errors.New("help provided")
)

type commandLine struct {
	db         *sql.DB // nil without a configured database
	sessionSvc session.ServiceInterface
	gradeSvc   grade.ServiceInterface
	out        io.Writer
	root       *cobra.Command
}

func newCommandLine(db *sql.DB, sessionSvc session.ServiceInterface, gradeSvc grade.ServiceInterface, out io.Writer) *commandLine {
	if out == nil {
		out = os.Stdout
	}
	cli := &commandLine{db: db, sessionSvc: sessionSvc, gradeSvc: gradeSvc, out: out}

	cli.root = &cobra.Command{
		Use:           "admin",
		Short:         "ClasseViva dashboard administration",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			_ = cmd.Help()
			return errHelp
		},
	}
	cli.root.SetOut(out)
	cli.root.SetErr(out)
	cli.root.AddCommand(
		cli.migrateCmd(),
		cli.loginCmd(),
		cli.gradesCmd(),
		cli.historyCmd(),
	)
	return cli
}

// run executes the command line; args include the program name.
func (cli *commandLine) run(ctx context.Context, args []string) error {
	if len(args) > 0 {
		args = args[1:]
	}
	cli.root.SetArgs(args)
	return cli.root.ExecuteContext(ctx)
}

func usernameFlag(cmd *cobra.Command, target *string) {
	cmd.Flags().StringVarP(target, "username", "u", "", "The student's ClasseViva username (required)")
	_ = cmd.MarkFlagRequired("username")
}
