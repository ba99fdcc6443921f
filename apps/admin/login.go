package main

import (
	"fmt"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/gablilli/selfhosted-classeviva/core/session"
)

func (cli *commandLine) loginCmd() *cobra.Command {
	var username string
	cmd := &cobra.Command{
		Use:   "login",
		Short: "Log a student in and cache their ClasseViva session",
		RunE: func(cmd *cobra.Command, _ []string) error {
			fmt.Fprint(cli.out, "Enter password:")
			pwd, err := readPasswordFunc(int(syscall.Stdin))
			fmt.Fprintln(cli.out)
			if err != nil {
				return err
			}
			if len(pwd) == 0 {
				_ = cmd.Usage()
				return errHelp
			}

			sess, err := cli.sessionSvc.Acquire(cmd.Context(), session.Credentials{Username: username, Password: string(pwd)})
			if err != nil {
				return err
			}
			fmt.Fprintf(cli.out, "logged in as %s (%s) via %s\n", sess.Name, sess.UserID, sess.Source)
			fmt.Fprintf(cli.out, "token: %s\nexpires: %s\n", sess.Token, sess.ExpiresAt.Format("2006-01-02 15:04"))
			return nil
		},
	}
	usernameFlag(cmd, &username)
	return cmd
}
