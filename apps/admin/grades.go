package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/gablilli/selfhosted-classeviva/core/grade"
	"github.com/gablilli/selfhosted-classeviva/core/session"
)

func (cli *commandLine) gradesCmd() *cobra.Command {
	var username string
	cmd := &cobra.Command{
		Use:   "grades",
		Short: "Fetch a student's grades with their cached session",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()

			var upstreamToken string
			if !session.IsDemo(username) {
				usr, err := cli.sessionSvc.GetUser(ctx, username)
				if err != nil {
					if errors.Cause(err) == session.ErrUserNotFound {
						return errors.Errorf("%s never logged in, run `admin login -u %s` first", username, username)
					}
					return err
				}
				upstreamToken = usr.UpstreamToken
			}

			res, err := cli.gradeSvc.Retrieve(ctx, upstreamToken, username)
			if err != nil {
				return err
			}
			cli.printResult(res)
			return nil
		},
	}
	usernameFlag(cmd, &username)
	return cmd
}

func (cli *commandLine) printResult(res grade.Result) {
	if res.Synthetic {
		fmt.Fprintln(cli.out, "(synthetic data: the school registry could not be reached)")
	}

	w := tabwriter.NewWriter(cli.out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "SUBJECT\tGRADES\tAVERAGE")
	for _, s := range res.Subjects {
		fmt.Fprintf(w, "%s\t%d\t%.2f\n", s.Name, len(s.Grades), s.Average)
	}
	_ = w.Flush()

	summary := grade.Summarize(res.Subjects)
	fmt.Fprintf(cli.out, "\noverall average: %.2f over %d grade(s)\n", summary.OverallAverage, summary.TotalGrades)
	if summary.BestSubject != nil {
		fmt.Fprintf(cli.out, "best subject: %s (%.2f)\n", summary.BestSubject.Name, summary.BestSubject.Average)
	}
}
