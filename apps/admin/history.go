package main

import (
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/gablilli/selfhosted-classeviva/core"
	"github.com/gablilli/selfhosted-classeviva/core/grade"
)

func (cli *commandLine) historyCmd() *cobra.Command {
	var username, ordering string
	cmd := &cobra.Command{
		Use:   "history",
		Short: "List the cached grades of a student",
		RunE: func(cmd *cobra.Command, _ []string) error {
			grades, err := cli.gradeSvc.History(cmd.Context(), username, parseOrdering(ordering))
			if err != nil {
				return err
			}

			w := tabwriter.NewWriter(cli.out, 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "DATE\tSUBJECT\tVALUE\tTYPE\tDESCRIPTION")
			for _, g := range grades {
				fmt.Fprintf(w, "%s\t%s\t%.2f\t%s\t%s\n", g.Date, g.Subject, g.Value, g.Type, g.Description)
			}
			return w.Flush()
		},
	}
	usernameFlag(cmd, &username)
	cmd.Flags().StringVarP(&ordering, "ordering", "o", "", "Comma separated fields, prefixed with - for descending (e.g. -grade_date,subject)")
	return cmd
}

func parseOrdering(s string) []core.DBOrdering {
	var orderings []core.DBOrdering
	for _, field := range strings.Split(s, ",") {
		field = strings.TrimSpace(field)
		descending := strings.HasPrefix(field, "-")
		field = strings.TrimPrefix(field, "-")
		if _, ok := grade.OrderingFields[field]; ok {
			orderings = append(orderings, core.DBOrdering{Field: field, Ascending: !descending})
		}
	}
	return orderings
}
