package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	ccdavalidator "github.com/gofhir/ccdavalidator"
)

func newObjectivesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "objectives",
		Short: "List validation objectives and the stages they run",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
			fmt.Fprintln(tw, "OBJECTIVE\tVOCABULARY\tCONTENT")
			for _, o := range ccdavalidator.KnownObjectives() {
				alternate := o.IsAlternateCertification()
				fmt.Fprintf(tw, "%s\t%s\t%s\n", o,
					yesNo(ccdavalidator.AllowsVocabulary(o, alternate)),
					yesNo(ccdavalidator.AllowsContent(o) && ccdavalidator.AllowsVocabulary(o, alternate)))
			}
			return tw.Flush()
		},
	}
}

func yesNo(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}
