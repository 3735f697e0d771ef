package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/Veraticus/shopkeep/internal/model"
)

func businessTypesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "business-types",
		Short: "List the known business types",
		Long: `List the business types shopkeep tailors its research and strategy to.

Any other label may be passed to --business-type as free text.`,
		Args: cobra.NoArgs,
		Run: func(cmd *cobra.Command, _ []string) {
			current := viper.GetString("business.type")
			for _, bt := range model.BusinessTypes {
				marker := " "
				if bt == current {
					marker = "*"
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%s %s\n", marker, bt)
			}
		},
	}
}
