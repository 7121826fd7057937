package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newSchemaCmd(a *App) *cobra.Command {
	return &cobra.Command{
		Use:   "schema",
		Short: "Create the product and shipment tables if they do not exist",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			db, err := a.openStore(cmd.Context(), true)
			if err != nil {
				return err
			}
			defer db.Close()

			fmt.Fprintf(a.Stdout, "Schema ready (%s).\n", db.Engine())
			return nil
		},
	}
}
