package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newMarkersCommand(deps func() *app, output *string) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "markers",
		Short: "Generate and list AR marker images",
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "generate SUBJECT_ID",
		Short: "Render a marker for a subject and attach it",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			sub, _, err := deps().svc.GenerateMarker(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			if *output == "json" {
				return writeJSON(cmd.OutOrStdout(), sub)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s: marker %s (version %d)\n", sub.Name, *sub.ARMarkerID, sub.Version)
			return nil
		},
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List stored marker images",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			infos, err := deps().markers.List(cmd.Context())
			if err != nil {
				return err
			}
			if *output == "json" {
				return writeJSON(cmd.OutOrStdout(), infos)
			}
			for _, info := range infos {
				fmt.Fprintf(cmd.OutOrStdout(), "%s\t%d\t%s\n", info.Key, info.Size, info.Location)
			}
			return nil
		},
	})
	return cmd
}
