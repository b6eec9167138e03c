package cli

import "github.com/spf13/cobra"

func newARCommand(deps func() *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "ar",
		Short: "Show AR client payloads",
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "subject SUBJECT_ID",
		Short: "Print the AR content of a subject",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			content, err := deps().svc.SubjectARContent(args[0])
			if err != nil {
				return err
			}
			return writeJSON(cmd.OutOrStdout(), content)
		},
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "scene SCENE_ID",
		Short: "Print the renderer configuration of a scene",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := deps().svc.SceneARConfig(args[0])
			if err != nil {
				return err
			}
			return writeJSON(cmd.OutOrStdout(), cfg)
		},
	})
	return cmd
}
