package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"proceres/internal/search"
)

type searchHit struct {
	ID    string  `json:"id"`
	Name  string  `json:"name"`
	Score float64 `json:"score"`
}

func newSearchCommand(deps func() *app, output *string) *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:   "search QUERY...",
		Short: "Rank stored subjects against a free-text query",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s := search.New(deps().store, search.WithLimit(limit))
			ranked, err := s.Rank(cmd.Context(), strings.Join(args, " "))
			if err != nil {
				return err
			}
			hits := []searchHit{}
			for sub, score := range ranked {
				hits = append(hits, searchHit{ID: sub.ID, Name: sub.Name, Score: score})
			}
			if *output == "json" {
				return writeJSON(cmd.OutOrStdout(), hits)
			}
			if len(hits) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "no matches")
				return nil
			}
			for _, h := range hits {
				fmt.Fprintf(cmd.OutOrStdout(), "%6.1f  %s  %s\n", h.Score, h.ID, h.Name)
			}
			return nil
		},
	}
	cmd.Flags().IntVar(&limit, "limit", search.DefaultLimit, "maximum number of results")
	return cmd
}
