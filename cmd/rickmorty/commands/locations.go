package commands

import (
	"encoding/json"
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/Sternrassler/rickmorty-client/pkg/model"
	"github.com/spf13/cobra"
)

func locationsCmd(a *app) *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "locations",
		Short: "List every location with its resident count",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			locs, err := a.aggregator.LoadAll(cmd.Context())
			if err != nil {
				return err
			}
			if asJSON {
				return writeJSON(cmd.OutOrStdout(), locs)
			}
			return writeLocations(cmd.OutOrStdout(), locs)
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "print JSON instead of a table")
	return cmd
}

func writeLocations(w io.Writer, locs []model.Location) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tNAME\tRESIDENTS")
	for _, loc := range locs {
		fmt.Fprintf(tw, "%d\t%s\t%d\n", loc.ID, loc.Name, len(loc.ResidentURLs))
	}
	fmt.Fprintf(tw, "\n%d locations\n", len(locs))
	return tw.Flush()
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
