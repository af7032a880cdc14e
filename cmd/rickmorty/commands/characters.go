package commands

import (
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/Sternrassler/rickmorty-client/pkg/characters"
	"github.com/Sternrassler/rickmorty-client/pkg/model"
	"github.com/spf13/cobra"
)

func charactersCmd(a *app) *cobra.Command {
	var (
		status   string
		location string
		pages    int
		asJSON   bool
	)

	cmd := &cobra.Command{
		Use:   "characters",
		Short: "List characters, optionally filtered by status and location",
		Long: `List characters page by page.

With --location the residents of that location are resolved in one batch
and --status is applied to them locally; --pages has no effect then.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			var filter characters.Filter
			if status != "" {
				st, ok := model.ParseStatus(status)
				if !ok {
					return fmt.Errorf("unknown status %q (want alive, dead or unknown)", status)
				}
				filter.Status = &st
			}
			if location != "" {
				if _, err := a.aggregator.LoadAll(ctx); err != nil {
					return err
				}
				loc, ok := a.aggregator.Find(location)
				if !ok {
					return fmt.Errorf("unknown location %q", location)
				}
				filter.Location = &loc
			}

			pager := characters.NewPager(a.client, a.pagerConfig())
			unsubscribe := pager.Subscribe(func(s characters.State) {
				a.logger.Debug().
					Str("phase", s.Phase.String()).
					Int("page", s.CurrentPage).
					Int("loaded", len(s.Items)).
					Msg("Pager state")
			})
			defer unsubscribe()

			if err := pager.LoadPages(ctx, filter, pages); err != nil {
				return err
			}

			st := pager.State()
			if asJSON {
				return writeJSON(cmd.OutOrStdout(), st.Items)
			}
			return writeCharacters(cmd.OutOrStdout(), st)
		},
	}

	f := cmd.Flags()
	f.StringVar(&status, "status", "", "filter by status (alive, dead, unknown)")
	f.StringVar(&location, "location", "", "filter by location name or ID")
	f.IntVar(&pages, "pages", 1, "pages to load, 0 for all")
	f.BoolVar(&asJSON, "json", false, "print JSON instead of a table")
	return cmd
}

func writeCharacters(w io.Writer, st characters.State) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, st.Header())
	if st.FilterActive() {
		fmt.Fprintln(tw, filterLine(st.Filter))
	}
	fmt.Fprintln(tw)
	fmt.Fprintln(tw, "ID\tNAME\tSTATUS\tLOCATION")
	for _, c := range st.Items {
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\n", c.ID, c.Name, c.Status, c.LocationName)
	}
	if st.HasMore {
		fmt.Fprintf(tw, "\nmore pages available, loaded through page %d\n", st.CurrentPage)
	}
	return tw.Flush()
}

func filterLine(f characters.Filter) string {
	line := "Filter:"
	if f.Status != nil {
		line += " status=" + f.Status.Title
	}
	if f.Location != nil {
		line += fmt.Sprintf(" location=%q", f.Location.Name)
	}
	return line
}
