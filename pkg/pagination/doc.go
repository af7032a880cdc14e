// Package pagination provides the two fetch strategies used against the
// Rick and Morty API.
//
// Walk follows a collection's "next" links one page at a time. The next link
// is a serial dependency, so pages are requested strictly in order and no
// request is pipelined. Walk enforces no page limit: a server returning a
// cyclic next link keeps it walking until ctx is cancelled.
//
//	err := pagination.Walk(ctx, apiClient, apiClient.LocationsURL(),
//		func(page model.Page[model.LocationRecord]) error {
//			all = append(all, model.ProjectLocations(page.Items)...)
//			return nil
//		})
//
// FanOut fetches a list of independent URLs with bounded concurrency and
// joins the results in input order. The first failure cancels the remaining
// fetches and no partial result is returned.
//
//	chars, err := pagination.FanOut(ctx, pagination.DefaultConfig(), residentURLs,
//		func(ctx context.Context, u string) (model.Character, error) { ... })
package pagination
