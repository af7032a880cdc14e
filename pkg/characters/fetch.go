package characters

import (
	"context"
	"fmt"

	"github.com/Sternrassler/rickmorty-client/pkg/client"
	"github.com/Sternrassler/rickmorty-client/pkg/model"
	"github.com/Sternrassler/rickmorty-client/pkg/pagination"
)

// loadResult is what a fetch hands back for application to State.
type loadResult struct {
	items      []model.Character
	totalCount int
	hasMore    bool
}

// fetchPage reads one page of the character collection.
func (p *Pager) fetchPage(ctx context.Context, f Filter, page int) (loadResult, error) {
	url := client.CharactersURL(p.config.BaseURL, page, f.statusValue())

	data, err := p.fetcher.Get(ctx, url)
	if err != nil {
		// The API answers 404 when a filter matches nothing.
		if page == 1 && client.IsNotFound(err) {
			return loadResult{items: []model.Character{}}, nil
		}
		return loadResult{}, fmt.Errorf("fetch page %d: %w", page, err)
	}

	decoded, err := model.DecodePage[model.CharacterRecord](data)
	if err != nil {
		return loadResult{}, fmt.Errorf("page %d: %w", page, err)
	}

	return loadResult{
		items:      model.ProjectCharacters(decoded.Items),
		totalCount: decoded.TotalCount,
		hasMore:    decoded.HasNext(),
	}, nil
}

// fetchResidents resolves every resident of the filter's location, then
// applies the status filter to the joined set.
func (p *Pager) fetchResidents(ctx context.Context, f Filter) (loadResult, error) {
	loc := f.Location
	if loc.ResidentURLs == nil {
		return loadResult{}, fmt.Errorf("%w: location %q has no residents", model.ErrMalformedResponse, loc.Name)
	}

	resolved, err := pagination.FanOut(ctx, p.config.FanOut, loc.ResidentURLs, func(ctx context.Context, resident string) (model.Character, error) {
		data, err := p.fetcher.Get(ctx, client.CharacterURL(p.config.BaseURL, resident))
		if err != nil {
			return model.Character{}, err
		}
		return model.DecodeCharacter(data)
	})
	if err != nil {
		return loadResult{}, fmt.Errorf("resolve residents of %q: %w", loc.Name, err)
	}

	items := resolved
	if f.Status != nil {
		items = make([]model.Character, 0, len(resolved))
		for _, c := range resolved {
			if f.Status.Matches(c) {
				items = append(items, c)
			}
		}
	}

	return loadResult{
		items:      items,
		totalCount: len(items),
		hasMore:    false,
	}, nil
}
