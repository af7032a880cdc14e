// Package model defines the Rick and Morty API resources consumed by the
// aggregation and paging components, along with the raw server records they
// are projected from.
package model

// Location is a location summary as held by the location picker.
type Location struct {
	ID   int    `json:"id"`
	URL  string `json:"url"`
	Name string `json:"name"`

	// ResidentURLs lists the character URLs at this location in server order.
	// Nil means the server record carried no residents field at all.
	ResidentURLs []string `json:"residents"`
}

// Character is a character card as rendered by the list view.
type Character struct {
	ID           int    `json:"id"`
	URL          string `json:"url"`
	Name         string `json:"name"`
	ImageURL     string `json:"image"`
	Status       string `json:"status"`
	LocationName string `json:"location_name"`
	LocationURL  string `json:"location_url"`
}

// ResourceRef is a named link to another resource.
type ResourceRef struct {
	Name string `json:"name"`
	URL  string `json:"url"`
}

// LocationRecord is a location as returned by the /location endpoint.
type LocationRecord struct {
	ID        int      `json:"id"`
	Name      string   `json:"name"`
	Type      string   `json:"type"`
	Dimension string   `json:"dimension"`
	Residents []string `json:"residents"`
	URL       string   `json:"url"`
	Created   string   `json:"created"`
}

// Location projects the record down to the fields the picker needs.
func (r LocationRecord) Location() Location {
	return Location{
		ID:           r.ID,
		URL:          r.URL,
		Name:         r.Name,
		ResidentURLs: r.Residents,
	}
}

// CharacterRecord is a character as returned by the /character endpoint.
type CharacterRecord struct {
	ID       int         `json:"id"`
	Name     string      `json:"name"`
	Status   string      `json:"status"`
	Species  string      `json:"species"`
	Type     string      `json:"type"`
	Gender   string      `json:"gender"`
	Origin   ResourceRef `json:"origin"`
	Location ResourceRef `json:"location"`
	Image    string      `json:"image"`
	Episode  []string    `json:"episode"`
	URL      string      `json:"url"`
	Created  string      `json:"created"`
}

// Character projects the record down to the card fields.
func (r CharacterRecord) Character() Character {
	return Character{
		ID:           r.ID,
		URL:          r.URL,
		Name:         r.Name,
		ImageURL:     r.Image,
		Status:       r.Status,
		LocationName: r.Location.Name,
		LocationURL:  r.Location.URL,
	}
}

// ProjectCharacters projects a slice of raw records, preserving order.
func ProjectCharacters(records []CharacterRecord) []Character {
	out := make([]Character, 0, len(records))
	for _, r := range records {
		out = append(out, r.Character())
	}
	return out
}

// ProjectLocations projects a slice of raw records, preserving order.
func ProjectLocations(records []LocationRecord) []Location {
	out := make([]Location, 0, len(records))
	for _, r := range records {
		out = append(out, r.Location())
	}
	return out
}
