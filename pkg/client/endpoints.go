package client

import (
	"net/url"
	"strconv"
	"strings"
)

// CharactersURL returns the character collection URL for a page, optionally
// filtered by a status query value ("alive", "dead", "unknown").
func (c *Client) CharactersURL(page int, status string) string {
	return CharactersURL(c.baseURL, page, status)
}

// CharacterURL resolves a character ID or a full character URL.
func (c *Client) CharacterURL(idOrURL string) string {
	return CharacterURL(c.baseURL, idOrURL)
}

// LocationsURL returns the first page of the location collection.
func (c *Client) LocationsURL() string {
	return LocationsURL(c.baseURL)
}

// CharactersURL builds a character collection URL under baseURL.
func CharactersURL(baseURL string, page int, status string) string {
	if page < 1 {
		page = 1
	}
	q := url.Values{}
	q.Set("page", strconv.Itoa(page))
	if status != "" {
		q.Set("status", status)
	}
	return strings.TrimRight(baseURL, "/") + "/character/?" + q.Encode()
}

// CharacterURL builds a single character URL under baseURL. Absolute URLs
// (as listed in a location's residents) are returned unchanged.
func CharacterURL(baseURL, idOrURL string) string {
	if strings.HasPrefix(idOrURL, "http://") || strings.HasPrefix(idOrURL, "https://") {
		return idOrURL
	}
	return strings.TrimRight(baseURL, "/") + "/character/" + url.PathEscape(idOrURL)
}

// LocationsURL builds the first location collection page URL under baseURL.
func LocationsURL(baseURL string) string {
	return strings.TrimRight(baseURL, "/") + "/location"
}
