// Package testutil provides an in-process mock of the Rick and Morty API.
package testutil

import (
	"crypto/sha1"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync"

	"github.com/Sternrassler/rickmorty-client/pkg/model"
)

// MockCharacter is a character fixture. URLs are derived from the server
// address at request time.
type MockCharacter struct {
	ID         int
	Name       string
	Status     string
	LocationID int
}

// MockLocation is a location fixture.
type MockLocation struct {
	ID          int
	Name        string
	ResidentIDs []int

	// OmitResidents drops the residents field from the JSON record.
	OmitResidents bool
}

// MockResponse is a canned response for a single request URI.
type MockResponse struct {
	StatusCode int
	Body       string
	Headers    map[string]string
}

// MockAPI is a configurable mock of the Rick and Morty API serving paged
// character and location collections under /api.
type MockAPI struct {
	server *httptest.Server

	mu           sync.RWMutex
	characters   []MockCharacter
	locations    []MockLocation
	pageSize     int
	cacheControl string
	overrides    map[string]MockResponse
	requests     []string
	conditional  int
}

// NewMockAPI starts a mock server with a page size of 20.
func NewMockAPI() *MockAPI {
	m := &MockAPI{
		pageSize:  20,
		overrides: make(map[string]MockResponse),
	}
	m.server = httptest.NewServer(http.HandlerFunc(m.serve))
	return m
}

// URL returns the API root, e.g. http://127.0.0.1:1234/api.
func (m *MockAPI) URL() string {
	return m.server.URL + "/api"
}

// Close shuts down the mock server.
func (m *MockAPI) Close() {
	m.server.Close()
}

// SetPageSize sets the number of results per collection page.
func (m *MockAPI) SetPageSize(n int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.pageSize = n
}

// SetCacheControl sets the Cache-Control header sent with 200 responses.
func (m *MockAPI) SetCacheControl(v string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.cacheControl = v
}

// AddCharacters appends character fixtures.
func (m *MockAPI) AddCharacters(chars ...MockCharacter) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.characters = append(m.characters, chars...)
}

// AddLocations appends location fixtures.
func (m *MockAPI) AddLocations(locs ...MockLocation) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.locations = append(m.locations, locs...)
}

// SetResponse overrides the response for an exact request URI such as
// "/api/character/?page=2".
func (m *MockAPI) SetResponse(requestURI string, resp MockResponse) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.overrides[requestURI] = resp
}

// ClearResponse removes an override.
func (m *MockAPI) ClearResponse(requestURI string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.overrides, requestURI)
}

// Requests returns the request URIs served so far, in arrival order.
func (m *MockAPI) Requests() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]string(nil), m.requests...)
}

// RequestCount returns the number of requests served.
func (m *MockAPI) RequestCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.requests)
}

// ConditionalCount returns the number of requests carrying If-None-Match.
func (m *MockAPI) ConditionalCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.conditional
}

// Reset clears request tracking.
func (m *MockAPI) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.requests = nil
	m.conditional = 0
}

// CharacterURL returns the absolute URL of a character fixture.
func (m *MockAPI) CharacterURL(id int) string {
	return fmt.Sprintf("%s/character/%d", m.URL(), id)
}

func (m *MockAPI) serve(w http.ResponseWriter, r *http.Request) {
	m.mu.Lock()
	m.requests = append(m.requests, r.URL.RequestURI())
	if r.Header.Get("If-None-Match") != "" {
		m.conditional++
	}
	override, overridden := m.overrides[r.URL.RequestURI()]
	m.mu.Unlock()

	if overridden {
		for k, v := range override.Headers {
			w.Header().Set(k, v)
		}
		w.WriteHeader(override.StatusCode)
		if override.Body != "" {
			w.Write([]byte(override.Body))
		}
		return
	}

	base := "http://" + r.Host + "/api"
	path := strings.Trim(strings.TrimPrefix(r.URL.Path, "/api"), "/")
	parts := strings.Split(path, "/")

	m.mu.RLock()
	defer m.mu.RUnlock()

	switch {
	case len(parts) == 1 && parts[0] == "character":
		m.serveCharacterPage(w, r, base)
	case len(parts) == 2 && parts[0] == "character":
		m.serveCharacter(w, r, base, parts[1])
	case len(parts) == 1 && parts[0] == "location":
		m.serveLocationPage(w, r, base)
	default:
		writeJSON(w, r, http.StatusNotFound, map[string]string{"error": "There is nothing here"}, "")
	}
}

func (m *MockAPI) serveCharacterPage(w http.ResponseWriter, r *http.Request, base string) {
	status := r.URL.Query().Get("status")

	var matched []MockCharacter
	for _, c := range m.characters {
		if status == "" || strings.EqualFold(c.Status, status) {
			matched = append(matched, c)
		}
	}

	page, items, info, ok := m.paginate(r, len(matched))
	if !ok {
		writeJSON(w, r, http.StatusNotFound, map[string]string{"error": "There is nothing here"}, "")
		return
	}

	results := make([]model.CharacterRecord, 0, len(items))
	for _, i := range items {
		results = append(results, m.characterRecord(base, matched[i]))
	}

	suffix := ""
	if status != "" {
		suffix = "&status=" + status
	}
	if page < info.Pages {
		next := fmt.Sprintf("%s/character/?page=%d%s", base, page+1, suffix)
		info.Next = &next
	}
	if page > 1 {
		prev := fmt.Sprintf("%s/character/?page=%d%s", base, page-1, suffix)
		info.Prev = &prev
	}

	writeJSON(w, r, http.StatusOK, map[string]any{"info": info, "results": results}, m.cacheControl)
}

func (m *MockAPI) serveCharacter(w http.ResponseWriter, r *http.Request, base, idStr string) {
	id, err := strconv.Atoi(idStr)
	if err != nil {
		writeJSON(w, r, http.StatusInternalServerError, map[string]string{"error": "Hey! you must provide an id"}, "")
		return
	}
	for _, c := range m.characters {
		if c.ID == id {
			writeJSON(w, r, http.StatusOK, m.characterRecord(base, c), m.cacheControl)
			return
		}
	}
	writeJSON(w, r, http.StatusNotFound, map[string]string{"error": "Character not found"}, "")
}

func (m *MockAPI) serveLocationPage(w http.ResponseWriter, r *http.Request, base string) {
	page, items, info, ok := m.paginate(r, len(m.locations))
	if !ok {
		writeJSON(w, r, http.StatusNotFound, map[string]string{"error": "There is nothing here"}, "")
		return
	}

	results := make([]map[string]any, 0, len(items))
	for _, i := range items {
		loc := m.locations[i]
		rec := map[string]any{
			"id":        loc.ID,
			"name":      loc.Name,
			"type":      "Planet",
			"dimension": "Dimension C-137",
			"url":       fmt.Sprintf("%s/location/%d", base, loc.ID),
			"created":   "2017-11-10T12:42:04.162Z",
		}
		if !loc.OmitResidents {
			residents := make([]string, 0, len(loc.ResidentIDs))
			for _, id := range loc.ResidentIDs {
				residents = append(residents, fmt.Sprintf("%s/character/%d", base, id))
			}
			rec["residents"] = residents
		}
		results = append(results, rec)
	}

	if page < info.Pages {
		next := fmt.Sprintf("%s/location?page=%d", base, page+1)
		info.Next = &next
	}
	if page > 1 {
		prev := fmt.Sprintf("%s/location?page=%d", base, page-1)
		info.Prev = &prev
	}

	writeJSON(w, r, http.StatusOK, map[string]any{"info": info, "results": results}, m.cacheControl)
}

// paginate resolves the requested page against total items. It returns the
// slice indexes on that page and false when the page does not exist.
func (m *MockAPI) paginate(r *http.Request, total int) (int, []int, model.Info, bool) {
	page := 1
	if p := r.URL.Query().Get("page"); p != "" {
		n, err := strconv.Atoi(p)
		if err != nil || n < 1 {
			return 0, nil, model.Info{}, false
		}
		page = n
	}

	size := m.pageSize
	if size <= 0 {
		size = 20
	}
	pages := (total + size - 1) / size
	if total == 0 || page > pages {
		return 0, nil, model.Info{}, false
	}

	start := (page - 1) * size
	end := start + size
	if end > total {
		end = total
	}
	idx := make([]int, 0, end-start)
	for i := start; i < end; i++ {
		idx = append(idx, i)
	}
	return page, idx, model.Info{Count: total, Pages: pages}, true
}

func (m *MockAPI) characterRecord(base string, c MockCharacter) model.CharacterRecord {
	rec := model.CharacterRecord{
		ID:      c.ID,
		Name:    c.Name,
		Status:  c.Status,
		Species: "Human",
		Gender:  "unknown",
		Image:   fmt.Sprintf("%s/character/avatar/%d.jpeg", base, c.ID),
		URL:     fmt.Sprintf("%s/character/%d", base, c.ID),
		Created: "2017-11-04T18:48:46.250Z",
	}
	for _, loc := range m.locations {
		if loc.ID == c.LocationID {
			rec.Location = model.ResourceRef{Name: loc.Name, URL: fmt.Sprintf("%s/location/%d", base, loc.ID)}
		}
	}
	return rec
}

// writeJSON writes v with an ETag and answers 304 when the client already
// holds that version.
func writeJSON(w http.ResponseWriter, r *http.Request, status int, v any, cacheControl string) {
	body, err := json.Marshal(v)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	if status == http.StatusOK {
		sum := sha1.Sum(body)
		etag := `W/"` + hex.EncodeToString(sum[:8]) + `"`
		w.Header().Set("ETag", etag)
		if cacheControl != "" {
			w.Header().Set("Cache-Control", cacheControl)
		}
		if r.Header.Get("If-None-Match") == etag {
			w.WriteHeader(http.StatusNotModified)
			return
		}
	}

	w.WriteHeader(status)
	w.Write(body)
}

// Universe returns a small fixture set: 3 locations, 6 characters.
func Universe() ([]MockLocation, []MockCharacter) {
	locations := []MockLocation{
		{ID: 1, Name: "Earth (C-137)", ResidentIDs: []int{1, 2, 3}},
		{ID: 2, Name: "Citadel of Ricks", ResidentIDs: []int{4, 5}},
		{ID: 3, Name: "Anatomy Park", ResidentIDs: []int{}},
	}
	characters := []MockCharacter{
		{ID: 1, Name: "Rick Sanchez", Status: "Dead", LocationID: 1},
		{ID: 2, Name: "Morty Smith", Status: "Alive", LocationID: 1},
		{ID: 3, Name: "Summer Smith", Status: "unknown", LocationID: 1},
		{ID: 4, Name: "Evil Morty", Status: "Alive", LocationID: 2},
		{ID: 5, Name: "Rick Prime", Status: "Dead", LocationID: 2},
		{ID: 6, Name: "Mr. Meeseeks", Status: "unknown", LocationID: 3},
	}
	return locations, characters
}
