package model

import (
	"encoding/json"
	"errors"
	"fmt"
)

// ErrMalformedResponse is returned when a response body lacks fields the
// caller depends on.
var ErrMalformedResponse = errors.New("malformed response")

// Info is the pagination metadata block of a collection response.
type Info struct {
	Count int     `json:"count"`
	Pages int     `json:"pages"`
	Next  *string `json:"next"`
	Prev  *string `json:"prev"`
}

// Page is one page of a collection.
// NextPageURL is empty iff this is the last page.
type Page[T any] struct {
	Items       []T
	TotalCount  int
	TotalPages  int
	NextPageURL string
}

// HasNext reports whether another page follows this one.
func (p Page[T]) HasNext() bool {
	return p.NextPageURL != ""
}

type envelope[T any] struct {
	Info    *Info `json:"info"`
	Results []T   `json:"results"`
}

// DecodePage parses a collection response body into a Page.
func DecodePage[T any](data []byte) (Page[T], error) {
	var env envelope[T]
	if err := json.Unmarshal(data, &env); err != nil {
		return Page[T]{}, fmt.Errorf("%w: decode page: %v", ErrMalformedResponse, err)
	}
	if env.Info == nil {
		return Page[T]{}, fmt.Errorf("%w: page has no info block", ErrMalformedResponse)
	}

	page := Page[T]{
		Items:      env.Results,
		TotalCount: env.Info.Count,
		TotalPages: env.Info.Pages,
	}
	if page.Items == nil {
		page.Items = []T{}
	}
	if env.Info.Next != nil {
		page.NextPageURL = *env.Info.Next
	}
	return page, nil
}

// DecodeCharacter parses a single character response body.
func DecodeCharacter(data []byte) (Character, error) {
	var rec CharacterRecord
	if err := json.Unmarshal(data, &rec); err != nil {
		return Character{}, fmt.Errorf("%w: decode character: %v", ErrMalformedResponse, err)
	}
	if rec.ID == 0 {
		return Character{}, fmt.Errorf("%w: character has no id", ErrMalformedResponse)
	}
	return rec.Character(), nil
}
