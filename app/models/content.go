package models

import (
	"net/url"
	"strconv"
	"time"
)

// Portal sections the backend can hide. A hidden section answers 404 on
// every public read.
const (
	SectionNews        = "news"
	SectionRegulations = "regulations"
	SectionEmployees   = "employees"
)

// Sections maps a section name to its visibility.
type Sections map[string]bool

// Attachment is a photo or document stored with a news item or regulation.
type Attachment struct {
	ID               int64  `json:"id"`
	Filename         string `json:"filename"`
	OriginalFilename string `json:"original_filename"`
	FilePath         string `json:"file_path"`
	FileSize         int64  `json:"file_size"`
	SortOrder        int    `json:"sort_order"`
}

// News is a published announcement.
type News struct {
	ID          int64        `json:"id"`
	Title       string       `json:"title"`
	Content     string       `json:"content"`
	Summary     string       `json:"summary,omitempty"`
	Author      string       `json:"author,omitempty"`
	IsPublished bool         `json:"is_published"`
	PublishedAt *time.Time   `json:"published_at,omitempty"`
	CreatedAt   *time.Time   `json:"created_at,omitempty"`
	UpdatedAt   *time.Time   `json:"updated_at,omitempty"`
	Photos      []Attachment `json:"photos,omitempty"`
	Documents   []Attachment `json:"documents,omitempty"`
}

// Regulation is an internal dealer rule. It carries the News fields plus a
// free-form category.
type Regulation struct {
	News
	Category string `json:"category,omitempty"`
}

// Employee is a staff card on the portal.
type Employee struct {
	ID          int64      `json:"id"`
	FirstName   string     `json:"first_name"`
	LastName    string     `json:"last_name"`
	Position    string     `json:"position"`
	Email       string     `json:"email,omitempty"`
	Phone       string     `json:"phone,omitempty"`
	Description string     `json:"description,omitempty"`
	PhotoPath   string     `json:"photo_path,omitempty"`
	IsActive    bool       `json:"is_active"`
	SortOrder   int        `json:"sort_order"`
	CreatedAt   *time.Time `json:"created_at,omitempty"`
	UpdatedAt   *time.Time `json:"updated_at,omitempty"`
}

// FullName is "First Last".
func (e Employee) FullName() string {
	switch {
	case e.FirstName == "":
		return e.LastName
	case e.LastName == "":
		return e.FirstName
	}
	return e.FirstName + " " + e.LastName
}

// Video is a link attached to a model.
type Video struct {
	ID        int64      `json:"id"`
	ModelID   int64      `json:"model_id"`
	Title     string     `json:"title"`
	URL       string     `json:"url"`
	VideoType string     `json:"video_type"`
	SortOrder int        `json:"sort_order"`
	CreatedAt *time.Time `json:"created_at,omitempty"`
}

// ListQuery pages and filters the news, regulations and employees lists.
// Category applies to regulations and Position to employees. A zero Limit
// leaves the page size to the backend.
type ListQuery struct {
	Skip     int    `json:"skip" validate:"gte=0"`
	Limit    int    `json:"limit" validate:"nullable,between=1,200"`
	Search   string `json:"search"`
	Category string `json:"category"`
	Position string `json:"position"`
}

// Encode renders the non-zero fields as a query string.
func (q ListQuery) Encode() string {
	v := url.Values{}
	if q.Skip > 0 {
		v.Set("skip", strconv.Itoa(q.Skip))
	}
	if q.Limit > 0 {
		v.Set("limit", strconv.Itoa(q.Limit))
	}
	for key, val := range map[string]string{"search": q.Search, "category": q.Category, "position": q.Position} {
		if val != "" {
			v.Set(key, val)
		}
	}
	return v.Encode()
}

// FilterResult is the answer of the spec filter: active models whose specs
// contain every requested value.
type FilterResult struct {
	Models         []Model           `json:"models"`
	Total          int               `json:"total"`
	FiltersApplied map[string]string `json:"filters_applied,omitempty"`
}
