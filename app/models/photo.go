package models

import (
	"io"
	"time"
)

// Photo is an image attached to a Model.
type Photo struct {
	ID               int64      `json:"id"`
	ModelID          int64      `json:"model_id"`
	Filename         string     `json:"filename"`
	OriginalFilename string     `json:"original_filename"`
	FilePath         string     `json:"file_path"`
	FileSize         int64      `json:"file_size"`
	IsPrimary        bool       `json:"is_primary"`
	SortOrder        int        `json:"sort_order"`
	CreatedAt        *time.Time `json:"created_at,omitempty"`
}

// DisplayName is the name the uploader chose, falling back to the stored one.
func (p Photo) DisplayName() string {
	if p.OriginalFilename != "" {
		return p.OriginalFilename
	}
	return p.Filename
}

// Upload is a file handed to the photo manager.
type Upload struct {
	Name        string
	ContentType string
	Size        int64
	Body        io.Reader
}
