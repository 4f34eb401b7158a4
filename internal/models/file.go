package models

import "time"

// StoredFile describes a file held by the viewer/editor utility.
type StoredFile struct {
	Name      string    `json:"name"`
	Type      string    `json:"type"`
	Size      int64     `json:"size"`
	SizeLabel string    `json:"size_label"`
	Content   string    `json:"content,omitempty"`
	UpdatedAt time.Time `json:"updated_at"`
}

// FileLink is a signed, expiring download link.
type FileLink struct {
	URL       string    `json:"url"`
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
}
