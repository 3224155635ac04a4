package models

import "time"

// EventType names the browser-originated events accepted by the intake API.
type EventType string

const (
	EventTabActivated  EventType = "tab_activated"
	EventTabUpdated    EventType = "tab_updated"
	EventTabRemoved    EventType = "tab_removed"
	EventPageLoaded    EventType = "page_loaded"
	EventRememberText  EventType = "remember_text"
	EventRememberImage EventType = "remember_image"
)

// BrowserEvent is one raw event posted by the extension. Only the fields
// relevant to the event's type are populated.
type BrowserEvent struct {
	Type      EventType `json:"type"`
	Timestamp time.Time `json:"timestamp"`

	// Tab lifecycle.
	TabID int    `json:"tab_id,omitempty"`
	URL   string `json:"url,omitempty"`

	// Page capture (page_loaded).
	Page *PageCapture `json:"page,omitempty"`

	// Remember actions.
	Selection *TextSelection `json:"selection,omitempty"`
	Image     *ImageCapture  `json:"image,omitempty"`
}

// EventBatch is the wire format of POST /events.
type EventBatch struct {
	Events []BrowserEvent `json:"events"`
}

// PageCapture is the extractor's page-data payload.
type PageCapture struct {
	URL        string            `json:"url"`
	Title      string            `json:"title"`
	Content    string            `json:"content,omitempty"`
	Text       string            `json:"text,omitempty"`
	Meta       map[string]string `json:"meta,omitempty"`
	Images     []ImageRef        `json:"images,omitempty"`
	AccessedAt time.Time         `json:"accessed_at"`
}

// TextSelection is a remembered text selection.
type TextSelection struct {
	Text      string    `json:"text"`
	URL       string    `json:"url"`
	Timestamp time.Time `json:"timestamp"`
}

// ImageCapture is a remembered (right-clicked) image.
type ImageCapture struct {
	ImageURL  string    `json:"image_url"`
	Alt       string    `json:"alt,omitempty"`
	URL       string    `json:"url"`
	Timestamp time.Time `json:"timestamp"`
}
