package models

// Lesson is an entry of the static lesson catalog.
type Lesson struct {
	Title    string `json:"title"`
	Level    string `json:"level"`
	Duration string `json:"duration"`
	Students int    `json:"students"`
}

// Feature is a card rendered on the home page.
type Feature struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	Link        string `json:"link"`
}

// HomeContent is the payload of the landing page.
type HomeContent struct {
	Title       string    `json:"title"`
	Subtitle    string    `json:"subtitle"`
	Description string    `json:"description"`
	Features    []Feature `json:"features"`
}
