package model

import "time"

// Prompt is a saved prompt template. Content is markdown.
type Prompt struct {
	ID           string    `json:"id"`
	Title        string    `json:"title"`
	Content      string    `json:"content"`
	CategoryName string    `json:"category"`
	Tags         []string  `json:"tags"`
	Favorite     bool      `json:"favorite"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

// Category groups prompts under a display name and color.
type Category struct {
	Name        string    `json:"name"`
	Color       string    `json:"color"`
	Description string    `json:"description"`
	CreatedAt   time.Time `json:"createdAt"`
}
