package main

import "time"

// Article is one generated post before it is written to disk
type Article struct {
	Topic      string
	Title      string
	Body       string
	Date       time.Time
	Generation Generation
}

// FrontMatter is the YAML header of a written post
type FrontMatter struct {
	Title      string   `yaml:"title"`
	Date       string   `yaml:"date"`
	Author     string   `yaml:"author"`
	Categories []string `yaml:"categories"`
	Image      string   `yaml:"image,omitempty"`
}

// ProcessingStatus represents the outcome status of producing a post
type ProcessingStatus string

const (
	StatusSuccess ProcessingStatus = "success"
	StatusSkipped ProcessingStatus = "skipped"
	StatusError   ProcessingStatus = "error"
)

// ProcessingResult tracks the outcome of producing each post
type ProcessingResult struct {
	Topic     string
	Status    ProcessingStatus
	Filename  string
	ImagePath string
	Outcome   Outcome
	Error     error
}
