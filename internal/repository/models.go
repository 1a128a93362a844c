package repository

import (
	"context"
	"time"
)

// Creator creates repository processes. The workflow depends on this
// interface only.
type Creator interface {
	Create(ctx context.Context, req Request) (Artifact, error)
}

// Field is one named metadata value.
type Field struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

// Group is a typed set of metadata fields, e.g. one priority claim.
type Group struct {
	Type   string  `json:"type"`
	Fields []Field `json:"fields"`
}

// Person is a person metadata entry with its role.
type Person struct {
	Role      string `json:"role"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
}

// Media is the asset file attached to a process.
type Media struct {
	Name string `json:"name"`
	Path string `json:"path"`
}

// Request describes a process to create.
type Request struct {
	Template        string
	PublicationType string
	Title           string
	Metadata        []Field
	Groups          []Group
	Persons         []Person
	Properties      []Field
	Media           *Media
}

// Artifact is the result of a successful Create.
type Artifact struct {
	ID         int64
	Title      string
	TemplateID int64
	MediaPath  string
}

// Process is a stored process with its attributes.
type Process struct {
	ID              int64     `json:"id"`
	Title           string    `json:"title"`
	Template        string    `json:"template"`
	PublicationType string    `json:"publication_type"`
	MediaPath       string    `json:"media_path,omitempty"`
	CreatedAt       time.Time `json:"created_at"`
	Metadata        []Field   `json:"metadata,omitempty"`
	Groups          []Group   `json:"groups,omitempty"`
	Persons         []Person  `json:"persons,omitempty"`
	Properties      []Field   `json:"properties,omitempty"`
}
