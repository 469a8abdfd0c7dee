// Package prompt loads versioned text/template prompt resources.
package prompt

import (
	"bytes"
	"embed"
	"fmt"
	"strings"
	"text/template"
)

//go:embed v1/*.tmpl
var embedded embed.FS

// DefaultVersion is the prompt set used when configuration does not pick one.
const DefaultVersion = "v1"

// Template names.
const (
	Classify          = "classify"
	ExtractFilters    = "extract_filters"
	ExtractBooking    = "extract_booking"
	SystemTour        = "system_tour"
	SystemBooking     = "system_booking"
	SystemDestination = "system_destination"
	SystemGeneral     = "system_general"
	ReviewSummary     = "review_summary"
	whitelist         = "whitelist"
)

// SystemData feeds the system prompt templates.
type SystemData struct {
	Query        string
	Context      string
	FrontendURL  string
	AllowedSlugs []string
	AllowedNames []string
}

// Set is a parsed prompt version.
type Set struct {
	version string
	tmpl    *template.Template
}

// Load parses every template of the given version.
func Load(version string) (*Set, error) {
	if version == "" {
		version = DefaultVersion
	}
	funcs := template.FuncMap{
		"join": strings.Join,
	}
	tmpl, err := template.New(version).Funcs(funcs).ParseFS(embedded, version+"/*.tmpl")
	if err != nil {
		return nil, fmt.Errorf("parse prompt set %q: %w", version, err)
	}
	for _, name := range []string{
		Classify, ExtractFilters, ExtractBooking,
		SystemTour, SystemBooking, SystemDestination, SystemGeneral,
		ReviewSummary, whitelist,
	} {
		if tmpl.Lookup(name) == nil {
			return nil, fmt.Errorf("prompt set %q: missing template %q", version, name)
		}
	}
	return &Set{version: version, tmpl: tmpl}, nil
}

// MustLoad is Load that panics, for tests and static defaults.
func MustLoad(version string) *Set {
	s, err := Load(version)
	if err != nil {
		panic(err)
	}
	return s
}

// Version returns the prompt set version.
func (s *Set) Version() string { return s.version }

// Render executes the named template.
func (s *Set) Render(name string, data any) (string, error) {
	var buf bytes.Buffer
	if err := s.tmpl.ExecuteTemplate(&buf, name, data); err != nil {
		return "", fmt.Errorf("render prompt %s/%s: %w", s.version, name, err)
	}
	return strings.TrimSpace(buf.String()), nil
}

// System renders a system prompt followed by the identifier whitelist block.
// The whitelist is appended here, not by the template, so every system prompt carries it.
func (s *Set) System(name string, data SystemData) (string, error) {
	body, err := s.Render(name, data)
	if err != nil {
		return "", err
	}
	block, err := s.Render(whitelist, data)
	if err != nil {
		return "", err
	}
	return body + "\n\n" + block, nil
}
