// Package announce renders the server announcement messages from templates so
// operators can reword them in config without touching game logic.
package announce

import (
	"bytes"
	"fmt"
	"text/template"
	"time"

	"github.com/Masterminds/sprig/v3"
)

// Default message templates, used when config leaves them empty.
const (
	DefaultCycleEnding  = "All resources have been exhausted! World cycle {{ .Cycle }} is ending..."
	DefaultCycleBegun   = "World cycle {{ .Cycle }} has begun. The map has been regenerated!"
	DefaultDataRestored = "Welcome back, {{ .Username }}! Your progress has been restored."
)

// templateFuncs provides utility functions for templates.
var templateFuncs = sprig.TxtFuncMap()

// Config holds the raw template strings. Empty fields fall back to defaults.
type Config struct {
	CycleEnding  string `json:"cycle_ending"`
	CycleBegun   string `json:"cycle_begun"`
	DataRestored string `json:"data_restored"`
}

func (c *Config) Validate() error {
	for name, tmpl := range map[string]string{
		"cycle_ending":  c.CycleEnding,
		"cycle_begun":   c.CycleBegun,
		"data_restored": c.DataRestored,
	} {
		if tmpl == "" {
			continue
		}
		_, err := template.New("").Funcs(templateFuncs).Parse(tmpl)
		if err != nil {
			return fmt.Errorf("parsing %s template: %w", name, err)
		}
	}
	return nil
}

// CycleData is the data available to cycle announcement templates.
type CycleData struct {
	Cycle     int
	Timestamp time.Time
}

// RestoreData is the data available to the data-restored template.
type RestoreData struct {
	Username string
}

type Announcer struct {
	cycleEnding  *template.Template
	cycleBegun   *template.Template
	dataRestored *template.Template
}

func NewAnnouncer(cfg Config) (*Announcer, error) {
	cycleEnding, err := parse("cycle_ending", cfg.CycleEnding, DefaultCycleEnding)
	if err != nil {
		return nil, err
	}
	cycleBegun, err := parse("cycle_begun", cfg.CycleBegun, DefaultCycleBegun)
	if err != nil {
		return nil, err
	}
	dataRestored, err := parse("data_restored", cfg.DataRestored, DefaultDataRestored)
	if err != nil {
		return nil, err
	}

	return &Announcer{
		cycleEnding:  cycleEnding,
		cycleBegun:   cycleBegun,
		dataRestored: dataRestored,
	}, nil
}

func (a *Announcer) CycleEnding(d CycleData) (string, error) {
	return expand(a.cycleEnding, d)
}

func (a *Announcer) CycleBegun(d CycleData) (string, error) {
	return expand(a.cycleBegun, d)
}

func (a *Announcer) DataRestored(username string) (string, error) {
	return expand(a.dataRestored, RestoreData{Username: username})
}

func parse(name, tmplStr, fallback string) (*template.Template, error) {
	if tmplStr == "" {
		tmplStr = fallback
	}
	tmpl, err := template.New(name).Funcs(templateFuncs).Parse(tmplStr)
	if err != nil {
		return nil, fmt.Errorf("parsing %s template: %w", name, err)
	}
	return tmpl, nil
}

func expand(tmpl *template.Template, data any) (string, error) {
	var buf bytes.Buffer
	err := tmpl.Execute(&buf, data)
	if err != nil {
		return "", fmt.Errorf("executing template: %w", err)
	}
	return buf.String(), nil
}
