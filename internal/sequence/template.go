// internal/sequence/template.go
package sequence

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

// Condition gates a step on accumulated touchpoint counts. Operator is one of
// eq, gt, lt, exists.
type Condition struct {
	Channel  string `yaml:"channel"`
	Outcome  string `yaml:"outcome"`
	Operator string `yaml:"operator"`
	Value    int    `yaml:"value"`
}

// Step is one template entry: which channel to touch, with what content, and
// how many days after the previous step.
type Step struct {
	Name       string      `yaml:"name"`
	Channel    string      `yaml:"channel"`
	Action     string      `yaml:"action"`
	Content    string      `yaml:"content"`
	DelayDays  int         `yaml:"delay_days"`
	Conditions []Condition `yaml:"conditions,omitempty"`
}

// Template is a named multi-step outreach plan. Requires lists the channels
// a prospect must have contact data for before the template is a good fit.
type Template struct {
	ID       string   `yaml:"id"`
	Name     string   `yaml:"name"`
	Requires []string `yaml:"requires"`
	Steps    []Step   `yaml:"steps"`
}

// Registry holds the loaded templates in declaration order.
type Registry struct {
	templates map[string]Template
	order     []string
}

type templateFile struct {
	Templates []Template `yaml:"templates"`
}

// defaultTemplates covers the common contact-data shapes so PickTemplate is
// total: every capability subset maps onto one of these.
const defaultTemplates = `
templates:
  - id: multi_channel
    name: Email first, voice follow-up
    requires: [email, voice]
    steps:
      - name: intro_email
        channel: email
        action: send_email
        content: "Hi {first_name}, quick note about {company}."
        delay_days: 0
      - name: follow_up_email
        channel: email
        action: send_email
        content: "Hi {first_name}, bumping this up."
        delay_days: 3
        conditions:
          - channel: email
            outcome: replied
            operator: eq
            value: 0
      - name: first_call
        channel: voice
        action: place_call
        delay_days: 2
      - name: breakup_email
        channel: email
        action: send_email
        content: "Hi {first_name}, closing the loop."
        delay_days: 4
  - id: email_only
    name: Email-only cadence
    requires: [email]
    steps:
      - name: intro_email
        channel: email
        action: send_email
        content: "Hi {first_name}, quick note about {company}."
        delay_days: 0
      - name: follow_up_email
        channel: email
        action: send_email
        content: "Hi {first_name}, any thoughts?"
        delay_days: 3
      - name: breakup_email
        channel: email
        action: send_email
        content: "Hi {first_name}, closing the loop."
        delay_days: 4
  - id: voice_only
    name: Voice-only cadence
    requires: [voice]
    steps:
      - name: first_call
        channel: voice
        action: place_call
        delay_days: 0
      - name: second_call
        channel: voice
        action: place_call
        delay_days: 3
`

// NewRegistry parses the built-in templates.
func NewRegistry() (*Registry, error) {
	return parse([]byte(defaultTemplates))
}

// LoadRegistry reads every *.yaml file in dir on top of the built-ins.
// Files override built-ins that share an ID.
func LoadRegistry(dir string) (*Registry, error) {
	reg, err := NewRegistry()
	if err != nil {
		return nil, err
	}
	matches, err := filepath.Glob(filepath.Join(dir, "*.yaml"))
	if err != nil {
		return nil, err
	}
	sort.Strings(matches)
	for _, path := range matches {
		raw, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read template file %s: %w", path, err)
		}
		loaded, err := parse(raw)
		if err != nil {
			return nil, fmt.Errorf("parse template file %s: %w", path, err)
		}
		for _, id := range loaded.order {
			reg.put(loaded.templates[id])
		}
	}
	return reg, nil
}

func parse(raw []byte) (*Registry, error) {
	var file templateFile
	if err := yaml.Unmarshal(raw, &file); err != nil {
		return nil, err
	}
	reg := &Registry{templates: map[string]Template{}}
	for _, tmpl := range file.Templates {
		if tmpl.ID == "" {
			return nil, fmt.Errorf("template %q missing id", tmpl.Name)
		}
		if len(tmpl.Steps) == 0 {
			return nil, fmt.Errorf("template %s has no steps", tmpl.ID)
		}
		reg.put(tmpl)
	}
	return reg, nil
}

func (r *Registry) put(tmpl Template) {
	if _, exists := r.templates[tmpl.ID]; !exists {
		r.order = append(r.order, tmpl.ID)
	}
	r.templates[tmpl.ID] = tmpl
}

// Get returns a template by ID.
func (r *Registry) Get(id string) (Template, bool) {
	tmpl, ok := r.templates[id]
	return tmpl, ok
}

// IDs lists template IDs in declaration order.
func (r *Registry) IDs() []string {
	out := make([]string, len(r.order))
	copy(out, r.order)
	return out
}

// PickTemplate scores templates against the prospect's contact-data
// capability set and returns the best fit. It is total: with every channel
// missing it still returns the first declared template so the coordinator's
// missing-data skip rule can walk the sequence instead of stalling it.
func (r *Registry) PickTemplate(caps map[string]bool) string {
	bestID := ""
	bestScore := -1
	for _, id := range r.order {
		tmpl := r.templates[id]
		score := 0
		satisfied := true
		for _, req := range tmpl.Requires {
			if caps[strings.TrimSpace(req)] {
				score++
			} else {
				satisfied = false
			}
		}
		if satisfied {
			// Fully satisfied templates win; richer ones first.
			score += 100
		}
		if score > bestScore {
			bestScore = score
			bestID = id
		}
	}
	return bestID
}
