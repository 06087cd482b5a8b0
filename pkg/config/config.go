package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/facilog/facilog/pkg/tasks"
	"github.com/facilog/facilog/pkg/types"
)

// Site describes the building's subsystem layout: which meter channels and
// task categories each logbook page has. This is deployment-shaped data
// (it changes when equipment is added, not at runtime) so it lives in a
// YAML file rather than the settings document.
type Site struct {
	Subsystems []Subsystem `yaml:"subsystems"`
}

// Subsystem is one independent logbook keyspace (substation, hvac-boiler,
// work-log, ...). Channels and categories may both be present; the
// substation page has meters plus the breaker, the work-log page only has
// task categories.
type Subsystem struct {
	Prefix     string     `yaml:"prefix"`
	Channels   []Channel  `yaml:"channels,omitempty"`
	Categories []Category `yaml:"categories,omitempty"`

	// HasBreaker enables the derived electrical metrics for this
	// subsystem; ActiveChannel/ReactiveChannel name the usage totals that
	// feed them.
	HasBreaker      bool            `yaml:"has_breaker,omitempty"`
	ActiveChannel   types.ChannelID `yaml:"active_channel,omitempty"`
	ReactiveChannel types.ChannelID `yaml:"reactive_channel,omitempty"`

	// LookbackDays overrides the settings lookback for this subsystem.
	LookbackDays int `yaml:"lookback_days,omitempty"`
}

// Channel is one metered quantity on a subsystem page.
type Channel struct {
	ID    types.ChannelID `yaml:"id"`
	Label string          `yaml:"label,omitempty"`
}

// Category is one task list on a subsystem page, with its recurring task
// templates.
type Category struct {
	ID        types.CategoryID `yaml:"id"`
	Label     string           `yaml:"label,omitempty"`
	Templates []Template       `yaml:"templates,omitempty"`
}

// Template is the YAML form of a recurring task.
type Template struct {
	Content    string `yaml:"content"`
	Frequency  string `yaml:"frequency"`
	Weekday    string `yaml:"weekday,omitempty"`
	DayOfMonth int    `yaml:"day_of_month,omitempty"`
}

// Default returns the stock single-building layout.
func Default() *Site {
	return &Site{
		Subsystems: []Subsystem{
			{
				Prefix: "substation",
				Channels: []Channel{
					{ID: "active_power", Label: "Active power (kWh)"},
					{ID: "reactive_power", Label: "Reactive power (kVarh)"},
				},
				HasBreaker:      true,
				ActiveChannel:   "active_power",
				ReactiveChannel: "reactive_power",
			},
			{
				Prefix: "hvac-boiler",
				Channels: []Channel{
					{ID: "hvac_gas", Label: "HVAC gas (m3)"},
					{ID: "boiler_gas", Label: "Boiler gas (m3)"},
				},
			},
			{
				Prefix: "work-log",
				Categories: []Category{
					{ID: "facility", Label: "Facility"},
					{ID: "cleaning", Label: "Cleaning"},
				},
				LookbackDays: 7,
			},
		},
	}
}

// Load reads a site layout from path, or returns the default when path is
// empty.
func Load(path string) (*Site, error) {
	if path == "" {
		return Default(), nil
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read site config %s: %w", path, err)
	}
	var s Site
	if err := yaml.Unmarshal(raw, &s); err != nil {
		return nil, fmt.Errorf("parse site config %s: %w", path, err)
	}
	if err := s.Validate(); err != nil {
		return nil, fmt.Errorf("invalid site config %s: %w", path, err)
	}
	return &s, nil
}

// Validate checks the layout for the mistakes that would otherwise surface
// as silent reconciliation oddities.
func (s *Site) Validate() error {
	if len(s.Subsystems) == 0 {
		return fmt.Errorf("no subsystems defined")
	}
	seen := map[string]bool{}
	for _, sub := range s.Subsystems {
		if sub.Prefix == "" {
			return fmt.Errorf("subsystem with empty prefix")
		}
		if seen[sub.Prefix] {
			return fmt.Errorf("duplicate subsystem prefix %q", sub.Prefix)
		}
		seen[sub.Prefix] = true
		if sub.HasBreaker {
			if sub.ActiveChannel == "" || sub.ReactiveChannel == "" {
				return fmt.Errorf("subsystem %q has a breaker but no active/reactive channels", sub.Prefix)
			}
		}
		for _, cat := range sub.Categories {
			for _, tpl := range cat.Templates {
				if _, err := tpl.Parse(); err != nil {
					return fmt.Errorf("subsystem %q category %q: %w", sub.Prefix, cat.ID, err)
				}
			}
		}
	}
	return nil
}

// Subsystem returns the subsystem with the given prefix.
func (s *Site) Subsystem(prefix string) (Subsystem, bool) {
	for _, sub := range s.Subsystems {
		if sub.Prefix == prefix {
			return sub, true
		}
	}
	return Subsystem{}, false
}

// Parse converts the YAML template into the engine's form.
func (t Template) Parse() (tasks.Template, error) {
	out := tasks.Template{Content: t.Content, DayOfMonth: t.DayOfMonth}
	switch types.TaskFrequency(t.Frequency) {
	case types.FrequencyDaily:
		out.Frequency = types.FrequencyDaily
	case types.FrequencyWeekly:
		out.Frequency = types.FrequencyWeekly
		wd, err := parseWeekday(t.Weekday)
		if err != nil {
			return out, err
		}
		out.Weekday = wd
	case types.FrequencyMonthly:
		out.Frequency = types.FrequencyMonthly
		if t.DayOfMonth < 1 || t.DayOfMonth > 31 {
			return out, fmt.Errorf("monthly template %q needs day_of_month 1-31", t.Content)
		}
	default:
		return out, fmt.Errorf("template %q has unknown frequency %q", t.Content, t.Frequency)
	}
	return out, nil
}

// ParsedTemplates returns the category's templates in engine form. Invalid
// templates were rejected by Validate, so errors here are skipped.
func (c Category) ParsedTemplates() []tasks.Template {
	out := make([]tasks.Template, 0, len(c.Templates))
	for _, t := range c.Templates {
		parsed, err := t.Parse()
		if err != nil {
			continue
		}
		out = append(out, parsed)
	}
	return out
}

func parseWeekday(s string) (time.Weekday, error) {
	switch strings.ToLower(s) {
	case "sunday":
		return time.Sunday, nil
	case "monday":
		return time.Monday, nil
	case "tuesday":
		return time.Tuesday, nil
	case "wednesday":
		return time.Wednesday, nil
	case "thursday":
		return time.Thursday, nil
	case "friday":
		return time.Friday, nil
	case "saturday":
		return time.Saturday, nil
	}
	return time.Sunday, fmt.Errorf("unknown weekday %q", s)
}
