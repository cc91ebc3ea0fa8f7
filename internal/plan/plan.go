// Package plan holds the static catalog of sellable POS plans and their seat limits.
package plan

import (
	"fmt"
	"sort"
	"strings"
)

// ID identifies a plan. Stored as-is in license.plan.
type ID string

const (
	Trial   ID = "trial"
	Starter ID = "starter"
	Pro     ID = "pro"
)

var validIDs = []ID{Trial, Starter, Pro}

func (id ID) String() string {
	return string(id)
}

// IsValid reports whether id is one of the known plans.
func (id ID) IsValid() bool {
	for _, candidate := range validIDs {
		if candidate == id {
			return true
		}
	}
	return false
}

// ParseID converts raw input into a plan ID.
func ParseID(value string) (ID, error) {
	id := ID(strings.ToLower(strings.TrimSpace(value)))
	if !id.IsValid() {
		return "", fmt.Errorf("invalid plan %q", value)
	}
	return id, nil
}

// Plan is one catalog entry.
type Plan struct {
	ID         ID     `yaml:"-" json:"id"`
	Label      string `yaml:"label" json:"label"`
	MaxDevices int    `yaml:"max_devices" json:"maxDevices"`
}

// Catalog maps plan ids to their configuration. It is read-only after construction.
type Catalog struct {
	plans map[ID]Plan
}

// DefaultPlans is used when the configuration does not override the catalog.
func DefaultPlans() map[ID]Plan {
	return map[ID]Plan{
		Trial:   {ID: Trial, Label: "Trial", MaxDevices: 1},
		Starter: {ID: Starter, Label: "Starter", MaxDevices: 1},
		Pro:     {ID: Pro, Label: "Pro", MaxDevices: 3},
	}
}

// NewCatalog builds a catalog from configured plans, falling back to the defaults
// for any plan the configuration leaves out.
func NewCatalog(configured map[ID]Plan) (*Catalog, error) {
	plans := DefaultPlans()
	for id, p := range configured {
		if !id.IsValid() {
			return nil, fmt.Errorf("unknown plan %q in catalog", id)
		}
		if p.MaxDevices < 0 {
			return nil, fmt.Errorf("plan %q: max_devices must not be negative", id)
		}
		p.ID = id
		if p.Label == "" {
			p.Label = plans[id].Label
		}
		plans[id] = p
	}
	return &Catalog{plans: plans}, nil
}

// Lookup returns the plan configuration for id.
func (c *Catalog) Lookup(id ID) (Plan, bool) {
	p, ok := c.plans[id]
	return p, ok
}

// Label returns the display label for id, or the raw id when unknown.
func (c *Catalog) Label(id ID) string {
	if p, ok := c.plans[id]; ok {
		return p.Label
	}
	return string(id)
}

// All returns the catalog entries ordered by id.
func (c *Catalog) All() []Plan {
	out := make([]Plan, 0, len(c.plans))
	for _, p := range c.plans {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}
