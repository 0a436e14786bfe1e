// Package catalog holds the static permission catalog: the named permittable
// groups and the operation selectors they cover. The catalog is built once at
// process start, is identical across tenants and is never mutated; shipping a
// changed group requires a new group identifier.
package catalog

import (
	"fmt"
	"sort"
	"strings"

	"github.com/portcullis-iam/portcullis/internal/shared"
)

// Action classifies what a selector does to its resource.
type Action string

const (
	ActionRead   Action = "READ"
	ActionChange Action = "CHANGE"
	ActionDelete Action = "DELETE"
)

// Selector identifies one protected operation. The name is stable across
// releases and follows the <verb>-<noun> form, e.g. "post-role".
type Selector struct {
	Name   string `json:"name"`
	Action Action `json:"action"`
}

// Group is a named bundle of protected operations sharing one authorization
// checkpoint.
type Group struct {
	ID        string     `json:"id"`
	Selectors []Selector `json:"selectors"`
}

type resolution struct {
	groupID string
	action  Action
}

// Catalog resolves selectors to permittable groups. Immutable after New.
type Catalog struct {
	groups     []Group
	bySelector map[string]resolution
	groupIDs   map[string]struct{}
}

// New builds a catalog from the given groups. Group identifiers and selector
// names must be unique across the whole catalog.
func New(groups []Group) (*Catalog, error) {
	c := &Catalog{
		groups:     make([]Group, 0, len(groups)),
		bySelector: make(map[string]resolution),
		groupIDs:   make(map[string]struct{}, len(groups)),
	}
	for _, g := range groups {
		if strings.TrimSpace(g.ID) == "" {
			return nil, fmt.Errorf("catalog: group with empty identifier")
		}
		if _, ok := c.groupIDs[g.ID]; ok {
			return nil, fmt.Errorf("catalog: duplicate group %q", g.ID)
		}
		c.groupIDs[g.ID] = struct{}{}

		selectors := make([]Selector, 0, len(g.Selectors))
		for _, sel := range g.Selectors {
			if sel.Action == "" {
				action, ok := ClassifySelector(sel.Name)
				if !ok {
					return nil, fmt.Errorf("catalog: selector %q has no classifiable verb", sel.Name)
				}
				sel.Action = action
			}
			if _, ok := c.bySelector[sel.Name]; ok {
				return nil, fmt.Errorf("catalog: duplicate selector %q", sel.Name)
			}
			c.bySelector[sel.Name] = resolution{groupID: g.ID, action: sel.Action}
			selectors = append(selectors, sel)
		}
		c.groups = append(c.groups, Group{ID: g.ID, Selectors: selectors})
	}
	sort.Slice(c.groups, func(i, j int) bool { return c.groups[i].ID < c.groups[j].ID })
	return c, nil
}

// Groups returns the ordered catalog contents.
func (c *Catalog) Groups() []Group {
	out := make([]Group, len(c.groups))
	copy(out, c.groups)
	return out
}

// Resolve maps an operation selector to its group identifier and action.
func (c *Catalog) Resolve(selector string) (string, Action, error) {
	res, ok := c.bySelector[selector]
	if !ok {
		return "", "", fmt.Errorf("%w: selector %q", shared.ErrNotFound, selector)
	}
	return res.groupID, res.action, nil
}

// Has reports whether the group identifier exists in the catalog.
func (c *Catalog) Has(groupID string) bool {
	_, ok := c.groupIDs[groupID]
	return ok
}

// ClassifySelector derives the action from the selector's verb prefix.
func ClassifySelector(selector string) (Action, bool) {
	verb, _, ok := strings.Cut(selector, "-")
	if !ok {
		return "", false
	}
	switch verb {
	case "get", "list":
		return ActionRead, true
	case "post", "put", "patch":
		return ActionChange, true
	case "delete":
		return ActionDelete, true
	default:
		return "", false
	}
}
