package catalog

import (
	"encoding/json"
	"fmt"
	"os"
)

// Default returns the built-in catalog shipped with the service. Deployed
// clients depend on these selectors staying stable; extend by adding new
// groups, never by changing existing ones.
func Default() *Catalog {
	c, err := New([]Group{
		{
			ID: "identity__v1__roles",
			Selectors: []Selector{
				{Name: "get-role"},
				{Name: "get-roles"},
				{Name: "post-role"},
				{Name: "put-role"},
				{Name: "delete-role"},
			},
		},
		{
			ID: "identity__v1__users",
			Selectors: []Selector{
				{Name: "get-user"},
				{Name: "post-user"},
				{Name: "put-user-password"},
				{Name: "put-user-role"},
				{Name: "delete-user"},
			},
		},
		{
			ID: "identity__v1__endpoint_sets",
			Selectors: []Selector{
				{Name: "get-endpoint-set"},
				{Name: "get-endpoint-sets"},
				{Name: "post-endpoint-set"},
			},
		},
		{
			ID: "identity__v1__applications",
			Selectors: []Selector{
				{Name: "get-application-call-endpoint-set"},
				{Name: "put-application-call-endpoint-set"},
				{Name: "put-application-permission-user"},
			},
		},
	})
	if err != nil {
		// The built-in definitions are validated by tests; reaching this
		// means the binary itself is broken.
		panic(err)
	}
	return c
}

// Load reads a catalog definition from a JSON file. The file holds an array
// of groups; selectors without an explicit action are classified by verb.
func Load(path string) (*Catalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("catalog: read %s: %w", path, err)
	}
	var groups []Group
	if err := json.Unmarshal(data, &groups); err != nil {
		return nil, fmt.Errorf("catalog: parse %s: %w", path, err)
	}
	return New(groups)
}
