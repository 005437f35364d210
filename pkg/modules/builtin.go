package modules

import "github.com/foremanctl/foremanctl/pkg/engine"

// builtinDefinitions are the resource types the CLI knows out of the box.
// Each entry is purely declarative; adding a resource means adding a table
// row, not code.
var builtinDefinitions = []Definition{
	{
		Resource: "organizations",
		Spec: map[string]engine.Field{
			"name":        {Required: true},
			"label":       {},
			"description": {},
		},
	},
	{
		// Unique by full title; a declared parent prefixes the name.
		Resource: "locations",
		Search:   "title",
		Spec: map[string]engine.Field{
			"name":          {Required: true},
			"description":   {},
			"parent":        {Type: "entity", ResourceType: "locations", Search: "title"},
			"organizations": {Type: "entity_list"},
		},
	},
	{
		Resource: "domains",
		Spec: map[string]engine.Field{
			"name":          {Required: true},
			"fullname":      {},
			"dns":           {Type: "entity", ResourceType: "smart_proxies", FlatName: "dns_id"},
			"organizations": {Type: "entity_list"},
			"locations":     {Type: "entity_list", Search: "title"},
		},
	},
	{
		Resource: "subnets",
		Spec: map[string]engine.Field{
			"name":          {Required: true},
			"network":       {Required: true},
			"mask":          {},
			"cidr":          {Type: "int"},
			"gateway":       {},
			"dns_primary":   {},
			"dns_secondary": {},
			"ipam":          {},
			"boot_mode":     {},
			"network_type":  {},
			"vlanid":        {Type: "int"},
			"mtu":           {Type: "int"},
			"domains":       {Type: "entity_list"},
			"organizations": {Type: "entity_list"},
			"locations":     {Type: "entity_list", Search: "title"},
		},
	},
	{
		Resource: "hostgroups",
		Search:   "title",
		Spec: map[string]engine.Field{
			"name":         {Required: true},
			"description":  {},
			"parent":       {Type: "entity", ResourceType: "hostgroups", Search: "title"},
			"architecture": {Type: "entity"},
			"domain":       {Type: "entity"},
			"subnet":       {Type: "entity"},
			"environment":  {Type: "entity"},
		},
	},
	{
		Resource: "activation_keys",
		Spec: map[string]engine.Field{
			"name":            {Required: true},
			"description":     {},
			"content_view":    {Type: "entity", Scope: []string{"organization_id"}},
			"max_hosts":       {Type: "int"},
			"unlimited_hosts": {Type: "bool"},
			"purpose_usage":   {},
			"purpose_role":    {},
		},
	},
	{
		Resource: "content_views",
		Spec: map[string]engine.Field{
			"name":         {Required: true},
			"label":        {},
			"description":  {},
			"composite":    {Type: "bool"},
			"auto_publish": {Type: "bool"},
			"repositories": {Type: "entity_list", Scope: []string{"organization_id"}},
		},
		Verbs: []string{"publish"},
	},
	{
		Resource:  "content_view_versions",
		NameField: "version",
		Search:    "version",
		Spec: map[string]engine.Field{
			"version":     {},
			"description": {},
		},
		Verbs: []string{"promote", "revert"},
	},
}
