package engine

import (
	"errors"
	"reflect"
	"testing"
)

func TestNormalizeSpecDerivesReferenceFields(t *testing.T) {
	spec := map[string]Field{
		"name":          {Type: "str", Required: true},
		"organization":  {Type: "entity"},
		"locations":     {Type: "entity_list", FlatName: "location_ids"},
		"content_views": {Type: "entity_list"},
	}

	es, args, err := NormalizeSpec(spec)
	if err != nil {
		t.Fatalf("normalize failed: %v", err)
	}

	org, ok := es.Field("organization")
	if !ok {
		t.Fatal("organization field missing from entity spec")
	}
	if org.FlatName != "organization_id" {
		t.Errorf("expected flat name organization_id, got %q", org.FlatName)
	}
	if org.ResourceType != "organizations" {
		t.Errorf("expected resource type organizations, got %q", org.ResourceType)
	}
	if !org.Resolve || !org.Ensure {
		t.Errorf("expected resolve and ensure defaults, got resolve=%v ensure=%v", org.Resolve, org.Ensure)
	}

	locs, ok := es.FieldByFlatName("location_ids")
	if !ok {
		t.Fatal("location_ids missing from entity spec")
	}
	if locs.Kind != KindEntityList {
		t.Errorf("expected entity_list kind, got %q", locs.Kind)
	}

	// A list field name is already the collection name; re-pluralizing it
	// would point at a nonexistent resource.
	if locs.ResourceType != "locations" {
		t.Errorf("expected resource type locations, got %q", locs.ResourceType)
	}
	cvs, _ := es.Field("content_views")
	if cvs.ResourceType != "content_views" {
		t.Errorf("expected resource type content_views, got %q", cvs.ResourceType)
	}
	if cvs.FlatName != "content_view_ids" {
		t.Errorf("expected flat name content_view_ids, got %q", cvs.FlatName)
	}

	if arg, ok := args["organization"]; !ok || arg.Type != "str" {
		t.Errorf("expected organization argument of type str, got %+v", args["organization"])
	}
	if arg, ok := args["locations"]; !ok || arg.Type != "list" || arg.Elements != "str" {
		t.Errorf("expected locations argument list of str, got %+v", args["locations"])
	}
}

func TestNormalizeSpecPluralizes(t *testing.T) {
	tests := []struct {
		name string
		want string
	}{
		{"organization", "organizations"},
		{"smart_proxy", "smart_proxies"},
		{"operatingsystem", "operatingsystems"},
		{"media", "medias"},
		{"ptable", "ptables"},
		{"os", "oses"},
	}

	for _, tt := range tests {
		if got := Pluralize(tt.name); got != tt.want {
			t.Errorf("Pluralize(%q) = %q, want %q", tt.name, got, tt.want)
		}
	}
}

func TestNormalizeSpecSingularizesListFlatNames(t *testing.T) {
	tests := []struct {
		name string
		want string
	}{
		{"organizations", "organization_ids"},
		{"content_views", "content_view_ids"},
		{"repositories", "repository_ids"},
		{"smart_proxies", "smart_proxy_ids"},
	}

	for _, tt := range tests {
		es, _, err := NormalizeSpec(map[string]Field{tt.name: {Type: "entity_list"}})
		if err != nil {
			t.Fatalf("normalize %q failed: %v", tt.name, err)
		}
		fs, _ := es.Field(tt.name)
		if fs.FlatName != tt.want {
			t.Errorf("flat name for %q = %q, want %q", tt.name, fs.FlatName, tt.want)
		}
	}
}

func TestNormalizeSpecInjectsID(t *testing.T) {
	es, args, err := NormalizeSpec(map[string]Field{"name": {}})
	if err != nil {
		t.Fatalf("normalize failed: %v", err)
	}

	id, ok := es.Field("id")
	if !ok {
		t.Fatal("id field not injected")
	}
	if id.Kind != KindScalar || id.FlatName != "id" {
		t.Errorf("unexpected id field: %+v", id)
	}
	if _, exposed := args["id"]; exposed {
		t.Error("id must not appear in the argument spec")
	}
}

func TestNormalizeSpecInvisibleExcluded(t *testing.T) {
	es, args, err := NormalizeSpec(map[string]Field{
		"name":     {},
		"internal": {Type: "invisible"},
	})
	if err != nil {
		t.Fatalf("normalize failed: %v", err)
	}

	if _, ok := es.Field("internal"); !ok {
		t.Error("invisible field must stay in the entity spec")
	}
	if _, ok := args["internal"]; ok {
		t.Error("invisible field must not appear in the argument spec")
	}
}

func TestNormalizeSpecNestedList(t *testing.T) {
	es, args, err := NormalizeSpec(map[string]Field{
		"name": {},
		"interfaces": {Type: "nested_list", Spec: map[string]Field{
			"mac":    {},
			"subnet": {Type: "entity"},
		}},
	})
	if err != nil {
		t.Fatalf("normalize failed: %v", err)
	}

	nested, ok := es.Field("interfaces")
	if !ok {
		t.Fatal("interfaces missing from entity spec")
	}
	if nested.Ensure {
		t.Error("nested lists must default to ensure=false")
	}
	if nested.Nested == nil {
		t.Fatal("nested entity spec missing")
	}
	if sub, ok := nested.Nested.Field("subnet"); !ok || sub.FlatName != "subnet_id" {
		t.Errorf("nested subnet field not normalized: %+v", sub)
	}
	if _, ok := nested.Nested.Field("id"); !ok {
		t.Error("nested spec must carry its own id field")
	}

	arg := args["interfaces"]
	if arg.Type != "list" || arg.Elements != "dict" {
		t.Errorf("expected nested list argument, got %+v", arg)
	}
	if _, ok := arg.Options["mac"]; !ok {
		t.Error("nested argument options missing mac")
	}
}

func TestNormalizeSpecUnknownType(t *testing.T) {
	_, _, err := NormalizeSpec(map[string]Field{"name": {Type: "tuple"}})
	if err == nil {
		t.Fatal("expected configuration error for unknown type")
	}
	if !IsConfiguration(err) {
		t.Errorf("expected configuration class, got %v", err)
	}
	var e *Error
	if !errors.As(err, &e) || e.Code != ErrCodeUnknownFieldType {
		t.Errorf("expected code %s, got %v", ErrCodeUnknownFieldType, err)
	}
}

func TestNormalizeSpecDuplicateFlatName(t *testing.T) {
	_, _, err := NormalizeSpec(map[string]Field{
		"organization":    {Type: "entity"},
		"organization_id": {Type: "int"},
	})
	if err == nil {
		t.Fatal("expected configuration error for duplicate flat name")
	}
	var e *Error
	if !errors.As(err, &e) || e.Code != ErrCodeDuplicateFlatName {
		t.Errorf("expected code %s, got %v", ErrCodeDuplicateFlatName, err)
	}
}

// authorForm converts a canonical entity spec back into the author form, so
// the fixpoint property below can re-normalize it.
func authorForm(es *EntitySpec) map[string]Field {
	out := make(map[string]Field)
	for _, fs := range es.Fields() {
		if fs.Name == "id" {
			continue
		}
		field := Field{
			FlatName:     fs.FlatName,
			ResourceType: fs.ResourceType,
			Search:       fs.Search,
			Aliases:      fs.Aliases,
			Required:     fs.Required,
			Default:      fs.Default,
			Display:      fs.Display,
			Scope:        fs.Scope,
			Elements:     fs.Elements,
			Resolve:      boolPtr(fs.Resolve),
			Ensure:       boolPtr(fs.Ensure),
		}
		switch fs.Kind {
		case KindEntity:
			field.Type = "entity"
		case KindEntityList:
			field.Type = "entity_list"
		case KindNestedList:
			field.Type = "nested_list"
			field.Spec = authorForm(fs.Nested)
		case KindInvisible:
			field.Type = "invisible"
		default:
			field.Type = fs.Type
		}
		out[fs.Name] = field
	}
	return out
}

func boolPtr(v bool) *bool {
	return &v
}

func TestNormalizeSpecFixpoint(t *testing.T) {
	spec := map[string]Field{
		"name":          {Required: true},
		"description":   {},
		"organization":  {Type: "entity", Scope: []string{"location_id"}},
		"content_views": {Type: "entity_list"},
		"interfaces": {Type: "nested_list", Spec: map[string]Field{
			"mac":    {},
			"subnet": {Type: "entity"},
		}},
		"internal": {Type: "invisible"},
	}

	first, _, err := NormalizeSpec(spec)
	if err != nil {
		t.Fatalf("first normalize failed: %v", err)
	}
	second, _, err := NormalizeSpec(authorForm(first))
	if err != nil {
		t.Fatalf("second normalize failed: %v", err)
	}

	if !reflect.DeepEqual(first.Fields(), second.Fields()) {
		t.Errorf("normalization is not a fixpoint:\nfirst:  %+v\nsecond: %+v", first.Fields(), second.Fields())
	}
}
