package identity

import (
	"reflect"
	"testing"
)

func TestVariants(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want []string
	}{
		{"two words", "Ada Lovelace", []string{"Ada Lovelace", "Lovelace, Ada", "Lovelace Ada"}},
		{"comma form", "Lovelace, Ada", []string{"Lovelace, Ada", "Ada Lovelace", "Lovelace Ada"}},
		{"single word", "Ada", []string{"Ada"}},
		{"three words", "Ada King Lovelace", []string{"Ada King Lovelace"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Variants(tt.in); !reflect.DeepEqual(got, tt.want) {
				t.Errorf("Variants(%q) = %v, want %v", tt.in, got, tt.want)
			}
		})
	}
}

func TestResolverLookup(t *testing.T) {
	r := NewResolver(
		map[string]string{"Ada Lovelace": "social:ada"},
		map[string]string{"Grace Hopper": "person:grace"},
	)

	tests := []struct {
		name   string
		lookup func(string) (string, bool)
		in     string
		want   string
		found  bool
	}{
		{"creator literal", r.Creator, "Ada Lovelace", "social:ada", true},
		{"creator reversed", r.Creator, "Lovelace Ada", "social:ada", true},
		{"creator comma", r.Creator, "Lovelace, Ada", "social:ada", true},
		{"creator case insensitive", r.Creator, "ada lovelace", "social:ada", true},
		{"creator miss", r.Creator, "Alan Turing", "", false},
		{"assignee literal", r.Assignee, "Grace Hopper", "person:grace", true},
		{"assignee reversed", r.Assignee, "Hopper, Grace", "person:grace", true},
		{"assignee not in creator table", r.Creator, "Grace Hopper", "", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := tt.lookup(tt.in)
			if got != tt.want || ok != tt.found {
				t.Errorf("lookup(%q) = %q,%v want %q,%v", tt.in, got, ok, tt.want, tt.found)
			}
		})
	}
}

func TestParseTable(t *testing.T) {
	table, err := ParseTable(`{"Ada Lovelace": "social:ada", "Grace Hopper": "person:grace"}`)
	if err != nil {
		t.Fatalf("ParseTable: %v", err)
	}
	if len(table) != 2 || table["Ada Lovelace"] != "social:ada" {
		t.Errorf("table = %v", table)
	}

	if table, err := ParseTable("  "); err != nil || len(table) != 0 {
		t.Errorf("blank input = %v, %v; want empty table", table, err)
	}
	if _, err := ParseTable(`["not", "an", "object"]`); err == nil {
		t.Error("expected error for a non-object value")
	}
}

func TestAssignment(t *testing.T) {
	if !Unset().IsUnset() {
		t.Error("Unset should report unset")
	}
	if !Clear().IsClear() || Clear().IsUnset() {
		t.Error("Clear should report clear, not unset")
	}
	id, ok := Set("person:x").ID()
	if !ok || id != "person:x" {
		t.Errorf("Set.ID() = %q,%v", id, ok)
	}
	if _, ok := Clear().ID(); ok {
		t.Error("Clear.ID() should not report a person")
	}
}
