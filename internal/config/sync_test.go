// SPDX-License-Identifier: MPL-2.0

package config

import (
	"reflect"
	"slices"
	"strings"
	"testing"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
)

// These tests verify Go struct JSON tags match CUE schema field names.
// They catch misalignments at CI time, preventing silent parsing failures:
// a field renamed on one side but not the other would otherwise be dropped
// quietly during the decode-and-merge step.

// extractCUEFields extracts all field names from a CUE struct definition.
// It returns a map of field names to whether the field is optional.
// Nested struct fields are not included; only top-level fields of the given
// definition.
func extractCUEFields(t *testing.T, val cue.Value) map[string]bool {
	t.Helper()

	fields := make(map[string]bool)

	iter, err := val.Fields(cue.Definitions(false), cue.Optional(true))
	if err != nil {
		t.Fatalf("failed to iterate CUE fields: %v", err)
	}

	for iter.Next() {
		sel := iter.Selector()
		labelType := sel.LabelType()
		if labelType.IsHidden() || sel.IsDefinition() {
			continue
		}

		// The selector string may include the "?" suffix for optional fields.
		fieldName := strings.TrimSuffix(sel.String(), "?")
		fields[fieldName] = iter.IsOptional()
	}

	return fields
}

// extractGoJSONTags extracts all JSON field names from a Go struct using
// reflection. It returns a map of JSON tag names to whether the field has
// "omitempty". Fields with json:"-" are excluded.
func extractGoJSONTags(t *testing.T, typ reflect.Type) map[string]bool {
	t.Helper()

	for typ.Kind() == reflect.Pointer {
		typ = typ.Elem()
	}

	if typ.Kind() != reflect.Struct {
		t.Fatalf("expected struct type, got %s", typ.Kind())
	}

	fields := make(map[string]bool)

	for i := 0; i < typ.NumField(); i++ {
		field := typ.Field(i)
		if !field.IsExported() {
			continue
		}

		tag := field.Tag.Get("json")
		if tag == "" || tag == "-" {
			continue
		}

		// Parse the tag: "name,omitempty" or just "name"
		parts := strings.Split(tag, ",")
		name := parts[0]
		if name == "" || name == "-" {
			continue
		}

		fields[name] = slices.Contains(parts[1:], "omitempty")
	}

	return fields
}

// assertFieldsSync verifies that CUE schema fields and Go struct JSON tags
// are in sync:
//  1. Every CUE field has a corresponding Go JSON tag
//  2. Every Go JSON tag has a corresponding CUE field
//  3. Optional/omitempty alignment (logged, not a failure)
func assertFieldsSync(t *testing.T, structName string, cueFields, goFields map[string]bool) {
	t.Helper()

	for field, isOptional := range cueFields {
		hasOmitempty, exists := goFields[field]
		if !exists {
			t.Errorf("[%s] CUE field %q not found in Go struct (missing JSON tag)", structName, field)
			continue
		}
		if isOptional && !hasOmitempty {
			t.Logf("[%s] Note: CUE field %q is optional but Go field lacks omitempty tag", structName, field)
		}
	}

	for field := range goFields {
		if _, exists := cueFields[field]; !exists {
			t.Errorf("[%s] Go JSON tag %q not found in CUE schema (missing CUE field)", structName, field)
		}
	}
}

// getCUESchema compiles the embedded CUE schema.
func getCUESchema(t *testing.T) cue.Value {
	t.Helper()

	schema := cuecontext.New().CompileString(configSchema)
	if schema.Err() != nil {
		t.Fatalf("failed to compile CUE schema: %v", schema.Err())
	}

	return schema
}

// lookupDefinition looks up a CUE definition by path (e.g., "#Config").
func lookupDefinition(t *testing.T, schema cue.Value, defPath string) cue.Value {
	t.Helper()

	def := schema.LookupPath(cue.ParsePath(defPath))
	if def.Err() != nil {
		t.Fatalf("failed to lookup CUE definition %s: %v", defPath, def.Err())
	}

	return def
}

// TestConfigSchemaSync verifies the Config Go struct matches the #Config CUE
// definition.
func TestConfigSchemaSync(t *testing.T) {
	schema := getCUESchema(t)
	cueFields := extractCUEFields(t, lookupDefinition(t, schema, "#Config"))
	goFields := extractGoJSONTags(t, reflect.TypeFor[Config]())

	assertFieldsSync(t, "Config", cueFields, goFields)
}

// TestRegistryConfigSchemaSync verifies RegistryConfig matches #RegistryConfig.
func TestRegistryConfigSchemaSync(t *testing.T) {
	schema := getCUESchema(t)
	cueFields := extractCUEFields(t, lookupDefinition(t, schema, "#RegistryConfig"))
	goFields := extractGoJSONTags(t, reflect.TypeFor[RegistryConfig]())

	assertFieldsSync(t, "RegistryConfig", cueFields, goFields)
}

// TestManagerConfigSchemaSync verifies ManagerConfig matches #ManagerConfig.
func TestManagerConfigSchemaSync(t *testing.T) {
	schema := getCUESchema(t)
	cueFields := extractCUEFields(t, lookupDefinition(t, schema, "#ManagerConfig"))
	goFields := extractGoJSONTags(t, reflect.TypeFor[ManagerConfig]())

	assertFieldsSync(t, "ManagerConfig", cueFields, goFields)
}

// TestMachineConfigSchemaSync verifies MachineConfig matches #MachineConfig.
func TestMachineConfigSchemaSync(t *testing.T) {
	schema := getCUESchema(t)
	cueFields := extractCUEFields(t, lookupDefinition(t, schema, "#MachineConfig"))
	goFields := extractGoJSONTags(t, reflect.TypeFor[MachineConfig]())

	assertFieldsSync(t, "MachineConfig", cueFields, goFields)
}

// TestSkeletonsConfigSchemaSync verifies SkeletonsConfig matches #SkeletonsConfig.
func TestSkeletonsConfigSchemaSync(t *testing.T) {
	schema := getCUESchema(t)
	cueFields := extractCUEFields(t, lookupDefinition(t, schema, "#SkeletonsConfig"))
	goFields := extractGoJSONTags(t, reflect.TypeFor[SkeletonsConfig]())

	assertFieldsSync(t, "SkeletonsConfig", cueFields, goFields)
}

// TestUIConfigSchemaSync verifies UIConfig matches #UIConfig.
func TestUIConfigSchemaSync(t *testing.T) {
	schema := getCUESchema(t)
	cueFields := extractCUEFields(t, lookupDefinition(t, schema, "#UIConfig"))
	goFields := extractGoJSONTags(t, reflect.TypeFor[UIConfig]())

	assertFieldsSync(t, "UIConfig", cueFields, goFields)
}

// TestSchemaAcceptsGeneratedDefaults unifies the generated default config
// with the schema directly, independent of the Viper merge path.
func TestSchemaAcceptsGeneratedDefaults(t *testing.T) {
	ctx := cuecontext.New()
	schema := ctx.CompileString(configSchema)
	if schema.Err() != nil {
		t.Fatalf("failed to compile CUE schema: %v", schema.Err())
	}

	generated := ctx.CompileString(GenerateCUE(DefaultConfig()))
	if generated.Err() != nil {
		t.Fatalf("generated config does not compile: %v", generated.Err())
	}

	unified := schema.LookupPath(cue.ParsePath("#Config")).Unify(generated)
	if err := unified.Validate(cue.Concrete(false)); err != nil {
		t.Errorf("generated defaults should satisfy the schema, got: %v", err)
	}
}
