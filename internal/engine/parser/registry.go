package parser

import (
	"fmt"
	"path"
	"sort"
	"strings"

	"symbolicator/internal/engine/symbol"
)

// DeclarationRule says how a node kind declares a name.
type DeclarationRule struct {
	NameField string
	Kind      symbol.Kind
	// Scope makes nested declarations use this declaration as container.
	Scope bool
	// ScopeOnly opens a container without declaring anything (Rust impl blocks).
	ScopeOnly bool
	// ReceiverField names the child holding a Go method receiver; its type
	// becomes the container.
	ReceiverField string
	// MultiName declares every sibling of the name node with the same kind,
	// as in `var a, b int`.
	MultiName bool
}

type LanguageSpec struct {
	Name         string
	Extensions   []string
	Filenames    []string
	Enabled      bool
	Declarations map[string]DeclarationRule
	Identifiers  []string
}

type LanguageOverride struct {
	Enabled    *bool
	Extensions []string
}

var (
	jsDeclarations = map[string]DeclarationRule{
		"function_declaration":           {NameField: "name", Kind: symbol.KindFunction, Scope: true},
		"generator_function_declaration": {NameField: "name", Kind: symbol.KindFunction, Scope: true},
		"class_declaration":              {NameField: "name", Kind: symbol.KindClass, Scope: true},
		"method_definition":              {NameField: "name", Kind: symbol.KindMethod, Scope: true},
		"variable_declarator":            {NameField: "name", Kind: symbol.KindVariable},
		"field_definition":               {NameField: "property", Kind: symbol.KindField},
	}
	tsDeclarations = merge(jsDeclarations, map[string]DeclarationRule{
		"abstract_class_declaration": {NameField: "name", Kind: symbol.KindClass, Scope: true},
		"interface_declaration":      {NameField: "name", Kind: symbol.KindInterface, Scope: true},
		"type_alias_declaration":     {NameField: "name", Kind: symbol.KindType},
		"enum_declaration":           {NameField: "name", Kind: symbol.KindType, Scope: true},
		"method_signature":           {NameField: "name", Kind: symbol.KindMethod},
		"abstract_method_signature":  {NameField: "name", Kind: symbol.KindMethod},
		"public_field_definition":    {NameField: "name", Kind: symbol.KindField},
		"property_signature":         {NameField: "name", Kind: symbol.KindField},
	})
)

func DefaultLanguageRegistry() map[string]LanguageSpec {
	return map[string]LanguageSpec{
		"go": {
			Name:       "go",
			Extensions: []string{".go"},
			Enabled:    true,
			Declarations: map[string]DeclarationRule{
				"function_declaration": {NameField: "name", Kind: symbol.KindFunction, Scope: true},
				"method_declaration":   {NameField: "name", Kind: symbol.KindMethod, Scope: true, ReceiverField: "receiver"},
				"type_spec":            {NameField: "name", Kind: symbol.KindType, Scope: true},
				"type_alias":           {NameField: "name", Kind: symbol.KindType},
				"const_spec":           {NameField: "name", Kind: symbol.KindConstant, MultiName: true},
				"var_spec":             {NameField: "name", Kind: symbol.KindVariable, MultiName: true},
				"field_declaration":    {NameField: "name", Kind: symbol.KindField, MultiName: true},
				"method_elem":          {NameField: "name", Kind: symbol.KindMethod},
			},
			Identifiers: []string{"identifier", "type_identifier", "field_identifier"},
		},
		"java": {
			Name:       "java",
			Extensions: []string{".java"},
			Enabled:    true,
			Declarations: map[string]DeclarationRule{
				"class_declaration":       {NameField: "name", Kind: symbol.KindClass, Scope: true},
				"record_declaration":      {NameField: "name", Kind: symbol.KindClass, Scope: true},
				"interface_declaration":   {NameField: "name", Kind: symbol.KindInterface, Scope: true},
				"enum_declaration":        {NameField: "name", Kind: symbol.KindType, Scope: true},
				"method_declaration":      {NameField: "name", Kind: symbol.KindMethod, Scope: true},
				"constructor_declaration": {NameField: "name", Kind: symbol.KindMethod, Scope: true},
				"variable_declarator":     {NameField: "name", Kind: symbol.KindVariable},
				"enum_constant":           {NameField: "name", Kind: symbol.KindConstant},
			},
			Identifiers: []string{"identifier", "type_identifier"},
		},
		"javascript": {
			Name:         "javascript",
			Extensions:   []string{".js", ".cjs", ".mjs", ".jsx"},
			Enabled:      true,
			Declarations: jsDeclarations,
			Identifiers:  []string{"identifier", "property_identifier"},
		},
		"python": {
			Name:       "python",
			Extensions: []string{".py"},
			Enabled:    true,
			Declarations: map[string]DeclarationRule{
				"function_definition": {NameField: "name", Kind: symbol.KindFunction, Scope: true},
				"class_definition":    {NameField: "name", Kind: symbol.KindClass, Scope: true},
			},
			Identifiers: []string{"identifier"},
		},
		"rust": {
			Name:       "rust",
			Extensions: []string{".rs"},
			Enabled:    true,
			Declarations: map[string]DeclarationRule{
				"function_item":           {NameField: "name", Kind: symbol.KindFunction, Scope: true},
				"function_signature_item": {NameField: "name", Kind: symbol.KindMethod},
				"struct_item":             {NameField: "name", Kind: symbol.KindType, Scope: true},
				"enum_item":               {NameField: "name", Kind: symbol.KindType, Scope: true},
				"union_item":              {NameField: "name", Kind: symbol.KindType, Scope: true},
				"trait_item":              {NameField: "name", Kind: symbol.KindInterface, Scope: true},
				"type_item":               {NameField: "name", Kind: symbol.KindType},
				"const_item":              {NameField: "name", Kind: symbol.KindConstant},
				"static_item":             {NameField: "name", Kind: symbol.KindVariable},
				"mod_item":                {NameField: "name", Kind: symbol.KindModule, Scope: true},
				"field_declaration":       {NameField: "name", Kind: symbol.KindField},
				"enum_variant":            {NameField: "name", Kind: symbol.KindConstant},
				"impl_item":               {NameField: "type", ScopeOnly: true},
			},
			Identifiers: []string{"identifier", "type_identifier", "field_identifier"},
		},
		"tsx": {
			Name:         "tsx",
			Extensions:   []string{".tsx"},
			Enabled:      true,
			Declarations: tsDeclarations,
			Identifiers:  []string{"identifier", "property_identifier", "type_identifier"},
		},
		"typescript": {
			Name:         "typescript",
			Extensions:   []string{".ts", ".mts", ".cts"},
			Enabled:      true,
			Declarations: tsDeclarations,
			Identifiers:  []string{"identifier", "property_identifier", "type_identifier"},
		},
	}
}

// BuildLanguageRegistry applies config overrides to the defaults. Unknown
// languages and extensions claimed by two enabled languages are rejected.
func BuildLanguageRegistry(overrides map[string]LanguageOverride) (map[string]LanguageSpec, error) {
	registry := cloneLanguageRegistry(DefaultLanguageRegistry())
	for language, override := range overrides {
		spec, ok := registry[language]
		if !ok {
			return nil, fmt.Errorf("unknown language override %q", language)
		}
		if override.Enabled != nil {
			spec.Enabled = *override.Enabled
		}
		if len(override.Extensions) > 0 {
			spec.Extensions = normalizeExtensions(override.Extensions)
		}
		registry[language] = spec
	}

	if err := validateLanguageRegistry(registry); err != nil {
		return nil, err
	}
	return registry, nil
}

func validateLanguageRegistry(registry map[string]LanguageSpec) error {
	extOwner := make(map[string]string)
	filenameOwner := make(map[string]string)

	for _, id := range sortedRegistryIDs(registry) {
		spec := registry[id]
		if !spec.Enabled {
			continue
		}
		for _, ext := range normalizeExtensions(spec.Extensions) {
			if existing, ok := extOwner[ext]; ok && existing != id {
				return fmt.Errorf("duplicate extension %q owned by %q and %q", ext, existing, id)
			}
			extOwner[ext] = id
		}
		for _, filename := range normalizeFilenames(spec.Filenames) {
			if existing, ok := filenameOwner[filename]; ok && existing != id {
				return fmt.Errorf("duplicate filename %q owned by %q and %q", filename, existing, id)
			}
			filenameOwner[filename] = id
		}
	}
	return nil
}

func cloneLanguageRegistry(in map[string]LanguageSpec) map[string]LanguageSpec {
	out := make(map[string]LanguageSpec, len(in))
	for id, spec := range in {
		copySpec := spec
		copySpec.Extensions = append([]string(nil), spec.Extensions...)
		copySpec.Filenames = append([]string(nil), spec.Filenames...)
		copySpec.Identifiers = append([]string(nil), spec.Identifiers...)
		copySpec.Declarations = merge(spec.Declarations, nil)
		out[id] = copySpec
	}
	return out
}

func merge(base, extra map[string]DeclarationRule) map[string]DeclarationRule {
	out := make(map[string]DeclarationRule, len(base)+len(extra))
	for kind, rule := range base {
		out[kind] = rule
	}
	for kind, rule := range extra {
		out[kind] = rule
	}
	return out
}

func normalizeExtensions(values []string) []string {
	seen := make(map[string]bool)
	out := make([]string, 0, len(values))
	for _, value := range values {
		raw := strings.TrimSpace(strings.ToLower(value))
		if raw == "" {
			continue
		}
		if !strings.HasPrefix(raw, ".") {
			raw = "." + raw
		}
		if seen[raw] {
			continue
		}
		seen[raw] = true
		out = append(out, raw)
	}
	sort.Strings(out)
	return out
}

func normalizeFilenames(values []string) []string {
	seen := make(map[string]bool)
	out := make([]string, 0, len(values))
	for _, value := range values {
		raw := strings.TrimSpace(strings.ToLower(path.Base(value)))
		if raw == "" || seen[raw] {
			continue
		}
		seen[raw] = true
		out = append(out, raw)
	}
	sort.Strings(out)
	return out
}

func sortedRegistryIDs(registry map[string]LanguageSpec) []string {
	ids := make([]string, 0, len(registry))
	for id := range registry {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}
