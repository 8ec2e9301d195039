package provider

import (
	"strconv"

	"github.com/drewdunne/scmpoll/internal/config"
)

// Field describes one configuration property shown by the orchestrator.
type Field struct {
	DisplayName    string `json:"display-name"`
	DefaultValue   string `json:"default-value"`
	PartOfIdentity bool   `json:"part-of-identity"`
	Required       bool   `json:"required"`
	Secure         bool   `json:"secure"`
	DisplayOrder   string `json:"display-order"`
}

// FieldSet maps configuration keys to their field definitions.
type FieldSet map[string]Field

// NamedField is a field together with its key, used to keep group order.
type NamedField struct {
	Key string
	Field
}

// FieldGroup is an ordered group of fields attached by capability.
type FieldGroup []NamedField

// BaseFields is the group every provider exposes.
var BaseFields = FieldGroup{
	{Key: config.KeyURL, Field: Field{DisplayName: "URL", PartOfIdentity: true, Required: true}},
	{Key: config.KeyUsername, Field: Field{DisplayName: "Username"}},
	{Key: config.KeyPassword, Field: Field{DisplayName: "Password", Secure: true}},
	{Key: config.KeyDefaultBranch, Field: Field{DisplayName: "Default Branch", DefaultValue: config.DefaultBranch}},
	{Key: config.KeyShallowClone, Field: Field{DisplayName: "Default Clone Behavior", DefaultValue: "false"}},
}

// APIFields is attached to providers that query a REST API.
var APIFields = FieldGroup{
	{Key: config.KeyAPIURL, Field: Field{DisplayName: "API URL", PartOfIdentity: true}},
	{Key: config.KeyProjectName, Field: Field{DisplayName: "Project name", PartOfIdentity: true}},
}

// FilterFields is attached to providers that support branch filtering.
var FilterFields = FieldGroup{
	{Key: config.KeyBranchWhitelist, Field: Field{DisplayName: "Whitelisted branches", PartOfIdentity: true}},
	{Key: config.KeyBranchBlacklist, Field: Field{DisplayName: "Blacklisted branches", PartOfIdentity: true}},
}

// ComposeFields merges groups into a FieldSet, numbering display order
// across all groups.
func ComposeFields(groups ...FieldGroup) FieldSet {
	set := make(FieldSet)
	order := 0
	for _, g := range groups {
		for _, f := range g {
			field := f.Field
			field.DisplayOrder = strconv.Itoa(order)
			set[f.Key] = field
			order++
		}
	}
	return set
}
