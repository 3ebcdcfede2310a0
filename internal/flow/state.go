// Package flow models the multi-step input conversations of the bot.
//
// A session holds at most one State. Every concrete state is a plain struct
// carrying the input gathered so far; nothing is persisted before the final
// step commits.
package flow

import (
	"github.com/shopspring/decimal"

	"github.com/Kerhoff/familybudget/internal/models"
)

// State is the closed set of in-progress flows.
type State interface {
	// Name identifies the flow in logs.
	Name() string
	isState()
}

// Step is the position inside a multi-step flow.
type Step int

const (
	StepFamily Step = iota
	StepAmount
	StepCategory
	StepDescription
	StepKind
	StepName
)

// CreateFamily waits for the new family's name.
type CreateFamily struct{}

// JoinFamily waits for an invite code.
type JoinFamily struct{}

// RenameFamily waits for the family's new name.
type RenameFamily struct {
	FamilyID int64
}

// AddTransaction collects an expense or an income:
// family -> amount -> category -> description.
type AddTransaction struct {
	Kind       models.Kind
	Step       Step
	FamilyID   int64
	Amount     decimal.Decimal
	CategoryID int64
}

// AddCategory collects a custom category: kind -> name.
type AddCategory struct {
	FamilyID int64
	Step     Step
	Kind     models.Kind
}

// EditCategory waits for a custom category's new name.
type EditCategory struct {
	FamilyID   int64
	CategoryID int64
}

// SettingsField is the preference a SettingsEdit flow is changing.
type SettingsField int

const (
	FieldTimezone SettingsField = iota
	FieldSummaryTime
)

// SettingsEdit waits for a free-text preference value.
type SettingsEdit struct {
	Field SettingsField
}

// Search waits for the text to look for in descriptions.
type Search struct {
	FamilyID int64
}

// StatsRange waits for an explicit date range.
type StatsRange struct {
	FamilyID int64
}

// AddTemplate collects an expense template: name -> category -> amount -> description.
type AddTemplate struct {
	FamilyID     int64
	Step         Step
	TemplateName string
	CategoryID   int64
	Amount       decimal.Decimal
}

// AdminSearchMode selects what the admin search matches.
type AdminSearchMode string

const (
	AdminSearchByID       AdminSearchMode = "id"
	AdminSearchByName     AdminSearchMode = "name"
	AdminSearchByUsername AdminSearchMode = "username"
)

// AdminSearch waits for the admin panel's search text.
type AdminSearch struct {
	Mode AdminSearchMode
}

func (s AddTransaction) Name() string {
	return "add_" + string(s.Kind)
}

func (CreateFamily) Name() string { return "create_family" }
func (JoinFamily) Name() string   { return "join_family" }
func (RenameFamily) Name() string { return "rename_family" }
func (AddCategory) Name() string  { return "add_category" }
func (EditCategory) Name() string { return "edit_category" }
func (SettingsEdit) Name() string { return "settings_edit" }
func (Search) Name() string       { return "search" }
func (StatsRange) Name() string   { return "stats_range" }
func (AddTemplate) Name() string  { return "add_template" }
func (AdminSearch) Name() string  { return "admin_search" }

func (CreateFamily) isState()   {}
func (JoinFamily) isState()     {}
func (RenameFamily) isState()   {}
func (AddTransaction) isState() {}
func (AddCategory) isState()    {}
func (EditCategory) isState()   {}
func (SettingsEdit) isState()   {}
func (Search) isState()         {}
func (StatsRange) isState()     {}
func (AddTemplate) isState()    {}
func (AdminSearch) isState()    {}
