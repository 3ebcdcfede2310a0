// Package callback defines the typed actions carried in inline keyboard
// callback data and their wire encoding "name:arg:arg".
package callback

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// MaxDataLen is Telegram's limit for callback data.
const MaxDataLen = 64

// Action is the tag of a callback. Handlers are looked up by Action in a
// fixed-size table, so every value below actionCount needs a handler.
type Action uint8

const (
	Unknown Action = iota

	// navigation
	Back
	Home
	Cancel
	Noop
	Help

	// families
	Families
	FamilyCreate
	FamilyJoin
	FamilyView
	FamilyRename
	FamilyRegenerate
	FamilyRemoveMember
	FamilyLeave
	FamilyDelete
	FamilyDeleteConfirm

	// transactions
	ExpenseAdd
	IncomeAdd
	Recent
	Search
	Report

	// flow input
	PickFamily
	PickCategory
	PickKind
	Skip

	// statistics
	Stats
	StatsPeriod
	StatsRange

	// categories
	Categories
	CategoryAdd
	CategoryEdit
	CategoryDelete
	CategoryMove

	// templates
	Templates
	TemplateUse
	TemplateAdd
	TemplateDelete

	// settings
	Settings
	SetCurrency
	SetTimezone
	SetDateFormat
	ToggleSummary
	SetSummaryTime
	ToggleNotifications

	// admin bot; keep these last, see IsAdmin
	AdminStats
	AdminFamilies
	AdminFamily
	AdminSearch
	AdminSearchMode
	AdminTops
	AdminTop

	actionCount
)

// Count is the number of defined actions including Unknown.
const Count = int(actionCount)

var names = [actionCount]string{
	Unknown:             "",
	Back:                "back",
	Home:                "home",
	Cancel:              "cancel",
	Noop:                "noop",
	Help:                "help",
	Families:            "fams",
	FamilyCreate:        "fam_new",
	FamilyJoin:          "fam_join",
	FamilyView:          "fam",
	FamilyRename:        "fam_ren",
	FamilyRegenerate:    "fam_code",
	FamilyRemoveMember:  "fam_rm",
	FamilyLeave:         "fam_leave",
	FamilyDelete:        "fam_del",
	FamilyDeleteConfirm: "fam_del_ok",
	ExpenseAdd:          "exp_add",
	IncomeAdd:           "inc_add",
	Recent:              "recent",
	Search:              "search",
	Report:              "report",
	PickFamily:          "pick_fam",
	PickCategory:        "pick_cat",
	PickKind:            "pick_kind",
	Skip:                "skip",
	Stats:               "stats",
	StatsPeriod:         "stats_p",
	StatsRange:          "stats_r",
	Categories:          "cats",
	CategoryAdd:         "cat_add",
	CategoryEdit:        "cat_ren",
	CategoryDelete:      "cat_del",
	CategoryMove:        "cat_mv",
	Templates:           "tpls",
	TemplateUse:         "tpl",
	TemplateAdd:         "tpl_add",
	TemplateDelete:      "tpl_del",
	Settings:            "set",
	SetCurrency:         "set_cur",
	SetTimezone:         "set_tz",
	SetDateFormat:       "set_df",
	ToggleSummary:       "set_sum",
	SetSummaryTime:      "set_sumt",
	ToggleNotifications: "set_ntf",
	AdminStats:          "a_stats",
	AdminFamilies:       "a_fams",
	AdminFamily:         "a_fam",
	AdminSearch:         "a_search",
	AdminSearchMode:     "a_smode",
	AdminTops:           "a_tops",
	AdminTop:            "a_top",
}

var byName = func() map[string]Action {
	m := make(map[string]Action, len(names))
	for a, n := range names {
		if n != "" {
			m[n] = Action(a)
		}
	}
	return m
}()

func (a Action) String() string {
	if int(a) < len(names) {
		return names[a]
	}
	return "action(" + strconv.Itoa(int(a)) + ")"
}

// IsAdmin reports whether the action belongs to the admin bot.
func (a Action) IsAdmin() bool {
	return a >= AdminStats && a < actionCount
}

// IsFlowInput reports whether the action answers a prompt of an active flow
// rather than opening a screen.
func (a Action) IsFlowInput() bool {
	switch a {
	case PickFamily, PickCategory, PickKind, Skip, Cancel:
		return true
	}
	return false
}

var ErrMalformed = errors.New("malformed callback data")

// Data is a decoded callback.
type Data struct {
	Action Action
	Args   []string
}

// New encodes an action with its arguments.
func New(a Action, args ...any) string {
	parts := make([]string, 0, len(args)+1)
	parts = append(parts, a.String())
	for _, arg := range args {
		parts = append(parts, fmt.Sprint(arg))
	}
	return strings.Join(parts, ":")
}

// Parse decodes callback data produced by New.
func Parse(s string) (Data, error) {
	if s == "" || len(s) > MaxDataLen {
		return Data{}, ErrMalformed
	}
	parts := strings.Split(s, ":")
	a, ok := byName[parts[0]]
	if !ok {
		return Data{}, fmt.Errorf("%w: unknown action %q", ErrMalformed, parts[0])
	}
	return Data{Action: a, Args: parts[1:]}, nil
}

// String re-encodes the data.
func (d Data) String() string {
	args := make([]any, len(d.Args))
	for i, a := range d.Args {
		args[i] = a
	}
	return New(d.Action, args...)
}

// Arg returns the i-th argument or "".
func (d Data) Arg(i int) string {
	if i < 0 || i >= len(d.Args) {
		return ""
	}
	return d.Args[i]
}

// Int returns the i-th argument as an int64.
func (d Data) Int(i int) (int64, bool) {
	v, err := strconv.ParseInt(d.Arg(i), 10, 64)
	if err != nil {
		return 0, false
	}
	return v, true
}
