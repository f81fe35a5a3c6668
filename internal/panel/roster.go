package panel

import (
	"sort"
	"strings"
)

// TransitionGroup labels a unit by its platform-transition enrollment path
// across the study window: enrollment state in the pre-window years versus
// the final year.
type TransitionGroup string

const (
	GroupAlwaysIn    TransitionGroup = "ALWAYS_IN"
	GroupSwitcher    TransitionGroup = "SWITCHER"
	GroupEntryAbsent TransitionGroup = "ENTRY_ABSENT"
	GroupExit        TransitionGroup = "EXIT"
	GroupOther       TransitionGroup = "OTHER"
)

// RosterGroup is the per-unit transition classification exported alongside
// the universe for downstream difference-in-differences consumers.
type RosterGroup struct {
	UnitID    string
	PreState  string // SI / NO / ABSENT over the pre-window years
	PostState string // SI / NO / ABSENT in the final year
	Group     TransitionGroup
	Switcher  bool
}

// rosterCategoryFilter restricts the transition analysis to local-government
// units; the padron carries many other unit categories.
const rosterCategoryFilter = "MUNICIPALIDADES"

// ClassifyRoster derives transition groups from the padron feed, restricted
// to units in the municipal category. The pre state is SI if the unit was
// enrolled in any pre-window year, NO if it appeared unenrolled, ABSENT
// otherwise; the post state is the final-year enrollment value itself, ABSENT
// when the unit is missing from the final-year padron. An explicit final-year
// NO is not an exit: EXIT is reserved for units that disappear.
func ClassifyRoster(entries []RosterEntry, years []int) []RosterGroup {
	if len(years) == 0 {
		return nil
	}
	finalYear := years[len(years)-1]

	pre := make(map[string]string)  // SI beats NO beats ABSENT
	post := make(map[string]string) // literal final-year value
	seen := make(map[string]bool)

	for _, e := range entries {
		unit := NormalizeUnitID(e.UnitID)
		if unit == "" {
			continue
		}
		if !strings.Contains(strings.ToUpper(e.Category), rosterCategoryFilter) {
			continue
		}
		if !inWindow(e.Year, years) {
			continue
		}
		state := strings.ToUpper(strings.TrimSpace(e.Enrolled))
		seen[unit] = true

		if e.Year == finalYear {
			if state == "SI" || post[unit] == "" {
				post[unit] = state
			}
			continue
		}
		switch {
		case state == "SI":
			pre[unit] = "SI"
		case state == "NO" && pre[unit] != "SI":
			pre[unit] = "NO"
		}
	}

	groups := make([]RosterGroup, 0, len(seen))
	for unit := range seen {
		preState := pre[unit]
		if preState == "" {
			preState = "ABSENT"
		}
		postState := post[unit]
		if postState == "" {
			postState = "ABSENT"
		}

		g := RosterGroup{UnitID: unit, PreState: preState, PostState: postState}
		switch {
		case postState == "SI" && preState == "SI":
			g.Group = GroupAlwaysIn
		case postState == "SI" && preState == "NO":
			g.Group = GroupSwitcher
			g.Switcher = true
		case postState == "SI" && preState == "ABSENT":
			g.Group = GroupEntryAbsent
		case postState == "ABSENT" && preState == "SI":
			g.Group = GroupExit
		default:
			g.Group = GroupOther
		}
		groups = append(groups, g)
	}

	sort.Slice(groups, func(i, j int) bool { return groups[i].UnitID < groups[j].UnitID })
	return groups
}

func inWindow(year int, years []int) bool {
	for _, y := range years {
		if y == year {
			return true
		}
	}
	return false
}
