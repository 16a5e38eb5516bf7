package leave

import (
	"maps"
	"slices"
)

// AllowanceTable gives the yearly allotment used when a balance row is
// created lazily. An empty ByType accepts any leave type at Default.
type AllowanceTable struct {
	Default float64
	ByType  map[string]float64
}

func NewAllowanceTable(defaultDays float64, byType map[string]float64) AllowanceTable {
	return AllowanceTable{Default: defaultDays, ByType: byType}
}

func (a AllowanceTable) For(leaveType string) float64 {
	if days, ok := a.ByType[leaveType]; ok {
		return days
	}
	return a.Default
}

// Known reports whether leaveType may be requested.
func (a AllowanceTable) Known(leaveType string) bool {
	if len(a.ByType) == 0 {
		return true
	}
	_, ok := a.ByType[leaveType]
	return ok
}

// Types returns the configured leave types in name order.
func (a AllowanceTable) Types() []string {
	return slices.Sorted(maps.Keys(a.ByType))
}
