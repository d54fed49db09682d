package cmd

import (
	"fmt"
	"slices"
	"sort"
	"strings"
	"sync"

	"github.com/zjrosen/frontdesk/desk"
)

// auditor is an advisory plugin: it notes check-ins arriving without
// the required data fields but never vetoes them. Findings are exposed
// through the "auditFindings" computed property.
type auditor struct {
	required []string

	mu       sync.Mutex
	findings []string
}

func newAuditor(required []string) *auditor {
	return &auditor{required: required}
}

// Plugin returns the desk plugin backed by this auditor.
func (a *auditor) Plugin() desk.Plugin[map[string]any] {
	return desk.Plugin[map[string]any]{
		Name:    "auditor",
		Version: "1.0.0",
		OnCheckIn: func(item desk.Item[map[string]any]) {
			var missing []string
			for _, field := range a.required {
				if _, ok := item.Data[field]; !ok {
					missing = append(missing, field)
				}
			}
			if len(missing) == 0 {
				return
			}
			a.mu.Lock()
			a.findings = append(a.findings,
				fmt.Sprintf("%s: missing %s", item.ID, strings.Join(missing, ", ")))
			a.mu.Unlock()
		},
		Computed: map[string]desk.Computed[map[string]any]{
			"auditFindings": func(*desk.Desk[map[string]any]) any {
				return a.Findings()
			},
		},
	}
}

// Findings returns a copy of everything flagged so far.
func (a *auditor) Findings() []string {
	a.mu.Lock()
	defer a.mu.Unlock()
	return slices.Clone(a.findings)
}

// gatekeeper builds a plugin that vetoes check-ins for reserved ids.
// The reserved set is exposed through the "reservedIds" method.
func gatekeeper(reserved []string) desk.Plugin[map[string]any] {
	ids := make(map[desk.Key]bool, len(reserved))
	for _, id := range reserved {
		ids[desk.Key(id)] = true
	}

	return desk.Plugin[map[string]any]{
		Name:    "gatekeeper",
		Version: "1.0.0",
		BeforeCheckIn: func(id desk.Key, _ map[string]any) bool {
			return !ids[id]
		},
		Methods: map[string]desk.Method[map[string]any]{
			"reservedIds": func(*desk.Desk[map[string]any], ...any) (any, error) {
				list := make([]string, 0, len(ids))
				for id := range ids {
					list = append(list, string(id))
				}
				sort.Strings(list)
				return list, nil
			},
		},
	}
}
