// Package report renders the outcome of a scenario run: the final
// registry as a table or JSON, and the recent activity trail with
// word-level diffs on update records.
package report

import (
	"encoding/json"
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"github.com/zjrosen/frontdesk/desk"
	"github.com/zjrosen/frontdesk/observe"
)

// WriteTable renders items as an aligned text table.
func WriteTable(w io.Writer, items []desk.Item[map[string]any]) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tCHECKED IN\tDATA\tMETA")
	for _, item := range items {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n",
			item.ID,
			item.Timestamp.Format(time.RFC3339),
			compactJSON(item.Data),
			compactJSON(item.Meta))
	}
	return tw.Flush()
}

// ItemDTO is the JSON projection of one registered item.
type ItemDTO struct {
	ID        string         `json:"id"`
	Data      map[string]any `json:"data,omitempty"`
	Timestamp time.Time      `json:"timestamp"`
	Meta      map[string]any `json:"meta,omitempty"`
}

// WriteJSON renders items as indented JSON.
func WriteJSON(w io.Writer, items []desk.Item[map[string]any]) error {
	dtos := make([]ItemDTO, len(items))
	for i, item := range items {
		dtos[i] = ItemDTO{
			ID:        string(item.ID),
			Data:      item.Data,
			Timestamp: item.Timestamp,
			Meta:      item.Meta,
		}
	}
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(dtos)
}

// WriteTrail renders observability records as an activity table, one
// line per record in emission order.
func WriteTrail(w io.Writer, records []observe.Record) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "TIME\tEVENT\tSUBJECT\tDETAIL")
	for _, r := range records {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n",
			r.Timestamp.Format("15:04:05.000"),
			r.Type,
			subject(r),
			detail(r))
	}
	return tw.Flush()
}

func subject(r observe.Record) string {
	if r.ChildID != "" {
		return r.ChildID
	}
	if r.PluginName != "" {
		return r.PluginName
	}
	return "-"
}

func detail(r observe.Record) string {
	switch r.Type {
	case observe.TypeUpdate:
		return DiffWords(compactJSON(r.PreviousData), compactJSON(r.Data))
	case observe.TypeClear:
		return fmt.Sprintf("removed %d items", r.RegistrySize)
	case observe.TypeHook:
		return fmt.Sprintf("%s %.3fms", r.Hook, r.DurationMS)
	case observe.TypePluginInstall:
		return "installed"
	case observe.TypePluginDispose:
		return "disposed"
	case observe.TypeProviderError:
		return r.Error
	case observe.TypeStaleDrop:
		return "stale result dropped"
	default:
		return compactJSON(r.Data)
	}
}

// compactJSON renders a value on one line. Keys come out sorted, which
// keeps diffs between successive payloads meaningful.
func compactJSON(v any) string {
	if v == nil {
		return "-"
	}
	if m, ok := v.(map[string]any); ok && len(m) == 0 {
		return "-"
	}
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Sprintf("%v", v)
	}
	return string(data)
}
