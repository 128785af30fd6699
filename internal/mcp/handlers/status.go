package handlers

import (
	"context"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/btouchard/nbnotify/internal/notify"
	"github.com/btouchard/nbnotify/internal/store"
)

const (
	defaultStatusLimit = 10
	maxStatusLimit     = 100
)

// PendingLookup reads pending registrations.
type PendingLookup interface {
	Lookup(id string) (notify.Request, bool)
	IDs() []string
}

// DeliveryLog reads the delivery log.
type DeliveryLog interface {
	ListDeliveries(f store.DeliveryFilter) ([]store.DeliveryRecord, error)
	CountByResult(since time.Time) (map[string]int, error)
}

// Status returns a handler reporting pending registrations and recent
// deliveries, optionally for a single cell. deliveries may be nil.
func Status(pending PendingLookup, deliveries DeliveryLog) server.ToolHandlerFunc {
	return func(_ context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		args := req.GetArguments()
		cellID, _ := args["cell_id"].(string)

		limit := defaultStatusLimit
		if l, ok := args["limit"].(float64); ok && l > 0 {
			limit = int(l)
			if limit > maxStatusLimit {
				limit = maxStatusLimit
			}
		}

		var b strings.Builder

		if cellID != "" {
			if r, ok := pending.Lookup(cellID); ok {
				fmt.Fprintf(&b, "Cell %s: pending (mode: %s", cellID, r.Mode)
				if r.Threshold > 0 {
					fmt.Fprintf(&b, ", threshold: %s", r.Threshold)
				}
				b.WriteString(")\n")
			} else {
				fmt.Fprintf(&b, "Cell %s: not pending\n", cellID)
			}
		} else {
			ids := pending.IDs()
			slices.Sort(ids)
			fmt.Fprintf(&b, "Pending registrations: %d\n", len(ids))
			for _, id := range ids {
				fmt.Fprintf(&b, "- %s\n", id)
			}
		}

		if deliveries == nil {
			return mcp.NewToolResultText(b.String()), nil
		}

		if counts, err := deliveries.CountByResult(time.Now().Add(-24 * time.Hour)); err == nil {
			fmt.Fprintf(&b, "Last 24h: %d sent, %d failed, %d suppressed\n",
				counts[notify.ResultSent], counts[notify.ResultFailed], counts[notify.ResultSuppressed])
		}

		records, err := deliveries.ListDeliveries(store.DeliveryFilter{CellID: cellID, Limit: limit})
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("Failed to read deliveries: %s", err)), nil
		}

		if len(records) == 0 {
			b.WriteString("\nNo recorded deliveries.")
			return mcp.NewToolResultText(b.String()), nil
		}

		b.WriteString("\nRecent deliveries:\n")
		for _, d := range records {
			channel := d.Channel
			if channel == "" {
				channel = "-"
			}
			fmt.Fprintf(&b, "- %s  %s  %s  %s via %s: %s",
				d.CreatedAt.Format("2006-01-02 15:04:05"), d.CellID, d.Status, d.Trigger, channel, d.Result)
			if d.Error != "" {
				fmt.Fprintf(&b, " (%s)", d.Error)
			}
			b.WriteString("\n")
		}

		return mcp.NewToolResultText(b.String()), nil
	}
}
