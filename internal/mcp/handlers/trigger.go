package handlers

import (
	"context"
	"fmt"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/btouchard/nbnotify/internal/notify"
)

// Dispatcher sends a notification without a prior registration.
type Dispatcher interface {
	TriggerDirect(req notify.Request, o notify.Outcome) error
}

// Trigger returns a handler that dispatches a notification immediately.
// Either timer or success must be given.
func Trigger(d Dispatcher, maxThreshold time.Duration) server.ToolHandlerFunc {
	return func(_ context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		args := req.GetArguments()

		nr, errResult := requestFromArgs(args, maxThreshold)
		if errResult != nil {
			return errResult, nil
		}

		var o notify.Outcome
		if timer, _ := args["timer"].(bool); timer {
			o = notify.TimeoutOutcome()
		} else {
			success, ok := args["success"].(bool)
			if !ok {
				return mcp.NewToolResultError("success or timer is required"), nil
			}
			o.Success = success
			o.ErrorDetail, _ = args["error"].(string)
		}

		if err := d.TriggerDirect(nr, o); err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("Trigger rejected: %s", err)), nil
		}

		return mcp.NewToolResultText(fmt.Sprintf("Notification for cell %s processed (status: %s)", nr.CellID, o.Status())), nil
	}
}
