package handlers

import (
	"context"
	"fmt"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/btouchard/nbnotify/internal/notify"
)

// Registrar accepts cell registrations.
type Registrar interface {
	Register(req notify.Request) error
}

// Register returns a handler that registers a cell for notification.
// Deadlines above maxThreshold are rejected when maxThreshold is positive.
func Register(r Registrar, maxThreshold time.Duration) server.ToolHandlerFunc {
	return func(_ context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		nr, errResult := requestFromArgs(req.GetArguments(), maxThreshold)
		if errResult != nil {
			return errResult, nil
		}

		if err := r.Register(nr); err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("Registration rejected: %s", err)), nil
		}

		text := fmt.Sprintf("Cell %s registered (mode: %s)", nr.CellID, nr.Mode)
		if nr.Threshold > 0 {
			text += fmt.Sprintf(", deadline in %s", nr.Threshold)
		}
		return mcp.NewToolResultText(text), nil
	}
}

// requestFromArgs builds a notify.Request from tool arguments. A non-nil
// result is an error to return to the caller as-is.
func requestFromArgs(args map[string]any, maxThreshold time.Duration) (notify.Request, *mcp.CallToolResult) {
	cellID, _ := args["cell_id"].(string)
	if cellID == "" {
		return notify.Request{}, mcp.NewToolResultError("cell_id is required")
	}

	modeStr, _ := args["mode"].(string)
	mode, err := notify.ParseMode(modeStr)
	if err != nil {
		return notify.Request{}, mcp.NewToolResultError(err.Error())
	}

	nr := notify.Request{CellID: cellID, Mode: mode}
	nr.Chat, _ = args["chat"].(bool)
	nr.Mail, _ = args["mail"].(bool)
	nr.SuccessMessage, _ = args["success_message"].(string)
	nr.FailureMessage, _ = args["failure_message"].(string)

	if s, ok := args["threshold_seconds"].(float64); ok {
		if s < 0 {
			return notify.Request{}, mcp.NewToolResultError("threshold_seconds must not be negative")
		}
		nr.Threshold = notify.ThresholdFromSeconds(&s)
		if maxThreshold > 0 && nr.Threshold > maxThreshold {
			return notify.Request{}, mcp.NewToolResultError(fmt.Sprintf("threshold_seconds must not exceed %s", maxThreshold))
		}
	}

	return nr, nil
}
