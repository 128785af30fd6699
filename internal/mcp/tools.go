package mcp

import (
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/btouchard/nbnotify/internal/mcp/handlers"
)

var modes = []string{"always", "never", "on-error", "global-timeout", "custom-timeout"}

func registerTools(s *server.MCPServer, deps *Deps) {
	// notify_register: arm a notification for a cell
	s.AddTool(
		mcp.NewTool("notify_register",
			mcp.WithDescription("Register a notebook cell for notification when it finishes or exceeds its deadline. Registering the same cell again replaces the earlier registration."),
			mcp.WithString("cell_id",
				mcp.Required(),
				mcp.Description("Identifier of the cell being executed"),
			),
			mcp.WithString("mode",
				mcp.Description("When to notify (default: always)"),
				mcp.Enum(modes...),
			),
			mcp.WithBoolean("chat",
				mcp.Description("Deliver through the chat channel"),
			),
			mcp.WithBoolean("mail",
				mcp.Description("Deliver through the mail channel"),
			),
			mcp.WithString("success_message",
				mcp.Description("Text included when the cell succeeds"),
			),
			mcp.WithString("failure_message",
				mcp.Description("Text included when the cell fails or times out"),
			),
			mcp.WithNumber("threshold_seconds",
				mcp.Description("Deadline in seconds. Required for custom-timeout."),
			),
		),
		handlers.Register(deps.Engine, deps.MaxThreshold),
	)

	// notify_trigger: send a notification now
	s.AddTool(
		mcp.NewTool("notify_trigger",
			mcp.WithDescription("Send a notification immediately with an explicit outcome, without a prior registration."),
			mcp.WithString("cell_id",
				mcp.Required(),
				mcp.Description("Identifier of the cell"),
			),
			mcp.WithString("mode",
				mcp.Description("Suppression policy applied to the outcome (default: always)"),
				mcp.Enum(modes...),
			),
			mcp.WithBoolean("chat",
				mcp.Description("Deliver through the chat channel"),
			),
			mcp.WithBoolean("mail",
				mcp.Description("Deliver through the mail channel"),
			),
			mcp.WithBoolean("success",
				mcp.Description("Whether the cell succeeded"),
			),
			mcp.WithString("error",
				mcp.Description("Error detail for a failed cell"),
			),
			mcp.WithBoolean("timer",
				mcp.Description("Report a timeout instead of success or failure"),
			),
			mcp.WithString("success_message",
				mcp.Description("Text included when the cell succeeds"),
			),
			mcp.WithString("failure_message",
				mcp.Description("Text included when the cell fails or times out"),
			),
		),
		handlers.Trigger(deps.Engine, deps.MaxThreshold),
	)

	// notify_status: inspect pending registrations and the delivery log
	s.AddTool(
		mcp.NewTool("notify_status",
			mcp.WithDescription("Show pending registrations and recent deliveries."),
			mcp.WithString("cell_id",
				mcp.Description("Restrict to a single cell"),
			),
			mcp.WithNumber("limit",
				mcp.Description("Maximum number of deliveries to list (default: 10)"),
			),
		),
		handlers.Status(deps.Pending, deps.Deliveries),
	)
}
