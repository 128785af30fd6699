package events

// SchemaCellExecution is the event schema emitted by the notebook server's
// execution model for cell lifecycle events.
const SchemaCellExecution = "https://events.jupyter.org/jupyter_server_nbmodel/cell_execution/v1"

// TypeExecutionEnd is the only event type that resolves a registration.
const TypeExecutionEnd = "execution_end"

// Event is a cell execution lifecycle event delivered by the host.
// SchemaID is optional; when set it must be SchemaCellExecution.
type Event struct {
	SchemaID    string  `json:"schema_id,omitempty"`
	CellID      string  `json:"cell_id"`
	EventType   string  `json:"event_type"`
	Success     bool    `json:"success"`
	KernelError *string `json:"kernel_error,omitempty"`
}

// Listener handles an event.
type Listener func(Event)

// IsCellExecution reports whether the event belongs to the cell execution
// schema. Events without a schema id are assumed to.
func (e Event) IsCellExecution() bool {
	return e.SchemaID == "" || e.SchemaID == SchemaCellExecution
}
