package notify

import "fmt"

// ShouldNotify applies the suppression policy. It is the same for every
// path that resolves a cell: completion, timeout or direct trigger.
// Modes outside the known set never notify.
func ShouldNotify(mode Mode, o Outcome) bool {
	switch mode {
	case ModeAlways, "":
		return true
	case ModeNever:
		return false
	case ModeOnError:
		return o.Status() != StatusSuccess
	case ModeGlobalTimeout, ModeCustomTimeout:
		return o.Status() == StatusTimeout
	default:
		return false
	}
}

// Compose renders the notification text for a resolved cell.
func Compose(req Request, o Outcome) string {
	status := o.Status()

	message := req.FailureMessage
	if status == StatusSuccess {
		message = req.SuccessMessage
	}
	if status == StatusFailed && o.ErrorDetail != "" {
		message += "\nError:\n" + o.ErrorDetail
	}

	return fmt.Sprintf("Execution Status: %s\nCell id: %s\nDetails: %s", status, req.CellID, message)
}
