package policy

import "fmt"

// TargetPrompt names the prompt stage in denial errors and audit records.
const TargetPrompt = "prompt"

// DeniedError is returned when a prompt or tool action is refused, either by
// policy or by the approval gate.
type DeniedError struct {
	Target string
	Reason string
}

func (e *DeniedError) Error() string {
	return fmt.Sprintf("policy denied %s: %s", e.Target, e.Reason)
}
