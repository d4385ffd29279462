package backendmode

// Reason codes for a failed mode switch. These are part of the contract:
// callers branch on Reason, Message is for display only.
type Reason string

const (
	ReasonChannelRestricted Reason = "channel-restricted"
	ReasonNotInteractive    Reason = "not-interactive"
	ReasonStorageFailed     Reason = "storage-failed"
	ReasonNotConfigured     Reason = "not-configured"
)

// SwitchResult reports the outcome of a mode switch. A failed switch is a
// normal result, never a panic or a bare error string.
type SwitchResult struct {
	OK      bool
	Reason  Reason
	Message string
}

func failure(reason Reason, message string) SwitchResult {
	return SwitchResult{Reason: reason, Message: message}
}
