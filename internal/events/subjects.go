package events

// Event subjects
const (
	DisclaimerAcknowledged = "disclaimer.acknowledged"
	// StreamSubjects is the subject filter of the JetStream stream
	StreamSubjects = "disclaimer.>"
)
