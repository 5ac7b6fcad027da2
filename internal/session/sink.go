package session

import "github.com/verte-zerg/examforge/internal/model"

// Sink receives session side effects. Implementations must return quickly;
// a failure inside a sink never affects the machine.
type Sink interface {
	// Progress receives a full snapshot after every state change.
	Progress(model.Snapshot)
	// Complete receives the result of a submitted session.
	Complete(model.Completion)
	// Discard is called when the session is exited without a result.
	Discard()
	// Report receives an issue raised against a question.
	Report(model.IssueReport)
}

// NopSink ignores every call.
type NopSink struct{}

// Progress implements Sink.
func (NopSink) Progress(model.Snapshot) {}

// Complete implements Sink.
func (NopSink) Complete(model.Completion) {}

// Discard implements Sink.
func (NopSink) Discard() {}

// Report implements Sink.
func (NopSink) Report(model.IssueReport) {}
