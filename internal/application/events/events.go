package events

import (
	"github.com/Builder-Lawyers/store-builder/internal/application/consts"
	"github.com/Builder-Lawyers/store-builder/pkg/interfaces"
)

// Progress is reported by long running workflows; Percent is 0..100.
type Progress struct {
	Step    consts.Stage
	Message string
	Percent int
}

type ProgressFunc func(Progress)

// Report calls fn when it is set.
func (fn ProgressFunc) Report(step consts.Stage, message string, percent int) {
	if fn == nil {
		return
	}
	fn(Progress{Step: step, Message: message, Percent: percent})
}

const (
	StreamEventProgress = "progress"
	StreamEventComplete = "complete"
	StreamEventError    = "error"
)

// StreamEvent is the JSON payload pushed to progress stream subscribers.
type StreamEvent struct {
	Type     string `json:"type"`
	Step     string `json:"step,omitempty"`
	Message  string `json:"message"`
	Progress int    `json:"progress"`
}

var _ interfaces.Event = StreamEvent{}

func (e StreamEvent) GetType() string {
	return e.Type
}

func (e StreamEvent) Terminal() bool {
	return e.Type == StreamEventComplete || e.Type == StreamEventError
}

func FromProgress(p Progress) StreamEvent {
	return StreamEvent{
		Type:     StreamEventProgress,
		Step:     string(p.Step),
		Message:  p.Message,
		Progress: p.Percent,
	}
}
