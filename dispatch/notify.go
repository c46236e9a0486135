package dispatch

import (
	"context"

	"github.com/charmbracelet/log"
)

// EventKind names a delivery notification.
type EventKind string

const (
	// EventSaved follows a successful remote upload.
	EventSaved EventKind = "screencapture-saved-db"
	// EventError follows any failed delivery.
	EventError EventKind = "screencapture-error-db"
)

// Event is a delivery notification.
type Event struct {
	Kind     EventKind
	Mode     Mode
	FileName string
	Location string
	Err      error
}

// Notifier receives delivery events.
type Notifier interface {
	Notify(ctx context.Context, ev Event)
}

// NotifierFunc adapts a function to the Notifier interface.
type NotifierFunc func(ctx context.Context, ev Event)

// Notify calls f(ctx, ev).
func (f NotifierFunc) Notify(ctx context.Context, ev Event) { f(ctx, ev) }

// LogNotifier writes events to a logger.
type LogNotifier struct {
	Logger *log.Logger
}

// Notify logs ev at info level, or error level for EventError.
func (n LogNotifier) Notify(_ context.Context, ev Event) {
	if n.Logger == nil {
		return
	}
	if ev.Kind == EventError {
		n.Logger.Error(string(ev.Kind), "mode", ev.Mode, "file", ev.FileName, "err", ev.Err)
		return
	}
	n.Logger.Info(string(ev.Kind), "mode", ev.Mode, "file", ev.FileName, "location", ev.Location)
}

// Multi fans an event out to several notifiers in order.
func Multi(ns ...Notifier) Notifier {
	return NotifierFunc(func(ctx context.Context, ev Event) {
		for _, n := range ns {
			if n != nil {
				n.Notify(ctx, ev)
			}
		}
	})
}
