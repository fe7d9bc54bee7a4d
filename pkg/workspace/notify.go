package workspace

import (
	"fmt"

	"go.uber.org/zap"
)

// Action names the kind of mutation a notification is about.
type Action string

const (
	ActionLoad    Action = "load"
	ActionCreate  Action = "create"
	ActionUpdate  Action = "update"
	ActionDelete  Action = "delete"
	ActionReorder Action = "reorder"
)

// Notification tells the user that a mirrored operation did not reach the
// server and was undone locally.
type Notification struct {
	Action  Action
	Entity  string
	Message string
	Err     error
}

// Notifier receives failure notifications. Implementations must be safe for
// concurrent use; the store notifies from completion goroutines.
type Notifier interface {
	Notify(n Notification)
}

// NotifierFunc adapts a function to Notifier.
type NotifierFunc func(Notification)

func (f NotifierFunc) Notify(n Notification) { f(n) }

// LogNotifier writes notifications to a zap logger.
type LogNotifier struct {
	Logger *zap.Logger
}

func (l LogNotifier) Notify(n Notification) {
	l.Logger.Warn(n.Message,
		zap.String("action", string(n.Action)),
		zap.String("entity", n.Entity),
		zap.Error(n.Err))
}

func newNotification(action Action, entity string, err error) Notification {
	return Notification{
		Action:  action,
		Entity:  entity,
		Message: fmt.Sprintf("Failed to %s %s", action, entity),
		Err:     err,
	}
}
