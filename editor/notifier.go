package editor

import (
	log "github.com/sirupsen/logrus"
)

// Notifier surfaces messages to the person using the editor.
type Notifier interface {
	Warn(message string)
	Error(err error)
}

// LogNotifier writes notifications to a logrus entry. It is the default
// when no UI is attached.
type LogNotifier struct {
	Entry *log.Entry
}

func (n LogNotifier) entry() *log.Entry {
	if n.Entry == nil {
		return log.NewEntry(log.StandardLogger())
	}
	return n.Entry
}

func (n LogNotifier) Warn(message string) {
	n.entry().Warn(message)
}

func (n LogNotifier) Error(err error) {
	n.entry().WithError(err).Error("annotation sync failed")
}
