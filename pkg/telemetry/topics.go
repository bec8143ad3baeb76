package telemetry

import (
	"strings"

	"github.com/tandempv/xystage/pkg/events"
)

// Topics builds topic names under a common prefix.
type Topics struct {
	Prefix string
}

// Availability carries "online"/"offline" and is the last-will topic.
func (t Topics) Availability() string { return t.join("status") }

// Stage carries the retained controller status.
func (t Topics) Stage() string { return t.join("stage") }

// Scan carries the retained progress of the current or last scan.
func (t Topics) Scan() string { return t.join("scan") }

// Event carries non-retained notifications, one subtopic per event name.
func (t Topics) Event(name string) string {
	return t.join("events", strings.ReplaceAll(name, ".", "/"))
}

// For maps an event to its topic and whether the broker should retain it.
func (t Topics) For(name string) (topic string, retained bool) {
	switch name {
	case events.StageStatus:
		return t.Stage(), true
	case events.ScanProgress:
		return t.Scan(), true
	}
	return t.Event(name), false
}

func (t Topics) join(parts ...string) string {
	prefix := strings.TrimSuffix(t.Prefix, "/")
	if prefix == "" {
		return strings.Join(parts, "/")
	}
	return prefix + "/" + strings.Join(parts, "/")
}
