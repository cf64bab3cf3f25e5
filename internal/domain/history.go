package domain

import "time"

// HistoryAction names a lifecycle operation recorded in the install history
type HistoryAction string

const (
	ActionInstall   HistoryAction = "install"
	ActionEnable    HistoryAction = "enable"
	ActionDisable   HistoryAction = "disable"
	ActionUninstall HistoryAction = "uninstall"
	ActionAPI       HistoryAction = "api"
)

// HistoryEntry is one recorded lifecycle operation
type HistoryEntry struct {
	ID      string
	Mod     string
	Version string
	Action  HistoryAction
	Error   string // Empty on success
	At      time.Time
}

// Succeeded reports whether the operation completed without error
func (h HistoryEntry) Succeeded() bool {
	return h.Error == ""
}
