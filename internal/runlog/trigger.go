package runlog

import (
	"strings"

	"github.com/nospicy/possync/pkg/env"
)

const (
	TriggerCron   = "cron"
	TriggerManual = "manual"
	TriggerAPI    = "api"
	TriggerLocal  = "local"

	// EventNameVar is set by the CI scheduler that dispatches the sync job.
	EventNameVar = "GITHUB_EVENT_NAME"
)

// DetectTrigger classifies a dispatcher event name.
func DetectTrigger(eventName string) string {
	switch name := strings.TrimSpace(eventName); name {
	case "":
		return TriggerLocal
	case "schedule":
		return TriggerCron
	case "workflow_dispatch":
		return TriggerManual
	case "repository_dispatch":
		return TriggerAPI
	default:
		return "other:" + name
	}
}

// TriggerFromEnv classifies the current process from its environment.
func TriggerFromEnv() string {
	return DetectTrigger(env.Trimmed(EventNameVar))
}
