package tasks

// TaskSchedulerInterface defines the interface for task scheduling
// operations. The main application installs one recurring schedule per
// tenant; the HTTP API uses TriggerNow for run-now requests.
type TaskSchedulerInterface interface {
	Start()
	Stop()
	InstallSchedule(tenantID string) error
	ClearSchedule(tenantID string)
	TriggerNow(tenantID string) error
	EnqueueTask(task TaskInterface) error
	GetStats() map[string]TenantStats
}
