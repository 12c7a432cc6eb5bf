package config

const (
	TypeActivateTenant        = "tenant:activate"
	TypeDistributeFramework   = "framework:distribute"
	TypeFrameworkVersionCheck = "framework:version-check"
	TypeExpireTrials          = "tenant:expire-trials"
)

var DefinedTasks = map[string]struct{}{
	TypeActivateTenant:        {},
	TypeDistributeFramework:   {},
	TypeFrameworkVersionCheck: {},
	TypeExpireTrials:          {},
}

// PeriodicTasks are the task types the scheduler may enqueue, with the
// cron schedule used when the configuration names none.
//
//nolint:mnd
var PeriodicTasks = map[string]Task{
	TypeFrameworkVersionCheck: {
		TaskType: TypeFrameworkVersionCheck,
		Cronspec: "0 2 * * *",
		Retries:  3,
	},
	TypeExpireTrials: {
		TaskType: TypeExpireTrials,
		Cronspec: "15 * * * *",
		Retries:  3,
	},
}
