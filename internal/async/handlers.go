package async

import (
	"github.com/openkcm/compliance-hub/internal/async/tasks"
	"github.com/openkcm/compliance-hub/internal/manager"
)

// TenantTasks binds every task type of the hub to m.
func TenantTasks(m *manager.Manager) []TaskHandler {
	return []TaskHandler{
		tasks.NewActivateTenant(m.Tenants),
		tasks.NewDistributeFramework(m.Distribution),
		tasks.NewFrameworkVersionCheck(m.Distribution),
		tasks.NewExpireTrials(m.Tenants),
	}
}
