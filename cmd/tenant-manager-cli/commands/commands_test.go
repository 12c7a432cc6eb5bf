package commands_test

import (
	"bytes"
	"context"
	"encoding/json"
	"strings"
	"testing"

	"github.com/hibiken/asynq"
	"github.com/spf13/cobra"
	"github.com/stretchr/testify/suite"
	"gorm.io/gorm"

	"github.com/openkcm/compliance-hub/cmd/tenant-manager-cli/commands"
	"github.com/openkcm/compliance-hub/internal/async/tasks"
	"github.com/openkcm/compliance-hub/internal/config"
	"github.com/openkcm/compliance-hub/internal/manager"
	"github.com/openkcm/compliance-hub/internal/model"
	"github.com/openkcm/compliance-hub/internal/testutils"
	utilsasync "github.com/openkcm/compliance-hub/utils/async"
)

var shape = testutils.FrameworkShape{
	Domains: 1, Categories: 1, Subcategories: 2, Controls: 2, Questions: 1, Evidence: 1,
}

type recordingQueue struct {
	tasks []*asynq.Task
}

func (q *recordingQueue) EnqueueTask(_ context.Context, task *asynq.Task, _ ...asynq.Option) (*asynq.TaskInfo, error) {
	q.tasks = append(q.tasks, task)
	return &asynq.TaskInfo{ID: "queued"}, nil
}

type CLISuite struct {
	suite.Suite

	shared *gorm.DB
	mgr    *manager.Manager
	queue  *recordingQueue
	fw     *model.Framework
}

func TestCLISuite(t *testing.T) {
	suite.Run(t, new(CLISuite))
}

func (s *CLISuite) SetupTest() {
	s.shared = testutils.NewSharedStore(s.T())
	testutils.SeedPlans(s.T(), s.shared)

	s.mgr, _ = testutils.NewManager(s.T(), s.shared)
	s.queue = &recordingQueue{}
	s.fw = testutils.CreateFramework(s.T(), s.shared, "SOC2", "2017", shape)
}

// execute runs a fresh root command so that flag values do not leak
// between invocations.
func (s *CLISuite) execute(args ...string) (string, error) {
	factory := commands.NewCommandFactory(s.mgr, func() (commands.Enqueuer, error) {
		return s.queue, nil
	})

	rootCmd := factory.NewRootCmdWithCommands(s.T().Context())
	rootCmd.SetArgs(args)

	out := new(bytes.Buffer)
	rootCmd.SetOut(out)
	rootCmd.SetErr(out)

	err := rootCmd.Execute()

	return out.String(), err
}

func (s *CLISuite) TestFormatJSON() {
	command := &cobra.Command{}

	var buf bytes.Buffer
	command.SetOut(&buf)

	s.Require().NoError(commands.FormatJSON(map[string]int{"controls": 4}, command))

	var parsed map[string]int
	s.Require().NoError(json.Unmarshal(buf.Bytes(), &parsed))
	s.Equal(4, parsed["controls"])
}

func (s *CLISuite) TestCreateTenantCmd() {
	out, err := s.execute("create", "--slug", "acme", "--name", "Acme Corp", "--plan", "PROFESSIONAL")
	s.Require().NoError(err)
	s.Contains(out, "Tenant created: acme (ACTIVE)")
	s.Contains(out, `"Slug": "acme"`)
	s.NotContains(out, "DatabasePasswordEncrypted")

	out, err = s.execute("create", "--slug", "acme", "--name", "Acme Corp")
	s.Require().ErrorIs(err, manager.ErrTenantExists)
	s.Contains(out, "Tenant with slug acme already exists")

	out, err = s.execute("create", "--slug", "Not_Valid", "--name", "Acme Corp")
	s.Require().Error(err)
	s.Contains(out, "is not valid")

	out, err = s.execute("create", "--slug", "trial-co", "--name", "Trial Co", "--trial")
	s.Require().NoError(err)
	s.Contains(out, "Tenant created: trial-co (TRIAL)")
}

func (s *CLISuite) TestPendingTenantFlow() {
	out, err := s.execute("create-pending", "--slug", "acme", "--name", "Acme Corp", "--plan", "PROFESSIONAL")
	s.Require().NoError(err)
	s.Contains(out, "Tenant registered: acme (PENDING_PAYMENT)")

	out, err = s.execute("activate", "--slug", "acme", "--framework", s.fw.ID.String())
	s.Require().NoError(err)
	s.Contains(out, "Tenant activated: acme")
	s.Contains(out, `"controls": 4`)

	_, err = s.execute("activate", "--slug", "acme")
	s.Require().ErrorIs(err, manager.ErrTenantState)

	_, err = s.execute("delete-pending", "--slug", "acme")
	s.Require().ErrorIs(err, manager.ErrTenantState)
}

func (s *CLISuite) TestDeletePendingTenantCmd() {
	_, err := s.execute("create-pending", "--slug", "acme", "--name", "Acme Corp")
	s.Require().NoError(err)

	out, err := s.execute("delete-pending", "--slug", "acme")
	s.Require().NoError(err)
	s.Contains(out, "Pending tenant deleted: acme")
}

func (s *CLISuite) TestActivateTenantCmdAsync() {
	_, err := s.execute("create-pending", "--slug", "acme", "--name", "Acme Corp")
	s.Require().NoError(err)

	out, err := s.execute("activate", "--slug", "acme", "--framework", s.fw.ID.String(), "--async")
	s.Require().NoError(err)
	s.Contains(out, "Task tenant:activate enqueued: queued")

	s.Require().Len(s.queue.tasks, 1)
	s.Equal(config.TypeActivateTenant, s.queue.tasks[0].Type())

	tenant, err := s.mgr.Tenants.GetTenant(s.T().Context(), "acme")
	s.Require().NoError(err)
	s.Equal(model.SubscriptionPendingPayment, tenant.SubscriptionStatus)
}

func (s *CLISuite) TestLifecycleCmds() {
	_, err := s.execute("create", "--slug", "acme", "--name", "Acme Corp")
	s.Require().NoError(err)

	out, err := s.execute("suspend", "--slug", "acme", "--reason", "unpaid invoice")
	s.Require().NoError(err)
	s.Contains(out, "Tenant acme is now SUSPENDED")

	out, err = s.execute("resume", "--slug", "acme")
	s.Require().NoError(err)
	s.Contains(out, "Tenant acme is now ACTIVE")

	out, err = s.execute("cancel", "--slug", "acme", "--reason", "churned")
	s.Require().NoError(err)
	s.Contains(out, "Tenant acme is now CANCELLED")

	_, err = s.execute("resume", "--slug", "acme")
	s.Require().ErrorIs(err, manager.ErrTenantState)
}

func (s *CLISuite) TestGetAndListTenantsCmd() {
	for _, slug := range []string{"beta", "alpha"} {
		_, err := s.execute("create", "--slug", slug, "--name", "Company "+slug)
		s.Require().NoError(err)
	}

	_, err := s.execute("create-pending", "--slug", "gamma", "--name", "Company gamma")
	s.Require().NoError(err)

	out, err := s.execute("get", "--slug", "alpha")
	s.Require().NoError(err)
	s.Contains(out, `"CompanyName": "Company alpha"`)

	out, err = s.execute("get", "--slug", "nobody")
	s.Require().Error(err)
	s.Contains(out, "Tenant with slug nobody not found")

	out, err = s.execute("list")
	s.Require().NoError(err)
	s.Contains(out, "3 of 3 tenants")
	s.Less(strings.Index(out, `"Slug": "alpha"`), strings.Index(out, `"Slug": "beta"`))

	out, err = s.execute("list", "--status", "PENDING_PAYMENT")
	s.Require().NoError(err)
	s.Contains(out, "1 of 1 tenants")
	s.Contains(out, `"Slug": "gamma"`)
}

func (s *CLISuite) TestSubscribeCmd() {
	for _, slug := range []string{"acme", "beta"} {
		_, err := s.execute("create", "--slug", slug, "--name", "Company "+slug, "--plan", "PROFESSIONAL")
		s.Require().NoError(err)
	}

	out, err := s.execute("subscribe", "--slug", "acme", "--framework", s.fw.ID.String())
	s.Require().NoError(err)
	s.Contains(out, `"controls": 4`)

	out, err = s.execute("subscribe", "--slug", "acme,beta", "--framework", s.fw.ID.String())
	s.Require().ErrorIs(err, commands.ErrSubscriptionsFailed)
	s.Contains(out, `"slug": "beta"`)
	s.Contains(out, manager.ErrAlreadySubscribed.Error())

	_, err = s.execute("subscribe", "--slug", "acme", "--framework", "not-a-uuid")
	s.Require().ErrorIs(err, commands.ErrInvalidFrameworkID)
}

func (s *CLISuite) TestSubscribeCmdAsync() {
	_, err := s.execute("subscribe", "--slug", "acme", "--slug", "beta", "--framework", s.fw.ID.String(), "--async")
	s.Require().NoError(err)

	s.Require().Len(s.queue.tasks, 2)

	for _, task := range s.queue.tasks {
		s.Equal(config.TypeDistributeFramework, task.Type())
	}
}

func (s *CLISuite) TestCheckVersionCmd() {
	_, err := s.execute("create", "--slug", "acme", "--name", "Acme Corp", "--plan", "PROFESSIONAL")
	s.Require().NoError(err)

	_, err = s.execute("subscribe", "--slug", "acme", "--framework", s.fw.ID.String())
	s.Require().NoError(err)

	out, err := s.execute("check-version", "--slug", "acme", "--framework", s.fw.ID.String())
	s.Require().NoError(err)
	s.Contains(out, `"isOutdated": false`)

	s.Require().NoError(s.shared.Model(s.fw).Update("version", "2024").Error)

	out, err = s.execute("check-version", "--all")
	s.Require().NoError(err)
	s.Contains(out, "1 subscriptions have an upgrade available")
}

func (s *CLISuite) TestValidateFrameworkCmd() {
	out, err := s.execute("validate-framework", "--framework", s.fw.ID.String())
	s.Require().NoError(err)
	s.Contains(out, `"isDistributable": true`)

	empty := testutils.CreateFramework(s.T(), s.shared, "Empty", "1", testutils.FrameworkShape{})

	_, err = s.execute("validate-framework", "--framework", empty.ID.String())
	s.Require().ErrorIs(err, commands.ErrFrameworkIncomplete)

	out, err = s.execute("validate-framework", "--orphans")
	s.Require().NoError(err)
	s.Contains(out, `"count": 0`)

	_, err = s.execute("validate-framework")
	s.Require().ErrorIs(err, commands.ErrFrameworkIDRequired)
}

func (s *CLISuite) TestSeedPlansCmd() {
	out, err := s.execute("seed-plans")
	s.Require().NoError(err)
	s.Contains(out, "0 plans created")

	s.shared = testutils.NewSharedStore(s.T())
	s.mgr, _ = testutils.NewManager(s.T(), s.shared)

	out, err = s.execute("seed-plans")
	s.Require().NoError(err)
	s.Contains(out, "3 plans created")
}

func (s *CLISuite) TestQueueNotConfigured() {
	factory := commands.NewCommandFactory(s.mgr, nil)

	rootCmd := factory.NewRootCmdWithCommands(s.T().Context())
	rootCmd.SetArgs([]string{"activate", "--slug", "acme", "--async"})
	rootCmd.SetOut(new(bytes.Buffer))
	rootCmd.SetErr(new(bytes.Buffer))

	s.Require().ErrorIs(rootCmd.Execute(), commands.ErrQueueNotConfigured)
}

func (s *CLISuite) TestTaskPayloadCarriesSlug() {
	_, err := s.execute("subscribe", "--slug", "acme", "--framework", s.fw.ID.String(), "--async")
	s.Require().NoError(err)
	s.Require().Len(s.queue.tasks, 1)

	payload, err := utilsasync.ParseTaskPayload(s.queue.tasks[0].Payload())
	s.Require().NoError(err)
	s.Equal("acme", payload.TenantSlug)

	var req tasks.FrameworkRequest

	s.Require().NoError(payload.DecodeData(&req))
	s.Equal(s.fw.ID, req.FrameworkID)
}
