package auditor_test

import (
	"context"
	"errors"
	"testing"

	"github.com/openkcm/common-sdk/pkg/commoncfg"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/collector/pdata/plog"

	otlpaudit "github.com/openkcm/common-sdk/pkg/otlp/audit"

	"github.com/openkcm/compliance-hub/internal/auditor"
	"github.com/openkcm/compliance-hub/internal/model"
	hubcontext "github.com/openkcm/compliance-hub/utils/context"
)

var errCollector = errors.New("collector unavailable")

type recordingLogger struct {
	sent []plog.Logs
	err  error
}

func (r *recordingLogger) SendEvent(_ context.Context, logs plog.Logs) error {
	r.sent = append(r.sent, logs)

	return r.err
}

func attributes(t *testing.T, logs plog.Logs) map[string]string {
	t.Helper()

	require.Positive(t, logs.ResourceLogs().Len())
	require.Positive(t, logs.ResourceLogs().At(0).ScopeLogs().Len())

	records := logs.ResourceLogs().At(0).ScopeLogs().At(0).LogRecords()
	require.Positive(t, records.Len())

	attrs := map[string]string{}
	for k, v := range records.At(0).Attributes().All() {
		attrs[k] = v.AsString()
	}

	return attrs
}

func TestNew(t *testing.T) {
	aud := auditor.New(t.Context(), &commoncfg.Audit{})
	assert.NotNil(t, aud)
}

func TestForward(t *testing.T) {
	t.Run("Should send tenant deletion", func(t *testing.T) {
		rec := &recordingLogger{}
		aud := auditor.NewWithLogger(rec)

		ctx := hubcontext.InjectRequestID(t.Context())

		err := aud.Forward(ctx, model.AuditDeleteTenant, "acme")
		require.NoError(t, err)
		require.Len(t, rec.sent, 1)

		attrs := attributes(t, rec.sent[0])
		assert.Equal(t, otlpaudit.CmkTenantDeleteEvent, attrs[otlpaudit.EventTypeKey])
		assert.Equal(t, "acme", attrs[otlpaudit.TenantIDKey])
	})

	t.Run("Should skip actions without a collector event", func(t *testing.T) {
		rec := &recordingLogger{}

		err := auditor.NewWithLogger(rec).Forward(t.Context(), model.AuditSuspendTenant, "acme")
		require.NoError(t, err)
		assert.Empty(t, rec.sent)
	})

	t.Run("Should wrap transport failures", func(t *testing.T) {
		rec := &recordingLogger{err: errCollector}

		err := auditor.NewWithLogger(rec).Forward(t.Context(), model.AuditDeleteTenant, "acme")
		assert.ErrorIs(t, err, auditor.ErrSendEvent)
	})
}

func TestSendUnauthorizedRequestAuditLog(t *testing.T) {
	t.Run("Should require a tenant in context", func(t *testing.T) {
		err := auditor.NewWithLogger(&recordingLogger{}).SendUnauthorizedRequestAuditLog(t.Context(), "/t/acme/x", "GET")
		assert.ErrorIs(t, err, auditor.ErrCreateEventMetadata)
	})

	t.Run("Should send the refused request", func(t *testing.T) {
		rec := &recordingLogger{}

		ctx, ok := hubcontext.Set(t.Context(), "acme")
		require.True(t, ok)

		err := auditor.NewWithLogger(rec).SendUnauthorizedRequestAuditLog(ctx, "/t/acme/x", "GET")
		require.NoError(t, err)
		require.Len(t, rec.sent, 1)
		assert.Equal(t, "acme", attributes(t, rec.sent[0])[otlpaudit.TenantIDKey])
	})

	t.Run("Should reject a nil auditor", func(t *testing.T) {
		var aud *auditor.Auditor

		assert.ErrorIs(t, aud.SendTenantDeleteAuditLog(t.Context(), "acme"), auditor.ErrNilAuditor)
	})
}
