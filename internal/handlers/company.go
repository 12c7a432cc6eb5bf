package handlers

import (
	"net/http"

	"github.com/google/uuid"

	"github.com/openkcm/compliance-hub/internal/api/write"
	"github.com/openkcm/compliance-hub/internal/manager"
	"github.com/openkcm/compliance-hub/internal/model"
	hubcontext "github.com/openkcm/compliance-hub/utils/context"
)

const pathParamID = "id"

// CompanyInfo is the view of the resolved tenant returned to its members.
type CompanyInfo struct {
	Slug               string                   `json:"slug"`
	CompanyName        string                   `json:"companyName"`
	PlanCode           model.PlanCode           `json:"planCode"`
	SubscriptionStatus model.SubscriptionStatus `json:"subscriptionStatus"`
	SchemaName         string                   `json:"schemaName,omitempty"`
	DatabaseName       string                   `json:"databaseName,omitempty"`
}

// ControlView is a customized control as returned to the caller.
type ControlView struct {
	ID             uuid.UUID `json:"id"`
	ControlCode    string    `json:"controlCode"`
	Title          string    `json:"title"`
	EffectiveTitle string    `json:"effectiveTitle"`
	IsCustomized   bool      `json:"isCustomized"`
	CustomizedBy   string    `json:"customizedBy,omitempty"`
}

// Company serves the tenant scoped company API.
type Company struct {
	customization *manager.CustomizationManager
	distribution  *manager.DistributionManager
	onError       func(w http.ResponseWriter, r *http.Request, err error)
	onDecode      func(w http.ResponseWriter, r *http.Request, err error)
	onParams      func(w http.ResponseWriter, r *http.Request, err error)
}

func NewCompany(m *manager.Manager) *Company {
	return &Company{
		customization: m.Customization,
		distribution:  m.Distribution,
		onError:       ResponseErrorHandlerFunc(),
		onDecode:      RequestErrorHandlerFunc(),
		onParams:      ParamsErrorHandler(),
	}
}

// Info echoes the tenant resolved for the request.
func (c *Company) Info(w http.ResponseWriter, r *http.Request) {
	info, err := hubcontext.ExtractTenantInfo(r.Context())
	if err != nil {
		c.onError(w, r, err)

		return
	}

	write.JSON(r.Context(), w, http.StatusOK, CompanyInfo{
		Slug:               info.Slug,
		CompanyName:        info.CompanyName,
		PlanCode:           info.PlanCode,
		SubscriptionStatus: info.SubscriptionStatus,
		SchemaName:         info.SchemaName,
		DatabaseName:       info.DatabaseName,
	})
}

// CustomizeControl applies the field changes of the body to a control of
// the current tenant.
func (c *Company) CustomizeControl(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	id, err := uuid.Parse(r.PathValue(pathParamID))
	if err != nil {
		c.onParams(w, r, err)

		return
	}

	changes := map[string]string{}

	err = decodeJSON(r, &changes)
	if err != nil {
		c.onDecode(w, r, err)

		return
	}

	control, err := c.customization.CustomizeControl(ctx, id, changes, hubcontext.ActorName(ctx))
	if err != nil {
		c.onError(w, r, err)

		return
	}

	write.JSON(ctx, w, http.StatusOK, ControlView{
		ID:             control.ID,
		ControlCode:    control.ControlCode,
		Title:          control.Title,
		EffectiveTitle: control.EffectiveTitle(),
		IsCustomized:   control.IsCustomized,
		CustomizedBy:   control.CustomizedBy,
	})
}

// VerifyFramework counts the copy of a template framework in the current
// tenant store.
func (c *Company) VerifyFramework(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	id, err := uuid.Parse(r.PathValue(pathParamID))
	if err != nil {
		c.onParams(w, r, err)

		return
	}

	slug, err := hubcontext.ExtractTenantID(ctx)
	if err != nil {
		c.onError(w, r, err)

		return
	}

	stats, err := c.distribution.VerifyDistribution(ctx, slug, id)
	if err != nil {
		c.onError(w, r, err)

		return
	}

	write.JSON(ctx, w, http.StatusOK, stats)
}
