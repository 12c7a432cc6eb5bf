package authz

import (
	"context"
	"errors"
	"slices"

	"github.com/openkcm/compliance-hub/internal/errs"
	"github.com/openkcm/compliance-hub/internal/model"
	"github.com/openkcm/compliance-hub/internal/repo"
	hubcontext "github.com/openkcm/compliance-hub/utils/context"
)

var (
	ErrMembershipNotFound = errors.New("membership not found")
	ErrMembershipLookup   = errors.New("failed to load membership")
)

// MembershipProvider answers tenant level authorization questions for a
// principal.
type MembershipProvider interface {
	Membership(ctx context.Context, tenant *model.TenantInfo, principal *hubcontext.Principal) (*model.TenantMembership, error)
	HasPermission(ctx context.Context, tenant *model.TenantInfo, principal *hubcontext.Principal, code string) (bool, error)
	IsAdmin(ctx context.Context, tenant *model.TenantInfo, principal *hubcontext.Principal) (bool, error)
}

// RepoMembershipProvider reads memberships from the system catalog.
type RepoMembershipProvider struct {
	repo repo.Repo
}

var _ MembershipProvider = (*RepoMembershipProvider)(nil)

func NewRepoMembershipProvider(r repo.Repo) *RepoMembershipProvider {
	return &RepoMembershipProvider{repo: r}
}

// Membership returns ErrMembershipNotFound when the principal holds no
// membership in tenant.
func (p *RepoMembershipProvider) Membership(
	ctx context.Context,
	tenant *model.TenantInfo,
	principal *hubcontext.Principal,
) (*model.TenantMembership, error) {
	membership := &model.TenantMembership{}

	_, err := p.repo.First(ctx, membership, *repo.NewQuery().Where(repo.NewCompositeKeyGroup(
		repo.NewCompositeKey().
			Where(repo.TenantIDField, tenant.ID).
			Where(repo.UserIDField, principal.UserID),
	)))
	if errors.Is(err, repo.ErrNotFound) {
		return nil, errs.Wrap(ErrMembershipNotFound, err)
	}

	if err != nil {
		return nil, errs.Wrap(ErrMembershipLookup, err)
	}

	return membership, nil
}

// HasPermission is true for superusers, for tenant admins and for members
// whose active membership lists code.
func (p *RepoMembershipProvider) HasPermission(
	ctx context.Context,
	tenant *model.TenantInfo,
	principal *hubcontext.Principal,
	code string,
) (bool, error) {
	if principal.IsSuperuser {
		return true, nil
	}

	membership, err := p.activeMembership(ctx, tenant, principal)
	if err != nil || membership == nil {
		return false, err
	}

	return membership.IsAdmin || slices.Contains(membership.Permissions, code), nil
}

func (p *RepoMembershipProvider) IsAdmin(
	ctx context.Context,
	tenant *model.TenantInfo,
	principal *hubcontext.Principal,
) (bool, error) {
	if principal.IsSuperuser {
		return true, nil
	}

	membership, err := p.activeMembership(ctx, tenant, principal)
	if err != nil || membership == nil {
		return false, err
	}

	return membership.IsAdmin, nil
}

// activeMembership returns nil without error when there is no membership
// or it does not grant access.
func (p *RepoMembershipProvider) activeMembership(
	ctx context.Context,
	tenant *model.TenantInfo,
	principal *hubcontext.Principal,
) (*model.TenantMembership, error) {
	membership, err := p.Membership(ctx, tenant, principal)
	if errors.Is(err, ErrMembershipNotFound) {
		return nil, nil //nolint:nilnil
	}

	if err != nil {
		return nil, err
	}

	if membership.Status != model.MembershipActive {
		return nil, nil //nolint:nilnil
	}

	return membership, nil
}
