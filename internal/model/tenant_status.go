package model

import (
	"errors"
)

var (
	ErrInvalidSubscriptionStatus = errors.New("tenant subscription status is not valid")
	ErrInvalidProvisioningStatus = errors.New("tenant provisioning status is not valid")
	ErrInvalidIsolationMode      = errors.New("isolation mode is not valid")
)

// SubscriptionStatus is the commercial lifecycle state of a tenant.
type SubscriptionStatus string

const (
	SubscriptionPendingPayment SubscriptionStatus = "PENDING_PAYMENT"
	SubscriptionTrial          SubscriptionStatus = "TRIAL"
	SubscriptionActive         SubscriptionStatus = "ACTIVE"
	SubscriptionSuspended      SubscriptionStatus = "SUSPENDED"
	SubscriptionCancelled      SubscriptionStatus = "CANCELLED"
	SubscriptionExpired        SubscriptionStatus = "EXPIRED"
	SubscriptionDeleted        SubscriptionStatus = "DELETED"
)

var validSubscriptionStatuses = map[SubscriptionStatus]struct{}{
	SubscriptionPendingPayment: {},
	SubscriptionTrial:          {},
	SubscriptionActive:         {},
	SubscriptionSuspended:      {},
	SubscriptionCancelled:      {},
	SubscriptionExpired:        {},
	SubscriptionDeleted:        {},
}

// Validate validates the given subscription status.
func (s SubscriptionStatus) Validate() error {
	if _, ok := validSubscriptionStatuses[s]; !ok {
		return ErrInvalidSubscriptionStatus
	}

	return nil
}

// IsTerminal reports whether no further transition is possible.
func (s SubscriptionStatus) IsTerminal() bool {
	return s == SubscriptionCancelled || s == SubscriptionDeleted
}

// IsRequestAccessible reports whether requests may be served for the tenant.
func (s SubscriptionStatus) IsRequestAccessible() bool {
	switch s {
	case SubscriptionActive, SubscriptionTrial, SubscriptionPendingPayment:
		return true
	default:
		return false
	}
}

// IsLive reports whether the tenant store is expected to be provisioned and served.
func (s SubscriptionStatus) IsLive() bool {
	return s == SubscriptionActive || s == SubscriptionTrial
}

// ProvisioningStatus is the state of the tenant's physical store.
type ProvisioningStatus string

const (
	ProvisioningPending        ProvisioningStatus = "PENDING"
	ProvisioningInProgress     ProvisioningStatus = "PROVISIONING"
	ProvisioningActive         ProvisioningStatus = "ACTIVE"
	ProvisioningFailed         ProvisioningStatus = "FAILED"
	ProvisioningDeprovisioning ProvisioningStatus = "DEPROVISIONING"
)

var validProvisioningStatuses = map[ProvisioningStatus]struct{}{
	ProvisioningPending:        {},
	ProvisioningInProgress:     {},
	ProvisioningActive:         {},
	ProvisioningFailed:         {},
	ProvisioningDeprovisioning: {},
}

// Validate validates the given provisioning status.
func (s ProvisioningStatus) Validate() error {
	if _, ok := validProvisioningStatuses[s]; !ok {
		return ErrInvalidProvisioningStatus
	}

	return nil
}

// HasStarted reports whether schema work may already have happened.
func (s ProvisioningStatus) HasStarted() bool {
	return s != ProvisioningPending
}

type IsolationMode string

const (
	IsolationSchema   IsolationMode = "SCHEMA"
	IsolationDatabase IsolationMode = "DATABASE"
)

func (m IsolationMode) Validate() error {
	if m != IsolationSchema && m != IsolationDatabase {
		return ErrInvalidIsolationMode
	}

	return nil
}
