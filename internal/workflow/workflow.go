package workflow

import (
	"context"
	"errors"

	"github.com/looplab/fsm"

	"github.com/openkcm/compliance-hub/internal/errs"
	"github.com/openkcm/compliance-hub/internal/model"
)

// Lifecycle is the state machine of one tenant.
type Lifecycle struct {
	StateMachine *fsm.FSM
}

// convertEvent converts Event and State types to string
// and creates an EventDesc object for the state machine.
func convertEvent(
	event Event,
	sourceStates []State,
	destinationState State,
) fsm.EventDesc {
	src := make([]string, len(sourceStates))
	for i, state := range sourceStates {
		src[i] = state.String()
	}

	return fsm.EventDesc{
		Name: event.String(),
		Src:  src,
		Dst:  destinationState.String(),
	}
}

func events() fsm.Events {
	return fsm.Events{
		convertEvent(EventProvision, []State{StatePending, StateFailed}, StateProvisioning),
		convertEvent(EventActivatePayment, []State{StatePendingPayment, StateFailed}, StateProvisioning),
		convertEvent(EventComplete, []State{StateProvisioning}, StateActive),
		convertEvent(EventCompleteTrial, []State{StateProvisioning}, StateTrial),
		convertEvent(EventFail, []State{StateProvisioning}, StateFailed),
		convertEvent(EventSuspend, []State{StateActive, StateTrial}, StateSuspended),
		convertEvent(EventResume, []State{StateSuspended, StateExpired}, StateActive),
		convertEvent(EventCancel, []State{StateActive, StateTrial, StateSuspended}, StateCancelled),
		convertEvent(EventExpire, []State{StateTrial}, StateExpired),
		convertEvent(EventDelete, UndeletedStates, StateDeleted),
	}
}

// NewLifecycle starts a state machine in the current state of tenant.
func NewLifecycle(tenant *model.Tenant) (*Lifecycle, error) {
	state, err := StateOf(tenant)
	if err != nil {
		return nil, err
	}

	return NewLifecycleAt(state), nil
}

// NewLifecycleAt starts a state machine in state.
func NewLifecycleAt(state State) *Lifecycle {
	return &Lifecycle{
		StateMachine: fsm.NewFSM(state.String(), events(), fsm.Callbacks{}),
	}
}

func (l *Lifecycle) Current() State {
	return State(l.StateMachine.Current())
}

// Can reports whether event is allowed in the current state.
func (l *Lifecycle) Can(event Event) bool {
	return l.StateMachine.Can(event.String())
}

// Fire applies event and returns the new state.
func (l *Lifecycle) Fire(ctx context.Context, event Event) (State, error) {
	from := l.Current()

	err := l.StateMachine.Event(ctx, event.String())
	if err != nil {
		var invalid fsm.InvalidEventError
		if errors.As(err, &invalid) || !l.Can(event) {
			return from, NewTransitionError(event, from)
		}

		return from, errs.Wrap(ErrInvalidTransition, err)
	}

	return l.Current(), nil
}

// StateOf derives the lifecycle state from the statuses of tenant.
func StateOf(tenant *model.Tenant) (State, error) {
	if tenant.SubscriptionStatus == model.SubscriptionDeleted {
		return StateDeleted, nil
	}

	switch tenant.ProvisioningStatus {
	case model.ProvisioningPending:
		if tenant.SubscriptionStatus == model.SubscriptionPendingPayment {
			return StatePendingPayment, nil
		}

		return StatePending, nil
	case model.ProvisioningInProgress:
		return StateProvisioning, nil
	case model.ProvisioningFailed:
		return StateFailed, nil
	case model.ProvisioningActive, model.ProvisioningDeprovisioning:
		switch tenant.SubscriptionStatus {
		case model.SubscriptionTrial:
			return StateTrial, nil
		case model.SubscriptionActive:
			return StateActive, nil
		case model.SubscriptionSuspended:
			return StateSuspended, nil
		case model.SubscriptionCancelled:
			return StateCancelled, nil
		case model.SubscriptionExpired:
			return StateExpired, nil
		}
	}

	return "", errs.Wrapf(ErrUnknownState,
		string(tenant.ProvisioningStatus)+"/"+string(tenant.SubscriptionStatus))
}

// Changes returns the tenant columns that represent state, keyed by column
// name. Columns the state does not own are absent.
func Changes(state State) map[string]any {
	switch state {
	case StateProvisioning:
		return map[string]any{
			"provisioning_status": model.ProvisioningInProgress,
			"provisioning_error":  "",
		}
	case StateFailed:
		return map[string]any{
			"provisioning_status": model.ProvisioningFailed,
			"is_active":           false,
		}
	case StateActive:
		return map[string]any{
			"provisioning_status": model.ProvisioningActive,
			"subscription_status": model.SubscriptionActive,
			"is_active":           true,
		}
	case StateTrial:
		return map[string]any{
			"provisioning_status": model.ProvisioningActive,
			"subscription_status": model.SubscriptionTrial,
			"is_active":           true,
		}
	case StateSuspended:
		return map[string]any{"subscription_status": model.SubscriptionSuspended, "is_active": false}
	case StateCancelled:
		return map[string]any{"subscription_status": model.SubscriptionCancelled, "is_active": false}
	case StateExpired:
		return map[string]any{"subscription_status": model.SubscriptionExpired, "is_active": false}
	case StateDeleted:
		return map[string]any{"subscription_status": model.SubscriptionDeleted, "is_active": false}
	case StatePending:
		return map[string]any{"provisioning_status": model.ProvisioningPending}
	case StatePendingPayment:
		return map[string]any{
			"provisioning_status": model.ProvisioningPending,
			"subscription_status": model.SubscriptionPendingPayment,
		}
	}

	return map[string]any{}
}
