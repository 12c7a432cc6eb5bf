package workflow

// State is a tenant lifecycle state. It folds the provisioning and the
// subscription status of a tenant into one value.
type State string

func (s State) String() string {
	return string(s)
}

// Event moves a tenant from one State to another.
type Event string

func (e Event) String() string {
	return string(e)
}

const (
	StatePendingPayment State = "PENDING_PAYMENT"
	StatePending        State = "PENDING"
	StateProvisioning   State = "PROVISIONING"
	StateFailed         State = "FAILED"
	StateTrial          State = "TRIAL"
	StateActive         State = "ACTIVE"
	StateSuspended      State = "SUSPENDED"
	StateCancelled      State = "CANCELLED"
	StateExpired        State = "EXPIRED"
	StateDeleted        State = "DELETED"

	EventProvision       Event = "provision"
	EventActivatePayment Event = "activate_payment"
	EventComplete        Event = "complete"
	EventCompleteTrial   Event = "complete_trial"
	EventFail            Event = "fail"
	EventSuspend         Event = "suspend"
	EventResume          Event = "resume"
	EventCancel          Event = "cancel"
	EventExpire          Event = "expire"
	EventDelete          Event = "delete"
)

var States = []State{
	StatePendingPayment, StatePending, StateProvisioning, StateFailed, StateTrial,
	StateActive, StateSuspended, StateCancelled, StateExpired, StateDeleted,
}

var Events = []Event{
	EventProvision, EventActivatePayment, EventComplete, EventCompleteTrial, EventFail,
	EventSuspend, EventResume, EventCancel, EventExpire, EventDelete,
}

// UndeletedStates is every state the delete event leaves.
var UndeletedStates = []State{
	StatePendingPayment, StatePending, StateProvisioning, StateFailed, StateTrial,
	StateActive, StateSuspended, StateCancelled, StateExpired,
}
