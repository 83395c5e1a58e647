package domain

import "errors"

type CheckoutStage string

const (
	StageAddressSelection    CheckoutStage = "ADDRESS_SELECTION"
	StageConfirmation        CheckoutStage = "CONFIRMATION"
	StageOrderSubmitting     CheckoutStage = "ORDER_SUBMITTING"
	StagePaymentRedirect     CheckoutStage = "PAYMENT_REDIRECT"
	StageCallbackReconciling CheckoutStage = "CALLBACK_RECONCILING"
	StageSucceeded           CheckoutStage = "SUCCESS"
	StageFailed              CheckoutStage = "FAILURE"
)

func (s CheckoutStage) IsTerminal() bool {
	return s == StageSucceeded || s == StageFailed
}

// String representation (for logging)
func (s CheckoutStage) String() string {
	return string(s)
}

var ErrIllegalStageTransition = errors.New("illegal checkout stage transition")

// stageTransitions is the full transition table. Backward edges exist only
// for explicit user navigation and for the order-submission rollback; the
// callback stage is reachable from the start because the in-memory machine is
// reconstructed from URL parameters after the gateway redirect.
var stageTransitions = map[CheckoutStage][]CheckoutStage{
	StageAddressSelection:    {StageConfirmation, StageCallbackReconciling},
	StageConfirmation:        {StageOrderSubmitting, StageAddressSelection},
	StageOrderSubmitting:     {StagePaymentRedirect, StageConfirmation},
	StagePaymentRedirect:     {StageCallbackReconciling},
	StageCallbackReconciling: {StageSucceeded, StageFailed},
}

func CanTransitionTo(from, to CheckoutStage) bool {
	for _, next := range stageTransitions[from] {
		if next == to {
			return true
		}
	}
	return false
}
