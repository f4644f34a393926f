package models

type EmployeeType string

const (
	EmployeeTypeAdmin EmployeeType = "Admin"
	EmployeeTypeEmp   EmployeeType = "Emp"
	EmployeeTypeAgent EmployeeType = "Agent"
)

type ProposalStatus string

const (
	ProposalStatusDraft     ProposalStatus = "Draft"
	ProposalStatusSubmitted ProposalStatus = "Submitted"
	ProposalStatusValidated ProposalStatus = "Validated"
	ProposalStatusBypassed  ProposalStatus = "Bypassed"
	ProposalStatusPaid      ProposalStatus = "Paid"
	ProposalStatusInvoiced  ProposalStatus = "Invoiced"
)

// ValidationOutcome tags the result of the insurer-validation step.
// Bypass is a deliberate user choice after a failed call, not an error state.
type ValidationOutcome string

const (
	ValidationOutcomeValidated ValidationOutcome = "Validated"
	ValidationOutcomeBypassed  ValidationOutcome = "BypassedByUser"
	ValidationOutcomeFailed    ValidationOutcome = "Failed"
)

type PaymentMode string

const (
	PaymentModeFullPay  PaymentMode = "FP"
	PaymentModeDiscount PaymentMode = "DC"
	PaymentModeUpfront  PaymentMode = "UC"
)

type PaymentStatus string

const (
	PaymentStatusPaid      PaymentStatus = "Paid"
	PaymentStatusFailed    PaymentStatus = "Failed"
	PaymentStatusCancelled PaymentStatus = "Cancelled"
	// Uncertain: the hosted checkout confirmed the charge but our record call
	// could not be completed. The money may have moved.
	PaymentStatusUncertain PaymentStatus = "Uncertain"
)

// Fixed reason strings surfaced to the cancel screen.
const (
	PaymentReasonAPIError  = "API_error"
	PaymentReasonDismissed = "Checkout_dismissed"
)

type ReplenishStatus string

const (
	ReplenishStatusPending  ReplenishStatus = "Pending"
	ReplenishStatusApproved ReplenishStatus = "Approved"
	ReplenishStatusRejected ReplenishStatus = "Rejected"
)

type BatchPaymentStatus string

const (
	BatchPaymentStatusPending   BatchPaymentStatus = "Pending"
	BatchPaymentStatusUTRFilled BatchPaymentStatus = "UTRFilled"
	BatchPaymentStatusApproved  BatchPaymentStatus = "Approved"
	BatchPaymentStatusRejected  BatchPaymentStatus = "Rejected"
)

type ProductVariant string

const (
	ProductVariantTravel ProductVariant = "Travel"
	ProductVariantPracto ProductVariant = "Practo"
	ProductVariantAyush  ProductVariant = "Ayush"
)

// Outbox publish lifecycle (dispatcher-owned).
const (
	OutboxPublishStatusPending    = "PENDING"
	OutboxPublishStatusProcessing = "PROCESSING"
	OutboxPublishStatusSent       = "SENT"
	OutboxPublishStatusFailed     = "FAILED"
	OutboxPublishStatusDead       = "DEAD"
)

// Policy event types published through the outbox.
const (
	EventTypePaymentRecorded  = "payment.recorded"
	EventTypePaymentUncertain = "payment.uncertain"
	EventTypeWalletDebited    = "wallet.debited"
	EventTypePolicyIssued     = "policy.issued"
)

type IdempotencyStatus string

const (
	IdempotencyStatusStarted   IdempotencyStatus = "STARTED"
	IdempotencyStatusSucceeded IdempotencyStatus = "SUCCEEDED"
	IdempotencyStatusFailed    IdempotencyStatus = "FAILED"
)
