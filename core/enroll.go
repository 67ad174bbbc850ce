package core

import "context"

type (
	// PaymentReferences carries the payment-provider identifiers captured during the
	// payment step. They are passed through to the enrollment collaborator untouched.
	PaymentReferences struct {
		PaymentIntentID string `json:"payment_intent_id,omitempty"`
		SubscriptionID  string `json:"subscription_id,omitempty"`
		CustomerID      string `json:"customer_id,omitempty"`
	}

	// Enrollment is the finalize payload: one completed funnel traversal.
	Enrollment struct {
		SessionID string                 `json:"session_id"`
		FunnelID  string                 `json:"funnel_id"`
		OrgID     string                 `json:"org_id"`
		UserID    string                 `json:"user_id,omitempty"`
		Data      map[string]interface{} `json:"data,omitempty"`
		Payment   *PaymentReferences     `json:"payment,omitempty"`
	}

	// EnrollmentService converts a completed funnel session into a real enrollment/charge.
	EnrollmentService interface {
		// Finalize must be idempotent keyed on Enrollment.SessionID: callers may retry
		// with the same session id and no second enrollment/charge may result.
		Finalize(ctx context.Context, enr Enrollment) error
	}
)
