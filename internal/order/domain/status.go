// Package domain holds the order status model and the provider status
// mapping, free of transport and persistence concerns.
package domain

import "strings"

// Status is the lifecycle state of an order.
type Status string

const (
	// StatusPendingReview marks a placeholder order synthesized at admin
	// approval time, before any payment session is known.
	StatusPendingReview Status = "pending_review"
	// StatusPending is a created order awaiting payment confirmation.
	StatusPending Status = "pending"
	// StatusPaid means the payment provider confirmed the session.
	StatusPaid Status = "paid"
	// StatusProcessing means the fulfillment provider accepted the order.
	StatusProcessing Status = "processing"
	// StatusShipped means the fulfillment provider dispatched the order.
	StatusShipped Status = "shipped"
	// StatusDelivered is terminal for successful physical orders.
	StatusDelivered Status = "delivered"
	// StatusCancelled is terminal for cancelled orders.
	StatusCancelled Status = "cancelled"
)

// ValidStatus reports whether s is a known order status.
func ValidStatus(s Status) bool {
	switch s {
	case StatusPendingReview, StatusPending, StatusPaid, StatusProcessing,
		StatusShipped, StatusDelivered, StatusCancelled:
		return true
	}
	return false
}

// MapFulfillmentStatus translates a fulfillment-provider status into the
// order status it implies. Unknown provider statuses conservatively map to
// processing: the order is in the provider's hands either way.
func MapFulfillmentStatus(providerStatus string) Status {
	switch strings.ToLower(providerStatus) {
	case "pending", "in-production":
		return StatusProcessing
	case "fulfilled", "shipped":
		return StatusShipped
	case "delivered":
		return StatusDelivered
	case "cancelled":
		return StatusCancelled
	default:
		return StatusProcessing
	}
}
