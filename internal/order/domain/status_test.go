package domain

import "testing"

func TestMapFulfillmentStatus(t *testing.T) {
	tests := []struct {
		provider string
		want     Status
	}{
		{"pending", StatusProcessing},
		{"in-production", StatusProcessing},
		{"fulfilled", StatusShipped},
		{"shipped", StatusShipped},
		{"delivered", StatusDelivered},
		{"cancelled", StatusCancelled},
		{"SHIPPED", StatusShipped},
		{"on-hold", StatusProcessing},
		{"", StatusProcessing},
	}

	for _, tt := range tests {
		if got := MapFulfillmentStatus(tt.provider); got != tt.want {
			t.Errorf("MapFulfillmentStatus(%q) = %q, want %q", tt.provider, got, tt.want)
		}
	}
}

func TestValidStatus(t *testing.T) {
	for _, s := range []Status{StatusPendingReview, StatusPending, StatusPaid, StatusProcessing, StatusShipped, StatusDelivered, StatusCancelled} {
		if !ValidStatus(s) {
			t.Errorf("ValidStatus(%q) = false, want true", s)
		}
	}
	if ValidStatus("fulfilled") {
		t.Error(`ValidStatus("fulfilled") = true; provider statuses are not order statuses`)
	}
}
