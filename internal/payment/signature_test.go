package payment

import (
	"errors"
	"testing"
	"time"
)

func TestVerifySignature(t *testing.T) {
	secret := "whsec_test"
	payload := []byte(`{"id":"evt_1","type":"checkout.session.completed"}`)
	now := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)

	valid := SignPayload(secret, payload, now)

	tests := []struct {
		name    string
		payload []byte
		header  string
		at      time.Time
		wantErr bool
	}{
		{"valid signature", payload, valid, now, false},
		{"valid within tolerance", payload, valid, now.Add(4 * time.Minute), false},
		{"tampered payload", []byte(`{"id":"evt_2"}`), valid, now, true},
		{"wrong secret", payload, SignPayload("whsec_other", payload, now), now, true},
		{"stale timestamp", payload, valid, now.Add(10 * time.Minute), true},
		{"future timestamp", payload, SignPayload(secret, payload, now.Add(10*time.Minute)), now, true},
		{"missing header", payload, "", now, true},
		{"malformed header", payload, "v1=deadbeef", now, true},
		{"garbage hex", payload, "t=1773144000,v1=not-hex", now, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := VerifySignature(secret, tt.payload, tt.header, tt.at)
			if tt.wantErr {
				if !errors.Is(err, ErrInvalidSignature) {
					t.Errorf("VerifySignature() = %v, want ErrInvalidSignature", err)
				}
			} else if err != nil {
				t.Errorf("VerifySignature() = %v, want nil", err)
			}
		})
	}
}

func TestVerifySignatureAcceptsRotatedCandidates(t *testing.T) {
	secret := "whsec_test"
	payload := []byte(`{"id":"evt_1"}`)
	now := time.Now()

	// During secret rotation the provider sends two v1 entries; either one
	// matching is enough.
	valid := SignPayload(secret, payload, now)
	header := valid + ",v1=" + "0000000000000000000000000000000000000000000000000000000000000000"

	if err := VerifySignature(secret, payload, header, now); err != nil {
		t.Errorf("VerifySignature() with extra candidate = %v, want nil", err)
	}
}
