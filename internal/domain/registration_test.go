package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCanTransitionStatus(t *testing.T) {
	tests := []struct {
		from, to RegistrationStatus
		want     bool
	}{
		{RegistrationConfirmed, RegistrationCancelled, true},
		{RegistrationConfirmed, RegistrationAttended, true},
		{RegistrationConfirmed, RegistrationConfirmed, false},
		{RegistrationCancelled, RegistrationConfirmed, false},
		{RegistrationCancelled, RegistrationCancelled, false},
		{RegistrationCancelled, RegistrationAttended, false},
		{RegistrationAttended, RegistrationCancelled, false},
		{RegistrationAttended, RegistrationConfirmed, false},
	}
	for _, tt := range tests {
		t.Run(string(tt.from)+"->"+string(tt.to), func(t *testing.T) {
			assert.Equal(t, tt.want, CanTransitionStatus(tt.from, tt.to))
		})
	}
}

func TestCanTransitionPayment(t *testing.T) {
	assert.True(t, CanTransitionPayment(PaymentPending, PaymentPaid))
	assert.True(t, CanTransitionPayment(PaymentPaid, PaymentRefunded))
	assert.False(t, CanTransitionPayment(PaymentPending, PaymentRefunded))
	assert.False(t, CanTransitionPayment(PaymentRefunded, PaymentPaid))
	assert.False(t, CanTransitionPayment(PaymentPaid, PaymentPending))
}

func TestRebaseAvailableSlots(t *testing.T) {
	assert.Equal(t, 7, RebaseAvailableSlots(10, 3))
	assert.Equal(t, 0, RebaseAvailableSlots(3, 3))
	assert.Equal(t, 0, RebaseAvailableSlots(2, 5))
	assert.Equal(t, 50, RebaseAvailableSlots(50, 0))
}

func TestPrincipalCapability(t *testing.T) {
	var anonymous *Principal
	assert.Equal(t, CapabilityAnonymous, anonymous.Capability())
	assert.Equal(t, CapabilityUser, (&Principal{Role: RoleUser}).Capability())
	assert.Equal(t, CapabilityAdmin, (&Principal{Role: RoleAdmin}).Capability())
	assert.Equal(t, CapabilityAnonymous, (&Principal{Role: "guest"}).Capability())
}
