package state

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestOf(t *testing.T) {
	assert.Equal(t, Pending, Of(false, false))
	assert.Equal(t, Accepted, Of(true, false))
	assert.Equal(t, Denied, Of(false, true))
}

func TestTransition(t *testing.T) {
	tests := []struct {
		name    string
		from    State
		to      State
		want    State
		wantErr bool
	}{
		{"pending to accepted", Pending, Accepted, Accepted, false},
		{"pending to denied", Pending, Denied, Denied, false},
		{"pending to pending", Pending, Pending, Pending, true},
		{"accepted is absorbing", Accepted, Denied, Accepted, true},
		{"denied is absorbing", Denied, Accepted, Denied, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := tt.from.Transition(tt.to)
			assert.Equal(t, tt.want, got)
			if tt.wantErr {
				assert.IsType(t, ErrInvalidTransition{}, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestFlagsRoundTrip(t *testing.T) {
	for _, s := range []State{Pending, Accepted, Denied} {
		assert.Equal(t, s, Of(s.Flags()))
	}
}

func TestDecisionValidate(t *testing.T) {
	assert.NoError(t, Decision{State: Accepted, By: "u1"}.Validate())
	assert.Error(t, Decision{State: Pending, By: "u1"}.Validate())
	assert.Error(t, Decision{State: Denied}.Validate())
}
