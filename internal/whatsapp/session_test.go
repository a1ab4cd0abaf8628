package whatsapp

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSessionHappyPath(t *testing.T) {
	s := NewSession()
	assert.Equal(t, StateDisconnected, s.State())

	var seen []string
	s.OnTransition(func(from, to SessionState) {
		seen = append(seen, from.String()+"->"+to.String())
	})

	for _, next := range []SessionState{StateConnecting, StatePairing, StateConnected, StateReconnecting, StateConnecting, StateConnected, StateClosed} {
		require.NoError(t, s.Transition(next), "transition to %s", next)
	}

	assert.True(t, s.IsClosed())
	assert.Equal(t, []string{
		"disconnected->connecting",
		"connecting->pairing",
		"pairing->connected",
		"connected->reconnecting",
		"reconnecting->connecting",
		"connecting->connected",
		"connected->closed",
	}, seen)
}

func TestSessionRejectsInvalidTransitions(t *testing.T) {
	tests := []struct {
		name string
		path []SessionState
		to   SessionState
	}{
		{name: "disconnected to connected", path: nil, to: StateConnected},
		{name: "pairing to reconnecting", path: []SessionState{StateConnecting, StatePairing}, to: StateReconnecting},
		{name: "logged out to connected", path: []SessionState{StateConnecting, StateLoggedOut}, to: StateConnected},
		{name: "closed is terminal", path: []SessionState{StateClosed}, to: StateConnecting},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := NewSession()
			for _, step := range tt.path {
				require.NoError(t, s.Transition(step))
			}
			before := s.State()

			err := s.Transition(tt.to)
			require.Error(t, err)
			assert.Equal(t, before, s.State())
		})
	}
}

func TestSessionSelfTransitionIsNoop(t *testing.T) {
	s := NewSession()
	calls := 0
	s.OnTransition(func(from, to SessionState) { calls++ })

	require.NoError(t, s.Transition(StateDisconnected))
	assert.Equal(t, 0, calls)
}

func TestSessionStateString(t *testing.T) {
	assert.Equal(t, "logged_out", StateLoggedOut.String())
	assert.Equal(t, "unknown(42)", SessionState(42).String())
}

func TestSessionHealthy(t *testing.T) {
	tests := []struct {
		path []SessionState
		want bool
	}{
		{path: nil, want: false},
		{path: []SessionState{StateConnecting, StatePairing}, want: true},
		{path: []SessionState{StateConnecting, StateConnected}, want: true},
		{path: []SessionState{StateConnecting, StateConnected, StateReconnecting}, want: false},
		{path: []SessionState{StateConnecting, StateConnected, StateLoggedOut}, want: false},
		{path: []SessionState{StateConnecting, StateConnected, StateDisconnected}, want: false},
	}

	for _, tt := range tests {
		s := NewSession()
		for _, next := range tt.path {
			require.NoError(t, s.Transition(next))
		}
		assert.Equal(t, tt.want, s.Healthy(), "state %s", s.State())
	}
}
