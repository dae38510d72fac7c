// Package workflow drives friend requests and group membership requests
// through pending -> accepted | denied. A decision and the graph change it
// causes commit in one transaction; a failed graph write leaves the request
// pending.
package workflow

import (
	"social-network/backend/internal/metrics"
	"social-network/backend/internal/state"
)

const (
	kindFriend     = "friend"
	kindMembership = "membership"

	outcomeRejected = "rejected"
)

func recordDecision(kind string, next state.State, ok bool) {
	outcome := string(next)
	if !ok {
		outcome = outcomeRejected
	}
	metrics.RequestDecisionsTotal.WithLabelValues(kind, outcome).Inc()
}
