package workflow

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"social-network/backend/internal/events"
	"social-network/backend/internal/graph"
	"social-network/backend/internal/social"
	"social-network/backend/internal/state"
	"social-network/backend/internal/storage"
	apperrors "social-network/backend/pkg/errors"
)

// MembershipRequests manages requests to join groups.
type MembershipRequests struct {
	g      *graph.GraphStore
	logger *zap.Logger
}

// NewMembershipRequests creates the membership request workflow over g.
func NewMembershipRequests(g *graph.GraphStore) *MembershipRequests {
	return &MembershipRequests{g: g, logger: g.Logger().Named("membership_requests")}
}

// Create stores a pending request of requester to join the group and raises
// MembershipRequestCreated. A second pending request for the same pair is
// rejected.
func (m *MembershipRequests) Create(ctx context.Context, requester, groupID, message string) (storage.MembershipRequest, error) {
	if requester == "" {
		return storage.MembershipRequest{}, apperrors.NewValidationFailed("requester", "must not be empty")
	}

	var r storage.MembershipRequest
	err := m.g.Update(ctx, func(txn *graph.Txn) error {
		g, err := social.LoadGroupTx(ctx, txn, groupID)
		if err != nil {
			return err
		}

		_, err = txn.Records().PendingMembershipRequest(ctx, requester, g.ID)
		switch {
		case err == nil:
			return apperrors.NewValidationConflict("requester", "a pending membership request already exists for this group")
		case !errors.Is(err, storage.ErrNotFound):
			return apperrors.NewGraphQueryFailed("pending_membership_request "+g.ID, err)
		}

		r = storage.MembershipRequest{
			ID:        uuid.NewString(),
			Requester: requester,
			GroupID:   g.ID,
			Message:   message,
			CreatedAt: m.g.Now(),
		}
		if err := txn.Records().PutMembershipRequest(ctx, r); err != nil {
			return apperrors.NewGraphWriteFailed("put_membership_request", r.ID, err)
		}
		txn.Emit(events.New(events.MembershipRequestCreated, g.Site, requester, g.ID, r.CreatedAt, map[string]string{"request_id": r.ID}))
		return nil
	})
	if err != nil {
		return storage.MembershipRequest{}, err
	}
	return r, nil
}

// Get returns the request with id.
func (m *MembershipRequests) Get(ctx context.Context, id string) (storage.MembershipRequest, error) {
	var r storage.MembershipRequest
	err := m.g.View(ctx, func(txn *graph.Txn) error {
		var err error
		r, err = loadMembershipRequest(ctx, txn, id)
		return err
	})
	return r, err
}

// Pending lists the undecided requests for the group, newest first.
func (m *MembershipRequests) Pending(ctx context.Context, groupID string) ([]storage.MembershipRequest, error) {
	var out []storage.MembershipRequest
	err := m.g.View(ctx, func(txn *graph.Txn) error {
		g, err := social.LoadGroupTx(ctx, txn, groupID)
		if err != nil {
			return err
		}
		out, err = txn.Records().MembershipRequestsFor(ctx, g.ID, true)
		if err != nil {
			return apperrors.NewGraphQueryFailed("membership_requests_for "+g.ID, err)
		}
		return nil
	})
	return out, err
}

// Accept admits the requester as a member and records by as acceptor. by
// must administer the group and the request must be pending; otherwise the
// call returns false and changes nothing.
func (m *MembershipRequests) Accept(ctx context.Context, id, by string) (bool, error) {
	return m.decide(ctx, id, by, state.Accepted)
}

// Deny records the refusal and its decider under the same rules as Accept.
func (m *MembershipRequests) Deny(ctx context.Context, id, by string) (bool, error) {
	return m.decide(ctx, id, by, state.Denied)
}

func (m *MembershipRequests) decide(ctx context.Context, id, by string, next state.State) (bool, error) {
	var decided bool
	err := m.g.Update(ctx, func(txn *graph.Txn) error {
		decided = false
		r, err := loadMembershipRequest(ctx, txn, id)
		if err != nil {
			return err
		}
		if err := (state.Decision{State: next, By: by}).Validate(); err != nil {
			return nil
		}
		g, err := social.LoadGroupTx(ctx, txn, r.GroupID)
		if err != nil {
			return err
		}
		admin, err := social.HasAdminTx(ctx, txn, g, by)
		if err != nil || !admin {
			return err
		}
		if _, err := state.Of(r.Accepted, r.Denied).Transition(next); err != nil {
			return nil
		}

		if next == state.Accepted {
			added, err := social.AddMemberTx(ctx, txn, g, r.Requester, by)
			if err != nil || !added {
				return err
			}
		}
		r.Accepted, r.Denied = next.Flags()
		r.Acceptor = by
		if err := txn.Records().PutMembershipRequest(ctx, r); err != nil {
			return apperrors.NewGraphWriteFailed("put_membership_request", r.ID, err)
		}
		decided = true
		return nil
	})
	if err != nil {
		if apperrors.IsGraphFault(err) {
			m.logger.Error("Membership request decision failed",
				zap.String("request_id", id),
				zap.String("decision", string(next)),
				zap.Error(err),
			)
		}
		return false, err
	}
	recordDecision(kindMembership, next, decided)
	return decided, nil
}

func loadMembershipRequest(ctx context.Context, txn *graph.Txn, id string) (storage.MembershipRequest, error) {
	r, err := txn.Records().GetMembershipRequest(ctx, id)
	if errors.Is(err, storage.ErrNotFound) {
		return storage.MembershipRequest{}, apperrors.NewNotFound("membership request", id)
	}
	if err != nil {
		return storage.MembershipRequest{}, apperrors.NewGraphQueryFailed("get_membership_request "+id, err)
	}
	return r, nil
}
