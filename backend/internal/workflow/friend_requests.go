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

// FriendRequests manages friend requests.
type FriendRequests struct {
	g      *graph.GraphStore
	logger *zap.Logger
}

// NewFriendRequests creates the friend request workflow over g.
func NewFriendRequests(g *graph.GraphStore) *FriendRequests {
	return &FriendRequests{g: g, logger: g.Logger().Named("friend_requests")}
}

// Create stores a pending request from from to to and raises FriendRequestCreated.
func (f *FriendRequests) Create(ctx context.Context, from, to, message, site string) (storage.FriendRequest, error) {
	if from == "" {
		return storage.FriendRequest{}, apperrors.NewValidationFailed("from_user", "must not be empty")
	}
	if to == "" {
		return storage.FriendRequest{}, apperrors.NewValidationFailed("to_user", "must not be empty")
	}
	if from == to {
		return storage.FriendRequest{}, apperrors.NewValidationFailed("to_user", "cannot send a friend request to yourself")
	}

	r := storage.FriendRequest{
		ID:       uuid.NewString(),
		FromUser: from,
		ToUser:   to,
		Message:  message,
		Site:     f.g.Site(site),
	}
	err := f.g.Update(ctx, func(txn *graph.Txn) error {
		r.CreatedAt = f.g.Now()
		if err := txn.Records().PutFriendRequest(ctx, r); err != nil {
			return apperrors.NewGraphWriteFailed("put_friend_request", r.ID, err)
		}
		txn.Emit(events.New(events.FriendRequestCreated, r.Site, from, to, r.CreatedAt, map[string]string{"request_id": r.ID}))
		return nil
	})
	if err != nil {
		return storage.FriendRequest{}, err
	}
	return r, nil
}

// Get returns the request with id.
func (f *FriendRequests) Get(ctx context.Context, id string) (storage.FriendRequest, error) {
	var r storage.FriendRequest
	err := f.g.View(ctx, func(txn *graph.Txn) error {
		var err error
		r, err = loadFriendRequest(ctx, txn, id)
		return err
	})
	return r, err
}

// Incoming lists the pending requests addressed to user, newest first.
func (f *FriendRequests) Incoming(ctx context.Context, user string) ([]storage.FriendRequest, error) {
	var out []storage.FriendRequest
	err := f.g.View(ctx, func(txn *graph.Txn) error {
		var err error
		out, err = txn.Records().FriendRequestsTo(ctx, user, true)
		if err != nil {
			return apperrors.NewGraphQueryFailed("friend_requests_to "+user, err)
		}
		return nil
	})
	return out, err
}

// Accept makes the two users friends and marks the request accepted. Only
// the addressee may accept, and only while the request is pending; any other
// call returns false and changes nothing.
func (f *FriendRequests) Accept(ctx context.Context, id, by string) (bool, error) {
	return f.decide(ctx, id, by, state.Accepted)
}

// Deny marks the request denied under the same rules as Accept.
func (f *FriendRequests) Deny(ctx context.Context, id, by string) (bool, error) {
	return f.decide(ctx, id, by, state.Denied)
}

func (f *FriendRequests) decide(ctx context.Context, id, by string, next state.State) (bool, error) {
	var decided bool
	err := f.g.Update(ctx, func(txn *graph.Txn) error {
		decided = false
		r, err := loadFriendRequest(ctx, txn, id)
		if err != nil {
			return err
		}
		if by != r.ToUser {
			return nil
		}
		if _, err := state.Of(r.Accepted, r.Denied).Transition(next); err != nil {
			return nil
		}

		if next == state.Accepted {
			if err := social.MakeFriendOfTx(ctx, txn, r.ToUser, r.FromUser, r.Site); err != nil {
				return err
			}
		}
		r.Accepted, r.Denied = next.Flags()
		if err := txn.Records().PutFriendRequest(ctx, r); err != nil {
			return apperrors.NewGraphWriteFailed("put_friend_request", r.ID, err)
		}
		decided = true
		return nil
	})
	if err != nil {
		if apperrors.IsGraphFault(err) {
			f.logger.Error("Friend request decision failed",
				zap.String("request_id", id),
				zap.String("decision", string(next)),
				zap.Error(err),
			)
		}
		return false, err
	}
	recordDecision(kindFriend, next, decided)
	return decided, nil
}

func loadFriendRequest(ctx context.Context, txn *graph.Txn, id string) (storage.FriendRequest, error) {
	r, err := txn.Records().GetFriendRequest(ctx, id)
	if errors.Is(err, storage.ErrNotFound) {
		return storage.FriendRequest{}, apperrors.NewNotFound("friend request", id)
	}
	if err != nil {
		return storage.FriendRequest{}, apperrors.NewGraphQueryFailed("get_friend_request "+id, err)
	}
	return r, nil
}
