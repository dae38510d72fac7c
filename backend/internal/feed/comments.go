package feed

import (
	"context"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"social-network/backend/internal/events"
	"social-network/backend/internal/graph"
	"social-network/backend/internal/storage"
	apperrors "social-network/backend/pkg/errors"
)

// FieldCommentID is the event field carrying a profile comment's ID.
const FieldCommentID = "comment_id"

// NewProfileComment is a comment left by Creator on Receiver's profile.
type NewProfileComment struct {
	Site     string `json:"site"`
	Creator  string `json:"creator"`
	Receiver string `json:"receiver"`
	Comment  string `json:"comment"`
}

// CreateProfileComment stores the comment and queues ProfileCommentCreated
// with the receiver as subject.
func (p *Projector) CreateProfileComment(ctx context.Context, nc NewProfileComment) (storage.ProfileComment, error) {
	if nc.Creator == "" {
		return storage.ProfileComment{}, apperrors.NewValidationFailed("creator", "must not be empty")
	}
	if nc.Receiver == "" {
		return storage.ProfileComment{}, apperrors.NewValidationFailed("receiver", "must not be empty")
	}
	if strings.TrimSpace(nc.Comment) == "" {
		return storage.ProfileComment{}, apperrors.NewValidationFailed("comment", "must not be empty")
	}

	c := storage.ProfileComment{
		ID:       uuid.NewString(),
		Site:     p.g.Site(nc.Site),
		Creator:  nc.Creator,
		Receiver: nc.Receiver,
		Comment:  nc.Comment,
	}
	err := p.g.Update(ctx, func(txn *graph.Txn) error {
		c.CreatedAt = p.g.Now()
		if err := txn.Records().PutProfileComment(ctx, c); err != nil {
			return apperrors.NewGraphWriteFailed("put_profile_comment", c.ID, err)
		}
		txn.Emit(events.New(events.ProfileCommentCreated, c.Site, c.Creator, c.Receiver, c.CreatedAt, map[string]string{FieldCommentID: c.ID}))
		return nil
	})
	if err != nil {
		return storage.ProfileComment{}, err
	}
	p.logger.Debug("Profile comment created", zap.String("comment_id", c.ID), zap.String("receiver", c.Receiver))
	return c, nil
}

// ProfileComments pages through the comments left on receiver's profile in
// site, newest first.
func (p *Projector) ProfileComments(ctx context.Context, receiver, site string, offset, limit int) ([]storage.ProfileComment, error) {
	if offset < 0 {
		offset = 0
	}
	var out []storage.ProfileComment
	err := p.g.View(ctx, func(txn *graph.Txn) error {
		var err error
		out, err = txn.Records().ProfileComments(ctx, receiver, p.g.Site(site), offset, limit)
		if err != nil {
			return apperrors.NewGraphQueryFailed("profile_comments "+receiver, err)
		}
		return nil
	})
	return out, err
}
