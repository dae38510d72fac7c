package social

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"social-network/backend/internal/constants"
	"social-network/backend/internal/events"
	"social-network/backend/internal/graph"
	"social-network/backend/internal/storage"
	apperrors "social-network/backend/pkg/errors"
)

// ============================================================================
// Group Operations
// ============================================================================

// NewGroup describes a group to create. An empty Slug is derived from Name;
// an empty Site means the default site.
type NewGroup struct {
	Site           string   `json:"site"`
	Name           string   `json:"name"`
	Slug           string   `json:"slug"`
	Description    string   `json:"description"`
	Creator        string   `json:"creator"`
	Closed         bool     `json:"closed"`
	Administrators []string `json:"administrators"`
}

// CreateGroup stores the group, makes its creator a member with the creator
// role and grants the initial administrators, all in one transaction.
func (s *Service) CreateGroup(ctx context.Context, ng NewGroup) (storage.Group, error) {
	name := strings.TrimSpace(ng.Name)
	if name == "" {
		return storage.Group{}, apperrors.NewValidationFailed("name", "must not be empty")
	}
	if err := requireID("creator", ng.Creator); err != nil {
		return storage.Group{}, err
	}

	var created storage.Group
	err := s.g.Update(ctx, func(txn *graph.Txn) error {
		site := s.g.Site(ng.Site)
		slug, err := s.resolveSlug(ctx, txn, site, ng.Slug, name)
		if err != nil {
			return err
		}

		g := storage.Group{
			ID:          uuid.NewString(),
			Site:        site,
			Slug:        slug,
			Name:        name,
			Description: ng.Description,
			Creator:     ng.Creator,
			Closed:      ng.Closed,
			CreatedAt:   s.g.Now(),
		}
		if err := txn.Records().PutGroup(ctx, g); err != nil {
			if errors.Is(err, storage.ErrAlreadyExists) {
				return apperrors.NewValidationConflict("slug", fmt.Sprintf("%q is already taken in site %q", slug, site))
			}
			return apperrors.NewGraphWriteFailed("put_group", g.ID, err)
		}

		if _, err := txn.Edge(ctx, graph.UserNode(g.Creator), graph.GroupNode(g.ID), constants.EdgeMemberOf, site, graph.RoleAttributes(constants.RoleCreator)); err != nil {
			return err
		}
		for _, admin := range ng.Administrators {
			if err := addAdministratorTx(ctx, txn, g, admin); err != nil {
				return err
			}
		}

		txn.Emit(events.New(events.GroupCreated, site, g.Creator, g.ID, g.CreatedAt, map[string]string{"slug": g.Slug}))
		created = g
		return nil
	})
	if err != nil {
		return storage.Group{}, err
	}

	s.logger.Info("Group created",
		zap.String("group_id", created.ID),
		zap.String("slug", created.Slug),
		zap.String("site", created.Site),
		zap.String("creator", created.Creator),
	)
	return created, nil
}

// resolveSlug returns the requested slug when it is free, or the slug of name
// with the first free numeric suffix ("book", "book-2", "book-3", ...).
func (s *Service) resolveSlug(ctx context.Context, txn *graph.Txn, site, requested, name string) (string, error) {
	explicit := requested != ""
	base := requested
	if !explicit {
		base = Slugify(name)
	}

	candidate := base
	for n := 2; ; n++ {
		_, err := txn.Records().GetGroupBySlug(ctx, site, candidate)
		if errors.Is(err, storage.ErrNotFound) {
			return candidate, nil
		}
		if err != nil {
			return "", apperrors.NewGraphQueryFailed("get_group_by_slug "+candidate, err)
		}
		if explicit {
			return "", apperrors.NewValidationConflict("slug", fmt.Sprintf("%q is already taken in site %q", candidate, site))
		}
		candidate = fmt.Sprintf("%s-%d", base, n)
	}
}

// GetGroup returns the group with id.
func (s *Service) GetGroup(ctx context.Context, id string) (storage.Group, error) {
	var g storage.Group
	err := s.g.View(ctx, func(txn *graph.Txn) error {
		var err error
		g, err = LoadGroupTx(ctx, txn, id)
		return err
	})
	return g, err
}

// GroupBySlug returns the group with slug in site.
func (s *Service) GroupBySlug(ctx context.Context, site, slug string) (storage.Group, error) {
	var g storage.Group
	err := s.g.View(ctx, func(txn *graph.Txn) error {
		var err error
		g, err = txn.Records().GetGroupBySlug(ctx, s.g.Site(site), slug)
		if errors.Is(err, storage.ErrNotFound) {
			return apperrors.NewNotFound("group", slug)
		}
		return err
	})
	return g, err
}

// GroupUpdate lists the group fields to change; nil fields are left alone.
// The slug only changes when Slug is set explicitly.
type GroupUpdate struct {
	Name        *string `json:"name"`
	Slug        *string `json:"slug"`
	Description *string `json:"description"`
	Closed      *bool   `json:"closed"`
}

// UpdateGroup edits a group's name, description, closed flag and slug on
// behalf of by. A slug held by another group of the same site is a conflict.
func (s *Service) UpdateGroup(ctx context.Context, id, by string, u GroupUpdate) (storage.Group, error) {
	var name string
	if u.Name != nil {
		name = strings.TrimSpace(*u.Name)
		if name == "" {
			return storage.Group{}, apperrors.NewValidationFailed("name", "must not be empty")
		}
	}
	if u.Slug != nil && strings.TrimSpace(*u.Slug) == "" {
		return storage.Group{}, apperrors.NewValidationFailed("slug", "must not be empty")
	}

	var updated storage.Group
	err := s.g.Update(ctx, func(txn *graph.Txn) error {
		g, err := LoadGroupTx(ctx, txn, id)
		if err != nil {
			return err
		}
		if u.Name != nil {
			g.Name = name
		}
		if u.Description != nil {
			g.Description = *u.Description
		}
		if u.Closed != nil {
			g.Closed = *u.Closed
		}
		if u.Slug != nil && *u.Slug != g.Slug {
			if g.Slug, err = s.resolveSlug(ctx, txn, g.Site, strings.TrimSpace(*u.Slug), g.Name); err != nil {
				return err
			}
		}

		if err := txn.Records().PutGroup(ctx, g); err != nil {
			if errors.Is(err, storage.ErrAlreadyExists) {
				return apperrors.NewValidationConflict("slug", fmt.Sprintf("%q is already taken in site %q", g.Slug, g.Site))
			}
			return apperrors.NewGraphWriteFailed("put_group", g.ID, err)
		}
		txn.Emit(events.New(events.GroupUpdated, g.Site, by, g.ID, s.g.Now(), map[string]string{"slug": g.Slug}))
		updated = g
		return nil
	})
	if err != nil {
		return storage.Group{}, err
	}

	s.logger.Info("Group updated", zap.String("group_id", updated.ID), zap.String("slug", updated.Slug))
	return updated, nil
}
