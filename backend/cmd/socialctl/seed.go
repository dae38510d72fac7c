package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"social-network/backend/internal/app"
	"social-network/backend/internal/feed"
	"social-network/backend/internal/graph"
	"social-network/backend/internal/social"
	"social-network/backend/internal/workflow"
	"social-network/backend/pkg/config"
	apperrors "social-network/backend/pkg/errors"
)

const seedGroupSlug = "gophers"

var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Create a small demo graph",
	Long: `seed creates a few users who follow and befriend each other, a closed
group with an administrator and a pending membership request, and one post.
It does nothing when the demo group already exists in the site.`,
	Args: cobra.NoArgs,
	RunE: runSeed,
}

var seedSite string

func init() {
	seedCmd.Flags().StringVar(&seedSite, "site", "", "Site to seed (defaults to DEFAULT_SITE)")
	rootCmd.AddCommand(seedCmd)
}

func runSeed(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	a, err := app.New(ctx, cfg, zap.NewNop(), true)
	if err != nil {
		return err
	}
	defer a.Close(ctx)

	created, err := seed(ctx, a.Graph, seedSite)
	if err != nil {
		return err
	}
	if created {
		fmt.Fprintf(cmd.OutOrStdout(), "Seeded site %s\n", a.Graph.Site(seedSite))
	} else {
		fmt.Fprintf(cmd.OutOrStdout(), "Site %s already seeded\n", a.Graph.Site(seedSite))
	}
	return nil
}

// seed reports false when the demo group is already present.
func seed(ctx context.Context, g *graph.GraphStore, site string) (bool, error) {
	s := social.NewService(g)
	site = g.Site(site)

	if _, err := s.GroupBySlug(ctx, site, seedGroupSlug); err == nil {
		return false, nil
	} else if !apperrors.IsNotFound(err) {
		return false, err
	}

	follows := [][2]string{
		{"bob", "alice"},
		{"carol", "alice"},
		{"alice", "bob"},
		{"dave", "carol"},
	}
	for _, f := range follows {
		if err := s.Follow(ctx, f[0], f[1], site); err != nil {
			return false, err
		}
	}

	friends := workflow.NewFriendRequests(g)
	req, err := friends.Create(ctx, "alice", "bob", "Hi Bob", site)
	if err != nil {
		return false, err
	}
	if _, err := friends.Accept(ctx, req.ID, "bob"); err != nil {
		return false, err
	}
	if _, err := friends.Create(ctx, "carol", "dave", "", site); err != nil {
		return false, err
	}

	group, err := s.CreateGroup(ctx, social.NewGroup{
		Site:           site,
		Name:           "Gophers",
		Slug:           seedGroupSlug,
		Description:    "People who write Go",
		Creator:        "alice",
		Closed:         true,
		Administrators: []string{"bob"},
	})
	if err != nil {
		return false, err
	}
	if _, err := s.AddMember(ctx, group.ID, "carol", "bob"); err != nil {
		return false, err
	}
	if _, err := workflow.NewMembershipRequests(g).Create(ctx, "dave", group.ID, "Let me in"); err != nil {
		return false, err
	}

	if _, err := feed.NewProjector(g).CreatePost(ctx, feed.NewPost{
		GroupID: group.ID,
		Creator: "alice",
		Comment: "Welcome to the group",
	}); err != nil {
		return false, err
	}
	return true, nil
}
