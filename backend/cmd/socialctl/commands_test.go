package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"social-network/backend/internal/edgetype"
	"social-network/backend/internal/feed"
	"social-network/backend/internal/graph"
	"social-network/backend/internal/social"
	"social-network/backend/internal/storage/memory"
	"social-network/backend/internal/workflow"
)

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	edgeTypesFile, edgeTypesYAML, migrateForce, statsSite, seedSite = "", false, false, "", ""

	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	rootCmd.SetArgs(args)
	defer rootCmd.SetArgs(nil)

	err := rootCmd.Execute()
	return out.String(), err
}

func TestRootCommand(t *testing.T) {
	require.NotNil(t, rootCmd)
	assert.Equal(t, "socialctl", rootCmd.Use)
	assert.NotEmpty(t, rootCmd.Short)

	names := map[string]bool{}
	for _, c := range rootCmd.Commands() {
		names[c.Name()] = true
	}
	for _, want := range []string{"edge-types", "migrate", "stats", "seed"} {
		assert.True(t, names[want], "missing subcommand %s", want)
	}
}

func TestCommandFlags(t *testing.T) {
	tests := []struct {
		cmd  *cobra.Command
		flag string
	}{
		{edgeTypesCmd, "file"},
		{edgeTypesCmd, "yaml"},
		{migrateCmd, "force"},
		{statsCmd, "site"},
		{seedCmd, "site"},
	}
	for _, tt := range tests {
		t.Run(tt.cmd.Name()+"/"+tt.flag, func(t *testing.T) {
			assert.NotNil(t, tt.cmd.Flags().Lookup(tt.flag))
		})
	}
}

func TestEdgeTypes_Default(t *testing.T) {
	t.Setenv("STORE_DRIVER", "memory")
	t.Setenv("EDGE_TYPES_FILE", "")

	out, err := execute(t, "edge-types")
	require.NoError(t, err)

	assert.Contains(t, out, "NAME")
	for _, name := range []string{"follower_of", "followed_by", "friendship", "member_of", "integrated_by"} {
		assert.Contains(t, out, name)
	}
}

func TestEdgeTypes_FileRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "types.yaml")
	src := `types:
  - name: likes
    read_as: Likes
    inverse: liked_by
  - name: liked_by
    read_as: Liked by
`
	require.NoError(t, os.WriteFile(path, []byte(src), 0o644))

	out, err := execute(t, "edge-types", "--file", path, "--yaml")
	require.NoError(t, err)

	reparsed, err := edgetype.Parse([]byte(out))
	require.NoError(t, err)
	inv, err := reparsed.Inverse("likes")
	require.NoError(t, err)
	assert.Equal(t, "liked_by", inv.Name)
}

func TestEdgeTypes_MissingFile(t *testing.T) {
	_, err := execute(t, "edge-types", "--file", filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}

func TestMigrate_RequiresNeo4j(t *testing.T) {
	t.Setenv("STORE_DRIVER", "memory")

	_, err := execute(t, "migrate")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "STORE_DRIVER=neo4j")
}

func TestStats_RequiresUser(t *testing.T) {
	_, err := execute(t, "stats")
	assert.Error(t, err)
}

func TestStats_MemoryStore(t *testing.T) {
	t.Setenv("STORE_DRIVER", "memory")
	t.Setenv("DEFAULT_SITE", "tenant")

	out, err := execute(t, "stats", "alice")
	require.NoError(t, err)
	assert.Contains(t, out, "tenant")
	assert.Contains(t, out, "followers")
}

func TestPrintStats(t *testing.T) {
	ctx := context.Background()
	s := social.NewService(graph.New(memory.New(), edgetype.Default(), graph.WithDefaultSite("main")))

	require.NoError(t, s.Follow(ctx, "bob", "alice", ""))
	require.NoError(t, s.Follow(ctx, "carol", "alice", ""))
	require.NoError(t, s.Follow(ctx, "alice", "bob", ""))
	require.NoError(t, s.MakeFriendOf(ctx, "alice", "dave", ""))

	var out bytes.Buffer
	cmd := &cobra.Command{}
	cmd.SetOut(&out)
	require.NoError(t, printStats(ctx, cmd, s, "alice", ""))

	lines := map[string]string{}
	for _, line := range strings.Split(strings.TrimSpace(out.String()), "\n") {
		fields := strings.Fields(line)
		require.Len(t, fields, 2)
		lines[fields[0]] = fields[1]
	}
	assert.Equal(t, "main", lines["site"])
	assert.Equal(t, "2", lines["followers"])
	assert.Equal(t, "1", lines["following"])
	assert.Equal(t, "1", lines["friends"])
	assert.Equal(t, "0", lines["groups"])
}

func TestSeed(t *testing.T) {
	ctx := context.Background()
	g := graph.New(memory.New(), edgetype.Default(), graph.WithDefaultSite("main"))
	s := social.NewService(g)

	created, err := seed(ctx, g, "")
	require.NoError(t, err)
	assert.True(t, created)

	group, err := s.GroupBySlug(ctx, "main", seedGroupSlug)
	require.NoError(t, err)
	assert.True(t, group.Closed)

	members, err := s.MemberCount(ctx, group.ID)
	require.NoError(t, err)
	assert.Equal(t, 3, members)

	friends, err := s.IsFriendOf(ctx, "bob", "alice", "main")
	require.NoError(t, err)
	assert.True(t, friends)

	pending, err := workflow.NewMembershipRequests(g).Pending(ctx, group.ID)
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, "dave", pending[0].Requester)

	posts, err := feed.NewProjector(g).Feed(ctx, group.ID, "", 0, 10)
	require.NoError(t, err)
	assert.Len(t, posts, 1)

	created, err = seed(ctx, g, "")
	require.NoError(t, err)
	assert.False(t, created)

	members, err = s.MemberCount(ctx, group.ID)
	require.NoError(t, err)
	assert.Equal(t, 3, members)
}
