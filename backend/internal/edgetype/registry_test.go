package edgetype

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"social-network/backend/internal/constants"
	apperrors "social-network/backend/pkg/errors"
)

func TestRegister_IsGetOrCreate(t *testing.T) {
	r := NewRegistry()

	first, err := r.Register("follower_of", "Follower of")
	require.NoError(t, err)
	again, err := r.Register("follower_of", "something else")
	require.NoError(t, err)

	assert.Equal(t, first, again)
	assert.Equal(t, "Follower of", again.ReadAs)
	assert.Len(t, r.Types(), 1)
}

func TestAssociate(t *testing.T) {
	r := NewRegistry()
	for _, n := range []string{"a", "b", "c"} {
		_, err := r.Register(n, n)
		require.NoError(t, err)
	}

	require.NoError(t, r.Associate("a", "b"))
	// same pair, either direction, is a no-op
	require.NoError(t, r.Associate("a", "b"))
	require.NoError(t, r.Associate("b", "a"))

	err := r.Associate("a", "c")
	require.Error(t, err)
	assert.True(t, apperrors.IsErrorType(err, apperrors.ErrorTypeConfig))

	inv, err := r.Inverse("b")
	require.NoError(t, err)
	assert.Equal(t, "a", inv.Name)
}

func TestAssociate_UnknownType(t *testing.T) {
	r := NewRegistry()
	_, err := r.Register("a", "a")
	require.NoError(t, err)

	err = r.Associate("a", "missing")
	var unknown *apperrors.ErrUnknownEdgeType
	require.ErrorAs(t, err, &unknown)
	assert.Equal(t, "missing", unknown.Name)
}

func TestSeal_RequiresInverse(t *testing.T) {
	r := NewRegistry()
	_, err := r.Register("lonely", "Lonely")
	require.NoError(t, err)

	assert.Error(t, r.Seal())

	require.NoError(t, r.Associate("lonely", "lonely"))
	require.NoError(t, r.Seal())

	_, err = r.Register("late", "Late")
	assert.Error(t, err)
}

func TestDefault(t *testing.T) {
	r := Default()

	tests := []struct {
		name    string
		inverse string
	}{
		{constants.EdgeFollowerOf, constants.EdgeFollowedBy},
		{constants.EdgeFollowedBy, constants.EdgeFollowerOf},
		{constants.EdgeFriendship, constants.EdgeFriendship},
		{constants.EdgeMemberOf, constants.EdgeIntegratedBy},
		{constants.EdgeIntegratedBy, constants.EdgeMemberOf},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			inv, err := r.Inverse(tt.name)
			require.NoError(t, err)
			assert.Equal(t, tt.inverse, inv.Name)
		})
	}

	friendship, err := r.Lookup(constants.EdgeFriendship)
	require.NoError(t, err)
	assert.True(t, friendship.SelfInverse())

	_, err = r.Lookup("blocks")
	assert.IsType(t, &apperrors.ErrUnknownEdgeType{}, err)
}

func TestLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "edge_types.yaml")
	content := `types:
  - name: follower_of
    read_as: Follower of
    inverse: followed_by
  - name: followed_by
    read_as: Followed by
  - name: blocks
    read_as: Blocks
    inverse: blocks
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	r, err := LoadFile(path)
	require.NoError(t, err)

	inv, err := r.Inverse("followed_by")
	require.NoError(t, err)
	assert.Equal(t, "follower_of", inv.Name)

	blocks, err := r.Lookup("blocks")
	require.NoError(t, err)
	assert.True(t, blocks.SelfInverse())
}

func TestParse_MissingInverse(t *testing.T) {
	_, err := Parse([]byte("types:\n  - name: orphan\n    read_as: Orphan\n"))
	assert.Error(t, err)
}

func TestRequireBuiltins(t *testing.T) {
	require.NoError(t, Default().RequireBuiltins())

	full := `types:
  - {name: follower_of, read_as: Follower of, inverse: followed_by}
  - {name: followed_by, read_as: Followed by}
  - {name: friendship, read_as: Friend of, inverse: friendship}
  - {name: member_of, read_as: Member of, inverse: integrated_by}
  - {name: integrated_by, read_as: Integrated by}
  - {name: blocks, read_as: Blocks, inverse: blocks}
`
	r, err := Parse([]byte(full))
	require.NoError(t, err)
	assert.NoError(t, r.RequireBuiltins())

	tests := []struct {
		name string
		src  string
	}{
		{"follows only", `types:
  - {name: follower_of, read_as: Follower of, inverse: followed_by}
  - {name: followed_by, read_as: Followed by}
`},
		{"mis-paired", `types:
  - {name: follower_of, read_as: Follower of, inverse: integrated_by}
  - {name: integrated_by, read_as: Integrated by}
  - {name: followed_by, read_as: Followed by, inverse: member_of}
  - {name: member_of, read_as: Member of}
  - {name: friendship, read_as: Friend of, inverse: friendship}
`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r, err := Parse([]byte(tt.src))
			require.NoError(t, err)
			err = r.RequireBuiltins()
			require.Error(t, err)
			assert.True(t, apperrors.IsErrorType(err, apperrors.ErrorTypeConfig), "%v", err)
		})
	}
}
