// Package edgetype holds the named edge kinds of the social graph and their inverse pairing.
package edgetype

import (
	"fmt"
	"sort"
	"sync"

	"social-network/backend/internal/constants"
	apperrors "social-network/backend/pkg/errors"
)

// EdgeType is a named, directed relationship kind.
type EdgeType struct {
	ID      int    `json:"id" yaml:"-"`
	Name    string `json:"name" yaml:"name"`
	ReadAs  string `json:"read_as" yaml:"read_as"`
	Inverse string `json:"inverse" yaml:"inverse"`
}

// SelfInverse reports whether the type is its own inverse (e.g. friendship).
func (t EdgeType) SelfInverse() bool {
	return t.Inverse == t.Name
}

// Registry maps edge type names to their definitions.
// It is populated at startup and sealed before the graph is used.
type Registry struct {
	mu     sync.RWMutex
	byName map[string]*EdgeType
	nextID int
	sealed bool
}

// NewRegistry creates an empty, unsealed registry.
func NewRegistry() *Registry {
	return &Registry{
		byName: make(map[string]*EdgeType),
		nextID: 1,
	}
}

// Register returns the type named name, creating it if needed.
// readAs is only recorded on creation.
func (r *Registry) Register(name, readAs string) (EdgeType, error) {
	if name == "" {
		return EdgeType{}, apperrors.NewValidationFailed("edge_type.name", "cannot be empty")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if t, ok := r.byName[name]; ok {
		return *t, nil
	}
	if r.sealed {
		return EdgeType{}, apperrors.NewConfigValidationFailed("edge_type", fmt.Sprintf("registry sealed, cannot register %q", name))
	}

	t := &EdgeType{ID: r.nextID, Name: name, ReadAs: readAs}
	r.nextID++
	r.byName[name] = t
	return *t, nil
}

// Associate pairs direct with inverse in both directions.
// Repeating an existing pairing is a no-op; changing one is an error.
func (r *Registry) Associate(direct, inverse string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	d, ok := r.byName[direct]
	if !ok {
		return apperrors.NewUnknownEdgeType(direct)
	}
	i, ok := r.byName[inverse]
	if !ok {
		return apperrors.NewUnknownEdgeType(inverse)
	}

	if d.Inverse == inverse && i.Inverse == direct {
		return nil
	}
	if d.Inverse != "" || i.Inverse != "" {
		return apperrors.NewConfigValidationFailed("edge_type.inverse",
			fmt.Sprintf("%q/%q already paired (%q/%q)", direct, inverse, d.Inverse, i.Inverse))
	}
	if r.sealed {
		return apperrors.NewConfigValidationFailed("edge_type.inverse", "registry sealed")
	}

	d.Inverse = inverse
	i.Inverse = direct
	return nil
}

// Lookup returns the type named name.
func (r *Registry) Lookup(name string) (EdgeType, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	t, ok := r.byName[name]
	if !ok {
		return EdgeType{}, apperrors.NewUnknownEdgeType(name)
	}
	return *t, nil
}

// Inverse returns the inverse of the type named name.
func (r *Registry) Inverse(name string) (EdgeType, error) {
	t, err := r.Lookup(name)
	if err != nil {
		return EdgeType{}, err
	}
	if t.Inverse == "" {
		return EdgeType{}, apperrors.NewConfigValidationFailed("edge_type.inverse", fmt.Sprintf("%q has no inverse", name))
	}
	return r.Lookup(t.Inverse)
}

// Validate checks that every registered type has an inverse.
func (r *Registry) Validate() error {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for name, t := range r.byName {
		if t.Inverse == "" {
			return apperrors.NewConfigValidationFailed("edge_type.inverse", fmt.Sprintf("%q has no inverse", name))
		}
	}
	return nil
}

// Seal validates the registry and freezes it against new types or pairings.
func (r *Registry) Seal() error {
	if err := r.Validate(); err != nil {
		return err
	}
	r.mu.Lock()
	r.sealed = true
	r.mu.Unlock()
	return nil
}

// Types returns all registered types ordered by ID.
func (r *Registry) Types() []EdgeType {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]EdgeType, 0, len(r.byName))
	for _, t := range r.byName {
		out = append(out, *t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// Default returns the sealed registry used by the social graph.
func Default() *Registry {
	r := NewRegistry()
	must := func(err error) {
		if err != nil {
			panic(err)
		}
	}

	register := func(name, readAs string) {
		_, err := r.Register(name, readAs)
		must(err)
	}

	register(constants.EdgeFollowerOf, "Follower of")
	register(constants.EdgeFollowedBy, "Followed by")
	register(constants.EdgeFriendship, "Friend of")
	register(constants.EdgeMemberOf, "Member of")
	register(constants.EdgeIntegratedBy, "Integrated by")

	for _, p := range builtinPairs {
		must(r.Associate(p[0], p[1]))
	}
	must(r.Seal())

	return r
}

// builtinPairs are the edge types the social services write, with the
// inverse each one must have.
var builtinPairs = [][2]string{
	{constants.EdgeFollowerOf, constants.EdgeFollowedBy},
	{constants.EdgeFriendship, constants.EdgeFriendship},
	{constants.EdgeMemberOf, constants.EdgeIntegratedBy},
}

// RequireBuiltins checks that r defines every edge type the social services
// rely on, paired with its usual inverse. A registry loaded from a file must
// pass it before the graph uses it.
func (r *Registry) RequireBuiltins() error {
	for _, p := range builtinPairs {
		for _, name := range []string{p[0], p[1]} {
			if _, err := r.Lookup(name); err != nil {
				return err
			}
		}
		inv, err := r.Inverse(p[0])
		if err != nil {
			return err
		}
		if inv.Name != p[1] {
			return apperrors.NewConfigValidationFailed("edge_type.inverse",
				fmt.Sprintf("%q must pair with %q, got %q", p[0], p[1], inv.Name))
		}
	}
	return nil
}
