package group

import (
	"context"
	"fmt"

	"github.com/uvgride/grouprides/internal/domain"
)

// ActivePolicy decides when the one-active-group rule is enforced.
type ActivePolicy string

const (
	// PolicyJoin checks passenger joins only. Any approved membership in an
	// open or closed group blocks the join, including a driver membership.
	PolicyJoin ActivePolicy = "join"
	// PolicyStrict also refuses to let a user create a group while they are
	// approved in another active group, making the rule absolute.
	PolicyStrict ActivePolicy = "strict"
)

// ParseActivePolicy validates a configured policy name.
func ParseActivePolicy(s string) (ActivePolicy, error) {
	switch p := ActivePolicy(s); p {
	case PolicyJoin, PolicyStrict:
		return p, nil
	case "":
		return PolicyJoin, nil
	}
	return "", fmt.Errorf("unknown active group policy %q", s)
}

// Registry enforces that a user holds at most one approved membership in an
// active group. Checks run inside the caller's transaction, after the caller
// has locked the user's key, so two admissions for the same user cannot both
// pass the check.
type Registry struct {
	policy ActivePolicy
}

// NewRegistry creates a registry with the given policy
func NewRegistry(policy ActivePolicy) *Registry {
	if policy == "" {
		policy = PolicyJoin
	}
	return &Registry{policy: policy}
}

// Policy returns the configured policy
func (r *Registry) Policy() ActivePolicy {
	return r.policy
}

// HasActiveMembership reports whether userID is approved in an open or closed
// group other than excludeGroupID.
func (r *Registry) HasActiveMembership(ctx context.Context, tx domain.Tx, userID, excludeGroupID int64) (bool, error) {
	m, err := tx.FindActiveMembership(ctx, userID, excludeGroupID)
	if err != nil {
		return false, err
	}
	return m != nil, nil
}

// CheckJoin rejects a join when the user is bound to another active group.
func (r *Registry) CheckJoin(ctx context.Context, tx domain.Tx, userID, groupID int64) error {
	active, err := r.HasActiveMembership(ctx, tx, userID, groupID)
	if err != nil {
		return err
	}
	if active {
		return domain.ErrAlreadyInActiveGroup
	}
	return nil
}

// CheckCreate rejects group creation under the strict policy when the driver
// is already bound to an active group.
func (r *Registry) CheckCreate(ctx context.Context, tx domain.Tx, driverID int64) error {
	if r.policy != PolicyStrict {
		return nil
	}
	active, err := r.HasActiveMembership(ctx, tx, driverID, 0)
	if err != nil {
		return err
	}
	if active {
		return domain.ErrAlreadyInActiveGroup
	}
	return nil
}
