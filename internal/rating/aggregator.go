package rating

import (
	"context"
	"time"
	"unicode/utf8"

	"github.com/uvgride/grouprides/internal/domain"
	"github.com/uvgride/grouprides/pkg/sanitize"
)

const maxCommentLength = 1000

// Aggregator records passenger ratings of drivers. A passenger holds at most
// one rating per driver; resubmitting overwrites it.
type Aggregator struct {
	store            domain.Store
	requireFinalized bool
	now              func() time.Time
}

// NewAggregator creates a rating aggregator. With requireFinalized set,
// ratings are accepted only once a group is finalized.
func NewAggregator(store domain.Store, requireFinalized bool) *Aggregator {
	return &Aggregator{store: store, requireFinalized: requireFinalized, now: time.Now}
}

// Rate records passengerID's rating of the driver of groupID. It reports
// whether a new rating was created rather than an existing one replaced.
func (a *Aggregator) Rate(ctx context.Context, groupID, passengerID int64, score int, comment string) (*domain.Rating, bool, error) {
	if score < domain.MinScore || score > domain.MaxScore {
		return nil, false, domain.ErrInvalidScore
	}
	comment = sanitize.Text(comment)
	if utf8.RuneCountInString(comment) > maxCommentLength {
		return nil, false, domain.Invalid("comment must be at most 1000 characters")
	}

	var (
		saved   *domain.Rating
		created bool
	)
	err := a.store.InTx(ctx, func(tx domain.Tx) error {
		g, err := tx.GetGroup(ctx, groupID)
		if err != nil {
			return err
		}
		if g == nil {
			return domain.ErrGroupNotFound
		}
		if g.DriverID == passengerID {
			return domain.ErrSelfRating
		}
		if a.requireFinalized && g.Status != domain.StatusFinalized {
			return domain.Rejection(domain.ErrNotEligible, "ratings are accepted once the ride is finalized")
		}

		// serialises concurrent submissions for the same driver
		if err := tx.LockDriverRatings(ctx, g.DriverID); err != nil {
			return err
		}

		m, err := tx.GetMembership(ctx, groupID, passengerID)
		if err != nil {
			return err
		}
		if m == nil || m.Role != domain.RolePassenger || !m.EverApproved() {
			return domain.ErrNotEligible
		}

		now := a.now().UTC()
		existing, err := tx.GetRating(ctx, g.DriverID, passengerID)
		if err != nil {
			return err
		}
		if existing != nil {
			existing.Score = score
			existing.Comment = comment
			existing.GroupID = groupID
			existing.UpdatedAt = now
			if err := tx.UpdateRating(ctx, existing); err != nil {
				return err
			}
			saved = existing
			return nil
		}

		r := &domain.Rating{
			DriverID:    g.DriverID,
			PassengerID: passengerID,
			GroupID:     groupID,
			Score:       score,
			Comment:     comment,
			CreatedAt:   now,
			UpdatedAt:   now,
		}
		if err := tx.InsertRating(ctx, r); err != nil {
			return err
		}
		saved, created = r, true
		return nil
	})
	if err != nil {
		return nil, false, err
	}
	return saved, created, nil
}

// Summary recomputes a driver's rating count and average from the stored rows.
func (a *Aggregator) Summary(ctx context.Context, driverID int64) (domain.RatingSummary, error) {
	return a.store.RatingSummary(ctx, driverID)
}

// List returns a page of a driver's ratings, newest first, and the total.
func (a *Aggregator) List(ctx context.Context, driverID int64, limit, offset int) ([]*domain.Rating, int, error) {
	return a.store.ListRatings(ctx, driverID, limit, offset)
}
