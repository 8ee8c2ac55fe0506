package review

import (
	"context"

	"contentreview/models"
)

// CanBeReviewedBy reports whether page is currently due and has someone to
// review it. With a nil user it only checks that owners exist; otherwise the
// user has to be one of the merged owners.
func (r *Resolver) CanBeReviewedBy(ctx context.Context, page *models.Page, user *models.User) (bool, error) {
	if page.NextReviewDate == nil {
		return false, nil
	}
	if page.NextReviewDate.After(r.Today()) {
		return false, nil
	}

	settings, err := r.ResolveSettings(ctx, page)
	if err != nil {
		return false, err
	}
	if settings == nil {
		return false, nil
	}

	users, groups := settings.ReviewOwners()
	if len(users) == 0 && len(groups) == 0 {
		return false, nil
	}
	if user == nil {
		return true, nil
	}

	owners, err := r.MergeOwners(ctx, settings)
	if err != nil {
		return false, err
	}
	for _, o := range owners {
		if o.ID == user.ID {
			return true, nil
		}
	}
	return false, nil
}
