// Package review resolves which settings govern a page's content review,
// computes review dates from them and merges the responsible owners.
package review

import (
	"context"
	"errors"
	"fmt"
	"time"

	"contentreview/models"
)

// maxHierarchyDepth bounds the ancestor walk for page and group chains.
const maxHierarchyDepth = 256

var ErrHierarchyCycle = errors.New("review: cycle in page hierarchy")

// Settings is the object whose period and owners govern a page: the page
// itself, an ancestor page, or the site config.
type Settings interface {
	ReviewPeriod() int
	ReviewOwners() ([]models.User, []models.Group)
}

// Hierarchy loads a page's parent with its owner associations, or nil for a root page.
type Hierarchy interface {
	Parent(ctx context.Context, page *models.Page) (*models.Page, error)
}

// Directory exposes group membership.
type Directory interface {
	Group(ctx context.Context, id uint) (*models.Group, error)
	GroupUsers(ctx context.Context, groupID uint) ([]models.User, error)
	SubGroups(ctx context.Context, groupID uint) ([]models.Group, error)
}

type Resolver struct {
	pages  Hierarchy
	groups Directory
	site   *models.SiteConfig
	now    func() time.Time
}

func NewResolver(pages Hierarchy, groups Directory, site *models.SiteConfig) *Resolver {
	return &Resolver{
		pages:  pages,
		groups: groups,
		site:   site,
		now:    time.Now,
	}
}

// WithClock replaces the time source used for "today".
func (r *Resolver) WithClock(now func() time.Time) *Resolver {
	r.now = now
	return r
}

func (r *Resolver) Today() time.Time {
	return Today(r.now())
}

// ResolveSettings walks up from page to the nearest node that is not
// Inherit. Custom returns that page, Disabled returns nil, and running out of
// ancestors returns the site config. Parents are read from the store on every
// call.
func (r *Resolver) ResolveSettings(ctx context.Context, page *models.Page) (Settings, error) {
	visited := make(map[uint]bool)
	current := page

	for depth := 0; depth < maxHierarchyDepth; depth++ {
		switch current.ContentReviewType.Normalize() {
		case models.ReviewCustom:
			return current, nil
		case models.ReviewDisabled:
			return nil, nil
		}

		if current.ID != 0 {
			if visited[current.ID] {
				return nil, ErrHierarchyCycle
			}
			visited[current.ID] = true
		}

		parent, err := r.pages.Parent(ctx, current)
		if err != nil {
			return nil, fmt.Errorf("review: load parent of page %d: %w", current.ID, err)
		}
		if parent == nil {
			if r.site == nil {
				return nil, nil
			}
			return r.site, nil
		}
		current = parent
	}

	return nil, ErrHierarchyCycle
}
