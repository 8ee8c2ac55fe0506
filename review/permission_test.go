package review

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"contentreview/models"
)

func TestCanBeReviewedBy(t *testing.T) {
	db := setupTestDB()
	alice := createTestUser(db, "Alice", "alice@example.com")
	bob := createTestUser(db, "Bob", "bob@example.com")
	carol := createTestUser(db, "Carol", "carol@example.com")
	editors := createTestGroup(db, "Editors", nil, *bob)

	site := &models.SiteConfig{ID: models.SiteConfigID, ReviewPeriodDays: 30}
	resolver, _ := newTestResolver(db, site)
	ctx := context.Background()

	owned := &models.Page{
		ContentReviewType: models.ReviewCustom,
		ReviewPeriodDays:  10,
		NextReviewDate:    day("2026-10-01"),
		OwnerUsers:        []models.User{*alice},
		OwnerGroups:       []models.Group{*editors},
	}

	tests := []struct {
		name     string
		page     *models.Page
		user     *models.User
		expected bool
	}{
		{"system check with owners", owned, nil, true},
		{"direct owner", owned, alice, true},
		{"group member", owned, bob, true},
		{"not an owner", owned, carol, false},
		{"no review date", &models.Page{ContentReviewType: models.ReviewCustom, OwnerUsers: []models.User{*alice}}, nil, false},
		{"review date in the future", &models.Page{ContentReviewType: models.ReviewCustom, NextReviewDate: day("2026-10-18"), OwnerUsers: []models.User{*alice}}, nil, false},
		{"due today", &models.Page{ContentReviewType: models.ReviewCustom, NextReviewDate: day("2026-10-17"), OwnerUsers: []models.User{*alice}}, alice, true},
		{"disabled", &models.Page{ContentReviewType: models.ReviewDisabled, NextReviewDate: day("2026-10-01")}, nil, false},
		{"inherits site config without owners", &models.Page{ContentReviewType: models.ReviewInherit, NextReviewDate: day("2026-10-01")}, nil, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ok, err := resolver.CanBeReviewedBy(ctx, tt.page, tt.user)
			require.NoError(t, err)
			assert.Equal(t, tt.expected, ok)
		})
	}
}

func TestCanBeReviewedByInheritedSiteOwners(t *testing.T) {
	db := setupTestDB()
	alice := createTestUser(db, "Alice", "alice@example.com")
	site := &models.SiteConfig{ID: models.SiteConfigID, ReviewPeriodDays: 30, OwnerUsers: []models.User{*alice}}
	resolver, _ := newTestResolver(db, site)

	page := &models.Page{ContentReviewType: models.ReviewInherit, NextReviewDate: day("2026-10-01")}

	ok, err := resolver.CanBeReviewedBy(context.Background(), page, alice)

	require.NoError(t, err)
	assert.True(t, ok)
}
