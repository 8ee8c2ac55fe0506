package review

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"contentreview/models"
)

// Store is the gorm-backed persistence used by the resolver and the review tasks.
type Store struct {
	db *gorm.DB
}

func NewStore(db *gorm.DB) *Store {
	return &Store{db: db}
}

func (s *Store) withOwners(ctx context.Context) *gorm.DB {
	return s.db.WithContext(ctx).Preload("OwnerUsers").Preload("OwnerGroups")
}

func (s *Store) FindPage(ctx context.Context, id uint) (*models.Page, error) {
	var page models.Page
	if err := s.withOwners(ctx).First(&page, id).Error; err != nil {
		return nil, err
	}
	return &page, nil
}

// Parent returns nil for root pages and for pages whose parent no longer exists.
func (s *Store) Parent(ctx context.Context, page *models.Page) (*models.Page, error) {
	if page.ParentID == nil {
		return nil, nil
	}

	parent, err := s.FindPage(ctx, *page.ParentID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	return parent, err
}

func (s *Store) Group(ctx context.Context, id uint) (*models.Group, error) {
	var group models.Group
	err := s.db.WithContext(ctx).First(&group, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &group, nil
}

func (s *Store) GroupUsers(ctx context.Context, groupID uint) ([]models.User, error) {
	var users []models.User
	err := s.db.WithContext(ctx).Model(&models.Group{ID: groupID}).Association("Users").Find(&users)
	return users, err
}

func (s *Store) SubGroups(ctx context.Context, groupID uint) ([]models.Group, error) {
	var groups []models.Group
	err := s.db.WithContext(ctx).Where("parent_id = ?", groupID).Order("id").Find(&groups).Error
	return groups, err
}

// LatestReviewLog returns the most recent log entry for a page, or nil.
func (s *Store) LatestReviewLog(ctx context.Context, pageID uint) (*models.ReviewLog, error) {
	var logs []models.ReviewLog
	err := s.db.WithContext(ctx).
		Where("page_id = ?", pageID).
		Order("created_at DESC").
		Order("id DESC").
		Limit(1).
		Find(&logs).Error
	if err != nil || len(logs) == 0 {
		return nil, err
	}
	return &logs[0], nil
}

// DuePages lists pages whose review date is on or before day.
func (s *Store) DuePages(ctx context.Context, day time.Time) ([]models.Page, error) {
	var pages []models.Page
	err := s.withOwners(ctx).
		Where("next_review_date IS NOT NULL AND next_review_date <= ?", day).
		Order("id").
		Find(&pages).Error
	return pages, err
}

// PagesDueOn lists pages whose review date falls on day.
func (s *Store) PagesDueOn(ctx context.Context, day time.Time) ([]models.Page, error) {
	var pages []models.Page
	err := s.withOwners(ctx).
		Where("next_review_date >= ? AND next_review_date < ?", day, AddDays(day, 1)).
		Order("id").
		Find(&pages).Error
	return pages, err
}

// SaveReviewDate writes only the page's next_review_date column.
func (s *Store) SaveReviewDate(ctx context.Context, page *models.Page) error {
	return s.db.WithContext(ctx).
		Model(&models.Page{}).
		Where("id = ?", page.ID).
		Update("next_review_date", page.NextReviewDate).Error
}

func (s *Store) LogReview(ctx context.Context, pageID, reviewerID uint, note string) (*models.ReviewLog, error) {
	entry := &models.ReviewLog{PageID: pageID, ReviewerID: reviewerID, Note: note}
	if err := s.db.WithContext(ctx).Create(entry).Error; err != nil {
		return nil, err
	}
	return entry, nil
}

// ReviewLogs returns a page's review history, newest first.
func (s *Store) ReviewLogs(ctx context.Context, pageID uint) ([]models.ReviewLog, error) {
	var logs []models.ReviewLog
	err := s.db.WithContext(ctx).
		Where("page_id = ?", pageID).
		Order("created_at DESC").
		Order("id DESC").
		Find(&logs).Error
	return logs, err
}

// LoadSiteConfig returns the singleton configuration, creating it with defaults on first use.
func (s *Store) LoadSiteConfig(ctx context.Context) (*models.SiteConfig, error) {
	var cfg models.SiteConfig
	err := s.withOwners(ctx).First(&cfg, models.SiteConfigID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		created := models.NewSiteConfig()
		if err := s.db.WithContext(ctx).Create(created).Error; err != nil {
			return nil, err
		}
		return created, nil
	}
	if err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (s *Store) SaveSiteConfig(ctx context.Context, cfg *models.SiteConfig) error {
	cfg.ID = models.SiteConfigID
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Omit(clause.Associations).Save(cfg).Error; err != nil {
			return err
		}
		if err := replaceAssociation(tx, cfg, "OwnerUsers", cfg.OwnerUsers); err != nil {
			return err
		}
		return replaceAssociation(tx, cfg, "OwnerGroups", cfg.OwnerGroups)
	})
}

// SavePageSettings persists the review fields and owner associations of a page.
func (s *Store) SavePageSettings(ctx context.Context, page *models.Page) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Omit(clause.Associations).Save(page).Error; err != nil {
			return err
		}
		if err := replaceAssociation(tx, page, "OwnerUsers", page.OwnerUsers); err != nil {
			return err
		}
		return replaceAssociation(tx, page, "OwnerGroups", page.OwnerGroups)
	})
}

func replaceAssociation[T any](tx *gorm.DB, owner any, name string, values []T) error {
	assoc := tx.Model(owner).Association(name)
	if len(values) == 0 {
		return assoc.Clear()
	}
	return assoc.Replace(values)
}

func (s *Store) FindUser(ctx context.Context, id uint) (*models.User, error) {
	var user models.User
	if err := s.db.WithContext(ctx).First(&user, id).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

func (s *Store) FindUserByEmail(ctx context.Context, email string) (*models.User, error) {
	var user models.User
	if err := s.db.WithContext(ctx).Where("email = ?", email).First(&user).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

func (s *Store) FindUsers(ctx context.Context, ids []uint) ([]models.User, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	var users []models.User
	err := s.db.WithContext(ctx).Where("id IN ?", ids).Order("id").Find(&users).Error
	return users, err
}

func (s *Store) FindGroups(ctx context.Context, ids []uint) ([]models.Group, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	var groups []models.Group
	err := s.db.WithContext(ctx).Where("id IN ?", ids).Order("id").Find(&groups).Error
	return groups, err
}
