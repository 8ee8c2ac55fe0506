package models

import (
	"strings"
	"time"
)

// ReviewType is the per-page content review mode.
type ReviewType string

const (
	ReviewInherit  ReviewType = "Inherit"
	ReviewCustom   ReviewType = "Custom"
	ReviewDisabled ReviewType = "Disabled"
)

// Normalize maps unknown or empty values to Inherit, the column default.
func (t ReviewType) Normalize() ReviewType {
	switch t {
	case ReviewCustom, ReviewDisabled:
		return t
	default:
		return ReviewInherit
	}
}

type User struct {
	ID           uint   `gorm:"primary_key;autoIncrement" json:"id"`
	FirstName    string `json:"first_name"`
	Surname      string `json:"surname"`
	Email        string `gorm:"index" json:"email"`
	PasswordHash string `json:"-"` // json:"-" prevents password from being exposed in API
}

// Name is the display name used in emails and owner summaries.
func (u User) Name() string {
	return strings.TrimSpace(u.FirstName + " " + u.Surname)
}

// Group members are its Users plus the members of every group whose ParentID points at it.
type Group struct {
	ID       uint   `gorm:"primary_key;autoIncrement" json:"id"`
	Title    string `gorm:"not null" json:"title"`
	ParentID *uint  `gorm:"index" json:"parent_id"`
	Users    []User `gorm:"many2many:group_members" json:"users,omitempty"`
}

type Page struct {
	ID                uint        `gorm:"primary_key;autoIncrement" json:"id"`
	ParentID          *uint       `gorm:"index" json:"parent_id"`
	CreatedAt         time.Time   `json:"created_at"`
	UpdatedAt         time.Time   `json:"updated_at"`
	Title             string      `gorm:"not null" json:"title"`
	Slug              string      `gorm:"index" json:"slug"`
	ContentReviewType ReviewType  `gorm:"type:varchar(16);default:Inherit" json:"content_review_type"`
	ReviewPeriodDays  int         `json:"review_period_days"`              // only read when ContentReviewType is Custom
	NextReviewDate    *time.Time  `gorm:"index" json:"next_review_date"` // date only, UTC midnight
	OwnerUsers        []User      `gorm:"many2many:page_owner_users" json:"owner_users,omitempty"`
	OwnerGroups       []Group     `gorm:"many2many:page_owner_groups" json:"owner_groups,omitempty"`
	ReviewLogs        []ReviewLog `gorm:"constraint:OnDelete:CASCADE" json:"-"`
}

func (p *Page) ReviewPeriod() int {
	return p.ReviewPeriodDays
}

func (p *Page) ReviewOwners() ([]User, []Group) {
	return p.OwnerUsers, p.OwnerGroups
}

// ReviewLog is written once per review and never updated.
type ReviewLog struct {
	ID         uint      `gorm:"primary_key;autoIncrement" json:"id"`
	PageID     uint      `gorm:"not null;index" json:"page_id"`
	ReviewerID uint      `gorm:"index" json:"reviewer_id"`
	Note       string    `gorm:"type:text" json:"note"`
	CreatedAt  time.Time `gorm:"index" json:"created_at"`
}

// SiteConfigID is the primary key of the single site configuration row.
const SiteConfigID = 1

type SiteConfig struct {
	ID                       uint    `gorm:"primary_key" json:"id"`
	ReviewPeriodDays         int     `json:"review_period_days"`
	ReviewFrom               string  `json:"review_from"`
	ReviewSubject            string  `json:"review_subject"`
	ReviewSubjectReminder    string  `json:"review_subject_reminder"`
	ReviewBody               string  `gorm:"type:text" json:"review_body"`
	ReviewBodyFirstReminder  string  `gorm:"type:text" json:"review_body_first_reminder"`
	ReviewBodySecondReminder string  `gorm:"type:text" json:"review_body_second_reminder"`
	FirstReviewDaysBefore    int     `json:"first_review_days_before"`
	SecondReviewDaysBefore   int     `json:"second_review_days_before"`
	OwnerUsers               []User  `gorm:"many2many:site_config_owner_users" json:"owner_users,omitempty"`
	OwnerGroups              []Group `gorm:"many2many:site_config_owner_groups" json:"owner_groups,omitempty"`
}

func (s *SiteConfig) ReviewPeriod() int {
	return s.ReviewPeriodDays
}

func (s *SiteConfig) ReviewOwners() ([]User, []Group) {
	return s.OwnerUsers, s.OwnerGroups
}
