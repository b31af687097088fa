// internal/domain/user/entity.go
package user

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// User represents the user entity
type User struct {
	ID          string         `gorm:"primaryKey;size:36" json:"id"`
	Email       string         `gorm:"uniqueIndex;not null;size:255" json:"email"`
	Password    string         `gorm:"not null;size:255" json:"-"` // Don't return in JSON
	Name        string         `gorm:"size:200" json:"name"`
	Verified    bool           `gorm:"default:false" json:"verified"`
	IsAdmin     bool           `gorm:"default:false" json:"isAdmin"`
	IsActive    bool           `gorm:"default:true" json:"-"`
	LastLoginAt *time.Time     `json:"-"`
	CreatedAt   time.Time      `json:"-"`
	UpdatedAt   time.Time      `json:"-"`
	DeletedAt   gorm.DeletedAt `gorm:"index" json:"-"`

	// Relationships
	Addresses []Address `gorm:"foreignKey:UserID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE;" json:"-"`
}

// Address represents a saved shipping address
type Address struct {
	ID         string    `gorm:"primaryKey;size:36" json:"id"`
	UserID     string    `gorm:"not null;index;size:36" json:"-"`
	FullName   string    `gorm:"size:100;not null" json:"fullName"`
	Phone      string    `gorm:"size:20;not null" json:"phone"`
	Line1      string    `gorm:"size:255;not null" json:"line1"`
	Line2      string    `gorm:"size:255" json:"line2,omitempty"`
	City       string    `gorm:"size:100;not null" json:"city"`
	State      string    `gorm:"size:100;not null" json:"state"`
	PostalCode string    `gorm:"size:20;not null" json:"postalCode"`
	Country    string    `gorm:"size:100;not null" json:"country"`
	IsDefault  bool      `gorm:"default:false" json:"isDefault"`
	CreatedAt  time.Time `json:"createdAt"`
	UpdatedAt  time.Time `json:"-"`
}

// TableName overrides the table name for User
func (User) TableName() string {
	return "users"
}

// TableName overrides the table name for Address
func (Address) TableName() string {
	return "addresses"
}

// BeforeCreate assigns an id and lower-cases the email
func (u *User) BeforeCreate(tx *gorm.DB) error {
	if u.ID == "" {
		u.ID = uuid.NewString()
	}
	u.Email = strings.ToLower(u.Email)
	return nil
}

// BeforeCreate assigns an id
func (a *Address) BeforeCreate(tx *gorm.DB) error {
	if a.ID == "" {
		a.ID = uuid.NewString()
	}
	return nil
}

// GetDisplayName returns the name, falling back to the email
func (u *User) GetDisplayName() string {
	if name := strings.TrimSpace(u.Name); name != "" {
		return name
	}
	return u.Email
}
