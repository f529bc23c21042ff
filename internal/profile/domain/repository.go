package domain

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

type Repository interface {
	Insert(ctx context.Context, db *gorm.DB, profile *UserProfile) error
	FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*UserProfile, error)
	FindByIdentityKey(ctx context.Context, db *gorm.DB, identityKey string) (*UserProfile, error)
	FindByBillingCustomerID(ctx context.Context, db *gorm.DB, customerID string) (*UserProfile, error)
	Update(ctx context.Context, db *gorm.DB, profile *UserProfile) error
}
