package service

import (
	"context"
	"strings"

	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/elevenplus/tutor/internal/billing/domain"
	"github.com/elevenplus/tutor/internal/config"
	profiledomain "github.com/elevenplus/tutor/internal/profile/domain"
)

type CheckoutParams struct {
	fx.In

	DB          *gorm.DB
	Log         *zap.Logger
	Config      config.Config
	Client      domain.ProviderClient
	Profiles    profiledomain.Service
	ProfileRepo profiledomain.Repository
}

type Checkout struct {
	db          *gorm.DB
	log         *zap.Logger
	cfg         config.Config
	client      domain.ProviderClient
	profiles    profiledomain.Service
	profileRepo profiledomain.Repository
}

func NewCheckout(p CheckoutParams) domain.CheckoutService {
	return &Checkout{
		db:          p.DB,
		log:         p.Log.Named("billing.checkout"),
		cfg:         p.Config,
		client:      p.Client,
		profiles:    p.Profiles,
		profileRepo: p.ProfileRepo,
	}
}

func (s *Checkout) CreateCheckoutSession(ctx context.Context, identityKey, email string) (domain.CheckoutSession, error) {
	profile, err := s.profiles.EnsureProfile(ctx, identityKey, email)
	if err != nil {
		return domain.CheckoutSession{}, err
	}
	if profile.SubscriptionStatus == profiledomain.StatusActive {
		return domain.CheckoutSession{}, domain.ErrAlreadySubscribed
	}

	customerID, err := s.ensureCustomer(ctx, &profile)
	if err != nil {
		return domain.CheckoutSession{}, err
	}

	base := strings.TrimRight(s.cfg.AppBaseURL, "/")
	sessionURL, err := s.client.CreateCheckoutSession(ctx,
		customerID,
		profile.IdentityKey,
		base+"/dashboard?upgraded=true",
		base+"/pricing",
	)
	if err != nil {
		return domain.CheckoutSession{}, err
	}

	return domain.CheckoutSession{URL: sessionURL}, nil
}

func (s *Checkout) CreatePortalSession(ctx context.Context, identityKey string) (domain.CheckoutSession, error) {
	profile, err := s.profiles.GetByIdentity(ctx, identityKey)
	if err != nil {
		return domain.CheckoutSession{}, err
	}
	if profile.BillingCustomerID == nil || *profile.BillingCustomerID == "" {
		return domain.CheckoutSession{}, domain.ErrNoBillingAccount
	}

	base := strings.TrimRight(s.cfg.AppBaseURL, "/")
	sessionURL, err := s.client.CreatePortalSession(ctx, *profile.BillingCustomerID, base+"/account")
	if err != nil {
		return domain.CheckoutSession{}, err
	}

	return domain.CheckoutSession{URL: sessionURL}, nil
}

// ensureCustomer returns the profile's billing customer, registering one
// with the provider on first checkout.
func (s *Checkout) ensureCustomer(ctx context.Context, profile *profiledomain.UserProfile) (string, error) {
	if profile.BillingCustomerID != nil && *profile.BillingCustomerID != "" {
		return *profile.BillingCustomerID, nil
	}

	customerID, err := s.client.CreateCustomer(ctx, profile.IdentityKey, profile.Email)
	if err != nil {
		return "", err
	}

	profile.BillingCustomerID = &customerID
	if err := s.profileRepo.Update(ctx, s.db, profile); err != nil {
		return "", err
	}

	s.log.Info("billing customer created",
		zap.String("identity_key", profile.IdentityKey),
		zap.String("customer_id", customerID),
	)
	return customerID, nil
}
