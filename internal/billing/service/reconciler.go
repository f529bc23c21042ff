package service

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/bwmarrin/snowflake"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/elevenplus/tutor/internal/billing/domain"
	"github.com/elevenplus/tutor/internal/clock"
	"github.com/elevenplus/tutor/internal/config"
	"github.com/elevenplus/tutor/internal/observability/metrics"
	profiledomain "github.com/elevenplus/tutor/internal/profile/domain"
	"github.com/elevenplus/tutor/pkg/db"
)

type ReconcilerParams struct {
	fx.In

	DB       *gorm.DB
	Log      *zap.Logger
	GenID    *snowflake.Node
	Clock    clock.Clock
	Tiers    *config.TierConfigHolder
	Adapter  domain.ProviderAdapter
	Events   domain.WebhookEventRepository
	Profiles profiledomain.Repository
	Metrics  *metrics.Metrics `optional:"true"`
}

// Reconciler folds provider billing events into profile subscription
// state. Redelivered, stale or unmatchable events are acknowledged
// without touching any profile.
type Reconciler struct {
	db       *gorm.DB
	log      *zap.Logger
	genID    *snowflake.Node
	clock    clock.Clock
	tiers    *config.TierConfigHolder
	adapter  domain.ProviderAdapter
	events   domain.WebhookEventRepository
	profiles profiledomain.Repository
	metrics  *metrics.Metrics
}

func NewReconciler(p ReconcilerParams) domain.Reconciler {
	return &Reconciler{
		db:       p.DB,
		log:      p.Log.Named("billing.reconciler"),
		genID:    p.GenID,
		clock:    p.Clock,
		tiers:    p.Tiers,
		adapter:  p.Adapter,
		events:   p.Events,
		profiles: p.Profiles,
		metrics:  p.Metrics,
	}
}

func (s *Reconciler) HandleWebhook(ctx context.Context, payload []byte, headers http.Header) (domain.Outcome, error) {
	if err := s.adapter.Verify(ctx, payload, headers); err != nil {
		return "", err
	}

	event, err := s.adapter.Parse(ctx, payload)
	if err != nil {
		if err == domain.ErrEventIgnored {
			s.metrics.RecordBillingEvent(ctx, "unknown", string(domain.OutcomeIgnored))
			return domain.OutcomeIgnored, nil
		}
		return "", err
	}

	outcome, err := s.apply(ctx, event)
	if err != nil {
		return "", err
	}

	s.metrics.RecordBillingEvent(ctx, string(event.Type), string(outcome))
	s.log.Info("billing event handled",
		zap.String("provider_event_id", event.ProviderEventID),
		zap.String("event_type", string(event.Type)),
		zap.String("outcome", string(outcome)),
	)
	return outcome, nil
}

func (s *Reconciler) apply(ctx context.Context, event *domain.Event) (domain.Outcome, error) {
	record := domain.WebhookEvent{
		ID:              s.genID.Generate(),
		ProviderEventID: event.ProviderEventID,
		EventType:       string(event.Type),
		Payload:         rawPayloadMap(event.RawPayload),
		OccurredAt:      event.OccurredAt,
		CreatedAt:       s.clock.Now(),
	}

	// The unique insert is the idempotency gate. Everything after it runs
	// at most once per provider event, even under concurrent redelivery.
	if err := s.events.Insert(ctx, s.db, &record); err != nil {
		if db.IsDuplicateKeyErr(err) {
			return domain.OutcomeDuplicate, nil
		}
		return "", err
	}

	outcome := domain.OutcomeApplied
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		profile, err := s.matchProfile(ctx, tx, event)
		if err != nil {
			return err
		}
		if profile == nil {
			outcome = domain.OutcomeUnknownRef
			s.log.Warn("billing event references unknown customer",
				zap.String("provider_event_id", event.ProviderEventID),
				zap.String("customer_id", event.CustomerID),
			)
			return nil
		}

		if profile.LastEventAt != nil && event.OccurredAt.Before(*profile.LastEventAt) {
			outcome = domain.OutcomeStale
			return nil
		}

		next, ok := s.transition(profile, event)
		if !ok {
			outcome = domain.OutcomeIgnored
			return nil
		}

		return s.profiles.Update(ctx, tx, next)
	})
	if err != nil {
		return "", err
	}

	if err := s.events.MarkProcessed(ctx, s.db, record.ID, s.clock.Now()); err != nil {
		// The state change already landed; a failed bookkeeping update is
		// not worth surfacing a retry to the provider.
		s.log.Warn("mark webhook event processed failed", zap.Error(err))
	}
	return outcome, nil
}

func (s *Reconciler) matchProfile(ctx context.Context, tx *gorm.DB, event *domain.Event) (*profiledomain.UserProfile, error) {
	if event.Type == domain.EventCheckoutCompleted && event.IdentityKey != "" {
		profile, err := s.profiles.FindByIdentityKey(ctx, tx, event.IdentityKey)
		if err != nil || profile != nil {
			return profile, err
		}
	}
	if event.CustomerID == "" {
		return nil, nil
	}
	return s.profiles.FindByBillingCustomerID(ctx, tx, event.CustomerID)
}

// transition computes the profile's next subscription state. The limit is
// always rewritten together with the status so the two can never disagree.
func (s *Reconciler) transition(profile *profiledomain.UserProfile, event *domain.Event) (*profiledomain.UserProfile, bool) {
	next := *profile

	switch event.Type {
	case domain.EventCheckoutCompleted:
		next.SubscriptionStatus = profiledomain.StatusActive
		next.BillingCustomerID = stringPtr(event.CustomerID)
		if event.SubscriptionID != "" {
			next.BillingSubscriptionID = stringPtr(event.SubscriptionID)
		}

	case domain.EventSubscriptionUpdated:
		next.SubscriptionStatus = mapProviderStatus(event.ProviderStatus)
		if event.SubscriptionID != "" {
			next.BillingSubscriptionID = stringPtr(event.SubscriptionID)
		}

	case domain.EventSubscriptionDeleted:
		next.SubscriptionStatus = profiledomain.StatusCancelled
		next.BillingSubscriptionID = nil

	case domain.EventPaymentFailed:
		next.SubscriptionStatus = profiledomain.StatusPastDue

	default:
		return nil, false
	}

	next.DailyQuestionLimit = s.limitFor(next.SubscriptionStatus)
	occurredAt := event.OccurredAt
	next.LastEventAt = &occurredAt
	next.UpdatedAt = s.clock.Now()
	return &next, true
}

func (s *Reconciler) limitFor(status profiledomain.SubscriptionStatus) int {
	tiers := s.tiers.Current()
	switch status {
	case profiledomain.StatusActive:
		return tiers.ActiveDailyLimit
	case profiledomain.StatusPastDue, profiledomain.StatusCancelled:
		return tiers.LapsedDailyLimit
	default:
		return tiers.FreeDailyLimit
	}
}

// mapProviderStatus collapses the provider's subscription statuses onto the
// three the profile model knows. Anything that is not plainly active or
// past_due means the subscription no longer entitles the user, so it lands
// on cancelled rather than being left as-is.
func mapProviderStatus(providerStatus string) profiledomain.SubscriptionStatus {
	switch providerStatus {
	case "active":
		return profiledomain.StatusActive
	case "past_due":
		return profiledomain.StatusPastDue
	default:
		return profiledomain.StatusCancelled
	}
}

func rawPayloadMap(payload []byte) datatypes.JSONMap {
	out := datatypes.JSONMap{}
	if len(payload) == 0 {
		return out
	}
	if err := json.Unmarshal(payload, &out); err != nil {
		return datatypes.JSONMap{}
	}
	return out
}

func stringPtr(v string) *string { return &v }
