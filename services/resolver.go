package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"relate-backend/sections/models"
)

// ChatContext is the lead and open conversation an inbound message belongs to.
type ChatContext struct {
	Lead         *models.Lead
	Conversation *models.Conversation
}

// Resolver finds or creates the lead and open conversation for an external
// identity. The external identity is a natural key: the store's unique index
// plus insert-on-conflict keeps concurrent first messages from producing
// duplicate rows.
type Resolver struct {
	logger *slog.Logger
	store  CRMStore
}

// NewResolver creates a new resolver
func NewResolver(store CRMStore) *Resolver {
	return &Resolver{
		logger: slog.With("service", "Resolver"),
		store:  store,
	}
}

// ResolveContext looks up the lead for (socialID, channel), creating it with
// status=new when absent, then selects the most recently updated open
// conversation for that lead, creating one when none is open.
func (r *Resolver) ResolveContext(ctx context.Context, tenantID, socialID string, channel models.ChannelSource, nameHint string) (*ChatContext, error) {
	lead, err := r.store.FindLead(ctx, tenantID, socialID, channel)
	if errors.Is(err, ErrNotFound) {
		lead, err = r.store.CreateLead(ctx, tenantID, &models.Lead{
			TenantSchema:  tenantID,
			Name:          leadName(nameHint, socialID),
			SocialID:      socialID,
			ChannelSource: channel,
			Status:        models.LeadNew,
		})
		if err == nil {
			r.logger.Info("Lead created", "tenant", tenantID, "channel", channel, "lead_id", lead.ID)
		}
	}
	if err != nil {
		return nil, fmt.Errorf("failed to resolve lead: %w", err)
	}

	conv, err := r.store.FindOpenConversation(ctx, tenantID, lead.ID)
	if errors.Is(err, ErrNotFound) {
		conv = &models.Conversation{
			TenantSchema: tenantID,
			LeadID:       lead.ID,
			Status:       models.ConversationOpen,
		}
		err = r.store.CreateConversation(ctx, tenantID, conv)
		if err == nil {
			r.logger.Info("Conversation opened", "tenant", tenantID, "lead_id", lead.ID, "conversation_id", conv.ID)
		}
	}
	if err != nil {
		return nil, fmt.Errorf("failed to resolve conversation: %w", err)
	}

	return &ChatContext{Lead: lead, Conversation: conv}, nil
}

// leadName falls back to a placeholder derived from the external identity
// when the channel supplied no display name.
func leadName(hint, socialID string) string {
	if hint != "" {
		return hint
	}
	short := socialID
	if len(short) > 6 {
		short = short[:6]
	}
	return "Visitor-" + short
}
