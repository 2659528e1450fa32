package services

import (
	"context"
	"fmt"
	"log/slog"

	"relate-backend/sections/models"
)

// Responder produces reply text for an inbound message. Implementations must
// not fail: on any internal error they degrade to a generic fallback reply
// so the pipeline never loses a user message to a responder problem.
type Responder interface {
	Generate(ctx context.Context, tenantID, message string) string
}

// ProcessResult is what a gateway gets back from one pipeline run.
type ProcessResult struct {
	UserMessage  *models.Message
	AIMessage    *models.Message
	Lead         *models.Lead
	Conversation *models.Conversation
}

// Pipeline orchestrates one inbound message: resolve context, persist the
// user message, generate a reply, persist the ai message. The two message
// writes and the conversation touch run in a single transaction so a
// persistence failure cannot leave an orphaned half-exchange behind.
type Pipeline struct {
	logger    *slog.Logger
	store     CRMStore
	resolver  *Resolver
	responder Responder
}

// NewPipeline creates a new message pipeline
func NewPipeline(store CRMStore, resolver *Resolver, responder Responder) *Pipeline {
	return &Pipeline{
		logger:    slog.With("service", "Pipeline"),
		store:     store,
		resolver:  resolver,
		responder: responder,
	}
}

// ProcessUserMessage runs the full pipeline for one inbound message and
// returns both persisted messages plus the resolved lead and conversation.
// Any persistence error aborts the whole call.
func (p *Pipeline) ProcessUserMessage(ctx context.Context, tenantID, socialID, content string, channel models.ChannelSource, nameHint string) (*ProcessResult, error) {
	p.logger.Info("Processing inbound message", "tenant", tenantID, "channel", channel, "social_id", socialID)

	chatCtx, err := p.resolver.ResolveContext(ctx, tenantID, socialID, channel, nameHint)
	if err != nil {
		return nil, err
	}

	var userMsg, aiMsg *models.Message
	err = p.store.Transact(ctx, tenantID, func(tx CRMStore) error {
		convID := chatCtx.Conversation.ID
		userMsg = &models.Message{
			TenantSchema:   tenantID,
			ConversationID: &convID,
			Content:        content,
			SenderType:     models.SenderUser,
		}
		if err := tx.CreateMessage(ctx, tenantID, userMsg); err != nil {
			return fmt.Errorf("failed to persist user message: %w", err)
		}

		reply := p.responder.Generate(ctx, tenantID, content)

		aiMsg = &models.Message{
			TenantSchema:   tenantID,
			ConversationID: &convID,
			Content:        reply,
			SenderType:     models.SenderAI,
		}
		if err := tx.CreateMessage(ctx, tenantID, aiMsg); err != nil {
			return fmt.Errorf("failed to persist ai message: %w", err)
		}

		return tx.TouchConversation(ctx, tenantID, convID)
	})
	if err != nil {
		return nil, err
	}

	messagesProcessed(string(channel))

	return &ProcessResult{
		UserMessage:  userMsg,
		AIMessage:    aiMsg,
		Lead:         chatCtx.Lead,
		Conversation: chatCtx.Conversation,
	}, nil
}

// RecordLeadMessage persists a message sent by the lead themselves through
// the legacy customer portal. It attaches to the lead directly rather than a
// conversation and produces no ai reply.
func (p *Pipeline) RecordLeadMessage(ctx context.Context, tenantID string, leadID uint, content string) (*models.Message, error) {
	msg := &models.Message{
		TenantSchema: tenantID,
		LeadID:       &leadID,
		Content:      content,
		SenderType:   models.SenderLead,
	}
	if err := p.store.CreateMessage(ctx, tenantID, msg); err != nil {
		return nil, fmt.Errorf("failed to persist lead message: %w", err)
	}
	return msg, nil
}

// MarkDelivery records the outcome of best-effort outbound delivery on the
// ai message so degradation is observable, not just logged.
func (p *Pipeline) MarkDelivery(ctx context.Context, tenantID string, msgID uint, delivered bool) {
	status := models.DeliverySent
	if !delivered {
		status = models.DeliveryFailed
	}
	if err := p.store.SetMessageDeliveryStatus(ctx, tenantID, msgID, status); err != nil {
		p.logger.Error("Failed to record delivery status", "tenant", tenantID, "message_id", msgID, "error", err)
	}
}
