package dispatcher

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"comms-service/internal/models"
	"comms-service/internal/observability"
	"comms-service/internal/policy"
	"comms-service/internal/repositories"
	"comms-service/internal/safety"
)

// DenialError is a policy refusal. Nothing is persisted when it is returned.
type DenialError struct {
	Reason policy.DenyReason
}

func (e *DenialError) Error() string {
	return fmt.Sprintf("send denied: %s", e.Reason)
}

// Receipt confirms a successful send.
type Receipt struct {
	MessageID      int64     `json:"message_id"`
	ConversationID int64     `json:"conversation_id"`
	Timestamp      time.Time `json:"timestamp"`
}

// Scorer rates outgoing content. Implemented by safety.Filter.
type Scorer interface {
	Score(content string) safety.Result
}

// Publisher routes flagged messages and failed mirror writes to queues.
type Publisher interface {
	Publish(ctx context.Context, routingKey string, event any) error
}

// Broadcaster pushes accepted messages to open conversation views.
type Broadcaster interface {
	BroadcastMessage(conversationID int64, msg models.Message)
}

// Config carries the dispatcher knobs.
type Config struct {
	ModerationRoutingKey  string
	MirrorRetryRoutingKey string
	MirrorTimeout         time.Duration
}

// Dispatcher is the single entry point orchestrating a send: policy check,
// safety scoring, persistence, then guardian fan-out.
type Dispatcher struct {
	engine      *policy.Engine
	scorer      Scorer
	convs       repositories.ConversationRepository
	msgs        repositories.MessageRepository
	mirrors     repositories.ChildMessageRepository
	dir         repositories.DirectoryRepository
	publisher   Publisher
	broadcaster Broadcaster
	logger      *zap.Logger
	cfg         Config
	now         func() time.Time
}

// New builds a Dispatcher. broadcaster may be nil when no live delivery is
// wired (tests, batch tooling).
func New(
	engine *policy.Engine,
	scorer Scorer,
	convs repositories.ConversationRepository,
	msgs repositories.MessageRepository,
	mirrors repositories.ChildMessageRepository,
	dir repositories.DirectoryRepository,
	publisher Publisher,
	broadcaster Broadcaster,
	logger *zap.Logger,
	cfg Config,
) *Dispatcher {
	if cfg.MirrorTimeout <= 0 {
		cfg.MirrorTimeout = 2 * time.Second
	}
	return &Dispatcher{
		engine:      engine,
		scorer:      scorer,
		convs:       convs,
		msgs:        msgs,
		mirrors:     mirrors,
		dir:         dir,
		publisher:   publisher,
		broadcaster: broadcaster,
		logger:      logger,
		cfg:         cfg,
		now:         time.Now,
	}
}

// SetClock overrides the time source. Used by tests.
func (d *Dispatcher) SetClock(now func() time.Time) {
	d.now = now
}

// Precheck evaluates policy without side effects, for compose-time
// validation in the UI.
func (d *Dispatcher) Precheck(ctx context.Context, sender, recipient models.Account, childID int64) (policy.Decision, error) {
	return d.engine.Evaluate(ctx, sender, recipient, childID, d.now())
}

// Send runs the full pipeline. A policy or storage failure before the
// append leaves no durable trace; once the message is stored, guardian
// mirroring failures degrade to async retry and never fail the send.
func (d *Dispatcher) Send(ctx context.Context, sender, recipient models.Account, childID int64, content string) (Receipt, error) {
	decision, err := d.engine.Evaluate(ctx, sender, recipient, childID, d.now())
	if err != nil {
		return Receipt{}, err
	}
	if !decision.Allowed {
		observability.IncPolicyDenial(string(decision.Reason))
		return Receipt{}, &DenialError{Reason: decision.Reason}
	}

	result := d.scorer.Score(content)

	teacherID, counterpartyID := orient(sender, recipient)
	conv, err := d.convs.GetOrCreate(ctx, teacherID, counterpartyID, childID, decision.ForcesEncryption)
	if err != nil {
		return Receipt{}, err
	}

	msg, err := d.msgs.Append(ctx, conv.ID, repositories.NewMessage{
		SenderID:    sender.ID,
		SenderRole:  sender.Role,
		Content:     content,
		IsEncrypted: conv.IsEncrypted,
		IsFlagged:   result.Flagged,
		SafetyScore: result.Score,
	})
	if err != nil {
		return Receipt{}, err
	}

	observability.IncMessageSent(string(sender.Role), string(recipient.Role))

	if result.Flagged {
		observability.IncMessageFlagged()
		d.publishModeration(ctx, msg)
	}

	if decision.RequiresGuardianMirror {
		d.mirrorToGuardians(ctx, msg, sender, childID)
	}

	if d.broadcaster != nil {
		d.broadcaster.BroadcastMessage(conv.ID, msg)
	}

	return Receipt{MessageID: msg.ID, ConversationID: conv.ID, Timestamp: msg.CreatedAt}, nil
}

// orient maps the (sender, recipient) pair onto the conversation key. The
// policy engine has already guaranteed exactly one side is a teacher.
func orient(sender, recipient models.Account) (teacherID, counterpartyID int64) {
	if sender.Role == models.RoleTeacher {
		return sender.ID, recipient.ID
	}
	return recipient.ID, sender.ID
}

// moderationEvent is consumed by the external moderation review queue.
type moderationEvent struct {
	MessageID      int64   `json:"message_id"`
	ConversationID int64   `json:"conversation_id"`
	SenderID       int64   `json:"sender_id"`
	SafetyScore    float64 `json:"safety_score"`
	Content        string  `json:"content"`
}

func (d *Dispatcher) publishModeration(ctx context.Context, msg models.Message) {
	event := moderationEvent{
		MessageID:      msg.ID,
		ConversationID: msg.ConversationID,
		SenderID:       msg.SenderID,
		SafetyScore:    msg.SafetyScore,
		Content:        msg.Content,
	}
	if err := d.publisher.Publish(ctx, d.cfg.ModerationRoutingKey, event); err != nil {
		// The flag is already persisted on the message row; the review
		// queue can be rebuilt from storage if the broker was down.
		d.logger.Error("moderation publish failed",
			zap.Int64("message_id", msg.ID), zap.Error(err))
	}
}

// mirrorRetryEvent replays a failed guardian projection write.
type mirrorRetryEvent struct {
	MessageID  int64  `json:"message_id"`
	ChildID    int64  `json:"child_id"`
	GuardianID int64  `json:"guardian_id"`
	Direction  string `json:"direction"`
	Content    string `json:"content"`
}

// mirrorToGuardians writes the transparency projection for every guardian
// of the child. The primary message is already real at this point, so a
// failed write is queued for async retry instead of rolling anything back.
func (d *Dispatcher) mirrorToGuardians(ctx context.Context, msg models.Message, sender models.Account, childID int64) {
	direction := models.ChildMessageReceived
	if sender.ID == childID {
		direction = models.ChildMessageSent
	}

	guardians, err := d.dir.GuardiansOf(ctx, childID)
	if err != nil {
		d.logger.Error("guardian lookup failed, queuing mirror retry",
			zap.Int64("message_id", msg.ID), zap.Int64("child_id", childID), zap.Error(err))
		observability.IncMirrorFailure()
		d.queueMirrorRetry(ctx, mirrorRetryEvent{
			MessageID: msg.ID, ChildID: childID,
			Direction: string(direction), Content: msg.Content,
		})
		return
	}

	mirrorCtx, cancel := context.WithTimeout(ctx, d.cfg.MirrorTimeout)
	defer cancel()

	for _, guardianID := range guardians {
		entry := models.ChildMessage{
			MessageID:  msg.ID,
			ChildID:    childID,
			GuardianID: guardianID,
			Direction:  direction,
			Content:    msg.Content,
		}
		if _, err := d.mirrors.Create(mirrorCtx, entry); err != nil {
			d.logger.Error("guardian mirror write failed, queuing retry",
				zap.Int64("message_id", msg.ID), zap.Int64("guardian_id", guardianID), zap.Error(err))
			observability.IncMirrorFailure()
			d.queueMirrorRetry(ctx, mirrorRetryEvent{
				MessageID: msg.ID, ChildID: childID, GuardianID: guardianID,
				Direction: string(direction), Content: msg.Content,
			})
		}
	}
}

func (d *Dispatcher) queueMirrorRetry(ctx context.Context, event mirrorRetryEvent) {
	if err := d.publisher.Publish(ctx, d.cfg.MirrorRetryRoutingKey, event); err != nil {
		d.logger.Error("mirror retry publish failed",
			zap.Int64("message_id", event.MessageID), zap.Error(err))
	}
}
