package events

import (
	"time"

	"github.com/sirupsen/logrus"

	"github.com/forefold/leadsflow/internal/models"
	"github.com/forefold/leadsflow/pkg/kafka"
)

// Topics names the Kafka topics audit events are published to.
type Topics struct {
	LeadCreated string
	AuthLogin   string
	OTPIssued   string
}

// LeadEvent is the audit payload for lead lifecycle events.
type LeadEvent struct {
	Event     string    `json:"event"`
	LeadID    string    `json:"lead_id"`
	LeadName  string    `json:"lead_name"`
	OwnerID   string    `json:"owner_id"`
	ActorID   string    `json:"actor_id"`
	Status    string    `json:"status,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// AuthEvent is the audit payload for authentication events.
type AuthEvent struct {
	Event     string    `json:"event"`
	UserID    string    `json:"user_id,omitempty"`
	Email     string    `json:"email"`
	Purpose   string    `json:"purpose,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// Publisher emits audit events to Kafka. All publishing is fire-and-forget:
// a broker outage degrades auditing, never the request path.
type Publisher struct {
	producer *kafka.Producer
	topics   Topics
	log      *logrus.Logger
}

func NewPublisher(producer *kafka.Producer, topics Topics, log *logrus.Logger) *Publisher {
	return &Publisher{producer: producer, topics: topics, log: log}
}

func (p *Publisher) publish(topic string, payload interface{}) {
	if p.producer == nil || topic == "" {
		return
	}
	if err := p.producer.PublishJSON(topic, payload); err != nil {
		p.log.WithError(err).WithField("topic", topic).Warn("failed to publish audit event")
	}
}

// LeadCreated implements services.LeadEventSink for auditing.
func (p *Publisher) LeadCreated(lead *models.Lead, creator *models.User) {
	p.publish(p.topics.LeadCreated, LeadEvent{
		Event:     "lead.created",
		LeadID:    lead.ID,
		LeadName:  lead.Name,
		OwnerID:   lead.UserID.String(),
		ActorID:   creator.ID.String(),
		Status:    lead.LeadStatus,
		Timestamp: time.Now().UTC(),
	})
}

// LeadStatusChanged implements services.LeadEventSink for auditing.
func (p *Publisher) LeadStatusChanged(lead *models.Lead, actor *models.User, newStatus string) {
	p.publish(p.topics.LeadCreated, LeadEvent{
		Event:     "lead.status_changed",
		LeadID:    lead.ID,
		LeadName:  lead.Name,
		OwnerID:   lead.UserID.String(),
		ActorID:   actor.ID.String(),
		Status:    newStatus,
		Timestamp: time.Now().UTC(),
	})
}

// UserSignedUp implements services.AuthEventSink.
func (p *Publisher) UserSignedUp(user *models.User) {
	p.publish(p.topics.AuthLogin, AuthEvent{
		Event:     "auth.signup",
		UserID:    user.ID.String(),
		Email:     user.Email,
		Timestamp: time.Now().UTC(),
	})
}

// UserLoggedIn implements services.AuthEventSink.
func (p *Publisher) UserLoggedIn(user *models.User) {
	p.publish(p.topics.AuthLogin, AuthEvent{
		Event:     "auth.login",
		UserID:    user.ID.String(),
		Email:     user.Email,
		Timestamp: time.Now().UTC(),
	})
}

// OTPIssued implements services.AuthEventSink.
func (p *Publisher) OTPIssued(email string, purpose models.OTPPurpose) {
	p.publish(p.topics.OTPIssued, AuthEvent{
		Event:     "otp.issued",
		Email:     email,
		Purpose:   string(purpose),
		Timestamp: time.Now().UTC(),
	})
}
