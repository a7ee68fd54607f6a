package services

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/forefold/leadsflow/internal/models"
	"github.com/forefold/leadsflow/internal/repositories"
	"github.com/forefold/leadsflow/pkg/webpush"
)

type eventKind int

const (
	kindNewLead eventKind = iota
	kindFollowUp
	kindHotLead
	kindConversion
)

type notifyJob struct {
	kind  eventKind
	lead  models.Lead
	actor models.User
}

// DeliveryStats summarizes one fanout pass.
type DeliveryStats struct {
	Sent    int `json:"sent"`
	Errors  int `json:"errors"`
	Skipped int `json:"skipped"`
}

func (s *DeliveryStats) add(o DeliveryStats) {
	s.Sent += o.Sent
	s.Errors += o.Errors
	s.Skipped += o.Skipped
}

// Notifier fans lead events out to every account in the lead owner's company
// plus their delegates. Delivery is sequential within a company, with a
// pacing pause after each recipient that actually received an email, and
// parallel across companies: each company gets its own queue and worker.
type Notifier struct {
	users         UserStore
	grants        GrantStore
	leads         LeadStore
	notifications NotificationStore
	scopes        *ScopeResolver
	mailer        Mailer
	pusher        Pusher
	log           *logrus.Logger

	pacing   time.Duration
	queueCap int
	sleep    func(time.Duration)
	now      Clock

	mu     sync.Mutex
	queues map[string]chan notifyJob
	wg     sync.WaitGroup
	closed bool
}

// NotifierOptions tunes the notifier. Zero values pick defaults.
type NotifierOptions struct {
	PacingDelay   time.Duration
	QueueCapacity int
	Sleep         func(time.Duration)
	Now           Clock
}

func NewNotifier(users UserStore, grants GrantStore, leads LeadStore, notifications NotificationStore, scopes *ScopeResolver, mailer Mailer, pusher Pusher, log *logrus.Logger, opts NotifierOptions) *Notifier {
	if opts.PacingDelay <= 0 {
		opts.PacingDelay = 2 * time.Second
	}
	if opts.QueueCapacity <= 0 {
		opts.QueueCapacity = 256
	}
	if opts.Sleep == nil {
		opts.Sleep = time.Sleep
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Notifier{
		users:         users,
		grants:        grants,
		leads:         leads,
		notifications: notifications,
		scopes:        scopes,
		mailer:        mailer,
		pusher:        pusher,
		log:           log,
		pacing:        opts.PacingDelay,
		queueCap:      opts.QueueCapacity,
		sleep:         opts.Sleep,
		now:           opts.Now,
		queues:        make(map[string]chan notifyJob),
	}
}

// LeadCreated implements LeadEventSink.
func (n *Notifier) LeadCreated(lead *models.Lead, creator *models.User) {
	n.enqueue(notifyJob{kind: kindNewLead, lead: *lead, actor: *creator})
}

// LeadStatusChanged implements LeadEventSink. Only hot and converted
// transitions notify.
func (n *Notifier) LeadStatusChanged(lead *models.Lead, actor *models.User, newStatus string) {
	switch newStatus {
	case models.StatusHot:
		n.enqueue(notifyJob{kind: kindHotLead, lead: *lead, actor: *actor})
	case models.StatusConverted:
		n.enqueue(notifyJob{kind: kindConversion, lead: *lead, actor: *actor})
	}
}

// queueKey partitions jobs: one worker per company, or per owner when the
// owner has no company.
func (n *Notifier) queueKey(job notifyJob) string {
	if job.actor.CompanyName != "" {
		return "company:" + job.actor.CompanyName
	}
	return "user:" + job.lead.UserID.String()
}

func (n *Notifier) enqueue(job notifyJob) {
	n.mu.Lock()
	if n.closed {
		n.mu.Unlock()
		return
	}
	key := n.queueKey(job)
	queue, ok := n.queues[key]
	if !ok {
		queue = make(chan notifyJob, n.queueCap)
		n.queues[key] = queue
		n.wg.Add(1)
		go n.worker(key, queue)
	}
	n.mu.Unlock()

	select {
	case queue <- job:
	default:
		n.log.WithField("queue", key).Warn("notification queue full, dropping event")
	}
}

// Close stops accepting jobs and waits for in-flight deliveries to drain.
func (n *Notifier) Close() {
	n.mu.Lock()
	if n.closed {
		n.mu.Unlock()
		return
	}
	n.closed = true
	for _, queue := range n.queues {
		close(queue)
	}
	n.mu.Unlock()
	n.wg.Wait()
}

func (n *Notifier) worker(key string, queue chan notifyJob) {
	defer n.wg.Done()
	for job := range queue {
		ctx := context.Background()
		if _, err := n.deliver(ctx, job); err != nil {
			n.log.WithError(err).WithField("queue", key).Error("notification fanout failed")
		}
	}
}

// recipients resolves the fanout set for a lead: every active account in the
// owner's company plus the active delegates of those accounts, deduplicated,
// with the acting user always included.
func (n *Notifier) recipients(ctx context.Context, job notifyJob) ([]models.User, error) {
	owner, err := n.users.GetByID(ctx, job.lead.UserID)
	if err != nil {
		if repositories.IsNotFound(err) {
			return nil, NewNotFound("lead owner not found")
		}
		return nil, err
	}

	var companyUsers []models.User
	if owner.CompanyName != "" {
		companyUsers, err = n.users.ListActiveByCompany(ctx, owner.CompanyName)
		if err != nil {
			return nil, err
		}
	} else if owner.IsActive {
		companyUsers = []models.User{*owner}
	}

	parentIDs := make([]models.AccountID, 0, len(companyUsers))
	for _, u := range companyUsers {
		parentIDs = append(parentIDs, u.ID)
	}
	grants, err := n.grants.ListByParents(ctx, parentIDs)
	if err != nil {
		return nil, err
	}
	delegateIDs := make([]models.AccountID, 0, len(grants))
	for _, g := range grants {
		delegateIDs = append(delegateIDs, g.UserID)
	}
	delegates, err := n.users.ListActiveByIDs(ctx, delegateIDs)
	if err != nil {
		return nil, err
	}

	seen := make(map[models.AccountID]bool)
	out := make([]models.User, 0, len(companyUsers)+len(delegates)+1)
	appendUser := func(u models.User) {
		if !seen[u.ID] {
			seen[u.ID] = true
			out = append(out, u)
		}
	}
	for _, u := range companyUsers {
		appendUser(u)
	}
	for _, u := range delegates {
		appendUser(u)
	}
	appendUser(job.actor)
	return out, nil
}

// deliver runs the fanout for one job. After every recipient where an email
// actually went out, except the last recipient, delivery pauses for the
// pacing delay so the SMTP relay is never burst-flooded.
func (n *Notifier) deliver(ctx context.Context, job notifyJob) (DeliveryStats, error) {
	var stats DeliveryStats

	recipients, err := n.recipients(ctx, job)
	if err != nil {
		return stats, err
	}

	for i, rcpt := range recipients {
		emailed, rs := n.notifyOne(ctx, &rcpt, job)
		stats.add(rs)
		if emailed && i < len(recipients)-1 {
			n.sleep(n.pacing)
		}
	}
	return stats, nil
}

func categoryEnabled(settings *models.NotificationSettings, kind eventKind) bool {
	switch kind {
	case kindNewLead:
		return settings.NewLeads
	case kindFollowUp:
		return settings.FollowUps
	case kindHotLead:
		return settings.HotLeads
	case kindConversion:
		return settings.Conversions
	default:
		return false
	}
}

// notifyOne sends email and push to a single recipient per their settings.
// Returns whether an email was actually sent, for pacing.
func (n *Notifier) notifyOne(ctx context.Context, rcpt *models.User, job notifyJob) (bool, DeliveryStats) {
	var stats DeliveryStats

	settings, err := n.notifications.GetSettings(ctx, rcpt.ID)
	if err != nil {
		n.log.WithError(err).WithField("user_id", rcpt.ID).Error("failed to load notification settings")
		stats.Errors++
		return false, stats
	}
	if !categoryEnabled(settings, job.kind) {
		stats.Skipped++
		return false, stats
	}

	subject, htmlBody, textBody := renderNotification(job)

	emailed := false
	attempted := false
	if settings.EmailNotifications && n.mailer != nil {
		attempted = true
		if err := n.mailer.Send(rcpt.Email, subject, htmlBody, textBody); err != nil {
			n.log.WithError(err).WithField("to", rcpt.Email).Error("notification email failed")
			stats.Errors++
		} else {
			emailed = true
			stats.Sent++
		}
	}

	if settings.BrowserPush && n.pusher != nil {
		attempted = true
		n.pushToSubscriptions(ctx, rcpt.ID, subject, textBody, &stats)
	}

	// Skipped counts recipients with every channel off, not delivery
	// failures already tallied as errors.
	if !attempted {
		stats.Skipped++
	}
	return emailed, stats
}

func (n *Notifier) pushToSubscriptions(ctx context.Context, userID models.AccountID, title, body string, stats *DeliveryStats) {
	subs, err := n.notifications.ListSubscriptions(ctx, userID)
	if err != nil {
		n.log.WithError(err).WithField("user_id", userID).Error("failed to list push subscriptions")
		stats.Errors++
		return
	}
	payload := []byte(fmt.Sprintf(`{"title":%q,"body":%q}`, title, body))
	for _, sub := range subs {
		err := n.pusher.Send(sub.Subscription, payload)
		switch {
		case err == nil:
			stats.Sent++
		case errors.Is(err, webpush.ErrSubscriptionGone):
			// The browser dropped the subscription; forget it.
			if derr := n.notifications.DeleteSubscription(ctx, sub.Endpoint); derr != nil {
				n.log.WithError(derr).WithField("endpoint", sub.Endpoint).Warn("failed to remove gone subscription")
			}
		default:
			n.log.WithError(err).WithField("endpoint", sub.Endpoint).Error("push delivery failed")
			stats.Errors++
		}
	}
}

func renderNotification(job notifyJob) (subject, htmlBody, textBody string) {
	summary := leadSummary(&job.lead)
	switch job.kind {
	case kindNewLead:
		subject = "New lead: " + job.lead.Name
		textBody = fmt.Sprintf("%s added a new lead: %s", job.actor.FullName, summary)
	case kindFollowUp:
		subject = "Follow-up due: " + job.lead.Name
		textBody = fmt.Sprintf("A follow-up with %s is due today.", summary)
	case kindHotLead:
		subject = "Lead marked hot: " + job.lead.Name
		textBody = fmt.Sprintf("%s marked %s as a hot lead.", job.actor.FullName, summary)
	case kindConversion:
		subject = "Lead converted: " + job.lead.Name
		textBody = fmt.Sprintf("%s converted %s.", job.actor.FullName, summary)
	}
	htmlBody = fmt.Sprintf("<p>%s</p>", textBody)
	return subject, htmlBody, textBody
}

// SendFollowUpReminders delivers reminders for every lead whose follow-up
// falls today. Run by the daily scheduler; delivery is synchronous so the
// caller sees aggregate stats.
func (n *Notifier) SendFollowUpReminders(ctx context.Context) (DeliveryStats, error) {
	var stats DeliveryStats

	now := n.now().UTC()
	dayStart := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	dayEnd := dayStart.AddDate(0, 0, 1)

	due, err := n.leads.ListDueForFollowup(ctx, dayStart, dayEnd)
	if err != nil {
		return stats, WrapInternal(err, "failed to query due follow-ups")
	}

	for i := range due {
		lead := due[i]
		owner, err := n.users.GetByID(ctx, lead.UserID)
		if err != nil {
			n.log.WithError(err).WithField("lead_id", lead.ID).Warn("skipping reminder, owner lookup failed")
			stats.Errors++
			continue
		}
		rs, err := n.deliver(ctx, notifyJob{kind: kindFollowUp, lead: lead, actor: *owner})
		if err != nil {
			n.log.WithError(err).WithField("lead_id", lead.ID).Error("follow-up reminder failed")
			stats.Errors++
			continue
		}
		stats.add(rs)
	}
	return stats, nil
}

// SendFollowUpReminderForLead triggers a reminder for one lead on demand.
// The acting user must be able to view the lead, and the lead must have a
// follow-up date set.
func (n *Notifier) SendFollowUpReminderForLead(ctx context.Context, actingUserID models.AccountID, leadID string) (DeliveryStats, error) {
	var stats DeliveryStats

	scope, err := n.scopes.Authorize(ctx, actingUserID, models.CapabilityViewLeads)
	if err != nil {
		return stats, err
	}
	lead, err := n.leads.GetByID(ctx, leadID)
	if err != nil {
		if repositories.IsNotFound(err) {
			return stats, NewNotFound("lead not found")
		}
		return stats, WrapInternal(err, "failed to load lead")
	}
	visible := false
	for _, id := range scope.OwnerIDs {
		if lead.UserID == id {
			visible = true
			break
		}
	}
	if !visible {
		return stats, NewNotFound("lead not found")
	}
	if lead.NextFollowupDate == nil {
		return stats, NewBadRequest("lead has no follow-up date")
	}

	owner, err := n.users.GetByID(ctx, lead.UserID)
	if err != nil {
		return stats, WrapInternal(err, "failed to load lead owner")
	}
	return n.deliver(ctx, notifyJob{kind: kindFollowUp, lead: *lead, actor: *owner})
}

// SendTestPush delivers a test notification to the caller's own registered
// push subscriptions so browser setup can be verified end to end.
func (n *Notifier) SendTestPush(ctx context.Context, userID models.AccountID) (DeliveryStats, error) {
	var stats DeliveryStats

	if n.pusher == nil {
		return stats, NewBadRequest("push delivery is not configured")
	}
	settings, err := n.notifications.GetSettings(ctx, userID)
	if err != nil {
		return stats, WrapInternal(err, "failed to load notification settings")
	}
	if !settings.BrowserPush {
		return stats, NewBadRequest("browser push is disabled in notification settings")
	}

	n.pushToSubscriptions(ctx, userID, "Test Notification", "This is a test push notification from LeadsFlow", &stats)
	if stats.Sent == 0 && stats.Errors == 0 {
		return stats, NewBadRequest("no push subscriptions registered; subscribe from a browser first")
	}
	return stats, nil
}

// PushDiagnostics reports why push delivery may not be reaching an account.
type PushDiagnostics struct {
	PushConfigured     bool     `json:"pushConfigured"`
	BrowserPushEnabled bool     `json:"browserPushEnabled"`
	SubscriptionCount  int      `json:"subscriptionCount"`
	Issues             []string `json:"issues"`
}

// DiagnosePush inspects the caller's push setup and lists anything that
// would stop a notification from arriving.
func (n *Notifier) DiagnosePush(ctx context.Context, userID models.AccountID) (*PushDiagnostics, error) {
	diag := &PushDiagnostics{
		PushConfigured: n.pusher != nil,
		Issues:         []string{},
	}
	if !diag.PushConfigured {
		diag.Issues = append(diag.Issues, "push delivery is not configured; set the VAPID keys")
	}

	settings, err := n.notifications.GetSettings(ctx, userID)
	if err != nil {
		return nil, WrapInternal(err, "failed to load notification settings")
	}
	diag.BrowserPushEnabled = settings.BrowserPush
	if !settings.BrowserPush {
		diag.Issues = append(diag.Issues, "browser push is disabled in notification settings")
	}

	subs, err := n.notifications.ListSubscriptions(ctx, userID)
	if err != nil {
		return nil, WrapInternal(err, "failed to list push subscriptions")
	}
	diag.SubscriptionCount = len(subs)
	if len(subs) == 0 {
		diag.Issues = append(diag.Issues, "no push subscriptions registered; subscribe from a browser first")
	}
	return diag, nil
}
