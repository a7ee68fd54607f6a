package services

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
	"go.mongodb.org/mongo-driver/bson"

	"github.com/forefold/leadsflow/internal/models"
	"github.com/forefold/leadsflow/internal/repositories"
)

// In-memory store fakes backing the service tests.

func notFound(what string) error {
	return fmt.Errorf("%s: %w", what, repositories.ErrNotFound)
}

type fakeUserStore struct {
	mu    sync.Mutex
	users map[models.AccountID]*models.User
}

func newFakeUserStore(users ...*models.User) *fakeUserStore {
	s := &fakeUserStore{users: make(map[models.AccountID]*models.User)}
	for _, u := range users {
		c := *u
		s.users[u.ID] = &c
	}
	return s
}

func (s *fakeUserStore) Create(ctx context.Context, user *models.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, u := range s.users {
		if u.Email == user.Email {
			return fmt.Errorf("user: %w", repositories.ErrDuplicateKey)
		}
	}
	c := *user
	s.users[user.ID] = &c
	return nil
}

func (s *fakeUserStore) GetByID(ctx context.Context, id models.AccountID) (*models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[id]
	if !ok {
		return nil, notFound("user")
	}
	c := *u
	return &c, nil
}

func (s *fakeUserStore) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, u := range s.users {
		if u.Email == email {
			c := *u
			return &c, nil
		}
	}
	return nil, notFound("user")
}

func (s *fakeUserStore) Update(ctx context.Context, id models.AccountID, fields bson.M) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[id]
	if !ok {
		return notFound("user")
	}
	for key, value := range fields {
		str, _ := value.(string)
		switch key {
		case "name":
			u.FullName = str
		case "role":
			u.Role = models.UserRole(str)
		case "custom_role":
			u.CustomRole = str
		case "company_name":
			u.CompanyName = str
		case "company_size":
			u.CompanySize = str
		case "industry":
			u.Industry = str
		case "custom_industry":
			u.CustomIndustry = str
		case "website":
			u.Website = str
		case "phone_number":
			u.PhoneNumber = str
		case "password_hash":
			u.PasswordHash = str
		case "is_active":
			u.IsActive, _ = value.(bool)
		}
	}
	return nil
}

func (s *fakeUserStore) UpdatePassword(ctx context.Context, id models.AccountID, passwordHash string) error {
	return s.Update(ctx, id, bson.M{"password_hash": passwordHash})
}

func (s *fakeUserStore) Delete(ctx context.Context, id models.AccountID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.users[id]; !ok {
		return notFound("user")
	}
	delete(s.users, id)
	return nil
}

func (s *fakeUserStore) ListActiveByCompany(ctx context.Context, companyName string) ([]models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []models.User
	for _, u := range s.users {
		if u.CompanyName == companyName && u.IsActive {
			out = append(out, *u)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *fakeUserStore) ListActiveByIDs(ctx context.Context, ids []models.AccountID) ([]models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []models.User
	for _, id := range ids {
		if u, ok := s.users[id]; ok && u.IsActive {
			out = append(out, *u)
		}
	}
	return out, nil
}

type fakeGrantStore struct {
	mu     sync.Mutex
	grants map[models.AccountID]*models.DelegationGrant
}

func newFakeGrantStore(grants ...*models.DelegationGrant) *fakeGrantStore {
	s := &fakeGrantStore{grants: make(map[models.AccountID]*models.DelegationGrant)}
	for _, g := range grants {
		c := *g
		s.grants[g.UserID] = &c
	}
	return s
}

func (s *fakeGrantStore) Create(ctx context.Context, grant *models.DelegationGrant) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.grants[grant.UserID]; ok {
		return fmt.Errorf("delegation grant: %w", repositories.ErrDuplicateKey)
	}
	c := *grant
	s.grants[grant.UserID] = &c
	return nil
}

func (s *fakeGrantStore) GetByDelegate(ctx context.Context, userID models.AccountID) (*models.DelegationGrant, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	g, ok := s.grants[userID]
	if !ok {
		return nil, notFound("delegation grant")
	}
	c := *g
	return &c, nil
}

func (s *fakeGrantStore) ListByParent(ctx context.Context, parentID models.AccountID) ([]models.DelegationGrant, error) {
	return s.ListByParents(ctx, []models.AccountID{parentID})
}

func (s *fakeGrantStore) ListByParents(ctx context.Context, parentIDs []models.AccountID) ([]models.DelegationGrant, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []models.DelegationGrant
	for _, g := range s.grants {
		for _, pid := range parentIDs {
			if g.ParentUserID == pid {
				out = append(out, *g)
				break
			}
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].UserID < out[j].UserID })
	return out, nil
}

func (s *fakeGrantStore) Update(ctx context.Context, userID models.AccountID, canView, canEdit, canAdd bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	g, ok := s.grants[userID]
	if !ok {
		return notFound("delegation grant")
	}
	g.CanViewLeads, g.CanEditLeads, g.CanAddLeads = canView, canEdit, canAdd
	return nil
}

func (s *fakeGrantStore) DeleteByDelegate(ctx context.Context, userID models.AccountID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.grants[userID]; !ok {
		return notFound("delegation grant")
	}
	delete(s.grants, userID)
	return nil
}

type fakeLeadStore struct {
	mu    sync.Mutex
	leads map[string]*models.Lead
	seq   int
}

func newFakeLeadStore(leads ...*models.Lead) *fakeLeadStore {
	s := &fakeLeadStore{leads: make(map[string]*models.Lead)}
	for _, l := range leads {
		c := *l
		s.seq++
		if c.CreatedAt.IsZero() {
			c.CreatedAt = time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC).Add(time.Duration(s.seq) * time.Minute)
		}
		s.leads[l.ID] = &c
	}
	return s
}

func (s *fakeLeadStore) Create(ctx context.Context, lead *models.Lead) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.seq++
	c := *lead
	if c.CreatedAt.IsZero() {
		c.CreatedAt = time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC).Add(time.Duration(s.seq) * time.Minute)
	}
	s.leads[lead.ID] = &c
	return nil
}

func (s *fakeLeadStore) GetByID(ctx context.Context, id string) (*models.Lead, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	l, ok := s.leads[id]
	if !ok {
		return nil, notFound("lead")
	}
	c := *l
	return &c, nil
}

func (s *fakeLeadStore) Update(ctx context.Context, id string, fields bson.M) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	l, ok := s.leads[id]
	if !ok {
		return notFound("lead")
	}
	for key, value := range fields {
		str, _ := value.(string)
		switch key {
		case "name":
			l.Name = str
		case "phone_number":
			l.PhoneNumber = str
		case "email":
			l.Email = str
		case "city":
			l.City = str
		case "state":
			l.State = str
		case "country":
			l.Country = str
		case "company_name":
			l.CompanyName = str
		case "customer_category":
			l.CustomerCategory = str
		case "lead_source":
			l.LeadSource = str
		case "lead_status":
			l.LeadStatus = str
		case "additional_notes":
			l.AdditionalNotes = str
		case "sector":
			l.Sector = str
		case "custom_sector":
			l.CustomSector = str
		case "next_followup_date":
			if value == nil {
				l.NextFollowupDate = nil
			} else if t, ok := value.(time.Time); ok {
				l.NextFollowupDate = &t
			}
		case "last_contacted_date":
			if value == nil {
				l.LastContactedDate = nil
			} else if t, ok := value.(time.Time); ok {
				l.LastContactedDate = &t
			}
		}
	}
	return nil
}

func (s *fakeLeadStore) Delete(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.leads[id]; !ok {
		return notFound("lead")
	}
	delete(s.leads, id)
	return nil
}

func matchesWindow(d *time.Time, w *repositories.DateRange) bool {
	if w == nil {
		return true
	}
	if d == nil {
		return false
	}
	if w.Gte != nil && d.Before(*w.Gte) {
		return false
	}
	if w.Lte != nil && d.After(*w.Lte) {
		return false
	}
	if w.Lt != nil && !d.Before(*w.Lt) {
		return false
	}
	if w.Gt != nil && !d.After(*w.Gt) {
		return false
	}
	return true
}

func containsFold(haystack, needle string) bool {
	return strings.Contains(strings.ToLower(haystack), strings.ToLower(needle))
}

func (s *fakeLeadStore) matching(f repositories.LeadFilter) []models.Lead {
	var out []models.Lead
	for _, l := range s.leads {
		owned := false
		for _, id := range f.OwnerIDs {
			if l.UserID == id {
				owned = true
				break
			}
		}
		if !owned {
			continue
		}
		if len(f.Statuses) > 0 {
			found := false
			for _, status := range f.Statuses {
				if l.LeadStatus == status {
					found = true
					break
				}
			}
			if !found {
				continue
			}
		}
		if f.ExcludeStatus != "" && l.LeadStatus == f.ExcludeStatus {
			continue
		}
		if f.Category != "" && l.CustomerCategory != f.Category {
			continue
		}
		if f.Source != "" && l.LeadSource != f.Source {
			continue
		}
		if f.City != "" && !containsFold(l.City, f.City) {
			continue
		}
		if f.Sector != "" && !containsFold(l.Sector, f.Sector) {
			continue
		}
		if f.Search != "" {
			if !containsFold(l.Name, f.Search) &&
				!containsFold(l.Email, f.Search) &&
				!containsFold(l.PhoneNumber, f.Search) &&
				!containsFold(l.CompanyName, f.Search) {
				continue
			}
		}
		if !matchesWindow(l.NextFollowupDate, f.Followup) {
			continue
		}
		out = append(out, *l)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out
}

func (s *fakeLeadStore) List(ctx context.Context, f repositories.LeadFilter, skip, limit int64) ([]models.Lead, int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	all := s.matching(f)
	total := int64(len(all))
	if skip >= total {
		return nil, total, nil
	}
	end := skip + limit
	if end > total {
		end = total
	}
	return all[skip:end], total, nil
}

func (s *fakeLeadStore) DistinctCities(ctx context.Context, ownerIDs []models.AccountID) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	seen := make(map[string]bool)
	var out []string
	for _, l := range s.matching(repositories.LeadFilter{OwnerIDs: ownerIDs}) {
		if l.City != "" && !seen[l.City] {
			seen[l.City] = true
			out = append(out, l.City)
		}
	}
	sort.Strings(out)
	return out, nil
}

func (s *fakeLeadStore) ListDueForFollowup(ctx context.Context, from, to time.Time) ([]models.Lead, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []models.Lead
	for _, l := range s.leads {
		if l.NextFollowupDate == nil {
			continue
		}
		d := *l.NextFollowupDate
		if !d.Before(from) && d.Before(to) {
			out = append(out, *l)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *fakeLeadStore) CountByField(ctx context.Context, ownerIDs []models.AccountID, field string) (map[string]int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	counts := make(map[string]int64)
	for _, l := range s.matching(repositories.LeadFilter{OwnerIDs: ownerIDs}) {
		switch field {
		case "lead_status":
			counts[l.LeadStatus]++
		case "customer_category":
			counts[l.CustomerCategory]++
		case "lead_source":
			counts[l.LeadSource]++
		}
	}
	return counts, nil
}

type fakeNotificationStore struct {
	mu       sync.Mutex
	settings map[models.AccountID]*models.NotificationSettings
	subs     map[string]*models.PushSubscription
}

func newFakeNotificationStore() *fakeNotificationStore {
	return &fakeNotificationStore{
		settings: make(map[models.AccountID]*models.NotificationSettings),
		subs:     make(map[string]*models.PushSubscription),
	}
}

func (s *fakeNotificationStore) GetSettings(ctx context.Context, userID models.AccountID) (*models.NotificationSettings, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if set, ok := s.settings[userID]; ok {
		c := *set
		return &c, nil
	}
	defaults := models.DefaultNotificationSettings(userID)
	s.settings[userID] = defaults
	c := *defaults
	return &c, nil
}

func (s *fakeNotificationStore) setSettings(set *models.NotificationSettings) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c := *set
	s.settings[set.UserID] = &c
}

func (s *fakeNotificationStore) UpdateSettings(ctx context.Context, userID models.AccountID, fields bson.M) error {
	if _, err := s.GetSettings(ctx, userID); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	set := s.settings[userID]
	for key, value := range fields {
		b, _ := value.(bool)
		switch key {
		case "new_leads":
			set.NewLeads = b
		case "follow_ups":
			set.FollowUps = b
		case "hot_leads":
			set.HotLeads = b
		case "conversions":
			set.Conversions = b
		case "email_notifications":
			set.EmailNotifications = b
		case "browser_push":
			set.BrowserPush = b
		case "daily_summary":
			set.DailySummary = b
		}
	}
	return nil
}

func (s *fakeNotificationStore) UpsertSubscription(ctx context.Context, sub *models.PushSubscription) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	c := *sub
	s.subs[sub.Endpoint] = &c
	return nil
}

func (s *fakeNotificationStore) ListSubscriptions(ctx context.Context, userID models.AccountID) ([]models.PushSubscription, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []models.PushSubscription
	for _, sub := range s.subs {
		if sub.UserID == userID {
			out = append(out, *sub)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Endpoint < out[j].Endpoint })
	return out, nil
}

func (s *fakeNotificationStore) DeleteSubscription(ctx context.Context, endpoint string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.subs, endpoint)
	return nil
}

func (s *fakeNotificationStore) DeleteSubscriptionsForUser(ctx context.Context, userID models.AccountID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for endpoint, sub := range s.subs {
		if sub.UserID == userID {
			delete(s.subs, endpoint)
		}
	}
	return nil
}

type fakeOTPStore struct {
	mu    sync.Mutex
	codes map[models.OTPPurpose][]*models.OneTimeCode
	seq   int
}

func newFakeOTPStore() *fakeOTPStore {
	return &fakeOTPStore{codes: make(map[models.OTPPurpose][]*models.OneTimeCode)}
}

func (s *fakeOTPStore) Create(ctx context.Context, purpose models.OTPPurpose, code *models.OneTimeCode) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.seq++
	c := *code
	c.CreatedAt = time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC).Add(time.Duration(s.seq) * time.Second)
	s.codes[purpose] = append(s.codes[purpose], &c)
	return nil
}

func (s *fakeOTPStore) InvalidateUnused(ctx context.Context, purpose models.OTPPurpose, email string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, c := range s.codes[purpose] {
		if c.Email == email && !c.Used {
			c.Used = true
		}
	}
	return nil
}

func (s *fakeOTPStore) FindLatestUnused(ctx context.Context, purpose models.OTPPurpose, email, code string) (*models.OneTimeCode, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var latest *models.OneTimeCode
	for _, c := range s.codes[purpose] {
		if c.Email == email && c.Code == code && !c.Used {
			if latest == nil || c.CreatedAt.After(latest.CreatedAt) {
				latest = c
			}
		}
	}
	if latest == nil {
		return nil, notFound("one-time code")
	}
	c := *latest
	return &c, nil
}

func (s *fakeOTPStore) MarkUsed(ctx context.Context, purpose models.OTPPurpose, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, c := range s.codes[purpose] {
		if c.ID == id {
			c.Used = true
			return nil
		}
	}
	return notFound("one-time code")
}

func (s *fakeOTPStore) Delete(ctx context.Context, purpose models.OTPPurpose, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	codes := s.codes[purpose]
	for i, c := range codes {
		if c.ID == id {
			s.codes[purpose] = append(codes[:i], codes[i+1:]...)
			return nil
		}
	}
	return nil
}

func (s *fakeOTPStore) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var deleted int64
	for purpose, codes := range s.codes {
		var kept []*models.OneTimeCode
		for _, c := range codes {
			if now.After(c.ExpiresAt) {
				deleted++
				continue
			}
			kept = append(kept, c)
		}
		s.codes[purpose] = kept
	}
	return deleted, nil
}

// unusedCount reports how many redeemable codes an email holds.
func (s *fakeOTPStore) unusedCount(purpose models.OTPPurpose, email string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, c := range s.codes[purpose] {
		if c.Email == email && !c.Used {
			n++
		}
	}
	return n
}

type fakeTokenStore struct {
	mu     sync.Mutex
	tokens map[string]*models.AuthToken
}

func newFakeTokenStore() *fakeTokenStore {
	return &fakeTokenStore{tokens: make(map[string]*models.AuthToken)}
}

func (s *fakeTokenStore) Create(ctx context.Context, token *models.AuthToken) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	c := *token
	s.tokens[token.ID] = &c
	return nil
}

func (s *fakeTokenStore) GetByValue(ctx context.Context, value string, tokenType models.TokenType) (*models.AuthToken, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, t := range s.tokens {
		if t.Token == value && t.TokenType == tokenType {
			c := *t
			return &c, nil
		}
	}
	return nil, notFound("token")
}

func (s *fakeTokenStore) Delete(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.tokens, id)
	return nil
}

func (s *fakeTokenStore) DeleteByValue(ctx context.Context, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for id, t := range s.tokens {
		if t.Token == value {
			delete(s.tokens, id)
		}
	}
	return nil
}

func (s *fakeTokenStore) DeleteAllForUser(ctx context.Context, userID models.AccountID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for id, t := range s.tokens {
		if t.UserID == userID {
			delete(s.tokens, id)
		}
	}
	return nil
}

func (s *fakeTokenStore) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var deleted int64
	for id, t := range s.tokens {
		if now.After(t.ExpiresAt) {
			delete(s.tokens, id)
			deleted++
		}
	}
	return deleted, nil
}

func (s *fakeTokenStore) countForUser(userID models.AccountID) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, t := range s.tokens {
		if t.UserID == userID {
			n++
		}
	}
	return n
}

type fakeSectorStore struct {
	mu      sync.Mutex
	sectors []*models.CustomSector
}

func newFakeSectorStore() *fakeSectorStore {
	return &fakeSectorStore{}
}

func (s *fakeSectorStore) GetByName(ctx context.Context, name string) (*models.CustomSector, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, sec := range s.sectors {
		if strings.EqualFold(sec.Sector, name) {
			c := *sec
			return &c, nil
		}
	}
	return nil, notFound("sector")
}

func (s *fakeSectorStore) Create(ctx context.Context, sector *models.CustomSector) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	c := *sector
	s.sectors = append(s.sectors, &c)
	return nil
}

func (s *fakeSectorStore) List(ctx context.Context) ([]models.CustomSector, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]models.CustomSector, 0, len(s.sectors))
	for _, sec := range s.sectors {
		out = append(out, *sec)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Sector < out[j].Sector })
	return out, nil
}

type fakeSecurityStore struct {
	mu       sync.Mutex
	settings map[models.AccountID]*models.SecuritySettings
}

func newFakeSecurityStore() *fakeSecurityStore {
	return &fakeSecurityStore{settings: make(map[models.AccountID]*models.SecuritySettings)}
}

func (s *fakeSecurityStore) Get(ctx context.Context, userID models.AccountID) (*models.SecuritySettings, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if set, ok := s.settings[userID]; ok {
		c := *set
		return &c, nil
	}
	defaults := models.DefaultSecuritySettings(userID)
	s.settings[userID] = defaults
	c := *defaults
	return &c, nil
}

func (s *fakeSecurityStore) Update(ctx context.Context, userID models.AccountID, fields bson.M) error {
	if _, err := s.Get(ctx, userID); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	set := s.settings[userID]
	for key, value := range fields {
		switch key {
		case "two_factor_enabled":
			set.TwoFactorEnabled, _ = value.(bool)
		case "login_notifications":
			set.LoginNotifications, _ = value.(bool)
		case "session_timeout":
			set.SessionTimeout, _ = value.(string)
		}
	}
	return nil
}

func (s *fakeSecurityStore) SetTwoFactor(ctx context.Context, userID models.AccountID, enabled bool) error {
	return s.Update(ctx, userID, bson.M{"two_factor_enabled": enabled})
}

type sentEmail struct {
	To      string
	Subject string
	Text    string
}

type fakeMailer struct {
	mu      sync.Mutex
	sent    []sentEmail
	failFor map[string]error
}

func newFakeMailer() *fakeMailer {
	return &fakeMailer{failFor: make(map[string]error)}
}

func (m *fakeMailer) Send(to, subject, htmlBody, textBody string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err, ok := m.failFor[to]; ok {
		return err
	}
	m.sent = append(m.sent, sentEmail{To: to, Subject: subject, Text: textBody})
	return nil
}

func (m *fakeMailer) sentTo() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]string, 0, len(m.sent))
	for _, e := range m.sent {
		out = append(out, e.To)
	}
	return out
}

type fakePusher struct {
	mu   sync.Mutex
	sent []string
	fail map[string]error
}

func newFakePusher() *fakePusher {
	return &fakePusher{fail: make(map[string]error)}
}

func (p *fakePusher) Send(subscriptionJSON string, payloadJSON []byte) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if err, ok := p.fail[subscriptionJSON]; ok {
		return err
	}
	p.sent = append(p.sent, subscriptionJSON)
	return nil
}

// sleepRecorder captures pacing pauses instead of sleeping.
type sleepRecorder struct {
	mu     sync.Mutex
	pauses []time.Duration
}

func (r *sleepRecorder) sleep(d time.Duration) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.pauses = append(r.pauses, d)
}

func (r *sleepRecorder) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.pauses)
}

func fixedClock(t time.Time) Clock {
	return func() time.Time { return t }
}

func discardLogger() *logrus.Logger {
	log := logrus.New()
	log.SetOutput(ioDiscard{})
	return log
}

type ioDiscard struct{}

func (ioDiscard) Write(p []byte) (int, error) { return len(p), nil }
