package services

import (
	"bytes"
	"context"
	"encoding/csv"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"go.mongodb.org/mongo-driver/bson"

	"github.com/forefold/leadsflow/internal/models"
	"github.com/forefold/leadsflow/internal/repositories"
	"github.com/forefold/leadsflow/pkg/uuid"
)

const (
	defaultPageSize = 10
	maxPageSize     = 1000

	// exportLimit caps how many rows a single CSV export carries.
	exportLimit = 1000

	// dueSoonDays is the width of the "due soon" follow-up window.
	dueSoonDays = 7
)

// Follow-up date filter kinds accepted by List and ExportCSV.
const (
	FollowupOverdue = "overdue"
	FollowupDueSoon = "due_soon"
	FollowupFuture  = "future"
)

// LeadEventSink receives lead lifecycle events for notification fanout.
// Implementations must not block; the notifier queues per company.
type LeadEventSink interface {
	LeadCreated(lead *models.Lead, creator *models.User)
	LeadStatusChanged(lead *models.Lead, actor *models.User, newStatus string)
}

// ListParams narrows a lead listing. City and Sector match as
// case-insensitive substrings; Statuses must all be valid status values.
type ListParams struct {
	Page     int
	Limit    int
	Statuses []string
	Category string
	Source   string
	City     string
	Sector   string
	Search   string
	Followup string // one of the Followup* kinds, or empty
}

// Pagination describes one page of results.
type Pagination struct {
	Page            int   `json:"page"`
	Limit           int   `json:"limit"`
	Total           int64 `json:"total"`
	TotalPages      int64 `json:"totalPages"`
	HasNextPage     bool  `json:"hasNextPage"`
	HasPreviousPage bool  `json:"hasPreviousPage"`
}

// LeadInput carries the writable lead fields. Dates are YYYY-MM-DD strings.
type LeadInput struct {
	Name                          string `json:"name"`
	PhoneNumber                   string `json:"phoneNumber"`
	Email                         string `json:"email"`
	DateOfBirth                   string `json:"dateOfBirth"`
	City                          string `json:"city"`
	State                         string `json:"state"`
	Country                       string `json:"country"`
	Pincode                       string `json:"pincode"`
	CompanyName                   string `json:"companyName"`
	Designation                   string `json:"designation"`
	CustomerCategory              string `json:"customerCategory"`
	LastContactedDate             string `json:"lastContactedDate"`
	LastContactedBy               string `json:"lastContactedBy"`
	NextFollowupDate              string `json:"nextFollowupDate"`
	CustomerInterestedIn          string `json:"customerInterestedIn"`
	PreferredCommunicationChannel string `json:"preferredCommunicationChannel"`
	CustomCommunicationChannel    string `json:"customCommunicationChannel"`
	LeadSource                    string `json:"leadSource"`
	CustomLeadSource              string `json:"customLeadSource"`
	CustomReferralSource          string `json:"customReferralSource"`
	CustomGeneratedBy             string `json:"customGeneratedBy"`
	LeadStatus                    string `json:"leadStatus"`
	LeadCreatedBy                 string `json:"leadCreatedBy"`
	AdditionalNotes               string `json:"additionalNotes"`
	Sector                        string `json:"sector"`
	CustomSector                  string `json:"customSector"`
}

// LeadPatch carries a partial update; nil fields are left untouched.
type LeadPatch struct {
	Name                          *string `json:"name"`
	PhoneNumber                   *string `json:"phoneNumber"`
	Email                         *string `json:"email"`
	DateOfBirth                   *string `json:"dateOfBirth"`
	City                          *string `json:"city"`
	State                         *string `json:"state"`
	Country                       *string `json:"country"`
	Pincode                       *string `json:"pincode"`
	CompanyName                   *string `json:"companyName"`
	Designation                   *string `json:"designation"`
	CustomerCategory              *string `json:"customerCategory"`
	LastContactedDate             *string `json:"lastContactedDate"`
	LastContactedBy               *string `json:"lastContactedBy"`
	NextFollowupDate              *string `json:"nextFollowupDate"`
	CustomerInterestedIn          *string `json:"customerInterestedIn"`
	PreferredCommunicationChannel *string `json:"preferredCommunicationChannel"`
	CustomCommunicationChannel    *string `json:"customCommunicationChannel"`
	LeadSource                    *string `json:"leadSource"`
	CustomLeadSource              *string `json:"customLeadSource"`
	CustomReferralSource          *string `json:"customReferralSource"`
	CustomGeneratedBy             *string `json:"customGeneratedBy"`
	LeadStatus                    *string `json:"leadStatus"`
	LeadCreatedBy                 *string `json:"leadCreatedBy"`
	AdditionalNotes               *string `json:"additionalNotes"`
	Sector                        *string `json:"sector"`
	CustomSector                  *string `json:"customSector"`
}

// ImportRowError reports a single rejected row in a batch import.
type ImportRowError struct {
	Row     int    `json:"row"`
	Message string `json:"message"`
}

// ImportResult summarizes a batch import. Failed rows never abort the batch.
type ImportResult struct {
	Imported int              `json:"imported"`
	Failed   int              `json:"failed"`
	Errors   []ImportRowError `json:"errors,omitempty"`
}

// LeadService implements the lead CRUD, listing, import/export and sector
// operations, all gated by the caller's resolved scope.
type LeadService struct {
	leads   LeadStore
	sectors SectorStore
	scopes  *ScopeResolver
	events  LeadEventSink
	now     Clock
	log     *logrus.Logger
}

func NewLeadService(leads LeadStore, sectors SectorStore, scopes *ScopeResolver, events LeadEventSink, now Clock, log *logrus.Logger) *LeadService {
	if now == nil {
		now = time.Now
	}
	return &LeadService{
		leads:   leads,
		sectors: sectors,
		scopes:  scopes,
		events:  events,
		now:     now,
		log:     log,
	}
}

// FollowupBounds maps a follow-up filter kind to a date window anchored at
// today (midnight UTC). Overdue is strictly before today, due soon is today
// through today+7 inclusive, future is strictly after today+7.
func FollowupBounds(kind string, today time.Time) (*repositories.DateRange, error) {
	day := time.Date(today.Year(), today.Month(), today.Day(), 0, 0, 0, 0, time.UTC)
	switch kind {
	case "":
		return nil, nil
	case FollowupOverdue:
		return &repositories.DateRange{Lt: &day}, nil
	case FollowupDueSoon:
		end := day.AddDate(0, 0, dueSoonDays+1)
		return &repositories.DateRange{Gte: &day, Lt: &end}, nil
	case FollowupFuture:
		cut := day.AddDate(0, 0, dueSoonDays)
		// "future" starts the day after the due-soon window closes.
		start := cut.AddDate(0, 0, 1)
		return &repositories.DateRange{Gte: &start}, nil
	default:
		return nil, NewBadRequest("invalid followupDateFilter: " + kind)
	}
}

func (s *LeadService) buildFilter(scope *Scope, p ListParams) (repositories.LeadFilter, error) {
	f := repositories.LeadFilter{
		OwnerIDs: scope.OwnerIDs,
		Statuses: p.Statuses,
		Category: p.Category,
		Source:   p.Source,
		City:     strings.TrimSpace(p.City),
		Sector:   strings.TrimSpace(p.Sector),
		Search:   strings.TrimSpace(p.Search),
	}
	for _, status := range p.Statuses {
		if !models.IsValidLeadStatus(status) {
			return f, NewBadRequest("invalid lead status: " + status)
		}
	}
	if p.Category != "" && !models.IsValidCustomerCategory(p.Category) {
		return f, NewBadRequest("invalid customer category: " + p.Category)
	}
	window, err := FollowupBounds(p.Followup, s.now())
	if err != nil {
		return f, err
	}
	f.Followup = window
	if p.Followup == FollowupOverdue {
		// A converted lead has no follow-up left to be late on.
		f.ExcludeStatus = models.StatusConverted
	}
	return f, nil
}

// List returns one page of leads visible to the acting user.
func (s *LeadService) List(ctx context.Context, actingUserID models.AccountID, p ListParams) ([]models.Lead, *Pagination, error) {
	scope, err := s.scopes.Authorize(ctx, actingUserID, models.CapabilityViewLeads)
	if err != nil {
		return nil, nil, err
	}

	filter, err := s.buildFilter(scope, p)
	if err != nil {
		return nil, nil, err
	}

	page := p.Page
	if page < 1 {
		page = 1
	}
	limit := p.Limit
	if limit < 1 {
		limit = defaultPageSize
	}
	if limit > maxPageSize {
		limit = maxPageSize
	}
	skip := int64(page-1) * int64(limit)

	leads, total, err := s.leads.List(ctx, filter, skip, int64(limit))
	if err != nil {
		return nil, nil, WrapInternal(err, "failed to list leads")
	}
	if leads == nil {
		leads = []models.Lead{}
	}

	totalPages := total / int64(limit)
	if total%int64(limit) != 0 {
		totalPages++
	}
	return leads, &Pagination{
		Page:            page,
		Limit:           limit,
		Total:           total,
		TotalPages:      totalPages,
		HasNextPage:     int64(page) < totalPages,
		HasPreviousPage: page > 1,
	}, nil
}

// Get returns a single lead. Leads outside the caller's scope read as not
// found, so their existence is never revealed.
func (s *LeadService) Get(ctx context.Context, actingUserID models.AccountID, leadID string) (*models.Lead, error) {
	scope, err := s.scopes.Authorize(ctx, actingUserID, models.CapabilityViewLeads)
	if err != nil {
		return nil, err
	}
	return s.getInScope(ctx, scope, leadID)
}

func (s *LeadService) getInScope(ctx context.Context, scope *Scope, leadID string) (*models.Lead, error) {
	lead, err := s.leads.GetByID(ctx, leadID)
	if err != nil {
		if repositories.IsNotFound(err) {
			return nil, NewNotFound("lead not found")
		}
		return nil, WrapInternal(err, "failed to load lead")
	}
	for _, id := range scope.OwnerIDs {
		if lead.UserID == id {
			return lead, nil
		}
	}
	return nil, NewNotFound("lead not found")
}

func parseDate(value, field string) (*time.Time, error) {
	if value == "" {
		return nil, nil
	}
	for _, layout := range []string{"2006-01-02", time.RFC3339} {
		if t, err := time.Parse(layout, value); err == nil {
			t = t.UTC()
			return &t, nil
		}
	}
	return nil, NewBadRequest("invalid date for " + field + ": " + value)
}

func validateInput(in *LeadInput) error {
	if strings.TrimSpace(in.Name) == "" {
		return NewBadRequest("lead name is required")
	}
	if strings.TrimSpace(in.PhoneNumber) == "" {
		return NewBadRequest("phone number is required")
	}
	if in.LeadStatus != "" && !models.IsValidLeadStatus(in.LeadStatus) {
		return NewBadRequest("invalid lead status: " + in.LeadStatus)
	}
	if in.CustomerCategory != "" && !models.IsValidCustomerCategory(in.CustomerCategory) {
		return NewBadRequest("invalid customer category: " + in.CustomerCategory)
	}
	if in.LeadSource != "" && !models.IsValidLeadSource(in.LeadSource) {
		return NewBadRequest("invalid lead source: " + in.LeadSource)
	}
	return nil
}

func (s *LeadService) leadFromInput(in *LeadInput, ownerID models.AccountID) (*models.Lead, error) {
	if err := validateInput(in); err != nil {
		return nil, err
	}
	dob, err := parseDate(in.DateOfBirth, "dateOfBirth")
	if err != nil {
		return nil, err
	}
	lastContacted, err := parseDate(in.LastContactedDate, "lastContactedDate")
	if err != nil {
		return nil, err
	}
	nextFollowup, err := parseDate(in.NextFollowupDate, "nextFollowupDate")
	if err != nil {
		return nil, err
	}

	id, err := uuid.NewUUID()
	if err != nil {
		return nil, WrapInternal(err, "failed to generate lead id")
	}

	status := in.LeadStatus
	if status == "" {
		status = models.StatusNew
	}

	return &models.Lead{
		ID:                            id,
		Name:                          strings.TrimSpace(in.Name),
		PhoneNumber:                   strings.TrimSpace(in.PhoneNumber),
		Email:                         strings.TrimSpace(in.Email),
		DateOfBirth:                   dob,
		City:                          in.City,
		State:                         in.State,
		Country:                       in.Country,
		Pincode:                       in.Pincode,
		CompanyName:                   in.CompanyName,
		Designation:                   in.Designation,
		CustomerCategory:              in.CustomerCategory,
		LastContactedDate:             lastContacted,
		LastContactedBy:               in.LastContactedBy,
		NextFollowupDate:              nextFollowup,
		CustomerInterestedIn:          in.CustomerInterestedIn,
		PreferredCommunicationChannel: in.PreferredCommunicationChannel,
		CustomCommunicationChannel:    in.CustomCommunicationChannel,
		LeadSource:                    in.LeadSource,
		CustomLeadSource:              in.CustomLeadSource,
		CustomReferralSource:          in.CustomReferralSource,
		CustomGeneratedBy:             in.CustomGeneratedBy,
		LeadStatus:                    status,
		LeadCreatedBy:                 in.LeadCreatedBy,
		AdditionalNotes:               in.AdditionalNotes,
		Sector:                        in.Sector,
		CustomSector:                  in.CustomSector,
		UserID:                        ownerID,
	}, nil
}

// Create stores a new lead owned by the scope's effective owner and fans out
// a new-lead notification.
func (s *LeadService) Create(ctx context.Context, actingUserID models.AccountID, in *LeadInput) (*models.Lead, error) {
	scope, err := s.scopes.Authorize(ctx, actingUserID, models.CapabilityAddLeads)
	if err != nil {
		return nil, err
	}

	lead, err := s.leadFromInput(in, scope.EffectiveOwner.ID)
	if err != nil {
		return nil, err
	}
	if err := s.leads.Create(ctx, lead); err != nil {
		return nil, WrapInternal(err, "failed to create lead")
	}

	s.captureSector(ctx, lead.CustomSector)

	if s.events != nil {
		s.events.LeadCreated(lead, scope.EffectiveOwner)
	}
	return lead, nil
}

// captureSector records a free-text sector so it can be offered as a choice
// later. Best effort: a capture failure never fails the lead write.
func (s *LeadService) captureSector(ctx context.Context, name string) {
	name = strings.TrimSpace(name)
	if name == "" {
		return
	}
	if _, err := s.AddSector(ctx, name); err != nil && !IsConflict(err) {
		s.log.WithError(err).WithField("sector", name).Warn("failed to capture custom sector")
	}
}

// Update patches a lead in place. Only non-nil patch fields are written.
func (s *LeadService) Update(ctx context.Context, actingUserID models.AccountID, leadID string, patch *LeadPatch) (*models.Lead, error) {
	scope, err := s.scopes.Authorize(ctx, actingUserID, models.CapabilityEditLeads)
	if err != nil {
		return nil, err
	}
	lead, err := s.getInScope(ctx, scope, leadID)
	if err != nil {
		return nil, err
	}

	fields := bson.M{}
	setStr := func(key string, v *string) {
		if v != nil {
			fields[key] = strings.TrimSpace(*v)
		}
	}
	setDate := func(key string, v *string, field string) error {
		if v == nil {
			return nil
		}
		t, err := parseDate(*v, field)
		if err != nil {
			return err
		}
		if t == nil {
			fields[key] = nil
		} else {
			fields[key] = *t
		}
		return nil
	}

	if patch.Name != nil && strings.TrimSpace(*patch.Name) == "" {
		return nil, NewBadRequest("lead name cannot be blank")
	}
	if patch.PhoneNumber != nil && strings.TrimSpace(*patch.PhoneNumber) == "" {
		return nil, NewBadRequest("phone number cannot be blank")
	}
	if patch.LeadStatus != nil && !models.IsValidLeadStatus(*patch.LeadStatus) {
		return nil, NewBadRequest("invalid lead status: " + *patch.LeadStatus)
	}
	if patch.CustomerCategory != nil && *patch.CustomerCategory != "" && !models.IsValidCustomerCategory(*patch.CustomerCategory) {
		return nil, NewBadRequest("invalid customer category: " + *patch.CustomerCategory)
	}
	if patch.LeadSource != nil && *patch.LeadSource != "" && !models.IsValidLeadSource(*patch.LeadSource) {
		return nil, NewBadRequest("invalid lead source: " + *patch.LeadSource)
	}

	setStr("name", patch.Name)
	setStr("phone_number", patch.PhoneNumber)
	setStr("email", patch.Email)
	setStr("city", patch.City)
	setStr("state", patch.State)
	setStr("country", patch.Country)
	setStr("pincode", patch.Pincode)
	setStr("company_name", patch.CompanyName)
	setStr("designation", patch.Designation)
	setStr("customer_category", patch.CustomerCategory)
	setStr("last_contacted_by", patch.LastContactedBy)
	setStr("customer_interested_in", patch.CustomerInterestedIn)
	setStr("preferred_communication_channel", patch.PreferredCommunicationChannel)
	setStr("custom_communication_channel", patch.CustomCommunicationChannel)
	setStr("lead_source", patch.LeadSource)
	setStr("custom_lead_source", patch.CustomLeadSource)
	setStr("custom_referral_source", patch.CustomReferralSource)
	setStr("custom_generated_by", patch.CustomGeneratedBy)
	setStr("lead_status", patch.LeadStatus)
	setStr("lead_created_by", patch.LeadCreatedBy)
	setStr("additional_notes", patch.AdditionalNotes)
	setStr("sector", patch.Sector)
	setStr("custom_sector", patch.CustomSector)
	if err := setDate("date_of_birth", patch.DateOfBirth, "dateOfBirth"); err != nil {
		return nil, err
	}
	if err := setDate("last_contacted_date", patch.LastContactedDate, "lastContactedDate"); err != nil {
		return nil, err
	}
	if err := setDate("next_followup_date", patch.NextFollowupDate, "nextFollowupDate"); err != nil {
		return nil, err
	}

	if len(fields) == 0 {
		return lead, nil
	}
	if err := s.leads.Update(ctx, leadID, fields); err != nil {
		if repositories.IsNotFound(err) {
			return nil, NewNotFound("lead not found")
		}
		return nil, WrapInternal(err, "failed to update lead")
	}

	if patch.CustomSector != nil {
		s.captureSector(ctx, *patch.CustomSector)
	}

	updated, err := s.getInScope(ctx, scope, leadID)
	if err != nil {
		return nil, err
	}

	if s.events != nil && patch.LeadStatus != nil && *patch.LeadStatus != lead.LeadStatus {
		s.events.LeadStatusChanged(updated, scope.EffectiveOwner, *patch.LeadStatus)
	}
	return updated, nil
}

// Remove deletes a lead. Deletion rides on the edit capability.
func (s *LeadService) Remove(ctx context.Context, actingUserID models.AccountID, leadID string) error {
	scope, err := s.scopes.Authorize(ctx, actingUserID, models.CapabilityEditLeads)
	if err != nil {
		return err
	}
	if _, err := s.getInScope(ctx, scope, leadID); err != nil {
		return err
	}
	if err := s.leads.Delete(ctx, leadID); err != nil {
		if repositories.IsNotFound(err) {
			return NewNotFound("lead not found")
		}
		return WrapInternal(err, "failed to delete lead")
	}
	return nil
}

// ImportBatch creates leads from a parsed batch. Each row is validated and
// written independently, so one bad row never rejects the rest.
func (s *LeadService) ImportBatch(ctx context.Context, actingUserID models.AccountID, rows []LeadInput) (*ImportResult, error) {
	scope, err := s.scopes.Authorize(ctx, actingUserID, models.CapabilityAddLeads)
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, NewBadRequest("no rows to import")
	}

	result := &ImportResult{}
	for i := range rows {
		lead, err := s.leadFromInput(&rows[i], scope.EffectiveOwner.ID)
		if err == nil {
			err = s.leads.Create(ctx, lead)
		}
		if err != nil {
			result.Failed++
			result.Errors = append(result.Errors, ImportRowError{Row: i + 1, Message: err.Error()})
			continue
		}
		result.Imported++
		s.captureSector(ctx, lead.CustomSector)
		if s.events != nil {
			s.events.LeadCreated(lead, scope.EffectiveOwner)
		}
	}
	return result, nil
}

var csvHeader = []string{
	"ID", "Name", "Phone Number", "Email", "Date of Birth",
	"City", "State", "Country", "Pincode",
	"Company Name", "Designation", "Customer Category",
	"Last Contacted Date", "Last Contacted By", "Next Followup Date",
	"Customer Interested In", "Preferred Communication Channel", "Custom Communication Channel",
	"Lead Source", "Custom Lead Source", "Custom Referral Source", "Custom Generated By",
	"Lead Status", "Lead Created By", "Additional Notes",
	"Sector", "Custom Sector", "Created At", "Updated At",
}

func csvDate(t *time.Time) string {
	if t == nil {
		return ""
	}
	return t.Format("2006-01-02")
}

// ExportCSV renders the leads matching the filter as CSV, dates as
// YYYY-MM-DD. It runs the same query as List with the page size forced to
// the export cap.
func (s *LeadService) ExportCSV(ctx context.Context, actingUserID models.AccountID, p ListParams) ([]byte, error) {
	p.Page = 1
	p.Limit = exportLimit
	leads, _, err := s.List(ctx, actingUserID, p)
	if err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	if err := w.Write(csvHeader); err != nil {
		return nil, WrapInternal(err, "failed to write CSV")
	}
	for i := range leads {
		l := &leads[i]
		record := []string{
			l.ID, l.Name, l.PhoneNumber, l.Email, csvDate(l.DateOfBirth),
			l.City, l.State, l.Country, l.Pincode,
			l.CompanyName, l.Designation, l.CustomerCategory,
			csvDate(l.LastContactedDate), l.LastContactedBy, csvDate(l.NextFollowupDate),
			l.CustomerInterestedIn, l.PreferredCommunicationChannel, l.CustomCommunicationChannel,
			l.LeadSource, l.CustomLeadSource, l.CustomReferralSource, l.CustomGeneratedBy,
			l.LeadStatus, l.LeadCreatedBy, l.AdditionalNotes,
			l.Sector, l.CustomSector,
			csvDate(&l.CreatedAt), csvDate(&l.UpdatedAt),
		}
		if err := w.Write(record); err != nil {
			return nil, WrapInternal(err, "failed to write CSV")
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return nil, WrapInternal(err, "failed to write CSV")
	}
	return buf.Bytes(), nil
}

// DistinctCities returns the unique cities across the caller's visible leads.
func (s *LeadService) DistinctCities(ctx context.Context, actingUserID models.AccountID) ([]string, error) {
	scope, err := s.scopes.Authorize(ctx, actingUserID, models.CapabilityViewLeads)
	if err != nil {
		return nil, err
	}
	cities, err := s.leads.DistinctCities(ctx, scope.OwnerIDs)
	if err != nil {
		return nil, WrapInternal(err, "failed to list cities")
	}
	if cities == nil {
		cities = []string{}
	}
	return cities, nil
}

// Sectors returns all captured sectors.
func (s *LeadService) Sectors(ctx context.Context) ([]models.CustomSector, error) {
	sectors, err := s.sectors.List(ctx)
	if err != nil {
		return nil, WrapInternal(err, "failed to list sectors")
	}
	if sectors == nil {
		sectors = []models.CustomSector{}
	}
	return sectors, nil
}

// AddSector stores a new sector value, deduplicated case-insensitively.
func (s *LeadService) AddSector(ctx context.Context, name string) (*models.CustomSector, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, NewBadRequest("sector name is required")
	}

	existing, err := s.sectors.GetByName(ctx, name)
	if err == nil {
		return existing, NewConflict("sector already exists: " + existing.Sector)
	}
	if !repositories.IsNotFound(err) {
		return nil, WrapInternal(err, "failed to look up sector")
	}

	id, err := uuid.NewUUID()
	if err != nil {
		return nil, WrapInternal(err, "failed to generate sector id")
	}
	sector := &models.CustomSector{ID: id, Sector: name}
	if err := s.sectors.Create(ctx, sector); err != nil {
		if repositories.IsDuplicateKey(err) {
			return nil, NewConflict("sector already exists: " + name)
		}
		return nil, WrapInternal(err, "failed to create sector")
	}
	return sector, nil
}

// leadSummary renders a short description used in notification copy.
func leadSummary(lead *models.Lead) string {
	parts := []string{lead.Name}
	if lead.CompanyName != "" {
		parts = append(parts, lead.CompanyName)
	}
	if lead.City != "" {
		parts = append(parts, lead.City)
	}
	return strings.Join(parts, " / ")
}
