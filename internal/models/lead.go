package models

import "time"

// Lead is a sales lead record. UserID always references a top-level
// (non-delegate) account: when a delegate creates a lead, ownership is
// assigned to the delegate's parent.
// Collection: leads
type Lead struct {
	ID                            string     `bson:"_id,omitempty" json:"id"`
	Name                          string     `bson:"name" json:"name"`
	PhoneNumber                   string     `bson:"phone_number" json:"phoneNumber"`
	Email                         string     `bson:"email,omitempty" json:"email,omitempty"`
	DateOfBirth                   *time.Time `bson:"date_of_birth,omitempty" json:"dateOfBirth,omitempty"`
	City                          string     `bson:"city,omitempty" json:"city,omitempty"`
	State                         string     `bson:"state,omitempty" json:"state,omitempty"`
	Country                       string     `bson:"country,omitempty" json:"country,omitempty"`
	Pincode                       string     `bson:"pincode,omitempty" json:"pincode,omitempty"`
	CompanyName                   string     `bson:"company_name,omitempty" json:"companyName,omitempty"`
	Designation                   string     `bson:"designation,omitempty" json:"designation,omitempty"`
	CustomerCategory              string     `bson:"customer_category,omitempty" json:"customerCategory,omitempty"`
	LastContactedDate             *time.Time `bson:"last_contacted_date,omitempty" json:"lastContactedDate,omitempty"`
	LastContactedBy               string     `bson:"last_contacted_by,omitempty" json:"lastContactedBy,omitempty"`
	NextFollowupDate              *time.Time `bson:"next_followup_date,omitempty" json:"nextFollowupDate,omitempty"`
	CustomerInterestedIn          string     `bson:"customer_interested_in,omitempty" json:"customerInterestedIn,omitempty"`
	PreferredCommunicationChannel string     `bson:"preferred_communication_channel,omitempty" json:"preferredCommunicationChannel,omitempty"`
	CustomCommunicationChannel    string     `bson:"custom_communication_channel,omitempty" json:"customCommunicationChannel,omitempty"`
	LeadSource                    string     `bson:"lead_source,omitempty" json:"leadSource,omitempty"`
	CustomLeadSource              string     `bson:"custom_lead_source,omitempty" json:"customLeadSource,omitempty"`
	CustomReferralSource          string     `bson:"custom_referral_source,omitempty" json:"customReferralSource,omitempty"`
	CustomGeneratedBy             string     `bson:"custom_generated_by,omitempty" json:"customGeneratedBy,omitempty"`
	LeadStatus                    string     `bson:"lead_status,omitempty" json:"leadStatus,omitempty"`
	LeadCreatedBy                 string     `bson:"lead_created_by,omitempty" json:"leadCreatedBy,omitempty"`
	AdditionalNotes               string     `bson:"additional_notes,omitempty" json:"additionalNotes,omitempty"`
	Sector                        string     `bson:"sector,omitempty" json:"sector,omitempty"`
	CustomSector                  string     `bson:"custom_sector,omitempty" json:"customSector,omitempty"`
	UserID                        AccountID  `bson:"user_id" json:"userId"`
	CreatedAt                     time.Time  `bson:"created_at" json:"createdAt"`
	UpdatedAt                     time.Time  `bson:"updated_at" json:"updatedAt"`
}

// Customer categories.
const (
	CategoryExisting  = "existing"
	CategoryPotential = "potential"
)

// Lead statuses.
const (
	StatusNew       = "new"
	StatusFollowup  = "followup"
	StatusQualified = "qualified"
	StatusHot       = "hot"
	StatusConverted = "converted"
	StatusLost      = "lost"
)

// Lead sources.
const (
	SourceWebsite     = "website"
	SourceReferral    = "referral"
	SourceLinkedIn    = "linkedin"
	SourceFacebook    = "facebook"
	SourceTwitter     = "twitter"
	SourceCampaign    = "campaign"
	SourceInstagram   = "instagram"
	SourceGeneratedBy = "generated_by"
	SourceOnField     = "on_field"
	SourceOther       = "other"
)

// IsValidLeadStatus checks a status value against the fixed enumeration.
func IsValidLeadStatus(s string) bool {
	switch s {
	case StatusNew, StatusFollowup, StatusQualified, StatusHot, StatusConverted, StatusLost:
		return true
	}
	return false
}

// IsValidCustomerCategory checks a category value against the fixed enumeration.
func IsValidCustomerCategory(c string) bool {
	return c == CategoryExisting || c == CategoryPotential
}

// IsValidLeadSource checks a source value against the fixed enumeration.
func IsValidLeadSource(s string) bool {
	switch s {
	case SourceWebsite, SourceReferral, SourceLinkedIn, SourceFacebook, SourceTwitter,
		SourceCampaign, SourceInstagram, SourceGeneratedBy, SourceOnField, SourceOther:
		return true
	}
	return false
}

// CustomSector stores a free-text sector value captured from a lead, so the
// UI can offer it as a choice later. De-duplicated case-insensitively.
// Collection: custom_sectors
type CustomSector struct {
	ID        string    `bson:"_id,omitempty" json:"id"`
	Sector    string    `bson:"sector" json:"sector"`
	CreatedAt time.Time `bson:"created_at" json:"createdAt"`
}
