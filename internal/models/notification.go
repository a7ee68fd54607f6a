package models

import "time"

// NotificationSettings holds a single account's notification toggles. A
// notification goes out on a channel only when both the channel master flag
// and the event-category flag are true. Created lazily with defaults on first
// access: all categories on, email on, push off.
// Collection: notification_settings
type NotificationSettings struct {
	ID                 string    `bson:"_id,omitempty" json:"id"`
	UserID             AccountID `bson:"user_id" json:"userId"`
	NewLeads           bool      `bson:"new_leads" json:"newLeads"`
	FollowUps          bool      `bson:"follow_ups" json:"followUps"`
	HotLeads           bool      `bson:"hot_leads" json:"hotLeads"`
	Conversions        bool      `bson:"conversions" json:"conversions"`
	EmailNotifications bool      `bson:"email_notifications" json:"emailNotifications"`
	BrowserPush        bool      `bson:"browser_push" json:"browserPush"`
	DailySummary       bool      `bson:"daily_summary" json:"dailySummary"`
	CreatedAt          time.Time `bson:"created_at" json:"createdAt"`
	UpdatedAt          time.Time `bson:"updated_at" json:"updatedAt"`
}

// DefaultNotificationSettings returns the lazily-created defaults for an account.
func DefaultNotificationSettings(userID AccountID) *NotificationSettings {
	return &NotificationSettings{
		UserID:             userID,
		NewLeads:           true,
		FollowUps:          true,
		HotLeads:           true,
		Conversions:        true,
		EmailNotifications: true,
		BrowserPush:        false,
		DailySummary:       false,
	}
}

// PushSubscription is one registered browser/device web-push endpoint. An
// account may hold several; the endpoint URL is the unique key.
// Collection: push_subscriptions
type PushSubscription struct {
	Endpoint   string    `bson:"_id" json:"endpoint"`
	UserID     AccountID `bson:"user_id" json:"userId"`
	// Raw subscription JSON as handed over by the browser: endpoint plus
	// p256dh/auth keys.
	Subscription string    `bson:"subscription" json:"subscription"`
	DeviceInfo   string    `bson:"device_info,omitempty" json:"deviceInfo,omitempty"`
	CreatedAt    time.Time `bson:"created_at" json:"createdAt"`
	UpdatedAt    time.Time `bson:"updated_at" json:"updatedAt"`
}

// SecuritySettings holds per-account security configuration.
// Collection: security_settings
type SecuritySettings struct {
	ID                 string     `bson:"_id,omitempty" json:"id"`
	UserID             AccountID  `bson:"user_id" json:"userId"`
	TwoFactorEnabled   bool       `bson:"two_factor_enabled" json:"twoFactorEnabled"`
	LoginNotifications bool       `bson:"login_notifications" json:"loginNotifications"`
	SessionTimeout     string     `bson:"session_timeout" json:"sessionTimeout"`
	TwoFactorMethod    string     `bson:"two_factor_method" json:"twoFactorMethod"`
	LastTwoFactorSetup *time.Time `bson:"last_two_factor_setup,omitempty" json:"lastTwoFactorSetup,omitempty"`
	CreatedAt          time.Time  `bson:"created_at" json:"createdAt"`
	UpdatedAt          time.Time  `bson:"updated_at" json:"updatedAt"`
}

// DefaultSecuritySettings returns the lazily-created defaults for an account.
func DefaultSecuritySettings(userID AccountID) *SecuritySettings {
	return &SecuritySettings{
		UserID:             userID,
		TwoFactorEnabled:   false,
		LoginNotifications: true,
		SessionTimeout:     "30",
		TwoFactorMethod:    "email",
	}
}
