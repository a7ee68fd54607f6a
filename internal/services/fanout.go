package services

import "github.com/forefold/leadsflow/internal/models"

// leadEventFanout broadcasts lead events to several sinks, typically the
// in-process notifier and the audit publisher. Nil sinks are skipped.
type leadEventFanout struct {
	sinks []LeadEventSink
}

// NewLeadEventFanout combines sinks into one LeadEventSink.
func NewLeadEventFanout(sinks ...LeadEventSink) LeadEventSink {
	out := &leadEventFanout{}
	for _, s := range sinks {
		if s != nil {
			out.sinks = append(out.sinks, s)
		}
	}
	return out
}

func (f *leadEventFanout) LeadCreated(lead *models.Lead, creator *models.User) {
	for _, s := range f.sinks {
		s.LeadCreated(lead, creator)
	}
}

func (f *leadEventFanout) LeadStatusChanged(lead *models.Lead, actor *models.User, newStatus string) {
	for _, s := range f.sinks {
		s.LeadStatusChanged(lead, actor, newStatus)
	}
}
