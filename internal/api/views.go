package api

import (
	"github.com/ignite/cdp-console/internal/profile"
	"github.com/ignite/cdp-console/internal/segment"
)

// ProfileView is the display-ready rendering of a canonical profile.
// Every optional field is a string here; unsynced fields carry the
// NOT_SYNCED marker.
type ProfileView struct {
	Email           string   `json:"email"`
	ClientIDRaw     string   `json:"client_id"`
	ClientIDs       []string `json:"client_ids"`
	LastClientID    string   `json:"last_client_id"`
	EngagementTime  string   `json:"engagement_time"`
	EngagedSessions string   `json:"engaged_sessions"`
	Leads           string   `json:"leads"`
	EmailValidity   string   `json:"email_validity"`
}

func profileView(p profile.Profile) ProfileView {
	ids := p.ClientIDs
	if ids == nil {
		ids = []string{}
	}
	return ProfileView{
		Email:           p.Email.Display(),
		ClientIDRaw:     p.ClientIDRaw.Display(),
		ClientIDs:       ids,
		LastClientID:    p.LastClientID.Display(),
		EngagementTime:  p.EngagementTime.Display(),
		EngagedSessions: p.EngagedSessions.Display(),
		Leads:           p.Leads.Display(),
		EmailValidity:   p.Validity.Display(),
	}
}

// RowView is the tabular rendering of one segment row.
type RowView struct {
	Email           string `json:"email"`
	EmailValidity   string `json:"email_validity"`
	EngagedSessions string `json:"engaged_sessions"`
	Leads           string `json:"leads"`
	EngagementTime  string `json:"engagement_time"`
}

func rowViews(rows []segment.Row) []RowView {
	views := make([]RowView, 0, len(rows))
	for _, row := range rows {
		views = append(views, RowView{
			Email:           row.Email,
			EmailValidity:   row.Validity.Display(),
			EngagedSessions: row.EngagedSessions.Display(),
			Leads:           row.Leads.Display(),
			EngagementTime:  row.EngagementTime.Display(),
		})
	}
	return views
}
