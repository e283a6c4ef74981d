package domain

import "encoding/json"

// ComplaintStatus is the lifecycle state of a complaint.
type ComplaintStatus string

// StatusReceived is the only state a complaint is created in.
const StatusReceived ComplaintStatus = "recebida"

// Contact holds the optional ways to reach the person who filed a complaint.
type Contact struct {
	Email *string `json:"email"`
	Phone *string `json:"phone"`
}

// Complaint is an immutable citizen report ("denúncia").
type Complaint struct {
	ID              string          `json:"id"`
	Protocol        string          `json:"protocol"`
	Subject         *string         `json:"subject"`
	Description     string          `json:"description"`
	Contact         Contact         `json:"contact"`
	Area            *string         `json:"area"`
	Status          ComplaintStatus `json:"status"`
	PartialClientIP string          `json:"ip"`
	CreatedAt       string          `json:"createdAt"`
	UpdatedAt       string          `json:"updatedAt"`
	CreatedAtMillis int64           `json:"-"`
}

// Fields flattens the complaint into hash fields. Optional values are
// encoded as JSON so an absent value round-trips as null.
// subject, area and contact hold JSON and must be decoded by readers; every
// other field is stored as plain text.
func (c Complaint) Fields() map[string]string {
	contact, _ := json.Marshal(c.Contact)
	return map[string]string{
		"id":          c.ID,
		"proto":       c.Protocol,
		"subject":     optional(c.Subject),
		"description": c.Description,
		"contact":     string(contact),
		"area":        optional(c.Area),
		"status":      string(c.Status),
		"ip":          c.PartialClientIP,
		"createdAt":   c.CreatedAt,
		"updatedAt":   c.UpdatedAt,
	}
}

func optional(s *string) string {
	if s == nil {
		return "null"
	}
	b, _ := json.Marshal(*s)
	return string(b)
}
