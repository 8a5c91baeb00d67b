// Package model holds the member records exchanged with the member API.
package model

import "time"

// Member is a single organization member as returned by the API.
type Member struct {
	ID                int64      `json:"id"`
	CustomID          string     `json:"custom_id"`
	Name              string     `json:"name"`
	Contract          string     `json:"contract"`
	Place             string     `json:"place"`
	Email             string     `json:"email"`
	CreatedAt         time.Time  `json:"created_at"`
	PriorityCreatedAt *time.Time `json:"priority_created_at,omitempty"`
}

// DisplayCreatedAt returns the timestamp shown in the "created at" column.
// PriorityCreatedAt wins when it is set.
func (m Member) DisplayCreatedAt() time.Time {
	if m.PriorityCreatedAt != nil && !m.PriorityCreatedAt.IsZero() {
		return *m.PriorityCreatedAt
	}
	return m.CreatedAt
}

// MemberInput carries the fields submitted by the create/edit form.
// Password is only sent on create.
type MemberInput struct {
	CustomID string `json:"custom_id"`
	Name     string `json:"name"`
	Email    string `json:"email"`
	Contract string `json:"contract"`
	Place    string `json:"place"`
	Password string `json:"password,omitempty"`
}

// InputFrom pre-fills a MemberInput from an existing member.
func InputFrom(m Member) MemberInput {
	return MemberInput{
		CustomID: m.CustomID,
		Name:     m.Name,
		Email:    m.Email,
		Contract: m.Contract,
		Place:    m.Place,
	}
}

// MemberList is the payload of a member list fetch.
// LeftCount is the remaining import quota of the organization's plan.
type MemberList struct {
	Members   []Member `json:"members"`
	LeftCount int      `json:"left_count"`
}

// Organization identifies the account whose members are managed.
type Organization struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

// ImportResult is returned by a successful CSV import.
type ImportResult struct {
	Imported int `json:"imported"`
}

// FieldErrors maps a form field name to its validation error codes.
type FieldErrors map[string][]string
