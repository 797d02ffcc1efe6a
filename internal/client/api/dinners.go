package api

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
)

// Dinner is an upcoming dinner a member can attend.
type Dinner struct {
	ID       string `json:"id"`
	Title    string `json:"title"`
	Venue    string `json:"venue"`
	StartsAt string `json:"starts_at"` // RFC3339
	Capacity int    `json:"capacity"`
	Going    int    `json:"going"`
}

// AttendanceRecord is one member's RSVP state for a dinner.
type AttendanceRecord struct {
	DinnerID  string `json:"dinner_id"`
	Attending bool   `json:"attending"`
	Guests    int    `json:"guests"`
	UpdatedAt string `json:"updated_at"` // RFC3339
}

// RSVPRequest is the body for marking attendance on a dinner.
type RSVPRequest struct {
	Attending bool `json:"attending"`
	Guests    int  `json:"guests,omitempty"`
}

// UpcomingDinners lists dinners the member can still RSVP to.
func (c *Client) UpcomingDinners(ctx context.Context, accessToken string) ([]Dinner, error) {
	var resp struct {
		Dinners []Dinner `json:"dinners"`
	}
	if err := c.doJSON(ctx, http.MethodGet, "/dinners/upcoming", nil, accessToken, &resp); err != nil {
		return nil, err
	}
	return resp.Dinners, nil
}

// RSVP records attendance for a dinner.
func (c *Client) RSVP(ctx context.Context, accessToken, dinnerID string, req RSVPRequest) error {
	path := fmt.Sprintf("/dinners/%s/rsvp", url.PathEscape(dinnerID))
	return c.doJSON(ctx, http.MethodPost, path, req, accessToken, nil)
}

// MyAttendance fetches the member's RSVP history.
func (c *Client) MyAttendance(ctx context.Context, accessToken string) ([]AttendanceRecord, error) {
	var resp struct {
		Attendance []AttendanceRecord `json:"attendance"`
	}
	if err := c.doJSON(ctx, http.MethodGet, "/attendance/me", nil, accessToken, &resp); err != nil {
		return nil, err
	}
	return resp.Attendance, nil
}
