// Package attend is the dinner/attendance data layer: upcoming dinners, RSVP
// and the member's attendance history, read through the authenticated request
// path and the entitlement cache.
package attend

import (
	"context"
	"errors"
	"log/slog"

	"github.com/tablemate/tablemate/internal/client/api"
	"github.com/tablemate/tablemate/internal/client/entitle"
)

// ErrNotSignedIn is returned when no valid access token can be produced.
var ErrNotSignedIn = errors.New("attend: not signed in")

const (
	upcomingKey   = "dinners:upcoming"
	attendanceKey = "attendance:me"
)

// API is the slice of the service client the attendance layer uses.
type API interface {
	UpcomingDinners(ctx context.Context, accessToken string) ([]api.Dinner, error)
	RSVP(ctx context.Context, accessToken, dinnerID string, req api.RSVPRequest) error
	MyAttendance(ctx context.Context, accessToken string) ([]api.AttendanceRecord, error)
}

// TokenSource produces valid access tokens; "" means no session.
type TokenSource interface {
	ValidAccessToken(ctx context.Context) (string, error)
}

// Service reads and mutates attendance data, caching reads in the
// entitlement cache. It never clears the cache wholesale; that belongs to the
// session coordinator.
type Service struct {
	api    API
	tokens TokenSource
	cache  *entitle.Cache
	logger *slog.Logger
}

func NewService(apiClient API, tokens TokenSource, cache *entitle.Cache, logger *slog.Logger) *Service {
	return &Service{api: apiClient, tokens: tokens, cache: cache, logger: logger}
}

func (s *Service) accessToken(ctx context.Context) (string, error) {
	token, err := s.tokens.ValidAccessToken(ctx)
	if err != nil {
		return "", err
	}
	if token == "" {
		return "", ErrNotSignedIn
	}
	return token, nil
}

// Upcoming lists dinners open for RSVP, served from cache when fresh.
func (s *Service) Upcoming(ctx context.Context) ([]api.Dinner, error) {
	if v, ok := s.cache.Get(upcomingKey); ok {
		if dinners, ok := v.([]api.Dinner); ok {
			return dinners, nil
		}
	}

	token, err := s.accessToken(ctx)
	if err != nil {
		return nil, err
	}

	dinners, err := s.api.UpcomingDinners(ctx, token)
	if err != nil {
		return nil, err
	}

	s.cache.Set(upcomingKey, dinners)
	return dinners, nil
}

// RSVP records attendance for a dinner and invalidates the cached reads that
// now disagree with the server.
func (s *Service) RSVP(ctx context.Context, dinnerID string, attending bool, guests int) error {
	token, err := s.accessToken(ctx)
	if err != nil {
		return err
	}

	err = s.api.RSVP(ctx, token, dinnerID, api.RSVPRequest{Attending: attending, Guests: guests})
	if err != nil {
		return err
	}

	s.cache.Delete(upcomingKey)
	s.cache.Delete(attendanceKey)
	return nil
}

// History fetches the member's RSVP history, served from cache when fresh.
func (s *Service) History(ctx context.Context) ([]api.AttendanceRecord, error) {
	if v, ok := s.cache.Get(attendanceKey); ok {
		if records, ok := v.([]api.AttendanceRecord); ok {
			return records, nil
		}
	}

	token, err := s.accessToken(ctx)
	if err != nil {
		return nil, err
	}

	records, err := s.api.MyAttendance(ctx, token)
	if err != nil {
		return nil, err
	}

	s.cache.Set(attendanceKey, records)
	return records, nil
}
