package attend

import (
	"context"
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/tablemate/tablemate/internal/client/api"
	"github.com/tablemate/tablemate/internal/client/entitle"
)

type fakeAPI struct {
	dinners     []api.Dinner
	dinnersErr  error
	records     []api.AttendanceRecord
	rsvpErr     error
	upcomingCnt int
	historyCnt  int
	lastRSVP    api.RSVPRequest
	lastDinner  string
	lastToken   string
}

func (f *fakeAPI) UpcomingDinners(_ context.Context, token string) ([]api.Dinner, error) {
	f.upcomingCnt++
	f.lastToken = token
	return f.dinners, f.dinnersErr
}

func (f *fakeAPI) RSVP(_ context.Context, token, dinnerID string, req api.RSVPRequest) error {
	f.lastToken = token
	f.lastDinner = dinnerID
	f.lastRSVP = req
	return f.rsvpErr
}

func (f *fakeAPI) MyAttendance(_ context.Context, token string) ([]api.AttendanceRecord, error) {
	f.historyCnt++
	f.lastToken = token
	return f.records, nil
}

type fakeTokens struct {
	token string
	err   error
}

func (f *fakeTokens) ValidAccessToken(context.Context) (string, error) { return f.token, f.err }

func newService(fapi *fakeAPI, tokens *fakeTokens) (*Service, *entitle.Cache) {
	cache := entitle.New(time.Minute)
	return NewService(fapi, tokens, cache, slog.Default()), cache
}

func TestUpcomingCachesResult(t *testing.T) {
	ctx := context.Background()
	fapi := &fakeAPI{dinners: []api.Dinner{{ID: "d1", Title: "Thursday roast"}}}
	s, _ := newService(fapi, &fakeTokens{token: "tok"})

	first, err := s.Upcoming(ctx)
	require.NoError(t, err)
	require.Len(t, first, 1)

	second, err := s.Upcoming(ctx)
	require.NoError(t, err)
	require.Equal(t, first, second)

	require.Equal(t, 1, fapi.upcomingCnt, "second read must come from the cache")
	require.Equal(t, "tok", fapi.lastToken)
}

func TestUpcomingWithoutSession(t *testing.T) {
	ctx := context.Background()
	s, _ := newService(&fakeAPI{}, &fakeTokens{token: ""})

	_, err := s.Upcoming(ctx)
	require.ErrorIs(t, err, ErrNotSignedIn)
}

func TestRSVPInvalidatesCachedReads(t *testing.T) {
	ctx := context.Background()
	fapi := &fakeAPI{dinners: []api.Dinner{{ID: "d1"}}}
	s, cache := newService(fapi, &fakeTokens{token: "tok"})

	_, err := s.Upcoming(ctx)
	require.NoError(t, err)
	_, err = s.History(ctx)
	require.NoError(t, err)

	require.NoError(t, s.RSVP(ctx, "d1", true, 2))
	require.Equal(t, "d1", fapi.lastDinner)
	require.Equal(t, api.RSVPRequest{Attending: true, Guests: 2}, fapi.lastRSVP)

	_, ok := cache.Get("dinners:upcoming")
	require.False(t, ok)
	_, ok = cache.Get("attendance:me")
	require.False(t, ok)
}

func TestRSVPFailureKeepsCache(t *testing.T) {
	ctx := context.Background()
	fapi := &fakeAPI{dinners: []api.Dinner{{ID: "d1"}}, rsvpErr: errors.New("dinner is full")}
	s, cache := newService(fapi, &fakeTokens{token: "tok"})

	_, err := s.Upcoming(ctx)
	require.NoError(t, err)

	require.Error(t, s.RSVP(ctx, "d1", true, 0))

	_, ok := cache.Get("dinners:upcoming")
	require.True(t, ok)
}

func TestHistory(t *testing.T) {
	ctx := context.Background()
	fapi := &fakeAPI{records: []api.AttendanceRecord{{DinnerID: "d1", Attending: true}}}
	s, _ := newService(fapi, &fakeTokens{token: "tok"})

	records, err := s.History(ctx)
	require.NoError(t, err)
	require.Len(t, records, 1)

	_, err = s.History(ctx)
	require.NoError(t, err)
	require.Equal(t, 1, fapi.historyCnt)
}
