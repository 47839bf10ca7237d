package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/i474232898/cinesky/internal/identity"
	"github.com/i474232898/cinesky/internal/logger"
	"github.com/i474232898/cinesky/internal/markers"
	"github.com/i474232898/cinesky/internal/session"
	"github.com/i474232898/cinesky/internal/store"
	"github.com/i474232898/cinesky/internal/weather"
)

const testCookie = "cinesky_test"

type stubWeather struct {
	rec       weather.Record
	fetchErr  error
	latestErr error
	fetched   int
}

func (s *stubWeather) FetchCurrent(_ context.Context, loc weather.Location) (weather.Record, error) {
	s.fetched++
	if s.fetchErr != nil {
		return weather.Record{}, s.fetchErr
	}
	rec := s.rec
	rec.Location = loc
	return rec, nil
}

func (s *stubWeather) GetLatest(weather.Location) (weather.Record, error) {
	if s.latestErr != nil {
		return weather.Record{}, s.latestErr
	}
	return s.rec, nil
}

func (s *stubWeather) GetRange(weather.Location, time.Time, time.Time) ([]weather.Record, error) {
	return []weather.Record{s.rec}, nil
}

func sampleRecord() weather.Record {
	wind, humidity, visibility := 90.0, 50.0, 10.0
	return weather.Record{
		City: "Paris", Country: "FR", TemperatureC: 20.4, Humidity: &humidity, WindSpeed: 2,
		WindDegrees: &wind, VisibilityKm: &visibility, Condition: weather.ConditionClear,
		Coordinates: &weather.Coordinates{Lat: 48.8566, Lon: 2.3522},
	}
}

type testClient struct {
	t      *testing.T
	app    *fiber.App
	cookie *http.Cookie
}

func newTestApp(t *testing.T, source identity.Source, svc WeatherService) (*testClient, *session.Registry) {
	t.Helper()
	log := logger.Discard()
	reg := session.NewRegistry(source, markers.NewMemoryStore(), log)
	t.Cleanup(reg.Close)

	app := NewApp(Deps{
		Sessions:      reg,
		Weather:       svc,
		PopularCities: []weather.Location{{City: "London"}, {City: "Tokyo"}},
		ClientCookie:  testCookie,
		Logger:        log,
	})
	return &testClient{t: t, app: app}, reg
}

func (tc *testClient) do(method, path string, body any) (*http.Response, []byte) {
	tc.t.Helper()
	var r io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		require.NoError(tc.t, err)
		r = bytes.NewReader(b)
	}
	req := httptest.NewRequest(method, path, r)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if tc.cookie != nil {
		req.AddCookie(tc.cookie)
	}

	resp, err := tc.app.Test(req, -1)
	require.NoError(tc.t, err)
	for _, c := range resp.Cookies() {
		if c.Name == testCookie {
			tc.cookie = &http.Cookie{Name: c.Name, Value: c.Value}
		}
	}
	data, err := io.ReadAll(resp.Body)
	require.NoError(tc.t, err)
	return resp, data
}

func (tc *testClient) session(method, path string, body any) (int, sessionResponse) {
	tc.t.Helper()
	resp, data := tc.do(method, path, body)
	var out sessionResponse
	if resp.StatusCode == http.StatusOK {
		require.NoError(tc.t, json.Unmarshal(data, &out), string(data))
	}
	return resp.StatusCode, out
}

func errorBody(t *testing.T, data []byte) map[string]any {
	t.Helper()
	var m map[string]any
	require.NoError(t, json.Unmarshal(data, &m), string(data))
	return m
}

func TestHealth(t *testing.T) {
	tc, _ := newTestApp(t, identity.Unconfigured{}, &stubWeather{})
	resp, _ := tc.do(http.MethodGet, "/health", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Nil(t, tc.cookie, "health does not create clients")
}

func TestSessionIssuesClientCookie(t *testing.T) {
	tc, reg := newTestApp(t, identity.NewDirectory(bcrypt.MinCost), &stubWeather{})

	code, s := tc.session(http.MethodGet, "/api/v1/auth/session", nil)
	require.Equal(t, http.StatusOK, code)
	require.NotNil(t, tc.cookie)
	assert.True(t, s.State.AuthChecked)
	assert.False(t, s.State.IsLoading)
	assert.Nil(t, s.State.CurrentUser)
	assert.Empty(t, s.Redirect)

	first := tc.cookie.Value
	tc.session(http.MethodGet, "/api/v1/auth/session", nil)
	assert.Equal(t, first, tc.cookie.Value)
	assert.Equal(t, 1, reg.Len())
}

func TestMalformedCookieIsReplaced(t *testing.T) {
	tc, _ := newTestApp(t, identity.NewDirectory(bcrypt.MinCost), &stubWeather{})
	tc.cookie = &http.Cookie{Name: testCookie, Value: "not-a-uuid"}

	tc.do(http.MethodGet, "/api/v1/auth/session", nil)
	assert.NotEqual(t, "not-a-uuid", tc.cookie.Value)
}

func TestGatedRoutesRequireSession(t *testing.T) {
	tc, _ := newTestApp(t, identity.NewDirectory(bcrypt.MinCost), &stubWeather{rec: sampleRecord()})

	for _, path := range []string{
		"/api/v1/weather/current?city=Paris",
		"/api/v1/weather/history?city=Paris&from=0&to=1",
		"/api/v1/map?city=Paris",
	} {
		resp, data := tc.do(http.MethodGet, path, nil)
		assert.Equal(t, http.StatusUnauthorized, resp.StatusCode, path)
		assert.Equal(t, "/login", errorBody(t, data)["redirect"], path)
	}

	resp, _ := tc.do(http.MethodGet, "/api/v1/cities/popular", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestGuestFlow(t *testing.T) {
	svc := &stubWeather{rec: sampleRecord()}
	tc, _ := newTestApp(t, identity.NewDirectory(bcrypt.MinCost), svc)

	code, s := tc.session(http.MethodPost, "/api/v1/auth/guest", nil)
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, session.RouteHome, s.Redirect)
	assert.True(t, s.State.IsGuest)
	require.NotNil(t, s.State.CurrentUser)
	assert.Equal(t, "guest-user-id", s.State.CurrentUser.ID)
	assert.Equal(t, "Guest User", s.DisplayName)

	resp, data := tc.do(http.MethodGet, "/api/v1/weather/current?city=Paris&country=FR", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode, string(data))
	var report weather.Report
	require.NoError(t, json.Unmarshal(data, &report))
	assert.Equal(t, "Paris, FR", report.LocationLabel)
	assert.Equal(t, 20, report.RoundedC)
	assert.Equal(t, 69, report.TemperatureF)
	assert.Equal(t, "CLEAR_DAY", report.Icon)
	assert.Equal(t, "E", report.WindDir)
	assert.NotNil(t, report.GoldenHours)

	code, s = tc.session(http.MethodPost, "/api/v1/auth/logout", nil)
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, session.RouteLogin, s.Redirect)
	assert.False(t, s.State.IsGuest)
	assert.Nil(t, s.State.CurrentUser)
	assert.Empty(t, s.DisplayName)

	resp, _ = tc.do(http.MethodGet, "/api/v1/weather/current?city=Paris", nil)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestSignUpAndSignIn(t *testing.T) {
	dir := identity.NewDirectory(bcrypt.MinCost)
	tc, _ := newTestApp(t, dir, &stubWeather{})

	code, s := tc.session(http.MethodPost, "/api/v1/auth/signup",
		map[string]string{"email": "ann@example.com", "password": "secret1", "name": "Ann"})
	require.Equal(t, http.StatusOK, code)
	require.NotNil(t, s.State.CurrentUser)
	assert.Equal(t, "Ann", s.State.CurrentUser.DisplayName)
	assert.Equal(t, "Ann", s.DisplayName)
	assert.Equal(t, session.RouteHome, s.Redirect)

	other, _ := newTestApp(t, dir, &stubWeather{})
	resp, data := other.do(http.MethodPost, "/api/v1/auth/signup",
		map[string]string{"email": "ann@example.com", "password": "secret2", "name": "Impostor"})
	assert.Equal(t, http.StatusConflict, resp.StatusCode, string(data))

	resp, _ = other.do(http.MethodPost, "/api/v1/auth/signin",
		map[string]string{"email": "ann@example.com", "password": "wrong-password"})
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	code, s = other.session(http.MethodPost, "/api/v1/auth/signin",
		map[string]string{"email": "ann@example.com", "password": "secret1"})
	require.Equal(t, http.StatusOK, code)
	require.NotNil(t, s.State.CurrentUser)
	assert.Equal(t, "ann@example.com", s.State.CurrentUser.Email)
	assert.Equal(t, "Ann", s.DisplayName)
}

func TestSignUpValidation(t *testing.T) {
	tc, _ := newTestApp(t, identity.NewDirectory(bcrypt.MinCost), &stubWeather{})

	resp, _ := tc.do(http.MethodPost, "/api/v1/auth/signup",
		map[string]string{"email": "not-an-email", "password": "secret1", "name": "Ann"})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp, data := tc.do(http.MethodPost, "/api/v1/auth/signup",
		map[string]string{"email": "ann@example.com", "password": "123", "name": "Ann"})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Contains(t, errorBody(t, data)["message"], "at least 6")

	resp, _ = tc.do(http.MethodPost, "/api/v1/auth/signin", map[string]string{"email": "ann@example.com"})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestDemoFallbackWithoutProvider(t *testing.T) {
	tc, _ := newTestApp(t, identity.Unconfigured{}, &stubWeather{})

	resp, _ := tc.do(http.MethodPost, "/api/v1/auth/signin",
		map[string]string{"email": "someone@example.com", "password": "whatever"})
	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)

	code, s := tc.session(http.MethodPost, "/api/v1/auth/signin",
		map[string]string{"email": "demo@example.com", "password": "password"})
	require.Equal(t, http.StatusOK, code)
	require.NotNil(t, s.State.CurrentUser)
	assert.Equal(t, "demo-user-id", s.State.CurrentUser.ID)
	assert.Equal(t, "Demo User", s.DisplayName)
	assert.Equal(t, session.RouteHome, s.Redirect)
}

func TestConcurrentOperationIsRejected(t *testing.T) {
	tc, reg := newTestApp(t, identity.NewDirectory(bcrypt.MinCost), &stubWeather{})
	tc.do(http.MethodGet, "/api/v1/auth/session", nil)

	cl, err := reg.Get(context.Background(), tc.cookie.Value)
	require.NoError(t, err)
	require.True(t, cl.TryBegin())

	resp, _ := tc.do(http.MethodPost, "/api/v1/auth/guest", nil)
	assert.Equal(t, http.StatusConflict, resp.StatusCode)

	cl.End()
	resp, _ = tc.do(http.MethodPost, "/api/v1/auth/guest", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestClosedRegistryAnswersUnavailable(t *testing.T) {
	tc, reg := newTestApp(t, identity.NewDirectory(bcrypt.MinCost), &stubWeather{})
	reg.Close()

	resp, _ := tc.do(http.MethodGet, "/api/v1/auth/session", nil)
	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
	assert.Equal(t, 0, reg.Len())
}

func TestWeatherErrors(t *testing.T) {
	svc := &stubWeather{fetchErr: weather.ErrLocationNotFound}
	tc, _ := newTestApp(t, identity.NewDirectory(bcrypt.MinCost), svc)
	tc.do(http.MethodPost, "/api/v1/auth/guest", nil)

	resp, _ := tc.do(http.MethodGet, "/api/v1/weather/current", nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp, data := tc.do(http.MethodGet, "/api/v1/weather/current?city=Atlantis", nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	assert.Equal(t, msgCityNotFound, errorBody(t, data)["message"])

	svc.fetchErr = weather.ErrNoReadings
	resp, _ = tc.do(http.MethodGet, "/api/v1/weather/current?city=Paris", nil)
	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
}

func TestHistoryValidation(t *testing.T) {
	tc, _ := newTestApp(t, identity.NewDirectory(bcrypt.MinCost), &stubWeather{rec: sampleRecord()})
	tc.do(http.MethodPost, "/api/v1/auth/guest", nil)

	resp, _ := tc.do(http.MethodGet, "/api/v1/weather/history?city=Paris", nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp, _ = tc.do(http.MethodGet, "/api/v1/weather/history?city=Paris&from=2000&to=1000", nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp, data := tc.do(http.MethodGet, "/api/v1/weather/history?city=Paris&from=1000&to=2000", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode, string(data))
}

func TestMapFetchesWhenNothingStored(t *testing.T) {
	svc := &stubWeather{rec: sampleRecord(), latestErr: store.ErrNotFound}
	tc, _ := newTestApp(t, identity.NewDirectory(bcrypt.MinCost), svc)
	tc.do(http.MethodPost, "/api/v1/auth/guest", nil)

	resp, data := tc.do(http.MethodGet, "/api/v1/map?city=Paris", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode, string(data))
	assert.Equal(t, 1, svc.fetched)

	var view weather.MapView
	require.NoError(t, json.Unmarshal(data, &view))
	assert.Equal(t, "48.8566°N, 2.3522°E", view.Label)
	assert.Contains(t, view.EmbedURL, "marker=48.8566%2C2.3522")
	assert.Len(t, view.Spots, 4)
}
