package cli

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	domainerrors "github.com/holocronapp/holocron-server/internal/errors"
)

// recorded captures the last request the fake server saw.
type recorded struct {
	method    string
	path      string
	query     string
	requestID string
	hits      int
}

func newFakeServer(t *testing.T, status int, body string) (*httptest.Server, *recorded) {
	t.Helper()
	rec := &recorded{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rec.method = r.Method
		rec.path = r.URL.EscapedPath()
		rec.query = r.URL.RawQuery
		rec.requestID = r.Header.Get("X-Request-Id")
		rec.hits++
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)
	return srv, rec
}

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	cmd := NewRootCommand(&out)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestCategories_PrintsIndentedData(t *testing.T) {
	srv, rec := newFakeServer(t, http.StatusOK,
		`{"v":1,"success":true,"data":[{"category":"characters","label":"Characters"}]}`)

	out, err := run(t, "--server", srv.URL, "categories")
	require.NoError(t, err)

	assert.Equal(t, http.MethodGet, rec.method)
	assert.Equal(t, "/api/v1/categories", rec.path)
	assert.Contains(t, out, "\n  {\n")
	assert.Contains(t, out, `"label": "Characters"`)
	assert.NotContains(t, out, `"success"`)
}

func TestList_SendsPaginationAndRequestID(t *testing.T) {
	srv, rec := newFakeServer(t, http.StatusOK, `{"v":1,"success":true,"data":{"items":[]}}`)

	_, err := run(t, "--server", srv.URL, "list", "Vehicles", "--page", "2", "--limit", "5", "--search", "  x-wing ")
	require.NoError(t, err)

	assert.Equal(t, "/api/v1/entities/vehicles", rec.path)
	assert.Equal(t, "limit=5&page=2&search=x-wing", rec.query)
	_, err = uuid.Parse(rec.requestID)
	assert.NoError(t, err, "X-Request-Id should be a UUID")
}

func TestList_Defaults(t *testing.T) {
	srv, rec := newFakeServer(t, http.StatusOK, `{"v":1,"success":true,"data":{}}`)

	_, err := run(t, "--server", srv.URL, "list", "characters")
	require.NoError(t, err)
	assert.Equal(t, "limit=9&page=1", rec.query)
}

func TestList_UnknownCategory(t *testing.T) {
	srv, rec := newFakeServer(t, http.StatusOK, `{}`)

	_, err := run(t, "--server", srv.URL, "list", "wookiees")
	require.Error(t, err)
	assert.Contains(t, err.Error(), `unknown category "wookiees"`)
	assert.Zero(t, rec.hits)
}

func TestList_InvalidLimitRejectedLocally(t *testing.T) {
	srv, rec := newFakeServer(t, http.StatusOK, `{}`)

	_, err := run(t, "--server", srv.URL, "list", "droids", "--limit", "500")
	require.Error(t, err)
	assert.ErrorIs(t, err, domainerrors.ErrValidation)
	assert.Contains(t, err.Error(), "limit")
	assert.Zero(t, rec.hits)
}

func TestGet_EscapesID(t *testing.T) {
	srv, rec := newFakeServer(t, http.StatusOK, `{"v":1,"success":true,"data":{"id":"a/b"}}`)

	_, err := run(t, "--server", srv.URL, "get", "droids", "a/b")
	require.NoError(t, err)
	assert.Equal(t, "/api/v1/entities/droids/a%2Fb", rec.path)
}

func TestGet_ServerErrorEnvelope(t *testing.T) {
	srv, _ := newFakeServer(t, http.StatusNotFound,
		`{"v":1,"success":false,"error":"characters not found","code":"NOT_FOUND","message":"characters not found"}`)

	out, err := run(t, "--server", srv.URL, "get", "characters", "nope")
	require.Error(t, err)
	assert.Empty(t, out)

	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusNotFound, apiErr.Status)
	assert.Equal(t, "NOT_FOUND", apiErr.Code)
	assert.Equal(t, "characters not found", apiErr.Message)
	assert.True(t, IsAPIError(err))
}

func TestNonEnvelopeErrorBody(t *testing.T) {
	srv, _ := newFakeServer(t, http.StatusBadGateway, `<html>bad gateway</html>`)

	_, err := run(t, "--server", srv.URL, "status")
	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusBadGateway, apiErr.Status)
	assert.Equal(t, "Bad Gateway", apiErr.Message)
}

func TestStatus(t *testing.T) {
	srv, rec := newFakeServer(t, http.StatusOK,
		`{"v":1,"success":true,"data":{"swapi":{"reachable":true},"cached_entities":3}}`)

	out, err := run(t, "--server", srv.URL, "status")
	require.NoError(t, err)
	assert.Equal(t, "/api/v1/admin/enrichment", rec.path)
	assert.Contains(t, out, `"cached_entities": 3`)
}

func TestCacheClearAndRetry_UsePost(t *testing.T) {
	tests := []struct {
		args []string
		path string
	}{
		{[]string{"cache", "clear"}, "/api/v1/admin/enrichment/cache/clear"},
		{[]string{"retry"}, "/api/v1/admin/enrichment/retry"},
	}

	for _, tt := range tests {
		t.Run(strings.Join(tt.args, " "), func(t *testing.T) {
			srv, rec := newFakeServer(t, http.StatusOK, `{"v":1,"success":true,"data":{"cleared":4}}`)

			out, err := run(t, append([]string{"--server", srv.URL}, tt.args...)...)
			require.NoError(t, err)
			assert.Equal(t, http.MethodPost, rec.method)
			assert.Equal(t, tt.path, rec.path)
			assert.Contains(t, out, `"cleared": 4`)
		})
	}
}

func TestSWAPI_ForwardsQuery(t *testing.T) {
	srv, rec := newFakeServer(t, http.StatusOK, `{"v":1,"success":true,"data":{"count":0}}`)

	_, err := run(t, "--server", srv.URL, "swapi", "people", "--search", "luke", "--page", "2")
	require.NoError(t, err)
	assert.Equal(t, "/api/v1/swapi/people", rec.path)
	assert.Equal(t, "page=2&search=luke", rec.query)
}

func TestInvalidServerFlag(t *testing.T) {
	_, err := run(t, "--server", "not a url", "status")
	require.Error(t, err)
	assert.ErrorIs(t, err, domainerrors.ErrValidation)
}

func TestUnreachableServer(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	_, err := run(t, "--server", url, "--timeout", "1s", "categories")
	require.Error(t, err)
	assert.False(t, IsAPIError(err))
}

func TestVersion_NeedsNoServer(t *testing.T) {
	out, err := run(t, "--server", "", "version")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(out, "holocron "))
}
