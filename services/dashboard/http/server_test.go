package http

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/twpayne/go-geom"

	"github.com/02loveslollipop/Shizuku-biodiversity-viewer/services/dashboard/config"
	"github.com/02loveslollipop/Shizuku-biodiversity-viewer/services/dashboard/db"
	"github.com/02loveslollipop/Shizuku-biodiversity-viewer/services/dashboard/internal/areas"
	"github.com/02loveslollipop/Shizuku-biodiversity-viewer/services/dashboard/internal/models"
	"github.com/02loveslollipop/Shizuku-biodiversity-viewer/services/dashboard/internal/pipeline"
	"github.com/02loveslollipop/Shizuku-biodiversity-viewer/services/dashboard/internal/session"
)

const felids = "gbifID\tfamily\tspecies\teventDate\tlocality\toccurrenceID\tdecimalLatitude\tdecimalLongitude\n" +
	"1\tFelidae\tPanthera onca\t2019-05-03\tSirena\tocc-1\t8.48\t-83.59\n" +
	"2\tFelidae\tPuma concolor\t2019-06-10\tSirena\tocc-2\t8.48\t-83.59\n" +
	"3\tFelidae\tPanthera onca\t2020-02-14\tLimón\tocc-3\t10.0\t-83.0\n"

type stubAreas struct {
	err error
}

func (s stubAreas) Fetch(context.Context) ([]models.ProtectedArea, error) {
	if s.err != nil {
		return nil, s.err
	}
	return []models.ProtectedArea{{
		ID:   "1",
		Name: "Corcovado",
		Geometry: geom.NewPolygon(geom.XY).MustSetCoords([][]geom.Coord{
			{{-83.8, 8.3}, {-83.3, 8.3}, {-83.3, 8.7}, {-83.8, 8.7}, {-83.8, 8.3}},
		}),
	}}, nil
}

type memoryHistory struct {
	mu     sync.Mutex
	runs   []db.Run
	counts map[string][]models.AreaCount
}

func (h *memoryHistory) RecordRun(_ context.Context, run db.Run, counts []models.AreaCount) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.runs = append(h.runs, run)
	if h.counts == nil {
		h.counts = make(map[string][]models.AreaCount)
	}
	h.counts[run.ID.String()] = counts
	return nil
}

func (h *memoryHistory) ListRuns(_ context.Context, limit int) ([]db.Run, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if len(h.runs) < limit {
		limit = len(h.runs)
	}
	return h.runs[:limit], nil
}

func testConfig() config.Config {
	return config.Config{Port: 0, UploadMaxBytes: 1 << 20, TopAreas: 15}
}

func newTestServer(t *testing.T, cfg config.Config, src areas.Source, history RunHistory) *Server {
	t.Helper()
	return New(cfg, Deps{
		Runner:   pipeline.New(src, pipeline.Options{TopAreas: cfg.TopAreas}),
		Areas:    src,
		Sessions: session.NewStore(time.Minute),
		History:  history,
	})
}

func multipartBody(t *testing.T, content string, fields map[string]string) (*bytes.Buffer, string) {
	t.Helper()
	body := &bytes.Buffer{}
	w := multipart.NewWriter(body)
	if content != "" {
		part, err := w.CreateFormFile(uploadField, "felids.csv")
		require.NoError(t, err)
		_, err = part.Write([]byte(content))
		require.NoError(t, err)
	}
	for k, v := range fields {
		require.NoError(t, w.WriteField(k, v))
	}
	require.NoError(t, w.Close())
	return body, w.FormDataContentType()
}

func do(s *Server, req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	s.Engine().ServeHTTP(rec, req)
	return rec
}

func TestHealthz(t *testing.T) {
	s := newTestServer(t, testConfig(), stubAreas{}, nil)
	rec := do(s, httptest.NewRequest(http.MethodGet, "/healthz", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
}

func TestIndex_ShowsUploadPrompt(t *testing.T) {
	s := newTestServer(t, testConfig(), stubAreas{}, nil)
	rec := do(s, httptest.NewRequest(http.MethodGet, "/", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `action="/upload"`)
	assert.NotContains(t, rec.Body.String(), "Filtros de datos")
}

func TestUploadThenReport(t *testing.T) {
	s := newTestServer(t, testConfig(), stubAreas{}, nil)

	body, contentType := multipartBody(t, felids, nil)
	req := httptest.NewRequest(http.MethodPost, "/upload", body)
	req.Header.Set("Content-Type", contentType)
	rec := do(s, req)

	require.Equal(t, http.StatusSeeOther, rec.Code)
	location := rec.Header().Get("Location")
	require.True(t, strings.HasPrefix(location, "/report/"), location)

	rec = do(s, httptest.NewRequest(http.MethodGet, location, nil))
	require.Equal(t, http.StatusOK, rec.Code)
	page := rec.Body.String()
	assert.Contains(t, page, "Registros de presencia de Panthera onca")
	assert.Contains(t, page, "occ-3")
	assert.NotContains(t, page, "occ-2")
	assert.Contains(t, page, `id="chart-yearly"`)

	rec = do(s, httptest.NewRequest(http.MethodGet, location+"?species=Puma+concolor", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "Registros de presencia de Puma concolor")
	assert.NotContains(t, rec.Body.String(), "occ-3")

	rec = do(s, httptest.NewRequest(http.MethodGet, location+"?species=Tapirus+bairdii", nil))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestUpload_NoFile(t *testing.T) {
	s := newTestServer(t, testConfig(), stubAreas{}, nil)

	body, contentType := multipartBody(t, "", nil)
	req := httptest.NewRequest(http.MethodPost, "/upload", body)
	req.Header.Set("Content-Type", contentType)
	rec := do(s, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "Seleccione un archivo")
}

func TestUpload_TooLarge(t *testing.T) {
	cfg := testConfig()
	cfg.UploadMaxBytes = 16
	s := newTestServer(t, cfg, stubAreas{}, nil)

	body, contentType := multipartBody(t, felids, nil)
	req := httptest.NewRequest(http.MethodPost, "/upload", body)
	req.Header.Set("Content-Type", contentType)
	rec := do(s, req)

	assert.Equal(t, http.StatusRequestEntityTooLarge, rec.Code)
}

func TestReport_UnknownToken(t *testing.T) {
	s := newTestServer(t, testConfig(), stubAreas{}, nil)
	rec := do(s, httptest.NewRequest(http.MethodGet, "/report/not-a-token", nil))

	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Contains(t, rec.Body.String(), "La carga expiró")
}

func postReport(t *testing.T, s *Server, content, species, bearer string) *httptest.ResponseRecorder {
	t.Helper()
	fields := map[string]string{}
	if species != "" {
		fields["species"] = species
	}
	body, contentType := multipartBody(t, content, fields)
	req := httptest.NewRequest(http.MethodPost, "/api/v1/report", body)
	req.Header.Set("Content-Type", contentType)
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}
	return do(s, req)
}

func TestV1Report(t *testing.T) {
	history := &memoryHistory{}
	s := newTestServer(t, testConfig(), stubAreas{}, history)

	rec := postReport(t, s, felids, "Panthera onca", "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "v1", rec.Header().Get("X-API-Version"))

	var resp struct {
		Data struct {
			Selected string `json:"selected"`
			Totals   struct {
				Filtered    int `json:"filtered"`
				InsideAreas int `json:"inside_areas"`
			} `json:"totals"`
			AreaCounts []models.AreaCount `json:"area_counts"`
		} `json:"data"`
		Meta struct {
			Filename string `json:"filename"`
		} `json:"meta"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "Panthera onca", resp.Data.Selected)
	assert.Equal(t, 2, resp.Data.Totals.Filtered)
	assert.Equal(t, 1, resp.Data.Totals.InsideAreas)
	assert.Equal(t, []models.AreaCount{{AreaID: "1", Name: "Corcovado", Count: 1}}, resp.Data.AreaCounts)
	assert.Equal(t, "felids.csv", resp.Meta.Filename)

	require.Len(t, history.runs, 1)
	assert.Equal(t, "Panthera onca", history.runs[0].Species)
	assert.Equal(t, 2, history.runs[0].RecordCount)
	assert.Equal(t, 1, history.runs[0].InsideCount)
}

func TestV1Report_Errors(t *testing.T) {
	tests := []struct {
		name    string
		src     areas.Source
		content string
		species string
		want    int
	}{
		{name: "no file", src: stubAreas{}, want: http.StatusBadRequest},
		{name: "unknown species", src: stubAreas{}, content: felids, species: "Tapirus bairdii", want: http.StatusBadRequest},
		{name: "missing column", src: stubAreas{}, content: "gbifID\tspecies\n1\tPanthera onca\n", want: http.StatusUnprocessableEntity},
		{
			name:    "bad date",
			src:     stubAreas{},
			content: strings.Replace(felids, "2019-05-03", "someday", 1),
			want:    http.StatusUnprocessableEntity,
		},
		{
			name:    "areas unavailable",
			src:     stubAreas{err: fmt.Errorf("%w: unexpected status 503", areas.ErrFetch)},
			content: felids,
			want:    http.StatusBadGateway,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := newTestServer(t, testConfig(), tt.src, nil)
			rec := postReport(t, s, tt.content, tt.species, "")
			assert.Equal(t, tt.want, rec.Code, rec.Body.String())
			assert.Contains(t, rec.Body.String(), `"error"`)
		})
	}
}

func TestV1_BearerAuth(t *testing.T) {
	cfg := testConfig()
	cfg.BearerToken = "secret"
	s := newTestServer(t, cfg, stubAreas{}, nil)

	rec := do(s, httptest.NewRequest(http.MethodGet, "/api/v1/areas", nil))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/areas", nil)
	req.Header.Set("Authorization", "Bearer wrong")
	assert.Equal(t, http.StatusUnauthorized, do(s, req).Code)

	req = httptest.NewRequest(http.MethodGet, "/api/v1/areas", nil)
	req.Header.Set("Authorization", "Bearer secret")
	rec = do(s, req)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"data":[{"id":"1","name":"Corcovado"}],"meta":{"count":1}}`, rec.Body.String())
}

func TestV1_CORSPreflight(t *testing.T) {
	s := newTestServer(t, testConfig(), stubAreas{}, nil)
	rec := do(s, httptest.NewRequest(http.MethodOptions, "/api/v1/report", nil))

	assert.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))
}

func TestV1Areas_FetchFailure(t *testing.T) {
	s := newTestServer(t, testConfig(), stubAreas{err: fmt.Errorf("%w: timeout", areas.ErrFetch)}, nil)
	rec := do(s, httptest.NewRequest(http.MethodGet, "/api/v1/areas", nil))

	assert.Equal(t, http.StatusBadGateway, rec.Code)
}

func TestV1Runs(t *testing.T) {
	s := newTestServer(t, testConfig(), stubAreas{}, nil)
	rec := do(s, httptest.NewRequest(http.MethodGet, "/api/v1/runs", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)

	history := &memoryHistory{}
	s = newTestServer(t, testConfig(), stubAreas{}, history)
	require.Equal(t, http.StatusOK, postReport(t, s, felids, "", "").Code)
	require.Equal(t, http.StatusOK, postReport(t, s, felids, "Puma concolor", "").Code)

	rec = do(s, httptest.NewRequest(http.MethodGet, "/api/v1/runs?limit=1", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	var resp struct {
		Data []db.Run `json:"data"`
		Meta struct {
			Count int `json:"count"`
		} `json:"meta"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, 1, resp.Meta.Count)
	assert.Equal(t, "Panthera onca", resp.Data[0].Species)

	for _, bad := range []string{"0", "101", "ten"} {
		rec = do(s, httptest.NewRequest(http.MethodGet, "/api/v1/runs?limit="+bad, nil))
		assert.Equal(t, http.StatusBadRequest, rec.Code, bad)
	}
}

func TestStatusFor(t *testing.T) {
	assert.Equal(t, http.StatusInternalServerError, statusFor(errors.New("boom")))
	assert.Equal(t, http.StatusNotFound, statusFor(session.ErrNotFound))
	assert.Equal(t, http.StatusBadRequest, statusFor(fmt.Errorf("run: %w", pipeline.ErrNoUpload)))
}
