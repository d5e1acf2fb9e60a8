package http_test

import (
	"context"
	"encoding/json"
	"io"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gofiber/fiber/v2"

	handler "github.com/samirrijal/perspectives/internal/adapters/http"
	"github.com/samirrijal/perspectives/internal/core/camera"
	"github.com/samirrijal/perspectives/internal/core/domain"
	"github.com/samirrijal/perspectives/internal/core/usecases"
)

// ---- Mocks ----

type mockPointRepo struct {
	listFn    func(ctx context.Context) ([]domain.GeoPoint, error)
	getByIDFn func(ctx context.Context, id string) (*domain.GeoPoint, error)
}

func (m *mockPointRepo) List(ctx context.Context) ([]domain.GeoPoint, error) {
	if m.listFn != nil {
		return m.listFn(ctx)
	}
	return nil, nil
}
func (m *mockPointRepo) GetByID(ctx context.Context, id string) (*domain.GeoPoint, error) {
	if m.getByIDFn != nil {
		return m.getByIDFn(ctx, id)
	}
	return nil, domain.ErrPointNotFound
}
func (m *mockPointRepo) UpsertBatch(ctx context.Context, p []domain.GeoPoint) error { return nil }

type mockPublisher struct {
	navigate, drilldown int
}

func (m *mockPublisher) PublishNavigate(ctx context.Context, r domain.SelectionResult) error {
	m.navigate++
	return nil
}
func (m *mockPublisher) PublishDrilldown(ctx context.Context, r domain.SelectionResult) error {
	m.drilldown++
	return nil
}
func (m *mockPublisher) PublishRefreshed(ctx context.Context, v uint64, n int) error { return nil }
func (m *mockPublisher) PublishSaved(ctx context.Context, ids []string) error        { return nil }

// ---- Test helpers ----

func seedPoints() []domain.GeoPoint {
	return []domain.GeoPoint{
		{ID: "bilbao", Lat: 43.263, Lng: -2.935, Payload: domain.Perspective{Name: "Bilbao", Slug: "bilbao", Sketches: []string{"b.png"}}},
		{ID: "getxo", Lat: 43.356, Lng: -3.011, Payload: domain.Perspective{Name: "Getxo", Slug: "getxo"}},
		{ID: "madrid", Lat: 40.416, Lng: -3.703, Payload: domain.Perspective{Name: "Madrid", Slug: "madrid"}},
	}
}

func setupApp(deps *handler.Dependencies) *fiber.App {
	app := fiber.New(fiber.Config{DisableStartupMessage: true})
	handler.SetupRoutes(app, deps)
	return app
}

func makeDeps(repo *mockPointRepo, pub *mockPublisher) *handler.Dependencies {
	if repo == nil {
		repo = &mockPointRepo{}
	}
	if pub == nil {
		pub = &mockPublisher{}
	}
	store := usecases.NewPointStore(repo, pub)
	store.Replace(seedPoints())
	clusters := usecases.NewClusterService(store, nil, nil)
	return &handler.Dependencies{
		Points:    store,
		Clusters:  clusters,
		Selection: usecases.NewSelectionService(clusters, store, pub),
		Camera:    camera.DefaultConfig(),
	}
}

func readBody(t *testing.T, body io.Reader) []byte {
	t.Helper()
	b, err := io.ReadAll(body)
	if err != nil {
		t.Fatalf("read body: %v", err)
	}
	return b
}

func decodeAPIError(t *testing.T, body io.Reader) handler.APIError {
	t.Helper()
	var apiErr handler.APIError
	if err := json.NewDecoder(body).Decode(&apiErr); err != nil {
		t.Fatalf("decode error body: %v", err)
	}
	return apiErr
}

// ---- Health ----

func TestHealth(t *testing.T) {
	app := setupApp(makeDeps(nil, nil))

	resp, err := app.Test(httptest.NewRequest("GET", "/v1/health", nil), -1)
	if err != nil {
		t.Fatal(err)
	}
	if resp.StatusCode != 200 {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	var body struct {
		Status string `json:"status"`
		Points int    `json:"points"`
	}
	json.NewDecoder(resp.Body).Decode(&body)
	if body.Status != "healthy" || body.Points != 3 {
		t.Errorf("unexpected health body %+v", body)
	}
}

func TestReady_NoDatabase(t *testing.T) {
	app := setupApp(makeDeps(nil, nil))

	resp, _ := app.Test(httptest.NewRequest("GET", "/v1/ready", nil), -1)
	if resp.StatusCode != 503 {
		t.Fatalf("expected 503 without a database, got %d", resp.StatusCode)
	}
}

// ---- Threshold ----

func TestThreshold(t *testing.T) {
	app := setupApp(makeDeps(nil, nil))

	cases := []struct {
		altitude string
		band     int
		km       float64
	}{
		{"2.5", 0, 200},
		{"2", 1, 100},
		{"1.2", 2, 50},
		{"0.75", 3, 20},
		{"0.5", 4, 0},
	}
	for _, tc := range cases {
		resp, _ := app.Test(httptest.NewRequest("GET", "/v1/threshold?altitude="+tc.altitude, nil), -1)
		if resp.StatusCode != 200 {
			t.Fatalf("altitude %s: expected 200, got %d", tc.altitude, resp.StatusCode)
		}
		var got handler.ThresholdResponse
		json.NewDecoder(resp.Body).Decode(&got)
		if got.Band != tc.band || got.ThresholdKm != tc.km {
			t.Errorf("altitude %s: expected band %d / %v km, got %+v", tc.altitude, tc.band, tc.km, got)
		}
	}
}

func TestThreshold_BadAltitude(t *testing.T) {
	app := setupApp(makeDeps(nil, nil))

	for _, q := range []string{"", "?altitude=", "?altitude=abc", "?altitude=NaN"} {
		resp, _ := app.Test(httptest.NewRequest("GET", "/v1/threshold"+q, nil), -1)
		if resp.StatusCode != 400 {
			t.Fatalf("%q: expected 400, got %d", q, resp.StatusCode)
		}
		if apiErr := decodeAPIError(t, resp.Body); apiErr.Code != "bad_request" {
			t.Errorf("%q: expected bad_request, got %s", q, apiErr.Code)
		}
	}
}

// ---- Clusters ----

func TestClusters_JSON(t *testing.T) {
	app := setupApp(makeDeps(nil, nil))

	resp, _ := app.Test(httptest.NewRequest("GET", "/v1/clusters?altitude=2.5", nil), -1)
	if resp.StatusCode != 200 {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	var set domain.ClusterSet
	if err := json.NewDecoder(resp.Body).Decode(&set); err != nil {
		t.Fatal(err)
	}
	if len(set.Clusters) != 2 || set.Clusters[0].Size() != 2 {
		t.Errorf("expected [bilbao+getxo, madrid], got %+v", set.Clusters)
	}
	if set.ThresholdKm != 200 || set.Altitude != 2.5 {
		t.Errorf("unexpected header %+v", set)
	}
}

func TestClusters_GeoJSON(t *testing.T) {
	app := setupApp(makeDeps(nil, nil))

	resp, _ := app.Test(httptest.NewRequest("GET", "/v1/clusters?altitude=0.2&format=geojson", nil), -1)
	if resp.StatusCode != 200 {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	if ct := resp.Header.Get("Content-Type"); ct != "application/geo+json" {
		t.Errorf("unexpected content type %q", ct)
	}

	var fc struct {
		Type     string `json:"type"`
		Band     int    `json:"band"`
		Features []struct {
			Geometry struct {
				Coordinates []float64 `json:"coordinates"`
			} `json:"geometry"`
			Properties map[string]interface{} `json:"properties"`
		} `json:"features"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&fc); err != nil {
		t.Fatal(err)
	}
	if fc.Type != "FeatureCollection" || len(fc.Features) != 3 || fc.Band != 4 {
		t.Fatalf("unexpected collection %+v", fc)
	}
	first := fc.Features[0]
	if first.Geometry.Coordinates[0] != -2.935 || first.Geometry.Coordinates[1] != 43.263 {
		t.Errorf("expected [lng, lat] order, got %v", first.Geometry.Coordinates)
	}
	if first.Properties["slug"] != "bilbao" {
		t.Errorf("singleton should carry its slug, got %v", first.Properties)
	}
}

func TestClusters_BadFormat(t *testing.T) {
	app := setupApp(makeDeps(nil, nil))
	resp, _ := app.Test(httptest.NewRequest("GET", "/v1/clusters?altitude=1&format=kml", nil), -1)
	if resp.StatusCode != 400 {
		t.Fatalf("expected 400, got %d", resp.StatusCode)
	}
}

// ---- Selection ----

func postJSON(app *fiber.App, path, body string) (*httptest.ResponseRecorder, error) {
	req := httptest.NewRequest("POST", path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	resp, err := app.Test(req, -1)
	if err != nil {
		return nil, err
	}
	rec := httptest.NewRecorder()
	rec.Code = resp.StatusCode
	rec.Body.ReadFrom(resp.Body)
	return rec, nil
}

func TestSelection_Drilldown(t *testing.T) {
	pub := &mockPublisher{}
	app := setupApp(makeDeps(nil, pub))

	rec, err := postJSON(app, "/v1/selection", `{"altitude":2.5,"cluster":0}`)
	if err != nil {
		t.Fatal(err)
	}
	if rec.Code != 200 {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	var res domain.SelectionResult
	json.Unmarshal(rec.Body.Bytes(), &res)
	if res.Kind != domain.SelectionDrilldown || len(res.Members) != 2 {
		t.Errorf("expected drill-down of 2, got %+v", res)
	}
	if pub.drilldown != 1 {
		t.Error("expected the drill-down intent to be published")
	}
}

func TestSelection_Navigate(t *testing.T) {
	app := setupApp(makeDeps(nil, nil))

	rec, _ := postJSON(app, "/v1/selection", `{"altitude":2.5,"cluster":1}`)
	var res domain.SelectionResult
	json.Unmarshal(rec.Body.Bytes(), &res)
	if res.Kind != domain.SelectionNavigate || res.MemberID != "madrid" || res.Slug != "madrid" {
		t.Errorf("expected navigate to madrid, got %+v", res)
	}
}

func TestSelection_Errors(t *testing.T) {
	app := setupApp(makeDeps(nil, nil))

	cases := []struct {
		body string
		code int
	}{
		{`{"altitude":2.5,"cluster":7}`, 404},
		{`{"altitude":2.5}`, 400},
		{`{"cluster":0}`, 400},
		{`not json`, 400},
	}
	for _, tc := range cases {
		rec, _ := postJSON(app, "/v1/selection", tc.body)
		if rec.Code != tc.code {
			t.Errorf("%s: expected %d, got %d", tc.body, tc.code, rec.Code)
		}
	}
}

// ---- Drill-down ----

func TestDrillDown(t *testing.T) {
	app := setupApp(makeDeps(nil, nil))

	resp, _ := app.Test(httptest.NewRequest("GET", "/v1/drilldown?ids=getxo,,bilbao,unknown", nil), -1)
	if resp.StatusCode != 200 {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	var view domain.DrillDownView
	json.NewDecoder(resp.Body).Decode(&view)
	if len(view.Pins) != 2 || view.Pins[0].Point.ID != "getxo" {
		t.Fatalf("unexpected pins %+v", view.Pins)
	}
	if view.Pins[1].PreviewImage != "b.png" {
		t.Errorf("expected sketch preview, got %q", view.Pins[1].PreviewImage)
	}
	if view.Zoom != 2 || view.Bounds == nil {
		t.Errorf("unexpected view %+v", view)
	}
}

func TestDrillDown_MissingIDs(t *testing.T) {
	app := setupApp(makeDeps(nil, nil))
	resp, _ := app.Test(httptest.NewRequest("GET", "/v1/drilldown", nil), -1)
	if resp.StatusCode != 400 {
		t.Fatalf("expected 400, got %d", resp.StatusCode)
	}
}

func TestLegacyCluster_IsDeprecated(t *testing.T) {
	app := setupApp(makeDeps(nil, nil))

	resp, _ := app.Test(httptest.NewRequest("GET", "/v1/cluster?locations=bilbao,getxo", nil), -1)
	if resp.StatusCode != 200 {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	if resp.Header.Get("Deprecation") != "true" {
		t.Error("expected Deprecation header")
	}
	if !strings.Contains(resp.Header.Get("Link"), "/v1/drilldown") {
		t.Errorf("expected successor link, got %q", resp.Header.Get("Link"))
	}
}

// ---- Points ----

func TestListPoints_Pagination(t *testing.T) {
	app := setupApp(makeDeps(nil, nil))

	resp, _ := app.Test(httptest.NewRequest("GET", "/v1/points?offset=1&limit=1", nil), -1)
	if resp.StatusCode != 200 {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	var result struct {
		Data       []domain.GeoPoint  `json:"data"`
		Pagination handler.Pagination `json:"pagination"`
	}
	json.NewDecoder(resp.Body).Decode(&result)
	if len(result.Data) != 1 || result.Data[0].ID != "getxo" {
		t.Errorf("unexpected page %+v", result.Data)
	}
	if result.Pagination.Total != 3 {
		t.Errorf("expected total 3, got %d", result.Pagination.Total)
	}
	link := resp.Header.Get("Link")
	if !strings.Contains(link, `rel="next"`) || !strings.Contains(link, `rel="prev"`) {
		t.Errorf("expected prev/next links, got %q", link)
	}
}

func TestGetPoint(t *testing.T) {
	app := setupApp(makeDeps(nil, nil))

	resp, _ := app.Test(httptest.NewRequest("GET", "/v1/points/madrid", nil), -1)
	if resp.StatusCode != 200 {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	var p domain.GeoPoint
	json.NewDecoder(resp.Body).Decode(&p)
	if p.Payload.Name != "Madrid" {
		t.Errorf("unexpected point %+v", p)
	}

	resp, _ = app.Test(httptest.NewRequest("GET", "/v1/points/nowhere", nil), -1)
	if resp.StatusCode != 404 {
		t.Fatalf("expected 404, got %d", resp.StatusCode)
	}
	if apiErr := decodeAPIError(t, resp.Body); apiErr.Code != "not_found" {
		t.Errorf("expected not_found, got %s", apiErr.Code)
	}
}

func TestRefreshPoints(t *testing.T) {
	repo := &mockPointRepo{
		listFn: func(ctx context.Context) ([]domain.GeoPoint, error) {
			return seedPoints()[:1], nil
		},
	}
	deps := makeDeps(repo, nil)
	app := setupApp(deps)
	before := deps.Points.Version()

	rec, _ := postJSON(app, "/v1/points/refresh", `{}`)
	if rec.Code != 200 {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var body struct {
		Version uint64 `json:"version"`
		Points  int    `json:"points"`
	}
	json.Unmarshal(rec.Body.Bytes(), &body)
	if body.Points != 1 || body.Version <= before {
		t.Errorf("unexpected refresh result %+v", body)
	}
}

// ---- GraphQL ----

func TestGraphQL_Queries(t *testing.T) {
	app := setupApp(makeDeps(nil, nil))

	rec, _ := postJSON(app, "/graphql", `{"query":"{ threshold(altitude: 1.2) { band threshold_km } clusters(altitude: 2.5) { band clusters { size members { id } } } point(id: \"getxo\") { id payload { name } } }"}`)
	if rec.Code != 200 {
		t.Fatalf("expected 200, got %d", rec.Code)
	}

	var result struct {
		Data struct {
			Threshold struct {
				Band        int     `json:"band"`
				ThresholdKm float64 `json:"threshold_km"`
			} `json:"threshold"`
			Clusters struct {
				Clusters []struct {
					Size int `json:"size"`
				} `json:"clusters"`
			} `json:"clusters"`
			Point struct {
				ID      string `json:"id"`
				Payload struct {
					Name string `json:"name"`
				} `json:"payload"`
			} `json:"point"`
		} `json:"data"`
		Errors []interface{} `json:"errors"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &result); err != nil {
		t.Fatal(err)
	}
	if len(result.Errors) > 0 {
		t.Fatalf("unexpected errors: %v", result.Errors)
	}
	if result.Data.Threshold.Band != 2 || result.Data.Threshold.ThresholdKm != 50 {
		t.Errorf("unexpected threshold %+v", result.Data.Threshold)
	}
	if len(result.Data.Clusters.Clusters) != 2 || result.Data.Clusters.Clusters[0].Size != 2 {
		t.Errorf("unexpected clusters %+v", result.Data.Clusters)
	}
	if result.Data.Point.Payload.Name != "Getxo" {
		t.Errorf("unexpected point %+v", result.Data.Point)
	}
}

func TestGraphQL_Activate(t *testing.T) {
	pub := &mockPublisher{}
	app := setupApp(makeDeps(nil, pub))

	rec, _ := postJSON(app, "/graphql", `{"query":"mutation { activate(altitude: 2.5, cluster: 1) { kind member_id } }"}`)
	var result struct {
		Data struct {
			Activate struct {
				Kind     string `json:"kind"`
				MemberID string `json:"member_id"`
			} `json:"activate"`
		} `json:"data"`
	}
	json.Unmarshal(rec.Body.Bytes(), &result)
	if result.Data.Activate.Kind != "navigate" || result.Data.Activate.MemberID != "madrid" {
		t.Errorf("unexpected activation %+v", result.Data.Activate)
	}
	if pub.navigate != 1 {
		t.Error("expected a navigate event")
	}
}

func TestGraphQL_EmptyQuery(t *testing.T) {
	app := setupApp(makeDeps(nil, nil))
	rec, _ := postJSON(app, "/graphql", `{"query":""}`)
	if rec.Code != 400 {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
}

// ---- Middleware ----

func TestETag_NotModified(t *testing.T) {
	app := setupApp(makeDeps(nil, nil))

	resp, _ := app.Test(httptest.NewRequest("GET", "/v1/threshold?altitude=2.5", nil), -1)
	etag := resp.Header.Get("ETag")
	if etag == "" {
		t.Fatal("expected an ETag")
	}
	if cc := resp.Header.Get("Cache-Control"); cc == "" {
		t.Error("expected a Cache-Control header")
	}

	req := httptest.NewRequest("GET", "/v1/threshold?altitude=2.5", nil)
	req.Header.Set("If-None-Match", etag)
	resp, _ = app.Test(req, -1)
	if resp.StatusCode != 304 {
		t.Fatalf("expected 304, got %d", resp.StatusCode)
	}
	if len(readBody(t, resp.Body)) != 0 {
		t.Error("304 must not carry a body")
	}
}

func TestMetricsEndpoint(t *testing.T) {
	app := setupApp(makeDeps(nil, nil))

	app.Test(httptest.NewRequest("GET", "/v1/clusters?altitude=2.5", nil), -1)
	resp, _ := app.Test(httptest.NewRequest("GET", "/metrics", nil), -1)
	if resp.StatusCode != 200 {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	if !strings.Contains(string(readBody(t, resp.Body)), "perspectives_clustering_passes_total") {
		t.Error("expected clustering metrics to be exported")
	}
}

func TestWebSocket_RequiresUpgrade(t *testing.T) {
	app := setupApp(makeDeps(nil, nil))
	resp, _ := app.Test(httptest.NewRequest("GET", "/ws", nil), -1)
	if resp.StatusCode != fiber.StatusUpgradeRequired {
		t.Fatalf("expected 426, got %d", resp.StatusCode)
	}
}
