package api_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/okian/leadscore/internal/adapters/http/api"
	"github.com/okian/leadscore/internal/adapters/repository"
	service "github.com/okian/leadscore/internal/app"
	"github.com/okian/leadscore/internal/domain/lead"
	"github.com/okian/leadscore/pkg/logger"
	. "github.com/smartystreets/goconvey/convey"
)

func init() {
	if err := logger.Init(); err != nil {
		panic(err)
	}
}

// Mock implementations for testing
type mockDependencies struct {
	rows      lead.Scored
	err       error
	lastQuery service.Query
	lastFmt   repository.Format
	requestID string
}

func (m *mockDependencies) ListLeads(ctx context.Context, q service.Query) (lead.Scored, error) {
	m.lastQuery = q
	m.requestID = logger.RequestID(ctx)
	if m.err != nil {
		return nil, m.err
	}
	return m.rows.Filter(q.Criteria).SortByScore(q.Sort), nil
}

func (m *mockDependencies) ExportLeads(ctx context.Context, q service.Query, f repository.Format) ([]byte, error) {
	m.lastFmt = f
	rows, err := m.ListLeads(ctx, q)
	if err != nil {
		return nil, err
	}
	var sb strings.Builder
	if err := repository.WriteScored(&sb, f, rows); err != nil {
		return nil, err
	}
	return []byte(sb.String()), nil
}

type mockStatsProvider struct {
	stats service.Stats
}

func (m *mockStatsProvider) GetStats(context.Context) service.Stats {
	return m.stats
}

func fixtureRows() lead.Scored {
	return lead.Scored{
		{Lead: lead.Lead{Name: "Ava", Industry: "Software", Role: "VP", Location: "Boston", CompanySize: 900, PastInteractionScore: 0.9}, PredictedScore: 0.8},
		{Lead: lead.Lead{Name: "Liam", Industry: "Finance", Role: "Analyst", Location: "Denver", CompanySize: 300, PastInteractionScore: 0.4}, PredictedScore: 0.3},
		{Lead: lead.Lead{Name: "Mia", Industry: "Finance", Role: "Manager", Location: "Chicago", CompanySize: 500, PastInteractionScore: 0.7}, PredictedScore: 0.6},
	}
}

func newMux(deps *mockDependencies) *http.ServeMux {
	stats := &mockStatsProvider{stats: service.Stats{Rows: 3, Source: "fixture", Vocabulary: map[string]int{"Role": 3}}}
	server := api.NewServer(deps, stats, api.WithCORSOrigin("http://localhost:3000"))
	mux := http.NewServeMux()
	server.Register(context.Background(), mux)
	return mux
}

func serve(mux *http.ServeMux, method, target string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, target, nil)
	w := httptest.NewRecorder()
	mux.ServeHTTP(w, req)
	return w
}

func decodeNames(w *httptest.ResponseRecorder) []string {
	var rows []map[string]any
	So(json.Unmarshal(w.Body.Bytes(), &rows), ShouldBeNil)
	out := make([]string, len(rows))
	for i, r := range rows {
		out[i], _ = r["Name"].(string)
	}
	return out
}

func TestServer_Register(t *testing.T) {
	Convey("Given a registered API server", t, func() {
		mux := newMux(&mockDependencies{rows: fixtureRows()})

		Convey("Then health endpoint serves metrics", func() {
			w := serve(mux, "GET", "/healthz")
			So(w.Code, ShouldEqual, http.StatusOK)
		})

		Convey("And stats endpoint returns the provider's stats", func() {
			w := serve(mux, "GET", "/stats")
			So(w.Code, ShouldEqual, http.StatusOK)
			var body map[string]any
			So(json.Unmarshal(w.Body.Bytes(), &body), ShouldBeNil)
			So(body["rows"], ShouldEqual, float64(3))
			So(body["source"], ShouldEqual, "fixture")
		})

		Convey("And stats rejects other methods", func() {
			w := serve(mux, "POST", "/stats")
			So(w.Code, ShouldEqual, http.StatusMethodNotAllowed)
		})
	})
}

func TestLeadsHandler(t *testing.T) {
	Convey("Given the leads endpoint", t, func() {
		deps := &mockDependencies{rows: fixtureRows()}
		mux := newMux(deps)

		Convey("When listing without parameters", func() {
			w := serve(mux, "GET", "/api/leads")

			Convey("Then every lead is returned as JSON", func() {
				So(w.Code, ShouldEqual, http.StatusOK)
				So(w.Header().Get("Content-Type"), ShouldStartWith, "application/json")
				So(decodeNames(w), ShouldResemble, []string{"Ava", "Liam", "Mia"})
				So(deps.lastQuery.MinScore, ShouldEqual, 0.0)
			})

			Convey("And records use the schema column names", func() {
				var rows []map[string]any
				So(json.Unmarshal(w.Body.Bytes(), &rows), ShouldBeNil)
				So(rows[0], ShouldContainKey, "PredictedScore")
				So(rows[0], ShouldContainKey, "PastInteractionScore")
				So(rows[0], ShouldNotContainKey, "LeadScore")
			})

			Convey("And CORS and request ID headers are set", func() {
				So(w.Header().Get("Access-Control-Allow-Origin"), ShouldEqual, "http://localhost:3000")
				So(w.Header().Get(api.RequestIDHeader), ShouldNotBeEmpty)
				So(deps.requestID, ShouldEqual, w.Header().Get(api.RequestIDHeader))
			})
		})

		Convey("When filters and sort are given", func() {
			w := serve(mux, "GET", "/api/leads?industry=FIN&min_score=0.5&sort=desc")

			Convey("Then they reach the service", func() {
				So(w.Code, ShouldEqual, http.StatusOK)
				So(deps.lastQuery.Industry, ShouldEqual, "FIN")
				So(deps.lastQuery.MinScore, ShouldEqual, 0.5)
				So(deps.lastQuery.Sort, ShouldEqual, lead.SortDesc)
				So(decodeNames(w), ShouldResemble, []string{"Mia"})
			})
		})

		Convey("When nothing matches", func() {
			w := serve(mux, "GET", "/api/leads?min_score=0.95")

			Convey("Then the body is an empty array", func() {
				So(w.Code, ShouldEqual, http.StatusOK)
				So(strings.TrimSpace(w.Body.String()), ShouldEqual, "[]")
			})
		})

		Convey("When min_score is not a number", func() {
			w := serve(mux, "GET", "/api/leads?min_score=high")

			Convey("Then it should return 400 Bad Request", func() {
				So(w.Code, ShouldEqual, http.StatusBadRequest)
				var body map[string]string
				So(json.Unmarshal(w.Body.Bytes(), &body), ShouldBeNil)
				So(body["code"], ShouldEqual, "bad_request")
				So(body["message"], ShouldContainSubstring, "min_score")
			})
		})

		Convey("When min_score is NaN", func() {
			w := serve(mux, "GET", "/api/leads?min_score=NaN")
			So(w.Code, ShouldEqual, http.StatusBadRequest)
		})

		Convey("When sort is unknown", func() {
			w := serve(mux, "GET", "/api/leads?sort=random")
			So(w.Code, ShouldEqual, http.StatusBadRequest)
		})

		Convey("When the service fails", func() {
			deps.err = errors.New("model exploded")
			w := serve(mux, "GET", "/api/leads")

			Convey("Then it should return internal server error", func() {
				So(w.Code, ShouldEqual, http.StatusInternalServerError)
				So(w.Body.String(), ShouldContainSubstring, "internal_error")
			})
		})

		Convey("When the method is not GET", func() {
			w := serve(mux, "DELETE", "/api/leads")
			So(w.Code, ShouldEqual, http.StatusMethodNotAllowed)
			So(w.Header().Get("Allow"), ShouldEqual, "GET, HEAD")
		})

		Convey("When a preflight request arrives", func() {
			req := httptest.NewRequest("OPTIONS", "/api/leads", nil)
			req.Header.Set("Origin", "http://localhost:3000")
			req.Header.Set("Access-Control-Request-Method", "GET")
			w := httptest.NewRecorder()
			mux.ServeHTTP(w, req)

			Convey("Then it is answered without reaching the handler", func() {
				So(w.Code, ShouldEqual, http.StatusNoContent)
				So(w.Header().Get("Access-Control-Allow-Methods"), ShouldContainSubstring, "GET")
			})
		})

		Convey("When the client sends a request ID", func() {
			req := httptest.NewRequest("GET", "/api/leads", nil)
			req.Header.Set(api.RequestIDHeader, "abc-123")
			w := httptest.NewRecorder()
			mux.ServeHTTP(w, req)

			Convey("Then it is reused", func() {
				So(w.Header().Get(api.RequestIDHeader), ShouldEqual, "abc-123")
				So(deps.requestID, ShouldEqual, "abc-123")
			})
		})
	})
}

func TestExportHandler(t *testing.T) {
	Convey("Given the export endpoint", t, func() {
		deps := &mockDependencies{rows: fixtureRows()}
		mux := newMux(deps)

		Convey("When exporting with filters", func() {
			w := serve(mux, "GET", "/api/export?industry=fin&min_score=0.2")

			Convey("Then a CSV attachment of the filtered rows is returned", func() {
				So(w.Code, ShouldEqual, http.StatusOK)
				So(w.Header().Get("Content-Type"), ShouldEqual, "text/csv")
				So(w.Header().Get("Content-Disposition"), ShouldEqual, `attachment; filename="filtered_leads.csv"`)
				So(deps.lastFmt, ShouldEqual, repository.FormatCSV)

				parsed, err := repository.ReadScored(w.Body, repository.FormatCSV)
				So(err, ShouldBeNil)
				So(parsed, ShouldHaveLength, 2)
				So(parsed[0].Name, ShouldEqual, "Liam")
			})
		})

		Convey("When exporting XLSX", func() {
			w := serve(mux, "GET", "/api/export?format=xlsx")

			Convey("Then the workbook carries every row", func() {
				So(w.Code, ShouldEqual, http.StatusOK)
				So(w.Header().Get("Content-Disposition"), ShouldEqual, `attachment; filename="filtered_leads.xlsx"`)
				parsed, err := repository.ReadScored(w.Body, repository.FormatXLSX)
				So(err, ShouldBeNil)
				So(parsed, ShouldHaveLength, 3)
			})
		})

		Convey("When nothing matches", func() {
			w := serve(mux, "GET", "/api/export?min_score=0.99")

			Convey("Then only the header row is sent", func() {
				So(w.Code, ShouldEqual, http.StatusOK)
				So(w.Body.String(), ShouldEqual, strings.Join(lead.ScoredColumns, ",")+"\n")
			})
		})

		Convey("When the format is unknown", func() {
			w := serve(mux, "GET", "/api/export?format=pdf")
			So(w.Code, ShouldEqual, http.StatusBadRequest)
		})

		Convey("When min_score is malformed", func() {
			w := serve(mux, "GET", "/api/export?min_score=,")
			So(w.Code, ShouldEqual, http.StatusBadRequest)
		})

		Convey("When the service fails", func() {
			deps.err = errors.New("boom")
			w := serve(mux, "GET", "/api/export")
			So(w.Code, ShouldEqual, http.StatusInternalServerError)
		})
	})
}

func TestErrors(t *testing.T) {
	Convey("Given API error helpers", t, func() {
		cause := errors.New("cause")

		Convey("Then WrapKind matches kind and cause", func() {
			err := api.WrapKind("api.op", api.ErrBadRequest, cause)
			So(errors.Is(err, api.ErrBadRequest), ShouldBeTrue)
			So(errors.Is(err, cause), ShouldBeTrue)
			So(err.Error(), ShouldEqual, "api.op: bad request: cause")
		})

		Convey("And NewKind has only the kind", func() {
			err := api.NewKind("api.op", api.ErrMethodNotAllowed)
			So(errors.Is(err, api.ErrMethodNotAllowed), ShouldBeTrue)
			So(err.Error(), ShouldEqual, "api.op: method not allowed")
		})
	})
}
