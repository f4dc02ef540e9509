package http

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dojo-hub/dojo-community-hub/internal/application/command"
	"github.com/dojo-hub/dojo-community-hub/internal/application/query"
	"github.com/dojo-hub/dojo-community-hub/internal/domain/belt"
	"github.com/dojo-hub/dojo-community-hub/internal/domain/roster"
	"github.com/dojo-hub/dojo-community-hub/internal/domain/student"
	"github.com/dojo-hub/dojo-community-hub/internal/infrastructure/persistence/memory"
	"github.com/dojo-hub/dojo-community-hub/internal/infrastructure/spreadsheet"
	"github.com/dojo-hub/dojo-community-hub/internal/interface/http/handlers"
	"github.com/dojo-hub/dojo-community-hub/pkg/timeutil"
)

// ─────────────────────────────────────────────────────────────────────────────
// Fixture
// ─────────────────────────────────────────────────────────────────────────────

type testServer struct {
	srv  *Server
	repo *memory.StudentRepository
}

func newTestServer(t *testing.T, cfg Config, students ...*student.Student) *testServer {
	t.Helper()
	clock := timeutil.NewFixedClock(timeutil.Date(2026, 3, 2))
	db := memory.OpenWithClock(clock)
	repo := memory.NewStudentRepository(db)
	drafts := memory.NewDraftStore(db)
	if len(students) > 0 {
		require.NoError(t, repo.SaveStudents(context.Background(), students))
	}

	ledger := belt.DefaultLedger()
	policy := belt.DefaultPointsPolicy()
	importCfg := command.ImportHandlerConfig{
		Pipeline:    roster.NewPipeline(ledger, policy, roster.NewDirectory(nil)),
		Drafts:      drafts,
		StudentRepo: repo,
		Decoder:     spreadsheet.Decode,
		Clock:       clock,
	}

	srv := NewServer(cfg, Dependencies{
		CommitSession: command.NewCommitSessionHandler(command.CommitSessionHandlerConfig{
			StudentRepo: repo,
			Policy:      policy,
			Ledger:      ledger,
			Clock:       clock,
		}),
		SetReadiness: command.NewSetReadinessHandler(repo, policy, nil, nil),
		PromoteStudent: command.NewPromoteStudentHandler(command.PromoteStudentHandlerConfig{
			StudentRepo: repo,
			Ledger:      ledger,
			Clock:       clock,
		}),
		PreviewImport: command.NewPreviewImportHandler(importCfg),
		EditImportRow: command.NewEditImportRowHandler(importCfg),
		CommitImport:  command.NewCommitImportHandler(importCfg),
		GetProgress:   query.NewGetStudentProgressHandler(repo, ledger, policy),
		GetRoster:     query.NewGetRosterHandler(repo, ledger, policy),
		Ledger:        ledger,
		Drafts:        drafts,
		Template:      spreadsheet.Template,
		HealthChecker: handlers.NewCompositeHealthChecker("test"),
	})
	return &testServer{srv: srv, repo: repo}
}

type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   *APIError       `json:"error"`
	Meta    *ResponseMeta   `json:"meta"`
}

func (ts *testServer) do(t *testing.T, method, path, body string, headers ...string) (int, envelope) {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if body != "" {
		req.Header.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)
	}
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}
	resp, err := ts.srv.App().Test(req, -1)
	require.NoError(t, err)
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	var env envelope
	require.NoError(t, json.Unmarshal(raw, &env), string(raw))
	return resp.StatusCode, env
}

func decode[T any](t *testing.T, env envelope) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(env.Data, &v))
	return v
}

func ready(id string) *student.Student {
	return &student.Student{ID: id, Name: "Ready " + id, BeltID: "white", TotalPoints: 400, Stripes: 4, IsReadyForGrading: true}
}

// ─────────────────────────────────────────────────────────────────────────────
// Coach endpoints
// ─────────────────────────────────────────────────────────────────────────────

func TestHealthAndBelts(t *testing.T) {
	ts := newTestServer(t, DefaultConfig())

	req := httptest.NewRequest(fiber.MethodGet, "/health", nil)
	resp, err := ts.srv.App().Test(req, -1)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.NotEmpty(t, resp.Header.Get(handlers.HeaderRequestID))

	status, env := ts.do(t, fiber.MethodGet, "/api/v1/belts", "")
	require.Equal(t, fiber.StatusOK, status)
	belts := decode[[]query.BeltDTO](t, env)
	require.Len(t, belts, 6)
	assert.Equal(t, "white", belts[0].ID)
}

func TestCommitSession_ThenProgress(t *testing.T) {
	ts := newTestServer(t, DefaultConfig(),
		&student.Student{ID: "ana", Name: "Ana", BeltID: "white", TotalPoints: 90},
		&student.Student{ID: "ben", Name: "Ben", BeltID: "white"},
	)

	body := `{
		"date": "2026-03-02",
		"skills": [{"id": "kicks", "name": "Kicks"}, {"id": "forms", "name": "Forms"}],
		"entries": [
			{"student_id": "ana", "attending": true, "scores": {"kicks": 2, "forms": null}, "bonus": 10},
			{"student_id": "ben", "attending": false}
		]
	}`
	status, env := ts.do(t, fiber.MethodPost, "/api/v1/sessions/commit", body)
	require.Equal(t, fiber.StatusOK, status, env.Error)

	res := decode[commitSessionResponse](t, env)
	assert.Equal(t, 1, res.Attending)
	assert.Equal(t, 12, res.TotalPoints)
	assert.Equal(t, 1, res.StripesEarned)
	require.Len(t, res.Outcomes, 1)
	assert.Equal(t, 102, res.Outcomes[0].PointsAfter)

	status, env = ts.do(t, fiber.MethodGet, "/api/v1/students/ana/progress", "")
	require.Equal(t, fiber.StatusOK, status)
	progress := decode[query.StudentProgressDTO](t, env)
	assert.Equal(t, 1, progress.Stripes)
	assert.Equal(t, 98, progress.PointsToNextStripe)
	assert.Equal(t, 1, progress.AttendanceCount)
}

func TestCommitSession_ValidationUsesJSONNames(t *testing.T) {
	ts := newTestServer(t, DefaultConfig())

	status, env := ts.do(t, fiber.MethodPost, "/api/v1/sessions/commit", `{"date": "02/03/2026", "entries": [{"attending": true}]}`)
	require.Equal(t, fiber.StatusBadRequest, status)
	require.NotNil(t, env.Error)
	assert.Equal(t, "validation_failed", env.Error.Code)
	assert.Contains(t, env.Error.Fields, "skills")
	assert.Contains(t, env.Error.Fields, "date")
	assert.Contains(t, env.Error.Fields, "entries[0].student_id")

	status, env = ts.do(t, fiber.MethodPost, "/api/v1/sessions/commit", `{not json`)
	assert.Equal(t, fiber.StatusBadRequest, status)
	assert.Equal(t, "invalid_request", env.Error.Code)
}

func TestCommitSession_UnknownStudentIs404(t *testing.T) {
	ts := newTestServer(t, DefaultConfig())

	status, env := ts.do(t, fiber.MethodPost, "/api/v1/sessions/commit",
		`{"skills": [{"id": "kicks"}], "entries": [{"student_id": "ghost", "attending": true}]}`)
	assert.Equal(t, fiber.StatusNotFound, status)
	assert.Equal(t, "not_found", env.Error.Code)
}

func TestReadinessAndPromotion(t *testing.T) {
	ts := newTestServer(t, DefaultConfig(),
		&student.Student{ID: "low", Name: "Low", BeltID: "white", TotalPoints: 100, Stripes: 1},
		ready("top"),
	)

	status, env := ts.do(t, fiber.MethodPost, "/api/v1/students/low/readiness", `{"ready": true}`)
	assert.Equal(t, fiber.StatusConflict, status)
	assert.Equal(t, "conflict", env.Error.Code)

	status, env = ts.do(t, fiber.MethodPost, "/api/v1/students/low/readiness", `{}`)
	assert.Equal(t, fiber.StatusBadRequest, status)
	assert.Contains(t, env.Error.Fields, "ready")

	status, _ = ts.do(t, fiber.MethodPost, "/api/v1/students/nobody/readiness", `{"ready": false}`)
	assert.Equal(t, fiber.StatusNotFound, status)

	status, env = ts.do(t, fiber.MethodPost, "/api/v1/students/low/promote", "")
	require.Equal(t, fiber.StatusOK, status)
	skipped := decode[promotionResponse](t, env)
	assert.False(t, skipped.Promoted)
	assert.Equal(t, "not_ready", skipped.SkipReason)

	status, env = ts.do(t, fiber.MethodPost, "/api/v1/students/top/promote", "")
	require.Equal(t, fiber.StatusOK, status)
	promoted := decode[promotionResponse](t, env)
	assert.True(t, promoted.Promoted)
	require.NotNil(t, promoted.To)
	assert.Equal(t, "yellow", *promoted.To)
	assert.Equal(t, "Congratulations Ready top on earning the Yellow belt!", promoted.Message)

	s, err := ts.repo.GetByID(context.Background(), "top")
	require.NoError(t, err)
	assert.Equal(t, "yellow", s.BeltID)
	assert.Zero(t, s.TotalPoints)
}

func TestRoster_FiltersAndPages(t *testing.T) {
	ts := newTestServer(t, DefaultConfig(),
		&student.Student{ID: "1", Name: "Ana", BeltID: "white", Location: "Downtown"},
		&student.Student{ID: "2", Name: "Ben", BeltID: "white", Location: "Downtown"},
		&student.Student{ID: "3", Name: "Cai", BeltID: "white", Location: "Harbor"},
	)

	status, env := ts.do(t, fiber.MethodGet, "/api/v1/students?location=Downtown&limit=1", "")
	require.Equal(t, fiber.StatusOK, status)
	entries := decode[[]query.RosterEntryDTO](t, env)
	require.Len(t, entries, 1)
	assert.Equal(t, "Ana", entries[0].Name)
	assert.Equal(t, 2, env.Meta.TotalCount)
	assert.True(t, env.Meta.HasMore)

	status, _ = ts.do(t, fiber.MethodGet, "/api/v1/students?limit=9000", "")
	assert.Equal(t, fiber.StatusBadRequest, status)
}

// ─────────────────────────────────────────────────────────────────────────────
// Import endpoints
// ─────────────────────────────────────────────────────────────────────────────

func TestImportFlow_TextPreviewEditCommit(t *testing.T) {
	ts := newTestServer(t, DefaultConfig())
	text := "Name,Age,Birthday,Gender,Belt,Stripes\nAna,9,2016-04-02,F,Yellow,2\nBen,10,,M,Purple,1\n"
	payload, err := json.Marshal(previewRequest{Text: text, Location: "Downtown"})
	require.NoError(t, err)

	status, env := ts.do(t, fiber.MethodPost, "/api/v1/imports", string(payload))
	require.Equal(t, fiber.StatusCreated, status, env.Error)
	preview := decode[batchResponse](t, env)
	assert.Equal(t, 1, preview.Report.ValidCount)
	assert.Equal(t, 1, preview.Report.ErrorCount)

	status, env = ts.do(t, fiber.MethodPost, "/api/v1/imports", string(payload))
	require.Equal(t, fiber.StatusOK, status)
	assert.True(t, decode[batchResponse](t, env).Reused)

	status, env = ts.do(t, fiber.MethodGet, "/api/v1/imports/"+preview.BatchID, "")
	require.Equal(t, fiber.StatusOK, status)
	assert.Equal(t, preview.BatchID, decode[batchResponse](t, env).Report.BatchID)

	status, env = ts.do(t, fiber.MethodPatch, "/api/v1/imports/"+preview.BatchID+"/rows/1", `{"belt": "Green"}`)
	require.Equal(t, fiber.StatusOK, status, env.Error)
	edited := decode[editRowResponse](t, env)
	assert.Equal(t, roster.RowValid, edited.Row.Status)
	assert.Equal(t, "green", edited.Row.BeltID)
	assert.Equal(t, 2, edited.Report.ValidCount)

	status, _ = ts.do(t, fiber.MethodPatch, "/api/v1/imports/"+preview.BatchID+"/rows/7", `{"belt": "Green"}`)
	assert.Equal(t, fiber.StatusBadRequest, status)

	status, env = ts.do(t, fiber.MethodPost, "/api/v1/imports/"+preview.BatchID+"/commit", "")
	require.Equal(t, fiber.StatusOK, status, env.Error)
	committed := decode[commitImportResponse](t, env)
	assert.Equal(t, 2, committed.Imported)
	assert.Zero(t, committed.Skipped)

	n, err := ts.repo.Count(context.Background(), student.ListOptions{Location: "Downtown"})
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	status, _ = ts.do(t, fiber.MethodPost, "/api/v1/imports/"+preview.BatchID+"/commit", "")
	assert.Equal(t, fiber.StatusNotFound, status)
}

func TestImport_MultipartWorkbook(t *testing.T) {
	ts := newTestServer(t, DefaultConfig())
	workbook, err := spreadsheet.Template()
	require.NoError(t, err)

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	require.NoError(t, mw.WriteField("location", "Harbor"))
	part, err := mw.CreateFormFile("file", "roster.xlsx")
	require.NoError(t, err)
	_, err = part.Write(workbook)
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(fiber.MethodPost, "/api/v1/imports", &body)
	req.Header.Set(fiber.HeaderContentType, mw.FormDataContentType())
	resp, err := ts.srv.App().Test(req, -1)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, fiber.StatusCreated, resp.StatusCode)

	var env envelope
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&env))
	preview := decode[batchResponse](t, env)
	assert.Equal(t, 1, preview.Report.ValidCount)
	assert.Equal(t, "Harbor", preview.Report.Rows[0].Location)
}

func TestImport_LegacyWorkbookRejected(t *testing.T) {
	ts := newTestServer(t, DefaultConfig())

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	part, err := mw.CreateFormFile("file", "roster.xls")
	require.NoError(t, err)
	_, err = part.Write([]byte{0xD0, 0xCF, 0x11, 0xE0})
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(fiber.MethodPost, "/api/v1/imports", &body)
	req.Header.Set(fiber.HeaderContentType, mw.FormDataContentType())
	resp, err := ts.srv.App().Test(req, -1)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
}

func TestImport_OversizedUploadRejected(t *testing.T) {
	ts := newTestServer(t, DefaultConfig())

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	part, err := mw.CreateFormFile("file", "roster.csv")
	require.NoError(t, err)
	_, err = part.Write(bytes.Repeat([]byte("a"), spreadsheet.MaxFileSize+1))
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(fiber.MethodPost, "/api/v1/imports", &body)
	req.Header.Set(fiber.HeaderContentType, mw.FormDataContentType())
	resp, err := ts.srv.App().Test(req, -1)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)

	var env envelope
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&env))
	require.NotNil(t, env.Error)
	assert.Contains(t, env.Error.Message, "larger than")
}

func TestImport_TemplateAndAPIKey(t *testing.T) {
	cfg := DefaultConfig()
	cfg.APIKeys = []string{"secret"}
	ts := newTestServer(t, cfg)

	status, env := ts.do(t, fiber.MethodGet, "/api/v1/imports/template", "")
	assert.Equal(t, fiber.StatusUnauthorized, status)
	assert.Equal(t, "unauthorized", env.Error.Code)

	req := httptest.NewRequest(fiber.MethodGet, "/api/v1/imports/template", nil)
	req.Header.Set("X-API-Key", "secret")
	resp, err := ts.srv.App().Test(req, -1)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.Equal(t, mimeXLSX, resp.Header.Get(fiber.HeaderContentType))

	req = httptest.NewRequest(fiber.MethodGet, "/api/v1/imports/template?format=csv", nil)
	req.Header.Set(fiber.HeaderAuthorization, "Bearer secret")
	resp, err = ts.srv.App().Test(req, -1)
	require.NoError(t, err)
	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Equal(t, roster.Template(), string(raw))

	// Coach routes stay open.
	status, _ = ts.do(t, fiber.MethodGet, "/api/v1/belts", "")
	assert.Equal(t, fiber.StatusOK, status)
}
