package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"transporter-onboarding/internal/config"
	"transporter-onboarding/internal/models"
	"transporter-onboarding/internal/repository"
	"transporter-onboarding/internal/service"
	"transporter-onboarding/internal/worker"

	"github.com/gofiber/fiber/v2"
	"github.com/hibiken/asynq"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const validUpload = "Company Name,GST/PAN,Email ID,Contact Name,Contact Number\n" +
	"Sharma Roadways,27AAPFU0939F1ZV,ops@sharma.in,Ravi Sharma,9876543210\n" +
	"Blocked Movers,AAAA1234K,blocked@movers.in,Kiran Das,9000000001\n"

type apiResponse struct {
	Success bool            `json:"success"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
	Error   string          `json:"error"`
}

type memoryJobs struct {
	jobs map[string]models.ImportJob
}

func (m *memoryJobs) Save(ctx context.Context, job *models.ImportJob) error {
	m.jobs[job.BatchCode] = *job
	return nil
}

func (m *memoryJobs) Get(ctx context.Context, code string) (*models.ImportJob, error) {
	job, ok := m.jobs[code]
	if !ok {
		return nil, repository.ErrJobNotFound
	}
	return &job, nil
}

type recordingEnqueuer struct {
	tasks []*asynq.Task
}

func (r *recordingEnqueuer) Enqueue(task *asynq.Task, opts ...asynq.Option) (*asynq.TaskInfo, error) {
	r.tasks = append(r.tasks, task)
	return &asynq.TaskInfo{ID: "task-1", Type: task.Type()}, nil
}

type testEnv struct {
	app    *fiber.App
	cfg    *config.Config
	store  repository.Store
	jobs   *memoryJobs
	queue  *recordingEnqueuer
	intake *service.IntakeService
}

func newTestEnv(t *testing.T, store repository.Store, async bool) *testEnv {
	t.Helper()

	logger := logrus.New()
	logger.SetOutput(io.Discard)

	root := t.TempDir()
	cfg := &config.Config{
		AppName:       "test",
		StoreDriver:   "file",
		UploadMaxSize: 10 * 1024 * 1024,
		UploadPath:    filepath.Join(root, "uploads"),
		ExportPath:    filepath.Join(root, "exports"),
	}
	if store == nil {
		store = repository.NewFileRepository(filepath.Join(root, "transporters.csv"))
	}

	intake := service.NewIntakeService(
		service.NewValidationEngine(logger),
		service.NewBlocklist(service.DefaultDisallowedIDs),
		store,
		cfg.ExportPath,
		logger,
	)

	env := &testEnv{cfg: cfg, store: store, intake: intake}

	var jobs repository.JobStore
	var queue TaskEnqueuer
	if async {
		env.jobs = &memoryJobs{jobs: map[string]models.ImportJob{}}
		env.queue = &recordingEnqueuer{}
		jobs = env.jobs
		queue = env.queue
	}

	uploadHandler := NewUploadHandler(intake, jobs, queue, cfg, logger)
	transporterHandler := NewTransporterHandler(intake)

	app := fiber.New()
	transporters := app.Group("/api/v1/transporters")
	transporters.Get("/", transporterHandler.GetTransporters)
	transporters.Post("/", transporterHandler.CreateTransporter)
	transporters.Get("/template", transporterHandler.DownloadTemplate)
	transporters.Post("/import", uploadHandler.ImportTransporters)
	transporters.Get("/import/:code", uploadHandler.GetImportJob)
	transporters.Get("/reports/:filename", uploadHandler.DownloadReport)
	env.app = app

	return env
}

func uploadRequest(t *testing.T, target, filename, content string) *http.Request {
	t.Helper()

	var body bytes.Buffer
	w := multipart.NewWriter(&body)
	part, err := w.CreateFormFile("file", filename)
	require.NoError(t, err)
	_, err = part.Write([]byte(content))
	require.NoError(t, err)
	require.NoError(t, w.Close())

	req := httptest.NewRequest(http.MethodPost, target, &body)
	req.Header.Set("Content-Type", w.FormDataContentType())
	return req
}

func doRequest(t *testing.T, app *fiber.App, req *http.Request) (*http.Response, apiResponse) {
	t.Helper()

	resp, err := app.Test(req, -1)
	require.NoError(t, err)

	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	var body apiResponse
	if strings.HasPrefix(resp.Header.Get("Content-Type"), "application/json") {
		require.NoError(t, json.Unmarshal(raw, &body), string(raw))
	}
	return resp, body
}

func TestImportTransportersSync(t *testing.T) {
	env := newTestEnv(t, nil, false)

	resp, body := doRequest(t, env.app, uploadRequest(t, "/api/v1/transporters/import", "batch.csv", validUpload))
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.True(t, body.Success)
	assert.Equal(t, "Processing Complete: 1 successful, 1 failed.", body.Message)

	var data struct {
		Summary       models.ImportSummary   `json:"summary"`
		Outcomes      []models.RecordOutcome `json:"outcomes"`
		ProcessedFile string                 `json:"processed_file"`
		RejectedFile  string                 `json:"rejected_file"`
	}
	require.NoError(t, json.Unmarshal(body.Data, &data))
	assert.Equal(t, 1, data.Summary.AcceptedCount)
	assert.True(t, data.Summary.Persisted)
	require.Len(t, data.Outcomes, 2)
	assert.Equal(t, models.StatusRejectedDisallowedIdentifier, data.Outcomes[1].Status)
	require.NotEmpty(t, data.RejectedFile)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/transporters/reports/"+data.RejectedFile, nil)
	resp, err := env.app.Test(req, -1)
	require.NoError(t, err)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	report, _ := io.ReadAll(resp.Body)
	assert.Contains(t, string(report), "AAAA1234K")
	assert.NotContains(t, string(report), "27AAPFU0939F1ZV")
}

func TestImportTransportersMissingColumn(t *testing.T) {
	env := newTestEnv(t, nil, false)
	content := "Company Name,Email ID,Contact Name,Contact Number\nAcme,a@acme.in,A,1\n"

	resp, body := doRequest(t, env.app, uploadRequest(t, "/api/v1/transporters/import", "batch.csv", content))
	require.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
	assert.False(t, body.Success)

	var data struct {
		MissingColumns []string `json:"missing_columns"`
	}
	require.NoError(t, json.Unmarshal(body.Data, &data))
	assert.Equal(t, []string{"GST/PAN"}, data.MissingColumns)

	stored, err := env.store.LoadAll(context.Background())
	require.NoError(t, err)
	assert.Empty(t, stored)
}

func TestImportTransportersRejectsBadRequests(t *testing.T) {
	env := newTestEnv(t, nil, false)

	resp, _ := doRequest(t, env.app, uploadRequest(t, "/api/v1/transporters/import", "notes.txt", "hello"))
	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/transporters/import", nil)
	resp, body := doRequest(t, env.app, req)
	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "File is required", body.Message)

	env.cfg.UploadMaxSize = 10
	resp, _ = doRequest(t, env.app, uploadRequest(t, "/api/v1/transporters/import", "batch.csv", validUpload))
	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
}

func TestImportTransportersAsyncUnavailable(t *testing.T) {
	env := newTestEnv(t, nil, false)

	resp, _ := doRequest(t, env.app, uploadRequest(t, "/api/v1/transporters/import?async=true", "batch.csv", validUpload))
	assert.Equal(t, fiber.StatusServiceUnavailable, resp.StatusCode)
}

func TestImportTransportersAsync(t *testing.T) {
	env := newTestEnv(t, nil, true)

	resp, body := doRequest(t, env.app, uploadRequest(t, "/api/v1/transporters/import?async=true", "batch.csv", validUpload))
	require.Equal(t, fiber.StatusAccepted, resp.StatusCode)
	assert.Equal(t, "Import queued", body.Message)

	require.Len(t, env.queue.tasks, 1)
	task := env.queue.tasks[0]
	assert.Equal(t, worker.TypeTransporterImport, task.Type())

	var payload worker.ImportTaskPayload
	require.NoError(t, json.Unmarshal(task.Payload(), &payload))
	assert.Equal(t, "batch.csv", payload.Filename)

	saved, err := os.ReadFile(payload.FilePath)
	require.NoError(t, err)
	assert.Equal(t, validUpload, string(saved))

	job, ok := env.jobs.jobs[payload.BatchCode]
	require.True(t, ok)
	assert.Equal(t, models.JobQueued, job.Status)

	// Nothing is evaluated until the worker runs.
	stored, err := env.store.LoadAll(context.Background())
	require.NoError(t, err)
	assert.Empty(t, stored)

	resp, body = doRequest(t, env.app, httptest.NewRequest(http.MethodGet, "/api/v1/transporters/import/"+payload.BatchCode, nil))
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.True(t, body.Success)

	resp, _ = doRequest(t, env.app, httptest.NewRequest(http.MethodGet, "/api/v1/transporters/import/UPLOAD-unknown", nil))
	assert.Equal(t, fiber.StatusNotFound, resp.StatusCode)
}

func jsonRequest(method, target string, v interface{}) *http.Request {
	payload, _ := json.Marshal(v)
	req := httptest.NewRequest(method, target, bytes.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	return req
}

func TestCreateTransporter(t *testing.T) {
	env := newTestEnv(t, nil, false)
	req := models.TransporterRequest{
		CompanyName:   "Manual Movers",
		TaxID:         "MAN1",
		Email:         "manual@movers.in",
		ContactName:   "Asha",
		ContactNumber: "9000000000",
	}

	resp, body := doRequest(t, env.app, jsonRequest(http.MethodPost, "/api/v1/transporters", req))
	require.Equal(t, fiber.StatusCreated, resp.StatusCode)
	assert.Equal(t, "Transporter created successfully", body.Message)

	resp, body = doRequest(t, env.app, jsonRequest(http.MethodPost, "/api/v1/transporters", req))
	assert.Equal(t, fiber.StatusUnprocessableEntity, resp.StatusCode)
	assert.Equal(t, "Failure, company already exists", body.Message)

	resp, body = doRequest(t, env.app, jsonRequest(http.MethodPost, "/api/v1/transporters", models.TransporterRequest{TaxID: "X"}))
	assert.Equal(t, fiber.StatusUnprocessableEntity, resp.StatusCode)
	assert.Equal(t, "Failure, missing Company Name, Email ID, Contact Name, Contact Number", body.Message)
}

type brokenStore struct{}

func (brokenStore) Lock(ctx context.Context) (func() error, error) {
	return func() error { return nil }, nil
}

func (brokenStore) LoadAll(ctx context.Context) ([]models.Transporter, error) { return nil, nil }

func (brokenStore) Append(ctx context.Context, transporters []models.Transporter) error {
	return errors.New("disk full")
}

func TestCreateTransporterStoreFailure(t *testing.T) {
	env := newTestEnv(t, brokenStore{}, false)

	resp, body := doRequest(t, env.app, jsonRequest(http.MethodPost, "/api/v1/transporters", models.TransporterRequest{
		CompanyName:   "A",
		TaxID:         "A1",
		Email:         "a@a.in",
		ContactName:   "A",
		ContactNumber: "1",
	}))
	assert.Equal(t, fiber.StatusInternalServerError, resp.StatusCode)
	assert.Equal(t, "Transporter passed validation but could not be saved", body.Message)
	assert.Contains(t, body.Error, "disk full")
}

func TestGetTransporters(t *testing.T) {
	env := newTestEnv(t, nil, false)
	doRequest(t, env.app, uploadRequest(t, "/api/v1/transporters/import", "batch.csv", validUpload))

	resp, err := env.app.Test(httptest.NewRequest(http.MethodGet, "/api/v1/transporters?search=sharma&limit=10", nil), -1)
	require.NoError(t, err)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)

	var body struct {
		Data struct {
			Transporters []models.Transporter `json:"transporters"`
		} `json:"data"`
		Pagination struct {
			Total int64 `json:"total"`
		} `json:"pagination"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, int64(1), body.Pagination.Total)
	require.Len(t, body.Data.Transporters, 1)
	assert.Equal(t, "27AAPFU0939F1ZV", body.Data.Transporters[0].TaxID)
}

func TestDownloadTemplate(t *testing.T) {
	env := newTestEnv(t, nil, false)

	resp, err := env.app.Test(httptest.NewRequest(http.MethodGet, "/api/v1/transporters/template?format=csv", nil), -1)
	require.NoError(t, err)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.Contains(t, resp.Header.Get("Content-Disposition"), "transporter_template.csv")
	content, _ := io.ReadAll(resp.Body)
	assert.True(t, strings.HasPrefix(string(content), "Company Name,GST/PAN"))

	resp, err = env.app.Test(httptest.NewRequest(http.MethodGet, "/api/v1/transporters/template", nil), -1)
	require.NoError(t, err)
	assert.Contains(t, resp.Header.Get("Content-Disposition"), "transporter_template.xlsx")

	resp, err = env.app.Test(httptest.NewRequest(http.MethodGet, "/api/v1/transporters/template?format=pdf", nil), -1)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
}

func TestDownloadReportValidation(t *testing.T) {
	env := newTestEnv(t, nil, false)

	resp, _ := doRequest(t, env.app, httptest.NewRequest(http.MethodGet, "/api/v1/transporters/reports/transporters.csv", nil))
	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)

	resp, _ = doRequest(t, env.app, httptest.NewRequest(http.MethodGet, "/api/v1/transporters/reports/processed_UPLOAD-none.csv", nil))
	assert.Equal(t, fiber.StatusNotFound, resp.StatusCode)
}
