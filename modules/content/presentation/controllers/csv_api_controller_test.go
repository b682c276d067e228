package controllers_test

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gorilla/mux"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/qoox/smartcsv/modules/content/domain/record"
	"github.com/qoox/smartcsv/modules/content/domain/user"
	"github.com/qoox/smartcsv/modules/content/infrastructure/persistence"
	"github.com/qoox/smartcsv/modules/content/presentation/controllers"
	"github.com/qoox/smartcsv/modules/content/presentation/controllers/dtos"
	"github.com/qoox/smartcsv/modules/content/services"
	"github.com/qoox/smartcsv/pkg/eventbus"
)

type apiFixture struct {
	records *persistence.InmemRecordRepository
	taxos   *persistence.InmemTaxonomyRepository
	metas   *persistence.InmemMetaRepository
	server  *httptest.Server
}

func newAPIFixture(t *testing.T) *apiFixture {
	t.Helper()

	logger := logrus.New()
	logger.SetLevel(logrus.PanicLevel)
	bus := eventbus.NewEventPublisher(logger)

	records := persistence.NewInmemRecordRepository(
		persistence.RecordTypeDef{Name: "post", SupportsThumbnail: true},
		persistence.RecordTypeDef{Name: "page"},
	)
	taxos := persistence.NewInmemTaxonomyRepository()
	metas := persistence.NewInmemMetaRepository(records, bus)
	users := persistence.NewInmemUserRepository(user.User{ID: 7, Login: "editor"})
	assets := persistence.NewInmemAttachmentResolver(nil)

	fields := services.NewFieldService(services.FieldServiceConfig{
		RecordRepo:   records,
		TaxonomyRepo: taxos,
		MetaRepo:     metas,
		EventBus:     bus,
		Logger:       logger,
	})
	resolver := services.NewFieldResolver(services.FieldResolverConfig{
		RecordRepo:   records,
		TaxonomyRepo: taxos,
		MetaRepo:     metas,
		UserRepo:     users,
		Attachments:  assets,
	})
	importer := services.NewImportService(services.ImportServiceConfig{
		RecordRepo:   records,
		TaxonomyRepo: taxos,
		MetaRepo:     metas,
		UserRepo:     users,
		Attachments:  assets,
		Logger:       logger,
	})
	exporter := services.NewExportService(services.ExportServiceConfig{
		RecordRepo:   records,
		FieldService: fields,
		Resolver:     resolver,
		ExportDir:    t.TempDir(),
		Logger:       logger,
	})
	batch := services.NewBatchService(services.BatchServiceConfig{
		Importer:   importer,
		StagingDir: t.TempDir(),
		Logger:     logger,
	})

	controller := controllers.NewCSVAPIController(controllers.CSVAPIControllerConfig{
		BasePath:      "/api/csv",
		FieldService:  fields,
		ExportService: exporter,
		BatchService:  batch,
		Logger:        logger,
	})

	router := mux.NewRouter()
	controller.Register(router)

	server := httptest.NewServer(router)
	t.Cleanup(server.Close)

	return &apiFixture{records: records, taxos: taxos, metas: metas, server: server}
}

func (f *apiFixture) postJSON(t *testing.T, path string, payload any) *http.Response {
	t.Helper()

	body, err := json.Marshal(payload)
	require.NoError(t, err)

	resp, err := http.Post(f.server.URL+path, "application/json", bytes.NewReader(body))
	require.NoError(t, err)
	return resp
}

func decodeBody[T any](t *testing.T, resp *http.Response) T {
	t.Helper()
	defer func() { _ = resp.Body.Close() }()

	var out T
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	return out
}

func uploadCSV(t *testing.T, f *apiFixture, content string) *http.Response {
	t.Helper()

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	part, err := mw.CreateFormFile("csv_file", "upload.csv")
	require.NoError(t, err)
	_, err = io.Copy(part, strings.NewReader(content))
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	resp, err := http.Post(f.server.URL+"/api/csv/import/count", mw.FormDataContentType(), &buf)
	require.NoError(t, err)
	return resp
}

func TestAPI_GetFields(t *testing.T) {
	t.Parallel()

	f := newAPIFixture(t)

	resp, err := http.Get(f.server.URL + "/api/csv/fields?type=post")
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	body := decodeBody[dtos.FieldsResponse](t, resp)
	require.NotEmpty(t, body.Groups)
	assert.Equal(t, "basic", body.Groups[0].Key)
	assert.Equal(t, "id", body.Groups[0].Fields[0].Key)
}

func TestAPI_GetFieldsRequiresType(t *testing.T) {
	t.Parallel()

	f := newAPIFixture(t)

	resp, err := http.Get(f.server.URL + "/api/csv/fields")
	require.NoError(t, err)
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)

	body := decodeBody[dtos.APIError](t, resp)
	assert.Equal(t, services.CodeValidationError, body.Code)
}

func TestAPI_ExportNoData(t *testing.T) {
	t.Parallel()

	f := newAPIFixture(t)

	resp := f.postJSON(t, "/api/csv/export", dtos.ExportRequest{Type: "post"})
	require.Equal(t, http.StatusNotFound, resp.StatusCode)

	body := decodeBody[dtos.APIError](t, resp)
	assert.Equal(t, services.CodeNoData, body.Code)
}

func TestAPI_ExportAndDownload(t *testing.T) {
	t.Parallel()

	f := newAPIFixture(t)
	ctx := context.Background()

	_, err := f.records.Create(ctx, &record.Record{Type: "post", Title: "Hello", Status: "publish"})
	require.NoError(t, err)

	resp := f.postJSON(t, "/api/csv/export", dtos.ExportRequest{Type: "post"})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	body := decodeBody[dtos.ExportResponse](t, resp)
	assert.True(t, strings.HasPrefix(body.Filename, "post_export_"))

	dl, err := http.Get(f.server.URL + body.URL)
	require.NoError(t, err)
	defer func() { _ = dl.Body.Close() }()
	require.Equal(t, http.StatusOK, dl.StatusCode)

	data, err := io.ReadAll(dl.Body)
	require.NoError(t, err)
	assert.Contains(t, string(data), "Hello")
}

func TestAPI_DownloadRejectsTraversal(t *testing.T) {
	t.Parallel()

	f := newAPIFixture(t)

	resp, err := http.Get(f.server.URL + "/api/csv/exports/..%2F..%2Fetc%2Fpasswd")
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()
	assert.NotEqual(t, http.StatusOK, resp.StatusCode)
}

func TestAPI_ImportFlow(t *testing.T) {
	t.Parallel()

	f := newAPIFixture(t)

	csv := "type,title,status\n" +
		"post,First,publish\n" +
		"post,Second,publish\n" +
		"page,Third,draft\n"

	resp := uploadCSV(t, f, csv)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	count := decodeBody[dtos.CountResponse](t, resp)
	require.Equal(t, 3, count.TotalRows)
	require.NotEmpty(t, count.StagedFile)

	resp = f.postJSON(t, "/api/csv/import/batch", dtos.BatchRequest{
		StagedFile: count.StagedFile,
		Offset:     0,
		ChunkSize:  2,
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	batch := decodeBody[dtos.BatchResponse](t, resp)
	assert.Equal(t, 2, batch.Processed)
	assert.True(t, batch.HasMore)

	resp = f.postJSON(t, "/api/csv/import/batch", dtos.BatchRequest{
		StagedFile: count.StagedFile,
		Offset:     batch.NextOffset,
		ChunkSize:  2,
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	batch = decodeBody[dtos.BatchResponse](t, resp)
	assert.Equal(t, 1, batch.Processed)
	assert.False(t, batch.HasMore)

	recs, err := f.records.List(context.Background(), record.Query{Type: record.TypeAll})
	require.NoError(t, err)
	assert.Len(t, recs, 3)

	resp = f.postJSON(t, "/api/csv/cleanup", struct{}{})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	cleanup := decodeBody[dtos.CleanupResponse](t, resp)
	assert.Equal(t, "ok", cleanup.Status)

	resp = f.postJSON(t, "/api/csv/import/batch", dtos.BatchRequest{
		StagedFile: count.StagedFile,
		ChunkSize:  2,
	})
	assert.Equal(t, http.StatusInternalServerError, resp.StatusCode)
	_ = resp.Body.Close()
}

func TestAPI_BatchValidation(t *testing.T) {
	t.Parallel()

	f := newAPIFixture(t)

	resp := f.postJSON(t, "/api/csv/import/batch", dtos.BatchRequest{})
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
	body := decodeBody[dtos.APIError](t, resp)
	assert.Equal(t, services.CodeValidationError, body.Code)

	resp = f.postJSON(t, "/api/csv/import/batch", dtos.BatchRequest{
		StagedFile: "import_x.csv",
		Mode:       "upsert",
	})
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
	_ = resp.Body.Close()
}

func TestAPI_CountRejectsMissingFile(t *testing.T) {
	t.Parallel()

	f := newAPIFixture(t)

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	require.NoError(t, mw.WriteField("unrelated", "x"))
	require.NoError(t, mw.Close())

	resp, err := http.Post(f.server.URL+"/api/csv/import/count", mw.FormDataContentType(), &buf)
	require.NoError(t, err)
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
	_ = resp.Body.Close()
}
