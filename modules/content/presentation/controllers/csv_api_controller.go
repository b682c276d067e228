package controllers

import (
	"encoding/json"
	"net/http"
	"os"
	"path/filepath"
	"regexp"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gorilla/mux"
	"github.com/sirupsen/logrus"

	"github.com/qoox/smartcsv/modules/content/presentation/controllers/dtos"
	"github.com/qoox/smartcsv/modules/content/services"
)

const uploadFieldName = "csv_file"

var exportFilePattern = regexp.MustCompile(`^[A-Za-z0-9_-]+_export_[0-9]{8}_[0-9]{6}\.(csv|xlsx)$`)

type CSVAPIControllerConfig struct {
	BasePath      string
	FieldService  *services.FieldService
	ExportService *services.ExportService
	BatchService  *services.BatchService
	MaxUploadSize int64
	Logger        *logrus.Logger
}

type CSVAPIController struct {
	basePath      string
	fields        *services.FieldService
	exporter      *services.ExportService
	batch         *services.BatchService
	maxUploadSize int64
	validate      *validator.Validate
	logger        *logrus.Logger
}

func NewCSVAPIController(cfg CSVAPIControllerConfig) *CSVAPIController {
	maxUpload := cfg.MaxUploadSize
	if maxUpload <= 0 {
		maxUpload = 32 << 20
	}
	return &CSVAPIController{
		basePath:      cfg.BasePath,
		fields:        cfg.FieldService,
		exporter:      cfg.ExportService,
		batch:         cfg.BatchService,
		maxUploadSize: maxUpload,
		validate:      validator.New(),
		logger:        cfg.Logger,
	}
}

func (c *CSVAPIController) Key() string {
	return "CSVAPIController"
}

func (c *CSVAPIController) Register(r *mux.Router) {
	router := r.PathPrefix(c.basePath).Subrouter()

	router.HandleFunc("/fields", c.getFields).Methods(http.MethodGet)
	router.HandleFunc("/export", c.export).Methods(http.MethodPost)
	router.HandleFunc("/import/count", c.countImport).Methods(http.MethodPost)
	router.HandleFunc("/import/batch", c.applyBatch).Methods(http.MethodPost)
	router.HandleFunc("/cleanup", c.cleanup).Methods(http.MethodPost)
	router.HandleFunc("/exports/{filename}", c.downloadExport).Methods(http.MethodGet)
}

func (c *CSVAPIController) getFields(w http.ResponseWriter, r *http.Request) {
	recordType := r.URL.Query().Get("type")
	if recordType == "" {
		writeJSONError(w, http.StatusBadRequest, services.CodeValidationError, "type query parameter is required")
		return
	}

	groups, err := c.fields.GetAvailableFields(r.Context(), recordType)
	if err != nil {
		c.logger.WithError(err).Error("failed to list available fields")
		writeServiceError(w, err)
		return
	}

	resp := dtos.FieldsResponse{Groups: make([]dtos.FieldGroupDTO, 0, len(groups))}
	for _, g := range groups {
		dto := dtos.FieldGroupDTO{Key: g.Key, Label: g.Label, Fields: make([]dtos.FieldDTO, 0, len(g.Fields))}
		for _, f := range g.Fields {
			dto.Fields = append(dto.Fields, dtos.FieldDTO{Key: f.Key, Label: f.Label})
		}
		resp.Groups = append(resp.Groups, dto)
	}
	writeJSON(w, http.StatusOK, resp)
}

func (c *CSVAPIController) export(w http.ResponseWriter, r *http.Request) {
	var req dtos.ExportRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSONError(w, http.StatusBadRequest, services.CodeValidationError, "invalid request body")
		return
	}
	if err := c.validate.Struct(&req); err != nil {
		writeJSONError(w, http.StatusBadRequest, services.CodeValidationError, err.Error())
		return
	}

	criteria := services.ExportCriteria{
		Type:     req.Type,
		Statuses: req.Statuses,
		Fields:   req.Fields,
		Limit:    req.Limit,
		Offset:   req.Offset,
		Format:   req.Format,
	}
	if req.DateFrom != "" {
		from, err := parseDateBound(req.DateFrom)
		if err != nil {
			writeJSONError(w, http.StatusBadRequest, services.CodeValidationError, "invalid date_from")
			return
		}
		criteria.DateFrom = &from
	}
	if req.DateTo != "" {
		to, err := parseDateBound(req.DateTo)
		if err != nil {
			writeJSONError(w, http.StatusBadRequest, services.CodeValidationError, "invalid date_to")
			return
		}
		criteria.DateTo = &to
	}

	res, err := c.exporter.Export(r.Context(), criteria)
	if err != nil {
		c.logger.WithError(err).WithField("type", req.Type).Error("export failed")
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, dtos.ExportResponse{
		Filename: res.Filename,
		URL:      c.basePath + "/exports/" + res.Filename,
	})
}

func (c *CSVAPIController) countImport(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, c.maxUploadSize)
	if err := r.ParseMultipartForm(c.maxUploadSize); err != nil {
		writeJSONError(w, http.StatusBadRequest, services.CodeValidationError, "invalid multipart request")
		return
	}

	file, _, err := r.FormFile(uploadFieldName)
	if err != nil {
		writeJSONError(w, http.StatusBadRequest, services.CodeValidationError, "csv_file is required")
		return
	}
	defer func() { _ = file.Close() }()

	res, err := c.batch.Count(r.Context(), file)
	if err != nil {
		c.logger.WithError(err).Error("failed to stage import file")
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, dtos.CountResponse{
		TotalRows:  res.TotalRows,
		StagedFile: res.StagedFile,
	})
}

func (c *CSVAPIController) applyBatch(w http.ResponseWriter, r *http.Request) {
	var req dtos.BatchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSONError(w, http.StatusBadRequest, services.CodeValidationError, "invalid request body")
		return
	}
	if err := c.validate.Struct(&req); err != nil {
		writeJSONError(w, http.StatusBadRequest, services.CodeValidationError, err.Error())
		return
	}

	mode, err := services.ParseImportMode(req.Mode)
	if err != nil {
		writeJSONError(w, http.StatusBadRequest, services.CodeValidationError, err.Error())
		return
	}

	res, err := c.batch.ApplyBatch(r.Context(), req.StagedFile, req.Offset, req.ChunkSize, mode)
	if err != nil {
		c.logger.WithError(err).WithField("staged_file", req.StagedFile).Error("batch import failed")
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, dtos.BatchResponse{
		Processed:  res.Processed,
		Created:    res.Tally.Created,
		Updated:    res.Tally.Updated,
		Skipped:    res.Tally.Skipped,
		Errors:     res.Tally.Errors,
		HasMore:    res.HasMore,
		NextOffset: res.NextOffset,
	})
}

func (c *CSVAPIController) cleanup(w http.ResponseWriter, r *http.Request) {
	c.batch.Cleanup(r.Context())
	writeJSON(w, http.StatusOK, dtos.CleanupResponse{Status: "ok"})
}

func (c *CSVAPIController) downloadExport(w http.ResponseWriter, r *http.Request) {
	filename := mux.Vars(r)["filename"]
	if !exportFilePattern.MatchString(filename) {
		writeJSONError(w, http.StatusBadRequest, services.CodeValidationError, "invalid export filename")
		return
	}

	path := filepath.Join(c.exporter.Dir(), filename)
	if _, err := os.Stat(path); err != nil {
		writeJSONError(w, http.StatusNotFound, services.CodeNoData, "export file not found")
		return
	}

	w.Header().Set("Content-Disposition", `attachment; filename="`+filename+`"`)
	http.ServeFile(w, r, path)
}

func parseDateBound(s string) (time.Time, error) {
	if t, err := time.Parse("2006-01-02", s); err == nil {
		return t, nil
	}
	return time.Parse(time.RFC3339, s)
}
