package server

import (
	"fmt"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"
	"github.com/sirupsen/logrus"

	"github.com/inferloop/sdc/internal/dataset"
	"github.com/inferloop/sdc/internal/export"
	"github.com/inferloop/sdc/internal/observability/health"
	"github.com/inferloop/sdc/internal/privacy"
	"github.com/inferloop/sdc/internal/validation"
	"github.com/inferloop/sdc/pkg/constants"
	"github.com/inferloop/sdc/pkg/errors"
	"github.com/inferloop/sdc/pkg/interfaces"
	"github.com/inferloop/sdc/pkg/models"
)

// datasetInput accepts either a full dataset or a bare record list
type datasetInput struct {
	Dataset *models.Dataset `json:"dataset,omitempty"`
	Records []models.Record `json:"records,omitempty"`
}

func (in datasetInput) dataset() *models.Dataset {
	if in.Dataset != nil {
		return in.Dataset
	}
	return models.NewDataset(nil, in.Records)
}

type assessRiskRequest struct {
	datasetInput
	QuasiIdentifiers     []string `json:"quasi_identifiers"`
	KThreshold           *int     `json:"k_threshold,omitempty"`
	SampleSizePct        float64  `json:"sample_size_pct,omitempty"`
	PopulationMultiplier float64  `json:"population_multiplier,omitempty"`
}

type kAnonymityRequest struct {
	datasetInput
	QuasiIdentifiers []string `json:"quasi_identifiers"`
	K                *int     `json:"k,omitempty"`
	SuppressionLimit *float64 `json:"suppression_limit,omitempty"`
}

type lDiversityRequest struct {
	datasetInput
	QuasiIdentifiers   []string `json:"quasi_identifiers"`
	SensitiveAttribute string   `json:"sensitive_attribute"`
	L                  *int     `json:"l,omitempty"`
	Model              string   `json:"model,omitempty"`
	RecursiveC         float64  `json:"recursive_c,omitempty"`
	SuppressionLimit   *float64 `json:"suppression_limit,omitempty"`
}

type tClosenessRequest struct {
	datasetInput
	QuasiIdentifiers   []string `json:"quasi_identifiers"`
	SensitiveAttribute string   `json:"sensitive_attribute"`
	T                  *float64 `json:"t,omitempty"`
	SuppressionLimit   *float64 `json:"suppression_limit,omitempty"`
}

type differentialPrivacyRequest struct {
	datasetInput
	Columns   []string `json:"columns"`
	Epsilon   *float64 `json:"epsilon,omitempty"`
	Mechanism string   `json:"mechanism,omitempty"`
}

type syntheticDataRequest struct {
	datasetInput
	Method        string   `json:"method,omitempty"`
	Columns       []string `json:"columns"`
	TargetSizePct float64  `json:"target_size_pct,omitempty"`
}

// measureUtilityRequest compares original with either processed or the
// dataset stored under OperationID.
type measureUtilityRequest struct {
	validation.UtilityOptions
	Original    *models.Dataset `json:"original"`
	Processed   *models.Dataset `json:"processed,omitempty"`
	OperationID string          `json:"operation_id,omitempty"`
}

type capabilitiesResponse struct {
	Techniques       []string `json:"techniques"`
	Mechanisms       []string `json:"mechanisms"`
	SyntheticMethods []string `json:"synthetic_methods"`
	DiversityModels  []string `json:"diversity_models"`
	ExportFormats    []string `json:"export_formats"`
}

type listOperationsResponse struct {
	Operations []*models.Operation `json:"operations"`
	Count      int                 `json:"count"`
}

func intOr(v *int, def int) int {
	if v == nil {
		return def
	}
	return *v
}

func floatOr(v *float64, def float64) float64 {
	if v == nil {
		return def
	}
	return *v
}

func nonZero(v, def float64) float64 {
	if v == 0 {
		return def
	}
	return v
}

func orString(v, def string) string {
	if v == "" {
		return def
	}
	return v
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	status := s.health.Check(r.Context())
	code := http.StatusOK
	if status.OverallStatus == health.StatusUnhealthy {
		code = http.StatusServiceUnavailable
	}
	s.writeJSON(w, code, status)
}

func (s *Server) handleVersion(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, s.build)
}

func (s *Server) handleCapabilities(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, capabilitiesResponse{
		Techniques: []string{
			constants.TechniqueKAnonymity,
			constants.TechniqueLDiversity,
			constants.TechniqueTCloseness,
			constants.TechniqueDifferentialPrivacy,
			constants.TechniqueSyntheticData,
		},
		Mechanisms:       s.engine.Mechanisms(),
		SyntheticMethods: s.engine.SyntheticMethods(),
		DiversityModels: []string{
			constants.DiversityDistinct,
			constants.DiversityEntropy,
			constants.DiversityRecursive,
		},
		ExportFormats: s.exporters.Formats(),
	})
}

func (s *Server) handleAssessRisk(w http.ResponseWriter, r *http.Request) {
	var req assessRiskRequest
	if err := decodeJSON(r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}

	metrics, err := s.engine.ComputeRiskMetrics(r.Context(), req.dataset(), privacy.RiskOptions{
		QuasiIdentifiers:     req.QuasiIdentifiers,
		KThreshold:           intOr(req.KThreshold, s.defaults.KThreshold),
		SampleSizePct:        nonZero(req.SampleSizePct, s.defaults.SampleSizePct),
		PopulationMultiplier: nonZero(req.PopulationMultiplier, s.defaults.PopulationMultiplier),
	})
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, metrics)
}

func (s *Server) handleKAnonymity(w http.ResponseWriter, r *http.Request) {
	var req kAnonymityRequest
	if err := decodeJSON(r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}

	result, err := s.engine.ApplyKAnonymity(r.Context(), req.dataset(), privacy.KAnonymityConfig{
		QuasiIdentifiers: req.QuasiIdentifiers,
		K:                intOr(req.K, s.defaults.K),
		SuppressionLimit: floatOr(req.SuppressionLimit, s.defaults.SuppressionLimit),
	})
	s.respondAnonymization(w, r, result, err)
}

func (s *Server) handleLDiversity(w http.ResponseWriter, r *http.Request) {
	var req lDiversityRequest
	if err := decodeJSON(r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}

	result, err := s.engine.ApplyLDiversity(r.Context(), req.dataset(), privacy.LDiversityConfig{
		QuasiIdentifiers:   req.QuasiIdentifiers,
		SensitiveAttribute: req.SensitiveAttribute,
		L:                  intOr(req.L, s.defaults.L),
		Model:              orString(req.Model, s.defaults.DiversityModel),
		RecursiveC:         req.RecursiveC,
		SuppressionLimit:   floatOr(req.SuppressionLimit, s.defaults.SuppressionLimit),
	})
	s.respondAnonymization(w, r, result, err)
}

func (s *Server) handleTCloseness(w http.ResponseWriter, r *http.Request) {
	var req tClosenessRequest
	if err := decodeJSON(r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}

	result, err := s.engine.ApplyTCloseness(r.Context(), req.dataset(), privacy.TClosenessConfig{
		QuasiIdentifiers:   req.QuasiIdentifiers,
		SensitiveAttribute: req.SensitiveAttribute,
		T:                  floatOr(req.T, s.defaults.T),
		SuppressionLimit:   floatOr(req.SuppressionLimit, s.defaults.SuppressionLimit),
	})
	s.respondAnonymization(w, r, result, err)
}

func (s *Server) handleDifferentialPrivacy(w http.ResponseWriter, r *http.Request) {
	var req differentialPrivacyRequest
	if err := decodeJSON(r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}

	result, err := s.engine.ApplyDifferentialPrivacy(r.Context(), req.dataset(), privacy.DPConfig{
		Columns:   req.Columns,
		Epsilon:   floatOr(req.Epsilon, s.defaults.Epsilon),
		Mechanism: orString(req.Mechanism, s.defaults.Mechanism),
	})
	s.respondAnonymization(w, r, result, err)
}

func (s *Server) handleSyntheticData(w http.ResponseWriter, r *http.Request) {
	var req syntheticDataRequest
	if err := decodeJSON(r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}

	result, err := s.engine.GenerateSynthetic(r.Context(), req.dataset(), interfaces.GenerationConfig{
		Method:        orString(req.Method, s.defaults.SyntheticMethod),
		Columns:       req.Columns,
		TargetSizePct: nonZero(req.TargetSizePct, s.defaults.TargetSizePct),
	})
	s.respondAnonymization(w, r, result, err)
}

func (s *Server) respondAnonymization(w http.ResponseWriter, r *http.Request, result *models.AnonymizationResult, err error) {
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, result)
}

func (s *Server) handleMeasureUtility(w http.ResponseWriter, r *http.Request) {
	var req measureUtilityRequest
	if err := decodeJSON(r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}

	var (
		measurement *models.UtilityMeasurement
		err         error
	)
	switch {
	case req.Processed != nil:
		measurement, err = s.engine.MeasureUtility(r.Context(), req.Original, req.Processed, req.UtilityOptions)
	case req.OperationID != "":
		measurement, err = s.engine.MeasureOperationUtility(r.Context(), req.Original, req.OperationID, req.UtilityOptions)
	default:
		err = errors.InvalidArgument(errors.ErrInvalidInputData, errors.CodeMissingField,
			"either processed or operation_id is required")
	}
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, measurement)
}

func (s *Server) handleListOperations(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()

	filter := interfaces.ListFilter{Kind: models.OperationKind(query.Get("kind"))}
	switch filter.Kind {
	case "", models.OperationKindRisk, models.OperationKindAnonymization, models.OperationKindUtility:
	default:
		s.writeError(w, r, badQuery("kind", query.Get("kind")))
		return
	}

	if raw := query.Get("limit"); raw != "" {
		limit, err := strconv.Atoi(raw)
		if err != nil || limit < 0 {
			s.writeError(w, r, badQuery("limit", raw))
			return
		}
		filter.Limit = limit
	}

	ops, err := s.engine.ListOperations(r.Context(), filter)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if ops == nil {
		ops = []*models.Operation{}
	}
	s.writeJSON(w, http.StatusOK, listOperationsResponse{Operations: ops, Count: len(ops)})
}

func (s *Server) handleGetOperation(w http.ResponseWriter, r *http.Request) {
	op, err := s.engine.GetOperation(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, op)
}

func (s *Server) handleDeleteOperation(w http.ResponseWriter, r *http.Request) {
	if err := s.engine.DeleteOperation(r.Context(), mux.Vars(r)["id"]); err != nil {
		s.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// handleDownload streams the anonymized dataset of an operation as an attachment
func (s *Server) handleDownload(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]

	exporter, err := s.exporters.Get(r.URL.Query().Get("format"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	op, err := s.engine.GetOperation(r.Context(), id)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if op.Anonymization == nil || op.Anonymization.Dataset == nil {
		s.writeError(w, r, errors.InvalidArgument(errors.ErrNotAnonymization, errors.CodeNotAnonymization,
			fmt.Sprintf("operation %s has no dataset to download", id)))
		return
	}

	w.Header().Set(constants.HeaderContentType, exporter.ContentType())
	w.Header().Set(constants.HeaderContentDisposition,
		fmt.Sprintf(`attachment; filename="%s"`, export.Filename(id, exporter.Format())))

	if err := exporter.Export(r.Context(), w, op.Anonymization.Dataset); err != nil {
		// Headers are gone; the client sees a truncated body.
		s.logger.WithFields(logrus.Fields{
			"operation_id": id,
			"request_id":   requestIDFrom(r),
		}).WithError(err).Error("Export failed")
	}
}

// handleParse converts a raw CSV or JSON upload into a dataset
func (s *Server) handleParse(w http.ResponseWriter, r *http.Request) {
	format := r.URL.Query().Get("format")
	if format == "" {
		format = constants.FormatCSV
	}

	ds, err := dataset.Load(r.Body, format)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, ds)
}

func (s *Server) handleQuality(w http.ResponseWriter, r *http.Request) {
	var req datasetInput
	if err := decodeJSON(r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, dataset.AssessQuality(req.dataset()))
}

func (s *Server) handleAutoFix(w http.ResponseWriter, r *http.Request) {
	var req datasetInput
	if err := decodeJSON(r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}

	result, err := s.fixer.AutoFix(r.Context(), req.dataset())
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, result)
}

func (s *Server) handleNotFound(w http.ResponseWriter, r *http.Request) {
	appErr := errors.NewAppError(errors.ErrorTypeValidation, errors.CodeRouteNotFound,
		fmt.Sprintf("no route for %s %s", r.Method, r.URL.Path))
	appErr.HTTPStatus = http.StatusNotFound
	s.writeError(w, r, appErr)
}

func (s *Server) handleMethodNotAllowed(w http.ResponseWriter, r *http.Request) {
	appErr := errors.NewAppError(errors.ErrorTypeValidation, errors.CodeMethodNotAllowed,
		fmt.Sprintf("method %s not allowed on %s", r.Method, r.URL.Path))
	appErr.HTTPStatus = http.StatusMethodNotAllowed
	s.writeError(w, r, appErr)
}
