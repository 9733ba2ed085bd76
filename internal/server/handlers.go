package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/splitsend/splitsend/internal/engine"
	"github.com/splitsend/splitsend/internal/store"
)

type testResponse struct {
	ID        int64  `json:"id"`
	OwnerID   int64  `json:"owner_id"`
	Name      string `json:"name"`
	EmailType string `json:"email_type"`
	Status    string `json:"status"`
	CreatedAt int64  `json:"created_at"`
}

type variantResponse struct {
	ID                int64  `json:"id"`
	TestID            int64  `json:"test_id"`
	Label             string `json:"label"`
	Subject           string `json:"subject"`
	Body              string `json:"body"`
	TrafficAllocation int    `json:"traffic_allocation"`
	SentCount         int    `json:"sent_count"`
	OpenCount         int    `json:"open_count"`
	ClickCount        int    `json:"click_count"`
	ReplyCount        int    `json:"reply_count"`
	ConversionCount   int    `json:"conversion_count"`
	OpenRate          int    `json:"open_rate"`
	ClickRate         int    `json:"click_rate"`
	ReplyRate         int    `json:"reply_rate"`
	ConversionRate    int    `json:"conversion_rate"`
	IsWinner          bool   `json:"is_winner"`
}

type snapshotResponse struct {
	ID              int64 `json:"id"`
	TestID          int64 `json:"test_id"`
	VariantID       int64 `json:"variant_id"`
	SentCount       int   `json:"sent_count"`
	OpenCount       int   `json:"open_count"`
	ClickCount      int   `json:"click_count"`
	ReplyCount      int   `json:"reply_count"`
	ConversionCount int   `json:"conversion_count"`
	OpenRate        int   `json:"open_rate"`
	ClickRate       int   `json:"click_rate"`
	ReplyRate       int   `json:"reply_rate"`
	ConversionRate  int   `json:"conversion_rate"`
	ConfidenceLevel int   `json:"confidence_level"`
	CreatedAt       int64 `json:"created_at"`
}

func toTestResponse(t *store.Test) testResponse {
	return testResponse{
		ID:        t.ID,
		OwnerID:   t.OwnerID,
		Name:      t.Name,
		EmailType: string(t.EmailType),
		Status:    string(t.Status),
		CreatedAt: t.CreatedAt.Unix(),
	}
}

func toVariantResponse(v *store.Variant) variantResponse {
	return variantResponse{
		ID:                v.ID,
		TestID:            v.TestID,
		Label:             v.Label,
		Subject:           v.Subject,
		Body:              v.Body,
		TrafficAllocation: v.TrafficAllocation,
		SentCount:         v.SentCount,
		OpenCount:         v.OpenCount,
		ClickCount:        v.ClickCount,
		ReplyCount:        v.ReplyCount,
		ConversionCount:   v.ConversionCount,
		OpenRate:          v.OpenRate,
		ClickRate:         v.ClickRate,
		ReplyRate:         v.ReplyRate,
		ConversionRate:    v.ConversionRate,
		IsWinner:          v.IsWinner,
	}
}

func toSnapshotResponse(snap *store.Snapshot) snapshotResponse {
	return snapshotResponse{
		ID:              snap.ID,
		TestID:          snap.TestID,
		VariantID:       snap.VariantID,
		SentCount:       snap.SentCount,
		OpenCount:       snap.OpenCount,
		ClickCount:      snap.ClickCount,
		ReplyCount:      snap.ReplyCount,
		ConversionCount: snap.ConversionCount,
		OpenRate:        snap.OpenRate,
		ClickRate:       snap.ClickRate,
		ReplyRate:       snap.ReplyRate,
		ConversionRate:  snap.ConversionRate,
		ConfidenceLevel: snap.ConfidenceLevel,
		CreatedAt:       snap.CreatedAt.Unix(),
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// writeError maps engine/store errors onto HTTP status codes. Not-found
// conditions are 404, validation failures 400, and business-state conflicts
// (test not running, no variants) 409.
func writeError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, engine.ErrTestNotFound), errors.Is(err, engine.ErrVariantNotFound):
		status = http.StatusNotFound
	case errors.Is(err, engine.ErrInvalidAllocation), errors.Is(err, engine.ErrInvalidInput):
		status = http.StatusBadRequest
	case errors.Is(err, engine.ErrTestNotRunning), errors.Is(err, engine.ErrNoVariantsAvailable):
		status = http.StatusConflict
	}
	writeJSON(w, status, map[string]string{"error": err.Error()})
}

type healthResponse struct {
	Status        string `json:"status"`
	TestsCount    int    `json:"tests_count"`
	UptimeSeconds int64  `json:"uptime_seconds"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var count int
	row := s.store.DB().QueryRow("SELECT COUNT(*) FROM tests")
	if err := row.Scan(&count); err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, healthResponse{
		Status:        "ok",
		TestsCount:    count,
		UptimeSeconds: int64(time.Since(s.startTime).Seconds()),
	})
}

type createTestRequest struct {
	OwnerID   int64  `json:"owner_id"`
	Name      string `json:"name"`
	EmailType string `json:"email_type"`
	Variants  []struct {
		Label             string `json:"label"`
		Subject           string `json:"subject"`
		Body              string `json:"body"`
		TrafficAllocation int    `json:"traffic_allocation"`
	} `json:"variants"`
}

type testWithVariantsResponse struct {
	Test     testResponse      `json:"test"`
	Variants []variantResponse `json:"variants"`
}

func (s *Server) handleTests(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodPost:
		s.handleCreateTest(w, r)
	case http.MethodGet:
		s.handleListTests(w, r)
	default:
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
	}
}

func (s *Server) handleCreateTest(w http.ResponseWriter, r *http.Request) {
	var req createTestRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid JSON", http.StatusBadRequest)
		return
	}

	specs := make([]store.VariantSpec, 0, len(req.Variants))
	for _, v := range req.Variants {
		specs = append(specs, store.VariantSpec{
			Label:             v.Label,
			Subject:           v.Subject,
			Body:              v.Body,
			TrafficAllocation: v.TrafficAllocation,
		})
	}

	test, variants, err := s.engine.CreateTest(r.Context(), engine.CreateTestRequest{
		OwnerID:   req.OwnerID,
		Name:      req.Name,
		EmailType: store.EmailType(req.EmailType),
		Variants:  specs,
	})
	if err != nil {
		writeError(w, err)
		return
	}

	resp := testWithVariantsResponse{Test: toTestResponse(test)}
	for _, v := range variants {
		resp.Variants = append(resp.Variants, toVariantResponse(v))
	}
	writeJSON(w, http.StatusCreated, resp)
}

func (s *Server) handleListTests(w http.ResponseWriter, r *http.Request) {
	ownerStr := r.URL.Query().Get("owner")
	if ownerStr == "" {
		http.Error(w, "owner parameter required", http.StatusBadRequest)
		return
	}
	ownerID, err := strconv.ParseInt(ownerStr, 10, 64)
	if err != nil {
		http.Error(w, "invalid owner parameter", http.StatusBadRequest)
		return
	}

	tests, err := s.engine.ListTestsForOwner(r.Context(), ownerID)
	if err != nil {
		writeError(w, err)
		return
	}

	resp := make([]testResponse, 0, len(tests))
	for _, t := range tests {
		resp = append(resp, toTestResponse(t))
	}
	writeJSON(w, http.StatusOK, resp)
}

// handleTestByID routes /api/tests/{id} and /api/tests/{id}/{action}.
func (s *Server) handleTestByID(w http.ResponseWriter, r *http.Request) {
	rest := strings.TrimPrefix(r.URL.Path, "/api/tests/")
	parts := strings.SplitN(strings.Trim(rest, "/"), "/", 2)

	testID, err := strconv.ParseInt(parts[0], 10, 64)
	if err != nil {
		http.Error(w, "invalid test id", http.StatusBadRequest)
		return
	}

	action := ""
	if len(parts) == 2 {
		action = parts[1]
	}

	switch action {
	case "":
		s.handleGetTest(w, r, testID)
	case "variants":
		s.handleVariants(w, r, testID)
	case "comparison":
		s.handleComparison(w, r, testID)
	case "snapshots":
		s.handleSnapshots(w, r, testID)
	case "select":
		s.handleSelect(w, r, testID)
	case "evaluate":
		s.handleEvaluate(w, r, testID)
	case "promote":
		s.handlePromote(w, r, testID)
	case "cancel":
		s.handleCancel(w, r, testID)
	default:
		http.NotFound(w, r)
	}
}

func (s *Server) handleGetTest(w http.ResponseWriter, r *http.Request, testID int64) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	test, err := s.engine.GetTest(r.Context(), testID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toTestResponse(test))
}

func (s *Server) handleVariants(w http.ResponseWriter, r *http.Request, testID int64) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	variants, err := s.engine.ListVariants(r.Context(), testID)
	if err != nil {
		writeError(w, err)
		return
	}
	resp := make([]variantResponse, 0, len(variants))
	for _, v := range variants {
		resp = append(resp, toVariantResponse(v))
	}
	writeJSON(w, http.StatusOK, resp)
}

type comparisonCell struct {
	PValue          float64 `json:"p_value"`
	ConfidenceLevel int     `json:"confidence_level"`
	Significant     bool    `json:"significant"`
}

type comparisonVariant struct {
	variantResponse
	Rate    float64 `json:"rate"`
	CILower float64 `json:"ci_lower"`
	CIUpper float64 `json:"ci_upper"`
}

type comparisonResponse struct {
	Test     testResponse        `json:"test"`
	Variants []comparisonVariant `json:"variants"`
	Winner   *variantResponse    `json:"winner,omitempty"`
	Leading  int                 `json:"leading"`
	Matrix   [][]comparisonCell  `json:"matrix"`
}

func (s *Server) handleComparison(w http.ResponseWriter, r *http.Request, testID int64) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	view, err := s.engine.Compare(r.Context(), testID)
	if err != nil {
		writeError(w, err)
		return
	}

	resp := comparisonResponse{
		Test:    toTestResponse(view.Test),
		Leading: view.Leading,
		Matrix:  make([][]comparisonCell, len(view.Matrix)),
	}
	for _, vc := range view.Variants {
		resp.Variants = append(resp.Variants, comparisonVariant{
			variantResponse: toVariantResponse(vc.Variant),
			Rate:            vc.Rate,
			CILower:         vc.CILower,
			CIUpper:         vc.CIUpper,
		})
	}
	if view.Winner != nil {
		winner := toVariantResponse(view.Winner)
		resp.Winner = &winner
	}
	for i, row := range view.Matrix {
		resp.Matrix[i] = make([]comparisonCell, len(row))
		for j, cell := range row {
			resp.Matrix[i][j] = comparisonCell{
				PValue:          cell.PValue,
				ConfidenceLevel: cell.ConfidenceLevel,
				Significant:     cell.Significant,
			}
		}
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleSnapshots(w http.ResponseWriter, r *http.Request, testID int64) {
	switch r.Method {
	case http.MethodGet:
		snapshots, err := s.engine.ListSnapshots(r.Context(), testID)
		if err != nil {
			writeError(w, err)
			return
		}
		resp := make([]snapshotResponse, 0, len(snapshots))
		for _, snap := range snapshots {
			resp = append(resp, toSnapshotResponse(snap))
		}
		writeJSON(w, http.StatusOK, resp)
	case http.MethodPost:
		snapshots, err := s.engine.CreateSnapshot(r.Context(), testID)
		if err != nil {
			writeError(w, err)
			return
		}
		resp := make([]snapshotResponse, 0, len(snapshots))
		for _, snap := range snapshots {
			resp = append(resp, toSnapshotResponse(snap))
		}
		writeJSON(w, http.StatusCreated, resp)
	default:
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
	}
}

func (s *Server) handleSelect(w http.ResponseWriter, r *http.Request, testID int64) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	variant, err := s.engine.SelectVariant(r.Context(), testID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toVariantResponse(variant))
}

type evaluateResponse struct {
	Outcome string           `json:"outcome"` // "winner" or "no_winner"
	Winner  *variantResponse `json:"winner,omitempty"`
}

func (s *Server) handleEvaluate(w http.ResponseWriter, r *http.Request, testID int64) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	winner, err := s.engine.DetermineWinner(r.Context(), testID)
	if err != nil {
		writeError(w, err)
		return
	}

	resp := evaluateResponse{Outcome: "no_winner"}
	if winner != nil {
		resp.Outcome = "winner"
		v := toVariantResponse(winner)
		resp.Winner = &v
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handlePromote(w http.ResponseWriter, r *http.Request, testID int64) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	promoted, err := s.engine.AutoPromote(r.Context(), testID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"promoted": promoted})
}

func (s *Server) handleCancel(w http.ResponseWriter, r *http.Request, testID int64) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	if err := s.engine.CancelTest(r.Context(), testID); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type eventRequest struct {
	VariantID int64  `json:"variant_id"`
	Kind      string `json:"kind"` // sent, open, click, reply, conversion
}

// handleEvents receives delivery and engagement reports from the mail
// sending and tracking collaborators, one call per event.
func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req eventRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid JSON", http.StatusBadRequest)
		return
	}

	kind := store.EventKind(req.Kind)
	var err error
	if kind == store.EventSent {
		err = s.engine.RecordSent(r.Context(), req.VariantID)
	} else {
		err = s.engine.RecordEngagement(r.Context(), req.VariantID, kind)
	}
	if err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
