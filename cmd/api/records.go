package main

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/Johnhpure/product-audit/internal/domain"
	"github.com/Johnhpure/product-audit/internal/repo"
	"github.com/go-chi/chi"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
)

type CreateAuditRecordRequest struct {
	ProductID        string `json:"productId" validate:"required"`
	ProductTitle     string `json:"productTitle" validate:"required"`
	ProductImage     string `json:"productImage"`
	SubmitTime       string `json:"submitTime"`
	AIProcessingTime int64  `json:"aiProcessingTime"`
	AuditStage       string `json:"auditStage" validate:"required,oneof=text image business_scope"`
	Verdict          string `json:"verdict" validate:"omitempty,oneof=passed rejected"`
	RejectionReason  string `json:"rejectionReason"`
	APIError         string `json:"apiError"`
	TextRequest      string `json:"textRequest"`
	TextResponse     string `json:"textResponse"`
	ImageRequest     string `json:"imageRequest"`
	ImageResponse    string `json:"imageResponse"`
	ScopeRequest     string `json:"scopeRequest"`
	ScopeResponse    string `json:"scopeResponse"`
	UserID           string `json:"userId"`
	Username         string `json:"username"`
}

type UpdateManualStatusRequest struct {
	Status string `json:"status" validate:"required,oneof=pending approved rejected"`
}

func (app *application) createAuditRecordHandler(w http.ResponseWriter, r *http.Request) {
	var req CreateAuditRecordRequest
	if err := readJSON(w, r, &req); err != nil {
		app.badRequestResponse(w, r, err)
		return
	}

	if err := Validate.Struct(req); err != nil {
		app.badRequestResponse(w, r, err)
		return
	}

	verdict := domain.Verdict(req.Verdict)
	if verdict == "" {
		verdict = domain.VerdictRejected
	}

	submitTime := time.Now()
	if req.SubmitTime != "" {
		if parsed, err := time.Parse(time.RFC3339, req.SubmitTime); err == nil {
			submitTime = parsed
		}
	}

	record := domain.AuditRecord{
		ProductID:        req.ProductID,
		ProductTitle:     req.ProductTitle,
		ProductImage:     req.ProductImage,
		SubmitTime:       submitTime,
		AIProcessingTime: req.AIProcessingTime,
		AuditStage:       domain.AuditStage(req.AuditStage),
		Verdict:          verdict,
		RejectionReason:  req.RejectionReason,
		APIError:         req.APIError,
		TextRequest:      req.TextRequest,
		TextResponse:     req.TextResponse,
		ImageRequest:     req.ImageRequest,
		ImageResponse:    req.ImageResponse,
		ScopeRequest:     req.ScopeRequest,
		ScopeResponse:    req.ScopeResponse,
		UserID:           req.UserID,
		Username:         req.Username,
		ManualStatus:     domain.ManualPending,
	}

	if err := app.recordService.Submit(r.Context(), record); err != nil {
		app.internalServerError(w, r, err)
		return
	}

	response := map[string]any{
		"success": true,
		"message": "audit record queued",
	}

	if err := app.jsonResponse(w, http.StatusAccepted, response); err != nil {
		app.internalServerError(w, r, err)
	}
}

func (app *application) listAuditRecordsHandler(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()

	limit, _ := strconv.Atoi(query.Get("limit"))
	offset, _ := strconv.Atoi(query.Get("offset"))

	filter := repo.AuditRecordFilter{
		ProductID: query.Get("productId"),
		Stage:     domain.AuditStage(query.Get("stage")),
		Verdict:   domain.Verdict(query.Get("verdict")),
		Limit:     limit,
		Offset:    offset,
	}

	records, total, err := app.recordService.List(r.Context(), filter)
	if err != nil {
		app.internalServerError(w, r, err)
		return
	}

	if records == nil {
		records = []domain.AuditRecord{}
	}

	response := map[string]any{
		"records": records,
		"total":   total,
	}

	if err := app.jsonResponse(w, http.StatusOK, response); err != nil {
		app.internalServerError(w, r, err)
	}
}

func (app *application) statisticsHandler(w http.ResponseWriter, r *http.Request) {
	stats, err := app.recordService.Statistics(r.Context())
	if err != nil {
		app.internalServerError(w, r, err)
		return
	}

	if err := app.jsonResponse(w, http.StatusOK, stats); err != nil {
		app.internalServerError(w, r, err)
	}
}

func (app *application) updateManualStatusHandler(w http.ResponseWriter, r *http.Request) {
	recordID := chi.URLParam(r, "record_id")
	if !primitive.IsValidObjectID(recordID) {
		app.badRequestResponse(w, r, ErrInvalidID)
		return
	}

	var req UpdateManualStatusRequest
	if err := readJSON(w, r, &req); err != nil {
		app.badRequestResponse(w, r, err)
		return
	}

	if err := Validate.Struct(req); err != nil {
		app.badRequestResponse(w, r, err)
		return
	}

	err := app.recordService.UpdateManualStatus(r.Context(), recordID, domain.ManualStatus(req.Status))
	if errors.Is(err, mongo.ErrNoDocuments) {
		app.notFoundError(w, r, err)
		return
	}
	if err != nil {
		app.internalServerError(w, r, err)
		return
	}

	response := map[string]any{
		"success": true,
	}

	if err := app.jsonResponse(w, http.StatusOK, response); err != nil {
		app.internalServerError(w, r, err)
	}
}
