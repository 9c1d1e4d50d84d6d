package handlers

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/gatescan/terminal/internal/auth"
	"github.com/gatescan/terminal/internal/gate"
	"github.com/gatescan/terminal/internal/middleware"
	"github.com/gatescan/terminal/internal/model"
)

// GateHandler handles the gate verification endpoints.
type GateHandler struct {
	login     *auth.LoginService
	svc       *gate.Service
	ipLimiter *middleware.RateLimiter
}

// NewGateHandler creates a new gate handler. Login is IP rate limited to slow
// down credential guessing; the authenticated endpoints are not.
func NewGateHandler(login *auth.LoginService, svc *gate.Service) *GateHandler {
	return &GateHandler{
		login:     login,
		svc:       svc,
		ipLimiter: middleware.NewRateLimiter(10*time.Minute, 20),
	}
}

// loginRequest is the request body for POST /api/gate/login.
type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// loginResponse is the JSON response for login.
type loginResponse struct {
	Token string `json:"token"`
}

// scanRequest is the request body for POST /api/gate/scan.
type scanRequest struct {
	QRCode string `json:"qrCode"`
}

// scanResponse is the JSON response for scan. An unrecognized code is a
// normal valid=false outcome, not an HTTP error.
type scanResponse struct {
	Valid      bool              `json:"valid"`
	Submission *model.Submission `json:"submission,omitempty"`
	Error      string            `json:"error,omitempty"`
}

// verifyRequest is the request body for POST /api/gate/verify.
type verifyRequest struct {
	SubmissionID string `json:"submissionId"`
}

// verifyResponse is the JSON response for verify.
type verifyResponse struct {
	TokenNumber string          `json:"tokenNumber"`
	SMSStatus   model.SMSStatus `json:"smsStatus"`
}

// rejectRequest is the request body for POST /api/gate/reject.
type rejectRequest struct {
	SubmissionID string `json:"submissionId"`
	Reason       string `json:"reason"`
}

// rejectResponse is the JSON response for reject.
type rejectResponse struct {
	Success bool `json:"success"`
}

// HandleLogin handles POST /api/gate/login.
func (h *GateHandler) HandleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondWithError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	req.Username = strings.TrimSpace(req.Username)
	if req.Username == "" || req.Password == "" {
		respondWithError(w, http.StatusBadRequest, "username and password are required")
		return
	}

	if !h.ipLimiter.Allow(middleware.GetIPKey(r)) {
		respondWithError(w, http.StatusTooManyRequests, "rate limit exceeded")
		return
	}

	token, err := h.login.Login(r.Context(), req.Username, req.Password)
	if err != nil {
		if errors.Is(err, auth.ErrInvalidCredentials) {
			respondWithError(w, http.StatusUnauthorized, auth.ErrInvalidCredentials.Error())
			return
		}
		log.Printf("login failed for %q: %v", req.Username, err)
		respondWithError(w, http.StatusInternalServerError, "login failed")
		return
	}

	respondJSON(w, http.StatusOK, loginResponse{Token: token})
}

// HandleScan handles POST /api/gate/scan.
func (h *GateHandler) HandleScan(w http.ResponseWriter, r *http.Request) {
	var req scanRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondWithError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	req.QRCode = strings.TrimSpace(req.QRCode)
	if req.QRCode == "" {
		respondWithError(w, http.StatusBadRequest, "qrCode is required")
		return
	}

	sub, err := h.svc.Resolve(r.Context(), req.QRCode)
	if err != nil {
		if errors.Is(err, gate.ErrSubmissionNotFound) {
			respondJSON(w, http.StatusOK, scanResponse{Valid: false, Error: "QR code not recognized"})
			return
		}
		log.Printf("scan failed: %v", err)
		respondWithError(w, http.StatusInternalServerError, "scan failed")
		return
	}

	respondJSON(w, http.StatusOK, scanResponse{Valid: true, Submission: &sub})
}

// HandleVerify handles POST /api/gate/verify.
func (h *GateHandler) HandleVerify(w http.ResponseWriter, r *http.Request) {
	var req verifyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondWithError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	req.SubmissionID = strings.TrimSpace(req.SubmissionID)
	if req.SubmissionID == "" {
		respondWithError(w, http.StatusBadRequest, "submissionId is required")
		return
	}

	tokenNumber, smsStatus, err := h.svc.Verify(r.Context(), req.SubmissionID)
	if err != nil {
		switch {
		case errors.Is(err, gate.ErrSubmissionNotFound):
			respondWithError(w, http.StatusNotFound, gate.ErrSubmissionNotFound.Error())
		case errors.Is(err, gate.ErrNotVerifiable):
			respondWithError(w, http.StatusConflict, gate.ErrNotVerifiable.Error())
		default:
			log.Printf("verify failed for %s: %v", req.SubmissionID, err)
			respondWithError(w, http.StatusInternalServerError, "verification failed")
		}
		return
	}

	respondJSON(w, http.StatusOK, verifyResponse{TokenNumber: tokenNumber, SMSStatus: smsStatus})
}

// HandleReject handles POST /api/gate/reject.
func (h *GateHandler) HandleReject(w http.ResponseWriter, r *http.Request) {
	var req rejectRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondWithError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	req.SubmissionID = strings.TrimSpace(req.SubmissionID)
	req.Reason = strings.TrimSpace(req.Reason)
	if req.SubmissionID == "" {
		respondWithError(w, http.StatusBadRequest, "submissionId is required")
		return
	}
	if req.Reason == "" {
		respondWithError(w, http.StatusBadRequest, "reason is required")
		return
	}

	if err := h.svc.Reject(r.Context(), req.SubmissionID, req.Reason); err != nil {
		if errors.Is(err, gate.ErrSubmissionNotFound) {
			respondWithError(w, http.StatusNotFound, gate.ErrSubmissionNotFound.Error())
			return
		}
		log.Printf("reject failed for %s: %v", req.SubmissionID, err)
		respondWithError(w, http.StatusInternalServerError, "rejection failed")
		return
	}

	respondJSON(w, http.StatusOK, rejectResponse{Success: true})
}

// respondJSON writes a JSON response body.
func respondJSON(w http.ResponseWriter, statusCode int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		log.Printf("failed to encode response: %v", err)
	}
}

// respondWithError sends a JSON error response.
func respondWithError(w http.ResponseWriter, statusCode int, message string) {
	respondJSON(w, statusCode, map[string]string{"error": message})
}
