package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog/log"
	contractx "github.com/tanpawarit/Chative-Loan-Origination/agent/contract"
	"github.com/tanpawarit/Chative-Loan-Origination/agent/reference"
	statex "github.com/tanpawarit/Chative-Loan-Origination/agent/state"
)

const (
	maxChatBodyBytes  = 64 << 10
	maxUploadBytes    = 10 << 20
	uploadSubdir      = "uploads"
	slipMockEmployer  = "Mock Corp Pvt Ltd"
	slipMockNetPay    = 85000
	slipMockPayPeriod = "November 2024"
)

var uploadExt = regexp.MustCompile(`^\.[a-z0-9]{1,5}$`)

// Conversation runs one user turn.
type Conversation interface {
	HandleMessage(ctx context.Context, sessionID string, text string) (contractx.TurnOutput, error)
}

// Directory is the read side of the mock CRM, bureau and offer services.
type Directory interface {
	Customers() []reference.CustomerDetail
	Customer(id string) (reference.CustomerDetail, bool)
	ScoreByCustomerID(id string) (int, bool)
	Offer(ctx context.Context, customerID string) (reference.Offer, bool, error)
}

// SlipRecorder marks a salary slip as received on a session.
type SlipRecorder interface {
	RecordSalarySlip(ctx context.Context, sessionID string, fileID string) (*statex.Session, error)
}

type Option func(*Handler)

// WithSlipRecorder links uploads that carry a session_id to that session.
func WithSlipRecorder(r SlipRecorder) Option {
	return func(h *Handler) {
		if r != nil {
			h.slips = r
		}
	}
}

type Handler struct {
	chat        Conversation
	directory   Directory
	slips       SlipRecorder
	artifactDir string
}

func NewHandler(chat Conversation, directory Directory, artifactDir string, opts ...Option) (*Handler, error) {
	if chat == nil {
		return nil, errors.New("conversation is required")
	}
	if directory == nil {
		return nil, errors.New("reference directory is required")
	}
	if strings.TrimSpace(artifactDir) == "" {
		return nil, errors.New("artifact directory is required")
	}
	h := &Handler{chat: chat, directory: directory, artifactDir: artifactDir}
	for _, opt := range opts {
		if opt != nil {
			opt(h)
		}
	}
	return h, nil
}

// Router wires every route behind the shared middleware stack.
func (h *Handler) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(chiMiddleware.RequestID)
	r.Use(chiMiddleware.RealIP)
	r.Use(requestLogger)
	r.Use(chiMiddleware.Recoverer)

	r.Get("/health", h.Health)
	r.Handle("/metrics", promhttp.Handler())
	r.Post("/chat", h.Chat)
	r.Get("/download/{filename}", h.Download)
	h.RegisterReferenceRoutes(r)
	return r
}

func (h *Handler) RegisterReferenceRoutes(r chi.Router) {
	r.Route("/api", func(r chi.Router) {
		r.Get("/crm/customers", h.ListCustomers)
		r.Get("/crm/customers/{id}", h.GetCustomer)
		r.Get("/bureau/score/{id}", h.GetScore)
		r.Get("/offers/{id}", h.GetOffer)
		r.Post("/upload/salary-slip", h.UploadSalarySlip)
	})
}

func (h *Handler) Health(w http.ResponseWriter, _ *http.Request) {
	JSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

type chatRequest struct {
	SessionID   string `json:"session_id"`
	UserMessage string `json:"user_message"`
}

func (h *Handler) Chat(w http.ResponseWriter, r *http.Request) {
	var req chatRequest
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxChatBodyBytes))
	if err := dec.Decode(&req); err != nil {
		Error(w, http.StatusBadRequest, "invalid request body")
		return
	}

	// A client disconnect must not abandon a turn halfway through its saves.
	ctx := context.WithoutCancel(r.Context())
	out, err := h.chat.HandleMessage(ctx, req.SessionID, req.UserMessage)
	if err != nil {
		if errors.Is(err, contractx.ErrValidation) {
			Error(w, http.StatusBadRequest, err.Error())
			return
		}
		log.Error().Err(err).
			Str("session_id", req.SessionID).
			Str("request_id", chiMiddleware.GetReqID(r.Context())).
			Msg("chat turn failed")
		Error(w, http.StatusInternalServerError, "internal server error")
		return
	}
	JSON(w, http.StatusOK, out)
}

func (h *Handler) Download(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "filename")
	if !safeFilename(name) {
		Error(w, http.StatusBadRequest, "invalid filename")
		return
	}

	path := filepath.Join(h.artifactDir, name)
	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			Error(w, http.StatusNotFound, "file not found")
			return
		}
		log.Error().Err(err).Str("file", name).Msg("open artifact failed")
		Error(w, http.StatusInternalServerError, "internal server error")
		return
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil || info.IsDir() {
		Error(w, http.StatusNotFound, "file not found")
		return
	}

	w.Header().Set("Content-Disposition", `attachment; filename="`+name+`"`)
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	http.ServeContent(w, r, name, info.ModTime(), f)
}

func safeFilename(name string) bool {
	if name == "" || name == "." || name == ".." {
		return false
	}
	if strings.ContainsAny(name, `/\`) || strings.Contains(name, "..") {
		return false
	}
	return filepath.Base(name) == name
}

func (h *Handler) ListCustomers(w http.ResponseWriter, _ *http.Request) {
	JSON(w, http.StatusOK, h.directory.Customers())
}

func (h *Handler) GetCustomer(w http.ResponseWriter, r *http.Request) {
	cust, ok := h.directory.Customer(chi.URLParam(r, "id"))
	if !ok {
		Error(w, http.StatusNotFound, "customer not found")
		return
	}
	JSON(w, http.StatusOK, cust)
}

type scoreResponse struct {
	CustomerID  string `json:"customer_id"`
	CreditScore int    `json:"credit_score"`
}

func (h *Handler) GetScore(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	score, ok := h.directory.ScoreByCustomerID(id)
	if !ok {
		Error(w, http.StatusNotFound, "credit score not found")
		return
	}
	JSON(w, http.StatusOK, scoreResponse{CustomerID: id, CreditScore: score})
}

type offerResponse struct {
	CustomerID string `json:"customer_id"`
	reference.Offer
}

// GetOffer answers with a zero offer rather than 404 for customers without one.
func (h *Handler) GetOffer(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	offer, ok, err := h.directory.Offer(r.Context(), id)
	if err != nil {
		log.Error().Err(err).Str("customer_id", id).Msg("offer lookup failed")
		Error(w, http.StatusInternalServerError, "internal server error")
		return
	}
	if !ok {
		offer = reference.Offer{Validity: "N/A"}
	}
	JSON(w, http.StatusOK, offerResponse{CustomerID: id, Offer: offer})
}

type slipExtract struct {
	Employer string  `json:"employer"`
	NetPay   float64 `json:"net_pay"`
	Month    string  `json:"month"`
}

type uploadResponse struct {
	Status        string      `json:"status"`
	FileID        string      `json:"file_id"`
	Filename      string      `json:"filename"`
	SessionID     string      `json:"session_id,omitempty"`
	Message       string      `json:"message"`
	ExtractedData slipExtract `json:"extracted_data"`
}

// UploadSalarySlip stores a multipart "file" under the artifact directory and
// answers with mock extracted payroll data. An optional session_id form field
// records the slip on that session.
func (h *Handler) UploadSalarySlip(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes)
	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		Error(w, http.StatusBadRequest, "invalid multipart upload")
		return
	}
	file, header, err := r.FormFile("file")
	if err != nil {
		Error(w, http.StatusBadRequest, "file is required")
		return
	}
	defer file.Close()

	sessionID := strings.TrimSpace(r.FormValue("session_id"))
	if sessionID != "" && h.slips == nil {
		Error(w, http.StatusBadRequest, "session linking is not enabled")
		return
	}

	fileID := uuid.NewString()
	ext := strings.ToLower(filepath.Ext(header.Filename))
	if !uploadExt.MatchString(ext) {
		ext = ".bin"
	}
	dir := filepath.Join(h.artifactDir, uploadSubdir)
	if err := saveUpload(dir, fileID+ext, file); err != nil {
		log.Error().Err(err).Str("file_id", fileID).Msg("store salary slip failed")
		Error(w, http.StatusInternalServerError, "internal server error")
		return
	}

	if sessionID != "" {
		ctx := context.WithoutCancel(r.Context())
		if _, err := h.slips.RecordSalarySlip(ctx, sessionID, fileID); err != nil {
			switch {
			case errors.Is(err, statex.ErrStateNotFound):
				Error(w, http.StatusNotFound, "session not found")
			case errors.Is(err, contractx.ErrValidation), errors.Is(err, statex.ErrInvalidSession):
				Error(w, http.StatusBadRequest, err.Error())
			default:
				log.Error().Err(err).Str("session_id", sessionID).Msg("record salary slip failed")
				Error(w, http.StatusInternalServerError, "internal server error")
			}
			return
		}
	}

	JSON(w, http.StatusOK, uploadResponse{
		Status:    "success",
		FileID:    fileID,
		Filename:  filepath.Base(header.Filename),
		SessionID: sessionID,
		Message:   "Salary slip verified successfully (Mock)",
		ExtractedData: slipExtract{
			Employer: slipMockEmployer,
			NetPay:   slipMockNetPay,
			Month:    slipMockPayPeriod,
		},
	})
}

func saveUpload(dir, name string, src io.Reader) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create upload directory: %w", err)
	}
	dst, err := os.Create(filepath.Join(dir, name))
	if err != nil {
		return fmt.Errorf("create upload file: %w", err)
	}
	if _, err := io.Copy(dst, src); err != nil {
		_ = dst.Close()
		return fmt.Errorf("write upload file: %w", err)
	}
	return dst.Close()
}

func JSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		log.Warn().Err(err).Msg("write json response failed")
	}
}

func Error(w http.ResponseWriter, status int, msg string) {
	JSON(w, status, map[string]string{"error": msg})
}

func requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		started := time.Now()
		ww := chiMiddleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		log.Debug().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", ww.Status()).
			Int("bytes", ww.BytesWritten()).
			Str("request_id", chiMiddleware.GetReqID(r.Context())).
			Dur("elapsed", time.Since(started)).
			Msg("http request")
	})
}
