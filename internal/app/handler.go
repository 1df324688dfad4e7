package app

import (
	"encoding/json"
	"errors"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"hushbox/internal/domain"
	"hushbox/internal/reaper"
	"hushbox/internal/secret"
	"hushbox/internal/utility"
	"hushbox/pkg/e2e"
)

type Handler struct {
	svc     *secret.Service
	reaper  *reaper.Reaper
	baseURL string
}

func NewHandler(svc *secret.Service, rp *reaper.Reaper, baseURL string) *Handler {
	return &Handler{svc: svc, reaper: rp, baseURL: baseURL}
}

func (h *Handler) HandleHealth(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("ok"))
}

func (h *Handler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	var req domain.CreateReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utility.HttpError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	req.Content = strings.TrimSpace(req.Content)
	if req.Content == "" {
		utility.HttpError(w, http.StatusBadRequest, domain.ErrEmptyContent.Error())
		return
	}
	if len(req.Content) > domain.MaxSecretSize {
		utility.HttpError(w, http.StatusRequestEntityTooLarge, "secret content is too large")
		return
	}

	id, err := h.svc.Create(r.Context(), secret.CreateParams{
		Content:       req.Content,
		Password:      req.Password,
		ExpiresAt:     req.ExpiresAt,
		OneTimeAccess: req.OneTimeAccess,
		Owner:         req.Owner,
	})
	if err != nil {
		h.writeError(w, err)
		return
	}

	utility.WriteJSON(w, http.StatusCreated, domain.CreateRes{
		ID: id,
		// The fragment key, if any, is appended by the creating client
		// and never reaches the server.
		URL: e2e.BuildShareURL(h.baseURL, id, ""),
	})
}

func (h *Handler) HandleView(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if id == "" {
		utility.HttpError(w, http.StatusBadRequest, "missing id")
		return
	}

	var req domain.ViewReq
	if r.Body != nil && r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			utility.HttpError(w, http.StatusBadRequest, "invalid JSON body")
			return
		}
	}

	res, err := h.svc.View(r.Context(), id, req.Password, requesterIP(r))
	if err != nil {
		h.writeError(w, err)
		return
	}

	utility.WriteJSON(w, http.StatusOK, domain.ViewRes{
		Content:       res.Content,
		OneTimeAccess: res.OneTimeAccess,
	})
}

func (h *Handler) HandleUpdate(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	var req domain.UpdateReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utility.HttpError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	req.Content = strings.TrimSpace(req.Content)
	if req.Content == "" {
		utility.HttpError(w, http.StatusBadRequest, domain.ErrEmptyContent.Error())
		return
	}

	err := h.svc.Update(r.Context(), id, r.Header.Get("X-Owner-Id"), secret.UpdateParams{
		Content:       req.Content,
		Password:      req.Password,
		ExpiresAt:     req.ExpiresAt,
		OneTimeAccess: req.OneTimeAccess,
	})
	if err != nil {
		h.writeError(w, err)
		return
	}

	utility.WriteJSON(w, http.StatusOK, map[string]bool{"success": true})
}

func (h *Handler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	if err := h.svc.Delete(r.Context(), id, r.Header.Get("X-Owner-Id")); err != nil {
		h.writeError(w, err)
		return
	}

	utility.WriteJSON(w, http.StatusOK, map[string]bool{"success": true})
}

func (h *Handler) HandleList(w http.ResponseWriter, r *http.Request) {
	owner := r.URL.Query().Get("owner")
	if owner == "" {
		utility.HttpError(w, http.StatusBadRequest, "owner is required")
		return
	}

	list, err := h.svc.ListByOwner(r.Context(), owner)
	if err != nil {
		h.writeError(w, err)
		return
	}

	utility.WriteJSON(w, http.StatusOK, map[string]any{"secrets": list})
}

// HandleReap triggers a single sweep. Exposed for external schedulers
// that prefer an HTTP trigger over the reaper binary.
func (h *Handler) HandleReap(w http.ResponseWriter, r *http.Request) {
	removed, err := h.reaper.Sweep(r.Context())
	if err != nil {
		utility.HttpError(w, http.StatusInternalServerError, "failed to process request")
		return
	}
	utility.WriteJSON(w, http.StatusOK, map[string]int{"deleted": removed})
}

// writeError maps the protocol error taxonomy onto HTTP statuses. All
// protocol failures surface verbatim; store failures surface
// generically, their detail stays in the logs.
func (h *Handler) writeError(w http.ResponseWriter, err error) {
	var rle *domain.RateLimitError
	var serr *domain.StoreError
	switch {
	case errors.As(err, &rle):
		w.Header().Set("Retry-After", strconv.Itoa(retryAfterSeconds(rle.RetryAfter)))
		utility.HttpError(w, http.StatusTooManyRequests, rle.Error())
	case errors.Is(err, domain.ErrEmptyContent):
		utility.HttpError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, domain.ErrPasswordRequired),
		errors.Is(err, domain.ErrInvalidPassword):
		utility.HttpError(w, http.StatusUnauthorized, err.Error())
	case errors.Is(err, domain.ErrForbidden):
		utility.HttpError(w, http.StatusForbidden, err.Error())
	case errors.Is(err, domain.ErrNotFound):
		utility.HttpError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, domain.ErrAlreadyConsumed),
		errors.Is(err, domain.ErrExpired):
		utility.HttpError(w, http.StatusGone, err.Error())
	case errors.Is(err, domain.ErrDecryption):
		utility.HttpError(w, http.StatusInternalServerError, err.Error())
	case errors.As(err, &serr):
		utility.HttpError(w, http.StatusInternalServerError, "failed to process request")
	default:
		utility.HttpError(w, http.StatusInternalServerError, "failed to process request")
	}
}

func retryAfterSeconds(d time.Duration) int {
	secs := int(d.Round(time.Second).Seconds())
	if secs < 1 {
		secs = 1
	}
	return secs
}

// requesterIP is the rate-limit identity of the caller. The RealIP
// middleware has already folded proxy headers into RemoteAddr.
func requesterIP(r *http.Request) string {
	ip, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return ip
}
