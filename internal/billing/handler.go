package billing

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"

	"github.com/google/uuid"

	"github.com/hostbay/backend/internal/gateway"
	"github.com/hostbay/backend/internal/ledger"
	"github.com/hostbay/backend/internal/repository"
)

type CreateRecordRequest struct {
	AccountID string `json:"account_id"`
	OrderID   string `json:"order_id"`
	Type      string `json:"type"`
}

type SyncResponse struct {
	Synced int    `json:"synced"`
	Error  string `json:"error,omitempty"`
}

// webhookEvent is the subset of the gateway webhook envelope we consume.
type webhookEvent struct {
	Event   string `json:"event"`
	Payload struct {
		Payment struct {
			Entity json.RawMessage `json:"entity"`
		} `json:"payment"`
	} `json:"payload"`
}

type paymentEntity struct {
	ID      string `json:"id"`
	OrderID string `json:"order_id"`
	Status  string `json:"status"`
}

type Handler struct {
	svc      Service
	gw       gateway.Client
	accounts *repository.AccountRepo
	invoices *repository.InvoiceRepo
	ledger   *ledger.Repository
	log      *slog.Logger
}

func NewHandler(svc Service, gw gateway.Client, accounts *repository.AccountRepo, invoices *repository.InvoiceRepo, ledgerRepo *ledger.Repository, log *slog.Logger) *Handler {
	if log == nil {
		log = slog.Default()
	}
	return &Handler{svc: svc, gw: gw, accounts: accounts, invoices: invoices, ledger: ledgerRepo, log: log}
}

func (h *Handler) CreateRecord(w http.ResponseWriter, r *http.Request) {
	var req CreateRecordRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid JSON", http.StatusBadRequest)
		return
	}
	accountID, err := uuid.Parse(req.AccountID)
	if err != nil || req.OrderID == "" {
		http.Error(w, "missing or invalid required fields", http.StatusBadRequest)
		return
	}
	rec, err := h.svc.CreateRecord(r.Context(), accountID, req.OrderID, req.Type)
	if err != nil {
		h.log.Error("create payment record failed", "error", err)
		http.Error(w, "create payment record failed", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	_ = json.NewEncoder(w).Encode(rec)
}

func (h *Handler) GetRecord(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		http.Error(w, "invalid payment record id", http.StatusBadRequest)
		return
	}
	rec, err := h.svc.GetRecord(r.Context(), id)
	if err != nil {
		http.Error(w, "payment record not found", http.StatusNotFound)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(rec)
}

// Sync is the manual per-record reconciliation action. Gateway failures are
// logged and reported in the body; the request itself never fails for them.
func (h *Handler) Sync(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		http.Error(w, "invalid payment record id", http.StatusBadRequest)
		return
	}
	resp := SyncResponse{}
	n, err := h.svc.Sync(r.Context(), id)
	resp.Synced = n
	if err != nil {
		resp.Error = "sync failed, see server logs"
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(resp)
}

func (h *Handler) GetAccount(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		http.Error(w, "invalid account id", http.StatusBadRequest)
		return
	}
	acc, err := h.accounts.GetByID(r.Context(), id)
	if err != nil {
		http.Error(w, "account not found", http.StatusNotFound)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(acc)
}

func (h *Handler) ListAccounts(w http.ResponseWriter, r *http.Request) {
	list, err := h.accounts.List(r.Context())
	if err != nil {
		h.log.Error("list accounts failed", "error", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(list)
}

func (h *Handler) GetInvoice(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		http.Error(w, "invalid invoice id", http.StatusBadRequest)
		return
	}
	inv, err := h.invoices.GetByID(r.Context(), id)
	if err != nil {
		http.Error(w, "invoice not found", http.StatusNotFound)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(inv)
}

func (h *Handler) ListAccountTransactions(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		http.Error(w, "invalid account id", http.StatusBadRequest)
		return
	}
	list, err := h.ledger.ListByAccountID(r.Context(), id)
	if err != nil {
		h.log.Error("list balance transactions failed", "account", id, "error", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(list)
}

func (h *Handler) ListAccountRecords(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		http.Error(w, "invalid account id", http.StatusBadRequest)
		return
	}
	list, err := h.svc.ListRecords(r.Context(), id)
	if err != nil {
		h.log.Error("list payment records failed", "account", id, "error", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(list)
}

// Webhook receives gateway events. The HMAC signature header authenticates
// the gateway; unverifiable requests are rejected before any parsing.
func (h *Handler) Webhook(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(io.LimitReader(r.Body, 1<<20))
	if err != nil {
		http.Error(w, "unreadable body", http.StatusBadRequest)
		return
	}
	signature := r.Header.Get("X-Razorpay-Signature")
	if signature == "" || !h.gw.VerifyWebhookSignature(body, signature) {
		http.Error(w, "invalid signature", http.StatusUnauthorized)
		return
	}

	var event webhookEvent
	if err := json.Unmarshal(body, &event); err != nil {
		http.Error(w, "invalid JSON", http.StatusBadRequest)
		return
	}
	var entity paymentEntity
	if err := json.Unmarshal(event.Payload.Payment.Entity, &entity); err != nil || entity.OrderID == "" {
		http.Error(w, "missing payment entity", http.StatusBadRequest)
		return
	}
	if entity.Status != gateway.StatusCaptured {
		// Only captures drive reconciliation; everything else is ack'd.
		w.WriteHeader(http.StatusOK)
		return
	}

	if err := h.svc.HandleOrderPaid(r.Context(), event.Event, entity.OrderID, entity.ID, event.Payload.Payment.Entity); err != nil {
		h.log.Error("webhook processing failed", "order_id", entity.OrderID, "error", err)
		http.Error(w, "webhook processing failed", http.StatusInternalServerError)
		return
	}
	w.WriteHeader(http.StatusOK)
}
