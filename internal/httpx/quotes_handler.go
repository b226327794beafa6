package httpx

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"strconv"
	"strings"
	"time"

	kafkax "github.com/allevapp/allevapp/internal/kafka"
	"github.com/allevapp/allevapp/internal/orders"
	"github.com/allevapp/allevapp/internal/redisx"
	"github.com/go-chi/chi/v5"
	kafkago "github.com/segmentio/kafka-go"
)

type QuoteStore interface {
	CreateQuotes(ctx context.Context, in orders.NewQuotes) ([]orders.Quote, error)
	GetQuote(ctx context.Context, id int64) (orders.Quote, error)
	ListQuotes(ctx context.Context, f orders.QuoteFilter) ([]orders.Quote, error)
	UpdateQuote(ctx context.Context, id int64, c orders.QuoteChanges) (orders.Quote, error)
	DeleteQuote(ctx context.Context, id int64) error
	RecordQuoteResponse(ctx context.Context, id int64, amount float64) (orders.Quote, error)
	UpdateQuoteStatus(ctx context.Context, id int64, to orders.QuoteStatus) (orders.Quote, error)
	AcceptQuote(ctx context.Context, id int64, in orders.AcceptInput) (*orders.Acceptance, error)
	GetOrder(ctx context.Context, id int64) (orders.OrderConfirmation, error)
	GetOrderByQuote(ctx context.Context, quoteID int64) (orders.OrderConfirmation, error)
	ListOrders(ctx context.Context, f orders.OrderFilter) ([]orders.OrderConfirmation, error)
}

// Cache is the Redis JSON store; nil disables caching and idempotency shortcuts.
type Cache interface {
	GetJSON(ctx context.Context, key string, out any) (bool, error)
	SetJSON(ctx context.Context, key string, v any, ttl time.Duration) error
}

type QuotesHandler struct {
	Store     QuoteStore
	Publisher kafkax.Publisher
	Cache     Cache
	Service   string
}

func (h *QuotesHandler) Register(r chi.Router) {
	r.Get("/quotes", h.list)
	r.Get("/quotes/{id}", h.get)
	r.Get("/quotes/{id}/order", h.getOrderByQuote)
	r.Get("/orders", h.listOrders)
	r.Get("/orders/export.xlsx", h.exportOrders)
	r.Get("/orders/{id}", h.getOrder)

	r.Group(func(r chi.Router) {
		r.Use(managers)
		r.Post("/quotes", h.create)
		r.Patch("/quotes/{id}", h.update)
		r.Delete("/quotes/{id}", h.delete)
		r.Post("/quotes/{id}/response", h.recordResponse)
		r.Post("/quotes/{id}/status", h.updateStatus)
		r.Post("/quotes/{id}/accept", h.accept)
	})
}

type CreateQuotesReq struct {
	Title       string  `json:"title"`
	Description string  `json:"description"`
	DueDate     *Date   `json:"due_date"`
	FarmID      int64   `json:"farm_id"`
	ReportID    *int64  `json:"report_id"`
	SupplierIDs []int64 `json:"supplier_ids"`
}

func (h *QuotesHandler) create(w http.ResponseWriter, r *http.Request) {
	var req CreateQuotesReq
	if err := decodeJSON(w, r, &req); err != nil {
		writeErr(w, r, err)
		return
	}
	if strings.TrimSpace(req.Title) == "" || req.FarmID <= 0 {
		writeError(w, http.StatusBadRequest, "title and farm_id are required")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	quotes, err := h.Store.CreateQuotes(ctx, orders.NewQuotes{
		Title:       strings.TrimSpace(req.Title),
		Description: req.Description,
		DueDate:     req.DueDate.Ptr(),
		FarmID:      req.FarmID,
		ReportID:    req.ReportID,
		SupplierIDs: req.SupplierIDs,
	})
	if err != nil {
		writeErr(w, r, err)
		return
	}

	for _, q := range quotes {
		h.publish(r, orders.TopicQuoteRequested, orders.EventQuoteRequested, q.ID,
			orders.QuoteRequestedPayload{QuoteID: q.ID, SupplierID: q.SupplierID, FarmID: q.FarmID})
	}
	writeJSON(w, http.StatusCreated, quotes)
}

func (h *QuotesHandler) publish(r *http.Request, topic, eventType string, quoteID int64, payload any) {
	if h.Publisher == nil {
		return
	}
	ev := orders.NewEnvelope(eventType, h.Service, r.Header.Get("X-Request-Id"),
		strconv.FormatInt(quoteID, 10), kafkax.MustMarshal(payload))
	h.Publisher.Publish(topic, orders.PartitionKey(quoteID), kafkax.MustMarshal(ev),
		kafkago.Header{Key: "x-event-type", Value: []byte(eventType)},
		kafkago.Header{Key: "x-event-version", Value: []byte("1")},
	)
}

func (h *QuotesHandler) list(w http.ResponseWriter, r *http.Request) {
	limit, offset, err := page(r)
	if err != nil {
		writeErr(w, r, err)
		return
	}
	f := orders.QuoteFilter{Status: orders.QuoteStatus(r.URL.Query().Get("status")), Limit: limit, Offset: offset}
	if f.Status != "" && !f.Status.Valid() {
		writeError(w, http.StatusBadRequest, "invalid status")
		return
	}
	for name, dst := range map[string]*int64{"farm_id": &f.FarmID, "report_id": &f.ReportID, "supplier_id": &f.SupplierID} {
		if *dst, err = queryInt64(r, name); err != nil {
			writeErr(w, r, err)
			return
		}
	}

	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	qs, err := h.Store.ListQuotes(ctx, f)
	if err != nil {
		writeErr(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, qs)
}

func (h *QuotesHandler) get(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r, "id")
	if err != nil {
		writeErr(w, r, err)
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	q, err := h.Store.GetQuote(ctx, id)
	if err != nil {
		writeErr(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, q)
}

type UpdateQuoteReq struct {
	Title       *string `json:"title"`
	Description *string `json:"description"`
	DueDate     *Date   `json:"due_date"`
}

func (h *QuotesHandler) update(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r, "id")
	if err != nil {
		writeErr(w, r, err)
		return
	}
	var req UpdateQuoteReq
	if err := decodeJSON(w, r, &req); err != nil {
		writeErr(w, r, err)
		return
	}
	if req.Title != nil && strings.TrimSpace(*req.Title) == "" {
		writeError(w, http.StatusBadRequest, "title cannot be empty")
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	q, err := h.Store.UpdateQuote(ctx, id, orders.QuoteChanges{Title: req.Title, Description: req.Description, DueDate: req.DueDate.Ptr()})
	if err != nil {
		writeErr(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, q)
}

func (h *QuotesHandler) delete(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r, "id")
	if err != nil {
		writeErr(w, r, err)
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	if err := h.Store.DeleteQuote(ctx, id); err != nil {
		writeErr(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type QuoteResponseReq struct {
	Amount *float64 `json:"amount"`
}

func (h *QuotesHandler) recordResponse(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r, "id")
	if err != nil {
		writeErr(w, r, err)
		return
	}
	var req QuoteResponseReq
	if err := decodeJSON(w, r, &req); err != nil {
		writeErr(w, r, err)
		return
	}
	if req.Amount == nil || *req.Amount < 0 {
		writeError(w, http.StatusBadRequest, "amount must be >= 0")
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	q, err := h.Store.RecordQuoteResponse(ctx, id, *req.Amount)
	if err != nil {
		writeErr(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, q)
}

type QuoteStatusReq struct {
	Status orders.QuoteStatus `json:"status"`
}

func (h *QuotesHandler) updateStatus(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r, "id")
	if err != nil {
		writeErr(w, r, err)
		return
	}
	var req QuoteStatusReq
	if err := decodeJSON(w, r, &req); err != nil {
		writeErr(w, r, err)
		return
	}
	if !req.Status.Valid() {
		writeError(w, http.StatusBadRequest, "invalid status")
		return
	}
	if req.Status == orders.QuoteAccepted {
		writeError(w, http.StatusBadRequest, "use POST /api/quotes/{id}/accept to accept a quote")
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	q, err := h.Store.UpdateQuoteStatus(ctx, id, req.Status)
	if err != nil {
		writeErr(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, q)
}

type AcceptQuoteReq struct {
	TotalAmount  *float64 `json:"total_amount"`
	OrderDate    *Date    `json:"order_date"`
	DeliveryDate *Date    `json:"delivery_date"`
	Notes        string   `json:"notes"`
}

type AcceptQuoteResp struct {
	*orders.Acceptance
	Idempotent bool `json:"idempotent"`
}

func (h *QuotesHandler) accept(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r, "id")
	if err != nil {
		writeErr(w, r, err)
		return
	}
	var req AcceptQuoteReq
	if err := decodeOptionalJSON(w, r, &req); err != nil {
		writeErr(w, r, err)
		return
	}
	if req.TotalAmount != nil && *req.TotalAmount < 0 {
		writeError(w, http.StatusBadRequest, "total_amount must be >= 0")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	// a retried request with the same key gets the order it already created
	idemKey := ""
	if k := strings.TrimSpace(r.Header.Get("Idempotency-Key")); k != "" && h.Cache != nil {
		idemKey = fmt.Sprintf(redisx.KeyIdemQuoteAccept, k)
		var orderID int64
		if ok, err := h.Cache.GetJSON(ctx, idemKey, &orderID); err == nil && ok {
			if acc, err := h.existingAcceptance(ctx, id, orderID); err == nil {
				writeJSON(w, http.StatusOK, AcceptQuoteResp{Acceptance: acc, Idempotent: true})
				return
			}
		}
	}

	acc, err := h.Store.AcceptQuote(ctx, id, orders.AcceptInput{
		TotalAmount:  req.TotalAmount,
		OrderDate:    req.OrderDate.Ptr(),
		DeliveryDate: req.DeliveryDate.Ptr(),
		Notes:        req.Notes,
	})
	if err != nil {
		writeErr(w, r, err)
		return
	}

	if idemKey != "" {
		if err := h.Cache.SetJSON(ctx, idemKey, acc.Order.ID, redisx.TTLIdempotency); err != nil {
			log.Printf("idempotency key %s: %v", idemKey, err)
		}
	}
	h.publish(r, orders.TopicOrderConfirmed, orders.EventOrderConfirmed, acc.Quote.ID, orders.OrderConfirmedPayload{
		OrderID:          acc.Order.ID,
		QuoteID:          acc.Quote.ID,
		OrderNumber:      acc.Order.OrderNumber,
		Company:          acc.Order.Company,
		TotalAmount:      acc.Order.TotalAmount,
		RejectedQuoteIDs: acc.Rejected,
	})
	writeJSON(w, http.StatusCreated, AcceptQuoteResp{Acceptance: acc})
}

func (h *QuotesHandler) existingAcceptance(ctx context.Context, quoteID, orderID int64) (*orders.Acceptance, error) {
	o, err := h.Store.GetOrder(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if o.QuoteID != quoteID {
		return nil, orders.ErrNotFound
	}
	q, err := h.Store.GetQuote(ctx, quoteID)
	if err != nil {
		return nil, err
	}
	return &orders.Acceptance{Quote: q, Order: o, Rejected: []int64{}}, nil
}

func (h *QuotesHandler) getOrderByQuote(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r, "id")
	if err != nil {
		writeErr(w, r, err)
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	o, err := h.Store.GetOrderByQuote(ctx, id)
	if err != nil {
		writeErr(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, o)
}

func (h *QuotesHandler) getOrder(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r, "id")
	if err != nil {
		writeErr(w, r, err)
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	o, err := h.Store.GetOrder(ctx, id)
	if err != nil {
		writeErr(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, o)
}

func (h *QuotesHandler) listOrders(w http.ResponseWriter, r *http.Request) {
	limit, offset, err := page(r)
	if err != nil {
		writeErr(w, r, err)
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	out, err := h.Store.ListOrders(ctx, orders.OrderFilter{Company: r.URL.Query().Get("company"), Limit: limit, Offset: offset})
	if err != nil {
		writeErr(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}
