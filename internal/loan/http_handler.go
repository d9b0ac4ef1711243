package loan

import (
	"errors"
	"log"
	"net/http"
	"strings"

	"lendingapi/internal/httpx"
	"lendingapi/internal/paging"
)

const dateLayout = "2006-01-02"

type HTTPHandler struct {
	service *Service
}

func NewHTTPHandler(service *Service) *HTTPHandler {
	return &HTTPHandler{service: service}
}

// BookRef is the book embedded in a loan response.
type BookRef struct {
	ID     int64  `json:"id"`
	Title  string `json:"title"`
	Author string `json:"author"`
	ISBN   string `json:"isbn"`
}

// Response is the JSON shape of a loan.
type Response struct {
	ID       int64   `json:"id"`
	Customer string  `json:"customer"`
	Email    string  `json:"email"`
	LoanDate string  `json:"loan_date"`
	Returned *bool   `json:"returned"`
	Book     BookRef `json:"book"`
}

func ToResponse(l Loan) Response {
	return Response{
		ID:       l.ID,
		Customer: l.Customer,
		Email:    l.Email,
		LoanDate: l.LoanDate.Format(dateLayout),
		Returned: l.Returned,
		Book: BookRef{
			ID:     l.Book.ID,
			Title:  l.Book.Title,
			Author: l.Book.Author,
			ISBN:   l.Book.ISBN,
		},
	}
}

type createReq struct {
	ISBN     string `json:"isbn" validate:"required,notblank,min=1,max=5"`
	Customer string `json:"customer" validate:"required,notblank"`
	Email    string `json:"email" validate:"required,email"`
}

// normalize trims the fields so validation sees what the service stores.
func (r *createReq) normalize() {
	r.ISBN = strings.TrimSpace(r.ISBN)
	r.Customer = strings.TrimSpace(r.Customer)
	r.Email = strings.TrimSpace(r.Email)
}

type createdResp struct {
	ID int64 `json:"id"`
}

type returnReq struct {
	Returned *bool `json:"returned" validate:"required"`
}

// Create handles POST /v1/loans
func (h *HTTPHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req createReq
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.JSONError(w, r, http.StatusBadRequest, "BAD_REQUEST", "Invalid request body", nil)
		return
	}
	req.normalize()
	if details := httpx.ValidateStruct(req); len(details) > 0 {
		httpx.JSONError(w, r, http.StatusBadRequest, "VALIDATION_ERROR", "Invalid input", details)
		return
	}

	l, err := h.service.Create(r.Context(), req.ISBN, req.Customer, req.Email)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	log.Printf("loan created id=%d book_id=%d request_id=%s", l.ID, l.BookID, httpx.RequestIDFrom(r))
	httpx.JSONSuccessCreated(w, r, createdResp{ID: l.ID})
}

// Get handles GET /v1/loans/{id}
func (h *HTTPHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := httpx.PathID(r, "id")
	if err != nil {
		httpx.JSONError(w, r, http.StatusBadRequest, "BAD_REQUEST", "Invalid loan id", nil)
		return
	}

	l, err := h.service.Get(r.Context(), id)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	httpx.JSONSuccess(w, r, ToResponse(l), nil)
}

// Return handles PATCH /v1/loans/{id}
func (h *HTTPHandler) Return(w http.ResponseWriter, r *http.Request) {
	id, err := httpx.PathID(r, "id")
	if err != nil {
		httpx.JSONError(w, r, http.StatusBadRequest, "BAD_REQUEST", "Invalid loan id", nil)
		return
	}

	var req returnReq
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.JSONError(w, r, http.StatusBadRequest, "BAD_REQUEST", "Invalid request body", nil)
		return
	}
	if details := httpx.ValidateStruct(req); len(details) > 0 {
		httpx.JSONError(w, r, http.StatusBadRequest, "VALIDATION_ERROR", "Invalid input", details)
		return
	}

	l, err := h.service.Return(r.Context(), id, *req.Returned)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	httpx.JSONSuccess(w, r, ToResponse(l), nil)
}

// List handles GET /v1/loans
func (h *HTTPHandler) List(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	f := Filter{
		ISBN:     query.Get("isbn"),
		Customer: query.Get("customer"),
	}

	page, err := h.service.List(r.Context(), f, paging.FromQuery(query))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	out := paging.Map(page, ToResponse)
	httpx.JSONSuccess(w, r, out.Items, out.Meta())
}

// ListByBook handles GET /v1/books/{id}/loans
func (h *HTTPHandler) ListByBook(w http.ResponseWriter, r *http.Request) {
	bookID, err := httpx.PathID(r, "id")
	if err != nil {
		httpx.JSONError(w, r, http.StatusBadRequest, "BAD_REQUEST", "Invalid book id", nil)
		return
	}

	page, err := h.service.ListByBook(r.Context(), bookID, paging.FromQuery(r.URL.Query()))
	if err != nil {
		if errors.Is(err, ErrBookNotFound) {
			httpx.JSONError(w, r, http.StatusNotFound, "NOT_FOUND", "Book not found", nil)
			return
		}
		h.writeError(w, r, err)
		return
	}
	out := paging.Map(page, ToResponse)
	httpx.JSONSuccess(w, r, out.Items, out.Meta())
}

// Late handles GET /v1/loans/late
func (h *HTTPHandler) Late(w http.ResponseWriter, r *http.Request) {
	loans, err := h.service.FindLate(r.Context())
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	items := make([]Response, 0, len(loans))
	for _, l := range loans {
		items = append(items, ToResponse(l))
	}
	httpx.JSONSuccess(w, r, items, map[string]any{
		"total":  len(items),
		"cutoff": h.service.Cutoff().Format(dateLayout),
	})
}

func (h *HTTPHandler) writeError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, ErrNotFound):
		httpx.JSONError(w, r, http.StatusNotFound, "NOT_FOUND", "Loan not found", nil)
	case errors.Is(err, ErrInvalidID):
		httpx.JSONError(w, r, http.StatusBadRequest, "BAD_REQUEST", "Invalid loan id", nil)
	case errors.Is(err, ErrBookNotFound):
		httpx.JSONError(w, r, http.StatusBadRequest, "BOOK_NOT_FOUND", "No book with this isbn", nil)
	case errors.Is(err, ErrAlreadyLoaned):
		httpx.JSONError(w, r, http.StatusConflict, "ALREADY_LOANED", "Book is already loaned", nil)
	default:
		log.Printf("loan handler error: request_id=%s error=%v", httpx.RequestIDFrom(r), err)
		httpx.JSONError(w, r, http.StatusInternalServerError, "INTERNAL_ERROR", "Internal server error", nil)
	}
}
