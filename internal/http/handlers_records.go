package http

import (
	"bytes"
	"fmt"
	"net/http"
	"strings"

	"ledger/internal/core"
	"ledger/internal/export"
	"ledger/internal/ledger"
	"ledger/internal/log"
)

// recordView pairs a record with its current position.
type recordView struct {
	Position int `json:"position"`
	core.Record
}

func views(records []core.Record) []recordView {
	out := make([]recordView, len(records))
	for i, r := range records {
		out[i] = recordView{Position: i, Record: r}
	}
	return out
}

// recordHandlers serves the positional CRUD of one record sequence. Expenses
// and incomes each get their own instance.
type recordHandlers struct {
	server   *Server
	ledger   *ledger.Service
	filename string
}

func (h recordHandlers) register(mux *http.ServeMux, prefix string) {
	s := h.server
	mux.HandleFunc("GET "+prefix, s.withTenant(h.list))
	mux.HandleFunc("POST "+prefix, s.withTenant(h.create))
	mux.HandleFunc("GET "+prefix+"/{position}", s.withTenant(h.get))
	mux.HandleFunc("PUT "+prefix+"/{position}", s.withTenant(h.update))
	mux.HandleFunc("DELETE "+prefix+"/{position}", s.withTenant(h.delete))
}

// list returns the sequence, optionally filtered by ?date=, ?month= or
// ?category= (which may be narrowed by ?month=). Filtered results carry no
// positions because they are not the sequence's own indices.
func (h recordHandlers) list(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	date := strings.TrimSpace(q.Get("date"))
	month := strings.TrimSpace(q.Get("month"))
	category := strings.TrimSpace(q.Get("category"))

	var (
		records []core.Record
		err     error
	)
	switch {
	case date != "" && (month != "" || category != ""):
		BadRequestError("date cannot be combined with month or category").Write(w)
		return
	case date != "":
		records, err = h.ledger.FilterByDate(r.Context(), date)
	case category != "":
		records, err = h.ledger.FilterByCategory(r.Context(), category, month)
	case month != "":
		records, err = h.ledger.FilterByMonth(r.Context(), month)
	default:
		records, err = h.ledger.List(r.Context())
		if err != nil {
			h.server.fail(w, r, err, log.OpList)
			return
		}
		NewJSONResponse().Data(views(records)).Write(w)
		return
	}
	if err != nil {
		h.server.fail(w, r, err, log.OpList)
		return
	}
	NewJSONResponse().Data(records).Write(w)
}

func (h recordHandlers) create(w http.ResponseWriter, r *http.Request) {
	var req CreateRecordRequest
	if err := DecodeJSON(r, &req); err != nil {
		h.server.fail(w, r, err, log.OpCreate)
		return
	}
	if !req.Amount.Set {
		h.server.fail(w, r, fmt.Errorf("%w: amount is required", core.ErrValidation), log.OpCreate)
		return
	}

	rec, pos, err := h.ledger.Add(r.Context(),
		sanitizeInput(req.Description), sanitizeInput(req.Category), req.Amount.Value, req.Date)
	if err != nil {
		h.server.fail(w, r, err, log.OpCreate)
		return
	}
	NewJSONResponse().
		Status(http.StatusCreated).
		Data(recordView{Position: pos, Record: rec}).
		Write(w)
}

func (h recordHandlers) get(w http.ResponseWriter, r *http.Request) {
	pos, err := ParsePosition(r)
	if err != nil {
		h.server.fail(w, r, err, log.OpRead)
		return
	}
	rec, err := h.ledger.Get(r.Context(), pos)
	if err != nil {
		h.server.fail(w, r, err, log.OpRead)
		return
	}
	NewJSONResponse().Data(recordView{Position: pos, Record: rec}).Write(w)
}

func (h recordHandlers) update(w http.ResponseWriter, r *http.Request) {
	pos, err := ParsePosition(r)
	if err != nil {
		h.server.fail(w, r, err, log.OpUpdate)
		return
	}
	var req UpdateRecordRequest
	if err := DecodeJSON(r, &req); err != nil {
		h.server.fail(w, r, err, log.OpUpdate)
		return
	}
	if req.Description != nil {
		v := sanitizeInput(*req.Description)
		req.Description = &v
	}
	if req.Category != nil {
		v := sanitizeInput(*req.Category)
		req.Category = &v
	}

	rec, err := h.ledger.Edit(r.Context(), pos, req.Patch())
	if err != nil {
		h.server.fail(w, r, err, log.OpUpdate)
		return
	}
	NewJSONResponse().Data(recordView{Position: pos, Record: rec}).Write(w)
}

func (h recordHandlers) delete(w http.ResponseWriter, r *http.Request) {
	pos, err := ParsePosition(r)
	if err != nil {
		h.server.fail(w, r, err, log.OpDelete)
		return
	}
	rec, err := h.ledger.Delete(r.Context(), pos)
	if err != nil {
		h.server.fail(w, r, err, log.OpDelete)
		return
	}
	NewJSONResponse().Data(rec).Write(w)
}

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// export renders the whole sequence into a buffer first so that an empty
// one still yields a JSON error rather than a partial file.
func (h recordHandlers) export(w http.ResponseWriter, r *http.Request) {
	var (
		buf         bytes.Buffer
		sink        export.Sink
		contentType string
		filename    string
	)
	switch format := strings.ToLower(r.URL.Query().Get("format")); format {
	case "", "csv":
		sink, contentType, filename = export.NewCSVSink(&buf), "text/csv; charset=utf-8", h.filename+".csv"
	case "xlsx":
		sink, contentType, filename = export.NewXLSXSink(&buf), xlsxContentType, h.filename+".xlsx"
	default:
		BadRequestError(fmt.Sprintf("unsupported export format %q", format)).Write(w)
		return
	}

	if err := h.ledger.Export(r.Context(), sink); err != nil {
		h.server.fail(w, r, err, log.OpExport)
		return
	}
	NewJSONResponse().Attachment(contentType, filename, buf.Bytes()).Write(w)
}
