package api

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"libraryhub/internal/models"
	"libraryhub/internal/report"
)

var knownStatuses = map[models.Status]bool{
	models.StatusPending:  true,
	models.StatusActive:   true,
	models.StatusDueSoon:  true,
	models.StatusOverdue:  true,
	models.StatusReturned: true,
}

func (s *HTTPServer) handleHealth(w http.ResponseWriter, r *http.Request) {
	if s.deps.Health != nil {
		ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
		defer cancel()
		if err := s.deps.Health(ctx); err != nil {
			writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable", "error": err.Error()})
			return
		}
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *HTTPServer) handleListBorrowings(w http.ResponseWriter, r *http.Request) {
	filter, statuses, err := parseBorrowingQuery(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	views, err := s.deps.Borrowings.List(r.Context(), filter, statuses...)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"borrowings": views, "count": len(views)})
}

func (s *HTTPServer) handleSummary(w http.ResponseWriter, r *http.Request) {
	filter, _, err := parseBorrowingQuery(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	summary, err := s.deps.Borrowings.Summary(r.Context(), filter)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, summary)
}

func (s *HTTPServer) handleGetBorrowing(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	view, err := s.deps.Borrowings.Get(r.Context(), id)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

func (s *HTTPServer) handleRequestBorrow(w http.ResponseWriter, r *http.Request) {
	var body struct {
		BookID int64 `json:"book_id"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	view, err := s.deps.Borrowings.RequestBorrow(r.Context(), body.BookID)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, view)
}

func (s *HTTPServer) handleBorrowingAction(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}

	ctx := r.Context()
	var err error
	switch action := r.PathValue("action"); action {
	case "return":
		res, retErr := s.deps.Borrowings.Return(ctx, id)
		if retErr != nil {
			writeServiceError(w, retErr)
			return
		}
		writeJSON(w, http.StatusOK, res)
		return
	case "approve":
		err = s.deps.Borrowings.Approve(ctx, id)
	case "deny":
		err = s.deps.Borrowings.Deny(ctx, id)
	case "approve-return":
		err = s.deps.Borrowings.ApproveReturn(ctx, id)
	case "deny-return":
		err = s.deps.Borrowings.DenyReturn(ctx, id)
	default:
		writeError(w, http.StatusNotFound, fmt.Sprintf("unknown action %q", action))
		return
	}

	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"id": id, "status": "ok"})
}

func (s *HTTPServer) handleMemberLoans(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	views, err := s.deps.Borrowings.MemberLoans(r.Context(), id)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"borrowings": views, "count": len(views)})
}

func (s *HTTPServer) handleMemberHistory(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	views, err := s.deps.Borrowings.MemberHistory(r.Context(), id)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"borrowings": views, "count": len(views)})
}

func (s *HTTPServer) handleDerive(w http.ResponseWriter, r *http.Request) {
	var req deriveRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	view, err := deriveView(s.deps.Deriver, req)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

func (s *HTTPServer) handleListBooks(w http.ResponseWriter, r *http.Request) {
	var (
		books []models.Book
		err   error
	)
	if q := strings.TrimSpace(r.URL.Query().Get("q")); q != "" {
		books, err = s.deps.Catalog.SearchBooks(r.Context(), q)
	} else {
		books, err = s.deps.Catalog.ListBooks(r.Context())
	}
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"books": books, "count": len(books)})
}

func (s *HTTPServer) handleGetBook(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	book, err := s.deps.Catalog.GetBook(r.Context(), id)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, book)
}

func (s *HTTPServer) handleCreateBook(w http.ResponseWriter, r *http.Request) {
	var in models.BookInput
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	book, err := s.deps.Catalog.CreateBook(r.Context(), in)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, book)
}

func (s *HTTPServer) handleUpdateBook(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	var in models.BookInput
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	book, err := s.deps.Catalog.UpdateBook(r.Context(), id, in)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, book)
}

func (s *HTTPServer) handleDeleteBook(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	if err := s.deps.Catalog.DeleteBook(r.Context(), id); err != nil {
		writeServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *HTTPServer) handleListUsers(w http.ResponseWriter, r *http.Request) {
	users, err := s.deps.Catalog.ListUsers(r.Context())
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"users": users, "count": len(users)})
}

func (s *HTTPServer) handleDeleteUser(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	if err := s.deps.Catalog.DeleteUser(r.Context(), id); err != nil {
		writeServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *HTTPServer) handleBorrowingsReport(w http.ResponseWriter, r *http.Request) {
	filter, statuses, err := parseBorrowingQuery(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	views, err := s.deps.Borrowings.List(r.Context(), filter, statuses...)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	now := s.deps.Deriver.Now()
	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.Header().Set("Content-Disposition",
		fmt.Sprintf(`attachment; filename="borrowings_%s.xlsx"`, now.Format("2006-01-02")))
	if err := report.WriteTo(w, views, now); err != nil {
		s.logger.Error().Err(err).Msg("write xlsx report")
	}
}

// parseBorrowingQuery reads member_id and a comma separated status list.
func parseBorrowingQuery(r *http.Request) (models.BorrowingFilter, []models.Status, error) {
	q := r.URL.Query()
	var filter models.BorrowingFilter

	if raw := strings.TrimSpace(q.Get("member_id")); raw != "" {
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil || id <= 0 {
			return filter, nil, fmt.Errorf("invalid member_id %q", raw)
		}
		filter.MemberID = id
	}

	var statuses []models.Status
	for _, part := range strings.Split(q.Get("status"), ",") {
		part = strings.ToLower(strings.TrimSpace(part))
		if part == "" {
			continue
		}
		st := models.Status(part)
		if !knownStatuses[st] {
			return filter, nil, fmt.Errorf("unknown status %q", part)
		}
		statuses = append(statuses, st)
	}
	return filter, statuses, nil
}

func pathID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	raw := r.PathValue("id")
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("invalid id %q", raw))
		return 0, false
	}
	return id, true
}
