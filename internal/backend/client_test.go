package backend

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"libraryhub/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(t *testing.T, h http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	return NewClient(srv.URL+"/api/", "tok", time.Second, nil)
}

func TestListBorrowings_EnvelopeAndFilter(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/borrowings", r.URL.Path)
		assert.Equal(t, "overdue", r.URL.Query().Get("status"))
		assert.Equal(t, "Bearer tok", r.Header.Get("Authorization"))
		_, _ = io.WriteString(w, `{"success":true,"data":[
			{"id":1,"book_id":10,"member_id":7,"borrow_date":"2024-01-01","due_date":"2024-01-15","fine":15000},
			{"id":2,"book_id":11,"member_id":8,"borrow_date":"2024-01-02","due_date":"2024-01-16","status":"overdue"}
		]}`)
	})

	rows, err := c.ListBorrowings(context.Background(), models.BorrowingFilter{Status: "overdue", MemberID: 7})
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, int64(1), rows[0].ID)
	require.NotNil(t, rows[0].Fine)
	assert.Equal(t, 15000.0, *rows[0].Fine)
	assert.Nil(t, rows[0].Status)
}

func TestListBooks_BareArray(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, `[{"id":3,"title":"Dune","copies_total":2,"copies_available":1}]`)
	})

	books, err := c.ListBooks(context.Background())
	require.NoError(t, err)
	require.Len(t, books, 1)
	assert.Equal(t, "Dune", books[0].Title)
}

func TestGetBorrowing_NotInListing(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, `{"success":true,"data":[]}`)
	})

	_, err := c.GetBorrowing(context.Background(), 42)
	assert.True(t, errors.Is(err, ErrNotFound))
}

func TestGetBook_NotFound(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		_, _ = io.WriteString(w, `{"success":false,"message":"Book not found"}`)
	})

	_, err := c.GetBook(context.Background(), 9)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrNotFound))

	var be *Error
	require.True(t, errors.As(err, &be))
	assert.Equal(t, "Book not found", be.Message)
}

func TestRequest_SuccessFalse(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, `{"success":false,"message":"Book is not available for borrowing"}`)
	})

	_, err := c.RequestBorrow(context.Background(), 3)
	var be *Error
	require.True(t, errors.As(err, &be))
	assert.Equal(t, http.StatusOK, be.StatusCode)
	assert.False(t, errors.Is(err, ErrNotFound))
}

func TestRequestBorrow_SendsBookID(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/api/borrowings/borrow", r.URL.Path)
		body, _ := io.ReadAll(r.Body)
		assert.JSONEq(t, `{"book_id":3}`, string(body))
		w.WriteHeader(http.StatusCreated)
		_, _ = io.WriteString(w, `{"success":true,"data":{"id":5,"book_id":3,"member_id":1,"borrow_date":"2024-03-01","due_date":"2024-03-15","status":"pending"}}`)
	})

	wire, err := c.RequestBorrow(context.Background(), 3)
	require.NoError(t, err)
	require.NotNil(t, wire.Status)
	assert.Equal(t, "pending", *wire.Status)
}

func TestReturnBorrowing(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/borrowings/5/return", r.URL.Path)
		_, _ = io.WriteString(w, `{"success":true,"message":"Book returned successfully","data":{
			"borrowing":{"id":5,"book_id":3,"member_id":1,"borrow_date":"2024-03-01","due_date":"2024-03-15","return_date":"2024-03-18"},
			"fine":15000,"fine_message":"Late return fine: Rp 15,000"}}`)
	})

	res, err := c.ReturnBorrowing(context.Background(), 5)
	require.NoError(t, err)
	assert.Equal(t, 15000.0, res.Fine)
	require.NotNil(t, res.Borrowing.ReturnDate)
	assert.Equal(t, "2024-03-18", *res.Borrowing.ReturnDate)
}

func TestActions_Routes(t *testing.T) {
	var got []string
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		got = append(got, r.Method+" "+r.URL.Path)
		_, _ = io.WriteString(w, `{"success":true}`)
	})
	ctx := context.Background()

	require.NoError(t, c.Approve(ctx, 1))
	require.NoError(t, c.Deny(ctx, 2))
	require.NoError(t, c.ApproveReturn(ctx, 3))
	require.NoError(t, c.DenyReturn(ctx, 4))
	require.NoError(t, c.DeleteBook(ctx, 5))
	require.NoError(t, c.DeleteUser(ctx, 6))

	assert.Equal(t, []string{
		"POST /api/borrowings/1/approve",
		"POST /api/borrowings/2/deny",
		"POST /api/borrowings/3/approve-return",
		"POST /api/borrowings/4/deny-return",
		"DELETE /api/books/5/delete",
		"DELETE /api/users/6",
	}, got)
}

func TestServerError_PlainBody(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
		_, _ = io.WriteString(w, "upstream down")
	})

	_, err := c.ListUsers(context.Background())
	var be *Error
	require.True(t, errors.As(err, &be))
	assert.Equal(t, http.StatusBadGateway, be.StatusCode)
	assert.Equal(t, "upstream down", be.Message)
}
