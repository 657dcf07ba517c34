package backend

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"libraryhub/internal/domain"
	"libraryhub/internal/metrics"
	"libraryhub/internal/models"

	jsoniter "github.com/json-iterator/go"
	"github.com/rs/zerolog"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// ErrNotFound is returned when the backend answers 404 or a record is absent from a listing.
var ErrNotFound = domain.ErrNotFound

// Error is a non-2xx answer from the backend.
type Error struct {
	StatusCode int
	Message    string
}

func (e *Error) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("backend: http %d", e.StatusCode)
	}
	return fmt.Sprintf("backend: http %d: %s", e.StatusCode, e.Message)
}

func (e *Error) Is(target error) bool {
	return target == ErrNotFound && e.StatusCode == http.StatusNotFound
}

// envelope is the {success, message, data} wrapper used by every backend route.
type envelope struct {
	Success *bool               `json:"success"`
	Message string              `json:"message"`
	Data    jsoniter.RawMessage `json:"data"`
}

// Client calls the library REST backend with a service bearer token.
type Client struct {
	baseURL    string
	token      string
	httpClient *http.Client
	logger     *zerolog.Logger
}

// NewClient constructs a client. baseURL includes the /api prefix.
func NewClient(baseURL, token string, timeout time.Duration, logger *zerolog.Logger) *Client {
	if timeout <= 0 {
		timeout = models.DefaultBackendTimeout * time.Second
	}
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		token:      token,
		httpClient: &http.Client{Timeout: timeout},
		logger:     logger,
	}
}

// ListBorrowings fetches /borrowings. The backend filters by status only, member filtering happens here.
func (c *Client) ListBorrowings(ctx context.Context, filter models.BorrowingFilter) ([]models.BorrowingWire, error) {
	path := "/borrowings"
	if filter.Status != "" {
		path += "?status=" + url.QueryEscape(filter.Status)
	}

	var rows []models.BorrowingWire
	if err := c.doGet(ctx, "borrowings", path, &rows); err != nil {
		return nil, fmt.Errorf("list borrowings: %w", err)
	}
	if filter.MemberID == 0 {
		return rows, nil
	}

	out := rows[:0]
	for i := range rows {
		if rows[i].MemberID == filter.MemberID || (rows[i].Member != nil && rows[i].Member.ID == filter.MemberID) {
			out = append(out, rows[i])
		}
	}
	return out, nil
}

// GetBorrowing looks the record up in the full listing; the backend has no single-borrowing route.
func (c *Client) GetBorrowing(ctx context.Context, id int64) (*models.BorrowingWire, error) {
	rows, err := c.ListBorrowings(ctx, models.BorrowingFilter{})
	if err != nil {
		return nil, err
	}
	for i := range rows {
		if rows[i].ID == id {
			return &rows[i], nil
		}
	}
	return nil, fmt.Errorf("borrowing %d: %w", id, ErrNotFound)
}

// MyBorrowings fetches /borrowings/my for the token owner.
func (c *Client) MyBorrowings(ctx context.Context) ([]models.BorrowingWire, error) {
	var rows []models.BorrowingWire
	if err := c.doGet(ctx, "borrowings_my", "/borrowings/my", &rows); err != nil {
		return nil, fmt.Errorf("my borrowings: %w", err)
	}
	return rows, nil
}

// BorrowingHistory fetches /borrowings/history for the token owner.
func (c *Client) BorrowingHistory(ctx context.Context) ([]models.BorrowingWire, error) {
	var rows []models.BorrowingWire
	if err := c.doGet(ctx, "borrowings_history", "/borrowings/history", &rows); err != nil {
		return nil, fmt.Errorf("borrowing history: %w", err)
	}
	return rows, nil
}

func (c *Client) ListBooks(ctx context.Context) ([]models.Book, error) {
	var books []models.Book
	if err := c.doGet(ctx, "books", "/books", &books); err != nil {
		return nil, fmt.Errorf("list books: %w", err)
	}
	return books, nil
}

func (c *Client) GetBook(ctx context.Context, id int64) (*models.Book, error) {
	var book models.Book
	if err := c.doGet(ctx, "book", fmt.Sprintf("/books/%d", id), &book); err != nil {
		return nil, fmt.Errorf("get book %d: %w", id, err)
	}
	return &book, nil
}

func (c *Client) SearchBooks(ctx context.Context, query string) ([]models.Book, error) {
	var books []models.Book
	if err := c.doGet(ctx, "books_search", "/books/search?q="+url.QueryEscape(query), &books); err != nil {
		return nil, fmt.Errorf("search books: %w", err)
	}
	return books, nil
}

func (c *Client) ListUsers(ctx context.Context) ([]models.User, error) {
	var users []models.User
	if err := c.doGet(ctx, "users", "/users", &users); err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	return users, nil
}

func (c *Client) RequestBorrow(ctx context.Context, bookID int64) (*models.BorrowingWire, error) {
	var wire models.BorrowingWire
	body := map[string]int64{"book_id": bookID}
	if err := c.doJSON(ctx, http.MethodPost, "borrow", "/borrowings/borrow", body, &wire); err != nil {
		return nil, fmt.Errorf("borrow book %d: %w", bookID, err)
	}
	return &wire, nil
}

func (c *Client) ReturnBorrowing(ctx context.Context, id int64) (*models.ReturnResult, error) {
	var res models.ReturnResult
	if err := c.doJSON(ctx, http.MethodPost, "return", fmt.Sprintf("/borrowings/%d/return", id), nil, &res); err != nil {
		return nil, fmt.Errorf("return borrowing %d: %w", id, err)
	}
	return &res, nil
}

func (c *Client) Approve(ctx context.Context, id int64) error {
	return c.borrowingAction(ctx, id, "approve")
}

func (c *Client) Deny(ctx context.Context, id int64) error {
	return c.borrowingAction(ctx, id, "deny")
}

func (c *Client) ApproveReturn(ctx context.Context, id int64) error {
	return c.borrowingAction(ctx, id, "approve-return")
}

func (c *Client) DenyReturn(ctx context.Context, id int64) error {
	return c.borrowingAction(ctx, id, "deny-return")
}

func (c *Client) borrowingAction(ctx context.Context, id int64, action string) error {
	if err := c.doJSON(ctx, http.MethodPost, action, fmt.Sprintf("/borrowings/%d/%s", id, action), nil, nil); err != nil {
		return fmt.Errorf("%s borrowing %d: %w", action, id, err)
	}
	return nil
}

func (c *Client) CreateBook(ctx context.Context, in models.BookInput) (*models.Book, error) {
	var book models.Book
	if err := c.doJSON(ctx, http.MethodPost, "book_create", "/books/create", in, &book); err != nil {
		return nil, fmt.Errorf("create book: %w", err)
	}
	return &book, nil
}

func (c *Client) UpdateBook(ctx context.Context, id int64, in models.BookInput) (*models.Book, error) {
	var book models.Book
	if err := c.doJSON(ctx, http.MethodPut, "book_update", fmt.Sprintf("/books/%d/update", id), in, &book); err != nil {
		return nil, fmt.Errorf("update book %d: %w", id, err)
	}
	return &book, nil
}

func (c *Client) DeleteBook(ctx context.Context, id int64) error {
	if err := c.doJSON(ctx, http.MethodDelete, "book_delete", fmt.Sprintf("/books/%d/delete", id), nil, nil); err != nil {
		return fmt.Errorf("delete book %d: %w", id, err)
	}
	return nil
}

func (c *Client) DeleteUser(ctx context.Context, id int64) error {
	if err := c.doJSON(ctx, http.MethodDelete, "user_delete", fmt.Sprintf("/users/%d", id), nil, nil); err != nil {
		return fmt.Errorf("delete user %d: %w", id, err)
	}
	return nil
}

func (c *Client) doGet(ctx context.Context, route, path string, out any) error {
	return c.doJSON(ctx, http.MethodGet, route, path, nil, out)
}

func (c *Client) doJSON(ctx context.Context, method, route, path string, body any, out any) error {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	c.addHeaders(req)

	start := time.Now()
	err = c.do(req, out)
	elapsed := time.Since(start)
	metrics.ObserveBackend(method, route, err, elapsed)

	c.logger.Debug().
		Str("method", method).
		Str("route", route).
		Dur("elapsed", elapsed).
		Err(err).
		Msg("backend request")
	return err
}

func (c *Client) do(req *http.Request, out any) error {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read body: %w", err)
	}

	var env envelope
	// Bodies that are not an object (or are empty) are tolerated on errors.
	envErr := json.Unmarshal(raw, &env)

	if resp.StatusCode >= 300 {
		msg := env.Message
		if envErr != nil || msg == "" {
			msg = strings.TrimSpace(string(raw))
		}
		return &Error{StatusCode: resp.StatusCode, Message: msg}
	}
	if envErr == nil && env.Success != nil && !*env.Success {
		return &Error{StatusCode: resp.StatusCode, Message: env.Message}
	}
	if out == nil {
		return nil
	}

	payload := raw
	if envErr == nil && len(env.Data) > 0 {
		payload = env.Data
	}
	if err := json.Unmarshal(payload, out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

func (c *Client) addHeaders(req *http.Request) {
	req.Header.Set("Accept", "application/json")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
}
