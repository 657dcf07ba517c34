package notify

import (
	"context"
	"errors"
	"testing"
	"time"

	"libraryhub/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type mockViews struct{ mock.Mock }

func (m *mockViews) List(ctx context.Context, filter models.BorrowingFilter, statuses ...models.Status) ([]models.BorrowingView, error) {
	args := m.Called(ctx, filter, statuses)
	views, _ := args.Get(0).([]models.BorrowingView)
	return views, args.Error(1)
}

type mockSender struct{ mock.Mock }

func (m *mockSender) SendLongHTML(chatID int64, text string) error {
	return m.Called(chatID, text).Error(0)
}

func intPtr(i int) *int { return &i }

var digestViews = []models.BorrowingView{
	{
		BorrowingWire: models.BorrowingWire{ID: 1, BookID: 3, Book: &models.Book{Title: "Tom & Jerry"}, Member: &models.User{Name: "Ann"}},
		Derived:       models.Derived{Status: models.StatusOverdue, DaysOverdue: intPtr(3), Fine: 15000},
	},
	{
		BorrowingWire: models.BorrowingWire{ID: 2, BookID: 4},
		Derived:       models.Derived{Status: models.StatusDueSoon, DaysUntilDue: intPtr(2)},
	},
}

func TestFormatDigest(t *testing.T) {
	text := FormatDigest(digestViews, time.Date(2024, 3, 20, 9, 0, 0, 0, time.UTC))

	assert.Contains(t, text, "<b>Выдачи на 20.03.2024</b>")
	assert.Contains(t, text, "Просрочены (1)")
	assert.Contains(t, text, "Tom &amp; Jerry, Ann: 3 дн., штраф 15000")
	assert.Contains(t, text, "Итого штрафов: 15000")
	assert.Contains(t, text, "книга #4, -: осталось 2 дн.")
}

func TestNewReminder_ParsesTime(t *testing.T) {
	r, err := NewReminder(nil, nil, nil, "18:30", nil)
	require.NoError(t, err)
	assert.Equal(t, 18, r.hour)
	assert.Equal(t, 30, r.minute)

	_, err = NewReminder(nil, nil, nil, "late", nil)
	assert.Error(t, err)
	_, err = NewReminder(nil, nil, nil, "25:00", nil)
	assert.Error(t, err)
}

func TestUntilNext(t *testing.T) {
	r, err := NewReminder(nil, nil, nil, "09:00", nil)
	require.NoError(t, err)

	r.now = func() time.Time { return time.Date(2024, 3, 20, 8, 0, 0, 0, time.UTC) }
	assert.Equal(t, time.Hour, r.untilNext())

	r.now = func() time.Time { return time.Date(2024, 3, 20, 9, 0, 0, 0, time.UTC) }
	assert.Equal(t, 24*time.Hour, r.untilNext())
}

func TestSendDigest(t *testing.T) {
	views := new(mockViews)
	sender := new(mockSender)
	r, err := NewReminder(views, sender, []int64{10, 20}, "", nil)
	require.NoError(t, err)
	r.now = func() time.Time { return time.Date(2024, 3, 20, 9, 0, 0, 0, time.UTC) }

	views.On("List", mock.Anything, models.BorrowingFilter{}, []models.Status{models.StatusOverdue, models.StatusDueSoon}).
		Return(digestViews, nil)
	sender.On("SendLongHTML", int64(10), mock.AnythingOfType("string")).Return(errors.New("blocked"))
	sender.On("SendLongHTML", int64(20), mock.AnythingOfType("string")).Return(nil)

	err = r.SendDigest(context.Background())
	assert.Error(t, err)
	sender.AssertNumberOfCalls(t, "SendLongHTML", 2)
}

func TestSendDigest_NothingToReport(t *testing.T) {
	views := new(mockViews)
	sender := new(mockSender)
	r, err := NewReminder(views, sender, []int64{10}, "", nil)
	require.NoError(t, err)

	views.On("List", mock.Anything, mock.Anything, mock.Anything).Return([]models.BorrowingView{}, nil)

	require.NoError(t, r.SendDigest(context.Background()))
	sender.AssertNotCalled(t, "SendLongHTML", mock.Anything, mock.Anything)
}

func TestSendDigest_ListError(t *testing.T) {
	views := new(mockViews)
	r, err := NewReminder(views, new(mockSender), []int64{10}, "", nil)
	require.NoError(t, err)

	views.On("List", mock.Anything, mock.Anything, mock.Anything).Return(nil, errors.New("backend down"))
	assert.Error(t, r.SendDigest(context.Background()))
}
