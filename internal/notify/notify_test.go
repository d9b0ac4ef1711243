package notify

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type MockTransport struct {
	mock.Mock
}

func (m *MockTransport) Send(ctx context.Context, msg Message) error {
	args := m.Called(ctx, msg)
	return args.Error(0)
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(&bytes.Buffer{}, nil))
}

func TestDispatcher_SendBatch(t *testing.T) {
	ctx := context.Background()

	t.Run("one message for every recipient", func(t *testing.T) {
		transport := new(MockTransport)
		d := NewDispatcher(transport, "library@localhost", discardLogger())

		want := Message{
			From:    "library@localhost",
			To:      []string{"a@x.com", "b@x.com"},
			Subject: "Late loan",
			Body:    "Please return the book.",
		}
		transport.On("Send", ctx, want).Return(nil).Once()

		err := d.SendBatch(ctx, "Late loan", "Please return the book.", []string{"a@x.com", "b@x.com"})
		require.NoError(t, err)
		transport.AssertExpectations(t)
		transport.AssertNumberOfCalls(t, "Send", 1)
	})

	t.Run("transport failure", func(t *testing.T) {
		transport := new(MockTransport)
		d := NewDispatcher(transport, "library@localhost", discardLogger())

		boom := errors.New("connection refused")
		transport.On("Send", ctx, mock.Anything).Return(boom).Once()

		err := d.SendBatch(ctx, "s", "m", []string{"a@x.com"})
		assert.ErrorIs(t, err, ErrDispatchFailed)
		assert.ErrorIs(t, err, boom)
		transport.AssertNumberOfCalls(t, "Send", 1)
	})

	t.Run("recipients are copied", func(t *testing.T) {
		transport := new(MockTransport)
		d := NewDispatcher(transport, "library@localhost", discardLogger())

		recipients := []string{"a@x.com"}
		transport.On("Send", ctx, mock.Anything).Run(func(args mock.Arguments) {
			recipients[0] = "changed@x.com"
		}).Return(nil)

		require.NoError(t, d.SendBatch(ctx, "s", "m", recipients))
		sent := transport.Calls[0].Arguments.Get(1).(Message)
		assert.Equal(t, []string{"a@x.com"}, sent.To)
	})
}

func TestLogTransport_Send(t *testing.T) {
	var buf bytes.Buffer
	transport := NewLogTransport(slog.New(slog.NewTextHandler(&buf, nil)))

	err := transport.Send(context.Background(), Message{
		From:    "library@localhost",
		To:      []string{"a@x.com", "b@x.com"},
		Subject: "Late loan",
		Body:    "hello",
	})
	require.NoError(t, err)
	assert.Contains(t, buf.String(), "to=a@x.com,b@x.com")
	assert.Contains(t, buf.String(), `subject="Late loan"`)
}

func TestSMTPTransport_RejectsBeforeDialing(t *testing.T) {
	transport := NewSMTPTransport(SMTPConfig{Host: "localhost", Port: 2525})

	t.Run("no recipients", func(t *testing.T) {
		err := transport.Send(context.Background(), Message{From: "library@localhost", Subject: "s"})
		assert.ErrorIs(t, err, errNoRecipients)
	})

	t.Run("malformed sender", func(t *testing.T) {
		err := transport.Send(context.Background(), Message{From: "not an address", To: []string{"a@x.com"}})
		assert.ErrorContains(t, err, "set sender")
	})
}

func TestSMTPTransport_AuthOptions(t *testing.T) {
	assert.Len(t, NewSMTPTransport(SMTPConfig{Host: "h", Port: 25}).clientOptions(), 2)
	assert.Len(t, NewSMTPTransport(SMTPConfig{Host: "h", Port: 587, Username: "u", Password: "p"}).clientOptions(), 5)
}
