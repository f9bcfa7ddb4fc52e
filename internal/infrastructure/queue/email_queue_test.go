package queue

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/your-org/cinema-backend/internal/pkg/email"
	"github.com/your-org/cinema-backend/internal/pkg/logger"
)

type mockDeliverer struct {
	mock.Mock
}

func (m *mockDeliverer) Deliver(ctx context.Context, e *email.Email) error {
	return m.Called(e.To[0], e.Type).Error(0)
}

func TestConsumerHandleDeliversJob(t *testing.T) {
	d := new(mockDeliverer)
	d.On("Deliver", "a@b.com", email.EmailTypePaymentSuccess).Return(nil)
	c := NewEmailConsumer("", "email.jobs", d, logger.Discard())

	body, err := json.Marshal(email.Email{To: []string{"a@b.com"}, Subject: "Payment successful", Type: email.EmailTypePaymentSuccess})
	require.NoError(t, err)

	assert.NoError(t, c.handle(context.Background(), body))
	d.AssertExpectations(t)
}

func TestConsumerHandleRejectsBadJobs(t *testing.T) {
	d := new(mockDeliverer)
	c := NewEmailConsumer("", "email.jobs", d, logger.Discard())

	assert.Error(t, c.handle(context.Background(), []byte("not json")))
	assert.Error(t, c.handle(context.Background(), []byte(`{"to":[]}`)))
	d.AssertNotCalled(t, "Deliver", mock.Anything, mock.Anything)
}

func TestConsumerHandlePropagatesDeliveryError(t *testing.T) {
	d := new(mockDeliverer)
	d.On("Deliver", "a@b.com", email.EmailTypeActivation).Return(errors.New("smtp down"))
	c := NewEmailConsumer("", "email.jobs", d, logger.Discard())

	body, _ := json.Marshal(email.Email{To: []string{"a@b.com"}, Type: email.EmailTypeActivation})
	assert.EqualError(t, c.handle(context.Background(), body), "smtp down")
}
