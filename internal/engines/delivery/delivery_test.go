package delivery

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/BearBump/ComplianceBox/internal/models"
	"github.com/stretchr/testify/require"
)

type fakeTransport struct {
	delivered bool
	err       error
	calls     int
	sent      []uint64
}

func (t *fakeTransport) Send(ctx context.Context, msg models.OutboundMessage) (bool, error) {
	t.calls++
	t.sent = append(t.sent, msg.ID)
	return t.delivered, t.err
}

func failedMsg(id uint64, retries int32) models.OutboundMessage {
	return models.OutboundMessage{
		ID:              id,
		TransactionKind: models.TransactionStatusUpdate,
		PartnerID:       1,
		Status:          models.MessageStatusFailed,
		RetryCount:      retries,
		Priority:        models.MessagePriorityNormal,
	}
}

func TestRetryFailed_SuccessTransitionsToSent(t *testing.T) {
	ft := &fakeTransport{delivered: true}
	e := New(ft)

	res, err := e.RetryFailed(context.Background(), []models.OutboundMessage{failedMsg(1, 1)})
	require.NoError(t, err)
	require.Equal(t, 1, res.Succeeded)
	require.Equal(t, 0, res.Failed)
	require.Len(t, res.Updated, 1)
	require.Equal(t, models.MessageStatusSent, res.Updated[0].Status)
	require.Equal(t, int32(1), res.Updated[0].RetryCount)
}

func TestRetryFailed_RejectedIncrementsRetryCount(t *testing.T) {
	ft := &fakeTransport{delivered: false}
	e := New(ft)

	res, err := e.RetryFailed(context.Background(), []models.OutboundMessage{failedMsg(1, 2)})
	require.NoError(t, err)
	require.Equal(t, 1, res.Failed)
	require.Equal(t, models.MessageStatusFailed, res.Updated[0].Status)
	require.Equal(t, int32(3), res.Updated[0].RetryCount)
}

func TestRetryFailed_ExhaustedNeverRetried(t *testing.T) {
	ft := &fakeTransport{delivered: true}
	e := New(ft)

	res, err := e.RetryFailed(context.Background(), []models.OutboundMessage{
		failedMsg(1, models.MaxRetryCount),
		failedMsg(2, models.MaxRetryCount+1),
	})
	require.NoError(t, err)
	require.Equal(t, 0, ft.calls)
	require.Equal(t, 2, res.Exhausted)
	require.Empty(t, res.Updated)
}

func TestRetryFailed_SkipsNonFailed(t *testing.T) {
	ft := &fakeTransport{delivered: true}
	e := New(ft)

	m := failedMsg(1, 0)
	m.Status = models.MessageStatusSent
	res, err := e.RetryFailed(context.Background(), []models.OutboundMessage{m})
	require.NoError(t, err)
	require.Equal(t, 0, ft.calls)
	require.Zero(t, res.Attempted)
}

func TestRetryFailed_TransportErrorIsFatalWithPartialResult(t *testing.T) {
	ft := &fakeTransport{err: errors.New("gateway down")}
	e := New(ft)

	res, err := e.RetryFailed(context.Background(), []models.OutboundMessage{failedMsg(1, 0), failedMsg(2, 0)})
	require.Error(t, err)
	require.Equal(t, 1, ft.calls)
	require.Equal(t, 1, res.Attempted)
	require.Empty(t, res.Updated)
}

func routablePartner(id uint64) models.TradingPartner {
	return models.TradingPartner{
		ID:     id,
		Name:   "ACME Logistics",
		EDIID:  "ACMELOG",
		Active: true,
		SupportedTransactions: []string{
			models.TransactionStatusUpdate,
			models.TransactionLoadTender,
		},
	}
}

// Monday 10:00 UTC.
var businessHours = time.Date(2026, 3, 2, 10, 0, 0, 0, time.UTC)

func TestRoutePending_DispatchesInBusinessHours(t *testing.T) {
	ft := &fakeTransport{delivered: true}
	e := New(ft)

	msgs := []models.OutboundMessage{{
		ID: 1, TransactionKind: models.TransactionStatusUpdate, PartnerID: 7,
		Status: models.MessageStatusPending, Priority: models.MessagePriorityNormal,
	}}
	res, err := e.RoutePending(context.Background(), msgs, []models.TradingPartner{routablePartner(7)}, businessHours)
	require.NoError(t, err)
	require.Equal(t, 1, res.Routed)
	require.Equal(t, models.MessageStatusSent, res.Updated[0].Status)
}

func TestRoutePending_RejectedGoesToFailed(t *testing.T) {
	ft := &fakeTransport{delivered: false}
	e := New(ft)

	msgs := []models.OutboundMessage{{
		ID: 1, TransactionKind: models.TransactionStatusUpdate, PartnerID: 7,
		Status: models.MessageStatusPending, Priority: models.MessagePriorityNormal,
	}}
	res, err := e.RoutePending(context.Background(), msgs, []models.TradingPartner{routablePartner(7)}, businessHours)
	require.NoError(t, err)
	require.Equal(t, 1, res.Routed)
	require.Equal(t, models.MessageStatusFailed, res.Updated[0].Status)
}

func TestRoutePending_SkipsUnknownPartnerAndUnsupportedKind(t *testing.T) {
	ft := &fakeTransport{delivered: true}
	e := New(ft)

	msgs := []models.OutboundMessage{
		{ID: 1, TransactionKind: models.TransactionStatusUpdate, PartnerID: 99, Status: models.MessageStatusPending},
		{ID: 2, TransactionKind: models.TransactionInvoice, PartnerID: 7, Status: models.MessageStatusPending},
	}
	res, err := e.RoutePending(context.Background(), msgs, []models.TradingPartner{routablePartner(7)}, businessHours)
	require.NoError(t, err)
	require.Equal(t, 0, ft.calls)
	require.Equal(t, 1, res.SkippedNoPartner)
	require.Equal(t, 1, res.SkippedUnsupported)
}

func TestRoutePending_HeldOutsideWindowStaysPending(t *testing.T) {
	ft := &fakeTransport{delivered: true}
	e := New(ft)

	night := time.Date(2026, 3, 2, 3, 0, 0, 0, time.UTC)
	msgs := []models.OutboundMessage{{
		ID: 1, TransactionKind: models.TransactionStatusUpdate, PartnerID: 7,
		Status: models.MessageStatusPending, Priority: models.MessagePriorityNormal,
	}}
	res, err := e.RoutePending(context.Background(), msgs, []models.TradingPartner{routablePartner(7)}, night)
	require.NoError(t, err)
	require.Equal(t, 0, res.Routed)
	require.Equal(t, 1, res.Held)
	require.Empty(t, res.Updated)
}
