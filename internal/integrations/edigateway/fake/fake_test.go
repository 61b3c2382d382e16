package fake

import (
	"context"
	"testing"

	"github.com/BearBump/ComplianceBox/internal/models"
	"github.com/stretchr/testify/require"
)

func TestFakeClient_Deterministic(t *testing.T) {
	f := New()
	msg := models.OutboundMessage{ID: 42, PartnerID: 7, TransactionKind: models.TransactionInvoice}

	first, err := f.Send(context.Background(), msg)
	require.NoError(t, err)
	for i := 0; i < 10; i++ {
		again, err := f.Send(context.Background(), msg)
		require.NoError(t, err)
		require.Equal(t, first, again)
	}
}

func TestFakeClient_MixedOutcomes(t *testing.T) {
	f := New()
	delivered, rejected := 0, 0
	for id := uint64(1); id <= 200; id++ {
		ok, err := f.Send(context.Background(), models.OutboundMessage{ID: id, PartnerID: 1, TransactionKind: models.TransactionStatusUpdate})
		require.NoError(t, err)
		if ok {
			delivered++
		} else {
			rejected++
		}
	}
	require.NotZero(t, delivered)
	require.NotZero(t, rejected)
	require.Greater(t, delivered, rejected)
}
