package vanhttp

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/BearBump/ComplianceBox/internal/models"
	"github.com/stretchr/testify/require"
)

func TestClient_Send_Delivered(t *testing.T) {
	var gotAuth string
	var gotReq sendReq
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.Equal(t, "/v1/transactions", r.URL.Path)
		gotAuth = r.Header.Get("Authorization")
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotReq))
		_ = json.NewEncoder(w).Encode(sendResp{Status: "ok", Delivered: true})
	}))
	defer srv.Close()

	c := New(srv.URL, "secret")
	delivered, err := c.Send(context.Background(), models.OutboundMessage{
		ID: 5, PartnerID: 2, TransactionKind: models.TransactionLoadTender, Priority: models.MessagePriorityHigh,
	})
	require.NoError(t, err)
	require.True(t, delivered)
	require.Equal(t, "Bearer secret", gotAuth)
	require.Equal(t, uint64(5), gotReq.MessageID)
}

func TestClient_Send_Rejected(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(sendResp{Status: "ok", Delivered: false})
	}))
	defer srv.Close()

	delivered, err := New(srv.URL, "").Send(context.Background(), models.OutboundMessage{ID: 1})
	require.NoError(t, err)
	require.False(t, delivered)
}

func TestClient_Send_GatewayErrors(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	_, err := New(srv.URL, "").Send(context.Background(), models.OutboundMessage{ID: 1})
	require.Error(t, err)

	srvBadStatus := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(sendResp{Status: "error"})
	}))
	defer srvBadStatus.Close()

	_, err = New(srvBadStatus.URL, "").Send(context.Background(), models.OutboundMessage{ID: 1})
	require.Error(t, err)
}
