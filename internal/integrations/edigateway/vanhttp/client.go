package vanhttp

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/BearBump/ComplianceBox/internal/models"
	"github.com/pkg/errors"
)

// Client отправляет транзакции через HTTP-фасад VAN-провайдера
// (value-added network). Протокольная кодировка X12 — забота провайдера,
// мы передаём только ссылочные поля сообщения.
type Client struct {
	baseURL string
	apiKey  string
	httpc   *http.Client
}

func New(baseURL, apiKey string) *Client {
	if baseURL == "" {
		baseURL = "http://localhost:9100"
	}
	return &Client{
		baseURL: baseURL,
		apiKey:  apiKey,
		httpc: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
}

type sendReq struct {
	MessageID       uint64 `json:"message_id"`
	PartnerID       uint64 `json:"partner_id"`
	TransactionKind string `json:"transaction_kind"`
	Priority        string `json:"priority"`
}

type sendResp struct {
	Status    string `json:"status"`
	Delivered bool   `json:"delivered"`
}

func (c *Client) Send(ctx context.Context, msg models.OutboundMessage) (bool, error) {
	u, err := url.Parse(c.baseURL)
	if err != nil {
		return false, errors.Wrap(err, "parse base url")
	}
	u.Path = "/v1/transactions"

	body, err := json.Marshal(sendReq{
		MessageID:       msg.ID,
		PartnerID:       msg.PartnerID,
		TransactionKind: msg.TransactionKind,
		Priority:        msg.Priority,
	})
	if err != nil {
		return false, errors.Wrap(err, "marshal request")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, u.String(), bytes.NewReader(body))
	if err != nil {
		return false, errors.Wrap(err, "new request")
	}
	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.httpc.Do(req)
	if err != nil {
		return false, errors.Wrap(err, "do request")
	}
	defer resp.Body.Close()

	if resp.StatusCode/100 != 2 {
		return false, fmt.Errorf("van gateway http %d", resp.StatusCode)
	}

	var r sendResp
	if err := json.NewDecoder(resp.Body).Decode(&r); err != nil {
		return false, errors.Wrap(err, "decode")
	}
	if r.Status != "ok" {
		return false, fmt.Errorf("van gateway status=%s", r.Status)
	}
	return r.Delivered, nil
}
