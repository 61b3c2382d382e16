package fake

import (
	"context"
	"fmt"
	"hash/fnv"

	"github.com/BearBump/ComplianceBox/internal/models"
)

// FakeClient — заглушка EDI-шлюза для локальной разработки и демо.
// Доставка детерминирована по (partner_id, message_id): примерно 80%
// сообщений считаются доставленными.
type FakeClient struct{}

func New() *FakeClient { return &FakeClient{} }

func (f *FakeClient) Send(ctx context.Context, msg models.OutboundMessage) (bool, error) {
	h := fnv.New32a()
	_, _ = h.Write([]byte(fmt.Sprintf("%d|%d|%s", msg.PartnerID, msg.ID, msg.TransactionKind)))
	v := h.Sum32()

	// 20% отправок "отваливается", чтобы retry-путь было видно на стенде.
	return v%5 != 0, nil
}
