package edigateway

import (
	"context"

	"github.com/BearBump/ComplianceBox/internal/models"
)

// Client — внешний EDI-шлюз. (false, nil) значит "шлюз принял запрос, но в
// доставке отказал"; ошибка значит "шлюз недоступен".
type Client interface {
	Send(ctx context.Context, msg models.OutboundMessage) (bool, error)
}
