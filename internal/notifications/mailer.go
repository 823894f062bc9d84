package notifications

import (
	"context"

	"github.com/teahaven/teahaven-backend/pkg/config"
	"github.com/teahaven/teahaven-backend/pkg/logger"
)

// Mailer delivers order messages to users. The shipped implementation only
// logs; a real transport can be swapped in behind the same interface.
type Mailer interface {
	SendOrderConfirmation(ctx context.Context, email string, summary OrderSummary) error
	SendSellerOrderAlert(ctx context.Context, email string, summary SellerOrderSummary) error
}

// LogMailer writes would-be emails to the structured log.
type LogMailer struct {
	logg *logger.Logger
	from string
}

// NewLogMailer builds a mailer that records deliveries in the log stream.
func NewLogMailer(logg *logger.Logger, cfg config.MailConfig) *LogMailer {
	return &LogMailer{logg: logg, from: cfg.FromAddress}
}

func (m *LogMailer) SendOrderConfirmation(ctx context.Context, email string, summary OrderSummary) error {
	ctx = m.logg.WithFields(ctx, map[string]any{
		"from":     m.from,
		"to":       email,
		"order_id": summary.OrderID.String(),
		"total":    summary.TotalAmount.StringFixed(2),
		"items":    len(summary.Items),
	})
	m.logg.Info(ctx, "order confirmation email")
	return nil
}

func (m *LogMailer) SendSellerOrderAlert(ctx context.Context, email string, summary SellerOrderSummary) error {
	ctx = m.logg.WithFields(ctx, map[string]any{
		"from":     m.from,
		"to":       email,
		"order_id": summary.OrderID.String(),
		"subtotal": summary.Subtotal.StringFixed(2),
		"items":    len(summary.Items),
	})
	m.logg.Info(ctx, "seller order alert email")
	return nil
}
