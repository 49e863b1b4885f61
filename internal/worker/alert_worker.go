package worker

// alert_worker.go
// Processes low-stock alert jobs from QueueAlerts.
// Sends a notification email to the branch manager (or the configured
// fallback address) when a branch stock row drops to Low/Out of Stock.

import (
	"context"
	"encoding/json"
	"fmt"

	"opticare/internal/infra"

	"github.com/rs/zerolog/log"
)

// LowStockEmailPayload is the job envelope sent to QueueAlerts.
type LowStockEmailPayload struct {
	ToEmail   string `json:"to_email"`
	Product   string `json:"product"`
	Branch    string `json:"branch"`
	Available int    `json:"available"`
	Status    string `json:"status"`
}

// AlertWorker sends low-stock notification emails via SMTP.
type AlertWorker struct {
	mailer        *infra.Mailer
	fallbackEmail string
}

// NewAlertWorker creates an AlertWorker. fallbackEmail is used when the
// branch has no manager email configured.
func NewAlertWorker(mailer *infra.Mailer, fallbackEmail string) *AlertWorker {
	return &AlertWorker{mailer: mailer, fallbackEmail: fallbackEmail}
}

// Process sends the low-stock alert email.
func (w *AlertWorker) Process(_ context.Context, raw json.RawMessage) {
	var payload LowStockEmailPayload
	if err := json.Unmarshal(raw, &payload); err != nil {
		log.Error().Err(err).Msg("alert_worker: invalid payload")
		return
	}

	to := payload.ToEmail
	if to == "" {
		to = w.fallbackEmail
	}
	if to == "" {
		log.Warn().Str("product", payload.Product).Msg("alert_worker: no recipient configured — skipping")
		return
	}

	subject := fmt.Sprintf("[%s] %s at %s", payload.Status, payload.Product, payload.Branch)
	body := fmt.Sprintf(
		"Product %q at branch %q is %s.\nAvailable units: %d.\n\nReview pending reservations and transfers before restocking manually.",
		payload.Product, payload.Branch, payload.Status, payload.Available,
	)

	if err := w.mailer.SendAlert(to, subject, body); err != nil {
		log.Error().Err(err).Str("to", to).Msg("alert_worker: failed to send email")
		return
	}
	log.Info().Str("to", to).Str("product", payload.Product).Msg("alert_worker: low-stock alert sent")
}
