package digest

import (
	"context"
	"log/slog"

	"github.com/nyashahama/retriever-digest/internal/email"
	"github.com/nyashahama/retriever-digest/internal/model"
)

// BatchResult aggregates one batch send. Errors lists the addresses that
// failed.
type BatchResult struct {
	Sent   int      `json:"sent"`
	Failed int      `json:"failed"`
	Errors []string `json:"errors"`
}

// Delivered reports whether at least one recipient got the digest. Transient
// state is only consumed when it did.
func (r BatchResult) Delivered() bool { return r.Sent > 0 }

// SendBatch sends subject/html to every recipient in order. A failure is
// recorded and the loop carries on; sends are sequential to keep load on the
// transport bounded.
func SendBatch(
	ctx context.Context,
	sender email.Sender,
	recipients []model.Recipient,
	subject, html string,
	log *slog.Logger,
) BatchResult {
	res := BatchResult{Errors: []string{}}
	for _, r := range recipients {
		err := sender.Send(ctx, email.Message{To: r.Email, Subject: subject, HTML: html})
		if err != nil {
			res.Failed++
			res.Errors = append(res.Errors, r.Email)
			log.Warn("digest: send failed", "to", r.Email, "error", err)
			continue
		}
		res.Sent++
	}
	log.Info("digest: batch sent", "sent", res.Sent, "failed", res.Failed)
	return res
}
