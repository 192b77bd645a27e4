package mailclient

import (
	"context"
	"net/http"
)

type SendEmailRequest struct {
	To             string         `json:"to"`
	Template       string         `json:"template"`
	IdempotencyKey string         `json:"-"`
	Data           map[string]any `json:"data,omitempty"`
}

type sendEmailBody struct {
	From     string         `json:"from"`
	To       string         `json:"to"`
	Template string         `json:"template"`
	Data     map[string]any `json:"data,omitempty"`
}

type sendEmailResponse struct {
	MessageID string `json:"message_id"`
}

// SendEmail submits a templated message. The idempotency key is passed
// as a header so the provider deduplicates redelivered sends, which is
// what makes the retry policy safe here.
func (c *Client) SendEmail(ctx context.Context, req SendEmailRequest) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return err
	}

	body := sendEmailBody{
		From:     c.cfg.Sender,
		To:       req.To,
		Template: req.Template,
		Data:     req.Data,
	}

	headers := map[string]string{}
	if req.IdempotencyKey != "" {
		headers["Idempotency-Key"] = req.IdempotencyKey
	}

	return c.breaker.Execute(func() error {
		return c.retry.Do(ctx, req.IdempotencyKey != "", func() error {
			var resp sendEmailResponse
			return c.doRequest(ctx, http.MethodPost, "/v1/send", headers, body, &resp)
		})
	})
}
