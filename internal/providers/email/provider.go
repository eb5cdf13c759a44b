package email

import (
	"context"
	"errors"

	"go.uber.org/zap"
)

var ErrNoRecipients = errors.New("no_recipients")

type Message struct {
	To       []string
	Subject  string
	HTMLBody string
}

type Provider interface {
	Send(ctx context.Context, msg Message) error
}

type NoOpProvider struct {
	log *zap.Logger
}

func NewNoOp(log *zap.Logger) *NoOpProvider {
	if log == nil {
		log = zap.NewNop()
	}
	return &NoOpProvider{log: log.Named("email.noop")}
}

func (p *NoOpProvider) Send(ctx context.Context, msg Message) error {
	if len(msg.To) == 0 {
		return ErrNoRecipients
	}
	p.log.Debug("email dropped", zap.String("subject", msg.Subject), zap.Int("recipients", len(msg.To)))
	return nil
}
