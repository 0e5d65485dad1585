package email

import (
	"context"
	"errors"
	"strings"
	"sync"

	"go.uber.org/zap"
)

var ErrNoRecipients = errors.New("email_no_recipients")

type Message struct {
	To      []string
	Subject string
	HTML    string
}

type Provider interface {
	Send(ctx context.Context, msg Message) error
	SendTemplate(ctx context.Context, to []string, templateName string, data any) error
}

// NoOpProvider logs instead of delivering. It is used when SMTP is not configured.
type NoOpProvider struct {
	log *zap.Logger
}

func NewNoOp(log *zap.Logger) *NoOpProvider {
	return &NoOpProvider{log: log}
}

func (p *NoOpProvider) Send(_ context.Context, msg Message) error {
	if len(msg.To) == 0 {
		return ErrNoRecipients
	}
	if p.log != nil {
		p.log.Info("email delivery skipped", zap.Int("recipients", len(msg.To)), zap.String("subject", msg.Subject))
	}
	return nil
}

func (p *NoOpProvider) SendTemplate(ctx context.Context, to []string, templateName string, data any) error {
	subject, body, err := Render(templateName, data)
	if err != nil {
		return err
	}
	return p.Send(ctx, Message{To: to, Subject: subject, HTML: body})
}

// MemoryProvider keeps rendered messages in memory.
type MemoryProvider struct {
	mu   sync.Mutex
	sent []Message
}

func (p *MemoryProvider) Send(_ context.Context, msg Message) error {
	if len(msg.To) == 0 {
		return ErrNoRecipients
	}
	p.mu.Lock()
	p.sent = append(p.sent, msg)
	p.mu.Unlock()
	return nil
}

func (p *MemoryProvider) SendTemplate(ctx context.Context, to []string, templateName string, data any) error {
	subject, body, err := Render(templateName, data)
	if err != nil {
		return err
	}
	return p.Send(ctx, Message{To: to, Subject: subject, HTML: body})
}

func (p *MemoryProvider) Sent() []Message {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]Message, len(p.sent))
	copy(out, p.sent)
	return out
}

func cleanRecipients(to []string) []string {
	out := make([]string, 0, len(to))
	for _, addr := range to {
		if addr = strings.TrimSpace(addr); addr != "" {
			out = append(out, addr)
		}
	}
	return out
}
