// Package notify sends the buyer-facing purchase confirmation.
package notify

import (
	"bytes"
	"context"
	"embed"
	"errors"
	"html/template"
	"strings"

	"github.com/smallbiznis/scrollvite/internal/providers/email"
	"github.com/smallbiznis/scrollvite/pkg/money"
)

//go:embed templates/*.html
var templatesFS embed.FS

var ErrNoRecipient = errors.New("no_recipient")

type PurchaseNotification struct {
	Email         string
	BuyerName     string
	OrderID       string
	TemplateTitle string
	AmountMinor   int64
	Currency      string
	InviteID      string
	InviteURL     string
	EditorURL     string
}

//go:generate mockgen -destination=mocks/mock_notifier.go -package=mocks github.com/smallbiznis/scrollvite/internal/notify Notifier

type Notifier interface {
	PurchaseCompleted(ctx context.Context, n PurchaseNotification) error
}

type EmailNotifier struct {
	provider email.Provider
	tmpl     *template.Template
}

func NewEmailNotifier(provider email.Provider) (*EmailNotifier, error) {
	tmpl, err := template.ParseFS(templatesFS, "templates/*.html")
	if err != nil {
		return nil, err
	}
	return &EmailNotifier{provider: provider, tmpl: tmpl}, nil
}

func provideNotifier(provider email.Provider) (Notifier, error) {
	return NewEmailNotifier(provider)
}

type purchaseView struct {
	BuyerName     string
	TemplateTitle string
	Amount        string
	InviteURL     string
	EditorURL     string
}

func (n *EmailNotifier) PurchaseCompleted(ctx context.Context, p PurchaseNotification) error {
	to := strings.TrimSpace(p.Email)
	if to == "" {
		return ErrNoRecipient
	}
	name := strings.TrimSpace(p.BuyerName)
	if name == "" {
		name = "there"
	}

	var body bytes.Buffer
	err := n.tmpl.ExecuteTemplate(&body, "purchase_completed.html", purchaseView{
		BuyerName:     name,
		TemplateTitle: p.TemplateTitle,
		Amount:        displayAmount(p.AmountMinor, p.Currency),
		InviteURL:     p.InviteURL,
		EditorURL:     p.EditorURL,
	})
	if err != nil {
		return err
	}

	return n.provider.Send(ctx, email.Message{
		To:       []string{to},
		Subject:  "Your " + p.TemplateTitle + " invitation is ready",
		HTMLBody: body.String(),
	})
}

func displayAmount(minor int64, currency string) string {
	amount := money.Format(minor, currency)
	if strings.EqualFold(currency, "INR") {
		return "₹" + amount
	}
	return strings.ToUpper(currency) + " " + amount
}
