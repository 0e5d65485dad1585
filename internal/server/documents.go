package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"github.com/smallbiznis/tenantdesk/internal/document"
	"github.com/smallbiznis/tenantdesk/internal/observability/logger"
	"github.com/smallbiznis/tenantdesk/internal/providers/email"
	"github.com/smallbiznis/tenantdesk/internal/resource"
	"go.uber.org/zap"
)

const (
	kindQuote   = "quote"
	kindInvoice = "invoice"
	kindPayment = "payment"
)

type mailRequest struct {
	ID string `json:"id"`
	To string `json:"to"`
}

// mailView is the data handed to the document email template.
type mailView struct {
	Company    string
	Kind       string
	Number     int64
	Year       int
	ClientName string
	Currency   string
	Total      string
	PDF        string
}

type mailDoc struct {
	number   int64
	year     int
	clientID snowflake.ID
	total    decimal.Decimal
	pdf      string
}

func (s *Server) ConvertQuote(c *gin.Context) {
	id, err := parseIDParam(c)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	inv, err := s.quoteSvc.Convert(c.Request.Context(), id)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	recordAudit(c, s.audit, "quote.converted", kindQuote, id.String(), map[string]any{"invoice_id": inv.ID.String()})
	respondOK(c, inv, "quote converted to invoice successfully")
}

// MailDocument sends the stored document to its customer, or to the
// address given in the request.
func (s *Server) MailDocument(kind string) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req mailRequest
		if err := bindJSON(c, &req); err != nil {
			AbortWithError(c, err)
			return
		}
		id, err := resource.ParseID(req.ID)
		if err != nil {
			AbortWithError(c, invalidRequestError("id is not a valid identifier"))
			return
		}

		ctx := c.Request.Context()
		doc, err := s.loadMailDoc(ctx, kind, id)
		if err != nil {
			AbortWithError(c, err)
			return
		}

		view := mailView{
			Kind:   kind,
			Number: doc.number,
			Year:   doc.year,
			Total:  doc.total.StringFixed(2),
			PDF:    doc.pdf,
		}
		to := strings.TrimSpace(req.To)
		if client, err := s.customers.Read(ctx, doc.clientID); err == nil {
			view.ClientName = client.Name
			if to == "" {
				to = client.Email
			}
		} else if !errors.Is(err, resource.ErrNotFound) {
			AbortWithError(c, err)
			return
		}
		if to == "" {
			AbortWithError(c, invalidRequestError("to is required when the customer has no email"))
			return
		}
		view.Company = s.settingString(ctx, "company_name")
		view.Currency = s.settingString(ctx, "company_currency_symbol")

		if err := s.mailer.SendTemplate(ctx, []string{to}, email.TemplateDocument, view); err != nil {
			logger.FromContext(ctx).Error("document email failed",
				zap.String("kind", kind),
				zap.String("id", id.String()),
				zap.Error(err),
			)
			AbortWithError(c, fmt.Errorf("send %s email: %w", kind, err))
			return
		}

		recordAudit(c, s.audit, kind+".mailed", kind, id.String(), nil)
		respond(c, http.StatusOK, nil, mailMessage(kind))
	}
}

func (s *Server) loadMailDoc(ctx context.Context, kind string, id snowflake.ID) (mailDoc, error) {
	switch kind {
	case kindQuote:
		q, err := s.quotes.Read(ctx, id)
		if err != nil {
			return mailDoc{}, err
		}
		return headerDoc(q.Header), nil
	case kindInvoice:
		inv, err := s.invoices.Read(ctx, id)
		if err != nil {
			return mailDoc{}, err
		}
		return headerDoc(inv.Header), nil
	case kindPayment:
		p, err := s.payments.Read(ctx, id)
		if err != nil {
			return mailDoc{}, err
		}
		return mailDoc{number: p.Number, year: p.Year, clientID: p.ClientID, total: p.Amount, pdf: p.PDF}, nil
	default:
		return mailDoc{}, resource.ErrNotFound
	}
}

// settingString reads a text setting; a missing or non-text value yields "".
func (s *Server) settingString(ctx context.Context, key string) string {
	var out string
	if _, err := s.settings.Lookup(ctx, key, &out); err != nil {
		logger.FromContext(ctx).Debug("setting lookup failed", zap.String("key", key), zap.Error(err))
		return ""
	}
	return out
}

func headerDoc(h document.Header) mailDoc {
	return mailDoc{number: h.Number, year: h.Year, clientID: h.ClientID, total: h.Total, pdf: h.PDF}
}

func mailMessage(kind string) string {
	if kind == kindPayment {
		return "payment receipt email sent successfully"
	}
	return kind + " email sent successfully"
}
