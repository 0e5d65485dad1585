package document

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/bwmarrin/snowflake"
	customerdomain "github.com/smallbiznis/tenantdesk/internal/customer/domain"
	"github.com/smallbiznis/tenantdesk/internal/resource"
	"github.com/smallbiznis/tenantdesk/pkg/validation"
	"gorm.io/gorm"
)

// TakeItems removes "items" from an update payload and decodes it. The
// boolean reports whether the payload carried an item set at all.
func TakeItems[I any](payload map[string]any) ([]I, bool, error) {
	raw, ok := payload["items"]
	if !ok {
		return nil, false, nil
	}
	delete(payload, "items")
	if raw == nil {
		return []I{}, true, nil
	}

	buf, err := json.Marshal(raw)
	if err != nil {
		return nil, true, validation.New("items", "invalid_format", "items must be a list of line items")
	}
	var items []I
	if err := json.Unmarshal(buf, &items); err != nil {
		return nil, true, validation.New("items", "invalid_format", "items must be a list of line items")
	}
	if items == nil {
		items = []I{}
	}
	return items, true, nil
}

// RequireClient checks that clientID names a live customer of the tenant.
func RequireClient(ctx context.Context, tx *gorm.DB, customers *customerdomain.Engine, clientID snowflake.ID) error {
	if customers == nil {
		return nil
	}
	_, err := customers.WithTx(tx).Read(ctx, clientID)
	if errors.Is(err, resource.ErrNotFound) {
		return validation.New("client_id", "not_found", "client does not exist")
	}
	return err
}
