package tracing

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"go.opentelemetry.io/otel/attribute"
)

func TestSafeAttributesDropsSensitiveKeys(t *testing.T) {
	attrs := SafeAttributes(
		attribute.String("http.route", "/login"),
		attribute.String("user.email", "a@b.c"),
		attribute.String("reset_token", "abc"),
	)
	assert.Len(t, attrs, 1)
	assert.Equal(t, attribute.Key("http.route"), attrs[0].Key)
}

func TestSafeErrorTruncatesDetail(t *testing.T) {
	assert.Nil(t, SafeError(nil))
	err := SafeError(errors.New("ledger_inconsistent: UPDATE invoices SET credit = 5"))
	assert.EqualError(t, err, "ledger_inconsistent")
}

func TestClampRatio(t *testing.T) {
	assert.Equal(t, 0.0, clampRatio(-1))
	assert.Equal(t, 1.0, clampRatio(4))
	assert.Equal(t, 0.25, clampRatio(0.25))
}
