package token

import (
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/tenantdesk/internal/clock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIssueParse(t *testing.T) {
	fc := clock.NewFakeClock(time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC))
	issuer := NewIssuer([]byte("secret"), time.Hour, "tenantdesk", fc)

	raw, expires, err := issuer.Issue(snowflake.ID(42), "acme")
	require.NoError(t, err)
	assert.Equal(t, fc.Now().Add(time.Hour), expires)

	claims, err := issuer.Parse(raw)
	require.NoError(t, err)
	assert.Equal(t, "acme", claims.Tenant)
	id, err := claims.AdminID()
	require.NoError(t, err)
	assert.EqualValues(t, 42, id)

	second, _, err := issuer.Issue(snowflake.ID(42), "acme")
	require.NoError(t, err)
	assert.NotEqual(t, Hash(raw), Hash(second))

	t.Run("expired", func(t *testing.T) {
		fc.Advance(2 * time.Hour)
		_, err := issuer.Parse(raw)
		assert.ErrorIs(t, err, ErrInvalidToken)
	})

	t.Run("wrong secret", func(t *testing.T) {
		other := NewIssuer([]byte("other"), time.Hour, "tenantdesk", clock.NewFakeClock(time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)))
		_, err := other.Parse(raw)
		assert.ErrorIs(t, err, ErrInvalidToken)
	})
}
