package domain_test

import (
	"testing"

	"go-brokerage-backend/internal/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAnswersValidate(t *testing.T) {
	t.Run("accepts a full well-shaped record", func(t *testing.T) {
		a := domain.Answers{
			"experience": "beginner",
			"risk":       "medium",
			"assets":     []any{"stocks", "etfs"},
			"capital":    float64(1000),
			"reinvest":   true,
			"ack":        true,
			"sectors":    nil, // cleared answers are fine
		}
		assert.NoError(t, a.Validate())
	})

	t.Run("rejects unrecognized keys", func(t *testing.T) {
		err := domain.Answers{"favoriteColor": "blue"}.Validate()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "favoriteColor")
	})

	t.Run("rejects wrong value shapes", func(t *testing.T) {
		assert.Error(t, domain.Answers{"capital": "lots"}.Validate())
		assert.Error(t, domain.Answers{"ack": "yes"}.Validate())
		assert.Error(t, domain.Answers{"assets": []any{"stocks", 42}}.Validate())
	})
}

func TestAnswersStringList(t *testing.T) {
	// JSON decoding produces []any; direct construction produces []string.
	// Both shapes must coerce the same way.
	a := domain.Answers{
		"assets":  []any{"stocks", "crypto"},
		"sectors": []string{"tech"},
		"goal":    "growth",
	}
	assert.Equal(t, []string{"stocks", "crypto"}, a.StringList("assets"))
	assert.Equal(t, []string{"tech"}, a.StringList("sectors"))
	assert.Nil(t, a.StringList("goal"))
	assert.Nil(t, a.StringList("missing"))
}

func TestProfileRedacted(t *testing.T) {
	p := &domain.Profile{
		Email:          "trader@example.com",
		CredentialHash: "$2a$10$secret",
	}
	redacted := p.Redacted()
	assert.Empty(t, redacted.CredentialHash)
	// The original is untouched.
	assert.NotEmpty(t, p.CredentialHash)

	var nilProfile *domain.Profile
	assert.Nil(t, nilProfile.Redacted())
}

func TestNormalizeEmail(t *testing.T) {
	assert.Equal(t, "trader@example.com", domain.NormalizeEmail("  Trader@Example.COM "))
	assert.Equal(t, "", domain.NormalizeEmail("   "))
}
