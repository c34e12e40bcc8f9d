package match

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestRenderSubstitutesDonorDetails(t *testing.T) {
	req := loadRequest(t)

	prompt := NewPromptBuilder("").Render(req)

	for _, want := range []string{
		"Green Grocer (1 Market St)",
		"Donation: Apples",
		"Type: produce",
		"Quantity: 20 kg",
		"Donor Special Capabilities: vegetarian, gluten_free",
		"Pickup Time: 2025-01-15T18:00:00Z",
		"Packaging: boxes",
		"Storage Capability: refrigerated",
		"1. City Food Bank (ID: r-1):",
		"2. Shelter North (ID: r-2):",
	} {
		require.Contains(t, prompt, want)
	}
	require.NotContains(t, prompt, "{{")
}

func TestRenderStatesFactorsAndAnswerShape(t *testing.T) {
	prompt := NewPromptBuilder("").Render(loadRequest(t))

	factors := []string{
		"1. Match with donation type and quantity requirements",
		"2. Special capabilities alignment",
		"3. Storage capability compatibility",
		"4. Distance from donor",
		"5. Recipient capacity",
	}
	last := -1
	for _, factor := range factors {
		idx := strings.Index(prompt, factor)
		require.Greater(t, idx, last, factor)
		last = idx
	}

	for _, key := range []string{`"recipient_id"`, `"recipient_name"`, `"justification"`} {
		require.Contains(t, prompt, key)
	}
	require.Contains(t, prompt, "use 'you' instead of 'the donor'")
}

func TestCustomTemplate(t *testing.T) {
	builder := NewPromptBuilder("{{DONOR_NAME}} has {{DONATION_QUANTITY}} {{DONATION_UNIT}}\n{{ELIGIBLE_RECIPIENTS}}")

	prompt := builder.Render(loadRequest(t))

	require.True(t, strings.HasPrefix(prompt, "Green Grocer has 20 kg\n1. City Food Bank"))
}
