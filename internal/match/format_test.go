package match

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestCapacityRequirementUsesFirstMatchingType(t *testing.T) {
	req := loadRequest(t)

	require.Equal(t, "Min 5 kg", CapacityRequirement(&req.EligibleRecipients[0], "produce"))
	require.Equal(t, "Unknown", CapacityRequirement(&req.EligibleRecipients[1], "produce"))
	require.Equal(t, "Min 3 loaves", CapacityRequirement(&req.EligibleRecipients[1], "bakery"))
}

func TestFormatCandidates(t *testing.T) {
	req := loadRequest(t)

	out := FormatCandidates(&req.Donor, req.EligibleRecipients)

	want := "1. City Food Bank (ID: r-1):\n" +
		"   - Address: 10 Harbor Rd\n" +
		"   - Distance: 111.19 km\n" +
		"   - Description: Feeds 300 families a week\n" +
		"   - Capacity Requirements: Min 5 kg\n" +
		"   - Special Capabilities: vegetarian\n" +
		"   - Storage Capabilities: refrigerated, dry\n" +
		"2. Shelter North (ID: r-2):\n" +
		"   - Address: 22 Hill Ave\n" +
		"   - Distance: 55.6 km\n" +
		"   - Description: Overnight shelter\n" +
		"   - Capacity Requirements: Unknown\n" +
		"   - Special Capabilities: \n" +
		"   - Storage Capabilities: dry\n"

	require.Equal(t, want, out)
}

func TestFormatCandidatesKeepsRequestOrder(t *testing.T) {
	req := loadRequest(t)
	reversed := []Recipient{req.EligibleRecipients[1], req.EligibleRecipients[0]}

	out := FormatCandidates(&req.Donor, reversed)

	first := strings.Index(out, "1. Shelter North (ID: r-2):")
	second := strings.Index(out, "2. City Food Bank (ID: r-1):")
	require.NotEqual(t, -1, first)
	require.Greater(t, second, first)
}
