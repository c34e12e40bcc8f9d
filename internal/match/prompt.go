package match

import (
	_ "embed"
	"strconv"
	"strings"
)

//go:embed prompt.md
var defaultPromptTemplate string

const fallbackPromptTemplate = `Donor: {{DONOR_NAME}} ({{DONOR_ADDRESS}})
Donation: {{DONATION_NAME}}, type {{DONATION_TYPE}}, {{DONATION_QUANTITY}} {{DONATION_UNIT}}
Donor Special Capabilities: {{DONOR_SPECIAL_CAPABILITIES}}
Pickup Time: {{PICKUP_TIME}}
Packaging: {{PACKAGING_TYPE}}
Storage Capability: {{STORAGE_CAPABILITY}}

Recipient Candidates:
{{ELIGIBLE_RECIPIENTS}}
Weigh, in order: donation type and quantity fit, special capabilities alignment, storage compatibility, distance, recipient capacity.
Answer with one JSON object with keys "recipient_id", "recipient_name" and "justification" (write the justification in second person).`

// PromptBuilder renders the reasoning prompt for a match request. Build it
// once and share it; Render is safe for concurrent use.
type PromptBuilder struct {
	template string
}

// NewPromptBuilder returns a builder for the given template. An empty
// template selects the embedded default.
func NewPromptBuilder(template string) *PromptBuilder {
	if strings.TrimSpace(template) == "" {
		template = defaultPromptTemplate
	}
	if strings.TrimSpace(template) == "" {
		template = fallbackPromptTemplate
	}
	return &PromptBuilder{template: template}
}

func (p *PromptBuilder) Render(req *MatchRequest) string {
	donor := &req.Donor
	replacer := strings.NewReplacer(
		"{{DONOR_NAME}}", donor.Name,
		"{{DONOR_ADDRESS}}", donor.Address,
		"{{DONATION_NAME}}", donor.Donation.Name,
		"{{DONATION_TYPE}}", donor.Donation.Type,
		"{{DONATION_QUANTITY}}", strconv.Itoa(donor.Donation.Quantity),
		"{{DONATION_UNIT}}", donor.Donation.Unit,
		"{{DONOR_SPECIAL_CAPABILITIES}}", strings.Join(donor.SpecialCapabilities, ", "),
		"{{PICKUP_TIME}}", donor.DonationPickupTime,
		"{{PACKAGING_TYPE}}", donor.PackagingType,
		"{{STORAGE_CAPABILITY}}", donor.StorageCapability,
		"{{ELIGIBLE_RECIPIENTS}}", FormatCandidates(donor, req.EligibleRecipients),
	)
	return replacer.Replace(p.template)
}
