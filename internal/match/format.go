package match

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spigell/donation-matcher/internal/geo"
)

const unknownCapacity = "Unknown"

// CapacityRequirement describes the intake minimum of the first accepted type
// matching donationType, or "Unknown" when none matches.
func CapacityRequirement(r *Recipient, donationType string) string {
	for _, accepted := range r.AcceptedTypes {
		if accepted.Type == donationType {
			return fmt.Sprintf("Min %d %s", accepted.MinQuantity, accepted.Unit)
		}
	}
	return unknownCapacity
}

// FormatCandidates renders one block per recipient, in the given order and
// numbered from 1.
func FormatCandidates(donor *Donor, recipients []Recipient) string {
	var b strings.Builder
	for i := range recipients {
		writeCandidate(&b, i+1, donor, &recipients[i])
	}
	return b.String()
}

func writeCandidate(b *strings.Builder, seq int, donor *Donor, r *Recipient) {
	distance := geo.Distance(donor.Location, r.Location)

	fmt.Fprintf(b, "%d. %s (ID: %s):\n", seq, r.Name, r.ID)
	fmt.Fprintf(b, "   - Address: %s\n", r.Address)
	fmt.Fprintf(b, "   - Distance: %s km\n", strconv.FormatFloat(distance, 'f', -1, 64))
	fmt.Fprintf(b, "   - Description: %s\n", r.Description)
	fmt.Fprintf(b, "   - Capacity Requirements: %s\n", CapacityRequirement(r, donor.Donation.Type))
	fmt.Fprintf(b, "   - Special Capabilities: %s\n", strings.Join(r.SpecialCapabilities, ", "))
	fmt.Fprintf(b, "   - Storage Capabilities: %s\n", strings.Join(r.StorageCapabilities, ", "))
}
