package match

import (
	"encoding/json"
	"time"

	"github.com/spigell/donation-matcher/internal/geo"
)

// Location is re-exported so callers do not need to import geo for payloads.
type Location = geo.Location

type Donation struct {
	Name     string `json:"name" mapstructure:"name"`
	Type     string `json:"type" mapstructure:"type"`
	Quantity int    `json:"quantity" mapstructure:"quantity" validate:"min=0"`
	Unit     string `json:"unit" mapstructure:"unit"`
}

type Donor struct {
	ID                  string   `json:"id" mapstructure:"id"`
	Name                string   `json:"name" mapstructure:"name"`
	Address             string   `json:"address" mapstructure:"address"`
	Location            Location `json:"location" mapstructure:"location"`
	Donation            Donation `json:"donation" mapstructure:"donation"`
	SpecialCapabilities []string `json:"special_capabilities" mapstructure:"special_capabilities"`
	DonationPickupTime  string   `json:"donation_pickup_time" mapstructure:"donation_pickup_time"`
	PackagingType       string   `json:"packaging_type" mapstructure:"packaging_type"`
	StorageCapability   string   `json:"storage_capability" mapstructure:"storage_capability"`
}

// AcceptedType is the intake policy of a recipient for one donation type.
type AcceptedType struct {
	Type        string `json:"type" mapstructure:"type"`
	Unit        string `json:"unit" mapstructure:"unit"`
	MinQuantity int    `json:"min_quantity" mapstructure:"min_quantity" validate:"min=0"`
}

type Contact struct {
	Name  string `json:"name" mapstructure:"name"`
	Email string `json:"email" mapstructure:"email"`
	Phone string `json:"phone" mapstructure:"phone"`
}

type Recipient struct {
	ID                  string              `json:"id" mapstructure:"id"`
	Name                string              `json:"name" mapstructure:"name"`
	Address             string              `json:"address" mapstructure:"address"`
	Description         string              `json:"description" mapstructure:"description"`
	Location            Location            `json:"location" mapstructure:"location"`
	Status              string              `json:"status" mapstructure:"status"`
	Timezone            string              `json:"timezone" mapstructure:"timezone"`
	Contact             Contact             `json:"contact" mapstructure:"contact"`
	AcceptedTypes       []AcceptedType      `json:"accepted_types" mapstructure:"accepted_types" validate:"dive"`
	SpecialCapabilities []string            `json:"special_capabilities" mapstructure:"special_capabilities"`
	StorageCapabilities []string            `json:"storage_capabilities" mapstructure:"storage_capabilities"`
	OpenHours           map[string][]string `json:"open_hours" mapstructure:"open_hours"`
}

// MatchRequest is the validated input of a single match decision.
type MatchRequest struct {
	Donor              Donor       `json:"donor" mapstructure:"donor"`
	EligibleRecipients []Recipient `json:"eligible_recipients" mapstructure:"eligible_recipients" validate:"min=1,unique=ID,dive"`
}

// FindRecipient returns the recipient with the given id or nil.
func (r *MatchRequest) FindRecipient(id string) *Recipient {
	if r == nil {
		return nil
	}
	for i := range r.EligibleRecipients {
		if r.EligibleRecipients[i].ID == id {
			return &r.EligibleRecipients[i]
		}
	}
	return nil
}

// RecipientIDs returns the candidate ids in request order.
func (r *MatchRequest) RecipientIDs() []string {
	ids := make([]string, 0, len(r.EligibleRecipients))
	for _, recipient := range r.EligibleRecipients {
		ids = append(ids, recipient.ID)
	}
	return ids
}

type BestMatchResult struct {
	RecipientID   string `json:"recipient_id" mapstructure:"recipient_id"`
	RecipientName string `json:"recipient_name" mapstructure:"recipient_name"`
	Justification string `json:"justification" mapstructure:"justification"`
}

// BestMatch holds the model answer both as the typed result and as the raw
// object it was decoded from. It marshals back to the raw object.
type BestMatch struct {
	Result BestMatchResult
	Raw    map[string]any
}

func (b *BestMatch) MarshalJSON() ([]byte, error) {
	if b == nil {
		return []byte("null"), nil
	}
	if b.Raw == nil {
		return json.Marshal(b.Result)
	}
	return json.Marshal(b.Raw)
}

// Decision is emitted once a recipient has been selected for a donor.
type Decision struct {
	ID            string    `json:"id"`
	DonorID       string    `json:"donor_id"`
	RecipientID   string    `json:"recipient_id"`
	RecipientName string    `json:"recipient_name"`
	Model         string    `json:"model,omitempty"`
	Cached        bool      `json:"cached"`
	DecidedAt     time.Time `json:"decided_at"`
}
