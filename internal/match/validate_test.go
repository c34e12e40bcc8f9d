package match

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func requireValidation(t *testing.T, err error) *Error {
	t.Helper()

	require.Error(t, err)
	var merr *Error
	require.ErrorAs(t, err, &merr)
	require.Equal(t, KindValidation, merr.Kind)
	return merr
}

func TestParseRequestAcceptsWellFormedPayload(t *testing.T) {
	req := loadRequest(t)

	require.Equal(t, "d-100", req.Donor.ID)
	require.Equal(t, 20, req.Donor.Donation.Quantity)
	require.Len(t, req.EligibleRecipients, 2)
	require.Equal(t, 5, req.EligibleRecipients[0].AcceptedTypes[0].MinQuantity)
	require.Equal(t, []string{"09:00-17:00"}, req.EligibleRecipients[0].OpenHours["monday"])
	require.Equal(t, []string{"r-1", "r-2"}, req.RecipientIDs())
}

func TestParseRequestEmptyBody(t *testing.T) {
	for _, body := range []string{"", "   ", "{}", "null"} {
		_, err := ParseRequest([]byte(body))
		merr := requireValidation(t, err)
		require.Contains(t, merr.Error(), noPayloadMessage, "body %q", body)
	}
}

func TestParseRequestMalformedJSON(t *testing.T) {
	_, err := ParseRequest([]byte(`{"donor": `))
	merr := requireValidation(t, err)
	require.Contains(t, merr.Error(), "malformed JSON")
}

func TestValidateRequestRejectsNonObjects(t *testing.T) {
	_, err := ParseRequest([]byte(`[1, 2]`))
	merr := requireValidation(t, err)
	require.Equal(t, []string{"request must be a JSON object, got array"}, merr.Problems)
}

func TestValidateRequestNamesMissingNestedField(t *testing.T) {
	payload := loadPayload(t)
	delete(object(t, object(t, payload, "donor"), "location"), "latitude")

	_, err := ParseRequest(encode(t, payload))
	merr := requireValidation(t, err)
	require.Equal(t, []string{"field 'donor.location.latitude' is required"}, merr.Problems)
}

func TestValidateRequestTreatsNullAsMissing(t *testing.T) {
	payload := loadPayload(t)
	object(t, payload, "donor")["storage_capability"] = nil

	_, err := ParseRequest(encode(t, payload))
	merr := requireValidation(t, err)
	require.Equal(t, []string{"field 'donor.storage_capability' is required"}, merr.Problems)
}

func TestValidateRequestReportsEveryProblem(t *testing.T) {
	payload := loadPayload(t)
	donation := object(t, object(t, payload, "donor"), "donation")
	donation["quantity"] = "lots"
	donation["name"] = 42
	delete(recipientAt(t, payload, 1), "contact")

	_, err := ParseRequest(encode(t, payload))
	merr := requireValidation(t, err)

	require.Len(t, merr.Problems, 3)
	joined := merr.Error()
	require.Contains(t, joined, "donor.donation.quantity")
	require.Contains(t, joined, "donor.donation.name")
	require.Contains(t, joined, "field 'eligible_recipients[1].contact' is required")
}

func TestValidateRequestRejectsFractionalQuantity(t *testing.T) {
	payload := loadPayload(t)
	object(t, object(t, payload, "donor"), "donation")["quantity"] = 2.5

	_, err := ParseRequest(encode(t, payload))
	merr := requireValidation(t, err)
	require.Len(t, merr.Problems, 1)
	require.Contains(t, merr.Problems[0], "donor.donation.quantity")
	require.Contains(t, merr.Problems[0], "expected an integer")
}

func TestValidateRequestRules(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(t *testing.T, payload map[string]any)
		want   string
	}{
		{
			name: "latitude out of range",
			mutate: func(t *testing.T, payload map[string]any) {
				object(t, object(t, payload, "donor"), "location")["latitude"] = 95.5
			},
			want: "field 'donor.location.latitude' must be a latitude in [-90, 90], got 95.5",
		},
		{
			name: "negative quantity",
			mutate: func(t *testing.T, payload map[string]any) {
				object(t, object(t, payload, "donor"), "donation")["quantity"] = -1
			},
			want: "field 'donor.donation.quantity' must be >= 0, got -1",
		},
		{
			name: "no candidates",
			mutate: func(_ *testing.T, payload map[string]any) {
				payload["eligible_recipients"] = []any{}
			},
			want: "field 'eligible_recipients' must contain at least 1 item(s)",
		},
		{
			name: "duplicate recipient ids",
			mutate: func(t *testing.T, payload map[string]any) {
				recipientAt(t, payload, 1)["id"] = "r-1"
			},
			want: "field 'eligible_recipients' must not repeat id values",
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			payload := loadPayload(t)
			tc.mutate(t, payload)

			_, err := ParseRequest(encode(t, payload))
			merr := requireValidation(t, err)
			require.Equal(t, []string{tc.want}, merr.Problems)
		})
	}
}

func TestValidateRequestRejectsNullArrayElements(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(t *testing.T, payload map[string]any)
		want   string
	}{
		{
			name: "null recipient",
			mutate: func(_ *testing.T, payload map[string]any) {
				payload["eligible_recipients"] = []any{nil}
			},
			want: "field 'eligible_recipients[0]' must not be null",
		},
		{
			name: "null accepted type",
			mutate: func(t *testing.T, payload map[string]any) {
				recipientAt(t, payload, 0)["accepted_types"] = []any{nil}
			},
			want: "field 'eligible_recipients[0].accepted_types[0]' must not be null",
		},
		{
			name: "null capability",
			mutate: func(t *testing.T, payload map[string]any) {
				object(t, payload, "donor")["special_capabilities"] = []any{nil, "vegan"}
			},
			want: "field 'donor.special_capabilities[0]' must not be null",
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			payload := loadPayload(t)
			tc.mutate(t, payload)

			_, err := ParseRequest(encode(t, payload))
			merr := requireValidation(t, err)
			require.Equal(t, []string{tc.want}, merr.Problems)
		})
	}
}

func TestValidateRequestKeysAreCaseSensitive(t *testing.T) {
	payload := loadPayload(t)
	payload["DONOR"] = payload["donor"]
	delete(payload, "donor")

	_, err := ParseRequest(encode(t, payload))
	merr := requireValidation(t, err)
	require.Equal(t, []string{"field 'donor' is required"}, merr.Problems)
}

func TestValidateRequestRejectsOverflowingQuantity(t *testing.T) {
	payload := loadPayload(t)
	object(t, object(t, payload, "donor"), "donation")["quantity"] = 1e20

	_, err := ParseRequest(encode(t, payload))
	merr := requireValidation(t, err)
	require.Len(t, merr.Problems, 1)
	require.Contains(t, merr.Problems[0], "donor.donation.quantity")
	require.Contains(t, merr.Problems[0], "out of range")
}
