package bidapi

import (
	"errors"
	"testing"

	"github.com/peterldowns/testy/assert"
	"github.com/peterldowns/testy/check"
)

func TestDecodeSubmitBid(t *testing.T) {
	payload := []byte(`{
		"consultant_id": "consultant-1",
		"price": 95000,
		"timeline": "3 weeks",
		"description": "Full geotechnical assessment of the north pit wall with monitoring plan.",
		"value_adds": ["site visit", "weekly reports"],
		"case_studies": [{"title": "Pit optimisation", "tags": ["open pit"]}]
	}`)

	req, err := DecodeSubmitBid(payload)
	assert.NoError(t, err)

	check.Equal(t, "consultant-1", req.ConsultantID)
	check.Equal(t, 95000.0, req.Price)
	check.Equal(t, 2, len(req.ValueAdds))
	check.Equal(t, "Pit optimisation", req.CaseStudies[0].Title)
}

// Value rules are left to the bid validator; the schema only checks shape.
func TestDecodeSubmitBid_ZeroPricePassesSchema(t *testing.T) {
	req, err := DecodeSubmitBid([]byte(`{"consultant_id":"c","price":0,"timeline":"","description":""}`))
	check.NoError(t, err)
	check.Equal(t, 0.0, req.Price)
}

func TestDecodeSubmitBid_Rejects(t *testing.T) {
	tests := []struct {
		name     string
		payload  string
		problems int
	}{
		{name: "missing fields", payload: `{"consultant_id":"c"}`, problems: 3},
		{name: "wrong types", payload: `{"consultant_id":"c","price":"cheap","timeline":3,"description":"d"}`, problems: 2},
		{name: "case study without title", payload: `{"consultant_id":"c","price":1,"timeline":"1 week","description":"d","case_studies":[{}]}`, problems: 1},
		{name: "not an object", payload: `[1,2]`, problems: 1},
		{name: "malformed json", payload: `{"price":`, problems: 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := DecodeSubmitBid([]byte(tt.payload))
			check.True(t, errors.Is(err, ErrInvalidPayload))

			var invalid *InvalidPayloadError
			assert.True(t, errors.As(err, &invalid))
			check.Equal(t, tt.problems, len(invalid.Problems))
		})
	}
}
