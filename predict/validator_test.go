package predict

import (
	"errors"
	"strings"
	"testing"

	"propval/dataset"
)

func TestValidatePayloadDefaults(t *testing.T) {
	p, err := ValidatePayload(Payload{
		PropertyType: "House",
		City:         "Karachi",
		AreaMarla:    10,
		Bedrooms:     3,
		Bathrooms:    3,
	})
	if err != nil {
		t.Fatalf("ValidatePayload: %v", err)
	}
	if p.Purpose != dataset.PurposeForSale {
		t.Errorf("purpose default = %q", p.Purpose)
	}
	if p.Location != dataset.OtherLocation {
		t.Errorf("location default = %q", p.Location)
	}
}

func TestValidatePayloadCanonicalizesLocation(t *testing.T) {
	p, err := ValidatePayload(Payload{
		PropertyType: "House",
		City:         "Karachi",
		Location:     "  dha   phase 5 ",
		AreaMarla:    10,
		Bedrooms:     3,
		Bathrooms:    3,
	})
	if err != nil {
		t.Fatalf("ValidatePayload: %v", err)
	}
	if p.Location != "Dha Phase 5" {
		t.Errorf("location = %q", p.Location)
	}
}

func TestValidatePayloadAggregatesProblems(t *testing.T) {
	_, err := ValidatePayload(Payload{
		PropertyType: "Castle",
		City:         "Atlantis",
		AreaMarla:    -1,
		Bedrooms:     -2,
	})
	if !errors.Is(err, ErrValidation) {
		t.Fatalf("err = %v, want ErrValidation", err)
	}
	msg := err.Error()
	for _, fragment := range []string{"propertyType", "city", "areaMarla", "bedrooms"} {
		if !strings.Contains(msg, fragment) {
			t.Errorf("error %q missing %q", msg, fragment)
		}
	}
	if strings.Count(msg, ";") < 3 {
		t.Errorf("problems should be joined into one message: %q", msg)
	}
}

func TestValidatePayloadBounds(t *testing.T) {
	_, err := ValidatePayload(Payload{
		PropertyType: "House",
		City:         "Karachi",
		AreaMarla:    500,
		Bedrooms:     3,
		Bathrooms:    3,
	})
	if !errors.Is(err, ErrValidation) {
		t.Fatalf("oversized area accepted: %v", err)
	}

	_, err = ValidatePayload(Payload{
		PropertyType: "House",
		City:         "Karachi",
		AreaMarla:    10,
		Bedrooms:     50,
		Bathrooms:    3,
	})
	if !errors.Is(err, ErrValidation) {
		t.Fatalf("excess bedrooms accepted: %v", err)
	}
}

func TestCheckRoomAreaRatio(t *testing.T) {
	ok := Payload{AreaMarla: 10, Bedrooms: 3, Bathrooms: 3}
	if err := checkRoomAreaRatio(ok); err != nil {
		t.Errorf("valid ratio rejected: %v", err)
	}

	sparse := Payload{AreaMarla: 100, Bedrooms: 1, Bathrooms: 0}
	if err := checkRoomAreaRatio(sparse); !errors.Is(err, ErrValidation) {
		t.Errorf("ratio below floor accepted: %v", err)
	}

	dense := Payload{AreaMarla: 2, Bedrooms: 5, Bathrooms: 5}
	if err := checkRoomAreaRatio(dense); !errors.Is(err, ErrValidation) {
		t.Errorf("ratio above cap accepted: %v", err)
	}
}
