package messagequeue

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/Strob0t/productapi/internal/domain/product"
)

// Validate checks that data is a well-formed product event for subject.
// Subjects outside the products.* namespace only need to be valid JSON.
func Validate(subject string, data []byte) error {
	if !json.Valid(data) {
		return fmt.Errorf("invalid JSON on subject %s", subject)
	}
	if !strings.HasPrefix(subject, "products.") {
		return nil
	}

	var ev product.Event
	if err := json.Unmarshal(data, &ev); err != nil {
		return fmt.Errorf("schema validation failed for %s: %w", subject, err)
	}
	if ev.ProductID == "" {
		return fmt.Errorf("schema validation failed for %s: %w", subject, errors.New("product_id is required"))
	}
	if want := SubjectFor(ev.Type); want != subject {
		return fmt.Errorf("event type %q does not belong on subject %s", ev.Type, subject)
	}
	return nil
}
