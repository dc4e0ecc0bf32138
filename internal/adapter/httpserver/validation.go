package httpserver

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"unicode/utf8"

	"github.com/go-playground/validator/v10"

	"github.com/fairyhunter13/pgdeveloper/internal/domain"
)

// MaxJSONBody bounds JSON request bodies. Console scripts are the largest payload.
const MaxJSONBody = 8 << 20

// MaxSearchQuery bounds the explorer search text.
const MaxSearchQuery = 200

// ValidationError represents a validation error
type ValidationError struct {
	Field   string `json:"field"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

var (
	vldOnce sync.Once
	vld     *validator.Validate
)

func getValidator() *validator.Validate {
	vldOnce.Do(func() { vld = validator.New() })
	return vld
}

// decodeJSON reads one JSON document into dst and validates its struct tags.
// The returned details list the failing fields when validation fails.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) ([]ValidationError, error) {
	r.Body = http.MaxBytesReader(w, r.Body, MaxJSONBody)
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		var tooLarge *http.MaxBytesError
		switch {
		case errors.As(err, &tooLarge):
			return nil, fmt.Errorf("%w: body larger than %d bytes", domain.ErrInvalidArgument, tooLarge.Limit)
		case errors.Is(err, io.EOF):
			return nil, fmt.Errorf("%w: empty body", domain.ErrInvalidArgument)
		default:
			return nil, fmt.Errorf("%w: invalid json: %v", domain.ErrInvalidArgument, err)
		}
	}
	if err := getValidator().Struct(dst); err != nil {
		var ve validator.ValidationErrors
		if !errors.As(err, &ve) {
			return nil, fmt.Errorf("%w: %v", domain.ErrInvalidArgument, err)
		}
		details := make([]ValidationError, 0, len(ve))
		for _, fe := range ve {
			details = append(details, ValidationError{
				Field:   fe.Field(),
				Code:    strings.ToUpper(fe.Tag()),
				Message: fmt.Sprintf("%s failed %s", fe.Field(), fe.Tag()),
			})
		}
		return details, fmt.Errorf("%w: validation failed", domain.ErrInvalidArgument)
	}
	return nil, nil
}

// ValidateSearchQuery checks the explorer search text. LIKE wildcards are
// escaped by the index, so only size and encoding are checked here.
func ValidateSearchQuery(q string) []ValidationError {
	switch {
	case strings.TrimSpace(q) == "":
		return []ValidationError{{Field: "q", Code: "REQUIRED", Message: "search query is required"}}
	case utf8.RuneCountInString(q) > MaxSearchQuery:
		return []ValidationError{{Field: "q", Code: "TOO_LONG", Message: fmt.Sprintf("search query is too long (max %d characters)", MaxSearchQuery)}}
	case !utf8.ValidString(q):
		return []ValidationError{{Field: "q", Code: "INVALID_FORMAT", Message: "search query is not valid UTF-8"}}
	}
	return nil
}
