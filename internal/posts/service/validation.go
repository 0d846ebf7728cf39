package service

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"wanderlog/internal/posts/models"
	dErrors "wanderlog/pkg/domain-errors"
)

func normalizeCreate(in models.CreateInput) (models.CreateInput, error) {
	in.City = strings.TrimSpace(in.City)
	in.Country = strings.TrimSpace(in.Country)
	in.Description = strings.TrimSpace(in.Description)

	if err := requireField("city", in.City, models.MaxCityLength); err != nil {
		return in, err
	}
	if err := requireField("country", in.Country, models.MaxCountryLength); err != nil {
		return in, err
	}
	if err := requireField("description", in.Description, models.MaxDescriptionLength); err != nil {
		return in, err
	}
	return in, nil
}

func requireField(name, value string, limit int) error {
	if value == "" {
		return dErrors.New(dErrors.CodeInvalidInput, name+" is required")
	}
	if utf8.RuneCountInString(value) > limit {
		return dErrors.New(dErrors.CodeInvalidInput, fmt.Sprintf("%s must be at most %d characters", name, limit))
	}
	return nil
}
