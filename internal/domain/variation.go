package domain

import (
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/google/uuid"

	apperrors "github.com/utafrali/catalog/pkg/errors"
)

// ErrCodeVariationOptionInUse is returned when an option that a variant
// still selects would be removed.
const ErrCodeVariationOptionInUse = "VARIATION_OPTION_IN_USE"

// VariantOption is one value on a variation type, e.g. "Red" on "Color".
type VariantOption struct {
	ID              uuid.UUID
	VariationTypeID uuid.UUID
	Value           string
	DisplayValue    string
	SortOrder       int
}

// VariationType is a named axis of product differentiation.
type VariationType struct {
	ID          uuid.UUID
	Name        string
	DisplayName string
	IsActive    bool
	Options     []VariantOption
	Audit
}

// OptionSpec is the requested shape of one option.
type OptionSpec struct {
	Value        string
	DisplayValue string
	SortOrder    int
}

// OptionChanges describes how ApplyOptions changed a type's option set.
// Kept options retain their ids; Removed options must no longer be selected
// by any variant before the change can be persisted.
type OptionChanges struct {
	Added   []VariantOption
	Kept    []VariantOption
	Removed []VariantOption
}

// NormalizeOptionValue is the identity used for option uniqueness.
func NormalizeOptionValue(v string) string {
	return strings.ToLower(strings.TrimSpace(v))
}

// NewVariationType builds an active variation type with the given options.
func NewVariationType(name, displayName string, options []OptionSpec, now time.Time) (*VariationType, error) {
	vt := &VariationType{
		ID:       uuid.New(),
		IsActive: true,
	}
	if err := vt.Rename(name, displayName); err != nil {
		return nil, err
	}
	if _, err := vt.ApplyOptions(options); err != nil {
		return nil, err
	}
	MarkCreated(&vt.Audit, now)
	return vt, nil
}

// Rename changes the name and display name. A blank display name falls back
// to the name.
func (vt *VariationType) Rename(name, displayName string) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return apperrors.FieldInvalid("name", "name is required")
	}
	displayName = strings.TrimSpace(displayName)
	if displayName == "" {
		displayName = name
	}
	vt.Name = name
	vt.DisplayName = displayName
	return nil
}

// ApplyOptions replaces the option set. Every existing option is removed and
// every requested option added, matched by normalized value: an option whose
// value survives keeps its id and takes the new display value and sort order.
func (vt *VariationType) ApplyOptions(specs []OptionSpec) (OptionChanges, error) {
	if err := validateOptionSpecs(specs); err != nil {
		return OptionChanges{}, err
	}

	removed := make(map[string]VariantOption, len(vt.Options))
	for _, opt := range vt.Options {
		removed[NormalizeOptionValue(opt.Value)] = opt
	}

	var changes OptionChanges
	options := make([]VariantOption, 0, len(specs))
	for _, spec := range specs {
		key := NormalizeOptionValue(spec.Value)
		opt := VariantOption{
			ID:              uuid.New(),
			VariationTypeID: vt.ID,
			Value:           strings.TrimSpace(spec.Value),
			DisplayValue:    strings.TrimSpace(spec.DisplayValue),
			SortOrder:       spec.SortOrder,
		}
		if opt.DisplayValue == "" {
			opt.DisplayValue = opt.Value
		}

		if prev, ok := removed[key]; ok {
			opt.ID = prev.ID
			delete(removed, key)
			changes.Kept = append(changes.Kept, opt)
		} else {
			changes.Added = append(changes.Added, opt)
		}
		options = append(options, opt)
	}

	for _, opt := range vt.Options {
		if _, ok := removed[NormalizeOptionValue(opt.Value)]; ok {
			changes.Removed = append(changes.Removed, opt)
		}
	}

	slices.SortStableFunc(options, func(a, b VariantOption) int {
		return a.SortOrder - b.SortOrder
	})
	vt.Options = options
	return changes, nil
}

// Deactivate hides the type from new classifications while keeping it for
// the categories and variants that reference it.
func (vt *VariationType) Deactivate(now time.Time) {
	vt.IsActive = false
	MarkUpdated(&vt.Audit, now)
}

// Option returns the option with the given id.
func (vt *VariationType) Option(id uuid.UUID) (VariantOption, bool) {
	for _, opt := range vt.Options {
		if opt.ID == id {
			return opt, true
		}
	}
	return VariantOption{}, false
}

func validateOptionSpecs(specs []OptionSpec) error {
	var fields []apperrors.FieldError
	seen := make(map[string]int, len(specs))
	for i, spec := range specs {
		field := fmt.Sprintf("options[%d].value", i)
		key := NormalizeOptionValue(spec.Value)
		if key == "" {
			fields = append(fields, apperrors.FieldError{Field: field, Message: "value is required"})
			continue
		}
		if first, dup := seen[key]; dup {
			fields = append(fields, apperrors.FieldError{
				Field:   field,
				Message: fmt.Sprintf("duplicate option value %q (same as options[%d])", strings.TrimSpace(spec.Value), first),
			})
			continue
		}
		seen[key] = i
	}
	if len(fields) > 0 {
		return apperrors.Validation(fields...)
	}
	return nil
}
