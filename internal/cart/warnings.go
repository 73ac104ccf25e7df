package cart

import "github.com/angelmondragon/storefront-core/pkg/enums"

// Warning describes a non-fatal adjustment made while handling a cart mutation.
type Warning struct {
	Type    enums.CartLineWarningType `json:"type"`
	LineID  LineID                    `json:"line_id,omitempty"`
	Message string                    `json:"message"`
}

// Warnings is an ordered list of Warning.
type Warnings []Warning

// Has reports whether a warning of the given type is present.
func (w Warnings) Has(kind enums.CartLineWarningType) bool {
	for _, warning := range w {
		if warning.Type == kind {
			return true
		}
	}
	return false
}

func appendWarning(warnings Warnings, kind enums.CartLineWarningType, lineID LineID, message string) Warnings {
	return append(warnings, Warning{
		Type:    kind,
		LineID:  lineID,
		Message: message,
	})
}
