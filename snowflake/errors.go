package snowflake

import (
	"net/http"

	goerrors "github.com/goliatone/go-errors"
)

const TextCodeInvalidIdentifier = "TOPGG_INVALID_IDENTIFIER"

func invalidIdentifier(input string, source error) error {
	var err *goerrors.Error
	if source != nil {
		err = goerrors.Wrap(source, goerrors.CategoryBadInput, "snowflake: invalid identifier")
	} else {
		err = goerrors.New("snowflake: invalid identifier", goerrors.CategoryBadInput)
	}
	err = err.WithCode(http.StatusBadRequest).WithTextCode(TextCodeInvalidIdentifier)
	err.WithMetadata(map[string]any{"input": truncateInput(input)})
	return err
}

// IsInvalidIdentifier reports whether err carries the invalid identifier code.
func IsInvalidIdentifier(err error) bool {
	var rich *goerrors.Error
	if !goerrors.As(err, &rich) {
		return false
	}
	return rich.TextCode == TextCodeInvalidIdentifier
}

func truncateInput(input string) string {
	const limit = 64
	if len(input) <= limit {
		return input
	}
	return input[:limit] + "..."
}
