package domainerrors_test

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"

	domainerrors "custodia/pkg/domain-errors"
)

func TestCodeOf(t *testing.T) {
	base := domainerrors.New(domainerrors.CodeBidTooLow, "bid below minimum increment")

	assert.Equal(t, domainerrors.CodeBidTooLow, domainerrors.CodeOf(base))
	assert.Equal(t, domainerrors.CodeBidTooLow, domainerrors.CodeOf(fmt.Errorf("place bid: %w", base)))
	assert.Equal(t, domainerrors.CodeInternal, domainerrors.CodeOf(errors.New("connection reset")))
	assert.Equal(t, domainerrors.CodeInternal, domainerrors.CodeOf(nil))
}

func TestErrorIsMatchesOnCode(t *testing.T) {
	err := fmt.Errorf("settle: %w", domainerrors.New(domainerrors.CodeReserveNotMet, "highest bid below reserve"))

	assert.True(t, errors.Is(err, domainerrors.New(domainerrors.CodeReserveNotMet, "")))
	assert.False(t, errors.Is(err, domainerrors.New(domainerrors.CodeBidTooLow, "")))
}

func TestErrorStringIncludesField(t *testing.T) {
	err := domainerrors.NewField("end_time", "must be after start_time")

	assert.Equal(t, domainerrors.CodeInvalidParameter, err.Code)
	assert.Contains(t, err.Error(), `field "end_time"`)
}
