package validator_test

import (
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"go-popup-ledger/pkg/validator"
)

type line struct {
	Barcode  string          `validate:"required"`
	Quantity int             `validate:"gt=0"`
	Price    decimal.Decimal `validate:"decimal_gte0"`
}

type cart struct {
	ChannelID uuid.UUID `validate:"uuid_required"`
	Lines     []line    `validate:"required,min=1,dive"`
}

func TestValidateStruct_Valid(t *testing.T) {
	c := cart{
		ChannelID: uuid.New(),
		Lines:     []line{{Barcode: "B1", Quantity: 2, Price: decimal.NewFromInt(10)}},
	}
	assert.Empty(t, validator.ValidateStruct(&c))
}

func TestValidateStruct_CustomTags(t *testing.T) {
	c := cart{
		Lines: []line{{Barcode: "B1", Quantity: 1, Price: decimal.NewFromInt(-1)}},
	}
	errs := validator.ValidateStruct(&c)
	require.Len(t, errs, 2)

	tags := []string{errs[0].Tag, errs[1].Tag}
	assert.Contains(t, tags, "uuid_required")
	assert.Contains(t, tags, "decimal_gte0")
}

func TestValidateStruct_DiveIntoLines(t *testing.T) {
	c := cart{
		ChannelID: uuid.New(),
		Lines:     []line{{Barcode: "", Quantity: 0, Price: decimal.Zero}},
	}
	errs := validator.ValidateStruct(&c)
	require.Len(t, errs, 2)
	assert.Equal(t, "cart.Lines[0].Barcode", errs[0].FailedField)
	assert.Equal(t, "gt", errs[1].Tag)
	assert.Contains(t, errs[0].String(), "required")
}
