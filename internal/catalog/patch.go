package catalog

import (
	"errors"
	"fmt"

	"github.com/mitchellh/mapstructure"
)

var ErrInvalidPatch = errors.New("invalid product patch")

// DecodePatch turns a decoded JSON object into a ProductPatch. Fields other
// than title, sku, price and status are rejected; id and createdAt are
// assigned once and never patched.
func DecodePatch(fields map[string]any) (ProductPatch, error) {
	var patch ProductPatch
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           &patch,
		ErrorUnused:      true,
		WeaklyTypedInput: true,
	})
	if err != nil {
		return ProductPatch{}, err
	}
	if err := dec.Decode(fields); err != nil {
		return ProductPatch{}, fmt.Errorf("%w: %v", ErrInvalidPatch, err)
	}
	if err := validate.Struct(patch); err != nil {
		return ProductPatch{}, fmt.Errorf("%w: %v", ErrInvalidPatch, err)
	}
	return patch, nil
}
