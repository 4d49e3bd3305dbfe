package handler

import "storefront-checkout/internal/dto"

// RequestValidator backs echo's c.Validate with the dto validate tags.
type RequestValidator struct{}

func (RequestValidator) Validate(i interface{}) error {
	return dto.Validate(i)
}
