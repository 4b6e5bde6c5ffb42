package domain

import (
	"encoding/json"
	"fmt"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("ApiError", func() {
	It("can be serialized as JSON", func() {
		Expect(json.Marshal(ApiError{
			Type:    ApiErrorTypeMissingParam,
			Details: []string{"vehicleId: missing required parameter"},
		})).To(MatchJSON(`{
			"error": "missing_param",
			"error_description": "A required parameter is missing",
			"error_details": ["vehicleId: missing required parameter"]
		}`))
	})

	It("serializes nil details as an empty array", func() {
		Expect(json.Marshal(ApiError{Type: ApiErrorTypeNotFound})).To(MatchJSON(`{
			"error": "not_found",
			"error_description": "The requested resource does not exist",
			"error_details": []
		}`))
	})

	DescribeTable("classifies wrapped sentinel errors",
		func(err error, expectedType ApiErrorType, expectedDetail string) {
			apiErr := ApiErrorFrom(err)
			Expect(apiErr.Type).To(Equal(expectedType))
			Expect(apiErr.Details).To(ConsistOf(expectedDetail))
		},
		Entry("not found", fmt.Errorf("bus BUS-42 does not exist: %w", ErrNotFound), ApiErrorTypeNotFound, "bus BUS-42 does not exist"),
		Entry("forbidden", fmt.Errorf("driver account is disabled: %w", ErrForbidden), ApiErrorTypeForbidden, "driver account is disabled"),
		Entry("conflict", fmt.Errorf("vehicle is in use: %w", ErrConflict), ApiErrorTypeConflict, "vehicle is in use"),
		Entry("unknown", fmt.Errorf("connection reset"), ApiErrorTypeUnknown, "An unknown error has occurred"),
	)

	It("passes an ApiError through unchanged", func() {
		original := ApiError{Type: ApiErrorTypeBadParam, Details: []string{"x"}}
		Expect(ApiErrorFrom(fmt.Errorf("wrapped: %w", original))).To(Equal(original))
	})
})
