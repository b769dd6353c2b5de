package taxonomy

import (
	"github.com/frahmantamala/policy-register/internal"
	"github.com/frahmantamala/policy-register/internal/core/common/validation"
)

type CreateTermDTO struct {
	Name        string `json:"name"`
	Code        string `json:"code"`
	Description string `json:"description"`
	IsActive    *bool  `json:"is_active"`
}

func (d CreateTermDTO) Validate() *internal.AppError {
	v := validation.NewValidator()
	v.Field("name", d.Name).Required().MaxLength(200)
	v.Field("description", d.Description).MaxLength(1000)
	if err := v.Validate(); err != nil {
		return err
	}
	return validation.ValidateCode(d.Code)
}

// UpdateTermDTO is a partial patch; nil fields are left alone.
type UpdateTermDTO struct {
	Name        *string `json:"name"`
	Code        *string `json:"code"`
	Description *string `json:"description"`
	IsActive    *bool   `json:"is_active"`
}

func (d UpdateTermDTO) Validate() *internal.AppError {
	if d.Name != nil {
		if err := validation.ValidateName("name", *d.Name); err != nil {
			return err
		}
	}
	if d.Code != nil {
		return validation.ValidateCode(*d.Code)
	}
	return nil
}

func (d UpdateTermDTO) Empty() bool {
	return d.Name == nil && d.Code == nil && d.Description == nil && d.IsActive == nil
}
