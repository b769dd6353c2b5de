package group

import (
	"github.com/frahmantamala/policy-register/internal"
	"github.com/frahmantamala/policy-register/internal/core/common/validation"
)

type CreateGroupDTO struct {
	Name        string `json:"name"`
	Code        string `json:"code"`
	Description string `json:"description"`
	Department  string `json:"department"`
}

func (d CreateGroupDTO) Validate() *internal.AppError {
	v := validation.NewValidator()
	v.Field("name", d.Name).Required().MaxLength(200)
	v.Field("department", d.Department).MaxLength(200)
	v.Field("description", d.Description).MaxLength(1000)
	if err := v.Validate(); err != nil {
		return err
	}
	return validation.ValidateCode(d.Code)
}

type UpdateGroupDTO struct {
	Name        *string `json:"name"`
	Code        *string `json:"code"`
	Description *string `json:"description"`
	Department  *string `json:"department"`
	IsActive    *bool   `json:"is_active"`
}

func (d UpdateGroupDTO) Validate() *internal.AppError {
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

func (d UpdateGroupDTO) Empty() bool {
	return d.Name == nil && d.Code == nil && d.Description == nil && d.Department == nil && d.IsActive == nil
}
