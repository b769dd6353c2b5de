package auth

import (
	"github.com/frahmantamala/policy-register/internal"
	"github.com/frahmantamala/policy-register/internal/core/common/validation"
)

// LoginDTO is the transport shape used by the HTTP handler to accept login requests.
type LoginDTO struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

func (d LoginDTO) Validate() *internal.AppError {
	v := validation.NewValidator()
	v.Field("username", d.Username).Required()
	v.Field("password", d.Password).Required()
	return v.Validate()
}

type RegisterDTO struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	FullName string `json:"full_name"`
	Password string `json:"password"`
}

func (d RegisterDTO) Validate() *internal.AppError {
	v := validation.NewValidator()
	v.Field("username", d.Username).Required().MinLength(3).MaxLength(50)
	v.Field("email", d.Email).Required().Email().MaxLength(254)
	v.Field("full_name", d.FullName).Required().MaxLength(200)
	v.Field("password", d.Password).Required().MinLength(6).MaxLength(72)
	return v.Validate()
}

// BootstrapAdmin describes the account created on first boot.
type BootstrapAdmin struct {
	Username string
	Email    string
	FullName string
	Password string
}
