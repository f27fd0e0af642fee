package session

import (
	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/go-ozzo/ozzo-validation/is"
)

// Gender is the gender code used by the identity service
type Gender = string

const (
	// GenderFemale maps to the service code "F"
	GenderFemale Gender = "F"
	// GenderMale maps to the service code "M"
	GenderMale Gender = "M"
	// GenderNonBinary maps to the service code "NB"
	GenderNonBinary Gender = "NB"
	// GenderOther maps to the service code "O"
	GenderOther Gender = "O"
	// GenderUndisclosed maps to the service code "NI"
	GenderUndisclosed Gender = "NI"
)

// User is the identity record as delivered by the remote identity service.
// JSON tags follow the service's wire names, which are Portuguese; ids are
// assigned server side.
type User struct {
	ID          int64  `json:"idUsuario,omitempty"`
	FullName    string `json:"nomeCompleto,omitempty"`
	Email       string `json:"email,omitempty"`
	DateOfBirth string `json:"dataNascimento,omitempty"`
	Gender      Gender `json:"genero,omitempty"`
	CreatedAt   string `json:"dataCadastro,omitempty"`
	Active      bool   `json:"ativo,omitempty"`
	Age         int    `json:"idade,omitempty"`
	OfAge       bool   `json:"maiorIdade,omitempty"`
}

// Credentials is the login payload
type Credentials struct {
	Email    string `form:"email" json:"email"`
	Password string `form:"password" json:"senha"`
}

// Validate will run validation rules
func (c Credentials) Validate() error {
	return validation.ValidateStruct(&c,
		validation.Field(
			&c.Email,
			validation.Required,
			is.Email,
		),
		validation.Field(
			&c.Password,
			validation.Required,
		),
	)
}

// Registration is the account-creation payload
type Registration struct {
	FullName    string `form:"full_name" json:"nomeCompleto"`
	Email       string `form:"email" json:"email"`
	DateOfBirth string `form:"date_of_birth" json:"dataNascimento"`
	Gender      Gender `form:"gender" json:"genero"`
	Password    string `form:"password" json:"senha"`
}

// Validate will validate the payload
func (r Registration) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.FullName, validation.Required, validation.Length(1, 200)),
		validation.Field(&r.Email, validation.Required, validation.Length(6, 100), is.Email),
		validation.Field(&r.DateOfBirth, validation.Required, validation.Date("2006-01-02")),
		validation.Field(&r.Gender, validation.In(
			GenderFemale,
			GenderMale,
			GenderNonBinary,
			GenderOther,
			GenderUndisclosed,
		)),
		validation.Field(&r.Password, validation.Required, validation.Length(6, 100)),
	)
}

// persistedRecordVersion is bumped whenever the persisted user layout
// changes; decode fails closed on any mismatch.
const persistedRecordVersion = 1

// PersistedRecord is the versioned envelope written to the Store for the
// user entry. Schema mismatches are treated as "no session".
type PersistedRecord struct {
	Version int   `json:"v"`
	User    *User `json:"user"`
}
