package model

import (
    "database/sql"
    "time"
)

// Roles accepted by the platform.  Registration only ever produces
// RolePatient or RoleDoctor; admin accounts are seeded out of band and no
// API path can create or assign the admin role.
const (
    RoleAdmin   = "admin"
    RolePatient = "patient"
    RoleDoctor  = "docteur"
)

// Values accepted for the sexe column.
const (
    SexeMasculin = "Masculin"
    SexeFeminin  = "Feminin"
)

// Account represents a row of the `users` table.  PasswordHash and the two
// reset columns are internal state: they are never serialized to clients
// (see Public below).  ResetToken and ResetTokenExpires are NULL unless a
// password reset is in flight.
//
// Fields:
//  ID                – primary key, assigned by the store, immutable.
//  Firstname         – users.firstname (2–50 chars).
//  Lastname          – users.lastname (2–50 chars).
//  Email             – users.email, globally unique.
//  Username          – users.username, globally unique, derived at
//                      registration from firstname/lastname, never
//                      client‑supplied.
//  PasswordHash      – users.password_hash (bcrypt digest).
//  Phone             – users.phone, exactly 10 digits matching 01########.
//  Sexe              – users.sexe (Masculin | Feminin).
//  Adresse           – users.adresse (10–255 chars).
//  Role              – users.role (admin | patient | docteur).
//  ResetToken        – users.reset_token, unique when set (nullable).
//  ResetTokenExpires – users.reset_token_expires (nullable).
//  CreatedAt         – set once on insert.
//  UpdatedAt         – bumped on every mutation.
type Account struct {
    ID                uint64
    Firstname         string
    Lastname          string
    Email             string
    Username          string
    PasswordHash      string
    Phone             string
    Sexe              string
    Adresse           string
    Role              string
    ResetToken        sql.NullString
    ResetTokenExpires sql.NullTime
    CreatedAt         time.Time
    UpdatedAt         time.Time
}

// PublicAccount is the client-facing projection of an Account.  It carries
// no secret material: the password hash and reset token state stay server
// side.
type PublicAccount struct {
    ID        uint64    `json:"id"`
    Firstname string    `json:"firstname"`
    Lastname  string    `json:"lastname"`
    Email     string    `json:"email"`
    Username  string    `json:"username"`
    Phone     string    `json:"phone"`
    Sexe      string    `json:"sexe"`
    Adresse   string    `json:"adresse"`
    Role      string    `json:"role"`
    CreatedAt time.Time `json:"created_at"`
    UpdatedAt time.Time `json:"updated_at"`
}

// Public strips the secret fields from an Account.
func (a Account) Public() PublicAccount {
    return PublicAccount{
        ID:        a.ID,
        Firstname: a.Firstname,
        Lastname:  a.Lastname,
        Email:     a.Email,
        Username:  a.Username,
        Phone:     a.Phone,
        Sexe:      a.Sexe,
        Adresse:   a.Adresse,
        Role:      a.Role,
        CreatedAt: a.CreatedAt,
        UpdatedAt: a.UpdatedAt,
    }
}

// ProfileUpdate enumerates the account attributes a client may change
// through the profile endpoint.  Nil means "leave untouched".  Role, email
// and username are deliberately not expressible here: the whitelist is the
// type itself.
type ProfileUpdate struct {
    Firstname *string `json:"firstname"`
    Lastname  *string `json:"lastname"`
    Phone     *string `json:"phone"`
    Sexe      *string `json:"sexe"`
    Adresse   *string `json:"adresse"`
}

// Empty reports whether no field is set.
func (u ProfileUpdate) Empty() bool {
    return u.Firstname == nil && u.Lastname == nil && u.Phone == nil &&
        u.Sexe == nil && u.Adresse == nil
}
