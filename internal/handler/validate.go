package handler

// Request validation mirrors the platform's account rules: names 2-50
// chars, adresse 10-255, phone exactly 01########, sexe from its enum and
// passwords of at least 8 chars mixing lower, upper, digit and special.
// Each check returns a user-facing message, empty when the value passes;
// validation stops at the first failing field.

import (
	"regexp"
	"strings"

	"github.com/devakowakou/backend-rdv/internal/model"
)

var (
	emailRx = regexp.MustCompile(`^[^@\s]+@[^@\s]+\.[^@\s]+$`)
	phoneRx = regexp.MustCompile(`^01\d{8}$`)
)

func checkEmail(v string) string {
	if strings.TrimSpace(v) == "" {
		return "L'email est requis"
	}
	if !emailRx.MatchString(strings.TrimSpace(v)) {
		return "Veuillez fournir un email valide"
	}
	return ""
}

func checkName(label, v string) string {
	v = strings.TrimSpace(v)
	if v == "" {
		return "Le " + label + " est requis"
	}
	if len([]rune(v)) < 2 {
		return "Le " + label + " doit contenir au moins 2 caractères"
	}
	if len([]rune(v)) > 50 {
		return "Le " + label + " ne peut pas dépasser 50 caractères"
	}
	return ""
}

func checkPassword(v string) string {
	if v == "" {
		return "Le mot de passe est requis"
	}
	if len(v) < 8 {
		return "Le mot de passe doit contenir au moins 8 caractères"
	}
	var lower, upper, digit, special bool
	for _, r := range v {
		switch {
		case r >= 'a' && r <= 'z':
			lower = true
		case r >= 'A' && r <= 'Z':
			upper = true
		case r >= '0' && r <= '9':
			digit = true
		case strings.ContainsRune("!@#$%^&*", r):
			special = true
		}
	}
	if !lower || !upper || !digit || !special {
		return "Le mot de passe doit contenir au moins une minuscule, une majuscule, un chiffre et un caractère spécial"
	}
	return ""
}

func checkPhone(v string) string {
	if v == "" {
		return "Le numéro de téléphone est requis"
	}
	if !phoneRx.MatchString(v) {
		return "Le numéro de téléphone doit commencer par 01 et contenir exactement 10 chiffres"
	}
	return ""
}

func checkSexe(v string) string {
	if v != model.SexeMasculin && v != model.SexeFeminin {
		return "Le sexe doit être \"Masculin\" ou \"Feminin\""
	}
	return ""
}

func checkAdresse(v string) string {
	v = strings.TrimSpace(v)
	if v == "" {
		return "L'adresse est requise"
	}
	if len([]rune(v)) < 10 {
		return "L'adresse doit contenir au moins 10 caractères"
	}
	if len([]rune(v)) > 255 {
		return "L'adresse ne peut pas dépasser 255 caractères"
	}
	return ""
}

// checkProfileUpdate validates only the fields present in a partial update.
func checkProfileUpdate(u model.ProfileUpdate) string {
	if u.Firstname != nil {
		if msg := checkName("prénom", *u.Firstname); msg != "" {
			return msg
		}
	}
	if u.Lastname != nil {
		if msg := checkName("nom", *u.Lastname); msg != "" {
			return msg
		}
	}
	if u.Phone != nil {
		if msg := checkPhone(*u.Phone); msg != "" {
			return msg
		}
	}
	if u.Sexe != nil {
		if msg := checkSexe(*u.Sexe); msg != "" {
			return msg
		}
	}
	if u.Adresse != nil {
		if msg := checkAdresse(*u.Adresse); msg != "" {
			return msg
		}
	}
	return ""
}
