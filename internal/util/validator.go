package util

import (
	"errors"
	"net/mail"
	"strings"
)

// ValidateEmail retorna erro para e-mails inválidos.
func ValidateEmail(email string) error {
	email = strings.TrimSpace(email)
	if email == "" {
		return errors.New("email obrigatório")
	}
	if _, err := mail.ParseAddress(email); err != nil {
		return errors.New("email inválido")
	}
	return nil
}

// NormalizeCPF remove pontuação e valida o formato de 11 dígitos.
// Aceita entrada livre ("123.456.789-09") e devolve apenas os dígitos.
func NormalizeCPF(raw string) (string, error) {
	var b strings.Builder
	for _, r := range raw {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	cpf := b.String()
	if len(cpf) != 11 {
		return "", errors.New("cpf inválido")
	}
	return cpf, nil
}

// IsCPFLike indica se o identificador informado parece um CPF e não um e-mail.
func IsCPFLike(identifier string) bool {
	if strings.Contains(identifier, "@") {
		return false
	}
	digits := 0
	for _, r := range identifier {
		if r >= '0' && r <= '9' {
			digits++
		}
	}
	return digits == 11
}

// RequireString garante string não vazia.
func RequireString(value, field string) error {
	if strings.TrimSpace(value) == "" {
		return errors.New(field + " obrigatório")
	}
	return nil
}
