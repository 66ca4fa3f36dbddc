package services

import (
	"fmt"
	"math/rand"
	"time"

	"coopmanager/internal/auth"
	"coopmanager/internal/core"
)

// DefaultSettings are the rates a fresh installation starts with.
func DefaultSettings() core.Settings {
	return core.Settings{
		PricePerResident:       10,
		PricePerPet:            5,
		FixedElevatorFee:       15,
		FixedFroFee:            20,
		CleaningFeePerResident: 5,
	}
}

// SeedApartments generates the initial 24 units: three per floor, every unit
// starting with a 50.00 debt, ground-floor units exempt from elevator
// charges. Resident counts and pets are randomized.
func SeedApartments() []core.Apartment {
	apartments := make([]core.Apartment, 24)
	for i := range apartments {
		apartments[i] = core.Apartment{
			ID:           fmt.Sprintf("%d", i+1),
			Number:       fmt.Sprintf("%d", i+1),
			Owner:        fmt.Sprintf("Собственик %d", i+1),
			Residents:    rand.Intn(3) + 1,
			Balance:      -50.00,
			Floor:        i/3 + 1,
			PaysElevator: i > 2,
			HasPet:       rand.Float64() > 0.7,
		}
	}
	return apartments
}

// seedAdmin builds the bootstrap administrator. The password is meant to be
// changed right after first login.
func seedAdmin(email, password string, now time.Time) (core.User, error) {
	if password == "" {
		password = "1234"
	}
	hash, err := auth.HashPassword(password)
	if err != nil {
		return core.User{}, err
	}
	return core.User{
		ID:           "1",
		Email:        email,
		PasswordHash: hash,
		Role:         core.RoleAdmin,
		RegisteredAt: now.Format(core.NoticeDateLayout),
	}, nil
}
