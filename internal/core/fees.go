package core

// MonthlyFee computes the monthly charge for one apartment under the current
// rates:
//
//	residents * pricePerResident
//	+ fixedFroFee
//	+ residents * cleaningFeePerResident
//	+ pricePerPet       if the unit keeps a pet
//	+ fixedElevatorFee  if the unit is charged for the elevator
//
// Inputs are taken as-is; the administrator is trusted to have entered sane
// rates, so there is no validation and no rounding here.
func MonthlyFee(a Apartment, s Settings) float64 {
	fee := float64(a.Residents)*s.PricePerResident +
		s.FixedFroFee +
		float64(a.Residents)*s.CleaningFeePerResident
	if a.HasPet {
		fee += s.PricePerPet
	}
	if a.PaysElevator {
		fee += s.FixedElevatorFee
	}
	return fee
}
