package payments

import (
	"fmt"
	"math"
)

// Split is the division of one gross payment between the organizer and the
// platform. OrganizerShare + PlatformCommission always equals Total exactly:
// the commission is taken as the remainder so rounding never leaks a paisa.
type Split struct {
	Total              Paise
	OrganizerShare     Paise
	PlatformCommission Paise
}

// ComputeSplit derives the split for a tournament's authoritative entry fee.
func ComputeSplit(entryFeeRupees float64) (Split, error) {
	if math.IsNaN(entryFeeRupees) || math.IsInf(entryFeeRupees, 0) || entryFeeRupees <= 0 {
		return Split{}, fmt.Errorf("%w: %v", ErrInvalidEntryFee, entryFeeRupees)
	}
	total := Paise(math.Round(entryFeeRupees * 100))
	return SplitAmount(total)
}

// SplitAmount divides a gross minor-unit amount at the fixed commission rate.
func SplitAmount(total Paise) (Split, error) {
	if total <= 0 {
		return Split{}, fmt.Errorf("%w: %d", ErrInvalidEntryFee, total)
	}
	organizerShare := Paise(math.Round(float64(total) * float64(10000-CommissionBasisPoints) / 10000))
	return Split{
		Total:              total,
		OrganizerShare:     organizerShare,
		PlatformCommission: total - organizerShare,
	}, nil
}

// RefundSplit divides a paid amount into the refunded portion and the retained
// processing fee. The refund is floored so the fee is never negative and the
// two parts always sum to the original amount.
func RefundSplit(paid Paise, percentage float64) (refund Paise, processingFee Paise, err error) {
	if math.IsNaN(percentage) || percentage <= 0 || percentage > 100 {
		return 0, 0, fmt.Errorf("%w: %v", ErrInvalidPercentage, percentage)
	}
	if paid <= 0 {
		return 0, 0, fmt.Errorf("%w: %d", ErrInvalidPaise, paid)
	}
	refund = Paise(math.Floor(float64(paid) * percentage / 100))
	return refund, paid - refund, nil
}
