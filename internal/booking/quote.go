package booking

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/avstrong/roomdesk/internal/daterange"
)

const minorUnits = 2

// CalculateQuote prices a stay. A stay is billed at least one night, so a
// same-day range is charged as one night rather than rejected.
func CalculateQuote(rate RoomRate, stay ProposedStay) (Quote, error) {
	if stay.CheckIn.IsZero() {
		return Quote{}, &IncompleteStayError{Field: "check_in"}
	}

	if stay.CheckOut.IsZero() {
		return Quote{}, &IncompleteStayError{Field: "check_out"}
	}

	nights := max(1, daterange.DaysBetween(stay.CheckIn, stay.CheckOut))
	n := decimal.NewFromInt(int64(nights))

	plan := NormalizeMealPlan(stay.MealPlan)

	base := rate.PricePerDay.Mul(n)
	surcharge := decimal.Zero

	if perDay, ok := rate.MealPlanSurcharge[plan]; ok && plan != MealPlanNone {
		surcharge = perDay.Mul(n)
	}

	grand := base.Add(surcharge).Round(minorUnits)

	return Quote{
		Nights:         nights,
		BaseTotal:      base,
		SurchargeTotal: surcharge,
		GrandTotal:     grand,
		BreakdownText:  breakdown(nights, rate.PricePerDay, plan, grand),
	}, nil
}

func breakdown(nights int, perDay decimal.Decimal, plan MealPlan, grand decimal.Decimal) string {
	var b strings.Builder

	fmt.Fprintf(&b, "%d day(s) × %s", nights, perDay.String())

	if plan != MealPlanNone {
		fmt.Fprintf(&b, " + %s", plan)
	}

	fmt.Fprintf(&b, " = %s", grand.String())

	return b.String()
}
