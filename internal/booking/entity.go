package booking

import (
	"encoding/json"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/avstrong/roomdesk/internal/daterange"
)

// BookingInterval is an existing reservation occupying [CheckIn, CheckOut).
type BookingInterval struct {
	RoomID   int64          `json:"room_id"`
	CheckIn  daterange.Date `json:"check_in"`
	CheckOut daterange.Date `json:"check_out"`
}

func (b BookingInterval) Range() daterange.Range {
	return daterange.Range{Start: b.CheckIn, End: b.CheckOut}
}

type MealPlan string

const (
	MealPlanNone      MealPlan = ""
	MealPlanHalfBoard MealPlan = "Half Board"
	MealPlanFullBoard MealPlan = "Full Board"
)

// NormalizeMealPlan folds the spellings seen in form payloads onto the known
// plans. Unknown plans are kept as typed.
func NormalizeMealPlan(p MealPlan) MealPlan {
	s := strings.TrimSpace(string(p))

	switch strings.ToLower(strings.NewReplacer("_", " ", "-", " ").Replace(s)) {
	case "", "none", "no board", "room only":
		return MealPlanNone
	case "half board", "hb":
		return MealPlanHalfBoard
	case "full board", "fb":
		return MealPlanFullBoard
	default:
		return MealPlan(s)
	}
}

type RoomRate struct {
	RoomID            int64                        `json:"room_id"`
	PricePerDay       decimal.Decimal              `json:"price_per_day"`
	MealPlanSurcharge map[MealPlan]decimal.Decimal `json:"meal_plan_surcharge,omitempty"`
}

// ProposedStay is the user's current selection in a booking dialog. It carries
// every field any booking form sends so no variant loses data.
type ProposedStay struct {
	RoomID      int64          `json:"room"`
	ClientName  string         `json:"client_name"`
	ClientEmail string         `json:"client_email"`
	ClientPhone string         `json:"client_phone,omitempty"`
	Adults      int            `json:"adults,omitempty"`
	Children    int            `json:"children,omitempty"`
	CheckIn     daterange.Date `json:"check_in"`
	CheckOut    daterange.Date `json:"check_out"`
	MealPlan    MealPlan       `json:"board_type,omitempty"`
}

func (s ProposedStay) Range() daterange.Range {
	return daterange.Range{Start: s.CheckIn, End: s.CheckOut}
}

type Quote struct {
	Nights         int             `json:"nights"`
	BaseTotal      decimal.Decimal `json:"base_total"`
	SurchargeTotal decimal.Decimal `json:"surcharge_total"`
	GrandTotal     decimal.Decimal `json:"grand_total"`
	BreakdownText  string          `json:"breakdown"`
}

// CreateRequest is the body of the remote create-booking call.
type CreateRequest struct {
	ProposedStay
	AmountPaid decimal.Decimal `json:"amount_paid"`
}

func NewCreateRequest(stay ProposedStay, quote Quote) *CreateRequest {
	stay.MealPlan = NormalizeMealPlan(stay.MealPlan)

	return &CreateRequest{
		ProposedStay: stay,
		AmountPaid:   quote.GrandTotal,
	}
}

// BookingRecord is a booking as returned by the remote API. Dates stay raw
// strings until ParseIntervals decides whether the record is usable.
type BookingRecord struct {
	ID            int64            `json:"id"`
	RoomID        int64            `json:"room"`
	RoomName      string           `json:"room_name,omitempty"`
	ClientName    string           `json:"client_name,omitempty"`
	ClientEmail   string           `json:"client_email,omitempty"`
	CheckIn       string           `json:"check_in"`
	CheckOut      string           `json:"check_out"`
	TotalAmount   *decimal.Decimal `json:"total_amount,omitempty"`
	AmountPaid    *decimal.Decimal `json:"amount_paid,omitempty"`
	PaymentStatus PaymentStatus    `json:"payment_status,omitempty"`
	// DecodeError is set when the record arrived with fields of the wrong
	// type; ParseIntervals drops such records.
	DecodeError string `json:"decode_error,omitempty"`
}

// UnmarshalJSON accepts both "room" and "room_id" for the room reference.
func (r *BookingRecord) UnmarshalJSON(b []byte) error {
	type plain BookingRecord

	aux := struct {
		*plain
		RoomIDAlt *int64 `json:"room_id"`
	}{plain: (*plain)(r)}

	if err := json.Unmarshal(b, &aux); err != nil {
		return err //nolint:wrapcheck
	}

	if r.RoomID == 0 && aux.RoomIDAlt != nil {
		r.RoomID = *aux.RoomIDAlt
	}

	return nil
}

type RoomRecord struct {
	ID                 int64                        `json:"id"`
	Name               string                       `json:"name"`
	Description        string                       `json:"description,omitempty"`
	PricePerDay        *decimal.Decimal             `json:"price_per_day"`
	Available          bool                         `json:"available"`
	MealPlanSurcharges map[MealPlan]decimal.Decimal `json:"meal_plan_surcharges,omitempty"`
}
