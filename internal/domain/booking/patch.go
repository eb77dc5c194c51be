package booking

import (
	"encoding/json"
	"fmt"
	"sort"
	"time"

	"staybook/internal/domain/shared/daterange"
	"staybook/internal/domain/shared/faults"
	"staybook/internal/domain/shared/money"
)

const (
	FieldAmountPaid             = "amount_paid"
	FieldCustomArrivalMessage   = "custom_arrival_message"
	FieldCustomDepartureMessage = "custom_departure_message"
	FieldArrivalMailDate        = "arrival_mail_date"
	FieldDepartureMailDate      = "departure_mail_date"
)

var (
	ErrFieldNotUpdatable = faults.Validation("booking: field cannot be updated")
	ErrInvalidFieldValue = faults.Validation("booking: invalid field value")
)

// identity fields are accepted in a patch body and ignored.
var identityFields = map[string]struct{}{
	"id":           {},
	"apartment_id": {},
	"created_at":   {},
}

// DateUpdate distinguishes "leave as is" from "set" and "clear".
type DateUpdate struct {
	Set   bool
	Value *time.Time
}

// Patch is a whitelisted partial update of operator-editable fields.
type Patch struct {
	AmountPaid             *money.Money
	CustomArrivalMessage   *string
	CustomDepartureMessage *string
	ArrivalMailDate        DateUpdate
	DepartureMailDate      DateUpdate
	// Ignored lists identity fields present in the request.
	Ignored []string
}

// DecodePatch builds a Patch from a JSON object. Identity fields are dropped, any other
// field outside the whitelist is rejected.
func DecodePatch(fields map[string]json.RawMessage, currency string, loc *time.Location) (Patch, error) {
	var p Patch
	for key, raw := range fields {
		if _, ok := identityFields[key]; ok {
			p.Ignored = append(p.Ignored, key)
			continue
		}
		switch key {
		case FieldAmountPaid:
			var cents *int64
			if err := json.Unmarshal(raw, &cents); err != nil || cents == nil || *cents < 0 {
				return Patch{}, fmt.Errorf("%w: %s", ErrInvalidFieldValue, key)
			}
			amount, err := money.New(*cents, currency)
			if err != nil {
				return Patch{}, fmt.Errorf("%w: %s", ErrInvalidFieldValue, key)
			}
			p.AmountPaid = &amount
		case FieldCustomArrivalMessage:
			msg, err := decodeText(key, raw)
			if err != nil {
				return Patch{}, err
			}
			p.CustomArrivalMessage = &msg
		case FieldCustomDepartureMessage:
			msg, err := decodeText(key, raw)
			if err != nil {
				return Patch{}, err
			}
			p.CustomDepartureMessage = &msg
		case FieldArrivalMailDate:
			upd, err := decodeDate(key, raw, loc)
			if err != nil {
				return Patch{}, err
			}
			p.ArrivalMailDate = upd
		case FieldDepartureMailDate:
			upd, err := decodeDate(key, raw, loc)
			if err != nil {
				return Patch{}, err
			}
			p.DepartureMailDate = upd
		default:
			return Patch{}, fmt.Errorf("%w: %s", ErrFieldNotUpdatable, key)
		}
	}
	sort.Strings(p.Ignored)
	return p, nil
}

// ApplyPatch writes the patch and returns the names of the fields that changed.
// Sent-reminder flags are left untouched.
func (b *Booking) ApplyPatch(p Patch, now time.Time) ([]string, error) {
	var changed []string
	if p.AmountPaid != nil {
		if p.AmountPaid.Currency != b.TotalPrice.Currency || p.AmountPaid.Amount < 0 {
			return nil, fmt.Errorf("%w: %s", ErrInvalidFieldValue, FieldAmountPaid)
		}
		if *p.AmountPaid != b.AmountPaid {
			b.AmountPaid = *p.AmountPaid
			changed = append(changed, FieldAmountPaid)
		}
	}
	if p.CustomArrivalMessage != nil && *p.CustomArrivalMessage != b.CustomArrivalMessage {
		b.CustomArrivalMessage = *p.CustomArrivalMessage
		changed = append(changed, FieldCustomArrivalMessage)
	}
	if p.CustomDepartureMessage != nil && *p.CustomDepartureMessage != b.CustomDepartureMessage {
		b.CustomDepartureMessage = *p.CustomDepartureMessage
		changed = append(changed, FieldCustomDepartureMessage)
	}
	if p.ArrivalMailDate.Set && !sameDate(b.ArrivalMailDate, p.ArrivalMailDate.Value) {
		b.ArrivalMailDate = copyDate(p.ArrivalMailDate.Value)
		changed = append(changed, FieldArrivalMailDate)
	}
	if p.DepartureMailDate.Set && !sameDate(b.DepartureMailDate, p.DepartureMailDate.Value) {
		b.DepartureMailDate = copyDate(p.DepartureMailDate.Value)
		changed = append(changed, FieldDepartureMailDate)
	}
	if len(changed) == 0 {
		return nil, nil
	}
	b.UpdatedAt = now.UTC()
	b.Record(BookingUpdated{BookingID: b.ID, Fields: append([]string(nil), changed...), At: b.UpdatedAt})
	return changed, nil
}

func decodeText(key string, raw json.RawMessage) (string, error) {
	var s *string
	if err := json.Unmarshal(raw, &s); err != nil {
		return "", fmt.Errorf("%w: %s", ErrInvalidFieldValue, key)
	}
	if s == nil {
		return "", nil
	}
	return *s, nil
}

func decodeDate(key string, raw json.RawMessage, loc *time.Location) (DateUpdate, error) {
	var s *string
	if err := json.Unmarshal(raw, &s); err != nil {
		return DateUpdate{}, fmt.Errorf("%w: %s", ErrInvalidFieldValue, key)
	}
	if s == nil || *s == "" {
		return DateUpdate{Set: true}, nil
	}
	d, err := daterange.Parse(*s, loc)
	if err != nil {
		return DateUpdate{}, fmt.Errorf("%w: %s", ErrInvalidFieldValue, key)
	}
	return DateUpdate{Set: true, Value: &d}, nil
}

func sameDate(a, b *time.Time) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return daterange.Normalize(*a).Equal(daterange.Normalize(*b))
}

func copyDate(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	d := daterange.Normalize(*t)
	return &d
}
