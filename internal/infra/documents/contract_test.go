package documents

import (
	"bytes"
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"staybook/internal/app/policies"
	domainapartment "staybook/internal/domain/apartment"
	domainbooking "staybook/internal/domain/booking"
	domainpricing "staybook/internal/domain/pricing"
	"staybook/internal/domain/shared/daterange"
	"staybook/internal/domain/shared/money"
)

type mapStore map[string][]byte

func (m mapStore) Put(_ context.Context, key string, data []byte, _ string) error {
	m[key] = data
	return nil
}

func (m mapStore) Delete(_ context.Context, key string) error {
	delete(m, key)
	return nil
}

func (m mapStore) URL(_ context.Context, key string) (string, error) {
	return "https://files.example/" + key, nil
}

func contractInput(t *testing.T) policies.ContractInput {
	t.Helper()
	dr, err := daterange.New(daterange.Day(2026, 1, 3), daterange.Day(2026, 1, 17))
	require.NoError(t, err)
	return policies.ContractInput{
		Booking: &domainbooking.Booking{
			ID:       "bk-1",
			Customer: domainbooking.Customer{Name: "Zoé Dupré", Email: "zoe@example.com", Phone: "+33 6 00 00 00 00"},
			Range:    dr,
		},
		Apartment: &domainapartment.Apartment{ID: "apt-sea", Name: "Sea View"},
		Price: domainpricing.PriceBreakdown{
			Nights: 14,
			Weeks: []domainpricing.WeekLine{
				{WeekStart: daterange.Day(2026, 1, 3), Amount: money.Cents(100000)},
				{WeekStart: daterange.Day(2026, 1, 10), Amount: money.Cents(150000), Seasonal: true},
			},
			ParkingWeeks: 2,
			Parking:      money.Cents(16000),
			Total:        money.Cents(266000),
		},
		Revision: "confirmed",
	}
}

func TestRenderProducesPDF(t *testing.T) {
	r := ContractRenderer{Landlord: "Owner", Clock: func() time.Time { return time.Date(2025, 12, 1, 0, 0, 0, 0, time.UTC) }}
	data, err := r.Render(contractInput(t))
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(data, []byte("%PDF-")))

	_, err = r.Render(policies.ContractInput{})
	assert.Error(t, err)
}

func TestContractsStoreUnderRevisionKey(t *testing.T) {
	store := mapStore{}
	c := Contracts{Renderer: ContractRenderer{Landlord: "Owner"}, Store: store}

	ref, err := c.Generate(context.Background(), contractInput(t))
	require.NoError(t, err)
	assert.Equal(t, "contracts/bk-1-confirmed.pdf", ref)
	assert.Contains(t, store, ref)

	url, err := c.Link(context.Background(), ref)
	require.NoError(t, err)
	assert.Equal(t, "https://files.example/contracts/bk-1-confirmed.pdf", url)

	url, err = c.Link(context.Background(), "")
	require.NoError(t, err)
	assert.Empty(t, url)

	require.NoError(t, c.Discard(context.Background(), ref))
	assert.NotContains(t, store, ref)
}
