package event

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestType_IsValid(t *testing.T) {
	for _, typ := range AllTypes() {
		t.Run(typ.String(), func(t *testing.T) {
			assert.True(t, typ.IsValid())
		})
	}
	assert.False(t, Type("unknown").IsValid())
	assert.False(t, Type("").IsValid())
}

func TestNewEvent_UsesContextCorrelationID(t *testing.T) {
	ctx := WithCorrelationID(context.Background(), "corr-1")

	evt := NewEvent(ctx, TypeStatusChanged, "CONTRACT", 7, "CON000007", Payload{"to": "APPROVED"})

	assert.Equal(t, "corr-1", evt.CorrelationID)
	assert.NotEmpty(t, evt.ID)
	assert.Equal(t, int64(7), evt.EntityID)
	assert.Equal(t, "APPROVED", evt.Payload.String("to"))
	assert.False(t, evt.Timestamp.IsZero())
}

func TestNewEvent_GeneratesCorrelationID(t *testing.T) {
	a := NewEvent(context.Background(), TypeEntityCreated, "PROJECT", 1, "", nil)
	b := NewEvent(context.Background(), TypeEntityCreated, "PROJECT", 1, "", nil)

	require.NotNil(t, a.Payload)
	assert.NotEmpty(t, a.CorrelationID)
	assert.NotEqual(t, a.CorrelationID, b.CorrelationID)
	assert.NotEqual(t, a.ID, b.ID)
}

func TestEvent_Subject(t *testing.T) {
	withCode := NewEvent(context.Background(), TypeEntityCreated, "INVOICE", 3, "INV000003", nil)
	withoutCode := NewEvent(context.Background(), TypeApprovalRecorded, "CONTRACT", 9, "", nil)

	assert.Equal(t, "INVOICE/INV000003", withCode.Subject())
	assert.Equal(t, "CONTRACT/9", withoutCode.Subject())
}

func TestEvent_WithLeavesOriginal(t *testing.T) {
	original := NewEvent(context.Background(), TypeInvoiceReconciled, "INVOICE", 3, "INV000003", Payload{"delta": "10"})

	updated := original.With("paid", true)

	assert.False(t, original.Payload.Bool("paid"))
	assert.True(t, updated.Payload.Bool("paid"))
	assert.Equal(t, original.ID, updated.ID)
	assert.Equal(t, "10", updated.Payload.String("delta"))
}

func TestPayload_Accessors(t *testing.T) {
	p := Payload{
		"level":    2,
		"approver": int64(4),
		"float":    float64(3),
		"name":     "travel",
		"flag":     true,
	}

	tests := []struct {
		key    string
		wantI  int64
		wantS  string
		wantOK bool
	}{
		{key: "level", wantI: 2},
		{key: "approver", wantI: 4},
		{key: "float", wantI: 3},
		{key: "name", wantS: "travel"},
		{key: "flag", wantOK: true},
		{key: "missing"},
	}
	for _, tt := range tests {
		t.Run(tt.key, func(t *testing.T) {
			assert.Equal(t, tt.wantI, p.Int(tt.key))
			assert.Equal(t, tt.wantS, p.String(tt.key))
			assert.Equal(t, tt.wantOK, p.Bool(tt.key))
		})
	}
}

func TestPayload_Decimal(t *testing.T) {
	p := Payload{"delta": "100.50", "raw": decimal.NewFromInt(7), "count": 3}

	got, err := p.Decimal("delta")
	require.NoError(t, err)
	assert.True(t, got.Equal(decimal.RequireFromString("100.5")))

	got, err = p.Decimal("raw")
	require.NoError(t, err)
	assert.True(t, got.Equal(decimal.NewFromInt(7)))

	_, err = p.Decimal("count")
	assert.ErrorContains(t, err, "not an amount")
	_, err = p.Decimal("missing")
	assert.Error(t, err)
}

func TestEvent_JSONRoundTripKeepsPayloadReadable(t *testing.T) {
	evt := NewEvent(context.Background(), TypeApprovalRecorded, "EXPENSE_REQUEST", 1, "ER000001", Payload{
		"level": 2, "amount": "80.00",
	})

	raw, err := json.Marshal(evt)
	require.NoError(t, err)
	var decoded Event
	require.NoError(t, json.Unmarshal(raw, &decoded))

	assert.Equal(t, int64(2), decoded.Payload.Int("level"))
	amount, err := decoded.Payload.Decimal("amount")
	require.NoError(t, err)
	assert.Equal(t, "80", amount.String())
}
