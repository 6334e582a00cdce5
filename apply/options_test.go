package apply

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseOrder(t *testing.T) {
	for _, o := range []Order{OrderKeep, OrderSort, OrderData} {
		got, err := ParseOrder(o.String())
		require.NoError(t, err)
		assert.Equal(t, o, got)
	}
	got, err := ParseOrder("SORT")
	require.NoError(t, err)
	assert.Equal(t, OrderSort, got)

	_, err = ParseOrder("random")
	assert.ErrorIs(t, err, ErrInvalidOptions)
	assert.Equal(t, "Order(7)", Order(7).String())
}

func TestParseErrorPolicy(t *testing.T) {
	for _, p := range []ErrorPolicy{OnErrorExit, OnErrorIgnore, OnErrorBlank, OnErrorOriginal} {
		got, err := ParseErrorPolicy(p.String())
		require.NoError(t, err)
		assert.Equal(t, p, got)
	}
	_, err := ParseErrorPolicy("")
	assert.ErrorIs(t, err, ErrInvalidOptions)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		opts  Options
		valid bool
	}{
		{Options{}, true},
		{Options{Jobs: 16, Order: OrderSort, OnError: OnErrorIgnore}, true},
		{Options{Order: OrderData, OnError: OnErrorIgnore}, true},
		{Options{Order: OrderKeep, OnError: OnErrorBlank}, true},
		{Options{Order: OrderKeep, OnError: OnErrorIgnore}, false},
		{Options{Jobs: -1}, false},
		{Options{Order: Order(3)}, false},
		{Options{OnError: ErrorPolicy(-1)}, false},
	}
	for _, tc := range tests {
		err := tc.opts.Validate()
		if tc.valid {
			assert.NoError(t, err, "%+v", tc.opts)
		} else {
			assert.ErrorIs(t, err, ErrInvalidOptions, "%+v", tc.opts)
		}
	}

	o := (&Options{}).withDefaults()
	assert.Equal(t, 1, o.Jobs)
	assert.NotNil(t, o.Diag)
}
