package ledger_test

import (
	"math"
	"testing"

	"github.com/jackyeh168/vip_points/src/internal/domain/ledger"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// ===== PointsAmount 測試 =====

func TestNewPointsAmount_ValidValue_ReturnsPointsAmount(t *testing.T) {
	// Act
	amount, err := ledger.NewPointsAmount(100)

	// Assert
	assert.NoError(t, err)
	assert.Equal(t, 100, amount.Value())
	assert.False(t, amount.IsZero())
}

func TestNewPointsAmount_NegativeValue_ReturnsError(t *testing.T) {
	// Act
	amount, err := ledger.NewPointsAmount(-10)

	// Assert
	assert.ErrorIs(t, err, ledger.ErrNegativePointsAmount)
	assert.Equal(t, 0, amount.Value())
	assert.Contains(t, err.Error(), "value -10")
}

func TestNewPointsAmount_ZeroValue_IsZero(t *testing.T) {
	amount, err := ledger.NewPointsAmount(0)

	assert.NoError(t, err)
	assert.True(t, amount.IsZero())
}

func TestPointsAmount_Add_ReturnsNewPointsAmount(t *testing.T) {
	// Arrange
	a, _ := ledger.NewPointsAmount(100)
	b, _ := ledger.NewPointsAmount(50)

	// Act
	result, err := a.Add(b)

	// Assert
	require.NoError(t, err)
	assert.Equal(t, 150, result.Value())
	assert.Equal(t, 100, a.Value(), "原始值不變")
}

func TestPointsAmount_Add_Overflow_ReturnsError(t *testing.T) {
	// Arrange
	a, _ := ledger.NewPointsAmount(math.MaxInt)
	b, _ := ledger.NewPointsAmount(1)

	// Act
	_, err := a.Add(b)

	// Assert
	assert.ErrorIs(t, err, ledger.ErrPointsOverflow)
}

func TestPointsAmount_Subtract_ReturnsNewPointsAmount(t *testing.T) {
	a, _ := ledger.NewPointsAmount(100)
	b, _ := ledger.NewPointsAmount(30)

	result, err := a.Subtract(b)

	require.NoError(t, err)
	assert.Equal(t, 70, result.Value())
}

func TestPointsAmount_Subtract_ExceedsValue_ReturnsInsufficientBalance(t *testing.T) {
	a, _ := ledger.NewPointsAmount(10)
	b, _ := ledger.NewPointsAmount(11)

	_, err := a.Subtract(b)

	assert.ErrorIs(t, err, ledger.ErrInsufficientBalance)
}

func TestPointsAmount_Comparisons(t *testing.T) {
	small, _ := ledger.NewPointsAmount(5)
	large, _ := ledger.NewPointsAmount(50)
	same, _ := ledger.NewPointsAmount(5)

	assert.True(t, small.Equals(same))
	assert.False(t, small.Equals(large))
}

// ===== AccrualRate 測試 =====

func TestDefaultAccrualRate_IsTwo(t *testing.T) {
	rate := ledger.DefaultAccrualRate()

	assert.True(t, rate.Value().Equal(decimal.NewFromInt(2)))
	assert.Equal(t, "2", rate.String())
}

func TestParseAccrualRate(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    string
		wantErr bool
	}{
		{name: "整數倍率", input: "3", want: "3"},
		{name: "小數倍率", input: "1.5", want: "1.5"},
		{name: "上限", input: "1000", want: "1000"},
		{name: "零", input: "0", wantErr: true},
		{name: "負數", input: "-1", wantErr: true},
		{name: "超過上限", input: "1000.01", wantErr: true},
		{name: "非數字", input: "two", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rate, err := ledger.ParseAccrualRate(tt.input)

			if tt.wantErr {
				assert.ErrorIs(t, err, ledger.ErrInvalidAccrualRate)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, rate.String())
		})
	}
}
