package sqlexec

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalizeValueUUIDBytes(t *testing.T) {
	raw := [16]byte{0x01, 0x02, 0x03, 0x04, 0x05, 0x06, 0x07, 0x08,
		0x09, 0x0a, 0x0b, 0x0c, 0x0d, 0x0e, 0x0f, 0x10}

	assert.Equal(t, "01020304-0506-0708-090a-0b0c0d0e0f10", normalizeValue(raw))
	assert.Equal(t, "01020304-0506-0708-090a-0b0c0d0e0f10", normalizeValue(raw[:]))
}

func TestNormalizeValueBytes(t *testing.T) {
	assert.Equal(t, `\xdeadbeef`, normalizeValue([]byte{0xde, 0xad, 0xbe, 0xef}))
}

func TestNormalizeValueTime(t *testing.T) {
	ts := time.Date(2024, 3, 1, 12, 30, 0, 0, time.UTC)
	assert.Equal(t, "2024-03-01T12:30:00Z", normalizeValue(ts))
}

func TestNormalizeValuePassthrough(t *testing.T) {
	assert.Nil(t, normalizeValue(nil))
	assert.Equal(t, int64(42), normalizeValue(int64(42)))
	assert.Equal(t, "Active", normalizeValue("Active"))
}

func TestResultSerializeStable(t *testing.T) {
	res := &Result{
		Columns: []string{"contract_id", "status"},
		Rows: [][]any{
			{int64(1), "Active"},
			{int64(2), nil},
		},
	}

	first, err := res.Serialize()
	require.NoError(t, err)
	assert.JSONEq(t, `{"columns":["contract_id","status"],"rows":[[1,"Active"],[2,null]]}`, first)

	second, err := res.Serialize()
	require.NoError(t, err)
	assert.Equal(t, first, second)
}

func TestResultSerializeEmpty(t *testing.T) {
	res := &Result{Columns: []string{}, Rows: [][]any{}, RowsAffected: 3}

	out, err := res.Serialize()
	require.NoError(t, err)
	assert.JSONEq(t, `{"columns":[],"rows":[],"rows_affected":3}`, out)
}
