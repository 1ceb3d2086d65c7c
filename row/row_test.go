package row

import (
	"math/big"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"reifydb.io/core/value"
)

func TestLayoutAllFieldsUndefinedInitially(t *testing.T) {
	l := New(0xCAFE, []value.Type{value.TypeInt4, value.TypeUtf8, value.TypeBool})
	r := l.Allocate()
	require.False(t, r.AllDefined())
	for i := 0; i < 3; i++ {
		require.False(t, r.IsDefined(i))
	}
}

func TestFixedWidthRoundTrip(t *testing.T) {
	l := New(1, []value.Type{value.TypeInt4, value.TypeFloat8, value.TypeBool, value.TypeUint8})
	r := l.Allocate()

	r.SetInt4(0, -42)
	r.SetFloat8(1, 3.25)
	r.SetBool(2, true)
	r.SetUint8(3, 1<<40)

	require.True(t, r.AllDefined())

	v, ok := r.GetInt4(0)
	require.True(t, ok)
	require.EqualValues(t, -42, v)

	f, ok := r.GetFloat8(1)
	require.True(t, ok)
	require.Equal(t, 3.25, f)

	b, ok := r.GetBool(2)
	require.True(t, ok)
	require.True(t, b)

	u, ok := r.GetUint8(3)
	require.True(t, ok)
	require.EqualValues(t, 1<<40, u)
}

func TestSetUndefinedClearsBitButKeepsLayout(t *testing.T) {
	l := New(2, []value.Type{value.TypeInt4})
	r := l.Allocate()
	r.SetInt4(0, 7)
	require.True(t, r.IsDefined(0))
	r.SetUndefined(0)
	require.False(t, r.IsDefined(0))
	_, ok := r.GetInt4(0)
	require.False(t, ok)
}

func TestUtf8InlineAndDynamic(t *testing.T) {
	l := New(3, []value.Type{value.TypeUtf8})
	r := l.Allocate()

	r.SetUtf8(0, "short")
	s, ok := r.GetUtf8(0)
	require.True(t, ok)
	require.Equal(t, "short", s)
	require.Equal(t, l.StaticSize(), len(r.Bytes())) // stayed inline

	long := ""
	for i := 0; i < 40; i++ {
		long += "x"
	}
	r.SetUtf8(0, long)
	s, ok = r.GetUtf8(0)
	require.True(t, ok)
	require.Equal(t, long, s)
	require.Greater(t, len(r.Bytes()), l.StaticSize())
}

func TestBlobDynamicAppendOnceLeaksOnOverwrite(t *testing.T) {
	l := New(4, []value.Type{value.TypeBlob})
	r := l.Allocate()

	payload := make([]byte, 64)
	for i := range payload {
		payload[i] = byte(i)
	}
	r.SetBlob(0, payload)
	sizeAfterFirst := len(r.Bytes())

	r.SetBlob(0, payload)
	got, ok := r.GetBlob(0)
	require.True(t, ok)
	require.Equal(t, payload, got)
	// second write appended a fresh copy; first copy's bytes are leaked
	// in the dynamic section, per spec's documented trade-off.
	require.Greater(t, len(r.Bytes()), sizeAfterFirst)
}

func TestIntBigRoundTripSignedAndNegative(t *testing.T) {
	l := New(5, []value.Type{value.TypeInt})
	r := l.Allocate()

	neg := big.NewInt(-123456789012345)
	r.SetIntBig(0, neg)
	got, ok := r.GetIntBig(0)
	require.True(t, ok)
	require.Equal(t, 0, neg.Cmp(got))
}

func TestUint16Fixed128RoundTrip(t *testing.T) {
	l := New(6, []value.Type{value.TypeUint16})
	r := l.Allocate()

	big128, _ := new(big.Int).SetString("340282366920938463463374607431768211455", 10) // 2^128-1
	r.SetUint16(0, big128)
	got, ok := r.GetUint16(0)
	require.True(t, ok)
	require.Equal(t, 0, big128.Cmp(got))
}

func TestInt16Fixed128NegativeRoundTrip(t *testing.T) {
	l := New(7, []value.Type{value.TypeInt16})
	r := l.Allocate()

	neg := big.NewInt(-999999999999)
	r.SetInt16(0, neg)
	got, ok := r.GetInt16(0)
	require.True(t, ok)
	require.Equal(t, 0, neg.Cmp(got))
}

func TestDecimalInlineAndDynamic(t *testing.T) {
	l := New(8, []value.Type{value.TypeDecimal})
	r := l.Allocate()

	small := decimal.RequireFromString("-12.345")
	r.SetDecimal(0, small)
	got, ok := r.GetDecimal(0)
	require.True(t, ok)
	require.True(t, small.Equal(got))
	require.Equal(t, l.StaticSize(), len(r.Bytes()))

	huge := decimal.RequireFromString("123456789012345678901234567890123456789012345678901234567890.123456789")
	r.SetDecimal(0, huge)
	got, ok = r.GetDecimal(0)
	require.True(t, ok)
	require.True(t, huge.Equal(got))
	require.Greater(t, len(r.Bytes()), l.StaticSize())
}

func TestUuidFields(t *testing.T) {
	l := New(9, []value.Type{value.TypeUuid7, value.TypeIdentityId})
	r := l.Allocate()

	u7, err := value.NewUuid7()
	require.NoError(t, err)
	r.SetUuid7(0, u7)
	r.SetIdentityID(1, uuid.New())

	got, ok := r.GetUuid7(0)
	require.True(t, ok)
	require.Equal(t, u7, got)
}

func TestDateTimeDurationAndTime(t *testing.T) {
	l := New(10, []value.Type{value.TypeDate, value.TypeDateTime, value.TypeDuration, value.TypeTime})
	r := l.Allocate()

	day := time.Date(2024, 3, 15, 0, 0, 0, 0, time.UTC)
	r.SetDate(0, day)
	got, ok := r.GetDate(0)
	require.True(t, ok)
	require.True(t, got.Equal(day))

	moment := time.Date(2024, 3, 15, 10, 30, 0, 0, time.UTC)
	r.SetDateTime(1, moment)
	gotDT, ok := r.GetDateTime(1)
	require.True(t, ok)
	require.True(t, gotDT.Equal(moment))

	r.SetDuration(2, 5*time.Hour)
	gotDur, ok := r.GetDuration(2)
	require.True(t, ok)
	require.Equal(t, 5*time.Hour, gotDur)

	r.SetTime(3, 90*time.Minute)
	gotTime, ok := r.GetTime(3)
	require.True(t, ok)
	require.Equal(t, 90*time.Minute, gotTime)
}

func TestGenericSetGetDispatch(t *testing.T) {
	l := New(11, []value.Type{value.TypeInt4, value.TypeUtf8, value.TypeDecimal})
	r := l.Allocate()

	r.Set(0, value.Int4(99))
	r.Set(1, value.Utf8("hello"))
	r.Set(2, value.Decimal(decimal.RequireFromString("1.5")))

	require.Equal(t, value.Int4(99), r.Get(0))
	require.Equal(t, value.Utf8("hello"), r.Get(1))
	require.True(t, decimal.RequireFromString("1.5").Equal(r.Get(2).Data.(decimal.Decimal)))

	r.Set(0, value.Undefined(value.TypeInt4))
	require.False(t, r.IsDefined(0))
	require.Equal(t, value.Undefined(value.TypeInt4), r.Get(0))
}

func TestWrapValidatesFingerprint(t *testing.T) {
	l := New(12, []value.Type{value.TypeInt4})
	r := l.Allocate()
	r.SetInt4(0, 1)

	rewrapped := l.Wrap(r.Bytes())
	v, ok := rewrapped.GetInt4(0)
	require.True(t, ok)
	require.EqualValues(t, 1, v)

	other := New(13, []value.Type{value.TypeInt4})
	require.Panics(t, func() {
		other.Wrap(r.Bytes())
	})
}
