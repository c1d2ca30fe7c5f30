/*
 * Copyright The pg2arrow Authors
 * SPDX-License-Identifier: Apache-2.0
 */

package column

import (
	"encoding/binary"
	"errors"
	"math/big"

	"github.com/apache/arrow-go/v18/arrow/decimal128"
)

// ErrNumericNaN is returned when the source numeric's sign bits mark it
// NaN. Arrow's Decimal128 has no NaN representation (spec §4.2), so this
// is always fatal at the call site.
var ErrNumericNaN = errors.New("column: source numeric is NaN, Arrow Decimal128 has no NaN representation")

// ErrNumericShort is returned when a numeric wire payload is too short to
// hold its own declared digit count.
var ErrNumericShort = errors.New("column: truncated numeric payload")

const (
	numericSignNaN = 0xC000
	numericSignNeg = 0x4000
)

// parsedNumeric is the decoded form of a PostgreSQL binary `numeric`
// payload: ndigits base-10000 digits, a weight (position of the first
// digit relative to the decimal point), and a sign. The source's own
// display scale is not kept: the append rule retargets to the column's
// Arrow scale.
type parsedNumeric struct {
	weight int16
	sign   uint16
	digits []int16
}

func parseNumeric(b []byte) (parsedNumeric, error) {
	if len(b) < 8 {
		return parsedNumeric{}, ErrNumericShort
	}
	ndigits := binary.BigEndian.Uint16(b[0:2])
	weight := int16(binary.BigEndian.Uint16(b[2:4]))
	sign := binary.BigEndian.Uint16(b[4:6])
	// b[6:8] is dscale, the source's own display scale; the append rule
	// retargets to the destination column's Arrow scale instead.
	if len(b) < 8+int(ndigits)*2 {
		return parsedNumeric{}, ErrNumericShort
	}
	digits := make([]int16, ndigits)
	for i := 0; i < int(ndigits); i++ {
		off := 8 + i*2
		digits[i] = int16(binary.BigEndian.Uint16(b[off : off+2]))
	}
	return parsedNumeric{weight: weight, sign: sign, digits: digits}, nil
}

func (n parsedNumeric) digitAt(i int) int64 {
	if i < 0 || i >= len(n.digits) {
		return 0
	}
	return int64(n.digits[i])
}

var pow10 = [5]int64{1, 10, 100, 1000, 10000}

// toScaledInt128 implements the decimal adjust rule from spec §4.2: the
// integer part is assembled digit group by digit group up through
// `weight`, then the fractional part continues group by group until
// `ascale` target decimal places have been produced; a final partial
// group contributes only its high `ascale` decimal places.
func (n parsedNumeric) toScaledInt128(ascale int) (decimal128.Num, error) {
	if n.sign == numericSignNaN {
		return decimal128.Num{}, ErrNumericNaN
	}

	value := new(big.Int)
	for d := 0; d <= int(n.weight); d++ {
		value.Mul(value, big.NewInt(10000))
		value.Add(value, big.NewInt(n.digitAt(d)))
	}

	remaining := ascale
	d := int(n.weight) + 1
	for remaining > 0 {
		dg := n.digitAt(d)
		if remaining >= 4 {
			value.Mul(value, big.NewInt(10000))
			value.Add(value, big.NewInt(dg))
			remaining -= 4
		} else {
			div := pow10[4-remaining]
			value.Mul(value, big.NewInt(pow10[remaining]))
			value.Add(value, big.NewInt(dg/div))
			remaining = 0
		}
		d++
	}

	if n.sign == numericSignNeg {
		value.Neg(value)
	}

	return decimal128.FromBigInt(value), nil
}
