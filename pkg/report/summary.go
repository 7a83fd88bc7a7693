package report

import (
	"errors"
	"fmt"
	"math"
	"strings"

	"github.com/Sternrassler/order-report/pkg/order"
)

// ErrNoNumericValues is returned when a numeric aggregation finds nothing to aggregate.
var ErrNoNumericValues = errors.New("no numeric values")

// FieldComputationError reports a summary or chart failure for one field.
// The field is skipped and rendering continues.
type FieldComputationError struct {
	Field     string
	Operation Operation
	Err       error
}

// Error implements the error interface.
func (e *FieldComputationError) Error() string {
	return fmt.Sprintf("compute %s of %q: %v", e.Operation, e.Field, e.Err)
}

// Unwrap implements error unwrapping for errors.Is/As.
func (e *FieldComputationError) Unwrap() error {
	return e.Err
}

// SummaryRow is one label/value line of the summary table.
type SummaryRow struct {
	Label string
	Value string
}

// ComputeSummary evaluates every non-group summary field present in rs, in
// configured order. Fields that fail are reported in errs and left out of rows.
func ComputeSummary(rs order.ResultSet, fields []SummaryField) (rows []SummaryRow, errs []error) {
	for _, sf := range fields {
		if sf.Operation == OpGroup || !rs.HasColumn(sf.Field) {
			continue
		}
		if !sf.Operation.Known() {
			errs = append(errs, &FieldComputationError{
				Field:     sf.Field,
				Operation: sf.Operation,
				Err:       fmt.Errorf("unknown summary operation %q", sf.Operation),
			})
			continue
		}

		value, err := computeField(rs, sf.Field, sf.Operation)
		if err != nil {
			errs = append(errs, &FieldComputationError{Field: sf.Field, Operation: sf.Operation, Err: err})
			continue
		}
		rows = append(rows, SummaryRow{Label: sf.Label, Value: value})
	}
	return rows, errs
}

func computeField(rs order.ResultSet, field string, op Operation) (string, error) {
	switch op {
	case OpCount:
		return order.FormatInt(int64(len(rs))), nil
	case OpSum:
		return sum(rs.Values(field))
	case OpAvg, OpMean:
		return mean(rs.Values(field))
	case OpMin:
		return extreme(rs.Values(field), -1)
	case OpMax:
		return extreme(rs.Values(field), 1)
	default:
		return "", fmt.Errorf("unsupported operation %q", op)
	}
}

// numbers returns the numeric values, failing on any non-numeric value.
func numbers(values []order.Value) (nums []order.Value, allInts bool, err error) {
	allInts = true
	for _, v := range values {
		if !v.IsNumeric() {
			return nil, false, fmt.Errorf("non-numeric %s value %q", v.Kind(), v.String())
		}
		if v.Kind() != order.KindInteger {
			allInts = false
		}
		nums = append(nums, v)
	}
	if len(nums) == 0 {
		return nil, false, ErrNoNumericValues
	}
	return nums, allInts, nil
}

func sum(values []order.Value) (string, error) {
	nums, allInts, err := numbers(values)
	if err != nil {
		return "", err
	}

	if allInts {
		var total int64
		for _, v := range nums {
			n, _ := v.Int64()
			total += n
		}
		return order.FormatInt(total), nil
	}

	var total float64
	for _, v := range nums {
		f, _ := v.Float64()
		total += f
	}
	return order.FormatFloat(total), nil
}

func mean(values []order.Value) (string, error) {
	nums, _, err := numbers(values)
	if err != nil {
		return "", err
	}

	var total float64
	for _, v := range nums {
		f, _ := v.Float64()
		total += f
	}
	avg := total / float64(len(nums))
	if math.IsNaN(avg) || math.IsInf(avg, 0) {
		return "", fmt.Errorf("mean is not finite")
	}
	return order.FormatFloat(avg), nil
}

// extreme returns the minimum (sign -1) or maximum (sign 1). Numbers compare
// numerically, text compares lexically; mixing the two is an error.
func extreme(values []order.Value, sign int) (string, error) {
	if len(values) == 0 {
		return "", ErrNoNumericValues
	}

	best := values[0]
	numeric := best.IsNumeric()
	for _, v := range values[1:] {
		if v.IsNumeric() != numeric {
			return "", fmt.Errorf("cannot compare %s with %s", best.Kind(), v.Kind())
		}
		if compare(v, best, numeric)*sign > 0 {
			best = v
		}
	}
	return best.Format(), nil
}

func compare(a, b order.Value, numeric bool) int {
	if numeric {
		af, _ := a.Float64()
		bf, _ := b.Float64()
		switch {
		case af < bf:
			return -1
		case af > bf:
			return 1
		default:
			return 0
		}
	}
	return strings.Compare(a.String(), b.String())
}
