package typeutils

import (
	"bytes"
	"fmt"
	"math"
	"math/big"
	"reflect"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// return 0 for equal, -1 if a < b else 1 if a>b
// values are expected to share a replication key type; mixed types fall back to string order
func Compare(a, b any) int {
	// Handle nil cases first
	if a == nil && b == nil {
		return 0
	}
	if a == nil {
		return -1
	}
	if b == nil {
		return 1
	}

	switch aVal := a.(type) {
	case int, int8, int16, int32, int64:
		if !isNumeric(b) {
			break
		}
		aInt := reflect.ValueOf(a).Convert(reflect.TypeFor[int64]()).Int()
		bInt := reflect.ValueOf(b).Convert(reflect.TypeFor[int64]()).Int()
		return compareOrdered(aInt, bInt)
	case float32, float64:
		if !isNumeric(b) {
			break
		}
		aFloat := reflect.ValueOf(a).Convert(reflect.TypeFor[float64]()).Float()
		bFloat := reflect.ValueOf(b).Convert(reflect.TypeFor[float64]()).Float()

		if math.IsNaN(aFloat) {
			if math.IsNaN(bFloat) {
				return 0
			}
			return -1
		}
		if math.IsNaN(bFloat) {
			return 1
		}
		return compareOrdered(aFloat, bFloat)
	case string:
		if bStr, ok := b.(string); ok {
			return strings.Compare(aVal, bStr)
		}
	case time.Time:
		if bTime, ok := asTime(b); ok {
			return aVal.Compare(bTime)
		}
	case primitive.DateTime:
		if bTime, ok := asTime(b); ok {
			return aVal.Time().Compare(bTime)
		}
	case primitive.ObjectID:
		if bID, ok := b.(primitive.ObjectID); ok {
			return bytes.Compare(aVal[:], bID[:])
		}
	case primitive.Timestamp:
		if bTs, ok := b.(primitive.Timestamp); ok {
			return primitive.CompareTimestamp(aVal, bTs)
		}
	case primitive.Binary:
		if bBin, ok := b.(primitive.Binary); ok {
			// BSON orders binaries by length, then subtype, then bytes
			if len(aVal.Data) != len(bBin.Data) {
				return compareOrdered(len(aVal.Data), len(bBin.Data))
			}
			if aVal.Subtype != bBin.Subtype {
				return compareOrdered(aVal.Subtype, bBin.Subtype)
			}
			return bytes.Compare(aVal.Data, bBin.Data)
		}
	case primitive.Decimal128:
		if bDec, ok := b.(primitive.Decimal128); ok {
			aFloat, aOk := new(big.Float).SetString(aVal.String())
			bFloat, bOk := new(big.Float).SetString(bDec.String())
			if aOk && bOk {
				return aFloat.Cmp(bFloat)
			}
		}
	case bool:
		if bBool, ok := b.(bool); ok {
			// false < true
			if !aVal && bBool {
				return -1
			} else if aVal && !bBool {
				return 1
			}
			return 0
		}
	}

	// For any other types, convert to string for comparison
	return strings.Compare(fmt.Sprintf("%v", a), fmt.Sprintf("%v", b))
}

func compareOrdered[T int | int64 | float64 | byte](a, b T) int {
	if a < b {
		return -1
	} else if a > b {
		return 1
	}
	return 0
}

func isNumeric(v any) bool {
	switch v.(type) {
	case int, int8, int16, int32, int64, float32, float64:
		return true
	}
	return false
}

func asTime(v any) (time.Time, bool) {
	switch t := v.(type) {
	case time.Time:
		return t, true
	case primitive.DateTime:
		return t.Time(), true
	}
	return time.Time{}, false
}
