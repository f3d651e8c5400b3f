package typeutils

import (
	"encoding/base64"
	"fmt"
	"math"
	"time"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// RowToRecord converts a decoded document into JSON friendly values. The input is left
// untouched so the caller can still read the raw replication key from it.
func RowToRecord(doc map[string]any) map[string]any {
	record := make(map[string]any, len(doc))
	for key, value := range doc {
		record[key] = transformValue(value)
	}
	return record
}

func transformValue(input any) any {
	switch v := input.(type) {
	case nil, primitive.Null, primitive.Undefined:
		return nil
	case primitive.ObjectID:
		return v.Hex()
	case primitive.DateTime:
		return FormatTime(v.Time())
	case time.Time:
		return FormatTime(v)
	case primitive.Decimal128:
		return v.String()
	case primitive.Timestamp:
		return map[string]any{"t": v.T, "i": v.I}
	case primitive.Binary:
		if v.Subtype == bson.TypeBinaryUUID {
			if id, err := uuid.FromBytes(v.Data); err == nil {
				return id.String()
			}
		}
		return base64.StdEncoding.EncodeToString(v.Data)
	case []byte:
		return base64.StdEncoding.EncodeToString(v)
	case primitive.Regex:
		return fmt.Sprintf("/%s/%s", v.Pattern, v.Options)
	case primitive.JavaScript:
		return string(v)
	case primitive.Symbol:
		return string(v)
	case primitive.CodeWithScope:
		return string(v.Code)
	case primitive.DBPointer:
		return map[string]any{"$ref": v.DB, "$id": v.Pointer.Hex()}
	case primitive.MinKey:
		return "MinKey"
	case primitive.MaxKey:
		return "MaxKey"
	case float64:
		return transformFloat(v)
	case float32:
		return transformFloat(float64(v))
	case primitive.M:
		return RowToRecord(v)
	case map[string]any:
		return RowToRecord(v)
	case primitive.D:
		record := make(map[string]any, len(v))
		for _, elem := range v {
			record[elem.Key] = transformValue(elem.Value)
		}
		return record
	case primitive.A:
		return transformArray(v)
	case []any:
		return transformArray(v)
	}

	return input
}

func transformFloat(v float64) any {
	switch {
	case math.IsNaN(v):
		return "NaN"
	case math.IsInf(v, 1):
		return "Infinity"
	case math.IsInf(v, -1):
		return "-Infinity"
	}
	return v
}

func transformArray(arr []any) []any {
	out := make([]any, len(arr))
	for i, value := range arr {
		out[i] = transformValue(value)
	}
	return out
}
