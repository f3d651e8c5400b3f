package typeutils

import (
	"encoding/base64"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

var ErrUnsupportedKeyType = errors.New("unsupported replication key type")

// ReplicationKeyType is the tag persisted next to a serialized replication key value.
type ReplicationKeyType string

const (
	DateTimeKey   ReplicationKeyType = "datetime"
	ObjectIDKey   ReplicationKeyType = "ObjectId"
	IntKey        ReplicationKeyType = "int"
	FloatKey      ReplicationKeyType = "float"
	StringKey     ReplicationKeyType = "str"
	TimestampKey  ReplicationKeyType = "Timestamp"
	BytesKey      ReplicationKeyType = "bytes"
	UUIDKey       ReplicationKeyType = "UUID"
	Decimal128Key ReplicationKeyType = "Decimal128"
)

var replicationKeyTypes = []ReplicationKeyType{
	DateTimeKey, ObjectIDKey, IntKey, FloatKey, StringKey,
	TimestampKey, BytesKey, UUIDKey, Decimal128Key,
}

// ParseReplicationKeyType resolves a persisted tag. Matching is case-insensitive so
// states written as "objectid" and "ObjectId" load alike.
func ParseReplicationKeyType(tag string) (ReplicationKeyType, error) {
	for _, known := range replicationKeyTypes {
		if strings.EqualFold(string(known), tag) {
			return known, nil
		}
	}
	return "", fmt.Errorf("%w: unknown tag %q", ErrUnsupportedKeyType, tag)
}

// SerializeKey converts a native replication key value into its persisted string form and tag.
func SerializeKey(value any) (string, ReplicationKeyType, error) {
	switch v := value.(type) {
	case primitive.DateTime:
		return serializeTime(v.Time())
	case time.Time:
		return serializeTime(v)
	case primitive.ObjectID:
		return v.Hex(), ObjectIDKey, nil
	case int32:
		return strconv.FormatInt(int64(v), 10), IntKey, nil
	case int64:
		return strconv.FormatInt(v, 10), IntKey, nil
	case int:
		return strconv.FormatInt(int64(v), 10), IntKey, nil
	case float32:
		return strconv.FormatFloat(float64(v), 'g', -1, 64), FloatKey, nil
	case float64:
		return strconv.FormatFloat(v, 'g', -1, 64), FloatKey, nil
	case string:
		if !utf8.ValidString(v) {
			return "", "", fmt.Errorf("%w: string is not valid UTF-8", ErrUnsupportedKeyType)
		}
		return v, StringKey, nil
	case primitive.Timestamp:
		return fmt.Sprintf("%d.%d", v.T, v.I), TimestampKey, nil
	case primitive.Decimal128:
		return v.String(), Decimal128Key, nil
	case []byte:
		return base64.StdEncoding.EncodeToString(v), BytesKey, nil
	case primitive.Binary:
		switch v.Subtype {
		case bson.TypeBinaryUUID:
			id, err := uuid.FromBytes(v.Data)
			if err != nil {
				return "", "", fmt.Errorf("%w: malformed UUID binary: %s", ErrUnsupportedKeyType, err)
			}
			return id.String(), UUIDKey, nil
		case bson.TypeBinaryGeneric:
			return base64.StdEncoding.EncodeToString(v.Data), BytesKey, nil
		}
		return "", "", fmt.Errorf("%w: binary subtype 0x%02x", ErrUnsupportedKeyType, v.Subtype)
	}

	return "", "", fmt.Errorf("%w: %T", ErrUnsupportedKeyType, value)
}

// serializeTime only accepts four digit years, the range the RFC3339 form parses back
func serializeTime(t time.Time) (string, ReplicationKeyType, error) {
	if year := t.UTC().Year(); year < 0 || year > 9999 {
		return "", "", fmt.Errorf("%w: datetime year %d out of range", ErrUnsupportedKeyType, year)
	}
	return FormatTime(t), DateTimeKey, nil
}

// DeserializeKey restores the native value of a persisted replication key so it can be
// used in a query filter.
func DeserializeKey(value string, tag ReplicationKeyType) (any, error) {
	switch tag {
	case DateTimeKey:
		t, err := ParseTime(value)
		if err != nil {
			return nil, err
		}
		return primitive.NewDateTimeFromTime(t), nil
	case ObjectIDKey:
		return primitive.ObjectIDFromHex(value)
	case IntKey:
		return strconv.ParseInt(value, 10, 64)
	case FloatKey:
		return strconv.ParseFloat(value, 64)
	case StringKey:
		return value, nil
	case TimestampKey:
		seconds, increment, found := strings.Cut(value, ".")
		if !found {
			return nil, fmt.Errorf("invalid timestamp value %q", value)
		}
		t, err := strconv.ParseUint(seconds, 10, 32)
		if err != nil {
			return nil, fmt.Errorf("invalid timestamp value %q: %s", value, err)
		}
		i, err := strconv.ParseUint(increment, 10, 32)
		if err != nil {
			return nil, fmt.Errorf("invalid timestamp value %q: %s", value, err)
		}
		return primitive.Timestamp{T: uint32(t), I: uint32(i)}, nil
	case BytesKey:
		data, err := base64.StdEncoding.DecodeString(value)
		if err != nil {
			return nil, fmt.Errorf("invalid bytes value %q: %s", value, err)
		}
		return primitive.Binary{Subtype: bson.TypeBinaryGeneric, Data: data}, nil
	case UUIDKey:
		id, err := uuid.Parse(value)
		if err != nil {
			return nil, fmt.Errorf("invalid UUID value %q: %s", value, err)
		}
		return primitive.Binary{Subtype: bson.TypeBinaryUUID, Data: id[:]}, nil
	case Decimal128Key:
		return primitive.ParseDecimal128(value)
	}

	return nil, fmt.Errorf("%w: unknown tag %q", ErrUnsupportedKeyType, tag)
}
