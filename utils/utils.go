package utils

import (
	"crypto/rand"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/goccy/go-json"
	"github.com/oklog/ulid"
	"github.com/spf13/cobra"
	"sigs.k8s.io/yaml"
)

var (
	ulidMutex = sync.Mutex{}
	entropy   = ulid.Monotonic(rand.Reader, 0)
)

// IsValidSubcommand checks if the passed subcommand is supported by the parent command
func IsValidSubcommand(available []*cobra.Command, sub string) bool {
	for _, s := range available {
		if sub == s.Name() {
			return true
		}
	}
	return false
}

func ArrayContains[T any](set []T, match func(elem T) bool) (int, bool) {
	for idx, elem := range set {
		if match(elem) {
			return idx, true
		}
	}

	return -1, false
}

func Ternary(condition bool, a, b any) any {
	if condition {
		return a
	}
	return b
}

// Unmarshal serializes and deserializes any from into the object
func Unmarshal(from, object any) error {
	b, err := json.Marshal(from)
	if err != nil {
		return fmt.Errorf("error marshaling object: %s", err)
	}
	if err := json.Unmarshal(b, object); err != nil {
		return fmt.Errorf("error unmarshalling from object: %s", err)
	}
	return nil
}

// UnmarshalFile reads a JSON or YAML file into dest. Encrypted files hold a single
// encrypted string that decrypts to the JSON document.
func UnmarshalFile(file string, dest any, credsEncrypted bool) error {
	data, err := os.ReadFile(file)
	if err != nil {
		return fmt.Errorf("failed to read %s: %s", file, err)
	}

	if credsEncrypted {
		decrypted, err := DecryptConfig(strings.TrimSpace(string(data)))
		if err != nil {
			return fmt.Errorf("failed to decrypt %s: %s", file, err)
		}
		data = []byte(decrypted)
	}

	switch strings.ToLower(filepath.Ext(file)) {
	case ".yaml", ".yml":
		data, err = yaml.YAMLToJSON(data)
		if err != nil {
			return fmt.Errorf("failed to convert yaml file %s: %s", file, err)
		}
	}

	if err := json.Unmarshal(data, dest); err != nil {
		return fmt.Errorf("failed to unmarshal %s: %s", file, err)
	}
	return nil
}

func ULID() string {
	return genULID(time.Now())
}

func genULID(t time.Time) string {
	ulidMutex.Lock()
	defer ulidMutex.Unlock()

	return ulid.MustNew(ulid.Timestamp(t), entropy).String()
}

// TimestampedFileName returns a sortable, collision free file name with the given extension
func TimestampedFileName(extension string) string {
	now := time.Now().UTC()
	return fmt.Sprintf("%s_%s.%s", now.Format("2006-01-02_15-04-05"), genULID(now), extension)
}
