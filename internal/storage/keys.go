package storage

import (
	"fmt"
	"path"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Clock abstracts time so generated keys are deterministic in tests.
type Clock interface {
	Now() time.Time
}

// IDGenerator abstracts random suffixes so generated keys are deterministic in tests.
type IDGenerator interface {
	New() string
}

type realClock struct{}

func (realClock) Now() time.Time { return time.Now() }

type uuidGenerator struct{}

func (uuidGenerator) New() string { return uuid.New().String() }

// Keys builds collision-free object keys that never contain the user's
// original file name, only its extension.
type Keys struct {
	clock Clock
	ids   IDGenerator
}

// NewKeys returns a Keys using the wall clock and random UUIDs.
func NewKeys() *Keys {
	return &Keys{clock: realClock{}, ids: uuidGenerator{}}
}

// NewKeysWith returns a Keys with injected time and ID sources.
func NewKeysWith(clock Clock, ids IDGenerator) *Keys {
	return &Keys{clock: clock, ids: ids}
}

// For returns "<prefix>/<unix millis>_<id><.ext>" for a file called fileName.
func (k *Keys) For(prefix, fileName string) string {
	ext := strings.ToLower(path.Ext(fileName))
	return fmt.Sprintf("%s/%d_%s%s", prefix, k.clock.Now().UnixMilli(), k.ids.New(), ext)
}
