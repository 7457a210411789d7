package services

import (
	"fmt"
	"strings"
	"time"

	"github.com/stwalsh4118/sitetrack/internal/storage"
)

const testBaseURL = "https://cdn.example.com/plantas"

type fixedClock struct{}

func (fixedClock) Now() time.Time { return time.UnixMilli(1714521600000) }

type sequentialIDs struct {
	n int
}

func (s *sequentialIDs) New() string {
	s.n++
	return fmt.Sprintf("%04d", s.n)
}

func testKeys() *storage.Keys {
	return storage.NewKeysWith(fixedClock{}, &sequentialIDs{})
}

func file(name, body string) storage.Object {
	return storage.Object{Name: name, Size: int64(len(body)), Body: strings.NewReader(body)}
}
