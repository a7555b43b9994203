package guard

import (
	"os"
	"sync"
)

var once sync.Once

func init() {
	once.Do(func() {
		if os.Getenv("TICKETHUB_TEST_MODE") == "" {
			_ = os.Setenv("TICKETHUB_TEST_MODE", "1")
		}
	})
}
