package async

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRun(t *testing.T) {
	assert := assert.New(t)
	a := <-Run(func() int {
		return 123
	})
	assert.Equal(123, a)
	err := <-Run(func() error {
		return fmt.Errorf("boom")
	})
	assert.EqualError(err, "boom")
}
