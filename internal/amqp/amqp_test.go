package amqp

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDial_InvalidURL(t *testing.T) {
	_, err := Dial("not-a-url")
	assert.Error(t, err)
}

func TestNewConsumer_InvalidURL(t *testing.T) {
	_, err := NewConsumer("not-a-url", "q")
	assert.Error(t, err)
}

func TestConsumer_CloseNil(t *testing.T) {
	var c *Consumer
	assert.NoError(t, c.Close())
}
