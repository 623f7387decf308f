package logging

import (
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew(t *testing.T) {
	l, err := New("debug", "json")
	require.NoError(t, err)
	assert.Equal(t, logrus.DebugLevel, l.GetLevel())
	assert.IsType(t, &logrus.JSONFormatter{}, l.Formatter)

	_, err = New("loud", "json")
	assert.Error(t, err)

	_, err = New("info", "xml")
	assert.Error(t, err)
}

func TestOrDiscard(t *testing.T) {
	l := logrus.New()
	assert.Same(t, l, OrDiscard(l))
	assert.NotNil(t, OrDiscard(nil))
}
