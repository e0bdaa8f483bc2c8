package logging

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewService_RejectsUnknownFormat(t *testing.T) {
	_, err := NewService(Config{Format: "xml"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "xml")
}

func TestNewService_RejectsUnknownLevel(t *testing.T) {
	_, err := NewService(Config{Level: "loud"})
	require.Error(t, err)
}

func TestService_LoggerIsCachedByName(t *testing.T) {
	svc, err := NewService(Config{Level: "error", Format: "json"})
	require.NoError(t, err)
	defer svc.Close()

	a := svc.Logger("importer")
	b := svc.Logger("importer")
	c := svc.Logger("archive")

	assert.Same(t, a.(*namedLogger), b.(*namedLogger))
	assert.NotSame(t, a.(*namedLogger), c.(*namedLogger))
}

func TestService_CloseSilencesLoggers(t *testing.T) {
	svc, err := NewService(Config{Level: "error"})
	require.NoError(t, err)

	l := svc.Logger("importer")
	require.NoError(t, svc.Close())
	require.NoError(t, svc.Close())

	assert.True(t, svc.isClosed())
	assert.NotPanics(t, func() { l.Error("after close") })
	assert.IsType(t, noopLogger{}, svc.Logger("importer"))
}

func TestEnsure(t *testing.T) {
	assert.IsType(t, noopLogger{}, Ensure(nil))

	var nilService *Service
	assert.IsType(t, noopLogger{}, nilService.Logger("x"))
	assert.NoError(t, nilService.Close())
}
