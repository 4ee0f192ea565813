package engine

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mapmotion/mapmotion/pkg/curve"
)

func TestConfig_Validate_Defaults(t *testing.T) {
	// The zero Config selects the frame backend with a linear curve.
	require.NoError(t, Config{}.Validate())
	assert.Equal(t, BackendFrame, Config{}.kind())
	assert.Equal(t, DefaultFrameRate, Config{}.frameRate())
}

func TestConfig_Validate_FrameBackendRejectsFrameRate(t *testing.T) {
	err := Config{Backend: BackendFrame, FrameRate: 30}.Validate()
	require.ErrorIs(t, err, ErrFrameRateNotSupported)

	// Same with the implicit default backend.
	err = Config{FrameRate: 30}.Validate()
	require.ErrorIs(t, err, ErrFrameRateNotSupported)
}

func TestConfig_Validate_TimerBackendFrameRateRange(t *testing.T) {
	require.NoError(t, Config{Backend: BackendTimer, FrameRate: 1}.Validate())
	require.NoError(t, Config{Backend: BackendTimer, FrameRate: 120}.Validate())

	assert.ErrorIs(t, Config{Backend: BackendTimer, FrameRate: 121}.Validate(), ErrFrameRateOutOfRange)
	assert.ErrorIs(t, Config{Backend: BackendTimer, FrameRate: -5}.Validate(), ErrFrameRateOutOfRange)
}

func TestConfig_Validate_TimerBackendRejectsNonLinearCurve(t *testing.T) {
	err := Config{Backend: BackendTimer, Curve: curve.EaseInOut}.Validate()
	require.ErrorIs(t, err, ErrCurveNotSupported)

	require.NoError(t, Config{Backend: BackendTimer, Curve: curve.Linear}.Validate())
	require.NoError(t, Config{Backend: BackendTimer}.Validate())
}

func TestConfig_Validate_FrameBackendAllowsAnyCurve(t *testing.T) {
	require.NoError(t, Config{Backend: BackendFrame, Curve: curve.EaseInOut}.Validate())
}

func TestConfig_Validate_NegativeDuration(t *testing.T) {
	err := Config{Duration: -time.Second}.Validate()
	require.ErrorIs(t, err, ErrNegativeDuration)
}

func TestConfig_Validate_UnknownBackend(t *testing.T) {
	err := Config{Backend: "cron"}.Validate()
	require.ErrorIs(t, err, ErrUnknownBackend)
}

func TestTickInterval(t *testing.T) {
	assert.Equal(t, time.Second, tickInterval(1))
	assert.Equal(t, 17*time.Millisecond, tickInterval(60))
	assert.Equal(t, 8*time.Millisecond, tickInterval(120))
}

func TestNew_InvalidConfigNeverBuilds(t *testing.T) {
	e, err := New(Config{Backend: BackendTimer, Curve: curve.EaseIn})
	require.Error(t, err)
	assert.Nil(t, e)
}
