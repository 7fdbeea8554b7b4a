package gateway

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// stubUnit records Close calls; the embedded interface panics on anything
// the tests do not exercise.
type stubUnit struct {
	Unit
	closed  int
	discard bool
}

func (u *stubUnit) Close(discard bool) error {
	u.closed++
	u.discard = discard
	return nil
}

type stubGateway struct {
	Gateway
	unit    *stubUnit
	openErr error
}

func (g *stubGateway) Open(string, OpenOptions) (Unit, error) {
	if g.openErr != nil {
		return nil, g.openErr
	}
	return g.unit, nil
}

func TestAcquireIsExclusive(t *testing.T) {
	s := NewSession(&stubGateway{})

	release, err := s.Acquire()
	require.NoError(t, err)

	_, err = s.Acquire()
	assert.ErrorIs(t, err, ErrBusy)

	release()
	release() // second call is harmless

	release2, err := s.Acquire()
	require.NoError(t, err)
	release2()
}

func TestWithUnitAlwaysCloses(t *testing.T) {
	u := &stubUnit{}
	s := NewSession(&stubGateway{unit: u})

	boom := errors.New("boom")
	err := s.WithUnit("a.m3d", OpenOptions{}, func(Unit) error { return boom })
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, 1, u.closed)
	assert.True(t, u.discard)

	err = s.WithUnit("a.m3d", OpenOptions{}, func(Unit) error { return nil })
	assert.NoError(t, err)
	assert.Equal(t, 2, u.closed)
}

func TestWithUnitOpenError(t *testing.T) {
	s := NewSession(&stubGateway{openErr: ErrNotFound})
	called := false
	err := s.WithUnit("missing.m3d", OpenOptions{}, func(Unit) error { called = true; return nil })
	assert.ErrorIs(t, err, ErrNotFound)
	assert.False(t, called)
}

func TestMatrixTranslation(t *testing.T) {
	m := Translation(10, 20, 30)
	x, y, z := m.Origin()
	assert.Equal(t, []float64{10, 20, 30}, []float64{x, y, z})
	assert.False(t, m.IsZero())
	assert.True(t, Matrix{}.IsZero())
}

func TestMatrixMulComposesTranslations(t *testing.T) {
	m := Translation(1, 2, 3).Mul(Translation(10, 0, -3))
	x, y, z := m.Origin()
	assert.Equal(t, []float64{11, 2, 0}, []float64{x, y, z})
	assert.Equal(t, Translation(5, 5, 5), Identity().Mul(Translation(5, 5, 5)))
}
