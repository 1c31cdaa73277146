package upload

import (
	"context"
	"errors"
	"io"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Sarbeswarpanda04/Drive-Nest/internal/domain"
)

type brokenSource struct{}

func (brokenSource) Open() (io.ReadCloser, error) { return nil, errors.New("disk gone") }

func TestExecutor_Transfer(t *testing.T) {
	e := &executor{storage: &simulatedStorage{steps: []float64{0.5, 1}}}
	tk := &task{UploadTask: domain.UploadTask{
		ID:          "t1",
		Destination: "docs",
		Payload:     domain.Payload{Name: "a.txt", Size: 5, Source: domain.BytesSource("hello")},
	}}

	var seen []float64
	res, err := e.transfer(context.Background(), tk, func(f float64) { seen = append(seen, f) })
	require.NoError(t, err)
	assert.Equal(t, "sim/docs/a.txt", res.Reference)
	assert.Equal(t, int64(5), res.FinalSize)
	assert.Equal(t, []float64{0.5, 1}, seen)
}

func TestExecutor_Errors(t *testing.T) {
	e := &executor{storage: &simulatedStorage{err: errBoom}}

	tk := &task{UploadTask: domain.UploadTask{ID: "t1", Payload: domain.Payload{Name: "a", Source: domain.BytesSource("x")}}}
	_, err := e.transfer(context.Background(), tk, func(float64) {})
	var te *domain.TransferError
	require.True(t, errors.As(err, &te))
	assert.Equal(t, "t1", te.TaskID)
	assert.ErrorIs(t, err, errBoom)

	tk.Payload.Source = brokenSource{}
	_, err = e.transfer(context.Background(), tk, func(float64) {})
	assert.ErrorContains(t, err, "disk gone")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	tk.Payload.Source = domain.BytesSource("x")
	e.storage = newControlledStorage()
	_, err = e.transfer(ctx, tk, func(float64) {})
	assert.ErrorIs(t, err, domain.ErrTransferCancelled)
}

func TestClampProgress(t *testing.T) {
	assert.Equal(t, 0.0, clampProgress(-0.5))
	assert.Equal(t, 1.0, clampProgress(3))
	assert.Equal(t, 0.5, clampProgress(0.5))
	assert.Equal(t, 0.0, clampProgress(math.NaN()))
}
