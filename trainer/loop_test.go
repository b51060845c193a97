package trainer

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/fumin/dynrnn"
	"github.com/fumin/dynrnn/config"
)

func smallConfig() config.Config {
	cfg := config.Default()
	cfg.TrainSize = 40
	cfg.TestSize = 20
	cfg.MaxLen = 6
	cfg.MinLen = 2
	cfg.MaxValue = 50
	cfg.Hidden = 4
	cfg.Steps = 30
	cfg.BatchSize = 8
	cfg.DisplayStep = 10
	return cfg
}

func weights(m *dynrnn.Model) []float64 {
	var ws []float64
	m.Weights(func(u *dynrnn.Unit) { ws = append(ws, u.Val) })
	return ws
}

func TestNewRejectsInvalidConfig(t *testing.T) {
	cfg := smallConfig()
	cfg.MinLen = 0
	_, err := New(cfg, nil)
	assert.ErrorIs(t, err, config.ErrInvalid)
}

func TestRun(t *testing.T) {
	defer goleak.VerifyNone(t)

	core, logs := observer.New(zap.InfoLevel)
	l, err := New(smallConfig(), zap.New(core))
	require.NoError(t, err)
	assert.NotEmpty(t, l.RunID)

	res, err := l.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 30, res.Steps)
	assert.GreaterOrEqual(t, res.TestAccuracy, 0.0)
	assert.LessOrEqual(t, res.TestAccuracy, 1.0)
	assert.Positive(t, res.TestLoss)

	steps := logs.FilterMessage("step").All()
	require.Len(t, steps, 4)
	for i, want := range []int64{1, 10, 20, 30} {
		assert.Equal(t, want, steps[i].ContextMap()["step"])
		assert.Equal(t, l.RunID, steps[i].ContextMap()["run"])
	}
	assert.Equal(t, 1, logs.FilterMessage("testing").Len())

	loss, acc, err := l.Evaluate()
	require.NoError(t, err)
	assert.Equal(t, res.TestLoss, loss)
	assert.Equal(t, res.TestAccuracy, acc)
}

func TestRunIsDeterministic(t *testing.T) {
	a, err := New(smallConfig(), nil)
	require.NoError(t, err)
	b, err := New(smallConfig(), nil)
	require.NoError(t, err)
	assert.NotEqual(t, a.RunID, b.RunID)

	ra, err := a.Run(context.Background())
	require.NoError(t, err)
	rb, err := b.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, ra, rb)
	assert.Equal(t, weights(a.Model()), weights(b.Model()))
}

func TestRunSGD(t *testing.T) {
	cfg := smallConfig()
	cfg.Optimizer.Name = config.OptimizerSGD
	cfg.Optimizer.LearningRate = 0.01
	l, err := New(cfg, nil)
	require.NoError(t, err)
	before := weights(l.Model())

	_, err = l.Run(context.Background())
	require.NoError(t, err)
	assert.NotEqual(t, before, weights(l.Model()))
}

func TestRunCancelled(t *testing.T) {
	l, err := New(smallConfig(), nil)
	require.NoError(t, err)
	before := weights(l.Model())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	res, err := l.Run(ctx)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 0, res.Steps)
	assert.Equal(t, before, weights(l.Model()))
}

func TestHandlerDuringRun(t *testing.T) {
	l, err := New(smallConfig(), nil)
	require.NoError(t, err)
	h := l.Handler()

	var wg sync.WaitGroup
	rec := httptest.NewRecorder()
	wg.Add(1)
	go func() {
		defer wg.Done()
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/Weights", nil))
	}()

	_, err = l.Run(context.Background())
	require.NoError(t, err)
	wg.Wait()

	require.Equal(t, http.StatusOK, rec.Code)
	var ws []float64
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &ws))
	assert.Len(t, ws, l.Model().NumWeights())
}

func TestHandlerAfterRun(t *testing.T) {
	l, err := New(smallConfig(), nil)
	require.NoError(t, err)
	_, err = l.Run(context.Background())
	require.NoError(t, err)
	h := l.Handler()

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/Loss", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	var losses []float64
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &losses))
	assert.Len(t, losses, 4)

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/Weights", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	var ws []float64
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &ws))
	assert.Equal(t, weights(l.Model()), ws)
}

func TestPrintDebug(t *testing.T) {
	defer goleak.VerifyNone(t)

	core, logs := observer.New(zap.InfoLevel)
	l, err := New(smallConfig(), zap.New(core))
	require.NoError(t, err)
	h := l.Handler()

	rec := httptest.NewRecorder()
	served := make(chan struct{})
	go func() {
		defer close(served)
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/PrintDebug", nil))
	}()
	for !l.doPrint {
		l.handleHTTP()
	}
	<-served
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, "true", rec.Body.String())

	_, err = l.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 4, logs.FilterMessage("predictions").Len())

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/PrintDebug", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestPredictionsHiddenByDefault(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	l, err := New(smallConfig(), zap.New(core))
	require.NoError(t, err)
	_, err = l.Run(context.Background())
	require.NoError(t, err)
	assert.Zero(t, logs.FilterMessage("predictions").Len())

	core, logs = observer.New(zap.DebugLevel)
	l, err = New(smallConfig(), zap.New(core))
	require.NoError(t, err)
	_, err = l.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 4, logs.FilterMessage("predictions").Len())
}
