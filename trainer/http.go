package trainer

import (
	"context"
	"encoding/json"
	"errors"
	"net"
	"net/http"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/fumin/dynrnn"
)

// Handler serves /Weights, /Loss and /PrintDebug.
// While Run is in progress requests are answered between training steps,
// so the model is never read while it is being updated.
func (l *Loop) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/Weights", func(w http.ResponseWriter, r *http.Request) {
		c := make(chan []byte, 1)
		var b []byte
		select {
		case l.weightsChan <- c:
			b = <-c
		case <-l.done:
			b = l.weightsJSON()
		case <-r.Context().Done():
			return
		}
		if b == nil {
			http.Error(w, "cannot encode weights", http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write(b)
	})
	mux.HandleFunc("/Loss", func(w http.ResponseWriter, r *http.Request) {
		c := make(chan []float64, 1)
		var losses []float64
		select {
		case l.lossChan <- c:
			losses = <-c
		case <-l.done:
			losses = append([]float64{}, l.losses...)
		case <-r.Context().Done():
			return
		}
		w.Header().Set("Content-Type", "application/json")
		if err := json.NewEncoder(w).Encode(losses); err != nil {
			l.log.Warn("encode losses", zap.Error(err))
		}
	})
	mux.HandleFunc("/PrintDebug", func(w http.ResponseWriter, r *http.Request) {
		c := make(chan bool, 1)
		select {
		case l.printDebugChan <- c:
		case <-l.done:
			http.Error(w, "training finished", http.StatusServiceUnavailable)
			return
		case <-r.Context().Done():
			return
		}
		w.Header().Set("Content-Type", "application/json")
		if err := json.NewEncoder(w).Encode(<-c); err != nil {
			l.log.Warn("encode print debug", zap.Error(err))
		}
	})
	return mux
}

func (l *Loop) handleHTTP() {
	select {
	case c := <-l.weightsChan:
		c <- l.weightsJSON()
	case c := <-l.lossChan:
		c <- append([]float64{}, l.losses...)
	case c := <-l.printDebugChan:
		l.doPrint = !l.doPrint
		c <- l.doPrint
	default:
		return
	}
}

func (l *Loop) weightsJSON() []byte {
	ws := make([]float64, 0, l.model.NumWeights())
	l.model.Weights(func(u *dynrnn.Unit) { ws = append(ws, u.Val) })
	b, err := json.Marshal(ws)
	if err != nil {
		l.log.Error("marshal weights", zap.Error(err))
		return nil
	}
	return b
}

// Serve runs an HTTP server on ln until ctx is done.
func Serve(ctx context.Context, ln net.Listener, h http.Handler, logger *zap.Logger) error {
	if logger == nil {
		logger = zap.NewNop()
	}
	srv := &http.Server{Handler: h, ReadHeaderTimeout: 5 * time.Second}
	errCh := make(chan error, 1)
	go func() { errCh <- srv.Serve(ln) }()
	logger.Info("debug server listening", zap.String("addr", ln.Addr().String()))

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return err
		}
		if err := <-errCh; !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	case err := <-errCh:
		return err
	}
}

// RunAndServe runs l while serving its Handler on ln.
// The server is stopped once Run returns, and a server failure cancels Run.
func RunAndServe(ctx context.Context, l *Loop, ln net.Listener, logger *zap.Logger) (Result, error) {
	g, ctx := errgroup.WithContext(ctx)
	serveCtx, stopServer := context.WithCancel(ctx)
	defer stopServer()
	g.Go(func() error {
		return Serve(serveCtx, ln, l.Handler(), logger)
	})

	var res Result
	g.Go(func() error {
		defer stopServer()
		var err error
		res, err = l.Run(ctx)
		return err
	})
	return res, g.Wait()
}
