package proxy

import (
	"context"
	"fmt"
	"net"
	"net/http"

	"github.com/rs/zerolog"

	"github.com/agentstation/forgetap"
	"github.com/agentstation/forgetap/internal/appcontext"
	"github.com/agentstation/forgetap/internal/cmd/emoji"
	"github.com/agentstation/forgetap/internal/proxy"
	"github.com/agentstation/forgetap/internal/replay"
	"github.com/agentstation/forgetap/internal/server"
	"github.com/agentstation/forgetap/pkg/constants"
)

// session is one running proxy with its optional API server and recorder.
type session struct {
	client   forgetap.Client
	proxy    *proxy.Proxy
	recorder *replay.Recorder
	api      *server.Server
	servers  []*http.Server
	logger   *zerolog.Logger
}

// newSession wires a client, proxy, recorder and API server from opts.
// Nothing listens until serve is called.
func newSession(app appcontext.Interface, opts options) (*session, error) {
	logger := app.Logger()
	s := opts.settings

	var extra []forgetap.Option
	if s.MetadataCache != "" {
		extra = append(extra, forgetap.WithMetadataCache(s.MetadataCache))
	}
	client, err := app.Client(extra...)
	if err != nil {
		return nil, fmt.Errorf("creating client: %w", err)
	}

	sess := &session{client: client, logger: logger}

	if s.RecordFile != "" {
		rec, err := replay.Create(s.RecordFile, logger)
		if err != nil {
			return nil, err
		}
		rec.Attach(client.Interceptor())
		sess.recorder = rec
		logger.Info().Str("file", s.RecordFile).Msg("Recording traffic")
	}

	p, err := proxy.New(s.Upstream, client.Interceptor(),
		proxy.WithLogger(logger),
		proxy.WithSockets(client.Sockets()),
		proxy.WithMaxInspectBytes(s.MaxInspectBytes),
	)
	if err != nil {
		sess.closeRecorder()
		return nil, err
	}
	sess.proxy = p
	sess.servers = append(sess.servers, &http.Server{
		Addr:              s.Listen,
		Handler:           p,
		ReadHeaderTimeout: constants.DefaultTimeout,
	})

	if !opts.noAPI {
		cfg := server.DefaultConfig()
		cfg.Addr = s.APIListen
		cfg.CORSEnabled = opts.cors
		cfg.CORSOrigins = opts.corsOrigins
		api, err := server.New(client, cfg, logger)
		if err != nil {
			sess.closeRecorder()
			return nil, fmt.Errorf("creating server: %w", err)
		}
		sess.api = api
		sess.servers = append(sess.servers, api.HTTPServer())
	}
	return sess, nil
}

func run(ctx context.Context, app appcontext.Interface, opts options) error {
	sess, err := newSession(app, opts)
	if err != nil {
		return err
	}

	listeners := make([]net.Listener, 0, len(sess.servers))
	for _, srv := range sess.servers {
		ln, err := net.Listen("tcp", srv.Addr)
		if err != nil {
			for _, l := range listeners {
				_ = l.Close()
			}
			sess.closeRecorder()
			return fmt.Errorf("listening on %s: %w", srv.Addr, err)
		}
		listeners = append(listeners, ln)
	}

	fmt.Printf("%s Proxying %s on http://%s\n", emoji.Info, opts.settings.Upstream, listeners[0].Addr())
	if sess.api != nil {
		fmt.Printf("%s Event API on http://%s%s\n", emoji.Info, listeners[1].Addr(), server.DefaultConfig().PathPrefix)
	}
	fmt.Println("   Press Ctrl+C to stop")

	return sess.serve(ctx, listeners)
}

// serve runs every server on its listener until ctx is done or one fails,
// then shuts everything down.
func (s *session) serve(ctx context.Context, listeners []net.Listener) error {
	if s.api != nil {
		s.api.Start()
	}

	serverErr := make(chan error, len(s.servers))
	for i, srv := range s.servers {
		go func(srv *http.Server, ln net.Listener) {
			s.logger.Info().Str("addr", ln.Addr().String()).Msg("HTTP server listening")
			if err := srv.Serve(ln); err != nil && err != http.ErrServerClosed {
				serverErr <- fmt.Errorf("server %s failed: %w", srv.Addr, err)
			}
		}(srv, listeners[i])
	}

	var runErr error
	select {
	case runErr = <-serverErr:
	case <-ctx.Done():
		s.logger.Info().Msg("Shutdown signal received via context")
		fmt.Printf("\n%s Shutting down proxy...\n", emoji.Stop)
	}

	// The parent context is already done; cleanup gets its own deadline.
	shutdownCtx, cancel := context.WithTimeout(context.Background(), constants.ShutdownTimeout)
	defer cancel()

	if err := s.shutdown(shutdownCtx); err != nil && runErr == nil {
		runErr = err
	}
	if runErr == nil {
		s.logger.Info().Msg("Proxy stopped gracefully")
		fmt.Printf("%s Proxy stopped gracefully\n", emoji.Success)
	}
	return runErr
}

func (s *session) shutdown(ctx context.Context) error {
	var firstErr error
	for _, srv := range s.servers {
		if err := srv.Shutdown(ctx); err != nil && firstErr == nil {
			firstErr = fmt.Errorf("server shutdown failed: %w", err)
		}
	}
	if err := s.proxy.Wait(ctx); err != nil {
		s.logger.Warn().Err(err).Msg("WebSocket relays still open at shutdown")
	}
	if s.api != nil {
		if err := s.api.Shutdown(ctx); err != nil {
			s.logger.Warn().Err(err).Msg("Background services shutdown had issues")
		}
	}
	if err := s.client.AutoDrainOff(); err != nil {
		s.logger.Warn().Err(err).Msg("Stopping auto drain failed")
	}
	s.client.Drain()
	s.closeRecorder()
	return firstErr
}

func (s *session) closeRecorder() {
	if s.recorder == nil {
		return
	}
	if err := s.recorder.Close(); err != nil {
		s.logger.Warn().Err(err).Msg("Closing recording failed")
		return
	}
	s.logger.Info().Int("lines", s.recorder.Count()).Msg("Recording closed")
}
