package main

import (
	"context"
	"encoding/json"
	"io"
	"net/http"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/vango-dev/reactor/internal/errors"
	"github.com/vango-dev/reactor/pkg/host"
	"github.com/vango-dev/reactor/pkg/inspect"
	"github.com/vango-dev/reactor/pkg/reactor"
	"github.com/vango-dev/reactor/pkg/scenario"
	"github.com/vango-dev/reactor/pkg/snapshot"
)

// maxScriptBytes bounds the body of POST /api/steps.
const maxScriptBytes = 1 << 20

func serveCmd(flags *globalFlags) *cobra.Command {
	var (
		addr   string
		script string
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve a live scene behind the inspect server",
		Long: `Build the demo scene on a host loop that drains once per tick and
serve it over HTTP.

Endpoints:
  GET  /api/tree       ownership tree as JSON
  GET  /api/stats      node counts and the last drain pass
  POST /api/steps      apply a YAML script of steps
  POST /api/snapshot   export the tree
  GET  /metrics        Prometheus metrics
  GET  /ws             stream of drain passes

Examples:
  reactor serve
  reactor serve --addr=:7070 --script=demo.yaml`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := context.WithCancel(cmd.Context())
			defer cancel()
			out := cmd.OutOrStdout()

			a, err := newApp(ctx, flags, "serve", cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			defer a.Close(context.Background())
			if addr != "" {
				a.cfg.Inspect.Addr = addr
			}

			loop := host.New(a.rt,
				host.WithInterval(a.cfg.TickInterval()),
				host.WithQueueSize(a.cfg.Host.QueueSize),
				host.WithLogger(a.logger),
			)

			g, gctx := errgroup.WithContext(ctx)
			g.Go(func() error { return loop.Run(gctx) })

			srv, err := newServeHandler(gctx, a, loop, script)
			if err != nil {
				cancel()
				g.Wait()
				return err
			}
			g.Go(func() error { return srv.ListenAndServe(gctx, a.cfg.Inspect.Addr) })

			success(out, "Inspect server on http://%s", a.cfg.Inspect.Addr)
			return g.Wait()
		},
	}

	cmd.Flags().StringVarP(&addr, "addr", "a", "", "Listen address (overrides inspect.addr)")
	cmd.Flags().StringVarP(&script, "script", "s", "", "Script to apply before serving")

	return cmd
}

// newServeHandler builds the scene on loop, applies the optional start-up
// script and returns the inspect server with the scene routes mounted.
// loop must be running.
func newServeHandler(ctx context.Context, a *app, loop *host.Loop, script string) (*inspect.Server, error) {
	var scene *scenario.Scene
	err := loop.Do(ctx, func(rt *reactor.Runtime) error {
		s, err := scenario.Build(rt, func(line string) {
			a.logger.Info("scene", "line", line)
		})
		scene = s
		return err
	})
	if err != nil {
		return nil, errors.FromReactor(err)
	}

	if script != "" {
		sc, err := scenario.ParseFile(script)
		if err != nil {
			return nil, err
		}
		if _, err := applySteps(ctx, loop, scene, sc); err != nil {
			return nil, err
		}
	}

	srv := inspect.New(loop,
		inspect.WithLogger(a.logger),
		inspect.WithGatherer(a.registry),
	)
	srv.Router().Post("/api/steps", handleSteps(loop, scene))
	srv.Router().Post("/api/snapshot", handleSnapshot(loop, a))
	return srv, nil
}

// stepsResponse is the body of POST /api/steps.
type stepsResponse struct {
	Applied int            `json:"applied"`
	Ticks   int            `json:"ticks"`
	Runs    int            `json:"runs"`
	Error   *errors.Report `json:"error,omitempty"`
}

// applySteps applies every step of sc on the loop goroutine in one job.
func applySteps(ctx context.Context, loop *host.Loop, scene *scenario.Scene, sc *scenario.Script) (stepsResponse, error) {
	var resp stepsResponse
	err := loop.Do(ctx, func(rt *reactor.Runtime) error {
		for _, st := range sc.Steps {
			report, err := scene.Apply(ctx, rt, sc, st)
			if report.Runs > 0 {
				resp.Ticks++
				resp.Runs += report.Runs
			}
			if err != nil {
				return err
			}
			resp.Applied++
		}
		return nil
	})
	return resp, err
}

func handleSteps(loop *host.Loop, scene *scenario.Scene) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		body, err := io.ReadAll(io.LimitReader(r.Body, maxScriptBytes))
		if err != nil {
			writeJSON(w, http.StatusBadRequest, stepsResponse{Error: errors.ReportOf(err)})
			return
		}
		sc, err := scenario.Parse(body, "")
		if err != nil {
			writeJSON(w, http.StatusBadRequest, stepsResponse{Error: errors.ReportOf(err)})
			return
		}

		resp, err := applySteps(r.Context(), loop, scene, sc)
		if err != nil {
			resp.Error = errors.ReportOf(err)
			status := http.StatusUnprocessableEntity
			if resp.Error.Code == "R001" {
				status = http.StatusGone
			}
			writeJSON(w, status, resp)
			return
		}
		writeJSON(w, http.StatusOK, resp)
	}
}

// snapshotResponse is the body of POST /api/snapshot.
type snapshotResponse struct {
	Location string `json:"location,omitempty"`
	Error    string `json:"error,omitempty"`
}

func handleSnapshot(loop *host.Loop, a *app) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var doc snapshot.Document
		err := loop.Do(r.Context(), func(rt *reactor.Runtime) error {
			doc = snapshot.Capture(rt, a.runID)
			return nil
		})
		if err != nil {
			writeJSON(w, http.StatusServiceUnavailable, snapshotResponse{Error: err.Error()})
			return
		}
		loc, err := a.exporter().Export(r.Context(), doc)
		if err != nil {
			writeJSON(w, http.StatusInternalServerError, snapshotResponse{Error: err.Error()})
			return
		}
		writeJSON(w, http.StatusCreated, snapshotResponse{Location: loc})
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
