package bridge

import (
	"context"
	"errors"
	"strconv"
	"strings"
	"time"

	"github.com/mumez/neobridge/core/logx"
	"github.com/mumez/neobridge/internal/history"
	"github.com/mumez/neobridge/internal/metrics"
	"github.com/mumez/neobridge/internal/neoconsole"
	"github.com/mumez/neobridge/internal/subprocess"
)

// SessionRunner executes one framed command over the serialized console
// session. Implemented by neoconsole.Supervisor.
type SessionRunner interface {
	Do(ctx context.Context, cmd neoconsole.Command) (string, error)
	Shutdown()
}

// ProcessRunner executes a one-shot VM invocation. Implemented by
// subprocess.Runner.
type ProcessRunner interface {
	Run(ctx context.Context, args ...string) (subprocess.Outcome, error)
}

type transportKind int

const (
	transportSession transportKind = iota
	transportProcess
)

// route binds an operation to its transport and, for session
// operations, the encoder producing the console command.
type route struct {
	kind    transportKind
	command func(Request) neoconsole.Command
}

// routes is the full dispatch table; every Op has exactly one row.
var routes = map[Op]route{
	OpEval: {kind: transportSession, command: func(r Request) neoconsole.Command {
		kw := r.Params[ParamCommand]
		if kw == "" {
			kw = "eval"
		}
		return neoconsole.Command{Keyword: kw, Argument: r.Params[ParamExpression]}
	}},
	OpSimpleEval: {kind: transportProcess},
	OpMetric: {kind: transportSession, command: func(r Request) neoconsole.Command {
		return neoconsole.MetricCommand(r.Params[ParamMetric])
	}},
	OpClassComment: {kind: transportSession, command: func(r Request) neoconsole.Command {
		return neoconsole.CommentOf(r.Params[ParamClassName])
	}},
	OpClassDefinition: {kind: transportSession, command: func(r Request) neoconsole.Command {
		return neoconsole.DefinitionOf(r.Params[ParamClassName])
	}},
	OpMethodList: {kind: transportSession, command: func(r Request) neoconsole.Command {
		return neoconsole.SelectorsOf(r.Params[ParamClassName])
	}},
	OpMethodSource: {kind: transportSession, command: func(r Request) neoconsole.Command {
		return neoconsole.SourceOf(r.Params[ParamClassName], r.Params[ParamSelector])
	}},
	OpInstallPackage: {kind: transportSession, command: func(r Request) neoconsole.Command {
		return neoconsole.MetacelloLoad(r.Params[ParamBaseline], r.Params[ParamRepository])
	}},
}

// Dispatcher is the single entry point for bridge calls. It validates,
// routes, applies the per-call timeout, and maps every failure into the
// error taxonomy. It never retries an executed request: a timed-out
// evaluation has unknown side-effect status and re-running it is the
// caller's decision.
type Dispatcher struct {
	sessions  SessionRunner
	procs     ProcessRunner
	imageFile string
	timeout   time.Duration
	history   *history.Ring
}

// NewDispatcher wires the dispatcher. imageFile is the image passed to
// one-shot VM runs; timeout is the per-call budget applied when the
// caller's context carries no deadline.
func NewDispatcher(sessions SessionRunner, procs ProcessRunner, imageFile string, timeout time.Duration, hist *history.Ring) *Dispatcher {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Dispatcher{sessions: sessions, procs: procs, imageFile: imageFile, timeout: timeout, history: hist}
}

// History exposes the session command history ring.
func (d *Dispatcher) History() *history.Ring { return d.history }

// Shutdown closes the console session if one is held.
func (d *Dispatcher) Shutdown() { d.sessions.Shutdown() }

// Dispatch runs one logical request to completion and returns the
// normalized result. Transport details never leak: callers see only a
// payload or a classified error.
func (d *Dispatcher) Dispatch(ctx context.Context, req Request) Result {
	if verr := req.Validate(); verr != nil {
		return Result{Err: verr}
	}
	rt, known := routes[req.Op]
	if !known {
		return fail(InvalidRequest, "unknown operation")
	}

	// The per-call budget always applies; an earlier caller deadline
	// still wins because the contexts nest.
	ctx, cancel := context.WithTimeout(ctx, d.timeout)
	defer cancel()

	metrics.RequestStart()
	start := time.Now()
	var res Result
	switch rt.kind {
	case transportSession:
		res = d.dispatchSession(ctx, req, rt)
	case transportProcess:
		res = d.dispatchProcess(ctx, req)
	}
	elapsed := time.Since(start)
	metrics.RequestEnd(req.Op.String(), outcomeLabel(res), elapsed)

	ev := logx.Log.Debug()
	if !res.OK {
		ev = logx.Log.Warn().Str("error", string(res.Err.Kind)).Str("message", res.Err.Message)
	}
	ev.Str("op", req.Op.String()).Dur("elapsed", elapsed).Msg("dispatch")
	return res
}

func (d *Dispatcher) dispatchSession(ctx context.Context, req Request, rt route) Result {
	cmd := rt.command(req)
	raw, err := d.sessions.Do(ctx, cmd)
	if err != nil {
		switch {
		case errors.Is(err, neoconsole.ErrUnavailable):
			return fail(TransportUnavailable, err.Error())
		case errors.Is(err, neoconsole.ErrIncomplete), errors.Is(err, context.DeadlineExceeded), ctx.Err() != nil:
			return fail(TimedOut, "console response not completed within budget; the evaluation may still be running")
		default:
			return fail(TransportFailure, err.Error())
		}
	}
	payload, derr := cmd.Decode(raw)
	if derr != nil {
		var evalErr *neoconsole.EvalError
		if errors.As(derr, &evalErr) {
			return fail(EvaluationError, evalErr.Message)
		}
		return fail(ProtocolError, "undecodable console output: "+derr.Error()+"; raw: "+raw)
	}
	if d.history != nil {
		d.history.Add(cmd.Line())
	}
	return ok(payload)
}

func (d *Dispatcher) dispatchProcess(ctx context.Context, req Request) Result {
	out, err := d.procs.Run(ctx, d.imageFile, "-e", req.Params[ParamExpression])
	if err != nil {
		if ctx.Err() != nil {
			return fail(TimedOut, "evaluation exceeded budget and the process was terminated")
		}
		return fail(TransportFailure, "could not run Pharo VM: "+err.Error())
	}
	if out.TimedOut {
		return fail(TimedOut, "evaluation exceeded budget and the process was terminated")
	}
	if out.ExitCode != 0 || len(out.Stderr) > 0 {
		msg := strings.TrimSpace(string(out.Stderr))
		if msg == "" {
			msg = "exit status " + strconv.Itoa(out.ExitCode)
		}
		return fail(EvaluationError, msg)
	}
	payload := strings.TrimSpace(string(out.Stdout))
	if out.Truncated {
		payload += "\n[output truncated]"
	}
	return ok(payload)
}

func outcomeLabel(r Result) string {
	if r.OK {
		return "ok"
	}
	return string(r.Err.Kind)
}
