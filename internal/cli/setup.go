package cli

import (
	"context"
	"errors"
	"strconv"

	"github.com/annvangeert/fluisterweek/internal/course"
	"github.com/annvangeert/fluisterweek/internal/engine"
	"github.com/annvangeert/fluisterweek/internal/kv/sqlitekv"
	"github.com/annvangeert/fluisterweek/internal/webhook"
)

// openEngine opens the database and bootstraps an engine around it. The
// caller owns the returned store and must Close it.
func openEngine(ctx context.Context, opts *RootOptions) (*engine.Engine, *sqlitekv.Store, error) {
	c, err := course.Default()
	if err != nil {
		return nil, nil, WrapExitError(ExitCommandError, "load course content", err)
	}

	store, err := sqlitekv.Open(opts.Database)
	if err != nil {
		return nil, nil, WrapExitError(ExitCommandError, "open database", err)
	}

	eng, err := engine.New(ctx, store, c, webhook.NewDispatcher())
	if err != nil {
		store.Close()
		return nil, nil, WrapExitError(ExitCommandError, "initialize engine", err)
	}
	return eng, store, nil
}

// parseDayArg converts a 1-based day argument to a 0-based index.
func parseDayArg(arg string, total int) (int, error) {
	n, err := strconv.Atoi(arg)
	if err != nil || n < 1 || n > total {
		return 0, NewExitError(ExitCommandError,
			"day must be a number between 1 and "+strconv.Itoa(total))
	}
	return n - 1, nil
}

// parseKindArg maps a CLI event-kind argument to a webhook kind.
func parseKindArg(arg string) (webhook.Kind, error) {
	switch arg {
	case "watched":
		return webhook.KindWatched, nil
	case "not-watched", "notWatched":
		return webhook.KindNotWatched, nil
	default:
		return "", NewExitError(ExitCommandError,
			"kind must be \"watched\" or \"not-watched\"")
	}
}

// commandContext returns the cobra command context, falling back to
// Background for direct invocation in tests.
func commandContext(ctx context.Context) context.Context {
	if ctx == nil {
		return context.Background()
	}
	return ctx
}

// isCancellation reports whether an error is a normal shutdown.
func isCancellation(err error) bool {
	return errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
}
