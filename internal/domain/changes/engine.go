package changes

import (
	"log/slog"
)

// Engine validates and applies transactions. It never persists: callers
// store Result.Touched and update the URL mapping afterwards.
type Engine struct {
	env    Env
	logger *slog.Logger
}

// NewEngine creates an engine over env.
func NewEngine(env Env, logger *slog.Logger) *Engine {
	return &Engine{env: env, logger: logger}
}

// ValidateTransaction checks every change against persisted state and the
// changes before it. All failures are collected.
func (e *Engine) ValidateTransaction(txn *Transaction) *Result {
	res := newResult()
	e.validate(txn, res)
	return res
}

func (e *Engine) validate(txn *Transaction, res *Result) {
	if len(txn.Changes) == 0 {
		res.Success = false
		res.Errors = append(res.Errors, "transaction contains no changes")
		return
	}
	v := newView(e.env)
	for i, c := range txn.Changes {
		validateChange(v, txn.Changes[:i], i, c, res)
	}
	if !res.IsSuccess() {
		e.logger.Debug("Transaction rejected", "transactionId", txn.ID, "errors", len(res.Errors))
	}
}

// ApplyTransaction validates txn and, only if every change is valid,
// applies the changes in order to working copies of the touched objects.
// visit, when non-nil, sees each touched storable once apply succeeded.
// Rollback info is captured immediately before each change is applied.
func (e *Engine) ApplyTransaction(txn *Transaction, visit Visitor) *Result {
	res := newResult()
	e.validate(txn, res)
	if !res.IsSuccess() {
		return res
	}

	s := newSession(e.env)
	for i, c := range txn.Changes {
		info, err := collectRollbackInfo(s, c)
		if err == nil {
			err = applyChange(s, c, res)
		}
		if err != nil {
			e.logger.Warn("Change failed after validation", "transactionId", txn.ID, "index", i, "kind", c.Kind(), "error", err)
			return discard(res, i, c.Kind(), err)
		}
		res.Rollbacks = append(res.Rollbacks, Rollback{Index: i, Kind: c.Kind(), Info: info})
	}

	if visit != nil {
		for _, st := range res.Touched {
			if err := visit(st); err != nil {
				return discard(res, len(txn.Changes)-1, txn.Changes[len(txn.Changes)-1].Kind(), err)
			}
		}
	}

	if len(res.Touched) == 0 {
		res.info("nothing to save")
	}
	return res
}

// discard turns a partially applied result into a rejection. Nothing has
// been persisted, so dropping the working copies undoes the apply.
func discard(res *Result, index int, kind Kind, err error) *Result {
	out := newResult()
	out.fail(index, kind, "%v", err)
	out.Infos = res.Infos
	return out
}
