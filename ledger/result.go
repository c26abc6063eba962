package ledger

import "github.com/shopspring/decimal"

// Result is the user-visible outcome of every Facade mutation
// (deposit/withdraw/setBalance, cached and direct). Mutation callers
// never receive a raw error; internal errors are translated to a
// Code + human Message here. The other Facade methods (balance reads,
// SetMaxBalance, audit queries, snapshots) return a plain error.
type Result struct {
	Success bool
	Balance decimal.Decimal
	Code    ErrorCode
	Message string
}

func successResult(balance decimal.Decimal) Result {
	return Result{Success: true, Balance: balance, Code: CodeSuccess, Message: "ok"}
}

func failureResult(balance decimal.Decimal, err error) Result {
	return Result{Success: false, Balance: balance, Code: codeFor(err), Message: err.Error()}
}
