package dag

import "fmt"

// ErrorCode classifies a DAG error so callers can switch on cause without
// string matching.
type ErrorCode int

const (
	// ErrUnknown is the zero value; never returned deliberately.
	ErrUnknown ErrorCode = iota
	// ErrBadParent indicates a proposer or voter parent outside its chain.
	ErrBadParent
	// ErrBadReference indicates a proposer_refs or votes entry absent from
	// the proposer tree.
	ErrBadReference
	// ErrBadChainNum indicates chain_num outside [1, m].
	ErrBadChainNum
)

// RuleError is a non-fatal structural rejection of a block: a typed,
// non-panicking error describing exactly one validation failure.
type RuleError struct {
	Code ErrorCode
	Desc string
}

func (e RuleError) Error() string {
	return e.Desc
}

func ruleError(c ErrorCode, format string, args ...interface{}) RuleError {
	return RuleError{Code: c, Desc: fmt.Sprintf(format, args...)}
}
