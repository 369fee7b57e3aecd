package llm

import "context"

// CallInfo tags a model call with the session and operation it serves so that
// decorators such as usage metering can attribute it.
type CallInfo struct {
	SessionID string
	Operation string
}

type callInfoKey struct{}

func WithCallInfo(ctx context.Context, info CallInfo) context.Context {
	return context.WithValue(ctx, callInfoKey{}, info)
}

func CallInfoFrom(ctx context.Context) CallInfo {
	info, _ := ctx.Value(callInfoKey{}).(CallInfo)
	return info
}
