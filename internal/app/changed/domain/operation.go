package domain

import "context"

type ctxKey string

const keyOperation ctxKey = "changed_operation"

// Operation identifies the save operation a dispatch belongs to. It is put
// on the context handed to reactions.
type Operation struct {
	ID    string
	Model string
}

// WithOperation returns a context carrying op.
func WithOperation(ctx context.Context, op Operation) context.Context {
	return context.WithValue(ctx, keyOperation, op)
}

// OperationFromContext returns the operation carried by ctx.
func OperationFromContext(ctx context.Context) (Operation, bool) {
	op, ok := ctx.Value(keyOperation).(Operation)
	return op, ok
}
