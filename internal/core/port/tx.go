package port

import "context"

// TxManager runs fn inside a database transaction. The transaction rides in
// the context so repositories called from fn join it transparently. Any error
// from fn rolls the transaction back; a nil return commits it.
type TxManager interface {
	RunInTx(ctx context.Context, fn func(ctx context.Context) error) error
}
