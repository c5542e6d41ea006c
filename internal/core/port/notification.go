package port

import "context"

// NotificationSender hands verification and reset tokens off for delivery.
// The bundled implementation only logs; real delivery lives in a separate
// service consuming the published events.
type NotificationSender interface {
	SendEmailVerification(ctx context.Context, email, token string)
	SendPasswordReset(ctx context.Context, email, token string)
}
