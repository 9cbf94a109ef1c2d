package service

import "context"

// Notifier is the outbound notification collaborator. The account service
// only depends on this contract; the AMQP implementation lives in
// internal/queue and actual email delivery is a downstream consumer's job.
//
// Failure semantics differ per call site: SendWelcome runs detached and its
// error is only logged, while SendReset is on the critical path of
// RequestPasswordReset and its error fails the whole operation.
type Notifier interface {
    SendWelcome(ctx context.Context, email, name string) error
    SendReset(ctx context.Context, email, name, token string) error
}
