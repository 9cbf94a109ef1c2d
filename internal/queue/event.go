// Package queue defines the notification events exchanged over the message
// broker and the queues that carry them. Email rendering and SMTP delivery
// belong to the downstream consumers of these queues; the backend only
// publishes facts.
package queue

// Queue names. Both queues are durable and declared idempotently by
// publisher and consumer alike.
const (
    WelcomeQueue = "account.welcome"
    ResetQueue   = "account.password_reset"
)

// WelcomeEvent is published after a successful registration. Delivery is
// best effort: the registration has already succeeded when this event is
// emitted.
type WelcomeEvent struct {
    Email    string `json:"email"`
    Username string `json:"username"`
    SentAt   string `json:"sent_at"`
}

// PasswordResetEvent is published when an account owner requests a password
// reset. It carries the single-use token the reset link is built from, so
// failing to publish it must fail the whole reset request.
type PasswordResetEvent struct {
    Email    string `json:"email"`
    Username string `json:"username"`
    Token    string `json:"token"`
    SentAt   string `json:"sent_at"`
}
