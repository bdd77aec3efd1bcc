package game

// JoinRejection classifies why a join attempt was refused.
type JoinRejection string

const (
	JoinInvalidUsername JoinRejection = "invalid_username"
	JoinAlreadyActive   JoinRejection = "already_active"
)

// JoinError is surfaced to the originating client only; it never indicates a
// server failure and never mutates shared state.
type JoinError struct {
	Rejection JoinRejection
	Message   string
}

func (e *JoinError) Error() string {
	return e.Message
}

func newJoinError(rejection JoinRejection, msg string) *JoinError {
	return &JoinError{Rejection: rejection, Message: msg}
}
