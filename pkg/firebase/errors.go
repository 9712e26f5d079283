package firebase

import (
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// IsNotFound reports a Firestore NotFound status.
func IsNotFound(err error) bool {
	return status.Code(err) == codes.NotFound
}

// IsAborted reports a transaction contention abort that exhausted retries.
func IsAborted(err error) bool {
	return status.Code(err) == codes.Aborted
}
