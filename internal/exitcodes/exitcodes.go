// Package exitcodes contains all well-defined exit codes that veilfs
// can return.
package exitcodes

import (
	"fmt"
	"os"
)

const (
	// Usage - usage error like wrong cli syntax, wrong number of parameters.
	Usage = 1
	// 2 is reserved because it is used by Go panic

	// Init is an error while initializing a volume
	Init = 7
	// LoadConf is an error while loading veilfs.conf
	LoadConf = 8
	// ReadPassword means something went wrong reading the password
	ReadPassword = 9
	// Other error - please inspect the message
	Other = 11
	// PasswordIncorrect - the password was incorrect
	PasswordIncorrect = 12
	// KDFParams means the key derivation function was called with invalid
	// parameters
	KDFParams = 13
	// PasswordEmpty - we received an empty password
	PasswordEmpty = 22
	// OpenConf - there was an error opening the veilfs.conf file for reading
	OpenConf = 23
	// WriteConf - could not write the veilfs.conf
	WriteConf = 24
	// InvalidName - a filename could not be encoded or decoded
	InvalidName = 26
)

// Err wraps an error with an associated numeric exit code
type Err struct {
	error
	code int
}

// NewErr returns an error containing "msg" and the exit code "code".
func NewErr(msg string, code int) Err {
	return Err{
		error: fmt.Errorf(msg),
		code:  code,
	}
}

// Exit extracts the numeric exit code from "err" (if available) and exits the
// application.
func Exit(err error) {
	err2, ok := err.(Err)
	if !ok {
		os.Exit(Other)
	}
	os.Exit(err2.code)
}
