package main

import (
	"bytes"
	"fmt"
	"os"

	"github.com/spf13/viper"
	"golang.org/x/term"

	"github.com/veilfs/veilfs/internal/exitcodes"
)

// readPassword gets the password from the VEILFS_PASSWORD environment
// variable if set (for scripting), otherwise prompts on the terminal
// without echo.
func readPassword(prompt string) ([]byte, error) {
	if env := viper.GetString("password"); env != "" {
		return []byte(env), nil
	}
	fmt.Fprint(os.Stderr, prompt)
	pw, err := term.ReadPassword(int(os.Stdin.Fd()))
	fmt.Fprintln(os.Stderr)
	if err != nil {
		return nil, exitcodes.NewErr(fmt.Sprintf("reading password: %v", err), exitcodes.ReadPassword)
	}
	if len(pw) == 0 {
		return nil, exitcodes.NewErr("password must not be empty", exitcodes.PasswordEmpty)
	}
	return pw, nil
}

// readNewPassword prompts twice and insists the entries match.
func readNewPassword() ([]byte, error) {
	if env := viper.GetString("password"); env != "" {
		return []byte(env), nil
	}
	p1, err := readPassword("Password: ")
	if err != nil {
		return nil, err
	}
	p2, err := readPassword("Repeat: ")
	if err != nil {
		return nil, err
	}
	if !bytes.Equal(p1, p2) {
		return nil, exitcodes.NewErr("passwords do not match", exitcodes.ReadPassword)
	}
	return p1, nil
}
