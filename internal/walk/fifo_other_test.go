//go:build !unix

package filerec

import "errors"

func mkfifo(string) error {
	return errors.New("fifos are not supported on this platform")
}
