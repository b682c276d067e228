package main

import "errors"

// single place for error unwrapping across the command files.
func as(err error, target any) bool { return errors.As(err, target) }
