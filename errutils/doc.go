package errutils

// Package errutils provides a set of utilities for working with errors in Go.

// Example:
//
// The following example demonstrates how to use `MultiError` to collect several errors:
//
//     package main
//
//     import (
//         "errors"
//         "fmt"
//         "oss.nandlabs.io/objectpool/errutils"
//     )
//
//     func main() {
//         multiErr := errutils.NewMultiErr(nil)
//         multiErr.Add(errors.New("first failure"))
//         multiErr.Add(errors.New("second failure"))
//         if multiErr.HasErrors() {
//             fmt.Println(multiErr)
//         }
//     }
//
// In the above example, `Add` collects both errors in one `MultiError`.
// Printing it with `fmt.Println()` writes each collected error on its own line.
