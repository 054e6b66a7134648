//go:build !linux

package main

import "errors"

func openLive(int) (*target, error) {
	return nil, errors.New("live targets are only supported on linux; use --dump")
}
