package store

import "context"

type noneBackend struct{}

// None returns a backend for environments without persistence. Every write
// is dropped and every read misses.
func None() Backend {
	return noneBackend{}
}

func (noneBackend) Get(context.Context, string) (string, bool, error) { return "", false, nil }
func (noneBackend) Set(context.Context, string, string) error         { return nil }
func (noneBackend) Remove(context.Context, string) error              { return nil }
func (noneBackend) Close(context.Context) error                       { return nil }
