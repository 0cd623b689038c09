package db

import (
	"github.com/ValentinKolb/rsnDB/lib/errs"
	"github.com/ValentinKolb/rsnDB/lib/value"
)

// --------------------------------------------------------------------------
// KV Store Operations
// --------------------------------------------------------------------------

// Put stores v under key, overwriting any previous value.
func (s *State) Put(key string, v value.Value) (*State, error) {
	if key == "" {
		return nil, errs.New(errs.InvalidArgument, "empty key")
	}
	if err := value.Check(v, s.limit); err != nil {
		return nil, errs.As(err).With("key", key)
	}
	out := s.clone()
	out.kv, _, _ = s.kv.Insert([]byte(key), v)
	return out, nil
}

// GetKey returns the value stored under key.
func (s *State) GetKey(key string) (value.Value, error) {
	v, ok := s.kv.Get([]byte(key))
	if !ok {
		return value.Value{}, errKeyNotFound(key)
	}
	return v.(value.Value), nil
}

// Drop removes key.
func (s *State) Drop(key string) (*State, error) {
	tree, _, ok := s.kv.Delete([]byte(key))
	if !ok {
		return nil, errKeyNotFound(key)
	}
	out := s.clone()
	out.kv = tree
	return out, nil
}

// Keys returns all keys with the given prefix in sorted order.
func (s *State) Keys(prefix string) []string {
	var keys []string
	s.kv.Root().WalkPrefix([]byte(prefix), func(k []byte, _ interface{}) bool {
		keys = append(keys, string(k))
		return false
	})
	return keys
}

func errKeyNotFound(key string) *errs.Error {
	return errs.New(errs.KeyNotFound, "key %q does not exist", key).With("key", key)
}
