// Tidegate - Marine Data Acquisition Gateway
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tidegate

package cache

import (
	"bytes"
	"testing"
	"time"
)

func newTestByteStore(t *testing.T, ttl time.Duration) *ByteStore {
	t.Helper()
	s, err := NewByteStore(ttl)
	if err != nil {
		t.Fatalf("NewByteStore() = %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestByteStoreRoundTrip(t *testing.T) {
	t.Parallel()

	s := newTestByteStore(t, time.Minute)
	want := []byte{0x89, 'P', 'N', 'G'}
	if err := s.Set("ds/1/0/0", want); err != nil {
		t.Fatalf("Set() = %v", err)
	}

	got, ok, err := s.Get("ds/1/0/0")
	if err != nil || !ok {
		t.Fatalf("Get() = %v, %v, %v", got, ok, err)
	}
	if !bytes.Equal(got, want) {
		t.Errorf("Get() = %v, want %v", got, want)
	}
}

func TestByteStoreMiss(t *testing.T) {
	t.Parallel()

	s := newTestByteStore(t, time.Minute)
	_, ok, err := s.Get("missing")
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if ok {
		t.Error("expected miss")
	}
}

func TestByteStoreExpiry(t *testing.T) {
	t.Parallel()

	s := newTestByteStore(t, time.Minute)
	if err := s.SetWithTTL("short", []byte("x"), time.Second); err != nil {
		t.Fatalf("SetWithTTL() = %v", err)
	}
	// badger TTLs have one-second resolution.
	time.Sleep(2100 * time.Millisecond)
	if _, ok, _ := s.Get("short"); ok {
		t.Error("expected entry to expire")
	}
}

func TestByteStoreDelete(t *testing.T) {
	t.Parallel()

	s := newTestByteStore(t, time.Minute)
	_ = s.Set("k", []byte("v"))
	if err := s.Delete("k"); err != nil {
		t.Fatalf("Delete() = %v", err)
	}
	if _, ok, _ := s.Get("k"); ok {
		t.Error("expected k to be deleted")
	}
}
