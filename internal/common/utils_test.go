package common

import "testing"

func TestHasAny(t *testing.T) {
	if !HasAny("postgres://user@host/db", "mysql://", "postgres://") {
		t.Fatal("expected match")
	}
	if HasAny("file:weather.db", "postgres://", "host=") {
		t.Fatal("unexpected match")
	}
	if HasAny("anything") {
		t.Fatal("no substrings must never match")
	}
}
