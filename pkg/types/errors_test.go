package types

import (
	"errors"
	"fmt"
	"strings"
	"testing"
)

func TestDatabaseErrorIs(t *testing.T) {
	tests := []struct {
		kind ErrorKind
		want error
	}{
		{KindGeneric, ErrGeneric},
		{KindDuplicateEntry, ErrDuplicateEntry},
		{KindConnection, ErrConnection},
		{KindSchema, ErrSchema},
		{KindUnsupportedParameterType, ErrUnsupportedParameterType},
	}

	for _, tt := range tests {
		t.Run(string(tt.kind), func(t *testing.T) {
			err := fmt.Errorf("wrapped: %w", &DatabaseError{Kind: tt.kind, Message: "boom"})
			if !errors.Is(err, tt.want) {
				t.Errorf("errors.Is(%v, %v) = false", err, tt.want)
			}
			for _, other := range tests {
				if other.kind != tt.kind && errors.Is(err, other.want) {
					t.Errorf("%s error matches %v", tt.kind, other.want)
				}
			}
		})
	}
}

func TestDatabaseErrorUnwrap(t *testing.T) {
	cause := errors.New("driver failure")
	err := &DatabaseError{Kind: KindGeneric, Message: "x", Cause: cause}
	if !errors.Is(err, cause) {
		t.Error("DatabaseError does not unwrap to its cause")
	}

	de, ok := AsDatabaseError(fmt.Errorf("ctx: %w", err))
	if !ok || de != err {
		t.Errorf("AsDatabaseError = %v, %v", de, ok)
	}
	if _, ok := AsDatabaseError(cause); ok {
		t.Error("AsDatabaseError matched a plain error")
	}
}

func TestDatabaseErrorMessage(t *testing.T) {
	dup := &DatabaseError{
		Kind:    KindDuplicateEntry,
		Code:    2067,
		SQL:     "INSERT INTO t VALUES (?, ?)",
		Params:  []any{nil, "a"},
		Columns: []string{"Name", "Email"},
		Value:   "a",
	}
	msg := dup.Error()
	for _, want := range []string{`duplicate entry "a" for Name, Email`, "(code 2067)", "INSERT INTO t", "with params"} {
		if !strings.Contains(msg, want) {
			t.Errorf("Error() = %q, missing %q", msg, want)
		}
	}
	if dup.Key() != "Name, Email" {
		t.Errorf("Key() = %q", dup.Key())
	}

	plain := &DatabaseError{Kind: KindGeneric, Message: "no such table: x"}
	if plain.Error() != "no such table: x" {
		t.Errorf("Error() = %q", plain.Error())
	}
}
